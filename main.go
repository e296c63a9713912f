package main

import "metric-anomaly-alerts/internal/cli"

func main() {
	cli.Execute()
}
