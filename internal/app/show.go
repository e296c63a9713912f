package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent alerts, newest first.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	rows, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts found")
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "ID\tTime (UTC)\tMetric\tDate\tSeverity\tRisk\tStatus\tMessage")

	for _, alert := range rows {
		fmt.Fprintf(
			writer,
			"%d\t%s\t%s\t%s\t%s\t%.3f\t%s\t%s\n",
			alert.ID,
			alert.CreatedAt.UTC().Format(time.RFC3339),
			alert.MetricName,
			alert.MetricDate.UTC().Format("2006-01-02"),
			alert.Severity,
			alert.RiskScore,
			alert.Status,
			sanitizeInline(alert.Message),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
