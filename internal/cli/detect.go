package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"metric-anomaly-alerts/internal/service"
)

var detectDate string

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Run one anomaly detection pass",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := service.YesterdayUTC()
		if detectDate != "" {
			parsed, err := time.Parse("2006-01-02", detectDate)
			if err != nil {
				return fmt.Errorf("invalid --date value: %w", err)
			}
			target = parsed
		}

		return getApp().Detect(cmd.Context(), target)
	},
}

func init() {
	detectCmd.Flags().StringVar(&detectDate, "date", "", "Target date (YYYY-MM-DD, defaults to yesterday UTC)")
}
