package cli

import (
	"errors"

	"github.com/spf13/cobra"
)

var (
	ackAlertID     int64
	ackActor       string
	resolveAlertID int64
	resolveActor   string
)

var ackCmd = &cobra.Command{
	Use:   "ack",
	Short: "Acknowledge an alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if ackAlertID <= 0 {
			return errors.New("--id must be greater than zero")
		}
		if ackActor == "" {
			return errors.New("--actor is required")
		}
		return getApp().Acknowledge(cmd.Context(), ackAlertID, ackActor)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve an alert",
	RunE: func(cmd *cobra.Command, args []string) error {
		if resolveAlertID <= 0 {
			return errors.New("--id must be greater than zero")
		}
		if resolveActor == "" {
			return errors.New("--actor is required")
		}
		return getApp().Resolve(cmd.Context(), resolveAlertID, resolveActor)
	},
}

func init() {
	ackCmd.Flags().Int64Var(&ackAlertID, "id", 0, "Alert id")
	ackCmd.Flags().StringVar(&ackActor, "actor", "", "Acting operator")
	resolveCmd.Flags().Int64Var(&resolveAlertID, "id", 0, "Alert id")
	resolveCmd.Flags().StringVar(&resolveActor, "actor", "", "Acting operator")
}
