package cli

import (
	"github.com/spf13/cobra"
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Deliver undelivered alerts through every enabled channel",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Dispatch(cmd.Context())
	},
}
