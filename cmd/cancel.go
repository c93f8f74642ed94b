package cmd

import (
	"github.com/spf13/cobra"
)

var cancelCmd = &cobra.Command{
	Use:   "cancel",
	Short: "Abandon a committed swap that has not been revealed",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		if err := env.controller.Cancel(); err != nil {
			return err
		}
		printSuccess("Session cancelled. The commitment stays on chain but will never be revealed.")
		return nil
	},
}

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Acknowledge an executed or expired swap",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		env, err := openSession(cmd.Context())
		if err != nil {
			return err
		}
		if err := env.controller.Reset(); err != nil {
			return err
		}
		printSuccess("Ready for a new swap.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(resetCmd)
}
