package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/gateway"
)

var statusCmd = &cobra.Command{
	Use:   "status [tx-ref]",
	Short: "Show the active session or the status of a transaction",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		resp, err := gateway.New(cfg.APIEndpoint, log).Status(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(resp)
		}
		fmt.Printf("%s: %s\n", args[0], resp.Status)
		return nil
	}

	env, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	snap := env.controller.Snapshot()
	if jsonOutput(cmd) {
		return printJSON(snap)
	}
	printSnapshot(snap)
	fmt.Println()
	return nil
}
