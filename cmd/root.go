package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/logger"
)

var (
	cfg *config.Config
	log logger.Logger

	userFlag        string
	sessionFileFlag string
)

var rootCmd = &cobra.Command{
	Use:   "shieldswap",
	Short: "MEV-protected token swaps through commit-reveal",
	Long: `shieldswap hides the terms of a swap behind a commitment until it is
settled: the commitment is sent first, the swap parameters are revealed
within the commit window.

Examples:
  shieldswap quote 1 ETH-D to USDT-D
  shieldswap swap 1 ETH-D to USDT-D --slippage 1
  shieldswap watch
  shieldswap reveal
  shieldswap serve`,
	Version:       "0.1.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.LoadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		verbose, _ := cmd.Flags().GetBool("verbose")
		level := cfg.LoggerConfig.Level
		if verbose {
			level = logger.DebugLevel
		}
		log = logger.NewStdLogger(cfg.LoggerConfig.Coloring, level)
		return nil
	},
}

// Execute runs the root command until it returns or the process is interrupted
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		printError(err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringVar(&userFlag, "user", "", "Address owning the local session (defaults to USER_ADDRESS)")
	rootCmd.PersistentFlags().StringVar(&sessionFileFlag, "session-file", "", "Session file (defaults to SESSION_FILE)")
}

func jsonOutput(cmd *cobra.Command) bool {
	enabled, _ := cmd.Flags().GetBool("json")
	return enabled
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printError(err error) {
	fmt.Fprintf(os.Stderr, "\n%s %v\n\n", color.RedString("Error:"), err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", color.GreenString(message))
}
