package cmd

import (
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
)

var (
	quoteSlippage float64
	quoteLocal    bool
)

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <from-token> to <to-token>",
	Short: "Show the terms of a swap without committing",
	Long: `Ask the API for the terms of a swap. Tokens are given by symbol or address.

Examples:
  shieldswap quote 1 ETH-D to USDT-D
  shieldswap quote 250 USDT-D to ETH-D --slippage 1
  shieldswap quote 1 ETH-D to DAI-D --local`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
	quoteCmd.Flags().Float64Var(&quoteSlippage, "slippage", 0, "Slippage tolerance in percent (defaults to SLIPPAGE)")
	quoteCmd.Flags().BoolVar(&quoteLocal, "local", false, "Price with the local price table instead of the API")
}

func runQuote(cmd *cobra.Command, args []string) error {
	amount, from, to, err := parseSwapArgs(cfg.Tokens, args)
	if err != nil {
		return err
	}
	slippage := quoteSlippage
	if slippage == 0 {
		slippage = cfg.Swap.Slippage
	}

	var q *models.SwapQuote
	if quoteLocal {
		engine, err := newQuoteEngine()
		if err != nil {
			return err
		}
		q, err = engine.GetQuote(quote.Request{InputToken: from, OutputToken: to, InputAmount: amount, Slippage: slippage})
		if err != nil {
			return err
		}
	} else {
		s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
		if !jsonOutput(cmd) {
			s.Suffix = " Fetching quote..."
			s.Start()
		}
		q, err = gateway.New(cfg.APIEndpoint, log).Quote(cmd.Context(), from.Address, to.Address, amount, slippage)
		s.Stop()
		if err != nil {
			return err
		}
	}

	if jsonOutput(cmd) {
		return printJSON(q)
	}
	printQuote(q)
	return nil
}
