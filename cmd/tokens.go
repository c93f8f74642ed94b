package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/gateway"
)

var deployedOnly bool

var tokensCmd = &cobra.Command{
	Use:   "tokens",
	Short: "List the tokens that can be swapped",
	Args:  cobra.NoArgs,
	RunE:  runTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)
	tokensCmd.Flags().BoolVar(&deployedOnly, "deployed", false, "List the token addresses registered on the aggregator")
}

func runTokens(cmd *cobra.Command, _ []string) error {
	gw := gateway.New(cfg.APIEndpoint, log)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput(cmd) {
		s.Suffix = " Fetching tokens..."
		s.Start()
	}

	if deployedOnly {
		addresses, err := gw.DeployedTokens(cmd.Context())
		s.Stop()
		if err != nil {
			return err
		}
		if jsonOutput(cmd) {
			return printJSON(addresses)
		}
		for _, a := range addresses {
			fmt.Println(a)
		}
		return nil
	}

	tokens, err := gw.Tokens(cmd.Context())
	s.Stop()
	if err != nil {
		log.Debug("Token list unavailable, using the configured tokens: %v", err)
		tokens = cfg.Tokens
	}
	if jsonOutput(cmd) {
		return printJSON(tokens)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SYMBOL\tNAME\tDECIMALS\tADDRESS")
	for _, t := range tokens {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", t.Symbol, t.Name, t.Decimals, t.Address)
	}
	return w.Flush()
}
