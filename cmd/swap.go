package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
	"github.com/unikron/shieldswap/pkg/session"
)

var (
	swapSlippage   float64
	swapDeadline   int
	swapNoMEV      bool
	swapAutoReveal time.Duration
	swapNoConfirm  bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> <from-token> to <to-token>",
	Short: "Commit to a swap and reveal it within the commit window",
	Long: `Commit to a swap. The swap terms stay hidden behind a commitment until they
are revealed with "shieldswap reveal", or automatically with --auto-reveal.
With --no-mev-protection the reveal is sent as soon as the commitment is mined.

Examples:
  shieldswap swap 1 ETH-D to USDT-D
  shieldswap swap 1 ETH-D to USDT-D --auto-reveal 30s --yes
  shieldswap swap 100 USDT-D to ETH-D --slippage 1 --no-mev-protection`,
	Args: cobra.RangeArgs(3, 4),
	RunE: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)
	swapCmd.Flags().Float64Var(&swapSlippage, "slippage", 0, "Slippage tolerance in percent (defaults to SLIPPAGE)")
	swapCmd.Flags().IntVar(&swapDeadline, "deadline", 0, "Settlement deadline in minutes (defaults to DEADLINE_MINUTES)")
	swapCmd.Flags().BoolVar(&swapNoMEV, "no-mev-protection", false, "Reveal right after the commitment is mined")
	swapCmd.Flags().DurationVar(&swapAutoReveal, "auto-reveal", 0, "Reveal automatically after this delay")
	swapCmd.Flags().BoolVarP(&swapNoConfirm, "yes", "y", false, "Skip confirmation prompt")
}

func runSwap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	amount, from, to, err := parseSwapArgs(cfg.Tokens, args)
	if err != nil {
		return err
	}

	swapConfig := cfg.Swap
	if swapSlippage != 0 {
		swapConfig.Slippage = swapSlippage
	}
	if swapDeadline != 0 {
		swapConfig.DeadlineMinutes = swapDeadline
	}
	if swapNoMEV {
		swapConfig.MEVProtection = false
	}

	env, err := openSession(ctx)
	if err != nil {
		return err
	}
	if phase := env.controller.Phase(); phase != models.PhaseIdle {
		return fmt.Errorf("a %s session is already active, see: shieldswap status", phase)
	}

	q, err := env.quotes.GetQuote(quote.Request{InputToken: from, OutputToken: to, InputAmount: amount, Slippage: swapConfig.Slippage})
	if err != nil {
		return err
	}
	if !jsonOutput(cmd) {
		printQuote(q)
	}
	if !swapNoConfirm && !jsonOutput(cmd) && !confirm("\nCommit to this swap?") {
		fmt.Println("Swap aborted.")
		return nil
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	spin := func(msg string) {
		if !jsonOutput(cmd) {
			s.Suffix = " " + msg
			s.Start()
		}
	}

	spin("Submitting commitment...")
	in, err := env.controller.Commit(ctx, session.CommitRequest{
		InputToken:  from,
		OutputToken: to,
		InputAmount: amount,
		Config:      swapConfig,
	})
	s.Stop()
	if err != nil {
		return err
	}
	if !jsonOutput(cmd) {
		fmt.Printf("Commitment %s submitted in %s\n", in.Commitment, in.CommitTxRef)
	}

	spin("Waiting for the commitment to be mined...")
	err = env.controller.ConfirmCommit(ctx)
	s.Stop()
	if err != nil && !errors.Is(err, session.ErrPending) {
		return err
	}

	switch {
	case !swapConfig.MEVProtection:
		spin("Revealing swap...")
		in, err = env.controller.Reveal(ctx, nil)
	case swapAutoReveal > 0:
		spin(fmt.Sprintf("Revealing in %s...", formatCountdown(swapAutoReveal)))
		in, err = env.controller.AutoReveal(ctx, swapAutoReveal, nil)
	default:
		snap := env.controller.Snapshot()
		if jsonOutput(cmd) {
			return printJSON(snap)
		}
		printSnapshot(snap)
		printSuccess(fmt.Sprintf("Committed. Run \"shieldswap reveal\" within %s.", formatCountdown(snap.TimeRemaining)))
		return nil
	}
	s.Stop()
	return reportReveal(cmd, env, in, err)
}

// reportReveal prints the outcome of a reveal
func reportReveal(cmd *cobra.Command, env *sessionEnv, in *models.SwapIntent, err error) error {
	if errors.Is(err, session.ErrPending) {
		if jsonOutput(cmd) {
			return printJSON(env.controller.Snapshot())
		}
		printSnapshot(env.controller.Snapshot())
		printSuccess("Transaction still pending, check with \"shieldswap status\".")
		return nil
	}
	if err != nil {
		return err
	}

	if jsonOutput(cmd) {
		return printJSON(in)
	}
	printSnapshot(env.controller.Snapshot())
	printSuccess(fmt.Sprintf("Swapped %s %s for at least %s %s.",
		in.InputAmount, in.InputToken.Symbol, in.MinOutputAmount, in.OutputToken.Symbol))
	return nil
}

func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	answer, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
