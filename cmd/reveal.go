package cmd

import (
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/models"
)

var (
	permitV uint8
	permitR string
	permitS string
)

var revealCmd = &cobra.Command{
	Use:   "reveal",
	Short: "Reveal the committed swap",
	Long: `Send the swap parameters behind the active commitment. The reveal must be
sent before the commit window closes; a failed reveal can be retried until then.
An EIP-2612 permit signature can be forwarded with --permit-v/-r/-s.`,
	Args: cobra.NoArgs,
	RunE: runReveal,
}

func init() {
	rootCmd.AddCommand(revealCmd)
	revealCmd.Flags().Uint8Var(&permitV, "permit-v", 0, "Permit signature v")
	revealCmd.Flags().StringVar(&permitR, "permit-r", "", "Permit signature r (32 byte hex)")
	revealCmd.Flags().StringVar(&permitS, "permit-s", "", "Permit signature s (32 byte hex)")
}

func runReveal(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	env, err := openSession(ctx)
	if err != nil {
		return err
	}

	switch phase := env.controller.Phase(); phase {
	case models.PhaseCommit:
	case models.PhaseIdle:
		return fmt.Errorf("no active swap, start one with: shieldswap swap")
	default:
		return fmt.Errorf("the session is in phase %s, nothing to reveal", phase)
	}

	var permit *models.Permit
	if cmd.Flags().Changed("permit-v") || permitR != "" || permitS != "" {
		permit = &models.Permit{V: permitV, R: permitR, S: permitS}
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput(cmd) {
		s.Suffix = " Revealing swap..."
		s.Start()
	}
	in, err := env.controller.Reveal(ctx, permit)
	s.Stop()
	return reportReveal(cmd, env, in, err)
}
