package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/models"
)

// parseSwapArgs reads "<amount> <from> to <to>"; the "to" is optional
func parseSwapArgs(tokens []models.Token, args []string) (string, models.Token, models.Token, error) {
	if len(args) == 4 && strings.EqualFold(args[2], "to") {
		args = []string{args[0], args[1], args[3]}
	}
	if len(args) != 3 {
		return "", models.Token{}, models.Token{}, fmt.Errorf("expected <amount> <from-token> to <to-token>, got %q", strings.Join(args, " "))
	}

	from, ok := config.FindToken(tokens, args[1])
	if !ok {
		return "", models.Token{}, models.Token{}, fmt.Errorf("unknown token %s (see: shieldswap tokens)", args[1])
	}
	to, ok := config.FindToken(tokens, args[2])
	if !ok {
		return "", models.Token{}, models.Token{}, fmt.Errorf("unknown token %s (see: shieldswap tokens)", args[2])
	}
	return args[0], from, to, nil
}

// formatCountdown renders d as m:ss, rounding up to the next second
func formatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// formatProgress renders a progress percentage as a bar
func formatProgress(pct float64) string {
	const width = 20
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * width)
	return fmt.Sprintf("[%s%s] %3.0f%%", strings.Repeat("#", filled), strings.Repeat("-", width-filled), pct)
}

func phaseLabel(p models.Phase) string {
	switch p {
	case models.PhaseCommit:
		return color.YellowString("COMMIT")
	case models.PhaseReveal:
		return color.CyanString("REVEAL")
	case models.PhaseExecuted:
		return color.GreenString("EXECUTED")
	case models.PhaseExpired:
		return color.RedString("EXPIRED")
	default:
		return strings.ToUpper(string(p))
	}
}

func printQuote(q *models.SwapQuote) {
	fmt.Printf("\n%s\n", color.New(color.Bold).Sprint("Quote"))
	fmt.Printf("  You pay:        %s %s\n", q.InputAmount, q.InputToken.Symbol)
	fmt.Printf("  You receive:    %s %s\n", q.OutputAmount, q.OutputToken.Symbol)
	fmt.Printf("  Minimum:        %s %s (slippage %v%%)\n", q.MinOutputAmount, q.OutputToken.Symbol, q.Slippage)
	fmt.Printf("  Price:          1 %s = %s %s\n", q.InputToken.Symbol, q.Price, q.OutputToken.Symbol)
	fmt.Printf("  Fee:            %s %s\n", q.Fee, q.InputToken.Symbol)
	if q.EstimatedGas != "" {
		fmt.Printf("  Reveal gas:     %s\n", q.EstimatedGas)
	}
	if !q.ValidUntil.IsZero() {
		fmt.Printf("  Valid until:    %s\n", q.ValidUntil.Local().Format(time.Kitchen))
	}
}

func printSnapshot(snap models.SessionSnapshot) {
	fmt.Printf("\nSession: %s\n", phaseLabel(snap.Phase))
	in := snap.Intent
	if in == nil {
		return
	}
	fmt.Printf("  Intent:         %s (%s)\n", in.IntentID, in.Status)
	fmt.Printf("  Swap:           %s %s -> %s %s (min %s)\n",
		in.InputAmount, in.InputToken.Symbol, in.OutputAmount, in.OutputToken.Symbol, in.MinOutputAmount)
	fmt.Printf("  Commitment:     %s\n", in.Commitment)
	if in.CommitTxRef != "" {
		fmt.Printf("  Commit tx:      %s\n", in.CommitTxRef)
	}
	if in.RevealTxRef != "" {
		fmt.Printf("  Reveal tx:      %s\n", in.RevealTxRef)
	}
	if snap.Phase == models.PhaseCommit || snap.Phase == models.PhaseReveal {
		fmt.Printf("  Time left:      %s %s\n", formatCountdown(snap.TimeRemaining), formatProgress(snap.Progress))
	}
}
