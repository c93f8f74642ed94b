package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/health"
	"github.com/unikron/shieldswap/pkg/models"
)

var watchMetricsAddr string

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow the commit window of the active swap",
	Long: `Show a live countdown of the commit window until the swap is revealed,
executed or expired. With --metrics-addr the session is also reported on
/status and Prometheus metrics on /metrics.`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&watchMetricsAddr, "metrics-addr", "", "Serve health and metrics on this address, e.g. :8080")
}

func runWatch(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	env, err := openSession(ctx)
	if err != nil {
		return err
	}
	if phase := env.controller.Phase(); phase == models.PhaseIdle {
		printSuccess("No active swap.")
		return nil
	}

	healthErr := make(chan error, 1)
	if watchMetricsAddr != "" {
		hs := health.NewServer(watchMetricsAddr, cfg.ChainID, cfg.AggregatorAddress, nil,
			map[string]*circuitbreaker.CircuitBreaker{"gateway": env.breaker}, cfg.MetricsAPIKey, log)
		hs.WithSession(env.controller)
		go func() { healthErr <- hs.ListenAndServe(ctx) }()
	}

	go env.controller.Run(ctx)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput(cmd) {
		s.Start()
		defer s.Stop()
	}

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		snap := env.controller.Snapshot()
		if snap.Phase != models.PhaseCommit && snap.Phase != models.PhaseReveal {
			s.Stop()
			if jsonOutput(cmd) {
				return printJSON(snap)
			}
			printSnapshot(snap)
			fmt.Println()
			return nil
		}
		s.Lock()
		s.Suffix = fmt.Sprintf(" %s  %s left  %s", phaseLabel(snap.Phase), formatCountdown(snap.TimeRemaining), formatProgress(snap.Progress))
		s.Unlock()

		select {
		case <-ctx.Done():
			return nil
		case err := <-healthErr:
			return err
		case <-ticker.C:
		}
	}
}
