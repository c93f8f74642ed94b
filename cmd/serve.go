package cmd

import (
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/unikron/shieldswap/pkg/chainclient"
	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/health"
	"github.com/unikron/shieldswap/pkg/quote"
	"github.com/unikron/shieldswap/pkg/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the settlement-backing API",
	Long: `Serve the JSON API the swap client talks to. Commitments and reveals are
sent to the aggregator contract with the key in PRIVATE_KEY. Health, status
and Prometheus metrics are served on METRICS_PORT.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	ctx := cmd.Context()

	client, err := chainclient.New(ctx, cfg.ChainID, cfg.RPCURL, cfg.AggregatorAddress, cfg.PrivateKey, cfg.Gas, log)
	if err != nil {
		return err
	}
	log.Info("Sending transactions from %s to aggregator %s on chain %d", client.From().Hex(), cfg.AggregatorAddress, cfg.ChainID)

	prices, err := quote.NewPriceTable(cfg.Prices)
	if err != nil {
		return err
	}
	engine := quote.NewEngine(prices, cfg.FeeBps, cfg.QuoteTTL).WithCache(quote.NewCache(cfg.QuoteTTL))

	breaker := circuitbreaker.NewCircuitBreaker(
		"chain",
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		log,
	)

	api := server.New(client, engine, server.Options{
		ChainID:   cfg.ChainID,
		Tokens:    cfg.Tokens,
		RateLimit: cfg.RateLimit,
		Breaker:   breaker,
		Logger:    log,
	})
	healthServer := health.NewServer(
		":"+cfg.MetricsPort,
		cfg.ChainID,
		cfg.AggregatorAddress,
		client,
		map[string]*circuitbreaker.CircuitBreaker{"chain": breaker},
		cfg.MetricsAPIKey,
		log,
	)

	gasRoutine := chainclient.NewGasUpdateRoutine(client, cfg.Gas.UpdateInterval)
	gasRoutine.Start(ctx)
	defer gasRoutine.Stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return api.ListenAndServe(gctx, ":"+cfg.Port)
	})
	g.Go(func() error {
		return healthServer.ListenAndServe(gctx)
	})
	return g.Wait()
}
