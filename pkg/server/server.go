// Package server serves the settlement-backing JSON API consumed by the
// gateway client: token list, quotes, commit and reveal submission and
// transaction status.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/unikron/shieldswap/pkg/chainclient"
	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
)

// Settlement is the on-chain side of the API
type Settlement interface {
	CommitSwap(ctx context.Context, digest common.Hash) (common.Hash, error)
	RevealSwap(ctx context.Context, p chainclient.RevealParams) (common.Hash, error)
	// Receipt returns nil, nil while the transaction is pending
	Receipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	DeployedTokens(ctx context.Context) ([]common.Address, error)
	TokenMetadata(ctx context.Context, token common.Address) (chainclient.TokenMetadata, error)
}

// Options configures the API server
type Options struct {
	ChainID   int
	Tokens    []models.Token
	RateLimit config.RateLimitConfig
	// Breaker pauses chain submissions after repeated transient failures
	Breaker *circuitbreaker.CircuitBreaker
	Logger  logger.Logger
}

// Server provides the HTTP API of the swap aggregator
type Server struct {
	settlement Settlement
	quotes     *quote.Engine
	tokens     []models.Token
	chainID    int
	limiter    *rateLimiter
	breaker    *circuitbreaker.CircuitBreaker
	logger     logger.Logger
	handler    http.Handler
}

// New creates the API server
func New(settlement Settlement, quotes *quote.Engine, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = &logger.EmptyLogger{}
	}
	if opts.RateLimit.Requests <= 0 {
		opts.RateLimit.Requests = config.DefaultRateLimitRequests
	}
	if opts.RateLimit.Window <= 0 {
		opts.RateLimit.Window = config.DefaultRateLimitWindow
	}

	s := &Server{
		settlement: settlement,
		quotes:     quotes,
		tokens:     opts.Tokens,
		chainID:    opts.ChainID,
		limiter:    newRateLimiter(opts.RateLimit.Requests, opts.RateLimit.Window, opts.RateLimit.TrustProxy),
		breaker:    opts.Breaker,
		logger:     opts.Logger,
	}

	r := mux.NewRouter()
	r.HandleFunc("/tokens", s.handleTokens).Methods(http.MethodGet)
	r.HandleFunc("/quote", s.handleQuote).Methods(http.MethodGet)
	r.HandleFunc("/swap/commit", s.handleCommit).Methods(http.MethodPost)
	r.HandleFunc("/swap/reveal", s.handleReveal).Methods(http.MethodPost)
	r.HandleFunc("/swap/status", s.handleStatus).Methods(http.MethodGet)
	r.HandleFunc("/deployed-tokens", s.handleDeployedTokens).Methods(http.MethodGet)
	r.Use(metricsMiddleware)
	r.Use(s.limiter.middleware)

	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	s.handler = c.Handler(r)
	return s
}

// Handler returns the root handler of the API
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe serves on addr until ctx is done
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	limiterCtx, stopLimiter := context.WithCancel(ctx)
	defer stopLimiter()
	go s.limiter.run(limiterCtx)

	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithPhase("server", "Starting swap API on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.InfoWithPhase("server", "Shutting down swap API")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
