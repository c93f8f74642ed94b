package cmd

import (
	"context"
	"errors"
	"strings"

	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/intent"
	"github.com/unikron/shieldswap/pkg/quote"
	"github.com/unikron/shieldswap/pkg/session"
)

// anonymousUser keys the session when no address is configured
const anonymousUser = "local"

// sessionEnv bundles what the session commands work with
type sessionEnv struct {
	controller *session.Controller
	gateway    *gateway.Client
	breaker    *circuitbreaker.CircuitBreaker
	quotes     *quote.Engine
}

func sessionUser() string {
	if userFlag != "" {
		return userFlag
	}
	if cfg.UserAddress != "" {
		return cfg.UserAddress
	}
	return anonymousUser
}

func sessionFile() string {
	if sessionFileFlag != "" {
		return sessionFileFlag
	}
	return cfg.SessionFile
}

func newQuoteEngine() (*quote.Engine, error) {
	prices, err := quote.NewPriceTable(cfg.Prices)
	if err != nil {
		return nil, err
	}
	return quote.NewEngine(prices, cfg.FeeBps, cfg.QuoteTTL), nil
}

// openSession builds the controller of this (chain, user) and restores its persisted session
func openSession(ctx context.Context) (*sessionEnv, error) {
	engine, err := newQuoteEngine()
	if err != nil {
		return nil, err
	}

	storage, err := session.NewFileStorage(sessionFile())
	if err != nil {
		return nil, err
	}

	gw := gateway.New(cfg.APIEndpoint, log)
	breaker := circuitbreaker.NewCircuitBreaker(
		"gateway",
		cfg.CircuitBreaker.Enabled,
		cfg.CircuitBreaker.Threshold,
		cfg.CircuitBreaker.WindowDuration,
		cfg.CircuitBreaker.ResetTimeout,
		log,
	)

	controller := session.NewController(gw, engine, intent.NewStore(), storage, session.Options{
		ChainID:       cfg.ChainID,
		User:          strings.ToLower(sessionUser()),
		CommitWindow:  cfg.Session.CommitWindow,
		PollInterval:  cfg.Session.StatusPollInterval,
		StatusTimeout: cfg.Session.StatusTimeout,
		Retry: session.RetryPolicy{
			MaxRetries: cfg.Retry.MaxRetries,
			BaseDelay:  cfg.Retry.BaseDelay,
			MaxDelay:   cfg.Retry.MaxDelay,
			Multiplier: 2,
		},
		Breaker: breaker,
		Logger:  log,
	})

	// a reveal still settling is not an error for the caller
	if _, err := controller.Recover(ctx); err != nil && !errors.Is(err, session.ErrPending) {
		return nil, err
	}

	return &sessionEnv{
		controller: controller,
		gateway:    gw,
		breaker:    breaker,
		quotes:     engine,
	}, nil
}
