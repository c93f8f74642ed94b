package config

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/models"
)

// Config holds the configuration shared by the swap engine and the backing API
type Config struct {
	APIEndpoint       string
	ChainID           int
	RPCURL            string
	AggregatorAddress string
	PrivateKey        string
	Port              string
	MetricsPort       string
	SessionFile       string
	UserAddress       string
	MetricsAPIKey     string
	Gas               GasConfig
	Session           SessionConfig
	Retry             RetryConfig
	Swap              models.SwapConfig
	FeeBps            int
	QuoteTTL          time.Duration
	RateLimit         RateLimitConfig
	CircuitBreaker    CircuitBreakerConfig
	LoggerConfig      LoggerConfig
	Tokens            []models.Token
	Prices            map[string]string
}

// GasConfig holds the gas pricing of transactions sent by the backing API
type GasConfig struct {
	Multiplier     float64
	MaxGasPrice    *big.Int
	UpdateInterval time.Duration
}

// SessionConfig holds the commit window and status polling settings
type SessionConfig struct {
	CommitWindow       time.Duration
	StatusPollInterval time.Duration
	StatusTimeout      time.Duration
}

// RetryConfig holds the backoff settings for transient gateway failures
type RetryConfig struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// RateLimitConfig holds the per-client limits of the backing API
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	// TrustProxy keys clients by X-Forwarded-For, set only behind a proxy that overwrites it
	TrustProxy bool
}

// CircuitBreakerConfig holds circuit breaker configuration
type CircuitBreakerConfig struct {
	Enabled        bool
	Threshold      int
	WindowDuration time.Duration
	ResetTimeout   time.Duration
}

// LoggerConfig holds the configuration for logging
type LoggerConfig struct {
	Level    logger.Level
	Coloring bool
}

// LoadConfig loads the configuration from environment variables
func LoadConfig() (*Config, error) {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv builds the configuration from the current environment without reading .env
func FromEnv() (*Config, error) {
	apiEndpoint, err := GetEnvAPIEndpoint()
	if err != nil {
		return nil, err
	}

	chainID, err := GetEnvChainID()
	if err != nil {
		return nil, err
	}

	rpcURL, err := GetEnvRPCURL()
	if err != nil {
		return nil, err
	}

	aggregator, err := GetEnvAggregatorAddress()
	if err != nil {
		return nil, err
	}

	port, err := GetEnvPort()
	if err != nil {
		return nil, err
	}

	metricsPort, err := GetEnvMetricsPort()
	if err != nil {
		return nil, err
	}

	userAddress, err := GetEnvUserAddress()
	if err != nil {
		return nil, err
	}

	commitWindow, err := GetEnvCommitWindow()
	if err != nil {
		return nil, err
	}

	pollInterval, err := GetEnvStatusPollInterval()
	if err != nil {
		return nil, err
	}

	statusTimeout, err := GetEnvStatusTimeout()
	if err != nil {
		return nil, err
	}

	maxRetries, err := GetEnvMaxRetries()
	if err != nil {
		return nil, err
	}

	baseDelay, err := GetEnvRetryBaseDelay()
	if err != nil {
		return nil, err
	}

	maxDelay, err := GetEnvRetryMaxDelay()
	if err != nil {
		return nil, err
	}

	slippage, err := GetEnvSlippage()
	if err != nil {
		return nil, err
	}

	deadline, err := GetEnvDeadlineMinutes()
	if err != nil {
		return nil, err
	}

	mevProtection, err := GetEnvMEVProtection()
	if err != nil {
		return nil, err
	}

	feeBps, err := GetEnvFeeBps()
	if err != nil {
		return nil, err
	}

	quoteTTL, err := GetEnvQuoteTTL()
	if err != nil {
		return nil, err
	}

	rlRequests, err := GetEnvRateLimitRequests()
	if err != nil {
		return nil, err
	}

	rlWindow, err := GetEnvRateLimitWindow()
	if err != nil {
		return nil, err
	}

	rlTrustProxy, err := GetEnvRateLimitTrustProxy()
	if err != nil {
		return nil, err
	}

	cbEnabled, err := GetEnvCircuitBreakerEnabled()
	if err != nil {
		return nil, err
	}

	cbThreshold, err := GetEnvCircuitBreakerThreshold()
	if err != nil {
		return nil, err
	}

	cbWindow, err := GetEnvCircuitBreakerWindow()
	if err != nil {
		return nil, err
	}

	cbReset, err := GetEnvCircuitBreakerReset()
	if err != nil {
		return nil, err
	}

	logLevel, err := GetEnvLogLevel()
	if err != nil {
		return nil, err
	}

	logColoring, err := GetEnvLogColoring()
	if err != nil {
		return nil, err
	}

	gasMultiplier, err := GetEnvGasMultiplier()
	if err != nil {
		return nil, err
	}

	maxGasPrice, err := GetEnvMaxGasPrice()
	if err != nil {
		return nil, err
	}

	gasInterval, err := GetEnvGasUpdateInterval()
	if err != nil {
		return nil, err
	}

	tokens, prices := DefaultTokens(chainID), DefaultPrices()
	if file := GetEnvTokenListFile(); file != "" {
		list, err := LoadTokenList(file)
		if err != nil {
			return nil, err
		}
		tokens, prices = list.Merge(chainID, tokens, prices)
	}

	cfg := &Config{
		APIEndpoint:       apiEndpoint,
		ChainID:           chainID,
		RPCURL:            rpcURL,
		AggregatorAddress: aggregator,
		PrivateKey:        os.Getenv("PRIVATE_KEY"),
		Port:              port,
		MetricsPort:       metricsPort,
		SessionFile:       GetEnvSessionFile(),
		UserAddress:       userAddress,
		MetricsAPIKey:     os.Getenv("METRICS_API_KEY"),
		Gas: GasConfig{
			Multiplier:     gasMultiplier,
			MaxGasPrice:    maxGasPrice,
			UpdateInterval: gasInterval,
		},
		Session: SessionConfig{
			CommitWindow:       commitWindow,
			StatusPollInterval: pollInterval,
			StatusTimeout:      statusTimeout,
		},
		Retry: RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  baseDelay,
			MaxDelay:   maxDelay,
		},
		Swap: models.SwapConfig{
			Slippage:        slippage,
			DeadlineMinutes: deadline,
			MEVProtection:   mevProtection,
		},
		FeeBps:   feeBps,
		QuoteTTL: quoteTTL,
		RateLimit: RateLimitConfig{
			Requests:   rlRequests,
			Window:     rlWindow,
			TrustProxy: rlTrustProxy,
		},
		CircuitBreaker: CircuitBreakerConfig{
			Enabled:        cbEnabled,
			Threshold:      cbThreshold,
			WindowDuration: cbWindow,
			ResetTimeout:   cbReset,
		},
		LoggerConfig: LoggerConfig{
			Level:    logLevel,
			Coloring: logColoring,
		},
		Tokens: tokens,
		Prices: prices,
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	if len(cfg.Tokens) == 0 {
		return fmt.Errorf("at least one token is required")
	}
	if cfg.Retry.MaxDelay < cfg.Retry.BaseDelay {
		return fmt.Errorf("RETRY_MAX_DELAY must not be lower than RETRY_BASE_DELAY")
	}
	if cfg.Session.StatusPollInterval > cfg.Session.StatusTimeout {
		return fmt.Errorf("STATUS_POLL_INTERVAL must not exceed STATUS_TIMEOUT")
	}
	return nil
}

// ValidateServer checks the settings only the backing API needs
func (c *Config) ValidateServer() error {
	if c.PrivateKey == "" {
		return fmt.Errorf("PRIVATE_KEY environment variable is required")
	}
	if c.AggregatorAddress == "" {
		return fmt.Errorf("AGGREGATOR_ADDRESS environment variable is required")
	}
	return nil
}
