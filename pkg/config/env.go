package config

import (
	"fmt"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/unikron/shieldswap/pkg/logger"
)

const (
	// DefaultAPIEndpoint defines the default endpoint of the settlement-backing API
	DefaultAPIEndpoint = "http://localhost:4000"

	// DefaultChainID is Sepolia, where the aggregator is deployed
	DefaultChainID = 11155111

	// DefaultRPCURL defines the default RPC endpoint used by the backing API
	DefaultRPCURL = "https://ethereum-sepolia-rpc.publicnode.com"

	// DefaultAggregatorAddress defines the default swap aggregator contract
	DefaultAggregatorAddress = "0x1a3655e14e8c5736ffac297dfd1fc324f90eedde"

	// DefaultPort defines the default port of the backing API
	DefaultPort = "4000"

	// DefaultMetricsPort defines the default port for the metrics server
	DefaultMetricsPort = "8080"

	// DefaultSessionFile defines where the live session is persisted
	DefaultSessionFile = ".shieldswap/session.json"

	// DefaultCommitWindow defines how long a commitment stays revealable
	DefaultCommitWindow = 5 * time.Minute

	// DefaultStatusPollInterval defines the interval between status polls
	DefaultStatusPollInterval = 3 * time.Second

	// DefaultStatusTimeout defines how long to wait for a transaction to be mined
	DefaultStatusTimeout = 2 * time.Minute

	// DefaultMaxRetries defines the maximum number of retries for transient gateway failures
	DefaultMaxRetries = 3

	// DefaultRetryBaseDelay defines the first backoff delay
	DefaultRetryBaseDelay = time.Second

	// DefaultRetryMaxDelay caps the backoff delay
	DefaultRetryMaxDelay = 10 * time.Second

	// DefaultSlippage defines the default slippage tolerance in percent
	DefaultSlippage = 0.5

	// MinSlippage and MaxSlippage bound the slippage tolerance in percent
	MinSlippage = 0.1
	MaxSlippage = 50.0

	// DefaultDeadlineMinutes defines the default settlement deadline
	DefaultDeadlineMinutes = 20

	// DefaultMEVProtection defines whether swaps go through commit-reveal by default
	DefaultMEVProtection = true

	// DefaultFeeBps defines the informative protocol fee in basis points
	DefaultFeeBps = 30

	// DefaultQuoteTTL defines how long a quote is valid
	DefaultQuoteTTL = 60 * time.Second

	// DefaultRateLimitRequests defines how many API requests a client may send per window
	DefaultRateLimitRequests = 10

	// DefaultRateLimitWindow defines the rate limiting window
	DefaultRateLimitWindow = time.Minute

	// DefaultCircuitBreakerEnabled defines whether the circuit breaker is enabled
	DefaultCircuitBreakerEnabled = true

	// DefaultCircuitBreakerThreshold defines the number of failures before the circuit breaker trips
	DefaultCircuitBreakerThreshold = 5

	// DefaultCircuitBreakerWindow defines the time window for the circuit breaker
	DefaultCircuitBreakerWindow = 5 * time.Minute

	// DefaultCircuitBreakerReset defines the reset timeout for the circuit breaker
	DefaultCircuitBreakerReset = 15 * time.Minute

	// DefaultGasMultiplier adds a 10% buffer to the suggested gas price
	DefaultGasMultiplier = 1.1

	// DefaultGasUpdateInterval defines how often the backing API refreshes the gas price
	DefaultGasUpdateInterval = 30 * time.Second
)

// GetEnvAPIEndpoint returns the API endpoint from environment variables
func GetEnvAPIEndpoint() (string, error) {
	apiEndpoint := os.Getenv("API_ENDPOINT")
	if apiEndpoint == "" {
		return DefaultAPIEndpoint, nil
	}

	// Validate URL format
	if _, err := url.ParseRequestURI(apiEndpoint); err != nil {
		return "", fmt.Errorf("invalid API_ENDPOINT value: %s, must be a valid URL", apiEndpoint)
	}
	return strings.TrimRight(apiEndpoint, "/"), nil
}

// GetEnvChainID returns the chain ID from environment variables
func GetEnvChainID() (int, error) {
	chainID := os.Getenv("CHAIN_ID")
	if chainID == "" {
		return DefaultChainID, nil
	}

	id, err := strconv.Atoi(chainID)
	if err != nil {
		return 0, fmt.Errorf("invalid CHAIN_ID value: %s, must be an integer", chainID)
	}
	if id <= 0 {
		return 0, fmt.Errorf("CHAIN_ID must be greater than 0")
	}
	return id, nil
}

// GetEnvRPCURL returns the RPC URL from environment variables
func GetEnvRPCURL() (string, error) {
	rpc := os.Getenv("RPC_URL")
	if rpc == "" {
		return DefaultRPCURL, nil
	}

	if _, err := url.ParseRequestURI(rpc); err != nil {
		return "", fmt.Errorf("invalid RPC_URL value: %s, must be a valid URL", rpc)
	}
	return rpc, nil
}

// GetEnvAggregatorAddress returns the aggregator contract address from environment variables
func GetEnvAggregatorAddress() (string, error) {
	address := os.Getenv("AGGREGATOR_ADDRESS")
	if address == "" {
		return DefaultAggregatorAddress, nil
	}

	// Validate Ethereum address format
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid AGGREGATOR_ADDRESS value: %s, must be a valid Ethereum address", address)
	}
	return address, nil
}

// GetEnvPort returns the backing API port from environment variables
func GetEnvPort() (string, error) {
	return getEnvPort("PORT", DefaultPort)
}

// GetEnvMetricsPort returns the metrics server port from environment variables
func GetEnvMetricsPort() (string, error) {
	return getEnvPort("METRICS_PORT", DefaultMetricsPort)
}

func getEnvPort(key, def string) (string, error) {
	port := os.Getenv(key)
	if port == "" {
		return def, nil
	}

	// Validate port format
	if _, err := strconv.Atoi(port); err != nil {
		return "", fmt.Errorf("invalid %s value: %s, must be a valid integer", key, port)
	}
	return port, nil
}

// GetEnvSessionFile returns the session persistence file from environment variables
func GetEnvSessionFile() string {
	file := os.Getenv("SESSION_FILE")
	if file == "" {
		return DefaultSessionFile
	}
	return file
}

// GetEnvUserAddress returns the optional address owning the local session
func GetEnvUserAddress() (string, error) {
	address := os.Getenv("USER_ADDRESS")
	if address == "" {
		return "", nil
	}
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("invalid USER_ADDRESS value: %s, must be a valid Ethereum address", address)
	}
	return address, nil
}

// GetEnvCommitWindow returns the commit window duration from environment variables
func GetEnvCommitWindow() (time.Duration, error) {
	return getEnvPositiveDuration("COMMIT_WINDOW", DefaultCommitWindow)
}

// GetEnvStatusPollInterval returns the status polling interval from environment variables
func GetEnvStatusPollInterval() (time.Duration, error) {
	return getEnvPositiveDuration("STATUS_POLL_INTERVAL", DefaultStatusPollInterval)
}

// GetEnvStatusTimeout returns the status polling timeout from environment variables
func GetEnvStatusTimeout() (time.Duration, error) {
	return getEnvPositiveDuration("STATUS_TIMEOUT", DefaultStatusTimeout)
}

// GetEnvMaxRetries returns the maximum number of retries from environment variables
func GetEnvMaxRetries() (int, error) {
	maxRetries := os.Getenv("MAX_RETRIES")
	if maxRetries == "" {
		return DefaultMaxRetries, nil
	}

	maxRetriesInt, err := strconv.Atoi(maxRetries)
	if err != nil {
		return 0, fmt.Errorf("invalid MAX_RETRIES value: %s, must be an integer", maxRetries)
	}
	if maxRetriesInt < 0 {
		return 0, fmt.Errorf("MAX_RETRIES must be greater than or equal to 0")
	}
	return maxRetriesInt, nil
}

// GetEnvRetryBaseDelay returns the first backoff delay from environment variables
func GetEnvRetryBaseDelay() (time.Duration, error) {
	return getEnvPositiveDuration("RETRY_BASE_DELAY", DefaultRetryBaseDelay)
}

// GetEnvRetryMaxDelay returns the backoff cap from environment variables
func GetEnvRetryMaxDelay() (time.Duration, error) {
	return getEnvPositiveDuration("RETRY_MAX_DELAY", DefaultRetryMaxDelay)
}

// GetEnvSlippage returns the default slippage tolerance in percent
func GetEnvSlippage() (float64, error) {
	slippage := os.Getenv("SLIPPAGE")
	if slippage == "" {
		return DefaultSlippage, nil
	}

	value, err := strconv.ParseFloat(slippage, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid SLIPPAGE value: %s, must be a number", slippage)
	}
	if value < MinSlippage || value > MaxSlippage {
		return 0, fmt.Errorf("SLIPPAGE must be between %v and %v", MinSlippage, MaxSlippage)
	}
	return value, nil
}

// GetEnvDeadlineMinutes returns the settlement deadline in minutes
func GetEnvDeadlineMinutes() (int, error) {
	deadline := os.Getenv("DEADLINE_MINUTES")
	if deadline == "" {
		return DefaultDeadlineMinutes, nil
	}

	minutes, err := strconv.Atoi(deadline)
	if err != nil {
		return 0, fmt.Errorf("invalid DEADLINE_MINUTES value: %s, must be an integer", deadline)
	}
	if minutes <= 0 {
		return 0, fmt.Errorf("DEADLINE_MINUTES must be greater than 0")
	}
	return minutes, nil
}

// GetEnvMEVProtection returns whether swaps use commit-reveal
func GetEnvMEVProtection() (bool, error) {
	return getEnvBool("MEV_PROTECTION", DefaultMEVProtection)
}

// GetEnvFeeBps returns the informative fee in basis points
func GetEnvFeeBps() (int, error) {
	feeBps := os.Getenv("FEE_BPS")
	if feeBps == "" {
		return DefaultFeeBps, nil
	}

	bps, err := strconv.Atoi(feeBps)
	if err != nil {
		return 0, fmt.Errorf("invalid FEE_BPS value: %s, must be an integer", feeBps)
	}
	if bps < 0 || bps > 10000 {
		return 0, fmt.Errorf("FEE_BPS must be between 0 and 10000")
	}
	return bps, nil
}

// GetEnvQuoteTTL returns the quote validity from environment variables
func GetEnvQuoteTTL() (time.Duration, error) {
	return getEnvPositiveDuration("QUOTE_TTL", DefaultQuoteTTL)
}

// GetEnvRateLimitRequests returns the number of API requests allowed per window
func GetEnvRateLimitRequests() (int, error) {
	requests := os.Getenv("RATE_LIMIT_REQUESTS")
	if requests == "" {
		return DefaultRateLimitRequests, nil
	}

	n, err := strconv.Atoi(requests)
	if err != nil {
		return 0, fmt.Errorf("invalid RATE_LIMIT_REQUESTS value: %s, must be an integer", requests)
	}
	if n <= 0 {
		return 0, fmt.Errorf("RATE_LIMIT_REQUESTS must be greater than 0")
	}
	return n, nil
}

// GetEnvRateLimitWindow returns the rate limiting window
func GetEnvRateLimitWindow() (time.Duration, error) {
	return getEnvPositiveDuration("RATE_LIMIT_WINDOW", DefaultRateLimitWindow)
}

// GetEnvRateLimitTrustProxy returns whether X-Forwarded-For identifies API clients
func GetEnvRateLimitTrustProxy() (bool, error) {
	return getEnvBool("RATE_LIMIT_TRUST_PROXY", false)
}

// GetEnvCircuitBreakerEnabled returns whether the circuit breaker is enabled from environment variables
func GetEnvCircuitBreakerEnabled() (bool, error) {
	return getEnvBool("CIRCUIT_BREAKER_ENABLED", DefaultCircuitBreakerEnabled)
}

// GetEnvCircuitBreakerThreshold returns the circuit breaker threshold from environment variables
func GetEnvCircuitBreakerThreshold() (int, error) {
	threshold := os.Getenv("CIRCUIT_BREAKER_THRESHOLD")
	if threshold == "" {
		return DefaultCircuitBreakerThreshold, nil
	}

	thresholdInt, err := strconv.Atoi(threshold)
	if err != nil {
		return 0, fmt.Errorf("invalid CIRCUIT_BREAKER_THRESHOLD value: %s, must be an integer", threshold)
	}
	if thresholdInt <= 0 {
		return 0, fmt.Errorf("CIRCUIT_BREAKER_THRESHOLD must be greater than 0")
	}
	return thresholdInt, nil
}

// GetEnvCircuitBreakerWindow returns the circuit breaker window duration from environment variables
func GetEnvCircuitBreakerWindow() (time.Duration, error) {
	return getEnvPositiveDuration("CIRCUIT_BREAKER_WINDOW", DefaultCircuitBreakerWindow)
}

// GetEnvCircuitBreakerReset returns the circuit breaker reset timeout from environment variables
func GetEnvCircuitBreakerReset() (time.Duration, error) {
	return getEnvPositiveDuration("CIRCUIT_BREAKER_RESET", DefaultCircuitBreakerReset)
}

// GetEnvLogLevel returns the log level from environment variables
func GetEnvLogLevel() (logger.Level, error) {
	level := os.Getenv("LOG_LEVEL")
	switch strings.ToLower(level) {
	case "", "info", "debug", "notice", "error":
		return logger.ParseLevel(level), nil
	}
	return 0, fmt.Errorf("invalid LOG_LEVEL value: %s, must be one of debug, info, notice, error", level)
}

// GetEnvLogColoring returns whether log prefixes are coloured
func GetEnvLogColoring() (bool, error) {
	return getEnvBool("LOG_COLORING", true)
}

// GetEnvGasMultiplier returns the gas price multiplier from environment variables
func GetEnvGasMultiplier() (float64, error) {
	multiplier := os.Getenv("GAS_MULTIPLIER")
	if multiplier == "" {
		return DefaultGasMultiplier, nil
	}

	parsed, err := strconv.ParseFloat(multiplier, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid GAS_MULTIPLIER value: %s, must be a number", multiplier)
	}
	if parsed < 1 {
		return 0, fmt.Errorf("GAS_MULTIPLIER must be at least 1")
	}
	return parsed, nil
}

// GetEnvMaxGasPrice returns the gas price cap in wei, nil when unset
func GetEnvMaxGasPrice() (*big.Int, error) {
	maxGasPrice := os.Getenv("MAX_GAS_PRICE")
	if maxGasPrice == "" {
		return nil, nil
	}

	parsed, ok := new(big.Int).SetString(maxGasPrice, 10)
	if !ok || parsed.Sign() <= 0 {
		return nil, fmt.Errorf("invalid MAX_GAS_PRICE value: %s, must be a positive integer in wei", maxGasPrice)
	}
	return parsed, nil
}

// GetEnvGasUpdateInterval returns the gas price refresh interval
func GetEnvGasUpdateInterval() (time.Duration, error) {
	return getEnvPositiveDuration("GAS_UPDATE_INTERVAL", DefaultGasUpdateInterval)
}

// GetEnvTokenListFile returns the optional token list file
func GetEnvTokenListFile() string {
	return os.Getenv("TOKEN_LIST_FILE")
}

func getEnvBool(key string, def bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}

	if value == "true" {
		return true, nil
	} else if value == "false" {
		return false, nil
	}

	return false, fmt.Errorf("invalid %s value: %s, must be 'true' or 'false'", key, value)
}

func getEnvPositiveDuration(key string, def time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return def, nil
	}

	// Validate duration format
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value: %s, must be a valid duration string", key, value)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return parsed, nil
}
