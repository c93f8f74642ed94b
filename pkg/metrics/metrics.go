package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics for monitoring
var (
	// Session lifecycle
	SessionTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_session_transitions_total",
		Help: "The total number of session phase transitions",
	}, []string{"from", "to"})

	CommitsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_commits_total",
		Help: "The total number of commitments sent to the aggregator by outcome",
	}, []string{"status"})

	RevealsSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_reveals_total",
		Help: "The total number of reveals sent to the aggregator by outcome",
	}, []string{"status"})

	SessionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shieldswap_sessions_expired_total",
		Help: "The total number of sessions whose commit window elapsed",
	})

	SessionsCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shieldswap_sessions_cancelled_total",
		Help: "The total number of sessions cancelled by the user",
	})

	SessionsRecovered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_sessions_recovered_total",
		Help: "The total number of persisted sessions restored on startup by outcome",
	}, []string{"outcome"})

	CommitWindowRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shieldswap_commit_window_remaining_seconds",
		Help: "Seconds left before the live commitment expires",
	})

	SwapDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "shieldswap_swap_duration_seconds",
		Help:    "Time from commit to executed reveal",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // Start at 1s with 10 buckets doubling in size
	})

	// Quotes
	QuotesServed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_quotes_total",
		Help: "The total number of quote requests by outcome",
	}, []string{"status"})

	// Gateway
	GatewayRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_gateway_requests_total",
		Help: "The total number of gateway calls by operation and outcome",
	}, []string{"op", "status"})

	GatewayErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_gateway_errors_total",
		Help: "Total number of gateway errors by operation and class",
	}, []string{"op", "class"})

	GatewayLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shieldswap_gateway_latency_seconds",
		Help:    "Latency of gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"op"})

	RetryCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_retry_count_total",
		Help: "The total number of retried gateway calls by operation",
	}, []string{"op"})

	MaxRetriesReached = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_max_retries_reached_total",
		Help: "Number of gateway calls that exhausted their retries",
	}, []string{"op"})

	CircuitBreakerOpen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shieldswap_circuit_breaker_open",
		Help: "Whether the named circuit breaker is open (1) or closed (0)",
	}, []string{"name"})

	// Backing API
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_api_requests_total",
		Help: "The total number of backing API requests by route and status code",
	}, []string{"route", "code"})

	APILatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "shieldswap_api_latency_seconds",
		Help:    "Latency of backing API requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shieldswap_api_rate_limited_total",
		Help: "Number of backing API requests rejected by the rate limiter",
	})

	ChainSubmissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shieldswap_chain_submissions_total",
		Help: "Transactions submitted to the aggregator contract by method and outcome",
	}, []string{"method", "status"})

	GasPrice = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shieldswap_gas_price_gwei",
		Help: "Current gas price in gwei used for aggregator transactions",
	}, []string{"chain_id"})

	RevealCost = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shieldswap_reveal_cost_eth",
		Help: "Estimated cost of a revealSwap transaction in ETH at the current gas price",
	}, []string{"chain_id"})

	PendingTransactions = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "shieldswap_pending_transactions",
		Help: "Transactions sent with a nonce that are not yet mined",
	}, []string{"chain_id"})
)
