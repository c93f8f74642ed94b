package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/unikron/shieldswap/pkg/chains"
	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/models"
)

// Chain is the view of the settlement chain reported by the status endpoints
type Chain interface {
	GetLatestBlockNumber(ctx context.Context) (uint64, error)
	From() common.Address
	CanSign() bool
	GasPrice() *big.Int
}

// SessionSource exposes the live swap session of a watching client
type SessionSource interface {
	Snapshot() models.SessionSnapshot
}

// Server represents a health check HTTP server
type Server struct {
	addr              string
	chainID           int
	aggregatorAddress string
	chain             Chain
	session           SessionSource
	circuitBreakers   map[string]*circuitbreaker.CircuitBreaker
	metricsAPIKey     string
	logger            logger.Logger
	mux               *http.ServeMux
}

// NewServer creates a new health check server
func NewServer(addr string, chainID int, aggregatorAddress string, chain Chain, circuitBreakers map[string]*circuitbreaker.CircuitBreaker, metricsAPIKey string, log logger.Logger) *Server {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	s := &Server{
		addr:              addr,
		chainID:           chainID,
		aggregatorAddress: aggregatorAddress,
		chain:             chain,
		circuitBreakers:   circuitBreakers,
		metricsAPIKey:     metricsAPIKey,
		logger:            log,
		mux:               http.NewServeMux(),
	}

	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/ready", s.handleReady)
	s.mux.HandleFunc("/status", s.handleStatus)
	s.mux.HandleFunc("/circuit/reset", s.handleCircuitReset)
	// Expose Prometheus metrics with API key authentication
	s.mux.Handle("/metrics", s.metricsAuthMiddleware(promhttp.Handler()))
	return s
}

// WithSession reports the given session on /status
func (s *Server) WithSession(src SessionSource) *Server {
	s.session = src
	return s
}

// Handler returns the handler of the health server
func (s *Server) Handler() http.Handler {
	return s.mux
}

// metricsAuthMiddleware is a middleware that checks for a valid API key
func (s *Server) metricsAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip auth if no API key is configured
		if s.metricsAPIKey == "" {
			next.ServeHTTP(w, r)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Missing Authorization header", http.StatusUnauthorized)
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			http.Error(w, "Invalid Authorization header format", http.StatusUnauthorized)
			return
		}

		if parts[1] != s.metricsAPIKey {
			http.Error(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady fails while the settlement chain is unusable. Without a chain
// (a watching client) the process is ready as soon as it serves.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.chain != nil {
		if !s.chain.CanSign() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("No signer configured"))
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		if _, err := s.chain.GetLatestBlockNumber(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(fmt.Sprintf("Chain %d unreachable: %v", s.chainID, err)))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("Ready"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	chainStatus := map[string]interface{}{
		"chain_id":           s.chainID,
		"name":               chains.GetChainName(s.chainID),
		"aggregator_address": s.aggregatorAddress,
		"connected":          s.chain != nil,
	}

	if s.chain != nil {
		if s.chain.CanSign() {
			chainStatus["sender"] = s.chain.From().Hex()
		}
		if gasPrice := s.chain.GasPrice(); gasPrice != nil {
			chainStatus["gas_price"] = gasPrice.String()
		}
		if blockNumber, err := s.chain.GetLatestBlockNumber(r.Context()); err == nil {
			chainStatus["latest_block"] = blockNumber
		}
	}

	circuits := make(map[string]string, len(s.circuitBreakers))
	for name, cb := range s.circuitBreakers {
		circuitStatus := "closed"
		if cb.IsOpen() {
			circuitStatus = "open"
		}
		circuits[name] = circuitStatus
	}

	status := map[string]interface{}{
		fmt.Sprintf("chain_%d", s.chainID): chainStatus,
		"circuits":                         circuits,
	}

	if s.session != nil {
		snap := s.session.Snapshot()
		sessionStatus := map[string]interface{}{
			"phase":          snap.Phase,
			"in_flight":      snap.InFlight,
			"time_remaining": snap.TimeRemaining.Seconds(),
			"progress":       snap.Progress,
		}
		if snap.Intent != nil {
			sessionStatus["intent_id"] = snap.Intent.IntentID
			sessionStatus["intent_status"] = snap.Intent.Status
		}
		status["session"] = sessionStatus
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(status); err != nil {
		s.logger.Error("Error encoding status JSON: %v", err)
	}
}

// handleCircuitReset closes the breaker named by ?name=
func (s *Server) handleCircuitReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("Missing name parameter, known breakers: " + strings.Join(s.breakerNames(), ", ")))
		return
	}

	cb, ok := s.circuitBreakers[name]
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(fmt.Sprintf("No circuit breaker named %s", name)))
		return
	}

	cb.Reset()
	s.logger.Notice("Circuit breaker %s reset by admin request", name)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(fmt.Sprintf("Circuit breaker %s reset", name)))
}

func (s *Server) breakerNames() []string {
	names := make([]string, 0, len(s.circuitBreakers))
	for name := range s.circuitBreakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListenAndServe serves health and metrics until ctx is done
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting health and metrics server on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
