package server

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/time/rate"

	"github.com/unikron/shieldswap/pkg/metrics"
	"github.com/unikron/shieldswap/pkg/models"
)

// rateLimiter keeps one token bucket per client
type rateLimiter struct {
	clients    map[string]*client
	mu         sync.Mutex
	rate       rate.Limit
	burst      int
	window     time.Duration
	trustProxy bool
	now        func() time.Time
}

type client struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// newRateLimiter allows requests per window for every client. The
// X-Forwarded-For header identifies clients only when trustProxy is set.
func newRateLimiter(requests int, window time.Duration, trustProxy bool) *rateLimiter {
	return &rateLimiter{
		clients:    make(map[string]*client),
		rate:       rate.Every(window / time.Duration(requests)),
		burst:      requests,
		window:     window,
		trustProxy: trustProxy,
		now:        time.Now,
	}
}

func (rl *rateLimiter) allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	c, ok := rl.clients[key]
	if !ok {
		c = &client{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.clients[key] = c
	}
	c.lastSeen = now
	return c.limiter.AllowN(now, 1)
}

// cleanupStale drops clients idle for a full window; their bucket has refilled
// so a new one is equivalent. Returns how many remain.
func (rl *rateLimiter) cleanupStale() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, c := range rl.clients {
		if now.Sub(c.lastSeen) >= rl.window {
			delete(rl.clients, key)
		}
	}
	return len(rl.clients)
}

// run evicts stale clients every window until ctx is done
func (rl *rateLimiter) run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.cleanupStale()
		}
	}
}

func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.allow(clientKey(r, rl.trustProxy)) {
			metrics.RateLimited.Inc()
			writeJSON(w, http.StatusTooManyRequests, models.ErrorResponse{
				Error: "rate limit exceeded, retry later",
				Kind:  "rate_limited",
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientKey identifies the caller by its remote host, or by the first
// forwarded address when the API runs behind a trusted proxy
func clientKey(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-For"), ",")[0]); fwd != "" {
			return fwd
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if current := mux.CurrentRoute(r); current != nil {
			if tpl, err := current.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		metrics.APIRequests.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
		metrics.APILatency.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}
