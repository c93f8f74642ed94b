package chainclient

import (
	"context"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/unikron/shieldswap/pkg/chains"
	"github.com/unikron/shieldswap/pkg/metrics"
)

// GasUpdateRoutine periodically refreshes the gas price used for commit and reveal transactions
type GasUpdateRoutine struct {
	client   *Client
	interval time.Duration
	stopChan chan struct{}
	mu       sync.RWMutex
	running  bool
}

// NewGasUpdateRoutine creates a new gas update routine
func NewGasUpdateRoutine(client *Client, interval time.Duration) *GasUpdateRoutine {
	return &GasUpdateRoutine{
		client:   client,
		interval: interval,
	}
}

// Start begins the periodic updates until Stop is called or ctx is done
func (r *GasUpdateRoutine) Start(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return // Already running
	}

	r.stopChan = make(chan struct{})
	r.running = true

	go r.run(ctx, r.stopChan)
}

// Stop halts the periodic updates
func (r *GasUpdateRoutine) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	close(r.stopChan)
	r.stopChan = nil
	r.running = false
}

// IsRunning returns whether the routine is currently running
func (r *GasUpdateRoutine) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

func (r *GasUpdateRoutine) run(ctx context.Context, stop <-chan struct{}) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	// Perform initial update
	r.update(ctx)

	for {
		select {
		case <-ticker.C:
			r.update(ctx)
		case <-stop:
			return
		case <-ctx.Done():
			r.Stop()
			return
		}
	}
}

// update performs a single gas price refresh and publishes the derived metrics
func (r *GasUpdateRoutine) update(ctx context.Context) {
	gasPrice, err := r.client.UpdateGasPrice(ctx)
	if err != nil {
		r.client.logger.ErrorWithPhase("server", "Failed to update gas price for chain %d: %v", r.client.ChainID, err)
		return
	}

	label := strconv.Itoa(r.client.ChainID)
	metrics.GasPrice.WithLabelValues(label).Set(weiToGwei(gasPrice))
	metrics.RevealCost.WithLabelValues(label).Set(computeTxCost(gasPrice, chains.GasLimit(r.client.ChainID, "revealSwap")))
	r.client.logger.DebugWithPhase("server", "Updated gas price for chain %d: %.2f gwei", r.client.ChainID, weiToGwei(gasPrice))
}

// computeTxCost returns gasPrice * gasLimit in ETH
func computeTxCost(gasPrice *big.Int, gasLimit uint64) float64 {
	if gasPrice == nil {
		return 0.0
	}

	cost := new(big.Float).Mul(new(big.Float).SetInt(gasPrice), new(big.Float).SetUint64(gasLimit))
	costWei, _ := cost.Float64()
	return costWei / 1e18
}

func weiToGwei(wei *big.Int) float64 {
	gwei, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), big.NewFloat(1e9)).Float64()
	return gwei
}
