package chainclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/unikron/shieldswap/pkg/logger"
)

// defaultNonceSyncInterval is how long a locally tracked nonce is trusted
const defaultNonceSyncInterval = 5 * time.Minute

// NonceSource returns the next nonce of an account including pending transactions
type NonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// NonceManager hands out nonces for the sender account so a reveal can be sent
// before the commit it follows is mined.
type NonceManager struct {
	source       NonceSource
	account      common.Address
	next         uint64
	lastSync     time.Time
	syncInterval time.Duration
	pending      map[uint64]common.Hash
	now          func() time.Time
	logger       logger.Logger
	mu           sync.Mutex
}

// NewNonceManager creates a nonce manager for account
func NewNonceManager(source NonceSource, account common.Address, log logger.Logger) *NonceManager {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	return &NonceManager{
		source:       source,
		account:      account,
		syncInterval: defaultNonceSyncInterval,
		pending:      make(map[uint64]common.Hash),
		now:          time.Now,
		logger:       log,
	}
}

// Next reserves and returns the next nonce
func (nm *NonceManager) Next(ctx context.Context) (uint64, error) {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	// If nonce hasn't been initialized or the last sync is too old
	if nm.lastSync.IsZero() || nm.now().Sub(nm.lastSync) > nm.syncInterval {
		if err := nm.syncLocked(ctx); err != nil {
			return 0, err
		}
	}

	nonce := nm.next
	nm.next++
	return nonce, nil
}

// Track records the transaction sent with nonce
func (nm *NonceManager) Track(nonce uint64, txHash common.Hash) {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	nm.pending[nonce] = txHash
	nm.logger.Debug("Tracking transaction %s with nonce %d", txHash.Hex(), nonce)
}

// Release returns a nonce whose transaction was never sent. It is reused only
// when no later nonce has been handed out.
func (nm *NonceManager) Release(nonce uint64) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	delete(nm.pending, nonce)
	if nm.next == nonce+1 {
		nm.next = nonce
		nm.logger.Debug("Reusing nonce %d after a failed send", nonce)
		return true
	}
	// a gap remains, the next sync repairs it
	nm.lastSync = time.Time{}
	return false
}

// Confirm drops a mined transaction from the pending set
func (nm *NonceManager) Confirm(txHash common.Hash) bool {
	nm.mu.Lock()
	defer nm.mu.Unlock()

	for nonce, hash := range nm.pending {
		if hash == txHash {
			delete(nm.pending, nonce)
			return true
		}
	}
	return false
}

// Pending returns the number of sent transactions not yet confirmed
func (nm *NonceManager) Pending() int {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return len(nm.pending)
}

// Sync refreshes the nonce from the chain
func (nm *NonceManager) Sync(ctx context.Context) error {
	nm.mu.Lock()
	defer nm.mu.Unlock()
	return nm.syncLocked(ctx)
}

func (nm *NonceManager) syncLocked(ctx context.Context) error {
	nonce, err := nm.source.PendingNonceAt(ctx, nm.account)
	if err != nil {
		return fmt.Errorf("failed to get pending nonce: %w", err)
	}

	// the node may not see transactions we just sent yet
	if nonce > nm.next || nm.lastSync.IsZero() {
		if nonce != nm.next {
			nm.logger.Debug("Updating nonce of %s: %d -> %d", nm.account.Hex(), nm.next, nonce)
		}
		nm.next = nonce
	}
	nm.lastSync = nm.now()
	return nil
}
