// Package intent keeps the authoritative record of swap intents and guards
// every status change.
package intent

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/models"
)

// CreateParams are the frozen terms of a new intent
type CreateParams struct {
	ChainID         int
	User            string
	InputToken      models.Token
	OutputToken     models.Token
	InputAmount     string
	OutputAmount    string
	MinOutputAmount string
	AmountInBase    string
	Nonce           string
	Commitment      string
	Config          models.SwapConfig
}

// allowed lists the legal successors of each status
var allowed = map[models.IntentStatus][]models.IntentStatus{
	models.IntentPending:   {models.IntentCommitted, models.IntentExpired, models.IntentCancelled},
	models.IntentCommitted: {models.IntentExecuted, models.IntentExpired, models.IntentCancelled},
}

// CanTransition reports whether from -> to is a legal status change
func CanTransition(from, to models.IntentStatus) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Store holds intents in memory and returns copies only
type Store struct {
	mu      sync.RWMutex
	intents map[string]*models.SwapIntent
	now     func() time.Time
}

// NewStore creates an empty store using the wall clock
func NewStore() *Store {
	return NewStoreWithClock(time.Now)
}

// NewStoreWithClock creates an empty store using now as time source
func NewStoreWithClock(now func() time.Time) *Store {
	return &Store{
		intents: make(map[string]*models.SwapIntent),
		now:     now,
	}
}

// Create records a new pending intent
func (s *Store) Create(p CreateParams) (*models.SwapIntent, error) {
	if p.InputToken.SameAddress(p.OutputToken) {
		return nil, &errs.InvalidAmountError{Field: "outputToken", Value: p.OutputToken.Symbol, Reason: "input and output token must differ"}
	}
	if p.InputAmount == "" || p.AmountInBase == "" {
		return nil, &errs.InvalidAmountError{Field: "amount", Reason: "amount is required"}
	}

	intent := &models.SwapIntent{
		IntentID:        uuid.NewString(),
		Status:          models.IntentPending,
		CreatedAt:       s.now().UnixMilli(),
		ChainID:         p.ChainID,
		User:            strings.ToLower(p.User),
		InputToken:      p.InputToken,
		OutputToken:     p.OutputToken,
		InputAmount:     p.InputAmount,
		OutputAmount:    p.OutputAmount,
		MinOutputAmount: p.MinOutputAmount,
		AmountInBase:    p.AmountInBase,
		Nonce:           p.Nonce,
		Commitment:      p.Commitment,
		Config:          p.Config,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.IntentID] = intent
	return intent.Clone(), nil
}

// Restore puts a persisted intent back into the store unchanged
func (s *Store) Restore(intent *models.SwapIntent) error {
	if intent == nil || intent.IntentID == "" {
		return fmt.Errorf("cannot restore intent without id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.intents[intent.IntentID] = intent.Clone()
	return nil
}

// Get returns a copy of the intent
func (s *Store) Get(id string) (*models.SwapIntent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	intent, ok := s.intents[id]
	if !ok {
		return nil, fmt.Errorf("intent %s not found", id)
	}
	return intent.Clone(), nil
}

// Delete forgets the intent
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.intents, id)
}

// MarkCommitted records that the commitment is on chain. Repeating it is a no-op.
func (s *Store) MarkCommitted(id string) (*models.SwapIntent, error) {
	return s.transition(id, models.IntentCommitted, func(i *models.SwapIntent) {})
}

// MarkExecuted records the settled reveal
func (s *Store) MarkExecuted(id, txRef string) (*models.SwapIntent, error) {
	return s.transition(id, models.IntentExecuted, func(i *models.SwapIntent) {
		i.TxRef = txRef
		i.ExecutedAt = s.now().UnixMilli()
	})
}

// MarkExpired records that the commit window elapsed
func (s *Store) MarkExpired(id string) (*models.SwapIntent, error) {
	return s.transition(id, models.IntentExpired, func(i *models.SwapIntent) {})
}

// MarkCancelled records that the user abandoned the intent
func (s *Store) MarkCancelled(id string) (*models.SwapIntent, error) {
	return s.transition(id, models.IntentCancelled, func(i *models.SwapIntent) {})
}

// SetCommitTxRef stores the commit transaction reference
func (s *Store) SetCommitTxRef(id, txRef string) (*models.SwapIntent, error) {
	return s.update(id, func(i *models.SwapIntent) { i.CommitTxRef = txRef })
}

// SetRevealTxRef stores the reveal transaction reference
func (s *Store) SetRevealTxRef(id, txRef string) (*models.SwapIntent, error) {
	return s.update(id, func(i *models.SwapIntent) { i.RevealTxRef = txRef })
}

func (s *Store) update(id string, apply func(*models.SwapIntent)) (*models.SwapIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, fmt.Errorf("intent %s not found", id)
	}
	if intent.Status.Terminal() {
		return nil, &errs.InvalidTransitionError{Entity: "intent", From: string(intent.Status), To: string(intent.Status)}
	}
	apply(intent)
	return intent.Clone(), nil
}

func (s *Store) transition(id string, to models.IntentStatus, apply func(*models.SwapIntent)) (*models.SwapIntent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	intent, ok := s.intents[id]
	if !ok {
		return nil, fmt.Errorf("intent %s not found", id)
	}

	// committed is idempotent, terminal statuses are not
	if intent.Status == to && to == models.IntentCommitted {
		return intent.Clone(), nil
	}
	if !CanTransition(intent.Status, to) {
		return nil, &errs.InvalidTransitionError{Entity: "intent", From: string(intent.Status), To: string(to)}
	}

	intent.Status = to
	apply(intent)
	return intent.Clone(), nil
}
