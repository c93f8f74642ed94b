// Package session drives a single commit-reveal swap from commitment to
// settlement. A Controller owns at most one live session for a (chain, user)
// pair, enforces the commit window and persists every transition.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/commitment"
	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/intent"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/metrics"
	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
)

const (
	// DefaultCommitWindow is how long a commitment can be revealed
	DefaultCommitWindow = 5 * time.Minute

	// DefaultTickInterval is the rate of the expiry timer
	DefaultTickInterval = time.Second

	DefaultPollInterval  = 3 * time.Second
	DefaultStatusTimeout = 2 * time.Minute

	// autoRevealMargin keeps an automatic reveal clear of the window end
	autoRevealMargin = 5 * time.Second
)

// ErrPending is returned when a transaction is still unmined after the status timeout
var ErrPending = errors.New("transaction still pending")

// Gateway is the subset of the aggregator API the controller needs
type Gateway interface {
	Commit(ctx context.Context, digest string) (*models.TxResponse, error)
	Reveal(ctx context.Context, req models.RevealRequest) (*models.TxResponse, error)
	Status(ctx context.Context, txRef string) (*models.StatusResponse, error)
}

// Options configures a Controller
type Options struct {
	ChainID       int
	User          string
	CommitWindow  time.Duration
	TickInterval  time.Duration
	PollInterval  time.Duration
	StatusTimeout time.Duration
	Retry         RetryPolicy
	Breaker       *circuitbreaker.CircuitBreaker
	Logger        logger.Logger
	// Now and Sleep replace the wall clock, used by tests
	Now   func() time.Time
	Sleep func(ctx context.Context, d time.Duration) error
}

// CommitRequest is what the user confirmed after seeing a quote
type CommitRequest struct {
	InputToken  models.Token
	OutputToken models.Token
	InputAmount string
	Config      models.SwapConfig
}

// Controller is the session state machine
type Controller struct {
	mu       sync.Mutex
	phase    models.Phase
	intentID string
	inFlight bool

	gateway Gateway
	quotes  *quote.Engine
	store   *intent.Store
	storage Storage
	retrier *retrier
	key     string
	opts    Options
	logger  logger.Logger
	now     func() time.Time
	sleep   sleepFunc
}

// NewController creates an idle controller
func NewController(gw Gateway, quotes *quote.Engine, store *intent.Store, storage Storage, opts Options) *Controller {
	if opts.CommitWindow <= 0 {
		opts.CommitWindow = DefaultCommitWindow
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = DefaultTickInterval
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.StatusTimeout <= 0 {
		opts.StatusTimeout = DefaultStatusTimeout
	}
	if opts.Retry.BaseDelay <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = &logger.EmptyLogger{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepCtx
	}
	if storage == nil {
		storage = NewMemoryStorage()
	}

	return &Controller{
		phase:   models.PhaseIdle,
		gateway: gw,
		quotes:  quotes,
		store:   store,
		storage: storage,
		retrier: &retrier{
			policy:  opts.Retry,
			breaker: opts.Breaker,
			logger:  opts.Logger,
			sleep:   opts.Sleep,
		},
		key:    Key(opts.ChainID, opts.User),
		opts:   opts,
		logger: opts.Logger,
		now:    opts.Now,
		sleep:  opts.Sleep,
	}
}

// Key returns the storage key of this controller
func (c *Controller) Key() string {
	return c.key
}

// Phase returns the current phase
func (c *Controller) Phase() models.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Snapshot returns a read-only view of the session
func (c *Controller) Snapshot() models.SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap := models.SessionSnapshot{
		Phase:    c.phase,
		InFlight: c.inFlight,
	}
	if c.intentID == "" {
		return snap
	}
	in, err := c.store.Get(c.intentID)
	if err != nil {
		return snap
	}
	snap.Intent = in
	if c.phase == models.PhaseCommit || c.phase == models.PhaseReveal {
		snap.TimeRemaining = c.remaining(in)
		snap.Progress = c.progress(in)
	} else if c.phase == models.PhaseExpired {
		snap.Progress = 100
	}
	return snap
}

// Commit starts a session: it freezes the swap terms, computes the commitment
// and submits it. On failure the session is back to idle.
func (c *Controller) Commit(ctx context.Context, req CommitRequest) (*models.SwapIntent, error) {
	c.mu.Lock()
	if c.phase != models.PhaseIdle || c.inFlight {
		phase := c.phase
		c.mu.Unlock()
		return nil, fmt.Errorf("cannot commit in phase %s: %w", phase, errs.ErrSessionActive)
	}

	created, digest, err := c.prepareCommit(req)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}

	if err := c.setPhaseLocked(EventCommit); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.intentID = created.IntentID
	c.inFlight = true
	if err := c.persistLocked(); err != nil {
		c.abortCommitLocked()
		c.mu.Unlock()
		return nil, err
	}
	c.logger.InfoWithPhase(string(models.PhaseCommit), "Committing intent %s (%s %s -> %s)",
		created.IntentID, created.InputAmount, created.InputToken.Symbol, created.OutputToken.Symbol)
	c.mu.Unlock()

	var resp *models.TxResponse
	err = c.retrier.do(ctx, gateway.OpCommit, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.gateway.Commit(ctx, digest)
		return callErr
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false

	if err != nil {
		metrics.CommitsSubmitted.WithLabelValues("failed").Inc()
		c.logger.ErrorWithPhase(string(models.PhaseCommit), "Commit of intent %s failed: %v", created.IntentID, err)
		c.abortCommitLocked()
		return nil, err
	}

	updated, err := c.store.SetCommitTxRef(created.IntentID, resp.Ref())
	if err != nil {
		return nil, err
	}
	if err := c.persistLocked(); err != nil {
		c.logger.ErrorWithPhase(string(c.phase), "Failed to persist session: %v", err)
	}
	metrics.CommitsSubmitted.WithLabelValues("submitted").Inc()
	c.logger.InfoWithPhase(string(models.PhaseCommit), "Commitment %s submitted in %s", updated.Commitment, resp.Ref())
	return updated, nil
}

// prepareCommit re-derives the amounts, draws a nonce and records the intent
func (c *Controller) prepareCommit(req CommitRequest) (*models.SwapIntent, string, error) {
	q, err := c.quotes.GetQuote(quote.Request{
		InputToken:  req.InputToken,
		OutputToken: req.OutputToken,
		InputAmount: req.InputAmount,
		Slippage:    req.Config.Slippage,
	})
	if err != nil {
		return nil, "", err
	}

	decimals := req.InputToken.Decimals
	if decimals == 0 {
		decimals = 18
	}
	amountBase, err := quote.ToBaseUnits(q.InputAmount, decimals)
	if err != nil {
		return nil, "", err
	}

	nonce, err := commitment.NewNonce()
	if err != nil {
		return nil, "", err
	}
	digest, err := commitment.ComputeCommitment(req.InputToken.Address, req.OutputToken.Address, amountBase, nonce)
	if err != nil {
		return nil, "", err
	}

	cfg := req.Config
	cfg.Slippage = q.Slippage
	created, err := c.store.Create(intent.CreateParams{
		ChainID:         c.opts.ChainID,
		User:            c.opts.User,
		InputToken:      req.InputToken,
		OutputToken:     req.OutputToken,
		InputAmount:     q.InputAmount,
		OutputAmount:    q.OutputAmount,
		MinOutputAmount: q.MinOutputAmount,
		AmountInBase:    amountBase.String(),
		Nonce:           nonce.String(),
		Commitment:      digest.Hex(),
		Config:          cfg,
	})
	if err != nil {
		return nil, "", err
	}
	return created, digest.Hex(), nil
}

// abortCommitLocked cancels the intent being committed and returns to idle
func (c *Controller) abortCommitLocked() {
	if _, err := c.store.MarkCancelled(c.intentID); err != nil {
		c.logger.Error("Failed to cancel intent %s: %v", c.intentID, err)
	}
	c.clearLocked(EventCancel)
}

// ConfirmCommit waits until the commit transaction is mined. It returns
// ErrPending when the status timeout elapses first.
func (c *Controller) ConfirmCommit(ctx context.Context) error {
	c.mu.Lock()
	in, err := c.liveIntentLocked(models.PhaseCommit)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	if in.Status == models.IntentCommitted {
		c.mu.Unlock()
		return nil
	}
	if in.CommitTxRef == "" {
		c.mu.Unlock()
		return fmt.Errorf("intent %s has no commit transaction", in.IntentID)
	}
	c.mu.Unlock()

	status, err := c.pollStatus(ctx, in.CommitTxRef)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intentID != in.IntentID || c.phase != models.PhaseCommit {
		return fmt.Errorf("session changed while confirming intent %s", in.IntentID)
	}

	switch status {
	case models.TxSuccess:
		if _, err := c.store.MarkCommitted(in.IntentID); err != nil {
			return err
		}
		if err := c.setPhaseLocked(EventCommitConfirmed); err != nil {
			return err
		}
		if err := c.persistLocked(); err != nil {
			c.logger.ErrorWithPhase(string(c.phase), "Failed to persist session: %v", err)
		}
		metrics.CommitsSubmitted.WithLabelValues("confirmed").Inc()
		c.logger.InfoWithPhase(string(models.PhaseCommit), "Commitment of intent %s confirmed in %s", in.IntentID, in.CommitTxRef)
		return nil
	case models.TxFailed:
		metrics.CommitsSubmitted.WithLabelValues("failed").Inc()
		c.abortCommitLocked()
		return &errs.GatewayError{
			Op:    gateway.OpCommit,
			Class: gateway.ClassContract,
			Err:   fmt.Errorf("commit transaction %s failed on chain", in.CommitTxRef),
		}
	default:
		return ErrPending
	}
}

// Reveal sends the swap parameters behind the commitment and waits for settlement.
// A failed reveal returns the session to commit so it can be retried while the
// window is open.
func (c *Controller) Reveal(ctx context.Context, permit *models.Permit) (*models.SwapIntent, error) {
	c.mu.Lock()
	in, err := c.revealableLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.mu.Unlock()

	if in.Status == models.IntentPending {
		if err := c.ConfirmCommit(ctx); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	// authoritative window check right before sending
	in, err = c.revealableLocked()
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	req, err := revealRequest(in, permit)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.setPhaseLocked(EventReveal); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.inFlight = true
	if err := c.persistLocked(); err != nil {
		c.logger.ErrorWithPhase(string(c.phase), "Failed to persist session: %v", err)
	}
	c.logger.InfoWithPhase(string(models.PhaseReveal), "Revealing intent %s with %s left", in.IntentID, c.remaining(in))
	c.mu.Unlock()

	var resp *models.TxResponse
	err = c.retrier.do(ctx, gateway.OpReveal, func(ctx context.Context) error {
		var callErr error
		resp, callErr = c.gateway.Reveal(ctx, req)
		return callErr
	})

	c.mu.Lock()
	c.inFlight = false
	if err != nil {
		metrics.RevealsSubmitted.WithLabelValues("failed").Inc()
		c.logger.ErrorWithPhase(string(models.PhaseReveal), "Reveal of intent %s failed: %v", in.IntentID, err)
		c.rollbackRevealLocked()
		c.mu.Unlock()
		return nil, err
	}
	if _, err := c.store.SetRevealTxRef(in.IntentID, resp.Ref()); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if err := c.persistLocked(); err != nil {
		c.logger.ErrorWithPhase(string(c.phase), "Failed to persist session: %v", err)
	}
	metrics.RevealsSubmitted.WithLabelValues("submitted").Inc()
	c.mu.Unlock()

	return c.ConfirmReveal(ctx)
}

// revealableLocked checks that a reveal may be sent now, expiring the session
// when the window has elapsed.
func (c *Controller) revealableLocked() (*models.SwapIntent, error) {
	if c.inFlight {
		return nil, fmt.Errorf("a gateway call is in flight: %w", errs.ErrSessionActive)
	}
	if c.phase == models.PhaseExpired {
		if in, err := c.store.Get(c.intentID); err == nil {
			return nil, &errs.ExpiredError{IntentID: in.IntentID, ExpiredAt: c.deadline(in)}
		}
	}
	if c.phase != models.PhaseCommit {
		_, err := Transition(c.phase, EventReveal)
		return nil, err
	}
	in, err := c.store.Get(c.intentID)
	if err != nil {
		return nil, err
	}
	if c.elapsed(in) {
		c.expireLocked(in)
		return nil, &errs.ExpiredError{IntentID: in.IntentID, ExpiredAt: c.deadline(in)}
	}
	return in, nil
}

// rollbackRevealLocked returns a failed reveal to the commit phase
func (c *Controller) rollbackRevealLocked() {
	if _, err := c.store.SetRevealTxRef(c.intentID, ""); err != nil {
		c.logger.Error("Failed to clear reveal reference of %s: %v", c.intentID, err)
	}
	if err := c.setPhaseLocked(EventRevealFailed); err != nil {
		c.logger.Error("Failed to roll back reveal: %v", err)
		return
	}
	if err := c.persistLocked(); err != nil {
		c.logger.ErrorWithPhase(string(c.phase), "Failed to persist session: %v", err)
	}
}

// ConfirmReveal waits for the submitted reveal to settle
func (c *Controller) ConfirmReveal(ctx context.Context) (*models.SwapIntent, error) {
	c.mu.Lock()
	in, err := c.liveIntentLocked(models.PhaseReveal)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if in.RevealTxRef == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("intent %s has no reveal transaction", in.IntentID)
	}
	c.mu.Unlock()

	status, err := c.pollStatus(ctx, in.RevealTxRef)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.intentID != in.IntentID || c.phase != models.PhaseReveal {
		return nil, fmt.Errorf("session changed while confirming intent %s", in.IntentID)
	}

	switch status {
	case models.TxSuccess:
		executed, err := c.store.MarkExecuted(in.IntentID, in.RevealTxRef)
		if err != nil {
			return nil, err
		}
		if err := c.setPhaseLocked(EventRevealConfirmed); err != nil {
			return nil, err
		}
		if err := c.storage.Delete(c.key); err != nil {
			c.logger.Error("Failed to clear session storage: %v", err)
		}
		metrics.RevealsSubmitted.WithLabelValues("executed").Inc()
		metrics.SwapDuration.Observe(float64(executed.ExecutedAt-executed.CreatedAt) / 1000)
		metrics.CommitWindowRemaining.Set(0)
		c.logger.InfoWithPhase(string(models.PhaseExecuted), "Intent %s executed in %s", in.IntentID, in.RevealTxRef)
		return executed, nil
	case models.TxFailed:
		metrics.RevealsSubmitted.WithLabelValues("failed").Inc()
		c.rollbackRevealLocked()
		return nil, &errs.GatewayError{
			Op:    gateway.OpReveal,
			Class: gateway.ClassContract,
			Err:   fmt.Errorf("reveal transaction %s failed on chain", in.RevealTxRef),
		}
	default:
		return in, ErrPending
	}
}

// AutoReveal waits `after`, bounded by the commit window, then reveals
func (c *Controller) AutoReveal(ctx context.Context, after time.Duration, permit *models.Permit) (*models.SwapIntent, error) {
	c.mu.Lock()
	in, err := c.liveIntentLocked(models.PhaseCommit)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	remaining := c.remaining(in)
	c.mu.Unlock()

	wait := after
	if limit := remaining - autoRevealMargin; wait > limit {
		wait = limit
	}
	if wait > 0 {
		c.logger.InfoWithPhase(string(models.PhaseCommit), "Auto reveal of intent %s in %v", in.IntentID, wait)
		if err := c.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return c.Reveal(ctx, permit)
}

// Cancel abandons a session that has not revealed yet
func (c *Controller) Cancel() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.phase {
	case models.PhaseIdle:
		return nil
	case models.PhaseCommit:
		if c.inFlight {
			return &errs.CannotCancelError{IntentID: c.intentID, Reason: "a gateway call is in flight"}
		}
		if _, err := c.store.MarkCancelled(c.intentID); err != nil {
			return err
		}
		metrics.SessionsCancelled.Inc()
		c.logger.InfoWithPhase(string(models.PhaseCommit), "Intent %s cancelled", c.intentID)
		c.clearLocked(EventCancel)
		return nil
	case models.PhaseReveal:
		return &errs.CannotCancelError{IntentID: c.intentID, Reason: "the reveal has been submitted"}
	default:
		_, err := Transition(c.phase, EventCancel)
		return err
	}
}

// Reset acknowledges an executed or expired session and returns to idle
func (c *Controller) Reset() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == models.PhaseIdle {
		return nil
	}
	if !c.phase.Terminal() {
		_, err := Transition(c.phase, EventReset)
		return err
	}
	c.clearLocked(EventReset)
	return nil
}

// Tick recomputes the time remaining and expires an elapsed commit. It does no I/O.
func (c *Controller) Tick() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.intentID == "" || (c.phase != models.PhaseCommit && c.phase != models.PhaseReveal) {
		return
	}
	in, err := c.store.Get(c.intentID)
	if err != nil {
		return
	}
	metrics.CommitWindowRemaining.Set(c.remaining(in).Seconds())

	// a submitted reveal is settled by its status, never by the timer
	if c.phase == models.PhaseCommit && !c.inFlight && c.elapsed(in) {
		c.expireLocked(in)
	}
}

// Run ticks until ctx is done
func (c *Controller) Run(ctx context.Context) {
	ticker := time.NewTicker(c.opts.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Tick()
		}
	}
}

// Recover restores the persisted session of this (chain, user), if any
func (c *Controller) Recover(ctx context.Context) (*models.SwapIntent, error) {
	c.mu.Lock()
	if c.phase != models.PhaseIdle {
		c.mu.Unlock()
		return nil, fmt.Errorf("cannot recover in phase %s: %w", c.phase, errs.ErrSessionActive)
	}

	persisted, err := c.storage.Load(c.key)
	if err != nil {
		c.mu.Unlock()
		return nil, err
	}
	if persisted == nil {
		c.mu.Unlock()
		return nil, nil
	}

	in := persisted.Intent
	if persisted.Phase.Terminal() || persisted.Phase == models.PhaseIdle || in.Status.Terminal() {
		if err := c.storage.Delete(c.key); err != nil {
			c.logger.Error("Failed to clear session storage: %v", err)
		}
		c.mu.Unlock()
		metrics.SessionsRecovered.WithLabelValues("discarded").Inc()
		return nil, nil
	}

	if err := c.store.Restore(&in); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	c.intentID = in.IntentID
	c.phase = persisted.Phase

	if c.phase == models.PhaseReveal && in.RevealTxRef != "" {
		c.mu.Unlock()
		metrics.SessionsRecovered.WithLabelValues("reconfirm").Inc()
		c.logger.InfoWithPhase(string(models.PhaseReveal), "Recovered intent %s with a submitted reveal, confirming", in.IntentID)
		return c.ConfirmReveal(ctx)
	}
	defer c.mu.Unlock()

	if c.phase == models.PhaseCommit && in.CommitTxRef == "" {
		// interrupted before the commit reference was stored; it cannot be
		// confirmed, and an unrevealed commitment binds nothing
		metrics.SessionsRecovered.WithLabelValues("aborted").Inc()
		c.logger.NoticeWithPhase(string(models.PhaseCommit), "Intent %s was interrupted while committing, cancelled", in.IntentID)
		c.abortCommitLocked()
		return nil, nil
	}

	if c.phase == models.PhaseReveal {
		// interrupted before the reveal reference was stored
		if err := c.setPhaseLocked(EventRevealFailed); err != nil {
			return nil, err
		}
	}

	if c.elapsed(&in) {
		c.expireLocked(&in)
		metrics.SessionsRecovered.WithLabelValues("expired").Inc()
		return c.store.Get(in.IntentID)
	}

	if err := c.persistLocked(); err != nil {
		c.logger.ErrorWithPhase(string(c.phase), "Failed to persist session: %v", err)
	}
	metrics.SessionsRecovered.WithLabelValues("resumed").Inc()
	c.logger.InfoWithPhase(string(c.phase), "Recovered intent %s with %s left", in.IntentID, c.remaining(&in))
	return c.store.Get(in.IntentID)
}

// expireLocked marks the live intent expired and drops its persisted state
func (c *Controller) expireLocked(in *models.SwapIntent) {
	if _, err := c.store.MarkExpired(in.IntentID); err != nil {
		c.logger.Error("Failed to expire intent %s: %v", in.IntentID, err)
	}
	if err := c.setPhaseLocked(EventExpire); err != nil {
		c.logger.Error("Failed to expire session: %v", err)
		return
	}
	if err := c.storage.Delete(c.key); err != nil {
		c.logger.Error("Failed to clear session storage: %v", err)
	}
	metrics.SessionsExpired.Inc()
	metrics.CommitWindowRemaining.Set(0)
	c.logger.NoticeWithPhase(string(models.PhaseExpired), "Commit window of intent %s elapsed", in.IntentID)
}

// clearLocked applies ev (cancel or reset) and forgets the session and its intent
func (c *Controller) clearLocked(ev Event) {
	if err := c.setPhaseLocked(ev); err != nil {
		c.logger.Error("Failed to clear session: %v", err)
	}
	c.phase = models.PhaseIdle
	if c.intentID != "" {
		c.store.Delete(c.intentID)
	}
	c.intentID = ""
	c.inFlight = false
	if err := c.storage.Delete(c.key); err != nil {
		c.logger.Error("Failed to clear session storage: %v", err)
	}
	metrics.CommitWindowRemaining.Set(0)
}

func (c *Controller) setPhaseLocked(ev Event) error {
	next, err := Transition(c.phase, ev)
	if err != nil {
		return err
	}
	if next != c.phase {
		metrics.SessionTransitions.WithLabelValues(string(c.phase), string(next)).Inc()
		c.logger.DebugWithPhase(string(next), "Session %s -> %s on %s", c.phase, next, ev)
	}
	c.phase = next
	return nil
}

func (c *Controller) persistLocked() error {
	in, err := c.store.Get(c.intentID)
	if err != nil {
		return err
	}
	return c.storage.Save(c.key, &models.PersistedSession{
		IntentID:  in.IntentID,
		Phase:     c.phase,
		CreatedAt: in.CreatedAt,
		Intent:    *in,
		UpdatedAt: c.now(),
	})
}

func (c *Controller) liveIntentLocked(phase models.Phase) (*models.SwapIntent, error) {
	if c.phase != phase || c.intentID == "" {
		return nil, fmt.Errorf("no session in phase %s (current phase %s)", phase, c.phase)
	}
	return c.store.Get(c.intentID)
}

// pollStatus polls txRef until it leaves pending or the status timeout elapses
func (c *Controller) pollStatus(ctx context.Context, txRef string) (models.TxStatus, error) {
	deadline := c.now().Add(c.opts.StatusTimeout)
	for {
		var resp *models.StatusResponse
		err := c.retrier.do(ctx, gateway.OpStatus, func(ctx context.Context) error {
			var callErr error
			resp, callErr = c.gateway.Status(ctx, txRef)
			return callErr
		})
		if err != nil {
			return "", err
		}
		if resp.Status != models.TxPending {
			return resp.Status, nil
		}
		if !c.now().Before(deadline) {
			return models.TxPending, nil
		}
		if err := c.sleep(ctx, c.opts.PollInterval); err != nil {
			return "", err
		}
	}
}

func (c *Controller) deadline(in *models.SwapIntent) time.Time {
	return in.CreatedTime().Add(c.opts.CommitWindow)
}

// elapsed is true once now >= createdAt + window
func (c *Controller) elapsed(in *models.SwapIntent) bool {
	return !c.now().Before(c.deadline(in))
}

func (c *Controller) remaining(in *models.SwapIntent) time.Duration {
	left := c.deadline(in).Sub(c.now())
	if left < 0 {
		return 0
	}
	return left
}

func (c *Controller) progress(in *models.SwapIntent) float64 {
	elapsed := c.now().Sub(in.CreatedTime())
	if elapsed <= 0 {
		return 0
	}
	p := float64(elapsed) / float64(c.opts.CommitWindow) * 100
	if p > 100 {
		return 100
	}
	return p
}

func revealRequest(in *models.SwapIntent, permit *models.Permit) (models.RevealRequest, error) {
	amount, ok := new(big.Int).SetString(in.AmountInBase, 10)
	if !ok {
		return models.RevealRequest{}, &errs.EncodingError{Field: "amountIn", Reason: fmt.Sprintf("%q is not an integer", in.AmountInBase)}
	}
	nonce, ok := new(big.Int).SetString(in.Nonce, 10)
	if !ok {
		return models.RevealRequest{}, &errs.EncodingError{Field: "nonce", Reason: fmt.Sprintf("%q is not an integer", in.Nonce)}
	}
	digest, err := commitment.ParseHash(in.Commitment)
	if err != nil {
		return models.RevealRequest{}, err
	}
	ok, err = commitment.Verify(digest, in.InputToken.Address, in.OutputToken.Address, amount, nonce)
	if err != nil {
		return models.RevealRequest{}, err
	}
	if !ok {
		return models.RevealRequest{}, &errs.EncodingError{Field: "commitment", Reason: "reveal parameters do not match the committed digest"}
	}

	req := models.RevealRequest{
		TokenIn:  in.InputToken.Address,
		TokenOut: in.OutputToken.Address,
		AmountIn: in.AmountInBase,
		Nonce:    in.Nonce,
	}
	if permit != nil {
		v := permit.V
		req.PermitV = &v
		req.PermitR = permit.R
		req.PermitS = permit.S
	}
	return req, nil
}
