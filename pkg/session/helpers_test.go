package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/intent"
	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
)

const (
	testChainID = 11155111
	testUser    = "0xAbCdEf0000000000000000000000000000000001"
	testWindow  = 5 * time.Minute
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Sleep advances the clock instead of blocking
func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

type fakeGateway struct {
	mu          sync.Mutex
	commitErrs  []error
	revealErrs  []error
	status      map[string]models.TxStatus
	commits     int
	reveals     int
	statusCalls int
	lastDigest  string
	lastReveal  models.RevealRequest
	onCommit    func()
	onReveal    func()
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{status: make(map[string]models.TxStatus)}
}

func (g *fakeGateway) Commit(_ context.Context, digest string) (*models.TxResponse, error) {
	g.mu.Lock()
	g.commits++
	n := g.commits
	g.lastDigest = digest
	hook := g.onCommit
	var err error
	if len(g.commitErrs) > 0 {
		err, g.commitErrs = g.commitErrs[0], g.commitErrs[1:]
	}
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &models.TxResponse{Status: "submitted", TxRef: fmt.Sprintf("0xcommit%d", n)}, nil
}

func (g *fakeGateway) Reveal(_ context.Context, req models.RevealRequest) (*models.TxResponse, error) {
	g.mu.Lock()
	g.reveals++
	n := g.reveals
	g.lastReveal = req
	hook := g.onReveal
	var err error
	if len(g.revealErrs) > 0 {
		err, g.revealErrs = g.revealErrs[0], g.revealErrs[1:]
	}
	g.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return &models.TxResponse{Status: "submitted", TxRef: fmt.Sprintf("0xreveal%d", n)}, nil
}

// Status reports success unless a status was set for ref
func (g *fakeGateway) Status(_ context.Context, ref string) (*models.StatusResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.statusCalls++
	if s, ok := g.status[ref]; ok {
		return &models.StatusResponse{Status: s}, nil
	}
	return &models.StatusResponse{Status: models.TxSuccess}, nil
}

func (g *fakeGateway) setStatus(ref string, s models.TxStatus) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status[ref] = s
}

func (g *fakeGateway) counts() (commits, reveals int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commits, g.reveals
}

type harness struct {
	ctrl    *Controller
	gw      *fakeGateway
	clock   *fakeClock
	storage *MemoryStorage
	store   *intent.Store
	opts    Options
	engine  *quote.Engine
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := newFakeClock()
	prices, err := quote.NewPriceTable(config.DefaultPrices())
	require.NoError(t, err)
	engine := quote.NewEngine(prices, quote.DefaultFeeBps, quote.DefaultTTL)
	engine.SetClock(clock.Now)

	h := &harness{
		gw:      newFakeGateway(),
		clock:   clock,
		storage: NewMemoryStorage(),
		store:   intent.NewStoreWithClock(clock.Now),
		engine:  engine,
		opts: Options{
			ChainID:       testChainID,
			User:          testUser,
			CommitWindow:  testWindow,
			PollInterval:  time.Second,
			StatusTimeout: 10 * time.Second,
			Retry:         DefaultRetryPolicy(),
			Now:           clock.Now,
			Sleep:         clock.Sleep,
		},
	}
	h.ctrl = NewController(h.gw, engine, h.store, h.storage, h.opts)
	return h
}

// restart builds a fresh controller over the same storage and clock
func (h *harness) restart() *Controller {
	h.store = intent.NewStoreWithClock(h.clock.Now)
	h.ctrl = NewController(h.gw, h.engine, h.store, h.storage, h.opts)
	return h.ctrl
}

func token(t *testing.T, symbol string) models.Token {
	t.Helper()
	tok, ok := config.FindToken(config.DefaultTokens(testChainID), symbol)
	require.True(t, ok)
	return tok
}

func ethToUsdt(t *testing.T) CommitRequest {
	return CommitRequest{
		InputToken:  token(t, "ETH-D"),
		OutputToken: token(t, "USDT-D"),
		InputAmount: "1.0",
		Config:      models.DefaultSwapConfig(),
	}
}

func transientErr(op string) error {
	return &errs.GatewayError{Op: op, StatusCode: 503, Class: "server_error", Transient: true, Err: errors.New("service unavailable")}
}

func permanentErr(op string) error {
	return &errs.GatewayError{Op: op, StatusCode: 502, Class: "contract_error", Err: errors.New("execution reverted")}
}
