package server

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unikron/shieldswap/pkg/chainclient"
	"github.com/unikron/shieldswap/pkg/circuitbreaker"
	"github.com/unikron/shieldswap/pkg/commitment"
	"github.com/unikron/shieldswap/pkg/config"
	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/gateway"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/models"
	"github.com/unikron/shieldswap/pkg/quote"
)

const testChainID = 11155111

type fakeSettlement struct {
	mu        sync.Mutex
	commits   []common.Hash
	reveals   []chainclient.RevealParams
	receipts  map[common.Hash]*types.Receipt
	deployed  []common.Address
	metadata  map[common.Address]chainclient.TokenMetadata
	commitErr error
}

func newFakeSettlement() *fakeSettlement {
	return &fakeSettlement{
		receipts: make(map[common.Hash]*types.Receipt),
		metadata: make(map[common.Address]chainclient.TokenMetadata),
	}
}

func (f *fakeSettlement) CommitSwap(_ context.Context, digest common.Hash) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commitErr != nil {
		return common.Hash{}, f.commitErr
	}
	f.commits = append(f.commits, digest)
	return common.HexToHash("0xc0"), nil
}

func (f *fakeSettlement) failCommits(err error) {
	f.mu.Lock()
	f.commitErr = err
	f.mu.Unlock()
}

func (f *fakeSettlement) RevealSwap(_ context.Context, p chainclient.RevealParams) (common.Hash, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reveals = append(f.reveals, p)
	return common.HexToHash("0xe0"), nil
}

func (f *fakeSettlement) Receipt(_ context.Context, txHash common.Hash) (*types.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.receipts[txHash], nil
}

func (f *fakeSettlement) DeployedTokens(context.Context) ([]common.Address, error) {
	return f.deployed, nil
}

func (f *fakeSettlement) TokenMetadata(_ context.Context, token common.Address) (chainclient.TokenMetadata, error) {
	md, ok := f.metadata[token]
	if !ok {
		return chainclient.TokenMetadata{}, errors.New("execution reverted")
	}
	return md, nil
}

func newTestServer(t *testing.T, settlement Settlement, opts Options) (*httptest.Server, *gateway.Client) {
	t.Helper()
	prices, err := quote.NewPriceTable(config.DefaultPrices())
	require.NoError(t, err)

	if opts.Tokens == nil {
		opts.Tokens = config.DefaultTokens(testChainID)
	}
	if opts.RateLimit.Requests == 0 {
		opts.RateLimit = config.RateLimitConfig{Requests: 1000, Window: time.Minute}
	}
	opts.ChainID = testChainID
	s := New(settlement, quote.NewEngine(prices, quote.DefaultFeeBps, quote.DefaultTTL), opts)

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv, gateway.New(srv.URL, &logger.EmptyLogger{})
}

func gatewayErr(t *testing.T, err error) *errs.GatewayError {
	t.Helper()
	var gwErr *errs.GatewayError
	require.ErrorAs(t, err, &gwErr)
	return gwErr
}

func TestTokens(t *testing.T) {
	settlement := newFakeSettlement()
	bare := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	settlement.metadata[bare] = chainclient.TokenMetadata{Name: "Wrapped Thing", Symbol: "WTH", Decimals: 6}

	tokens := []models.Token{
		{Address: "0x014c66bFe06949F45304B23bD7CbFFCFD845bC42", Symbol: "ETH-D", Name: "Dummy Ethereum", Decimals: 18},
		{Address: bare.Hex()},
		{Address: "0x00000000000000000000000000000000000000bb", Symbol: "UNK"},
	}
	_, client := newTestServer(t, settlement, Options{Tokens: tokens})

	got, err := client.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "ETH-D", got[0].Symbol)
	assert.Equal(t, "WTH", got[1].Symbol)
	assert.Equal(t, "Wrapped Thing", got[1].Name)
	assert.Equal(t, uint8(6), got[1].Decimals)
	// metadata lookup failures keep the configured values
	assert.Equal(t, "UNK", got[2].Symbol)
	assert.Equal(t, uint8(0), got[2].Decimals)

	// the configured list is not modified
	assert.Empty(t, tokens[1].Symbol)
}

func TestQuote(t *testing.T) {
	_, client := newTestServer(t, newFakeSettlement(), Options{})
	ctx := context.Background()

	t.Run("by symbol", func(t *testing.T) {
		q, err := client.Quote(ctx, "ETH-D", "USDT-D", "1", 1)
		require.NoError(t, err)
		assert.Equal(t, "2000", q.OutputAmount)
		assert.Equal(t, "1980", q.MinOutputAmount)
		assert.Equal(t, "400000", q.EstimatedGas)
		assert.Equal(t, []string{"ETH-D", "USDT-D"}, q.Route)
		assert.False(t, q.ValidUntil.IsZero())
	})

	t.Run("by address with default slippage", func(t *testing.T) {
		q, err := client.Quote(ctx, "0x014c66bfe06949f45304b23bd7cbffcfd845bc42", "0x947092F0eEF063FF8db69D3eDe4994927772DfA8", "2", 0)
		require.NoError(t, err)
		assert.Equal(t, "4000", q.OutputAmount)
		assert.Equal(t, quote.DefaultSlippage, q.Slippage)
	})

	tests := []struct {
		name             string
		from, to, amount string
		slippage         float64
	}{
		{"unknown token", "ETH-D", "NOPE", "1", 0},
		{"same token", "ETH-D", "ETH-D", "1", 0},
		{"zero amount", "ETH-D", "USDT-D", "0", 0},
		{"not a number", "ETH-D", "USDT-D", "abc", 0},
		{"slippage too high", "ETH-D", "USDT-D", "1", 51},
		{"amount beyond uint256", "ETH-D", "USDT-D", "1e3000000", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := client.Quote(ctx, tt.from, tt.to, tt.amount, tt.slippage)
			gwErr := gatewayErr(t, err)
			assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
			assert.False(t, gwErr.Transient)
		})
	}
}

func TestQuoteMissingParams(t *testing.T) {
	srv, _ := newTestServer(t, newFakeSettlement(), Options{})

	resp, err := http.Get(srv.URL + "/quote?fromToken=ETH-D")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	var body models.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, string(errs.KindInvalidAmount), body.Kind)
}

func TestCommitEndpoint(t *testing.T) {
	settlement := newFakeSettlement()
	_, client := newTestServer(t, settlement, Options{})
	ctx := context.Background()

	digest, err := commitment.ComputeCommitment(
		"0x014c66bFe06949F45304B23bD7CbFFCFD845bC42",
		"0x947092F0eEF063FF8db69D3eDe4994927772DfA8",
		big.NewInt(1e18), big.NewInt(42))
	require.NoError(t, err)

	resp, err := client.Commit(ctx, digest.Hex())
	require.NoError(t, err)
	assert.Equal(t, "submitted", resp.Status)
	assert.Equal(t, common.HexToHash("0xc0").Hex(), resp.Ref())
	require.Len(t, settlement.commits, 1)
	assert.Equal(t, digest, settlement.commits[0])

	t.Run("malformed digest", func(t *testing.T) {
		_, err := client.Commit(ctx, "0x1234")
		gwErr := gatewayErr(t, err)
		assert.Equal(t, http.StatusBadRequest, gwErr.StatusCode)
		assert.False(t, gwErr.Transient)
	})

	t.Run("reverted", func(t *testing.T) {
		settlement.failCommits(errors.New("execution reverted: already committed"))
		defer settlement.failCommits(nil)

		_, err := client.Commit(ctx, digest.Hex())
		gwErr := gatewayErr(t, err)
		assert.Equal(t, http.StatusBadGateway, gwErr.StatusCode)
		assert.Equal(t, gateway.ClassContract, gwErr.Class)
		assert.False(t, gwErr.Transient)
	})

	t.Run("node unreachable", func(t *testing.T) {
		settlement.failCommits(errors.New("dial tcp: connection refused"))
		defer settlement.failCommits(nil)

		_, err := client.Commit(ctx, digest.Hex())
		assert.True(t, gatewayErr(t, err).Transient)
	})
}

func TestChainBreakerPausesSubmissions(t *testing.T) {
	settlement := newFakeSettlement()
	breaker := circuitbreaker.NewCircuitBreaker("chain", true, 2, time.Minute, time.Hour, nil)
	_, client := newTestServer(t, settlement, Options{Breaker: breaker})
	ctx := context.Background()
	digest := "0x" + strings.Repeat("ab", 32)

	// reverts are not transient and leave the breaker closed
	settlement.failCommits(errors.New("execution reverted"))
	for i := 0; i < 3; i++ {
		_, err := client.Commit(ctx, digest)
		require.Error(t, err)
	}
	assert.False(t, breaker.IsOpen())

	settlement.failCommits(errors.New("dial tcp: connection refused"))
	for i := 0; i < 2; i++ {
		_, err := client.Commit(ctx, digest)
		require.Error(t, err)
	}
	require.True(t, breaker.IsOpen())

	settlement.failCommits(nil)
	_, err := client.Commit(ctx, digest)
	gwErr := gatewayErr(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, gwErr.StatusCode)
	assert.True(t, gwErr.Transient)
	assert.Empty(t, settlement.commits)

	breaker.Reset()
	_, err = client.Commit(ctx, digest)
	require.NoError(t, err)
	assert.Len(t, settlement.commits, 1)
}

func TestRevealEndpoint(t *testing.T) {
	settlement := newFakeSettlement()
	_, client := newTestServer(t, settlement, Options{})
	ctx := context.Background()

	req := models.RevealRequest{
		TokenIn:  "0x014c66bFe06949F45304B23bD7CbFFCFD845bC42",
		TokenOut: "0x947092F0eEF063FF8db69D3eDe4994927772DfA8",
		AmountIn: "1000000000000000000",
		Nonce:    "42",
	}

	resp, err := client.Reveal(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, common.HexToHash("0xe0").Hex(), resp.Ref())

	require.Len(t, settlement.reveals, 1)
	got := settlement.reveals[0]
	assert.Equal(t, common.HexToAddress(req.TokenIn), got.TokenIn)
	assert.Equal(t, common.HexToAddress(req.TokenOut), got.TokenOut)
	assert.Equal(t, "1000000000000000000", got.AmountIn.String())
	assert.Equal(t, int64(42), got.Nonce.Int64())
	assert.Equal(t, uint8(0), got.PermitV)
	assert.Equal(t, [32]byte{}, got.PermitR)
	assert.Equal(t, [32]byte{}, got.PermitS)

	t.Run("with permit", func(t *testing.T) {
		v := uint8(27)
		withPermit := req
		withPermit.PermitV = &v
		withPermit.PermitR = "0x" + strings.Repeat("11", 32)
		withPermit.PermitS = "0x" + strings.Repeat("22", 32)

		_, err := client.Reveal(ctx, withPermit)
		require.NoError(t, err)
		last := settlement.reveals[len(settlement.reveals)-1]
		assert.Equal(t, uint8(27), last.PermitV)
		assert.Equal(t, byte(0x11), last.PermitR[0])
		assert.Equal(t, byte(0x22), last.PermitS[31])
	})

	invalid := []struct {
		name   string
		mutate func(r *models.RevealRequest)
	}{
		{"missing nonce", func(r *models.RevealRequest) { r.Nonce = "" }},
		{"bad token", func(r *models.RevealRequest) { r.TokenIn = "0x1234" }},
		{"negative amount", func(r *models.RevealRequest) { r.AmountIn = "-1" }},
		{"decimal amount", func(r *models.RevealRequest) { r.AmountIn = "1.5" }},
		{"nonce overflow", func(r *models.RevealRequest) { r.Nonce = "1" + strings.Repeat("0", 78) }},
		{"short permit", func(r *models.RevealRequest) { r.PermitR = "0xabcd" }},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			bad := req
			tt.mutate(&bad)
			_, err := client.Reveal(ctx, bad)
			assert.Equal(t, http.StatusBadRequest, gatewayErr(t, err).StatusCode)
		})
	}
}

func TestStatusEndpoint(t *testing.T) {
	settlement := newFakeSettlement()
	srv, client := newTestServer(t, settlement, Options{})
	ctx := context.Background()

	mined := common.HexToHash("0x01")
	reverted := common.HexToHash("0x02")
	settlement.receipts[mined] = &types.Receipt{Status: types.ReceiptStatusSuccessful, TxHash: mined, Logs: []*types.Log{}}
	settlement.receipts[reverted] = &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: reverted, Logs: []*types.Log{}}

	pending, err := client.Status(ctx, common.HexToHash("0x03").Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TxPending, pending.Status)
	assert.Empty(t, pending.Receipt)

	ok, err := client.Status(ctx, mined.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TxSuccess, ok.Status)
	assert.Contains(t, string(ok.Receipt), mined.Hex())

	failed, err := client.Status(ctx, reverted.Hex())
	require.NoError(t, err)
	assert.Equal(t, models.TxFailed, failed.Status)

	t.Run("legacy txHash parameter", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/swap/status?txHash=" + mined.Hex())
		require.NoError(t, err)
		defer resp.Body.Close()

		var body models.StatusResponse
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, models.TxSuccess, body.Status)
	})

	t.Run("malformed reference", func(t *testing.T) {
		_, err := client.Status(ctx, "nope")
		assert.Equal(t, http.StatusBadRequest, gatewayErr(t, err).StatusCode)
	})
}

func TestDeployedTokensEndpoint(t *testing.T) {
	settlement := newFakeSettlement()
	settlement.deployed = []common.Address{
		common.HexToAddress("0x014c66bFe06949F45304B23bD7CbFFCFD845bC42"),
		common.HexToAddress("0x947092F0eEF063FF8db69D3eDe4994927772DfA8"),
	}
	_, client := newTestServer(t, settlement, Options{})

	tokens, err := client.DeployedTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0x014c66bFe06949F45304B23bD7CbFFCFD845bC42",
		"0x947092F0eEF063FF8db69D3eDe4994927772DfA8",
	}, tokens)
}

func TestRateLimit(t *testing.T) {
	_, client := newTestServer(t, newFakeSettlement(), Options{
		RateLimit: config.RateLimitConfig{Requests: 2, Window: time.Hour},
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := client.DeployedTokens(ctx)
		require.NoError(t, err)
	}

	_, err := client.DeployedTokens(ctx)
	gwErr := gatewayErr(t, err)
	assert.Equal(t, http.StatusTooManyRequests, gwErr.StatusCode)
	assert.Equal(t, gateway.ClassRateLimited, gwErr.Class)
	assert.True(t, gwErr.Transient)
}

func TestRateLimitPerClient(t *testing.T) {
	srv, _ := newTestServer(t, newFakeSettlement(), Options{
		RateLimit: config.RateLimitConfig{Requests: 1, Window: time.Hour, TrustProxy: true},
	})

	get := func(forwardedFor string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/deployed-tokens", nil)
		require.NoError(t, err)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.1, 172.16.0.1"))
	assert.Equal(t, http.StatusOK, get("10.0.0.2"))
}

func TestRateLimitIgnoresForwardedForWithoutProxy(t *testing.T) {
	srv, _ := newTestServer(t, newFakeSettlement(), Options{
		RateLimit: config.RateLimitConfig{Requests: 1, Window: time.Hour},
	})

	get := func(forwardedFor string) int {
		req, err := http.NewRequest(http.MethodGet, srv.URL+"/deployed-tokens", nil)
		require.NoError(t, err)
		req.Header.Set("X-Forwarded-For", forwardedFor)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		return resp.StatusCode
	}

	assert.Equal(t, http.StatusOK, get("10.0.0.1"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.2"))
	assert.Equal(t, http.StatusTooManyRequests, get("10.0.0.3"))
}

func TestRateLimiterCleanupStale(t *testing.T) {
	now := time.Unix(0, 0)
	rl := newRateLimiter(2, time.Minute, false)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))

	now = now.Add(30 * time.Second)
	assert.True(t, rl.allow("b"))
	assert.Equal(t, 2, rl.cleanupStale())

	now = now.Add(40 * time.Second)
	assert.Equal(t, 1, rl.cleanupStale(), "idle client is dropped")

	// the bucket of a dropped client has refilled anyway
	assert.True(t, rl.allow("a"))
	assert.True(t, rl.allow("a"))
	assert.False(t, rl.allow("a"))
}

func TestCORSPreflight(t *testing.T) {
	srv, _ := newTestServer(t, newFakeSettlement(), Options{})

	req, err := http.NewRequest(http.MethodOptions, srv.URL+"/swap/commit", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://app.example.org")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.Contains(t, resp.Header.Get("Access-Control-Allow-Methods"), http.MethodPost)
}

func TestClientKey(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/tokens", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	assert.Equal(t, "192.0.2.7", clientKey(req, false))
	assert.Equal(t, "192.0.2.7", clientKey(req, true))

	req.Header.Set("X-Forwarded-For", " 198.51.100.1 , 10.0.0.1")
	assert.Equal(t, "192.0.2.7", clientKey(req, false))
	assert.Equal(t, "198.51.100.1", clientKey(req, true))
}

func TestListenAndServeStopsWithContext(t *testing.T) {
	s := New(newFakeSettlement(), nil, Options{ChainID: testChainID})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.ListenAndServe(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
