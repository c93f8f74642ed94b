package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/models"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", &logger.EmptyLogger{})
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func gatewayErr(t *testing.T, err error) *errs.GatewayError {
	t.Helper()
	var gwErr *errs.GatewayError
	require.ErrorAs(t, err, &gwErr)
	return gwErr
}

func TestCommit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/swap/commit", r.URL.Path)

		var body models.CommitRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "0xabc", body.Hash)

		writeJSON(w, http.StatusOK, map[string]string{"status": "submitted", "txRef": "0xcommit"})
	})

	resp, err := c.Commit(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xcommit", resp.Ref())
}

func TestCommitLegacyTxHash(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "submitted", "txHash": "0xlegacy"})
	})

	resp, err := c.Commit(context.Background(), "0xabc")
	require.NoError(t, err)
	assert.Equal(t, "0xlegacy", resp.Ref())
}

func TestCommitMissingRef(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "submitted"})
	})

	_, err := c.Commit(context.Background(), "0xabc")
	gwErr := gatewayErr(t, err)
	assert.False(t, gwErr.Transient)
	assert.Equal(t, ClassDecode, gwErr.Class)
}

func TestReveal(t *testing.T) {
	v := uint8(27)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/swap/reveal", r.URL.Path)

		var body models.RevealRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "1000000000000000000", body.AmountIn)
		require.NotNil(t, body.PermitV)
		assert.Equal(t, uint8(27), *body.PermitV)

		writeJSON(w, http.StatusOK, map[string]string{"status": "submitted", "txRef": "0xreveal"})
	})

	resp, err := c.Reveal(context.Background(), models.RevealRequest{
		TokenIn:  "0x014c66bFe06949F45304B23bD7CbFFCFD845bC42",
		TokenOut: "0x947092F0eEF063FF8db69D3eDe4994927772DfA8",
		AmountIn: "1000000000000000000",
		Nonce:    "42",
		PermitV:  &v,
	})
	require.NoError(t, err)
	assert.Equal(t, "0xreveal", resp.TxRef)
}

func TestStatus(t *testing.T) {
	statuses := map[string]string{"0x1": "pending", "0x2": "success", "0x3": "failed", "0x4": "weird"}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		ref := r.URL.Query().Get("txRef")
		writeJSON(w, http.StatusOK, map[string]string{"status": statuses[ref]})
	})

	for ref, want := range map[string]models.TxStatus{"0x1": models.TxPending, "0x2": models.TxSuccess, "0x3": models.TxFailed} {
		resp, err := c.Status(context.Background(), ref)
		require.NoError(t, err)
		assert.Equal(t, want, resp.Status)
	}

	_, err := c.Status(context.Background(), "0x4")
	assert.Error(t, err)
}

func TestTokensAndDeployedTokens(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tokens":
			writeJSON(w, http.StatusOK, []models.Token{{Address: "0x01", Symbol: "ETH-D", Decimals: 18}})
		case "/deployed-tokens":
			writeJSON(w, http.StatusOK, models.DeployedTokensResponse{Tokens: []string{"0x01", "0x02"}})
		case "/quote":
			assert.Equal(t, "1", r.URL.Query().Get("amount"))
			writeJSON(w, http.StatusOK, models.SwapQuote{OutputAmount: "2000", MinOutputAmount: "1990"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	tokens, err := c.Tokens(context.Background())
	require.NoError(t, err)
	require.Len(t, tokens, 1)
	assert.Equal(t, "ETH-D", tokens[0].Symbol)

	deployed, err := c.DeployedTokens(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0x01", "0x02"}, deployed)

	q, err := c.Quote(context.Background(), "0x01", "0x02", "1", 0.5)
	require.NoError(t, err)
	assert.Equal(t, "1990", q.MinOutputAmount)
}

func TestErrorClassification(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		body      interface{}
		transient bool
		class     string
	}{
		{"rate limited", http.StatusTooManyRequests, models.ErrorResponse{Error: "Too many requests"}, true, ClassRateLimited},
		{"bad gateway", http.StatusBadGateway, models.ErrorResponse{Error: "upstream unavailable", Kind: "gateway"}, true, ClassServer},
		{"revert behind 502", http.StatusBadGateway, models.ErrorResponse{Error: "execution reverted: commitment not found"}, false, ClassContract},
		{"nonce behind 502", http.StatusBadGateway, models.ErrorResponse{Error: "nonce too low"}, true, ClassNonce},
		{"bad request", http.StatusBadRequest, models.ErrorResponse{Error: "Missing hash"}, false, ClassBadRequest},
		{"insufficient balance", http.StatusBadGateway, models.ErrorResponse{Error: "ERC20InsufficientBalance"}, false, ClassInsufficient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.code, tt.body)
			})

			_, err := c.Commit(context.Background(), "0xabc")
			gwErr := gatewayErr(t, err)
			assert.Equal(t, OpCommit, gwErr.Op)
			assert.Equal(t, tt.code, gwErr.StatusCode)
			assert.Equal(t, tt.transient, gwErr.Transient)
			assert.Equal(t, tt.class, gwErr.Class)
			assert.Equal(t, tt.transient, errs.IsTransient(err))
		})
	}
}

func TestNetworkErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := New(url, &logger.EmptyLogger{})
	_, err := c.Status(context.Background(), "0x1")
	gwErr := gatewayErr(t, err)
	assert.True(t, gwErr.Transient)
	assert.Equal(t, 0, gwErr.StatusCode)
}

func TestCancelledContextIsPermanent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(100 * time.Millisecond)
		writeJSON(w, http.StatusOK, map[string]string{"status": "pending"})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Status(ctx, "0x1")
	gwErr := gatewayErr(t, err)
	assert.False(t, gwErr.Transient)
	assert.Equal(t, ClassCancelled, gwErr.Class)
}

func TestClassify(t *testing.T) {
	transient, class := Classify(nil, http.StatusInternalServerError, "replacement transaction underpriced")
	assert.True(t, transient)
	assert.Equal(t, ClassNonce, class)

	transient, class = Classify(nil, http.StatusBadGateway, "insufficient funds for gas * price + value")
	assert.True(t, transient)
	assert.Equal(t, ClassGas, class)

	transient, class = Classify(nil, http.StatusNotFound, "not found")
	assert.False(t, transient)
	assert.Equal(t, ClassBadRequest, class)

	transient, class = Classify(context.Canceled, 0, "")
	assert.False(t, transient)
	assert.Equal(t, ClassCancelled, class)
}
