// Package gateway is the HTTP client of the settlement-backing JSON API.
// It never retries; every failure is returned as an *errs.GatewayError that
// says whether a retry could help.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/logger"
	"github.com/unikron/shieldswap/pkg/metrics"
	"github.com/unikron/shieldswap/pkg/models"
)

// Operation names used in errors and metrics
const (
	OpTokens         = "tokens"
	OpQuote          = "quote"
	OpCommit         = "commit"
	OpReveal         = "reveal"
	OpStatus         = "status"
	OpDeployedTokens = "deployed_tokens"
)

// Client talks to the backing API
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a new gateway client
func New(endpoint string, logger logger.Logger) *Client {
	return NewWithHTTPClient(endpoint, createHTTPClient(), logger)
}

// NewWithHTTPClient creates a gateway client using httpClient
func NewWithHTTPClient(endpoint string, httpClient *http.Client, logger logger.Logger) *Client {
	return &Client{
		endpoint:   strings.TrimRight(endpoint, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// Tokens returns the token list served by the API
func (c *Client) Tokens(ctx context.Context) ([]models.Token, error) {
	var tokens []models.Token
	if err := c.do(ctx, OpTokens, http.MethodGet, "/tokens", nil, &tokens); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Quote asks the API for a quote of amount between two token addresses
func (c *Client) Quote(ctx context.Context, fromToken, toToken, amount string, slippage float64) (*models.SwapQuote, error) {
	q := url.Values{}
	q.Set("fromToken", fromToken)
	q.Set("toToken", toToken)
	q.Set("amount", amount)
	if slippage > 0 {
		q.Set("slippage", fmt.Sprintf("%v", slippage))
	}

	var quote models.SwapQuote
	if err := c.do(ctx, OpQuote, http.MethodGet, "/quote?"+q.Encode(), nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// Commit submits a commitment digest
func (c *Client) Commit(ctx context.Context, digest string) (*models.TxResponse, error) {
	var resp models.TxResponse
	if err := c.do(ctx, OpCommit, http.MethodPost, "/swap/commit", models.CommitRequest{Hash: digest}, &resp); err != nil {
		return nil, err
	}
	if resp.Ref() == "" {
		return nil, c.fail(OpCommit, http.StatusOK, false, ClassDecode, fmt.Errorf("response carries no txRef"))
	}
	return &resp, nil
}

// Reveal submits the swap parameters matching a commitment
func (c *Client) Reveal(ctx context.Context, req models.RevealRequest) (*models.TxResponse, error) {
	var resp models.TxResponse
	if err := c.do(ctx, OpReveal, http.MethodPost, "/swap/reveal", req, &resp); err != nil {
		return nil, err
	}
	if resp.Ref() == "" {
		return nil, c.fail(OpReveal, http.StatusOK, false, ClassDecode, fmt.Errorf("response carries no txRef"))
	}
	return &resp, nil
}

// Status returns the settlement status of a transaction
func (c *Client) Status(ctx context.Context, txRef string) (*models.StatusResponse, error) {
	var resp models.StatusResponse
	if err := c.do(ctx, OpStatus, http.MethodGet, "/swap/status?txRef="+url.QueryEscape(txRef), nil, &resp); err != nil {
		return nil, err
	}
	switch resp.Status {
	case models.TxPending, models.TxSuccess, models.TxFailed:
		return &resp, nil
	default:
		return nil, c.fail(OpStatus, http.StatusOK, false, ClassDecode, fmt.Errorf("unknown status %q", resp.Status))
	}
}

// DeployedTokens returns the token addresses registered on the aggregator
func (c *Client) DeployedTokens(ctx context.Context) ([]string, error) {
	var resp models.DeployedTokensResponse
	if err := c.do(ctx, OpDeployedTokens, http.MethodGet, "/deployed-tokens", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tokens, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body interface{}, out interface{}) error {
	start := time.Now()
	defer func() {
		metrics.GatewayLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return c.fail(op, 0, false, ClassDecode, fmt.Errorf("failed to encode request: %v", err))
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, reader)
	if err != nil {
		return c.fail(op, 0, false, ClassBadRequest, fmt.Errorf("failed to build request: %v", err))
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		transient, class := Classify(err, 0, "")
		return c.fail(op, 0, transient, class, err)
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	// Read the response body regardless of status code
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		transient, class := Classify(err, 0, "")
		return c.fail(op, resp.StatusCode, transient, class, fmt.Errorf("failed to read response body: %v", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := errorMessage(bodyBytes)
		transient, class := Classify(nil, resp.StatusCode, msg)
		return c.fail(op, resp.StatusCode, transient, class, fmt.Errorf("%s", msg))
	}

	if err := json.Unmarshal(bodyBytes, out); err != nil {
		return c.fail(op, resp.StatusCode, false, ClassDecode, fmt.Errorf("failed to decode response: %v, body: %s", err, string(bodyBytes)))
	}

	metrics.GatewayRequests.WithLabelValues(op, "ok").Inc()
	c.logger.Debug("Gateway %s %s succeeded", method, path)
	return nil
}

func (c *Client) fail(op string, statusCode int, transient bool, class string, err error) error {
	metrics.GatewayRequests.WithLabelValues(op, "error").Inc()
	metrics.GatewayErrors.WithLabelValues(op, class).Inc()
	c.logger.Debug("Gateway %s failed (%s, transient=%v): %v", op, class, transient, err)
	return &errs.GatewayError{
		Op:         op,
		StatusCode: statusCode,
		Class:      class,
		Transient:  transient,
		Err:        err,
	}
}

// errorMessage extracts the error field of an error body, falling back to the raw text
func errorMessage(body []byte) string {
	var e models.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil && e.Error != "" {
		return e.Error
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return "empty response"
	}
	return msg
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 100,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
