package gateway

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// Error classes reported on GatewayError.Class
const (
	ClassNetwork      = "network_error"
	ClassNodeState    = "node_state_error"
	ClassGas          = "gas_error"
	ClassNonce        = "nonce_error"
	ClassRateLimited  = "rate_limited"
	ClassServer       = "server_error"
	ClassInsufficient = "insufficient_balance"
	ClassContract     = "contract_error"
	ClassBadRequest   = "bad_request"
	ClassDecode       = "decode_error"
	ClassCancelled    = "cancelled"
	ClassCircuitOpen  = "circuit_open"
	ClassUnknown      = "unknown_error"
)

// classifyMessage maps an error message to (transient, class). ok is false when
// the message matches nothing known.
func classifyMessage(msg string) (transient bool, class string, ok bool) {
	// Network/RPC errors - retry is appropriate
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "timed out") ||
		strings.Contains(msg, "no response") ||
		strings.Contains(msg, "EOF") {
		return true, ClassNetwork, true
	}

	// RPC node state errors
	if strings.Contains(msg, "missing trie node") ||
		strings.Contains(msg, "layer stale") ||
		strings.Contains(msg, "state inconsistency") ||
		strings.Contains(msg, "receipt not found") ||
		strings.Contains(msg, "block not found") {
		return true, ClassNodeState, true
	}

	// Gas-related errors - retry may help if gas prices change
	if strings.Contains(msg, "gas required exceeds allowance") ||
		strings.Contains(msg, "insufficient funds for gas") ||
		strings.Contains(msg, "gas price too low") ||
		strings.Contains(msg, "max fee per gas less than block base fee") {
		return true, ClassGas, true
	}

	// Nonce-related errors - retry may help after nonce is corrected
	if strings.Contains(msg, "nonce too low") ||
		strings.Contains(msg, "nonce too high") ||
		strings.Contains(msg, "replacement transaction underpriced") {
		return true, ClassNonce, true
	}

	// Balance-related errors - permanent failures
	if strings.Contains(msg, "insufficient balance") ||
		strings.Contains(msg, "insufficient funds") ||
		strings.Contains(msg, "ERC20InsufficientBalance") ||
		strings.Contains(msg, "ERC20InsufficientAllowance") {
		return false, ClassInsufficient, true
	}

	// Contract-related errors - permanent failures
	if strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "invalid opcode") ||
		strings.Contains(msg, "out of gas") {
		return false, ClassContract, true
	}

	return false, "", false
}

// Classify decides whether a failed call is worth retrying. statusCode is 0
// when no HTTP response was received.
func Classify(err error, statusCode int, message string) (transient bool, class string) {
	if errors.Is(err, context.Canceled) {
		return false, ClassCancelled
	}

	msg := message
	if msg == "" && err != nil {
		msg = err.Error()
	}
	if t, c, ok := classifyMessage(msg); ok {
		return t, c
	}

	switch {
	case statusCode == 0:
		var netErr net.Error
		if errors.As(err, &netErr) {
			return true, ClassNetwork
		}
		// Unknown transport errors - retry with caution
		return true, ClassUnknown
	case statusCode == http.StatusTooManyRequests:
		return true, ClassRateLimited
	case statusCode == http.StatusRequestTimeout:
		return true, ClassNetwork
	case statusCode >= 500:
		return true, ClassServer
	case statusCode >= 400:
		return false, ClassBadRequest
	default:
		return false, ClassDecode
	}
}
