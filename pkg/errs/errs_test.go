package errs

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"encoding", &EncodingError{Field: "tokenIn", Reason: "bad hex"}, KindEncoding},
		{"amount", &InvalidAmountError{Field: "amount", Value: "-1", Reason: "must be positive"}, KindInvalidAmount},
		{"transition", &InvalidTransitionError{Entity: "intent", From: "expired", To: "executed"}, KindInvalidTransition},
		{"gateway", &GatewayError{Op: "commit", Err: errors.New("boom")}, KindGateway},
		{"expired", &ExpiredError{IntentID: "abc", ExpiredAt: time.Unix(0, 0)}, KindExpired},
		{"cannot cancel", &CannotCancelError{IntentID: "abc", Reason: "reveal submitted"}, KindCannotCancel},
		{"session active", fmt.Errorf("commit: %w", ErrSessionActive), KindSessionActive},
		{"wrapped", fmt.Errorf("outer: %w", &ExpiredError{IntentID: "x"}), KindExpired},
		{"plain", errors.New("plain"), KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&GatewayError{Op: "status", Transient: true, Err: errors.New("timeout")}))
	assert.False(t, IsTransient(&GatewayError{Op: "reveal", Transient: false, Err: errors.New("execution reverted")}))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", &GatewayError{Transient: true, Err: errors.New("EOF")})))
	assert.False(t, IsTransient(&ExpiredError{}))
	assert.False(t, IsTransient(nil))
}

func TestGatewayErrorMessage(t *testing.T) {
	inner := errors.New("connection refused")
	err := &GatewayError{Op: "commit", StatusCode: 503, Transient: true, Err: inner}

	assert.Equal(t, "gateway commit failed (HTTP 503): connection refused", err.Error())
	assert.ErrorIs(t, err, inner)
}
