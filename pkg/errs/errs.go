// Package errs defines the error taxonomy shared by the swap engine.
// Every error carries one human readable message and a machine readable Kind.
package errs

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies the class of a failure
type Kind string

const (
	KindUnknown           Kind = "unknown"
	KindEncoding          Kind = "encoding"
	KindInvalidAmount     Kind = "invalid_amount"
	KindInvalidTransition Kind = "invalid_transition"
	KindGateway           Kind = "gateway"
	KindExpired           Kind = "expired"
	KindCannotCancel      Kind = "cannot_cancel"
	KindSessionActive     Kind = "session_active"
)

// ErrSessionActive is returned when a commit is requested while a session is live
var ErrSessionActive = errors.New("a swap session is already active")

// EncodingError reports commitment inputs that cannot be ABI encoded
type EncodingError struct {
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("cannot encode %s: %s", e.Field, e.Reason)
}

func (e *EncodingError) Kind() Kind { return KindEncoding }

// InvalidAmountError reports a rejected quote or swap input
type InvalidAmountError struct {
	Field  string
	Value  string
	Reason string
}

func (e *InvalidAmountError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *InvalidAmountError) Kind() Kind { return KindInvalidAmount }

// InvalidTransitionError reports an illegal intent or session state change
type InvalidTransitionError struct {
	Entity string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid %s transition from %s to %s", e.Entity, e.From, e.To)
}

func (e *InvalidTransitionError) Kind() Kind { return KindInvalidTransition }

// GatewayError wraps a failed call to the settlement gateway
type GatewayError struct {
	Op         string
	StatusCode int
	Class      string
	Transient  bool
	Err        error
}

func (e *GatewayError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("gateway %s failed (HTTP %d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("gateway %s failed: %v", e.Op, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

func (e *GatewayError) Kind() Kind { return KindGateway }

// ExpiredError is returned once the commit window of an intent has elapsed
type ExpiredError struct {
	IntentID  string
	ExpiredAt time.Time
}

func (e *ExpiredError) Error() string {
	return fmt.Sprintf("commit window for intent %s expired at %s, start a new swap",
		e.IntentID, e.ExpiredAt.UTC().Format(time.RFC3339))
}

func (e *ExpiredError) Kind() Kind { return KindExpired }

// CannotCancelError is returned when a session can no longer be cancelled locally
type CannotCancelError struct {
	IntentID string
	Reason   string
}

func (e *CannotCancelError) Error() string {
	return fmt.Sprintf("cannot cancel intent %s: %s", e.IntentID, e.Reason)
}

func (e *CannotCancelError) Kind() Kind { return KindCannotCancel }

type kinded interface {
	Kind() Kind
}

// KindOf returns the Kind of the first typed error in err's chain
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrSessionActive) {
		return KindSessionActive
	}
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return KindUnknown
}

// IsTransient reports whether err is a gateway failure worth retrying
func IsTransient(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		return gwErr.Transient
	}
	return false
}
