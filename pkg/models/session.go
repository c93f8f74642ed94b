package models

import "time"

// Phase is the phase of a commit-reveal session
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseCommit   Phase = "commit"
	PhaseReveal   Phase = "reveal"
	PhaseExecuted Phase = "executed"
	PhaseExpired  Phase = "expired"
)

// Terminal reports whether the phase ends the session
func (p Phase) Terminal() bool {
	return p == PhaseExecuted || p == PhaseExpired
}

// SessionSnapshot is the read-only view of a session handed to other components
type SessionSnapshot struct {
	Phase         Phase         `json:"phase"`
	Intent        *SwapIntent   `json:"intent,omitempty"`
	TimeRemaining time.Duration `json:"timeRemaining"`
	Progress      float64       `json:"progress"`
	InFlight      bool          `json:"inFlight"`
}

// PersistedSession is the durable form of a session
type PersistedSession struct {
	IntentID  string     `json:"intentId"`
	Phase     Phase      `json:"phase"`
	CreatedAt int64      `json:"createdAt"`
	Intent    SwapIntent `json:"intent"`
	UpdatedAt time.Time  `json:"updatedAt"`
}
