package session

import (
	"github.com/unikron/shieldswap/pkg/errs"
	"github.com/unikron/shieldswap/pkg/models"
)

// Event drives the session state machine
type Event string

const (
	EventCommit          Event = "commit"
	EventCommitConfirmed Event = "commit_confirmed"
	EventReveal          Event = "reveal"
	EventRevealConfirmed Event = "reveal_confirmed"
	EventRevealFailed    Event = "reveal_failed"
	EventExpire          Event = "expire"
	EventCancel          Event = "cancel"
	EventReset           Event = "reset"
)

var transitions = map[models.Phase]map[Event]models.Phase{
	models.PhaseIdle: {
		EventCommit: models.PhaseCommit,
		EventCancel: models.PhaseIdle,
	},
	models.PhaseCommit: {
		EventCommitConfirmed: models.PhaseCommit,
		EventReveal:          models.PhaseReveal,
		EventExpire:          models.PhaseExpired,
		EventCancel:          models.PhaseIdle,
	},
	models.PhaseReveal: {
		EventRevealConfirmed: models.PhaseExecuted,
		EventRevealFailed:    models.PhaseCommit,
		EventExpire:          models.PhaseExpired,
	},
	models.PhaseExecuted: {
		EventReset: models.PhaseIdle,
	},
	models.PhaseExpired: {
		EventReset: models.PhaseIdle,
	},
}

// Transition returns the phase reached from `from` on ev. It has no side effects.
func Transition(from models.Phase, ev Event) (models.Phase, error) {
	if next, ok := transitions[from][ev]; ok {
		return next, nil
	}
	return from, &errs.InvalidTransitionError{Entity: "session", From: string(from), To: string(ev)}
}
