// Package gameerr defines the error taxonomy shared by the engine and the transport layer.
// Every rejected action carries a Kind (reported to clients as a code) and a human readable reason.
package gameerr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the acknowledgement response.
type Kind string

const (
	Validation    Kind = "VALIDATION_ERROR"
	StateConflict Kind = "STATE_CONFLICT"
	RuleViolation Kind = "RULE_VIOLATION"
	NotFound      Kind = "NOT_FOUND"
	Capacity      Kind = "CAPACITY_ERROR"
	Internal      Kind = "INTERNAL_ERROR"
)

// Error is a classified engine error.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New builds a classified error.
func New(kind Kind, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Newf builds a classified error with a formatted reason.
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// Wrap classifies err as Internal with a reason prefix.
func Wrap(err error, reason string) *Error {
	return &Error{Kind: Internal, Reason: reason, Err: err}
}

// KindOf returns the Kind of err, Internal when err is not classified.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return Internal
}

// Reason returns the human readable reason for err.
func Reason(err error) string {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Reason
	}
	return "internal server error"
}

// Sentinels returned by the engine. Compare with errors.Is.
var (
	ErrNotYourTurn          = New(StateConflict, "it's not your turn")
	ErrCardNotHeld          = New(Validation, "card is not in your hand")
	ErrSuitViolation        = New(RuleViolation, "cheating: you must follow the leading suit")
	ErrRoundAlreadyComplete = New(StateConflict, "all players have already played this round")
	ErrRestartProtected     = New(StateConflict, "restart is blocked until the first card is played")
	ErrSessionNotFound      = New(NotFound, "game not found")
	ErrPlayerNotFound       = New(NotFound, "player not found in this game")
	ErrPoolFull             = New(Capacity, "server is full, try again later")
	ErrSessionFull          = New(Capacity, "game is full")
	ErrGamePaused           = New(StateConflict, "game is paused while a player reconnects")
	ErrGameNotStarted       = New(StateConflict, "game has not started")
	ErrGameCompleted        = New(StateConflict, "game is already completed")
	ErrGameStarted          = New(StateConflict, "game has already started")
	ErrBiddingClosed        = New(StateConflict, "bidding is closed once a card has been played")
	ErrTrumpLocked          = New(StateConflict, "trump suit is locked")
	ErrRoundIncomplete      = New(StateConflict, "round is not complete yet")
	ErrSeatDisconnected     = New(StateConflict, "reconnect before acting for this seat")
)
