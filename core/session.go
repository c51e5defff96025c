package core

import "fmt"

// SessionState is the lifecycle state of a client session. It is stored and
// reported by the session but only ever changed by the handshake/heartbeat
// collaborators or the session table.
type SessionState int

const (
	StateUndefined SessionState = iota
	StateOpening
	StateOpen
	StateClosing
	StateStale
	StateReconnecting
)

// String returns the lowercase state name.
func (s SessionState) String() string {
	switch s {
	case StateUndefined:
		return "undefined"
	case StateOpening:
		return "opening"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateStale:
		return "stale"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// transitions lists, per state, the states it may move to.
//
//	undefined -> opening -> open -> closing
//	open -> stale -> reconnecting -> open
//
// A reloaded session starts undefined and may be opened directly; opening,
// stale and reconnecting sessions may be closed.
var transitions = map[SessionState][]SessionState{
	StateUndefined:    {StateOpening, StateOpen},
	StateOpening:      {StateOpen, StateClosing},
	StateOpen:         {StateClosing, StateStale},
	StateStale:        {StateReconnecting, StateClosing},
	StateReconnecting: {StateOpen, StateClosing},
}

// CanTransition reports whether from -> to is an allowed lifecycle step.
func CanTransition(from, to SessionState) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CheckTransition returns ErrInvalidTransition (wrapped with both states)
// when from -> to is not allowed.
func CheckTransition(from, to SessionState) error {
	if CanTransition(from, to) {
		return nil
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

// AcceptsCaps reports whether a session in this state may be granted new
// capabilities. Closing and stale sessions reject grants, and so does a
// session that was never opened.
func (s SessionState) AcceptsCaps() bool {
	switch s {
	case StateOpen, StateOpening, StateReconnecting:
		return true
	default:
		return false
	}
}
