package core

import "errors"

var (
	// ErrNoSession is returned by operations that require an existing session
	// for an identity that has none. It signals a caller bug: code that
	// expects possible absence must look the session up first.
	ErrNoSession = errors.New("no session for entity")

	// ErrSessionRemoved is returned when a session handle is used after the
	// session was removed from its table.
	ErrSessionRemoved = errors.New("session removed")

	// ErrInvalidTransition is returned for a lifecycle step the state machine
	// does not allow.
	ErrInvalidTransition = errors.New("invalid session state transition")
)

// ErrCapsRejected is returned when a capability is granted to a session whose
// state does not accept new grants (closing, stale or never opened).
var ErrCapsRejected = errors.New("session does not accept new capabilities")

// MaxPersistedInt is the largest tid or push sequence the persisted session
// table can hold exactly (2^53-1).
const MaxPersistedInt uint64 = 1<<53 - 1

var (
	// ErrTidOutOfRange is returned when a completed request tid exceeds
	// MaxPersistedInt.
	ErrTidOutOfRange = errors.New("request tid out of persistable range")

	// ErrPushSeqExhausted is returned when the push sequence would exceed
	// MaxPersistedInt.
	ErrPushSeqExhausted = errors.New("cap push sequence exhausted")
)
