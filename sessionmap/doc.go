// Package sessionmap implements the session table of a metadata server.
//
// A Map owns every client Session, keyed by entity name, and persists the
// whole table through a journal.Store with an asynchronous, versioned commit
// protocol.
//
// # Sessions
//
// A Session carries the client's lifecycle state, its capability push
// sequence, the inodes it holds caps on and its completed-request ledger.
// Request handlers look the session up (GetSession), consult the ledger to
// answer retried requests exactly once, and record new completions. Trimming
// the ledger releases the trim waiters keyed below the watermark.
//
// # Versions
//
// The table keeps four counters, always ordered
//
//	committed <= committing <= projected <= version
//
// version counts mutations that must become durable, projected and
// committing name the version the single in-flight write carries, committed
// is the last version the store acknowledged. Save returns a Completion that
// resolves once committed reaches the requested version; a Save during an
// in-flight write never starts a second write, the finishing write chains the
// next one instead.
//
// # Concurrency
//
// One mutex guards the whole table, sessions included; cross-session
// counters make finer locking pointless. Only store I/O runs on goroutines.
// Callbacks and waiters run without the lock held, in registration order,
// exactly once.
package sessionmap
