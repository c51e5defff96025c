package sessionmap

import (
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/mdsession/core"
	"github.com/hupe1980/mdsession/metrics"
)

// Session is the server-side state of one client. Sessions are created and
// owned by a Map and share its lock, so a *Session may be used from any
// goroutine. Once removed from its map every mutating method returns
// core.ErrSessionRemoved.
type Session struct {
	mu       *sync.Mutex
	notifier core.CapNotifier

	name      core.EntityName
	addr      string
	state     core.SessionState
	lastAlive time.Time
	pushSeq   uint64
	caps      *core.CapList
	ledger    *core.Ledger
	removed   bool
}

func newSession(mu *sync.Mutex, notifier core.CapNotifier, name core.EntityName) *Session {
	return &Session{
		mu:       mu,
		notifier: notifier,
		name:     name,
		state:    core.StateUndefined,
		caps:     core.NewCapList(),
		ledger:   core.NewLedger(),
	}
}

// Name returns the client identity. It never changes.
func (s *Session) Name() core.EntityName { return s.name }

// Inst returns the identity together with the current address.
func (s *Session) Inst() core.EntityInst {
	s.mu.Lock()
	defer s.mu.Unlock()

	return core.EntityInst{Name: s.name, Addr: s.addr}
}

// State returns the lifecycle state.
func (s *Session) State() core.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

// Transition moves the session to state to. Only the transitions of the
// session state machine are accepted.
func (s *Session) Transition(to core.SessionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return core.ErrSessionRemoved
	}

	if err := core.CheckTransition(s.state, to); err != nil {
		return err
	}

	s.state = to

	return nil
}

// IsOpening reports whether the client handshake is in progress.
func (s *Session) IsOpening() bool { return s.State() == core.StateOpening }

// IsOpen reports whether the session is established.
func (s *Session) IsOpen() bool { return s.State() == core.StateOpen }

// IsClosing reports whether the session is being torn down.
func (s *Session) IsClosing() bool { return s.State() == core.StateClosing }

// IsStale reports whether the client stopped renewing its session.
func (s *Session) IsStale() bool { return s.State() == core.StateStale }

// CanGrantCaps reports whether new capabilities may be issued to the client.
func (s *Session) CanGrantCaps() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !s.removed && s.state.AcceptsCaps()
}

// Touch records a sign of life from the client.
func (s *Session) Touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastAlive = now
}

// LastAlive returns the time of the last Touch.
func (s *Session) LastAlive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lastAlive
}

// Removed reports whether the session was removed from its map.
func (s *Session) Removed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.removed
}

// IncPushSeq advances the capability push sequence and returns the new
// value, which is also reported to the cap notifier.
func (s *Session) IncPushSeq() (uint64, error) {
	s.mu.Lock()
	seq, err := s.incPushSeqLocked()
	s.mu.Unlock()

	if err != nil {
		return 0, err
	}

	s.notifier.PushSeqAdvanced(s.name, seq)

	return seq, nil
}

func (s *Session) incPushSeqLocked() (uint64, error) {
	if s.removed {
		return 0, core.ErrSessionRemoved
	}

	if s.pushSeq >= core.MaxPersistedInt {
		return 0, fmt.Errorf("%w: %s", core.ErrPushSeqExhausted, s.name)
	}

	s.pushSeq++

	return s.pushSeq, nil
}

// PushSeq returns the current push sequence.
func (s *Session) PushSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pushSeq
}

// AddCompletedRequest records tid as completed. Recording it twice is a no-op.
// Tids above core.MaxPersistedInt are refused.
func (s *Session) AddCompletedRequest(tid uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.addCompletedLocked(tid)
}

func (s *Session) addCompletedLocked(tid uint64) error {
	if s.removed {
		return core.ErrSessionRemoved
	}

	if tid > core.MaxPersistedInt {
		return fmt.Errorf("%w: %s:%d", core.ErrTidOutOfRange, s.name, tid)
	}

	s.ledger.Add(tid)

	return nil
}

// HaveCompletedRequest reports whether tid is in the ledger.
func (s *Session) HaveCompletedRequest(tid uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Has(tid)
}

// TrimCompletedRequests drops every tid below minTid (everything for
// core.NoLowerBound) and fires the trim waiters keyed below it.
func (s *Session) TrimCompletedRequests(minTid uint64) error {
	s.mu.Lock()
	released, err := s.trimLocked(minTid)
	s.mu.Unlock()

	fireTrimWaiters(released)

	return err
}

func (s *Session) trimLocked(minTid uint64) ([]*core.TrimWaiter, error) {
	if s.removed {
		return nil, core.ErrSessionRemoved
	}

	_, released := s.ledger.Trim(minTid)

	return released, nil
}

// AwaitTrim registers fn to run once the ledger is trimmed past tid.
func (s *Session) AwaitTrim(tid uint64, fn func()) (*core.TrimWaiter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return nil, core.ErrSessionRemoved
	}

	return s.ledger.AddWaiter(tid, fn), nil
}

// CancelTrim unregisters w. It returns false if w already fired or was
// cancelled before.
func (s *Session) CancelTrim(w *core.TrimWaiter) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.RemoveWaiter(w)
}

// CompletedRequests returns the ledger in ascending tid order.
func (s *Session) CompletedRequests() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Tids()
}

// CompletedCount returns the ledger size.
func (s *Session) CompletedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.ledger.Len()
}

// GrantCap records that the client now holds caps on ino.
func (s *Session) GrantCap(ino core.InodeNo) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.removed {
		return core.ErrSessionRemoved
	}

	if !s.state.AcceptsCaps() {
		return core.ErrCapsRejected
	}

	s.caps.Touch(ino)

	return nil
}

// TouchCap moves an already held inode to the front of the cap list. It
// returns false if the client holds no caps on ino.
func (s *Session) TouchCap(ino core.InodeNo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.caps.Contains(ino) {
		return false
	}

	s.caps.Touch(ino)

	return true
}

// DropCap forgets ino. It returns false if it was not held.
func (s *Session) DropCap(ino core.InodeNo) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.caps.Drop(ino)
}

// Caps returns the held inodes, most recently used first.
func (s *Session) Caps() []core.InodeNo {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.caps.Inodes()
}

// CapCount returns the number of held inodes.
func (s *Session) CapCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.caps.Len()
}

// detachLocked flushes the ledger waiters, empties the cap list and marks the
// session removed. The caller fires the waiters and notifies the released
// caps once the lock is dropped.
func (s *Session) detachLocked() ([]*core.TrimWaiter, []core.InodeNo) {
	_, released := s.ledger.Trim(core.NoLowerBound)
	caps := s.caps.Release()
	s.removed = true

	return released, caps
}

func fireTrimWaiters(ws []*core.TrimWaiter) {
	for _, w := range ws {
		w.Fire()
	}

	metrics.AddWaitersFired("trim", len(ws))
}
