package core

import (
	"slices"
	"sync"
)

// NoLowerBound, used as the trim watermark, removes every completed request
// and releases every trim waiter. It is the watermark used when a client goes
// away for good: no retry can arrive any more.
const NoLowerBound uint64 = 0

// Ledger is the completed-request ledger of one client: the set of request
// tids already applied (so a retried request is answered, not re-applied)
// plus the waiters that want to know when entries below a tid are gone.
//
// Entries only enter through Add and only leave through Trim; a trimmed tid
// never reappears unless it is explicitly added again.
type Ledger struct {
	completed []uint64 // ascending, unique
	waiters   map[uint64][]*TrimWaiter
}

// NewLedger returns a ledger pre-populated with tids (duplicates collapse).
func NewLedger(tids ...uint64) *Ledger {
	l := &Ledger{waiters: make(map[uint64][]*TrimWaiter)}
	for _, tid := range tids {
		l.Add(tid)
	}
	return l
}

// Add records tid as completed. Adding a present tid is a no-op; the result
// reports whether the ledger changed.
func (l *Ledger) Add(tid uint64) bool {
	i, found := slices.BinarySearch(l.completed, tid)
	if found {
		return false
	}
	l.completed = slices.Insert(l.completed, i, tid)
	return true
}

// Has reports whether tid was recorded and not trimmed since.
func (l *Ledger) Has(tid uint64) bool {
	_, found := slices.BinarySearch(l.completed, tid)
	return found
}

// Len returns the number of recorded tids.
func (l *Ledger) Len() int { return len(l.completed) }

// Tids returns the recorded tids in ascending order.
func (l *Ledger) Tids() []uint64 { return slices.Clone(l.completed) }

// Waiting returns the number of registered, not yet released trim waiters.
func (l *Ledger) Waiting() int {
	n := 0
	for _, ws := range l.waiters {
		n += len(ws)
	}
	return n
}

// AddWaiter registers fn to run once a Trim with a watermark above tid
// happened. Several waiters may share a tid; they run in registration order.
func (l *Ledger) AddWaiter(tid uint64, fn func()) *TrimWaiter {
	w := &TrimWaiter{tid: tid, fn: fn, done: make(chan struct{})}
	if l.waiters == nil {
		l.waiters = make(map[uint64][]*TrimWaiter)
	}
	l.waiters[tid] = append(l.waiters[tid], w)
	return w
}

// RemoveWaiter unregisters w. It returns false when w is not registered
// (already released or removed before).
func (l *Ledger) RemoveWaiter(w *TrimWaiter) bool {
	ws := l.waiters[w.tid]
	i := slices.Index(ws, w)
	if i < 0 {
		return false
	}
	ws = slices.Delete(ws, i, i+1)
	if len(ws) == 0 {
		delete(l.waiters, w.tid)
	} else {
		l.waiters[w.tid] = ws
	}
	return true
}

// Trim drops every tid below minTid (all of them for NoLowerBound) and
// unregisters every waiter keyed below minTid (all of them for NoLowerBound).
// It returns the number of dropped tids and the released waiters in firing
// order: ascending tid, registration order within a tid. The caller fires
// them, typically after releasing the lock that guards the ledger.
func (l *Ledger) Trim(minTid uint64) (int, []*TrimWaiter) {
	var dropped int
	if minTid == NoLowerBound {
		dropped = len(l.completed)
		l.completed = l.completed[:0]
	} else {
		dropped, _ = slices.BinarySearch(l.completed, minTid)
		l.completed = slices.Delete(l.completed, 0, dropped)
	}

	keys := make([]uint64, 0, len(l.waiters))
	for tid := range l.waiters {
		if minTid == NoLowerBound || tid < minTid {
			keys = append(keys, tid)
		}
	}
	slices.Sort(keys)

	var released []*TrimWaiter
	for _, tid := range keys {
		released = append(released, l.waiters[tid]...)
		delete(l.waiters, tid)
	}
	return dropped, released
}

// TrimWaiter is a pending notification registered on a Ledger.
type TrimWaiter struct {
	tid  uint64
	fn   func()
	once sync.Once
	done chan struct{}
}

// Tid returns the tid the waiter is keyed on.
func (w *TrimWaiter) Tid() uint64 { return w.tid }

// Done returns a channel closed after the waiter fired.
func (w *TrimWaiter) Done() <-chan struct{} { return w.done }

// Fired reports whether the waiter already fired.
func (w *TrimWaiter) Fired() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

// Fire runs the callback and closes Done. Only the first call has an effect.
func (w *TrimWaiter) Fire() {
	w.once.Do(func() {
		if w.fn != nil {
			w.fn()
		}
		close(w.done)
	})
}
