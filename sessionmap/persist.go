package sessionmap

import (
	"context"
	"errors"
	"math"
	"slices"
	"time"

	"github.com/eapache/queue"
	"github.com/google/uuid"

	"github.com/hupe1980/mdsession/codec"
	"github.com/hupe1980/mdsession/core"
	"github.com/hupe1980/mdsession/journal"
	"github.com/hupe1980/mdsession/metrics"
)

// Phase is the state of the commit pipeline.
type Phase int

const (
	// PhaseIdle means no write is in flight.
	PhaseIdle Phase = iota
	// PhaseCommitting means a write of CommitStatus.Target is in flight.
	PhaseCommitting
	// PhaseFailed means the last write failed; the next Save retries.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseCommitting:
		return "committing"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// CommitStatus describes the commit pipeline.
type CommitStatus struct {
	Phase  Phase
	Target core.Version // version being or last unsuccessfully written
	Err    error        // set in PhaseFailed
}

const allVersions = core.Version(math.MaxUint64)

type pendingWrite struct {
	version core.Version
	data    []byte
	started time.Time
}

// Status returns the commit pipeline state.
func (m *Map) Status() CommitStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.status
}

// Load replaces the table with the persisted one. The read runs in the
// background; concurrent Loads share one read and resolve in call order.
// An empty store yields an empty table at version 0. On failure the table is
// left empty with every counter at 0.
func (m *Map) Load(onLoaded func(error)) *Completion {
	c := newCompletion(onLoaded)

	m.mu.Lock()

	if m.status.Phase == PhaseCommitting {
		m.mu.Unlock()
		c.resolve(&IOError{Op: OpLoad, Err: ErrCommitInFlight})

		return c
	}

	m.loadWaiters.Add(c)

	if m.loading {
		m.mu.Unlock()
		return c
	}

	m.loading = true
	m.mu.Unlock()

	go m.load()

	return c
}

func (m *Map) load() {
	started := time.Now()

	ctx, cancel := m.ioContext()
	data, err := m.store.Read(ctx)
	cancel()

	var (
		tbl   codec.Table
		found bool
	)

	switch {
	case err == nil:
		found = true
		tbl, err = codec.Decode(data)
	case errors.Is(err, journal.ErrNotFound):
		err = nil
	}

	m.mu.Lock()

	var (
		flushed  []*core.TrimWaiter
		released = make(map[core.EntityName][]core.InodeNo)
	)

	for name, s := range m.sessions {
		ws, caps := s.detachLocked()
		flushed = append(flushed, ws...)

		if len(caps) > 0 {
			released[name] = caps
		}
	}

	m.sessions = make(map[core.EntityName]*Session)

	var loadErr error

	if err != nil {
		loadErr = &IOError{Op: OpLoad, Err: err}
		m.version, m.projected, m.committing, m.committed = 0, 0, 0, 0
	} else {
		for _, r := range tbl.Sessions {
			s := newSession(&m.mu, m.notifier, r.Name)
			s.addr = r.Addr
			s.pushSeq = r.PushSeq
			s.ledger = core.NewLedger(r.Completed...)
			m.sessions[r.Name] = s
		}

		v := tbl.Version
		m.version, m.projected, m.committing, m.committed = v, v, v, v

		if found && tbl.BackingID != uuid.Nil {
			m.backing = codec.BackingRecord{
				ID:       tbl.BackingID,
				Size:     int64(len(data)),
				Checksum: codec.Checksum(data),
			}
		}
	}

	m.status = CommitStatus{Phase: PhaseIdle}
	m.loading = false

	waiters := drain(m.loadWaiters)
	satisfied := m.takeCommitWaitersLocked(m.committed)

	m.checkInvariantsLocked()
	m.publishLocked()

	count, version := len(m.sessions), m.version
	m.mu.Unlock()

	metrics.RecordLoad(loadErr == nil)

	if loadErr != nil {
		m.logger.Error("session table load failed", "error", err, "waiters", len(waiters))
	} else {
		m.logger.Info("session table loaded", "version", uint64(version), "sessions", count, "found", found, "duration", time.Since(started))
	}

	fireTrimWaiters(flushed)

	for name, caps := range released {
		m.notifier.ReleaseCaps(name, caps)
	}

	resolveAll(waiters, loadErr, "load")
	resolveAll(satisfied, nil, "commit")
}

// Save makes the table durable up to version need (the current version when
// need is 0). The returned Completion resolves once the store acknowledged a
// version >= need, or with an *IOError when the write carrying it failed.
// If need is already committed it resolves before Save returns.
func (m *Map) Save(onSaved func(error), need core.Version) *Completion {
	c := newCompletion(onSaved)

	m.mu.Lock()

	if need == 0 {
		need = m.version
	}

	if m.committed >= need {
		m.mu.Unlock()
		resolveAll([]*Completion{c}, nil, "commit")

		return c
	}

	q, ok := m.commitWaiters[need]
	if !ok {
		q = queue.New()
		m.commitWaiters[need] = q
	}

	q.Add(c)

	var (
		w       *pendingWrite
		failed  []*Completion
		failErr error
	)

	if m.status.Phase != PhaseCommitting && !m.loading && m.version > m.committed {
		w, failed, failErr = m.startCommitLocked()
	}

	m.mu.Unlock()

	resolveAll(failed, failErr, "commit")

	if w != nil {
		go m.writeLoop(w)
	}

	return c
}

// startCommitLocked projects the current version and encodes it. An encode
// failure is handled like a failed write.
func (m *Map) startCommitLocked() (*pendingWrite, []*Completion, error) {
	m.projected = m.version
	m.committing = m.projected

	data, err := codec.Encode(m.tableLocked())
	if err != nil {
		failed, ioErr := m.failCommitLocked(m.committing, err)
		return nil, failed, ioErr
	}

	m.status = CommitStatus{Phase: PhaseCommitting, Target: m.committing}
	m.checkInvariantsLocked()
	m.publishLocked()

	return &pendingWrite{version: m.committing, data: data, started: time.Now()}, nil, nil
}

func (m *Map) failCommitLocked(target core.Version, err error) ([]*Completion, error) {
	ioErr := &IOError{Op: OpSave, Version: target, Err: err}

	m.committing = m.committed
	m.status = CommitStatus{Phase: PhaseFailed, Target: target, Err: ioErr}
	m.checkInvariantsLocked()
	m.publishLocked()

	return m.takeCommitWaitersLocked(allVersions), ioErr
}

func (m *Map) writeLoop(w *pendingWrite) {
	for w != nil {
		ctx, cancel := m.ioContext()
		err := m.store.Write(ctx, w.data)
		cancel()

		w = m.finishCommit(w, err)
	}
}

// finishCommit applies the outcome of w, fires the waiters it satisfied and
// returns the chained write, if any.
func (m *Map) finishCommit(w *pendingWrite, err error) *pendingWrite {
	elapsed := time.Since(w.started)

	m.mu.Lock()

	if err != nil {
		failed, ioErr := m.failCommitLocked(w.version, err)
		m.mu.Unlock()

		metrics.RecordCommit(false, elapsed)
		m.logger.Error("session table commit failed", "version", uint64(w.version), "error", err, "waiters", len(failed))
		resolveAll(failed, ioErr, "commit")

		return nil
	}

	m.committed = w.version
	m.status = CommitStatus{Phase: PhaseIdle}
	m.backing.Size = int64(len(w.data))
	m.backing.Checksum = codec.Checksum(w.data)

	done := m.takeCommitWaitersLocked(m.committed)

	var (
		next    *pendingWrite
		failed  []*Completion
		failErr error
	)

	if m.version > m.committed {
		next, failed, failErr = m.startCommitLocked()
	}

	m.checkInvariantsLocked()
	m.publishLocked()
	m.mu.Unlock()

	metrics.RecordCommit(true, elapsed)
	m.logger.Info("session table committed", "version", uint64(w.version), "bytes", len(w.data), "duration", elapsed, "chained", next != nil)

	resolveAll(done, nil, "commit")
	resolveAll(failed, failErr, "commit")

	return next
}

// takeCommitWaitersLocked dequeues every commit waiter keyed at or below
// upTo, ascending by key and FIFO within a key.
func (m *Map) takeCommitWaitersLocked(upTo core.Version) []*Completion {
	keys := make([]core.Version, 0, len(m.commitWaiters))

	for v := range m.commitWaiters {
		if v <= upTo {
			keys = append(keys, v)
		}
	}

	slices.Sort(keys)

	var out []*Completion

	for _, v := range keys {
		out = append(out, drain(m.commitWaiters[v])...)
		delete(m.commitWaiters, v)
	}

	return out
}

func drain(q *queue.Queue) []*Completion {
	out := make([]*Completion, 0, q.Length())

	for q.Length() > 0 {
		out = append(out, q.Remove().(*Completion))
	}

	return out
}

func (m *Map) tableLocked() codec.Table {
	t := codec.Table{
		Version:   m.projected,
		BackingID: m.backing.ID,
		Sessions:  make([]codec.Record, 0, len(m.sessions)),
	}

	for name, s := range m.sessions {
		t.Sessions = append(t.Sessions, codec.Record{
			Name:      name,
			Addr:      s.addr,
			PushSeq:   s.pushSeq,
			Completed: s.ledger.Tids(),
		})
	}

	return t
}

func (m *Map) ioContext() (context.Context, context.CancelFunc) {
	if m.ioTimeout > 0 {
		return context.WithTimeout(m.ctx, m.ioTimeout)
	}

	return context.WithCancel(m.ctx)
}
