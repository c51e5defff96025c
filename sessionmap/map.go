package sessionmap

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/hupe1980/mdsession/codec"
	"github.com/hupe1980/mdsession/core"
	"github.com/hupe1980/mdsession/journal"
	"github.com/hupe1980/mdsession/logging"
	"github.com/hupe1980/mdsession/metrics"
)

// Options configures a Map.
type Options struct {
	// Logger receives lifecycle and persistence events. Defaults to a no-op.
	Logger logging.Logger

	// Notifier is told about push sequence increments and released caps.
	Notifier core.CapNotifier

	// IOTimeout bounds each store read or write. Zero means no bound.
	IOTimeout time.Duration
}

// Versions is a snapshot of the four persistence counters.
type Versions struct {
	Version    core.Version
	Projected  core.Version
	Committing core.Version
	Committed  core.Version
}

// Map is the session table. Create it with New; the zero value is not usable.
type Map struct {
	mu sync.Mutex

	store     journal.Store
	logger    logging.Logger
	notifier  core.CapNotifier
	ioTimeout time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	sessions map[core.EntityName]*Session

	version    core.Version
	projected  core.Version
	committing core.Version
	committed  core.Version

	status        CommitStatus
	commitWaiters map[core.Version]*queue.Queue
	backing       codec.BackingRecord

	loading     bool
	loadWaiters *queue.Queue
}

// New returns an empty map at version 0 persisting through store.
func New(store journal.Store, optFns ...func(o *Options)) *Map {
	opts := Options{
		Logger:   logging.NoOpLogger{},
		Notifier: core.NopCapNotifier{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Map{
		store:         store,
		logger:        opts.Logger,
		notifier:      opts.Notifier,
		ioTimeout:     opts.IOTimeout,
		ctx:           ctx,
		cancel:        cancel,
		sessions:      make(map[core.EntityName]*Session),
		commitWaiters: make(map[core.Version]*queue.Queue),
		backing:       codec.NewBackingRecord(),
		loadWaiters:   queue.New(),
	}
}

// Close cancels in-flight store I/O. Pending completions resolve with the
// resulting error.
func (m *Map) Close() {
	m.cancel()
}

// GetSession looks up a session without creating it.
func (m *Map) GetSession(name core.EntityName) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[name]

	return s, ok
}

// GetOrAddSession returns the session for name, creating it in
// StateUndefined when absent. Creation does not bump the version.
func (m *Map) GetOrAddSession(name core.EntityName) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.getOrAddLocked(name)
}

// GetOrAddSessionInst is GetOrAddSession that also records inst's address.
func (m *Map) GetOrAddSessionInst(inst core.EntityInst) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.getOrAddLocked(inst.Name)
	s.addr = inst.Addr

	return s
}

func (m *Map) getOrAddLocked(name core.EntityName) *Session {
	if s, ok := m.sessions[name]; ok {
		return s
	}

	s := newSession(&m.mu, m.notifier, name)
	m.sessions[name] = s

	metrics.Sessions.Set(float64(len(m.sessions)))

	return s
}

// OpenSessions opens a batch of clients after a restart. Sessions are keyed on
// each inst's name; the map key only groups the batch. Every listed session
// ends up StateOpen with the given address.
// The version is bumped once for the whole batch, also when it is empty.
func (m *Map) OpenSessions(clients map[int64]core.EntityInst) core.Version {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inst := range clients {
		s := m.getOrAddLocked(inst.Name)
		s.addr = inst.Addr
		s.state = core.StateOpen
	}

	m.version++
	m.checkInvariantsLocked()
	m.publishLocked()

	m.logger.Debug("sessions opened", "count", len(clients), "version", m.version)

	return m.version
}

// RemoveSession flushes s's trim waiters, hands its caps back to the cap
// notifier and drops it from the map. s must be the current session for its
// name.
func (m *Map) RemoveSession(s *Session) error {
	m.mu.Lock()

	if cur, ok := m.sessions[s.name]; !ok || cur != s || s.removed {
		m.mu.Unlock()
		return core.ErrSessionRemoved
	}

	released, caps := s.detachLocked()
	delete(m.sessions, s.name)
	metrics.Sessions.Set(float64(len(m.sessions)))
	m.mu.Unlock()

	fireTrimWaiters(released)
	m.notifier.ReleaseCaps(s.name, caps)

	logging.ForClient(m.logger, s.name.String()).Debug("session removed", "caps", len(caps), "waiters", len(released))

	return nil
}

// ClientSet returns the numbers of every client session, ascending.
func (m *Map) ClientSet() []int64 {
	names := m.ClientsOfKind(core.EntityName.IsClient)

	out := make([]int64, 0, len(names))
	for _, n := range names {
		out = append(out, n.Num)
	}

	return out
}

// ClientSessions returns every client session ordered by name.
func (m *Map) ClientSessions() []*Session {
	return m.SessionsOfKind(core.EntityName.IsClient)
}

// ClientsOfKind returns the names accepted by pred, ordered.
func (m *Map) ClientsOfKind(pred func(core.EntityName) bool) []core.EntityName {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []core.EntityName

	for name := range m.sessions {
		if pred(name) {
			out = append(out, name)
		}
	}

	slices.SortFunc(out, compareNames)

	return out
}

// SessionsOfKind returns the sessions whose name pred accepts, ordered by name.
func (m *Map) SessionsOfKind(pred func(core.EntityName) bool) []*Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []*Session

	for name, s := range m.sessions {
		if pred(name) {
			out = append(out, s)
		}
	}

	slices.SortFunc(out, func(a, b *Session) int { return compareNames(a.name, b.name) })

	return out
}

func compareNames(a, b core.EntityName) int {
	switch {
	case a.Less(b):
		return -1
	case b.Less(a):
		return 1
	default:
		return 0
	}
}

// Len returns the number of sessions.
func (m *Map) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.sessions)
}

// Empty reports whether the map holds no sessions.
func (m *Map) Empty() bool { return m.Len() == 0 }

// GetInst returns identity and address of the session for name.
func (m *Map) GetInst(name core.EntityName) (core.EntityInst, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[name]
	if !ok {
		return core.EntityInst{}, fmt.Errorf("%w: %s", core.ErrNoSession, name)
	}

	return core.EntityInst{Name: name, Addr: s.addr}, nil
}

// IncPushSeq advances the push sequence of client num.
func (m *Map) IncPushSeq(num int64) (uint64, error) {
	name := core.ClientName(num)

	m.mu.Lock()
	s, ok := m.sessions[name]
	if !ok {
		m.mu.Unlock()
		return 0, fmt.Errorf("%w: %s", core.ErrNoSession, name)
	}

	seq, err := s.incPushSeqLocked()
	m.mu.Unlock()

	if err != nil {
		return 0, err
	}

	m.notifier.PushSeqAdvanced(name, seq)

	return seq, nil
}

// GetPushSeq returns the push sequence of client num.
func (m *Map) GetPushSeq(num int64) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := core.ClientName(num)

	s, ok := m.sessions[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", core.ErrNoSession, name)
	}

	return s.pushSeq, nil
}

// HaveCompletedRequest reports whether rid was completed. An unknown client
// has completed nothing.
func (m *Map) HaveCompletedRequest(rid core.RequestID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[rid.Name]
	if !ok {
		return false
	}

	return s.ledger.Has(rid.Tid)
}

// AddCompletedRequest records rid in its client's ledger.
func (m *Map) AddCompletedRequest(rid core.RequestID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.sessions[rid.Name]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNoSession, rid)
	}

	return s.addCompletedLocked(rid.Tid)
}

// TrimCompletedRequests trims the ledger of name below minTid.
func (m *Map) TrimCompletedRequests(name core.EntityName, minTid uint64) error {
	m.mu.Lock()
	s, ok := m.sessions[name]
	if !ok {
		m.mu.Unlock()
		return fmt.Errorf("%w: %s", core.ErrNoSession, name)
	}

	released, err := s.trimLocked(minTid)
	m.mu.Unlock()

	fireTrimWaiters(released)

	return err
}

// MarkDirty records a mutation that has to be persisted and returns the new
// version.
func (m *Map) MarkDirty() core.Version {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.version++
	m.checkInvariantsLocked()
	m.publishLocked()

	return m.version
}

// Versions returns the persistence counters.
func (m *Map) Versions() Versions {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Versions{
		Version:    m.version,
		Projected:  m.projected,
		Committing: m.committing,
		Committed:  m.committed,
	}
}

// Backing returns the record describing the persisted blob.
func (m *Map) Backing() codec.BackingRecord {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.backing
}

func (m *Map) checkInvariantsLocked() {
	if m.committed <= m.committing && m.committing <= m.projected && m.projected <= m.version {
		return
	}

	panic(fmt.Sprintf("sessionmap: counter order violated: committed=%d committing=%d projected=%d version=%d",
		m.committed, m.committing, m.projected, m.version))
}

func (m *Map) publishLocked() {
	metrics.Sessions.Set(float64(len(m.sessions)))
	metrics.SetVersions(uint64(m.version), uint64(m.projected), uint64(m.committing), uint64(m.committed))
}
