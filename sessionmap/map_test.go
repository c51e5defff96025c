package sessionmap_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/mdsession/core"
	"github.com/hupe1980/mdsession/logging"
	"github.com/hupe1980/mdsession/sessionmap"
)

func clientInst(num int64, addr string) core.EntityInst {
	return core.EntityInst{Name: core.ClientName(num), Addr: addr}
}

func TestMap_LookupThenCreate(t *testing.T) {
	m, _ := newTestMap(t)

	for _, num := range []int64{1, 2, 42} {
		name := core.ClientName(num)

		_, ok := m.GetSession(name)
		assert.False(t, ok)

		s := m.GetOrAddSession(name)
		got, ok := m.GetSession(name)
		require.True(t, ok)
		assert.Same(t, s, got)
		assert.Equal(t, core.StateUndefined, got.State())
	}

	assert.Equal(t, 3, m.Len())
	assert.Equal(t, core.Version(0), m.Versions().Version, "creation does not bump the version")
}

func TestMap_GetOrAddSessionInstReplacesAddress(t *testing.T) {
	m, _ := newTestMap(t)

	s := m.GetOrAddSessionInst(clientInst(7, "10.0.0.7:1"))
	again := m.GetOrAddSessionInst(clientInst(7, "10.0.0.7:2"))

	assert.Same(t, s, again)
	assert.Equal(t, "10.0.0.7:2", s.Inst().Addr)

	inst, err := m.GetInst(core.ClientName(7))
	require.NoError(t, err)
	assert.Equal(t, clientInst(7, "10.0.0.7:2"), inst)

	_, err = m.GetInst(core.ClientName(8))
	require.ErrorIs(t, err, core.ErrNoSession)
}

func TestMap_OpenSessionsBumpsVersionOnce(t *testing.T) {
	m, _ := newTestMap(t)

	existing := m.GetOrAddSession(core.ClientName(1))

	v := m.OpenSessions(map[int64]core.EntityInst{
		1: clientInst(1, "a:1"),
		2: clientInst(2, "b:1"),
	})

	assert.Equal(t, core.Version(1), v)
	assert.Equal(t, core.Version(1), m.Versions().Version)
	assert.True(t, existing.IsOpen())
	assert.Equal(t, "a:1", existing.Inst().Addr)

	s2, ok := m.GetSession(core.ClientName(2))
	require.True(t, ok)
	assert.True(t, s2.IsOpen())

	assert.Equal(t, core.Version(2), m.OpenSessions(nil))
}

func TestMap_RemoveSessionFlushesWaitersAndReleasesCaps(t *testing.T) {
	m, n := newTestMap(t)
	m.OpenSessions(map[int64]core.EntityInst{1: clientInst(1, "a:1")})

	s, ok := m.GetSession(core.ClientName(1))
	require.True(t, ok)
	require.NoError(t, s.GrantCap(10))
	require.NoError(t, s.GrantCap(11))
	require.NoError(t, s.AddCompletedRequest(3))

	var fired []uint64

	for _, tid := range []uint64{50, 5, 1 << 40} {
		_, err := s.AwaitTrim(tid, func() { fired = append(fired, tid) })
		require.NoError(t, err)
	}

	require.NoError(t, m.RemoveSession(s))

	_, ok = m.GetSession(core.ClientName(1))
	assert.False(t, ok)
	assert.True(t, m.Empty())
	assert.Equal(t, []uint64{5, 50, 1 << 40}, fired)

	released, ok := n.Released(core.ClientName(1))
	require.True(t, ok)
	assert.Equal(t, []core.InodeNo{11, 10}, released)
	assert.Zero(t, s.CapCount())

	require.ErrorIs(t, m.RemoveSession(s), core.ErrSessionRemoved)
}

func TestMap_RemoveStaleHandle(t *testing.T) {
	m, _ := newTestMap(t)

	old := m.GetOrAddSession(core.ClientName(1))
	require.NoError(t, m.RemoveSession(old))

	fresh := m.GetOrAddSession(core.ClientName(1))
	assert.NotSame(t, old, fresh)

	require.ErrorIs(t, m.RemoveSession(old), core.ErrSessionRemoved)

	_, ok := m.GetSession(core.ClientName(1))
	assert.True(t, ok, "stale handle must not remove the new session")
}

func TestMap_KindQueriesAreSorted(t *testing.T) {
	m, _ := newTestMap(t)

	for _, num := range []int64{9, 2, 5} {
		m.GetOrAddSession(core.ClientName(num))
	}

	m.GetOrAddSession(core.EntityName{Type: core.EntityMDS, Num: 0})

	assert.Equal(t, []int64{2, 5, 9}, m.ClientSet())

	sessions := m.ClientSessions()
	require.Len(t, sessions, 3)
	assert.Equal(t, core.ClientName(2), sessions[0].Name())
	assert.Equal(t, core.ClientName(9), sessions[2].Name())

	mds := m.ClientsOfKind(func(n core.EntityName) bool { return n.Type == core.EntityMDS })
	assert.Equal(t, []core.EntityName{{Type: core.EntityMDS, Num: 0}}, mds)

	assert.Len(t, m.SessionsOfKind(func(core.EntityName) bool { return true }), 4)
}

func TestMap_Delegations(t *testing.T) {
	m, n := newTestMap(t)
	m.GetOrAddSession(core.ClientName(4))

	rid := core.RequestID{Name: core.ClientName(4), Tid: 17}

	assert.False(t, m.HaveCompletedRequest(rid))
	require.NoError(t, m.AddCompletedRequest(rid))
	require.NoError(t, m.AddCompletedRequest(rid))
	assert.True(t, m.HaveCompletedRequest(rid))

	require.NoError(t, m.TrimCompletedRequests(rid.Name, 18))
	assert.False(t, m.HaveCompletedRequest(rid))

	seq, err := m.IncPushSeq(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)

	seq, err = m.GetPushSeq(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq)
	assert.Len(t, n.Pushes(), 1)
}

func TestMap_DelegationsOnMissingSession(t *testing.T) {
	m, _ := newTestMap(t)

	rid := core.RequestID{Name: core.ClientName(99), Tid: 1}

	assert.False(t, m.HaveCompletedRequest(rid), "absence is a normal result")
	require.ErrorIs(t, m.AddCompletedRequest(rid), core.ErrNoSession)
	require.ErrorIs(t, m.TrimCompletedRequests(rid.Name, 2), core.ErrNoSession)

	_, err := m.IncPushSeq(99)
	require.ErrorIs(t, err, core.ErrNoSession)

	_, err = m.GetPushSeq(99)
	require.ErrorIs(t, err, core.ErrNoSession)
}

func TestMap_MarkDirty(t *testing.T) {
	m, _ := newTestMap(t)

	assert.Equal(t, core.Version(1), m.MarkDirty())
	assert.Equal(t, core.Version(2), m.MarkDirty())
	assert.Equal(t, sessionmap.Versions{Version: 2}, m.Versions())
	assert.Equal(t, sessionmap.PhaseIdle, m.Status().Phase)
}

func TestMap_OpenSessionsKeysOnInstName(t *testing.T) {
	m, _ := newTestMap(t)

	m.OpenSessions(map[int64]core.EntityInst{1: clientInst(2, "b:1")})

	_, ok := m.GetSession(core.ClientName(1))
	assert.False(t, ok)

	s, ok := m.GetSession(core.ClientName(2))
	require.True(t, ok)
	assert.True(t, s.IsOpen())
	assert.Equal(t, "b:1", s.Inst().Addr)
}

func TestMap_RemoveSessionLogsClient(t *testing.T) {
	var buf bytes.Buffer

	logger := logging.NewLogger(&logging.LoggerConfig{Level: logging.LogLevelDebug, Format: "json", Output: &buf})
	m, _ := newTestMap(t, func(o *sessionmap.Options) { o.Logger = logger })

	require.NoError(t, m.RemoveSession(m.GetOrAddSession(core.ClientName(5))))

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "session removed", entry["msg"])
	assert.Equal(t, "client.5", entry["client"])
}
