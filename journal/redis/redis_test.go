package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hupe1980/mdsession/journal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ journal.Store = (*Store)(nil)

func newTestStore(t *testing.T, key string) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), Options{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return New(client, key), mr
}

func TestStore_MissingKey(t *testing.T) {
	s, _ := newTestStore(t, "")
	assert.Equal(t, DefaultKey, s.Key())

	_, err := s.Read(context.Background())
	assert.ErrorIs(t, err, journal.ErrNotFound)
}

func TestStore_WriteRead(t *testing.T) {
	s, mr := newTestStore(t, "mds.a:sessionmap")
	ctx := context.Background()

	require.NoError(t, s.Write(ctx, []byte(`{"version":1}`)))
	require.NoError(t, s.Write(ctx, []byte(`{"version":2}`)))

	got, err := s.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, string(got))

	raw, err := mr.Get("mds.a:sessionmap")
	require.NoError(t, err)
	assert.Equal(t, `{"version":2}`, raw)
	assert.Zero(t, mr.TTL("mds.a:sessionmap"))
}

func TestStore_ServerDown(t *testing.T) {
	s, mr := newTestStore(t, "k")
	mr.Close()

	err := s.Write(context.Background(), []byte("x"))
	assert.Error(t, err)
}

func TestNewClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), Options{Address: addr})
	assert.Error(t, err)
}
