package journal

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ Store = (*InMemoryStore)(nil)
	_ Store = (*RetryingStore)(nil)
)

func TestInMemoryStore_ReadBeforeWrite(t *testing.T) {
	s := NewInMemoryStore()
	_, err := s.Read(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_CopiesData(t *testing.T) {
	s := NewInMemoryStore()
	blob := []byte("table-v1")
	require.NoError(t, s.Write(context.Background(), blob))
	blob[0] = 'X'

	got, err := s.Read(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "table-v1", string(got))

	got[0] = 'Y'
	again, _ := s.Read(context.Background())
	assert.Equal(t, "table-v1", string(again))
	assert.Equal(t, 1, s.Writes())
}

func TestInMemoryStore_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, NewInMemoryStore().Write(ctx, nil), context.Canceled)
}

// flakyStore fails the first n calls of each kind.
type flakyStore struct {
	inner    Store
	failures int32
	calls    int32
}

func (f *flakyStore) Read(ctx context.Context) ([]byte, error) {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return nil, errors.New("transient read")
	}
	return f.inner.Read(ctx)
}

func (f *flakyStore) Write(ctx context.Context, data []byte) error {
	if atomic.AddInt32(&f.calls, 1) <= f.failures {
		return errors.New("transient write")
	}
	return f.inner.Write(ctx, data)
}

var fastRetry = RetryConfig{MaxRetries: 3, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}

func TestRetryingStore_RetriesTransientWrites(t *testing.T) {
	mem := NewInMemoryStore()
	flaky := &flakyStore{inner: mem, failures: 2}
	s := NewRetryingStore(flaky, fastRetry, nil)

	require.NoError(t, s.Write(context.Background(), []byte("blob")))
	assert.EqualValues(t, 3, atomic.LoadInt32(&flaky.calls))
	assert.Equal(t, 1, mem.Writes())
}

func TestRetryingStore_GivesUp(t *testing.T) {
	flaky := &flakyStore{inner: NewInMemoryStore(), failures: 100}
	s := NewRetryingStore(flaky, fastRetry, nil)

	err := s.Write(context.Background(), []byte("blob"))
	require.Error(t, err)
	assert.EqualValues(t, 4, atomic.LoadInt32(&flaky.calls), "one attempt plus MaxRetries")
}

func TestRetryingStore_NotFoundIsPermanent(t *testing.T) {
	flaky := &flakyStore{inner: NewInMemoryStore()}
	s := NewRetryingStore(flaky, fastRetry, nil)

	_, err := s.Read(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.EqualValues(t, 1, atomic.LoadInt32(&flaky.calls))
}
