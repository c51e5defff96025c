package testutil

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/hupe1980/mdsession/journal"
)

// TB is the subset of testing.TB the helpers need.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
}

// DefaultWait bounds how long NextWrite and NextRead wait for I/O.
const DefaultWait = 2 * time.Second

// PendingWrite is a Write blocked until Ack.
type PendingWrite struct {
	Data []byte
	done chan error
}

// Ack completes the write with err.
func (p *PendingWrite) Ack(err error) { p.done <- err }

// PendingRead is a Read blocked until Reply.
type PendingRead struct {
	done chan readResult
}

type readResult struct {
	data []byte
	err  error
}

// Reply completes the read.
func (p *PendingRead) Reply(data []byte, err error) { p.done <- readResult{data: data, err: err} }

// ManualStore is a journal.Store whose operations complete only when the
// test acknowledges them, which makes in-flight states observable.
type ManualStore struct {
	writes chan *PendingWrite
	reads  chan *PendingRead

	mu     sync.Mutex
	stored []byte
}

var _ journal.Store = (*ManualStore)(nil)

// NewManualStore returns an empty store.
func NewManualStore() *ManualStore {
	return &ManualStore{
		writes: make(chan *PendingWrite, 16),
		reads:  make(chan *PendingRead, 16),
	}
}

// Read implements journal.Store.
func (s *ManualStore) Read(ctx context.Context) ([]byte, error) {
	p := &PendingRead{done: make(chan readResult, 1)}
	s.reads <- p

	select {
	case r := <-p.done:
		return r.data, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Write implements journal.Store. Acknowledged blobs become Stored.
func (s *ManualStore) Write(ctx context.Context, data []byte) error {
	p := &PendingWrite{Data: bytes.Clone(data), done: make(chan error, 1)}
	s.writes <- p

	select {
	case err := <-p.done:
		if err == nil {
			s.mu.Lock()
			s.stored = p.Data
			s.mu.Unlock()
		}

		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stored returns the last acknowledged blob.
func (s *ManualStore) Stored() []byte {
	s.mu.Lock()
	defer s.mu.Unlock()

	return bytes.Clone(s.stored)
}

// NextWrite waits for the next issued write.
func (s *ManualStore) NextWrite(t TB) *PendingWrite {
	t.Helper()

	select {
	case p := <-s.writes:
		return p
	case <-time.After(DefaultWait):
		t.Fatalf("no store write issued within %s", DefaultWait)
		return nil
	}
}

// NextRead waits for the next issued read.
func (s *ManualStore) NextRead(t TB) *PendingRead {
	t.Helper()

	select {
	case p := <-s.reads:
		return p
	case <-time.After(DefaultWait):
		t.Fatalf("no store read issued within %s", DefaultWait)
		return nil
	}
}

// AssertNoWrite fails t if a write is issued within wait.
func (s *ManualStore) AssertNoWrite(t TB, wait time.Duration) {
	t.Helper()

	select {
	case p := <-s.writes:
		t.Fatalf("unexpected store write of %d bytes", len(p.Data))
	case <-time.After(wait):
	}
}

// AssertNoRead fails t if a read is issued within wait.
func (s *ManualStore) AssertNoRead(t TB, wait time.Duration) {
	t.Helper()

	select {
	case <-s.reads:
		t.Fatalf("unexpected store read")
	case <-time.After(wait):
	}
}
