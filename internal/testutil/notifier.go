package testutil

import (
	"slices"
	"sync"

	"github.com/hupe1980/mdsession/core"
)

// PushEvent is one recorded push sequence increment.
type PushEvent struct {
	Client core.EntityName
	Seq    uint64
}

// RecordingNotifier records every cap notification.
type RecordingNotifier struct {
	mu       sync.Mutex
	pushes   []PushEvent
	released map[core.EntityName][]core.InodeNo
}

var _ core.CapNotifier = (*RecordingNotifier)(nil)

// NewRecordingNotifier returns an empty recorder.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{released: make(map[core.EntityName][]core.InodeNo)}
}

func (r *RecordingNotifier) PushSeqAdvanced(client core.EntityName, seq uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.pushes = append(r.pushes, PushEvent{Client: client, Seq: seq})
}

func (r *RecordingNotifier) ReleaseCaps(client core.EntityName, inodes []core.InodeNo) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.released[client] = append(r.released[client], inodes...)
}

// Pushes returns the recorded increments in call order.
func (r *RecordingNotifier) Pushes() []PushEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.pushes)
}

// Released returns the inodes released for client.
func (r *RecordingNotifier) Released(client core.EntityName) ([]core.InodeNo, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inodes, ok := r.released[client]

	return slices.Clone(inodes), ok
}
