package testutil

import (
	"github.com/google/uuid"

	"github.com/hupe1980/mdsession/codec"
	"github.com/hupe1980/mdsession/core"
)

// TableBuilder helps construct persisted tables with fluent chaining.
// Example:
//
//	blob := NewTableBuilder(7).Client(4, "10.0.0.4:6800", 3, 10, 11).Encode(t)
type TableBuilder struct {
	table codec.Table
}

// NewTableBuilder starts a table at version v with a fresh backing id.
func NewTableBuilder(v core.Version) *TableBuilder {
	return &TableBuilder{table: codec.Table{Version: v, BackingID: uuid.New()}}
}

// BackingID overrides the backing id (chainable).
func (b *TableBuilder) BackingID(id uuid.UUID) *TableBuilder {
	b.table.BackingID = id
	return b
}

// Client appends a client session record (chainable).
func (b *TableBuilder) Client(num int64, addr string, pushSeq uint64, completed ...uint64) *TableBuilder {
	b.table.Sessions = append(b.table.Sessions, codec.Record{
		Name:      core.ClientName(num),
		Addr:      addr,
		PushSeq:   pushSeq,
		Completed: completed,
	})

	return b
}

// Build returns the table.
func (b *TableBuilder) Build() codec.Table { return b.table }

// Encode returns the canonical blob of the table, failing t on error.
func (b *TableBuilder) Encode(t TB) []byte {
	t.Helper()

	data, err := codec.Encode(b.table)
	if err != nil {
		t.Fatalf("encode table: %v", err)
	}

	return data
}
