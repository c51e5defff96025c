package codec

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"
	"github.com/hupe1980/mdsession/core"
	"github.com/kaptinlin/jsonschema"
)

// ErrInvalidTable is returned when a blob or table does not match the
// persisted layout.
var ErrInvalidTable = errors.New("codec: invalid session table")

//go:embed table.schema.json
var tableSchema []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

// Record is the persisted form of one session.
type Record struct {
	Name      core.EntityName `json:"name"`
	Addr      string          `json:"addr"`
	PushSeq   uint64          `json:"push_seq"`
	Completed []uint64        `json:"completed"`
}

// Inst returns the identity and address of the record.
func (r Record) Inst() core.EntityInst { return core.EntityInst{Name: r.Name, Addr: r.Addr} }

// Table is the persisted form of the whole session table as of Version.
type Table struct {
	Version   core.Version `json:"version"`
	BackingID uuid.UUID    `json:"backing_id"`
	Sessions  []Record     `json:"sessions"`
}

// BackingRecord describes where the table lives and what was last written
// there. Only the ID travels inside the blob; size and checksum describe the
// blob itself.
type BackingRecord struct {
	ID       uuid.UUID
	Size     int64
	Checksum string
}

// NewBackingRecord returns a record with a fresh identity.
func NewBackingRecord() BackingRecord { return BackingRecord{ID: uuid.New()} }

// Encode serialises t. Sessions are written sorted by name and tids
// ascending regardless of the order in t.
func Encode(t Table) ([]byte, error) {
	norm := Table{Version: t.Version, BackingID: t.BackingID, Sessions: make([]Record, 0, len(t.Sessions))}
	for _, r := range t.Sessions {
		completed := slices.Clone(r.Completed)
		if completed == nil {
			completed = []uint64{}
		}
		slices.Sort(completed)
		norm.Sessions = append(norm.Sessions, Record{Name: r.Name, Addr: r.Addr, PushSeq: r.PushSeq, Completed: completed})
	}
	slices.SortFunc(norm.Sessions, func(a, b Record) int {
		switch {
		case a.Name.Less(b.Name):
			return -1
		case b.Name.Less(a.Name):
			return 1
		default:
			return 0
		}
	})

	raw, err := json.Marshal(norm)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	if err := validate(raw); err != nil {
		return nil, err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize session table: %w", err)
	}
	return canonical, nil
}

// Decode parses a blob produced by Encode.
func Decode(data []byte) (Table, error) {
	if !json.Valid(data) {
		return Table{}, fmt.Errorf("%w: malformed json", ErrInvalidTable)
	}
	if err := validate(data); err != nil {
		return Table{}, err
	}
	var t Table
	if err := json.Unmarshal(data, &t); err != nil {
		return Table{}, fmt.Errorf("%w: %v", ErrInvalidTable, err)
	}
	seen := make(map[core.EntityName]struct{}, len(t.Sessions))
	for _, r := range t.Sessions {
		if _, dup := seen[r.Name]; dup {
			return Table{}, fmt.Errorf("%w: duplicate session %s", ErrInvalidTable, r.Name)
		}
		seen[r.Name] = struct{}{}
	}
	return t, nil
}

// Checksum returns the hex sha256 of an encoded blob.
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func validate(data []byte) error {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiledSchema, schemaErr = compiler.Compile(tableSchema)
	})
	if schemaErr != nil {
		return fmt.Errorf("compile session table schema: %w", schemaErr)
	}
	result := compiledSchema.ValidateJSON(data)
	if result.IsValid() {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrInvalidTable, result.Errors)
}
