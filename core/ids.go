package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Version numbers a state of the session table. Zero means "nothing yet".
type Version uint64

// EntityType classifies the peer behind an EntityName.
type EntityType int

const (
	EntityMon EntityType = iota + 1
	EntityMDS
	EntityOSD
	EntityClient
)

// String returns the short type name used in entity names ("client", "mds", ...).
func (t EntityType) String() string {
	switch t {
	case EntityMon:
		return "mon"
	case EntityMDS:
		return "mds"
	case EntityOSD:
		return "osd"
	case EntityClient:
		return "client"
	default:
		return "unknown"
	}
}

// ParseEntityType is the inverse of EntityType.String.
func ParseEntityType(s string) (EntityType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mon":
		return EntityMon, nil
	case "mds":
		return EntityMDS, nil
	case "osd":
		return EntityOSD, nil
	case "client":
		return EntityClient, nil
	default:
		return 0, fmt.Errorf("unknown entity type %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (t EntityType) MarshalText() ([]byte, error) {
	if t < EntityMon || t > EntityClient {
		return nil, fmt.Errorf("invalid entity type %d", int(t))
	}
	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *EntityType) UnmarshalText(b []byte) error {
	v, err := ParseEntityType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// EntityName is the stable identity of a peer and the key of the session
// table. It never changes while a Session for it exists. Num travels as a
// decimal string in JSON so every int64 survives canonicalisation.
type EntityName struct {
	Type EntityType `json:"type"`
	Num  int64      `json:"num,string"`
}

// ClientName returns the entity name of filesystem client n.
func ClientName(n int64) EntityName { return EntityName{Type: EntityClient, Num: n} }

// IsClient reports whether the name belongs to a filesystem client.
func (n EntityName) IsClient() bool { return n.Type == EntityClient }

// String renders the name as "<type>.<num>", e.g. "client.4".
func (n EntityName) String() string { return n.Type.String() + "." + strconv.FormatInt(n.Num, 10) }

// Less orders names by type, then number.
func (n EntityName) Less(o EntityName) bool {
	if n.Type != o.Type {
		return n.Type < o.Type
	}
	return n.Num < o.Num
}

// EntityInst couples an identity with its current network address. The
// address may change across reconnects.
type EntityInst struct {
	Name EntityName `json:"name"`
	Addr string     `json:"addr"`
}

// RequestID identifies one metadata request of one client.
type RequestID struct {
	Name EntityName
	Tid  uint64
}

// String renders the id as "<name>:<tid>".
func (r RequestID) String() string { return r.Name.String() + ":" + strconv.FormatUint(r.Tid, 10) }

// InodeNo is an inode number; the session refers to cached inodes only by number.
type InodeNo uint64
