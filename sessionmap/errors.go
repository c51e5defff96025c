package sessionmap

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mdsession/core"
)

// ErrCommitInFlight is returned by Load while a table write is in flight.
// Loading is a startup step and must not race a commit.
var ErrCommitInFlight = errors.New("sessionmap: commit in flight")

// Op names the persistence operation an IOError belongs to.
type Op string

const (
	OpLoad Op = "load"
	OpSave Op = "save"
)

// IOError reports a failed load or save. Version is the version the failed
// write carried (zero for loads).
type IOError struct {
	Op      Op
	Version core.Version
	Err     error
}

func (e *IOError) Error() string {
	if e.Op == OpSave {
		return fmt.Sprintf("sessionmap: save of version %d: %v", e.Version, e.Err)
	}
	return fmt.Sprintf("sessionmap: %s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }
