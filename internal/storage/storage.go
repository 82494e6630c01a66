// Package storage defines where executed wars are recorded so they can be
// replayed later.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/tinywars/warcore/pkg/core"
)

// ErrNotFound is returned when a backend has no record of a war.
var ErrNotFound = errors.New("war not found in storage")

// Backend is the interface all storage implementations must satisfy.
// Calls for one war arrive in order from a single goroutine.
type Backend interface {
	Init() error
	Close() error

	// StartWar opens the record of a war at the given snapshot.
	StartWar(snapshot *core.SerializedWar) error
	// RecordAction appends an executed action. Ids are consecutive.
	RecordAction(warID int64, c *core.ActionContainer) error
	// RecordCheckPoint stores the state at the start of a turn.
	RecordCheckPoint(warID int64, cp *core.ReplayCheckPoint) error
	// EndWar closes the record. Further records for warID are errors.
	EndWar(warID int64, result WarResult) error
}

// WarResult is how a recorded war finished.
type WarResult struct {
	Outcome      string
	NextActionID int
	EndedAt      time.Time
}

// ReplayLoader is implemented by backends that can read a war back.
type ReplayLoader interface {
	LoadReplay(ctx context.Context, warID int64) (*core.ReplayData, error)
}

// Uploadable is implemented by backends that write a replay file per war
// which the worker then uploads to the web server.
type Uploadable interface {
	ExportedFilePath(warID int64) (string, bool)
	ExportMetadata(warID int64) UploadMetadata
}

// UploadMetadata describes an exported replay file.
type UploadMetadata struct {
	WarID        int64
	WarName      string
	MapFileName  string
	Outcome      string
	ActionsCount int
	Duration     time.Duration
}
