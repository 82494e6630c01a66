// Package memory keeps war records in memory and exports each finished war
// as a JSON replay file.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/tinywars/warcore/internal/config"
	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/pkg/core"
)

// WarRecord groups a war with everything recorded for it.
type WarRecord struct {
	Snapshot    core.SerializedWar
	StartedAt   time.Time
	Actions     []core.ActionContainer
	CheckPoints []core.ReplayCheckPoint
	Result      *storage.WarResult
	ExportPath  string
}

func (r *WarRecord) nextActionID() int {
	return r.Snapshot.NextActionID + len(r.Actions)
}

// Backend stores war records in memory and exports them to JSON.
type Backend struct {
	cfg  config.MemoryConfig
	wars map[int64]*WarRecord
	now  func() time.Time
	mu   sync.RWMutex
}

func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:  cfg,
		wars: make(map[int64]*WarRecord),
		now:  time.Now,
	}
}

func (b *Backend) Init() error {
	return nil
}

func (b *Backend) Close() error {
	return nil
}

// StartWar begins recording. A finished war with the same id is replaced.
func (b *Backend) StartWar(snapshot *core.SerializedWar) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rec, ok := b.wars[snapshot.WarID]; ok && rec.Result == nil {
		return fmt.Errorf("war %d is already being recorded", snapshot.WarID)
	}
	b.wars[snapshot.WarID] = &WarRecord{
		Snapshot:  *snapshot,
		StartedAt: b.now(),
	}
	return nil
}

func (b *Backend) recording(warID int64) (*WarRecord, error) {
	rec, ok := b.wars[warID]
	if !ok {
		return nil, fmt.Errorf("record war %d: %w", warID, storage.ErrNotFound)
	}
	if rec.Result != nil {
		return nil, fmt.Errorf("war %d has ended", warID)
	}
	return rec, nil
}

// RecordAction appends c, which must carry the next action id of the war.
func (b *Backend) RecordAction(warID int64, c *core.ActionContainer) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.recording(warID)
	if err != nil {
		return err
	}
	if want := rec.nextActionID(); c.ActionID != want {
		return fmt.Errorf("war %d: recorded action %d, expected %d", warID, c.ActionID, want)
	}
	rec.Actions = append(rec.Actions, *c)
	return nil
}

func (b *Backend) RecordCheckPoint(warID int64, cp *core.ReplayCheckPoint) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.recording(warID)
	if err != nil {
		return err
	}
	rec.CheckPoints = append(rec.CheckPoints, *cp)
	return nil
}

// EndWar finalizes the record and writes the replay file.
func (b *Backend) EndWar(warID int64, result storage.WarResult) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec, err := b.recording(warID)
	if err != nil {
		return err
	}
	if result.EndedAt.IsZero() {
		result.EndedAt = b.now()
	}
	rec.Result = &result
	return b.exportJSON(rec)
}

// LoadReplay returns the actions recorded so far, also for a running war.
func (b *Backend) LoadReplay(_ context.Context, warID int64) (*core.ReplayData, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.wars[warID]
	if !ok {
		return nil, fmt.Errorf("load war %d: %w", warID, storage.ErrNotFound)
	}
	return core.NewReplayData(rec.Snapshot, append([]core.ActionContainer(nil), rec.Actions...))
}

// Record returns a copy of the record of warID.
func (b *Backend) Record(warID int64) (WarRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.wars[warID]
	if !ok {
		return WarRecord{}, false
	}
	return *rec, true
}

// ExportedFilePath returns the replay file written when warID ended.
func (b *Backend) ExportedFilePath(warID int64) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.wars[warID]
	if !ok || rec.ExportPath == "" {
		return "", false
	}
	return rec.ExportPath, true
}

func (b *Backend) ExportMetadata(warID int64) storage.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.wars[warID]
	if !ok {
		return storage.UploadMetadata{WarID: warID}
	}
	meta := storage.UploadMetadata{
		WarID:        warID,
		WarName:      rec.Snapshot.WarName,
		MapFileName:  rec.Snapshot.MapFileName,
		ActionsCount: len(rec.Actions),
	}
	if rec.Result != nil {
		meta.Outcome = rec.Result.Outcome
		meta.Duration = rec.Result.EndedAt.Sub(rec.StartedAt)
	}
	return meta
}
