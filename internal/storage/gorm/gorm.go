// Package gormstorage implements storage.Backend on any gorm database.
// Wars are written immediately; actions and checkpoints are queued and
// written in batches by a background goroutine.
package gormstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/tinywars/warcore/internal/model"
	"github.com/tinywars/warcore/internal/model/convert"
	"github.com/tinywars/warcore/internal/queue"
	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/pkg/core"
)

// DefaultFlushInterval is used when Dependencies.FlushInterval is zero.
const DefaultFlushInterval = 2 * time.Second

type Dependencies struct {
	DB            *gorm.DB
	Logger        zerolog.Logger
	FlushInterval time.Duration
	// Now stamps records. Defaults to time.Now.
	Now func() time.Time
}

type queues struct {
	Actions     *queue.Queue[model.WarAction]
	CheckPoints *queue.Queue[model.CheckPoint]
}

// Stats reports the state of the write queues.
type Stats struct {
	QueuedActions     int
	QueuedCheckPoints int
	LastWriteDuration time.Duration
}

// Backend implements storage.Backend on gorm with queue-based batch writes.
type Backend struct {
	deps   Dependencies
	queues *queues

	mu      sync.Mutex
	next    map[int64]int // next action id of each war being recorded
	flushMu sync.Mutex

	lastWrite atomic.Int64
	stopChan  chan struct{}
	done      chan struct{}
}

func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Backend{
		deps:   deps,
		queues: &queues{Actions: queue.New[model.WarAction](), CheckPoints: queue.New[model.CheckPoint]()},
		next:   make(map[int64]int),
	}
}

// DB returns the database the backend writes to.
func (b *Backend) DB() *gorm.DB { return b.deps.DB }

// Init migrates the schema and starts the writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("gorm storage: no database")
	}
	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.stopChan = make(chan struct{})
	b.done = make(chan struct{})
	go b.writeLoop()
	return nil
}

// Close stops the writer and writes whatever is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	close(b.stopChan)
	<-b.done
	b.stopChan = nil
	return b.Flush()
}

// StartWar inserts the war row. A previous record of the same war is
// replaced unless it is still being recorded.
func (b *Backend) StartWar(snapshot *core.SerializedWar) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.next[snapshot.WarID]; ok {
		return fmt.Errorf("war %d is already being recorded", snapshot.WarID)
	}

	w, err := convert.CoreToWar(snapshot, b.deps.Now())
	if err != nil {
		return err
	}
	err = b.deps.DB.Transaction(func(tx *gorm.DB) error {
		for _, m := range []any{&model.WarAction{}, &model.CheckPoint{}, &model.WarPlayer{}} {
			if err := tx.Where("war_id = ?", w.ID).Delete(m).Error; err != nil {
				return err
			}
		}
		if err := tx.Delete(&model.War{}, w.ID).Error; err != nil {
			return err
		}
		return tx.Create(&w).Error
	})
	if err != nil {
		return fmt.Errorf("failed to insert war %d: %w", snapshot.WarID, err)
	}
	b.next[snapshot.WarID] = snapshot.NextActionID
	b.deps.Logger.Debug().Int64("warId", snapshot.WarID).Int("nextActionId", snapshot.NextActionID).Msg("Recording war")
	return nil
}

// RecordAction converts c and queues it.
func (b *Backend) RecordAction(warID int64, c *core.ActionContainer) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	want, ok := b.next[warID]
	if !ok {
		return fmt.Errorf("record war %d: %w", warID, storage.ErrNotFound)
	}
	if c.ActionID != want {
		return fmt.Errorf("war %d: recorded action %d, expected %d", warID, c.ActionID, want)
	}
	a, err := convert.CoreToWarAction(warID, c, b.deps.Now())
	if err != nil {
		return err
	}
	b.queues.Actions.Push(a)
	b.next[warID] = want + 1
	return nil
}

func (b *Backend) RecordCheckPoint(warID int64, cp *core.ReplayCheckPoint) error {
	b.mu.Lock()
	_, ok := b.next[warID]
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("record war %d: %w", warID, storage.ErrNotFound)
	}
	m, err := convert.CoreToCheckPoint(warID, cp, b.deps.Now())
	if err != nil {
		return err
	}
	b.queues.CheckPoints.Push(m)
	return nil
}

// EndWar writes the queued records and then the result of the war.
func (b *Backend) EndWar(warID int64, result storage.WarResult) error {
	b.mu.Lock()
	_, ok := b.next[warID]
	delete(b.next, warID)
	b.mu.Unlock()
	if !ok {
		return fmt.Errorf("end war %d: %w", warID, storage.ErrNotFound)
	}

	if err := b.Flush(); err != nil {
		return err
	}
	if result.EndedAt.IsZero() {
		result.EndedAt = b.deps.Now()
	}
	err := b.deps.DB.Model(&model.War{}).Where("id = ?", warID).Updates(map[string]any{
		"outcome":        result.Outcome,
		"next_action_id": result.NextActionID,
		"ended_at":       sql.NullTime{Time: result.EndedAt, Valid: true},
	}).Error
	if err != nil {
		return fmt.Errorf("failed to end war %d: %w", warID, err)
	}
	return nil
}

// LoadReplay reads the start snapshot and every written action of warID.
// Records still queued are not included.
func (b *Backend) LoadReplay(ctx context.Context, warID int64) (*core.ReplayData, error) {
	db := b.deps.DB.WithContext(ctx)
	var w model.War
	if err := db.First(&w, warID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("load war %d: %w", warID, storage.ErrNotFound)
		}
		return nil, fmt.Errorf("load war %d: %w", warID, err)
	}
	var actions []model.WarAction
	if err := db.Where("war_id = ?", warID).Order("action_id").Find(&actions).Error; err != nil {
		return nil, fmt.Errorf("load actions of war %d: %w", warID, err)
	}
	return convert.ToReplayData(w, actions)
}

// LoadCheckPoints returns the stored checkpoints of warID in action order.
func (b *Backend) LoadCheckPoints(ctx context.Context, warID int64) ([]core.ReplayCheckPoint, error) {
	var rows []model.CheckPoint
	if err := b.deps.DB.WithContext(ctx).Where("war_id = ?", warID).Order("action_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load checkpoints of war %d: %w", warID, err)
	}
	points := make([]core.ReplayCheckPoint, 0, len(rows))
	for _, row := range rows {
		cp, err := convert.CheckPointToCore(row)
		if err != nil {
			return nil, err
		}
		points = append(points, cp)
	}
	return points, nil
}

// Flush writes everything queued so far.
func (b *Backend) Flush() error {
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	errs := []error{
		writeQueue(b.deps.DB, b.queues.Actions, "war actions", b.deps.Logger),
		writeQueue(b.deps.DB, b.queues.CheckPoints, "checkpoints", b.deps.Logger),
	}
	b.lastWrite.Store(int64(time.Since(start)))
	return errors.Join(errs...)
}

func (b *Backend) Stats() Stats {
	return Stats{
		QueuedActions:     b.queues.Actions.Len(),
		QueuedCheckPoints: b.queues.CheckPoints.Len(),
		LastWriteDuration: time.Duration(b.lastWrite.Load()),
	}
}

// writeQueue writes all items of q in one transaction, putting them back
// on failure.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger) error {
	if q.Empty() {
		return nil
	}
	items := q.GetAndEmpty()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Create(&items).Error
	})
	if err != nil {
		log.Error().Err(err).Int("count", len(items)).Msgf("Error creating %s", name)
		q.Push(items...)
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}

func (b *Backend) writeLoop() {
	defer close(b.done)
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			// failures are logged by writeQueue and retried next tick
			_ = b.Flush()
		}
	}
}
