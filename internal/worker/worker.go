// Package worker connects a session to everything that watches it: war
// records go to storage, metrics to InfluxDB, snapshots to the spectator
// hub, and finished replays to the web server.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/influx"
	"github.com/tinywars/warcore/internal/queue"
	"github.com/tinywars/warcore/internal/session"
	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
	"github.com/tinywars/warcore/pkg/protocol"
)

// Outcomes recorded for wars that stop being recorded without ending.
const (
	OutcomeResynced    = "resynced"
	OutcomeInterrupted = "interrupted"
)

// Sender writes requests to the upstream game server.
type Sender interface {
	Send(ctx context.Context, code protocol.Code, payload any) error
}

// Broadcaster pushes the war to spectators. It is called on the session
// goroutine and must copy what it keeps.
type Broadcaster interface {
	PublishWar(w *war.War, applied *core.ActionCode)
}

// Uploader sends exported replay files to the web server.
type Uploader interface {
	Upload(filePath string, meta storage.UploadMetadata) error
}

// Dependencies holds all dependencies for the worker manager. Engine,
// Maps and Configs are required.
type Dependencies struct {
	Engine   *action.Engine
	Maps     war.MapProvider
	Configs  war.ConfigProvider
	Upstream Sender
	Backend  storage.Backend
	Influx   *influx.Manager
	Hub      Broadcaster
	Uploader Uploader
	Logger   *slog.Logger
	Now      func() time.Time
}

type op struct {
	name string
	run  func() error
}

// Manager owns the session and mirrors its wars.
type Manager struct {
	deps    Dependencies
	session *session.Session
	logger  *slog.Logger

	// session goroutine only
	playerIndex int
	recording   map[int64]int

	ops  *queue.Queue[op]
	wake chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once

	inWar   atomic.Bool
	warID   atomic.Int64
	next    atomic.Int64
	pending atomic.Int64
}

// NewManager creates the manager with its session and starts the storage
// goroutine.
func NewManager(deps Dependencies) (*Manager, error) {
	if deps.Engine == nil || deps.Maps == nil || deps.Configs == nil {
		return nil, errors.New("worker needs an engine, a map provider and a config provider")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	m := &Manager{
		deps:      deps,
		logger:    deps.Logger,
		recording: make(map[int64]int),
		ops:       queue.New[op](),
		wake:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	s, err := session.New(session.NewContext(), deps.Engine, m, resyncer{m}, m.load, deps.Logger)
	if err != nil {
		return nil, err
	}
	s.Observe(m)
	m.session = s

	go m.run()
	return m, nil
}

func (m *Manager) Session() *session.Session { return m.session }

// CurrentWar reports the war being played. Safe from any goroutine.
func (m *Manager) CurrentWar() (warID int64, nextActionID int, ok bool) {
	if !m.inWar.Load() {
		return 0, 0, false
	}
	return m.warID.Load(), int(m.next.Load()), true
}

// PendingWrites is the number of storage and metric writes not yet done.
func (m *Manager) PendingWrites() int { return int(m.pending.Load()) }

func (m *Manager) load(ctx context.Context, data *core.SerializedWar) (*war.War, error) {
	return war.Load(ctx, data, m.deps.Maps, m.deps.Configs, war.Options{
		Mode:                war.ModeReplay,
		LoggedInPlayerIndex: m.playerIndex,
		Factory:             war.ReplayFactory{},
		Now:                 m.deps.Now,
	})
}

func (m *Manager) enqueue(name string, run func() error) {
	m.pending.Add(1)
	m.ops.Push(op{name: name, run: run})
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) run() {
	defer close(m.done)
	for {
		m.drainOps()
		select {
		case <-m.wake:
		case <-m.stop:
			m.drainOps()
			return
		}
	}
}

func (m *Manager) drainOps() {
	for {
		o, ok := m.ops.Pop()
		if !ok {
			return
		}
		if err := o.run(); err != nil {
			m.logger.Error("worker write failed", "op", o.name, "error", err)
		}
		m.pending.Add(-1)
	}
}

func (m *Manager) writePoints(points ...*influxdb2_write.Point) {
	if m.deps.Influx == nil || len(points) == 0 {
		return
	}
	m.enqueue("influx", func() error {
		var errs []error
		for _, p := range points {
			errs = append(errs, m.deps.Influx.WritePoint(context.Background(), influx.BucketWarData, p))
		}
		return errors.Join(errs...)
	})
}

func (m *Manager) track(w *war.War) {
	m.warID.Store(w.WarID())
	m.next.Store(int64(w.NextActionID()))
	m.inWar.Store(true)
}

// WarEntered starts a record for w. A record already open at the same
// position keeps going; one at another position is closed first.
func (m *Manager) WarEntered(_ context.Context, w *war.War) {
	m.track(w)
	snapshot := w.Serialize()
	now := m.deps.Now()

	if next, ok := m.recording[w.WarID()]; ok {
		if next == snapshot.NextActionID {
			m.logger.Debug("continuing war record", "warId", w.WarID(), "nextActionId", next)
			m.publish(w, nil)
			return
		}
		m.endRecord(w.WarID(), OutcomeResynced, next, now)
	}
	m.recording[w.WarID()] = snapshot.NextActionID
	if b := m.deps.Backend; b != nil {
		m.enqueue("start war", func() error { return b.StartWar(snapshot) })
	}
	m.writePoints(influx.TurnPoints(w, now)...)
	m.publish(w, nil)
}

// ActionApplied records c. A turn start after it also stores a checkpoint.
func (m *Manager) ActionApplied(_ context.Context, w *war.War, c *core.ActionContainer) {
	m.track(w)
	now := m.deps.Now()
	warID := w.WarID()
	if _, ok := m.recording[warID]; ok {
		m.recording[warID] = c.ActionID + 1
		if b := m.deps.Backend; b != nil {
			recorded := *c
			m.enqueue("record action", func() error { return b.RecordAction(warID, &recorded) })
			if w.Turn().PhaseCode() == core.TurnPhaseWaitBeginTurn {
				cp := core.ReplayCheckPoint{ActionID: w.NextActionID(), Snapshot: *w.Serialize()}
				m.enqueue("record checkpoint", func() error { return b.RecordCheckPoint(warID, &cp) })
			}
		}
	}

	points := []*influxdb2_write.Point{influx.ActionPoint(w, c, now)}
	if w.Turn().PhaseCode() == core.TurnPhaseWaitBeginTurn {
		points = append(points, influx.TurnPoints(w, now)...)
	}
	m.writePoints(points...)

	code := c.Code()
	m.publish(w, &code)
}

// WarEnded closes the record of w and uploads its export.
func (m *Manager) WarEnded(_ context.Context, w *war.War, outcome session.Outcome) {
	m.track(w)
	now := m.deps.Now()
	if _, ok := m.recording[w.WarID()]; ok {
		m.endRecord(w.WarID(), outcome.String(), w.NextActionID(), now)
	}
	m.writePoints(influx.OutcomePoint(w, outcome.String(), now))
	m.publish(w, nil)
}

func (m *Manager) endRecord(warID int64, outcome string, next int, at time.Time) {
	delete(m.recording, warID)
	b := m.deps.Backend
	if b == nil {
		return
	}
	result := storage.WarResult{Outcome: outcome, NextActionID: next, EndedAt: at}
	m.enqueue("end war", func() error {
		if err := b.EndWar(warID, result); err != nil {
			return err
		}
		return m.upload(warID)
	})
}

func (m *Manager) upload(warID int64) error {
	u, ok := m.deps.Backend.(storage.Uploadable)
	if !ok || m.deps.Uploader == nil {
		return nil
	}
	path, ok := u.ExportedFilePath(warID)
	if !ok {
		return nil
	}
	if err := m.deps.Uploader.Upload(path, u.ExportMetadata(warID)); err != nil {
		return fmt.Errorf("upload war %d: %w", warID, err)
	}
	m.logger.Info("replay uploaded", "warId", warID, "path", path)
	return nil
}

func (m *Manager) publish(w *war.War, applied *core.ActionCode) {
	if m.deps.Hub != nil {
		m.deps.Hub.PublishWar(w, applied)
	}
}

// ShowOutcome implements session.Lobby.
func (m *Manager) ShowOutcome(_ context.Context, warID int64, outcome session.Outcome) {
	m.logger.Info("war outcome", "warId", warID, "outcome", outcome.String())
}

// GotoLobby implements session.Lobby. The war stays loaded for spectators
// until the next one is entered.
func (m *Manager) GotoLobby(context.Context) {
	m.inWar.Store(false)
}

// Notice implements session.Lobby.
func (m *Manager) Notice(_ context.Context, warID int64, notice session.Notice) {
	switch notice {
	case session.NoticeReloaded:
		m.logger.Warn("war reloaded from the server", "warId", warID)
	case session.NoticeSynchronized:
		m.logger.Info("war synchronized", "warId", warID)
	}
}

type resyncer struct{ m *Manager }

func (r resyncer) RequestSyncWar(ctx context.Context, req core.SyncWarRequest) error {
	if r.m.deps.Upstream == nil {
		return errors.New("no upstream connection to request a sync from")
	}
	return r.m.deps.Upstream.Send(ctx, protocol.C_McwPlayerSyncWar, req)
}

// Close ends every open record as interrupted, then waits for the
// pending writes. The dispatcher feeding the session must be closed first.
func (m *Manager) Close() {
	m.once.Do(func() {
		now := m.deps.Now()
		for warID, next := range m.recording {
			m.endRecord(warID, OutcomeInterrupted, next, now)
		}
		close(m.stop)
		<-m.done
	})
}
