// Package monitor periodically reports what the server is doing: the war
// being played, how far behind storage is and how many spectators watch.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/tinywars/warcore/internal/influx"
	gormstorage "github.com/tinywars/warcore/internal/storage/gorm"
)

// StatusFileName is written in the status directory on every tick.
const StatusFileName = "status.json"

// WarTracker reports the war the session is in.
type WarTracker interface {
	CurrentWar() (warID int64, nextActionID int, ok bool)
}

// QueueStats is implemented by the gorm-backed storage backends.
type QueueStats interface {
	Stats() gormstorage.Stats
}

// ClientCounter is implemented by the spectator hub.
type ClientCounter interface {
	ClientCount() int
}

// Dependencies holds all dependencies for the monitor service. Only
// Logger and Wars are required.
type Dependencies struct {
	Logger    *slog.Logger
	Wars      WarTracker
	Queues    QueueStats
	Clients   ClientCounter
	Influx    *influx.Manager
	StatusDir string
	Interval  time.Duration
}

// Status is one report.
type Status struct {
	Time                time.Time `json:"time"`
	WarID               int64     `json:"warId,omitempty"`
	NextActionID        int       `json:"nextActionId,omitempty"`
	InWar               bool      `json:"inWar"`
	QueuedActions       int       `json:"queuedActions"`
	QueuedCheckPoints   int       `json:"queuedCheckPoints"`
	LastWriteDurationMs float64   `json:"lastWriteDurationMs"`
	SpectatorCount      int       `json:"spectatorCount"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus collects a report.
func (s *Service) GetStatus(now time.Time) Status {
	st := Status{Time: now}
	if warID, next, ok := s.deps.Wars.CurrentWar(); ok {
		st.InWar = true
		st.WarID = warID
		st.NextActionID = next
	}
	if s.deps.Queues != nil {
		stats := s.deps.Queues.Stats()
		st.QueuedActions = stats.QueuedActions
		st.QueuedCheckPoints = stats.QueuedCheckPoints
		st.LastWriteDurationMs = float64(stats.LastWriteDuration) / float64(time.Millisecond)
	}
	if s.deps.Clients != nil {
		st.SpectatorCount = s.deps.Clients.ClientCount()
	}
	return st
}

// Point converts st for the performance bucket.
func (st Status) Point() *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"server_status",
		map[string]string{"inWar": fmt.Sprint(st.InWar)},
		map[string]any{
			"warId":               st.WarID,
			"nextActionId":        st.NextActionID,
			"queuedActions":       st.QueuedActions,
			"queuedCheckPoints":   st.QueuedCheckPoints,
			"lastWriteDurationMs": st.LastWriteDurationMs,
			"spectators":          st.SpectatorCount,
		},
		st.Time,
	)
}

// report writes st to the status file and InfluxDB. Idle ticks outside a
// war only refresh the file.
func (s *Service) report(st Status) {
	logger := s.deps.Logger
	if s.deps.StatusDir != "" {
		data, err := json.MarshalIndent(st, "", "  ")
		if err == nil {
			err = os.WriteFile(filepath.Join(s.deps.StatusDir, StatusFileName), data, 0o644)
		}
		if err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}
	if !st.InWar || s.deps.Influx == nil {
		return
	}
	if err := s.deps.Influx.WritePoint(context.Background(), influx.BucketPerformance, st.Point()); err != nil {
		logger.Error("Error writing status to InfluxDB", "error", err)
	}
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)
		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case now := <-ticker.C:
				s.report(s.GetStatus(now))
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
