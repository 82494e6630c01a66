// Package websocket streams war records to a web server over a websocket.
// The server acknowledges start_war and end_war; actions and checkpoints
// are fire-and-forget.
package websocket

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/pkg/core"
	"github.com/tinywars/warcore/pkg/protocol"
)

type Config struct {
	URL    string
	Secret string
}

// Backend implements storage.Backend but not storage.ReplayLoader.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates the backend. A nil logger uses slog.Default.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("sink", cfg.URL)),
		cfg:  cfg,
	}
}

// Init connects to the sink.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

func (b *Backend) Close() error {
	return b.conn.close()
}

func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(protocol.StreamEnvelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.send(data)
}

// StartWar sends the snapshot and waits for the ack. The message is kept
// and resent after a reconnect until the war ends.
func (b *Backend) StartWar(snapshot *core.SerializedWar) error {
	data, err := marshalEnvelope(protocol.TypeStartWar, protocol.StartWarPayload{Snapshot: snapshot})
	if err != nil {
		return err
	}
	b.conn.mu.Lock()
	b.conn.starts[snapshot.WarID] = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, protocol.TypeStartWar, ackTimeout)
}

func (b *Backend) RecordAction(warID int64, c *core.ActionContainer) error {
	return b.sendEnvelope(protocol.TypeWarAction, core.WarAction{WarID: warID, ActionContainer: *c})
}

func (b *Backend) RecordCheckPoint(warID int64, cp *core.ReplayCheckPoint) error {
	return b.sendEnvelope(protocol.TypeCheckPoint, protocol.CheckPointPayload{WarID: warID, CheckPoint: *cp})
}

// EndWar sends end_war and waits for the ack.
func (b *Backend) EndWar(warID int64, result storage.WarResult) error {
	if result.EndedAt.IsZero() {
		result.EndedAt = time.Now()
	}
	data, err := marshalEnvelope(protocol.TypeEndWar, protocol.EndWarPayload{
		WarID:        warID,
		Outcome:      result.Outcome,
		NextActionID: result.NextActionID,
	})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, protocol.TypeEndWar, ackTimeout)

	b.conn.mu.Lock()
	delete(b.conn.starts, warID)
	b.conn.mu.Unlock()
	return err
}
