package worker

import (
	"context"
	"fmt"

	"github.com/tinywars/warcore/internal/dispatcher"
	"github.com/tinywars/warcore/internal/storage"
	"github.com/tinywars/warcore/pkg/core"
	"github.com/tinywars/warcore/pkg/protocol"
)

// sessionQueueSize bounds the envelopes waiting for the session goroutine.
const sessionQueueSize = 10_000

// SessionCodes are the upstream messages that drive the session. They
// share one queue so they are applied in arrival order.
func SessionCodes() []protocol.Code {
	return append([]protocol.Code{protocol.S_McrContinueWar, protocol.S_McwPlayerSyncWar}, protocol.ActionResponseCodes()...)
}

// RegisterHandlers registers all event handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	// everything touching the war runs on one goroutine
	d.RegisterShared(SessionCodes(), m.handleSessionEvent,
		dispatcher.Buffered(sessionQueueSize), dispatcher.Blocking(), dispatcher.Logged())

	d.Register(protocol.C_Heartbeat, m.handleHeartbeat)
	d.Register(protocol.C_McrGetReplayData, m.handleGetReplayData, dispatcher.Logged())
	d.Register(protocol.S_Error, m.handleError, dispatcher.Logged())
}

func (m *Manager) handleSessionEvent(ctx context.Context, e dispatcher.Event) (any, error) {
	switch e.Code {
	case protocol.S_McrContinueWar:
		var p protocol.ContinueWarPayload
		if err := e.Decode(&p); err != nil {
			return nil, err
		}
		if p.War == nil {
			return nil, fmt.Errorf("%s carries no war", e.Code)
		}
		m.playerIndex = p.PlayerIndex
		_, err := m.session.EnterWar(ctx, p.War)
		return nil, err

	case protocol.S_McwPlayerSyncWar:
		var resp core.SyncWarResponse
		if err := e.Decode(&resp); err != nil {
			return nil, err
		}
		return nil, m.session.HandleSyncWar(ctx, &resp)
	}

	if _, ok := protocol.ActionFor(e.Code); !ok {
		return nil, fmt.Errorf("unexpected session message %s", e.Code)
	}
	var a core.WarAction
	if err := e.Decode(&a); err != nil {
		return nil, err
	}
	return nil, m.session.Receive(ctx, a.WarID, &a.ActionContainer)
}

func (m *Manager) handleHeartbeat(context.Context, dispatcher.Event) (any, error) {
	return nil, nil
}

// handleGetReplayData answers with the stored replay of a war.
func (m *Manager) handleGetReplayData(ctx context.Context, e dispatcher.Event) (any, error) {
	var req protocol.GetReplayDataRequest
	if err := e.Decode(&req); err != nil {
		return nil, err
	}
	loader, ok := m.deps.Backend.(storage.ReplayLoader)
	if !ok {
		return nil, fmt.Errorf("war %d: %w", req.WarID, storage.ErrNotFound)
	}
	return loader.LoadReplay(ctx, req.WarID)
}

func (m *Manager) handleError(_ context.Context, e dispatcher.Event) (any, error) {
	var p protocol.ErrorPayload
	if err := e.Decode(&p); err != nil {
		return nil, err
	}
	m.logger.Warn("upstream error", "errorCode", p.ErrorCode, "message", p.Message)
	return nil, nil
}
