// Package session keeps a running war in step with the authoritative
// action sequence. Actions arrive with consecutive ids; a gap means the
// local state diverged and the whole war is fetched again.
package session

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/queue"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

const instrumentationName = "github.com/tinywars/warcore/internal/session"

// Outcome is why a war ended for the local side.
type Outcome int

const (
	OutcomeDefeat Outcome = iota + 1
	OutcomeDraw
	OutcomeVictory
	// OutcomeEnded means the war is over or gone on the server.
	OutcomeEnded
	// OutcomeNotJoined means the server does not count us as a player.
	OutcomeNotJoined
	// OutcomeError covers unknown sync statuses and failed actions.
	OutcomeError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDefeat:
		return "defeat"
	case OutcomeDraw:
		return "draw"
	case OutcomeVictory:
		return "victory"
	case OutcomeEnded:
		return "ended"
	case OutcomeNotJoined:
		return "not joined"
	case OutcomeError:
		return "error"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Notice is a transient message for the player.
type Notice int

const (
	// NoticeReloaded follows a reload from an authoritative snapshot.
	NoticeReloaded Notice = iota + 1
	// NoticeSynchronized confirms a sync the player asked for.
	NoticeSynchronized
)

// Lobby is what the session reports to once a war is over.
type Lobby interface {
	ShowOutcome(ctx context.Context, warID int64, outcome Outcome)
	GotoLobby(ctx context.Context)
	Notice(ctx context.Context, warID int64, notice Notice)
}

// Resyncer asks the server for the authoritative war.
type Resyncer interface {
	RequestSyncWar(ctx context.Context, req core.SyncWarRequest) error
}

// Loader builds and starts a war from a snapshot.
type Loader func(ctx context.Context, data *core.SerializedWar) (*war.War, error)

// Observer is told about every war the session enters, every action it
// applies and every end it reaches. Calls happen on the session's
// goroutine, so observers must not block.
type Observer interface {
	WarEntered(ctx context.Context, w *war.War)
	ActionApplied(ctx context.Context, w *war.War, c *core.ActionContainer)
	WarEnded(ctx context.Context, w *war.War, outcome Outcome)
}

// Session applies incoming actions to the war of its Context, one at a
// time and in id order.
type Session struct {
	wc       *Context
	engine   *action.Engine
	lobby    Lobby
	resyncer Resyncer
	load     Loader
	logger   *slog.Logger

	pending   *queue.Queue[*core.ActionContainer]
	observers []Observer

	resyncs metric.Int64Counter
}

// New creates a session in the lobby. A nil logger discards.
func New(wc *Context, engine *action.Engine, lobby Lobby, resyncer Resyncer, load Loader, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	resyncs, err := otel.Meter(instrumentationName).Int64Counter("war.resyncs",
		metric.WithDescription("Full war synchronizations requested after an action id gap"))
	if err != nil {
		return nil, fmt.Errorf("create resync counter: %w", err)
	}
	return &Session{
		wc:       wc,
		engine:   engine,
		lobby:    lobby,
		resyncer: resyncer,
		load:     load,
		logger:   logger,
		pending:  queue.New[*core.ActionContainer](),
		resyncs:  resyncs,
	}, nil
}

// Observe adds o to the observers. It is not safe to call while actions
// are being received.
func (s *Session) Observe(o Observer) {
	s.observers = append(s.observers, o)
}

// Context returns the war context the session drives.
func (s *Session) Context() *Context { return s.wc }

// Pending is the number of received actions not yet applied.
func (s *Session) Pending() int { return s.pending.Len() }

// EnterWar loads data and makes it the current war, dropping whatever was
// queued for the previous one.
func (s *Session) EnterWar(ctx context.Context, data *core.SerializedWar) (*war.War, error) {
	w, err := s.load(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("enter war %d: %w", data.WarID, err)
	}
	s.pending.Clear()
	id := s.wc.EnterWar(w)
	s.logger.Info("entered war", "warId", w.WarID(), "session", id, "nextActionId", w.NextActionID())
	for _, o := range s.observers {
		o.WarEntered(ctx, w)
	}
	s.CheckAndRequestBeginTurn()
	return w, nil
}

// ExitWar leaves the current war.
func (s *Session) ExitWar() {
	s.pending.Clear()
	if w := s.wc.ExitWar(); w != nil {
		s.logger.Info("exited war", "warId", w.WarID())
	}
}

// Receive takes an action broadcast for warID. Actions of other wars are
// ignored. An action whose id is not the next expected one is not applied;
// a full sync is requested instead.
func (s *Session) Receive(ctx context.Context, warID int64, c *core.ActionContainer) error {
	w := s.wc.War()
	if w == nil || w.WarID() != warID {
		return nil
	}
	expected := w.NextActionID() + s.pending.Len()
	if c.ActionID != expected {
		s.logger.Warn("action id gap, requesting sync", "warId", warID, "actionId", c.ActionID, "expected", expected)
		s.resyncs.Add(ctx, 1, metric.WithAttributes(attribute.Int64("war", warID)))
		return s.resyncer.RequestSyncWar(ctx, core.SyncWarRequest{
			WarID:        warID,
			NextActionID: w.NextActionID(),
			RequestType:  core.SyncRequestReconnection,
		})
	}
	s.pending.Push(c)
	return s.drain(ctx)
}

// drain runs queued actions until the queue is empty, the war ends or an
// action is already executing further up the stack.
func (s *Session) drain(ctx context.Context) error {
	for {
		w := s.wc.War()
		if w == nil || !w.IsRunning() || w.IsEnded() || w.IsExecutingAction() {
			return nil
		}
		c, ok := s.pending.Pop()
		if !ok {
			return nil
		}

		w.SetIsExecutingAction(true)
		w.SetNextActionID(w.NextActionID() + 1)
		err := s.engine.Execute(ctx, w, c)
		w.SetIsExecutingAction(false)
		if err != nil {
			w.SetIsEnded(true)
			s.pending.Clear()
			s.logger.Error("action failed, leaving war", "warId", w.WarID(), "actionId", c.ActionID, "error", err)
			for _, o := range s.observers {
				o.WarEnded(ctx, w, OutcomeError)
			}
			s.lobby.ShowOutcome(ctx, w.WarID(), OutcomeError)
			s.lobby.GotoLobby(ctx)
			return fmt.Errorf("war %d: %w", w.WarID(), err)
		}
		for _, o := range s.observers {
			o.ActionApplied(ctx, w, c)
		}

		if outcome, ended := checkOutcome(w); ended {
			s.end(ctx, w, outcome)
			return nil
		}
	}
}

// checkOutcome tests the end conditions in priority order.
func checkOutcome(w *war.War) (Outcome, bool) {
	if p := w.Players().Player(w.LoggedInPlayerIndex()); p != nil && !p.IsAlive() {
		return OutcomeDefeat, true
	}
	if votes := w.RemainingVotesForDraw(); votes != nil && *votes == 0 {
		return OutcomeDraw, true
	}
	if w.Players().AliveTeamsCount(false, -1) <= 1 {
		return OutcomeVictory, true
	}
	return 0, false
}

func (s *Session) end(ctx context.Context, w *war.War, outcome Outcome) {
	w.SetIsEnded(true)
	s.logger.Info("war ended", "warId", w.WarID(), "outcome", outcome.String())
	for _, o := range s.observers {
		o.WarEnded(ctx, w, outcome)
	}
	s.lobby.ShowOutcome(ctx, w.WarID(), outcome)
	s.lobby.GotoLobby(ctx)
}

// CheckAndRequestBeginTurn asks the local player to begin the turn when it
// is theirs and still waiting.
func (s *Session) CheckAndRequestBeginTurn() {
	w := s.wc.War()
	if w == nil {
		return
	}
	turn := w.Turn()
	if turn.PhaseCode() == core.TurnPhaseWaitBeginTurn && turn.PlayerIndexInTurn() == w.LoggedInPlayerIndex() {
		w.Field().ActionPlanner().SetState(war.PlannerRequestingPlayerBeginTurn)
	}
}

// HandleSyncWar applies the answer to a sync request. Only NoError keeps
// the session alive; it reloads the carried snapshot when the local side
// fell behind and otherwise resumes where it was.
func (s *Session) HandleSyncWar(ctx context.Context, resp *core.SyncWarResponse) error {
	w := s.wc.War()
	if w == nil || w.WarID() != resp.WarID {
		return nil
	}

	switch resp.Status {
	case core.SyncWarNoError:
		if resp.NextActionID != w.NextActionID()+s.pending.Len() {
			if resp.War == nil {
				return fmt.Errorf("%w: sync of war %d carries no snapshot", action.ErrInvariant, resp.WarID)
			}
			w.SetIsEnded(true)
			if _, err := s.EnterWar(ctx, resp.War); err != nil {
				s.lobby.GotoLobby(ctx)
				return err
			}
			s.lobby.Notice(ctx, resp.WarID, NoticeReloaded)
			return nil
		}
		if resp.RequestType == core.SyncRequestPlayer {
			s.lobby.Notice(ctx, resp.WarID, NoticeSynchronized)
		}
		if w.IsExecutingAction() {
			return nil
		}
		if !s.pending.Empty() {
			return s.drain(ctx)
		}
		s.CheckAndRequestBeginTurn()
		return nil

	case core.SyncWarSynchronized:
		if resp.RequestType == core.SyncRequestPlayer {
			s.lobby.Notice(ctx, resp.WarID, NoticeSynchronized)
		}
		return nil

	case core.SyncWarDefeated:
		s.end(ctx, w, OutcomeDefeat)
	case core.SyncWarEndedOrNotExists:
		s.end(ctx, w, OutcomeEnded)
	case core.SyncWarNotJoined:
		s.end(ctx, w, OutcomeNotJoined)
	default:
		s.end(ctx, w, OutcomeError)
	}
	return nil
}
