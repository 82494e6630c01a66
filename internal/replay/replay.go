// Package replay plays a stored war back action by action. Every turn
// start seen while playing becomes a checkpoint, so the player can jump
// between turns without replaying from the beginning.
package replay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

// ErrEnd is returned when there is no action left to execute.
var ErrEnd = errors.New("replay is at its end")

// Options configure a Replay.
type Options struct {
	// View animates the actions run by ExecuteNextAction. Seeking never animates.
	View   action.View
	Effect war.VisionEffect
	Logger *slog.Logger
}

// Replay holds the war being played back and its checkpoints. Checkpoint c
// is the state at the start of a turn; the actions of a main phase belong
// to the checkpoint taken when that turn ends.
type Replay struct {
	cfg      *definitions.Config
	template *core.MapTemplate
	warID    int64
	first    int
	actions  []core.ActionContainer

	engine *action.Engine
	fast   *action.Engine
	effect war.VisionEffect
	logger *slog.Logger

	checkPointIDs map[int]int
	checkPoints   map[int]*core.SerializedWar

	war *war.War
}

// Init resolves the map and config of data and loads its snapshot as
// checkpoint 0.
func Init(ctx context.Context, data *core.ReplayData, maps war.MapProvider, configs war.ConfigProvider, opts Options) (*Replay, error) {
	if err := data.Validate(); err != nil {
		return nil, fmt.Errorf("replay: %w", err)
	}
	cfg, err := configs.Get(data.Snapshot.ConfigVersion)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", data.Snapshot.ConfigVersion, err)
	}
	template, err := maps.MapTemplate(ctx, data.Snapshot.MapFileName)
	if err != nil {
		return nil, fmt.Errorf("load map %q: %w", data.Snapshot.MapFileName, err)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	engine, err := action.NewEngine(opts.View, nil)
	if err != nil {
		return nil, err
	}
	fast, err := action.NewEngine(action.NopView{}, nil)
	if err != nil {
		return nil, err
	}

	snapshot := data.Snapshot
	// A snapshot taken mid-turn starts checkpoint 0; the rest of that turn
	// already counts toward checkpoint 1.
	startCheckPointID := 0
	if snapshot.Turn.TurnPhaseCode == core.TurnPhaseMain {
		startCheckPointID = 1
	}
	r := &Replay{
		cfg:           cfg,
		template:      template,
		warID:         data.WarID,
		first:         data.FirstActionID(),
		actions:       data.Actions,
		engine:        engine,
		fast:          fast,
		effect:        opts.Effect,
		logger:        logger,
		checkPointIDs: map[int]int{snapshot.NextActionID: startCheckPointID},
		checkPoints:   map[int]*core.SerializedWar{0: &snapshot},
	}
	if err := r.loadCheckPoint(0); err != nil {
		return nil, err
	}
	return r, nil
}

// War is the war at the current position. It is replaced on every
// checkpoint load.
func (r *Replay) War() *war.War { return r.war }

// TotalActionsCount is the id after the last recorded action.
func (r *Replay) TotalActionsCount() int { return r.first + len(r.actions) }

// NextAction is the action ExecuteNextAction would run, nil at the end.
func (r *Replay) NextAction() *core.ActionContainer {
	next := r.war.NextActionID()
	if next >= r.TotalActionsCount() {
		return nil
	}
	return &r.actions[next-r.first]
}

func (r *Replay) CheckIsInEnd() bool {
	return r.war.NextActionID() >= r.TotalActionsCount()
}

func (r *Replay) CheckIsInBeginning() bool {
	return r.war.NextActionID() <= r.checkPoints[0].NextActionID
}

// CheckPointID returns the checkpoint the current position belongs to.
func (r *Replay) CheckPointID() int {
	return r.checkPointIDs[r.war.NextActionID()]
}

// ExecuteNextAction runs the next action through the animated engine.
func (r *Replay) ExecuteNextAction(ctx context.Context) error {
	return r.execute(ctx, r.engine)
}

func (r *Replay) execute(ctx context.Context, engine *action.Engine) error {
	w := r.war
	if !w.IsRunning() || w.IsExecutingAction() {
		return fmt.Errorf("replay of war %d is busy", r.warID)
	}
	c := r.NextAction()
	if c == nil {
		return ErrEnd
	}
	id := w.NextActionID()
	checkPointID := r.checkPointIDs[id]

	w.SetIsExecutingAction(true)
	w.SetNextActionID(id + 1)
	err := engine.Execute(ctx, w, c)
	w.SetIsExecutingAction(false)
	if err != nil {
		return fmt.Errorf("replay of war %d: %w", r.warID, err)
	}

	if c.Code() == core.ActionPlayerBeginTurn {
		checkPointID++
	}
	r.checkPointIDs[id+1] = checkPointID
	if w.Turn().PhaseCode() == core.TurnPhaseWaitBeginTurn {
		if _, ok := r.checkPoints[checkPointID]; !ok {
			r.checkPoints[checkPointID] = w.Serialize()
		}
	}
	return nil
}

// LoadNextCheckPoint jumps to the start of the next turn, playing forward
// without animation when that turn was never reached. At the last turn it
// stops at the end of the replay.
func (r *Replay) LoadNextCheckPoint(ctx context.Context) error {
	target := r.CheckPointID()
	if r.war.Turn().PhaseCode() == core.TurnPhaseWaitBeginTurn {
		target++
	}
	for {
		if _, ok := r.checkPoints[target]; ok {
			return r.loadCheckPoint(target)
		}
		if r.CheckIsInEnd() {
			return nil
		}
		if err := r.execute(ctx, r.fast); err != nil {
			return err
		}
	}
}

// LoadPreviousCheckPoint jumps back to the start of the current turn, or
// of the previous one when already there.
func (r *Replay) LoadPreviousCheckPoint() error {
	if r.CheckIsInBeginning() {
		return nil
	}
	return r.loadCheckPoint(r.CheckPointID() - 1)
}

// SeekTo moves to the state right before actionID, loading the closest
// known checkpoint and playing forward without animation.
func (r *Replay) SeekTo(ctx context.Context, actionID int) error {
	first := r.checkPoints[0].NextActionID
	if actionID < first || actionID > r.TotalActionsCount() {
		return fmt.Errorf("replay of war %d: action %d outside [%d, %d]", r.warID, actionID, first, r.TotalActionsCount())
	}

	best, bestStart := -1, -1
	for id, data := range r.checkPoints {
		if start := data.NextActionID; start <= actionID && start > bestStart {
			best, bestStart = id, start
		}
	}
	if r.war.NextActionID() > actionID || r.war.NextActionID() < bestStart {
		if err := r.loadCheckPoint(best); err != nil {
			return err
		}
	}
	for r.war.NextActionID() < actionID {
		if err := r.execute(ctx, r.fast); err != nil {
			return err
		}
	}
	return nil
}

func (r *Replay) loadCheckPoint(checkPointID int) error {
	data, ok := r.checkPoints[checkPointID]
	if !ok {
		return fmt.Errorf("replay of war %d has no checkpoint %d", r.warID, checkPointID)
	}
	if r.war != nil {
		r.war.StopRunning()
	}
	w, err := war.New(r.cfg, r.template, data, war.Options{
		Mode:    war.ModeReplay,
		Factory: war.ReplayFactory{Effect: r.effect},
	})
	if err != nil {
		return fmt.Errorf("load checkpoint %d: %w", checkPointID, err)
	}
	w.StartRunning()
	r.war = w
	if _, ok := r.checkPointIDs[w.NextActionID()]; !ok {
		r.checkPointIDs[w.NextActionID()] = checkPointID
	}
	r.logger.Debug("loaded checkpoint", "warId", r.warID, "checkPoint", checkPointID,
		"nextActionId", w.NextActionID(), "total", r.TotalActionsCount())
	return nil
}

// Serialize stores the replay from its current position.
func (r *Replay) Serialize() *core.ReplayData {
	return &core.ReplayData{
		WarID:    r.warID,
		Snapshot: *r.war.Serialize(),
		Actions:  r.actions,
	}
}

// CheckPoints lists the checkpoints found so far, in order.
func (r *Replay) CheckPoints() []core.ReplayCheckPoint {
	points := make([]core.ReplayCheckPoint, 0, len(r.checkPoints))
	for id := 0; id < len(r.checkPoints); id++ {
		data, ok := r.checkPoints[id]
		if !ok {
			break
		}
		points = append(points, core.ReplayCheckPoint{ActionID: data.NextActionID, Snapshot: *data})
	}
	return points
}
