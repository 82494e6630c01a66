package action

import (
	"context"
	"fmt"

	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

func (e *Engine) executePlayerBeginTurn(_ context.Context, w *war.War, c *core.ActionContainer) error {
	if err := beginAction(w, nil); err != nil {
		return err
	}
	if err := w.Turn().EndPhaseWaitBeginTurn(c.PlayerBeginTurn.LostPlayerIndex); err != nil {
		return err
	}
	return finishAction(w)
}

// executePlayerEndTurn hands the turn over. When the local player is next,
// the planner goes straight to asking for the begin-turn action.
func (e *Engine) executePlayerEndTurn(_ context.Context, w *war.War, _ *core.ActionContainer) error {
	if err := beginAction(w, nil); err != nil {
		return err
	}
	if err := w.Turn().EndPhaseMain(); err != nil {
		return err
	}
	if err := w.RefreshVisibility(); err != nil {
		return err
	}
	planner := w.Field().ActionPlanner()
	if w.Mode() == war.ModeLive && w.Turn().PlayerIndexInTurn() == w.LoggedInPlayerIndex() {
		planner.SetState(war.PlannerRequestingPlayerBeginTurn)
	} else {
		planner.SetState(war.PlannerIdle)
	}
	return nil
}

func (e *Engine) executePlayerDeleteUnit(_ context.Context, w *war.War, c *core.ActionContainer) error {
	if err := beginAction(w, nil); err != nil {
		return err
	}
	g := c.PlayerDeleteUnit.GridIndex
	u := w.Field().UnitMap().UnitOnMap(g)
	if u == nil {
		return fmt.Errorf("%w: no unit to delete at (%d,%d)", ErrInvariant, g.X, g.Y)
	}
	if w.ShouldUpdateFogForPlayer(u.PlayerIndex()) {
		w.Field().FogMap().UpdateMapFromPathsByUnitAndPath(u, []core.GridIndex{g})
	}
	if err := w.DestroyUnitOnMap(g, true); err != nil {
		return err
	}
	return finishAction(w)
}

// executePlayerProduceUnit builds a unit on a factory. Observers that cannot
// see the factory only learn the fund spent and the consumed unit id.
func (e *Engine) executePlayerProduceUnit(_ context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.PlayerProduceUnit
	if err := beginAction(w, &action.CatchUp); err != nil {
		return err
	}
	player := w.Players().PlayerInTurn()
	if player == nil {
		return fmt.Errorf("%w: no player in turn", ErrInvariant)
	}
	unitMap := w.Field().UnitMap()
	unitID := unitMap.NextUnitID()

	if action.GridIndex != nil && action.UnitType != "" {
		g := *action.GridIndex
		u, err := war.NewUnit(w.Config(), core.SerializedUnit{
			UnitID:      unitID,
			UnitType:    action.UnitType,
			PlayerIndex: player.PlayerIndex(),
			GridX:       g.X,
			GridY:       g.Y,
			State:       core.UnitStateActed,
		})
		if err != nil {
			return fmt.Errorf("%w: produce unit: %v", ErrInvariant, err)
		}
		if err := unitMap.AddUnitOnMap(u); err != nil {
			return err
		}
		w.OnUnitArriving(u, g)
	}
	unitMap.SetNextUnitID(unitID + 1)
	player.SetFund(player.Fund() - action.Cost)
	return finishAction(w)
}

func (e *Engine) executePlayerSurrender(_ context.Context, w *war.War, _ *core.ActionContainer) error {
	if err := beginAction(w, nil); err != nil {
		return err
	}
	if err := w.DestroyPlayerForce(w.Turn().PlayerIndexInTurn()); err != nil {
		return err
	}
	return finishAction(w)
}

// executePlayerVoteForDraw counts a vote. Any disagreement cancels the
// ballot; the first agreement opens it with one vote per alive player.
func (e *Engine) executePlayerVoteForDraw(_ context.Context, w *war.War, c *core.ActionContainer) error {
	if err := beginAction(w, nil); err != nil {
		return err
	}
	player := w.Players().PlayerInTurn()
	if player == nil {
		return fmt.Errorf("%w: no player in turn", ErrInvariant)
	}
	player.SetHasVotedForDraw(true)
	if !c.PlayerVoteForDraw.IsAgree {
		w.SetRemainingVotesForDraw(nil)
	} else {
		remaining := w.Players().AlivePlayersCount(false)
		if votes := w.RemainingVotesForDraw(); votes != nil {
			remaining = *votes
		}
		remaining--
		w.SetRemainingVotesForDraw(&remaining)
	}
	return finishAction(w)
}
