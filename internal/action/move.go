package action

import (
	"context"
	"fmt"

	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

// beginAction puts the planner in the executing state and restores the
// tiles and units the local side could not see before the action.
func beginAction(w *war.War, catchUp *core.CatchUp) error {
	w.Field().ActionPlanner().SetState(war.PlannerExecutingAction)
	if catchUp == nil {
		return nil
	}
	if err := addUnits(w, catchUp.ActingUnits); err != nil {
		return err
	}
	if err := addUnits(w, catchUp.DiscoveredUnits); err != nil {
		return err
	}
	if err := updateTiles(w, catchUp.ActingTiles); err != nil {
		return err
	}
	return updateTiles(w, catchUp.DiscoveredTiles)
}

func addUnits(w *war.War, units []core.SerializedUnit) error {
	unitMap := w.Field().UnitMap()
	for _, data := range units {
		u, err := war.NewUnit(w.Config(), data)
		if err != nil {
			return fmt.Errorf("%w: catch-up unit: %v", ErrInvariant, err)
		}
		if u.CheckIsLoaded() {
			if err := unitMap.AddUnitLoaded(u); err != nil {
				return err
			}
			continue
		}
		if err := unitMap.AddUnitOnMap(u); err != nil {
			return err
		}
		w.OnUnitArriving(u, u.GridIndex())
	}
	return nil
}

// updateTiles reveals fogged tiles. Only live wars fog tiles.
func updateTiles(w *war.War, tiles []core.SerializedTile) error {
	if w.Mode() != war.ModeLive {
		return nil
	}
	tileMap := w.Field().TileMap()
	for i := range tiles {
		data := tiles[i]
		g := data.GridIndex()
		if !grid.CheckIsInsideMap(g, w.Field().MapSize()) {
			return fmt.Errorf("%w: catch-up tile (%d,%d) is outside the map", ErrInvariant, g.X, g.Y)
		}
		t := tileMap.Tile(g)
		if err := w.ChangeTile(t, func() error { return t.SetFogDisabled(&data) }); err != nil {
			return err
		}
	}
	return nil
}

// focusUnit finds the unit acting in move, before it moves.
func focusUnit(w *war.War, move *core.UnitMove) (*war.Unit, error) {
	if len(move.Path.Nodes) == 0 {
		return nil, fmt.Errorf("%w: empty move path", ErrInvariant)
	}
	start := move.Path.Start()
	u := w.Field().UnitMap().Unit(start, move.LaunchUnitID)
	if u == nil {
		if move.LaunchUnitID != nil {
			return nil, fmt.Errorf("%w: no loaded unit %d", ErrInvariant, *move.LaunchUnitID)
		}
		return nil, fmt.Errorf("%w: no unit at (%d,%d)", ErrInvariant, start.X, start.Y)
	}
	return u, nil
}

// moveUnit carries u along the path of move. The unit pays the fuel of the
// travelled nodes and its cargo follows. A unit launched from a loader
// leaves no vision behind; a unit boarding a loader brings none to the end.
func moveUnit(w *war.War, code core.ActionCode, u *war.Unit, move *core.UnitMove) error {
	path := move.Path
	nodes := path.Nodes
	field := w.Field()
	unitMap := field.UnitMap()
	playerIndex := u.PlayerIndex()

	if w.ShouldUpdateFogForPlayer(playerIndex) {
		field.FogMap().UpdateMapFromPathsByUnitAndPath(u, nodes)
	}
	if len(nodes) <= 1 {
		return nil
	}

	start, end := path.Start(), path.End()
	isLaunching := move.LaunchUnitID != nil
	isBeLoaded := code == core.ActionUnitBeLoaded && !path.IsBlocked

	if !isLaunching {
		w.OnUnitLeaving(u, start)
	}
	u.SetGridIndex(end)
	u.SetIsCapturingTile(false)
	u.SetIsBuildingTile(false)
	u.SetCurrentFuel(u.CurrentFuel() - path.FuelConsumption)
	for _, cargo := range unitMap.UnitsLoadedByLoader(u, true) {
		cargo.SetGridIndex(end)
	}
	if !isBeLoaded {
		w.OnUnitArriving(u, end)
	}

	switch {
	case isLaunching:
		u.SetLoaderUnitID(nil)
		if !isBeLoaded {
			if err := unitMap.SetUnitUnloaded(u.UnitID(), end); err != nil {
				return err
			}
		}
	case isBeLoaded:
		if err := unitMap.SetUnitLoaded(start); err != nil {
			return err
		}
	default:
		unitMap.SwapUnit(start, end)
	}

	if !isLaunching {
		t := field.TileMap().Tile(start)
		t.SetCurrentBuildPoint(t.MaxBuildPoint())
		t.SetCurrentCapturePoint(t.MaxCapturePoint())
	}
	return nil
}

// startUnitAction runs the shared opening of a unit action: catch-up,
// lookup and movement. The unit is marked as acted.
func startUnitAction(w *war.War, code core.ActionCode, move *core.UnitMove) (*war.Unit, error) {
	if err := beginAction(w, &move.CatchUp); err != nil {
		return nil, err
	}
	u, err := focusUnit(w, move)
	if err != nil {
		return nil, err
	}
	if err := moveUnit(w, code, u, move); err != nil {
		return nil, err
	}
	u.SetState(core.UnitStateActed)
	return u, nil
}

// finishUnitAction waits for the view, then refreshes visibility and
// returns the planner to idle.
func (e *Engine) finishUnitAction(ctx context.Context, w *war.War, u *war.Unit, path core.MovePath) error {
	if err := e.view.MoveUnitAlongPath(ctx, u, path); err != nil {
		return fmt.Errorf("moving unit %d: %w", u.UnitID(), err)
	}
	return finishAction(w)
}

func finishAction(w *war.War) error {
	if err := w.RefreshVisibility(); err != nil {
		return err
	}
	w.Field().ActionPlanner().SetState(war.PlannerIdle)
	return nil
}
