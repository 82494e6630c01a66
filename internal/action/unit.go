package action

import (
	"context"
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

func (e *Engine) executeUnitWait(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitWait.UnitMove
	u, err := startUnitAction(w, core.ActionUnitWait, move)
	if err != nil {
		return err
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

func (e *Engine) executeUnitBeLoaded(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitBeLoaded.UnitMove
	u, err := startUnitAction(w, core.ActionUnitBeLoaded, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		end := move.Path.End()
		loader := w.Field().UnitMap().UnitOnMap(end)
		if loader == nil {
			return fmt.Errorf("%w: no loader at (%d,%d)", ErrInvariant, end.X, end.Y)
		}
		id := loader.UnitID()
		u.SetLoaderUnitID(&id)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitBuildTile spends the unit's normalized hp on the tile build
// points; a tile reaching zero turns into the unit's build target.
func (e *Engine) executeUnitBuildTile(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitBuildTile.UnitMove
	u, err := startUnitAction(w, core.ActionUnitBuildTile, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		t := w.Field().TileMap().Tile(move.Path.End())
		if rest := t.CurrentBuildPoint() - u.BuildAmount(); rest > 0 {
			u.SetIsBuildingTile(true)
			t.SetCurrentBuildPoint(rest)
		} else {
			viewID, ok := u.BuildTargetTileObjectViewID(t.Type())
			if !ok {
				return fmt.Errorf("%w: unit %d cannot build on %s", ErrInvariant, u.UnitID(), t.Type())
			}
			u.SetIsBuildingTile(false)
			u.SetCurrentBuildMaterial(u.CurrentBuildMaterial() - 1)
			if err := w.ChangeTile(t, func() error { return t.ResetByObjectViewID(viewID) }); err != nil {
				return err
			}
		}
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitCaptureTile lowers the capture points. Capturing a tile that
// defeats on capture destroys its previous owner.
func (e *Engine) executeUnitCaptureTile(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitCaptureTile.UnitMove
	u, err := startUnitAction(w, core.ActionUnitCaptureTile, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		t := w.Field().TileMap().Tile(move.Path.End())
		rest := t.CurrentCapturePoint() - u.CaptureAmount()
		lostPlayerIndex := 0
		if rest <= 0 && t.CheckIsDefeatOnCapture() {
			lostPlayerIndex = t.PlayerIndex()
		}
		if rest > 0 {
			u.SetIsCapturingTile(true)
			t.SetCurrentCapturePoint(rest)
		} else {
			u.SetIsCapturingTile(false)
			if err := w.ChangeTile(t, func() error { return t.ResetByPlayerIndex(u.PlayerIndex()) }); err != nil {
				return err
			}
		}
		if lostPlayerIndex > 0 {
			if err := w.DestroyPlayerForce(lostPlayerIndex); err != nil {
				return err
			}
		}
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

func (e *Engine) executeUnitDive(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitDive.UnitMove
	u, err := startUnitAction(w, core.ActionUnitDive, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		u.SetIsDiving(true)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

func (e *Engine) executeUnitSurface(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitSurface.UnitMove
	u, err := startUnitAction(w, core.ActionUnitSurface, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		u.SetIsDiving(false)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitDrop unloads cargo around the end of the path. The listed
// destinations are the drops that happened; a blocked drop only shows.
func (e *Engine) executeUnitDrop(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.UnitDrop
	move := &action.UnitMove
	u, err := startUnitAction(w, core.ActionUnitDrop, move)
	if err != nil {
		return err
	}
	unitMap := w.Field().UnitMap()
	end := move.Path.End()
	shouldUpdateFog := w.ShouldUpdateFogForPlayer(u.PlayerIndex())
	for _, dest := range action.DropDestinations {
		cargo := unitMap.UnitLoaded(dest.UnitID)
		if cargo == nil {
			return fmt.Errorf("%w: unit %d is not loaded", ErrInvariant, dest.UnitID)
		}
		if err := unitMap.SetUnitUnloaded(dest.UnitID, dest.GridIndex); err != nil {
			return err
		}
		for _, nested := range unitMap.UnitsLoadedByLoader(cargo, true) {
			nested.SetGridIndex(dest.GridIndex)
		}
		cargo.SetLoaderUnitID(nil)
		cargo.SetState(core.UnitStateActed)
		if shouldUpdateFog {
			w.Field().FogMap().UpdateMapFromPathsByUnitAndPath(cargo, []core.GridIndex{end, dest.GridIndex})
		}
		w.OnUnitArriving(cargo, dest.GridIndex)
	}
	if action.IsDropBlocked {
		w.Field().VisionEffect().ShowEffect(war.EffectBlock, end)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitJoin merges the unit into the friendly unit waiting at the
// end of the path. Hit points beyond the maximum are refunded.
func (e *Engine) executeUnitJoin(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitJoin.UnitMove
	if err := beginAction(w, &move.CatchUp); err != nil {
		return err
	}
	u, err := focusUnit(w, move)
	if err != nil {
		return err
	}
	unitMap := w.Field().UnitMap()
	end := move.Path.End()
	var target *war.Unit
	if !move.Path.IsBlocked {
		target = unitMap.UnitOnMap(end)
		if target == nil || target == u {
			return fmt.Errorf("%w: no unit to join at (%d,%d)", ErrInvariant, end.X, end.Y)
		}
		w.OnUnitLeaving(target, end)
		unitMap.RemoveUnitOnMap(end)
	}
	if err := moveUnit(w, core.ActionUnitJoin, u, move); err != nil {
		return err
	}
	u.SetState(core.UnitStateActed)

	if target != nil {
		player := w.Players().Player(u.PlayerIndex())
		if player == nil {
			return fmt.Errorf("%w: unit %d has no player", ErrInvariant, u.UnitID())
		}
		if id := player.CoUnitID(); id != nil && *id == target.UnitID() {
			unitID := u.UnitID()
			player.SetCoUnitID(&unitID)
		}
		joinUnits(u, target, player)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

func joinUnits(u, target *war.Unit, player *war.Player) {
	if maxAmmo := u.PrimaryWeaponMaxAmmo(); maxAmmo != nil {
		u.SetPrimaryWeaponCurrentAmmo(min(*maxAmmo, u.PrimaryWeaponCurrentAmmo()+target.PrimaryWeaponCurrentAmmo()))
	}
	if income := u.JoinIncome(target); income != 0 {
		player.SetFund(player.Fund() + income)
	}

	joinedNormalizedHp := min(u.NormalizedMaxHp(), u.NormalizedCurrentHp()+target.NormalizedCurrentHp())
	u.SetCurrentHp(max(
		(joinedNormalizedHp-1)*definitions.UnitHpNormalizer+1,
		min(u.CurrentHp()+target.CurrentHp(), u.MaxHp()),
	))
	u.SetCurrentFuel(min(u.MaxFuel(), u.CurrentFuel()+target.CurrentFuel()))
	if maxMaterial := u.MaxBuildMaterial(); maxMaterial != nil {
		u.SetCurrentBuildMaterial(min(*maxMaterial, u.CurrentBuildMaterial()+target.CurrentBuildMaterial()))
	}
	if maxMaterial := u.MaxProduceMaterial(); maxMaterial != nil {
		u.SetCurrentProduceMaterial(min(*maxMaterial, u.CurrentProduceMaterial()+target.CurrentProduceMaterial()))
	}
	u.SetCurrentPromotion(max(u.CurrentPromotion(), target.CurrentPromotion()))
	u.SetIsCapturingTile(target.IsCapturingTile())
	u.SetIsBuildingTile(target.IsBuildingTile())
}

func (e *Engine) executeUnitLaunchFlare(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.UnitLaunchFlare
	move := &action.UnitMove
	u, err := startUnitAction(w, core.ActionUnitLaunchFlare, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		target := action.TargetGridIndex
		u.SetFlareCurrentAmmo(u.FlareCurrentAmmo() - 1)
		w.Field().FogMap().UpdateMapFromPathsByFlare(u.PlayerIndex(), target, u.FlareRadius())
		w.Field().VisionEffect().ShowEffect(war.EffectFlare, target)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitLaunchSilo empties the silo under the unit and damages every
// unit around the target, never below one hit point.
func (e *Engine) executeUnitLaunchSilo(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.UnitLaunchSilo
	move := &action.UnitMove
	u, err := startUnitAction(w, core.ActionUnitLaunchSilo, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		t := w.Field().TileMap().Tile(move.Path.End())
		viewID, ok := w.Config().TileObjectViewID(core.TileTypeEmptySilo, 0)
		if !ok {
			return fmt.Errorf("%w: no empty silo view", ErrInvariant)
		}
		if err := w.ChangeTile(t, func() error { return t.ResetByObjectViewID(viewID) }); err != nil {
			return err
		}

		target := action.TargetGridIndex
		unitMap := w.Field().UnitMap()
		for _, g := range grid.GetGridsWithinDistance(target, 0, definitions.SiloRadius, w.Field().MapSize()) {
			if other := unitMap.UnitOnMap(g); other != nil {
				other.SetCurrentHp(max(1, other.CurrentHp()-definitions.SiloDamage))
			}
		}
		w.Field().VisionEffect().ShowEffect(war.EffectSilo, target)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitLoadCo boards the commander. A blocked path only marks the
// unit as acted.
func (e *Engine) executeUnitLoadCo(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitLoadCo.UnitMove
	u, err := startUnitAction(w, core.ActionUnitLoadCo, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		player := w.Players().Player(u.PlayerIndex())
		if player == nil {
			return fmt.Errorf("%w: unit %d has no player", ErrInvariant, u.UnitID())
		}
		u.SetCurrentPromotion(u.MaxPromotion())
		player.SetFund(player.Fund() - u.LoadCoCost())
		unitID := u.UnitID()
		player.SetCoUnitID(&unitID)
		player.SetCoCurrentEnergy(player.CoMaxEnergy() * w.Settings().InitialEnergy / 100)
		player.SetCoUsingSkillType(core.CoSkillPassive)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitProduceUnit builds a unit straight into the producer's cargo.
func (e *Engine) executeUnitProduceUnit(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.UnitProduceUnit
	move := &action.UnitMove
	u, err := startUnitAction(w, core.ActionUnitProduceUnit, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		player := w.Players().Player(u.PlayerIndex())
		if player == nil {
			return fmt.Errorf("%w: unit %d has no player", ErrInvariant, u.UnitID())
		}
		unitMap := w.Field().UnitMap()
		unitID := unitMap.NextUnitID()
		loaderID := u.UnitID()
		g := u.GridIndex()
		produced, err := war.NewUnit(w.Config(), core.SerializedUnit{
			UnitID:       unitID,
			UnitType:     u.ProduceUnitType(),
			PlayerIndex:  u.PlayerIndex(),
			GridX:        g.X,
			GridY:        g.Y,
			LoaderUnitID: &loaderID,
			State:        core.UnitStateActed,
		})
		if err != nil {
			return fmt.Errorf("%w: produce unit: %v", ErrInvariant, err)
		}
		if err := unitMap.AddUnitLoaded(produced); err != nil {
			return err
		}
		unitMap.SetNextUnitID(unitID + 1)
		player.SetFund(player.Fund() - action.Cost)
		u.SetCurrentProduceMaterial(u.CurrentProduceMaterial() - 1)
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// executeUnitSupply refills every adjacent friendly unit that needs it.
func (e *Engine) executeUnitSupply(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	move := &c.UnitSupply.UnitMove
	u, err := startUnitAction(w, core.ActionUnitSupply, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		unitMap := w.Field().UnitMap()
		for _, g := range grid.GetAdjacentGrids(move.Path.End(), w.Field().MapSize()) {
			other := unitMap.UnitOnMap(g)
			if other == nil || other == u || other.PlayerIndex() != u.PlayerIndex() || !other.CheckCanBeSupplied() {
				continue
			}
			other.UpdateOnSupplied()
			w.Field().VisionEffect().ShowEffect(war.EffectSupply, g)
		}
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}
