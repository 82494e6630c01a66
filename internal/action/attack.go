package action

import (
	"context"
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

// attackOutcome is what remains to be destroyed once the attack
// animation is over.
type attackOutcome struct {
	destination     core.GridIndex
	target          core.GridIndex
	attackerNewHp   int
	targetNewHp     int
	targetIsUnit    bool
	hasCounter      bool
	lostPlayerIndex int
}

// executeUnitAttack resolves a fight whose damage the server already
// rolled. The counter damage is applied before the attack damage.
func (e *Engine) executeUnitAttack(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.UnitAttack
	move := &action.UnitMove
	attacker, err := startUnitAction(w, core.ActionUnitAttack, move)
	if err != nil {
		return err
	}
	if move.Path.IsBlocked {
		return e.finishUnitAction(ctx, w, attacker, move.Path)
	}

	outcome, err := applyAttack(w, attacker, action)
	if err != nil {
		return err
	}
	if err := e.view.MoveUnitAlongPath(ctx, attacker, move.Path); err != nil {
		return fmt.Errorf("moving unit %d: %w", attacker.UnitID(), err)
	}
	if err := resolveAttack(w, outcome); err != nil {
		return err
	}
	return finishAction(w)
}

func applyAttack(w *war.War, attacker *war.Unit, action *core.UnitAttack) (attackOutcome, error) {
	field := w.Field()
	targetGrid := action.TargetGridIndex
	if !grid.CheckIsInsideMap(targetGrid, field.MapSize()) {
		return attackOutcome{}, fmt.Errorf("%w: attack target (%d,%d) is outside the map", ErrInvariant, targetGrid.X, targetGrid.Y)
	}
	targetUnit := field.UnitMap().UnitOnMap(targetGrid)
	targetTile := field.TileMap().Tile(targetGrid)

	targetArmor := targetTile.ArmorType()
	targetOldHp := targetTile.CurrentHp()
	if targetUnit != nil {
		targetArmor = targetUnit.ArmorType()
		targetOldHp = targetUnit.CurrentHp()
	} else if targetTile.MaxHp() == nil {
		return attackOutcome{}, fmt.Errorf("%w: nothing to attack at (%d,%d)", ErrInvariant, targetGrid.X, targetGrid.Y)
	}

	if _, ok := attacker.PrimaryWeaponBaseDamage(targetArmor); ok {
		attacker.SetPrimaryWeaponCurrentAmmo(attacker.PrimaryWeaponCurrentAmmo() - 1)
	}
	if action.CounterDamage != nil && targetUnit != nil {
		if _, ok := targetUnit.PrimaryWeaponBaseDamage(attacker.ArmorType()); ok {
			targetUnit.SetPrimaryWeaponCurrentAmmo(targetUnit.PrimaryWeaponCurrentAmmo() - 1)
		}
	}

	counterDamage := 0
	if action.CounterDamage != nil {
		counterDamage = *action.CounterDamage
	}
	attackerOldHp := attacker.CurrentHp()
	attackerNewHp := max(0, attackerOldHp-counterDamage)
	attacker.SetCurrentHp(attackerNewHp)
	if attackerNewHp == 0 && targetUnit != nil {
		targetUnit.AddPromotion(1)
	}

	targetNewHp := max(0, targetOldHp-action.AttackDamage)
	if targetUnit != nil {
		targetUnit.SetCurrentHp(targetNewHp)
		if targetNewHp == 0 {
			attacker.AddPromotion(1)
		}
	} else {
		targetTile.SetCurrentHp(targetNewHp)
	}

	destination := action.Path.End()
	if targetUnit != nil {
		targetLostHp := definitions.NormalizeHp(targetOldHp) - definitions.NormalizeHp(targetNewHp)
		if p := w.Players().Player(attacker.PlayerIndex()); p != nil && targetLostHp > 0 && chargesEnergy(p) &&
			(isCoUnit(p, attacker) || p.CheckIsInCoZone(destination)) {
			p.SetCoCurrentEnergy(p.CoCurrentEnergy() + targetLostHp*w.Settings().EnergyGrowthModifier/100)
		}

		attackerLostHp := definitions.NormalizeHp(attackerOldHp) - definitions.NormalizeHp(attackerNewHp)
		if p := w.Players().Player(targetUnit.PlayerIndex()); p != nil && attackerLostHp > 0 && chargesEnergy(p) &&
			p.CheckIsInCoZone(destination) {
			p.SetCoCurrentEnergy(p.CoCurrentEnergy() + attackerLostHp*w.Settings().EnergyGrowthModifier/100)
		}
	}

	return attackOutcome{
		destination:     destination,
		target:          targetGrid,
		attackerNewHp:   attackerNewHp,
		targetNewHp:     targetNewHp,
		targetIsUnit:    targetUnit != nil,
		hasCounter:      action.CounterDamage != nil,
		lostPlayerIndex: action.LostPlayerIndex,
	}, nil
}

// chargesEnergy reports whether the player's commander can gain energy now.
func chargesEnergy(p *war.Player) bool {
	_, ok := p.CoTemplate()
	return ok && !p.CheckIsUsingCoSkill()
}

func isCoUnit(p *war.Player, u *war.Unit) bool {
	id := p.CoUnitID()
	return id != nil && *id == u.UnitID()
}

func resolveAttack(w *war.War, o attackOutcome) error {
	effect := w.Field().VisionEffect()
	if o.attackerNewHp > 0 {
		if o.hasCounter && o.targetNewHp > 0 {
			effect.ShowEffect(war.EffectDamage, o.destination)
		}
	} else if err := w.DestroyUnitOnMap(o.destination, true); err != nil {
		return err
	}

	switch {
	case o.targetNewHp > 0:
		effect.ShowEffect(war.EffectDamage, o.target)
	case o.targetIsUnit:
		if err := w.DestroyUnitOnMap(o.target, true); err != nil {
			return err
		}
	default:
		if err := w.DestroyTileObject(o.target); err != nil {
			return err
		}
	}

	if o.lostPlayerIndex > 0 {
		if err := w.DestroyPlayerForce(o.lostPlayerIndex); err != nil {
			return err
		}
	}
	return nil
}
