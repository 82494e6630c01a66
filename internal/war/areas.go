package war

import (
	"github.com/tinywars/warcore/internal/area"
	"github.com/tinywars/warcore/pkg/core"
)

// MoveBudget is the move cost u may spend this turn.
func (w *War) MoveBudget(u *Unit) int {
	return max(0, min(u.template.MoveRange+w.settings.MoveRangeModifier, u.currentFuel))
}

// MoveCostFunc returns the cost function of u: impassable tiles and cells
// held by another team yield no value.
func (w *War) MoveCostFunc(u *Unit) area.MoveCostFunc {
	mapSize := w.field.MapSize()
	return func(g core.GridIndex) (int, bool) {
		if g.X < 0 || g.X >= mapSize.Width || g.Y < 0 || g.Y >= mapSize.Height {
			return 0, false
		}
		if other := w.field.unitMap.UnitOnMap(g); other != nil && !w.players.CheckIsSameTeam(other.playerIndex, u.playerIndex) {
			return 0, false
		}
		return w.field.tileMap.Tile(g).MoveCost(u.template.MoveType)
	}
}

// MovableAreaForUnit is where u can go this turn from its current grid.
func (w *War) MovableAreaForUnit(u *Unit) area.MovableArea {
	return area.CreateMovableArea(u.gridIndex, w.MoveBudget(u), w.MoveCostFunc(u))
}

// AttackableAreaForUnit is every grid u can hit this turn. Units that
// cannot fire after moving only attack from where they stand.
func (w *War) AttackableAreaForUnit(u *Unit) area.AttackableArea {
	minRange, maxRange := u.template.MinAttackRange, u.template.MaxAttackRange
	if minRange == nil || maxRange == nil {
		return area.AttackableArea{}
	}
	movable := area.MovableArea{u.gridIndex: {}}
	if u.template.CanAttackAfterMove {
		movable = w.MovableAreaForUnit(u)
	}
	canAttack := func(destination, target core.GridIndex) bool {
		if occupant := w.field.unitMap.UnitOnMap(destination); occupant != nil && occupant != u {
			return false
		}
		return w.CheckCanAttack(u, target)
	}
	return area.CreateAttackableArea(movable, w.field.MapSize(), *minRange, *maxRange, canAttack)
}

// CheckCanAttack reports whether u has a weapon usable against what stands on target.
func (w *War) CheckCanAttack(u *Unit, target core.GridIndex) bool {
	armor, ok := w.attackTargetArmor(u, target)
	if !ok {
		return false
	}
	if _, ok := u.template.SecondaryWeaponBaseDamage(armor); ok {
		return true
	}
	if _, ok := u.PrimaryWeaponBaseDamage(armor); ok && u.PrimaryWeaponCurrentAmmo() > 0 {
		return true
	}
	return false
}

func (w *War) attackTargetArmor(u *Unit, target core.GridIndex) (core.ArmorType, bool) {
	if other := w.field.unitMap.UnitOnMap(target); other != nil {
		if w.players.CheckIsSameTeam(other.playerIndex, u.playerIndex) {
			return "", false
		}
		return other.ArmorType(), true
	}
	t := w.field.tileMap.Tile(target)
	if t.template.MaxHp == nil {
		return "", false
	}
	return t.ArmorType(), true
}
