package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/internal/war/wartest"
	"github.com/tinywars/warcore/pkg/core"
)

func attack(from []core.GridIndex, target core.GridIndex, damage int, counter *int) core.ActionContainer {
	return core.ActionContainer{UnitAttack: &core.UnitAttack{
		UnitMove:        core.UnitMove{Path: path(from...)},
		TargetGridIndex: target,
		AttackDamage:    damage,
		CounterDamage:   counter,
	}}
}

func TestUnitAttack_CounterKillPromotesDefender(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeInfantry, 1).
			Unit(gi(2, 1), core.UnitTypeTank, 2)
	}, func(data *core.SerializedWar) {
		data.Field.UnitMap.Units[0].CurrentHp = ptr(definitions.UnitHpNormalizer)
	})
	infantry := f.unitAt(gi(1, 1))
	require.Equal(t, definitions.UnitHpNormalizer, infantry.CurrentHp())

	f.exec(attack([]core.GridIndex{gi(1, 1)}, gi(2, 1), 10, ptr(definitions.UnitHpNormalizer)))

	assert.Nil(t, f.unitAt(gi(1, 1)), "the attacker dies on the counter")
	tank := f.unitAt(gi(2, 1))
	require.NotNil(t, tank)
	assert.Equal(t, 90, tank.CurrentHp())
	assert.Equal(t, 1, tank.CurrentPromotion())
	assert.Equal(t, 0, infantry.CurrentPromotion())
	assert.Equal(t, 9, tank.PrimaryWeaponCurrentAmmo(), "the counter used the machine gun")
	assert.Equal(t, []war.Effect{
		{Kind: war.EffectExplosion, GridIndex: gi(1, 1)},
		{Kind: war.EffectDamage, GridIndex: gi(2, 1)},
	}, f.effects.Drain())
}

func TestUnitAttack_KillPromotesAttackerAndSpendsAmmo(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(0, 2), core.UnitTypeTank, 1).
			Unit(gi(1, 3), core.UnitTypeRecon, 2)
	}, nil)

	f.exec(attack([]core.GridIndex{gi(0, 2), gi(1, 2)}, gi(1, 3), 100, nil))

	tank := f.unitAt(gi(1, 2))
	require.NotNil(t, tank)
	assert.Equal(t, 8, tank.PrimaryWeaponCurrentAmmo())
	assert.Equal(t, 1, tank.CurrentPromotion())
	assert.Equal(t, 69, tank.CurrentFuel())
	assert.Nil(t, f.unitAt(gi(1, 3)))
	assert.Equal(t, []war.Effect{{Kind: war.EffectExplosion, GridIndex: gi(1, 3)}}, f.effects.Drain())
}

func TestUnitAttack_CommanderUnitChargesEnergy(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeTank, 1).
			Unit(gi(1, 2), core.UnitTypeRecon, 2)
	}, withCommander(ptr(0), 0))
	player := f.w.Players().Player(1)

	f.exec(attack([]core.GridIndex{gi(1, 1)}, gi(1, 2), 45, nil))

	assert.Equal(t, 55, f.unitAt(gi(1, 2)).CurrentHp())
	assert.Equal(t, 4, player.CoCurrentEnergy(), "ten bars down to six")
}

func TestUnitAttack_NoEnergyWithoutCommanderOnBoard(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(0, 0), core.UnitTypeTank, 1).
			Unit(gi(4, 3), core.UnitTypeTank, 1).
			Unit(gi(4, 4), core.UnitTypeRecon, 2)
	}, withCommander(ptr(0), 0))

	f.exec(attack([]core.GridIndex{gi(4, 3)}, gi(4, 4), 45, nil))

	assert.Equal(t, 0, f.w.Players().Player(1).CoCurrentEnergy(), "outside the commander zone")
}

func TestUnitAttack_DestroysMeteor(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Object(gi(2, 2), core.TileTypeMeteor, 0).
			Object(gi(2, 3), core.TileTypePlasma, 0).
			Unit(gi(1, 2), core.UnitTypeTank, 1)
	}, nil)
	tileMap := f.w.Field().TileMap()

	f.exec(attack([]core.GridIndex{gi(1, 2)}, gi(2, 2), 99, nil))

	assert.Equal(t, core.TileTypePlain, tileMap.Tile(gi(2, 2)).Type())
	assert.Equal(t, core.TileTypePlain, tileMap.Tile(gi(2, 3)).Type(), "connected plasma goes with the meteor")
	assert.Equal(t, 8, f.unitAt(gi(1, 2)).PrimaryWeaponCurrentAmmo())
}

func TestUnitAttack_DamagedTileObjectKeepsHp(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Object(gi(2, 2), core.TileTypeMeteor, 0).
			Unit(gi(1, 2), core.UnitTypeTank, 1)
	}, nil)

	f.exec(attack([]core.GridIndex{gi(1, 2)}, gi(2, 2), 20, nil))

	meteor := f.w.Field().TileMap().Tile(gi(2, 2))
	assert.Equal(t, core.TileTypeMeteor, meteor.Type())
	assert.Equal(t, 79, meteor.CurrentHp())
	assert.Equal(t, []war.Effect{{Kind: war.EffectDamage, GridIndex: gi(2, 2)}}, f.effects.Drain())
}

func TestUnitAttack_LastUnitDefeatsPlayer(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeTank, 1).
			Unit(gi(1, 2), core.UnitTypeRecon, 2)
	}, nil)

	c := attack([]core.GridIndex{gi(1, 1)}, gi(1, 2), 100, nil)
	c.UnitAttack.LostPlayerIndex = 2
	f.exec(c)

	assert.False(t, f.w.Players().Player(2).IsAlive())
	assert.True(t, f.w.Players().Player(1).IsAlive())
}

func TestUnitAttack_BlockedPathOnlyMoves(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(0, 0), core.UnitTypeTank, 1).
			Unit(gi(2, 1), core.UnitTypeRecon, 2)
	}, nil)

	c := attack([]core.GridIndex{gi(0, 0), gi(1, 0)}, gi(2, 1), 100, nil)
	c.UnitAttack.Path.IsBlocked = true
	f.exec(c)

	tank := f.unitAt(gi(1, 0))
	require.NotNil(t, tank)
	assert.Equal(t, 9, tank.PrimaryWeaponCurrentAmmo())
	assert.Equal(t, 100, f.unitAt(gi(2, 1)).CurrentHp())
}

func TestUnitAttack_EmptyTargetIsInvariantViolation(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeTank, 1)
	}, nil)

	c := attack([]core.GridIndex{gi(1, 1)}, gi(3, 3), 50, nil)
	err := f.engine.Execute(t.Context(), f.w, &c)
	assert.ErrorIs(t, err, war.ErrInvariant)
}
