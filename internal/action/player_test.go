package action_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/internal/war/wartest"
	"github.com/tinywars/warcore/pkg/core"
)

var (
	beginTurn = core.ActionContainer{PlayerBeginTurn: &core.PlayerBeginTurn{}}
	endTurn   = core.ActionContainer{PlayerEndTurn: &core.PlayerEndTurn{}}
)

func TestPlayerTurns_CycleThroughAlivePlayers(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Object(gi(0, 0), core.TileTypeHeadquarters, 1).
			Object(gi(4, 4), core.TileTypeHeadquarters, 2).
			Object(gi(2, 2), core.TileTypeCity, 1)
	}, nil)
	turn := f.w.Turn()
	require.Equal(t, 0, turn.PlayerIndexInTurn())

	f.exec(beginTurn)
	assert.Equal(t, core.TurnPhaseMain, turn.PhaseCode())
	f.exec(endTurn)
	assert.Equal(t, 1, turn.PlayerIndexInTurn())
	assert.Equal(t, core.TurnPhaseWaitBeginTurn, turn.PhaseCode())
	assert.Equal(t, 0, turn.TurnIndex())

	f.exec(beginTurn)
	assert.Equal(t, 12000, f.w.Players().Player(1).Fund(), "two owned tiles pay income")
	f.exec(endTurn)
	f.exec(beginTurn)
	f.exec(endTurn)
	assert.Equal(t, 1, turn.PlayerIndexInTurn())
	assert.Equal(t, 1, turn.TurnIndex())
}

func TestPlayerEndTurn_ResetsUnitStates(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeInfantry, 1)
	}, nil)
	f.exec(beginTurn)
	f.exec(endTurn)
	f.exec(beginTurn)
	f.exec(core.ActionContainer{UnitWait: &core.UnitWait{UnitMove: core.UnitMove{Path: path(gi(1, 1))}}})
	require.Equal(t, core.UnitStateActed, f.unitAt(gi(1, 1)).State())

	f.exec(endTurn)

	assert.Equal(t, core.UnitStateIdle, f.unitAt(gi(1, 1)).State())
	assert.Equal(t, 2, f.w.Turn().PlayerIndexInTurn())
}

func TestPlayerEndTurn_LivePlannerRequestsBeginTurn(t *testing.T) {
	cfg, err := definitions.NewRegistry().Get(definitions.DefaultVersion)
	require.NoError(t, err)
	template := wartest.NewMap(cfg, 3, 3, 2).Template()
	data := wartest.Snapshot(t, cfg, template, wartest.Settings(false))
	w := wartest.Start(t, cfg, template, data, war.Options{
		Mode:                war.ModeLive,
		LoggedInPlayerIndex: 1,
		Factory:             war.LiveFactory{},
	})
	engine, err := action.NewEngine(nil, nil)
	require.NoError(t, err)

	require.NoError(t, engine.Execute(t.Context(), w, &beginTurn))
	require.NoError(t, engine.Execute(t.Context(), w, &endTurn))

	assert.Equal(t, war.PlannerRequestingPlayerBeginTurn, w.Field().ActionPlanner().State())
}

func TestPlayerProduceUnit(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Object(gi(3, 3), core.TileTypeFactory, 1).
			Unit(gi(0, 0), core.UnitTypeInfantry, 1)
	}, nil)
	f.exec(beginTurn)
	f.exec(endTurn)
	f.exec(beginTurn)
	player := f.w.Players().Player(1)
	fund := player.Fund()

	f.exec(core.ActionContainer{PlayerProduceUnit: &core.PlayerProduceUnit{
		GridIndex: &core.GridIndex{X: 3, Y: 3},
		UnitType:  core.UnitTypeTank,
		Cost:      7000,
	}})

	tank := f.unitAt(gi(3, 3))
	require.NotNil(t, tank)
	assert.Equal(t, 1, tank.UnitID())
	assert.Equal(t, core.UnitStateActed, tank.State())
	assert.Equal(t, fund-7000, player.Fund())
	assert.Equal(t, 2, f.w.Field().UnitMap().NextUnitID())
}

func TestPlayerProduceUnit_HiddenFactoryOnlyConsumesID(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {}, nil)
	f.exec(beginTurn)
	f.exec(endTurn)
	f.exec(beginTurn)
	player := f.w.Players().Player(1)
	fund := player.Fund()

	f.exec(core.ActionContainer{PlayerProduceUnit: &core.PlayerProduceUnit{Cost: 1000}})

	assert.Equal(t, 1, f.w.Field().UnitMap().NextUnitID())
	assert.Equal(t, fund-1000, player.Fund())
	count := 0
	f.w.Field().UnitMap().ForEachUnit(func(*war.Unit) { count++ })
	assert.Zero(t, count)
}

func TestPlayerVoteForDraw(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {}, nil)
	f.exec(beginTurn)
	f.exec(endTurn)
	f.exec(beginTurn)

	f.exec(core.ActionContainer{PlayerVoteForDraw: &core.PlayerVoteForDraw{IsAgree: true}})
	votes := f.w.RemainingVotesForDraw()
	require.NotNil(t, votes)
	assert.Equal(t, 1, *votes)
	assert.True(t, f.w.Players().Player(1).HasVotedForDraw())

	f.exec(endTurn)
	f.exec(beginTurn)
	f.exec(core.ActionContainer{PlayerVoteForDraw: &core.PlayerVoteForDraw{IsAgree: false}})
	assert.Nil(t, f.w.RemainingVotesForDraw())
}

func TestPlayerSurrender(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Object(gi(0, 0), core.TileTypeCity, 1).
			Unit(gi(1, 1), core.UnitTypeInfantry, 1)
	}, nil)
	f.exec(beginTurn)
	f.exec(endTurn)
	f.exec(beginTurn)

	f.exec(core.ActionContainer{PlayerSurrender: &core.PlayerSurrender{}})

	assert.False(t, f.w.Players().Player(1).IsAlive())
	assert.Nil(t, f.unitAt(gi(1, 1)))
	assert.Equal(t, 0, f.w.Field().TileMap().Tile(gi(0, 0)).PlayerIndex())
	assert.Empty(t, f.effects.Drain(), "surrendered units vanish without explosions")
}

func TestPlayerDeleteUnit(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(2, 2), core.UnitTypeRecon, 1)
	}, nil)

	f.exec(core.ActionContainer{PlayerDeleteUnit: &core.PlayerDeleteUnit{GridIndex: gi(2, 2)}})

	assert.Nil(t, f.unitAt(gi(2, 2)))
	assert.Equal(t, []war.Effect{{Kind: war.EffectExplosion, GridIndex: gi(2, 2)}}, f.effects.Drain())

	err := f.engine.Execute(t.Context(), f.w, &core.ActionContainer{PlayerDeleteUnit: &core.PlayerDeleteUnit{GridIndex: gi(2, 2)}})
	assert.ErrorIs(t, err, action.ErrInvariant)
}
