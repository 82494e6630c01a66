package war_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/area"
	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/internal/war/wartest"
	"github.com/tinywars/warcore/pkg/core"
)

func testConfig(t *testing.T) *definitions.Config {
	t.Helper()
	cfg, err := definitions.NewRegistry().Get(definitions.DefaultVersion)
	require.NoError(t, err)
	return cfg
}

// twoPlayerMap is a 5x5 plain map: player 1 holds the north west corner,
// player 2 the south east one.
func twoPlayerMap(cfg *definitions.Config) *wartest.MapBuilder {
	return wartest.NewMap(cfg, 5, 5, 2).
		Object(core.GridIndex{X: 0, Y: 0}, core.TileTypeHeadquarters, 1).
		Object(core.GridIndex{X: 1, Y: 0}, core.TileTypeCity, 1).
		Object(core.GridIndex{X: 2, Y: 0}, core.TileTypeCity, 0).
		Object(core.GridIndex{X: 4, Y: 4}, core.TileTypeHeadquarters, 2).
		Unit(core.GridIndex{X: 1, Y: 1}, core.UnitTypeInfantry, 1).
		Unit(core.GridIndex{X: 3, Y: 3}, core.UnitTypeInfantry, 2)
}

func startWar(t *testing.T, fog bool, opts war.Options) (*war.War, *definitions.Config) {
	t.Helper()
	cfg := testConfig(t)
	template := twoPlayerMap(cfg).Template()
	data := wartest.Snapshot(t, cfg, template, wartest.Settings(fog))
	return wartest.Start(t, cfg, template, data, opts), cfg
}

func TestTileMap_SerializeKeepsOnlyChangedTiles(t *testing.T) {
	w, _ := startWar(t, false, war.Options{Mode: war.ModeReplay})

	assert.Nil(t, w.Serialize().Field.TileMap, "untouched map should serialize to nothing")

	tileMap := w.Field().TileMap()
	tileMap.Tile(core.GridIndex{X: 2, Y: 2}).SetCurrentBuildPoint(15)
	tileMap.Tile(core.GridIndex{X: 2, Y: 0}).SetCurrentCapturePoint(8)

	got := w.Serialize().Field.TileMap
	require.NotNil(t, got)
	require.Len(t, got.Tiles, 2)

	city := got.Tiles[0]
	assert.Equal(t, core.GridIndex{X: 2, Y: 0}, city.GridIndex())
	require.NotNil(t, city.CurrentCapturePoint)
	assert.Equal(t, 8, *city.CurrentCapturePoint)
	assert.Nil(t, city.CurrentBuildPoint)

	plain := got.Tiles[1]
	assert.Equal(t, core.GridIndex{X: 2, Y: 2}, plain.GridIndex())
	require.NotNil(t, plain.CurrentBuildPoint)
	assert.Equal(t, 15, *plain.CurrentBuildPoint)
	assert.Nil(t, plain.CurrentCapturePoint)

	tileMap.Tile(core.GridIndex{X: 2, Y: 2}).SetCurrentBuildPoint(20)
	got = w.Serialize().Field.TileMap
	require.NotNil(t, got)
	assert.Len(t, got.Tiles, 1)
}

func TestWar_SnapshotRoundTrip(t *testing.T) {
	cfg := testConfig(t)
	template := twoPlayerMap(cfg).Template()
	data := wartest.Snapshot(t, cfg, template, wartest.Settings(true))
	w := wartest.Start(t, cfg, template, data, war.Options{Mode: war.ModeReplay})

	w.Field().UnitMap().UnitByID(0).SetCurrentHp(40)
	w.Field().TileMap().Tile(core.GridIndex{X: 2, Y: 0}).SetCurrentCapturePoint(5)

	again := wartest.Start(t, cfg, template, w.Serialize(), war.Options{Mode: war.ModeReplay})
	assert.Equal(t, w.Serialize(), again.Serialize())
	assert.Equal(t, 40, again.Field().UnitMap().UnitByID(0).CurrentHp())
}

func TestWar_RandomStateSurvivesSnapshot(t *testing.T) {
	cfg := testConfig(t)
	template := twoPlayerMap(cfg).Template()
	w := wartest.Start(t, cfg, template, wartest.Snapshot(t, cfg, template, wartest.Settings(false)), war.Options{Mode: war.ModeReplay})

	for range 3 {
		w.RandomIntN(1000)
	}
	snapshot := w.Serialize()
	want := []int{w.RandomIntN(1000), w.RandomIntN(1000)}

	restored := wartest.Start(t, cfg, template, snapshot, war.Options{Mode: war.ModeReplay})
	got := []int{restored.RandomIntN(1000), restored.RandomIntN(1000)}
	assert.Equal(t, want, got)
}

func TestUnitMap_RejectsSecondUnitOnCell(t *testing.T) {
	w, cfg := startWar(t, false, war.Options{Mode: war.ModeReplay})

	u, err := war.NewUnit(cfg, core.SerializedUnit{UnitID: 9, UnitType: core.UnitTypeTank, PlayerIndex: 1, GridX: 1, GridY: 1})
	require.NoError(t, err)
	err = w.Field().UnitMap().AddUnitOnMap(u)
	assert.ErrorIs(t, err, war.ErrInvariant)
}

func TestUnitMap_LoadedUnitsFollowLoader(t *testing.T) {
	cfg := testConfig(t)
	template := twoPlayerMap(cfg).Unit(core.GridIndex{X: 2, Y: 2}, core.UnitTypeRig, 1).Template()
	data := wartest.Snapshot(t, cfg, template, wartest.Settings(false))
	rigID := 2
	data.Field.UnitMap.Units = append(data.Field.UnitMap.Units, core.SerializedUnit{
		UnitID: 3, UnitType: core.UnitTypeInfantry, PlayerIndex: 1, GridX: 2, GridY: 2, LoaderUnitID: &rigID,
	})
	data.Field.UnitMap.NextUnitID = 4

	effects := &war.EffectRecorder{}
	w := wartest.Start(t, cfg, template, data, war.Options{Mode: war.ModeReplay, Factory: war.ReplayFactory{Effect: effects}})
	unitMap := w.Field().UnitMap()

	rig := unitMap.UnitOnMap(core.GridIndex{X: 2, Y: 2})
	require.NotNil(t, rig)
	cargo := unitMap.UnitsLoadedByLoader(rig, true)
	require.Len(t, cargo, 1)
	assert.Equal(t, 3, cargo[0].UnitID())
	assert.True(t, cargo[0].CheckIsLoaded())

	require.NoError(t, w.DestroyUnitOnMap(core.GridIndex{X: 2, Y: 2}, true))
	assert.Nil(t, unitMap.UnitByID(2))
	assert.Nil(t, unitMap.UnitByID(3))
	assert.Equal(t, []war.Effect{{Kind: war.EffectExplosion, GridIndex: core.GridIndex{X: 2, Y: 2}}}, effects.Drain())
	assert.Equal(t, 4, unitMap.NextUnitID(), "ids are never reused")
}

func TestTurnManager_TurnOrderAndIncome(t *testing.T) {
	w, _ := startWar(t, false, war.Options{Mode: war.ModeReplay})
	turn := w.Turn()
	players := w.Players()

	assert.Equal(t, 0, turn.PlayerIndexInTurn())
	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))
	assert.Equal(t, core.TurnPhaseMain, turn.PhaseCode())
	require.NoError(t, turn.EndPhaseMain())
	assert.Equal(t, 1, turn.PlayerIndexInTurn())
	assert.Equal(t, 0, turn.TurnIndex())

	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))
	assert.Equal(t, 12000, players.Player(1).Fund(), "headquarters and city pay 1000 each")
	require.NoError(t, turn.EndPhaseMain())
	assert.Equal(t, 2, turn.PlayerIndexInTurn())

	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))
	assert.Equal(t, 11000, players.Player(2).Fund())
	require.NoError(t, turn.EndPhaseMain())

	assert.Equal(t, 1, turn.PlayerIndexInTurn(), "neutral player never plays again")
	assert.Equal(t, 1, turn.TurnIndex())
	assert.Equal(t, core.TurnPhaseWaitBeginTurn, turn.PhaseCode())

	err := turn.EndPhaseMain()
	assert.ErrorIs(t, err, war.ErrInvariant)
}

func TestTurnManager_RepairsOnOwnedTile(t *testing.T) {
	cfg := testConfig(t)
	template := twoPlayerMap(cfg).Unit(core.GridIndex{X: 1, Y: 0}, core.UnitTypeInfantry, 1).Template()
	w := wartest.Start(t, cfg, template, wartest.Snapshot(t, cfg, template, wartest.Settings(false)), war.Options{Mode: war.ModeReplay})

	onCity := w.Field().UnitMap().UnitOnMap(core.GridIndex{X: 1, Y: 0})
	onCity.SetCurrentHp(50)
	onCity.SetCurrentFuel(10)

	turn := w.Turn()
	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))
	require.NoError(t, turn.EndPhaseMain())
	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))

	assert.Equal(t, 70, onCity.CurrentHp())
	assert.Equal(t, onCity.MaxFuel(), onCity.CurrentFuel())
	if fund := w.Players().Player(1).Fund(); fund != 12000-200 {
		t.Errorf("expected repair to cost 200, fund is %d", fund)
	}
}

func TestTurnManager_OutOfFuelDestroysAircraft(t *testing.T) {
	cfg := testConfig(t)
	template := twoPlayerMap(cfg).Unit(core.GridIndex{X: 2, Y: 3}, core.UnitTypeFighter, 1).Template()
	w := wartest.Start(t, cfg, template, wartest.Snapshot(t, cfg, template, wartest.Settings(false)), war.Options{Mode: war.ModeReplay})

	fighter := w.Field().UnitMap().UnitOnMap(core.GridIndex{X: 2, Y: 3})
	fighter.SetCurrentFuel(3)

	turn := w.Turn()
	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))
	require.NoError(t, turn.EndPhaseMain())
	require.NoError(t, turn.EndPhaseWaitBeginTurn(0))

	assert.Nil(t, w.Field().UnitMap().UnitOnMap(core.GridIndex{X: 2, Y: 3}))
}

func TestDestroyPlayerForce(t *testing.T) {
	w, cfg := startWar(t, true, war.Options{Mode: war.ModeReplay})

	require.NoError(t, w.DestroyPlayerForce(2))

	assert.Nil(t, w.Field().UnitMap().UnitByID(1))
	assert.False(t, w.Players().Player(2).IsAlive())
	assert.Equal(t, 1, w.Players().AliveTeamsCount(false, -1))

	hq := w.Field().TileMap().Tile(core.GridIndex{X: 4, Y: 4})
	assert.Equal(t, core.TileTypeCity, hq.Type())
	assert.Equal(t, 0, hq.PlayerIndex())
	cityViewID, _ := cfg.TileObjectViewID(core.TileTypeCity, 0)
	assert.Equal(t, cityViewID, hq.ObjectViewID())

	err := w.DestroyPlayerForce(0)
	assert.ErrorIs(t, err, war.ErrInvariant)
}

func TestWar_SerializeForPlayerHidesFoggedUnits(t *testing.T) {
	w, _ := startWar(t, true, war.Options{Mode: war.ModeReplay})

	full := w.Serialize()
	assert.Len(t, full.Field.UnitMap.Units, 2)

	forPlayer1 := w.SerializeForPlayer(1)
	require.Len(t, forPlayer1.Field.UnitMap.Units, 1)
	assert.Equal(t, 1, forPlayer1.Field.UnitMap.Units[0].PlayerIndex)
	assert.Equal(t, full.Field.UnitMap.NextUnitID, forPlayer1.Field.UnitMap.NextUnitID)
}

func TestWar_RefreshVisibilityInLiveMode(t *testing.T) {
	w, _ := startWar(t, true, war.Options{Mode: war.ModeLive, LoggedInPlayerIndex: 1})

	require.NoError(t, w.RefreshVisibility())

	assert.Nil(t, w.Field().UnitMap().UnitByID(1), "enemy unit out of sight is dropped")
	assert.NotNil(t, w.Field().UnitMap().UnitByID(0))
	assert.True(t, w.Field().TileMap().Tile(core.GridIndex{X: 4, Y: 4}).IsFogEnabled())
	assert.False(t, w.Field().TileMap().Tile(core.GridIndex{X: 0, Y: 0}).IsFogEnabled())
}

func TestTile_SetFogDisabledNeedsFoggedTile(t *testing.T) {
	w, _ := startWar(t, true, war.Options{Mode: war.ModeLive, LoggedInPlayerIndex: 1})
	require.NoError(t, w.RefreshVisibility())

	visible := w.Field().TileMap().Tile(core.GridIndex{X: 0, Y: 0})
	assert.ErrorIs(t, visible.SetFogDisabled(nil), war.ErrInvariant)

	fogged := w.Field().TileMap().Tile(core.GridIndex{X: 4, Y: 4})
	require.NoError(t, fogged.SetFogDisabled(nil))
	assert.False(t, fogged.IsFogEnabled())
	assert.Equal(t, 2, fogged.PlayerIndex(), "the template owner is restored")
	if err := fogged.SetFogDisabled(nil); err == nil {
		t.Errorf("disabling fog twice on (4,4) should fail")
	}
}

func TestWar_MovableAreaBlockedByEnemy(t *testing.T) {
	cfg := testConfig(t)
	template := wartest.NewMap(cfg, 5, 5, 2).
		Unit(core.GridIndex{X: 1, Y: 1}, core.UnitTypeInfantry, 1).
		Unit(core.GridIndex{X: 2, Y: 1}, core.UnitTypeInfantry, 2).
		Template()
	w := wartest.Start(t, cfg, template, wartest.Snapshot(t, cfg, template, wartest.Settings(false)), war.Options{Mode: war.ModeReplay})

	infantry := w.Field().UnitMap().UnitByID(0)
	movable := w.MovableAreaForUnit(infantry)

	assert.True(t, area.CheckAreaHasGrid(movable, core.GridIndex{X: 1, Y: 1}))
	assert.False(t, area.CheckAreaHasGrid(movable, core.GridIndex{X: 2, Y: 1}))
	assert.False(t, area.CheckAreaHasGrid(movable, core.GridIndex{X: 3, Y: 1}), "detour costs 4")
	assert.Equal(t, 3, movable[core.GridIndex{X: 2, Y: 3}].TotalMoveCost)

	attackable := w.AttackableAreaForUnit(infantry)
	assert.True(t, area.CheckAreaHasGrid(attackable, core.GridIndex{X: 2, Y: 1}))
}

func TestPlayerManager_Queries(t *testing.T) {
	w, _ := startWar(t, false, war.Options{Mode: war.ModeReplay})
	players := w.Players()

	assert.Equal(t, 3, players.TotalPlayersCount(true))
	assert.Equal(t, 2, players.TotalPlayersCount(false))
	assert.Equal(t, 2, players.AlivePlayersCount(false))
	assert.Equal(t, 2, players.AliveTeamsCount(false, -1))
	assert.Equal(t, 1, players.AliveTeamsCount(false, 2))
	assert.False(t, players.CheckIsSameTeam(1, 2))
	assert.True(t, players.CheckIsSameTeam(1, 1))

	p := players.PlayerByUserID(102)
	require.NotNil(t, p)
	assert.Equal(t, 2, p.PlayerIndex())
	assert.Nil(t, players.PlayerByUserID(7))
}
