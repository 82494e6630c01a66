package replay_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/replay"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/internal/war/wartest"
	"github.com/tinywars/warcore/pkg/core"
)

func gi(x, y int) core.GridIndex { return core.GridIndex{X: x, Y: y} }

func wait(from, to core.GridIndex) core.ActionContainer {
	return core.ActionContainer{UnitWait: &core.UnitWait{UnitMove: core.UnitMove{
		Path: core.MovePath{Nodes: []core.GridIndex{from, to}, FuelConsumption: 1},
	}}}
}

// recordedWar is two turns of play on a 4x4 map. Checkpoints start at
// actions 0, 2, 5 and 8.
func recordedWar(t *testing.T) (*core.ReplayData, wartest.Maps, wartest.Configs) {
	t.Helper()
	cfg, err := definitions.NewRegistry().Get(definitions.DefaultVersion)
	require.NoError(t, err)
	template := wartest.NewMap(cfg, 4, 4, 2).
		Unit(gi(0, 0), core.UnitTypeInfantry, 1).
		Unit(gi(3, 3), core.UnitTypeInfantry, 2).
		Template()
	snapshot := wartest.Snapshot(t, cfg, template, wartest.Settings(false))

	beginTurn := core.ActionContainer{PlayerBeginTurn: &core.PlayerBeginTurn{}}
	endTurn := core.ActionContainer{PlayerEndTurn: &core.PlayerEndTurn{}}
	actions := []core.ActionContainer{
		beginTurn, endTurn,
		beginTurn, wait(gi(0, 0), gi(0, 1)), endTurn,
		beginTurn, wait(gi(3, 3), gi(3, 2)), endTurn,
		beginTurn,
	}
	for i := range actions {
		actions[i].ActionID = i
	}
	return &core.ReplayData{WarID: snapshot.WarID, Snapshot: *snapshot, Actions: actions},
		wartest.Maps{template.FileName: template},
		wartest.Configs{Config: cfg}
}

func newReplay(t *testing.T, opts replay.Options) *replay.Replay {
	t.Helper()
	data, maps, configs := recordedWar(t)
	r, err := replay.Init(t.Context(), data, maps, configs, opts)
	require.NoError(t, err)
	return r
}

func unitAt(r *replay.Replay, g core.GridIndex) *war.Unit {
	return r.War().Field().UnitMap().UnitOnMap(g)
}

func TestReplay_Init(t *testing.T) {
	r := newReplay(t, replay.Options{})

	assert.True(t, r.CheckIsInBeginning())
	assert.False(t, r.CheckIsInEnd())
	assert.Equal(t, 9, r.TotalActionsCount())
	require.NotNil(t, r.NextAction())
	assert.Equal(t, core.ActionPlayerBeginTurn, r.NextAction().Code())
	assert.Equal(t, 0, r.CheckPointID())
}

func TestReplay_InitRejectsBrokenActionLog(t *testing.T) {
	data, maps, configs := recordedWar(t)
	data.Actions[3].ActionID = 7

	_, err := replay.Init(t.Context(), data, maps, configs, replay.Options{})
	assert.Error(t, err)
}

type countingView struct{ moves int }

func (v *countingView) MoveUnitAlongPath(context.Context, *war.Unit, core.MovePath) error {
	v.moves++
	return nil
}

func TestReplay_ExecuteToEnd(t *testing.T) {
	view := &countingView{}
	r := newReplay(t, replay.Options{View: view})

	for !r.CheckIsInEnd() {
		require.NoError(t, r.ExecuteNextAction(t.Context()))
	}

	assert.ErrorIs(t, r.ExecuteNextAction(t.Context()), replay.ErrEnd)
	assert.Nil(t, r.NextAction())
	assert.NotNil(t, unitAt(r, gi(0, 1)))
	assert.NotNil(t, unitAt(r, gi(3, 2)))
	assert.Equal(t, 2, view.moves)

	var starts []int
	for _, cp := range r.CheckPoints() {
		starts = append(starts, cp.ActionID)
		assert.Equal(t, core.TurnPhaseWaitBeginTurn, cp.Snapshot.Turn.TurnPhaseCode)
	}
	assert.Equal(t, []int{0, 2, 5, 8}, starts)
}

func TestReplay_LoadNextCheckPoint(t *testing.T) {
	view := &countingView{}
	r := newReplay(t, replay.Options{View: view})

	require.NoError(t, r.LoadNextCheckPoint(t.Context()))
	assert.Equal(t, 2, r.War().NextActionID())
	assert.Equal(t, 1, r.War().Turn().PlayerIndexInTurn())

	require.NoError(t, r.LoadNextCheckPoint(t.Context()))
	assert.Equal(t, 5, r.War().NextActionID())
	assert.NotNil(t, unitAt(r, gi(0, 1)), "the turn was played to its end")
	assert.Zero(t, view.moves, "seeking does not animate")

	require.NoError(t, r.ExecuteNextAction(t.Context()))
	require.NoError(t, r.LoadNextCheckPoint(t.Context()))
	assert.Equal(t, 8, r.War().NextActionID(), "from a main phase the next checkpoint is the end of the turn")

	require.NoError(t, r.LoadNextCheckPoint(t.Context()))
	assert.True(t, r.CheckIsInEnd(), "the last turn has no checkpoint after it")
}

func TestReplay_LoadPreviousCheckPoint(t *testing.T) {
	r := newReplay(t, replay.Options{})
	require.NoError(t, r.SeekTo(t.Context(), 5))

	require.NoError(t, r.LoadPreviousCheckPoint())
	assert.Equal(t, 2, r.War().NextActionID())
	assert.NotNil(t, unitAt(r, gi(0, 0)), "state is restored, not replayed")
	assert.Nil(t, unitAt(r, gi(0, 1)))

	require.NoError(t, r.ExecuteNextAction(t.Context()))
	require.NoError(t, r.ExecuteNextAction(t.Context()))
	require.NoError(t, r.LoadPreviousCheckPoint())
	assert.Equal(t, 2, r.War().NextActionID(), "from a main phase it goes back to the start of the turn")

	require.NoError(t, r.LoadPreviousCheckPoint())
	assert.True(t, r.CheckIsInBeginning())
	require.NoError(t, r.LoadPreviousCheckPoint())
	assert.Equal(t, 0, r.War().NextActionID())
}

func TestReplay_SeekTo(t *testing.T) {
	r := newReplay(t, replay.Options{})

	require.NoError(t, r.SeekTo(t.Context(), 7))
	assert.Equal(t, 7, r.War().NextActionID())
	assert.NotNil(t, unitAt(r, gi(3, 2)))

	require.NoError(t, r.SeekTo(t.Context(), 3))
	assert.Equal(t, 3, r.War().NextActionID())
	assert.NotNil(t, unitAt(r, gi(0, 0)))
	assert.NotNil(t, unitAt(r, gi(3, 3)))

	require.NoError(t, r.SeekTo(t.Context(), 9))
	assert.True(t, r.CheckIsInEnd())

	assert.Error(t, r.SeekTo(t.Context(), 10))
}

func TestReplay_SerializeResumesMidTurn(t *testing.T) {
	r := newReplay(t, replay.Options{})
	require.NoError(t, r.SeekTo(t.Context(), 6))

	data := r.Serialize()
	assert.Equal(t, 6, data.Snapshot.NextActionID)
	assert.Len(t, data.Actions, 9)

	_, maps, configs := recordedWar(t)
	resumed, err := replay.Init(t.Context(), data, maps, configs, replay.Options{})
	require.NoError(t, err)
	assert.True(t, resumed.CheckIsInBeginning())
	assert.Equal(t, core.ActionUnitWait, resumed.NextAction().Code())

	require.NoError(t, resumed.LoadNextCheckPoint(t.Context()))
	assert.Equal(t, 8, resumed.War().NextActionID())
	assert.NotNil(t, resumed.War().Field().UnitMap().UnitOnMap(gi(3, 2)))

	require.NoError(t, resumed.LoadPreviousCheckPoint())
	assert.Equal(t, 6, resumed.War().NextActionID())
}

func TestReplay_RecordingStartedMidWar(t *testing.T) {
	r := newReplay(t, replay.Options{})
	require.NoError(t, r.SeekTo(t.Context(), 5))
	full := r.Serialize()

	data := &core.ReplayData{WarID: full.WarID, Snapshot: full.Snapshot, Actions: full.Actions[5:]}
	_, maps, configs := recordedWar(t)
	late, err := replay.Init(t.Context(), data, maps, configs, replay.Options{})
	require.NoError(t, err)

	assert.Equal(t, 9, late.TotalActionsCount())
	assert.True(t, late.CheckIsInBeginning())
	assert.Error(t, late.SeekTo(t.Context(), 4), "actions before the recording are unknown")

	for !late.CheckIsInEnd() {
		require.NoError(t, late.ExecuteNextAction(t.Context()))
	}
	assert.NotNil(t, unitAt(late, gi(3, 2)))
}
