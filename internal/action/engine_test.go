package action_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/internal/war/wartest"
	"github.com/tinywars/warcore/pkg/core"
)

func gi(x, y int) core.GridIndex { return core.GridIndex{X: x, Y: y} }

func ptr(v int) *int { return &v }

// path builds a move path costing one fuel per step.
func path(nodes ...core.GridIndex) core.MovePath {
	return core.MovePath{Nodes: nodes, FuelConsumption: len(nodes) - 1}
}

type fixture struct {
	t       *testing.T
	cfg     *definitions.Config
	w       *war.War
	engine  *action.Engine
	effects *war.EffectRecorder
}

// newFixture starts a replay-mode war on the map built by build. mutate may
// edit the initial snapshot before the war loads.
func newFixture(t *testing.T, fog bool, build func(b *wartest.MapBuilder), mutate func(data *core.SerializedWar)) *fixture {
	t.Helper()
	cfg, err := definitions.NewRegistry().Get(definitions.DefaultVersion)
	require.NoError(t, err)

	b := wartest.NewMap(cfg, 5, 5, 2)
	build(b)
	template := b.Template()
	data := wartest.Snapshot(t, cfg, template, wartest.Settings(fog))
	if mutate != nil {
		mutate(data)
	}

	effects := &war.EffectRecorder{}
	w := wartest.Start(t, cfg, template, data, war.Options{
		Mode:    war.ModeReplay,
		Factory: war.ReplayFactory{Effect: effects},
	})
	engine, err := action.NewEngine(action.NopView{}, nil)
	require.NoError(t, err)
	return &fixture{t: t, cfg: cfg, w: w, engine: engine, effects: effects}
}

func (f *fixture) exec(c core.ActionContainer) {
	f.t.Helper()
	require.NoError(f.t, f.engine.Execute(context.Background(), f.w, &c))
	assert.Equal(f.t, war.PlannerIdle, f.w.Field().ActionPlanner().State())
}

func (f *fixture) unitAt(g core.GridIndex) *war.Unit {
	return f.w.Field().UnitMap().UnitOnMap(g)
}

func TestEngine_RegistersEveryActionCode(t *testing.T) {
	engine, err := action.NewEngine(nil, nil)
	require.NoError(t, err)

	codes := core.AllActionCodes()
	assert.Len(t, codes, 21)
	for _, code := range codes {
		assert.True(t, engine.HasExecutor(code), "no executor for %s", code)
	}
	assert.False(t, engine.HasExecutor(core.ActionNone))
}

func TestEngine_EmptyContainerIsInvariantViolation(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {}, nil)

	err := f.engine.Execute(context.Background(), f.w, &core.ActionContainer{ActionID: 3})
	assert.ErrorIs(t, err, action.ErrInvariant)
}

func TestEngine_MissingUnitIsInvariantViolation(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {}, nil)

	err := f.engine.Execute(context.Background(), f.w, &core.ActionContainer{
		UnitWait: &core.UnitWait{UnitMove: core.UnitMove{Path: path(gi(1, 1))}},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, action.ErrInvariant)
	assert.Contains(t, err.Error(), "UnitWait")
}

type failingView struct{ err error }

func (v failingView) MoveUnitAlongPath(context.Context, *war.Unit, core.MovePath) error { return v.err }

func TestEngine_ViewErrorIsReturned(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeInfantry, 1)
	}, nil)
	cancelled := errors.New("animation cancelled")
	engine, err := action.NewEngine(failingView{err: cancelled}, nil)
	require.NoError(t, err)

	err = engine.Execute(context.Background(), f.w, &core.ActionContainer{
		UnitWait: &core.UnitWait{UnitMove: core.UnitMove{Path: path(gi(1, 1), gi(1, 2))}},
	})
	assert.ErrorIs(t, err, cancelled)
}

// testLogger implements action.Logger for testing
type testLogger struct {
	mu       sync.Mutex
	messages []string
}

func (l *testLogger) Debug(msg string, keysAndValues ...any) { l.add("DEBUG", msg, keysAndValues) }
func (l *testLogger) Info(msg string, keysAndValues ...any)  { l.add("INFO", msg, keysAndValues) }
func (l *testLogger) Error(msg string, keysAndValues ...any) { l.add("ERROR", msg, keysAndValues) }

func (l *testLogger) add(level, msg string, keysAndValues []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = append(l.messages, fmt.Sprintf("%s: %s %v", level, msg, keysAndValues))
}

func TestEngine_LoggedExecutors(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {}, nil)
	logger := &testLogger{}
	engine, err := action.NewEngine(nil, logger, action.Logged())
	require.NoError(t, err)

	require.NoError(t, engine.Execute(context.Background(), f.w, &core.ActionContainer{
		PlayerBeginTurn: &core.PlayerBeginTurn{},
	}))
	err = engine.Execute(context.Background(), f.w, &core.ActionContainer{
		PlayerBeginTurn: &core.PlayerBeginTurn{},
	})
	require.Error(t, err, "begin turn twice must fail")

	logger.mu.Lock()
	defer logger.mu.Unlock()
	var debug, failed int
	for _, m := range logger.messages {
		switch {
		case strings.HasPrefix(m, "DEBUG: executing action"):
			debug++
		case strings.HasPrefix(m, "ERROR: action failed"):
			failed++
		}
	}
	if debug != 2 {
		t.Errorf("expected 2 executing messages, got %d: %v", debug, logger.messages)
	}
	if failed != 1 {
		t.Errorf("expected 1 failure message, got %d: %v", failed, logger.messages)
	}
}

func TestEngine_RegisterReplacesExecutor(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {}, nil)
	engine, err := action.NewEngine(nil, nil)
	require.NoError(t, err)

	called := false
	engine.Register(core.ActionPlayerSurrender, func(context.Context, *war.War, *core.ActionContainer) error {
		called = true
		return nil
	})
	require.NoError(t, engine.Execute(context.Background(), f.w, &core.ActionContainer{PlayerSurrender: &core.PlayerSurrender{}}))
	assert.True(t, called)
}

func TestEngine_CatchUpAddsDiscoveredUnits(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Unit(gi(1, 1), core.UnitTypeInfantry, 1)
	}, nil)

	f.exec(core.ActionContainer{UnitWait: &core.UnitWait{UnitMove: core.UnitMove{
		CatchUp: core.CatchUp{DiscoveredUnits: []core.SerializedUnit{
			{UnitID: 9, UnitType: core.UnitTypeRecon, PlayerIndex: 2, GridX: 4, GridY: 0},
		}},
		Path: path(gi(1, 1), gi(2, 1)),
	}}})

	discovered := f.unitAt(gi(4, 0))
	require.NotNil(t, discovered)
	assert.Equal(t, 9, discovered.UnitID())
	assert.Equal(t, core.UnitTypeRecon, discovered.Type())
}

func TestEngine_CatchUpTilesIgnoredOutsideLiveWars(t *testing.T) {
	f := newFixture(t, false, func(b *wartest.MapBuilder) {
		b.Object(gi(4, 0), core.TileTypeCity, 2).
			Unit(gi(1, 1), core.UnitTypeInfantry, 1)
	}, nil)
	city := f.w.Field().TileMap().Tile(gi(4, 0))
	require.False(t, city.IsFogEnabled())

	f.exec(core.ActionContainer{UnitWait: &core.UnitWait{UnitMove: core.UnitMove{
		CatchUp: core.CatchUp{DiscoveredTiles: []core.SerializedTile{
			{GridX: 4, GridY: 0, BaseViewID: city.BaseViewID(), ObjectViewID: definitions.EmptyObjectViewID},
		}},
		Path: path(gi(1, 1), gi(2, 1)),
	}}})

	assert.Equal(t, core.TileTypeCity, city.Type())
	assert.Equal(t, 2, city.PlayerIndex())
}
