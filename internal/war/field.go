package war

import (
	"fmt"
	"sync"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/fog"
	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/pkg/core"
)

// PlannerState is what the local action planner is doing.
type PlannerState int

const (
	PlannerIdle PlannerState = iota
	PlannerExecutingAction
	PlannerRequestingPlayerBeginTurn
	PlannerRequestingPlayerEndTurn
	PlannerRequestingPlayerSurrender
	PlannerRequestingPlayerVoteForDraw
	PlannerRequestingPlayerProduceUnit
	PlannerRequestingPlayerDeleteUnit
	PlannerRequestingUnitAttack
	PlannerRequestingUnitBeLoaded
	PlannerRequestingUnitBuildTile
	PlannerRequestingUnitCaptureTile
	PlannerRequestingUnitDive
	PlannerRequestingUnitDrop
	PlannerRequestingUnitJoin
	PlannerRequestingUnitLaunchFlare
	PlannerRequestingUnitLaunchSilo
	PlannerRequestingUnitLoadCo
	PlannerRequestingUnitProduceUnit
	PlannerRequestingUnitSupply
	PlannerRequestingUnitSurface
	PlannerRequestingUnitUseCoSkill
	PlannerRequestingUnitWait
	PlannerChoosingAction
	PlannerChoosingMoveDestination
	PlannerChoosingAttackTarget
	PlannerChoosingDropDestination
	PlannerChoosingFlareDestination
	PlannerChoosingSiloDestination
	PlannerChoosingProductionTarget
	PlannerPreviewingMovableArea
	PlannerPreviewingAttackableArea
)

// CheckIsRequesting reports whether the state waits for a server answer.
func (s PlannerState) CheckIsRequesting() bool {
	return s >= PlannerRequestingPlayerBeginTurn && s <= PlannerRequestingUnitWait
}

// ActionPlanner is the local state machine that prepares player requests.
type ActionPlanner interface {
	State() PlannerState
	SetState(s PlannerState)
	StartRunning(w *War)
	StopRunning()
}

// EffectKind names a visual effect.
type EffectKind int

const (
	EffectExplosion EffectKind = iota
	EffectFlare
	EffectSilo
	EffectSupply
	EffectRepair
	EffectDamage
	EffectSkill
	EffectBlock
)

// VisionEffect shows effects on grids. Implementations must not block.
type VisionEffect interface {
	ShowEffect(kind EffectKind, g core.GridIndex)
}

// NopEffect discards every effect.
type NopEffect struct{}

func (NopEffect) ShowEffect(EffectKind, core.GridIndex) {}

// Effect is one recorded effect.
type Effect struct {
	Kind      EffectKind
	GridIndex core.GridIndex
}

// EffectRecorder keeps the effects shown since the last Drain.
type EffectRecorder struct {
	mu      sync.Mutex
	effects []Effect
}

func (r *EffectRecorder) ShowEffect(kind EffectKind, g core.GridIndex) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.effects = append(r.effects, Effect{Kind: kind, GridIndex: g})
}

func (r *EffectRecorder) Drain() []Effect {
	r.mu.Lock()
	defer r.mu.Unlock()
	effects := r.effects
	r.effects = nil
	return effects
}

// Cursor is the selected grid of the local player, always inside the map.
type Cursor struct {
	mapSize   core.MapSize
	gridIndex core.GridIndex
}

func (c *Cursor) StartRunning(w *War) { c.mapSize = w.field.MapSize() }
func (c *Cursor) StopRunning()        {}

func (c *Cursor) GridIndex() core.GridIndex { return c.gridIndex }

func (c *Cursor) SetGridIndex(g core.GridIndex) {
	if grid.CheckIsInsideMap(g, c.mapSize) {
		c.gridIndex = g
	}
}

// ComponentFactory builds the parts of a field that differ between a live
// war and a replay.
type ComponentFactory interface {
	NewCursor() *Cursor
	NewActionPlanner() ActionPlanner
	NewVisionEffect() VisionEffect
}

type livePlanner struct {
	state PlannerState
}

func (p *livePlanner) State() PlannerState     { return p.state }
func (p *livePlanner) SetState(s PlannerState) { p.state = s }
func (p *livePlanner) StartRunning(*War)       { p.state = PlannerIdle }
func (p *livePlanner) StopRunning()            {}

// replayPlanner never asks the server for anything.
type replayPlanner struct {
	livePlanner
}

func (p *replayPlanner) SetState(s PlannerState) {
	if s.CheckIsRequesting() {
		return
	}
	p.state = s
}

// LiveFactory builds components for a war played by a logged-in player.
// Effect is optional.
type LiveFactory struct {
	Effect VisionEffect
}

func (LiveFactory) NewCursor() *Cursor              { return &Cursor{} }
func (LiveFactory) NewActionPlanner() ActionPlanner { return &livePlanner{} }
func (f LiveFactory) NewVisionEffect() VisionEffect {
	if f.Effect == nil {
		return NopEffect{}
	}
	return f.Effect
}

// ReplayFactory builds components for replays and the server.
type ReplayFactory struct {
	Effect VisionEffect
}

func (ReplayFactory) NewCursor() *Cursor              { return &Cursor{} }
func (ReplayFactory) NewActionPlanner() ActionPlanner { return &replayPlanner{} }
func (f ReplayFactory) NewVisionEffect() VisionEffect {
	if f.Effect == nil {
		return NopEffect{}
	}
	return f.Effect
}

// Field owns the battlefield components.
type Field struct {
	fogMap  *fog.Map
	tileMap *TileMap
	unitMap *UnitMap
	cursor  *Cursor
	planner ActionPlanner
	effect  VisionEffect
}

// NewField builds the components in order: fog, tiles, units, cursor, planner, effect.
func NewField(cfg *definitions.Config, template *core.MapTemplate, data core.SerializedField, playersCount int, factory ComponentFactory) (*Field, error) {
	mapSize := template.MapSize()
	fogMap, err := fog.NewMap(data.FogMap, mapSize, playersCount)
	if err != nil {
		return nil, fmt.Errorf("init fog map: %w", err)
	}
	tileMap, err := NewTileMap(cfg, template, data.TileMap)
	if err != nil {
		return nil, fmt.Errorf("init tile map: %w", err)
	}
	unitMap, err := NewUnitMap(cfg, mapSize, data.UnitMap)
	if err != nil {
		return nil, fmt.Errorf("init unit map: %w", err)
	}
	return &Field{
		fogMap:  fogMap,
		tileMap: tileMap,
		unitMap: unitMap,
		cursor:  factory.NewCursor(),
		planner: factory.NewActionPlanner(),
		effect:  factory.NewVisionEffect(),
	}, nil
}

// StartRunning starts tiles and units before the fog map, which reads them.
func (f *Field) StartRunning(w *War) {
	f.tileMap.StartRunning(w)
	f.unitMap.StartRunning(w)
	f.fogMap.StartRunning(w)
	f.cursor.StartRunning(w)
	f.planner.StartRunning(w)
}

func (f *Field) StopRunning() {
	f.planner.StopRunning()
	f.cursor.StopRunning()
	f.fogMap.StopRunning()
	f.unitMap.StopRunning()
	f.tileMap.StopRunning()
}

func (f *Field) MapSize() core.MapSize        { return f.tileMap.MapSize() }
func (f *Field) FogMap() *fog.Map             { return f.fogMap }
func (f *Field) TileMap() *TileMap            { return f.tileMap }
func (f *Field) UnitMap() *UnitMap            { return f.unitMap }
func (f *Field) Cursor() *Cursor              { return f.cursor }
func (f *Field) ActionPlanner() ActionPlanner { return f.planner }
func (f *Field) VisionEffect() VisionEffect   { return f.effect }

func (f *Field) Serialize() core.SerializedField {
	return core.SerializedField{
		FogMap:  f.fogMap.Serialize(),
		TileMap: f.tileMap.Serialize(),
		UnitMap: f.unitMap.Serialize(),
	}
}

func (f *Field) SerializeForPlayer(w *War, playerIndex int) core.SerializedField {
	return core.SerializedField{
		FogMap: f.fogMap.SerializeForPlayer(func(i int) bool {
			return w.players.CheckIsSameTeam(i, playerIndex)
		}),
		TileMap: f.tileMap.SerializeForPlayer(playerIndex),
		UnitMap: f.unitMap.SerializeForPlayer(playerIndex),
	}
}
