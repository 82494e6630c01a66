// Package fog keeps the per-player visibility accumulators of a war.
//
// Each player index, neutral 0 included, owns three grids: the paths grid
// records what the player's units swept while moving (0 never seen, 1 seen
// from afar, 2 visited directly), the tiles and units grids count how many
// owned tiles or units currently see a cell.
package fog

import (
	"fmt"

	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/pkg/core"
)

// Visibility is the effective visibility of one cell.
type Visibility struct {
	FromPaths int
	FromTiles int
	FromUnits int
}

// FullVisibility is returned whenever the war has no fog.
var FullVisibility = Visibility{FromPaths: 2, FromTiles: 1, FromUnits: 1}

// World is the part of the war the fog map reads when recomputing.
type World interface {
	HasFogByDefault() bool
	ForEachTileVision(playerIndex int, fn func(g core.GridIndex, vision int))
	ForEachUnitVision(playerIndex int, fn func(g core.GridIndex, vision int))
	ForEachAlivePlayerInTeam(teamIndex int, fn func(playerIndex int))
}

// Viewer is a unit sweeping its vision along a path.
type Viewer interface {
	PlayerIndex() int
	VisionRangeForPlayer(playerIndex int, g core.GridIndex) int
}

type layer [][]int

func newLayer(size core.MapSize) layer {
	l := make(layer, size.Width)
	for x := range l {
		l[x] = make([]int, size.Height)
	}
	return l
}

func (l layer) fill(v int) {
	for _, column := range l {
		for y := range column {
			column[y] = v
		}
	}
}

func (l layer) isZero() bool {
	for _, column := range l {
		for _, v := range column {
			if v != 0 {
				return false
			}
		}
	}
	return true
}

// Map holds the accumulators for every player index of a war.
type Map struct {
	forceFogCode           core.ForceFogCode
	forceExpirePlayerIndex *int
	forceExpireTurnIndex   *int

	mapSize   core.MapSize
	fromPaths map[int]layer
	fromTiles map[int]layer
	fromUnits map[int]layer

	world World
}

// NewMap allocates the grids for player indexes 0..playersCount and restores
// the path grids carried by data.
func NewMap(data core.SerializedFogMap, mapSize core.MapSize, playersCount int) (*Map, error) {
	m := &Map{
		forceFogCode:           data.ForceFogCode,
		forceExpirePlayerIndex: data.ForceExpirePlayerIndex,
		forceExpireTurnIndex:   data.ForceExpireTurnIndex,
		mapSize:                mapSize,
		fromPaths:              make(map[int]layer, playersCount+1),
		fromTiles:              make(map[int]layer, playersCount+1),
		fromUnits:              make(map[int]layer, playersCount+1),
	}
	for i := 0; i <= playersCount; i++ {
		m.fromPaths[i] = newLayer(mapSize)
		m.fromTiles[i] = newLayer(mapSize)
		m.fromUnits[i] = newLayer(mapSize)
	}

	for _, p := range data.MapsForPath {
		if err := m.ResetMapFromPathsForPlayer(p.PlayerIndex, p.EncodedMap); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// StartRunning binds the map to its war and recomputes the tile and unit grids.
func (m *Map) StartRunning(world World) {
	m.world = world
	for playerIndex := range m.fromTiles {
		m.ResetMapFromTilesForPlayer(playerIndex)
		m.ResetMapFromUnitsForPlayer(playerIndex)
	}
}

// StopRunning detaches the war.
func (m *Map) StopRunning() {
	m.world = nil
}

func (m *Map) MapSize() core.MapSize {
	return m.mapSize
}

func (m *Map) ForceFogCode() core.ForceFogCode {
	return m.forceFogCode
}

func (m *Map) SetForceFogCode(code core.ForceFogCode) {
	m.forceFogCode = code
}

func (m *Map) ForceExpirePlayerIndex() *int {
	return m.forceExpirePlayerIndex
}

func (m *Map) SetForceExpirePlayerIndex(index *int) {
	m.forceExpirePlayerIndex = index
}

func (m *Map) ForceExpireTurnIndex() *int {
	return m.forceExpireTurnIndex
}

func (m *Map) SetForceExpireTurnIndex(index *int) {
	m.forceExpireTurnIndex = index
}

// CheckHasFogByDefault reads the war setting. A detached map has no fog.
func (m *Map) CheckHasFogByDefault() bool {
	return m.world != nil && m.world.HasFogByDefault()
}

// CheckHasFogCurrently applies the force code over the default setting.
func (m *Map) CheckHasFogCurrently() bool {
	return m.forceFogCode == core.ForceFogFog ||
		(m.CheckHasFogByDefault() && m.forceFogCode != core.ForceFogClear)
}

// ExpireForceFog drops the force code once the expiry player begins a turn at or
// after the expiry turn. It reports whether the code changed.
func (m *Map) ExpireForceFog(playerIndex, turnIndex int) bool {
	if m.forceFogCode == core.ForceFogNone || m.forceExpirePlayerIndex == nil || m.forceExpireTurnIndex == nil {
		return false
	}
	if playerIndex != *m.forceExpirePlayerIndex || turnIndex < *m.forceExpireTurnIndex {
		return false
	}
	m.forceFogCode = core.ForceFogNone
	m.forceExpirePlayerIndex = nil
	m.forceExpireTurnIndex = nil
	return true
}

// ResetAllMapsForPlayer clears the paths grid and recomputes the other two.
func (m *Map) ResetAllMapsForPlayer(playerIndex int) {
	m.fromPaths[playerIndex].fill(0)
	m.ResetMapFromTilesForPlayer(playerIndex)
	m.ResetMapFromUnitsForPlayer(playerIndex)
}

// ResetMapFromPathsForPlayer clears the paths grid, or decodes encoded into it
// when it is not empty.
func (m *Map) ResetMapFromPathsForPlayer(playerIndex int, encoded string) error {
	l, ok := m.fromPaths[playerIndex]
	if !ok {
		return fmt.Errorf("fog: unknown player index %d", playerIndex)
	}
	if encoded == "" {
		l.fill(0)
		return nil
	}

	width, height := m.mapSize.Width, m.mapSize.Height
	if len(encoded) != width*height {
		return fmt.Errorf("fog: encoded map for player %d has %d cells, want %d", playerIndex, len(encoded), width*height)
	}
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			c := encoded[x+y*width]
			if c < '0' || c > '2' {
				return fmt.Errorf("fog: invalid path visibility %q at (%d,%d)", c, x, y)
			}
			l[x][y] = int(c - '0')
		}
	}
	return nil
}

// UpdateMapFromPathsByUnitAndPath sweeps the vision of unit along path for its owner.
func (m *Map) UpdateMapFromPathsByUnitAndPath(unit Viewer, path []core.GridIndex) {
	playerIndex := unit.PlayerIndex()
	l := m.fromPaths[playerIndex]
	for _, node := range path {
		vision := unit.VisionRangeForPlayer(playerIndex, node)
		if vision == 0 {
			continue
		}
		for _, g := range grid.GetGridsWithinDistance(node, 0, 1, m.mapSize) {
			l[g.X][g.Y] = 2
		}
		for _, g := range grid.GetGridsWithinDistance(node, 2, vision, m.mapSize) {
			l[g.X][g.Y] = max(1, l[g.X][g.Y])
		}
	}
}

// UpdateMapFromPathsByFlare fully reveals the flare radius.
func (m *Map) UpdateMapFromPathsByFlare(playerIndex int, center core.GridIndex, radius int) {
	l := m.fromPaths[playerIndex]
	for _, g := range grid.GetGridsWithinDistance(center, 0, radius, m.mapSize) {
		l[g.X][g.Y] = 2
	}
}

func (m *Map) ResetMapFromTilesForPlayer(playerIndex int) {
	l := m.fromTiles[playerIndex]
	l.fill(0)
	if m.world == nil {
		return
	}
	m.world.ForEachTileVision(playerIndex, func(g core.GridIndex, vision int) {
		m.accumulate(l, g, vision, 1)
	})
}

func (m *Map) UpdateMapFromTilesForPlayerOnGettingOwnership(playerIndex int, g core.GridIndex, vision int) {
	m.accumulate(m.fromTiles[playerIndex], g, vision, 1)
}

func (m *Map) UpdateMapFromTilesForPlayerOnLosingOwnership(playerIndex int, g core.GridIndex, vision int) {
	m.accumulate(m.fromTiles[playerIndex], g, vision, -1)
}

func (m *Map) ResetMapFromUnitsForPlayer(playerIndex int) {
	l := m.fromUnits[playerIndex]
	l.fill(0)
	if m.world == nil {
		return
	}
	m.world.ForEachUnitVision(playerIndex, func(g core.GridIndex, vision int) {
		m.accumulate(l, g, vision, 1)
	})
}

func (m *Map) UpdateMapFromUnitsForPlayerOnArriving(playerIndex int, g core.GridIndex, vision int) {
	m.accumulate(m.fromUnits[playerIndex], g, vision, 1)
}

func (m *Map) UpdateMapFromUnitsForPlayerOnLeaving(playerIndex int, g core.GridIndex, vision int) {
	m.accumulate(m.fromUnits[playerIndex], g, vision, -1)
}

func (m *Map) accumulate(l layer, origin core.GridIndex, vision, modifier int) {
	if vision == 0 {
		return
	}
	for _, g := range grid.GetGridsWithinDistance(origin, 0, vision, m.mapSize) {
		l[g.X][g.Y] += modifier
	}
}

// GetVisibilityForPlayer reads the three grids, or full visibility without fog.
func (m *Map) GetVisibilityForPlayer(g core.GridIndex, playerIndex int) Visibility {
	if !m.CheckHasFogCurrently() {
		return FullVisibility
	}
	return m.visibilityForPlayer(g, playerIndex)
}

func (m *Map) visibilityForPlayer(g core.GridIndex, playerIndex int) Visibility {
	v := Visibility{FromPaths: m.fromPaths[playerIndex][g.X][g.Y]}
	if m.fromTiles[playerIndex][g.X][g.Y] > 0 {
		v.FromTiles = 1
	}
	if m.fromUnits[playerIndex][g.X][g.Y] > 0 {
		v.FromUnits = 1
	}
	return v
}

// GetVisibilityForTeam is the per-component maximum over the alive players of the team.
func (m *Map) GetVisibilityForTeam(g core.GridIndex, teamIndex int) Visibility {
	if !m.CheckHasFogCurrently() {
		return FullVisibility
	}
	var v Visibility
	m.world.ForEachAlivePlayerInTeam(teamIndex, func(playerIndex int) {
		p := m.visibilityForPlayer(g, playerIndex)
		v.FromPaths = max(v.FromPaths, p.FromPaths)
		v.FromTiles = max(v.FromTiles, p.FromTiles)
		v.FromUnits = max(v.FromUnits, p.FromUnits)
	})
	return v
}

// Serialize emits the force fields and every non-empty paths grid.
func (m *Map) Serialize() core.SerializedFogMap {
	return m.serialize(func(int) bool { return true })
}

// SerializeForPlayer keeps only the paths grids of the given player indexes.
func (m *Map) SerializeForPlayer(include func(playerIndex int) bool) core.SerializedFogMap {
	return m.serialize(include)
}

func (m *Map) serialize(include func(playerIndex int) bool) core.SerializedFogMap {
	data := core.SerializedFogMap{
		ForceFogCode:           m.forceFogCode,
		ForceExpirePlayerIndex: m.forceExpirePlayerIndex,
		ForceExpireTurnIndex:   m.forceExpireTurnIndex,
	}
	for playerIndex := 0; playerIndex < len(m.fromPaths); playerIndex++ {
		l := m.fromPaths[playerIndex]
		if !include(playerIndex) || l.isZero() {
			continue
		}
		data.MapsForPath = append(data.MapsForPath, core.SerializedFogPath{
			PlayerIndex: playerIndex,
			EncodedMap:  m.encode(l),
		})
	}
	return data
}

func (m *Map) encode(l layer) string {
	width, height := m.mapSize.Width, m.mapSize.Height
	buf := make([]byte, width*height)
	for x := 0; x < width; x++ {
		for y := 0; y < height; y++ {
			buf[x+y*width] = byte('0' + l[x][y])
		}
	}
	return string(buf)
}
