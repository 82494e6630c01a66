package war

import (
	"fmt"
	"sort"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// UnitMap owns every unit of the war. A unit is either on the map or loaded, never both.
type UnitMap struct {
	cfg        *definitions.Config
	mapSize    core.MapSize
	nextUnitID int
	onMap      [][]*Unit
	loaded     map[int]*Unit
	war        *War
}

func NewUnitMap(cfg *definitions.Config, mapSize core.MapSize, data core.SerializedUnitMap) (*UnitMap, error) {
	m := &UnitMap{
		cfg:        cfg,
		mapSize:    mapSize,
		nextUnitID: data.NextUnitID,
		onMap:      make([][]*Unit, mapSize.Width),
		loaded:     make(map[int]*Unit),
	}
	for x := range m.onMap {
		m.onMap[x] = make([]*Unit, mapSize.Height)
	}

	seen := make(map[int]bool, len(data.Units))
	for _, ud := range data.Units {
		if seen[ud.UnitID] {
			return nil, fmt.Errorf("duplicate unit id %d", ud.UnitID)
		}
		if ud.UnitID >= m.nextUnitID {
			return nil, fmt.Errorf("unit id %d is not below next unit id %d", ud.UnitID, m.nextUnitID)
		}
		seen[ud.UnitID] = true

		u, err := NewUnit(cfg, ud)
		if err != nil {
			return nil, err
		}
		if u.loaderUnitID != nil {
			err = m.AddUnitLoaded(u)
		} else {
			err = m.AddUnitOnMap(u)
		}
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *UnitMap) StartRunning(w *War) {
	m.war = w
	m.ForEachUnit(func(u *Unit) { u.war = w })
}

func (m *UnitMap) StopRunning() {
	m.war = nil
}

func (m *UnitMap) MapSize() core.MapSize { return m.mapSize }
func (m *UnitMap) NextUnitID() int       { return m.nextUnitID }
func (m *UnitMap) SetNextUnitID(id int)  { m.nextUnitID = id }

func (m *UnitMap) inside(g core.GridIndex) bool {
	return g.X >= 0 && g.X < m.mapSize.Width && g.Y >= 0 && g.Y < m.mapSize.Height
}

// Unit returns the loaded unit unitID when it is set, otherwise the unit on the map at g.
func (m *UnitMap) Unit(g core.GridIndex, unitID *int) *Unit {
	if unitID != nil {
		return m.loaded[*unitID]
	}
	return m.UnitOnMap(g)
}

func (m *UnitMap) UnitOnMap(g core.GridIndex) *Unit {
	if !m.inside(g) {
		return nil
	}
	return m.onMap[g.X][g.Y]
}

func (m *UnitMap) UnitLoaded(unitID int) *Unit {
	return m.loaded[unitID]
}

// UnitByID searches both the map and the loaded set.
func (m *UnitMap) UnitByID(unitID int) *Unit {
	if u, ok := m.loaded[unitID]; ok {
		return u
	}
	var found *Unit
	m.ForEachUnitOnMap(func(u *Unit) {
		if u.unitID == unitID {
			found = u
		}
	})
	return found
}

func (m *UnitMap) AddUnitOnMap(u *Unit) error {
	g := u.gridIndex
	if !m.inside(g) {
		return fmt.Errorf("%w: unit %d at (%d,%d) is outside the map", ErrInvariant, u.unitID, g.X, g.Y)
	}
	if other := m.onMap[g.X][g.Y]; other != nil {
		return fmt.Errorf("%w: (%d,%d) already holds unit %d", ErrInvariant, g.X, g.Y, other.unitID)
	}
	u.war = m.war
	m.onMap[g.X][g.Y] = u
	return nil
}

func (m *UnitMap) AddUnitLoaded(u *Unit) error {
	if _, ok := m.loaded[u.unitID]; ok {
		return fmt.Errorf("%w: unit %d is already loaded", ErrInvariant, u.unitID)
	}
	u.war = m.war
	m.loaded[u.unitID] = u
	return nil
}

// RemoveUnitOnMap removes and returns the unit at g, nil when the cell is empty.
func (m *UnitMap) RemoveUnitOnMap(g core.GridIndex) *Unit {
	u := m.UnitOnMap(g)
	if u != nil {
		m.onMap[g.X][g.Y] = nil
	}
	return u
}

func (m *UnitMap) RemoveUnitLoaded(unitID int) *Unit {
	u := m.loaded[unitID]
	delete(m.loaded, unitID)
	return u
}

// SetUnitLoaded moves the unit on g into the loaded set.
func (m *UnitMap) SetUnitLoaded(g core.GridIndex) error {
	u := m.RemoveUnitOnMap(g)
	if u == nil {
		return fmt.Errorf("%w: no unit to load at (%d,%d)", ErrInvariant, g.X, g.Y)
	}
	return m.AddUnitLoaded(u)
}

// SetUnitUnloaded puts a loaded unit on g.
func (m *UnitMap) SetUnitUnloaded(unitID int, g core.GridIndex) error {
	u := m.RemoveUnitLoaded(unitID)
	if u == nil {
		return fmt.Errorf("%w: unit %d is not loaded", ErrInvariant, unitID)
	}
	u.gridIndex = g
	return m.AddUnitOnMap(u)
}

// SwapUnit exchanges the contents of two cells.
func (m *UnitMap) SwapUnit(a, b core.GridIndex) {
	m.onMap[a.X][a.Y], m.onMap[b.X][b.Y] = m.onMap[b.X][b.Y], m.onMap[a.X][a.Y]
}

// UnitsLoadedByLoader lists the cargo of loader ordered by id, nested cargo included when recursive.
func (m *UnitMap) UnitsLoadedByLoader(loader *Unit, recursive bool) []*Unit {
	var units []*Unit
	for _, id := range m.loadedIDs() {
		u := m.loaded[id]
		if u.loaderUnitID != nil && *u.loaderUnitID == loader.unitID {
			units = append(units, u)
			if recursive {
				units = append(units, m.UnitsLoadedByLoader(u, true)...)
			}
		}
	}
	return units
}

func (m *UnitMap) loadedIDs() []int {
	ids := make([]int, 0, len(m.loaded))
	for id := range m.loaded {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func (m *UnitMap) ForEachUnitOnMap(fn func(u *Unit)) {
	for _, column := range m.onMap {
		for _, u := range column {
			if u != nil {
				fn(u)
			}
		}
	}
}

func (m *UnitMap) ForEachUnitLoaded(fn func(u *Unit)) {
	for _, id := range m.loadedIDs() {
		fn(m.loaded[id])
	}
}

// ForEachUnit visits the units on the map, then the loaded ones.
func (m *UnitMap) ForEachUnit(fn func(u *Unit)) {
	m.ForEachUnitOnMap(fn)
	m.ForEachUnitLoaded(fn)
}

func (m *UnitMap) Serialize() core.SerializedUnitMap {
	var units []core.SerializedUnit
	m.ForEachUnit(func(u *Unit) { units = append(units, u.Serialize()) })
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })
	return core.SerializedUnitMap{NextUnitID: m.nextUnitID, Units: units}
}

// SerializeForPlayer keeps the units the team of playerIndex can see. Cargo is
// only known to the loader's team.
func (m *UnitMap) SerializeForPlayer(playerIndex int) core.SerializedUnitMap {
	teamIndex := m.war.players.TeamIndex(playerIndex)
	var units []core.SerializedUnit
	m.ForEachUnitOnMap(func(u *Unit) {
		if m.war.CheckIsUnitVisibleToTeam(u, teamIndex) {
			units = append(units, u.Serialize())
		}
	})
	m.ForEachUnitLoaded(func(u *Unit) {
		if u.TeamIndex() == teamIndex {
			units = append(units, u.Serialize())
		}
	})
	sort.Slice(units, func(i, j int) bool { return units[i].UnitID < units[j].UnitID })
	return core.SerializedUnitMap{NextUnitID: m.nextUnitID, Units: units}
}
