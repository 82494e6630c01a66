package war

import (
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// TileMap holds one tile per cell.
type TileMap struct {
	template *core.MapTemplate
	mapSize  core.MapSize
	tiles    [][]*Tile
	war      *War
}

// NewTileMap builds the tiles from the map template, then applies the overrides of data.
func NewTileMap(cfg *definitions.Config, template *core.MapTemplate, data *core.SerializedTileMap) (*TileMap, error) {
	size := template.MapSize()
	if size.Width <= 0 || size.Height <= 0 {
		return nil, fmt.Errorf("map %q has invalid size %dx%d", template.FileName, size.Width, size.Height)
	}
	if len(template.TileBases) != size.Width*size.Height || len(template.TileObjects) != size.Width*size.Height {
		return nil, fmt.Errorf("map %q: tile layers do not match %dx%d", template.FileName, size.Width, size.Height)
	}

	m := &TileMap{template: template, mapSize: size, tiles: make([][]*Tile, size.Width)}
	for x := range m.tiles {
		m.tiles[x] = make([]*Tile, size.Height)
	}

	if data != nil {
		for _, td := range data.Tiles {
			g := td.GridIndex()
			if !m.contains(g) {
				return nil, fmt.Errorf("serialized tile (%d,%d) is outside the map", g.X, g.Y)
			}
			tile, err := newTile(cfg, m, td)
			if err != nil {
				return nil, err
			}
			m.tiles[g.X][g.Y] = tile
		}
	}

	for x := 0; x < size.Width; x++ {
		for y := 0; y < size.Height; y++ {
			if m.tiles[x][y] != nil {
				continue
			}
			base, object := m.templateViews(core.GridIndex{X: x, Y: y})
			tile, err := newTile(cfg, m, core.SerializedTile{GridX: x, GridY: y, BaseViewID: base, ObjectViewID: object})
			if err != nil {
				return nil, err
			}
			m.tiles[x][y] = tile
		}
	}
	return m, nil
}

func (m *TileMap) contains(g core.GridIndex) bool {
	return g.X >= 0 && g.X < m.mapSize.Width && g.Y >= 0 && g.Y < m.mapSize.Height
}

func (m *TileMap) templateViews(g core.GridIndex) (int, int) {
	index := g.X + g.Y*m.mapSize.Width
	return m.template.TileBases[index], m.template.TileObjects[index]
}

func (m *TileMap) StartRunning(w *War) { m.war = w }
func (m *TileMap) StopRunning()        { m.war = nil }

func (m *TileMap) MapSize() core.MapSize { return m.mapSize }

// Tile panics outside the map.
func (m *TileMap) Tile(g core.GridIndex) *Tile {
	return m.tiles[g.X][g.Y]
}

func (m *TileMap) ForEachTile(fn func(t *Tile)) {
	for _, column := range m.tiles {
		for _, t := range column {
			fn(t)
		}
	}
}

func (m *TileMap) shouldSerialize(data core.SerializedTile) bool {
	base, object := m.templateViews(data.GridIndex())
	return data.CurrentBuildPoint != nil ||
		data.CurrentCapturePoint != nil ||
		data.CurrentHp != nil ||
		data.BaseViewID != base ||
		data.ObjectViewID != object
}

// Serialize returns nil when every tile matches the map template.
func (m *TileMap) Serialize() *core.SerializedTileMap {
	return m.serialize(func(t *Tile) core.SerializedTile { return t.Serialize() })
}

// SerializeForPlayer hides what the team of playerIndex cannot see.
func (m *TileMap) SerializeForPlayer(playerIndex int) *core.SerializedTileMap {
	teamIndex := m.war.players.TeamIndex(playerIndex)
	return m.serialize(func(t *Tile) core.SerializedTile {
		if m.war.CheckIsTileVisibleToTeam(t.gridIndex, teamIndex) {
			return t.Serialize()
		}
		return t.serializeFogged()
	})
}

func (m *TileMap) serialize(serializeTile func(t *Tile) core.SerializedTile) *core.SerializedTileMap {
	var tiles []core.SerializedTile
	for x := 0; x < m.mapSize.Width; x++ {
		for y := 0; y < m.mapSize.Height; y++ {
			data := serializeTile(m.tiles[x][y])
			if m.shouldSerialize(data) {
				tiles = append(tiles, data)
			}
		}
	}
	if len(tiles) == 0 {
		return nil
	}
	return &core.SerializedTileMap{Tiles: tiles}
}
