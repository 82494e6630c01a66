// Package grid holds the pure geometry used by fog, area search and the action engine.
package grid

import "github.com/tinywars/warcore/pkg/core"

var offsets = [4]core.GridIndex{
	{X: -1, Y: 0},
	{X: 1, Y: 0},
	{X: 0, Y: -1},
	{X: 0, Y: 1},
}

// Neighbours returns the four orthogonal neighbours of origin without bounds checks.
func Neighbours(origin core.GridIndex) []core.GridIndex {
	grids := make([]core.GridIndex, 0, 4)
	for _, o := range offsets {
		grids = append(grids, Add(origin, o))
	}
	return grids
}

// GetAdjacentGrids returns the orthogonal neighbours of origin inside the map.
func GetAdjacentGrids(origin core.GridIndex, mapSize core.MapSize) []core.GridIndex {
	grids := make([]core.GridIndex, 0, 4)
	for _, g := range Neighbours(origin) {
		if CheckIsInsideMap(g, mapSize) {
			grids = append(grids, g)
		}
	}
	return grids
}

// GetGridsWithinDistance returns every in-bounds cell whose distance to origin
// lies in [minDistance, maxDistance], ordered by x then y.
func GetGridsWithinDistance(origin core.GridIndex, minDistance, maxDistance int, mapSize core.MapSize) []core.GridIndex {
	var grids []core.GridIndex
	if maxDistance < 0 || minDistance > maxDistance {
		return grids
	}
	for x := origin.X - maxDistance; x <= origin.X+maxDistance; x++ {
		for y := origin.Y - maxDistance; y <= origin.Y+maxDistance; y++ {
			g := core.GridIndex{X: x, Y: y}
			if !CheckIsInsideMap(g, mapSize) {
				continue
			}
			if d := GetDistance(origin, g); d >= minDistance && d <= maxDistance {
				grids = append(grids, g)
			}
		}
	}
	return grids
}

// GetDistance is the Manhattan distance between two cells.
func GetDistance(a, b core.GridIndex) int {
	return abs(a.X-b.X) + abs(a.Y-b.Y)
}

// CheckIsInsideMap reports whether g lies on the map.
func CheckIsInsideMap(g core.GridIndex, mapSize core.MapSize) bool {
	return g.X >= 0 && g.Y >= 0 && g.X < mapSize.Width && g.Y < mapSize.Height
}

// CheckIsAdjacent reports whether two cells share an edge.
func CheckIsAdjacent(a, b core.GridIndex) bool {
	return GetDistance(a, b) == 1
}

// Add returns the component-wise sum.
func Add(a, b core.GridIndex) core.GridIndex {
	return core.GridIndex{X: a.X + b.X, Y: a.Y + b.Y}
}

// ToIndex flattens g into the row-major template index.
func ToIndex(g core.GridIndex, mapSize core.MapSize) int {
	return g.X + g.Y*mapSize.Width
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
