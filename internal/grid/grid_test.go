package grid

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinywars/warcore/pkg/core"
)

func TestGetAdjacentGrids_ClipsToMap(t *testing.T) {
	size := core.MapSize{Width: 3, Height: 3}

	corner := GetAdjacentGrids(core.GridIndex{X: 0, Y: 0}, size)
	assert.ElementsMatch(t, []core.GridIndex{{X: 1, Y: 0}, {X: 0, Y: 1}}, corner)

	center := GetAdjacentGrids(core.GridIndex{X: 1, Y: 1}, size)
	assert.Len(t, center, 4)
}

func TestGetGridsWithinDistance(t *testing.T) {
	size := core.MapSize{Width: 5, Height: 5}
	origin := core.GridIndex{X: 2, Y: 2}

	all := GetGridsWithinDistance(origin, 0, 2, size)
	if len(all) != 13 {
		t.Errorf("expected 13 cells, got %d", len(all))
	}

	ring := GetGridsWithinDistance(origin, 2, 2, size)
	assert.Len(t, ring, 8)
	for _, g := range ring {
		assert.Equal(t, 2, GetDistance(origin, g))
	}

	clipped := GetGridsWithinDistance(core.GridIndex{X: 0, Y: 0}, 0, 1, size)
	assert.Equal(t, []core.GridIndex{{X: 0, Y: 0}, {X: 0, Y: 1}, {X: 1, Y: 0}}, clipped)

	assert.Empty(t, GetGridsWithinDistance(origin, 3, 2, size))
}

func TestGetGridsWithinDistance_Deterministic(t *testing.T) {
	size := core.MapSize{Width: 7, Height: 7}
	origin := core.GridIndex{X: 3, Y: 3}
	first := GetGridsWithinDistance(origin, 1, 3, size)
	second := GetGridsWithinDistance(origin, 1, 3, size)
	assert.Equal(t, first, second)
}

func TestGetDistance(t *testing.T) {
	assert.Equal(t, 0, GetDistance(core.GridIndex{X: 1, Y: 1}, core.GridIndex{X: 1, Y: 1}))
	assert.Equal(t, 5, GetDistance(core.GridIndex{X: 0, Y: 0}, core.GridIndex{X: 2, Y: 3}))
	assert.Equal(t, 5, GetDistance(core.GridIndex{X: 2, Y: 3}, core.GridIndex{X: 0, Y: 0}))
}

func TestCheckIsInsideMap(t *testing.T) {
	size := core.MapSize{Width: 2, Height: 3}
	assert.True(t, CheckIsInsideMap(core.GridIndex{X: 1, Y: 2}, size))
	assert.False(t, CheckIsInsideMap(core.GridIndex{X: 2, Y: 0}, size))
	assert.False(t, CheckIsInsideMap(core.GridIndex{X: 0, Y: -1}, size))
}
