// Package area computes the movable and attackable areas of a unit and
// reconstructs move paths from them.
package area

import (
	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/pkg/core"
)

// MovableGrid is the best known way to reach one cell.
// Prev is nil for the origin.
type MovableGrid struct {
	Prev          *core.GridIndex
	TotalMoveCost int
}

// MovableArea maps reachable cells to their cheapest predecessor.
type MovableArea map[core.GridIndex]MovableGrid

// AttackableGrid names the move destination a target is attacked from.
type AttackableGrid struct {
	MovePathDestination core.GridIndex
}

// AttackableArea maps attackable cells to their firing position.
type AttackableArea map[core.GridIndex]AttackableGrid

// PathNode is one step of a move path with the cost spent so far.
type PathNode struct {
	X             int
	Y             int
	TotalMoveCost int
}

// GridIndex returns the cell of the node.
func (n PathNode) GridIndex() core.GridIndex {
	return core.GridIndex{X: n.X, Y: n.Y}
}

// MoveCostFunc returns the cost of entering g. ok is false when g cannot be entered,
// which is different from a zero cost.
type MoveCostFunc func(g core.GridIndex) (cost int, ok bool)

// CanAttackFunc reports whether a unit standing on destination can hit target.
type CanAttackFunc func(destination, target core.GridIndex) bool

type candidate struct {
	curr          core.GridIndex
	prev          *core.GridIndex
	totalMoveCost int
}

// CreateMovableArea floods out from origin while the total cost stays within maxMoveCost.
// The worklist is FIFO; a popped entry is only expanded if it is first seen or strictly
// cheaper than the recorded one, so late cheaper paths still propagate.
func CreateMovableArea(origin core.GridIndex, maxMoveCost int, costOf MoveCostFunc) MovableArea {
	area := make(MovableArea)
	worklist := []candidate{{curr: origin, totalMoveCost: 0}}

	for index := 0; index < len(worklist); index++ {
		c := worklist[index]
		if !checkAndUpdate(area, c) {
			continue
		}
		for _, next := range grid.Neighbours(c.curr) {
			cost, ok := costOf(next)
			if !ok || cost+c.totalMoveCost > maxMoveCost {
				continue
			}
			prev := c.curr
			worklist = append(worklist, candidate{
				curr:          next,
				prev:          &prev,
				totalMoveCost: cost + c.totalMoveCost,
			})
		}
	}

	return area
}

func checkAndUpdate(area MovableArea, c candidate) bool {
	if existing, ok := area[c.curr]; ok && existing.TotalMoveCost <= c.totalMoveCost {
		return false
	}
	area[c.curr] = MovableGrid{Prev: c.prev, TotalMoveCost: c.totalMoveCost}
	return true
}

// CreateAttackableArea projects the weapon range from every cell of movable.
// Destinations are visited x first then y; for each target the cheapest destination
// wins and ties keep the first one found.
func CreateAttackableArea(movable MovableArea, mapSize core.MapSize, minRange, maxRange int, canAttack CanAttackFunc) AttackableArea {
	area := make(AttackableArea)
	for x := 0; x < mapSize.Width; x++ {
		for y := 0; y < mapSize.Height; y++ {
			destination := core.GridIndex{X: x, Y: y}
			movableGrid, ok := movable[destination]
			if !ok {
				continue
			}
			for _, target := range grid.GetGridsWithinDistance(destination, minRange, maxRange, mapSize) {
				if !canAttack(destination, target) {
					continue
				}
				existing, found := area[target]
				if !found || movableGrid.TotalMoveCost < movable[existing.MovePathDestination].TotalMoveCost {
					area[target] = AttackableGrid{MovePathDestination: destination}
				}
			}
		}
	}
	return area
}

// CreateShortestMovePath walks the predecessors of destination back to the origin
// and returns the path in travel order.
func CreateShortestMovePath(movable MovableArea, destination core.GridIndex) []PathNode {
	var reversed []PathNode
	g := destination
	for {
		node, ok := movable[g]
		if !ok {
			return nil
		}
		reversed = append(reversed, PathNode{X: g.X, Y: g.Y, TotalMoveCost: node.TotalMoveCost})
		if node.Prev == nil {
			break
		}
		g = *node.Prev
	}

	path := make([]PathNode, len(reversed))
	for i, n := range reversed {
		path[len(reversed)-1-i] = n
	}
	return path
}

// CheckAreaHasGrid reports membership for either area kind.
func CheckAreaHasGrid[V MovableGrid | AttackableGrid](a map[core.GridIndex]V, g core.GridIndex) bool {
	_, ok := a[g]
	return ok
}

// Nodes strips the costs from a path.
func Nodes(path []PathNode) []core.GridIndex {
	nodes := make([]core.GridIndex, 0, len(path))
	for _, n := range path {
		nodes = append(nodes, n.GridIndex())
	}
	return nodes
}
