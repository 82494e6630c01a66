package war

import (
	"fmt"

	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/pkg/core"
)

// OnUnitArriving adds the vision of u standing on g to its owner's fog.
func (w *War) OnUnitArriving(u *Unit, g core.GridIndex) {
	w.field.fogMap.UpdateMapFromUnitsForPlayerOnArriving(u.playerIndex, g, u.VisionRangeForPlayer(u.playerIndex, g))
}

// OnUnitLeaving withdraws the vision of u leaving g.
func (w *War) OnUnitLeaving(u *Unit, g core.GridIndex) {
	w.field.fogMap.UpdateMapFromUnitsForPlayerOnLeaving(u.playerIndex, g, u.VisionRangeForPlayer(u.playerIndex, g))
}

// ChangeTile runs mutate on t and moves the tile vision from the previous
// owner to the new one.
func (w *War) ChangeTile(t *Tile, mutate func() error) error {
	fogMap := w.field.fogMap
	if prev := t.playerIndex; prev > 0 {
		fogMap.UpdateMapFromTilesForPlayerOnLosingOwnership(prev, t.gridIndex, t.VisionRangeForPlayer(prev))
	}
	err := mutate()
	if next := t.playerIndex; next > 0 {
		fogMap.UpdateMapFromTilesForPlayerOnGettingOwnership(next, t.gridIndex, t.VisionRangeForPlayer(next))
	}
	return err
}

// DestroyUnitOnMap removes the unit on g together with its cargo.
func (w *War) DestroyUnitOnMap(g core.GridIndex, showExplosion bool) error {
	unitMap := w.field.unitMap
	u := unitMap.UnitOnMap(g)
	if u == nil {
		return fmt.Errorf("%w: no unit to destroy at (%d,%d)", ErrInvariant, g.X, g.Y)
	}
	w.OnUnitLeaving(u, g)
	for _, cargo := range unitMap.UnitsLoadedByLoader(u, true) {
		unitMap.RemoveUnitLoaded(cargo.unitID)
		w.clearCoUnit(cargo)
	}
	unitMap.RemoveUnitOnMap(g)
	w.clearCoUnit(u)

	tile := w.field.tileMap.Tile(g)
	tile.SetCurrentBuildPoint(tile.MaxBuildPoint())
	tile.SetCurrentCapturePoint(tile.MaxCapturePoint())

	if showExplosion {
		w.field.effect.ShowEffect(EffectExplosion, g)
	}
	return nil
}

func (w *War) clearCoUnit(u *Unit) {
	p := w.players.Player(u.playerIndex)
	if p != nil && p.coUnitID != nil && *p.coUnitID == u.unitID {
		p.coUnitID = nil
		p.coUsingSkillType = core.CoSkillPassive
	}
}

// DestroyPlayerForce removes every unit of the player, hands its tiles to
// the neutral player and marks it dead. Headquarters turn into neutral cities.
func (w *War) DestroyPlayerForce(playerIndex int) error {
	p := w.players.Player(playerIndex)
	if p == nil || playerIndex == 0 {
		return fmt.Errorf("%w: cannot destroy player %d", ErrInvariant, playerIndex)
	}

	var grids []core.GridIndex
	w.field.unitMap.ForEachUnitOnMap(func(u *Unit) {
		if u.playerIndex == playerIndex {
			grids = append(grids, u.gridIndex)
		}
	})
	for _, g := range grids {
		if err := w.DestroyUnitOnMap(g, false); err != nil {
			return err
		}
	}

	var tiles []*Tile
	w.field.tileMap.ForEachTile(func(t *Tile) {
		if t.playerIndex == playerIndex {
			tiles = append(tiles, t)
		}
	})
	for _, t := range tiles {
		err := w.ChangeTile(t, func() error {
			if t.tileType == core.TileTypeHeadquarters {
				cityViewID, ok := w.cfg.TileObjectViewID(core.TileTypeCity, 0)
				if !ok {
					return fmt.Errorf("%w: no neutral city view", ErrInvariant)
				}
				return t.ResetByObjectViewID(cityViewID)
			}
			return t.ResetByPlayerIndex(0)
		})
		if err != nil {
			return err
		}
	}

	p.isAlive = false
	p.coUnitID = nil
	p.coUsingSkillType = core.CoSkillPassive
	w.field.fogMap.ResetAllMapsForPlayer(playerIndex)
	return nil
}

// DestroyTileObject removes a destroyed tile object. A meteor takes every
// plasma tile connected to it along.
func (w *War) DestroyTileObject(g core.GridIndex) error {
	tileMap := w.field.tileMap
	target := tileMap.Tile(g)
	if target.tileType == core.TileTypeMeteor {
		for _, pg := range w.connectedTiles(g, core.TileTypePlasma) {
			if err := tileMap.Tile(pg).DestroyTileObject(); err != nil {
				return err
			}
			w.field.effect.ShowEffect(EffectExplosion, pg)
		}
	}
	if err := w.ChangeTile(target, target.DestroyTileObject); err != nil {
		return err
	}
	w.field.effect.ShowEffect(EffectExplosion, g)
	return nil
}

// connectedTiles walks breadth first from origin over adjacent tiles of
// tileType. The origin itself is not part of the result.
func (w *War) connectedTiles(origin core.GridIndex, tileType core.TileType) []core.GridIndex {
	mapSize := w.field.MapSize()
	visited := map[core.GridIndex]bool{origin: true}
	queue := []core.GridIndex{origin}
	var found []core.GridIndex
	for i := 0; i < len(queue); i++ {
		for _, adj := range grid.GetAdjacentGrids(queue[i], mapSize) {
			if visited[adj] || w.field.tileMap.Tile(adj).tileType != tileType {
				continue
			}
			visited[adj] = true
			queue = append(queue, adj)
			found = append(found, adj)
		}
	}
	return found
}
