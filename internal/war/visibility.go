package war

import "github.com/tinywars/warcore/pkg/core"

// CheckIsTileVisibleToTeam reports whether teamIndex sees the current state of the tile on g.
func (w *War) CheckIsTileVisibleToTeam(g core.GridIndex, teamIndex int) bool {
	t := w.field.tileMap.Tile(g)
	if t.playerIndex > 0 && w.players.TeamIndex(t.playerIndex) == teamIndex {
		return true
	}
	return w.field.fogMap.GetVisibilityForTeam(g, teamIndex).CheckIsTileVisible()
}

// CheckIsUnitVisibleToTeam reports whether teamIndex sees the on-map unit u.
func (w *War) CheckIsUnitVisibleToTeam(u *Unit, teamIndex int) bool {
	if w.players.TeamIndex(u.playerIndex) == teamIndex {
		return true
	}
	hidden := u.CheckIsHiddenOn(w.field.tileMap.Tile(u.gridIndex))
	return w.field.fogMap.GetVisibilityForTeam(u.gridIndex, teamIndex).CheckIsUnitVisible(hidden)
}

// RefreshVisibility drops what the logged-in team no longer sees: tiles go
// back to their fogged look and invisible enemy units leave the field.
// Tiles that became visible again are restored. Replays keep everything.
func (w *War) RefreshVisibility() error {
	if w.mode != ModeLive {
		return nil
	}
	teamIndex := w.LoggedInTeamIndex()
	hasFog := w.field.fogMap.CheckHasFogCurrently()

	var err error
	w.field.tileMap.ForEachTile(func(t *Tile) {
		if err != nil {
			return
		}
		if !hasFog || w.CheckIsTileVisibleToTeam(t.gridIndex, teamIndex) {
			if t.isFogEnabled {
				err = w.ChangeTile(t, func() error { return t.SetFogDisabled(nil) })
			}
		} else if !t.isFogEnabled {
			err = w.ChangeTile(t, t.SetFogEnabled)
		}
	})
	if err != nil || !hasFog {
		return err
	}

	var hidden []*Unit
	w.field.unitMap.ForEachUnitOnMap(func(u *Unit) {
		if !w.CheckIsUnitVisibleToTeam(u, teamIndex) {
			hidden = append(hidden, u)
		}
	})
	unitMap := w.field.unitMap
	for _, u := range hidden {
		w.OnUnitLeaving(u, u.gridIndex)
		for _, cargo := range unitMap.UnitsLoadedByLoader(u, true) {
			unitMap.RemoveUnitLoaded(cargo.unitID)
		}
		unitMap.RemoveUnitOnMap(u.gridIndex)
	}
	return nil
}
