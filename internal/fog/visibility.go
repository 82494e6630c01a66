package fog

// CheckIsTileVisible reports whether the current state of a tile can be shown.
func (v Visibility) CheckIsTileVisible() bool {
	return v.FromPaths > 0 || v.FromTiles > 0 || v.FromUnits > 0
}

// CheckIsUnitVisible reports whether a unit of another team can be seen.
// Hidden units (diving, or standing on concealing terrain) need a direct visit.
func (v Visibility) CheckIsUnitVisible(isHidden bool) bool {
	if isHidden {
		return v.FromPaths == 2
	}
	return v.CheckIsTileVisible()
}
