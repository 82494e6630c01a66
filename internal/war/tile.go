package war

import (
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// Tile is one cell of the battlefield.
type Tile struct {
	cfg     *definitions.Config
	tileMap *TileMap

	gridIndex    core.GridIndex
	baseViewID   int
	objectViewID int
	tileType     core.TileType
	playerIndex  int
	template     *definitions.TileTemplate

	currentHp           *int
	currentBuildPoint   *int
	currentCapturePoint *int

	isFogEnabled bool
}

func newTile(cfg *definitions.Config, tileMap *TileMap, data core.SerializedTile) (*Tile, error) {
	t := &Tile{cfg: cfg, tileMap: tileMap}
	if err := t.init(data); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tile) init(data core.SerializedTile) error {
	tileType, playerIndex, ok := t.cfg.TileTypeByViews(data.BaseViewID, data.ObjectViewID)
	if !ok {
		return fmt.Errorf("tile (%d,%d): unknown views %d/%d", data.GridX, data.GridY, data.BaseViewID, data.ObjectViewID)
	}
	template, ok := t.cfg.TileTemplate(tileType)
	if !ok {
		return fmt.Errorf("tile (%d,%d): no template for %q", data.GridX, data.GridY, tileType)
	}

	t.gridIndex = data.GridIndex()
	t.baseViewID = data.BaseViewID
	t.objectViewID = data.ObjectViewID
	t.tileType = tileType
	t.playerIndex = playerIndex
	t.template = template
	t.currentHp = currentOrMax(data.CurrentHp, template.MaxHp)
	t.currentBuildPoint = currentOrMax(data.CurrentBuildPoint, template.MaxBuildPoint)
	t.currentCapturePoint = currentOrMax(data.CurrentCapturePoint, template.MaxCapturePoint)
	return nil
}

// currentOrMax copies current, or max when current is absent. Both are nil for
// attributes the template does not have.
func currentOrMax(current, maxValue *int) *int {
	if maxValue == nil {
		return nil
	}
	v := *maxValue
	if current != nil {
		v = *current
	}
	return &v
}

func omitAtMax(current, maxValue *int) *int {
	if current == nil || maxValue == nil || *current == *maxValue {
		return nil
	}
	v := *current
	return &v
}

// Serialize omits every counter that is at its template maximum.
func (t *Tile) Serialize() core.SerializedTile {
	return core.SerializedTile{
		GridX:               t.gridIndex.X,
		GridY:               t.gridIndex.Y,
		BaseViewID:          t.baseViewID,
		ObjectViewID:        t.objectViewID,
		CurrentHp:           omitAtMax(t.currentHp, t.template.MaxHp),
		CurrentBuildPoint:   omitAtMax(t.currentBuildPoint, t.template.MaxBuildPoint),
		CurrentCapturePoint: omitAtMax(t.currentCapturePoint, t.template.MaxCapturePoint),
	}
}

// serializeFogged is what a player without vision knows about the tile.
func (t *Tile) serializeFogged() core.SerializedTile {
	return core.SerializedTile{
		GridX:        t.gridIndex.X,
		GridY:        t.gridIndex.Y,
		BaseViewID:   t.baseViewID,
		ObjectViewID: t.foggedObjectViewID(),
		CurrentHp:    omitAtMax(t.currentHp, t.template.MaxHp),
	}
}

func (t *Tile) GridIndex() core.GridIndex                   { return t.gridIndex }
func (t *Tile) Type() core.TileType                         { return t.tileType }
func (t *Tile) PlayerIndex() int                            { return t.playerIndex }
func (t *Tile) BaseViewID() int                             { return t.baseViewID }
func (t *Tile) ObjectViewID() int                           { return t.objectViewID }
func (t *Tile) Template() *definitions.TileTemplate         { return t.template }
func (t *Tile) ArmorType() core.ArmorType                   { return t.template.ArmorType }
func (t *Tile) IsFogEnabled() bool                          { return t.isFogEnabled }
func (t *Tile) CheckIsDefeatOnCapture() bool                { return t.template.DefeatOnCapture }
func (t *Tile) MoveCost(moveType core.MoveType) (int, bool) { return t.template.MoveCost(moveType) }

// TeamIndex is the team of the owner, 0 for neutral tiles.
func (t *Tile) TeamIndex() int {
	if t.playerIndex == 0 || t.tileMap == nil || t.tileMap.war == nil {
		return 0
	}
	return t.tileMap.war.players.TeamIndex(t.playerIndex)
}

func (t *Tile) MaxHp() *int { return t.template.MaxHp }

func (t *Tile) CurrentHp() int {
	if t.currentHp == nil {
		return 0
	}
	return *t.currentHp
}

func (t *Tile) SetCurrentHp(hp int) {
	if t.currentHp != nil {
		*t.currentHp = hp
	}
}

func (t *Tile) MaxBuildPoint() int {
	if t.template.MaxBuildPoint == nil {
		return 0
	}
	return *t.template.MaxBuildPoint
}

func (t *Tile) CurrentBuildPoint() int {
	if t.currentBuildPoint == nil {
		return 0
	}
	return *t.currentBuildPoint
}

func (t *Tile) SetCurrentBuildPoint(p int) {
	if t.currentBuildPoint != nil {
		*t.currentBuildPoint = p
	}
}

func (t *Tile) MaxCapturePoint() int {
	if t.template.MaxCapturePoint == nil {
		return 0
	}
	return *t.template.MaxCapturePoint
}

func (t *Tile) CurrentCapturePoint() int {
	if t.currentCapturePoint == nil {
		return 0
	}
	return *t.currentCapturePoint
}

func (t *Tile) SetCurrentCapturePoint(p int) {
	if t.currentCapturePoint != nil {
		*t.currentCapturePoint = p
	}
}

// VisionRangeForPlayer is the tile vision granted to playerIndex: only owned
// tiles see, and only for the owner's team.
func (t *Tile) VisionRangeForPlayer(playerIndex int) int {
	if t.playerIndex == 0 || t.tileMap == nil || t.tileMap.war == nil {
		return 0
	}
	if !t.tileMap.war.players.CheckIsSameTeam(t.playerIndex, playerIndex) {
		return 0
	}
	return t.template.VisionRange
}

// ResetByObjectViewID replaces the object and restores every counter to its maximum.
func (t *Tile) ResetByObjectViewID(objectViewID int) error {
	return t.init(core.SerializedTile{
		GridX:        t.gridIndex.X,
		GridY:        t.gridIndex.Y,
		BaseViewID:   t.baseViewID,
		ObjectViewID: objectViewID,
	})
}

// ResetByPlayerIndex hands the tile object to playerIndex.
func (t *Tile) ResetByPlayerIndex(playerIndex int) error {
	objectViewID, ok := t.cfg.TileObjectViewID(t.tileType, playerIndex)
	if !ok {
		return fmt.Errorf("%w: no %q view for player %d", ErrInvariant, t.tileType, playerIndex)
	}
	return t.ResetByObjectViewID(objectViewID)
}

// DestroyTileObject removes the object, leaving the bare base.
func (t *Tile) DestroyTileObject() error {
	return t.ResetByObjectViewID(definitions.EmptyObjectViewID)
}

func (t *Tile) neutralObjectViewID() int {
	if t.objectViewID == definitions.EmptyObjectViewID || t.playerIndex == 0 {
		return t.objectViewID
	}
	if id, ok := t.cfg.TileObjectViewID(t.tileType, 0); ok {
		return id
	}
	return t.objectViewID
}

// foggedObjectViewID hides ownership, except for headquarters which are always known.
func (t *Tile) foggedObjectViewID() int {
	if t.tileType == core.TileTypeHeadquarters {
		return t.objectViewID
	}
	return t.neutralObjectViewID()
}

// SetFogEnabled forgets the state the local player can no longer see.
func (t *Tile) SetFogEnabled() error {
	if t.isFogEnabled {
		return nil
	}
	hp := t.CurrentHp()
	if err := t.ResetByObjectViewID(t.foggedObjectViewID()); err != nil {
		return err
	}
	t.SetCurrentHp(hp)
	t.isFogEnabled = true
	return nil
}

// SetFogDisabled restores the tile from data, or from the map template when
// data is nil while keeping the current counters. The tile must be fogged.
func (t *Tile) SetFogDisabled(data *core.SerializedTile) error {
	if !t.isFogEnabled {
		return fmt.Errorf("%w: tile (%d,%d) is not fogged", ErrInvariant, t.gridIndex.X, t.gridIndex.Y)
	}
	if data != nil {
		if err := t.init(*data); err != nil {
			return err
		}
	} else {
		hp, bp, cp := t.CurrentHp(), t.CurrentBuildPoint(), t.CurrentCapturePoint()
		base, object := t.tileMap.templateViews(t.gridIndex)
		err := t.init(core.SerializedTile{
			GridX:               t.gridIndex.X,
			GridY:               t.gridIndex.Y,
			BaseViewID:          base,
			ObjectViewID:        object,
			CurrentHp:           &hp,
			CurrentBuildPoint:   &bp,
			CurrentCapturePoint: &cp,
		})
		if err != nil {
			return err
		}
	}
	t.isFogEnabled = false
	return nil
}
