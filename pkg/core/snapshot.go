// pkg/core/snapshot.go
package core

// SerializedTile carries the tile fields that differ from the map template.
type SerializedTile struct {
	GridX               int  `json:"gridX"`
	GridY               int  `json:"gridY"`
	BaseViewID          int  `json:"baseViewId"`
	ObjectViewID        int  `json:"objectViewId"`
	CurrentHp           *int `json:"currentHp,omitempty"`
	CurrentBuildPoint   *int `json:"currentBuildPoint,omitempty"`
	CurrentCapturePoint *int `json:"currentCapturePoint,omitempty"`
}

// GridIndex returns the position of the tile.
func (t SerializedTile) GridIndex() GridIndex {
	return GridIndex{X: t.GridX, Y: t.GridY}
}

// SerializedTileMap is nil-able: an untouched map serializes to no tiles.
type SerializedTileMap struct {
	Tiles []SerializedTile `json:"tiles,omitempty"`
}

// SerializedUnit is the dynamic state of one unit.
// A nil pointer field means "at template maximum".
type SerializedUnit struct {
	UnitID                   int             `json:"unitId"`
	UnitType                 UnitType        `json:"unitType"`
	PlayerIndex              int             `json:"playerIndex"`
	GridX                    int             `json:"gridX"`
	GridY                    int             `json:"gridY"`
	LoaderUnitID             *int            `json:"loaderUnitId,omitempty"`
	State                    UnitActionState `json:"state,omitempty"`
	CurrentHp                *int            `json:"currentHp,omitempty"`
	CurrentFuel              *int            `json:"currentFuel,omitempty"`
	PrimaryWeaponCurrentAmmo *int            `json:"primaryWeaponCurrentAmmo,omitempty"`
	FlareCurrentAmmo         *int            `json:"flareCurrentAmmo,omitempty"`
	CurrentPromotion         int             `json:"currentPromotion,omitempty"`
	IsCapturingTile          bool            `json:"isCapturingTile,omitempty"`
	IsBuildingTile           bool            `json:"isBuildingTile,omitempty"`
	IsDiving                 bool            `json:"isDiving,omitempty"`
	CurrentBuildMaterial     *int            `json:"currentBuildMaterial,omitempty"`
	CurrentProduceMaterial   *int            `json:"currentProduceMaterial,omitempty"`
}

// GridIndex returns the position of the unit.
func (u SerializedUnit) GridIndex() GridIndex {
	return GridIndex{X: u.GridX, Y: u.GridY}
}

type SerializedUnitMap struct {
	NextUnitID int              `json:"nextUnitId"`
	Units      []SerializedUnit `json:"units,omitempty"`
}

// SerializedFogPath is the path visibility grid of one player, one digit per cell.
type SerializedFogPath struct {
	PlayerIndex int    `json:"playerIndex"`
	EncodedMap  string `json:"encodedMap"`
}

type SerializedFogMap struct {
	ForceFogCode           ForceFogCode        `json:"forceFogCode,omitempty"`
	ForceExpirePlayerIndex *int                `json:"forceExpirePlayerIndex,omitempty"`
	ForceExpireTurnIndex   *int                `json:"forceExpireTurnIndex,omitempty"`
	MapsForPath            []SerializedFogPath `json:"mapsForPath,omitempty"`
}

type SerializedField struct {
	FogMap  SerializedFogMap   `json:"fogMap"`
	TileMap *SerializedTileMap `json:"tileMap,omitempty"`
	UnitMap SerializedUnitMap  `json:"unitMap"`
}

type SerializedPlayer struct {
	PlayerIndex      int         `json:"playerIndex"`
	UserID           *int64      `json:"userId,omitempty"`
	Nickname         string      `json:"nickname,omitempty"`
	TeamIndex        int         `json:"teamIndex"`
	IsAlive          bool        `json:"isAlive"`
	Fund             int         `json:"fund"`
	CoID             *int        `json:"coId,omitempty"`
	CoUnitID         *int        `json:"coUnitId,omitempty"`
	CoCurrentEnergy  int         `json:"coCurrentEnergy,omitempty"`
	CoUsingSkillType CoSkillType `json:"coUsingSkillType,omitempty"`
	HasVotedForDraw  bool        `json:"hasVotedForDraw,omitempty"`
}

type SerializedTurn struct {
	TurnIndex     int           `json:"turnIndex"`
	PlayerIndex   int           `json:"playerIndex"`
	TurnPhaseCode TurnPhaseCode `json:"turnPhaseCode"`
	EnterTurnTime int64         `json:"enterTurnTime"`
}

// SerializedWar is both the network snapshot and the replay checkpoint format.
type SerializedWar struct {
	WarID         int64  `json:"warId"`
	WarName       string `json:"warName,omitempty"`
	WarPassword   string `json:"warPassword,omitempty"`
	WarComment    string `json:"warComment,omitempty"`
	ConfigVersion string `json:"configVersion"`
	MapFileName   string `json:"mapFileName"`

	Seed        uint64 `json:"seed"`
	RandomState []byte `json:"randomState,omitempty"`

	TimeLimit            int   `json:"timeLimit"`
	HasFogByDefault      bool  `json:"hasFogByDefault"`
	IncomeModifier       int   `json:"incomeModifier"`
	EnergyGrowthModifier int   `json:"energyGrowthModifier"`
	AttackPowerModifier  int   `json:"attackPowerModifier"`
	MoveRangeModifier    int   `json:"moveRangeModifier"`
	VisionRangeModifier  int   `json:"visionRangeModifier"`
	InitialFund          int   `json:"initialFund"`
	InitialEnergy        int   `json:"initialEnergy"`
	BannedCoIDList       []int `json:"bannedCoIdList,omitempty"`
	LuckLowerLimit       *int  `json:"luckLowerLimit,omitempty"`
	LuckUpperLimit       *int  `json:"luckUpperLimit,omitempty"`

	RemainingVotesForDraw *int              `json:"remainingVotesForDraw,omitempty"`
	NextActionID          int               `json:"nextActionId"`
	ExecutedActions       []ActionContainer `json:"executedActions,omitempty"`

	Players []SerializedPlayer `json:"players"`
	Turn    SerializedTurn     `json:"turn"`
	Field   SerializedField    `json:"field"`
}

// MapTemplate is the static layout a war starts from.
// TileBases and TileObjects are indexed by x + y*Width.
type MapTemplate struct {
	FileName     string           `json:"fileName"`
	MapName      string           `json:"mapName,omitempty"`
	Width        int              `json:"mapWidth"`
	Height       int              `json:"mapHeight"`
	PlayersCount int              `json:"playersCount"`
	TileBases    []int            `json:"tileBases"`
	TileObjects  []int            `json:"tileObjects"`
	Units        []SerializedUnit `json:"units,omitempty"`
}

// MapSize returns the size of the template.
func (m *MapTemplate) MapSize() MapSize {
	return MapSize{Width: m.Width, Height: m.Height}
}
