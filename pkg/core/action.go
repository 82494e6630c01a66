// pkg/core/action.go
package core

// ActionCode names the kind of an ActionContainer.
type ActionCode int

const (
	ActionNone ActionCode = iota
	ActionPlayerBeginTurn
	ActionPlayerDeleteUnit
	ActionPlayerEndTurn
	ActionPlayerProduceUnit
	ActionPlayerSurrender
	ActionPlayerVoteForDraw
	ActionUnitAttack
	ActionUnitBeLoaded
	ActionUnitBuildTile
	ActionUnitCaptureTile
	ActionUnitDive
	ActionUnitDrop
	ActionUnitJoin
	ActionUnitLaunchFlare
	ActionUnitLaunchSilo
	ActionUnitLoadCo
	ActionUnitProduceUnit
	ActionUnitSupply
	ActionUnitSurface
	ActionUnitUseCoSkill
	ActionUnitWait
)

var actionCodeNames = map[ActionCode]string{
	ActionPlayerBeginTurn:   "PlayerBeginTurn",
	ActionPlayerDeleteUnit:  "PlayerDeleteUnit",
	ActionPlayerEndTurn:     "PlayerEndTurn",
	ActionPlayerProduceUnit: "PlayerProduceUnit",
	ActionPlayerSurrender:   "PlayerSurrender",
	ActionPlayerVoteForDraw: "PlayerVoteForDraw",
	ActionUnitAttack:        "UnitAttack",
	ActionUnitBeLoaded:      "UnitBeLoaded",
	ActionUnitBuildTile:     "UnitBuildTile",
	ActionUnitCaptureTile:   "UnitCaptureTile",
	ActionUnitDive:          "UnitDive",
	ActionUnitDrop:          "UnitDrop",
	ActionUnitJoin:          "UnitJoin",
	ActionUnitLaunchFlare:   "UnitLaunchFlare",
	ActionUnitLaunchSilo:    "UnitLaunchSilo",
	ActionUnitLoadCo:        "UnitLoadCo",
	ActionUnitProduceUnit:   "UnitProduceUnit",
	ActionUnitSupply:        "UnitSupply",
	ActionUnitSurface:       "UnitSurface",
	ActionUnitUseCoSkill:    "UnitUseCoSkill",
	ActionUnitWait:          "UnitWait",
}

func (c ActionCode) String() string {
	if name, ok := actionCodeNames[c]; ok {
		return name
	}
	return "None"
}

// AllActionCodes lists every executable action code.
func AllActionCodes() []ActionCode {
	codes := make([]ActionCode, 0, len(actionCodeNames))
	for c := ActionPlayerBeginTurn; c <= ActionUnitWait; c++ {
		codes = append(codes, c)
	}
	return codes
}

// CatchUp is the state a receiver could not see before the action:
// tiles and units revealed or touched by the acting unit.
type CatchUp struct {
	ActingTiles     []SerializedTile `json:"actingTiles,omitempty"`
	ActingUnits     []SerializedUnit `json:"actingUnits,omitempty"`
	DiscoveredTiles []SerializedTile `json:"discoveredTiles,omitempty"`
	DiscoveredUnits []SerializedUnit `json:"discoveredUnits,omitempty"`
}

// UnitMove is shared by every unit action. LaunchUnitID is set when the
// acting unit starts loaded inside the unit at the first path node.
type UnitMove struct {
	CatchUp
	Path         MovePath `json:"path"`
	LaunchUnitID *int     `json:"launchUnitId,omitempty"`
}

type PlayerBeginTurn struct {
	LostPlayerIndex int `json:"lostPlayerIndex,omitempty"`
}

type PlayerDeleteUnit struct {
	GridIndex GridIndex `json:"gridIndex"`
}

type PlayerEndTurn struct{}

// PlayerProduceUnit may hide GridIndex and UnitType from players that cannot see the factory.
type PlayerProduceUnit struct {
	CatchUp
	GridIndex *GridIndex `json:"gridIndex,omitempty"`
	UnitType  UnitType   `json:"unitType,omitempty"`
	Cost      int        `json:"cost"`
}

type PlayerSurrender struct{}

type PlayerVoteForDraw struct {
	IsAgree bool `json:"isAgree"`
}

type UnitAttack struct {
	UnitMove
	TargetGridIndex GridIndex `json:"targetGridIndex"`
	AttackDamage    int       `json:"attackDamage"`
	CounterDamage   *int      `json:"counterDamage,omitempty"`
	LostPlayerIndex int       `json:"lostPlayerIndex,omitempty"`
}

type UnitBeLoaded struct {
	UnitMove
}

type UnitBuildTile struct {
	UnitMove
}

type UnitCaptureTile struct {
	UnitMove
}

type UnitDive struct {
	UnitMove
}

type DropDestination struct {
	UnitID    int       `json:"unitId"`
	GridIndex GridIndex `json:"gridIndex"`
}

type UnitDrop struct {
	UnitMove
	DropDestinations []DropDestination `json:"dropDestinations"`
	IsDropBlocked    bool              `json:"isDropBlocked,omitempty"`
}

type UnitJoin struct {
	UnitMove
	JoinIncome int `json:"joinIncome,omitempty"`
}

type UnitLaunchFlare struct {
	UnitMove
	TargetGridIndex GridIndex `json:"targetGridIndex"`
}

type UnitLaunchSilo struct {
	UnitMove
	TargetGridIndex GridIndex `json:"targetGridIndex"`
}

type UnitLoadCo struct {
	UnitMove
}

type UnitProduceUnit struct {
	UnitMove
	Cost int `json:"cost"`
}

type UnitSupply struct {
	UnitMove
}

type UnitSurface struct {
	UnitMove
}

// SkillExtraData carries per-skill inputs chosen by the server.
type SkillExtraData struct {
	IndiscriminateAreaDamageCenter *GridIndex `json:"indiscriminateAreaDamageCenter,omitempty"`
}

type UnitUseCoSkill struct {
	UnitMove
	SkillType     CoSkillType      `json:"skillType"`
	ExtraDataList []SkillExtraData `json:"extraDataList,omitempty"`
}

type UnitWait struct {
	UnitMove
}

// ActionContainer is one authoritative, sequence-numbered action.
// Exactly one payload field is set.
type ActionContainer struct {
	ActionID int `json:"actionId"`

	PlayerBeginTurn   *PlayerBeginTurn   `json:"playerBeginTurn,omitempty"`
	PlayerDeleteUnit  *PlayerDeleteUnit  `json:"playerDeleteUnit,omitempty"`
	PlayerEndTurn     *PlayerEndTurn     `json:"playerEndTurn,omitempty"`
	PlayerProduceUnit *PlayerProduceUnit `json:"playerProduceUnit,omitempty"`
	PlayerSurrender   *PlayerSurrender   `json:"playerSurrender,omitempty"`
	PlayerVoteForDraw *PlayerVoteForDraw `json:"playerVoteForDraw,omitempty"`
	UnitAttack        *UnitAttack        `json:"unitAttack,omitempty"`
	UnitBeLoaded      *UnitBeLoaded      `json:"unitBeLoaded,omitempty"`
	UnitBuildTile     *UnitBuildTile     `json:"unitBuildTile,omitempty"`
	UnitCaptureTile   *UnitCaptureTile   `json:"unitCaptureTile,omitempty"`
	UnitDive          *UnitDive          `json:"unitDive,omitempty"`
	UnitDrop          *UnitDrop          `json:"unitDrop,omitempty"`
	UnitJoin          *UnitJoin          `json:"unitJoin,omitempty"`
	UnitLaunchFlare   *UnitLaunchFlare   `json:"unitLaunchFlare,omitempty"`
	UnitLaunchSilo    *UnitLaunchSilo    `json:"unitLaunchSilo,omitempty"`
	UnitLoadCo        *UnitLoadCo        `json:"unitLoadCo,omitempty"`
	UnitProduceUnit   *UnitProduceUnit   `json:"unitProduceUnit,omitempty"`
	UnitSupply        *UnitSupply        `json:"unitSupply,omitempty"`
	UnitSurface       *UnitSurface       `json:"unitSurface,omitempty"`
	UnitUseCoSkill    *UnitUseCoSkill    `json:"unitUseCoSkill,omitempty"`
	UnitWait          *UnitWait          `json:"unitWait,omitempty"`
}

// Code reports which payload the container carries.
func (c *ActionContainer) Code() ActionCode {
	switch {
	case c.PlayerBeginTurn != nil:
		return ActionPlayerBeginTurn
	case c.PlayerDeleteUnit != nil:
		return ActionPlayerDeleteUnit
	case c.PlayerEndTurn != nil:
		return ActionPlayerEndTurn
	case c.PlayerProduceUnit != nil:
		return ActionPlayerProduceUnit
	case c.PlayerSurrender != nil:
		return ActionPlayerSurrender
	case c.PlayerVoteForDraw != nil:
		return ActionPlayerVoteForDraw
	case c.UnitAttack != nil:
		return ActionUnitAttack
	case c.UnitBeLoaded != nil:
		return ActionUnitBeLoaded
	case c.UnitBuildTile != nil:
		return ActionUnitBuildTile
	case c.UnitCaptureTile != nil:
		return ActionUnitCaptureTile
	case c.UnitDive != nil:
		return ActionUnitDive
	case c.UnitDrop != nil:
		return ActionUnitDrop
	case c.UnitJoin != nil:
		return ActionUnitJoin
	case c.UnitLaunchFlare != nil:
		return ActionUnitLaunchFlare
	case c.UnitLaunchSilo != nil:
		return ActionUnitLaunchSilo
	case c.UnitLoadCo != nil:
		return ActionUnitLoadCo
	case c.UnitProduceUnit != nil:
		return ActionUnitProduceUnit
	case c.UnitSupply != nil:
		return ActionUnitSupply
	case c.UnitSurface != nil:
		return ActionUnitSurface
	case c.UnitUseCoSkill != nil:
		return ActionUnitUseCoSkill
	case c.UnitWait != nil:
		return ActionUnitWait
	default:
		return ActionNone
	}
}
