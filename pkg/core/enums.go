// pkg/core/enums.go
package core

// TileType identifies terrain and structures.
type TileType string

const (
	TileTypeNone         TileType = ""
	TileTypePlain        TileType = "Plain"
	TileTypeRiver        TileType = "River"
	TileTypeSea          TileType = "Sea"
	TileTypeBeach        TileType = "Beach"
	TileTypeRoad         TileType = "Road"
	TileTypeBridge       TileType = "Bridge"
	TileTypeWood         TileType = "Wood"
	TileTypeMountain     TileType = "Mountain"
	TileTypeWasteland    TileType = "Wasteland"
	TileTypeRuins        TileType = "Ruins"
	TileTypeFire         TileType = "Fire"
	TileTypeRough        TileType = "Rough"
	TileTypeMist         TileType = "Mist"
	TileTypeReef         TileType = "Reef"
	TileTypePlasma       TileType = "Plasma"
	TileTypeMeteor       TileType = "Meteor"
	TileTypeSilo         TileType = "Silo"
	TileTypeEmptySilo    TileType = "EmptySilo"
	TileTypeHeadquarters TileType = "Headquarters"
	TileTypeCity         TileType = "City"
	TileTypeCommandTower TileType = "CommandTower"
	TileTypeRadar        TileType = "Radar"
	TileTypeFactory      TileType = "Factory"
	TileTypeAirport      TileType = "Airport"
	TileTypeSeaport      TileType = "Seaport"
	TileTypeTempAirport  TileType = "TempAirport"
	TileTypeTempSeaport  TileType = "TempSeaport"
)

// UnitType identifies a unit template.
type UnitType string

const (
	UnitTypeInfantry        UnitType = "Infantry"
	UnitTypeMech            UnitType = "Mech"
	UnitTypeRecon           UnitType = "Recon"
	UnitTypeFlare           UnitType = "Flare"
	UnitTypeTank            UnitType = "Tank"
	UnitTypeArtillery       UnitType = "Artillery"
	UnitTypeAntiAir         UnitType = "AntiAir"
	UnitTypeMissiles        UnitType = "Missiles"
	UnitTypeRig             UnitType = "Rig"
	UnitTypeFighter         UnitType = "Fighter"
	UnitTypeTransportCopter UnitType = "TransportCopter"
	UnitTypeSubmarine       UnitType = "Submarine"
	UnitTypeCarrier         UnitType = "Carrier"
	UnitTypeSeaplane        UnitType = "Seaplane"
)

// MoveType selects a row of the tile move cost table.
type MoveType string

const (
	MoveTypeInfantry MoveType = "Infantry"
	MoveTypeMech     MoveType = "Mech"
	MoveTypeTireA    MoveType = "TireA"
	MoveTypeTank     MoveType = "Tank"
	MoveTypeAir      MoveType = "Air"
	MoveTypeShip     MoveType = "Ship"
)

// UnitCategory groups unit types for skills and loading rules.
type UnitCategory string

const (
	UnitCategoryAll       UnitCategory = "All"
	UnitCategoryGround    UnitCategory = "Ground"
	UnitCategoryFoot      UnitCategory = "Foot"
	UnitCategoryDirect    UnitCategory = "Direct"
	UnitCategoryIndirect  UnitCategory = "Indirect"
	UnitCategoryAir       UnitCategory = "Air"
	UnitCategoryNaval     UnitCategory = "Naval"
	UnitCategoryPlaneOnly UnitCategory = "Plane"
)

// ArmorType is the damage chart column a target is hit on.
// Units use the armor named after their own type.
type ArmorType string

const (
	ArmorTypeInfantry        ArmorType = "Infantry"
	ArmorTypeMech            ArmorType = "Mech"
	ArmorTypeRecon           ArmorType = "Recon"
	ArmorTypeFlare           ArmorType = "Flare"
	ArmorTypeTank            ArmorType = "Tank"
	ArmorTypeArtillery       ArmorType = "Artillery"
	ArmorTypeAntiAir         ArmorType = "AntiAir"
	ArmorTypeMissiles        ArmorType = "Missiles"
	ArmorTypeRig             ArmorType = "Rig"
	ArmorTypeFighter         ArmorType = "Fighter"
	ArmorTypeTransportCopter ArmorType = "TransportCopter"
	ArmorTypeSubmarine       ArmorType = "Submarine"
	ArmorTypeCarrier         ArmorType = "Carrier"
	ArmorTypeSeaplane        ArmorType = "Seaplane"
	ArmorTypeMeteor          ArmorType = "Meteor"
)

// UnitActionState tells whether a unit has acted in the current turn.
type UnitActionState int

const (
	UnitStateIdle UnitActionState = iota
	UnitStateActed
)

// TurnPhaseCode is the phase of the player in turn.
type TurnPhaseCode int

const (
	TurnPhaseWaitBeginTurn TurnPhaseCode = iota
	TurnPhaseMain
)

// ForceFogCode overrides the fog default of a war.
type ForceFogCode int

const (
	ForceFogNone ForceFogCode = iota
	ForceFogClear
	ForceFogFog
)

// CoSkillType is the skill a commander is using. Passive means no active skill.
type CoSkillType int

const (
	CoSkillPassive CoSkillType = iota
	CoSkillPower
	CoSkillSuperPower
)

// SyncWarStatus is the result code of a sync war request.
type SyncWarStatus int

const (
	SyncWarNotJoined SyncWarStatus = iota
	SyncWarDefeated
	SyncWarEndedOrNotExists
	SyncWarNoError
	SyncWarSynchronized
)

// SyncWarRequestType records why a sync was requested.
type SyncWarRequestType int

const (
	SyncRequestPlayer SyncWarRequestType = iota
	SyncRequestReconnection
)
