package war

import (
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// Unit is one unit, either on the map or loaded inside another unit.
type Unit struct {
	cfg      *definitions.Config
	template *definitions.UnitTemplate
	war      *War

	unitID       int
	unitType     core.UnitType
	playerIndex  int
	gridIndex    core.GridIndex
	loaderUnitID *int
	state        core.UnitActionState

	currentHp                int
	currentFuel              int
	primaryWeaponCurrentAmmo *int
	flareCurrentAmmo         *int
	currentPromotion         int
	currentBuildMaterial     *int
	currentProduceMaterial   *int

	isCapturingTile bool
	isBuildingTile  bool
	isDiving        bool
}

// NewUnit builds a unit from its dynamic state; absent counters start at max.
func NewUnit(cfg *definitions.Config, data core.SerializedUnit) (*Unit, error) {
	template, ok := cfg.UnitTemplate(data.UnitType)
	if !ok {
		return nil, fmt.Errorf("unit %d: unknown type %q", data.UnitID, data.UnitType)
	}
	u := &Unit{
		cfg:                      cfg,
		template:                 template,
		unitID:                   data.UnitID,
		unitType:                 data.UnitType,
		playerIndex:              data.PlayerIndex,
		gridIndex:                data.GridIndex(),
		state:                    data.State,
		currentHp:                template.MaxHp,
		currentFuel:              template.MaxFuel,
		primaryWeaponCurrentAmmo: currentOrMax(data.PrimaryWeaponCurrentAmmo, template.PrimaryWeaponMaxAmmo),
		flareCurrentAmmo:         currentOrMax(data.FlareCurrentAmmo, template.FlareMaxAmmo),
		currentPromotion:         data.CurrentPromotion,
		currentBuildMaterial:     currentOrMax(data.CurrentBuildMaterial, template.MaxBuildMaterial),
		currentProduceMaterial:   currentOrMax(data.CurrentProduceMaterial, template.MaxProduceMaterial),
		isCapturingTile:          data.IsCapturingTile,
		isBuildingTile:           data.IsBuildingTile,
		isDiving:                 data.IsDiving,
	}
	if data.LoaderUnitID != nil {
		id := *data.LoaderUnitID
		u.loaderUnitID = &id
	}
	if data.CurrentHp != nil {
		u.currentHp = *data.CurrentHp
	}
	if data.CurrentFuel != nil {
		u.currentFuel = *data.CurrentFuel
	}
	return u, nil
}

func (u *Unit) Serialize() core.SerializedUnit {
	data := core.SerializedUnit{
		UnitID:                   u.unitID,
		UnitType:                 u.unitType,
		PlayerIndex:              u.playerIndex,
		GridX:                    u.gridIndex.X,
		GridY:                    u.gridIndex.Y,
		State:                    u.state,
		PrimaryWeaponCurrentAmmo: omitAtMax(u.primaryWeaponCurrentAmmo, u.template.PrimaryWeaponMaxAmmo),
		FlareCurrentAmmo:         omitAtMax(u.flareCurrentAmmo, u.template.FlareMaxAmmo),
		CurrentPromotion:         u.currentPromotion,
		IsCapturingTile:          u.isCapturingTile,
		IsBuildingTile:           u.isBuildingTile,
		IsDiving:                 u.isDiving,
		CurrentBuildMaterial:     omitAtMax(u.currentBuildMaterial, u.template.MaxBuildMaterial),
		CurrentProduceMaterial:   omitAtMax(u.currentProduceMaterial, u.template.MaxProduceMaterial),
	}
	if u.loaderUnitID != nil {
		id := *u.loaderUnitID
		data.LoaderUnitID = &id
	}
	if u.currentHp != u.template.MaxHp {
		hp := u.currentHp
		data.CurrentHp = &hp
	}
	if u.currentFuel != u.template.MaxFuel {
		fuel := u.currentFuel
		data.CurrentFuel = &fuel
	}
	return data
}

func (u *Unit) UnitID() int                         { return u.unitID }
func (u *Unit) Type() core.UnitType                 { return u.unitType }
func (u *Unit) Template() *definitions.UnitTemplate { return u.template }
func (u *Unit) PlayerIndex() int                    { return u.playerIndex }
func (u *Unit) GridIndex() core.GridIndex           { return u.gridIndex }
func (u *Unit) SetGridIndex(g core.GridIndex)       { u.gridIndex = g }
func (u *Unit) LoaderUnitID() *int                  { return u.loaderUnitID }
func (u *Unit) SetLoaderUnitID(id *int)             { u.loaderUnitID = id }
func (u *Unit) State() core.UnitActionState         { return u.state }
func (u *Unit) SetState(s core.UnitActionState)     { u.state = s }
func (u *Unit) ArmorType() core.ArmorType           { return u.template.ArmorType }
func (u *Unit) IsCapturingTile() bool               { return u.isCapturingTile }
func (u *Unit) SetIsCapturingTile(v bool)           { u.isCapturingTile = v }
func (u *Unit) IsBuildingTile() bool                { return u.isBuildingTile }
func (u *Unit) SetIsBuildingTile(v bool)            { u.isBuildingTile = v }
func (u *Unit) IsDiving() bool                      { return u.isDiving }
func (u *Unit) SetIsDiving(v bool)                  { u.isDiving = v }
func (u *Unit) CheckIsLoaded() bool                 { return u.loaderUnitID != nil }

// TeamIndex needs a running war.
func (u *Unit) TeamIndex() int {
	return u.war.players.TeamIndex(u.playerIndex)
}

func (u *Unit) MaxHp() int           { return u.template.MaxHp }
func (u *Unit) CurrentHp() int       { return u.currentHp }
func (u *Unit) SetCurrentHp(hp int)  { u.currentHp = hp }
func (u *Unit) NormalizedMaxHp() int { return definitions.NormalizeHp(u.template.MaxHp) }

func (u *Unit) NormalizedCurrentHp() int {
	return definitions.NormalizeHp(u.currentHp)
}

func (u *Unit) MaxFuel() int         { return u.template.MaxFuel }
func (u *Unit) CurrentFuel() int     { return u.currentFuel }
func (u *Unit) SetCurrentFuel(f int) { u.currentFuel = f }

// FuelConsumptionPerTurn includes the extra cost of staying submerged.
func (u *Unit) FuelConsumptionPerTurn() int {
	if u.isDiving {
		return u.template.FuelConsumptionPerTurn + u.template.FuelConsumptionInDiving
	}
	return u.template.FuelConsumptionPerTurn
}

func (u *Unit) PrimaryWeaponMaxAmmo() *int { return u.template.PrimaryWeaponMaxAmmo }

func (u *Unit) PrimaryWeaponCurrentAmmo() int {
	if u.primaryWeaponCurrentAmmo == nil {
		return 0
	}
	return *u.primaryWeaponCurrentAmmo
}

func (u *Unit) SetPrimaryWeaponCurrentAmmo(ammo int) {
	if u.primaryWeaponCurrentAmmo != nil {
		*u.primaryWeaponCurrentAmmo = ammo
	}
}

func (u *Unit) CheckHasPrimaryWeapon() bool {
	return u.primaryWeaponCurrentAmmo != nil
}

// PrimaryWeaponBaseDamage reports the chart value against armor, ok is false
// when the weapon cannot hit that armor.
func (u *Unit) PrimaryWeaponBaseDamage(armor core.ArmorType) (int, bool) {
	return u.template.PrimaryWeaponBaseDamage(armor)
}

func (u *Unit) FlareMaxAmmo() *int { return u.template.FlareMaxAmmo }

func (u *Unit) FlareCurrentAmmo() int {
	if u.flareCurrentAmmo == nil {
		return 0
	}
	return *u.flareCurrentAmmo
}

func (u *Unit) SetFlareCurrentAmmo(ammo int) {
	if u.flareCurrentAmmo != nil {
		*u.flareCurrentAmmo = ammo
	}
}

func (u *Unit) FlareRadius() int { return u.template.FlareRadius }

func (u *Unit) MaxPromotion() int         { return u.cfg.MaxPromotion }
func (u *Unit) CurrentPromotion() int     { return u.currentPromotion }
func (u *Unit) SetCurrentPromotion(p int) { u.currentPromotion = p }

// AddPromotion adds delta and keeps the result within [0, MaxPromotion].
func (u *Unit) AddPromotion(delta int) {
	u.currentPromotion = min(u.MaxPromotion(), max(0, u.currentPromotion+delta))
}

func (u *Unit) MaxBuildMaterial() *int { return u.template.MaxBuildMaterial }

func (u *Unit) CurrentBuildMaterial() int {
	if u.currentBuildMaterial == nil {
		return 0
	}
	return *u.currentBuildMaterial
}

func (u *Unit) SetCurrentBuildMaterial(m int) {
	if u.currentBuildMaterial != nil {
		*u.currentBuildMaterial = m
	}
}

func (u *Unit) MaxProduceMaterial() *int { return u.template.MaxProduceMaterial }

func (u *Unit) CurrentProduceMaterial() int {
	if u.currentProduceMaterial == nil {
		return 0
	}
	return *u.currentProduceMaterial
}

func (u *Unit) SetCurrentProduceMaterial(m int) {
	if u.currentProduceMaterial != nil {
		*u.currentProduceMaterial = m
	}
}

func (u *Unit) ProduceUnitType() core.UnitType { return u.template.ProduceUnitType }

// CaptureAmount is the normalized hit points of a unit able to capture.
func (u *Unit) CaptureAmount() int {
	if !u.template.CanCaptureTile {
		return 0
	}
	return u.NormalizedCurrentHp()
}

func (u *Unit) BuildAmount() int {
	if len(u.template.BuildTiles) == 0 {
		return 0
	}
	return u.NormalizedCurrentHp()
}

// BuildTargetTileObjectViewID is the object view produced by building on a tile of type src.
func (u *Unit) BuildTargetTileObjectViewID(src core.TileType) (int, bool) {
	target, ok := u.template.BuildTiles[src]
	if !ok {
		return 0, false
	}
	return u.cfg.TileObjectViewID(target, u.playerIndex)
}

// LoadCoCost is the fund paid to put the commander on board.
func (u *Unit) LoadCoCost() int {
	player := u.war.players.Player(u.playerIndex)
	co, ok := player.CoTemplate()
	if !ok {
		return 0
	}
	return u.template.ProductionCost * co.BoardCostPercentage / 100
}

// VisionRangeForPlayer is the unit vision granted to playerIndex, zero for other teams.
func (u *Unit) VisionRangeForPlayer(playerIndex int, _ core.GridIndex) int {
	if u.war == nil || !u.war.players.CheckIsSameTeam(u.playerIndex, playerIndex) {
		return 0
	}
	return max(1, u.template.VisionRange+u.war.settings.VisionRangeModifier)
}

// CheckIsHiddenOn reports whether the unit is concealed when standing on tile.
func (u *Unit) CheckIsHiddenOn(tile *Tile) bool {
	if u.isDiving {
		return true
	}
	category := tile.Template().HideCategory
	return category != "" && u.cfg.CheckIsUnitTypeInCategory(u.unitType, category)
}

func (u *Unit) CheckCanBeSupplied() bool {
	if u.currentFuel < u.template.MaxFuel {
		return true
	}
	if maxAmmo := u.template.PrimaryWeaponMaxAmmo; maxAmmo != nil && u.PrimaryWeaponCurrentAmmo() < *maxAmmo {
		return true
	}
	if maxFlare := u.template.FlareMaxAmmo; maxFlare != nil && u.FlareCurrentAmmo() < *maxFlare {
		return true
	}
	return false
}

// UpdateOnSupplied refills fuel and ammunition.
func (u *Unit) UpdateOnSupplied() {
	u.currentFuel = u.template.MaxFuel
	if maxAmmo := u.template.PrimaryWeaponMaxAmmo; maxAmmo != nil {
		u.SetPrimaryWeaponCurrentAmmo(*maxAmmo)
	}
	if maxFlare := u.template.FlareMaxAmmo; maxFlare != nil {
		u.SetFlareCurrentAmmo(*maxFlare)
	}
}

// JoinIncome refunds the normalized hit points wasted when target joins u.
func (u *Unit) JoinIncome(target *Unit) int {
	normalizedMax := u.NormalizedMaxHp()
	excess := u.NormalizedCurrentHp() + target.NormalizedCurrentHp() - normalizedMax
	if excess <= 0 || normalizedMax == 0 {
		return 0
	}
	return u.template.ProductionCost * excess / normalizedMax
}
