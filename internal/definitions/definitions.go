// Package definitions is the versioned lookup service for static game data:
// unit, tile, commander and skill templates.
package definitions

import (
	"errors"
	"fmt"

	"github.com/tinywars/warcore/pkg/core"
)

const (
	// UnitHpNormalizer converts raw hit points into the displayed "bars".
	UnitHpNormalizer = 10
	// SiloRadius and SiloDamage describe a missile silo strike.
	SiloRadius = 2
	SiloDamage = 30

	DefaultLuckLowerLimit = 0
	DefaultLuckUpperLimit = 10
	DefaultMaxPromotion   = 3
)

var (
	ErrUnknownVersion = errors.New("unknown config version")
	ErrInvalidConfig  = errors.New("invalid config")
)

// NormalizeHp rounds raw hit points up to whole bars.
func NormalizeHp(hp int) int {
	return (hp + UnitHpNormalizer - 1) / UnitHpNormalizer
}

// TileBaseCfg describes a terrain base view.
type TileBaseCfg struct {
	Type core.TileType `json:"type"`
}

// TileObjectCfg describes an object view. Type is TileTypeNone for the empty object.
type TileObjectCfg struct {
	Type        core.TileType `json:"type"`
	PlayerIndex int           `json:"playerIndex"`
}

type TileTemplate struct {
	Type            core.TileType         `json:"type"`
	MaxHp           *int                  `json:"maxHp,omitempty"`
	ArmorType       core.ArmorType        `json:"armorType,omitempty"`
	MaxCapturePoint *int                  `json:"maxCapturePoint,omitempty"`
	DefeatOnCapture bool                  `json:"defeatOnCapture,omitempty"`
	MaxBuildPoint   *int                  `json:"maxBuildPoint,omitempty"`
	VisionRange     int                   `json:"visionRange,omitempty"`
	IncomePerTurn   int                   `json:"incomePerTurn,omitempty"`
	RepairAmount    int                   `json:"repairAmount,omitempty"`
	RepairCategory  core.UnitCategory     `json:"repairCategory,omitempty"`
	HideCategory    core.UnitCategory     `json:"hideCategory,omitempty"`
	MoveCosts       map[core.MoveType]int `json:"moveCosts"`
}

// MoveCost returns the cost of entering the tile, ok is false when it is impassable.
func (t *TileTemplate) MoveCost(moveType core.MoveType) (int, bool) {
	cost, ok := t.MoveCosts[moveType]
	return cost, ok
}

type UnitTemplate struct {
	Type        core.UnitType  `json:"type"`
	MaxHp       int            `json:"maxHp"`
	ArmorType   core.ArmorType `json:"armorType"`
	MoveRange   int            `json:"moveRange"`
	MoveType    core.MoveType  `json:"moveType"`
	VisionRange int            `json:"visionRange"`

	MaxFuel                 int  `json:"maxFuel"`
	FuelConsumptionPerTurn  int  `json:"fuelConsumptionPerTurn,omitempty"`
	FuelConsumptionInDiving int  `json:"fuelConsumptionInDiving,omitempty"`
	IsDestroyedOnOutOfFuel  bool `json:"isDestroyedOnOutOfFuel,omitempty"`

	ProductionCost int `json:"productionCost"`

	MinAttackRange         *int                   `json:"minAttackRange,omitempty"`
	MaxAttackRange         *int                   `json:"maxAttackRange,omitempty"`
	CanAttackAfterMove     bool                   `json:"canAttackAfterMove,omitempty"`
	PrimaryWeaponMaxAmmo   *int                   `json:"primaryWeaponMaxAmmo,omitempty"`
	PrimaryWeaponDamages   map[core.ArmorType]int `json:"primaryWeaponDamages,omitempty"`
	SecondaryWeaponDamages map[core.ArmorType]int `json:"secondaryWeaponDamages,omitempty"`

	CanCaptureTile bool                            `json:"canCaptureTile,omitempty"`
	CanLaunchSilo  bool                            `json:"canLaunchSilo,omitempty"`
	CanDive        bool                            `json:"canDive,omitempty"`
	BuildTiles     map[core.TileType]core.TileType `json:"buildTiles,omitempty"`

	MaxBuildMaterial   *int          `json:"maxBuildMaterial,omitempty"`
	MaxProduceMaterial *int          `json:"maxProduceMaterial,omitempty"`
	ProduceUnitType    core.UnitType `json:"produceUnitType,omitempty"`

	FlareMaxAmmo  *int `json:"flareMaxAmmo,omitempty"`
	FlareMaxRange int  `json:"flareMaxRange,omitempty"`
	FlareRadius   int  `json:"flareRadius,omitempty"`

	MaxLoadUnitsCount          int               `json:"maxLoadUnitsCount,omitempty"`
	LoadableCategory           core.UnitCategory `json:"loadableCategory,omitempty"`
	CanSupplyLoadedUnits       bool              `json:"canSupplyLoadedUnits,omitempty"`
	RepairAmountForLoadedUnits int               `json:"repairAmountForLoadedUnits,omitempty"`
	CanSupplyAdjacentUnits     bool              `json:"canSupplyAdjacentUnits,omitempty"`
}

// PrimaryWeaponBaseDamage returns the base damage against armor, ok is false
// when the unit has no primary weapon usable against it.
func (u *UnitTemplate) PrimaryWeaponBaseDamage(armor core.ArmorType) (int, bool) {
	if u.PrimaryWeaponMaxAmmo == nil {
		return 0, false
	}
	d, ok := u.PrimaryWeaponDamages[armor]
	return d, ok
}

func (u *UnitTemplate) SecondaryWeaponBaseDamage(armor core.ArmorType) (int, bool) {
	d, ok := u.SecondaryWeaponDamages[armor]
	return d, ok
}

// CoTemplate describes a commander. A nil MaxEnergy means the commander has no skills to charge.
type CoTemplate struct {
	CoID                int    `json:"coId"`
	Name                string `json:"name"`
	BoardCostPercentage int    `json:"boardCostPercentage"`
	ZoneRadius          int    `json:"zoneRadius"`
	MaxEnergy           *int   `json:"maxEnergy,omitempty"`
	PowerEnergy         *int   `json:"powerEnergy,omitempty"`
	SuperPowerEnergy    *int   `json:"superPowerEnergy,omitempty"`
	PassiveSkills       []int  `json:"passiveSkills,omitempty"`
	PowerSkills         []int  `json:"powerSkills,omitempty"`
	SuperPowerSkills    []int  `json:"superPowerSkills,omitempty"`
}

// SkillIDs returns the skills of the given kind.
func (c *CoTemplate) SkillIDs(skillType core.CoSkillType) []int {
	switch skillType {
	case core.CoSkillPower:
		return c.PowerSkills
	case core.CoSkillSuperPower:
		return c.SuperPowerSkills
	default:
		return c.PassiveSkills
	}
}

// CategoryModifier applies Modifier to units of Category.
type CategoryModifier struct {
	Category core.UnitCategory `json:"category"`
	Modifier int               `json:"modifier"`
}

// AreaDamage hits every unit within Radius of the chosen center.
type AreaDamage struct {
	Radius int `json:"radius"`
	Hp     int `json:"hp"`
}

type SkillTemplate struct {
	SkillID int    `json:"skillId"`
	Name    string `json:"name"`

	SelfHpGain           *CategoryModifier `json:"selfHpGain,omitempty"`
	EnemyHpGain          *CategoryModifier `json:"enemyHpGain,omitempty"`
	SelfFuelGain         *CategoryModifier `json:"selfFuelGain,omitempty"`
	EnemyFuelGain        *CategoryModifier `json:"enemyFuelGain,omitempty"`
	SelfMaterialGain     *CategoryModifier `json:"selfMaterialGain,omitempty"`
	EnemyMaterialGain    *CategoryModifier `json:"enemyMaterialGain,omitempty"`
	SelfPrimaryAmmoGain  *CategoryModifier `json:"selfPrimaryAmmoGain,omitempty"`
	EnemyPrimaryAmmoGain *CategoryModifier `json:"enemyPrimaryAmmoGain,omitempty"`
	SelfPromotionGain    *CategoryModifier `json:"selfPromotionGain,omitempty"`

	IndiscriminateAreaDamage *AreaDamage `json:"indiscriminateAreaDamage,omitempty"`
}

type objectKey struct {
	tileType    core.TileType
	playerIndex int
}

// Config is one version of the game data.
type Config struct {
	Version      string `json:"version"`
	MaxPromotion int    `json:"maxPromotion"`

	TileBases   map[int]TileBaseCfg                   `json:"tileBases"`
	TileObjects map[int]TileObjectCfg                 `json:"tileObjects"`
	Tiles       map[core.TileType]*TileTemplate       `json:"tiles"`
	Units       map[core.UnitType]*UnitTemplate       `json:"units"`
	Categories  map[core.UnitCategory][]core.UnitType `json:"categories"`
	Cos         map[int]*CoTemplate                   `json:"cos"`
	Skills      map[int]*SkillTemplate                `json:"skills"`

	objectViews map[objectKey]int
	categories  map[core.UnitCategory]map[core.UnitType]struct{}
}

// Validate checks cross references and builds the lookup indexes.
func (c *Config) Validate() error {
	if c.Version == "" {
		return fmt.Errorf("%w: empty version", ErrInvalidConfig)
	}
	if c.MaxPromotion == 0 {
		c.MaxPromotion = DefaultMaxPromotion
	}
	for id, b := range c.TileBases {
		if _, ok := c.Tiles[b.Type]; !ok {
			return fmt.Errorf("%w: tile base %d has unknown type %q", ErrInvalidConfig, id, b.Type)
		}
	}

	c.objectViews = make(map[objectKey]int, len(c.TileObjects))
	for id, o := range c.TileObjects {
		if o.Type != core.TileTypeNone {
			if _, ok := c.Tiles[o.Type]; !ok {
				return fmt.Errorf("%w: tile object %d has unknown type %q", ErrInvalidConfig, id, o.Type)
			}
		}
		key := objectKey{o.Type, o.PlayerIndex}
		if prev, ok := c.objectViews[key]; !ok || id < prev {
			c.objectViews[key] = id
		}
	}

	for t, u := range c.Units {
		if u.Type != t {
			return fmt.Errorf("%w: unit template %q keyed as %q", ErrInvalidConfig, u.Type, t)
		}
		if u.MaxHp <= 0 {
			return fmt.Errorf("%w: unit %q has no hit points", ErrInvalidConfig, t)
		}
	}

	c.categories = make(map[core.UnitCategory]map[core.UnitType]struct{}, len(c.Categories))
	for category, types := range c.Categories {
		set := make(map[core.UnitType]struct{}, len(types))
		for _, t := range types {
			if _, ok := c.Units[t]; !ok {
				return fmt.Errorf("%w: category %q names unknown unit %q", ErrInvalidConfig, category, t)
			}
			set[t] = struct{}{}
		}
		c.categories[category] = set
	}

	for id, co := range c.Cos {
		for _, skills := range [][]int{co.PassiveSkills, co.PowerSkills, co.SuperPowerSkills} {
			for _, skillID := range skills {
				if _, ok := c.Skills[skillID]; !ok {
					return fmt.Errorf("%w: co %d uses unknown skill %d", ErrInvalidConfig, id, skillID)
				}
			}
		}
	}
	return nil
}

func (c *Config) UnitTemplate(t core.UnitType) (*UnitTemplate, bool) {
	u, ok := c.Units[t]
	return u, ok
}

func (c *Config) TileTemplate(t core.TileType) (*TileTemplate, bool) {
	tt, ok := c.Tiles[t]
	return tt, ok
}

func (c *Config) Co(coID int) (*CoTemplate, bool) {
	co, ok := c.Cos[coID]
	return co, ok
}

func (c *Config) Skill(skillID int) (*SkillTemplate, bool) {
	s, ok := c.Skills[skillID]
	return s, ok
}

// TileTypeByViews resolves the gameplay type of a cell: the object wins over the base.
func (c *Config) TileTypeByViews(baseViewID, objectViewID int) (core.TileType, int, bool) {
	o, ok := c.TileObjects[objectViewID]
	if !ok {
		return core.TileTypeNone, 0, false
	}
	if o.Type != core.TileTypeNone {
		return o.Type, o.PlayerIndex, true
	}
	b, ok := c.TileBases[baseViewID]
	if !ok {
		return core.TileTypeNone, 0, false
	}
	return b.Type, 0, true
}

// TileObjectViewID finds the object view of a tile type owned by playerIndex.
func (c *Config) TileObjectViewID(t core.TileType, playerIndex int) (int, bool) {
	id, ok := c.objectViews[objectKey{t, playerIndex}]
	return id, ok
}

// CheckIsUnitTypeInCategory reports category membership; every unit is in All.
func (c *Config) CheckIsUnitTypeInCategory(t core.UnitType, category core.UnitCategory) bool {
	if category == core.UnitCategoryAll {
		return true
	}
	_, ok := c.categories[category][t]
	return ok
}
