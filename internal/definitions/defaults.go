package definitions

import "github.com/tinywars/warcore/pkg/core"

// DefaultVersion names the built-in catalog.
const DefaultVersion = "default"

// MaxPlayersCount bounds the owned tile object views of the built-in catalog.
const MaxPlayersCount = 4

// Base views of the built-in catalog.
const (
	BaseViewPlain = iota + 1
	BaseViewRiver
	BaseViewSea
	BaseViewBeach
)

// EmptyObjectViewID is the object view of a cell without an object.
const EmptyObjectViewID = 0

func ptr(v int) *int { return &v }

func groundCosts(infantry, mech, tire, tank int) map[core.MoveType]int {
	return map[core.MoveType]int{
		core.MoveTypeInfantry: infantry,
		core.MoveTypeMech:     mech,
		core.MoveTypeTireA:    tire,
		core.MoveTypeTank:     tank,
		core.MoveTypeAir:      1,
	}
}

func seaCosts(ship int) map[core.MoveType]int {
	return map[core.MoveType]int{core.MoveTypeAir: 1, core.MoveTypeShip: ship}
}

func flatCosts() map[core.MoveType]int { return groundCosts(1, 1, 1, 1) }

var ownableTiles = []core.TileType{
	core.TileTypeHeadquarters,
	core.TileTypeCity,
	core.TileTypeCommandTower,
	core.TileTypeRadar,
	core.TileTypeFactory,
	core.TileTypeAirport,
	core.TileTypeSeaport,
	core.TileTypeTempAirport,
	core.TileTypeTempSeaport,
}

var neutralTiles = []core.TileType{
	core.TileTypeRoad,
	core.TileTypeBridge,
	core.TileTypeWood,
	core.TileTypeMountain,
	core.TileTypeWasteland,
	core.TileTypeRuins,
	core.TileTypeFire,
	core.TileTypeRough,
	core.TileTypeMist,
	core.TileTypeReef,
	core.TileTypePlasma,
	core.TileTypeMeteor,
	core.TileTypeSilo,
	core.TileTypeEmptySilo,
}

func defaultTiles() map[core.TileType]*TileTemplate {
	property := func(t core.TileType, vision, income, repair int, repairCategory core.UnitCategory, costs map[core.MoveType]int) *TileTemplate {
		return &TileTemplate{
			Type:            t,
			MaxCapturePoint: ptr(20),
			VisionRange:     vision,
			IncomePerTurn:   income,
			RepairAmount:    repair,
			RepairCategory:  repairCategory,
			MoveCosts:       costs,
		}
	}
	seaport := flatCosts()
	seaport[core.MoveTypeShip] = 1
	tempSeaport := flatCosts()
	tempSeaport[core.MoveTypeShip] = 1
	bridge := flatCosts()
	bridge[core.MoveTypeShip] = 1

	tiles := map[core.TileType]*TileTemplate{
		core.TileTypePlain:     {Type: core.TileTypePlain, MaxBuildPoint: ptr(20), MoveCosts: groundCosts(1, 1, 2, 1)},
		core.TileTypeRiver:     {Type: core.TileTypeRiver, MoveCosts: map[core.MoveType]int{core.MoveTypeInfantry: 2, core.MoveTypeMech: 1, core.MoveTypeAir: 1}},
		core.TileTypeSea:       {Type: core.TileTypeSea, MoveCosts: seaCosts(1)},
		core.TileTypeBeach:     {Type: core.TileTypeBeach, MaxBuildPoint: ptr(20), MoveCosts: groundCosts(1, 1, 2, 1)},
		core.TileTypeRoad:      {Type: core.TileTypeRoad, MoveCosts: flatCosts()},
		core.TileTypeBridge:    {Type: core.TileTypeBridge, MoveCosts: bridge},
		core.TileTypeWood:      {Type: core.TileTypeWood, HideCategory: core.UnitCategoryGround, MoveCosts: groundCosts(1, 1, 3, 2)},
		core.TileTypeMountain:  {Type: core.TileTypeMountain, MoveCosts: map[core.MoveType]int{core.MoveTypeInfantry: 2, core.MoveTypeMech: 1, core.MoveTypeAir: 1}},
		core.TileTypeWasteland: {Type: core.TileTypeWasteland, MoveCosts: groundCosts(2, 1, 3, 2)},
		core.TileTypeRuins:     {Type: core.TileTypeRuins, HideCategory: core.UnitCategoryGround, MoveCosts: groundCosts(1, 1, 2, 1)},
		core.TileTypeFire:      {Type: core.TileTypeFire, MoveCosts: map[core.MoveType]int{}},
		core.TileTypeRough:     {Type: core.TileTypeRough, MoveCosts: seaCosts(2)},
		core.TileTypeMist:      {Type: core.TileTypeMist, HideCategory: core.UnitCategoryNaval, MoveCosts: seaCosts(1)},
		core.TileTypeReef:      {Type: core.TileTypeReef, HideCategory: core.UnitCategoryNaval, MoveCosts: seaCosts(2)},
		core.TileTypePlasma:    {Type: core.TileTypePlasma, MoveCosts: map[core.MoveType]int{}},
		core.TileTypeMeteor:    {Type: core.TileTypeMeteor, MaxHp: ptr(99), ArmorType: core.ArmorTypeMeteor, MoveCosts: map[core.MoveType]int{}},
		core.TileTypeSilo:      {Type: core.TileTypeSilo, MoveCosts: flatCosts()},
		core.TileTypeEmptySilo: {Type: core.TileTypeEmptySilo, MoveCosts: flatCosts()},

		core.TileTypeHeadquarters: property(core.TileTypeHeadquarters, 2, 1000, 20, core.UnitCategoryGround, flatCosts()),
		core.TileTypeCity:         property(core.TileTypeCity, 2, 1000, 20, core.UnitCategoryGround, flatCosts()),
		core.TileTypeCommandTower: property(core.TileTypeCommandTower, 2, 1000, 0, "", flatCosts()),
		core.TileTypeRadar:        property(core.TileTypeRadar, 3, 1000, 0, "", flatCosts()),
		core.TileTypeFactory:      property(core.TileTypeFactory, 2, 1000, 20, core.UnitCategoryGround, flatCosts()),
		core.TileTypeAirport:      property(core.TileTypeAirport, 2, 1000, 20, core.UnitCategoryAir, flatCosts()),
		core.TileTypeSeaport:      property(core.TileTypeSeaport, 2, 1000, 20, core.UnitCategoryNaval, seaport),
		core.TileTypeTempAirport:  property(core.TileTypeTempAirport, 1, 0, 20, core.UnitCategoryAir, flatCosts()),
		core.TileTypeTempSeaport:  property(core.TileTypeTempSeaport, 1, 0, 20, core.UnitCategoryNaval, tempSeaport),
	}
	tiles[core.TileTypeHeadquarters].DefeatOnCapture = true
	return tiles
}

func defaultTileObjects() map[int]TileObjectCfg {
	objects := map[int]TileObjectCfg{EmptyObjectViewID: {Type: core.TileTypeNone}}
	id := EmptyObjectViewID + 1
	for _, t := range neutralTiles {
		objects[id] = TileObjectCfg{Type: t}
		id++
	}
	for _, t := range ownableTiles {
		first := 0
		if t == core.TileTypeHeadquarters {
			first = 1
		}
		for playerIndex := first; playerIndex <= MaxPlayersCount; playerIndex++ {
			objects[id] = TileObjectCfg{Type: t, PlayerIndex: playerIndex}
			id++
		}
	}
	return objects
}

func defaultUnits() map[core.UnitType]*UnitTemplate {
	units := []*UnitTemplate{
		{
			Type: core.UnitTypeInfantry, MoveRange: 3, MoveType: core.MoveTypeInfantry, VisionRange: 2,
			MaxFuel: 99, ProductionCost: 1000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			SecondaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 55, core.ArmorTypeMech: 45, core.ArmorTypeRecon: 12, core.ArmorTypeFlare: 10,
				core.ArmorTypeTank: 5, core.ArmorTypeArtillery: 15, core.ArmorTypeAntiAir: 5, core.ArmorTypeMissiles: 26,
				core.ArmorTypeRig: 14, core.ArmorTypeTransportCopter: 30, core.ArmorTypeMeteor: 1,
			},
			CanCaptureTile: true, CanLaunchSilo: true,
		},
		{
			Type: core.UnitTypeMech, MoveRange: 2, MoveType: core.MoveTypeMech, VisionRange: 2,
			MaxFuel: 70, ProductionCost: 2500,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			PrimaryWeaponMaxAmmo: ptr(3),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeRecon: 85, core.ArmorTypeFlare: 80, core.ArmorTypeTank: 55, core.ArmorTypeArtillery: 70,
				core.ArmorTypeAntiAir: 65, core.ArmorTypeMissiles: 85, core.ArmorTypeRig: 75, core.ArmorTypeMeteor: 20,
			},
			SecondaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 65, core.ArmorTypeMech: 55, core.ArmorTypeTransportCopter: 35,
			},
			CanCaptureTile: true, CanLaunchSilo: true,
		},
		{
			Type: core.UnitTypeRecon, MoveRange: 8, MoveType: core.MoveTypeTireA, VisionRange: 5,
			MaxFuel: 80, ProductionCost: 4000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			SecondaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 70, core.ArmorTypeMech: 65, core.ArmorTypeRecon: 35, core.ArmorTypeFlare: 30,
				core.ArmorTypeTank: 6, core.ArmorTypeArtillery: 45, core.ArmorTypeAntiAir: 4, core.ArmorTypeMissiles: 28,
				core.ArmorTypeRig: 45, core.ArmorTypeTransportCopter: 35,
			},
		},
		{
			Type: core.UnitTypeFlare, MoveRange: 5, MoveType: core.MoveTypeTank, VisionRange: 2,
			MaxFuel: 60, ProductionCost: 5000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			SecondaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 80, core.ArmorTypeMech: 70, core.ArmorTypeRecon: 60, core.ArmorTypeFlare: 50,
				core.ArmorTypeTank: 10, core.ArmorTypeArtillery: 45, core.ArmorTypeRig: 45,
			},
			FlareMaxAmmo: ptr(3), FlareMaxRange: 5, FlareRadius: 2,
		},
		{
			Type: core.UnitTypeTank, MoveRange: 6, MoveType: core.MoveTypeTank, VisionRange: 3,
			MaxFuel: 70, ProductionCost: 7000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			PrimaryWeaponMaxAmmo: ptr(9),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeRecon: 85, core.ArmorTypeFlare: 80, core.ArmorTypeTank: 55, core.ArmorTypeArtillery: 70,
				core.ArmorTypeAntiAir: 65, core.ArmorTypeMissiles: 85, core.ArmorTypeRig: 75, core.ArmorTypeCarrier: 9,
				core.ArmorTypeSubmarine: 9, core.ArmorTypeMeteor: 20,
			},
			SecondaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 75, core.ArmorTypeMech: 70, core.ArmorTypeTransportCopter: 40,
			},
		},
		{
			Type: core.UnitTypeArtillery, MoveRange: 5, MoveType: core.MoveTypeTank, VisionRange: 1,
			MaxFuel: 50, ProductionCost: 6000,
			MinAttackRange: ptr(2), MaxAttackRange: ptr(3),
			PrimaryWeaponMaxAmmo: ptr(9),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 90, core.ArmorTypeMech: 85, core.ArmorTypeRecon: 80, core.ArmorTypeFlare: 75,
				core.ArmorTypeTank: 70, core.ArmorTypeArtillery: 75, core.ArmorTypeAntiAir: 75, core.ArmorTypeMissiles: 80,
				core.ArmorTypeRig: 70, core.ArmorTypeSubmarine: 60, core.ArmorTypeCarrier: 45, core.ArmorTypeMeteor: 45,
			},
		},
		{
			Type: core.UnitTypeAntiAir, MoveRange: 6, MoveType: core.MoveTypeTank, VisionRange: 2,
			MaxFuel: 60, ProductionCost: 8000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			PrimaryWeaponMaxAmmo: ptr(9),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 105, core.ArmorTypeMech: 105, core.ArmorTypeRecon: 60, core.ArmorTypeFlare: 50,
				core.ArmorTypeTank: 25, core.ArmorTypeArtillery: 50, core.ArmorTypeAntiAir: 45, core.ArmorTypeMissiles: 55,
				core.ArmorTypeRig: 50, core.ArmorTypeFighter: 65, core.ArmorTypeTransportCopter: 120,
				core.ArmorTypeSeaplane: 75, core.ArmorTypeMeteor: 10,
			},
		},
		{
			Type: core.UnitTypeMissiles, MoveRange: 4, MoveType: core.MoveTypeTireA, VisionRange: 5,
			MaxFuel: 50, ProductionCost: 12000,
			MinAttackRange: ptr(3), MaxAttackRange: ptr(5),
			PrimaryWeaponMaxAmmo: ptr(6),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeFighter: 100, core.ArmorTypeTransportCopter: 120, core.ArmorTypeSeaplane: 100,
			},
		},
		{
			Type: core.UnitTypeRig, MoveRange: 6, MoveType: core.MoveTypeTank, VisionRange: 1,
			MaxFuel: 99, ProductionCost: 5000,
			BuildTiles: map[core.TileType]core.TileType{
				core.TileTypePlain: core.TileTypeTempAirport,
				core.TileTypeBeach: core.TileTypeTempSeaport,
			},
			MaxBuildMaterial:  ptr(1),
			MaxLoadUnitsCount: 1, LoadableCategory: core.UnitCategoryFoot, CanSupplyLoadedUnits: true,
			CanSupplyAdjacentUnits: true,
		},
		{
			Type: core.UnitTypeFighter, MoveRange: 9, MoveType: core.MoveTypeAir, VisionRange: 2,
			MaxFuel: 99, FuelConsumptionPerTurn: 5, IsDestroyedOnOutOfFuel: true, ProductionCost: 20000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			PrimaryWeaponMaxAmmo: ptr(9),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeFighter: 55, core.ArmorTypeTransportCopter: 100, core.ArmorTypeSeaplane: 65,
			},
		},
		{
			Type: core.UnitTypeTransportCopter, MoveRange: 6, MoveType: core.MoveTypeAir, VisionRange: 2,
			MaxFuel: 99, FuelConsumptionPerTurn: 2, IsDestroyedOnOutOfFuel: true, ProductionCost: 5000,
			MaxLoadUnitsCount: 1, LoadableCategory: core.UnitCategoryFoot,
		},
		{
			Type: core.UnitTypeSubmarine, MoveRange: 5, MoveType: core.MoveTypeShip, VisionRange: 5,
			MaxFuel: 60, FuelConsumptionPerTurn: 1, FuelConsumptionInDiving: 5, IsDestroyedOnOutOfFuel: true,
			ProductionCost: 20000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			PrimaryWeaponMaxAmmo: ptr(6),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeCarrier: 110, core.ArmorTypeSubmarine: 55,
			},
			CanDive: true,
		},
		{
			Type: core.UnitTypeCarrier, MoveRange: 5, MoveType: core.MoveTypeShip, VisionRange: 4,
			MaxFuel: 99, FuelConsumptionPerTurn: 1, IsDestroyedOnOutOfFuel: true, ProductionCost: 30000,
			MinAttackRange: ptr(3), MaxAttackRange: ptr(8),
			PrimaryWeaponMaxAmmo: ptr(9),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeFighter: 100, core.ArmorTypeTransportCopter: 115, core.ArmorTypeSeaplane: 100,
			},
			MaxProduceMaterial: ptr(4), ProduceUnitType: core.UnitTypeSeaplane,
			MaxLoadUnitsCount: 2, LoadableCategory: core.UnitCategoryPlaneOnly, CanSupplyLoadedUnits: true,
			RepairAmountForLoadedUnits: 20,
		},
		{
			Type: core.UnitTypeSeaplane, MoveRange: 7, MoveType: core.MoveTypeAir, VisionRange: 4,
			MaxFuel: 40, FuelConsumptionPerTurn: 5, IsDestroyedOnOutOfFuel: true, ProductionCost: 15000,
			MinAttackRange: ptr(1), MaxAttackRange: ptr(1), CanAttackAfterMove: true,
			PrimaryWeaponMaxAmmo: ptr(3),
			PrimaryWeaponDamages: map[core.ArmorType]int{
				core.ArmorTypeInfantry: 90, core.ArmorTypeMech: 90, core.ArmorTypeRecon: 90, core.ArmorTypeTank: 85,
				core.ArmorTypeArtillery: 90, core.ArmorTypeFighter: 45, core.ArmorTypeSubmarine: 55,
				core.ArmorTypeCarrier: 65, core.ArmorTypeMeteor: 40,
			},
		},
	}

	m := make(map[core.UnitType]*UnitTemplate, len(units))
	for _, u := range units {
		u.MaxHp = 100
		u.ArmorType = core.ArmorType(u.Type)
		m[u.Type] = u
	}
	return m
}

func defaultCategories() map[core.UnitCategory][]core.UnitType {
	return map[core.UnitCategory][]core.UnitType{
		core.UnitCategoryGround: {
			core.UnitTypeInfantry, core.UnitTypeMech, core.UnitTypeRecon, core.UnitTypeFlare, core.UnitTypeTank,
			core.UnitTypeArtillery, core.UnitTypeAntiAir, core.UnitTypeMissiles, core.UnitTypeRig,
		},
		core.UnitCategoryFoot: {core.UnitTypeInfantry, core.UnitTypeMech},
		core.UnitCategoryDirect: {
			core.UnitTypeInfantry, core.UnitTypeMech, core.UnitTypeRecon, core.UnitTypeFlare, core.UnitTypeTank,
			core.UnitTypeAntiAir, core.UnitTypeFighter, core.UnitTypeSubmarine, core.UnitTypeSeaplane,
		},
		core.UnitCategoryIndirect:  {core.UnitTypeArtillery, core.UnitTypeMissiles, core.UnitTypeCarrier},
		core.UnitCategoryAir:       {core.UnitTypeFighter, core.UnitTypeTransportCopter, core.UnitTypeSeaplane},
		core.UnitCategoryNaval:     {core.UnitTypeSubmarine, core.UnitTypeCarrier},
		core.UnitCategoryPlaneOnly: {core.UnitTypeFighter, core.UnitTypeSeaplane},
	}
}

func defaultSkills() map[int]*SkillTemplate {
	return map[int]*SkillTemplate{
		1: {SkillID: 1, Name: "Field Repair", SelfHpGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: 2}},
		2: {SkillID: 2, Name: "Resupply", SelfFuelGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: 100},
			SelfPrimaryAmmoGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: 100}},
		3: {SkillID: 3, Name: "Attrition", EnemyFuelGain: &CategoryModifier{Category: core.UnitCategoryAir, Modifier: -50},
			EnemyHpGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: -1}},
		4: {SkillID: 4, Name: "Meteor Strike", IndiscriminateAreaDamage: &AreaDamage{Radius: 2, Hp: 3}},
		5: {SkillID: 5, Name: "Field Promotion", SelfPromotionGain: &CategoryModifier{Category: core.UnitCategoryGround, Modifier: 1},
			SelfMaterialGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: 100}},
		6: {SkillID: 6, Name: "Sabotage", EnemyMaterialGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: -100},
			EnemyPrimaryAmmoGain: &CategoryModifier{Category: core.UnitCategoryAll, Modifier: -50}},
	}
}

func defaultCos() map[int]*CoTemplate {
	return map[int]*CoTemplate{
		1: {CoID: 1, Name: "Commander Ash", BoardCostPercentage: 20, ZoneRadius: 2,
			MaxEnergy: ptr(300), PowerEnergy: ptr(150), SuperPowerEnergy: ptr(300),
			PowerSkills: []int{1}, SuperPowerSkills: []int{1, 2}},
		2: {CoID: 2, Name: "Commander Vale", BoardCostPercentage: 30, ZoneRadius: 1,
			MaxEnergy: ptr(400), PowerEnergy: ptr(200), SuperPowerEnergy: ptr(400),
			PowerSkills: []int{3}, SuperPowerSkills: []int{4, 6}},
		3: {CoID: 3, Name: "Commander Reed", BoardCostPercentage: 20, ZoneRadius: 2,
			MaxEnergy: ptr(250), PowerEnergy: ptr(250),
			PowerSkills: []int{5}},
	}
}

// Default builds the built-in catalog.
func Default() *Config {
	return &Config{
		Version:      DefaultVersion,
		MaxPromotion: DefaultMaxPromotion,
		TileBases: map[int]TileBaseCfg{
			BaseViewPlain: {Type: core.TileTypePlain},
			BaseViewRiver: {Type: core.TileTypeRiver},
			BaseViewSea:   {Type: core.TileTypeSea},
			BaseViewBeach: {Type: core.TileTypeBeach},
		},
		TileObjects: defaultTileObjects(),
		Tiles:       defaultTiles(),
		Units:       defaultUnits(),
		Categories:  defaultCategories(),
		Cos:         defaultCos(),
		Skills:      defaultSkills(),
	}
}
