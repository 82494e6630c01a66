package action

import (
	"context"
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

// executeUnitUseCoSkill activates a commander power. The energy cost is
// drained and every instant skill of that power runs once.
func (e *Engine) executeUnitUseCoSkill(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	action := c.UnitUseCoSkill
	move := &action.UnitMove
	u, err := startUnitAction(w, core.ActionUnitUseCoSkill, move)
	if err != nil {
		return err
	}
	if !move.Path.IsBlocked {
		player := w.Players().Player(u.PlayerIndex())
		if player == nil {
			return fmt.Errorf("%w: unit %d has no player", ErrInvariant, u.UnitID())
		}
		co, ok := player.CoTemplate()
		if !ok {
			return fmt.Errorf("%w: player %d has no commander", ErrInvariant, player.PlayerIndex())
		}
		player.SetCoCurrentEnergy(player.CoCurrentEnergy() - player.EnergyCostForSkill(action.SkillType))
		player.SetCoUsingSkillType(action.SkillType)
		for i, skillID := range co.SkillIDs(action.SkillType) {
			var extra *core.SkillExtraData
			if i < len(action.ExtraDataList) {
				extra = &action.ExtraDataList[i]
			}
			if err := ExeInstantSkill(w, player, skillID, extra, e.logger); err != nil {
				return err
			}
		}
		effect := w.Field().VisionEffect()
		w.Field().UnitMap().ForEachUnitOnMap(func(other *war.Unit) {
			if other.PlayerIndex() == player.PlayerIndex() {
				effect.ShowEffect(war.EffectSkill, other.GridIndex())
			}
		})
	}
	return e.finishUnitAction(ctx, w, u, move.Path)
}

// ExeInstantSkill applies the immediate part of one skill for player.
// Hit point gains are in normalized hp and never kill; resource gains are
// percentages of the maximum when positive and of the current value when
// negative. Area damage without a center is logged and skipped.
func ExeInstantSkill(w *war.War, player *war.Player, skillID int, extra *core.SkillExtraData, logger Logger) error {
	if logger == nil {
		logger = nopLogger{}
	}
	cfg := w.Config()
	skill, ok := cfg.Skill(skillID)
	if !ok {
		return fmt.Errorf("%w: unknown skill %d", ErrInvariant, skillID)
	}
	playerIndex := player.PlayerIndex()
	unitMap := w.Field().UnitMap()

	// forUnits visits the units of player (self) or of everybody else.
	forUnits := func(gain *definitions.CategoryModifier, self bool, fn func(u *war.Unit, modifier int)) {
		if gain == nil {
			return
		}
		unitMap.ForEachUnit(func(u *war.Unit) {
			if (u.PlayerIndex() == playerIndex) != self {
				return
			}
			if cfg.CheckIsUnitTypeInCategory(u.Type(), gain.Category) {
				fn(u, gain.Modifier)
			}
		})
	}

	gainHp := func(u *war.Unit, modifier int) {
		u.SetCurrentHp(max(1, min(u.MaxHp(), u.CurrentHp()+modifier*definitions.UnitHpNormalizer)))
	}
	gainFuel := func(u *war.Unit, modifier int) {
		u.SetCurrentFuel(applyPercentGain(u.CurrentFuel(), u.MaxFuel(), modifier))
	}
	gainMaterial := func(u *war.Unit, modifier int) {
		if maxMaterial := u.MaxBuildMaterial(); maxMaterial != nil {
			u.SetCurrentBuildMaterial(applyPercentGain(u.CurrentBuildMaterial(), *maxMaterial, modifier))
		}
		if maxMaterial := u.MaxProduceMaterial(); maxMaterial != nil {
			u.SetCurrentProduceMaterial(applyPercentGain(u.CurrentProduceMaterial(), *maxMaterial, modifier))
		}
	}
	gainAmmo := func(u *war.Unit, modifier int) {
		if maxAmmo := u.PrimaryWeaponMaxAmmo(); maxAmmo != nil {
			u.SetPrimaryWeaponCurrentAmmo(applyPercentGain(u.PrimaryWeaponCurrentAmmo(), *maxAmmo, modifier))
		}
	}

	forUnits(skill.SelfHpGain, true, gainHp)
	forUnits(skill.EnemyHpGain, false, gainHp)
	forUnits(skill.SelfFuelGain, true, gainFuel)
	forUnits(skill.EnemyFuelGain, false, gainFuel)
	forUnits(skill.SelfMaterialGain, true, gainMaterial)
	forUnits(skill.EnemyMaterialGain, false, gainMaterial)
	forUnits(skill.SelfPrimaryAmmoGain, true, gainAmmo)
	forUnits(skill.EnemyPrimaryAmmoGain, false, gainAmmo)
	forUnits(skill.SelfPromotionGain, true, func(u *war.Unit, modifier int) {
		u.AddPromotion(modifier)
	})

	if area := skill.IndiscriminateAreaDamage; area != nil {
		if extra == nil || extra.IndiscriminateAreaDamageCenter == nil {
			logger.Error("no center for area damage, skipping it", "warId", w.WarID(), "skillId", skillID, "playerIndex", playerIndex)
			return nil
		}
		center := *extra.IndiscriminateAreaDamageCenter
		for _, g := range grid.GetGridsWithinDistance(center, 0, area.Radius, w.Field().MapSize()) {
			if u := unitMap.UnitOnMap(g); u != nil {
				u.SetCurrentHp(max(1, u.CurrentHp()-area.Hp*definitions.UnitHpNormalizer))
			}
		}
		w.Field().VisionEffect().ShowEffect(war.EffectSilo, center)
	}
	return nil
}

// applyPercentGain moves current toward maxValue by modifier percent of
// maxValue, or decays it by modifier percent of itself.
func applyPercentGain(current, maxValue, modifier int) int {
	if modifier > 0 {
		return min(maxValue, current+maxValue*modifier/100)
	}
	return max(0, current*(100+modifier)/100)
}
