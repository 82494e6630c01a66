package war

import (
	"fmt"

	"github.com/tinywars/warcore/pkg/core"
)

// TurnManager tracks whose turn it is and runs the phase transitions.
type TurnManager struct {
	turnIndex     int
	playerIndex   int
	phaseCode     core.TurnPhaseCode
	enterTurnTime int64
	war           *War
}

func NewTurnManager(data core.SerializedTurn) *TurnManager {
	return &TurnManager{
		turnIndex:     data.TurnIndex,
		playerIndex:   data.PlayerIndex,
		phaseCode:     data.TurnPhaseCode,
		enterTurnTime: data.EnterTurnTime,
	}
}

func (tm *TurnManager) StartRunning(w *War) { tm.war = w }
func (tm *TurnManager) StopRunning()        { tm.war = nil }

func (tm *TurnManager) Serialize() core.SerializedTurn {
	return core.SerializedTurn{
		TurnIndex:     tm.turnIndex,
		PlayerIndex:   tm.playerIndex,
		TurnPhaseCode: tm.phaseCode,
		EnterTurnTime: tm.enterTurnTime,
	}
}

func (tm *TurnManager) TurnIndex() int                { return tm.turnIndex }
func (tm *TurnManager) PlayerIndexInTurn() int        { return tm.playerIndex }
func (tm *TurnManager) PhaseCode() core.TurnPhaseCode { return tm.phaseCode }
func (tm *TurnManager) EnterTurnTime() int64          { return tm.enterTurnTime }

// EndPhaseWaitBeginTurn opens the main phase of the player in turn: force
// fog expiry, income, repair and supply on owned tiles, supply of cargo,
// fuel drain, then the destruction of lostPlayerIndex when it is set.
func (tm *TurnManager) EndPhaseWaitBeginTurn(lostPlayerIndex int) error {
	if tm.phaseCode != core.TurnPhaseWaitBeginTurn {
		return fmt.Errorf("%w: begin turn in phase %d", ErrInvariant, tm.phaseCode)
	}
	w := tm.war
	player := w.players.Player(tm.playerIndex)
	if player == nil {
		return fmt.Errorf("%w: no player %d in turn", ErrInvariant, tm.playerIndex)
	}

	w.field.fogMap.ExpireForceFog(tm.playerIndex, tm.turnIndex)

	tm.addIncome(player)
	tm.repairOnTiles(player)
	tm.supplyCargo()
	if err := tm.drainFuel(); err != nil {
		return err
	}

	if lostPlayerIndex > 0 {
		if err := w.DestroyPlayerForce(lostPlayerIndex); err != nil {
			return err
		}
	}
	tm.phaseCode = core.TurnPhaseMain
	return nil
}

func (tm *TurnManager) addIncome(player *Player) {
	income := 0
	tm.war.field.tileMap.ForEachTile(func(t *Tile) {
		if t.playerIndex == player.playerIndex {
			income += t.template.IncomePerTurn
		}
	})
	player.SetFund(player.Fund() + income*tm.war.settings.IncomeModifier/100)
}

// repairOnTiles heals and refills units standing on owned tiles able to serve
// them. Repair is paid for in proportion to the unit production cost.
func (tm *TurnManager) repairOnTiles(player *Player) {
	w := tm.war
	w.field.unitMap.ForEachUnitOnMap(func(u *Unit) {
		if u.playerIndex != player.playerIndex {
			return
		}
		t := w.field.tileMap.Tile(u.gridIndex)
		if t.playerIndex != player.playerIndex || t.template.RepairAmount <= 0 {
			return
		}
		if !w.cfg.CheckIsUnitTypeInCategory(u.unitType, t.template.RepairCategory) {
			return
		}
		repaired := false
		if u.currentHp < u.template.MaxHp {
			amount := min(u.template.MaxHp-u.currentHp, t.template.RepairAmount)
			cost := u.template.ProductionCost * amount / u.template.MaxHp
			if cost <= player.Fund() && amount > 0 {
				player.SetFund(player.Fund() - cost)
				u.currentHp += amount
				repaired = true
			}
		}
		if u.CheckCanBeSupplied() {
			u.UpdateOnSupplied()
			repaired = true
		}
		if repaired {
			w.field.effect.ShowEffect(EffectRepair, u.gridIndex)
		}
	})
}

func (tm *TurnManager) supplyCargo() {
	w := tm.war
	w.field.unitMap.ForEachUnit(func(loader *Unit) {
		if loader.playerIndex != tm.playerIndex || !loader.template.CanSupplyLoadedUnits {
			return
		}
		for _, cargo := range w.field.unitMap.UnitsLoadedByLoader(loader, false) {
			cargo.UpdateOnSupplied()
			if heal := loader.template.RepairAmountForLoadedUnits; heal > 0 {
				cargo.currentHp = min(cargo.template.MaxHp, cargo.currentHp+heal)
			}
		}
	})
}

func (tm *TurnManager) drainFuel() error {
	w := tm.war
	var destroyed []core.GridIndex
	w.field.unitMap.ForEachUnitOnMap(func(u *Unit) {
		if u.playerIndex != tm.playerIndex {
			return
		}
		u.currentFuel = max(0, u.currentFuel-u.FuelConsumptionPerTurn())
		if u.currentFuel <= 0 && u.template.IsDestroyedOnOutOfFuel {
			destroyed = append(destroyed, u.gridIndex)
		}
	})
	for _, g := range destroyed {
		if err := w.DestroyUnitOnMap(g, true); err != nil {
			return err
		}
	}
	return nil
}

// EndPhaseMain hands the turn to the next alive player.
func (tm *TurnManager) EndPhaseMain() error {
	if tm.phaseCode != core.TurnPhaseMain {
		return fmt.Errorf("%w: end turn in phase %d", ErrInvariant, tm.phaseCode)
	}
	w := tm.war
	w.field.unitMap.ForEachUnit(func(u *Unit) {
		if u.playerIndex == tm.playerIndex {
			u.state = core.UnitStateIdle
		}
	})
	if err := w.field.fogMap.ResetMapFromPathsForPlayer(tm.playerIndex, ""); err != nil {
		return err
	}

	next, wrapped, err := tm.nextPlayerIndex()
	if err != nil {
		return err
	}
	if wrapped {
		tm.turnIndex++
		w.players.ForEachPlayer(true, func(p *Player) { p.hasVotedForDraw = false })
		w.remainingVotesForDraw = nil
	}
	tm.playerIndex = next
	w.players.Player(next).coUsingSkillType = core.CoSkillPassive
	tm.phaseCode = core.TurnPhaseWaitBeginTurn
	tm.enterTurnTime = w.now().Unix()
	return nil
}

// nextPlayerIndex skips the neutral player and dead players.
func (tm *TurnManager) nextPlayerIndex() (int, bool, error) {
	count := tm.war.players.TotalPlayersCount(true)
	index := tm.playerIndex
	wrapped := false
	for range count {
		index++
		if index >= count {
			index = 1
			wrapped = true
		}
		if p := tm.war.players.Player(index); p.isAlive {
			return index, wrapped, nil
		}
	}
	return 0, false, fmt.Errorf("%w: no alive player to take the turn", ErrInvariant)
}
