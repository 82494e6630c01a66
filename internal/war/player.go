package war

import (
	"fmt"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/grid"
	"github.com/tinywars/warcore/pkg/core"
)

// Player is one seat of the war. Index 0 is the neutral player.
type Player struct {
	cfg *definitions.Config
	war *War

	playerIndex      int
	userID           *int64
	nickname         string
	teamIndex        int
	isAlive          bool
	fund             int
	coID             *int
	coUnitID         *int
	coCurrentEnergy  int
	coUsingSkillType core.CoSkillType
	hasVotedForDraw  bool
}

func NewPlayer(cfg *definitions.Config, data core.SerializedPlayer) (*Player, error) {
	if data.CoID != nil {
		if _, ok := cfg.Co(*data.CoID); !ok {
			return nil, fmt.Errorf("player %d: unknown co %d", data.PlayerIndex, *data.CoID)
		}
	}
	return &Player{
		cfg:              cfg,
		playerIndex:      data.PlayerIndex,
		userID:           data.UserID,
		nickname:         data.Nickname,
		teamIndex:        data.TeamIndex,
		isAlive:          data.IsAlive,
		fund:             data.Fund,
		coID:             data.CoID,
		coUnitID:         data.CoUnitID,
		coCurrentEnergy:  data.CoCurrentEnergy,
		coUsingSkillType: data.CoUsingSkillType,
		hasVotedForDraw:  data.HasVotedForDraw,
	}, nil
}

func (p *Player) Serialize() core.SerializedPlayer {
	return core.SerializedPlayer{
		PlayerIndex:      p.playerIndex,
		UserID:           p.userID,
		Nickname:         p.nickname,
		TeamIndex:        p.teamIndex,
		IsAlive:          p.isAlive,
		Fund:             p.fund,
		CoID:             p.coID,
		CoUnitID:         p.coUnitID,
		CoCurrentEnergy:  p.coCurrentEnergy,
		CoUsingSkillType: p.coUsingSkillType,
		HasVotedForDraw:  p.hasVotedForDraw,
	}
}

func (p *Player) PlayerIndex() int    { return p.playerIndex }
func (p *Player) UserID() *int64      { return p.userID }
func (p *Player) Nickname() string    { return p.nickname }
func (p *Player) TeamIndex() int      { return p.teamIndex }
func (p *Player) IsAlive() bool       { return p.isAlive }
func (p *Player) SetAlive(v bool)     { p.isAlive = v }
func (p *Player) Fund() int           { return p.fund }
func (p *Player) SetFund(fund int)    { p.fund = fund }
func (p *Player) CoUnitID() *int      { return p.coUnitID }
func (p *Player) SetCoUnitID(id *int) { p.coUnitID = id }

func (p *Player) HasVotedForDraw() bool     { return p.hasVotedForDraw }
func (p *Player) SetHasVotedForDraw(v bool) { p.hasVotedForDraw = v }

func (p *Player) CoUsingSkillType() core.CoSkillType     { return p.coUsingSkillType }
func (p *Player) SetCoUsingSkillType(t core.CoSkillType) { p.coUsingSkillType = t }

// CheckIsUsingCoSkill is false while only the passive skills apply.
func (p *Player) CheckIsUsingCoSkill() bool {
	return p.coUsingSkillType != core.CoSkillPassive
}

func (p *Player) CoTemplate() (*definitions.CoTemplate, bool) {
	if p.coID == nil {
		return nil, false
	}
	return p.cfg.Co(*p.coID)
}

func (p *Player) CoMaxEnergy() int {
	co, ok := p.CoTemplate()
	if !ok || co.MaxEnergy == nil {
		return 0
	}
	return *co.MaxEnergy
}

func (p *Player) CoCurrentEnergy() int { return p.coCurrentEnergy }

// SetCoCurrentEnergy clamps energy to [0, CoMaxEnergy].
func (p *Player) SetCoCurrentEnergy(energy int) {
	p.coCurrentEnergy = min(p.CoMaxEnergy(), max(0, energy))
}

// CheckCanUseCoSkill reports whether the charged energy covers the skill.
func (p *Player) CheckCanUseCoSkill(skillType core.CoSkillType) bool {
	co, ok := p.CoTemplate()
	if !ok || p.CheckIsUsingCoSkill() || p.coUnitID == nil {
		return false
	}
	var need *int
	switch skillType {
	case core.CoSkillPower:
		need = co.PowerEnergy
	case core.CoSkillSuperPower:
		need = co.SuperPowerEnergy
	default:
		return false
	}
	return need != nil && p.coCurrentEnergy >= *need
}

// EnergyCostForSkill is the energy drained by using skillType.
func (p *Player) EnergyCostForSkill(skillType core.CoSkillType) int {
	co, ok := p.CoTemplate()
	if !ok {
		return 0
	}
	switch skillType {
	case core.CoSkillPower:
		if co.PowerEnergy != nil {
			return *co.PowerEnergy
		}
	case core.CoSkillSuperPower:
		if co.SuperPowerEnergy != nil {
			return *co.SuperPowerEnergy
		}
	}
	return 0
}

func (p *Player) CoZoneRadius() int {
	co, ok := p.CoTemplate()
	if !ok {
		return 0
	}
	return co.ZoneRadius
}

// CheckIsInCoZone reports whether g lies within the zone around the CO unit.
// A loaded CO unit projects no zone.
func (p *Player) CheckIsInCoZone(g core.GridIndex) bool {
	if p.coUnitID == nil || p.war == nil {
		return false
	}
	coUnit := p.war.field.unitMap.UnitByID(*p.coUnitID)
	if coUnit == nil || coUnit.CheckIsLoaded() {
		return false
	}
	return grid.GetDistance(coUnit.GridIndex(), g) <= p.CoZoneRadius()
}

// PlayerManager holds the players in index order.
type PlayerManager struct {
	players []*Player
	war     *War
}

func NewPlayerManager(cfg *definitions.Config, data []core.SerializedPlayer) (*PlayerManager, error) {
	pm := &PlayerManager{}
	for i, pd := range data {
		if pd.PlayerIndex != i {
			return nil, fmt.Errorf("player at position %d has index %d", i, pd.PlayerIndex)
		}
		p, err := NewPlayer(cfg, pd)
		if err != nil {
			return nil, err
		}
		pm.players = append(pm.players, p)
	}
	if len(pm.players) < 2 {
		return nil, fmt.Errorf("a war needs the neutral player and at least one more, got %d", len(pm.players))
	}
	return pm, nil
}

func (pm *PlayerManager) StartRunning(w *War) {
	pm.war = w
	for _, p := range pm.players {
		p.war = w
	}
}

func (pm *PlayerManager) StopRunning() {
	pm.war = nil
	for _, p := range pm.players {
		p.war = nil
	}
}

func (pm *PlayerManager) Serialize() []core.SerializedPlayer {
	data := make([]core.SerializedPlayer, 0, len(pm.players))
	for _, p := range pm.players {
		data = append(data, p.Serialize())
	}
	return data
}

// Player returns nil for an unknown index.
func (pm *PlayerManager) Player(playerIndex int) *Player {
	if playerIndex < 0 || playerIndex >= len(pm.players) {
		return nil
	}
	return pm.players[playerIndex]
}

func (pm *PlayerManager) PlayerByUserID(userID int64) *Player {
	for _, p := range pm.players {
		if p.userID != nil && *p.userID == userID {
			return p
		}
	}
	return nil
}

func (pm *PlayerManager) PlayerInTurn() *Player {
	return pm.Player(pm.war.turn.PlayerIndexInTurn())
}

// TeamIndex is -1 for an unknown player.
func (pm *PlayerManager) TeamIndex(playerIndex int) int {
	if p := pm.Player(playerIndex); p != nil {
		return p.teamIndex
	}
	return -1
}

func (pm *PlayerManager) CheckIsSameTeam(a, b int) bool {
	ta, tb := pm.TeamIndex(a), pm.TeamIndex(b)
	return ta >= 0 && ta == tb
}

func (pm *PlayerManager) TotalPlayersCount(includeNeutral bool) int {
	if includeNeutral {
		return len(pm.players)
	}
	return len(pm.players) - 1
}

func (pm *PlayerManager) AlivePlayersCount(includeNeutral bool) int {
	count := 0
	for _, p := range pm.players {
		if p.isAlive && (includeNeutral || p.playerIndex != 0) {
			count++
		}
	}
	return count
}

// AliveTeamsCount counts distinct teams with an alive player, ignoring ignoredPlayerIndex.
func (pm *PlayerManager) AliveTeamsCount(includeNeutral bool, ignoredPlayerIndex int) int {
	teams := make(map[int]struct{})
	for _, p := range pm.players {
		if !p.isAlive || p.playerIndex == ignoredPlayerIndex {
			continue
		}
		if !includeNeutral && p.playerIndex == 0 {
			continue
		}
		teams[p.teamIndex] = struct{}{}
	}
	return len(teams)
}

func (pm *PlayerManager) ForEachPlayer(includeNeutral bool, fn func(p *Player)) {
	for _, p := range pm.players {
		if includeNeutral || p.playerIndex != 0 {
			fn(p)
		}
	}
}
