package war

import (
	"fmt"
	"time"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// Seat is one player joining a new war.
type Seat struct {
	UserID    *int64
	Nickname  string
	TeamIndex int
	CoID      *int
}

// NewWarParams describes a war about to start.
type NewWarParams struct {
	WarID    int64
	WarName  string
	Seed     uint64
	Settings Settings
	Seats    []Seat
	Now      time.Time
}

// InitialSnapshot builds the snapshot of a war that has not begun: the
// neutral player opens the first turn and the units come from the template.
func InitialSnapshot(cfg *definitions.Config, template *core.MapTemplate, params NewWarParams) (*core.SerializedWar, error) {
	if len(params.Seats) != template.PlayersCount {
		return nil, fmt.Errorf("map %q needs %d players, got %d", template.FileName, template.PlayersCount, len(params.Seats))
	}
	for i, seat := range params.Seats {
		if seat.TeamIndex < 1 {
			return nil, fmt.Errorf("player %d has team %d, teams start at 1", i+1, seat.TeamIndex)
		}
	}
	for _, coID := range params.Settings.BannedCoIDs {
		for i, seat := range params.Seats {
			if seat.CoID != nil && *seat.CoID == coID {
				return nil, fmt.Errorf("player %d picked banned co %d", i+1, coID)
			}
		}
	}

	s := params.Settings
	lower, upper := s.LuckLowerLimit, s.LuckUpperLimit
	if upper < lower {
		return nil, fmt.Errorf("luck limits %d..%d are inverted", lower, upper)
	}
	data := &core.SerializedWar{
		WarID:                params.WarID,
		WarName:              params.WarName,
		ConfigVersion:        cfg.Version,
		MapFileName:          template.FileName,
		Seed:                 params.Seed,
		TimeLimit:            s.TimeLimit,
		HasFogByDefault:      s.HasFogByDefault,
		IncomeModifier:       s.IncomeModifier,
		EnergyGrowthModifier: s.EnergyGrowthModifier,
		AttackPowerModifier:  s.AttackPowerModifier,
		MoveRangeModifier:    s.MoveRangeModifier,
		VisionRangeModifier:  s.VisionRangeModifier,
		InitialFund:          s.InitialFund,
		InitialEnergy:        s.InitialEnergy,
		BannedCoIDList:       s.BannedCoIDs,
		LuckLowerLimit:       &lower,
		LuckUpperLimit:       &upper,
		Turn: core.SerializedTurn{
			TurnPhaseCode: core.TurnPhaseWaitBeginTurn,
			EnterTurnTime: params.Now.Unix(),
		},
	}

	data.Players = append(data.Players, core.SerializedPlayer{PlayerIndex: 0, IsAlive: true})
	for i, seat := range params.Seats {
		data.Players = append(data.Players, core.SerializedPlayer{
			PlayerIndex: i + 1,
			UserID:      seat.UserID,
			Nickname:    seat.Nickname,
			TeamIndex:   seat.TeamIndex,
			IsAlive:     true,
			Fund:        s.InitialFund,
			CoID:        seat.CoID,
		})
	}

	nextUnitID := 0
	for _, u := range template.Units {
		if u.PlayerIndex < 1 || u.PlayerIndex > template.PlayersCount {
			return nil, fmt.Errorf("template unit %d belongs to player %d", u.UnitID, u.PlayerIndex)
		}
		data.Field.UnitMap.Units = append(data.Field.UnitMap.Units, u)
		nextUnitID = max(nextUnitID, u.UnitID+1)
	}
	data.Field.UnitMap.NextUnitID = nextUnitID
	return data, nil
}
