// Package convert moves war records between core types and gorm models.
package convert

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"gorm.io/datatypes"

	"github.com/tinywars/warcore/internal/model"
	"github.com/tinywars/warcore/pkg/core"
)

// CoreToWar converts the snapshot a recording starts from.
func CoreToWar(s *core.SerializedWar, startedAt time.Time) (model.War, error) {
	snapshot, err := json.Marshal(s)
	if err != nil {
		return model.War{}, fmt.Errorf("encode snapshot of war %d: %w", s.WarID, err)
	}
	w := model.War{
		ID:            s.WarID,
		CreatedAt:     startedAt,
		Name:          s.WarName,
		MapFileName:   s.MapFileName,
		ConfigVersion: s.ConfigVersion,
		HasFog:        s.HasFogByDefault,
		StartActionID: s.NextActionID,
		NextActionID:  s.NextActionID,
		Snapshot:      datatypes.JSON(snapshot),
	}
	for _, p := range s.Players {
		w.Players = append(w.Players, model.WarPlayer{
			WarID:       s.WarID,
			PlayerIndex: p.PlayerIndex,
			TeamIndex:   p.TeamIndex,
			UserID:      p.UserID,
			Nickname:    p.Nickname,
		})
	}
	return w, nil
}

// WarToCore decodes the start snapshot of a stored war.
func WarToCore(w model.War) (core.SerializedWar, error) {
	var s core.SerializedWar
	if err := json.Unmarshal(w.Snapshot, &s); err != nil {
		return s, fmt.Errorf("decode snapshot of war %d: %w", w.ID, err)
	}
	return s, nil
}

func CoreToWarAction(warID int64, c *core.ActionContainer, at time.Time) (model.WarAction, error) {
	container, err := json.Marshal(c)
	if err != nil {
		return model.WarAction{}, fmt.Errorf("encode action %d of war %d: %w", c.ActionID, warID, err)
	}
	return model.WarAction{
		WarID:     warID,
		ActionID:  c.ActionID,
		Code:      c.Code().String(),
		Time:      at,
		Container: datatypes.JSON(container),
	}, nil
}

func WarActionToCore(a model.WarAction) (core.ActionContainer, error) {
	var c core.ActionContainer
	if err := json.Unmarshal(a.Container, &c); err != nil {
		return c, fmt.Errorf("decode action %d of war %d: %w", a.ActionID, a.WarID, err)
	}
	return c, nil
}

func CoreToCheckPoint(warID int64, cp *core.ReplayCheckPoint, at time.Time) (model.CheckPoint, error) {
	snapshot, err := json.Marshal(&cp.Snapshot)
	if err != nil {
		return model.CheckPoint{}, fmt.Errorf("encode checkpoint %d of war %d: %w", cp.ActionID, warID, err)
	}
	return model.CheckPoint{
		WarID:       warID,
		ActionID:    cp.ActionID,
		TurnIndex:   cp.Snapshot.Turn.TurnIndex,
		PlayerIndex: cp.Snapshot.Turn.PlayerIndex,
		Time:        at,
		Snapshot:    datatypes.JSON(snapshot),
	}, nil
}

func CheckPointToCore(cp model.CheckPoint) (core.ReplayCheckPoint, error) {
	out := core.ReplayCheckPoint{ActionID: cp.ActionID}
	if err := json.Unmarshal(cp.Snapshot, &out.Snapshot); err != nil {
		return out, fmt.Errorf("decode checkpoint %d of war %d: %w", cp.ActionID, cp.WarID, err)
	}
	return out, nil
}

// ToReplayData rebuilds a replay from a stored war and its actions, in
// any order.
func ToReplayData(w model.War, actions []model.WarAction) (*core.ReplayData, error) {
	snapshot, err := WarToCore(w)
	if err != nil {
		return nil, err
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i].ActionID < actions[j].ActionID })

	recorded := make([]core.ActionContainer, 0, len(actions))
	for _, a := range actions {
		c, err := WarActionToCore(a)
		if err != nil {
			return nil, err
		}
		recorded = append(recorded, c)
	}
	return core.NewReplayData(snapshot, recorded)
}
