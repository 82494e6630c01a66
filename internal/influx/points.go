package influx

import (
	"strconv"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

// ActionPoint records one executed action, tagged by war, code and the
// player in turn.
func ActionPoint(w *war.War, c *core.ActionContainer, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"war_action",
		map[string]string{
			"war":    strconv.FormatInt(w.WarID(), 10),
			"code":   c.Code().String(),
			"player": strconv.Itoa(w.Turn().PlayerIndexInTurn()),
		},
		map[string]any{
			"actionId":  c.ActionID,
			"turnIndex": w.Turn().TurnIndex(),
		},
		at,
	)
}

type playerTotals struct {
	units int
	hp    int
}

// TurnPoints records the state of every non-neutral player, one point per
// player. They are written when a turn starts.
func TurnPoints(w *war.War, at time.Time) []*influxdb2_write.Point {
	totals := make(map[int]*playerTotals)
	w.Field().UnitMap().ForEachUnit(func(u *war.Unit) {
		t, ok := totals[u.PlayerIndex()]
		if !ok {
			t = &playerTotals{}
			totals[u.PlayerIndex()] = t
		}
		t.units++
		t.hp += u.CurrentHp()
	})

	var points []*influxdb2_write.Point
	w.Players().ForEachPlayer(false, func(p *war.Player) {
		t := totals[p.PlayerIndex()]
		if t == nil {
			t = &playerTotals{}
		}
		points = append(points, influxdb2_write.NewPoint(
			"player_turn",
			map[string]string{
				"war":    strconv.FormatInt(w.WarID(), 10),
				"player": strconv.Itoa(p.PlayerIndex()),
				"team":   strconv.Itoa(p.TeamIndex()),
			},
			map[string]any{
				"turnIndex": w.Turn().TurnIndex(),
				"fund":      p.Fund(),
				"units":     t.units,
				"hp":        t.hp,
				"coEnergy":  p.CoCurrentEnergy(),
				"alive":     p.IsAlive(),
			},
			at,
		))
	})
	return points
}

// OutcomePoint records how a war ended.
func OutcomePoint(w *war.War, outcome string, at time.Time) *influxdb2_write.Point {
	return influxdb2_write.NewPoint(
		"war_outcome",
		map[string]string{
			"war":     strconv.FormatInt(w.WarID(), 10),
			"outcome": outcome,
		},
		map[string]any{
			"actions":   w.NextActionID(),
			"turnIndex": w.Turn().TurnIndex(),
		},
		at,
	)
}
