package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"

	"github.com/tinywars/warcore/internal/config"
	"github.com/tinywars/warcore/internal/replay"
	"github.com/tinywars/warcore/internal/storage/memory"
	"github.com/tinywars/warcore/internal/war"
)

func runReplay(ctx context.Context, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory holding "+config.FileName)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("usage: warcore replay [-config dir] <file> [actionId]")
	}

	a, err := setup(*configDir, false)
	if err != nil {
		return err
	}
	defer a.close()

	export, err := memory.ReadReplayFile(fs.Arg(0))
	if err != nil {
		return err
	}
	maps, configs, err := a.providers()
	if err != nil {
		return err
	}
	r, err := replay.Init(ctx, &export.Replay, maps, configs, replay.Options{Logger: a.logger})
	if err != nil {
		return err
	}

	target := r.TotalActionsCount()
	if fs.NArg() > 1 {
		target, err = strconv.Atoi(fs.Arg(1))
		if err != nil {
			return fmt.Errorf("bad action id %q: %w", fs.Arg(1), err)
		}
	}
	if err := r.SeekTo(ctx, target); err != nil {
		return err
	}
	printSummary(out, export, r)
	return nil
}

type playerSummary struct {
	units int
	hp    int
}

// printSummary writes the state of the war at the replay position.
func printSummary(out io.Writer, export *memory.ReplayExport, r *replay.Replay) {
	w := r.War()
	fmt.Fprintf(out, "war %d %q on %s (config %s)\n", w.WarID(), w.WarName(), w.MapFileName(), w.ConfigVersion())
	if export.Outcome != "" {
		fmt.Fprintf(out, "outcome: %s\n", export.Outcome)
	}
	fmt.Fprintf(out, "position: action %d of %d, checkpoint %d\n", w.NextActionID(), r.TotalActionsCount(), r.CheckPointID())
	fmt.Fprintf(out, "turn %d: player %d, phase %d\n", w.Turn().TurnIndex(), w.Turn().PlayerIndexInTurn(), w.Turn().PhaseCode())

	totals := make(map[int]*playerSummary)
	w.Field().UnitMap().ForEachUnit(func(u *war.Unit) {
		s, ok := totals[u.PlayerIndex()]
		if !ok {
			s = &playerSummary{}
			totals[u.PlayerIndex()] = s
		}
		s.units++
		s.hp += u.CurrentHp()
	})
	w.Players().ForEachPlayer(false, func(p *war.Player) {
		s := totals[p.PlayerIndex()]
		if s == nil {
			s = &playerSummary{}
		}
		state := "alive"
		if !p.IsAlive() {
			state = "lost"
		}
		fmt.Fprintf(out, "player %d (team %d): %s, fund %d, %d units, %d hp\n",
			p.PlayerIndex(), p.TeamIndex(), state, p.Fund(), s.units, s.hp)
	})
}
