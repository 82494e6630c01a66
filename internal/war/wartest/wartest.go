// Package wartest builds small wars for tests.
package wartest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

// Maps serves templates by file name.
type Maps map[string]*core.MapTemplate

func (m Maps) MapTemplate(_ context.Context, fileName string) (*core.MapTemplate, error) {
	t, ok := m[fileName]
	if !ok {
		return nil, fmt.Errorf("map %q not found", fileName)
	}
	return t, nil
}

// Configs always answers with the same config.
type Configs struct {
	Config *definitions.Config
}

func (c Configs) Get(string) (*definitions.Config, error) { return c.Config, nil }

// MapBuilder lays out a plain map.
type MapBuilder struct {
	cfg      *definitions.Config
	template *core.MapTemplate
}

func NewMap(cfg *definitions.Config, width, height, playersCount int) *MapBuilder {
	t := &core.MapTemplate{
		FileName:     fmt.Sprintf("test_%dx%d.json", width, height),
		Width:        width,
		Height:       height,
		PlayersCount: playersCount,
		TileBases:    make([]int, width*height),
		TileObjects:  make([]int, width*height),
	}
	for i := range t.TileBases {
		t.TileBases[i] = definitions.BaseViewPlain
	}
	return &MapBuilder{cfg: cfg, template: t}
}

// Base replaces the base view on g.
func (b *MapBuilder) Base(g core.GridIndex, baseViewID int) *MapBuilder {
	b.template.TileBases[g.X+g.Y*b.template.Width] = baseViewID
	return b
}

// Object places a tile object owned by playerIndex on g.
func (b *MapBuilder) Object(g core.GridIndex, tileType core.TileType, playerIndex int) *MapBuilder {
	id, ok := b.cfg.TileObjectViewID(tileType, playerIndex)
	if !ok {
		panic(fmt.Sprintf("wartest: no view for %s of player %d", tileType, playerIndex))
	}
	b.template.TileObjects[g.X+g.Y*b.template.Width] = id
	return b
}

// Unit places a unit with the next free id.
func (b *MapBuilder) Unit(g core.GridIndex, unitType core.UnitType, playerIndex int) *MapBuilder {
	b.template.Units = append(b.template.Units, core.SerializedUnit{
		UnitID:      len(b.template.Units),
		UnitType:    unitType,
		PlayerIndex: playerIndex,
		GridX:       g.X,
		GridY:       g.Y,
	})
	return b
}

func (b *MapBuilder) Template() *core.MapTemplate { return b.template }

// Settings are neutral rules: full income and energy growth, no luck.
func Settings(fog bool) war.Settings {
	return war.Settings{
		HasFogByDefault:      fog,
		IncomeModifier:       100,
		EnergyGrowthModifier: 100,
		AttackPowerModifier:  0,
		InitialFund:          10000,
		InitialEnergy:        50,
	}
}

// Snapshot creates the initial snapshot with one seat per player, each on its own team.
func Snapshot(tb testing.TB, cfg *definitions.Config, template *core.MapTemplate, settings war.Settings) *core.SerializedWar {
	tb.Helper()
	seats := make([]war.Seat, template.PlayersCount)
	for i := range seats {
		userID := int64(100 + i + 1)
		seats[i] = war.Seat{UserID: &userID, Nickname: fmt.Sprintf("p%d", i+1), TeamIndex: i + 1}
	}
	data, err := war.InitialSnapshot(cfg, template, war.NewWarParams{
		WarID:    1,
		WarName:  "test",
		Seed:     42,
		Settings: settings,
		Seats:    seats,
		Now:      time.Unix(1700000000, 0),
	})
	if err != nil {
		tb.Fatalf("initial snapshot: %v", err)
	}
	return data
}

// Start builds and starts a war from data.
func Start(tb testing.TB, cfg *definitions.Config, template *core.MapTemplate, data *core.SerializedWar, opts war.Options) *war.War {
	tb.Helper()
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Unix(1700000000, 0) }
	}
	w, err := war.Load(context.Background(), data, Maps{template.FileName: template}, Configs{Config: cfg}, opts)
	if err != nil {
		tb.Fatalf("load war: %v", err)
	}
	return w
}
