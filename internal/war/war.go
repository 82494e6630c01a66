// Package war holds the state of one war: the battlefield, the players and
// the turn, plus the rules that mutate them outside of a single action.
package war

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/pkg/core"
)

// ErrInvariant marks a state the war can never legally reach, such as an
// action referencing a missing unit. It is fatal for the session.
var ErrInvariant = errors.New("war invariant violated")

// Mode selects how much of the war the local side may know.
type Mode int

const (
	// ModeLive is a war played by LoggedInPlayerIndex; fog hides enemy state.
	ModeLive Mode = iota
	// ModeReplay sees everything. The server runs in this mode too.
	ModeReplay
)

// MapProvider loads map templates by file name.
type MapProvider interface {
	MapTemplate(ctx context.Context, fileName string) (*core.MapTemplate, error)
}

// ConfigProvider resolves game data versions.
type ConfigProvider interface {
	Get(version string) (*definitions.Config, error)
}

type Options struct {
	Mode                Mode
	LoggedInPlayerIndex int
	Factory             ComponentFactory
	Now                 func() time.Time
}

// Settings are the rules chosen when the war was created.
type Settings struct {
	TimeLimit            int
	HasFogByDefault      bool
	IncomeModifier       int
	EnergyGrowthModifier int
	AttackPowerModifier  int
	MoveRangeModifier    int
	VisionRangeModifier  int
	InitialFund          int
	InitialEnergy        int
	BannedCoIDs          []int
	LuckLowerLimit       int
	LuckUpperLimit       int
}

func settingsFrom(data *core.SerializedWar) Settings {
	s := Settings{
		TimeLimit:            data.TimeLimit,
		HasFogByDefault:      data.HasFogByDefault,
		IncomeModifier:       data.IncomeModifier,
		EnergyGrowthModifier: data.EnergyGrowthModifier,
		AttackPowerModifier:  data.AttackPowerModifier,
		MoveRangeModifier:    data.MoveRangeModifier,
		VisionRangeModifier:  data.VisionRangeModifier,
		InitialFund:          data.InitialFund,
		InitialEnergy:        data.InitialEnergy,
		BannedCoIDs:          data.BannedCoIDList,
		LuckLowerLimit:       definitions.DefaultLuckLowerLimit,
		LuckUpperLimit:       definitions.DefaultLuckUpperLimit,
	}
	if data.LuckLowerLimit != nil {
		s.LuckLowerLimit = *data.LuckLowerLimit
	}
	if data.LuckUpperLimit != nil {
		s.LuckUpperLimit = *data.LuckUpperLimit
	}
	return s
}

// War is the aggregate root of one war.
type War struct {
	cfg      *definitions.Config
	template *core.MapTemplate

	warID         int64
	warName       string
	warPassword   string
	warComment    string
	configVersion string
	mapFileName   string
	settings      Settings

	seed uint64
	pcg  *rand.PCG
	rng  *rand.Rand

	players *PlayerManager
	turn    *TurnManager
	field   *Field

	nextActionID          int
	remainingVotesForDraw *int

	mode                Mode
	loggedInPlayerIndex int
	now                 func() time.Time

	isRunning         bool
	isExecutingAction bool
	isEnded           bool
}

// Load resolves the config and map of data, builds the war and starts it.
func Load(ctx context.Context, data *core.SerializedWar, maps MapProvider, configs ConfigProvider, opts Options) (*War, error) {
	cfg, err := configs.Get(data.ConfigVersion)
	if err != nil {
		return nil, fmt.Errorf("load config %q: %w", data.ConfigVersion, err)
	}
	template, err := maps.MapTemplate(ctx, data.MapFileName)
	if err != nil {
		return nil, fmt.Errorf("load map %q: %w", data.MapFileName, err)
	}
	w, err := New(cfg, template, data, opts)
	if err != nil {
		return nil, err
	}
	w.StartRunning()
	return w, nil
}

// New builds a stopped war from a snapshot.
func New(cfg *definitions.Config, template *core.MapTemplate, data *core.SerializedWar, opts Options) (*War, error) {
	if data.MapFileName != "" && template.FileName != "" && data.MapFileName != template.FileName {
		return nil, fmt.Errorf("snapshot map %q does not match template %q", data.MapFileName, template.FileName)
	}
	if opts.Factory == nil {
		opts.Factory = ReplayFactory{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	w := &War{
		cfg:                   cfg,
		template:              template,
		warID:                 data.WarID,
		warName:               data.WarName,
		warPassword:           data.WarPassword,
		warComment:            data.WarComment,
		configVersion:         data.ConfigVersion,
		mapFileName:           data.MapFileName,
		settings:              settingsFrom(data),
		seed:                  data.Seed,
		nextActionID:          data.NextActionID,
		remainingVotesForDraw: data.RemainingVotesForDraw,
		mode:                  opts.Mode,
		loggedInPlayerIndex:   opts.LoggedInPlayerIndex,
		now:                   opts.Now,
	}

	w.pcg = rand.NewPCG(data.Seed, data.Seed)
	if len(data.RandomState) > 0 {
		if err := w.pcg.UnmarshalBinary(data.RandomState); err != nil {
			return nil, fmt.Errorf("restore random state: %w", err)
		}
	}
	w.rng = rand.New(w.pcg)

	var err error
	if w.players, err = NewPlayerManager(cfg, data.Players); err != nil {
		return nil, fmt.Errorf("init players: %w", err)
	}
	w.turn = NewTurnManager(data.Turn)
	if w.field, err = NewField(cfg, template, data.Field, w.players.TotalPlayersCount(false), opts.Factory); err != nil {
		return nil, err
	}
	if opts.Mode == ModeLive && w.players.Player(opts.LoggedInPlayerIndex) == nil {
		return nil, fmt.Errorf("logged in player %d is not in the war", opts.LoggedInPlayerIndex)
	}
	return w, nil
}

func (w *War) StartRunning() {
	w.turn.StartRunning(w)
	w.players.StartRunning(w)
	w.field.StartRunning(w)
	w.isRunning = true
}

func (w *War) StopRunning() {
	w.field.StopRunning()
	w.isRunning = false
	w.isExecutingAction = false
}

func (w *War) Config() *definitions.Config    { return w.cfg }
func (w *War) MapTemplate() *core.MapTemplate { return w.template }
func (w *War) WarID() int64                   { return w.warID }
func (w *War) WarName() string                { return w.warName }
func (w *War) ConfigVersion() string          { return w.configVersion }
func (w *War) MapFileName() string            { return w.mapFileName }
func (w *War) Settings() Settings             { return w.settings }
func (w *War) Players() *PlayerManager        { return w.players }
func (w *War) Turn() *TurnManager             { return w.turn }
func (w *War) Field() *Field                  { return w.field }
func (w *War) Mode() Mode                     { return w.mode }
func (w *War) LoggedInPlayerIndex() int       { return w.loggedInPlayerIndex }
func (w *War) Now() time.Time                 { return w.now() }

func (w *War) NextActionID() int      { return w.nextActionID }
func (w *War) SetNextActionID(id int) { w.nextActionID = id }

func (w *War) RemainingVotesForDraw() *int     { return w.remainingVotesForDraw }
func (w *War) SetRemainingVotesForDraw(v *int) { w.remainingVotesForDraw = v }

func (w *War) IsRunning() bool         { return w.isRunning }
func (w *War) IsExecutingAction() bool { return w.isExecutingAction }
func (w *War) IsEnded() bool           { return w.isEnded }
func (w *War) SetIsEnded(v bool)       { w.isEnded = v }

// SetIsExecutingAction is ignored while the war is stopped.
func (w *War) SetIsExecutingAction(v bool) {
	w.isExecutingAction = v && w.isRunning
}

// RandomIntN draws from the war RNG, whose state travels with the snapshot.
func (w *War) RandomIntN(n int) int {
	return w.rng.IntN(n)
}

// RandomLuck draws a luck bonus within the configured limits.
func (w *War) RandomLuck() int {
	lower, upper := w.settings.LuckLowerLimit, w.settings.LuckUpperLimit
	if upper <= lower {
		return lower
	}
	return lower + w.rng.IntN(upper-lower+1)
}

// ShouldUpdateFogForPlayer is true when the local side knows the player's state.
func (w *War) ShouldUpdateFogForPlayer(playerIndex int) bool {
	return w.mode == ModeReplay || w.players.CheckIsSameTeam(playerIndex, w.loggedInPlayerIndex)
}

// CheckIsLoggedInTeam reports whether playerIndex plays with the local player.
// Replays have no local player.
func (w *War) CheckIsLoggedInTeam(playerIndex int) bool {
	return w.mode == ModeLive && w.players.CheckIsSameTeam(playerIndex, w.loggedInPlayerIndex)
}

// LoggedInTeamIndex is -1 in replay mode.
func (w *War) LoggedInTeamIndex() int {
	if w.mode != ModeLive {
		return -1
	}
	return w.players.TeamIndex(w.loggedInPlayerIndex)
}

func (w *War) Serialize() *core.SerializedWar {
	data := w.serializeHeader()
	data.Players = w.players.Serialize()
	data.Field = w.field.Serialize()
	return data
}

// SerializeForPlayer filters the field through the fog of playerIndex's team.
func (w *War) SerializeForPlayer(playerIndex int) *core.SerializedWar {
	data := w.serializeHeader()
	data.Players = w.players.Serialize()
	data.Field = w.field.SerializeForPlayer(w, playerIndex)
	return data
}

func (w *War) serializeHeader() *core.SerializedWar {
	state, _ := w.pcg.MarshalBinary()
	data := &core.SerializedWar{
		WarID:                 w.warID,
		WarName:               w.warName,
		WarPassword:           w.warPassword,
		WarComment:            w.warComment,
		ConfigVersion:         w.configVersion,
		MapFileName:           w.mapFileName,
		Seed:                  w.seed,
		RandomState:           state,
		TimeLimit:             w.settings.TimeLimit,
		HasFogByDefault:       w.settings.HasFogByDefault,
		IncomeModifier:        w.settings.IncomeModifier,
		EnergyGrowthModifier:  w.settings.EnergyGrowthModifier,
		AttackPowerModifier:   w.settings.AttackPowerModifier,
		MoveRangeModifier:     w.settings.MoveRangeModifier,
		VisionRangeModifier:   w.settings.VisionRangeModifier,
		InitialFund:           w.settings.InitialFund,
		InitialEnergy:         w.settings.InitialEnergy,
		BannedCoIDList:        w.settings.BannedCoIDs,
		RemainingVotesForDraw: w.remainingVotesForDraw,
		NextActionID:          w.nextActionID,
		Turn:                  w.turn.Serialize(),
	}
	lower, upper := w.settings.LuckLowerLimit, w.settings.LuckUpperLimit
	data.LuckLowerLimit, data.LuckUpperLimit = &lower, &upper
	return data
}

// HasFogByDefault implements fog.World.
func (w *War) HasFogByDefault() bool {
	return w.settings.HasFogByDefault
}

// ForEachTileVision implements fog.World: tiles owned by playerIndex with vision.
func (w *War) ForEachTileVision(playerIndex int, fn func(g core.GridIndex, vision int)) {
	w.field.tileMap.ForEachTile(func(t *Tile) {
		if t.playerIndex != playerIndex {
			return
		}
		if v := t.VisionRangeForPlayer(playerIndex); v > 0 {
			fn(t.gridIndex, v)
		}
	})
}

// ForEachUnitVision implements fog.World: on-map units owned by playerIndex.
func (w *War) ForEachUnitVision(playerIndex int, fn func(g core.GridIndex, vision int)) {
	w.field.unitMap.ForEachUnitOnMap(func(u *Unit) {
		if u.playerIndex != playerIndex {
			return
		}
		if v := u.VisionRangeForPlayer(playerIndex, u.gridIndex); v > 0 {
			fn(u.gridIndex, v)
		}
	})
}

// ForEachAlivePlayerInTeam implements fog.World.
func (w *War) ForEachAlivePlayerInTeam(teamIndex int, fn func(playerIndex int)) {
	w.players.ForEachPlayer(true, func(p *Player) {
		if p.isAlive && p.teamIndex == teamIndex {
			fn(p.playerIndex)
		}
	})
}
