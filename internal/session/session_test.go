package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinywars/warcore/internal/action"
	"github.com/tinywars/warcore/internal/definitions"
	"github.com/tinywars/warcore/internal/session"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/internal/war/wartest"
	"github.com/tinywars/warcore/pkg/core"
)

type outcomeCall struct {
	warID   int64
	outcome session.Outcome
}

type fakeLobby struct {
	mu       sync.Mutex
	outcomes []outcomeCall
	notices  []session.Notice
	lobbyHit int
}

func (l *fakeLobby) ShowOutcome(_ context.Context, warID int64, outcome session.Outcome) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outcomes = append(l.outcomes, outcomeCall{warID: warID, outcome: outcome})
}

func (l *fakeLobby) GotoLobby(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lobbyHit++
}

func (l *fakeLobby) Notice(_ context.Context, _ int64, notice session.Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, notice)
}

type fakeResyncer struct {
	requests []core.SyncWarRequest
}

func (r *fakeResyncer) RequestSyncWar(_ context.Context, req core.SyncWarRequest) error {
	r.requests = append(r.requests, req)
	return nil
}

type harness struct {
	t        *testing.T
	cfg      *definitions.Config
	template *core.MapTemplate
	engine   *action.Engine
	lobby    *fakeLobby
	resyncer *fakeResyncer
	s        *session.Session
	w        *war.War
}

// newHarness enters a two-player live war as player 1.
func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg, err := definitions.NewRegistry().Get(definitions.DefaultVersion)
	require.NoError(t, err)
	template := wartest.NewMap(cfg, 4, 4, 2).
		Unit(core.GridIndex{X: 0, Y: 0}, core.UnitTypeInfantry, 1).
		Unit(core.GridIndex{X: 3, Y: 3}, core.UnitTypeInfantry, 2).
		Template()

	engine, err := action.NewEngine(nil, nil)
	require.NoError(t, err)
	h := &harness{
		t:        t,
		cfg:      cfg,
		template: template,
		engine:   engine,
		lobby:    &fakeLobby{},
		resyncer: &fakeResyncer{},
	}
	load := func(ctx context.Context, data *core.SerializedWar) (*war.War, error) {
		return war.Load(ctx, data, wartest.Maps{template.FileName: template}, wartest.Configs{Config: cfg}, war.Options{
			Mode:                war.ModeLive,
			LoggedInPlayerIndex: 1,
			Factory:             war.LiveFactory{},
		})
	}
	h.s, err = session.New(session.NewContext(), engine, h.lobby, h.resyncer, load, nil)
	require.NoError(t, err)

	h.w, err = h.s.EnterWar(t.Context(), h.snapshot())
	require.NoError(t, err)
	return h
}

func (h *harness) snapshot() *core.SerializedWar {
	return wartest.Snapshot(h.t, h.cfg, h.template, wartest.Settings(false))
}

// receive feeds c as the next expected action.
func (h *harness) receive(c core.ActionContainer) {
	h.t.Helper()
	c.ActionID = h.w.NextActionID() + h.s.Pending()
	require.NoError(h.t, h.s.Receive(h.t.Context(), h.w.WarID(), &c))
}

var (
	beginTurn = core.ActionContainer{PlayerBeginTurn: &core.PlayerBeginTurn{}}
	endTurn   = core.ActionContainer{PlayerEndTurn: &core.PlayerEndTurn{}}
	surrender = core.ActionContainer{PlayerSurrender: &core.PlayerSurrender{}}
	agree     = core.ActionContainer{PlayerVoteForDraw: &core.PlayerVoteForDraw{IsAgree: true}}
)

func TestSession_AppliesActionsInOrder(t *testing.T) {
	h := newHarness(t)

	h.receive(beginTurn)
	h.receive(endTurn)

	assert.Equal(t, 2, h.w.NextActionID())
	assert.Equal(t, 1, h.w.Turn().PlayerIndexInTurn())
	assert.Equal(t, war.PlannerRequestingPlayerBeginTurn, h.w.Field().ActionPlanner().State())
	assert.Empty(t, h.resyncer.requests)
}

func TestSession_ActionIDGapRequestsSync(t *testing.T) {
	h := newHarness(t)

	c := beginTurn
	c.ActionID = h.w.NextActionID() + 2
	require.NoError(t, h.s.Receive(t.Context(), h.w.WarID(), &c))

	assert.Equal(t, core.TurnPhaseWaitBeginTurn, h.w.Turn().PhaseCode(), "the action must not be applied")
	assert.Equal(t, 0, h.w.NextActionID())
	assert.Equal(t, 0, h.s.Pending())
	require.Len(t, h.resyncer.requests, 1)
	assert.Equal(t, core.SyncWarRequest{
		WarID:        h.w.WarID(),
		NextActionID: 0,
		RequestType:  core.SyncRequestReconnection,
	}, h.resyncer.requests[0])
}

func TestSession_OtherWarIsIgnored(t *testing.T) {
	h := newHarness(t)

	c := beginTurn
	require.NoError(t, h.s.Receive(t.Context(), h.w.WarID()+1, &c))

	assert.Equal(t, 0, h.w.NextActionID())
	assert.Empty(t, h.resyncer.requests)
}

func TestSession_SingleActionInFlight(t *testing.T) {
	h := newHarness(t)

	var inFlight bool
	var started []int
	h.engine.Register(core.ActionUnitWait, func(ctx context.Context, w *war.War, c *core.ActionContainer) error {
		if inFlight {
			t.Errorf("action %d started while another action was executing", c.ActionID)
		}
		inFlight = true
		defer func() { inFlight = false }()
		started = append(started, c.ActionID)

		if c.ActionID == 0 {
			next := core.ActionContainer{ActionID: 1, UnitWait: &core.UnitWait{}}
			require.NoError(t, h.s.Receive(ctx, w.WarID(), &next))
			assert.Equal(t, 1, h.s.Pending(), "the nested receive only queues")
		}
		return nil
	})

	h.receive(core.ActionContainer{UnitWait: &core.UnitWait{}})

	assert.Equal(t, []int{0, 1}, started)
	assert.Equal(t, 2, h.w.NextActionID())
	assert.Equal(t, 0, h.s.Pending())
}

func TestSession_Victory(t *testing.T) {
	h := newHarness(t)

	h.receive(beginTurn)
	h.receive(endTurn)
	h.receive(beginTurn)
	h.receive(endTurn)
	h.receive(beginTurn)
	h.receive(surrender)

	assert.True(t, h.w.IsEnded())
	assert.Equal(t, []outcomeCall{{warID: h.w.WarID(), outcome: session.OutcomeVictory}}, h.lobby.outcomes)
	assert.Equal(t, 1, h.lobby.lobbyHit)

	h.receive(endTurn)
	assert.Equal(t, 1, h.s.Pending(), "an ended war applies nothing")
}

func TestSession_DefeatWinsOverVictory(t *testing.T) {
	h := newHarness(t)

	h.receive(beginTurn)
	h.receive(endTurn)
	h.receive(beginTurn)
	h.receive(surrender)

	require.Len(t, h.lobby.outcomes, 1)
	assert.Equal(t, session.OutcomeDefeat, h.lobby.outcomes[0].outcome)
}

func TestSession_Draw(t *testing.T) {
	h := newHarness(t)

	h.receive(beginTurn)
	h.receive(endTurn)
	h.receive(beginTurn)
	h.receive(agree)
	assert.False(t, h.w.IsEnded())
	h.receive(endTurn)
	h.receive(beginTurn)
	h.receive(agree)

	require.Len(t, h.lobby.outcomes, 1)
	assert.Equal(t, session.OutcomeDraw, h.lobby.outcomes[0].outcome)
}

func TestSession_FailedActionEndsWar(t *testing.T) {
	h := newHarness(t)

	h.receive(beginTurn)
	c := beginTurn
	c.ActionID = 1
	err := h.s.Receive(t.Context(), h.w.WarID(), &c)

	require.ErrorIs(t, err, action.ErrInvariant)
	assert.True(t, h.w.IsEnded())
	assert.Equal(t, []outcomeCall{{warID: h.w.WarID(), outcome: session.OutcomeError}}, h.lobby.outcomes)
	assert.Equal(t, 1, h.lobby.lobbyHit)
}

func TestSession_EnterWarRequestsBeginTurn(t *testing.T) {
	h := newHarness(t)
	data := h.snapshot()
	data.WarID = 2
	data.Turn.PlayerIndex = 1

	w, err := h.s.EnterWar(t.Context(), data)
	require.NoError(t, err)

	assert.Equal(t, war.PlannerRequestingPlayerBeginTurn, w.Field().ActionPlanner().State())
	assert.False(t, h.w.IsRunning(), "entering a war stops the previous one")
	assert.Same(t, w, h.s.Context().War())
}

func TestSession_HandleSyncWar(t *testing.T) {
	tests := []struct {
		name    string
		status  core.SyncWarStatus
		outcome session.Outcome
	}{
		{name: "defeated", status: core.SyncWarDefeated, outcome: session.OutcomeDefeat},
		{name: "ended", status: core.SyncWarEndedOrNotExists, outcome: session.OutcomeEnded},
		{name: "not joined", status: core.SyncWarNotJoined, outcome: session.OutcomeNotJoined},
		{name: "unknown", status: core.SyncWarStatus(42), outcome: session.OutcomeError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)

			require.NoError(t, h.s.HandleSyncWar(t.Context(), &core.SyncWarResponse{
				WarID:  h.w.WarID(),
				Status: tt.status,
			}))

			assert.True(t, h.w.IsEnded())
			assert.Equal(t, []outcomeCall{{warID: h.w.WarID(), outcome: tt.outcome}}, h.lobby.outcomes)
			assert.Equal(t, 1, h.lobby.lobbyHit)
		})
	}
}

func TestSession_HandleSyncWar_ReloadsWhenBehind(t *testing.T) {
	h := newHarness(t)
	data := h.snapshot()
	data.NextActionID = 5

	require.NoError(t, h.s.HandleSyncWar(t.Context(), &core.SyncWarResponse{
		WarID:        h.w.WarID(),
		Status:       core.SyncWarNoError,
		NextActionID: 5,
		War:          data,
	}))

	reloaded := h.s.Context().War()
	require.NotNil(t, reloaded)
	assert.NotSame(t, h.w, reloaded)
	assert.Equal(t, 5, reloaded.NextActionID())
	assert.True(t, h.w.IsEnded())
	assert.Equal(t, []session.Notice{session.NoticeReloaded}, h.lobby.notices)
	assert.Empty(t, h.lobby.outcomes)
}

func TestSession_HandleSyncWar_InStepResumes(t *testing.T) {
	h := newHarness(t)
	h.receive(beginTurn)
	h.receive(endTurn)
	h.w.Field().ActionPlanner().SetState(war.PlannerIdle)

	require.NoError(t, h.s.HandleSyncWar(t.Context(), &core.SyncWarResponse{
		WarID:        h.w.WarID(),
		Status:       core.SyncWarNoError,
		RequestType:  core.SyncRequestPlayer,
		NextActionID: 2,
	}))

	assert.Same(t, h.w, h.s.Context().War())
	assert.Equal(t, []session.Notice{session.NoticeSynchronized}, h.lobby.notices)
	assert.Equal(t, war.PlannerRequestingPlayerBeginTurn, h.w.Field().ActionPlanner().State())
}

func TestSession_HandleSyncWar_MissingSnapshot(t *testing.T) {
	h := newHarness(t)

	err := h.s.HandleSyncWar(t.Context(), &core.SyncWarResponse{
		WarID:        h.w.WarID(),
		Status:       core.SyncWarNoError,
		NextActionID: 9,
	})
	assert.ErrorIs(t, err, action.ErrInvariant)
}

func TestSession_ExitWar(t *testing.T) {
	h := newHarness(t)

	h.s.ExitWar()

	assert.Nil(t, h.s.Context().War())
	assert.False(t, h.w.IsRunning())
	c := beginTurn
	require.NoError(t, h.s.Receive(t.Context(), h.w.WarID(), &c))
}

type recordingObserver struct {
	entered  []int64
	applied  []int
	outcomes []session.Outcome
}

func (o *recordingObserver) WarEntered(_ context.Context, w *war.War) {
	o.entered = append(o.entered, w.WarID())
}

func (o *recordingObserver) ActionApplied(_ context.Context, _ *war.War, c *core.ActionContainer) {
	o.applied = append(o.applied, c.ActionID)
}

func (o *recordingObserver) WarEnded(_ context.Context, _ *war.War, outcome session.Outcome) {
	o.outcomes = append(o.outcomes, outcome)
}

func TestSession_Observer(t *testing.T) {
	h := newHarness(t)
	obs := &recordingObserver{}
	h.s.Observe(obs)

	h.receive(beginTurn)
	h.receive(endTurn)
	h.receive(beginTurn)
	h.receive(surrender)

	assert.Empty(t, obs.entered, "observers added later miss earlier entries")
	assert.Equal(t, []int{0, 1, 2, 3}, obs.applied)
	assert.Equal(t, []session.Outcome{session.OutcomeDefeat}, obs.outcomes)

	data := h.snapshot()
	data.WarID = 5
	_, err := h.s.EnterWar(t.Context(), data)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, obs.entered)
}

func TestSession_ObserverSeesFailedAction(t *testing.T) {
	h := newHarness(t)
	obs := &recordingObserver{}
	h.s.Observe(obs)

	h.receive(beginTurn)
	c := beginTurn
	c.ActionID = 1
	require.Error(t, h.s.Receive(t.Context(), h.w.WarID(), &c))

	assert.Equal(t, []int{0}, obs.applied)
	assert.Equal(t, []session.Outcome{session.OutcomeError}, obs.outcomes)
}
