// Package action executes authoritative war actions against a running war.
//
// Every action code has one executor in the engine table. Executors share
// the same skeleton: switch the planner to executing, apply the catch-up
// state carried by the action, move the acting unit, apply the action
// effect unless the path was blocked, wait for the view and refresh what
// the local side can see.
package action

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tinywars/warcore/internal/dispatcher"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
)

const instrumentationName = "github.com/tinywars/warcore/internal/action"

// ErrInvariant is returned, wrapped, when an action references state the
// war does not hold. The session treats it as fatal.
var ErrInvariant = war.ErrInvariant

// ExecutorFunc applies one action container to w.
type ExecutorFunc func(ctx context.Context, w *war.War, c *core.ActionContainer) error

// Logger is the logger the engine reports through.
type Logger = dispatcher.Logger

// View animates unit movement. MoveUnitAlongPath returns once the
// animation is over.
type View interface {
	MoveUnitAlongPath(ctx context.Context, u *war.Unit, path core.MovePath) error
}

// NopView completes every animation immediately. Servers and replay
// seeking use it.
type NopView struct{}

func (NopView) MoveUnitAlongPath(context.Context, *war.Unit, core.MovePath) error { return nil }

// Option configures executor registration.
type Option func(*config)

type config struct {
	logged bool
}

// Logged adds debug logging around the executor.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Engine routes action containers to their executors.
type Engine struct {
	executors map[core.ActionCode]ExecutorFunc
	view      View
	logger    Logger

	executed metric.Int64Counter
	failed   metric.Int64Counter
}

// NewEngine creates an engine with every action code registered.
// Uses the global OTel meter for metrics (no-op if not configured).
func NewEngine(view View, logger Logger, opts ...Option) (*Engine, error) {
	if view == nil {
		view = NopView{}
	}
	if logger == nil {
		logger = nopLogger{}
	}
	e := &Engine{
		executors: make(map[core.ActionCode]ExecutorFunc),
		view:      view,
		logger:    logger,
	}

	m := otel.Meter(instrumentationName)
	var err error
	e.executed, err = m.Int64Counter(
		"war.actions.executed",
		metric.WithDescription("Total war actions executed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating executed counter: %w", err)
	}
	e.failed, err = m.Int64Counter(
		"war.actions.failed",
		metric.WithDescription("Total war actions that failed to execute"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	e.Register(core.ActionPlayerBeginTurn, e.executePlayerBeginTurn, opts...)
	e.Register(core.ActionPlayerDeleteUnit, e.executePlayerDeleteUnit, opts...)
	e.Register(core.ActionPlayerEndTurn, e.executePlayerEndTurn, opts...)
	e.Register(core.ActionPlayerProduceUnit, e.executePlayerProduceUnit, opts...)
	e.Register(core.ActionPlayerSurrender, e.executePlayerSurrender, opts...)
	e.Register(core.ActionPlayerVoteForDraw, e.executePlayerVoteForDraw, opts...)
	e.Register(core.ActionUnitAttack, e.executeUnitAttack, opts...)
	e.Register(core.ActionUnitBeLoaded, e.executeUnitBeLoaded, opts...)
	e.Register(core.ActionUnitBuildTile, e.executeUnitBuildTile, opts...)
	e.Register(core.ActionUnitCaptureTile, e.executeUnitCaptureTile, opts...)
	e.Register(core.ActionUnitDive, e.executeUnitDive, opts...)
	e.Register(core.ActionUnitDrop, e.executeUnitDrop, opts...)
	e.Register(core.ActionUnitJoin, e.executeUnitJoin, opts...)
	e.Register(core.ActionUnitLaunchFlare, e.executeUnitLaunchFlare, opts...)
	e.Register(core.ActionUnitLaunchSilo, e.executeUnitLaunchSilo, opts...)
	e.Register(core.ActionUnitLoadCo, e.executeUnitLoadCo, opts...)
	e.Register(core.ActionUnitProduceUnit, e.executeUnitProduceUnit, opts...)
	e.Register(core.ActionUnitSupply, e.executeUnitSupply, opts...)
	e.Register(core.ActionUnitSurface, e.executeUnitSurface, opts...)
	e.Register(core.ActionUnitUseCoSkill, e.executeUnitUseCoSkill, opts...)
	e.Register(core.ActionUnitWait, e.executeUnitWait, opts...)

	return e, nil
}

// Register sets the executor for code, replacing any previous one.
func (e *Engine) Register(code core.ActionCode, fn ExecutorFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.logged {
		fn = e.withLogging(code, fn)
	}
	e.executors[code] = fn
}

// HasExecutor returns true if an executor is registered for code.
func (e *Engine) HasExecutor(code core.ActionCode) bool {
	_, ok := e.executors[code]
	return ok
}

// Execute applies c to w.
func (e *Engine) Execute(ctx context.Context, w *war.War, c *core.ActionContainer) error {
	code := c.Code()
	fn, ok := e.executors[code]
	if !ok {
		return fmt.Errorf("%w: action %d has no executable payload", ErrInvariant, c.ActionID)
	}
	codeAttr := metric.WithAttributes(attribute.String("action", code.String()))
	if err := fn(ctx, w, c); err != nil {
		e.failed.Add(ctx, 1, codeAttr)
		return fmt.Errorf("executing %s %d: %w", code, c.ActionID, err)
	}
	e.executed.Add(ctx, 1, codeAttr)
	return nil
}

func (e *Engine) withLogging(code core.ActionCode, fn ExecutorFunc) ExecutorFunc {
	return func(ctx context.Context, w *war.War, c *core.ActionContainer) error {
		start := time.Now()
		e.logger.Debug("executing action", "action", code.String(), "actionId", c.ActionID)

		err := fn(ctx, w, c)

		if err != nil {
			e.logger.Error("action failed", "action", code.String(), "actionId", c.ActionID, "duration", time.Since(start), "error", err)
		} else {
			e.logger.Debug("action complete", "action", code.String(), "actionId", c.ActionID, "duration", time.Since(start))
		}
		return err
	}
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}
