// Package dispatcher routes inbound protocol envelopes to their handlers.
package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/tinywars/warcore/pkg/protocol"
)

// ErrClosed is returned by Dispatch after Close.
var ErrClosed = errors.New("dispatcher closed")

// Event is one inbound envelope.
type Event struct {
	Code     protocol.Code
	Payload  json.RawMessage
	Received time.Time
}

// NewEvent wraps an envelope received now.
func NewEvent(env protocol.Envelope) Event {
	return Event{Code: env.Code, Payload: env.Payload, Received: time.Now()}
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	return protocol.Envelope{Code: e.Code, Payload: e.Payload}.Decode(v)
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(ctx context.Context, e Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers. Buffered handlers run on
// one goroutine each, so events of one code are handled in arrival order.
type Dispatcher struct {
	handlers map[protocol.Code]HandlerFunc
	logger   Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter

	mu      sync.RWMutex
	buffers map[protocol.Code]chan Event
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		handlers: make(map[protocol.Code]HandlerFunc),
		buffers:  make(map[protocol.Code]chan Event),
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for code, buf := range d.buffers {
				o.ObserveInt64(d.queueSize, int64(len(buf)),
					metric.WithAttributes(attribute.String("code", code.String())))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given code with optional configuration.
// Codes sharing one handler through RegisterShared share its queue.
func (d *Dispatcher) Register(code protocol.Code, h HandlerFunc, opts ...Option) {
	d.RegisterShared([]protocol.Code{code}, h, opts...)
}

// RegisterShared routes several codes to one handler. A buffered shared
// handler keeps a single queue, so their relative order is preserved.
func (d *Dispatcher) RegisterShared(codes []protocol.Code, h HandlerFunc, opts ...Option) {
	if len(codes) == 0 {
		return
	}
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(codes[0], cfg.bufferSize, cfg.blocking, handler)
	}

	for _, code := range codes {
		d.handlers[code] = handler
	}
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	if d.ctx.Err() != nil {
		return nil, ErrClosed
	}
	h, ok := d.handlers[e.Code]
	if !ok {
		return nil, fmt.Errorf("unknown code: %s", e.Code)
	}
	return h(d.ctx, e)
}

// HasHandler returns true if a handler is registered for the code.
func (d *Dispatcher) HasHandler(code protocol.Code) bool {
	_, ok := d.handlers[code]
	return ok
}

// Close stops accepting events and waits for the buffered handlers to
// return. Events still queued are discarded.
func (d *Dispatcher) Close() {
	d.cancel()
	d.wg.Wait()
}

func (d *Dispatcher) withBuffer(code protocol.Code, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[code] = buffer
	d.mu.Unlock()

	codeAttr := attribute.String("code", code.String())

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for {
			select {
			case <-d.ctx.Done():
				return
			case e := <-buffer:
				if _, err := h(d.ctx, e); err != nil {
					d.logger.Error("queued event failed", "code", e.Code.String(), "error", err)
				}
				d.processed.Add(context.Background(), 1, metric.WithAttributes(codeAttr))
			}
		}
	}()

	if blocking {
		return func(ctx context.Context, e Event) (any, error) {
			select {
			case buffer <- e:
				return "queued", nil
			case <-ctx.Done():
				return nil, ErrClosed
			}
		}
	}

	return func(ctx context.Context, e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(codeAttr))
			return nil, fmt.Errorf("queue full: %s", e.Code)
		}
	}
}

func (d *Dispatcher) withLogging(h HandlerFunc) HandlerFunc {
	return func(ctx context.Context, e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "code", e.Code.String(), "bytes", len(e.Payload))

		result, err := h(ctx, e)

		if err != nil {
			d.logger.Error("event failed", "code", e.Code.String(), "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "code", e.Code.String(), "duration", time.Since(start))
		}

		return result, err
	}
}
