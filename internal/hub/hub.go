// Package hub serves the websocket endpoints of a warcore server. The
// authoritative game server connects to /war and pushes the war it runs;
// spectators connect to /feed for the full war or to /spectate?player=N
// for what player N can see.
package hub

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/tinywars/warcore/internal/dispatcher"
	"github.com/tinywars/warcore/internal/war"
	"github.com/tinywars/warcore/pkg/core"
	"github.com/tinywars/warcore/pkg/protocol"
)

// FullView is the view of /feed clients.
const FullView = -1

const (
	defaultSendBuffer = 64
	writeTimeout      = 3 * time.Second
)

// ErrNoUpstream is returned by Send while no game server is connected.
var ErrNoUpstream = errors.New("no game server connected")

type Config struct {
	// Secret must be passed as the secret query parameter of /war. Empty
	// accepts any game server.
	Secret     string
	SendBuffer int
}

type client struct {
	id   uuid.UUID
	view int
	send chan []byte
	conn *websocket.Conn
}

// Hub tracks the upstream connection and the spectators.
type Hub struct {
	cfg        Config
	dispatcher *dispatcher.Dispatcher
	logger     *slog.Logger

	mu       sync.Mutex
	clients  map[uuid.UUID]*client
	latest   map[int][]byte
	upstream *websocket.Conn
}

// New creates a hub routing upstream envelopes to d. A nil logger uses
// slog.Default.
func New(d *dispatcher.Dispatcher, cfg Config, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = defaultSendBuffer
	}
	return &Hub{
		cfg:        cfg,
		dispatcher: d,
		logger:     logger,
		clients:    make(map[uuid.UUID]*client),
		latest:     make(map[int][]byte),
	}
}

// Handler returns the mux serving /war, /feed and /spectate.
func (h *Hub) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/war", h.serveUpstream)
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		h.serveSpectator(w, r, FullView)
	})
	mux.HandleFunc("/spectate", func(w http.ResponseWriter, r *http.Request) {
		player, err := strconv.Atoi(r.URL.Query().Get("player"))
		if err != nil || player < 1 {
			http.Error(w, "player must be a player index", http.StatusBadRequest)
			return
		}
		h.serveSpectator(w, r, player)
	})
	return mux
}

// ClientCount is the number of connected spectators.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	if msg, ok := h.latest[c.view]; ok {
		c.send <- msg
	}
}

func (h *Hub) remove(id uuid.UUID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.send)
	}
}

func (h *Hub) serveSpectator(w http.ResponseWriter, r *http.Request, view int) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	c := &client{id: uuid.New(), view: view, send: make(chan []byte, h.cfg.SendBuffer), conn: conn}
	h.add(c)
	h.logger.Debug("spectator connected", "client", c.id, "view", view)

	// spectators only listen; reading handles the close handshake
	ctx := conn.CloseRead(r.Context())
	defer func() {
		h.remove(c.id)
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Debug("spectator disconnected", "client", c.id)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// PublishWar sends w to every spectator, each in the view it asked for.
// Slow spectators whose buffer is full are disconnected.
func (h *Hub) PublishWar(w *war.War, applied *core.ActionCode) {
	h.mu.Lock()
	defer h.mu.Unlock()

	views := map[int]bool{FullView: true}
	for _, c := range h.clients {
		views[c.view] = true
	}
	for view := range views {
		snapshot := w.Serialize()
		if view != FullView {
			if w.Players().Player(view) == nil {
				continue
			}
			snapshot = w.SerializeForPlayer(view)
		}
		msg, err := protocol.Marshal(protocol.S_McwSpectatorWarUpdate, protocol.SpectatorUpdate{
			WarID:        w.WarID(),
			NextActionID: w.NextActionID(),
			Action:       applied,
			War:          snapshot,
		})
		if err != nil {
			h.logger.Error("failed to marshal spectator update", "warId", w.WarID(), "error", err)
			continue
		}
		h.latest[view] = msg
	}

	for id, c := range h.clients {
		msg, ok := h.latest[c.view]
		if !ok {
			continue
		}
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("spectator too slow, disconnecting", "client", id)
			delete(h.clients, id)
			close(c.send)
		}
	}
}

// Send writes an envelope to the game server. It implements worker.Sender.
func (h *Hub) Send(ctx context.Context, code protocol.Code, payload any) error {
	h.mu.Lock()
	conn := h.upstream
	h.mu.Unlock()
	if conn == nil {
		return ErrNoUpstream
	}
	msg, err := protocol.Marshal(code, payload)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(ctx, websocket.MessageText, msg)
}

func (h *Hub) serveUpstream(w http.ResponseWriter, r *http.Request) {
	if h.cfg.Secret != "" &&
		subtle.ConstantTimeCompare([]byte(r.URL.Query().Get("secret")), []byte(h.cfg.Secret)) != 1 {
		http.Error(w, "bad secret", http.StatusUnauthorized)
		return
	}
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{InsecureSkipVerify: true})
	if err != nil {
		return
	}
	conn.SetReadLimit(32 << 20)

	h.mu.Lock()
	previous := h.upstream
	h.upstream = conn
	h.mu.Unlock()
	if previous != nil {
		_ = previous.Close(websocket.StatusPolicyViolation, "replaced by a new game server connection")
	}
	h.logger.Info("game server connected", "remote", r.RemoteAddr)

	defer func() {
		h.mu.Lock()
		if h.upstream == conn {
			h.upstream = nil
		}
		h.mu.Unlock()
		_ = conn.Close(websocket.StatusNormalClosure, "")
		h.logger.Info("game server disconnected", "remote", r.RemoteAddr)
	}()

	ctx := r.Context()
	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return
		}
		env, err := protocol.Unmarshal(data)
		if err != nil {
			h.logger.Warn("dropping malformed envelope", "error", err)
			continue
		}
		if err := h.handle(ctx, conn, env); err != nil {
			return
		}
	}
}

// handle dispatches env and answers client requests. Only write failures
// are returned.
func (h *Hub) handle(ctx context.Context, conn *websocket.Conn, env protocol.Envelope) error {
	result, err := h.dispatcher.Dispatch(dispatcher.NewEvent(env))
	if env.Code.IsServer() {
		if err != nil {
			h.logger.Error("upstream message failed", "code", env.Code.String(), "error", err)
		}
		return nil
	}

	var reply []byte
	if err != nil {
		reply, err = protocol.Marshal(protocol.S_Error, protocol.ErrorPayload{
			ErrorCode: int(env.Code),
			Message:   err.Error(),
		})
	} else {
		if s, ok := result.(string); ok && s == "queued" {
			return nil
		}
		reply, err = protocol.Marshal(env.Code.Response(), result)
	}
	if err != nil {
		h.logger.Error("failed to encode reply", "code", env.Code.String(), "error", err)
		return nil
	}
	wctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return conn.Write(wctx, websocket.MessageText, reply)
}

// Close disconnects everyone.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id, c := range h.clients {
		delete(h.clients, id)
		close(c.send)
	}
	if h.upstream != nil {
		_ = h.upstream.Close(websocket.StatusGoingAway, "server shutting down")
		h.upstream = nil
	}
}
