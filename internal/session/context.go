package session

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/tinywars/warcore/internal/war"
)

// Context holds the war the local side is in. Entering a war stops the
// previous one; there is never more than one.
type Context struct {
	mu        sync.RWMutex
	war       *war.War
	sessionID uuid.UUID
}

// NewContext creates a Context outside of any war.
func NewContext() *Context {
	return &Context{}
}

// War returns the current war, nil in the lobby.
func (c *Context) War() *war.War {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.war
}

// SessionID identifies the current stay in a war. It changes on every enter.
func (c *Context) SessionID() uuid.UUID {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.sessionID
}

// EnterWar makes w current and returns the new session id.
func (c *Context) EnterWar(w *war.War) uuid.UUID {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.war != nil {
		c.war.StopRunning()
	}
	c.war = w
	c.sessionID = uuid.New()
	return c.sessionID
}

// ExitWar stops and forgets the current war, returning it.
func (c *Context) ExitWar() *war.War {
	c.mu.Lock()
	defer c.mu.Unlock()
	w := c.war
	if w != nil {
		w.StopRunning()
	}
	c.war = nil
	c.sessionID = uuid.Nil
	return w
}

// LogAttrs describes the current war for log records.
func (c *Context) LogAttrs() []slog.Attr {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.war == nil {
		return nil
	}
	return []slog.Attr{
		slog.String("session", c.sessionID.String()),
		slog.Int64("warId", c.war.WarID()),
		slog.Int("nextActionId", c.war.NextActionID()),
	}
}
