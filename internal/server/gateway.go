package server

import (
	"net/http"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/holdemd/internal/directory"
	"github.com/cardroomlabs/holdemd/internal/table"
)

// Gateway owns the client-facing WebSocket surface: the auth
// handshake, the one-live-socket-per-user registry, and event fan-out
// on behalf of table sessions. It implements table.Broadcaster.
type Gateway struct {
	upgrader websocket.Upgrader
	dir      directory.Client
	tables   *table.Manager
	logger   *log.Logger

	mu     sync.RWMutex
	byUser map[string]*Connection
}

// NewGateway creates a gateway; call SetTables before serving
func NewGateway(dir directory.Client, logger *log.Logger) *Gateway {
	return &Gateway{
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		dir:    dir,
		logger: logger.WithPrefix("gateway"),
		byUser: make(map[string]*Connection),
	}
}

// SetTables wires the table registry. Separate from the constructor
// because the manager needs the gateway as its broadcaster.
func (g *Gateway) SetTables(tables *table.Manager) {
	g.tables = tables
}

// HandleWS upgrades a client socket after verifying its token with
// the directory. Unverified requests never reach the upgrade.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}

	identity, err := g.dir.VerifyToken(r.Context(), token)
	if err != nil {
		g.logger.Warn("token rejected", "err", err)
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Error("upgrade failed", "err", err)
		return
	}

	client := NewConnection(conn, identity.UserID, identity.Username, g, g.logger)
	g.register(client)
	client.Start()

	go func() {
		<-client.ctx.Done()
		g.unregister(client)
	}()

	welcome, err := NewMessage(table.EventConnected, ConnectedData{
		UserID:   identity.UserID,
		Username: identity.Username,
	})
	if err == nil {
		_ = client.Send(welcome)
	}
}

// bearerToken pulls the session token from the Authorization header
// or the token query parameter
func bearerToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return r.URL.Query().Get("token")
}

// register installs the connection as the user's live socket. A
// previous socket for the same user is superseded: the new one
// inherits its table binding and the old one is closed without the
// disconnect path firing.
func (g *Gateway) register(c *Connection) {
	g.mu.Lock()
	old := g.byUser[c.userID]
	g.byUser[c.userID] = c
	g.mu.Unlock()

	metricConnections.Inc()

	if old != nil {
		c.SetTable(old.GetTable())
		g.logger.Info("socket superseded", "user", c.userID)
		_ = old.Close()
	}
}

// unregister removes the connection if it is still the user's live
// socket, then reports the disconnect to the bound table
func (g *Gateway) unregister(c *Connection) {
	g.mu.Lock()
	live := g.byUser[c.userID] == c
	if live {
		delete(g.byUser, c.userID)
	}
	g.mu.Unlock()

	metricConnections.Dec()
	_ = c.Close()
	if !live {
		// Superseded by a newer socket; nothing to report
		return
	}

	if tableID := c.GetTable(); tableID != "" {
		if session, ok := g.tables.Get(tableID); ok {
			session.MarkDisconnected(c.userID)
		}
	}
	g.logger.Info("client disconnected", "user", c.userID)
}

// ToUser sends an event to the user's live socket, if any
func (g *Gateway) ToUser(userID, event string, payload any) {
	g.mu.RLock()
	conn := g.byUser[userID]
	g.mu.RUnlock()
	if conn == nil {
		return
	}

	msg, err := NewMessage(event, payload)
	if err != nil {
		g.logger.Error("event encode failed", "event", event, "err", err)
		return
	}
	if err := conn.Send(msg); err != nil {
		g.logger.Debug("send failed", "user", userID, "event", event, "err", err)
	}
}

// ToTable sends an event to every socket joined to the table
func (g *Gateway) ToTable(tableID, event string, payload any) {
	msg, err := NewMessage(event, payload)
	if err != nil {
		g.logger.Error("event encode failed", "event", event, "err", err)
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, conn := range g.byUser {
		if conn.GetTable() == tableID {
			_ = conn.Send(msg)
		}
	}
}

// CloseAll tears down every live socket, for shutdown
func (g *Gateway) CloseAll() {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id, conn := range g.byUser {
		_ = conn.Close()
		delete(g.byUser, id)
	}
}
