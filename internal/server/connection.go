package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/cardroomlabs/holdemd/internal/game"
	"github.com/cardroomlabs/holdemd/internal/table"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var ErrConnectionClosed = websocket.ErrCloseSent

// Connection wraps one authenticated client socket. The identity is
// fixed at upgrade time by the auth handshake; the table binding
// changes as the client joins and leaves.
type Connection struct {
	conn     *websocket.Conn
	send     chan *Message
	userID   string
	username string
	logger   *log.Logger
	ctx      context.Context
	cancel   context.CancelFunc

	mu        sync.RWMutex
	tableID   string
	closeOnce sync.Once

	gateway *Gateway
}

// NewConnection wraps an upgraded socket for a verified identity
func NewConnection(conn *websocket.Conn, userID, username string, gateway *Gateway, logger *log.Logger) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:     conn,
		send:     make(chan *Message, 256),
		userID:   userID,
		username: username,
		logger:   logger.WithPrefix("conn").With("user", userID),
		ctx:      ctx,
		cancel:   cancel,
		gateway:  gateway,
	}
}

// Start begins the read and write pumps
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close tears the connection down exactly once
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// Send queues a message for the client. A full buffer closes the
// connection rather than blocking the table.
func (c *Connection) Send(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Debug("send on closed connection", "recover", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetTable binds the connection to a table
func (c *Connection) SetTable(tableID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tableID = tableID
}

// GetTable returns the bound table id, if any
func (c *Connection) GetTable() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.tableID
}

func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("websocket error", "err", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("write failed", "err", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("received", "event", msg.Event)

	switch msg.Event {
	case eventJoinTable:
		var data JoinTableData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse join_table data")
			return
		}
		c.handleJoinTable(data)

	case eventAction:
		var data ActionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse action data")
			return
		}
		c.handleAction(data)

	case eventChat:
		var data ChatData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "failed to parse chat data")
			return
		}
		c.handleChat(data)

	case eventLeaveTable:
		c.handleLeaveTable()

	default:
		c.sendError("unknown_event", "unknown event: "+msg.Event)
	}
}

func (c *Connection) sendError(code, message string) {
	msg, err := NewMessage(table.EventError, ErrorData{Code: code, Message: message})
	if err != nil {
		c.logger.Error("error message encode failed", "err", err)
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) sendActionError(message string) {
	msg, err := NewMessage(table.EventActionError, ErrorData{Code: "invalid_action", Message: message})
	if err != nil {
		return
	}
	_ = c.Send(msg)
}

func (c *Connection) handleJoinTable(data JoinTableData) {
	session, err := c.gateway.tables.GetOrCreate(c.ctx, data.TableID)
	if err != nil {
		c.sendError("table_not_found", err.Error())
		return
	}
	if !session.HasSeat(c.userID) {
		c.sendError("not_seated", "no seat at this table; buy in through the lobby first")
		return
	}

	c.SetTable(data.TableID)
	if err := session.MarkConnected(c.ctx, c.userID); err != nil {
		c.sendError("join_failed", err.Error())
	}
}

func (c *Connection) handleAction(data ActionData) {
	session, ok := c.boundSession()
	if !ok {
		return
	}

	kind, err := game.ParseAction(data.Action)
	if err != nil {
		c.sendActionError(err.Error())
		return
	}
	if err := session.SubmitAction(c.ctx, c.userID, kind, data.Amount); err != nil {
		c.sendActionError(err.Error())
	}
}

func (c *Connection) handleChat(data ChatData) {
	session, ok := c.boundSession()
	if !ok {
		return
	}
	if _, err := session.Chat(c.userID, data.Text); err != nil {
		c.sendError("chat_failed", err.Error())
	}
}

func (c *Connection) handleLeaveTable() {
	session, ok := c.boundSession()
	if !ok {
		return
	}
	if err := session.Leave(c.ctx, c.userID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}
	c.SetTable("")
}

// boundSession resolves the table this connection joined
func (c *Connection) boundSession() (*table.Session, bool) {
	tableID := c.GetTable()
	if tableID == "" {
		c.sendError("not_joined", "join a table first")
		return nil, false
	}
	session, ok := c.gateway.tables.Get(tableID)
	if !ok {
		c.sendError("table_not_found", "table session not found")
		return nil, false
	}
	return session, true
}
