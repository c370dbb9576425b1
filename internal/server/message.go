package server

import (
	"encoding/json"
	"fmt"
	"time"
)

// Message is the envelope for every event on the client wire
type Message struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"ts"`
}

// NewMessage wraps a payload in the wire envelope
func NewMessage(event string, payload any) (*Message, error) {
	var data json.RawMessage
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode %s payload: %w", event, err)
		}
		data = encoded
	}
	return &Message{
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Inbound event names
const (
	eventJoinTable  = "join_table"
	eventAction     = "action"
	eventChat       = "chat"
	eventLeaveTable = "leave_table"
)

// JoinTableData asks to join (or rejoin) a table the player is seated at
type JoinTableData struct {
	TableID string `json:"tableId"`
}

// ActionData is a betting action from the player whose turn it is
type ActionData struct {
	Action string `json:"action"`
	Amount int    `json:"amount"`
}

// ChatData is a table chat message
type ChatData struct {
	Text string `json:"text"`
}

// ErrorData is the payload of error and action_error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ConnectedData confirms a successful auth handshake
type ConnectedData struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}
