package table

// Event names on the client wire
const (
	EventConnected          = "connected"
	EventTableState         = "table_state_update"
	EventActionError        = "action_error"
	EventChatMessage        = "chat_message"
	EventChatHistory        = "chat_history"
	EventPlayerDisconnected = "player_disconnected"
	EventPlayerReconnected  = "player_reconnected"
	EventReconnected        = "reconnected"
	EventActionTimeout      = "action_timeout"
	EventHandComplete       = "hand_complete"
	EventError              = "error"
)

// Broadcaster delivers events to connected clients. The WebSocket
// gateway implements it; tests record the calls.
type Broadcaster interface {
	// ToUser sends an event to a single user's live socket, if any
	ToUser(userID, event string, payload any)

	// ToTable sends an event to every socket joined to the table
	ToTable(tableID, event string, payload any)
}
