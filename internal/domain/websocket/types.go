// internal/domain/websocket/types.go
package websocket

import (
	"encoding/json"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType represents different real-time event types
type EventType string

const (
	// Connection events
	EventTypePing         EventType = "ping"
	EventTypePong         EventType = "pong"
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"

	// Session events (server -> client)
	EventTypeSessionExpired EventType = "session:expired"
	EventTypeSessionRevoked EventType = "session:revoked"
	EventTypeForceLogout    EventType = "session:force_logout"

	// Session status request (client -> server), answered with the same type
	EventTypeSessionStatus EventType = "session:status"

	// Subscription events
	EventTypeSubscribe   EventType = "subscribe"
	EventTypeUnsubscribe EventType = "unsubscribe"
)

// WSMessage is the universal message format
type WSMessage struct {
	Type      EventType              `json:"type"`
	Data      interface{}            `json:"data,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	ID        string                 `json:"id,omitempty"`
}

// ChannelType names a stream clients can subscribe to.
type ChannelType string

const (
	ChannelSessions ChannelType = "sessions"
	ChannelSystem   ChannelType = "system"
)

type SubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

type UnsubscribeRequest struct {
	Channels []ChannelType `json:"channels"`
}

// ErrorData for error events
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// SessionEventData describes a revoked or expired session.
type SessionEventData struct {
	SessionID int64  `json:"sessionId"`
	Reason    string `json:"reason"`
	Message   string `json:"message"`
}

// SessionsRevokedData lists every session of the user ended by one logout.
type SessionsRevokedData struct {
	SessionIDs []int64 `json:"sessionIds"`
	Reason     string  `json:"reason"`
}

func NewMessage(eventType EventType, data interface{}) *WSMessage {
	return &WSMessage{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
		ID:        ulid.Make().String(),
	}
}

func (m *WSMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ParseMessage(data []byte) (*WSMessage, error) {
	var msg WSMessage
	err := json.Unmarshal(data, &msg)
	return &msg, err
}
