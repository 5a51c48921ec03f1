// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"mailadmin-service/internal/domain/auth"
	wstypes "mailadmin-service/internal/domain/websocket"

	"go.uber.org/zap"
)

// Authenticator validates an access token and returns its principal.
type Authenticator interface {
	ValidateToken(ctx context.Context, token string) (*auth.Principal, error)
}

type Hub struct {
	// Registered clients by user ID
	clients map[int64]map[*Client]bool
	mu      sync.RWMutex

	Register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage
	done       chan struct{}
	doneOnce   sync.Once

	handlerRegistry *HandlerRegistry
	authenticator   Authenticator
	logger          *zap.Logger
}

// BroadcastMessage targets the clients of the given users. A non-zero SessionID
// narrows delivery to the client connected with that session.
type BroadcastMessage struct {
	UserIDs   []int64
	SessionID int64
	Channel   wstypes.ChannelType
	Message   *wstypes.WSMessage
	// CloseAfter disconnects the targeted clients once the message is queued.
	CloseAfter bool
}

func NewHub(authenticator Authenticator, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[int64]map[*Client]bool),
		Register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		authenticator:   authenticator,
		logger:          logger,
	}
}

// AuthenticateClient validates the access token and its bound session.
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*auth.Principal, error) {
	return h.authenticator.ValidateToken(ctx, token)
}

func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage delegates to a registered handler and reports whether one took the message.
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.Register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Attach hands a new client to the run loop. It reports false once the hub has stopped.
func (h *Hub) Attach(client *Client) bool {
	select {
	case h.Register <- client:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.UserID()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*Client]bool)
	}
	h.clients[userID][client] = true

	h.logger.Info("websocket client connected",
		zap.Int64("user_id", userID),
		zap.Int64("session_id", client.SessionID()),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"userId":    userID,
		"sessionId": client.SessionID(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	userID := client.UserID()
	if clients, ok := h.clients[userID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, userID)
			}

			h.logger.Info("websocket client disconnected",
				zap.Int64("user_id", userID),
				zap.Int64("session_id", client.SessionID()),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	deliver := func(client *Client) {
		if msg.SessionID != 0 && client.SessionID() != msg.SessionID {
			return
		}
		if msg.SessionID == 0 && !client.IsSubscribed(msg.Channel) {
			return
		}
		client.SendMessage(msg.Message)
		if msg.CloseAfter {
			client.Close()
		}
	}

	if msg.UserIDs == nil {
		for _, clients := range h.clients {
			for client := range clients {
				deliver(client)
			}
		}
		return
	}
	for _, userID := range msg.UserIDs {
		for client := range h.clients[userID] {
			deliver(client)
		}
	}
}

// enqueue hands a message to the run loop without blocking the caller.
func (h *Hub) enqueue(msg *BroadcastMessage) {
	select {
	case h.broadcast <- msg:
	case <-h.done:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping message", zap.String("type", string(msg.Message.Type)))
	}
}

func (h *Hub) GetConnectedClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID])
}

// SessionsRevoked tells every client of the user which sessions ended, then
// logs out and disconnects the clients that were using them.
func (h *Hub) SessionsRevoked(userID int64, sessionIDs []int64, reason string) {
	if len(sessionIDs) == 0 {
		return
	}
	h.enqueue(&BroadcastMessage{
		UserIDs: []int64{userID},
		Channel: wstypes.ChannelSessions,
		Message: wstypes.NewMessage(wstypes.EventTypeSessionRevoked, wstypes.SessionsRevokedData{
			SessionIDs: sessionIDs,
			Reason:     reason,
		}),
	})
	for _, id := range sessionIDs {
		h.ForceLogout(userID, id, reason)
	}
}

// SessionExpired notifies and disconnects the client bound to an expired session.
func (h *Hub) SessionExpired(userID, sessionID int64) {
	h.enqueue(&BroadcastMessage{
		UserIDs:   []int64{userID},
		SessionID: sessionID,
		Channel:   wstypes.ChannelSessions,
		Message: wstypes.NewMessage(wstypes.EventTypeSessionExpired, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    "Session expired",
			Message:   "Your session has expired",
		}),
		CloseAfter: true,
	})
}

func (h *Hub) ForceLogout(userID, sessionID int64, reason string) {
	h.enqueue(&BroadcastMessage{
		UserIDs:   []int64{userID},
		SessionID: sessionID,
		Channel:   wstypes.ChannelSessions,
		Message: wstypes.NewMessage(wstypes.EventTypeForceLogout, wstypes.SessionEventData{
			SessionID: sessionID,
			Reason:    reason,
			Message:   "You have been logged out",
		}),
		CloseAfter: true,
	})
}

func (h *Hub) IsUserConnected(userID int64) bool {
	return h.GetConnectedClients(userID) > 0
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.doneOnce.Do(func() { close(h.done) })

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, clients := range h.clients {
		for client := range clients {
			client.SendMessage(wstypes.NewMessage(wstypes.EventTypeDisconnected, map[string]interface{}{
				"reason": "server shutting down",
			}))
			client.Close()
		}
	}
	h.clients = make(map[int64]map[*Client]bool)
}
