// internal/websocket/handler/session_status.go
package handler

import (
	"context"
	"fmt"

	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/session"
	wstypes "mailadmin-service/internal/domain/websocket"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/requestinfo"
	ws "mailadmin-service/internal/websocket"
)

// SessionReader is the part of the session query service the handler needs.
type SessionReader interface {
	GetCurrent(ctx context.Context, principal *auth.Principal, info requestinfo.Info) (*session.SessionResponse, error)
}

// SessionStatusHandler answers session:status requests with the caller's current session.
type SessionStatusHandler struct {
	sessions SessionReader
}

func NewSessionStatusHandler(sessions SessionReader) *SessionStatusHandler {
	return &SessionStatusHandler{sessions: sessions}
}

func (h *SessionStatusHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeSessionStatus}
}

func (h *SessionStatusHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeSessionStatus {
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}

	principal := client.Principal()
	resp, err := h.sessions.GetCurrent(ctx, &principal, client.Info())
	if err != nil {
		details := xerrors.ErrInternal.Message
		if appErr, ok := xerrors.As(err); ok && appErr.Kind != xerrors.KindInternal {
			details = appErr.Message
		}
		client.SendError(string(xerrors.KindOf(err)), "Failed to load session status", details)
		return nil
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeSessionStatus, resp))
	return nil
}
