// internal/domain/audit/dto.go
package audit

import "time"

// ListQuery is bound from the query string of the audit endpoints.
type ListQuery struct {
	Actions    []string   `form:"action"`
	EntityType string     `form:"entityType"`
	EntityID   *int64     `form:"entityId"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit      int        `form:"limit" binding:"omitempty,min=1,max=500"`
	Offset     int        `form:"offset" binding:"omitempty,min=0"`
}

type EntryResponse struct {
	ID            int64     `json:"id"`
	UserID        *int64    `json:"userId,omitempty"`
	SessionID     *int64    `json:"sessionId,omitempty"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entityType,omitempty"`
	EntityID      *int64    `json:"entityId,omitempty"`
	Description   string    `json:"description,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	UserAgent     string    `json:"userAgent,omitempty"`
	RequestMethod string    `json:"requestMethod,omitempty"`
	RequestURL    string    `json:"requestUrl,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewEntryResponse(e *Entry) EntryResponse {
	resp := EntryResponse{
		ID:            e.ID,
		Action:        e.Action,
		EntityType:    e.EntityType.String,
		Description:   e.Description.String,
		IPAddress:     e.IPAddress.String,
		UserAgent:     e.UserAgent.String,
		RequestMethod: e.RequestMethod.String,
		RequestURL:    e.RequestURL.String,
		Timestamp:     e.Timestamp,
	}
	if e.UserID.Valid {
		v := e.UserID.Int64
		resp.UserID = &v
	}
	if e.SessionID.Valid {
		v := e.SessionID.Int64
		resp.SessionID = &v
	}
	if e.EntityID.Valid {
		v := e.EntityID.Int64
		resp.EntityID = &v
	}
	return resp
}

func NewEntryResponses(entries []*Entry) []EntryResponse {
	out := make([]EntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, NewEntryResponse(e))
	}
	return out
}
