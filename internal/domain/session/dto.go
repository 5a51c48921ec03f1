// internal/domain/session/dto.go
package session

import "time"

type ActivityResponse struct {
	ID                int64     `json:"id"`
	SessionID         int64     `json:"sessionId"`
	ActivityType      string    `json:"activityType"`
	Description       string    `json:"description,omitempty"`
	IPAddress         string    `json:"ipAddress,omitempty"`
	UserAgent         string    `json:"userAgent,omitempty"`
	ActivityTimestamp time.Time `json:"activityTimestamp"`
}

// SessionResponse is a session together with its activity trail, newest first.
type SessionResponse struct {
	ID              int64              `json:"id"`
	UserID          int64              `json:"userId"`
	SessionToken    string             `json:"sessionToken"`
	IPAddress       string             `json:"ipAddress,omitempty"`
	UserAgent       string             `json:"userAgent,omitempty"`
	DeviceInfo      string             `json:"deviceInfo,omitempty"`
	BrowserInfo     string             `json:"browserInfo,omitempty"`
	Location        string             `json:"location,omitempty"`
	LoginAt         time.Time          `json:"loginAt"`
	LastActivityAt  time.Time          `json:"lastActivityAt"`
	StatusCheckedAt time.Time          `json:"statusCheckedAt"`
	ExpiresAt       time.Time          `json:"expiresAt"`
	LogoutAt        *time.Time         `json:"logoutAt,omitempty"`
	LogoutReason    string             `json:"logoutReason,omitempty"`
	IsActive        bool               `json:"isActive"`
	RefreshCount    int                `json:"refreshCount"`
	Activities      []ActivityResponse `json:"activities"`
}

func NewActivityResponse(a *Activity) ActivityResponse {
	return ActivityResponse{
		ID:                a.ID,
		SessionID:         a.SessionID,
		ActivityType:      a.ActivityType,
		Description:       a.Description.String,
		IPAddress:         a.IPAddress.String,
		UserAgent:         a.UserAgent.String,
		ActivityTimestamp: a.ActivityTimestamp,
	}
}

func NewSessionResponse(s *Session, activities []*Activity) *SessionResponse {
	resp := &SessionResponse{
		ID:              s.ID,
		UserID:          s.UserID,
		SessionToken:    s.SessionToken,
		IPAddress:       s.IPAddress.String,
		UserAgent:       s.UserAgent.String,
		DeviceInfo:      s.DeviceInfo.String,
		BrowserInfo:     s.BrowserInfo.String,
		Location:        s.Location.String,
		LoginAt:         s.LoginAt,
		LastActivityAt:  s.LastActivityAt,
		StatusCheckedAt: s.StatusCheckedAt,
		ExpiresAt:       s.ExpiresAt,
		LogoutReason:    s.LogoutReason.String,
		IsActive:        s.IsActive,
		RefreshCount:    s.RefreshCount,
		Activities:      make([]ActivityResponse, 0, len(activities)),
	}
	if s.LogoutAt.Valid {
		at := s.LogoutAt.Time
		resp.LogoutAt = &at
	}
	for _, a := range activities {
		resp.Activities = append(resp.Activities, NewActivityResponse(a))
	}
	return resp
}
