// internal/service/auth/issuance.go
package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/session"
	"mailadmin-service/internal/pkg/jwt"
	"mailadmin-service/internal/pkg/requestinfo"
	"mailadmin-service/internal/repository"

	"github.com/google/uuid"
)

type tokenPair struct {
	access  string
	refresh string
}

// issueSession opens a new session for user and makes it the current one.
// It must run inside the caller's transaction.
func (s *AuthService) issueSession(
	ctx context.Context,
	r repository.Repositories,
	user *auth.User,
	info requestinfo.Info,
	client auth.ClientDetails,
	now time.Time,
) (*auth.AuthResponse, error) {
	if _, err := r.Users.LockByID(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("failed to lock user: %w", err)
	}

	sess := &session.Session{
		UserID:          user.ID,
		SessionToken:    uuid.NewString(),
		IPAddress:       nullString(info.IPAddress),
		UserAgent:       nullString(info.UserAgent),
		DeviceInfo:      nullString(client.DeviceInfo),
		BrowserInfo:     nullString(client.BrowserInfo),
		Location:        nullString(client.Location),
		LoginAt:         now,
		LastActivityAt:  now,
		StatusCheckedAt: now,
		ExpiresAt:       now.Add(s.tokens.Generator.RefreshTTL),
	}
	if err := r.Sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	if err := appendActivity(ctx, r, sess.ID, session.ActivitySessionCreated, "Session created on login", info, now); err != nil {
		return nil, err
	}
	if err := appendAudit(ctx, r, auditRecord{
		userID:      user.ID,
		sessionID:   sess.ID,
		action:      audit.ActionSessionCreated,
		entityType:  audit.EntitySession,
		entityID:    sess.ID,
		description: "New session created",
	}, info, now); err != nil {
		return nil, err
	}

	pair, err := s.mintPair(user, sess.ID, 0)
	if err != nil {
		return nil, err
	}
	if err := r.Users.UpdateTokenState(ctx, user.ID, tokenState(sess.ID, pair), now); err != nil {
		return nil, fmt.Errorf("failed to store token state: %w", err)
	}

	activities, err := r.Activities.FindBySession(ctx, sess.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session activities: %w", err)
	}
	orgName, err := organisationName(ctx, r, user)
	if err != nil {
		return nil, err
	}

	return &auth.AuthResponse{
		AccessToken:  pair.access,
		RefreshToken: pair.refresh,
		TokenType:    tokenTypeBearer,
		ExpiresIn:    s.accessTTLSeconds(),
		User:         auth.NewUserResponse(user, orgName),
		Session:      session.NewSessionResponse(sess, activities),
	}, nil
}

// mintPair signs an access and refresh token bound to the session. gen is the
// session refresh count, which keeps a refreshed pair distinct from the one it replaces.
func (s *AuthService) mintPair(user *auth.User, sessionID int64, gen int) (tokenPair, error) {
	sid := sessionID
	sub := jwt.Subject{UserID: user.ID, Username: user.Username, SessionID: &sid, Generation: gen}

	access, _, err := s.tokens.Generator.GenerateAccessToken(sub)
	if err != nil {
		return tokenPair{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	refresh, _, err := s.tokens.Generator.GenerateRefreshToken(sub)
	if err != nil {
		return tokenPair{}, fmt.Errorf("failed to generate refresh token: %w", err)
	}
	return tokenPair{access: access, refresh: refresh}, nil
}

func (s *AuthService) accessTTLSeconds() int64 {
	return int64(s.tokens.Generator.AccessTTL / time.Second)
}

func tokenState(sessionID int64, pair tokenPair) auth.TokenState {
	return auth.TokenState{
		CurrentSessionID: sql.NullInt64{Int64: sessionID, Valid: true},
		AccessToken:      sql.NullString{String: pair.access, Valid: true},
		RefreshToken:     sql.NullString{String: pair.refresh, Valid: true},
	}
}

type auditRecord struct {
	userID      int64
	sessionID   int64
	action      string
	entityType  string
	entityID    int64
	description string
}

func appendAudit(ctx context.Context, r repository.Repositories, rec auditRecord, info requestinfo.Info, now time.Time) error {
	entry := &audit.Entry{
		UserID:        nullInt(rec.userID),
		SessionID:     nullInt(rec.sessionID),
		Action:        rec.action,
		EntityType:    nullString(rec.entityType),
		EntityID:      nullInt(rec.entityID),
		Description:   nullString(rec.description),
		IPAddress:     nullString(info.IPAddress),
		UserAgent:     nullString(info.UserAgent),
		RequestMethod: nullString(info.Method),
		RequestURL:    nullString(info.URL),
		Timestamp:     now,
	}
	if err := r.Audit.Append(ctx, entry); err != nil {
		return fmt.Errorf("failed to write audit log: %w", err)
	}
	return nil
}

func appendActivity(ctx context.Context, r repository.Repositories, sessionID int64, kind, description string, info requestinfo.Info, now time.Time) error {
	a := &session.Activity{
		SessionID:         sessionID,
		ActivityType:      kind,
		Description:       nullString(description),
		IPAddress:         nullString(info.IPAddress),
		UserAgent:         nullString(info.UserAgent),
		ActivityTimestamp: now,
	}
	if err := r.Activities.Append(ctx, a); err != nil {
		return fmt.Errorf("failed to record session activity: %w", err)
	}
	return nil
}

func organisationName(ctx context.Context, r repository.Repositories, user *auth.User) (string, error) {
	if !user.OrganisationID.Valid {
		return "", nil
	}
	org, err := r.Organisations.FindByID(ctx, user.OrganisationID.Int64)
	if err != nil {
		return "", fmt.Errorf("failed to load organisation: %w", err)
	}
	return org.Name, nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func nullInt(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
