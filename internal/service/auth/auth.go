// internal/service/auth/auth.go
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/session"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/requestinfo"
	"mailadmin-service/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var errInvalidCredentials = xerrors.New(xerrors.KindAuthentication, "Invalid username or password")

// ========== Registration ==========

// Register creates an account and logs it in.
func (s *AuthService) Register(ctx context.Context, req *auth.RegisterRequest, info requestinfo.Info) (resp *auth.AuthResponse, err error) {
	ctx, span := s.startSpan(ctx, "auth.Register")
	defer func() { endSpan(span, err) }()

	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		exists, err := r.Users.ExistsByUsername(ctx, username)
		if err != nil {
			return err
		}
		if exists {
			return xerrors.New(xerrors.KindConflict, "Username already exists")
		}
		exists, err = r.Users.ExistsByEmail(ctx, email)
		if err != nil {
			return err
		}
		if exists {
			return xerrors.New(xerrors.KindConflict, "Email already exists")
		}

		hash, err := s.hasher.Hash(req.Password)
		if err != nil {
			return err
		}

		user := &auth.User{
			Username:     username,
			Email:        email,
			PasswordHash: hash,
			FirstName:    nullString(strings.TrimSpace(req.FirstName)),
			LastName:     nullString(strings.TrimSpace(req.LastName)),
			Phone:        nullString(strings.TrimSpace(req.Phone)),
			IsActive:     true,
		}
		if req.OrganisationID != nil {
			if _, err := r.Organisations.FindByID(ctx, *req.OrganisationID); err != nil {
				if errors.Is(err, xerrors.ErrNotFound) {
					return xerrors.New(xerrors.KindNotFound, "Organisation not found")
				}
				return err
			}
			user.OrganisationID = sql.NullInt64{Int64: *req.OrganisationID, Valid: true}
		}

		if err := r.Users.Create(ctx, user); err != nil {
			return err
		}

		now := s.now()
		if err := appendAudit(ctx, r, auditRecord{
			userID:      user.ID,
			action:      audit.ActionUserRegistered,
			entityType:  audit.EntityUser,
			entityID:    user.ID,
			description: "User registered successfully",
		}, info, now); err != nil {
			return err
		}

		resp, err = s.issueSession(ctx, r, user, info, auth.ClientDetails{}, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int64("user.id", resp.User.ID))
	s.logger.Info("user registered",
		zap.Int64("user_id", resp.User.ID),
		zap.String("username", resp.User.Username),
		zap.String("ip", info.IPAddress),
	)
	return resp, nil
}

// ========== Login ==========

// Login authenticates by username or email and opens a new session.
func (s *AuthService) Login(ctx context.Context, req *auth.LoginRequest, info requestinfo.Info) (resp *auth.AuthResponse, err error) {
	ctx, span := s.startSpan(ctx, "auth.Login")
	defer func() { endSpan(span, err) }()

	identifier := strings.TrimSpace(req.UsernameOrEmail)

	if s.limiter != nil {
		allowed, _, lerr := s.limiter.CheckLoginAttempt(ctx, info.IPAddress, identifier)
		if lerr != nil {
			s.logger.Warn("login rate limiter unavailable", zap.Error(lerr))
		} else if !allowed {
			return nil, xerrors.New(xerrors.KindRateLimited, "Too many login attempts. Please try again later")
		}
	}

	user, err := s.store.Repos().Users.FindActiveByUsernameOrEmail(ctx, identifier)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			s.logger.Info("login failed: unknown user", zap.String("ip", info.IPAddress))
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		s.logger.Info("login failed: bad password", zap.Int64("user_id", user.ID), zap.String("ip", info.IPAddress))
		return nil, errInvalidCredentials
	}

	client := auth.ClientDetails{
		DeviceInfo:  strings.TrimSpace(req.DeviceInfo),
		BrowserInfo: strings.TrimSpace(req.BrowserInfo),
		Location:    strings.TrimSpace(req.Location),
	}

	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		now := s.now()
		if err := appendAudit(ctx, r, auditRecord{
			userID:      user.ID,
			action:      audit.ActionUserLogin,
			entityType:  audit.EntityUser,
			entityID:    user.ID,
			description: "User logged in successfully",
		}, info, now); err != nil {
			return err
		}

		var err error
		resp, err = s.issueSession(ctx, r, user, info, client, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.limiter != nil {
		if rerr := s.limiter.ResetLoginAttempts(ctx, info.IPAddress, identifier); rerr != nil {
			s.logger.Warn("failed to reset login attempts", zap.Error(rerr))
		}
	}

	span.SetAttributes(attribute.Int64("user.id", user.ID), attribute.Int64("session.id", resp.Session.ID))
	s.logger.Info("user logged in",
		zap.Int64("user_id", user.ID),
		zap.Int64("session_id", resp.Session.ID),
		zap.String("ip", info.IPAddress),
	)
	return resp, nil
}

// ========== Refresh ==========

// RefreshToken exchanges the cached refresh token for a new pair bound to the same session.
func (s *AuthService) RefreshToken(ctx context.Context, req *auth.RefreshTokenRequest, info requestinfo.Info) (resp *auth.TokenResponse, err error) {
	ctx, span := s.startSpan(ctx, "auth.RefreshToken")
	defer func() { endSpan(span, err) }()

	claims, err := s.tokens.Verifier.VerifyRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		user, err := r.Users.FindActiveByUsername(ctx, claims.Username)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.New(xerrors.KindNotFound, "User not found")
			}
			return err
		}
		if user.ID != claims.UserID {
			return xerrors.New(xerrors.KindTokenInvalid, "invalid token subject")
		}

		locked, err := r.Users.LockByID(ctx, user.ID)
		if err != nil {
			return err
		}
		if !locked.RefreshToken.Valid || locked.RefreshToken.String != req.RefreshToken {
			return xerrors.New(xerrors.KindTokenMismatch, "Refresh token mismatch")
		}
		if !claims.HasSession() {
			return xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
		}

		now := s.now()
		sess, err := r.Sessions.FindActiveByID(ctx, *claims.SessionID, now)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
			}
			return err
		}
		if sess.UserID != user.ID {
			return xerrors.New(xerrors.KindForbidden, "Session does not belong to user")
		}

		count, err := r.Sessions.RecordRefresh(ctx, sess.ID, now)
		if err != nil {
			return err
		}
		if err := appendActivity(ctx, r, sess.ID, session.ActivityTokenRefreshed, "Token refreshed", info, now); err != nil {
			return err
		}
		if err := appendAudit(ctx, r, auditRecord{
			userID:      user.ID,
			sessionID:   sess.ID,
			action:      audit.ActionTokenRefreshed,
			entityType:  audit.EntitySession,
			entityID:    sess.ID,
			description: "Access token refreshed",
		}, info, now); err != nil {
			return err
		}

		pair, err := s.mintPair(user, sess.ID, count)
		if err != nil {
			return err
		}
		if err := r.Users.UpdateTokenState(ctx, user.ID, tokenState(sess.ID, pair), now); err != nil {
			return err
		}

		resp = &auth.TokenResponse{
			AccessToken:  pair.access,
			RefreshToken: pair.refresh,
			TokenType:    tokenTypeBearer,
			ExpiresIn:    s.accessTTLSeconds(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("token refreshed", zap.Int64("user_id", claims.UserID), zap.Int64("session_id", *claims.SessionID))
	return resp, nil
}

// ========== Logout ==========

// Logout ends the current session, or every session of the user when LogoutAllSessions is set.
func (s *AuthService) Logout(ctx context.Context, principal *auth.Principal, req *auth.LogoutRequest, info requestinfo.Info) (err error) {
	ctx, span := s.startSpan(ctx, "auth.Logout")
	defer func() { endSpan(span, err) }()

	if principal == nil {
		return xerrors.ErrTokenMissing
	}
	if req == nil {
		req = &auth.LogoutRequest{}
	}
	reason := strings.TrimSpace(req.LogoutReason)
	if reason == "" {
		reason = defaultLogoutReason
	}

	var revoked []int64
	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		now := s.now()
		user, err := r.Users.LockByID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.New(xerrors.KindNotFound, "User not found")
			}
			return err
		}

		if req.LogoutAllSessions {
			revoked, err = r.Sessions.DeactivateAll(ctx, user.ID, reason, now)
			if err != nil {
				return err
			}
		} else if user.CurrentSessionID.Valid {
			changed, err := r.Sessions.Deactivate(ctx, user.CurrentSessionID.Int64, reason, now)
			if err != nil && !errors.Is(err, xerrors.ErrNotFound) {
				return err
			}
			if changed {
				revoked = []int64{user.CurrentSessionID.Int64}
			}
		}

		for _, id := range revoked {
			if err := appendActivity(ctx, r, id, session.ActivityLogout, "User logged out: "+reason, info, now); err != nil {
				return err
			}
		}

		if err := r.Users.UpdateTokenState(ctx, user.ID, auth.ClearedTokenState(), now); err != nil {
			return err
		}

		var sessionID int64
		if principal.SessionID != nil {
			sessionID = *principal.SessionID
		}
		return appendAudit(ctx, r, auditRecord{
			userID:      user.ID,
			sessionID:   sessionID,
			action:      audit.ActionUserLogout,
			entityType:  audit.EntityUser,
			entityID:    user.ID,
			description: logoutDescription(req.LogoutAllSessions, len(revoked)),
		}, info, now)
	})
	if err != nil {
		return err
	}

	s.notifyRevoked(principal.UserID, revoked, reason)
	s.logger.Info("user logged out",
		zap.Int64("user_id", principal.UserID),
		zap.Bool("all_sessions", req.LogoutAllSessions),
		zap.Int64s("revoked_sessions", revoked),
	)
	return nil
}

func logoutDescription(all bool, n int) string {
	if all {
		return fmt.Sprintf("User logged out from all sessions (%d revoked)", n)
	}
	return "User logged out"
}

// ========== Profile ==========

// GetCurrentUser returns the caller's profile and records activity on the bound session.
func (s *AuthService) GetCurrentUser(ctx context.Context, principal *auth.Principal, info requestinfo.Info) (resp *auth.UserResponse, err error) {
	ctx, span := s.startSpan(ctx, "auth.GetCurrentUser")
	defer func() { endSpan(span, err) }()

	if principal == nil {
		return nil, xerrors.ErrTokenMissing
	}

	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		user, err := r.Users.FindByID(ctx, principal.UserID)
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return xerrors.New(xerrors.KindNotFound, "User not found")
			}
			return err
		}

		if principal.HasSession() {
			now := s.now()
			if _, err := requireOwnedActiveSession(ctx, r, *principal.SessionID, user.ID, now); err != nil {
				return err
			}
			if err := r.Sessions.Touch(ctx, *principal.SessionID, now); err != nil {
				return err
			}
			if err := appendActivity(ctx, r, *principal.SessionID, session.ActivityActivityCheck, "User activity checked", info, now); err != nil {
				return err
			}
		}

		orgName, err := organisationName(ctx, r, user)
		if err != nil {
			return err
		}
		out := auth.NewUserResponse(user, orgName)
		resp = &out
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *AuthService) ChangePassword(ctx context.Context, principal *auth.Principal, req *auth.ChangePasswordRequest, info requestinfo.Info) (err error) {
	ctx, span := s.startSpan(ctx, "auth.ChangePassword")
	defer func() { endSpan(span, err) }()

	if principal == nil {
		return xerrors.ErrTokenMissing
	}

	user, err := s.store.Repos().Users.FindByID(ctx, principal.UserID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.New(xerrors.KindNotFound, "User not found")
		}
		return err
	}
	if !s.hasher.Verify(req.CurrentPassword, user.PasswordHash) {
		return xerrors.New(xerrors.KindAuthentication, "Current password is incorrect")
	}
	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return err
	}

	const revokeReason = "Password changed"
	var revoked []int64
	err = s.store.WithTx(ctx, func(r repository.Repositories) error {
		now := s.now()
		if _, err := r.Users.LockByID(ctx, user.ID); err != nil {
			return err
		}
		if err := r.Users.UpdatePassword(ctx, user.ID, hash, now); err != nil {
			return err
		}

		if s.opts.RevokeSessionsOnPasswordChange {
			active, err := r.Sessions.FindActiveByUser(ctx, user.ID, now)
			if err != nil {
				return err
			}
			for _, sess := range active {
				if principal.SessionID != nil && sess.ID == *principal.SessionID {
					continue
				}
				changed, err := r.Sessions.Deactivate(ctx, sess.ID, revokeReason, now)
				if err != nil {
					return err
				}
				if !changed {
					continue
				}
				revoked = append(revoked, sess.ID)
				if err := appendActivity(ctx, r, sess.ID, session.ActivityLogout, "Session revoked after password change", info, now); err != nil {
					return err
				}
				if _, err := r.Users.ClearSessionPointer(ctx, user.ID, sess.ID, now); err != nil {
					return err
				}
			}
		}

		var sessionID int64
		if principal.SessionID != nil {
			sessionID = *principal.SessionID
		}
		return appendAudit(ctx, r, auditRecord{
			userID:      user.ID,
			sessionID:   sessionID,
			action:      audit.ActionPasswordChanged,
			entityType:  audit.EntityUser,
			entityID:    user.ID,
			description: "Password changed successfully",
		}, info, now)
	})
	if err != nil {
		return err
	}

	s.notifyRevoked(user.ID, revoked, revokeReason)
	s.logger.Info("password changed", zap.Int64("user_id", user.ID), zap.Int("revoked_sessions", len(revoked)))
	return nil
}

// ========== Token validation ==========

// ValidateToken verifies an access token and, when it names a session, that the session is still active.
func (s *AuthService) ValidateToken(ctx context.Context, token string) (*auth.Principal, error) {
	if token == "" {
		return nil, xerrors.ErrTokenMissing
	}
	claims, err := s.tokens.Verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	if claims.HasSession() {
		sess, err := s.store.Repos().Sessions.FindActiveByID(ctx, *claims.SessionID, s.now())
		if err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return nil, xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
			}
			return nil, err
		}
		if sess.UserID != claims.UserID {
			return nil, xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
		}
	}

	return &auth.Principal{
		UserID:    claims.UserID,
		Username:  claims.Username,
		SessionID: claims.SessionID,
		Token:     token,
	}, nil
}

// requireOwnedActiveSession loads a session that must be active and owned by userID.
func requireOwnedActiveSession(ctx context.Context, r repository.Repositories, sessionID, userID int64, now time.Time) (*session.Session, error) {
	sess, err := r.Sessions.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
		}
		return nil, err
	}
	if !sess.IsUsable(now) {
		return nil, xerrors.New(xerrors.KindSessionInactive, "Session not found or inactive")
	}
	if sess.UserID != userID {
		return nil, xerrors.New(xerrors.KindForbidden, "Session does not belong to user")
	}
	return sess, nil
}
