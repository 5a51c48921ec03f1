// internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/organisation"
	"mailadmin-service/internal/domain/session"
)

// UserRepository persists accounts and their session pointer.
type UserRepository interface {
	Create(ctx context.Context, u *auth.User) error
	FindByID(ctx context.Context, id int64) (*auth.User, error)
	FindActiveByUsername(ctx context.Context, username string) (*auth.User, error)
	FindActiveByUsernameOrEmail(ctx context.Context, identifier string) (*auth.User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// LockByID loads the user and holds its row until the surrounding transaction ends.
	LockByID(ctx context.Context, id int64) (*auth.User, error)
	UpdateTokenState(ctx context.Context, id int64, state auth.TokenState, now time.Time) error
	UpdatePassword(ctx context.Context, id int64, hash string, now time.Time) error
	// ClearSessionPointer drops pointer and cached tokens only if the pointer names sessionID.
	ClearSessionPointer(ctx context.Context, userID, sessionID int64, now time.Time) (bool, error)
}

// SessionRepository is the session store. Lookups return xerrors.ErrNotFound when nothing matches.
type SessionRepository interface {
	Create(ctx context.Context, s *session.Session) error
	FindByID(ctx context.Context, id int64) (*session.Session, error)
	FindActiveByID(ctx context.Context, id int64, now time.Time) (*session.Session, error)
	FindActiveByToken(ctx context.Context, token string, now time.Time) (*session.Session, error)
	FindAllByUser(ctx context.Context, userID int64) ([]*session.Session, error)
	FindActiveByUser(ctx context.Context, userID int64, now time.Time) ([]*session.Session, error)
	Deactivate(ctx context.Context, id int64, reason string, at time.Time) (bool, error)
	DeactivateAll(ctx context.Context, userID int64, reason string, at time.Time) ([]int64, error)
	Touch(ctx context.Context, id int64, now time.Time) error
	RecordRefresh(ctx context.Context, id int64, now time.Time) (int, error)
	FindExpired(ctx context.Context, now time.Time) ([]*session.Session, error)
}

type ActivityRepository interface {
	Append(ctx context.Context, a *session.Activity) error
	FindBySession(ctx context.Context, sessionID int64) ([]*session.Activity, error)
	FindBySessionAndType(ctx context.Context, sessionID int64, activityType string) ([]*session.Activity, error)
}

type AuditRepository interface {
	Append(ctx context.Context, e *audit.Entry) error
	FindByUser(ctx context.Context, userID int64) ([]*audit.Entry, error)
	FindBySession(ctx context.Context, sessionID int64) ([]*audit.Entry, error)
	FindByAction(ctx context.Context, action string) ([]*audit.Entry, error)
	FindByEntity(ctx context.Context, entityType string, entityID int64) ([]*audit.Entry, error)
	FindByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Entry, error)
	Search(ctx context.Context, f audit.Filter) ([]*audit.Entry, error)
}

type OrganisationRepository interface {
	Create(ctx context.Context, o *organisation.Organisation) error
	FindByID(ctx context.Context, id int64) (*organisation.Organisation, error)
	FindByName(ctx context.Context, name string) (*organisation.Organisation, error)
	FindByDomain(ctx context.Context, domain string) (*organisation.Organisation, error)
	List(ctx context.Context) ([]*organisation.Organisation, error)
	ListActive(ctx context.Context) ([]*organisation.Organisation, error)
	Update(ctx context.Context, o *organisation.Organisation) error
	SetActive(ctx context.Context, id int64, active bool, now time.Time) error
	Delete(ctx context.Context, id int64) error
}

// Repositories is one consistent view of the data, either pooled or bound to a transaction.
type Repositories struct {
	Users         UserRepository
	Sessions      SessionRepository
	Activities    ActivityRepository
	Audit         AuditRepository
	Organisations OrganisationRepository
}

// Store hands out repositories and runs units of work atomically.
type Store interface {
	Repos() Repositories
	// WithTx runs fn in one transaction. Any error from fn rolls everything back.
	WithTx(ctx context.Context, fn func(r Repositories) error) error
}
