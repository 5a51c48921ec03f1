// Package memory is an in-process repository.Store used by tests and by the
// development server when no database is configured.
package memory

import (
	"context"
	"sync"
	"time"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/domain/organisation"
	"mailadmin-service/internal/domain/session"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/repository"
)

type state struct {
	users         map[int64]*auth.User
	sessions      map[int64]*session.Session
	activities    []*session.Activity
	audit         []*audit.Entry
	organisations map[int64]*organisation.Organisation

	nextUserID     int64
	nextSessionID  int64
	nextActivityID int64
	nextAuditID    int64
	nextOrgID      int64
}

func newState() *state {
	return &state{
		users:         map[int64]*auth.User{},
		sessions:      map[int64]*session.Session{},
		organisations: map[int64]*organisation.Organisation{},
	}
}

func (s *state) clone() *state {
	cp := *s
	cp.users = make(map[int64]*auth.User, len(s.users))
	for id, u := range s.users {
		v := *u
		cp.users[id] = &v
	}
	cp.sessions = make(map[int64]*session.Session, len(s.sessions))
	for id, ss := range s.sessions {
		v := *ss
		cp.sessions[id] = &v
	}
	cp.organisations = make(map[int64]*organisation.Organisation, len(s.organisations))
	for id, o := range s.organisations {
		v := *o
		cp.organisations[id] = &v
	}
	cp.activities = append([]*session.Activity(nil), s.activities...)
	cp.audit = append([]*audit.Entry(nil), s.audit...)
	return &cp
}

// Store keeps all data in memory. One mutex serialises every transaction,
// which gives the same guarantees as the row lock in postgres.
type Store struct {
	mu  sync.Mutex
	st  *state
	now func() time.Time
}

func NewStore() *Store {
	return &Store{st: newState(), now: time.Now}
}

// SetClock replaces the time source used for created/updated stamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// Repos returns repositories where each call is its own transaction.
func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

// WithTx holds the store lock for the whole of fn and restores the previous
// state when fn fails or panics.
func (s *Store) WithTx(ctx context.Context, fn func(r repository.Repositories) error) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.st.clone()
	defer func() {
		if p := recover(); p != nil {
			s.st = snapshot
			panic(p)
		}
		if err != nil {
			s.st = snapshot
		}
	}()

	return fn(s.repos(true))
}

func (s *Store) repos(inTx bool) repository.Repositories {
	b := &base{store: s, inTx: inTx}
	return repository.Repositories{
		Users:         &userRepo{b},
		Sessions:      &sessionRepo{b},
		Activities:    &activityRepo{b},
		Audit:         &auditRepo{b},
		Organisations: &organisationRepo{b},
	}
}

type base struct {
	store *Store
	inTx  bool
}

// do runs fn against the live state, taking the lock unless a transaction already holds it.
func (b *base) do(ctx context.Context, fn func(st *state) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	return fn(b.store.st)
}

func notFound(message string) error {
	return xerrors.WithKind(xerrors.KindNotFound, message, xerrors.ErrNotFound)
}

func conflict(message string) error {
	return xerrors.WithKind(xerrors.KindConflict, message, xerrors.ErrConflict)
}

var _ repository.Store = (*Store)(nil)
