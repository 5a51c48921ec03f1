// internal/repository/postgres/db.go
package postgres

import (
	"context"
	"errors"
	"fmt"

	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/repository"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the query surface shared by *pgxpool.Pool, pgx.Tx and pgxmock.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Pool is a DBTX that can also open transactions.
type Pool interface {
	DBTX
	Begin(ctx context.Context) (pgx.Tx, error)
}

type DB struct {
	pool Pool
}

func NewDB(pool Pool) *DB {
	return &DB{pool: pool}
}

func (db *DB) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return db.pool.Begin(ctx)
}

// Repos returns repositories running directly on the pool.
func (db *DB) Repos() repository.Repositories {
	return newRepositories(db.pool)
}

// WithTx runs fn inside a transaction, committing on success and rolling back
// on error or panic. Panics are rethrown after the rollback.
func (db *DB) WithTx(ctx context.Context, fn func(r repository.Repositories) error) (err error) {
	tx, err := db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback(ctx)
			return
		}
		if cerr := tx.Commit(ctx); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	err = fn(newRepositories(tx))
	return err
}

func newRepositories(q DBTX) repository.Repositories {
	return repository.Repositories{
		Users:         NewUserRepository(q),
		Sessions:      NewSessionRepository(q),
		Activities:    NewActivityRepository(q),
		Audit:         NewAuditRepository(q),
		Organisations: NewOrganisationRepository(q),
	}
}

var _ repository.Store = (*DB)(nil)

const uniqueViolation = "23505"

type rowScanner interface {
	Scan(dest ...any) error
}

// mapErr turns driver errors into domain errors. notFound is the message used for pgx.ErrNoRows.
func mapErr(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return notFoundErr(notFound)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return xerrors.WithKind(xerrors.KindConflict, "duplicate value violates "+pgErr.ConstraintName, err).
			WithDetails(map[string]string{"constraint": pgErr.ConstraintName})
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func notFoundErr(message string) error {
	return xerrors.WithKind(xerrors.KindNotFound, message, xerrors.ErrNotFound)
}
