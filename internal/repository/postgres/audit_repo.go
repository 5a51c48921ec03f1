// internal/repository/postgres/audit_repo.go
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mailadmin-service/internal/domain/audit"

	"github.com/lib/pq"
)

type AuditRepository struct {
	db DBTX
}

func NewAuditRepository(db DBTX) *AuditRepository {
	return &AuditRepository{db: db}
}

const auditColumns = `
	id, user_id, session_id, action, entity_type, entity_id, description,
	ip_address, user_agent, request_method, request_url, timestamp`

// Append writes an entry. Entries are never updated afterwards.
func (r *AuditRepository) Append(ctx context.Context, e *audit.Entry) error {
	query := `
		INSERT INTO audit_logs (user_id, session_id, action, entity_type, entity_id, description,
		                        ip_address, user_agent, request_method, request_url, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		e.UserID, e.SessionID, e.Action, e.EntityType, e.EntityID, e.Description,
		e.IPAddress, e.UserAgent, e.RequestMethod, e.RequestURL, e.Timestamp,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("failed to append audit log: %w", err)
	}
	return nil
}

func (r *AuditRepository) FindByUser(ctx context.Context, userID int64) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{UserID: &userID})
}

func (r *AuditRepository) FindBySession(ctx context.Context, sessionID int64) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{SessionID: &sessionID})
}

func (r *AuditRepository) FindByAction(ctx context.Context, action string) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{Actions: []string{action}})
}

func (r *AuditRepository) FindByEntity(ctx context.Context, entityType string, entityID int64) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{EntityType: entityType, EntityID: &entityID})
}

func (r *AuditRepository) FindByDateRange(ctx context.Context, from, to time.Time) ([]*audit.Entry, error) {
	return r.Search(ctx, audit.Filter{From: &from, To: &to})
}

// Search builds the WHERE clause from the non-zero filter fields. Results are newest first.
func (r *AuditRepository) Search(ctx context.Context, f audit.Filter) ([]*audit.Entry, error) {
	conditions := []string{"1=1"}
	args := []any{}
	argPos := 1

	if f.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", argPos))
		args = append(args, *f.UserID)
		argPos++
	}
	if f.SessionID != nil {
		conditions = append(conditions, fmt.Sprintf("session_id = $%d", argPos))
		args = append(args, *f.SessionID)
		argPos++
	}
	if len(f.Actions) > 0 {
		conditions = append(conditions, fmt.Sprintf("action = ANY($%d)", argPos))
		args = append(args, pq.Array(f.Actions))
		argPos++
	}
	if f.EntityType != "" {
		conditions = append(conditions, fmt.Sprintf("entity_type = $%d", argPos))
		args = append(args, f.EntityType)
		argPos++
	}
	if f.EntityID != nil {
		conditions = append(conditions, fmt.Sprintf("entity_id = $%d", argPos))
		args = append(args, *f.EntityID)
		argPos++
	}
	if f.From != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp >= $%d", argPos))
		args = append(args, *f.From)
		argPos++
	}
	if f.To != nil {
		conditions = append(conditions, fmt.Sprintf("timestamp <= $%d", argPos))
		args = append(args, *f.To)
		argPos++
	}

	query := fmt.Sprintf(`SELECT %s FROM audit_logs WHERE %s ORDER BY timestamp DESC, id DESC`,
		auditColumns, strings.Join(conditions, " AND "))

	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argPos, argPos+1)
		args = append(args, f.Limit, f.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search audit logs: %w", err)
	}
	defer rows.Close()

	entries := []*audit.Entry{}
	for rows.Next() {
		var e audit.Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.SessionID, &e.Action, &e.EntityType, &e.EntityID,
			&e.Description, &e.IPAddress, &e.UserAgent, &e.RequestMethod, &e.RequestURL, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit log: %w", err)
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
