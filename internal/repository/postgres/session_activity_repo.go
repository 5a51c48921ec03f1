// internal/repository/postgres/session_activity_repo.go
package postgres

import (
	"context"
	"fmt"

	"mailadmin-service/internal/domain/session"
)

type ActivityRepository struct {
	db DBTX
}

func NewActivityRepository(db DBTX) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Append(ctx context.Context, a *session.Activity) error {
	query := `
		INSERT INTO session_activities (session_id, activity_type, description, ip_address, user_agent, activity_timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRow(ctx, query,
		a.SessionID, a.ActivityType, a.Description, a.IPAddress, a.UserAgent, a.ActivityTimestamp,
	).Scan(&a.ID)
	if err != nil {
		return fmt.Errorf("failed to append session activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) FindBySession(ctx context.Context, sessionID int64) ([]*session.Activity, error) {
	query := `
		SELECT id, session_id, activity_type, description, ip_address, user_agent, activity_timestamp
		FROM session_activities
		WHERE session_id = $1
		ORDER BY activity_timestamp DESC, id DESC
	`
	return r.list(ctx, query, sessionID)
}

func (r *ActivityRepository) FindBySessionAndType(ctx context.Context, sessionID int64, activityType string) ([]*session.Activity, error) {
	query := `
		SELECT id, session_id, activity_type, description, ip_address, user_agent, activity_timestamp
		FROM session_activities
		WHERE session_id = $1 AND activity_type = $2
		ORDER BY activity_timestamp DESC, id DESC
	`
	return r.list(ctx, query, sessionID, activityType)
}

func (r *ActivityRepository) list(ctx context.Context, query string, args ...any) ([]*session.Activity, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list session activities: %w", err)
	}
	defer rows.Close()

	activities := []*session.Activity{}
	for rows.Next() {
		var a session.Activity
		if err := rows.Scan(&a.ID, &a.SessionID, &a.ActivityType, &a.Description,
			&a.IPAddress, &a.UserAgent, &a.ActivityTimestamp); err != nil {
			return nil, fmt.Errorf("failed to scan session activity: %w", err)
		}
		activities = append(activities, &a)
	}
	return activities, rows.Err()
}
