// internal/domain/organisation/entity.go
package organisation

import (
	"database/sql"
	"time"
)

type Organisation struct {
	ID          int64          `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Domain      sql.NullString `json:"domain" db:"domain"`
	Description sql.NullString `json:"description" db:"description"`
	IsActive    bool           `json:"is_active" db:"is_active"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
}
