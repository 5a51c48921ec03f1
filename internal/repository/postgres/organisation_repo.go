// internal/repository/postgres/organisation_repo.go
package postgres

import (
	"context"
	"fmt"
	"time"

	"mailadmin-service/internal/domain/organisation"
)

type OrganisationRepository struct {
	db DBTX
}

func NewOrganisationRepository(db DBTX) *OrganisationRepository {
	return &OrganisationRepository{db: db}
}

const organisationColumns = `id, name, domain, description, is_active, created_at, updated_at`

func scanOrganisation(row rowScanner) (*organisation.Organisation, error) {
	var o organisation.Organisation
	if err := row.Scan(&o.ID, &o.Name, &o.Domain, &o.Description, &o.IsActive, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrganisationRepository) Create(ctx context.Context, o *organisation.Organisation) error {
	query := `
		INSERT INTO organisations (name, domain, description, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query, o.Name, o.Domain, o.Description, o.IsActive).
		Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	return mapErr(err, "Organisation not found", "create organisation")
}

func (r *OrganisationRepository) findOne(ctx context.Context, where string, arg any) (*organisation.Organisation, error) {
	query := fmt.Sprintf(`SELECT %s FROM organisations WHERE %s`, organisationColumns, where)
	o, err := scanOrganisation(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, mapErr(err, "Organisation not found", "find organisation")
	}
	return o, nil
}

func (r *OrganisationRepository) FindByID(ctx context.Context, id int64) (*organisation.Organisation, error) {
	return r.findOne(ctx, "id = $1", id)
}

func (r *OrganisationRepository) FindByName(ctx context.Context, name string) (*organisation.Organisation, error) {
	return r.findOne(ctx, "name = $1", name)
}

func (r *OrganisationRepository) FindByDomain(ctx context.Context, domain string) (*organisation.Organisation, error) {
	return r.findOne(ctx, "LOWER(domain) = LOWER($1)", domain)
}

func (r *OrganisationRepository) List(ctx context.Context) ([]*organisation.Organisation, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM organisations ORDER BY name`, organisationColumns))
}

func (r *OrganisationRepository) ListActive(ctx context.Context) ([]*organisation.Organisation, error) {
	return r.list(ctx, fmt.Sprintf(`SELECT %s FROM organisations WHERE is_active = TRUE ORDER BY name`, organisationColumns))
}

func (r *OrganisationRepository) list(ctx context.Context, query string) ([]*organisation.Organisation, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list organisations: %w", err)
	}
	defer rows.Close()

	orgs := []*organisation.Organisation{}
	for rows.Next() {
		o, err := scanOrganisation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan organisation: %w", err)
		}
		orgs = append(orgs, o)
	}
	return orgs, rows.Err()
}

func (r *OrganisationRepository) Update(ctx context.Context, o *organisation.Organisation) error {
	query := `
		UPDATE organisations
		SET name = $1, domain = $2, description = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query, o.Name, o.Domain, o.Description, o.ID).Scan(&o.UpdatedAt)
	return mapErr(err, "Organisation not found", "update organisation")
}

func (r *OrganisationRepository) SetActive(ctx context.Context, id int64, active bool, now time.Time) error {
	tag, err := r.db.Exec(ctx, `UPDATE organisations SET is_active = $1, updated_at = $2 WHERE id = $3`, active, now, id)
	if err != nil {
		return fmt.Errorf("failed to update organisation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("Organisation not found")
	}
	return nil
}

func (r *OrganisationRepository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM organisations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organisation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundErr("Organisation not found")
	}
	return nil
}
