// internal/service/organisation/service.go
package organisation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"mailadmin-service/internal/domain/organisation"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/repository"

	"go.uber.org/zap"
)

var errNotFound = xerrors.New(xerrors.KindNotFound, "Organisation not found")

type OrganisationService struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewOrganisationService(store repository.Store, logger *zap.Logger) *OrganisationService {
	return &OrganisationService{store: store, logger: logger, now: time.Now}
}

// ========== Commands ==========

// Create adds an active organisation. Name and domain must be unique.
func (s *OrganisationService) Create(ctx context.Context, req *organisation.CreateOrganisationRequest) (*organisation.Organisation, error) {
	org := &organisation.Organisation{
		Name:        strings.TrimSpace(req.Name),
		Domain:      nullString(strings.ToLower(strings.TrimSpace(req.Domain))),
		Description: nullString(strings.TrimSpace(req.Description)),
		IsActive:    true,
	}

	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		if err := ensureUnique(ctx, r, org); err != nil {
			return err
		}
		return r.Organisations.Create(ctx, org)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organisation created", zap.Int64("organisation_id", org.ID), zap.String("name", org.Name))
	return org, nil
}

// Update applies the fields set in req.
func (s *OrganisationService) Update(ctx context.Context, id int64, req *organisation.UpdateOrganisationRequest) (*organisation.Organisation, error) {
	var org *organisation.Organisation
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		var err error
		org, err = find(ctx, r, id)
		if err != nil {
			return err
		}
		if req.Name != nil {
			org.Name = strings.TrimSpace(*req.Name)
		}
		if req.Domain != nil {
			org.Domain = nullString(strings.ToLower(strings.TrimSpace(*req.Domain)))
		}
		if req.Description != nil {
			org.Description = nullString(strings.TrimSpace(*req.Description))
		}
		if err := ensureUnique(ctx, r, org); err != nil {
			return err
		}
		if err := r.Organisations.Update(ctx, org); err != nil {
			return err
		}
		org, err = find(ctx, r, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("organisation updated", zap.Int64("organisation_id", id))
	return org, nil
}

// Delete removes the organisation. Its users stay and lose the reference.
func (s *OrganisationService) Delete(ctx context.Context, id int64) error {
	if err := s.store.Repos().Organisations.Delete(ctx, id); err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return errNotFound
		}
		return fmt.Errorf("failed to delete organisation: %w", err)
	}
	s.logger.Info("organisation deleted", zap.Int64("organisation_id", id))
	return nil
}

func (s *OrganisationService) Activate(ctx context.Context, id int64) (*organisation.Organisation, error) {
	return s.setActive(ctx, id, true)
}

func (s *OrganisationService) Deactivate(ctx context.Context, id int64) (*organisation.Organisation, error) {
	return s.setActive(ctx, id, false)
}

func (s *OrganisationService) setActive(ctx context.Context, id int64, active bool) (*organisation.Organisation, error) {
	var org *organisation.Organisation
	err := s.store.WithTx(ctx, func(r repository.Repositories) error {
		if err := r.Organisations.SetActive(ctx, id, active, s.now()); err != nil {
			if errors.Is(err, xerrors.ErrNotFound) {
				return errNotFound
			}
			return err
		}
		var err error
		org, err = find(ctx, r, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("organisation status changed", zap.Int64("organisation_id", id), zap.Bool("active", active))
	return org, nil
}

// ========== Queries ==========

func (s *OrganisationService) GetByID(ctx context.Context, id int64) (*organisation.Organisation, error) {
	return find(ctx, s.store.Repos(), id)
}

func (s *OrganisationService) GetByName(ctx context.Context, name string) (*organisation.Organisation, error) {
	org, err := s.store.Repos().Organisations.FindByName(ctx, strings.TrimSpace(name))
	return org, mapNotFound(err)
}

func (s *OrganisationService) GetByDomain(ctx context.Context, domain string) (*organisation.Organisation, error) {
	org, err := s.store.Repos().Organisations.FindByDomain(ctx, strings.ToLower(strings.TrimSpace(domain)))
	return org, mapNotFound(err)
}

// List returns all organisations, or only active ones, ordered by name.
func (s *OrganisationService) List(ctx context.Context, activeOnly bool) ([]*organisation.Organisation, error) {
	r := s.store.Repos()
	var (
		orgs []*organisation.Organisation
		err  error
	)
	if activeOnly {
		orgs, err = r.Organisations.ListActive(ctx)
	} else {
		orgs, err = r.Organisations.List(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list organisations: %w", err)
	}
	return orgs, nil
}

func find(ctx context.Context, r repository.Repositories, id int64) (*organisation.Organisation, error) {
	org, err := r.Organisations.FindByID(ctx, id)
	return org, mapNotFound(err)
}

func mapNotFound(err error) error {
	if err != nil && errors.Is(err, xerrors.ErrNotFound) {
		return errNotFound
	}
	return err
}

func ensureUnique(ctx context.Context, r repository.Repositories, org *organisation.Organisation) error {
	existing, err := r.Organisations.FindByName(ctx, org.Name)
	switch {
	case err == nil && existing.ID != org.ID:
		return xerrors.New(xerrors.KindConflict, "Organisation name already exists")
	case err != nil && !errors.Is(err, xerrors.ErrNotFound):
		return err
	}

	if !org.Domain.Valid {
		return nil
	}
	existing, err = r.Organisations.FindByDomain(ctx, org.Domain.String)
	switch {
	case err == nil && existing.ID != org.ID:
		return xerrors.New(xerrors.KindConflict, "Organisation domain already exists")
	case err != nil && !errors.Is(err, xerrors.ErrNotFound):
		return err
	}
	return nil
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}
