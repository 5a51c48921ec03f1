package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"mailadmin-service/internal/domain/organisation"
)

type organisationRepo struct{ *base }

func checkUnique(st *state, o *organisation.Organisation) error {
	for _, existing := range st.organisations {
		if existing.ID == o.ID {
			continue
		}
		if existing.Name == o.Name {
			return conflict("duplicate value violates organisations_name_key")
		}
		if o.Domain.Valid && existing.Domain.Valid && strings.EqualFold(existing.Domain.String, o.Domain.String) {
			return conflict("duplicate value violates organisations_domain_key")
		}
	}
	return nil
}

func (r *organisationRepo) Create(ctx context.Context, o *organisation.Organisation) error {
	return r.do(ctx, func(st *state) error {
		if err := checkUnique(st, o); err != nil {
			return err
		}
		st.nextOrgID++
		now := r.store.now()
		o.ID = st.nextOrgID
		o.CreatedAt = now
		o.UpdatedAt = now
		v := *o
		st.organisations[o.ID] = &v
		return nil
	})
}

func (r *organisationRepo) find(ctx context.Context, match func(o *organisation.Organisation) bool) (*organisation.Organisation, error) {
	var found *organisation.Organisation
	err := r.do(ctx, func(st *state) error {
		for _, o := range st.organisations {
			if match(o) {
				v := *o
				found = &v
				return nil
			}
		}
		return notFound("Organisation not found")
	})
	return found, err
}

func (r *organisationRepo) FindByID(ctx context.Context, id int64) (*organisation.Organisation, error) {
	return r.find(ctx, func(o *organisation.Organisation) bool { return o.ID == id })
}

func (r *organisationRepo) FindByName(ctx context.Context, name string) (*organisation.Organisation, error) {
	return r.find(ctx, func(o *organisation.Organisation) bool { return o.Name == name })
}

func (r *organisationRepo) FindByDomain(ctx context.Context, domain string) (*organisation.Organisation, error) {
	return r.find(ctx, func(o *organisation.Organisation) bool {
		return o.Domain.Valid && strings.EqualFold(o.Domain.String, domain)
	})
}

func (r *organisationRepo) list(ctx context.Context, activeOnly bool) ([]*organisation.Organisation, error) {
	out := []*organisation.Organisation{}
	err := r.do(ctx, func(st *state) error {
		for _, o := range st.organisations {
			if !activeOnly || o.IsActive {
				v := *o
				out = append(out, &v)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, err
}

func (r *organisationRepo) List(ctx context.Context) ([]*organisation.Organisation, error) {
	return r.list(ctx, false)
}

func (r *organisationRepo) ListActive(ctx context.Context) ([]*organisation.Organisation, error) {
	return r.list(ctx, true)
}

func (r *organisationRepo) Update(ctx context.Context, o *organisation.Organisation) error {
	return r.do(ctx, func(st *state) error {
		existing, ok := st.organisations[o.ID]
		if !ok {
			return notFound("Organisation not found")
		}
		if err := checkUnique(st, o); err != nil {
			return err
		}
		existing.Name = o.Name
		existing.Domain = o.Domain
		existing.Description = o.Description
		existing.UpdatedAt = r.store.now()
		o.UpdatedAt = existing.UpdatedAt
		return nil
	})
}

func (r *organisationRepo) SetActive(ctx context.Context, id int64, active bool, now time.Time) error {
	return r.do(ctx, func(st *state) error {
		o, ok := st.organisations[id]
		if !ok {
			return notFound("Organisation not found")
		}
		o.IsActive = active
		o.UpdatedAt = now
		return nil
	})
}

// Delete removes the organisation and detaches its users.
func (r *organisationRepo) Delete(ctx context.Context, id int64) error {
	return r.do(ctx, func(st *state) error {
		if _, ok := st.organisations[id]; !ok {
			return notFound("Organisation not found")
		}
		delete(st.organisations, id)
		for _, u := range st.users {
			if u.OrganisationID.Valid && u.OrganisationID.Int64 == id {
				u.OrganisationID.Valid = false
				u.OrganisationID.Int64 = 0
			}
		}
		return nil
	})
}
