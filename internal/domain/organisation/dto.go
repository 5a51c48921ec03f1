// internal/domain/organisation/dto.go
package organisation

import "time"

type CreateOrganisationRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Domain      string `json:"domain" binding:"omitempty,fqdn"`
	Description string `json:"description" binding:"max=500"`
}

// UpdateOrganisationRequest only touches the fields that are set.
type UpdateOrganisationRequest struct {
	Name        *string `json:"name" binding:"omitempty,min=2,max=100"`
	Domain      *string `json:"domain" binding:"omitempty,fqdn"`
	Description *string `json:"description" binding:"omitempty,max=500"`
}

type OrganisationResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Domain      string    `json:"domain,omitempty"`
	Description string    `json:"description,omitempty"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func NewOrganisationResponse(o *Organisation) *OrganisationResponse {
	return &OrganisationResponse{
		ID:          o.ID,
		Name:        o.Name,
		Domain:      o.Domain.String,
		Description: o.Description.String,
		IsActive:    o.IsActive,
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
}

func NewOrganisationResponses(orgs []*Organisation) []*OrganisationResponse {
	out := make([]*OrganisationResponse, 0, len(orgs))
	for _, o := range orgs {
		out = append(out, NewOrganisationResponse(o))
	}
	return out
}
