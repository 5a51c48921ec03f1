// internal/handlers/organisation/organisation_handler.go
package organisation

import (
	"net/http"
	"strconv"

	"mailadmin-service/internal/domain/organisation"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/response"
	orgUsecase "mailadmin-service/internal/service/organisation"

	"github.com/gin-gonic/gin"
)

type OrganisationHandler struct {
	orgService *orgUsecase.OrganisationService
}

func NewOrganisationHandler(orgService *orgUsecase.OrganisationService) *OrganisationHandler {
	return &OrganisationHandler{orgService: orgService}
}

// ========== Commands ==========

func (h *OrganisationHandler) Create(c *gin.Context) {
	var req organisation.CreateOrganisationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	org, err := h.orgService.Create(c.Request.Context(), &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, "Organisation created successfully", organisation.NewOrganisationResponse(org))
}

func (h *OrganisationHandler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req organisation.UpdateOrganisationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), id, &req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisation updated successfully", organisation.NewOrganisationResponse(org))
}

func (h *OrganisationHandler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.orgService.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisation deleted successfully", nil)
}

func (h *OrganisationHandler) Activate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	org, err := h.orgService.Activate(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisation activated successfully", organisation.NewOrganisationResponse(org))
}

func (h *OrganisationHandler) Deactivate(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	org, err := h.orgService.Deactivate(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisation deactivated successfully", organisation.NewOrganisationResponse(org))
}

// ========== Queries ==========

func (h *OrganisationHandler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	org, err := h.orgService.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisation retrieved successfully", organisation.NewOrganisationResponse(org))
}

// List returns organisations. ?active=true restricts to active ones; ?name= or
// ?domain= look up a single organisation.
func (h *OrganisationHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	if name := c.Query("name"); name != "" {
		org, err := h.orgService.GetByName(ctx, name)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, "Organisation retrieved successfully", organisation.NewOrganisationResponse(org))
		return
	}
	if domain := c.Query("domain"); domain != "" {
		org, err := h.orgService.GetByDomain(ctx, domain)
		if err != nil {
			response.FromError(c, err)
			return
		}
		response.Success(c, http.StatusOK, "Organisation retrieved successfully", organisation.NewOrganisationResponse(org))
		return
	}

	activeOnly, _ := strconv.ParseBool(c.DefaultQuery("active", "false"))
	orgs, err := h.orgService.List(ctx, activeOnly)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Organisations retrieved successfully", organisation.NewOrganisationResponses(orgs))
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.FromError(c, xerrors.New(xerrors.KindValidation, "invalid organisation id"))
		return 0, false
	}
	return id, true
}
