// internal/handlers/audit/audit_handler.go
package audit

import (
	"net/http"
	"strconv"

	"mailadmin-service/internal/domain/audit"
	"mailadmin-service/internal/middleware"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/response"
	auditUsecase "mailadmin-service/internal/service/audit"

	"github.com/gin-gonic/gin"
)

type AuditHandler struct {
	auditService *auditUsecase.AuditService
}

func NewAuditHandler(auditService *auditUsecase.AuditService) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// List returns the caller's audit trail. Query: action (repeatable), entityType,
// entityId, from, to (RFC3339), limit, offset.
func (h *AuditHandler) List(c *gin.Context) {
	var q audit.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	entries, err := h.auditService.ListMine(c.Request.Context(), middleware.MustGetPrincipal(c), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Audit logs retrieved successfully", entries)
}

func (h *AuditHandler) ListForSession(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.FromError(c, xerrors.New(xerrors.KindValidation, "invalid session id"))
		return
	}

	var q audit.ListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.ValidationError(c, err)
		return
	}

	entries, err := h.auditService.ListForSession(c.Request.Context(), middleware.MustGetPrincipal(c), id, q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Audit logs retrieved successfully", entries)
}
