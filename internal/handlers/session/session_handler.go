// internal/handlers/session/session_handler.go
package session

import (
	"net/http"
	"strconv"

	"mailadmin-service/internal/middleware"
	xerrors "mailadmin-service/internal/pkg/errors"
	"mailadmin-service/internal/pkg/response"
	sessionUsecase "mailadmin-service/internal/service/session"

	"github.com/gin-gonic/gin"
)

type SessionHandler struct {
	sessionService *sessionUsecase.SessionService
}

func NewSessionHandler(sessionService *sessionUsecase.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

func (h *SessionHandler) GetCurrent(c *gin.Context) {
	resp, err := h.sessionService.GetCurrent(c.Request.Context(), middleware.MustGetPrincipal(c), middleware.RequestInfo(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Current session retrieved successfully", resp)
}

func (h *SessionHandler) GetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.FromError(c, xerrors.New(xerrors.KindValidation, "invalid session id"))
		return
	}

	resp, err := h.sessionService.GetByID(c.Request.Context(), middleware.MustGetPrincipal(c), id, middleware.RequestInfo(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Session retrieved successfully", resp)
}

func (h *SessionHandler) ListAll(c *gin.Context) {
	resp, err := h.sessionService.ListAll(c.Request.Context(), middleware.MustGetPrincipal(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Sessions retrieved successfully", resp)
}

func (h *SessionHandler) ListActive(c *gin.Context) {
	resp, err := h.sessionService.ListActive(c.Request.Context(), middleware.MustGetPrincipal(c), middleware.RequestInfo(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Active sessions retrieved successfully", resp)
}

func (h *SessionHandler) UpdateStatus(c *gin.Context) {
	if err := h.sessionService.UpdateStatus(c.Request.Context(), middleware.MustGetPrincipal(c), middleware.RequestInfo(c)); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, "Session status updated successfully", nil)
}
