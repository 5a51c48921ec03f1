// internal/handlers/auth/auth_handler.go
package auth

import (
	"errors"
	"io"
	"net/http"

	"mailadmin-service/internal/domain/auth"
	"mailadmin-service/internal/middleware"
	"mailadmin-service/internal/pkg/response"
	authUsecase "mailadmin-service/internal/service/auth"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *authUsecase.AuthService
	logger      *zap.Logger
}

func NewAuthHandler(authService *authUsecase.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// ========== Registration ==========

// Register handles user registration (public endpoint)
func (h *AuthHandler) Register(c *gin.Context) {
	var req auth.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	resp, err := h.authService.Register(c.Request.Context(), &req, middleware.RequestInfo(c))
	if err != nil {
		h.logger.Warn("registration failed", zap.String("username", req.Username), zap.Error(err))
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "User registered successfully", resp)
}

// ========== Login ==========

func (h *AuthHandler) Login(c *gin.Context) {
	var req auth.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	resp, err := h.authService.Login(c.Request.Context(), &req, middleware.RequestInfo(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Login successful", resp)
}

// RefreshToken exchanges a refresh token for a new pair (public endpoint)
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req auth.RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	resp, err := h.authService.RefreshToken(c.Request.Context(), &req, middleware.RequestInfo(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Token refreshed successfully", resp)
}

// ========== Logout ==========

// Logout ends the current session. The body is optional.
func (h *AuthHandler) Logout(c *gin.Context) {
	var req auth.LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.ValidationError(c, err)
		return
	}

	principal := middleware.MustGetPrincipal(c)
	if err := h.authService.Logout(c.Request.Context(), principal, &req, middleware.RequestInfo(c)); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Logout successful", nil)
}

// ========== Profile ==========

func (h *AuthHandler) GetMe(c *gin.Context) {
	principal := middleware.MustGetPrincipal(c)

	user, err := h.authService.GetCurrentUser(c.Request.Context(), principal, middleware.RequestInfo(c))
	if err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "User retrieved successfully", user)
}

func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req auth.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ValidationError(c, err)
		return
	}

	principal := middleware.MustGetPrincipal(c)
	if err := h.authService.ChangePassword(c.Request.Context(), principal, &req, middleware.RequestInfo(c)); err != nil {
		response.FromError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Password changed successfully", nil)
}
