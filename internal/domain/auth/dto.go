// internal/domain/auth/dto.go
package auth

import (
	"time"

	"mailadmin-service/internal/domain/session"
)

// RegisterRequest for user registration
type RegisterRequest struct {
	Username       string `json:"username" binding:"required,min=3,max=50"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required,min=8,max=72"`
	FirstName      string `json:"firstName" binding:"max=100"`
	LastName       string `json:"lastName" binding:"max=100"`
	Phone          string `json:"phone" binding:"max=30"`
	OrganisationID *int64 `json:"organisationId"`
}

// LoginRequest accepts either a username or an email as identifier.
type LoginRequest struct {
	UsernameOrEmail string `json:"usernameOrEmail" binding:"required"`
	Password        string `json:"password" binding:"required"`
	DeviceInfo      string `json:"deviceInfo"`
	BrowserInfo     string `json:"browserInfo"`
	Location        string `json:"location"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type LogoutRequest struct {
	LogoutReason      string `json:"logoutReason"`
	LogoutAllSessions bool   `json:"logoutAllSessions"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72"`
}

// ClientDetails is the optional device description sent on login.
type ClientDetails struct {
	DeviceInfo  string
	BrowserInfo string
	Location    string
}

// UserResponse is the public view of a user
type UserResponse struct {
	ID               int64     `json:"id"`
	Username         string    `json:"username"`
	Email            string    `json:"email"`
	FirstName        string    `json:"firstName,omitempty"`
	LastName         string    `json:"lastName,omitempty"`
	Phone            string    `json:"phone,omitempty"`
	IsActive         bool      `json:"isActive"`
	IsEmailVerified  bool      `json:"isEmailVerified"`
	OrganisationID   *int64    `json:"organisationId,omitempty"`
	OrganisationName string    `json:"organisationName,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// AuthResponse is returned by register and login
type AuthResponse struct {
	AccessToken  string                   `json:"accessToken"`
	RefreshToken string                   `json:"refreshToken"`
	TokenType    string                   `json:"tokenType"`
	ExpiresIn    int64                    `json:"expiresIn"`
	User         UserResponse             `json:"user"`
	Session      *session.SessionResponse `json:"session"`
}

// TokenResponse is returned by refresh
type TokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// NewUserResponse builds the public view; orgName may be empty.
func NewUserResponse(u *User, orgName string) UserResponse {
	resp := UserResponse{
		ID:               u.ID,
		Username:         u.Username,
		Email:            u.Email,
		FirstName:        u.FirstName.String,
		LastName:         u.LastName.String,
		Phone:            u.Phone.String,
		IsActive:         u.IsActive,
		IsEmailVerified:  u.IsEmailVerified,
		OrganisationName: orgName,
		CreatedAt:        u.CreatedAt,
		UpdatedAt:        u.UpdatedAt,
	}
	if u.OrganisationID.Valid {
		id := u.OrganisationID.Int64
		resp.OrganisationID = &id
	}
	return resp
}
