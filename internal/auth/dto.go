package auth

import (
	"github.com/angelmondragon/carrental-backend/internal/users"
	"github.com/angelmondragon/carrental-backend/pkg/enums"
)

// LoginRequest captures the user credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest pairs the presented (possibly expired) access token with its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"-"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RegisterRequest is the self-service signup payload. Accounts are always customers.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// AdminRegisterRequest creates a user with an explicit role outside production.
type AdminRegisterRequest struct {
	Email    string     `json:"email" validate:"required,email,max=255"`
	Password string     `json:"password" validate:"required,max=128"`
	Role     enums.Role `json:"role" validate:"required"`
}

// TokenPair is returned by login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// LoginResponse contains the tokens and the authenticated user.
type LoginResponse struct {
	TokenPair
	User *users.UserDTO `json:"user"`
}
