package auth

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/sweveninteriosolutions-wq/billing-backend-updated-sub000/internal/shared"
)

// Claims are carried in every access token.
type Claims struct {
	jwt.RegisteredClaims
	UserID   int64  `json:"uid"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// Actor converts the claims to the identity mutations are attributed to.
func (c Claims) Actor() shared.Actor {
	return shared.Actor{ID: c.UserID, Username: c.Username, Role: c.Role}
}

// LoginRequest is the sign-in payload.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse is returned after a successful login.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Role        string `json:"role"`
}
