package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds email/password credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// OAuthRequest starts a provider redirect flow.
type OAuthRequest struct {
	Provider   string `json:"provider" validate:"required,oneof=google github azure"`
	RedirectTo string `json:"redirect_to" validate:"omitempty,url"`
}

// OAuthCallbackRequest carries the tokens returned to the browser after the provider redirect.
type OAuthCallbackRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token"`
}

// OAuthStart is returned so the browser can navigate to the provider.
type OAuthStart struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
}

// AuthTokens is the token pair held for one browser session.
type AuthTokens struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Expired reports whether the access token should be refreshed.
func (t *AuthTokens) Expired(now time.Time) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Before(t.ExpiresAt)
}

// AccessClaims are the claims carried by auth provider access tokens.
type AccessClaims struct {
	Email        string                 `json:"email"`
	Role         string                 `json:"role"`
	UserMetadata map[string]interface{} `json:"user_metadata"`
	jwt.RegisteredClaims
}
