package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/supabase-community/gotrue-go"
	"github.com/supabase-community/gotrue-go/types"

	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/pkg/config"
)

// APIError is a non-2xx reply from the hosted backend.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"error"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Code
	}
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, msg)
}

// IsAuthRejection reports whether err is the provider refusing credentials or tokens.
func IsAuthRejection(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden
}

// GoTrue wraps the hosted auth API client with request contexts and typed errors.
type GoTrue struct {
	api       gotrue.Client
	http      *http.Client
	baseURL   string
	jwtSecret []byte
	now       func() time.Time
}

// NewGoTrue builds a client for {url}/auth/v1.
func NewGoTrue(cfg config.BackendConfig, client *http.Client) *GoTrue {
	if client == nil {
		client = http.DefaultClient
	}
	var secret []byte
	if cfg.JWTSecret != "" {
		secret = []byte(cfg.JWTSecret)
	}
	baseURL := strings.TrimRight(cfg.URL, "/") + "/auth/v1"
	return &GoTrue{
		api:       gotrue.New("", cfg.AnonKey).WithCustomGoTrueURL(baseURL),
		http:      client,
		baseURL:   baseURL,
		jwtSecret: secret,
		now:       time.Now,
	}
}

// with returns an API client whose requests carry ctx and, if set, the bearer token.
func (g *GoTrue) with(ctx context.Context, bearer string) gotrue.Client {
	base := g.http.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	c := g.api.WithClient(http.Client{
		Transport: contextTransport{ctx: ctx, base: base},
		Jar:       g.http.Jar,
		Timeout:   g.http.Timeout,
	})
	if bearer != "" {
		c = c.WithToken(bearer)
	}
	return c
}

func principalOf(u types.User) *models.Principal {
	if u.ID == uuid.Nil {
		return nil
	}
	return &models.Principal{ID: u.ID.String(), Email: u.Email, Metadata: u.UserMetadata}
}

func tokensOf(s types.Session, now time.Time) *models.AuthTokens {
	tokens := &models.AuthTokens{AccessToken: s.AccessToken, RefreshToken: s.RefreshToken}
	switch {
	case s.ExpiresAt > 0:
		tokens.ExpiresAt = time.Unix(s.ExpiresAt, 0)
	case s.ExpiresIn > 0:
		tokens.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
	return tokens
}

// PasswordGrant exchanges email and password for a token pair.
func (g *GoTrue) PasswordGrant(ctx context.Context, email, password string) (*models.Principal, *models.AuthTokens, error) {
	resp, err := g.with(ctx, "").SignInWithEmailPassword(email, password)
	if err != nil {
		return nil, nil, authError("password grant", err)
	}
	return principalOf(resp.User), tokensOf(resp.Session, g.now()), nil
}

// RefreshGrant exchanges a refresh token for a new token pair.
func (g *GoTrue) RefreshGrant(ctx context.Context, refreshToken string) (*models.Principal, *models.AuthTokens, error) {
	resp, err := g.with(ctx, "").RefreshToken(refreshToken)
	if err != nil {
		return nil, nil, authError("refresh grant", err)
	}
	return principalOf(resp.User), tokensOf(resp.Session, g.now()), nil
}

// User fetches the principal that owns an access token.
func (g *GoTrue) User(ctx context.Context, accessToken string) (*models.Principal, error) {
	resp, err := g.with(ctx, accessToken).GetUser()
	if err != nil {
		return nil, authError("get user", err)
	}
	p := principalOf(resp.User)
	if p == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "token has no subject"}
	}
	return p, nil
}

// Logout revokes the refresh tokens behind an access token.
func (g *GoTrue) Logout(ctx context.Context, accessToken string) error {
	if err := g.with(ctx, accessToken).Logout(); err != nil {
		return authError("logout", err)
	}
	return nil
}

// AuthorizeURL builds the provider redirect URL for an OAuth sign-in. The browser follows
// it directly, so nothing is requested from the auth API here.
func (g *GoTrue) AuthorizeURL(provider, redirectTo string) (string, error) {
	if provider == "" {
		return "", fmt.Errorf("provider is required")
	}
	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	return g.baseURL + "/authorize?" + q.Encode(), nil
}

// VerifyAccessToken resolves the principal of an access token and its expiry. Tokens are
// checked locally when a signing secret is configured, otherwise the auth API vouches for
// the token and the expiry is read from its unverified claims.
func (g *GoTrue) VerifyAccessToken(ctx context.Context, accessToken string) (*models.Principal, time.Time, error) {
	if len(g.jwtSecret) == 0 {
		p, err := g.User(ctx, accessToken)
		if err != nil {
			return nil, time.Time{}, err
		}
		return p, unverifiedExpiry(accessToken), nil
	}

	claims := &models.AccessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return g.jwtSecret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil {
		return nil, time.Time{}, &APIError{Status: http.StatusUnauthorized, Message: err.Error()}
	}
	if !token.Valid || claims.Subject == "" {
		return nil, time.Time{}, &APIError{Status: http.StatusUnauthorized, Message: "invalid token claims"}
	}

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	return &models.Principal{ID: claims.Subject, Email: claims.Email, Metadata: claims.UserMetadata}, expiresAt, nil
}

// unverifiedExpiry reads exp from a token the auth API already accepted. Zero when absent.
func unverifiedExpiry(accessToken string) time.Time {
	claims := &models.AccessClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}

const statusPrefix = "response status code "

// authError turns the client's "response status code N: body" failures into *APIError.
func authError(op string, err error) error {
	if errors.Is(err, types.ErrInvalidTokenRequest) {
		return &APIError{Status: http.StatusBadRequest, Code: "invalid_request", Message: "email and password are required"}
	}
	rest, ok := strings.CutPrefix(err.Error(), statusPrefix)
	if !ok {
		return fmt.Errorf("auth %s: %w", op, err)
	}
	code, body, _ := strings.Cut(rest, ": ")
	status, convErr := strconv.Atoi(code)
	if convErr != nil {
		return fmt.Errorf("auth %s: %w", op, err)
	}

	apiErr := &APIError{Status: status}
	var decoded struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
		Msg              string `json:"msg"`
		Message          string `json:"message"`
	}
	if body != "" && json.Unmarshal([]byte(body), &decoded) == nil {
		apiErr.Code = decoded.Error
		apiErr.Message = firstNonEmpty(decoded.ErrorDescription, decoded.Msg, decoded.Message)
	}
	return apiErr
}

// contextTransport binds a context to requests built without one.
type contextTransport struct {
	ctx  context.Context
	base http.RoundTripper
}

func (t contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	return t.base.RoundTrip(req.WithContext(t.ctx))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
