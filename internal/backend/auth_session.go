package backend

import (
	"context"
	"sync"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// AuthSession holds the auth state of one browser. It is the server-side stand-in for the
// client library session: it keeps the token pair, refreshes it lazily and notifies
// subscribers of every principal change in the order the changes happen.
type AuthSession struct {
	gotrue *GoTrue

	// emit serialises state changes with their notifications.
	emit sync.Mutex

	mu        sync.Mutex
	tokens    *models.AuthTokens
	principal *models.Principal
	listeners map[int]func(*models.Principal)
	nextID    int
}

// NewSession creates an empty, signed-out session.
func (g *GoTrue) NewSession() *AuthSession {
	return &AuthSession{gotrue: g, listeners: make(map[int]func(*models.Principal))}
}

// CurrentPrincipal returns the signed-in principal, refreshing an expired token first.
// A failed refresh signs the session out.
func (s *AuthSession) CurrentPrincipal(ctx context.Context) (*models.Principal, error) {
	s.mu.Lock()
	tokens := s.tokens
	principal := s.principal
	s.mu.Unlock()

	if tokens == nil || !tokens.Expired(s.gotrue.now()) {
		return principal, nil
	}
	if tokens.RefreshToken == "" {
		s.set(nil, nil)
		return nil, nil
	}

	refreshed, next, err := s.gotrue.RefreshGrant(ctx, tokens.RefreshToken)
	if err != nil {
		if IsAuthRejection(err) {
			s.set(nil, nil)
			return nil, nil
		}
		return nil, err
	}
	if refreshed == nil {
		refreshed = principal
	}
	s.set(refreshed, next)
	return refreshed, nil
}

// Subscribe registers fn for principal changes and returns the unsubscribe func.
func (s *AuthSession) Subscribe(fn func(*models.Principal)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}

// SignInWithPassword authenticates with email and password. The new principal reaches
// subscribers through the notification path only.
func (s *AuthSession) SignInWithPassword(ctx context.Context, email, password string) error {
	principal, tokens, err := s.gotrue.PasswordGrant(ctx, email, password)
	if err != nil {
		return err
	}
	s.set(principal, tokens)
	return nil
}

// SignInWithOAuth returns the provider URL the browser must visit.
func (s *AuthSession) SignInWithOAuth(_ context.Context, provider, redirectTo string) (string, error) {
	return s.gotrue.AuthorizeURL(provider, redirectTo)
}

// SetSession adopts tokens handed back by the OAuth redirect.
func (s *AuthSession) SetSession(ctx context.Context, accessToken, refreshToken string) error {
	principal, expiresAt, err := s.gotrue.VerifyAccessToken(ctx, accessToken)
	if err != nil {
		return err
	}
	s.set(principal, &models.AuthTokens{AccessToken: accessToken, RefreshToken: refreshToken, ExpiresAt: expiresAt})
	return nil
}

// SignOut revokes the remote session. Local state is cleared even if the remote call fails.
func (s *AuthSession) SignOut(ctx context.Context) error {
	s.mu.Lock()
	tokens := s.tokens
	s.mu.Unlock()

	var err error
	if tokens != nil && tokens.AccessToken != "" {
		err = s.gotrue.Logout(ctx, tokens.AccessToken)
	}
	s.set(nil, nil)
	return err
}

// AccessToken returns the current access token, if any.
func (s *AuthSession) AccessToken() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return ""
	}
	return s.tokens.AccessToken
}

func (s *AuthSession) set(principal *models.Principal, tokens *models.AuthTokens) {
	s.emit.Lock()
	defer s.emit.Unlock()

	s.mu.Lock()
	s.principal = principal
	s.tokens = tokens
	listeners := make([]func(*models.Principal), 0, len(s.listeners))
	for i := 0; i < s.nextID; i++ {
		if fn, ok := s.listeners[i]; ok {
			listeners = append(listeners, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(principal)
	}
}
