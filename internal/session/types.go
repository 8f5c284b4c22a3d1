package session

import (
	"context"
	"errors"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// State is the session state observed by the rendering layer.
type State string

const (
	StateLoading       State = "loading"
	StateAuthenticated State = "authenticated"
	StateAnonymous     State = "anonymous"
)

// Changed is published on every transition. Seq is the generation that produced it.
type Changed struct {
	Seq   uint64       `json:"seq"`
	State State        `json:"state"`
	User  *models.User `json:"user,omitempty"`
}

// ErrMockMode is returned by operations that need a real auth provider.
var ErrMockMode = errors.New("auth provider not configured")

// ErrClosed is returned once the controller has been torn down.
var ErrClosed = errors.New("session controller closed")

// AuthProvider is the external auth collaborator scoped to one browser.
type AuthProvider interface {
	CurrentPrincipal(ctx context.Context) (*models.Principal, error)
	Subscribe(fn func(*models.Principal)) func()
	SignInWithPassword(ctx context.Context, email, password string) error
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)
	SetSession(ctx context.Context, accessToken, refreshToken string) error
	SignOut(ctx context.Context) error
}

// ProfileStore persists application profiles keyed by principal id.
type ProfileStore interface {
	Upsert(ctx context.Context, seed models.ProfileSeed) (*models.Profile, error)
	FindByID(ctx context.Context, id string) (*models.Profile, error)
}

// TransitionRecorder observes applied transitions.
type TransitionRecorder interface {
	RecordSessionTransition(state string)
}
