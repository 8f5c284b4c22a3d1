package session

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/noah-isme/gettogather-api/internal/models"
)

type fakeAuth struct {
	mu              sync.Mutex
	current         *models.Principal
	currentErr      error
	listeners       map[int]func(*models.Principal)
	nextID          int
	signInPrincipal *models.Principal
	signInErr       error
	signOutErr      error
	signOuts        int
	unsubscribed    bool
}

func newFakeAuth() *fakeAuth {
	return &fakeAuth{listeners: make(map[int]func(*models.Principal))}
}

func (f *fakeAuth) CurrentPrincipal(context.Context) (*models.Principal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current, f.currentErr
}

func (f *fakeAuth) Subscribe(fn func(*models.Principal)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.listeners, id)
		f.unsubscribed = true
	}
}

func (f *fakeAuth) emit(p *models.Principal) {
	f.mu.Lock()
	f.current = p
	listeners := make([]func(*models.Principal), 0, len(f.listeners))
	for _, fn := range f.listeners {
		listeners = append(listeners, fn)
	}
	f.mu.Unlock()
	for _, fn := range listeners {
		fn(p)
	}
}

func (f *fakeAuth) SignInWithPassword(_ context.Context, _, _ string) error {
	if f.signInErr != nil {
		return f.signInErr
	}
	f.emit(f.signInPrincipal)
	return nil
}

func (f *fakeAuth) SignInWithOAuth(_ context.Context, provider, _ string) (string, error) {
	return "https://auth.example/authorize?provider=" + provider, nil
}

func (f *fakeAuth) SetSession(_ context.Context, accessToken, _ string) error {
	if accessToken == "bad" {
		return errors.New("invalid token")
	}
	f.emit(&models.Principal{ID: "oauth-user", Email: "oauth@campus.edu"})
	return nil
}

func (f *fakeAuth) SignOut(context.Context) error {
	f.mu.Lock()
	f.signOuts++
	err := f.signOutErr
	f.mu.Unlock()
	f.emit(nil)
	return err
}

type fakeProfiles struct {
	mu        sync.Mutex
	rows      map[string]models.Profile
	upsertErr error
	findErr   error
	gates     map[string]chan struct{}
	upserts   int
}

func newFakeProfiles() *fakeProfiles {
	return &fakeProfiles{rows: make(map[string]models.Profile), gates: make(map[string]chan struct{})}
}

func (f *fakeProfiles) hold(id string) func() {
	gate := make(chan struct{})
	f.mu.Lock()
	f.gates[id] = gate
	f.mu.Unlock()
	return func() { close(gate) }
}

func (f *fakeProfiles) Upsert(ctx context.Context, seed models.ProfileSeed) (*models.Profile, error) {
	f.mu.Lock()
	gate := f.gates[seed.ID]
	f.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	if f.upsertErr != nil {
		return nil, f.upsertErr
	}
	row, ok := f.rows[seed.ID]
	if !ok {
		row = models.Profile{ID: seed.ID, CreatedAt: time.Now()}
	}
	row.Email = seed.Email
	if row.Name == nil {
		row.Name = seed.Name
	}
	if row.AvatarURL == nil {
		row.AvatarURL = seed.AvatarURL
	}
	f.rows[seed.ID] = row
	copied := row
	return &copied, nil
}

func (f *fakeProfiles) FindByID(_ context.Context, id string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	row, ok := f.rows[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &row, nil
}

func (f *fakeProfiles) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type countingRecorder struct {
	mu     sync.Mutex
	states []string
}

func (r *countingRecorder) RecordSessionTransition(state string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, state)
}

func (r *countingRecorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.states...)
}

func strPtr(s string) *string { return &s }

func rolePtr(r models.UserRole) *models.UserRole { return &r }
