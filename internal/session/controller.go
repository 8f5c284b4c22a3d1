package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/pkg/logger"
)

const subscriberBuffer = 8

// Config tunes controller timing.
type Config struct {
	MockDelay      time.Duration
	LoginMockDelay time.Duration
}

// Controller owns the session state of one browser. Every auth notification, login and
// logout takes a new generation; a result is applied only if its generation is still the
// newest, so the last notification always wins.
type Controller struct {
	auth     AuthProvider
	profiles ProfileStore
	cfg      Config
	logger   *zap.Logger
	metrics  TransitionRecorder

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	seq         uint64
	state       State
	user        *models.User
	subs        map[int]chan Changed
	nextSub     int
	settled     chan struct{}
	timers      []*time.Timer
	unsubscribe func()
	started     bool
	closed      bool
}

// NewController builds a controller in the loading state. A nil auth provider selects mock mode.
func NewController(auth AuthProvider, profiles ProfileStore, cfg Config, log *zap.Logger, metrics TransitionRecorder) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Controller{
		auth:     auth,
		profiles: profiles,
		cfg:      cfg,
		logger:   log,
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
		state:    StateLoading,
		subs:     make(map[int]chan Changed),
		settled:  make(chan struct{}),
	}
}

// Mock reports whether the controller runs without an auth provider.
func (c *Controller) Mock() bool {
	return c.auth == nil
}

// Start begins tracking the session. It is safe to call more than once.
func (c *Controller) Start() {
	c.mu.Lock()
	if c.started || c.closed {
		c.mu.Unlock()
		return
	}
	c.started = true
	c.mu.Unlock()

	if c.Mock() {
		seq := c.next()
		c.after(c.cfg.MockDelay, func() {
			c.apply(seq, StateAuthenticated, MockUser(models.RoleUser))
		})
		return
	}

	unsubscribe := c.auth.Subscribe(c.onPrincipal)
	c.mu.Lock()
	c.unsubscribe = unsubscribe
	c.mu.Unlock()

	seq := c.next()
	go func() {
		principal, err := c.auth.CurrentPrincipal(c.ctx)
		if err != nil {
			c.logger.Error("load current session failed", zap.Error(err))
			c.apply(seq, StateAnonymous, nil)
			return
		}
		c.reconcile(seq, principal)
	}()
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Changed {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel receiving every applied transition, starting with the
// current state. Slow readers lose intermediate transitions but always get the latest.
func (c *Controller) Subscribe() (<-chan Changed, func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan Changed, subscriberBuffer)
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch
	ch <- c.snapshotLocked()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			if sub, ok := c.subs[id]; ok {
				delete(c.subs, id)
				close(sub)
			}
		})
	}
}

// Subscribers counts live subscriptions.
func (c *Controller) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Await blocks until the session leaves the loading state, the controller closes, or ctx ends.
func (c *Controller) Await(ctx context.Context) (Changed, error) {
	for {
		c.mu.Lock()
		if c.closed {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, ErrClosed
		}
		if c.state != StateLoading {
			snap := c.snapshotLocked()
			c.mu.Unlock()
			return snap, nil
		}
		settled := c.settled
		c.mu.Unlock()

		select {
		case <-ctx.Done():
			return c.Snapshot(), ctx.Err()
		case <-settled:
		}
	}
}

// Login signs in with email and password. In real mode the authenticated state arrives
// through the notification stream; a rejected login leaves the session anonymous.
func (c *Controller) Login(ctx context.Context, email, password string) error {
	seq, err := c.begin()
	if err != nil {
		return err
	}

	if c.Mock() {
		role := mockRoleFor(email)
		c.after(c.cfg.LoginMockDelay, func() {
			c.apply(seq, StateAuthenticated, MockUser(role))
		})
		return nil
	}

	if err := c.auth.SignInWithPassword(ctx, email, password); err != nil {
		c.logger.Warn("login failed", zap.Error(err))
		c.apply(seq, StateAnonymous, nil)
		return err
	}
	return nil
}

// LoginWithOAuth returns the provider URL that starts an OAuth sign-in.
func (c *Controller) LoginWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if c.Mock() {
		return "", ErrMockMode
	}
	return c.auth.SignInWithOAuth(ctx, provider, redirectTo)
}

// CompleteCallback adopts the tokens returned by the OAuth redirect.
func (c *Controller) CompleteCallback(ctx context.Context, accessToken, refreshToken string) error {
	if c.Mock() {
		return ErrMockMode
	}
	seq, err := c.begin()
	if err != nil {
		return err
	}
	if err := c.auth.SetSession(ctx, accessToken, refreshToken); err != nil {
		c.logger.Warn("oauth callback rejected", zap.Error(err))
		c.apply(seq, StateAnonymous, nil)
		return err
	}
	return nil
}

// Logout invalidates the remote session and then moves to anonymous regardless of the
// outcome. The returned error only reports the remote failure.
func (c *Controller) Logout(ctx context.Context) error {
	var remoteErr error
	if !c.Mock() {
		remoteErr = c.auth.SignOut(ctx)
		if remoteErr != nil {
			c.logger.Warn("remote sign-out failed", zap.Error(remoteErr))
		}
	}
	seq := c.next()
	c.apply(seq, StateAnonymous, nil)
	return remoteErr
}

// Close tears the controller down. No transition is published afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	for _, t := range c.timers {
		t.Stop()
	}
	c.timers = nil
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	close(c.settled)
	unsubscribe := c.unsubscribe
	c.unsubscribe = nil
	c.mu.Unlock()

	c.cancel()
	if unsubscribe != nil {
		unsubscribe()
	}
}

func (c *Controller) onPrincipal(p *models.Principal) {
	seq := c.next()
	if seq == 0 {
		return
	}
	go c.reconcile(seq, p)
}

func (c *Controller) reconcile(seq uint64, p *models.Principal) {
	if p == nil {
		c.apply(seq, StateAnonymous, nil)
		return
	}
	user, err := Reconcile(c.ctx, c.profiles, p, c.logger)
	if err != nil {
		if c.ctx.Err() == nil {
			logger.Critical(c.logger, "could not retrieve user profile, signing out", zap.String("user_id", p.ID), zap.Error(err))
		}
		c.apply(seq, StateAnonymous, nil)
		return
	}
	c.apply(seq, StateAuthenticated, user)
}

// next takes a new generation without changing state. It returns 0 once closed.
func (c *Controller) next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0
	}
	c.seq++
	return c.seq
}

// begin takes a new generation and moves to loading.
func (c *Controller) begin() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return 0, ErrClosed
	}
	c.seq++
	c.transitionLocked(StateLoading, nil)
	return c.seq, nil
}

// apply commits a result if its generation is still current.
func (c *Controller) apply(seq uint64, state State, user *models.User) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || seq == 0 || seq != c.seq {
		c.logger.Debug("discarding stale session result", zap.Uint64("seq", seq), zap.Uint64("current", c.seq))
		return false
	}
	c.transitionLocked(state, user)
	return true
}

func (c *Controller) transitionLocked(state State, user *models.User) {
	c.state = state
	c.user = user
	snap := c.snapshotLocked()
	for _, ch := range c.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- snap
		}
	}
	if state != StateLoading {
		close(c.settled)
		c.settled = make(chan struct{})
	}
	if c.metrics != nil {
		c.metrics.RecordSessionTransition(string(state))
	}
}

func (c *Controller) snapshotLocked() Changed {
	snap := Changed{Seq: c.seq, State: c.state}
	if c.user != nil {
		u := *c.user
		snap.User = &u
	}
	return snap
}

func (c *Controller) after(d time.Duration, fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.timers = append(c.timers, time.AfterFunc(d, fn))
}
