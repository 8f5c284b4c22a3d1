package session

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Factory builds an unstarted controller for a new browser session.
type Factory func() *Controller

type entry struct {
	ctrl     *Controller
	lastSeen time.Time
}

// Registry maps browser session ids to their controllers.
type Registry struct {
	factory Factory
	idleTTL time.Duration
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
	limit   int
	closed  bool
}

// NewRegistry constructs an empty registry.
func NewRegistry(factory Factory, idleTTL time.Duration, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	return &Registry{
		factory: factory,
		idleTTL: idleTTL,
		logger:  log,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

// SetLimit caps the number of live controllers. When the cap is reached, Acquire
// evicts the least recently seen controller without websocket subscribers.
// Zero or less means unbounded.
func (r *Registry) SetLimit(n int) {
	r.mu.Lock()
	r.limit = n
	r.mu.Unlock()
}

// Acquire returns the controller for id, creating and starting one on first use.
func (r *Registry) Acquire(id string) *Controller {
	r.mu.Lock()

	if e, ok := r.entries[id]; ok && !r.closed {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.ctrl
	}

	ctrl := r.factory()
	if r.closed {
		r.mu.Unlock()
		ctrl.Close()
		return ctrl
	}
	var evicted *Controller
	limit := r.limit
	if limit > 0 && len(r.entries) >= limit {
		evicted = r.evictLocked()
	}
	r.entries[id] = &entry{ctrl: ctrl, lastSeen: r.now()}
	ctrl.Start()
	r.mu.Unlock()

	if evicted != nil {
		evicted.Close()
		r.logger.Debug("evicted session at capacity", zap.Int("limit", limit))
	}
	return ctrl
}

func (r *Registry) evictLocked() *Controller {
	var (
		oldestID string
		oldest   *entry
	)
	for id, e := range r.entries {
		if e.ctrl.Subscribers() > 0 {
			continue
		}
		if oldest == nil || e.lastSeen.Before(oldest.lastSeen) {
			oldestID, oldest = id, e
		}
	}
	if oldest == nil {
		return nil
	}
	delete(r.entries, oldestID)
	return oldest.ctrl
}

// Lookup returns an existing controller without creating one.
func (r *Registry) Lookup(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.ctrl, true
}

// Remove closes and forgets the controller for id.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()
	if ok {
		e.ctrl.Close()
	}
}

// Len reports the number of live controllers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep closes controllers idle longer than the TTL that have no live subscribers.
func (r *Registry) Sweep() int {
	if r.idleTTL <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*Controller
	for id, e := range r.entries {
		if e.lastSeen.After(cutoff) || e.ctrl.Subscribers() > 0 {
			continue
		}
		idle = append(idle, e.ctrl)
		delete(r.entries, id)
	}
	r.mu.Unlock()

	for _, ctrl := range idle {
		ctrl.Close()
	}
	if len(idle) > 0 {
		r.logger.Debug("swept idle sessions", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// Schedule runs Sweep on the given cron spec until the returned scheduler is stopped.
func (r *Registry) Schedule(spec string) (*cron.Cron, error) {
	scheduler := cron.New()
	if _, err := scheduler.AddFunc(spec, func() { r.Sweep() }); err != nil {
		return nil, err
	}
	scheduler.Start()
	return scheduler, nil
}

// Close tears down every controller.
func (r *Registry) Close() {
	r.mu.Lock()
	r.closed = true
	entries := r.entries
	r.entries = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range entries {
		e.ctrl.Close()
	}
}
