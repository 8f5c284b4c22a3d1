package search

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/models"
)

// DefaultDebounce is the quiescence window applied to search text.
const DefaultDebounce = 500 * time.Millisecond

// EventLister runs a resolved filter set against the event store.
type EventLister interface {
	List(ctx context.Context, filters models.SearchFilters) []models.Event
}

// Result is delivered once per resolution that is still current when it completes.
type Result struct {
	Generation uint64               `json:"generation"`
	Query      string               `json:"query"`
	Category   string               `json:"category"`
	Filters    models.SearchFilters `json:"filters"`
	Outcome    Outcome              `json:"outcome"`
	Events     []models.Event       `json:"events"`
}

// Listener receives results. Calls are never concurrent.
type Listener func(Result)

// Session drives the search pipeline of one open search view. Text updates are debounced;
// every resolution takes a new generation and cancels the one before it; only the newest
// generation reaches the listener.
type Session struct {
	resolver *Resolver
	lister   EventLister
	debounce time.Duration
	listener Listener
	logger   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	generation  uint64
	textToken   uint64
	settledText string
	category    string
	timer       *time.Timer
	inflight    context.CancelFunc
	closed      bool

	deliver sync.Mutex
}

// NewSession creates an idle search session.
func NewSession(resolver *Resolver, lister EventLister, debounce time.Duration, listener Listener, logger *zap.Logger) *Session {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		resolver: resolver,
		lister:   lister,
		debounce: debounce,
		listener: listener,
		logger:   logger,
		ctx:      ctx,
		cancel:   cancel,
		category: models.CategoryAll,
	}
}

// SetQuery records a keystroke. The text is acted on only after the debounce window
// passes without another call.
func (s *Session) SetQuery(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.textToken++
	token := s.textToken
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(s.debounce, func() { s.settle(token, text) })
}

// SetCategory changes the category selection and resolves immediately with the last settled text.
func (s *Session) SetCategory(category string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.category = category
	s.launchLocked()
}

// Refresh resolves the current settled text and category without waiting.
func (s *Session) Refresh() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.launchLocked()
}

// Generation returns the newest generation issued.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Close cancels pending and in-flight work. No result is delivered after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.mu.Unlock()
	s.cancel()

	s.deliver.Lock()
	s.deliver.Unlock() //nolint:staticcheck
}

func (s *Session) settle(token uint64, text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || token != s.textToken {
		return
	}
	s.settledText = text
	s.launchLocked()
}

func (s *Session) launchLocked() {
	s.generation++
	gen := s.generation
	if s.inflight != nil {
		s.inflight()
	}
	ctx, cancel := context.WithCancel(s.ctx)
	s.inflight = cancel
	go s.run(ctx, gen, s.settledText, s.category)
}

func (s *Session) run(ctx context.Context, gen uint64, text, category string) {
	res := s.resolver.Resolve(ctx, text, category)
	if ctx.Err() != nil {
		return
	}
	events := s.lister.List(ctx, res.Filters)
	if ctx.Err() != nil {
		return
	}

	s.deliver.Lock()
	defer s.deliver.Unlock()
	if !s.current(gen) {
		s.logger.Debug("discarding stale search result", zap.Uint64("generation", gen))
		return
	}
	if events == nil {
		events = []models.Event{}
	}
	s.listener(Result{
		Generation: gen,
		Query:      text,
		Category:   category,
		Filters:    res.Filters,
		Outcome:    res.Outcome,
		Events:     events,
	})
}

func (s *Session) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed && gen == s.generation
}
