package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
)

const (
	cachePrefixEvents = "events:list:"
	cacheKeyStats     = "admin:stats"

	// Any event write drops both groups: lists embed attendees, stats count them.
	cacheTagEvents = "events"
	cacheTagStats  = "stats"
)

// CacheRepository abstracts persistence for cached payloads grouped by tag.
type CacheRepository interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration, tags ...string) error
	InvalidateTags(ctx context.Context, tags ...string) error
}

// CacheService wraps the cache repository with metrics and best-effort error handling.
// A nil or disabled service behaves as a permanent miss.
type CacheService struct {
	repo       CacheRepository
	metrics    *MetricsService
	defaultTTL time.Duration
	logger     *zap.Logger
	enabled    bool

	// gate orders writes against invalidations; generation counts invalidations.
	gate       sync.RWMutex
	generation uint64
}

// NewCacheService constructs a cache service.
func NewCacheService(repo CacheRepository, metrics *MetricsService, defaultTTL time.Duration, logger *zap.Logger, enabled bool) *CacheService {
	if defaultTTL <= 0 {
		defaultTTL = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheService{repo: repo, metrics: metrics, defaultTTL: defaultTTL, logger: logger, enabled: enabled}
}

// Enabled indicates whether caching is active.
func (s *CacheService) Enabled() bool {
	return s != nil && s.enabled && s.repo != nil
}

// Get loads key into dest and reports a hit. Backend failures count as misses.
func (s *CacheService) Get(ctx context.Context, key string, dest interface{}) bool {
	if !s.Enabled() {
		return false
	}
	start := time.Now()
	err := s.repo.Get(ctx, key, dest)
	s.metrics.RecordCacheOperation(err == nil, time.Since(start))
	if err != nil {
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	return true
}

// Generation identifies the cache state a reader starts from. Take it before loading the
// value that is later passed to Set.
func (s *CacheService) Generation() uint64 {
	if !s.Enabled() {
		return 0
	}
	s.gate.RLock()
	defer s.gate.RUnlock()
	return s.generation
}

// Set stores the value under key and tags unless an invalidation ran since generation
// since, in which case the value may predate the write that caused it. Reports whether
// the value was written. Failures are logged and swallowed.
func (s *CacheService) Set(ctx context.Context, since uint64, key string, value interface{}, ttl time.Duration, tags ...string) bool {
	if !s.Enabled() {
		return false
	}
	if ttl <= 0 {
		ttl = s.defaultTTL
	}

	s.gate.RLock()
	defer s.gate.RUnlock()
	if s.generation != since {
		s.logger.Debug("cache set skipped after invalidation", zap.String("key", key))
		return false
	}
	start := time.Now()
	err := s.repo.Set(ctx, key, value, ttl, tags...)
	s.metrics.ObserveCacheWrite(time.Since(start))
	if err != nil {
		s.logger.Warn("cache set failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Invalidate drops every entry written under the given tags. Writes prepared before the
// call are discarded by Set.
func (s *CacheService) Invalidate(ctx context.Context, tags ...string) {
	if !s.Enabled() || len(tags) == 0 {
		return
	}
	s.gate.Lock()
	s.generation++
	s.gate.Unlock()

	if err := s.repo.InvalidateTags(ctx, tags...); err != nil {
		s.logger.Warn("cache invalidate failed", zap.Strings("tags", tags), zap.Error(err))
	}
}
