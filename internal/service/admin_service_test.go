package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gettogather-api/internal/models"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
)

type fakeStats struct {
	totals *models.AdminStats
	err    error
	calls  int
}

func (f *fakeStats) Totals(context.Context) (*models.AdminStats, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	copied := *f.totals
	return &copied, nil
}

func TestAdminServiceStatsCachesTotals(t *testing.T) {
	stats := &fakeStats{totals: &models.AdminStats{TotalEvents: 12, TotalUsers: 40, ActiveEvents: 5, TotalAttendees: 88}}
	metrics := NewMetricsService()
	cache := NewCacheService(newMemoryCache(), metrics, time.Minute, nil, true)
	svc := NewAdminService(stats, nil, cache, metrics, time.Minute, nil)
	ctx := context.Background()

	first, hit := svc.Stats(ctx)
	assert.False(t, hit)
	assert.Equal(t, 12, first.TotalEvents)
	assert.Equal(t, 88, first.TotalAttendees)
	require.NotNil(t, first.System)

	second, hit := svc.Stats(ctx)
	assert.True(t, hit)
	assert.Equal(t, 40, second.TotalUsers)
	require.NotNil(t, second.System)
	assert.Equal(t, uint64(1), second.System.CacheHits)
	assert.Equal(t, 1, stats.calls)
}

func TestAdminServiceStatsDegradesToZero(t *testing.T) {
	svc := NewAdminService(&fakeStats{err: errors.New("timeout")}, nil, nil, nil, 0, nil)
	stats, hit := svc.Stats(context.Background())
	assert.False(t, hit)
	assert.Zero(t, stats.TotalEvents)
	assert.False(t, stats.GeneratedAt.IsZero())

	unconfigured := NewAdminService(nil, nil, nil, nil, 0, nil)
	stats, _ = unconfigured.Stats(context.Background())
	assert.Zero(t, stats.TotalUsers)
	assert.NotNil(t, stats.System)
}

func TestAdminServiceExport(t *testing.T) {
	store := newFakeEventStore(hackathonRecord())
	events := newTestEventService(store, &fakeAttendance{attendees: []models.Attendee{{EventID: "evt-1", UserID: "u1"}}}, nil, nil)
	svc := NewAdminService(nil, events, nil, nil, 0, nil)
	svc.now = func() time.Time { return wednesday }
	ctx := context.Background()

	file, err := svc.Export(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, "events-20240313-153000.csv", file.Filename)
	assert.Equal(t, "text/csv", file.ContentType)
	records, err := csv.NewReader(bytes.NewReader(file.Data)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"Spring Hackathon", "2024-03-20", "09:00", "Engineering Hall", "Technology", "upcoming", "Dana", "1", "", "coding"}, records[1])

	file, err = svc.Export(ctx, "PDF")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", file.ContentType)
	assert.True(t, bytes.HasPrefix(file.Data, []byte("%PDF")))

	_, err = svc.Export(ctx, "xlsx")
	assertAppError(t, err, appErrors.ErrValidation.Code)

	unconfigured := NewAdminService(nil, newTestEventService(nil, nil, nil, nil), nil, nil, 0, nil)
	_, err = unconfigured.Export(ctx, "csv")
	assertAppError(t, err, appErrors.ErrNotConfigured.Code)
}

func TestMetricsServiceSnapshot(t *testing.T) {
	m := NewMetricsService()
	m.ObserveHTTPRequest("GET", "/api/v1/events", 200, 20*time.Millisecond)
	m.ObserveHTTPRequest("GET", "/api/v1/events", 200, 40*time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordSearchResolution("llm")
	m.RecordSessionTransition("authenticated")
	m.SetActiveSessions(3)

	snap := m.Snapshot()
	assert.Equal(t, uint64(2), snap.RequestsTotal)
	assert.InDelta(t, 30.0, snap.AverageRequestDurationMs, 0.001)
	assert.InDelta(t, 2.0/3.0, snap.CacheHitRatio, 0.0001)
	assert.Positive(t, snap.Goroutines)

	var nilMetrics *MetricsService
	assert.NotPanics(t, func() {
		nilMetrics.RecordSearchResolution("empty")
		nilMetrics.RecordSessionTransition("loading")
		_ = nilMetrics.Snapshot()
	})
}

type failingCache struct{}

func (failingCache) Get(context.Context, string, interface{}) error {
	return errors.New("redis down")
}

func (failingCache) Set(context.Context, string, interface{}, time.Duration, ...string) error {
	return errors.New("redis down")
}

func (failingCache) InvalidateTags(context.Context, ...string) error {
	return errors.New("redis down")
}

func TestCacheServiceTreatsFailuresAsMisses(t *testing.T) {
	cache := NewCacheService(failingCache{}, nil, 0, nil, true)
	var dest []models.Event
	assert.False(t, cache.Get(context.Background(), "k", &dest))
	assert.NotPanics(t, func() {
		cache.Set(context.Background(), cache.Generation(), "k", dest, 0)
		cache.Invalidate(context.Background(), "events")
	})

	disabled := NewCacheService(newMemoryCache(), nil, 0, nil, false)
	assert.False(t, disabled.Enabled())
	var nilCache *CacheService
	assert.False(t, nilCache.Get(context.Background(), "k", &dest))
}

func TestCacheServiceSetSkipsStaleGeneration(t *testing.T) {
	repo := newMemoryCache()
	cache := NewCacheService(repo, nil, time.Minute, nil, true)
	ctx := context.Background()

	since := cache.Generation()
	cache.Invalidate(ctx, cacheTagStats)
	assert.False(t, cache.Set(ctx, since, cacheKeyStats, "stale", 0, cacheTagStats))
	assert.Empty(t, repo.entries)

	assert.True(t, cache.Set(ctx, cache.Generation(), cacheKeyStats, "fresh", 0, cacheTagStats))
	var got string
	assert.True(t, cache.Get(ctx, cacheKeyStats, &got))
	assert.Equal(t, "fresh", got)
}
