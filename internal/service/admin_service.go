package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/models"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
	"github.com/noah-isme/gettogather-api/pkg/export"
	"github.com/noah-isme/gettogather-api/pkg/logger"
)

// Export formats.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

type statsStore interface {
	Totals(ctx context.Context) (*models.AdminStats, error)
}

type eventCatalog interface {
	Configured() bool
	List(ctx context.Context, filters models.SearchFilters) []models.Event
}

// ExportFile is a rendered export ready to be served as an attachment.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// AdminService serves the admin dashboard.
type AdminService struct {
	stats   statsStore
	events  eventCatalog
	cache   *CacheService
	metrics *MetricsService
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	ttl     time.Duration
	logger  *zap.Logger
	now     func() time.Time
}

// NewAdminService constructs the service. A nil stats store reports zero totals.
func NewAdminService(stats statsStore, events eventCatalog, cache *CacheService, metrics *MetricsService, ttl time.Duration, logger *zap.Logger) *AdminService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{
		stats:   stats,
		events:  events,
		cache:   cache,
		metrics: metrics,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		ttl:     ttl,
		logger:  logger,
		now:     time.Now,
	}
}

// Stats returns platform totals and an instrumentation snapshot. The bool reports a cache hit.
// Totals that cannot be loaded are reported as zero.
func (s *AdminService) Stats(ctx context.Context) (*models.AdminStats, bool) {
	var cached models.AdminStats
	if s.cache.Get(ctx, cacheKeyStats, &cached) {
		snapshot := s.metrics.Snapshot()
		cached.System = &snapshot
		return &cached, true
	}

	stats := &models.AdminStats{}
	if s.stats != nil {
		since := s.cache.Generation()
		totals, err := s.stats.Totals(ctx)
		if err != nil {
			logger.WithRequest(ctx, s.logger).Error("load admin stats failed", zap.Error(err))
		} else {
			stats = totals
			stats.GeneratedAt = s.now().UTC()
			s.cache.Set(ctx, since, cacheKeyStats, stats, s.ttl, cacheTagStats)
		}
	}
	if stats.GeneratedAt.IsZero() {
		stats.GeneratedAt = s.now().UTC()
	}
	snapshot := s.metrics.Snapshot()
	stats.System = &snapshot
	return stats, false
}

// Export renders every event as a CSV or PDF table.
func (s *AdminService) Export(ctx context.Context, format string) (*ExportFile, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = ExportFormatCSV
	}
	if format != ExportFormatCSV && format != ExportFormatPDF {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}
	if s.events == nil || !s.events.Configured() {
		return nil, appErrors.ErrNotConfigured
	}

	data := export.Dataset{
		Title:   "Gettogather events",
		Headers: []string{"Title", "Date", "Time", "Location", "Category", "Status", "Organizer", "Attendees", "Capacity", "Tags"},
	}
	for _, ev := range s.events.List(ctx, models.SearchFilters{}) {
		capacity := ""
		if ev.MaxAttendees != nil {
			capacity = strconv.Itoa(*ev.MaxAttendees)
		}
		data.Append(
			ev.Title,
			ev.Date.Format("2006-01-02"),
			ev.Time,
			ev.Location,
			string(ev.Category),
			string(ev.Status),
			ev.Organizer.Name,
			strconv.Itoa(len(ev.Attendees)),
			capacity,
			strings.Join(ev.Tags, ", "),
		)
	}

	stamp := s.now().UTC().Format("20060102-150405")
	var (
		body []byte
		err  error
		file = &ExportFile{Filename: fmt.Sprintf("events-%s.%s", stamp, format)}
	)
	switch format {
	case ExportFormatPDF:
		body, err = s.pdf.Render(data)
		file.ContentType = "application/pdf"
	default:
		body, err = s.csv.Render(data)
		file.ContentType = "text/csv"
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	file.Data = body
	return file, nil
}
