package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/dto"
	"github.com/noah-isme/gettogather-api/internal/models"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
	"github.com/noah-isme/gettogather-api/pkg/export"
	"github.com/noah-isme/gettogather-api/pkg/logger"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"

	calendarName      = "Gettogather Events"
	calendarProductID = "-//Gettogather//Campus Events//EN"
)

type eventStore interface {
	List(ctx context.Context, q models.EventQuery) ([]models.EventRecord, error)
	FindByID(ctx context.Context, id string) (*models.EventRecord, error)
	Create(ctx context.Context, in models.EventInput) (string, error)
	Update(ctx context.Context, id string, patch models.EventPatch) error
	Delete(ctx context.Context, id string) error
}

type attendanceStore interface {
	Add(ctx context.Context, eventID, userID string) error
	Remove(ctx context.Context, eventID, userID string) error
	ListByEvents(ctx context.Context, eventIDs []string) ([]models.Attendee, error)
}

type imageStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Remove(ctx context.Context, bucket, key string) error
	PublicURL(bucket, key string) string
}

// EventServiceConfig tunes event behaviour.
type EventServiceConfig struct {
	Bucket        string
	MaxImageBytes int64
	CacheTTL      time.Duration
	Location      *time.Location
	// EventURLBase prefixes event ids in calendar feeds. Empty omits the URL.
	EventURLBase string
}

// EventServiceParams groups constructor dependencies. Leaving Events or Attendance nil
// puts the service in unconfigured mode.
type EventServiceParams struct {
	Events     eventStore
	Attendance attendanceStore
	Images     imageStore
	Cache      *CacheService
	Validator  *validator.Validate
	Logger     *zap.Logger
	Config     EventServiceConfig
}

// EventService reads and writes campus events.
type EventService struct {
	events     eventStore
	attendance attendanceStore
	images     imageStore
	cache      *CacheService
	validator  *validator.Validate
	calendar   *export.ICSExporter
	logger     *zap.Logger
	cfg        EventServiceConfig
	now        func() time.Time
}

// NewEventService constructs an EventService.
func NewEventService(params EventServiceParams) *EventService {
	cfg := params.Config
	if cfg.Bucket == "" {
		cfg.Bucket = "event-images"
	}
	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 5 * 1024 * 1024
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = time.Minute
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	logger := params.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	validate := params.Validator
	if validate == nil {
		validate = validator.New()
	}
	RegisterEventValidations(validate)
	return &EventService{
		events:     params.Events,
		attendance: params.Attendance,
		images:     params.Images,
		cache:      params.Cache,
		validator:  validate,
		calendar:   export.NewICSExporter(calendarProductID),
		logger:     logger,
		cfg:        cfg,
		now:        time.Now,
	}
}

// RegisterEventValidations installs the category and event_status tags.
func RegisterEventValidations(v *validator.Validate) {
	_ = v.RegisterValidation("category", func(fl validator.FieldLevel) bool {
		return models.Category(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("event_status", func(fl validator.FieldLevel) bool {
		return models.EventStatus(fl.Field().String()).Valid()
	})
}

// Configured reports whether the event stores are wired.
func (s *EventService) Configured() bool {
	return s.events != nil && s.attendance != nil
}

// List runs the filters against the store. It never fails: an unconfigured backend or a
// failed query yields an empty list.
func (s *EventService) List(ctx context.Context, filters models.SearchFilters) []models.Event {
	if !s.Configured() {
		return []models.Event{}
	}
	q := ComposeQuery(filters, s.now(), s.cfg.Location)
	cacheKey := cachePrefixEvents + q.CacheKey()
	var cached []models.Event
	if s.cache.Get(ctx, cacheKey, &cached) {
		return cached
	}

	since := s.cache.Generation()
	records, err := s.events.List(ctx, q)
	if err != nil {
		logger.WithRequest(ctx, s.logger).Error("list events failed", zap.Error(err))
		return []models.Event{}
	}
	events, err := s.hydrate(ctx, records)
	if err != nil {
		logger.WithRequest(ctx, s.logger).Error("list event attendees failed", zap.Error(err))
		return []models.Event{}
	}
	s.cache.Set(ctx, since, cacheKey, events, s.cfg.CacheTTL, cacheTagEvents)
	return events
}

// Get loads one event. A missing event, or an unconfigured backend, is (nil, nil);
// a failed fetch is an error.
func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	if !s.Configured() {
		return nil, nil
	}
	record, err := s.events.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load event")
	}
	events, err := s.hydrate(ctx, []models.EventRecord{*record})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to load event attendees")
	}
	return &events[0], nil
}

// Create inserts an event organised by organizer, then uploads and attaches the optional image.
func (s *EventService) Create(ctx context.Context, organizer models.User, req dto.CreateEventRequest, image *dto.ImageUpload) (*models.Event, error) {
	if !s.Configured() {
		return nil, appErrors.ErrNotConfigured
	}
	req.Tags = normalizeTags(req.Tags)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	date, err := time.ParseInLocation(dto.EventDateLayout, req.Date, s.cfg.Location)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	if image != nil {
		if err := s.checkImage(image); err != nil {
			return nil, err
		}
	}

	id, err := s.events.Create(ctx, models.EventInput{
		Title:        strings.TrimSpace(req.Title),
		Description:  strings.TrimSpace(req.Description),
		Date:         date,
		Time:         req.Time,
		Location:     strings.TrimSpace(req.Location),
		Category:     models.Category(req.Category),
		OrganizerID:  organizer.ID,
		MaxAttendees: req.MaxAttendees,
		Tags:         req.Tags,
		Status:       models.EventStatusUpcoming,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to create event")
	}
	s.invalidate(ctx)

	if image != nil {
		if err := s.attachImage(ctx, id, image); err != nil {
			logger.WithRequest(ctx, s.logger).Warn("event created without image", zap.String("event_id", id), zap.Error(err))
			return nil, err
		}
	}
	return s.reload(ctx, id)
}

// Update applies a partial update. Only the organizer or an admin may edit an event.
func (s *EventService) Update(ctx context.Context, actor models.User, id string, req dto.UpdateEventRequest) (*models.Event, error) {
	if err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid event payload")
	}
	patch, err := s.patchFrom(req)
	if err != nil {
		return nil, err
	}
	if patch.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no fields to update")
	}
	if err := s.events.Update(ctx, id, patch); err != nil {
		return nil, s.writeError(err, "failed to update event")
	}
	s.invalidate(ctx)
	return s.reload(ctx, id)
}

// Delete removes an event. Only the organizer or an admin may delete it.
func (s *EventService) Delete(ctx context.Context, actor models.User, id string) error {
	if err := s.authorize(ctx, actor, id); err != nil {
		return err
	}
	if err := s.events.Delete(ctx, id); err != nil {
		return s.writeError(err, "failed to delete event")
	}
	s.invalidate(ctx)
	return nil
}

// UploadImage replaces the event image.
func (s *EventService) UploadImage(ctx context.Context, actor models.User, id string, image dto.ImageUpload) (*models.Event, error) {
	if err := s.authorize(ctx, actor, id); err != nil {
		return nil, err
	}
	if err := s.checkImage(&image); err != nil {
		return nil, err
	}
	if err := s.attachImage(ctx, id, &image); err != nil {
		return nil, err
	}
	return s.reload(ctx, id)
}

// Join registers user as an attendee. Capacity is not enforced.
func (s *EventService) Join(ctx context.Context, user models.User, eventID string) error {
	if !s.Configured() {
		return appErrors.ErrNotConfigured
	}
	if err := s.attendance.Add(ctx, eventID, user.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			switch pqErr.Code {
			case pgUniqueViolation:
				return appErrors.Clone(appErrors.ErrConflict, "already attending this event")
			case pgForeignKeyViolation:
				return appErrors.Clone(appErrors.ErrNotFound, "event not found")
			}
		}
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to join event")
	}
	s.invalidate(ctx)
	return nil
}

// Leave removes user from the attendee list.
func (s *EventService) Leave(ctx context.Context, user models.User, eventID string) error {
	if !s.Configured() {
		return appErrors.ErrNotConfigured
	}
	if err := s.attendance.Remove(ctx, eventID, user.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to leave event")
	}
	s.invalidate(ctx)
	return nil
}

// Calendar renders the filtered event list as an iCalendar feed.
func (s *EventService) Calendar(ctx context.Context, filters models.SearchFilters) []byte {
	events := s.List(ctx, filters)
	entries := make([]export.CalendarEntry, 0, len(events))
	for _, ev := range events {
		entry := export.CalendarEntry{
			UID:         ev.ID + "@gettogather",
			Summary:     ev.Title,
			Description: calendarDescription(ev),
			Location:    ev.Location,
			Date:        ev.Date.In(s.cfg.Location),
			Categories:  append([]string{string(ev.Category)}, ev.Tags...),
			Created:     ev.CreatedAt,
		}
		if s.cfg.EventURLBase != "" {
			entry.URL = strings.TrimRight(s.cfg.EventURLBase, "/") + "/" + ev.ID
		}
		entries = append(entries, entry)
	}
	return s.calendar.Render(calendarName, entries)
}

func calendarDescription(ev models.Event) string {
	parts := []string{}
	if ev.Time != "" {
		parts = append(parts, "Time: "+ev.Time)
	}
	parts = append(parts, "Organizer: "+ev.Organizer.Name)
	if ev.Description != "" {
		parts = append(parts, "", ev.Description)
	}
	return strings.Join(parts, "\n")
}

func (s *EventService) hydrate(ctx context.Context, records []models.EventRecord) ([]models.Event, error) {
	events := make([]models.Event, 0, len(records))
	if len(records) == 0 {
		return events, nil
	}
	ids := make([]string, 0, len(records))
	index := make(map[string]int, len(records))
	for _, record := range records {
		index[record.ID] = len(events)
		ids = append(ids, record.ID)
		events = append(events, record.ToEvent())
	}
	attendees, err := s.attendance.ListByEvents(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range attendees {
		if i, ok := index[a.EventID]; ok {
			events[i].Attendees = append(events[i].Attendees, a.ToUser())
		}
	}
	return events, nil
}

func (s *EventService) reload(ctx context.Context, id string) (*models.Event, error) {
	event, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if event == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return event, nil
}

func (s *EventService) authorize(ctx context.Context, actor models.User, id string) error {
	if !s.Configured() {
		return appErrors.ErrNotConfigured
	}
	record, err := s.events.FindByID(ctx, id)
	if err != nil {
		return s.writeError(err, "failed to load event")
	}
	if actor.IsAdmin() || (record.OrganizerID.Valid && record.OrganizerID.String == actor.ID) {
		return nil
	}
	return appErrors.Clone(appErrors.ErrForbidden, "only the organizer may modify this event")
}

func (s *EventService) writeError(err error, message string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "event not found")
	}
	return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, message)
}

func (s *EventService) patchFrom(req dto.UpdateEventRequest) (models.EventPatch, error) {
	patch := models.EventPatch{
		Time:         req.Time,
		MaxAttendees: req.MaxAttendees,
	}
	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		patch.Title = &title
	}
	if req.Description != nil {
		description := strings.TrimSpace(*req.Description)
		patch.Description = &description
	}
	if req.Location != nil {
		location := strings.TrimSpace(*req.Location)
		patch.Location = &location
	}
	if req.Date != nil {
		date, err := time.ParseInLocation(dto.EventDateLayout, *req.Date, s.cfg.Location)
		if err != nil {
			return patch, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
		}
		patch.Date = &date
	}
	if req.Category != nil {
		category := models.Category(*req.Category)
		patch.Category = &category
	}
	if req.Status != nil {
		status := models.EventStatus(*req.Status)
		patch.Status = &status
	}
	if req.Tags != nil {
		patch.Tags = normalizeTags(req.Tags)
	}
	return patch, nil
}

func (s *EventService) checkImage(image *dto.ImageUpload) error {
	if len(image.Data) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "image is empty")
	}
	if int64(len(image.Data)) > s.cfg.MaxImageBytes {
		return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("image exceeds %d bytes", s.cfg.MaxImageBytes))
	}
	if image.ContentType == "" || image.ContentType == "application/octet-stream" {
		image.ContentType = http.DetectContentType(image.Data)
	}
	if !strings.HasPrefix(image.ContentType, "image/") {
		return appErrors.Clone(appErrors.ErrValidation, "file must be an image")
	}
	return nil
}

// attachImage uploads to {eventID}-{unix}.{ext} and points the event at the public URL.
func (s *EventService) attachImage(ctx context.Context, eventID string, image *dto.ImageUpload) error {
	if s.images == nil {
		return appErrors.Clone(appErrors.ErrNotConfigured, "image storage is not configured")
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(image.Filename), "."))
	if ext == "" {
		ext = strings.TrimPrefix(image.ContentType, "image/")
	}
	key := fmt.Sprintf("%s-%d.%s", eventID, s.now().Unix(), ext)
	if err := s.images.Upload(ctx, s.cfg.Bucket, key, image.Data, image.ContentType); err != nil {
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "failed to upload event image")
	}
	url := s.images.PublicURL(s.cfg.Bucket, key)
	if err := s.events.Update(ctx, eventID, models.EventPatch{ImageURL: &url}); err != nil {
		if rmErr := s.images.Remove(ctx, s.cfg.Bucket, key); rmErr != nil {
			logger.WithRequest(ctx, s.logger).Warn("orphaned event image", zap.String("key", key), zap.Error(rmErr))
		}
		return s.writeError(err, "failed to attach event image")
	}
	s.invalidate(ctx)
	return nil
}

func (s *EventService) invalidate(ctx context.Context) {
	s.cache.Invalidate(ctx, cacheTagEvents, cacheTagStats)
}

// normalizeTags splits comma-separated entries, trims them and drops blanks.
func normalizeTags(raw []string) []string {
	tags := []string{}
	for _, entry := range raw {
		for _, tag := range strings.Split(entry, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				tags = append(tags, tag)
			}
		}
	}
	return tags
}
