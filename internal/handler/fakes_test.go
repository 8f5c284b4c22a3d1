package handler

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gettogather-api/internal/dto"
	"github.com/noah-isme/gettogather-api/internal/middleware"
	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/service"
	"github.com/noah-isme/gettogather-api/internal/session"
)

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func errorCodeOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	env := decodeEnvelope(t, rec)
	require.NotNil(t, env.Error, rec.Body.String())
	return env.Error.Code
}

// withUser stands in for RequireAuthenticated.
func withUser(user *models.User) gin.HandlerFunc {
	return func(c *gin.Context) {
		if user != nil {
			c.Set(middleware.ContextUserKey, user)
		}
		c.Next()
	}
}

func newMockRegistry(delay time.Duration) *session.Registry {
	return session.NewRegistry(func() *session.Controller {
		return session.NewController(nil, nil, session.Config{MockDelay: delay, LoginMockDelay: delay}, nil, nil)
	}, time.Minute, nil)
}

func sessionMiddleware(registry *session.Registry) gin.HandlerFunc {
	return middleware.Session(registry, middleware.SessionOptions{CookieName: "gt_session", MaxAge: time.Hour})
}

type fakeEventService struct {
	mu sync.Mutex

	events []models.Event
	event  *models.Event
	err    error

	lastFilters models.SearchFilters
	lastCreate  *dto.CreateEventRequest
	lastImage   *dto.ImageUpload
	lastUpdate  *dto.UpdateEventRequest
	lastActor   models.User
	lastID      string
	calendar    []byte
}

func (f *fakeEventService) List(_ context.Context, filters models.SearchFilters) []models.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastFilters = filters
	return f.events
}

func (f *fakeEventService) filters() models.SearchFilters {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFilters
}

func (f *fakeEventService) Get(_ context.Context, id string) (*models.Event, error) {
	f.lastID = id
	return f.event, f.err
}

func (f *fakeEventService) Create(_ context.Context, organizer models.User, req dto.CreateEventRequest, image *dto.ImageUpload) (*models.Event, error) {
	f.lastActor = organizer
	f.lastCreate = &req
	f.lastImage = image
	return f.event, f.err
}

func (f *fakeEventService) Update(_ context.Context, actor models.User, id string, req dto.UpdateEventRequest) (*models.Event, error) {
	f.lastActor = actor
	f.lastID = id
	f.lastUpdate = &req
	return f.event, f.err
}

func (f *fakeEventService) Delete(_ context.Context, actor models.User, id string) error {
	f.lastActor = actor
	f.lastID = id
	return f.err
}

func (f *fakeEventService) UploadImage(_ context.Context, actor models.User, id string, image dto.ImageUpload) (*models.Event, error) {
	f.lastActor = actor
	f.lastID = id
	f.lastImage = &image
	return f.event, f.err
}

func (f *fakeEventService) Join(_ context.Context, user models.User, eventID string) error {
	f.lastActor = user
	f.lastID = eventID
	return f.err
}

func (f *fakeEventService) Leave(_ context.Context, user models.User, eventID string) error {
	f.lastActor = user
	f.lastID = eventID
	return f.err
}

func (f *fakeEventService) Calendar(_ context.Context, filters models.SearchFilters) []byte {
	f.lastFilters = filters
	return f.calendar
}

type fakeAdminService struct {
	stats      *models.AdminStats
	hit        bool
	file       *service.ExportFile
	err        error
	lastFormat string
}

func (f *fakeAdminService) Stats(context.Context) (*models.AdminStats, bool) {
	return f.stats, f.hit
}

func (f *fakeAdminService) Export(_ context.Context, format string) (*service.ExportFile, error) {
	f.lastFormat = format
	return f.file, f.err
}
