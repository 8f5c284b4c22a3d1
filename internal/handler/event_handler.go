package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/gettogather-api/internal/dto"
	"github.com/noah-isme/gettogather-api/internal/middleware"
	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/search"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
	"github.com/noah-isme/gettogather-api/pkg/response"
)

const (
	imageField     = "image"
	multipartSlack = 1 << 20
)

type eventService interface {
	List(ctx context.Context, filters models.SearchFilters) []models.Event
	Get(ctx context.Context, id string) (*models.Event, error)
	Create(ctx context.Context, organizer models.User, req dto.CreateEventRequest, image *dto.ImageUpload) (*models.Event, error)
	Update(ctx context.Context, actor models.User, id string, req dto.UpdateEventRequest) (*models.Event, error)
	Delete(ctx context.Context, actor models.User, id string) error
	UploadImage(ctx context.Context, actor models.User, id string, image dto.ImageUpload) (*models.Event, error)
	Join(ctx context.Context, user models.User, eventID string) error
	Leave(ctx context.Context, user models.User, eventID string) error
	Calendar(ctx context.Context, filters models.SearchFilters) []byte
}

type filterResolver interface {
	Resolve(ctx context.Context, text, category string) search.Resolution
}

// EventHandler wires the event service to HTTP endpoints.
type EventHandler struct {
	service       eventService
	resolver      filterResolver
	maxImageBytes int64
}

// NewEventHandler constructs the handler.
func NewEventHandler(service eventService, resolver filterResolver, maxImageBytes int64) *EventHandler {
	if maxImageBytes <= 0 {
		maxImageBytes = 5 * 1024 * 1024
	}
	return &EventHandler{service: service, resolver: resolver, maxImageBytes: maxImageBytes}
}

// filters resolves the q and category parameters through the search resolver; explicit
// status and dateRange parameters take precedence over extracted values.
func (h *EventHandler) filters(c *gin.Context) search.Resolution {
	text := c.Query("q")
	category := c.DefaultQuery("category", models.CategoryAll)

	var res search.Resolution
	if h.resolver != nil {
		res = h.resolver.Resolve(c.Request.Context(), text, category)
	} else {
		res = search.Resolution{Filters: models.SearchFilters{Category: search.BaseCategory(category), Search: strings.TrimSpace(text)}}
	}
	if status := models.EventStatus(c.Query("status")); status.Valid() {
		res.Filters.Status = status
	}
	if r := models.DateRange(c.Query("dateRange")); r.Valid() {
		res.Filters.DateRange = r
	}
	return res
}

// List godoc
// @Summary List events
// @Description Free text in q is turned into filters by the search resolver. Never fails; an unavailable backend yields an empty list.
// @Tags Events
// @Produce json
// @Param q query string false "Free-text query"
// @Param category query string false "Category or all"
// @Param status query string false "upcoming, ongoing or completed"
// @Param dateRange query string false "today, this_week, next_week or this_month"
// @Success 200 {object} response.Envelope
// @Router /events [get]
func (h *EventHandler) List(c *gin.Context) {
	res := h.filters(c)
	events := h.service.List(c.Request.Context(), res.Filters)
	meta := middleware.ExtractMeta(c)
	meta["filters"] = res.Filters
	meta["outcome"] = res.Outcome
	meta["count"] = len(events)
	response.JSON(c, http.StatusOK, events, meta)
}

// Calendar godoc
// @Summary Event calendar feed
// @Description iCalendar export of the events matching the same parameters as the list endpoint.
// @Tags Events
// @Produce text/calendar
// @Param q query string false "Free-text query"
// @Param category query string false "Category or all"
// @Success 200 {file} file
// @Router /events/calendar.ics [get]
func (h *EventHandler) Calendar(c *gin.Context) {
	res := h.filters(c)
	body := h.service.Calendar(c.Request.Context(), res.Filters)
	response.Attachment(c, "gettogather-events.ics", "text/calendar; charset=utf-8", body)
}

// Get godoc
// @Summary Get event
// @Tags Events
// @Produce json
// @Param id path string true "Event ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /events/{id} [get]
func (h *EventHandler) Get(c *gin.Context) {
	event, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if event == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "event not found"))
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Create godoc
// @Summary Create event
// @Description Accepts JSON, or multipart form fields with an optional image file.
// @Tags Events
// @Accept json
// @Accept multipart/form-data
// @Produce json
// @Param payload body dto.CreateEventRequest true "Event"
// @Param image formData file false "Event image"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /events [post]
func (h *EventHandler) Create(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	multipartBody := strings.HasPrefix(c.ContentType(), "multipart/")
	if multipartBody {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+multipartSlack)
	}

	var req dto.CreateEventRequest
	if err := c.ShouldBind(&req); err != nil {
		if bodyTooLarge(err) {
			response.Error(c, h.tooLarge())
			return
		}
		response.Error(c, appErrors.Validation(err, "invalid event payload"))
		return
	}

	var image *dto.ImageUpload
	if multipartBody {
		upload, err := h.readImage(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		image = upload
	}

	event, err := h.service.Create(c.Request.Context(), *user, req, image)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditTarget(c, event.ID)
	response.Created(c, event)
}

// Update godoc
// @Summary Update event
// @Description Organizer or admin only.
// @Tags Events
// @Accept json
// @Produce json
// @Param id path string true "Event ID"
// @Param payload body dto.UpdateEventRequest true "Fields to change"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /events/{id} [patch]
func (h *EventHandler) Update(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid event payload"))
		return
	}
	event, err := h.service.Update(c.Request.Context(), *user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Delete godoc
// @Summary Delete event
// @Description Organizer or admin only.
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /events/{id} [delete]
func (h *EventHandler) Delete(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Delete(c.Request.Context(), *user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// UploadImage godoc
// @Summary Replace event image
// @Tags Events
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "Event ID"
// @Param image formData file true "Event image"
// @Success 200 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /events/{id}/image [post]
func (h *EventHandler) UploadImage(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxImageBytes+multipartSlack)
	image, err := h.readImage(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if image == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "image file is required"))
		return
	}
	event, err := h.service.UploadImage(c.Request.Context(), *user, c.Param("id"), *image)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, event)
}

// Join godoc
// @Summary Attend event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /events/{id}/attendees [post]
func (h *EventHandler) Join(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Join(c.Request.Context(), *user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Leave godoc
// @Summary Stop attending event
// @Tags Events
// @Param id path string true "Event ID"
// @Success 204
// @Router /events/{id}/attendees [delete]
func (h *EventHandler) Leave(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if err := h.service.Leave(c.Request.Context(), *user, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// readImage loads the optional image part. A missing part is (nil, nil).
func (h *EventHandler) readImage(c *gin.Context) (*dto.ImageUpload, error) {
	header, err := c.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		if bodyTooLarge(err) {
			return nil, h.tooLarge()
		}
		return nil, appErrors.Validation(err, "invalid multipart body")
	}
	if header.Size > h.maxImageBytes {
		return nil, h.tooLarge()
	}
	data, err := readPart(header)
	if err != nil {
		return nil, appErrors.Validation(err, "unreadable image")
	}
	return &dto.ImageUpload{Filename: header.Filename, ContentType: header.Header.Get("Content-Type"), Data: data}, nil
}

func (h *EventHandler) tooLarge() error {
	return appErrors.Clone(appErrors.ErrPayloadTooLarge, fmt.Sprintf("image exceeds %d bytes", h.maxImageBytes))
}

func bodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr) || strings.Contains(err.Error(), "request body too large")
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	file, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return io.ReadAll(file)
}
