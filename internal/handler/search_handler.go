package handler

import (
	"encoding/json"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/dto"
	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/search"
	"github.com/noah-isme/gettogather-api/pkg/middleware/requestid"
)

// SearchHandler streams debounced search results over a websocket.
type SearchHandler struct {
	resolver *search.Resolver
	events   search.EventLister
	debounce time.Duration
	upgrader *websocket.Upgrader
	logger   *zap.Logger
}

// NewSearchHandler constructs the handler.
func NewSearchHandler(resolver *search.Resolver, events search.EventLister, debounce time.Duration, upgrader *websocket.Upgrader, logger *zap.Logger) *SearchHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if upgrader == nil {
		upgrader = NewUpgrader(nil)
	}
	return &SearchHandler{resolver: resolver, events: events, debounce: debounce, upgrader: upgrader, logger: logger}
}

// Stream godoc
// @Summary Live event search
// @Description Websocket. Client frames {"query": "...", "category": "..."} update the search; query changes are debounced. {"refresh": true} re-runs the current search. Server frames carry the results of the newest settled input only.
// @Tags Events
// @Param q query string false "Initial query"
// @Param category query string false "Initial category"
// @Success 101
// @Router /events/search/stream [get]
func (h *SearchHandler) Stream(c *gin.Context) {
	logger := h.logger.With(zap.String("request_id", requestid.Value(c)))
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug("search stream upgrade failed", zap.Error(err))
		return
	}
	conn := newWSConn(raw)
	defer raw.Close()

	sess := search.NewSession(h.resolver, h.events, h.debounce, func(res search.Result) {
		if err := conn.send(wsTypeResults, res); err != nil {
			logger.Debug("search stream write failed", zap.Error(err))
		}
	}, logger)
	defer sess.Close()

	sess.SetCategory(c.DefaultQuery("category", models.CategoryAll))
	if q := c.Query("q"); q != "" {
		sess.SetQuery(q)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(wsPingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if err := conn.ping(); err != nil {
					return
				}
			}
		}
	}()

	for {
		_, payload, err := raw.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("search stream closed", zap.Error(err))
			}
			return
		}
		var req dto.SearchStreamRequest
		if err := json.Unmarshal(payload, &req); err != nil || (req.Category == nil && req.Query == nil && !req.Refresh) {
			_ = conn.send(wsTypeError, "frame must be a JSON object setting query or category, or refresh")
			continue
		}
		switch {
		case req.Category != nil:
			sess.SetCategory(*req.Category)
		case req.Refresh:
			sess.Refresh()
		}
		if req.Query != nil {
			sess.SetQuery(*req.Query)
		}
	}
}
