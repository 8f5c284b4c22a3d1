package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/internal/backend"
	"github.com/noah-isme/gettogather-api/internal/dto"
	"github.com/noah-isme/gettogather-api/internal/middleware"
	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/session"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
	"github.com/noah-isme/gettogather-api/pkg/middleware/requestid"
	"github.com/noah-isme/gettogather-api/pkg/response"
)

// SessionHandler exposes the browser session state machine over HTTP and websocket.
type SessionHandler struct {
	validator   *validator.Validate
	upgrader    *websocket.Upgrader
	redirectURL string
	loadTimeout time.Duration
	logger      *zap.Logger
}

// NewSessionHandler constructs the handler. redirectURL is the default OAuth return address.
func NewSessionHandler(upgrader *websocket.Upgrader, redirectURL string, loadTimeout time.Duration, logger *zap.Logger) *SessionHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if upgrader == nil {
		upgrader = NewUpgrader(nil)
	}
	return &SessionHandler{
		validator:   validator.New(),
		upgrader:    upgrader,
		redirectURL: redirectURL,
		loadTimeout: loadTimeout,
		logger:      logger,
	}
}

func toSessionResponse(ctrl *session.Controller, ev session.Changed) dto.SessionResponse {
	return dto.SessionResponse{State: string(ev.State), Seq: ev.Seq, User: ev.User, Mock: ctrl.Mock()}
}

func (h *SessionHandler) controller(c *gin.Context) (*session.Controller, bool) {
	ctrl := middleware.SessionFromContext(c)
	if ctrl == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "session middleware not installed"))
		return nil, false
	}
	return ctrl, true
}

// settle waits for the session to leave loading, bounded by the load timeout.
func (h *SessionHandler) settle(c *gin.Context, ctrl *session.Controller) session.Changed {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.loadTimeout)
	defer cancel()
	snap, _ := ctrl.Await(ctx)
	return snap
}

// Get godoc
// @Summary Current session
// @Description Returns the session state. With wait=true the call blocks until the session settles or the load timeout passes.
// @Tags Session
// @Produce json
// @Param wait query bool false "Wait for the session to settle"
// @Success 200 {object} response.Envelope
// @Router /session [get]
func (h *SessionHandler) Get(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	snap := ctrl.Snapshot()
	if c.Query("wait") == "true" {
		snap = h.settle(c, ctrl)
	}
	response.JSON(c, http.StatusOK, toSessionResponse(ctrl, snap))
}

// Stream godoc
// @Summary Session change stream
// @Description Websocket delivering every session transition, starting with the current state.
// @Tags Session
// @Success 101
// @Router /session/stream [get]
func (h *SessionHandler) Stream(c *gin.Context) {
	logger := h.logger.With(zap.String("request_id", requestid.Value(c)))
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Debug("session stream upgrade failed", zap.Error(err))
		return
	}
	conn := newWSConn(raw)
	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := raw.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			_ = raw.Close()
			return
		case ev, open := <-updates:
			if !open {
				conn.close(websocket.CloseGoingAway, "session closed")
				return
			}
			if err := conn.send(wsTypeSession, toSessionResponse(ctrl, ev)); err != nil {
				_ = raw.Close()
				return
			}
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				_ = raw.Close()
				return
			}
		}
	}
}

// Login godoc
// @Summary Sign in with email and password
// @Description Starts a sign-in. The session moves to loading and then to authenticated or anonymous.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.LoginRequest true "Credentials"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid login payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid login payload"))
		return
	}
	if err := ctrl.Login(c.Request.Context(), req.Email, req.Password); err != nil {
		response.Error(c, authError(err, "invalid email or password"))
		return
	}
	response.JSON(c, http.StatusAccepted, toSessionResponse(ctrl, ctrl.Snapshot()))
}

// OAuth godoc
// @Summary Start an OAuth sign-in
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.OAuthRequest true "Provider"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /auth/oauth [post]
func (h *SessionHandler) OAuth(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req models.OAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid oauth payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid oauth payload"))
		return
	}
	redirect := req.RedirectTo
	if redirect == "" {
		redirect = h.redirectURL
	}
	url, err := ctrl.LoginWithOAuth(c.Request.Context(), req.Provider, redirect)
	if err != nil {
		response.Error(c, authError(err, "oauth sign-in failed"))
		return
	}
	response.JSON(c, http.StatusOK, models.OAuthStart{Provider: req.Provider, URL: url})
}

// Callback godoc
// @Summary Complete an OAuth sign-in
// @Description Adopts the tokens handed back by the provider redirect and returns the settled session.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param payload body models.OAuthCallbackRequest true "Tokens"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /auth/callback [post]
func (h *SessionHandler) Callback(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var req models.OAuthCallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid callback payload"))
		return
	}
	if err := h.validator.Struct(req); err != nil {
		response.Error(c, appErrors.Validation(err, "invalid callback payload"))
		return
	}
	if err := ctrl.CompleteCallback(c.Request.Context(), req.AccessToken, req.RefreshToken); err != nil {
		response.Error(c, authError(err, "oauth tokens rejected"))
		return
	}
	response.JSON(c, http.StatusOK, toSessionResponse(ctrl, h.settle(c, ctrl)))
}

// Logout godoc
// @Summary Sign out
// @Description Always leaves the session anonymous, even when the remote sign-out fails.
// @Tags Authentication
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /auth/logout [post]
func (h *SessionHandler) Logout(c *gin.Context) {
	ctrl, ok := h.controller(c)
	if !ok {
		return
	}
	var meta map[string]interface{}
	if err := ctrl.Logout(c.Request.Context()); err != nil {
		meta = map[string]interface{}{"remoteSignOut": "failed"}
	}
	response.JSON(c, http.StatusOK, toSessionResponse(ctrl, ctrl.Snapshot()), meta)
}

func authError(err error, rejected string) error {
	switch {
	case errors.Is(err, session.ErrMockMode):
		return appErrors.Clone(appErrors.ErrNotConfigured, "auth provider is not configured")
	case errors.Is(err, session.ErrClosed):
		return appErrors.Clone(appErrors.ErrUnauthorized, "session expired")
	case backend.IsAuthRejection(err):
		return appErrors.Wrap(err, appErrors.ErrUnauthorized.Code, appErrors.ErrUnauthorized.Status, rejected)
	default:
		return appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "auth provider request failed")
	}
}
