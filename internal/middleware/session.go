package middleware

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/noah-isme/gettogather-api/internal/models"
	"github.com/noah-isme/gettogather-api/internal/service"
	"github.com/noah-isme/gettogather-api/internal/session"
	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
	"github.com/noah-isme/gettogather-api/pkg/response"
)

// Context keys set by the session middleware.
const (
	ContextSessionKey = "session"
	ContextUserKey    = "currentUser"
)

// SessionOptions configures the browser session cookie.
type SessionOptions struct {
	CookieName string
	Secure     bool
	MaxAge     time.Duration
	Metrics    *service.MetricsService
}

// Session binds the request to the controller of its browser session, issuing a new
// session cookie and controller when the request carries none. Mount it only on the
// routes that establish a session.
func Session(registry *session.Registry, opts SessionOptions) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = "gt_session"
	}
	return func(c *gin.Context) {
		id, ok := sessionCookie(c, opts.CookieName)
		if !ok {
			id = uuid.NewString()
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(opts.CookieName, id, int(opts.MaxAge.Seconds()), "/", "", opts.Secure, true)

		ctrl := registry.Acquire(id)
		opts.Metrics.SetActiveSessions(registry.Len())
		c.Set(ContextSessionKey, ctrl)
		c.Next()
	}
}

// ResumeSession attaches the controller of an existing browser session. Requests whose
// cookie is missing or names no live session continue without one and never create
// a controller.
func ResumeSession(registry *session.Registry, opts SessionOptions) gin.HandlerFunc {
	if opts.CookieName == "" {
		opts.CookieName = "gt_session"
	}
	return func(c *gin.Context) {
		if id, ok := sessionCookie(c, opts.CookieName); ok {
			if ctrl, found := registry.Lookup(id); found {
				c.Set(ContextSessionKey, ctrl)
			}
		}
		c.Next()
	}
}

func sessionCookie(c *gin.Context, name string) (string, bool) {
	id, err := c.Cookie(name)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// SessionFromContext returns the controller attached by Session.
func SessionFromContext(c *gin.Context) *session.Controller {
	value, exists := c.Get(ContextSessionKey)
	if !exists {
		return nil
	}
	ctrl, _ := value.(*session.Controller)
	return ctrl
}

// CurrentUser returns the user attached by RequireAuthenticated.
func CurrentUser(c *gin.Context) *models.User {
	value, exists := c.Get(ContextUserKey)
	if !exists {
		return nil
	}
	user, _ := value.(*models.User)
	return user
}

// RequireAuthenticated waits up to timeout for the session to settle. A session still
// loading is reported as 503, an anonymous one as 401.
func RequireAuthenticated(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctrl := SessionFromContext(c)
		if ctrl == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		ctx := c.Request.Context()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		snap, err := ctrl.Await(ctx)
		if err != nil {
			if errors.Is(err, session.ErrClosed) {
				response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "session expired"))
			} else {
				response.Error(c, appErrors.ErrSessionLoading)
			}
			c.Abort()
			return
		}
		if snap.State != session.StateAuthenticated || snap.User == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, snap.User)
		c.Next()
	}
}

// RequireRoles allows the request through only for users holding one of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[user.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}
