package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewPolicy builds the cross-origin policy for the given origins. An empty list allows
// every origin, reflecting it so credentialed requests keep working.
func NewPolicy(allowedOrigins []string) *cors.Cors {
	opts := cors.Options{
		AllowCredentials: true,
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-ID"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		ExposedHeaders:   []string{"X-Request-ID", "Content-Disposition"},
		MaxAge:           600,
	}
	if len(allowedOrigins) == 0 {
		opts.AllowOriginFunc = func(string) bool { return true }
	} else {
		origins := make([]string, 0, len(allowedOrigins))
		for _, origin := range allowedOrigins {
			origins = append(origins, strings.TrimRight(origin, "/"))
		}
		opts.AllowedOrigins = origins
	}
	return cors.New(opts)
}

// New returns gin middleware enforcing the policy for allowedOrigins.
func New(allowedOrigins []string) gin.HandlerFunc {
	return Middleware(NewPolicy(allowedOrigins))
}

// Middleware adapts a policy to gin. Preflight requests are answered here.
func Middleware(policy *cors.Cors) gin.HandlerFunc {
	return func(c *gin.Context) {
		policy.HandlerFunc(c.Writer, c.Request)
		if c.Request.Method == http.MethodOptions && c.GetHeader("Access-Control-Request-Method") != "" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// CheckOrigin reports whether a websocket upgrade may proceed. Requests without an
// Origin header come from non-browser clients and are allowed.
func CheckOrigin(policy *cors.Cors) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		if r.Header.Get("Origin") == "" {
			return true
		}
		return policy.OriginAllowed(r)
	}
}
