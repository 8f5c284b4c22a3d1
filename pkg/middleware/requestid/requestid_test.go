package requestid

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func newRouter(seen *string, fromCtx *string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(Middleware())
	r.GET("/", func(c *gin.Context) {
		*seen = Value(c)
		*fromCtx = FromContext(c.Request.Context())
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestMiddlewareGeneratesID(t *testing.T) {
	var seen, fromCtx string
	r := newRouter(&seen, &fromCtx)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	_, err := uuid.Parse(seen)
	assert.NoError(t, err)
	assert.Equal(t, seen, rec.Header().Get(headerKey))
	assert.Equal(t, seen, fromCtx)
}

func TestMiddlewareKeepsIncomingID(t *testing.T) {
	var seen, fromCtx string
	r := newRouter(&seen, &fromCtx)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(headerKey, "req-42")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, "req-42", rec.Header().Get(headerKey))
	assert.Equal(t, "req-42", fromCtx)
}

func TestMiddlewareReplacesMalformedID(t *testing.T) {
	for name, id := range map[string]string{
		"too long":   strings.Repeat("a", maxLength+1),
		"whitespace": "req 42",
		"non ascii":  "réq",
	} {
		t.Run(name, func(t *testing.T) {
			var seen, fromCtx string
			r := newRouter(&seen, &fromCtx)

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set(headerKey, id)
			r.ServeHTTP(httptest.NewRecorder(), req)

			assert.NotEqual(t, id, seen)
			_, err := uuid.Parse(seen)
			assert.NoError(t, err)
		})
	}
}

func TestFromContextWithoutID(t *testing.T) {
	assert.Empty(t, FromContext(context.Background()))
	assert.Equal(t, "abc", FromContext(WithID(context.Background(), "abc")))
}
