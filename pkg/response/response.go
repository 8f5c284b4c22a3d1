package response

import (
	"mime"
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/gettogather-api/pkg/errors"
)

// Meta carries response metadata such as cache hits and timings.
type Meta map[string]interface{}

// Envelope is the body of every JSON response.
type Envelope struct {
	Data  interface{}      `json:"data,omitempty"`
	Error *appErrors.Error `json:"error,omitempty"`
	Meta  Meta             `json:"meta,omitempty"`
}

// JSON writes data with optional metadata. Empty metadata is omitted.
func JSON(c *gin.Context, status int, data interface{}, meta ...Meta) {
	private(c)
	env := Envelope{Data: data}
	for _, m := range meta {
		for k, v := range m {
			if env.Meta == nil {
				env.Meta = Meta{}
			}
			env.Meta[k] = v
		}
	}
	c.JSON(status, env)
}

// Created responds with 201.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error aborts the chain with the error envelope. Server-side failures are also
// attached to the context so the access log records the cause.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	private(c)
	c.AbortWithStatusJSON(appErr.Status, Envelope{Error: appErr})
}

// NoContent responds with 204.
func NoContent(c *gin.Context) {
	private(c)
	c.Status(http.StatusNoContent)
}

// Attachment sends body as a file download named filename.
func Attachment(c *gin.Context, filename, contentType string, body []byte) {
	private(c)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}
	c.Header("Content-Disposition", disposition)
	c.Header("X-Content-Type-Options", "nosniff")
	c.Data(http.StatusOK, contentType, body)
}

func private(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
}
