package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/gettogather-api/pkg/middleware/requestid"
)

const auditTargetKey = "audit.target"

// SetAuditTarget names the resource a handler acted on when it is not in the path,
// e.g. the id of a newly created event.
func SetAuditTarget(c *gin.Context, id string) {
	c.Set(auditTargetKey, id)
}

// Audit records write operations. Completed writes are logged at info level,
// refused ones (401/403) at warn so denied attempts stay visible. Other failures
// are left to the access log.
func Audit(logger *zap.Logger, action, resource string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("audit")

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		denied := status == http.StatusUnauthorized || status == http.StatusForbidden
		if status >= http.StatusBadRequest && !denied {
			return
		}

		target := c.Param("id")
		if target == "" {
			target = c.GetString(auditTargetKey)
		}
		fields := []zap.Field{
			zap.String("action", action),
			zap.String("resource", resource),
			zap.String("target", target),
			zap.Int("status", status),
			zap.Int64("latency_ms", time.Since(start).Milliseconds()),
			zap.String("request_id", requestid.Value(c)),
		}
		if user := CurrentUser(c); user != nil {
			fields = append(fields, zap.String("actor", user.ID), zap.String("role", string(user.Role)))
		} else {
			fields = append(fields, zap.String("actor", "anonymous"))
		}

		if denied {
			logger.Warn("denied", fields...)
			return
		}
		logger.Info("completed", fields...)
	}
}
