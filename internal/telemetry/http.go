package telemetry

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
)

// GinLogger logs one line per request, in place of gin's default writer log.
func GinLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		slog.InfoContext(c.Request.Context(), "http: request finished",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
