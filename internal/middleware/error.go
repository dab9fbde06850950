package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/jwalitptl/clinic-api/pkg/monitoring"
)

// ErrorHandler logs the errors handlers attached to the context and reports
// them to Sentry. Handlers write the response themselves.
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		requestID := c.GetString(ContextRequestID)
		for _, e := range c.Errors {
			log.Error().
				Err(e.Err).
				Str("request_id", requestID).
				Str("path", c.Request.URL.Path).
				Str("method", c.Request.Method).
				Str("client_ip", c.ClientIP()).
				Msg("Request error")

			monitoring.CaptureError(c.Request.Context(), e.Err, map[string]interface{}{
				"request_id": requestID,
				"route":      c.FullPath(),
			})
		}

		if !c.Writer.Written() {
			c.JSON(c.Writer.Status(), gin.H{"status": "error", "message": "internal server error"})
		}
	}
}
