package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/gin-gonic/gin"
)

// Sentry gives every request its own hub and a performance transaction.
// It does nothing when Sentry has not been initialised.
func Sentry() gin.HandlerFunc {
	return func(c *gin.Context) {
		if sentry.CurrentHub().Client() == nil {
			c.Next()
			return
		}

		hub := sentry.CurrentHub().Clone()
		hub.ConfigureScope(func(scope *sentry.Scope) {
			scope.SetContext("request", map[string]interface{}{
				"method":  c.Request.Method,
				"url":     c.Request.URL.String(),
				"headers": safeHeaders(c.Request.Header),
			})
			scope.SetTag("http.method", c.Request.Method)
			scope.SetTag("request_id", c.GetString(ContextRequestID))
		})
		ctx := sentry.SetHubOnContext(c.Request.Context(), hub)

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		transaction := sentry.StartTransaction(ctx,
			fmt.Sprintf("%s %s", c.Request.Method, route),
			sentry.ContinueFromRequest(c.Request),
		)
		defer func() {
			transaction.Status = sentry.HTTPtoSpanStatus(c.Writer.Status())
			transaction.Finish()
		}()

		c.Request = c.Request.WithContext(transaction.Context())
		c.Next()
	}
}

func safeHeaders(h http.Header) map[string]interface{} {
	safe := make(map[string]interface{}, len(h))
	for k, v := range h {
		if strings.EqualFold(k, "Authorization") || strings.EqualFold(k, "Cookie") {
			safe[k] = "[FILTERED]"
		} else {
			safe[k] = v
		}
	}
	return safe
}
