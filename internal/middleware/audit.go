package middleware

import (
	"github.com/ethosradar/backend/pkg/logger"
	"github.com/gin-gonic/gin"
)

// AuditLog writes one structured log line per admin write operation
// (POST/DELETE), after the handler has run.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "DELETE" {
			c.Next()
			return
		}

		c.Next()

		status := c.Writer.Status()
		outcome := "ok"
		if status >= 300 {
			outcome = "failed"
		}

		logger.Info().
			Bool("audit", true).
			Str("request_id", c.GetString("request_id")).
			Str("username", GetUsername(c)).
			Str("method", method).
			Str("route", c.FullPath()).
			Str("path", c.Request.URL.Path).
			Str("ip", c.ClientIP()).
			Int("status", status).
			Str("outcome", outcome).
			Msg("[Audit] " + actionName(method) + " " + c.Request.URL.Path)
	}
}

func actionName(method string) string {
	switch method {
	case "POST":
		return "Create"
	case "DELETE":
		return "Delete"
	}
	return method
}
