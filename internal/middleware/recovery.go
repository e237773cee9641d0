package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"meetdesk-backend/pkg/logger"
	"meetdesk-backend/pkg/response"
)

// Recovery recovers from panics and returns 500 error
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(c.Request.Context()).Error("Panic recovered",
					zap.Any("panic", err),
					zap.ByteString("stack", debug.Stack()))

				response.InternalError(c, "Internal server error")
				c.Abort()
			}
		}()
		c.Next()
	}
}

// HealthChecker reports whether a dependency is usable
type HealthChecker interface {
	IsDegraded() bool
}

// HealthCheck middleware answers /health before any other handler
func HealthCheck(serviceName string, deps map[string]HealthChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path != "/health" {
			c.Next()
			return
		}

		status := "healthy"
		checks := make(gin.H, len(deps))
		for name, dep := range deps {
			if dep.IsDegraded() {
				status = "degraded"
				checks[name] = "down"
			} else {
				checks[name] = "up"
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  status,
			"service": serviceName,
			"checks":  checks,
		})
		c.Abort()
	}
}
