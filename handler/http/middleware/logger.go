package middleware

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ragbot/src/log"
)

// RequestLogger writes one line per request through the global logger
func RequestLogger(name string) gin.HandlerFunc {
	logger := log.WithName(name)
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		kv := []interface{}{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency", time.Since(start).String(),
		}
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.Last(), "request failed", kv...)
			return
		}
		logger.Info("request", kv...)
	}
}

// CORS allows the user and admin hosts to call each other's JSON API
func CORS(allowedOrigins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = allowedOrigins
	cfg.AllowCredentials = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "Authorization")
	return cors.New(cfg)
}
