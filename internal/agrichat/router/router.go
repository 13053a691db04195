// Package router wires HTTP routes to handlers.
package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/agrichat/internal/agrichat/handler"
)

// New creates the gin engine with all routes registered.
func New(chat *handler.ChatHandler) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery(), requestLogger())

	engine.GET("/healthz", chat.Healthz)

	v1 := engine.Group("/v1")
	{
		chatGroup := v1.Group("/chat")
		{
			chatGroup.POST("/ask", chat.Ask)
			chatGroup.POST("/sessions", chat.NewSession)
			chatGroup.GET("/sessions", chat.ListSessions)
			chatGroup.DELETE("/sessions/:id", chat.DeleteSession)
			chatGroup.GET("/sessions/:id/history", chat.History)
			chatGroup.GET("/stats", chat.Stats)
		}
	}

	return engine
}

// requestLogger logs each request with latency and status.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Infow("HTTP request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}
