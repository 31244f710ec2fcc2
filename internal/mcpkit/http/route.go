package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sjzar/mcpkit/internal/errors"
)

func (s *Service) initRouter() {
	s.router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	s.router.Any("/mcp", gin.WrapH(s.mcp.InlineHandler()))
	s.router.GET("/sse", s.mcp.HandleSSE)
	s.router.POST("/message", s.mcp.HandleMessages)

	s.router.NoRoute(s.NoRoute)
}

func (s *Service) NoRoute(c *gin.Context) {
	errors.Err(c, errors.NotFound(c.Request.URL.Path, nil))
}
