// Package server exposes the valuation engine over HTTP: a batch analyze
// endpoint, single item lookup and a health check.
package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/valuehound/valuehound/internal/arb"
	"github.com/valuehound/valuehound/internal/ebay"
	"github.com/valuehound/valuehound/internal/oracle"
)

// Handler holds the API's dependencies. Cfg supplies per-request defaults
// that analyze requests may override.
type Handler struct {
	Search *ebay.Client
	Oracle oracle.Oracle
	Cfg    arb.Config
}

// NewRouter builds the gin engine with all routes registered.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLog())

	h.Register(r)
	return r
}

// Register mounts the API routes.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/healthz", h.health)

	group := r.Group("/api")
	group.POST("/analyze", h.analyze)
	group.GET("/items/:id", h.getItem)
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// requestLog is a zerolog access log middleware.
func requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	}
}
