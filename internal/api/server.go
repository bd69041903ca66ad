// Package api implements the HTTP surface: run triggering, run inspection,
// and the health endpoint.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/teamignite/pricewatch/internal/logger"
)

const (
	readHeaderTimeout = 10 * time.Second
	healthTimeout     = 2 * time.Second
)

// Pinger verifies backing store connectivity for the health endpoint.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewRouter builds the HTTP routes.
func NewRouter(runs *RunsHandler, pinger Pinger, log logger.Interface, debug bool) *gin.Engine {
	if !debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", healthHandler(pinger, log))

	v1 := router.Group("/api/v1")
	v1.POST("/runs", runs.TriggerRun)
	v1.GET("/runs", runs.ListRuns)
	v1.GET("/runs/:id", runs.GetRun)

	return router
}

// NewServer wraps the router in an http.Server bound to addr.
func NewServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// healthHandler reports process and store health.
func healthHandler(pinger Pinger, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			log.Warn("health check failed", "error", err.Error())
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"error":  err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
