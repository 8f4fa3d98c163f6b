package handlers

import (
	"net/http"

	"github.com/alimgiray/gitemails/internal/middleware"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the status routes
func NewRouter(status *StatusHandler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	router.GET("/health", status.HealthCheck)
	router.GET("/status", status.Status)
	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found", "path": c.Request.URL.Path})
	})
	return router
}
