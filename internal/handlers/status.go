package handlers

import (
	"net/http"
	"time"

	"github.com/alimgiray/gitemails/internal/models"
	"github.com/alimgiray/gitemails/internal/services"
	"github.com/alimgiray/gitemails/internal/tokens"
	"github.com/gin-gonic/gin"
)

// StatsSource provides crawl counters
type StatsSource interface {
	Snapshot() services.StatsSnapshot
}

// TokenSource provides the token pool state
type TokenSource interface {
	Snapshot() []tokens.TokenStatus
}

type StatusHandler struct {
	runID     string
	target    models.Target
	stats     StatsSource
	tokens    TokenSource
	startedAt time.Time
}

func NewStatusHandler(runID string, target models.Target, stats StatsSource, tokens TokenSource) *StatusHandler {
	return &StatusHandler{
		runID:     runID,
		target:    target,
		stats:     stats,
		tokens:    tokens,
		startedAt: time.Now(),
	}
}

// HealthCheck reports that the process is alive
func (h *StatusHandler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Status returns crawl progress and the masked token pool state
func (h *StatusHandler) Status(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"run_id":     h.runID,
		"target":     h.target,
		"started_at": h.startedAt.Format(time.RFC3339),
		"progress":   h.stats.Snapshot(),
		"tokens":     h.tokens.Snapshot(),
	})
}
