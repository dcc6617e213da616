package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/stitts-dev/fantasy-feed/internal/services"
)

// StatsSource reports gateway counters
type StatsSource interface {
	GetStats() services.Stats
	Config() services.GatewayConfig
}

// ClientCounter reports connected websocket subscribers
type ClientCounter interface {
	ClientCount() int
}

// StatusReporter reports the state of a background job
type StatusReporter interface {
	GetStatus() map[string]interface{}
}

type HealthHandler struct {
	stats     StatsSource
	hub       ClientCounter
	refresher StatusReporter
	startedAt time.Time
}

func NewHealthHandler(stats StatsSource, hub ClientCounter, refresher StatusReporter) *HealthHandler {
	return &HealthHandler{
		stats:     stats,
		hub:       hub,
		refresher: refresher,
		startedAt: time.Now(),
	}
}

// GetHealth always returns 200 while the server is running.
// It is used as the liveness probe.
func (h *HealthHandler) GetHealth(c *gin.Context) {
	body := gin.H{
		"status":    "ok",
		"service":   "fantasy-feed",
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).Truncate(time.Second).String(),
	}
	if h.stats != nil {
		body["strategy"] = h.stats.Config().Strategy
		body["gateway"] = h.stats.GetStats()
	}
	if h.hub != nil {
		body["websocket_clients"] = h.hub.ClientCount()
	}
	if h.refresher != nil {
		body["feed_refresher"] = h.refresher.GetStatus()
	}
	c.JSON(http.StatusOK, body)
}
