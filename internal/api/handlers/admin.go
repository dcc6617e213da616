package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/api/middleware"
	"github.com/stitts-dev/fantasy-feed/internal/mock"
	"github.com/stitts-dev/fantasy-feed/internal/models"
	"github.com/stitts-dev/fantasy-feed/internal/services"
	"github.com/stitts-dev/fantasy-feed/pkg/utils"
)

// CurationUpdater applies editorial state changes
type CurationUpdater interface {
	Update(ctx context.Context, matchID string, state models.CurationState, actor string) (models.Match, error)
	BulkUpdate(ctx context.Context, ids []string, state models.CurationState, actor string) (mock.BulkResult, error)
}

// FeedControl exposes gateway inspection and tuning
type FeedControl interface {
	GetMatch(ctx context.Context, id string) (models.EnhancedMatch, error)
	GetStats() services.Stats
	ResetStats()
	CacheSize() int
	ClearCache()
	Config() services.GatewayConfig
	UpdateConfig(update services.ConfigUpdate) (services.GatewayConfig, error)
}

// Refresher triggers an out-of-schedule feed refresh
type Refresher interface {
	RefreshNow(ctx context.Context) (services.RefreshResult, error)
}

type AdminHandler struct {
	curation  CurationUpdater
	control   FeedControl
	refresher Refresher
	logger    *logrus.Logger
}

func NewAdminHandler(curation CurationUpdater, control FeedControl, refresher Refresher, logger *logrus.Logger) *AdminHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &AdminHandler{curation: curation, control: control, refresher: refresher, logger: logger}
}

type curationRequest struct {
	State models.CurationState `json:"state" binding:"required"`
}

type bulkCurationRequest struct {
	MatchIDs []string             `json:"match_ids" binding:"required"`
	State    models.CurationState `json:"state" binding:"required"`
}

type configRequest struct {
	Strategy        *string `json:"strategy"`
	FallbackEnabled *bool   `json:"fallback_enabled"`
	CacheEnabled    *bool   `json:"cache_enabled"`
	RetryAttempts   *int    `json:"retry_attempts"`
	TimeoutMS       *int64  `json:"timeout_ms"`
}

func (r configRequest) toUpdate() services.ConfigUpdate {
	var update services.ConfigUpdate
	if r.Strategy != nil {
		s := services.Strategy(strings.ToLower(strings.TrimSpace(*r.Strategy)))
		update.Strategy = &s
	}
	update.FallbackEnabled = r.FallbackEnabled
	update.CacheEnabled = r.CacheEnabled
	update.RetryAttempts = r.RetryAttempts
	if r.TimeoutMS != nil {
		d := time.Duration(*r.TimeoutMS) * time.Millisecond
		update.Timeout = &d
	}
	return update
}

// configView renders the timeout in milliseconds
func configView(cfg services.GatewayConfig) gin.H {
	return gin.H{
		"strategy":         cfg.Strategy,
		"fallback_enabled": cfg.FallbackEnabled,
		"cache_enabled":    cfg.CacheEnabled,
		"retry_attempts":   cfg.RetryAttempts,
		"timeout_ms":       cfg.Timeout.Milliseconds(),
	}
}

// GetMatch handles GET /admin/matches/:id and includes the audit trail
func (h *AdminHandler) GetMatch(c *gin.Context) {
	match, err := h.control.GetMatch(c.Request.Context(), c.Param("id"))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.SendSuccess(c, match)
}

// UpdateCuration handles PUT /admin/matches/:id/curation
func (h *AdminHandler) UpdateCuration(c *gin.Context) {
	var req curationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	actor := middleware.Actor(c)
	match, err := h.curation.Update(c.Request.Context(), c.Param("id"), req.State, actor)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"component": "admin",
		"match_id":  match.ID,
		"state":     match.CurationState,
		"actor":     actor,
	}).Info("Curation state updated")
	utils.SendSuccess(c, match)
}

// BulkUpdateCuration handles POST /admin/matches/curation/bulk
func (h *AdminHandler) BulkUpdateCuration(c *gin.Context) {
	var req bulkCurationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.curation.BulkUpdate(c.Request.Context(), req.MatchIDs, req.State, middleware.Actor(c))
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, result, gin.H{
		"updated": len(result.Updated),
		"failed":  len(result.Failed),
	})
}

// RefreshFeed handles POST /admin/feed/refresh
func (h *AdminHandler) RefreshFeed(c *gin.Context) {
	result, err := h.refresher.RefreshNow(c.Request.Context())
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}
	utils.SendSuccess(c, result)
}

// GetStats handles GET /feed/stats
func (h *AdminHandler) GetStats(c *gin.Context) {
	utils.SendSuccess(c, gin.H{
		"stats":      h.control.GetStats(),
		"cache_size": h.control.CacheSize(),
		"config":     configView(h.control.Config()),
	})
}

// ResetStats handles POST /feed/stats/reset
func (h *AdminHandler) ResetStats(c *gin.Context) {
	h.control.ResetStats()
	utils.SendSuccess(c, h.control.GetStats())
}

// ClearCache handles DELETE /feed/cache
func (h *AdminHandler) ClearCache(c *gin.Context) {
	cleared := h.control.CacheSize()
	h.control.ClearCache()

	h.logger.WithFields(logrus.Fields{
		"component": "admin",
		"entries":   cleared,
		"actor":     middleware.Actor(c),
	}).Info("Feed cache cleared")
	c.JSON(http.StatusOK, utils.Response{Success: true, Data: gin.H{"cleared": cleared}})
}

// UpdateConfig handles PATCH /feed/config
func (h *AdminHandler) UpdateConfig(c *gin.Context) {
	var req configRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.SendValidationError(c, "Invalid request body", err.Error())
		return
	}

	cfg, err := h.control.UpdateConfig(req.toUpdate())
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"component": "admin",
		"strategy":  cfg.Strategy,
		"actor":     middleware.Actor(c),
	}).Info("Feed config updated")
	utils.SendSuccess(c, configView(cfg))
}
