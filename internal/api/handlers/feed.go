package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/models"
	"github.com/stitts-dev/fantasy-feed/internal/providers"
	"github.com/stitts-dev/fantasy-feed/internal/services"
	"github.com/stitts-dev/fantasy-feed/pkg/utils"
)

const (
	defaultUpcomingWindow = 7 * 24 * time.Hour
	defaultPlayerLimit    = 10
	maxPlayerLimit        = 50

	liveCacheControl   = "public, max-age=30"
	searchCacheControl = "public, max-age=300"
)

// FeedService is the read side of the aggregation gateway
type FeedService interface {
	GetUpcomingMatches(ctx context.Context, from, to time.Time) ([]models.EnhancedMatch, error)
	GetLiveMatches(ctx context.Context) ([]models.EnhancedMatch, error)
	GetMatchPlayers(ctx context.Context, matchID string) ([]models.EnhancedPlayer, error)
	SearchPlayers(ctx context.Context, query string, limit int) ([]models.EnhancedPlayer, error)
	GetStats() services.Stats
}

// ProviderSearch runs raw entity searches against the sports data provider
type ProviderSearch interface {
	Search(ctx context.Context, query string, kind providers.SearchKind, page int) ([]providers.SearchResult, error)
}

type FeedHandler struct {
	feed     FeedService
	provider ProviderSearch
	logger   *logrus.Logger
	now      func() time.Time
}

func NewFeedHandler(feed FeedService, provider ProviderSearch, logger *logrus.Logger) *FeedHandler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &FeedHandler{feed: feed, provider: provider, logger: logger, now: time.Now}
}

// LiveMeta describes a live matches response
type LiveMeta struct {
	Count        int            `json:"count"`
	ResponseTime string         `json:"response_time"`
	Timestamp    time.Time      `json:"timestamp"`
	Sources      map[string]int `json:"sources"`
	ServiceStats services.Stats `json:"service_stats"`
}

// GetLiveMatches handles GET /matches/live
func (h *FeedHandler) GetLiveMatches(c *gin.Context) {
	start := time.Now()

	matches, err := h.feed.GetLiveMatches(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).WithField("component", "feed_handler").Error("Failed to load live matches")
		utils.AbortWithError(c, err)
		return
	}

	sources := map[string]int{
		string(models.DataSourceMock):     0,
		string(models.DataSourceUpstream): 0,
	}
	for _, m := range matches {
		sources[string(m.DataSource)]++
	}

	elapsed := time.Since(start)
	c.Header("Cache-Control", liveCacheControl)
	c.Header("X-Response-Time", formatElapsed(elapsed))
	c.JSON(http.StatusOK, gin.H{
		"matches": matches,
		"meta": LiveMeta{
			Count:        len(matches),
			ResponseTime: formatElapsed(elapsed),
			Timestamp:    h.now().UTC(),
			Sources:      sources,
			ServiceStats: h.feed.GetStats(),
		},
	})
}

// Search handles GET /search?q=&kind=&page=
func (h *FeedHandler) Search(c *gin.Context) {
	start := time.Now()

	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.SendValidationError(c, "Query parameter q is required", "q")
		return
	}
	kind, ok := providers.ParseSearchKind(c.Query("kind"))
	if !ok {
		utils.SendValidationError(c, "kind must be one of all, player, team", "kind")
		return
	}
	page := 0
	if raw := c.Query("page"); raw != "" {
		p, err := strconv.Atoi(raw)
		if err != nil || p < 0 {
			utils.SendValidationError(c, "page must be a non-negative integer", "page")
			return
		}
		page = p
	}

	results, err := h.provider.Search(c.Request.Context(), query, kind, page)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"component": "feed_handler",
			"query":     query,
			"kind":      kind,
		}).Warn("Provider search failed")
		utils.AbortWithError(c, err)
		return
	}
	if results == nil {
		results = []providers.SearchResult{}
	}

	elapsed := time.Since(start)
	c.Header("Cache-Control", searchCacheControl)
	c.Header("X-Response-Time", formatElapsed(elapsed))
	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"meta": gin.H{
			"query":         query,
			"kind":          kind,
			"page":          page,
			"count":         len(results),
			"response_time": formatElapsed(elapsed),
			"timestamp":     h.now().UTC(),
		},
	})
}

// GetUpcomingMatches handles GET /matches/upcoming?from=&to=
func (h *FeedHandler) GetUpcomingMatches(c *gin.Context) {
	now := h.now()
	from, err := parseTimeParam(c.Query("from"), now)
	if err != nil {
		utils.SendValidationError(c, "from must be RFC3339 or unix seconds", "from")
		return
	}
	to, err := parseTimeParam(c.Query("to"), from.Add(defaultUpcomingWindow))
	if err != nil {
		utils.SendValidationError(c, "to must be RFC3339 or unix seconds", "to")
		return
	}

	matches, err := h.feed.GetUpcomingMatches(c.Request.Context(), from, to)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, matches, gin.H{
		"count": len(matches),
		"from":  from.UTC(),
		"to":    to.UTC(),
	})
}

// GetMatchPlayers handles GET /matches/:id/players
func (h *FeedHandler) GetMatchPlayers(c *gin.Context) {
	matchID := c.Param("id")

	players, err := h.feed.GetMatchPlayers(c.Request.Context(), matchID)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, players, gin.H{"count": len(players), "match_id": matchID})
}

// SearchPlayers handles GET /players/search?q=&limit=
func (h *FeedHandler) SearchPlayers(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		utils.SendValidationError(c, "Query parameter q is required", "q")
		return
	}

	limit := defaultPlayerLimit
	if raw := c.Query("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l < 1 || l > maxPlayerLimit {
			utils.SendValidationError(c, fmt.Sprintf("limit must be between 1 and %d", maxPlayerLimit), "limit")
			return
		}
		limit = l
	}

	players, err := h.feed.SearchPlayers(c.Request.Context(), query, limit)
	if err != nil {
		utils.AbortWithError(c, err)
		return
	}

	utils.SendSuccessWithMeta(c, players, gin.H{"count": len(players), "query": query, "limit": limit})
}

// parseTimeParam accepts RFC3339 or unix seconds. Empty returns def.
func parseTimeParam(raw string, def time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%dms", d.Milliseconds())
}
