package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/api/handlers"
	"github.com/stitts-dev/fantasy-feed/internal/api/middleware"
)

// PublicPrefixes are served to any origin
var PublicPrefixes = []string{"/api/v1/matches", "/api/v1/search", "/api/v1/players"}

// Handlers groups everything the router mounts
type Handlers struct {
	Feed   *handlers.FeedHandler
	Admin  *handlers.AdminHandler
	Health *handlers.HealthHandler
	// Feed websocket upgrade, mounted at /ws/feed
	WebSocket gin.HandlerFunc
}

// Options configures the middleware chain
type Options struct {
	AllowedOrigins []string
	AdminActors    []string
	RateLimiter    *middleware.ClientRateLimiter
}

// NewRouter builds the gin engine with recovery, request logging, CORS and inbound rate limiting
func NewRouter(h Handlers, opts Options, logger *logrus.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(opts.AllowedOrigins, PublicPrefixes...))

	router.GET("/health", h.Health.GetHealth)
	if h.WebSocket != nil {
		router.GET("/ws/feed", h.WebSocket)
	}

	apiV1 := router.Group("/api/v1")
	if opts.RateLimiter != nil {
		apiV1.Use(opts.RateLimiter.Middleware())
	}
	SetupRoutes(apiV1, h, opts.AdminActors)

	return router
}

// SetupRoutes configures all API routes on the given router group
func SetupRoutes(group *gin.RouterGroup, h Handlers, adminActors []string) {
	// Public feed
	group.GET("/matches/live", h.Feed.GetLiveMatches)
	group.GET("/matches/upcoming", h.Feed.GetUpcomingMatches)
	group.GET("/matches/:id/players", h.Feed.GetMatchPlayers)
	group.GET("/players/search", h.Feed.SearchPlayers)
	group.GET("/search", h.Feed.Search)

	adminOnly := middleware.AdminOnly(adminActors)

	// Gateway operations
	feed := group.Group("/feed")
	feed.GET("/stats", h.Admin.GetStats)
	feed.POST("/stats/reset", adminOnly, h.Admin.ResetStats)
	feed.DELETE("/cache", adminOnly, h.Admin.ClearCache)
	feed.PATCH("/config", adminOnly, h.Admin.UpdateConfig)

	// Curation
	admin := group.Group("/admin", adminOnly)
	admin.GET("/matches/:id", h.Admin.GetMatch)
	admin.PUT("/matches/:id/curation", h.Admin.UpdateCuration)
	admin.POST("/matches/curation/bulk", h.Admin.BulkUpdateCuration)
	admin.POST("/feed/refresh", h.Admin.RefreshFeed)
}
