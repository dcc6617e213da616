package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/cache"
	"github.com/stitts-dev/fantasy-feed/internal/models"
	"github.com/stitts-dev/fantasy-feed/internal/providers"
)

const (
	upcomingCacheTTL = 5 * time.Minute
	liveCacheTTL     = 30 * time.Second
	liveCacheKey     = "live"

	// similarKickoffWindow is how far apart two fixtures with the same teams may kick off and still be one match
	similarKickoffWindow = time.Hour
	// MaxUpcomingRange bounds the day-by-day upstream scan. Local-only reads are not capped.
	MaxUpcomingRange = 31 * 24 * time.Hour
)

// UpstreamSource is the third-party provider as seen by the gateway
type UpstreamSource interface {
	GetMatchesByDate(ctx context.Context, date time.Time) ([]models.Match, error)
	GetLiveMatches(ctx context.Context) ([]models.Match, error)
	Search(ctx context.Context, query string, kind providers.SearchKind, page int) ([]providers.SearchResult, error)
	ClearCache()
}

// LocalSource is the synthetic match pool
type LocalSource interface {
	ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Match, error)
	GetMatch(ctx context.Context, id string) (models.Match, error)
	GetPlayers(ctx context.Context, matchID string) ([]models.Player, error)
	SearchPlayers(ctx context.Context, query string, limit int) ([]models.Player, error)
}

// GatewayOption customizes a FeedGateway
type GatewayOption func(*FeedGateway)

// WithGatewayClock replaces the time source of the gateway and its cache
func WithGatewayClock(now func() time.Time) GatewayOption {
	return func(g *FeedGateway) {
		g.now = now
	}
}

// FeedGateway reconciles the local pool and the upstream provider. It is the only
// place that decides whether an upstream failure is swallowed, degraded to local
// data or propagated.
type FeedGateway struct {
	cfgMu    sync.RWMutex
	cfg      GatewayConfig
	local    LocalSource
	upstream UpstreamSource
	cache    *cache.TTLCache[any]
	stats    statsTracker
	logger   *logrus.Logger
	now      func() time.Time
}

// NewFeedGateway wires the gateway to its two sources
func NewFeedGateway(cfg GatewayConfig, local LocalSource, upstream UpstreamSource, logger *logrus.Logger, opts ...GatewayOption) *FeedGateway {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if s, ok := ParseStrategy(string(cfg.Strategy)); ok {
		cfg.Strategy = s
	} else {
		cfg.Strategy = StrategyHybrid
	}
	if cfg.RetryAttempts < 0 {
		cfg.RetryAttempts = 0
	}

	g := &FeedGateway{
		cfg:      cfg,
		local:    local,
		upstream: upstream,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	g.cache = cache.New[any](upcomingCacheTTL, cache.WithClock[any](g.now))
	return g
}

// GetUpcomingMatches returns upcoming fixtures kicking off in [from, to] according to the configured strategy
func (g *FeedGateway) GetUpcomingMatches(ctx context.Context, from, to time.Time) ([]models.EnhancedMatch, error) {
	start := g.now()
	defer func() { g.stats.finish(g.now().Sub(start)) }()

	if to.Before(from) {
		return nil, models.NewValidationError("to", "must not be before from")
	}

	cfg := g.Config()
	if cfg.Strategy != StrategyLocal && to.Sub(from) > MaxUpcomingRange {
		return nil, models.NewValidationError("to", "range must not exceed 31 days")
	}
	key := fmt.Sprintf("upcoming:%d:%d", from.Unix(), to.Unix())
	if cfg.CacheEnabled {
		if cached, ok := g.cache.Get(key); ok {
			g.stats.cacheResult(true)
			return cloneMatches(cached.([]models.EnhancedMatch)), nil
		}
		g.stats.cacheResult(false)
	}

	log := g.logger.WithFields(logrus.Fields{
		"component": "feed_gateway",
		"strategy":  cfg.Strategy,
	})

	var (
		matches []models.EnhancedMatch
		err     error
	)
	switch cfg.Strategy {
	case StrategyLocal:
		matches, err = g.localUpcoming(ctx, from, to)
	case StrategyUpstream:
		matches, err = g.upstreamUpcoming(ctx, cfg, from, to)
	default:
		matches, err = g.hybridUpcoming(ctx, cfg, from, to)
	}

	if err != nil {
		g.stats.failure(err, g.now())
		if !cfg.FallbackEnabled || cfg.Strategy == StrategyLocal {
			return nil, err
		}
		log.WithError(err).Warn("Upcoming matches failed, falling back to local pool")
		matches, err = g.localUpcoming(ctx, from, to)
		if err != nil {
			g.stats.failure(err, g.now())
			return nil, err
		}
		return matches, nil
	}

	if cfg.CacheEnabled && len(matches) > 0 {
		g.cache.SetWithSource(key, cloneMatches(matches), upcomingCacheTTL, string(cfg.Strategy))
	}
	return matches, nil
}

func (g *FeedGateway) localUpcoming(ctx context.Context, from, to time.Time) ([]models.EnhancedMatch, error) {
	g.stats.source(models.DataSourceMock)
	matches, err := g.local.ListUpcoming(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("local upcoming matches: %w", err)
	}
	return g.enhanceMatches(matches, models.DataSourceMock), nil
}

// upstreamUpcoming scans [from, to] one UTC calendar day at a time, strictly in order.
// A failing day is logged and contributes nothing.
func (g *FeedGateway) upstreamUpcoming(ctx context.Context, cfg GatewayConfig, from, to time.Time) ([]models.EnhancedMatch, error) {
	result := []models.EnhancedMatch{}
	lastDay := truncateDay(to)
	for day := truncateDay(from); !day.After(lastDay); day = day.AddDate(0, 0, 1) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		var matches []models.Match
		g.stats.source(models.DataSourceUpstream)
		err := g.withRetry(ctx, cfg, func(callCtx context.Context) error {
			var callErr error
			matches, callErr = g.upstream.GetMatchesByDate(callCtx, day)
			return callErr
		})
		if err != nil {
			g.stats.failure(err, g.now())
			g.logger.WithError(err).WithFields(logrus.Fields{
				"component": "feed_gateway",
				"source":    providers.SourceLabel,
				"date":      day.Format("2006-01-02"),
			}).Warn("Skipping day after upstream failure")
			continue
		}

		for _, m := range matches {
			if m.StartTime.Before(from) || m.StartTime.After(to) {
				continue
			}
			result = append(result, models.Enhance(m, models.DataSourceUpstream, g.now()))
		}
	}
	sortByKickoff(result)
	return result, nil
}

// hybridUpcoming runs both sources concurrently. Neither branch can cancel the other;
// the call fails only when both do.
func (g *FeedGateway) hybridUpcoming(ctx context.Context, cfg GatewayConfig, from, to time.Time) ([]models.EnhancedMatch, error) {
	var (
		wg                    sync.WaitGroup
		local, upstream       []models.EnhancedMatch
		localErr, upstreamErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		local, localErr = g.localUpcoming(ctx, from, to)
	}()
	go func() {
		defer wg.Done()
		upstream, upstreamErr = g.upstreamUpcoming(ctx, cfg, from, to)
	}()
	wg.Wait()

	log := g.logger.WithField("component", "feed_gateway")
	if localErr != nil && upstreamErr != nil {
		return nil, fmt.Errorf("hybrid upcoming matches: local: %v; upstream: %w", localErr, upstreamErr)
	}
	if localErr != nil {
		g.stats.failure(localErr, g.now())
		log.WithError(localErr).Warn("Local branch failed in hybrid mode")
	}
	if upstreamErr != nil {
		g.stats.failure(upstreamErr, g.now())
		log.WithError(upstreamErr).Warn("Upstream branch failed in hybrid mode")
	}

	return mergeMatches(upstream, local), nil
}

// mergeMatches keeps every upstream match and adds local matches that are not similar
// to anything already kept. The result is ordered by kickoff.
func mergeMatches(upstream, local []models.EnhancedMatch) []models.EnhancedMatch {
	merged := make([]models.EnhancedMatch, 0, len(upstream)+len(local))
	merged = append(merged, upstream...)

	for _, candidate := range local {
		duplicate := false
		for _, kept := range merged {
			if similarMatches(kept.Match, candidate.Match) {
				duplicate = true
				break
			}
		}
		if !duplicate {
			merged = append(merged, candidate)
		}
	}

	sortByKickoff(merged)
	return merged
}

// similarMatches reports whether a and b are the same team pair, in either order,
// kicking off within an hour of each other
func similarMatches(a, b models.Match) bool {
	ah, aa := normalizeTeam(a.HomeTeam), normalizeTeam(a.AwayTeam)
	bh, ba := normalizeTeam(b.HomeTeam), normalizeTeam(b.AwayTeam)
	samePair := (ah == bh && aa == ba) || (ah == ba && aa == bh)
	if !samePair {
		return false
	}

	gap := a.StartTime.Sub(b.StartTime)
	if gap < 0 {
		gap = -gap
	}
	return gap <= similarKickoffWindow
}

func normalizeTeam(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// GetMatchPlayers returns the roster of a match. Upstream ids never carry lineups,
// so they resolve to an empty list.
func (g *FeedGateway) GetMatchPlayers(ctx context.Context, matchID string) ([]models.EnhancedPlayer, error) {
	start := g.now()
	defer func() { g.stats.finish(g.now().Sub(start)) }()

	if strings.TrimSpace(matchID) == "" {
		return nil, models.NewValidationError("id", "match id is required")
	}

	cfg := g.Config()
	key := "players:" + matchID
	if cfg.CacheEnabled {
		if cached, ok := g.cache.Get(key); ok {
			g.stats.cacheResult(true)
			return append([]models.EnhancedPlayer(nil), cached.([]models.EnhancedPlayer)...), nil
		}
		g.stats.cacheResult(false)
	}

	var (
		players []models.EnhancedPlayer
		err     error
	)
	if providers.IsUpstreamID(matchID) {
		players, err = g.upstreamPlayers(ctx, matchID)
		if err != nil {
			g.stats.failure(err, g.now())
			g.logger.WithError(err).WithField("match_id", matchID).Warn("Upstream roster failed, falling back to local pool")
			players, err = g.localPlayers(ctx, matchID)
		}
	} else {
		players, err = g.localPlayers(ctx, matchID)
	}
	if err != nil {
		if !models.IsNotFound(err) {
			g.stats.failure(err, g.now())
		}
		return nil, err
	}

	if cfg.CacheEnabled && len(players) > 0 {
		g.cache.SetWithSource(key, append([]models.EnhancedPlayer(nil), players...), upcomingCacheTTL, string(models.DataSourceMock))
	}
	return players, nil
}

// upstreamPlayers has no provider lineup endpoint to call
func (g *FeedGateway) upstreamPlayers(ctx context.Context, matchID string) ([]models.EnhancedPlayer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return []models.EnhancedPlayer{}, nil
}

func (g *FeedGateway) localPlayers(ctx context.Context, matchID string) ([]models.EnhancedPlayer, error) {
	g.stats.source(models.DataSourceMock)
	players, err := g.local.GetPlayers(ctx, matchID)
	if err != nil {
		return nil, err
	}
	syncedAt := g.now()
	result := make([]models.EnhancedPlayer, 0, len(players))
	for _, p := range players {
		result = append(result, models.EnhancePlayer(p, models.DataSourceMock, syncedAt))
	}
	return result, nil
}

// SearchPlayers asks the provider first unless the strategy is local, then tops up
// from the local pool. The result never exceeds limit.
func (g *FeedGateway) SearchPlayers(ctx context.Context, query string, limit int) ([]models.EnhancedPlayer, error) {
	start := g.now()
	defer func() { g.stats.finish(g.now().Sub(start)) }()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("q", "query is required")
	}
	if limit <= 0 {
		return nil, models.NewValidationError("limit", "must be a positive integer")
	}

	cfg := g.Config()
	result := make([]models.EnhancedPlayer, 0, limit)

	if cfg.Strategy != StrategyLocal {
		var hits []providers.SearchResult
		g.stats.source(models.DataSourceUpstream)
		err := g.withRetry(ctx, cfg, func(callCtx context.Context) error {
			var callErr error
			hits, callErr = g.upstream.Search(callCtx, query, providers.SearchPlayer, 0)
			return callErr
		})
		if err != nil {
			g.stats.failure(err, g.now())
			g.logger.WithError(err).WithFields(logrus.Fields{
				"component": "feed_gateway",
				"source":    providers.SourceLabel,
			}).Warn("Upstream player search failed")
		}
		syncedAt := g.now()
		for _, hit := range hits {
			if len(result) == limit {
				break
			}
			player := providers.ConvertToFeedPlayer(hit.Entity.AsPlayer(), "")
			result = append(result, models.EnhancePlayer(player, models.DataSourceUpstream, syncedAt))
		}
	}

	if remaining := limit - len(result); remaining > 0 {
		g.stats.source(models.DataSourceMock)
		players, err := g.local.SearchPlayers(ctx, query, remaining)
		if err != nil {
			g.stats.failure(err, g.now())
			return nil, fmt.Errorf("local player search: %w", err)
		}
		syncedAt := g.now()
		for _, p := range players {
			if len(result) == limit {
				break
			}
			result = append(result, models.EnhancePlayer(p, models.DataSourceMock, syncedAt))
		}
	}
	return result, nil
}

// GetLiveMatches returns in-play fixtures from the provider only. A provider failure
// yields an empty list: the local pool is never substituted for live data.
func (g *FeedGateway) GetLiveMatches(ctx context.Context) ([]models.EnhancedMatch, error) {
	start := g.now()
	defer func() { g.stats.finish(g.now().Sub(start)) }()

	// cached regardless of CacheEnabled
	if cached, ok := g.cache.Get(liveCacheKey); ok {
		g.stats.cacheResult(true)
		return cloneMatches(cached.([]models.EnhancedMatch)), nil
	}
	g.stats.cacheResult(false)

	cfg := g.Config()
	var matches []models.Match
	g.stats.source(models.DataSourceUpstream)
	err := g.withRetry(ctx, cfg, func(callCtx context.Context) error {
		var callErr error
		matches, callErr = g.upstream.GetLiveMatches(callCtx)
		return callErr
	})
	if err != nil {
		g.stats.failure(err, g.now())
		g.logger.WithError(err).WithFields(logrus.Fields{
			"component":            "feed_gateway",
			"source":               providers.SourceLabel,
			"needs_product_review": "live matches return an empty list instead of falling back",
		}).Warn("Live matches unavailable")
		return []models.EnhancedMatch{}, nil
	}

	result := g.enhanceMatches(matches, models.DataSourceUpstream)
	sortByKickoff(result)
	g.cache.SetWithSource(liveCacheKey, cloneMatches(result), liveCacheTTL, string(models.DataSourceUpstream))
	return result, nil
}

// GetMatch returns one match of the local pool including its audit trail
func (g *FeedGateway) GetMatch(ctx context.Context, id string) (models.EnhancedMatch, error) {
	start := g.now()
	defer func() { g.stats.finish(g.now().Sub(start)) }()

	g.stats.source(models.DataSourceMock)
	m, err := g.local.GetMatch(ctx, id)
	if err != nil {
		if !models.IsNotFound(err) {
			g.stats.failure(err, g.now())
		}
		return models.EnhancedMatch{}, err
	}
	return models.Enhance(m, models.DataSourceMock, g.now()), nil
}

// Config returns the current configuration
func (g *FeedGateway) Config() GatewayConfig {
	g.cfgMu.RLock()
	defer g.cfgMu.RUnlock()
	return g.cfg
}

// UpdateConfig merges the non-nil fields of update. Turning caching off clears the cache.
func (g *FeedGateway) UpdateConfig(update ConfigUpdate) (GatewayConfig, error) {
	if err := update.validate(); err != nil {
		return GatewayConfig{}, err
	}

	g.cfgMu.Lock()
	previous := g.cfg
	g.cfg = g.cfg.apply(update)
	current := g.cfg
	g.cfgMu.Unlock()

	if previous.CacheEnabled && !current.CacheEnabled {
		g.cache.Clear()
	}

	g.logger.WithFields(logrus.Fields{
		"component":        "feed_gateway",
		"strategy":         current.Strategy,
		"fallback_enabled": current.FallbackEnabled,
		"cache_enabled":    current.CacheEnabled,
		"retry_attempts":   current.RetryAttempts,
		"timeout":          current.Timeout,
	}).Info("Gateway configuration updated")
	return current, nil
}

// GetStats returns a snapshot of the counters
func (g *FeedGateway) GetStats() Stats {
	return g.stats.snapshot()
}

// ResetStats zeroes every counter
func (g *FeedGateway) ResetStats() {
	g.stats.reset()
}

// CacheSize returns the number of entries held by the gateway cache
func (g *FeedGateway) CacheSize() int {
	return g.cache.Len()
}

// ClearCache drops the gateway cache and the provider cache
func (g *FeedGateway) ClearCache() {
	g.cache.Clear()
	g.upstream.ClearCache()
}

// InvalidateMatches drops cached match listings so curation changes become visible
func (g *FeedGateway) InvalidateMatches() {
	g.cache.Clear()
}

// withRetry bounds each upstream HTTP exchange by cfg.Timeout and retries transport failures only.
// Rate limiter waits run under ctx alone.
func (g *FeedGateway) withRetry(ctx context.Context, cfg GatewayConfig, call func(ctx context.Context) error) error {
	callCtx := providers.WithRequestTimeout(ctx, cfg.Timeout)

	var err error
	for attempt := 0; attempt <= cfg.RetryAttempts; attempt++ {
		err = call(callCtx)
		if err == nil || !models.IsTransport(err) || ctx.Err() != nil {
			return err
		}
		if attempt < cfg.RetryAttempts {
			g.logger.WithError(err).WithFields(logrus.Fields{
				"component": "feed_gateway",
				"attempt":   attempt + 1,
			}).Debug("Retrying upstream call")
		}
	}
	return err
}

func (g *FeedGateway) enhanceMatches(matches []models.Match, source models.DataSource) []models.EnhancedMatch {
	syncedAt := g.now()
	result := make([]models.EnhancedMatch, 0, len(matches))
	for _, m := range matches {
		result = append(result, models.Enhance(m, source, syncedAt))
	}
	return result
}

func sortByKickoff(matches []models.EnhancedMatch) {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].StartTime.Before(matches[j].StartTime)
	})
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func cloneMatches(matches []models.EnhancedMatch) []models.EnhancedMatch {
	out := make([]models.EnhancedMatch, len(matches))
	copy(out, matches)
	return out
}
