package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/fantasy-feed/internal/cache"
	"github.com/stitts-dev/fantasy-feed/internal/models"
	"github.com/stitts-dev/fantasy-feed/internal/ratelimit"
)

const (
	defaultSportsAPIHost    = "sportapi7.p.rapidapi.com"
	defaultSportsAPIBaseURL = "https://sportapi7.p.rapidapi.com/api/v1"

	// DefaultCacheTTL applies to search, schedule, player and team lookups
	DefaultCacheTTL = 5 * time.Minute
	// LiveCacheTTL is short because live scores move quickly
	LiveCacheTTL = 30 * time.Second
)

// SportsAPIConfig configures the sports data client
type SportsAPIConfig struct {
	BaseURL          string
	Host             string
	APIKey           string
	Timeout          time.Duration
	RequestsPerMin   int
	BreakerThreshold int
	BreakerTimeout   time.Duration
	HTTPClient       *http.Client
	Limiter          *ratelimit.FixedWindowLimiter
}

// SportsAPIClient is the only component that talks to the third-party sports data provider.
// It never swallows errors: failures surface as *models.TransportError or *models.UpstreamError.
type SportsAPIClient struct {
	httpClient *http.Client
	cache      *cache.TTLCache[any]
	limiter    *ratelimit.FixedWindowLimiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
	apiKey     string
	apiHost    string
	baseURL    string
}

// NewSportsAPIClient creates a new sports data client with its own cache and rate limiter
func NewSportsAPIClient(cfg SportsAPIConfig, logger *logrus.Logger) *SportsAPIClient {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limiter := cfg.Limiter
	if limiter == nil {
		perMin := cfg.RequestsPerMin
		if perMin <= 0 {
			perMin = 30
		}
		limiter = ratelimit.NewFixedWindowLimiter(perMin)
	}

	host := cfg.Host
	if host == "" {
		host = defaultSportsAPIHost
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultSportsAPIBaseURL
	}

	return &SportsAPIClient{
		httpClient: httpClient,
		cache:      cache.New[any](DefaultCacheTTL),
		limiter:    limiter,
		breaker:    newCircuitBreaker("sportsapi", cfg.BreakerThreshold, cfg.BreakerTimeout, logger),
		logger:     logger,
		apiKey:     cfg.APIKey,
		apiHost:    host,
		baseURL:    baseURL,
	}
}

// Search runs a ranked entity search. Results are cached per (query, kind, page).
func (c *SportsAPIClient) Search(ctx context.Context, query string, kind SearchKind, page int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, models.NewValidationError("q", "query is required")
	}
	kind, ok := ParseSearchKind(string(kind))
	if !ok {
		return nil, models.NewValidationError("kind", "must be one of all, player, team")
	}
	if page < 0 {
		return nil, models.NewValidationError("page", "must be a non-negative integer")
	}

	cacheKey := fmt.Sprintf("search:%s:%s:%d", strings.ToLower(query), kind, page)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]SearchResult), nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("type", string(kind))
	params.Set("page", strconv.Itoa(page))

	var response searchResponse
	if err := c.doJSON(ctx, "/search", params, &response); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		if err := r.validate(); err != nil {
			c.logger.WithError(err).Debug("Dropping malformed search result")
			continue
		}
		if kind != SearchAll && r.Type != string(kind) {
			continue
		}
		results = append(results, r)
	}

	c.cache.Set(cacheKey, results, DefaultCacheTTL)
	return results, nil
}

// GetMatchesByDate returns the fixtures scheduled on the calendar day of date (UTC)
func (c *SportsAPIClient) GetMatchesByDate(ctx context.Context, date time.Time) ([]models.Match, error) {
	day := date.UTC().Format("2006-01-02")
	cacheKey := "matches:date:" + day
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.Match), nil
	}

	var response eventsResponse
	if err := c.doJSON(ctx, "/sport/football/scheduled-events/"+day, nil, &response); err != nil {
		return nil, err
	}

	matches := c.convertEvents(response.Events)
	c.cache.Set(cacheKey, matches, DefaultCacheTTL)

	c.logger.WithFields(logrus.Fields{
		"source": "sportsapi",
		"date":   day,
		"count":  len(matches),
	}).Debug("Fetched scheduled events")
	return matches, nil
}

// GetLiveMatches returns fixtures currently in play
func (c *SportsAPIClient) GetLiveMatches(ctx context.Context) ([]models.Match, error) {
	const cacheKey = "matches:live"
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.([]models.Match), nil
	}

	var response eventsResponse
	if err := c.doJSON(ctx, "/sport/football/events/live", nil, &response); err != nil {
		return nil, err
	}

	matches := c.convertEvents(response.Events)
	c.cache.Set(cacheKey, matches, LiveCacheTTL)
	return matches, nil
}

// GetPlayer fetches a single player record by provider id
func (c *SportsAPIClient) GetPlayer(ctx context.Context, id int64) (*RawPlayer, error) {
	if id <= 0 {
		return nil, models.NewValidationError("id", "must be a positive integer")
	}
	cacheKey := fmt.Sprintf("player:%d", id)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*RawPlayer), nil
	}

	var response playerResponse
	if err := c.doJSON(ctx, fmt.Sprintf("/player/%d", id), nil, &response); err != nil {
		return nil, err
	}
	if response.Player == nil {
		return nil, &models.NotFoundError{Source: SourceLabel, Kind: "player", ID: strconv.FormatInt(id, 10)}
	}
	if err := response.Player.validate(); err != nil {
		return nil, &models.UpstreamError{Endpoint: "/player", StatusCode: http.StatusOK, Message: err.Error()}
	}

	c.cache.Set(cacheKey, response.Player, DefaultCacheTTL)
	return response.Player, nil
}

// GetTeam fetches a single team record by provider id
func (c *SportsAPIClient) GetTeam(ctx context.Context, id int64) (*RawTeam, error) {
	if id <= 0 {
		return nil, models.NewValidationError("id", "must be a positive integer")
	}
	cacheKey := fmt.Sprintf("team:%d", id)
	if cached, ok := c.cache.Get(cacheKey); ok {
		return cached.(*RawTeam), nil
	}

	var response teamResponse
	if err := c.doJSON(ctx, fmt.Sprintf("/team/%d", id), nil, &response); err != nil {
		return nil, err
	}
	if response.Team == nil {
		return nil, &models.NotFoundError{Source: SourceLabel, Kind: "team", ID: strconv.FormatInt(id, 10)}
	}
	if err := response.Team.validate(); err != nil {
		return nil, &models.UpstreamError{Endpoint: "/team", StatusCode: http.StatusOK, Message: err.Error()}
	}

	c.cache.Set(cacheKey, response.Team, DefaultCacheTTL)
	return response.Team, nil
}

// ClearCache drops every cached provider response
func (c *SportsAPIClient) ClearCache() {
	c.cache.Clear()
}

// GetStats reports limiter and breaker state
func (c *SportsAPIClient) GetStats() map[string]interface{} {
	counts := c.breaker.Counts()
	return map[string]interface{}{
		"cache_entries":   c.cache.Len(),
		"rate_limiter":    c.limiter.GetStats(),
		"breaker_state":   c.breaker.State().String(),
		"breaker_fails":   counts.ConsecutiveFailures,
		"breaker_request": counts.Requests,
	}
}

func (c *SportsAPIClient) convertEvents(events []RawEvent) []models.Match {
	matches := make([]models.Match, 0, len(events))
	for _, e := range events {
		if err := e.validate(); err != nil {
			c.logger.WithError(err).Warn("Dropping malformed event from sports API")
			continue
		}
		matches = append(matches, ConvertToFeedMatch(e))
	}
	return matches
}

type requestTimeoutKey struct{}

// WithRequestTimeout bounds every HTTP exchange made with the returned context by d.
// Time spent suspended in the rate limiter does not count against d.
func WithRequestTimeout(ctx context.Context, d time.Duration) context.Context {
	if d <= 0 {
		return ctx
	}
	return context.WithValue(ctx, requestTimeoutKey{}, d)
}

func requestTimeout(ctx context.Context) time.Duration {
	d, _ := ctx.Value(requestTimeoutKey{}).(time.Duration)
	return d
}

// doJSON performs a rate limited, breaker protected GET and decodes the JSON body into target.
// A limiter wait only ends early when ctx is done; that error is returned as is, not as a transport failure.
func (c *SportsAPIClient) doJSON(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	if err := c.limiter.Acquire(ctx); err != nil {
		return fmt.Errorf("waiting for rate limiter before %s: %w", endpoint, err)
	}

	reqCtx := ctx
	if d := requestTimeout(ctx); d > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, c.do(reqCtx, endpoint, params, target)
	})
	if err != nil && isBreakerRejection(err) {
		return &models.TransportError{Endpoint: endpoint, Err: err}
	}
	return err
}

func (c *SportsAPIClient) do(ctx context.Context, endpoint string, params url.Values, target interface{}) error {
	reqURL := c.baseURL + endpoint
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return &models.TransportError{Endpoint: endpoint, Err: err}
	}
	req.Header.Set("X-RapidAPI-Key", c.apiKey)
	req.Header.Set("X-RapidAPI-Host", c.apiHost)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &models.TransportError{Endpoint: endpoint, Err: err}
	}
	defer resp.Body.Close()

	c.logger.WithFields(logrus.Fields{
		"source":   "sportsapi",
		"endpoint": endpoint,
		"status":   resp.StatusCode,
		"latency":  time.Since(start),
	}).Debug("Sports API request completed")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &models.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    providerMessage(body, resp.StatusCode),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return &models.TransportError{Endpoint: endpoint, Err: err}
		}
		return &models.UpstreamError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("invalid response body: %v", err),
		}
	}
	return nil
}

func providerMessage(body []byte, status int) string {
	var parsed errorResponse
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Message != "" {
			return parsed.Message
		}
		if parsed.Error != nil && parsed.Error.Message != "" {
			return parsed.Error.Message
		}
	}
	if text := strings.TrimSpace(string(body)); text != "" {
		return text
	}
	return http.StatusText(status)
}
