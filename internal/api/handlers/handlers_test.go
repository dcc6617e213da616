package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitts-dev/fantasy-feed/internal/api/middleware"
	"github.com/stitts-dev/fantasy-feed/internal/mock"
	"github.com/stitts-dev/fantasy-feed/internal/models"
	"github.com/stitts-dev/fantasy-feed/internal/providers"
	"github.com/stitts-dev/fantasy-feed/internal/services"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

type fakeFeed struct {
	live        []models.EnhancedMatch
	liveErr     error
	upcoming    []models.EnhancedMatch
	upcomingErr error
	players     []models.EnhancedPlayer
	playersErr  error

	from, to    time.Time
	searchQuery string
	searchLimit int
}

func (f *fakeFeed) GetUpcomingMatches(ctx context.Context, from, to time.Time) ([]models.EnhancedMatch, error) {
	f.from, f.to = from, to
	return f.upcoming, f.upcomingErr
}

func (f *fakeFeed) GetLiveMatches(ctx context.Context) ([]models.EnhancedMatch, error) {
	return f.live, f.liveErr
}

func (f *fakeFeed) GetMatchPlayers(ctx context.Context, matchID string) ([]models.EnhancedPlayer, error) {
	return f.players, f.playersErr
}

func (f *fakeFeed) SearchPlayers(ctx context.Context, query string, limit int) ([]models.EnhancedPlayer, error) {
	f.searchQuery, f.searchLimit = query, limit
	return f.players, nil
}

func (f *fakeFeed) GetStats() services.Stats {
	return services.Stats{TotalRequests: 3, UpstreamRequests: 1}
}

type fakeProvider struct {
	results []providers.SearchResult
	err     error
	calls   int
	page    int
	kind    providers.SearchKind
}

func (p *fakeProvider) Search(ctx context.Context, query string, kind providers.SearchKind, page int) ([]providers.SearchResult, error) {
	p.calls++
	p.kind, p.page = kind, page
	return p.results, p.err
}

func newFeedRouter(feed *fakeFeed, provider *fakeProvider) *gin.Engine {
	h := NewFeedHandler(feed, provider, quietLogger())
	h.now = func() time.Time { return fixedNow }

	r := gin.New()
	r.GET("/matches/live", h.GetLiveMatches)
	r.GET("/matches/upcoming", h.GetUpcomingMatches)
	r.GET("/matches/:id/players", h.GetMatchPlayers)
	r.GET("/players/search", h.SearchPlayers)
	r.GET("/search", h.Search)
	return r
}

func doRequest(r http.Handler, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body
}

func enhanced(id string, source models.DataSource) models.EnhancedMatch {
	return models.Enhance(models.Match{ID: id, HomeTeam: "A", AwayTeam: "B", StartTime: fixedNow}, source, fixedNow)
}

func TestGetLiveMatches(t *testing.T) {
	feed := &fakeFeed{live: []models.EnhancedMatch{
		enhanced("sportsapi_1", models.DataSourceUpstream),
		enhanced("sportsapi_2", models.DataSourceUpstream),
	}}
	w := doRequest(newFeedRouter(feed, &fakeProvider{}), http.MethodGet, "/matches/live", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=30", w.Header().Get("Cache-Control"))
	assert.True(t, strings.HasSuffix(w.Header().Get("X-Response-Time"), "ms"))

	body := decode(t, w)
	assert.Len(t, body["matches"], 2)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(2), meta["count"])
	assert.Equal(t, map[string]interface{}{"mock": float64(0), "upstream": float64(2)}, meta["sources"])
	assert.Equal(t, "2024-03-01T12:00:00Z", meta["timestamp"])
	stats := meta["service_stats"].(map[string]interface{})
	assert.Equal(t, float64(3), stats["total_requests"])
}

func TestGetLiveMatchesEmptyList(t *testing.T) {
	feed := &fakeFeed{live: []models.EnhancedMatch{}}
	w := doRequest(newFeedRouter(feed, &fakeProvider{}), http.MethodGet, "/matches/live", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, []interface{}{}, body["matches"])
}

func TestSearchValidation(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		field string
	}{
		{"missing query", "/search", "q"},
		{"blank query", "/search?q=%20%20", "q"},
		{"bad kind", "/search?q=messi&kind=coach", "kind"},
		{"negative page", "/search?q=messi&page=-1", "page"},
		{"non integer page", "/search?q=messi&page=1.5", "page"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{}
			w := doRequest(newFeedRouter(&fakeFeed{}, provider), http.MethodGet, tt.path, "", nil)

			assert.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, "VALIDATION_ERROR", body["code"])
			assert.Equal(t, tt.field, body["details"])
			assert.NotEmpty(t, body["error"])
			assert.Zero(t, provider.calls, "invalid requests never reach the provider")
		})
	}
}

func TestSearchSuccess(t *testing.T) {
	provider := &fakeProvider{results: []providers.SearchResult{
		{Entity: providers.SearchEntity{ID: 7, Name: "Lionel Messi"}, Score: 0.9, Type: "player"},
	}}
	w := doRequest(newFeedRouter(&fakeFeed{}, provider), http.MethodGet, "/search?q=messi&kind=PLAYER&page=2", "", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "public, max-age=300", w.Header().Get("Cache-Control"))
	assert.Equal(t, providers.SearchPlayer, provider.kind)
	assert.Equal(t, 2, provider.page)

	body := decode(t, w)
	assert.Len(t, body["results"], 1)
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, "messi", meta["query"])
	assert.Equal(t, "player", meta["kind"])
	assert.Equal(t, float64(1), meta["count"])
}

func TestSearchErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"transport", &models.TransportError{Endpoint: "/search", Err: context.DeadlineExceeded}, http.StatusServiceUnavailable, "UPSTREAM_UNAVAILABLE"},
		{"rate limited", &models.UpstreamError{Endpoint: "/search", StatusCode: 429}, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
		{"auth", &models.UpstreamError{Endpoint: "/search", StatusCode: 403}, http.StatusBadGateway, "UPSTREAM_AUTH_FAILED"},
		{"unclassified", assert.AnError, http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			provider := &fakeProvider{err: tt.err}
			w := doRequest(newFeedRouter(&fakeFeed{}, provider), http.MethodGet, "/search?q=messi", "", nil)

			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			assert.Equal(t, tt.code, body["code"])
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestGetUpcomingMatches(t *testing.T) {
	feed := &fakeFeed{upcoming: []models.EnhancedMatch{enhanced("mock_001", models.DataSourceMock)}}
	r := newFeedRouter(feed, &fakeProvider{})

	w := doRequest(r, http.MethodGet, "/matches/upcoming", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fixedNow, feed.from)
	assert.Equal(t, fixedNow.Add(7*24*time.Hour), feed.to)

	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["data"], 1)

	w = doRequest(r, http.MethodGet, "/matches/upcoming?from=2024-03-02T00:00:00Z&to=1709596800", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), feed.from)
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), feed.to)

	w = doRequest(r, http.MethodGet, "/matches/upcoming?from=yesterday", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUpcomingMatchesValidationFromGateway(t *testing.T) {
	feed := &fakeFeed{upcomingErr: models.NewValidationError("to", "must not be before from")}
	w := doRequest(newFeedRouter(feed, &fakeProvider{}), http.MethodGet, "/matches/upcoming", "", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "to", decode(t, w)["details"])
}

func TestGetMatchPlayersNotFound(t *testing.T) {
	feed := &fakeFeed{playersErr: &models.NotFoundError{Source: "mock", Kind: "match", ID: "mock_999"}}
	w := doRequest(newFeedRouter(feed, &fakeProvider{}), http.MethodGet, "/matches/mock_999/players", "", nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NOT_FOUND", decode(t, w)["code"])
}

func TestSearchPlayersLimit(t *testing.T) {
	feed := &fakeFeed{players: []models.EnhancedPlayer{}}
	r := newFeedRouter(feed, &fakeProvider{})

	w := doRequest(r, http.MethodGet, "/players/search?q=kane", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 10, feed.searchLimit)

	w = doRequest(r, http.MethodGet, "/players/search?q=kane&limit=25", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 25, feed.searchLimit)

	for _, bad := range []string{"0", "51", "abc"} {
		w = doRequest(r, http.MethodGet, "/players/search?q=kane&limit="+bad, "", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, bad)
	}

	w = doRequest(r, http.MethodGet, "/players/search", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeCuration struct {
	actor string
	state models.CurationState
	ids   []string
	err   error
}

func (f *fakeCuration) Update(ctx context.Context, matchID string, state models.CurationState, actor string) (models.Match, error) {
	f.actor, f.state = actor, state
	if f.err != nil {
		return models.Match{}, f.err
	}
	return models.Match{ID: matchID, CurationState: state}, nil
}

func (f *fakeCuration) BulkUpdate(ctx context.Context, ids []string, state models.CurationState, actor string) (mock.BulkResult, error) {
	f.actor, f.state, f.ids = actor, state, ids
	if f.err != nil {
		return mock.BulkResult{}, f.err
	}
	return mock.BulkResult{Updated: ids[:1], Failed: map[string]string{ids[1]: "not found"}}, nil
}

type fakeControl struct {
	cfg     services.GatewayConfig
	cleared int
	resets  int
	update  services.ConfigUpdate
}

func (f *fakeControl) GetMatch(ctx context.Context, id string) (models.EnhancedMatch, error) {
	if id != "mock_001" {
		return models.EnhancedMatch{}, &models.NotFoundError{Source: "mock", Kind: "match", ID: id}
	}
	return enhanced(id, models.DataSourceMock), nil
}

func (f *fakeControl) GetStats() services.Stats { return services.Stats{} }
func (f *fakeControl) ResetStats()              { f.resets++ }
func (f *fakeControl) CacheSize() int           { return 4 }
func (f *fakeControl) ClearCache()              { f.cleared++ }
func (f *fakeControl) Config() services.GatewayConfig {
	return f.cfg
}

func (f *fakeControl) UpdateConfig(update services.ConfigUpdate) (services.GatewayConfig, error) {
	f.update = update
	if update.Strategy != nil {
		f.cfg.Strategy = *update.Strategy
	}
	if update.Timeout != nil {
		f.cfg.Timeout = *update.Timeout
	}
	return f.cfg, nil
}

type fakeRefresher struct{ calls int }

func (f *fakeRefresher) RefreshNow(ctx context.Context) (services.RefreshResult, error) {
	f.calls++
	return services.RefreshResult{Matches: 50, RefreshedAt: fixedNow}, nil
}

func newAdminRouter(curation *fakeCuration, control *fakeControl, refresher *fakeRefresher) *gin.Engine {
	h := NewAdminHandler(curation, control, refresher, quietLogger())

	r := gin.New()
	admin := r.Group("/", middleware.AdminOnly([]string{"editor"}))
	admin.GET("/admin/matches/:id", h.GetMatch)
	admin.PUT("/admin/matches/:id/curation", h.UpdateCuration)
	admin.POST("/admin/matches/curation/bulk", h.BulkUpdateCuration)
	admin.POST("/admin/feed/refresh", h.RefreshFeed)
	admin.POST("/feed/stats/reset", h.ResetStats)
	admin.DELETE("/feed/cache", h.ClearCache)
	admin.PATCH("/feed/config", h.UpdateConfig)
	r.GET("/feed/stats", h.GetStats)
	return r
}

var editor = map[string]string{middleware.ActorHeader: "editor"}

func TestUpdateCuration(t *testing.T) {
	curation := &fakeCuration{}
	r := newAdminRouter(curation, &fakeControl{}, &fakeRefresher{})

	w := doRequest(r, http.MethodPut, "/admin/matches/mock_001/curation", `{"state":"curated"}`, editor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "editor", curation.actor)
	assert.Equal(t, models.CurationCurated, curation.state)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "curated", data["curation_state"])

	w = doRequest(r, http.MethodPut, "/admin/matches/mock_001/curation", `{}`, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(r, http.MethodPut, "/admin/matches/mock_001/curation", `{"state":"curated"}`, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestUpdateCurationErrors(t *testing.T) {
	curation := &fakeCuration{err: models.NewValidationError("state", "must be one of feed_only, curated, blacklisted")}
	r := newAdminRouter(curation, &fakeControl{}, &fakeRefresher{})

	w := doRequest(r, http.MethodPut, "/admin/matches/mock_001/curation", `{"state":"promoted"}`, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "state", decode(t, w)["details"])

	curation.err = &models.NotFoundError{Source: "mock", Kind: "match", ID: "mock_999"}
	w = doRequest(r, http.MethodPut, "/admin/matches/mock_999/curation", `{"state":"curated"}`, editor)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBulkUpdateCuration(t *testing.T) {
	curation := &fakeCuration{}
	r := newAdminRouter(curation, &fakeControl{}, &fakeRefresher{})

	w := doRequest(r, http.MethodPost, "/admin/matches/curation/bulk",
		`{"match_ids":["mock_001","mock_999"],"state":"blacklisted"}`, editor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"mock_001", "mock_999"}, curation.ids)

	body := decode(t, w)
	data := body["data"].(map[string]interface{})
	assert.Equal(t, []interface{}{"mock_001"}, data["updated"])
	assert.Equal(t, map[string]interface{}{"mock_999": "not found"}, data["failed"])
	meta := body["meta"].(map[string]interface{})
	assert.Equal(t, float64(1), meta["failed"])
}

func TestAdminGetMatch(t *testing.T) {
	r := newAdminRouter(&fakeCuration{}, &fakeControl{}, &fakeRefresher{})

	w := doRequest(r, http.MethodGet, "/admin/matches/mock_001", "", editor)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "mock", data["data_source"])

	w = doRequest(r, http.MethodGet, "/admin/matches/nope", "", editor)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRefreshFeed(t *testing.T) {
	refresher := &fakeRefresher{}
	r := newAdminRouter(&fakeCuration{}, &fakeControl{}, refresher)

	w := doRequest(r, http.MethodPost, "/admin/feed/refresh", "", editor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, refresher.calls)
}

func TestFeedControlEndpoints(t *testing.T) {
	control := &fakeControl{cfg: services.DefaultGatewayConfig()}
	r := newAdminRouter(&fakeCuration{}, control, &fakeRefresher{})

	w := doRequest(r, http.MethodGet, "/feed/stats", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(4), data["cache_size"])
	cfg := data["config"].(map[string]interface{})
	assert.Equal(t, "hybrid", cfg["strategy"])
	assert.Equal(t, float64(15000), cfg["timeout_ms"])

	w = doRequest(r, http.MethodPost, "/feed/stats/reset", "", editor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, control.resets)

	w = doRequest(r, http.MethodDelete, "/feed/cache", "", editor)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1, control.cleared)
	assert.Equal(t, float64(4), decode(t, w)["data"].(map[string]interface{})["cleared"])

	w = doRequest(r, http.MethodDelete, "/feed/cache", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, 1, control.cleared)
}

func TestUpdateConfig(t *testing.T) {
	control := &fakeControl{cfg: services.DefaultGatewayConfig()}
	r := newAdminRouter(&fakeCuration{}, control, &fakeRefresher{})

	w := doRequest(r, http.MethodPatch, "/feed/config", `{"strategy":" Local ","timeout_ms":2500}`, editor)
	require.Equal(t, http.StatusOK, w.Code)

	require.NotNil(t, control.update.Strategy)
	assert.Equal(t, services.StrategyLocal, *control.update.Strategy)
	require.NotNil(t, control.update.Timeout)
	assert.Equal(t, 2500*time.Millisecond, *control.update.Timeout)
	assert.Nil(t, control.update.CacheEnabled)

	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "local", data["strategy"])
	assert.Equal(t, float64(2500), data["timeout_ms"])

	w = doRequest(r, http.MethodPatch, "/feed/config", `not json`, editor)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

type fakeHub struct{}

func (fakeHub) ClientCount() int { return 2 }

type fakeStatus struct{}

func (fakeStatus) GetStatus() map[string]interface{} {
	return map[string]interface{}{"running": true}
}

func TestGetHealth(t *testing.T) {
	h := NewHealthHandler(&fakeControl{cfg: services.DefaultGatewayConfig()}, fakeHub{}, fakeStatus{})
	r := gin.New()
	r.GET("/health", h.GetHealth)

	w := doRequest(r, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "hybrid", body["strategy"])
	assert.Equal(t, float64(2), body["websocket_clients"])
	assert.Equal(t, map[string]interface{}{"running": true}, body["feed_refresher"])
}
