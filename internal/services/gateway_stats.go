package services

import (
	"sync"
	"time"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// Stats are the operational counters of the gateway
type Stats struct {
	TotalRequests       int64      `json:"total_requests"`
	MockRequests        int64      `json:"mock_requests"`
	UpstreamRequests    int64      `json:"upstream_requests"`
	CacheHits           int64      `json:"cache_hits"`
	CacheMisses         int64      `json:"cache_misses"`
	Errors              int64      `json:"errors"`
	LastError           string     `json:"last_error,omitempty"`
	LastErrorTime       *time.Time `json:"last_error_time,omitempty"`
	AverageResponseTime float64    `json:"average_response_time_ms"`
}

type statsTracker struct {
	mu    sync.Mutex
	stats Stats
}

func (t *statsTracker) source(s models.DataSource) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch s {
	case models.DataSourceMock:
		t.stats.MockRequests++
	case models.DataSourceUpstream:
		t.stats.UpstreamRequests++
	}
}

func (t *statsTracker) cacheResult(hit bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if hit {
		t.stats.CacheHits++
	} else {
		t.stats.CacheMisses++
	}
}

func (t *statsTracker) failure(err error, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.Errors++
	t.stats.LastError = err.Error()
	t.stats.LastErrorTime = &at
}

// finish counts one request and folds its latency into the running average
func (t *statsTracker) finish(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats.TotalRequests++
	n := float64(t.stats.TotalRequests)
	ms := float64(elapsed) / float64(time.Millisecond)
	t.stats.AverageResponseTime = (t.stats.AverageResponseTime*(n-1) + ms) / n
}

func (t *statsTracker) snapshot() Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stats
	if s.LastErrorTime != nil {
		at := *s.LastErrorTime
		s.LastErrorTime = &at
	}
	return s
}

func (t *statsTracker) reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stats = Stats{}
}
