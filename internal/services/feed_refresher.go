package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// EventFeedRefreshed is published after every refresh
const EventFeedRefreshed = "feed_refreshed"

// FeedSource is a pool that can simulate provider drift
type FeedSource interface {
	RefreshFeed(ctx context.Context) (int, error)
}

// EventPublisher fans feed events out to subscribers
type EventPublisher interface {
	Publish(eventType string, data interface{})
}

// CacheInvalidator drops cached listings that a refresh made stale
type CacheInvalidator interface {
	InvalidateMatches()
}

// RefreshResult describes one completed refresh
type RefreshResult struct {
	Matches     int       `json:"matches"`
	RefreshedAt time.Time `json:"refreshed_at"`
}

// FeedRefresher periodically refreshes the local pool
type FeedRefresher struct {
	source    FeedSource
	cache     CacheInvalidator
	publisher EventPublisher
	logger    *logrus.Logger
	cron      *cron.Cron
	interval  time.Duration
	timeout   time.Duration

	mu          sync.Mutex
	isRunning   bool
	lastRefresh *RefreshResult
	runs        int64
}

// NewFeedRefresher creates a refresher. cache and publisher may be nil.
func NewFeedRefresher(source FeedSource, cache CacheInvalidator, publisher EventPublisher, logger *logrus.Logger, interval time.Duration) *FeedRefresher {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &FeedRefresher{
		source:    source,
		cache:     cache,
		publisher: publisher,
		logger:    logger,
		cron:      cron.New(),
		interval:  interval,
		timeout:   30 * time.Second,
	}
}

// Start schedules refreshes every interval
func (r *FeedRefresher) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.isRunning {
		return fmt.Errorf("feed refresher is already running")
	}

	schedule := fmt.Sprintf("@every %s", r.interval.String())
	if _, err := r.cron.AddFunc(schedule, r.scheduledRefresh); err != nil {
		return fmt.Errorf("failed to schedule feed refresh: %w", err)
	}

	r.cron.Start()
	r.isRunning = true

	r.logger.WithFields(logrus.Fields{
		"component": "feed_refresher",
		"interval":  r.interval.String(),
	}).Info("Feed refresher started")
	return nil
}

// Stop halts the schedule and waits for a running refresh to finish
func (r *FeedRefresher) Stop() {
	r.mu.Lock()
	if !r.isRunning {
		r.mu.Unlock()
		return
	}
	r.isRunning = false
	r.mu.Unlock()

	ctx := r.cron.Stop()
	<-ctx.Done()
	r.logger.WithField("component", "feed_refresher").Info("Feed refresher stopped")
}

func (r *FeedRefresher) scheduledRefresh() {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if _, err := r.RefreshNow(ctx); err != nil {
		r.logger.WithError(err).WithField("component", "feed_refresher").Error("Scheduled feed refresh failed")
	}
}

// RefreshNow perturbs the pool immediately, invalidates cached listings and publishes an event
func (r *FeedRefresher) RefreshNow(ctx context.Context) (RefreshResult, error) {
	count, err := r.source.RefreshFeed(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("failed to refresh feed: %w", err)
	}

	result := RefreshResult{Matches: count, RefreshedAt: time.Now().UTC()}

	if r.cache != nil {
		r.cache.InvalidateMatches()
	}
	if r.publisher != nil {
		r.publisher.Publish(EventFeedRefreshed, result)
	}

	r.mu.Lock()
	r.lastRefresh = &result
	r.runs++
	r.mu.Unlock()

	r.logger.WithFields(logrus.Fields{
		"component": "feed_refresher",
		"matches":   count,
	}).Debug("Feed refreshed")
	return result, nil
}

// GetStatus reports schedule and last run
func (r *FeedRefresher) GetStatus() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	status := map[string]interface{}{
		"running":  r.isRunning,
		"interval": r.interval.String(),
		"runs":     r.runs,
	}
	if r.lastRefresh != nil {
		status["last_refresh"] = r.lastRefresh.RefreshedAt
	}
	if r.isRunning {
		if entries := r.cron.Entries(); len(entries) > 0 {
			status["next_refresh"] = entries[0].Next
		}
	}
	return status
}
