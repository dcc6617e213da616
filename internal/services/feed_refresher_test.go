package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (s *countingSource) RefreshFeed(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return 0, s.err
	}
	return 50, nil
}

func (s *countingSource) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
}

func (p *recordingPublisher) Publish(eventType string, data interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
}

type countingInvalidator struct{ calls int }

func (c *countingInvalidator) InvalidateMatches() { c.calls++ }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func TestFeedRefresher_RefreshNow(t *testing.T) {
	source := &countingSource{}
	publisher := &recordingPublisher{}
	invalidator := &countingInvalidator{}
	r := NewFeedRefresher(source, invalidator, publisher, quietLogger(), time.Minute)

	result, err := r.RefreshNow(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50, result.Matches)
	assert.Equal(t, []string{EventFeedRefreshed}, publisher.events)
	assert.Equal(t, 1, invalidator.calls)

	status := r.GetStatus()
	assert.Equal(t, int64(1), status["runs"])
	assert.Contains(t, status, "last_refresh")
	assert.Equal(t, false, status["running"])
}

func TestFeedRefresher_RefreshFailure(t *testing.T) {
	source := &countingSource{err: errors.New("pool locked")}
	publisher := &recordingPublisher{}
	r := NewFeedRefresher(source, nil, publisher, quietLogger(), time.Minute)

	_, err := r.RefreshNow(context.Background())
	assert.Error(t, err)
	assert.Empty(t, publisher.events)
}

func TestFeedRefresher_Schedule(t *testing.T) {
	source := &countingSource{}
	r := NewFeedRefresher(source, nil, nil, quietLogger(), time.Second)

	require.NoError(t, r.Start())
	assert.Error(t, r.Start(), "second start must fail")
	assert.Equal(t, true, r.GetStatus()["running"])

	assert.Eventually(t, func() bool { return source.Calls() >= 1 }, 3*time.Second, 50*time.Millisecond)
	r.Stop()
	assert.Equal(t, false, r.GetStatus()["running"])
}
