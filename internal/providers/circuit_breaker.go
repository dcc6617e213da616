package providers

import (
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// newCircuitBreaker guards outbound provider calls. Only transport failures, 5xx and 429
// responses count against the breaker; a 404 is a valid answer from a healthy provider.
func newCircuitBreaker(name string, threshold int, timeout time.Duration, logger *logrus.Logger) *gobreaker.CircuitBreaker {
	if threshold < 1 {
		threshold = 5
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(threshold)
		},
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var upstreamErr *models.UpstreamError
			if errors.As(err, &upstreamErr) {
				return upstreamErr.StatusCode < http.StatusInternalServerError &&
					upstreamErr.StatusCode != http.StatusTooManyRequests
			}
			return false
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return gobreaker.NewCircuitBreaker(settings)
}

func isBreakerRejection(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
