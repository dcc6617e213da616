package services

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/mock"
	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// EventCurationUpdated is published after every successful curation change
const EventCurationUpdated = "curation_updated"

// Curator is the pool that owns curation state
type Curator interface {
	UpdateCurationState(ctx context.Context, matchID string, state models.CurationState, actor string) (models.Match, error)
	BulkUpdateCuration(ctx context.Context, ids []string, state models.CurationState, actor string) mock.BulkResult
}

// CurationService applies editorial changes and keeps readers consistent:
// cached listings are dropped and subscribers are notified.
type CurationService struct {
	curator   Curator
	cache     CacheInvalidator
	publisher EventPublisher
	logger    *logrus.Logger
}

func NewCurationService(curator Curator, cache CacheInvalidator, publisher EventPublisher, logger *logrus.Logger) *CurationService {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CurationService{curator: curator, cache: cache, publisher: publisher, logger: logger}
}

// Update changes the curation state of one match
func (s *CurationService) Update(ctx context.Context, matchID string, state models.CurationState, actor string) (models.Match, error) {
	match, err := s.curator.UpdateCurationState(ctx, matchID, state, actor)
	if err != nil {
		return models.Match{}, err
	}

	s.invalidate()
	s.publish(map[string]interface{}{
		"match_id":       match.ID,
		"curation_state": match.CurationState,
		"actor":          actor,
	})
	return match, nil
}

// BulkUpdate changes many matches. It is not atomic; failures are reported per id.
func (s *CurationService) BulkUpdate(ctx context.Context, ids []string, state models.CurationState, actor string) (mock.BulkResult, error) {
	if len(ids) == 0 {
		return mock.BulkResult{}, models.NewValidationError("match_ids", "at least one match id is required")
	}
	if !state.Valid() {
		return mock.BulkResult{}, models.NewValidationError("state", "must be one of feed_only, curated, blacklisted")
	}
	if strings.TrimSpace(actor) == "" {
		return mock.BulkResult{}, models.NewValidationError("actor", "actor is required")
	}

	result := s.curator.BulkUpdateCuration(ctx, ids, state, actor)
	if len(result.Updated) > 0 {
		s.invalidate()
		s.publish(map[string]interface{}{
			"match_ids":      result.Updated,
			"curation_state": state,
			"actor":          actor,
		})
	}

	s.logger.WithFields(logrus.Fields{
		"component": "curation",
		"updated":   len(result.Updated),
		"failed":    len(result.Failed),
		"actor":     actor,
	}).Info("Bulk curation update applied")
	return result, nil
}

func (s *CurationService) invalidate() {
	if s.cache != nil {
		s.cache.InvalidateMatches()
	}
}

func (s *CurationService) publish(data interface{}) {
	if s.publisher != nil {
		s.publisher.Publish(EventCurationUpdated, data)
	}
}
