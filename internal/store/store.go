// Package store persists curation overrides of the synthetic match pool.
package store

import (
	"context"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// CurationStore saves and loads curation state plus audit trail per match id
type CurationStore interface {
	Load(ctx context.Context) (map[string]models.CurationRecord, error)
	Save(ctx context.Context, record models.CurationRecord) error
}
