package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// CurationOverride is the table row behind GormCurationStore
type CurationOverride struct {
	MatchID    string         `gorm:"primaryKey;size:64" json:"match_id"`
	State      string         `gorm:"size:32;not null" json:"state"`
	AuditTrail datatypes.JSON `gorm:"type:jsonb" json:"audit_trail"`
	UpdatedAt  time.Time      `json:"updated_at"`
}

func (CurationOverride) TableName() string {
	return "curation_overrides"
}

type GormCurationStore struct {
	db *gorm.DB
}

// NewGormCurationStore migrates the overrides table and returns the store
func NewGormCurationStore(db *gorm.DB) (*GormCurationStore, error) {
	if err := db.AutoMigrate(&CurationOverride{}); err != nil {
		return nil, fmt.Errorf("failed to migrate curation_overrides: %w", err)
	}
	return &GormCurationStore{db: db}, nil
}

func (s *GormCurationStore) Save(ctx context.Context, record models.CurationRecord) error {
	trail, err := json.Marshal(record.AuditTrail)
	if err != nil {
		return fmt.Errorf("failed to marshal audit trail: %w", err)
	}

	row := CurationOverride{
		MatchID:    record.MatchID,
		State:      string(record.State),
		AuditTrail: datatypes.JSON(trail),
		UpdatedAt:  record.UpdatedAt,
	}

	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "match_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"state", "audit_trail", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to save curation override: %w", err)
	}
	return nil
}

func (s *GormCurationStore) Load(ctx context.Context) (map[string]models.CurationRecord, error) {
	var rows []CurationOverride
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load curation overrides: %w", err)
	}

	records := make(map[string]models.CurationRecord, len(rows))
	for _, row := range rows {
		var trail []models.AuditEntry
		if len(row.AuditTrail) > 0 {
			if err := json.Unmarshal(row.AuditTrail, &trail); err != nil {
				return nil, fmt.Errorf("failed to decode audit trail for %s: %w", row.MatchID, err)
			}
		}
		records[row.MatchID] = models.CurationRecord{
			MatchID:    row.MatchID,
			State:      models.CurationState(row.State),
			AuditTrail: trail,
			UpdatedAt:  row.UpdatedAt,
		}
	}
	return records, nil
}
