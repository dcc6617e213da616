package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// DefaultCurationKey is the redis hash holding one field per match id
const DefaultCurationKey = "feed:curation"

type RedisCurationStore struct {
	client *redis.Client
	key    string
	logger *logrus.Logger
}

func NewRedisCurationStore(client *redis.Client, key string, logger *logrus.Logger) *RedisCurationStore {
	if key == "" {
		key = DefaultCurationKey
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &RedisCurationStore{client: client, key: key, logger: logger}
}

// NewRedisClient parses a redis:// url and verifies the server answers
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisCurationStore) Save(ctx context.Context, record models.CurationRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal curation record: %w", err)
	}

	if err := s.client.HSet(ctx, s.key, record.MatchID, data).Err(); err != nil {
		return fmt.Errorf("failed to save curation record: %w", err)
	}
	return nil
}

// Load returns every stored record. Undecodable fields are skipped and logged.
func (s *RedisCurationStore) Load(ctx context.Context) (map[string]models.CurationRecord, error) {
	raw, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		if err == redis.Nil {
			return map[string]models.CurationRecord{}, nil
		}
		return nil, fmt.Errorf("failed to load curation records: %w", err)
	}

	records := make(map[string]models.CurationRecord, len(raw))
	for matchID, data := range raw {
		var record models.CurationRecord
		if err := json.Unmarshal([]byte(data), &record); err != nil {
			s.logger.WithError(err).WithField("match_id", matchID).Warn("Skipping undecodable curation record")
			continue
		}
		record.MatchID = matchID
		records[matchID] = record
	}
	return records, nil
}

// Delete removes stored overrides
func (s *RedisCurationStore) Delete(ctx context.Context, matchIDs ...string) error {
	if len(matchIDs) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, s.key, matchIDs...).Err(); err != nil {
		return fmt.Errorf("failed to delete curation records: %w", err)
	}
	return nil
}
