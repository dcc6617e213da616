package mock

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

const (
	// SourceLabel is the originating-source label of synthetic matches
	SourceLabel = "mock"

	defaultMatchCount = 50
	kickoffHorizon    = 7 * 24 * time.Hour
	premiumThreshold  = 70
)

// CurationStore persists curation overrides so they survive a restart
type CurationStore interface {
	Load(ctx context.Context) (map[string]models.CurationRecord, error)
	Save(ctx context.Context, record models.CurationRecord) error
}

// Config controls pool generation
type Config struct {
	// Seed of the generator. Zero picks a time based seed.
	Seed       int64
	MatchCount int
	// Latency is the synthetic delay applied to every read and write
	Latency time.Duration
	Now     func() time.Time
}

// BulkResult reports the per-id outcome of a bulk curation update
type BulkResult struct {
	Updated []string          `json:"updated"`
	Failed  map[string]string `json:"failed"`
}

// Generator owns a pool of synthetic matches and rosters for the process lifetime
type Generator struct {
	mu      sync.RWMutex
	matches []*models.Match
	byID    map[string]*models.Match
	rosters map[string][]models.Player
	rng     *rand.Rand
	store   CurationStore
	logger  *logrus.Logger
	latency time.Duration
	now     func() time.Time
}

// NewGenerator builds the synthetic pool
func NewGenerator(cfg Config, logger *logrus.Logger) *Generator {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	count := cfg.MatchCount
	if count <= 0 {
		count = defaultMatchCount
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	g := &Generator{
		byID:    make(map[string]*models.Match, count),
		rosters: make(map[string][]models.Player, count),
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger,
		latency: cfg.Latency,
		now:     now,
	}
	g.generate(count)

	logger.WithFields(logrus.Fields{
		"component": "mock_generator",
		"matches":   len(g.matches),
		"seed":      seed,
	}).Info("Generated synthetic match pool")
	return g
}

func (g *Generator) generate(count int) {
	start := g.now().UTC()
	for i := 0; i < count; i++ {
		lg := leagues[g.rng.Intn(len(leagues))]
		homeIdx := g.rng.Intn(len(lg.Teams))
		awayIdx := g.rng.Intn(len(lg.Teams) - 1)
		if awayIdx >= homeIdx {
			awayIdx++
		}
		home, away := lg.Teams[homeIdx], lg.Teams[awayIdx]

		kickoff := start.Add(time.Duration(g.rng.Int63n(int64(kickoffHorizon)))).Truncate(time.Minute)
		if kickoff.Before(start) {
			kickoff = kickoff.Add(time.Minute)
		}
		popularity := g.rng.Intn(models.MaxPopularity + 1)

		state := models.CurationFeedOnly
		if lg.Premium && popularity > premiumThreshold {
			state = models.CurationCurated
		}

		m := &models.Match{
			ID:               fmt.Sprintf("mock_%03d", i+1),
			League:           lg.Name,
			HomeTeam:         home.Name,
			AwayTeam:         away.Name,
			HomeTeamLogo:     "/images/mock/teams/" + home.Slug + ".png",
			AwayTeamLogo:     "/images/mock/teams/" + away.Slug + ".png",
			StartTime:        kickoff,
			Status:           models.MatchStatusUpcoming,
			Popularity:       popularity,
			Source:           SourceLabel,
			LastUpdated:      start,
			Venue:            home.Venue,
			LineupConfidence: lineupLabels[g.rng.Intn(len(lineupLabels))],
			Odds:             g.randomOdds(),
			CurationState:    state,
			AuditTrail:       []models.AuditEntry{},
			Players:          []models.Player{},
		}

		g.matches = append(g.matches, m)
		g.byID[m.ID] = m
		g.rosters[m.ID] = g.generateRoster(m)
	}
}

func (g *Generator) randomOdds() *models.Odds {
	return &models.Odds{
		Home: round(1.2+g.rng.Float64()*4, 2),
		Draw: round(2.8+g.rng.Float64()*1.6, 2),
		Away: round(1.2+g.rng.Float64()*5, 2),
	}
}

func (g *Generator) generateRoster(m *models.Match) []models.Player {
	players := make([]models.Player, 0, 48)
	popularityBoost := float64(m.Popularity) / 100 * 0.5

	for _, side := range []string{m.HomeTeam, m.AwayTeam} {
		for _, hc := range roleHeadcounts {
			bounds := creditRanges[hc.Role]
			for n := 0; n < hc.Count; n++ {
				credits := round(bounds[0]+g.rng.Float64()*(bounds[1]-bounds[0])+popularityBoost, 1)
				players = append(players, models.Player{
					ID:               fmt.Sprintf("%s_p%02d", m.ID, len(players)+1),
					MatchID:          m.ID,
					Name:             firstNames[g.rng.Intn(len(firstNames))] + " " + lastNames[g.rng.Intn(len(lastNames))],
					Team:             side,
					Role:             hc.Role,
					Position:         hc.Role.PositionCode(),
					Credits:          credits,
					Points:           round(g.rng.Float64()*150, 1),
					SelectionPercent: round(g.rng.Float64()*100, 1),
					IsPlaying:        g.rng.Float64() < 0.9,
					Metadata: models.PlayerMetadata{
						InjuryStatus: injuryStatuses[g.rng.Intn(len(injuryStatuses))],
						FormScore:    round(g.rng.Float64()*10, 1),
						MarketValue:  1_000_000 + g.rng.Int63n(99_000_000),
					},
				})
			}
		}
	}
	return players
}

// SetStore attaches the store that receives every curation change
func (g *Generator) SetStore(store CurationStore) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.store = store
}

// Restore loads persisted curation overrides and applies those whose match id exists in the pool.
// The store is kept for subsequent saves.
func (g *Generator) Restore(ctx context.Context, store CurationStore) (int, error) {
	records, err := store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load curation overrides: %w", err)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	g.store = store

	applied := 0
	for id, rec := range records {
		m, ok := g.byID[id]
		if !ok || !rec.State.Valid() {
			continue
		}
		m.CurationState = rec.State
		m.AuditTrail = append([]models.AuditEntry{}, rec.AuditTrail...)
		applied++
	}

	g.logger.WithFields(logrus.Fields{
		"component": "mock_generator",
		"records":   len(records),
		"applied":   applied,
	}).Info("Restored curation overrides")
	return applied, nil
}

// ListUpcoming returns upcoming matches with kickoff in [from, to], ordered by kickoff
func (g *Generator) ListUpcoming(ctx context.Context, from, to time.Time) ([]models.Match, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]models.Match, 0, len(g.matches))
	for _, m := range g.matches {
		if m.Status != models.MatchStatusUpcoming {
			continue
		}
		if m.StartTime.Before(from) || m.StartTime.After(to) {
			continue
		}
		result = append(result, cloneMatch(m))
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].StartTime.Before(result[j].StartTime)
	})
	return result, nil
}

// GetMatch returns one match from the pool
func (g *Generator) GetMatch(ctx context.Context, id string) (models.Match, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return models.Match{}, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	m, ok := g.byID[id]
	if !ok {
		return models.Match{}, &models.NotFoundError{Source: SourceLabel, Kind: "match", ID: id}
	}
	return cloneMatch(m), nil
}

// GetPlayers returns the synthetic roster of a match
func (g *Generator) GetPlayers(ctx context.Context, matchID string) ([]models.Player, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	roster, ok := g.rosters[matchID]
	if !ok {
		return nil, &models.NotFoundError{Source: SourceLabel, Kind: "match", ID: matchID}
	}
	return append([]models.Player(nil), roster...), nil
}

// SearchPlayers returns up to limit players whose name contains query, case-insensitively
func (g *Generator) SearchPlayers(ctx context.Context, query string, limit int) ([]models.Player, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" || limit <= 0 {
		return []models.Player{}, nil
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	result := make([]models.Player, 0, limit)
	for _, m := range g.matches {
		for _, p := range g.rosters[m.ID] {
			if strings.Contains(strings.ToLower(p.Name), needle) {
				result = append(result, p)
				if len(result) == limit {
					return result, nil
				}
			}
		}
	}
	return result, nil
}

// UpdateCurationState changes the curation state of a match and appends one audit entry
func (g *Generator) UpdateCurationState(ctx context.Context, matchID string, state models.CurationState, actor string) (models.Match, error) {
	if !state.Valid() {
		return models.Match{}, models.NewValidationError("state", fmt.Sprintf("unknown curation state %q", state))
	}
	if strings.TrimSpace(actor) == "" {
		return models.Match{}, models.NewValidationError("actor", "actor is required")
	}
	if err := g.simulateLatency(ctx); err != nil {
		return models.Match{}, err
	}

	g.mu.Lock()
	m, ok := g.byID[matchID]
	if !ok {
		g.mu.Unlock()
		return models.Match{}, &models.NotFoundError{Source: SourceLabel, Kind: "match", ID: matchID}
	}

	previous := m.CurationState
	now := g.now().UTC()
	m.CurationState = state
	m.LastUpdated = now
	m.AuditTrail = append(m.AuditTrail, models.AuditEntry{
		ID:        uuid.NewString(),
		Actor:     actor,
		Change:    fmt.Sprintf("curation state changed from %s to %s", previous, state),
		Before:    map[string]interface{}{"curation_state": string(previous)},
		After:     map[string]interface{}{"curation_state": string(state)},
		Timestamp: now,
	})
	updated := cloneMatch(m)
	store := g.store
	g.mu.Unlock()

	if store != nil {
		record := models.CurationRecord{
			MatchID:    updated.ID,
			State:      updated.CurationState,
			AuditTrail: updated.AuditTrail,
			UpdatedAt:  now,
		}
		if err := store.Save(ctx, record); err != nil {
			g.logger.WithError(err).WithField("match_id", matchID).Warn("Failed to persist curation override")
		}
	}

	g.logger.WithFields(logrus.Fields{
		"component": "mock_generator",
		"match_id":  matchID,
		"from":      previous,
		"to":        state,
		"actor":     actor,
	}).Info("Curation state updated")
	return updated, nil
}

// BulkUpdateCuration applies UpdateCurationState to every id. It is not atomic:
// ids that fail are reported and the rest stay updated.
func (g *Generator) BulkUpdateCuration(ctx context.Context, ids []string, state models.CurationState, actor string) BulkResult {
	result := BulkResult{Updated: []string{}, Failed: map[string]string{}}
	for _, id := range ids {
		if _, err := g.UpdateCurationState(ctx, id, state, actor); err != nil {
			result.Failed[id] = err.Error()
			continue
		}
		result.Updated = append(result.Updated, id)
	}
	return result
}

// RefreshFeed simulates provider drift by nudging popularity and touching last-update times
func (g *Generator) RefreshFeed(ctx context.Context) (int, error) {
	if err := g.simulateLatency(ctx); err != nil {
		return 0, err
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().UTC()
	for _, m := range g.matches {
		drift := g.rng.Intn(21) - 10
		m.Popularity = clamp(m.Popularity+drift, 0, models.MaxPopularity)
		m.LastUpdated = now
	}
	return len(g.matches), nil
}

// Count returns the pool size
func (g *Generator) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.matches)
}

func (g *Generator) simulateLatency(ctx context.Context) error {
	if g.latency <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(g.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func cloneMatch(m *models.Match) models.Match {
	c := *m
	c.AuditTrail = append([]models.AuditEntry{}, m.AuditTrail...)
	c.Players = append([]models.Player{}, m.Players...)
	if m.Odds != nil {
		odds := *m.Odds
		c.Odds = &odds
	}
	return c
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
