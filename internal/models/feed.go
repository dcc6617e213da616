package models

import (
	"time"
)

// MatchStatus is the lifecycle status of a fixture
type MatchStatus string

const (
	MatchStatusUpcoming  MatchStatus = "upcoming"
	MatchStatusLive      MatchStatus = "live"
	MatchStatusCompleted MatchStatus = "completed"
)

// CurationState is the editorial classification of a match, independent of its lifecycle status
type CurationState string

const (
	CurationFeedOnly    CurationState = "feed_only"
	CurationCurated     CurationState = "curated"
	CurationBlacklisted CurationState = "blacklisted"
)

// Valid reports whether s is one of the known curation states
func (s CurationState) Valid() bool {
	switch s {
	case CurationFeedOnly, CurationCurated, CurationBlacklisted:
		return true
	}
	return false
}

// DataSource tags where an enhanced record came from
type DataSource string

const (
	DataSourceMock     DataSource = "mock"
	DataSourceUpstream DataSource = "upstream"
)

// Fixed per-source confidence weights
const (
	MockMatchConfidence  = 85
	MockPlayerConfidence = 80
	UpstreamConfidence   = 95
)

// MaxPopularity is the upper bound of Match.Popularity
const MaxPopularity = 100

// PlayerRole is the playing role of a roster entry
type PlayerRole string

const (
	RoleGoalkeeper PlayerRole = "goalkeeper"
	RoleDefender   PlayerRole = "defender"
	RoleMidfielder PlayerRole = "midfielder"
	RoleForward    PlayerRole = "forward"
)

var positionCodes = map[PlayerRole]string{
	RoleGoalkeeper: "GK",
	RoleDefender:   "DEF",
	RoleMidfielder: "MID",
	RoleForward:    "FWD",
}

// PositionCode returns the short position code for a role. Unknown roles map to MID.
func (r PlayerRole) PositionCode() string {
	if code, ok := positionCodes[r]; ok {
		return code
	}
	return positionCodes[RoleMidfielder]
}

// Odds is a home/draw/away decimal odds triple
type Odds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// AuditEntry records a single curation change. Entries are appended, never edited.
type AuditEntry struct {
	ID        string                 `json:"id"`
	Actor     string                 `json:"actor"`
	Change    string                 `json:"change"`
	Before    map[string]interface{} `json:"before"`
	After     map[string]interface{} `json:"after"`
	Timestamp time.Time              `json:"timestamp"`
}

// Match is the canonical fixture shape shared by every data source
type Match struct {
	ID               string        `json:"id"`
	League           string        `json:"league"`
	HomeTeam         string        `json:"home_team"`
	AwayTeam         string        `json:"away_team"`
	HomeTeamLogo     string        `json:"home_team_logo"`
	AwayTeamLogo     string        `json:"away_team_logo"`
	StartTime        time.Time     `json:"start_time"`
	Status           MatchStatus   `json:"status"`
	Popularity       int           `json:"popularity"`
	Source           string        `json:"source"`
	LastUpdated      time.Time     `json:"last_updated"`
	Venue            string        `json:"venue,omitempty"`
	LineupConfidence string        `json:"lineup_confidence,omitempty"`
	Odds             *Odds         `json:"odds,omitempty"`
	CurationState    CurationState `json:"curation_state"`
	AuditTrail       []AuditEntry  `json:"audit_trail"`
	Players          []Player      `json:"players"`
}

// PlayerMetadata carries soft information about a player
type PlayerMetadata struct {
	InjuryStatus string  `json:"injury_status"`
	FormScore    float64 `json:"form_score"`
	MarketValue  int64   `json:"market_value"`
}

// Player is the canonical roster entry
type Player struct {
	ID               string         `json:"id"`
	MatchID          string         `json:"match_id"`
	Name             string         `json:"name"`
	Team             string         `json:"team"`
	Role             PlayerRole     `json:"role"`
	Position         string         `json:"position"`
	Credits          float64        `json:"credits"`
	Points           float64        `json:"points"`
	SelectionPercent float64        `json:"selection_percent"`
	IsPlaying        bool           `json:"is_playing"`
	Metadata         PlayerMetadata `json:"metadata"`
}

// EnhancedMatch is a Match annotated with provenance. It is the only match shape the gateway returns.
type EnhancedMatch struct {
	Match
	DataSource      DataSource `json:"data_source"`
	ConfidenceScore int        `json:"confidence_score"`
	LastSync        time.Time  `json:"last_sync"`
}

// EnhancedPlayer is a Player annotated with provenance
type EnhancedPlayer struct {
	Player
	DataSource      DataSource `json:"data_source"`
	ConfidenceScore int        `json:"confidence_score"`
	LastSync        time.Time  `json:"last_sync"`
}

// CurationRecord is the persisted override for a single match
type CurationRecord struct {
	MatchID    string        `json:"match_id"`
	State      CurationState `json:"state"`
	AuditTrail []AuditEntry  `json:"audit_trail"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// Enhance tags a match with its source and the matching confidence score
func Enhance(m Match, source DataSource, syncedAt time.Time) EnhancedMatch {
	score := MockMatchConfidence
	if source == DataSourceUpstream {
		score = UpstreamConfidence
	}
	return EnhancedMatch{Match: m, DataSource: source, ConfidenceScore: score, LastSync: syncedAt}
}

// EnhancePlayer tags a player with its source and the matching confidence score
func EnhancePlayer(p Player, source DataSource, syncedAt time.Time) EnhancedPlayer {
	score := MockPlayerConfidence
	if source == DataSourceUpstream {
		score = UpstreamConfidence
	}
	return EnhancedPlayer{Player: p, DataSource: source, ConfidenceScore: score, LastSync: syncedAt}
}
