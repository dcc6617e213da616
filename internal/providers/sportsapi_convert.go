package providers

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/stitts-dev/fantasy-feed/internal/models"
)

// UpstreamIDPrefix marks canonical ids derived from the sports API
const UpstreamIDPrefix = "sportsapi_"

// SourceLabel is the originating-source label written on converted matches
const SourceLabel = "sportsapi"

var baseCreditsByRole = map[models.PlayerRole]float64{
	models.RoleGoalkeeper: 5,
	models.RoleDefender:   6,
	models.RoleMidfielder: 7,
	models.RoleForward:    8,
}

// IsUpstreamID reports whether a canonical id was minted by this adapter
func IsUpstreamID(id string) bool {
	return strings.HasPrefix(id, UpstreamIDPrefix)
}

// MapStatusCode maps a provider status code onto the match lifecycle.
// 0 is not started, 1-6 are in-play periods, everything else is finished.
func MapStatusCode(code int) models.MatchStatus {
	switch {
	case code == 0:
		return models.MatchStatusUpcoming
	case code >= 1 && code <= 6:
		return models.MatchStatusLive
	default:
		return models.MatchStatusCompleted
	}
}

// PopularityFromUserCount scales a follower count onto 0..100
func PopularityFromUserCount(userCount int64) int {
	if userCount <= 0 {
		return 0
	}
	p := userCount / 10000
	if p > models.MaxPopularity {
		return models.MaxPopularity
	}
	return int(p)
}

// InferRole guesses a role from a free-text position using substring checks in a fixed order
func InferRole(position string) models.PlayerRole {
	p := strings.ToLower(strings.TrimSpace(position))
	switch {
	case p == "":
		return models.RoleMidfielder
	case strings.Contains(p, "g") || strings.Contains(p, "keeper"):
		return models.RoleGoalkeeper
	case strings.Contains(p, "d") || strings.Contains(p, "def"):
		return models.RoleDefender
	case strings.Contains(p, "f") || strings.Contains(p, "forward") || strings.Contains(p, "striker"):
		return models.RoleForward
	default:
		return models.RoleMidfielder
	}
}

// CreditsFor prices a player from its role and follower count, rounded to one decimal
func CreditsFor(role models.PlayerRole, userCount int64) float64 {
	base, ok := baseCreditsByRole[role]
	if !ok {
		base = baseCreditsByRole[models.RoleMidfielder]
	}
	if userCount < 0 {
		userCount = 0
	}
	multiplier := math.Min(2, 1+float64(userCount)/1_000_000)
	return math.Round(base*multiplier*10) / 10
}

func teamLogoPath(teamID int64) string {
	return fmt.Sprintf("/images/teams/%d/logo.png", teamID)
}

// ConvertToFeedMatch normalizes a provider event into the canonical match shape
func ConvertToFeedMatch(raw RawEvent) models.Match {
	m := models.Match{
		ID:            UpstreamIDPrefix + strconv.FormatInt(raw.ID, 10),
		League:        raw.Tournament.LeagueName(),
		HomeTeam:      raw.HomeTeam.Name,
		AwayTeam:      raw.AwayTeam.Name,
		HomeTeamLogo:  teamLogoPath(raw.HomeTeam.ID),
		AwayTeamLogo:  teamLogoPath(raw.AwayTeam.ID),
		StartTime:     time.UnixMilli(raw.StartTimestamp * 1000).UTC(),
		Status:        MapStatusCode(raw.Status.Code),
		Popularity:    PopularityFromUserCount(raw.HomeTeam.UserCount),
		Source:        SourceLabel,
		LastUpdated:   time.Now().UTC(),
		CurationState: models.CurationFeedOnly,
		AuditTrail:    []models.AuditEntry{},
		Players:       []models.Player{},
	}
	if raw.Venue != nil {
		m.Venue = raw.Venue.Name
	}
	return m
}

// ConvertToFeedPlayer normalizes a provider player into the canonical roster entry
func ConvertToFeedPlayer(raw RawPlayer, matchID string) models.Player {
	role := InferRole(raw.Position)
	team := ""
	if raw.Team != nil {
		team = raw.Team.Name
	}
	injury := "fit"
	if raw.Injured {
		injury = "injured"
	}

	return models.Player{
		ID:        UpstreamIDPrefix + strconv.FormatInt(raw.ID, 10),
		MatchID:   matchID,
		Name:      raw.Name,
		Team:      team,
		Role:      role,
		Position:  role.PositionCode(),
		Credits:   CreditsFor(role, raw.UserCount),
		IsPlaying: !raw.Injured,
		Metadata: models.PlayerMetadata{
			InjuryStatus: injury,
			MarketValue:  raw.ProposedMarketValue,
		},
	}
}
