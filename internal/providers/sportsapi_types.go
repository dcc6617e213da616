package providers

import (
	"fmt"
	"strings"
)

// SearchKind restricts an entity search
type SearchKind string

const (
	SearchAll    SearchKind = "all"
	SearchPlayer SearchKind = "player"
	SearchTeam   SearchKind = "team"
)

// ParseSearchKind validates a kind query value. Empty means all.
func ParseSearchKind(s string) (SearchKind, bool) {
	switch SearchKind(strings.ToLower(strings.TrimSpace(s))) {
	case "", SearchAll:
		return SearchAll, true
	case SearchPlayer:
		return SearchPlayer, true
	case SearchTeam:
		return SearchTeam, true
	}
	return "", false
}

// Sports API response structures. Every record is validated before conversion;
// records missing required fields are dropped at the boundary.

type RawCountry struct {
	Name   string `json:"name"`
	Alpha2 string `json:"alpha2,omitempty"`
}

type RawTeam struct {
	ID        int64       `json:"id"`
	Name      string      `json:"name"`
	ShortName string      `json:"shortName,omitempty"`
	Slug      string      `json:"slug,omitempty"`
	UserCount int64       `json:"userCount"`
	Country   *RawCountry `json:"country,omitempty"`
}

func (t RawTeam) validate() error {
	if t.ID <= 0 {
		return fmt.Errorf("team id missing")
	}
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("team %d: name missing", t.ID)
	}
	return nil
}

type rawUniqueTournament struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type RawTournament struct {
	Name             string               `json:"name"`
	UniqueTournament *rawUniqueTournament `json:"uniqueTournament,omitempty"`
}

// LeagueName prefers the unique tournament name, which omits round and group suffixes
func (t RawTournament) LeagueName() string {
	if t.UniqueTournament != nil && t.UniqueTournament.Name != "" {
		return t.UniqueTournament.Name
	}
	return t.Name
}

type RawStatus struct {
	Code        int    `json:"code"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

type rawCity struct {
	Name string `json:"name"`
}

type RawVenue struct {
	Name string   `json:"name"`
	City *rawCity `json:"city,omitempty"`
}

// RawEvent is a scheduled or live fixture as returned by the provider
type RawEvent struct {
	ID             int64         `json:"id"`
	Tournament     RawTournament `json:"tournament"`
	HomeTeam       RawTeam       `json:"homeTeam"`
	AwayTeam       RawTeam       `json:"awayTeam"`
	StartTimestamp int64         `json:"startTimestamp"`
	Status         RawStatus     `json:"status"`
	Venue          *RawVenue     `json:"venue,omitempty"`
}

func (e RawEvent) validate() error {
	if e.ID <= 0 {
		return fmt.Errorf("event id missing")
	}
	if e.StartTimestamp <= 0 {
		return fmt.Errorf("event %d: startTimestamp missing", e.ID)
	}
	if err := e.HomeTeam.validate(); err != nil {
		return fmt.Errorf("event %d: home %w", e.ID, err)
	}
	if err := e.AwayTeam.validate(); err != nil {
		return fmt.Errorf("event %d: away %w", e.ID, err)
	}
	return nil
}

// RawPlayer is a player record as returned by the provider
type RawPlayer struct {
	ID                  int64    `json:"id"`
	Name                string   `json:"name"`
	ShortName           string   `json:"shortName,omitempty"`
	Position            string   `json:"position,omitempty"`
	UserCount           int64    `json:"userCount"`
	Injured             bool     `json:"injured,omitempty"`
	ProposedMarketValue int64    `json:"proposedMarketValue,omitempty"`
	Team                *RawTeam `json:"team,omitempty"`
}

func (p RawPlayer) validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id missing")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("player %d: name missing", p.ID)
	}
	return nil
}

// SearchEntity is the union of player and team fields found in search results
type SearchEntity struct {
	ID                  int64       `json:"id"`
	Name                string      `json:"name"`
	ShortName           string      `json:"shortName,omitempty"`
	Slug                string      `json:"slug,omitempty"`
	Position            string      `json:"position,omitempty"`
	UserCount           int64       `json:"userCount"`
	ProposedMarketValue int64       `json:"proposedMarketValue,omitempty"`
	Team                *RawTeam    `json:"team,omitempty"`
	Country             *RawCountry `json:"country,omitempty"`
}

// AsPlayer views a player search entity as a RawPlayer
func (e SearchEntity) AsPlayer() RawPlayer {
	return RawPlayer{
		ID:                  e.ID,
		Name:                e.Name,
		ShortName:           e.ShortName,
		Position:            e.Position,
		UserCount:           e.UserCount,
		ProposedMarketValue: e.ProposedMarketValue,
		Team:                e.Team,
	}
}

// SearchResult is one ranked hit from the provider search endpoint
type SearchResult struct {
	Entity SearchEntity `json:"entity"`
	Score  float64      `json:"score"`
	Type   string       `json:"type"`
}

func (r SearchResult) validate() error {
	if r.Entity.ID <= 0 || strings.TrimSpace(r.Entity.Name) == "" {
		return fmt.Errorf("search result missing entity id or name")
	}
	if r.Type == "" {
		return fmt.Errorf("search result %d: type missing", r.Entity.ID)
	}
	return nil
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

type eventsResponse struct {
	Events []RawEvent `json:"events"`
}

type playerResponse struct {
	Player *RawPlayer `json:"player"`
}

type teamResponse struct {
	Team *RawTeam `json:"team"`
}

type errorResponse struct {
	Message string `json:"message"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}
