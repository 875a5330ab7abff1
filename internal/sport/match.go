// Package sport defines the domain model for the prediction pipeline:
// matches, teams, predictions and the per-bet-type policy table that
// keeps label construction, outcome mapping and ground-truth computation
// in a single place.
package sport

import "time"

// MatchStatus is the lifecycle state of a match.
type MatchStatus string

const (
	StatusScheduled MatchStatus = "scheduled"
	StatusLive      MatchStatus = "live"
	StatusFinished  MatchStatus = "finished"
	StatusCancelled MatchStatus = "cancelled"
)

// Match is a single fixture between two teams. Scores and the optional
// detail stats are only set once the match is finished.
type Match struct {
	ID         string      `json:"id"`
	LeagueID   string      `json:"league_id"`
	HomeTeamID string      `json:"home_team_id"`
	AwayTeamID string      `json:"away_team_id"`
	Date       time.Time   `json:"match_date"`
	Season     string      `json:"season,omitempty"`
	Status     MatchStatus `json:"status"`

	HomeScore *int `json:"home_score,omitempty"`
	AwayScore *int `json:"away_score,omitempty"`

	HomeShots         *int `json:"home_shots,omitempty"`
	AwayShots         *int `json:"away_shots,omitempty"`
	HomeShotsOnTarget *int `json:"home_shots_on_target,omitempty"`
	AwayShotsOnTarget *int `json:"away_shots_on_target,omitempty"`
	HomeCorners       *int `json:"home_corners,omitempty"`
	AwayCorners       *int `json:"away_corners,omitempty"`
	HomeYellowCards   *int `json:"home_yellow_cards,omitempty"`
	AwayYellowCards   *int `json:"away_yellow_cards,omitempty"`
	HomeRedCards      *int `json:"home_red_cards,omitempty"`
	AwayRedCards      *int `json:"away_red_cards,omitempty"`

	HomeXG *float64 `json:"home_xg,omitempty"`
	AwayXG *float64 `json:"away_xg,omitempty"`

	ExternalIDs map[string]string `json:"external_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Finished reports whether the match is finished with both scores present.
func (m *Match) Finished() bool {
	return m.Status == StatusFinished && m.HomeScore != nil && m.AwayScore != nil
}

// Involves reports whether the given team played in this match.
func (m *Match) Involves(teamID string) bool {
	return m.HomeTeamID == teamID || m.AwayTeamID == teamID
}

// Team is a club identified across external data providers by per-provider keys.
type Team struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	LeagueID    string            `json:"league_id,omitempty"`
	Country     string            `json:"country,omitempty"`
	ExternalIDs map[string]string `json:"external_ids,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

// Venue restricts a form lookup to matches the team played at home, away, or anywhere.
type Venue string

const (
	VenueAll  Venue = "all"
	VenueHome Venue = "home"
	VenueAway Venue = "away"
)

// MatchFilter selects matches from a store. Zero values mean "no constraint".
// TeamID with Venue selects matches a team played at the given venue;
// PairA/PairB select direct meetings of an unordered team pair.
type MatchFilter struct {
	Statuses []MatchStatus
	Before   time.Time
	After    time.Time
	TeamID   string
	Venue    Venue
	PairA    string
	PairB    string
	IDs      []string
}

// Matches reports whether m satisfies every set constraint of the filter.
func (f MatchFilter) Matches(m *Match) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, s := range f.Statuses {
			if m.Status == s {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if !f.Before.IsZero() && !m.Date.Before(f.Before) {
		return false
	}
	if !f.After.IsZero() && m.Date.Before(f.After) {
		return false
	}
	if f.TeamID != "" {
		switch f.Venue {
		case VenueHome:
			if m.HomeTeamID != f.TeamID {
				return false
			}
		case VenueAway:
			if m.AwayTeamID != f.TeamID {
				return false
			}
		default:
			if !m.Involves(f.TeamID) {
				return false
			}
		}
	}
	if f.PairA != "" && f.PairB != "" {
		direct := m.HomeTeamID == f.PairA && m.AwayTeamID == f.PairB
		reverse := m.HomeTeamID == f.PairB && m.AwayTeamID == f.PairA
		if !direct && !reverse {
			return false
		}
	}
	if len(f.IDs) > 0 {
		ok := false
		for _, id := range f.IDs {
			if m.ID == id {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	return true
}
