package features

import (
	"fmt"
	"time"

	"matchcast/internal/sport"
)

// Source is the slice of the store the extractor reads from.
type Source interface {
	FindMatches(f sport.MatchFilter, desc bool, limit int) ([]sport.Match, error)
	TeamByID(id string) (*sport.Team, error)
}

// Error marks a per-match feature computation failure. The caller skips
// the offending match and continues the batch.
type Error struct {
	MatchID string
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("feature computation for match %s: %v", e.MatchID, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

const (
	defaultFormWindow = 10
	defaultH2HWindow  = 5
)

// Extractor computes feature vectors from historical match records.
type Extractor struct {
	src        Source
	formWindow int
	h2hWindow  int
}

// NewExtractor creates an extractor with the default form and
// head-to-head window sizes.
func NewExtractor(src Source) *Extractor {
	return NewExtractorWithWindows(src, defaultFormWindow, defaultH2HWindow)
}

// NewExtractorWithWindows creates an extractor with explicit window sizes.
func NewExtractorWithWindows(src Source, formWindow, h2hWindow int) *Extractor {
	if formWindow <= 0 {
		formWindow = defaultFormWindow
	}
	if h2hWindow <= 0 {
		h2hWindow = defaultH2HWindow
	}
	return &Extractor{src: src, formWindow: formWindow, h2hWindow: h2hWindow}
}

// RecentForm aggregates the team's most recent finished matches dated
// strictly before asOf, optionally restricted to one venue. Zero matches
// found is not an error: the zero snapshot is a valid cold start.
func (e *Extractor) RecentForm(teamID string, asOf time.Time, venue sport.Venue) (FormSnapshot, error) {
	matches, err := e.src.FindMatches(sport.MatchFilter{
		Statuses: []sport.MatchStatus{sport.StatusFinished},
		Before:   asOf,
		TeamID:   teamID,
		Venue:    venue,
	}, true, e.formWindow)
	if err != nil {
		return FormSnapshot{}, fmt.Errorf("recent form for %s: %w", teamID, err)
	}
	return formFromMatches(teamID, matches), nil
}

// HeadToHead aggregates the most recent direct meetings of the pair dated
// strictly before asOf, from homeTeamID's perspective. The pair is
// unordered: meetings at either venue count.
func (e *Extractor) HeadToHead(homeTeamID, awayTeamID string, asOf time.Time) (H2HSnapshot, error) {
	matches, err := e.src.FindMatches(sport.MatchFilter{
		Statuses: []sport.MatchStatus{sport.StatusFinished},
		Before:   asOf,
		PairA:    homeTeamID,
		PairB:    awayTeamID,
	}, true, e.h2hWindow)
	if err != nil {
		return H2HSnapshot{}, fmt.Errorf("head to head %s vs %s: %w", homeTeamID, awayTeamID, err)
	}
	return h2hFromMatches(homeTeamID, matches), nil
}

// BuildVector combines home-venue form, away-venue form, head-to-head and
// calendar features for one match. An unresolvable team lookup fails with
// a per-match *Error rather than aborting the batch.
func (e *Extractor) BuildVector(m sport.Match) (Vector, error) {
	if m.HomeTeamID == "" || m.AwayTeamID == "" {
		return nil, &Error{MatchID: m.ID, Err: fmt.Errorf("match is missing team references")}
	}
	for _, teamID := range []string{m.HomeTeamID, m.AwayTeamID} {
		if _, err := e.src.TeamByID(teamID); err != nil {
			return nil, &Error{MatchID: m.ID, Err: fmt.Errorf("resolve team %s: %w", teamID, err)}
		}
	}

	homeForm, err := e.RecentForm(m.HomeTeamID, m.Date, sport.VenueHome)
	if err != nil {
		return nil, &Error{MatchID: m.ID, Err: err}
	}
	awayForm, err := e.RecentForm(m.AwayTeamID, m.Date, sport.VenueAway)
	if err != nil {
		return nil, &Error{MatchID: m.ID, Err: err}
	}
	h2h, err := e.HeadToHead(m.HomeTeamID, m.AwayTeamID, m.Date)
	if err != nil {
		return nil, &Error{MatchID: m.ID, Err: err}
	}

	v := make(Vector, 2*len(formColumns)+len(h2hColumns)+len(calendarColumns))
	v.setForm("home_", homeForm)
	v.setForm("away_", awayForm)
	v.setH2H(h2h)

	// Calendar features; day_of_week counts Monday as 0.
	dow := (int(m.Date.Weekday()) + 6) % 7
	v["month"] = float64(m.Date.Month())
	v["day_of_week"] = float64(dow)
	if dow >= 5 {
		v["is_weekend"] = 1
	} else {
		v["is_weekend"] = 0
	}

	return v, nil
}
