package features

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"testing"
	"time"

	"matchcast/internal/sport"
)

// fakeSource serves matches from a slice with the same ordering and limit
// semantics as the real store.
type fakeSource struct {
	matches []sport.Match
	teams   map[string]sport.Team
}

func (f *fakeSource) FindMatches(filter sport.MatchFilter, desc bool, limit int) ([]sport.Match, error) {
	var out []sport.Match
	for _, m := range f.matches {
		m := m
		if filter.Matches(&m) {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Date.Before(out[j].Date)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeSource) TeamByID(id string) (*sport.Team, error) {
	if t, ok := f.teams[id]; ok {
		return &t, nil
	}
	return nil, fmt.Errorf("team %s: not found", id)
}

func intPtr(n int) *int { return &n }

func day(n int) time.Time {
	// 2025-01-06 is a Monday.
	return time.Date(2025, 1, 6, 16, 0, 0, 0, time.UTC).AddDate(0, 0, n)
}

func finished(home, away string, date time.Time, hs, as int) sport.Match {
	return sport.Match{
		ID:         fmt.Sprintf("%s-%s-%d", home, away, date.Unix()),
		HomeTeamID: home,
		AwayTeamID: away,
		Date:       date,
		Status:     sport.StatusFinished,
		HomeScore:  intPtr(hs),
		AwayScore:  intPtr(as),
	}
}

func teams(ids ...string) map[string]sport.Team {
	out := make(map[string]sport.Team, len(ids))
	for _, id := range ids {
		out[id] = sport.Team{ID: id, Name: id}
	}
	return out
}

func TestRecentForm_Aggregation(t *testing.T) {
	src := &fakeSource{
		matches: []sport.Match{
			finished("alpha", "beta", day(0), 3, 1),  // win, over, btts
			finished("gamma", "alpha", day(1), 0, 0), // draw, clean sheet
			finished("alpha", "gamma", day(2), 0, 2), // loss, clean sheet against
		},
		teams: teams("alpha", "beta", "gamma"),
	}
	e := NewExtractor(src)

	form, err := e.RecentForm("alpha", day(10), sport.VenueAll)
	if err != nil {
		t.Fatalf("RecentForm: %v", err)
	}

	expected := FormSnapshot{
		GamesPlayed:     3,
		Wins:            1,
		Draws:           1,
		Losses:          1,
		GoalsFor:        3,
		GoalsAgainst:    3,
		GoalsAvg:        1.0,
		GoalsAgainstAvg: 1.0,
		CleanSheets:     1,
		BTTSCount:       1,
		Over25Count:     1,
		FormPoints:      4,
	}
	if form != expected {
		t.Errorf("form = %+v, want %+v", form, expected)
	}
}

func TestRecentForm_VenueFilter(t *testing.T) {
	src := &fakeSource{
		matches: []sport.Match{
			finished("alpha", "beta", day(0), 2, 0),
			finished("beta", "alpha", day(1), 1, 0),
		},
		teams: teams("alpha", "beta"),
	}
	e := NewExtractor(src)

	home, err := e.RecentForm("alpha", day(10), sport.VenueHome)
	if err != nil {
		t.Fatalf("RecentForm home: %v", err)
	}
	if home.GamesPlayed != 1 || home.Wins != 1 {
		t.Errorf("home form = %+v, want 1 played 1 won", home)
	}

	away, err := e.RecentForm("alpha", day(10), sport.VenueAway)
	if err != nil {
		t.Fatalf("RecentForm away: %v", err)
	}
	if away.GamesPlayed != 1 || away.Losses != 1 {
		t.Errorf("away form = %+v, want 1 played 1 lost", away)
	}
}

func TestRecentForm_WindowAndCutoff(t *testing.T) {
	src := &fakeSource{teams: teams("alpha", "beta")}
	// 12 wins; only the most recent 10 before the cutoff should count.
	for i := 0; i < 12; i++ {
		src.matches = append(src.matches, finished("alpha", "beta", day(i), 1, 0))
	}
	// On and after the as-of date: must be excluded.
	src.matches = append(src.matches, finished("alpha", "beta", day(12), 9, 0))

	e := NewExtractor(src)
	form, err := e.RecentForm("alpha", day(12), sport.VenueAll)
	if err != nil {
		t.Fatalf("RecentForm: %v", err)
	}
	if form.GamesPlayed != 10 {
		t.Errorf("window not applied: got %d games", form.GamesPlayed)
	}
	if form.GoalsFor != 10 {
		t.Errorf("as-of cutoff leaked future goals: got %d", form.GoalsFor)
	}
}

func TestRecentForm_ColdStart(t *testing.T) {
	e := NewExtractor(&fakeSource{teams: teams("alpha")})

	form, err := e.RecentForm("alpha", day(0), sport.VenueAll)
	if err != nil {
		t.Fatalf("cold start must not error: %v", err)
	}
	if form != (FormSnapshot{}) {
		t.Errorf("expected zero snapshot, got %+v", form)
	}
}

func TestHeadToHead_PerspectiveAndWindow(t *testing.T) {
	src := &fakeSource{teams: teams("alpha", "beta", "gamma")}
	src.matches = append(src.matches,
		finished("alpha", "beta", day(0), 2, 0),  // alpha win
		finished("beta", "alpha", day(1), 3, 1),  // alpha loss at beta's ground
		finished("alpha", "beta", day(2), 1, 1),  // draw
		finished("alpha", "gamma", day(3), 5, 0), // different pair, ignored
	)
	// Pad with older meetings so the 5-game window has to truncate.
	for i := 4; i < 9; i++ {
		src.matches = append(src.matches, finished("beta", "alpha", day(-i), 1, 0))
	}

	e := NewExtractor(src)
	h2h, err := e.HeadToHead("alpha", "beta", day(10))
	if err != nil {
		t.Fatalf("HeadToHead: %v", err)
	}

	if h2h.Games != 5 {
		t.Fatalf("expected 5-game window, got %d", h2h.Games)
	}
	// Most recent 5: win, loss, draw, plus two of the old losses.
	if h2h.Wins != 1 || h2h.Draws != 1 || h2h.Losses != 3 {
		t.Errorf("h2h = %+v, want 1W 1D 3L from alpha's perspective", h2h)
	}
}

func TestBuildVector_CalendarAndPrefixes(t *testing.T) {
	src := &fakeSource{
		matches: []sport.Match{finished("alpha", "beta", day(0), 2, 1)},
		teams:   teams("alpha", "beta"),
	}
	e := NewExtractor(src)

	saturday := day(5) // 2025-01-11
	v, err := e.BuildVector(sport.Match{
		ID:         "target",
		HomeTeamID: "alpha",
		AwayTeamID: "beta",
		Date:       saturday,
		Status:     sport.StatusScheduled,
	})
	if err != nil {
		t.Fatalf("BuildVector: %v", err)
	}

	if v["month"] != 1 {
		t.Errorf("month = %v, want 1", v["month"])
	}
	if v["day_of_week"] != 5 {
		t.Errorf("day_of_week = %v, want 5 (Saturday, Monday=0)", v["day_of_week"])
	}
	if v["is_weekend"] != 1 {
		t.Errorf("is_weekend = %v, want 1", v["is_weekend"])
	}
	if v["home_wins"] != 1 {
		t.Errorf("home_wins = %v, want 1", v["home_wins"])
	}
	if v["away_losses"] != 1 {
		t.Errorf("away_losses = %v, want 1", v["away_losses"])
	}
	if v["h2h_games"] != 1 || v["h2h_wins"] != 1 {
		t.Errorf("h2h fields wrong: games=%v wins=%v", v["h2h_games"], v["h2h_wins"])
	}

	if len(v) != len(Columns()) {
		t.Errorf("vector has %d columns, schema has %d", len(v), len(Columns()))
	}
	for _, c := range Columns() {
		if _, ok := v[c]; !ok {
			t.Errorf("missing column %s", c)
		}
	}
}

func TestBuildVector_Deterministic(t *testing.T) {
	src := &fakeSource{teams: teams("alpha", "beta", "gamma")}
	for i := 0; i < 8; i++ {
		src.matches = append(src.matches, finished("alpha", "beta", day(i), i%3, (i+1)%2))
		src.matches = append(src.matches, finished("gamma", "alpha", day(i), i%2, i%4))
	}
	e := NewExtractor(src)

	target := sport.Match{ID: "t", HomeTeamID: "alpha", AwayTeamID: "beta", Date: day(20), Status: sport.StatusScheduled}
	first, err := e.BuildVector(target)
	if err != nil {
		t.Fatalf("BuildVector: %v", err)
	}
	second, err := e.BuildVector(target)
	if err != nil {
		t.Fatalf("BuildVector again: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("identical inputs produced different vectors")
	}
}

func TestBuildVector_UnknownTeam(t *testing.T) {
	e := NewExtractor(&fakeSource{teams: teams("alpha")})

	_, err := e.BuildVector(sport.Match{
		ID:         "broken",
		HomeTeamID: "alpha",
		AwayTeamID: "ghost",
		Date:       day(0),
	})
	var fe *Error
	if !errors.As(err, &fe) {
		t.Fatalf("expected *features.Error, got %v", err)
	}
	if fe.MatchID != "broken" {
		t.Errorf("error names match %s, want broken", fe.MatchID)
	}
}

func TestVectorAlign(t *testing.T) {
	v := Vector{"a": 1, "b": 2, "extra": 9}

	row := v.Align([]string{"b", "missing", "a"})
	expected := []float64{2, 0, 1}
	if !reflect.DeepEqual(row, expected) {
		t.Errorf("Align = %v, want %v", row, expected)
	}
}

func TestColumnsStable(t *testing.T) {
	first := Columns()
	second := Columns()
	if !reflect.DeepEqual(first, second) {
		t.Error("column order must be stable between calls")
	}
	if first[0] != "home_games_played" {
		t.Errorf("unexpected first column %s", first[0])
	}
	if first[len(first)-1] != "is_weekend" {
		t.Errorf("unexpected last column %s", first[len(first)-1])
	}
}
