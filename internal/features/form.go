// Package features derives the fixed-schema feature vectors the models are
// trained and queried with. Every computation is a pure function of the
// finished matches dated strictly before the as-of date, so rebuilding a
// vector for the same store state is bit-identical.
package features

import "matchcast/internal/sport"

// FormSnapshot aggregates a team's most recent finished matches before an
// as-of date. A team with no history yields the zero snapshot.
type FormSnapshot struct {
	GamesPlayed     int
	Wins            int
	Draws           int
	Losses          int
	GoalsFor        int
	GoalsAgainst    int
	GoalsAvg        float64
	GoalsAgainstAvg float64
	CleanSheets     int
	BTTSCount       int
	Over25Count     int
	FormPoints      int
}

// H2HSnapshot aggregates the most recent direct meetings of a team pair,
// counted from the first (home) team's perspective.
type H2HSnapshot struct {
	Games  int
	Wins   int
	Draws  int
	Losses int
}

// formFromMatches folds finished matches into a form snapshot for teamID.
// Matches the team did not play in, or without scores, are ignored.
func formFromMatches(teamID string, matches []sport.Match) FormSnapshot {
	var snap FormSnapshot

	for i := range matches {
		m := &matches[i]
		if !m.Finished() || !m.Involves(teamID) {
			continue
		}

		ours, theirs := *m.HomeScore, *m.AwayScore
		if m.AwayTeamID == teamID {
			ours, theirs = theirs, ours
		}

		snap.GamesPlayed++
		snap.GoalsFor += ours
		snap.GoalsAgainst += theirs

		switch {
		case ours > theirs:
			snap.Wins++
			snap.FormPoints += 3
		case ours == theirs:
			snap.Draws++
			snap.FormPoints++
		default:
			snap.Losses++
		}

		if theirs == 0 {
			snap.CleanSheets++
		}
		if ours > 0 && theirs > 0 {
			snap.BTTSCount++
		}
		if float64(ours+theirs) > 2.5 {
			snap.Over25Count++
		}
	}

	if snap.GamesPlayed > 0 {
		snap.GoalsAvg = float64(snap.GoalsFor) / float64(snap.GamesPlayed)
		snap.GoalsAgainstAvg = float64(snap.GoalsAgainst) / float64(snap.GamesPlayed)
	}
	return snap
}

// h2hFromMatches folds direct meetings into a head-to-head snapshot from
// homeTeamID's perspective.
func h2hFromMatches(homeTeamID string, matches []sport.Match) H2HSnapshot {
	var snap H2HSnapshot

	for i := range matches {
		m := &matches[i]
		if !m.Finished() || !m.Involves(homeTeamID) {
			continue
		}

		ours, theirs := *m.HomeScore, *m.AwayScore
		if m.AwayTeamID == homeTeamID {
			ours, theirs = theirs, ours
		}

		snap.Games++
		switch {
		case ours > theirs:
			snap.Wins++
		case ours == theirs:
			snap.Draws++
		default:
			snap.Losses++
		}
	}
	return snap
}
