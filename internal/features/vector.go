package features

// SchemaVersion names the feature column set below. Models persist the
// schema they were trained with; bump this when columns change.
const SchemaVersion = "v1"

var formColumns = []string{
	"games_played",
	"wins",
	"draws",
	"losses",
	"goals_for",
	"goals_against",
	"goals_avg",
	"goals_against_avg",
	"clean_sheets",
	"btts_count",
	"over_2_5_count",
	"form_points",
}

var h2hColumns = []string{
	"h2h_games",
	"h2h_wins",
	"h2h_draws",
	"h2h_losses",
}

var calendarColumns = []string{
	"month",
	"day_of_week",
	"is_weekend",
}

// Vector maps feature column names to numeric values.
type Vector map[string]float64

// Columns returns the canonical ordered column set of the current schema:
// home-venue form, away-venue form, head-to-head, then calendar features.
func Columns() []string {
	cols := make([]string, 0, 2*len(formColumns)+len(h2hColumns)+len(calendarColumns))
	for _, c := range formColumns {
		cols = append(cols, "home_"+c)
	}
	for _, c := range formColumns {
		cols = append(cols, "away_"+c)
	}
	cols = append(cols, h2hColumns...)
	cols = append(cols, calendarColumns...)
	return cols
}

// Align projects the vector onto the given column order. Missing columns
// default to 0 and columns not in the schema are dropped, so vectors built
// under a newer schema still feed models trained under an older one.
func (v Vector) Align(columns []string) []float64 {
	row := make([]float64, len(columns))
	for i, c := range columns {
		row[i] = v[c]
	}
	return row
}

func (v Vector) setForm(prefix string, f FormSnapshot) {
	v[prefix+"games_played"] = float64(f.GamesPlayed)
	v[prefix+"wins"] = float64(f.Wins)
	v[prefix+"draws"] = float64(f.Draws)
	v[prefix+"losses"] = float64(f.Losses)
	v[prefix+"goals_for"] = float64(f.GoalsFor)
	v[prefix+"goals_against"] = float64(f.GoalsAgainst)
	v[prefix+"goals_avg"] = f.GoalsAvg
	v[prefix+"goals_against_avg"] = f.GoalsAgainstAvg
	v[prefix+"clean_sheets"] = float64(f.CleanSheets)
	v[prefix+"btts_count"] = float64(f.BTTSCount)
	v[prefix+"over_2_5_count"] = float64(f.Over25Count)
	v[prefix+"form_points"] = float64(f.FormPoints)
}

func (v Vector) setH2H(h H2HSnapshot) {
	v["h2h_games"] = float64(h.Games)
	v["h2h_wins"] = float64(h.Wins)
	v["h2h_draws"] = float64(h.Draws)
	v["h2h_losses"] = float64(h.Losses)
}
