package sport

import "time"

// Prediction is one model output for a (match, bet type) pair. At most one
// record exists per pair; repeated predictor runs overwrite the predicted
// fields in place. Resolution fields are written exactly once by the
// evaluator after the match finishes.
type Prediction struct {
	ID         string    `json:"id"`
	MatchID    string    `json:"match_id"`
	LeagueID   string    `json:"league_id,omitempty"`
	HomeTeamID string    `json:"home_team_id"`
	AwayTeamID string    `json:"away_team_id"`
	MatchDate  time.Time `json:"match_date"`

	BetType          BetType `json:"bet_type"`
	PredictedOutcome string  `json:"predicted_outcome"`
	// Confidence is the predicted-class probability scaled to 0-100.
	Confidence float64 `json:"confidence"`
	// Probability is the predicted-class probability in 0-1.
	Probability float64 `json:"probability"`

	ModelVersion string             `json:"model_version"`
	Features     map[string]float64 `json:"model_features"`

	ActualResult string     `json:"actual_result,omitempty"`
	IsCorrect    *bool      `json:"is_correct,omitempty"`
	EvaluatedAt  *time.Time `json:"evaluated_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Resolved reports whether the prediction has been evaluated against the
// real result. Resolved predictions are never revisited.
func (p *Prediction) Resolved() bool {
	return p.EvaluatedAt != nil
}
