package sport

// BetType is one of the fixed outcome categories a prediction is made for.
type BetType string

const (
	MatchResult    BetType = "1X2"
	OverUnder25    BetType = "O/U2.5"
	BothTeamsScore BetType = "BTTS"
)

// Policy bundles everything that is specific to one bet type: the
// class-index ordering used as the training label encoding, and the
// deterministic rule that maps a final score to a class. Trainer,
// Predictor and Evaluator all consult the same policy, so labels and
// ground truth cannot drift apart.
type Policy struct {
	Type BetType
	// Key is the filesystem-safe identifier used for model artifacts.
	Key string
	// Outcomes lists the outcome labels in class-index order.
	Outcomes []string
	// Classify maps a final score to the class index into Outcomes.
	Classify func(homeGoals, awayGoals int) int
}

// Actual returns the ground-truth outcome label for a final score.
func (p Policy) Actual(homeGoals, awayGoals int) string {
	return p.Outcomes[p.Classify(homeGoals, awayGoals)]
}

// Policies is the closed set of supported bet types. Extending the system
// with a new bet type means adding one entry here.
var Policies = []Policy{
	{
		Type:     MatchResult,
		Key:      "1x2",
		Outcomes: []string{"X", "1", "2"},
		Classify: func(home, away int) int {
			switch {
			case home > away:
				return 1
			case home == away:
				return 0
			default:
				return 2
			}
		},
	},
	{
		Type:     OverUnder25,
		Key:      "ou25",
		Outcomes: []string{"Under 2.5", "Over 2.5"},
		Classify: func(home, away int) int {
			if float64(home+away) > 2.5 {
				return 1
			}
			return 0
		},
	},
	{
		Type:     BothTeamsScore,
		Key:      "btts",
		Outcomes: []string{"No", "Yes"},
		Classify: func(home, away int) int {
			if home > 0 && away > 0 {
				return 1
			}
			return 0
		},
	},
}

// PolicyFor looks up the policy for a bet type.
func PolicyFor(bt BetType) (Policy, bool) {
	for _, p := range Policies {
		if p.Type == bt {
			return p, true
		}
	}
	return Policy{}, false
}
