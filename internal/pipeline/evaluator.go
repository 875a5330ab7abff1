package pipeline

import (
	"context"
	"errors"
	"time"

	"matchcast/internal/metrics"
	"matchcast/internal/sport"
	"matchcast/internal/storage"

	"github.com/rs/zerolog/log"
)

// Evaluator resolves open predictions against finished match results.
// Resolution is a one-way transition: a prediction is evaluated at most
// once and never revisited.
type Evaluator struct {
	store   Store
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewEvaluator creates an evaluator using the wall clock.
func NewEvaluator(store Store, m *metrics.Metrics) *Evaluator {
	return &Evaluator{store: store, metrics: m, now: time.Now}
}

// Evaluate resolves every unresolved prediction whose match has finished
// and returns the number resolved. Predictions for matches that are still
// pending, cancelled or missing are left untouched.
func (e *Evaluator) Evaluate(ctx context.Context) (int, error) {
	open, err := e.store.FindUnresolvedPredictions("")
	if err != nil {
		if e.metrics != nil {
			e.metrics.StoreErrors.Inc()
		}
		return 0, &PersistenceError{Op: "load unresolved predictions", Err: err}
	}

	matchCache := make(map[string]*sport.Match)
	resolved := 0
	for i := range open {
		if err := ctx.Err(); err != nil {
			return resolved, err
		}
		pred := &open[i]

		m, ok := matchCache[pred.MatchID]
		if !ok {
			m, err = e.store.MatchByID(pred.MatchID)
			if err != nil {
				if errors.Is(err, storage.ErrNotFound) {
					log.Warn().Str("match_id", pred.MatchID).Msg("prediction references missing match")
					matchCache[pred.MatchID] = nil
					continue
				}
				if e.metrics != nil {
					e.metrics.StoreErrors.Inc()
				}
				return resolved, &PersistenceError{Op: "load match for evaluation", Err: err}
			}
			matchCache[pred.MatchID] = m
		}
		if m == nil || !m.Finished() {
			continue
		}

		policy, ok := sport.PolicyFor(pred.BetType)
		if !ok {
			log.Warn().Str("bet_type", string(pred.BetType)).Str("prediction_id", pred.ID).
				Msg("unknown bet type on stored prediction")
			continue
		}

		actual := policy.Actual(*m.HomeScore, *m.AwayScore)
		correct := pred.PredictedOutcome == actual
		evaluatedAt := e.now().UTC()

		pred.ActualResult = actual
		pred.IsCorrect = &correct
		pred.EvaluatedAt = &evaluatedAt

		if _, err := e.store.UpsertPrediction(*pred); err != nil {
			if e.metrics != nil {
				e.metrics.StoreErrors.Inc()
			}
			return resolved, &PersistenceError{Op: "persist evaluated prediction", Err: err}
		}
		resolved++

		log.Info().
			Str("match_id", pred.MatchID).
			Str("bet_type", string(pred.BetType)).
			Str("predicted", pred.PredictedOutcome).
			Str("actual", actual).
			Bool("correct", correct).
			Msg("prediction resolved")
		if e.metrics != nil {
			e.metrics.EvaluationsResolved.Inc()
			if correct {
				e.metrics.EvaluationsCorrect.Inc()
			} else {
				e.metrics.EvaluationsIncorrect.Inc()
			}
		}
	}

	log.Info().Int("resolved", resolved).Int("open", len(open)).Msg("evaluation run finished")
	return resolved, nil
}
