package pipeline

import (
	"context"
	"errors"

	"matchcast/internal/features"
	"matchcast/internal/metrics"
	"matchcast/internal/ml"
	"matchcast/internal/ml/registry"
	"matchcast/internal/sport"

	"github.com/rs/zerolog/log"
)

// DefaultConfidenceGate is the minimum predicted-class probability
// required before a prediction is persisted.
const DefaultConfidenceGate = 0.60

// Predictor emits predictions for scheduled matches using the current
// model of each bet type.
type Predictor struct {
	store     Store
	extractor *features.Extractor
	registry  *registry.Registry
	metrics   *metrics.Metrics
	gate      float64
}

// NewPredictor creates a predictor. gate <= 0 falls back to
// DefaultConfidenceGate.
func NewPredictor(store Store, extractor *features.Extractor, reg *registry.Registry, m *metrics.Metrics, gate float64) *Predictor {
	if gate <= 0 {
		gate = DefaultConfidenceGate
	}
	return &Predictor{store: store, extractor: extractor, registry: reg, metrics: m, gate: gate}
}

// Predict generates or refreshes predictions for scheduled matches,
// optionally restricted to the given match IDs. It returns the number of
// predictions written. A missing or corrupt model skips only that bet
// type; a feature failure skips only that match.
func (p *Predictor) Predict(ctx context.Context, matchIDs []string) (int, error) {
	models := make(map[sport.BetType]*registry.Model, len(sport.Policies))
	for _, policy := range sport.Policies {
		model, err := p.registry.Load(policy.Type)
		if err != nil {
			if errors.Is(err, registry.ErrModelNotFound) {
				log.Warn().Str("bet_type", string(policy.Type)).Msg("no model available, skipping bet type")
			} else {
				log.Error().Err(err).Str("bet_type", string(policy.Type)).Msg("model load failed, skipping bet type")
			}
			continue
		}
		models[policy.Type] = model
	}
	if len(models) == 0 {
		log.Warn().Msg("no models loadable, nothing to predict")
		return 0, nil
	}

	scheduled, err := p.store.FindMatches(sport.MatchFilter{
		Statuses: []sport.MatchStatus{sport.StatusScheduled},
		IDs:      matchIDs,
	}, false, 0)
	if err != nil {
		if p.metrics != nil {
			p.metrics.StoreErrors.Inc()
		}
		return 0, &PersistenceError{Op: "load scheduled matches", Err: err}
	}

	written := 0
	for i := range scheduled {
		if err := ctx.Err(); err != nil {
			return written, err
		}
		m := &scheduled[i]

		vec, err := p.extractor.BuildVector(*m)
		if err != nil {
			var fe *features.Error
			if errors.As(err, &fe) {
				log.Warn().Err(err).Str("match_id", m.ID).Msg("skipping match")
				if p.metrics != nil {
					p.metrics.FeatureErrors.Inc()
				}
				continue
			}
			return written, err
		}

		for _, policy := range sport.Policies {
			model, ok := models[policy.Type]
			if !ok {
				continue
			}
			n, err := p.predictOne(m, policy, model, vec)
			if err != nil {
				return written, err
			}
			written += n
		}
	}

	log.Info().Int("written", written).Int("matches", len(scheduled)).Msg("prediction run finished")
	return written, nil
}

// predictOne scores one match for one bet type and upserts the result if
// it clears the confidence gate. Returns 1 if a record was written.
func (p *Predictor) predictOne(m *sport.Match, policy sport.Policy, model *registry.Model, vec features.Vector) (int, error) {
	row, err := model.Scaler.Transform(vec.Align(model.Columns()))
	if err != nil {
		log.Error().Err(err).Str("match_id", m.ID).Str("bet_type", string(policy.Type)).Msg("scaling failed")
		if p.metrics != nil {
			p.metrics.PredictionErrors.Inc()
		}
		return 0, nil
	}

	probs, err := model.Classifier.Proba(row)
	if err != nil {
		log.Error().Err(err).Str("match_id", m.ID).Str("bet_type", string(policy.Type)).Msg("inference failed")
		if p.metrics != nil {
			p.metrics.PredictionErrors.Inc()
		}
		return 0, nil
	}

	idx := ml.Argmax(probs)
	if idx >= len(policy.Outcomes) {
		log.Error().
			Int("class", idx).
			Str("bet_type", string(policy.Type)).
			Msg("model class count does not match outcome table")
		if p.metrics != nil {
			p.metrics.PredictionErrors.Inc()
		}
		return 0, nil
	}
	prob := probs[idx]

	if prob < p.gate {
		log.Debug().
			Str("match_id", m.ID).
			Str("bet_type", string(policy.Type)).
			Float64("probability", prob).
			Msg("prediction below confidence gate, suppressed")
		if p.metrics != nil {
			p.metrics.PredictionsSuppressed.Inc()
		}
		return 0, nil
	}

	snapshot := make(map[string]float64, len(vec))
	for k, v := range vec {
		snapshot[k] = v
	}

	pred := sport.Prediction{
		MatchID:          m.ID,
		LeagueID:         m.LeagueID,
		HomeTeamID:       m.HomeTeamID,
		AwayTeamID:       m.AwayTeamID,
		MatchDate:        m.Date,
		BetType:          policy.Type,
		PredictedOutcome: policy.Outcomes[idx],
		Confidence:       prob * 100,
		Probability:      prob,
		ModelVersion:     model.Version,
		Features:         snapshot,
	}

	if _, err := p.store.UpsertPrediction(pred); err != nil {
		if p.metrics != nil {
			p.metrics.StoreErrors.Inc()
		}
		return 0, &PersistenceError{Op: "upsert prediction", Err: err}
	}

	log.Info().
		Str("match_id", m.ID).
		Str("bet_type", string(policy.Type)).
		Str("outcome", pred.PredictedOutcome).
		Float64("confidence", pred.Confidence).
		Msg("prediction recorded")
	if p.metrics != nil {
		p.metrics.PredictionsGenerated.Inc()
		p.metrics.PredictionConfidence.Observe(pred.Confidence)
	}
	return 1, nil
}
