package pipeline

import (
	"context"
	"errors"
	"fmt"

	"matchcast/internal/features"
	"matchcast/internal/metrics"
	"matchcast/internal/ml"
	"matchcast/internal/ml/registry"
	"matchcast/internal/sport"

	"github.com/rs/zerolog/log"
)

// Store is the slice of the persistence layer the pipeline consumes.
type Store interface {
	FindMatches(f sport.MatchFilter, desc bool, limit int) ([]sport.Match, error)
	MatchByID(id string) (*sport.Match, error)
	UpsertPrediction(p sport.Prediction) (sport.Prediction, error)
	FindUnresolvedPredictions(matchID string) ([]sport.Prediction, error)
}

// TrainerConfig tunes one training run.
type TrainerConfig struct {
	// MinSamples aborts training below this many usable rows.
	MinSamples int
	// MinAccuracy gates the model commit. Zero commits every trained
	// model, matching the historical behavior of the system.
	MinAccuracy float64
	// TestFraction is the held-out share of the stratified split.
	TestFraction float64
	// Seed fixes the split shuffle for reproducibility.
	Seed int64
}

func (c TrainerConfig) withDefaults() TrainerConfig {
	if c.MinSamples <= 0 {
		c.MinSamples = 100
	}
	if c.TestFraction <= 0 || c.TestFraction >= 1 {
		c.TestFraction = 0.2
	}
	if c.Seed == 0 {
		c.Seed = 42
	}
	return c
}

// Trainer builds labeled datasets from finished matches and commits
// trained models to the registry.
type Trainer struct {
	store     Store
	extractor *features.Extractor
	registry  *registry.Registry
	metrics   *metrics.Metrics
	cfg       TrainerConfig
	families  map[sport.BetType]func() ml.Classifier
}

// NewTrainer creates a trainer with the default per-bet-type model
// families: multinomial regression for match result, binary logistic
// regression for the two-outcome bet types.
func NewTrainer(store Store, extractor *features.Extractor, reg *registry.Registry, m *metrics.Metrics, cfg TrainerConfig) *Trainer {
	return &Trainer{
		store:     store,
		extractor: extractor,
		registry:  reg,
		metrics:   m,
		cfg:       cfg.withDefaults(),
		families:  make(map[sport.BetType]func() ml.Classifier),
	}
}

// SetFamily overrides the model family used for one bet type.
func (t *Trainer) SetFamily(betType sport.BetType, family func() ml.Classifier) {
	t.families[betType] = family
}

func (t *Trainer) newClassifier(policy sport.Policy) ml.Classifier {
	if family, ok := t.families[policy.Type]; ok {
		return family()
	}
	if len(policy.Outcomes) > 2 {
		return ml.NewSoftmax(len(policy.Outcomes))
	}
	return ml.NewLogistic()
}

// Train fits and persists a new model for one bet type. Too few usable
// samples abort with ErrInsufficientTrainingData and leave the registry
// untouched.
func (t *Trainer) Train(ctx context.Context, betType sport.BetType) error {
	policy, ok := sport.PolicyFor(betType)
	if !ok {
		return fmt.Errorf("train: unsupported bet type %q", betType)
	}

	finished, err := t.store.FindMatches(sport.MatchFilter{
		Statuses: []sport.MatchStatus{sport.StatusFinished},
	}, false, 0)
	if err != nil {
		t.storeErr()
		return &PersistenceError{Op: "load finished matches", Err: err}
	}

	columns := features.Columns()
	var rows [][]float64
	var labels []int

	for i := range finished {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := &finished[i]
		if !m.Finished() {
			continue
		}

		vec, err := t.extractor.BuildVector(*m)
		if err != nil {
			var fe *features.Error
			if errors.As(err, &fe) {
				log.Warn().Err(err).Str("match_id", m.ID).Msg("skipping match in training set")
				if t.metrics != nil {
					t.metrics.FeatureErrors.Inc()
				}
				continue
			}
			return err
		}

		rows = append(rows, vec.Align(columns))
		labels = append(labels, policy.Classify(*m.HomeScore, *m.AwayScore))
	}

	if len(rows) < t.cfg.MinSamples {
		if t.metrics != nil {
			t.metrics.TrainingFailures.Inc()
		}
		return fmt.Errorf("%w: bet type %s has %d usable samples, need %d",
			ErrInsufficientTrainingData, betType, len(rows), t.cfg.MinSamples)
	}

	trainX, testX, trainY, testY := ml.StratifiedSplit(rows, labels, t.cfg.TestFraction, t.cfg.Seed)

	scaler, err := ml.FitScaler(columns, trainX)
	if err != nil {
		return fmt.Errorf("fit scaler for %s: %w", betType, err)
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return fmt.Errorf("scale training split for %s: %w", betType, err)
	}
	scaledTest, err := scaler.TransformAll(testX)
	if err != nil {
		return fmt.Errorf("scale test split for %s: %w", betType, err)
	}

	clf := t.newClassifier(policy)
	if err := clf.Fit(scaledTrain, trainY); err != nil {
		if t.metrics != nil {
			t.metrics.TrainingFailures.Inc()
		}
		return fmt.Errorf("fit %s model for %s: %w", clf.Kind(), betType, err)
	}

	accuracy := heldOutAccuracy(clf, scaledTest, testY)
	log.Info().
		Str("bet_type", string(betType)).
		Str("model", clf.Kind()).
		Int("train_samples", len(trainX)).
		Int("test_samples", len(testX)).
		Float64("accuracy", accuracy).
		Msg("model trained")
	if t.metrics != nil {
		t.metrics.TrainingAccuracy.Observe(accuracy)
	}

	if t.cfg.MinAccuracy > 0 && accuracy < t.cfg.MinAccuracy {
		if t.metrics != nil {
			t.metrics.TrainingFailures.Inc()
		}
		return fmt.Errorf("%w: %s scored %.3f, need %.3f",
			ErrAccuracyBelowThreshold, betType, accuracy, t.cfg.MinAccuracy)
	}

	version, err := t.registry.Save(betType, clf, scaler, features.SchemaVersion, registry.Metrics{
		Accuracy:     accuracy,
		TrainSamples: len(trainX),
		TestSamples:  len(testX),
	})
	if err != nil {
		if t.metrics != nil {
			t.metrics.TrainingFailures.Inc()
		}
		return fmt.Errorf("commit model for %s: %w", betType, err)
	}

	log.Info().Str("bet_type", string(betType)).Str("version", version).Msg("model committed")
	if t.metrics != nil {
		t.metrics.TrainingRuns.Inc()
	}
	return nil
}

// TrainAll trains every supported bet type. A bet type that fails with
// insufficient data or a rejected accuracy does not stop the others.
func (t *Trainer) TrainAll(ctx context.Context) error {
	var firstErr error
	for _, policy := range sport.Policies {
		err := t.Train(ctx, policy.Type)
		switch {
		case err == nil:
		case errors.Is(err, ErrInsufficientTrainingData), errors.Is(err, ErrAccuracyBelowThreshold):
			log.Warn().Err(err).Str("bet_type", string(policy.Type)).Msg("training skipped")
		default:
			if firstErr == nil {
				firstErr = err
			}
			log.Error().Err(err).Str("bet_type", string(policy.Type)).Msg("training failed")
		}
	}
	return firstErr
}

func (t *Trainer) storeErr() {
	if t.metrics != nil {
		t.metrics.StoreErrors.Inc()
	}
}

func heldOutAccuracy(clf ml.Classifier, rows [][]float64, labels []int) float64 {
	if len(rows) == 0 {
		return 0
	}
	preds := make([]int, len(rows))
	for i, row := range rows {
		probs, err := clf.Proba(row)
		if err != nil {
			return 0
		}
		preds[i] = ml.Argmax(probs)
	}
	return ml.Accuracy(labels, preds)
}
