// Package pipeline wires the prediction core together: the Trainer builds
// and persists models from finished matches, the Predictor emits
// confidence-gated predictions for scheduled matches, and the Evaluator
// resolves predictions once results are in.
//
// Failures are isolated to the smallest unit that can be skipped, a
// single match or a single bet type, so one bad record never blocks a
// batch.
// Store-level failures are surfaced to the caller, which owns retries;
// every phase is idempotent, so retrying a whole phase is always safe.
package pipeline

import (
	"errors"
	"fmt"
)

// ErrInsufficientTrainingData aborts one bet type's training run when too
// few usable samples exist. The registry is left untouched.
var ErrInsufficientTrainingData = errors.New("insufficient training data")

// ErrAccuracyBelowThreshold aborts a model commit when the held-out
// accuracy is below the configured minimum. With the default threshold of
// zero every successfully trained model is committed.
var ErrAccuracyBelowThreshold = errors.New("held-out accuracy below threshold")

// PersistenceError wraps a store-level failure. It is surfaced to the
// caller, which decides whether to retry the phase.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
