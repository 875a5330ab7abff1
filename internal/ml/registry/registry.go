// Package registry owns persistence of trained models. Each bet type has
// one current (classifier, scaler, schema) artifact plus an immutable
// version history. Saves write a new version file and then atomically
// swap a pointer file into place, so a concurrent load never observes a
// partially written artifact.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"matchcast/internal/ml"
	"matchcast/internal/sport"
)

const currentFile = "current.json"

// ErrModelNotFound is returned when a bet type has no persisted model.
var ErrModelNotFound = errors.New("no model persisted for bet type")

// Metrics records how a model performed at training time.
type Metrics struct {
	Accuracy     float64 `json:"accuracy"`
	TrainSamples int     `json:"train_samples"`
	TestSamples  int     `json:"test_samples"`
}

// artifact is the on-disk representation of one trained model version.
type artifact struct {
	Version       string          `json:"version"`
	BetType       sport.BetType   `json:"bet_type"`
	SchemaVersion string          `json:"schema_version"`
	Kind          string          `json:"kind"`
	Model         json.RawMessage `json:"model"`
	Scaler        *ml.Scaler      `json:"scaler"`
	Metrics       Metrics         `json:"metrics"`
	TrainedAt     time.Time       `json:"trained_at"`
}

// Model is a loaded (classifier, scaler, schema) triple ready for inference.
type Model struct {
	BetType       sport.BetType
	Version       string
	SchemaVersion string
	Classifier    ml.Classifier
	Scaler        *ml.Scaler
	Metrics       Metrics
}

// Columns returns the feature schema the model was trained on, in order.
func (m *Model) Columns() []string {
	return m.Scaler.Columns
}

// Registry stores model artifacts under one directory per bet type.
// Loads are safe to call concurrently; saves for the same bet type are
// mutually exclusive, saves for different bet types proceed in parallel.
type Registry struct {
	dir   string
	mu    sync.Mutex
	saves map[string]*sync.Mutex
}

// New creates a registry rooted at dir, creating it if needed.
func New(dir string) (*Registry, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create models dir: %w", err)
	}
	return &Registry{dir: dir, saves: make(map[string]*sync.Mutex)}, nil
}

func (r *Registry) saveLock(key string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.saves[key]
	if !ok {
		lock = &sync.Mutex{}
		r.saves[key] = lock
	}
	return lock
}

// Save persists a newly trained model as an immutable version and makes it
// current via an atomic rename. It returns the new version identifier.
func (r *Registry) Save(betType sport.BetType, clf ml.Classifier, scaler *ml.Scaler, schemaVersion string, metrics Metrics) (string, error) {
	policy, ok := sport.PolicyFor(betType)
	if !ok {
		return "", fmt.Errorf("save model: unsupported bet type %q", betType)
	}
	if scaler == nil || len(scaler.Columns) == 0 {
		return "", fmt.Errorf("save model: scaler with fitted columns required")
	}

	lock := r.saveLock(policy.Key)
	lock.Lock()
	defer lock.Unlock()

	betDir := filepath.Join(r.dir, policy.Key)
	if err := os.MkdirAll(betDir, 0o755); err != nil {
		return "", fmt.Errorf("create bet type dir: %w", err)
	}

	modelJSON, err := json.Marshal(clf)
	if err != nil {
		return "", fmt.Errorf("marshal classifier: %w", err)
	}

	now := time.Now().UTC()
	version := now.Format("20060102-150405")
	versionPath := filepath.Join(betDir, version+".json")
	for i := 2; ; i++ {
		if _, err := os.Stat(versionPath); os.IsNotExist(err) {
			break
		}
		version = fmt.Sprintf("%s.%d", now.Format("20060102-150405"), i)
		versionPath = filepath.Join(betDir, version+".json")
	}

	art := artifact{
		Version:       version,
		BetType:       betType,
		SchemaVersion: schemaVersion,
		Kind:          clf.Kind(),
		Model:         modelJSON,
		Scaler:        scaler,
		Metrics:       metrics,
		TrainedAt:     now,
	}
	data, err := json.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal artifact: %w", err)
	}

	if err := os.WriteFile(versionPath, data, 0o600); err != nil {
		return "", fmt.Errorf("write version artifact: %w", err)
	}

	// Stage then rename so readers only ever see a complete pointer.
	tmpPath := filepath.Join(betDir, currentFile+".tmp")
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return "", fmt.Errorf("stage current artifact: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(betDir, currentFile)); err != nil {
		return "", fmt.Errorf("swap current artifact: %w", err)
	}

	return version, nil
}

// Load returns the current model for a bet type, or ErrModelNotFound when
// none has been persisted.
func (r *Registry) Load(betType sport.BetType) (*Model, error) {
	policy, ok := sport.PolicyFor(betType)
	if !ok {
		return nil, fmt.Errorf("load model: unsupported bet type %q", betType)
	}

	data, err := os.ReadFile(filepath.Join(r.dir, policy.Key, currentFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelNotFound, betType)
		}
		return nil, fmt.Errorf("read current artifact: %w", err)
	}

	var art artifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("decode artifact for %s: %w", betType, err)
	}
	if art.Scaler == nil || len(art.Scaler.Columns) == 0 {
		return nil, fmt.Errorf("artifact for %s has no scaler schema", betType)
	}

	clf, err := decodeClassifier(art.Kind, art.Model)
	if err != nil {
		return nil, fmt.Errorf("decode classifier for %s: %w", betType, err)
	}

	return &Model{
		BetType:       betType,
		Version:       art.Version,
		SchemaVersion: art.SchemaVersion,
		Classifier:    clf,
		Scaler:        art.Scaler,
		Metrics:       art.Metrics,
	}, nil
}

// Versions lists the persisted version identifiers for a bet type, most
// recent first.
func (r *Registry) Versions(betType sport.BetType) ([]string, error) {
	policy, ok := sport.PolicyFor(betType)
	if !ok {
		return nil, fmt.Errorf("list versions: unsupported bet type %q", betType)
	}

	entries, err := os.ReadDir(filepath.Join(r.dir, policy.Key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list versions: %w", err)
	}

	var versions []string
	for _, e := range entries {
		name := e.Name()
		if name == currentFile || !strings.HasSuffix(name, ".json") {
			continue
		}
		versions = append(versions, strings.TrimSuffix(name, ".json"))
	}
	sort.Sort(sort.Reverse(sort.StringSlice(versions)))
	return versions, nil
}

func decodeClassifier(kind string, data json.RawMessage) (ml.Classifier, error) {
	switch kind {
	case ml.KindLogistic:
		var clf ml.Logistic
		if err := json.Unmarshal(data, &clf); err != nil {
			return nil, err
		}
		return &clf, nil
	case ml.KindSoftmax:
		var clf ml.Softmax
		if err := json.Unmarshal(data, &clf); err != nil {
			return nil, err
		}
		return &clf, nil
	default:
		return nil, fmt.Errorf("unknown model kind %q", kind)
	}
}
