package cfg

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

var envKeys = []string{
	"CONFIG_FILE", "DATA_PATH", "MODELS_PATH", "FEED_URL", "FEED_PROVIDER",
	"FEED_TIMEOUT", "CONFIDENCE_GATE", "MIN_TRAIN_SAMPLES", "MIN_ACCURACY",
	"TEST_FRACTION", "SPLIT_SEED", "FORM_WINDOW", "H2H_WINDOW",
	"TRAIN_EVERY", "PREDICT_EVERY", "EVALUATE_EVERY", "IMPORT_EVERY",
	"METRICS_PORT",
}

func clearTestEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		if _, ok := os.LookupEnv(key); ok {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVars  map[string]string
		wantErr  bool
		validate func(t *testing.T, settings Settings)
	}{
		{
			name:    "defaults without any environment",
			envVars: map[string]string{},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataPath != "data" {
					t.Errorf("expected default DataPath 'data', got %s", settings.DataPath)
				}
				if settings.ModelsPath != "models" {
					t.Errorf("expected default ModelsPath 'models', got %s", settings.ModelsPath)
				}
				if settings.ConfidenceGate != 0.60 {
					t.Errorf("expected default ConfidenceGate 0.60, got %f", settings.ConfidenceGate)
				}
				if settings.MinTrainSamples != 100 {
					t.Errorf("expected default MinTrainSamples 100, got %d", settings.MinTrainSamples)
				}
				if settings.MinAccuracy != 0 {
					t.Errorf("expected default MinAccuracy 0, got %f", settings.MinAccuracy)
				}
				if settings.SplitSeed != 42 {
					t.Errorf("expected default SplitSeed 42, got %d", settings.SplitSeed)
				}
				if settings.FormWindow != 10 || settings.H2HWindow != 5 {
					t.Errorf("expected default windows 10/5, got %d/%d", settings.FormWindow, settings.H2HWindow)
				}
				if settings.TrainEvery != 7*24*time.Hour {
					t.Errorf("expected default TrainEvery 168h, got %v", settings.TrainEvery)
				}
				if settings.PredictEvery != 24*time.Hour {
					t.Errorf("expected default PredictEvery 24h, got %v", settings.PredictEvery)
				}
				if settings.MetricsPort != 8080 {
					t.Errorf("expected default MetricsPort 8080, got %d", settings.MetricsPort)
				}
				if settings.FeedURL != "" {
					t.Errorf("expected FeedURL to default to empty, got %s", settings.FeedURL)
				}
			},
		},
		{
			name: "custom settings",
			envVars: map[string]string{
				"DATA_PATH":         "/var/lib/matchcast",
				"MODELS_PATH":       "/var/lib/matchcast/models",
				"FEED_URL":          "https://feed.example.com/matches",
				"FEED_TIMEOUT":      "30s",
				"CONFIDENCE_GATE":   "0.75",
				"MIN_TRAIN_SAMPLES": "250",
				"MIN_ACCURACY":      "0.55",
				"SPLIT_SEED":        "7",
				"FORM_WINDOW":       "6",
				"H2H_WINDOW":        "3",
				"TRAIN_EVERY":       "48h",
				"METRICS_PORT":      "9090",
			},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.DataPath != "/var/lib/matchcast" {
					t.Errorf("expected custom DataPath, got %s", settings.DataPath)
				}
				if settings.FeedURL != "https://feed.example.com/matches" {
					t.Errorf("expected custom FeedURL, got %s", settings.FeedURL)
				}
				if settings.FeedTimeout != 30*time.Second {
					t.Errorf("expected FeedTimeout 30s, got %v", settings.FeedTimeout)
				}
				if settings.ConfidenceGate != 0.75 {
					t.Errorf("expected ConfidenceGate 0.75, got %f", settings.ConfidenceGate)
				}
				if settings.MinTrainSamples != 250 {
					t.Errorf("expected MinTrainSamples 250, got %d", settings.MinTrainSamples)
				}
				if settings.MinAccuracy != 0.55 {
					t.Errorf("expected MinAccuracy 0.55, got %f", settings.MinAccuracy)
				}
				if settings.SplitSeed != 7 {
					t.Errorf("expected SplitSeed 7, got %d", settings.SplitSeed)
				}
				if settings.FormWindow != 6 || settings.H2HWindow != 3 {
					t.Errorf("expected windows 6/3, got %d/%d", settings.FormWindow, settings.H2HWindow)
				}
				if settings.TrainEvery != 48*time.Hour {
					t.Errorf("expected TrainEvery 48h, got %v", settings.TrainEvery)
				}
				if settings.MetricsPort != 9090 {
					t.Errorf("expected MetricsPort 9090, got %d", settings.MetricsPort)
				}
			},
		},
		{
			name:    "confidence gate below 0.5 rejected",
			envVars: map[string]string{"CONFIDENCE_GATE": "0.3"},
			wantErr: true,
		},
		{
			name:    "minimum accuracy of 1 rejected",
			envVars: map[string]string{"MIN_ACCURACY": "1.0"},
			wantErr: true,
		},
		{
			name:    "tiny training floor rejected",
			envVars: map[string]string{"MIN_TRAIN_SAMPLES": "5"},
			wantErr: true,
		},
		{
			name:    "privileged metrics port rejected",
			envVars: map[string]string{"METRICS_PORT": "80"},
			wantErr: true,
		},
		{
			name:    "sub-minute schedule rejected",
			envVars: map[string]string{"PREDICT_EVERY": "5s"},
			wantErr: true,
		},
		{
			name:    "malformed duration falls back to default",
			envVars: map[string]string{"FEED_TIMEOUT": "not-a-duration"},
			wantErr: false,
			validate: func(t *testing.T, settings Settings) {
				if settings.FeedTimeout != 10*time.Second {
					t.Errorf("expected fallback FeedTimeout 10s, got %v", settings.FeedTimeout)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearTestEnv(t)
			for key, value := range tt.envVars {
				t.Setenv(key, value)
			}

			settings, err := Load()
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got none")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, settings)
			}
		})
	}
}

func TestLoadFromYAML(t *testing.T) {
	clearTestEnv(t)

	configContent := `
paths:
  data: /srv/matchcast/data
  models: /srv/matchcast/models
feed:
  url: https://feed.example.com/v1/matches
  provider: football-api
  timeout: 15s
prediction:
  confidenceGate: 0.65
  formWindow: 8
  h2hWindow: 4
training:
  minSamples: 150
  minAccuracy: 0.5
  seed: 99
schedule:
  train: 72h
  predict: 12h
system:
  metricsPort: 9100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.DataPath != "/srv/matchcast/data" {
		t.Errorf("expected DataPath from file, got %s", settings.DataPath)
	}
	if settings.FeedProvider != "football-api" {
		t.Errorf("expected FeedProvider from file, got %s", settings.FeedProvider)
	}
	if settings.FeedTimeout != 15*time.Second {
		t.Errorf("expected FeedTimeout 15s, got %v", settings.FeedTimeout)
	}
	if settings.ConfidenceGate != 0.65 {
		t.Errorf("expected ConfidenceGate 0.65, got %f", settings.ConfidenceGate)
	}
	if settings.MinTrainSamples != 150 {
		t.Errorf("expected MinTrainSamples 150, got %d", settings.MinTrainSamples)
	}
	if settings.SplitSeed != 99 {
		t.Errorf("expected SplitSeed 99, got %d", settings.SplitSeed)
	}
	if settings.TrainEvery != 72*time.Hour {
		t.Errorf("expected TrainEvery 72h, got %v", settings.TrainEvery)
	}
	if settings.PredictEvery != 12*time.Hour {
		t.Errorf("expected PredictEvery 12h, got %v", settings.PredictEvery)
	}
	// Sections absent from the file keep their defaults.
	if settings.EvaluateEvery != 24*time.Hour {
		t.Errorf("expected default EvaluateEvery 24h, got %v", settings.EvaluateEvery)
	}
	if settings.MetricsPort != 9100 {
		t.Errorf("expected MetricsPort 9100, got %d", settings.MetricsPort)
	}
}

func TestLoadFromYAML_EnvOverrides(t *testing.T) {
	clearTestEnv(t)

	configContent := `
prediction:
  confidenceGate: 0.65
system:
  metricsPort: 9100
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(configContent), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CONFIDENCE_GATE", "0.8")
	t.Setenv("DATA_PATH", "/override/data")

	settings, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if settings.ConfidenceGate != 0.8 {
		t.Errorf("environment must override file, got gate %f", settings.ConfidenceGate)
	}
	if settings.MetricsPort != 9100 {
		t.Errorf("expected file MetricsPort 9100, got %d", settings.MetricsPort)
	}
	if settings.DataPath != "/override/data" {
		t.Errorf("expected env DataPath, got %s", settings.DataPath)
	}
}

func TestLoadFromYAML_MissingFile(t *testing.T) {
	clearTestEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadFromYAML_Malformed(t *testing.T) {
	clearTestEnv(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("{not yaml: ["), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("CONFIG_FILE", path)

	if _, err := Load(); err == nil {
		t.Fatal("expected error for malformed config file")
	}
}
