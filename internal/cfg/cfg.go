// Package cfg loads pipeline settings from a YAML config file with
// environment variable overrides, falling back to environment variables
// alone when no file is configured.
package cfg

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Settings struct {
	DataPath   string
	ModelsPath string

	FeedURL      string
	FeedProvider string
	FeedTimeout  time.Duration

	ConfidenceGate  float64
	MinTrainSamples int
	MinAccuracy     float64
	TestFraction    float64
	SplitSeed       int64
	FormWindow      int
	H2HWindow       int

	TrainEvery    time.Duration
	PredictEvery  time.Duration
	EvaluateEvery time.Duration
	ImportEvery   time.Duration

	MetricsPort int
}

type ConfigFile struct {
	Paths struct {
		Data   string `yaml:"data"`
		Models string `yaml:"models"`
	} `yaml:"paths"`

	Feed struct {
		URL      string `yaml:"url"`
		Provider string `yaml:"provider"`
		Timeout  string `yaml:"timeout"`
	} `yaml:"feed"`

	Prediction struct {
		ConfidenceGate float64 `yaml:"confidenceGate"`
		FormWindow     int     `yaml:"formWindow"`
		H2HWindow      int     `yaml:"h2hWindow"`
	} `yaml:"prediction"`

	Training struct {
		MinSamples   int     `yaml:"minSamples"`
		MinAccuracy  float64 `yaml:"minAccuracy"`
		TestFraction float64 `yaml:"testFraction"`
		Seed         int64   `yaml:"seed"`
	} `yaml:"training"`

	Schedule struct {
		Train    string `yaml:"train"`
		Predict  string `yaml:"predict"`
		Evaluate string `yaml:"evaluate"`
		Import   string `yaml:"import"`
	} `yaml:"schedule"`

	System struct {
		MetricsPort int `yaml:"metricsPort"`
	} `yaml:"system"`
}

func Load() (Settings, error) {
	// Try to load from YAML file first
	if configPath := os.Getenv("CONFIG_FILE"); configPath != "" {
		return loadFromYAML(configPath)
	}

	// Fallback to environment variables
	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		DataPath:        getEnvOrDefault("DATA_PATH", defaultString(config.Paths.Data, "data")),
		ModelsPath:      getEnvOrDefault("MODELS_PATH", defaultString(config.Paths.Models, "models")),
		FeedURL:         getEnvOrDefault("FEED_URL", config.Feed.URL),
		FeedProvider:    getEnvOrDefault("FEED_PROVIDER", defaultString(config.Feed.Provider, "feed")),
		FeedTimeout:     durationFromEnvOrConfig("FEED_TIMEOUT", config.Feed.Timeout, 10*time.Second),
		ConfidenceGate:  getFloatFromEnvOrConfig("CONFIDENCE_GATE", config.Prediction.ConfidenceGate, 0.60),
		MinTrainSamples: getIntFromEnvOrConfig("MIN_TRAIN_SAMPLES", config.Training.MinSamples, 100),
		MinAccuracy:     getFloatFromEnvOrConfig("MIN_ACCURACY", config.Training.MinAccuracy, 0),
		TestFraction:    getFloatFromEnvOrConfig("TEST_FRACTION", config.Training.TestFraction, 0.2),
		SplitSeed:       getInt64FromEnvOrConfig("SPLIT_SEED", config.Training.Seed, 42),
		FormWindow:      getIntFromEnvOrConfig("FORM_WINDOW", config.Prediction.FormWindow, 10),
		H2HWindow:       getIntFromEnvOrConfig("H2H_WINDOW", config.Prediction.H2HWindow, 5),
		TrainEvery:      durationFromEnvOrConfig("TRAIN_EVERY", config.Schedule.Train, 7*24*time.Hour),
		PredictEvery:    durationFromEnvOrConfig("PREDICT_EVERY", config.Schedule.Predict, 24*time.Hour),
		EvaluateEvery:   durationFromEnvOrConfig("EVALUATE_EVERY", config.Schedule.Evaluate, 24*time.Hour),
		ImportEvery:     durationFromEnvOrConfig("IMPORT_EVERY", config.Schedule.Import, 24*time.Hour),
		MetricsPort:     getIntFromEnvOrConfig("METRICS_PORT", config.System.MetricsPort, 8080),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		DataPath:        getEnvOrDefault("DATA_PATH", "data"),
		ModelsPath:      getEnvOrDefault("MODELS_PATH", "models"),
		FeedURL:         os.Getenv("FEED_URL"), // optional, import disabled without it
		FeedProvider:    getEnvOrDefault("FEED_PROVIDER", "feed"),
		FeedTimeout:     getDurationOrDefault("FEED_TIMEOUT", 10*time.Second),
		ConfidenceGate:  getFloatOrDefault("CONFIDENCE_GATE", 0.60),
		MinTrainSamples: getIntOrDefault("MIN_TRAIN_SAMPLES", 100),
		MinAccuracy:     getFloatOrDefault("MIN_ACCURACY", 0),
		TestFraction:    getFloatOrDefault("TEST_FRACTION", 0.2),
		SplitSeed:       getInt64OrDefault("SPLIT_SEED", 42),
		FormWindow:      getIntOrDefault("FORM_WINDOW", 10),
		H2HWindow:       getIntOrDefault("H2H_WINDOW", 5),
		TrainEvery:      getDurationOrDefault("TRAIN_EVERY", 7*24*time.Hour),
		PredictEvery:    getDurationOrDefault("PREDICT_EVERY", 24*time.Hour),
		EvaluateEvery:   getDurationOrDefault("EVALUATE_EVERY", 24*time.Hour),
		ImportEvery:     getDurationOrDefault("IMPORT_EVERY", 24*time.Hour),
		MetricsPort:     getIntOrDefault("METRICS_PORT", 8080),
	}

	// Validate configuration
	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func defaultString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getIntFromEnvOrConfig(key string, configValue, defaultValue int) int {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.Atoi(env); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getInt64FromEnvOrConfig(key string, configValue, defaultValue int64) int64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseInt(env, 10, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func getFloatFromEnvOrConfig(key string, configValue, defaultValue float64) float64 {
	if env := os.Getenv(key); env != "" {
		if val, err := strconv.ParseFloat(env, 64); err == nil {
			return val
		}
	}
	if configValue != 0 {
		return configValue
	}
	return defaultValue
}

func durationFromEnvOrConfig(key, configValue string, defaultValue time.Duration) time.Duration {
	if env := os.Getenv(key); env != "" {
		if d, err := time.ParseDuration(env); err == nil {
			return d
		}
	}
	if configValue != "" {
		if d, err := time.ParseDuration(configValue); err == nil {
			return d
		}
	}
	return defaultValue
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.DataPath == "" {
		return fmt.Errorf("data path cannot be empty")
	}
	if settings.ModelsPath == "" {
		return fmt.Errorf("models path cannot be empty")
	}

	if settings.ConfidenceGate < 0.5 || settings.ConfidenceGate > 0.99 {
		return fmt.Errorf("confidence gate must be between 0.5 and 0.99, got %f", settings.ConfidenceGate)
	}
	if settings.MinAccuracy < 0 || settings.MinAccuracy >= 1 {
		return fmt.Errorf("minimum accuracy must be between 0 and 1, got %f", settings.MinAccuracy)
	}
	if settings.TestFraction <= 0 || settings.TestFraction >= 1 {
		return fmt.Errorf("test fraction must be between 0 and 1 exclusive, got %f", settings.TestFraction)
	}

	if settings.MinTrainSamples < 10 || settings.MinTrainSamples > 1000000 {
		return fmt.Errorf("minimum training samples must be between 10 and 1000000, got %d", settings.MinTrainSamples)
	}
	if settings.FormWindow <= 0 || settings.FormWindow > 100 {
		return fmt.Errorf("form window must be between 1 and 100, got %d", settings.FormWindow)
	}
	if settings.H2HWindow <= 0 || settings.H2HWindow > 100 {
		return fmt.Errorf("head-to-head window must be between 1 and 100, got %d", settings.H2HWindow)
	}

	if settings.FeedTimeout < time.Second || settings.FeedTimeout > time.Minute {
		return fmt.Errorf("feed timeout must be between 1s and 1m, got %v", settings.FeedTimeout)
	}
	for name, every := range map[string]time.Duration{
		"train":    settings.TrainEvery,
		"predict":  settings.PredictEvery,
		"evaluate": settings.EvaluateEvery,
		"import":   settings.ImportEvery,
	} {
		if every < time.Minute || every > 30*24*time.Hour {
			return fmt.Errorf("%s interval must be between 1m and 720h, got %v", name, every)
		}
	}

	if settings.MetricsPort < 1024 || settings.MetricsPort > 65535 {
		return fmt.Errorf("metrics port must be between 1024 and 65535, got %d", settings.MetricsPort)
	}

	return nil
}
