package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"matchcast/internal/cfg"
	"matchcast/internal/features"
	"matchcast/internal/feed"
	"matchcast/internal/metrics"
	"matchcast/internal/ml/registry"
	"matchcast/internal/pipeline"
	"matchcast/internal/sched"
	"matchcast/internal/storage"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	runTrain := flag.Bool("train", false, "train models for every bet type and exit")
	runPredict := flag.Bool("predict", false, "predict scheduled matches and exit")
	runEvaluate := flag.Bool("evaluate", false, "resolve finished predictions and exit")
	runImport := flag.Bool("import", false, "sync the results feed once and exit")
	serve := flag.Bool("serve", false, "run the scheduler loop with the metrics server")
	matchIDs := flag.String("match-ids", "", "comma-separated match ids to restrict -predict to")
	flag.Parse()

	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if lvl, err := zerolog.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	c, err := cfg.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	if !*runTrain && !*runPredict && !*runEvaluate && !*runImport && !*serve {
		flag.Usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := storage.New(c.DataPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.DataPath).Msg("storage initialization failed")
	}
	defer store.Close()

	reg, err := registry.New(c.ModelsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", c.ModelsPath).Msg("model registry initialization failed")
	}

	m := metrics.New()
	extractor := features.NewExtractorWithWindows(store, c.FormWindow, c.H2HWindow)

	trainer := pipeline.NewTrainer(store, extractor, reg, m, pipeline.TrainerConfig{
		MinSamples:   c.MinTrainSamples,
		MinAccuracy:  c.MinAccuracy,
		TestFraction: c.TestFraction,
		Seed:         c.SplitSeed,
	})
	predictor := pipeline.NewPredictor(store, extractor, reg, m, c.ConfidenceGate)
	evaluator := pipeline.NewEvaluator(store, m)
	importer := feed.New(c.FeedURL, c.FeedProvider, c.FeedTimeout, store, m)

	if *serve {
		runServe(ctx, cancel, c, trainer, predictor, evaluator, importer)
		return
	}

	failed := false
	if *runImport {
		if n, err := importer.Sync(ctx); err != nil {
			log.Error().Err(err).Msg("feed import failed")
			failed = true
		} else {
			log.Info().Int("imported", n).Msg("feed import done")
		}
	}
	if *runTrain {
		if err := trainer.TrainAll(ctx); err != nil {
			log.Error().Err(err).Msg("training failed")
			failed = true
		}
	}
	if *runPredict {
		if n, err := predictor.Predict(ctx, splitIDs(*matchIDs)); err != nil {
			log.Error().Err(err).Msg("prediction failed")
			failed = true
		} else {
			log.Info().Int("written", n).Msg("prediction done")
		}
	}
	if *runEvaluate {
		if n, err := evaluator.Evaluate(ctx); err != nil {
			log.Error().Err(err).Msg("evaluation failed")
			failed = true
		} else {
			log.Info().Int("resolved", n).Msg("evaluation done")
		}
	}
	if failed {
		os.Exit(1)
	}
}

// runServe runs the metrics server and the phase scheduler until a
// shutdown signal arrives.
func runServe(ctx context.Context, cancel context.CancelFunc, c cfg.Settings,
	trainer *pipeline.Trainer, predictor *pipeline.Predictor,
	evaluator *pipeline.Evaluator, importer *feed.Client,
) {
	startMetricsServer(ctx, c.MetricsPort)

	jobs := []sched.Job{
		{Name: "train", Every: c.TrainEvery, Run: trainer.TrainAll},
		{Name: "predict", Every: c.PredictEvery, Run: func(ctx context.Context) error {
			_, err := predictor.Predict(ctx, nil)
			return err
		}},
		{Name: "evaluate", Every: c.EvaluateEvery, Run: func(ctx context.Context) error {
			_, err := evaluator.Evaluate(ctx)
			return err
		}},
	}
	if c.FeedURL != "" {
		jobs = append(jobs, sched.Job{Name: "import", Every: c.ImportEvery, Run: func(ctx context.Context) error {
			_, err := importer.Sync(ctx)
			return err
		}})
	} else {
		log.Warn().Msg("no feed URL configured, import job disabled")
	}

	scheduler := sched.New(jobs...)
	done := make(chan struct{})
	go func() {
		scheduler.Run(ctx)
		close(done)
	}()

	waitForShutdown(ctx, cancel, done)
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(ctx context.Context, port int) {
	go func() {
		mux := http.NewServeMux()

		mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		mux.Handle("/metrics", promhttp.Handler())

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		}

		go func() {
			<-ctx.Done()
			if err := server.Shutdown(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to shutdown metrics server")
			}
		}()

		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("metrics server failed")
		}
	}()
}

// waitForShutdown waits for shutdown signals and handles graceful shutdown
func waitForShutdown(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info().Msg("shutdown signal received")
	case <-ctx.Done():
		log.Info().Msg("context canceled")
	}

	log.Info().Msg("shutting down gracefully...")
	cancel()

	select {
	case <-done:
		log.Info().Msg("scheduler stopped")
	case <-time.After(10 * time.Second):
		log.Warn().Msg("shutdown timeout, forcing exit")
	}
}

func splitIDs(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
