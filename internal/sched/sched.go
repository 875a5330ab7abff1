// Package sched runs the pipeline phases on fixed intervals. Every phase
// is idempotent, so a failed run is only logged; the next tick retries
// naturally.
package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Job is one recurring pipeline phase.
type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

// Scheduler drives a set of jobs until its context is cancelled.
type Scheduler struct {
	jobs []Job
}

// New creates a scheduler. Jobs with a non-positive interval or a nil
// runner are dropped with a warning.
func New(jobs ...Job) *Scheduler {
	kept := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Every <= 0 || j.Run == nil {
			log.Warn().Str("job", j.Name).Msg("dropping misconfigured job")
			continue
		}
		kept = append(kept, j)
	}
	return &Scheduler{jobs: kept}
}

// Run executes every job once immediately, then on its interval, and
// blocks until ctx is cancelled and all running jobs have returned.
func (s *Scheduler) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, job := range s.jobs {
		wg.Add(1)
		go func(j Job) {
			defer wg.Done()
			s.loop(ctx, j)
		}(job)
	}
	wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, j Job) {
	log.Info().Str("job", j.Name).Dur("every", j.Every).Msg("job scheduled")

	s.fire(ctx, j)

	ticker := time.NewTicker(j.Every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("job", j.Name).Msg("job stopped")
			return
		case <-ticker.C:
			s.fire(ctx, j)
		}
	}
}

func (s *Scheduler) fire(ctx context.Context, j Job) {
	if ctx.Err() != nil {
		return
	}
	start := time.Now()
	if err := j.Run(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		log.Error().Err(err).Str("job", j.Name).Msg("job run failed")
		return
	}
	log.Debug().Str("job", j.Name).Dur("took", time.Since(start)).Msg("job run finished")
}
