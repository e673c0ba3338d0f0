// Package scheduler runs every enabled import profile on a fixed interval.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"okazje-ingest/internal/ingest"
	"okazje-ingest/internal/models"
	"okazje-ingest/internal/repository"
)

// Runner executes one import run.
type Runner interface {
	Run(ctx context.Context, req ingest.RunRequest) (*models.ImportRun, error)
}

// Summary describes one scheduler pass.
type Summary struct {
	Profiles  int
	Completed int
	Failed    int
	Errors    int
}

type ImportScheduler struct {
	profiles    repository.ProfileStore
	runner      Runner
	interval    time.Duration
	concurrency int
	log         logrus.FieldLogger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewImportScheduler(profiles repository.ProfileStore, runner Runner, interval time.Duration, concurrency int, log logrus.FieldLogger) *ImportScheduler {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ImportScheduler{
		profiles:    profiles,
		runner:      runner,
		interval:    interval,
		concurrency: concurrency,
		log:         log,
	}
}

// Start runs a pass immediately and then on every tick until ctx is done or
// Stop is called.
func (s *ImportScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	if s.cancel != nil {
		s.mu.Unlock()
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	s.mu.Unlock()

	s.log.WithField("interval", s.interval).Info("starting import scheduler")

	go func() {
		defer close(s.done)

		s.RunOnce(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.RunOnce(ctx)
			case <-ctx.Done():
				s.log.Info("import scheduler stopped")
				return
			}
		}
	}()
}

// Stop cancels the scheduler and waits for the current pass to end.
func (s *ImportScheduler) Stop() {
	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// RunOnce runs every enabled profile once.
func (s *ImportScheduler) RunOnce(ctx context.Context) Summary {
	profiles, err := s.profiles.FindEnabled(ctx)
	if err != nil {
		s.log.WithError(err).Error("failed to load enabled import profiles")
		return Summary{Errors: 1}
	}
	if len(profiles) == 0 {
		s.log.Debug("no enabled import profiles")
		return Summary{}
	}

	var (
		mu      sync.Mutex
		summary = Summary{Profiles: len(profiles)}
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, p := range profiles {
		p := p
		g.Go(func() error {
			run, err := s.runner.Run(gctx, ingest.RunRequest{
				ProfileID:   p.ID,
				TriggeredBy: models.TriggerScheduled,
			})

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				summary.Errors++
				s.log.WithError(err).WithField("profileId", p.ID).Error("scheduled import failed")
			case run.Status == models.RunStatusFailed:
				summary.Failed++
			default:
				summary.Completed++
			}
			// Profiles are independent; one failure must not cancel the rest.
			return nil
		})
	}
	_ = g.Wait()

	s.log.WithFields(logrus.Fields{
		"profiles":  summary.Profiles,
		"completed": summary.Completed,
		"failed":    summary.Failed,
		"errors":    summary.Errors,
	}).Info("scheduled imports finished")
	return summary
}
