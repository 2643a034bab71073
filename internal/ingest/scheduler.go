package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultInterval = 30 * time.Minute

// Runner is one ingestion run.
type Runner interface {
	Run(ctx context.Context) (Report, error)
}

// ErrorReporter tells the operator that a run failed.
type ErrorReporter interface {
	SendError(err error) error
}

// Scheduler runs the pipeline immediately and then once per interval. Runs
// never overlap; a failed or panicking run is logged and the schedule goes on.
type Scheduler struct {
	runner   Runner
	interval time.Duration
	reporter ErrorReporter
	log      logrus.FieldLogger
}

// NewScheduler builds a scheduler. reporter may be nil.
func NewScheduler(runner Runner, interval time.Duration, reporter ErrorReporter, log logrus.FieldLogger) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		runner:   runner,
		interval: interval,
		reporter: reporter,
		log:      log,
	}
}

// Start blocks until ctx is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.log.WithField("interval", s.interval).Info("⏰ Scheduler started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.runOnce(ctx)

		select {
		case <-ctx.Done():
			s.log.Info("🛑 Scheduler stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.log.WithField("panic", fmt.Sprint(r)).Error("❌ Feed run panicked")
			s.report(fmt.Errorf("feed run panicked: %v", r))
		}
	}()

	report, err := s.runner.Run(ctx)
	if err != nil {
		s.log.WithError(err).WithField("run_id", report.RunID).Error("❌ Feed run failed")
		s.report(err)
	}
}

func (s *Scheduler) report(err error) {
	if s.reporter == nil || errors.Is(err, context.Canceled) {
		return
	}
	if sendErr := s.reporter.SendError(err); sendErr != nil {
		s.log.WithError(sendErr).Warn("⚠️ Failed to report run error")
	}
}
