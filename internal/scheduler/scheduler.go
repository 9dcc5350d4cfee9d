package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/elonfeng/hazardradar/pkg/ingest"
)

// DefaultSpec runs a cycle every half hour.
const DefaultSpec = "@every 30m"

// Runner executes one ingestion cycle.
type Runner interface {
	Run(ctx context.Context) (ingest.Result, error)
}

// Scheduler triggers ingestion cycles on a cron schedule. A tick that fires
// while the previous cycle is still running is skipped.
type Scheduler struct {
	runner     Runner
	spec       string
	runOnStart bool
	logger     *slog.Logger

	cron    *cron.Cron
	entryID cron.EntryID
	ctx     context.Context
}

// New creates a scheduler for spec, a standard five-field cron expression or
// a descriptor such as "@hourly" or "@every 15m".
func New(runner Runner, spec string, runOnStart bool, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSpec
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Scheduler{
		runner:     runner,
		spec:       spec,
		runOnStart: runOnStart,
		logger:     logger,
	}
	adapter := cronLogger{logger: logger}
	s.cron = cron.New(
		cron.WithLogger(adapter),
		cron.WithChain(cron.Recover(adapter), cron.SkipIfStillRunning(adapter)),
	)

	id, err := s.cron.AddFunc(spec, func() { s.tick(s.ctx) })
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.entryID = id
	return s, nil
}

// Run starts the schedule and blocks until ctx is cancelled. Running
// cycles are allowed to finish before Run returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.ctx = ctx
	if s.runOnStart {
		s.logger.Info("scheduler: initial ingestion cycle")
		s.tick(ctx)
	}

	s.cron.Start()
	s.logger.Info("scheduler: running", "schedule", s.spec, "next", s.Next())

	<-ctx.Done()
	s.logger.Info("scheduler: stopping")
	<-s.cron.Stop().Done()
	return ctx.Err()
}

// Next reports when the next cycle is due. It is zero before Run.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entryID).Next
}

func (s *Scheduler) tick(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := s.runner.Run(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		s.logger.Error("scheduled ingestion cycle failed", "error", err)
		return
	}
	s.logger.Info("scheduled ingestion cycle done", "posts", res.Total, "digest", res.Digest != nil)
}

// cronLogger routes cron's internal logging through slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]any{"error", err}, keysAndValues...)...)
}
