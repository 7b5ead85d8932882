// Package scheduler drives the minor and major ticks of every registered
// chart on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"chart-engine-service/internal/charts/core/engine"
	"chart-engine-service/internal/telemetry"
)

const (
	DefaultMinorSpec   = "@hourly"
	DefaultMajorSpec   = "@daily"
	DefaultConcurrency = 4
)

type Config struct {
	MinorSpec     string
	MajorSpec     string
	Concurrency   int
	ResyncOnStart bool
}

type Scheduler struct {
	cron     *cron.Cron
	registry *engine.Registry
	cfg      Config
	logger   zerolog.Logger

	jobCtx context.Context
	cancel context.CancelFunc
}

// New registers the tick jobs. Nothing runs until Start.
func New(logger zerolog.Logger, registry *engine.Registry, cfg Config) (*Scheduler, error) {
	if cfg.MinorSpec == "" {
		cfg.MinorSpec = DefaultMinorSpec
	}
	if cfg.MajorSpec == "" {
		cfg.MajorSpec = DefaultMajorSpec
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = DefaultConcurrency
	}

	logger = logger.With().Str("component", "scheduler").Logger()
	cl := cronLogger{logger: logger}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		registry: registry,
		cfg:      cfg,
		logger:   logger,
	}
	s.jobCtx, s.cancel = context.WithCancel(context.Background())

	if _, err := s.cron.AddFunc(cfg.MinorSpec, s.job("minor", s.RunMinor)); err != nil {
		return nil, fmt.Errorf("minor tick schedule %q: %w", cfg.MinorSpec, err)
	}
	if _, err := s.cron.AddFunc(cfg.MajorSpec, s.job("major", s.RunMajor)); err != nil {
		return nil, fmt.Errorf("major tick schedule %q: %w", cfg.MajorSpec, err)
	}
	return s, nil
}

// Start runs the optional startup resync and then starts the cron loop. Jobs
// are cancelled when ctx is.
func (s *Scheduler) Start(ctx context.Context) {
	s.cancel()
	s.jobCtx, s.cancel = context.WithCancel(ctx)

	if s.cfg.ResyncOnStart {
		if err := s.RunResync(s.jobCtx); err != nil {
			s.logger.Warn().Err(err).Msg("startup resync incomplete")
		}
	}

	s.cron.Start()
	s.logger.Info().
		Str("minor", s.cfg.MinorSpec).
		Str("major", s.cfg.MajorSpec).
		Int("concurrency", s.cfg.Concurrency).
		Msg("scheduler started")
}

// Close stops the cron loop and waits for running jobs to return.
func (s *Scheduler) Close() {
	<-s.cron.Stop().Done()
	s.cancel()
}

func (s *Scheduler) RunMinor(ctx context.Context) error {
	return s.run(ctx, "minor", (*engine.Engine).TickMinor)
}

func (s *Scheduler) RunMajor(ctx context.Context) error {
	return s.run(ctx, "major", (*engine.Engine).TickMajor)
}

func (s *Scheduler) RunResync(ctx context.Context) error {
	return s.run(ctx, "resync", (*engine.Engine).Resync)
}

func (s *Scheduler) job(tick string, fn func(context.Context) error) func() {
	return func() {
		if err := fn(s.jobCtx); err != nil {
			s.logger.Warn().Err(err).Str("tick", tick).Msg("tick finished with failures")
		}
	}
}

// run applies fn to every engine with bounded concurrency. A failing chart
// never stops the others; all failures are joined.
func (s *Scheduler) run(ctx context.Context, tick string, fn func(*engine.Engine, context.Context) error) error {
	start := time.Now()
	defer func() {
		telemetry.SchedulerJobDuration.WithLabelValues(tick).Observe(time.Since(start).Seconds())
	}()

	engines := s.registry.Engines()
	errs := make([]error, len(engines))

	var g errgroup.Group
	g.SetLimit(s.cfg.Concurrency)
	for i, e := range engines {
		g.Go(func() error {
			if err := fn(e, ctx); err != nil {
				s.logger.Error().Err(err).Str("chart", e.Name()).Str("tick", tick).Msg("chart tick failed")
				errs[i] = fmt.Errorf("%s: %w", e.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}

// cronLogger routes cron's own logging through zerolog.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
