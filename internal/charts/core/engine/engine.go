// Package engine implements the chart engine: commits into hourly and daily
// buckets under a per-group lock, scheduled minor/major ticks guarded by a
// persisted watermark, forced resyncs and zero-filled series reads.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"

	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/ports"
	"chart-engine-service/internal/telemetry"
)

const DefaultLockTimeout = 30 * time.Second

var ErrInvalidLimit = errors.New("limit must be at least 1")

// Hooks supply a chart's tick computations.
//
// TickMinor returns changes merged additively into the bucket of the new
// hour. TickMajor returns counter values that replace the stored ones,
// computed from an authoritative source.
type Hooks interface {
	TickMinor(ctx context.Context, group string) (*domain.Changes, error)
	TickMajor(ctx context.Context, group string) (map[string]int64, error)
}

// NopHooks is used by charts that only change through commits.
type NopHooks struct{}

func (NopHooks) TickMinor(context.Context, string) (*domain.Changes, error) { return nil, nil }
func (NopHooks) TickMajor(context.Context, string) (map[string]int64, error) { return nil, nil }

type Option func(*Engine)

func WithClock(c quartz.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

func WithLockTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.lockTimeout = d
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

func WithHooks(h Hooks) Option {
	return func(e *Engine) {
		if h != nil {
			e.hooks = h
		}
	}
}

type Engine struct {
	schema      *domain.Schema
	store       ports.BucketStorePort
	locks       ports.LockProviderPort
	hooks       Hooks
	clock       quartz.Clock
	lockTimeout time.Duration
	logger      zerolog.Logger
	accumulate  []string
}

func New(schema *domain.Schema, store ports.BucketStorePort, locks ports.LockProviderPort, opts ...Option) *Engine {
	e := &Engine{
		schema:      schema,
		store:       store,
		locks:       locks,
		hooks:       NopHooks{},
		clock:       quartz.NewReal(),
		lockTimeout: DefaultLockTimeout,
		logger:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With().Str("chart", schema.Name()).Logger()
	e.accumulate = schema.AccumulatingColumns()
	return e
}

func (e *Engine) Name() string           { return e.schema.Name() }
func (e *Engine) Schema() *domain.Schema { return e.schema }

// LockKey names the lock serializing writes to one chart group.
func LockKey(chart, group string) string {
	return "chart:" + chart + ":" + group
}

// Commit applies ch to the current hourly and daily buckets of group.
func (e *Engine) Commit(ctx context.Context, group string, ch *domain.Changes) (err error) {
	started := time.Now()
	defer func() {
		telemetry.CommitDuration.WithLabelValues(e.Name()).Observe(time.Since(started).Seconds())
		if err != nil {
			telemetry.CommitErrors.WithLabelValues(e.Name(), errorReason(err)).Inc()
		}
	}()

	if err := e.schema.ValidateGroup(group); err != nil {
		return err
	}
	if err := e.schema.Validate(ch); err != nil {
		return err
	}
	if ch.Empty() {
		return nil
	}

	now := e.clock.Now()
	return e.withLock(ctx, group, func(ctx context.Context) error {
		buckets, _, err := e.openCurrent(ctx, group, now)
		if err != nil {
			return err
		}
		for _, b := range buckets {
			b.Apply(ch)
		}
		return e.save(ctx, domain.Batch{Buckets: buckets})
	})
}

// TickMinor seeds the current hour of every active group with the minor hook
// result, at most once per hour and group.
func (e *Engine) TickMinor(ctx context.Context) error {
	now := e.clock.Now()
	period := domain.SpanHour.Truncate(now)
	return e.eachTickGroup(ctx, domain.TickMinor, domain.SpanHour, period, func(ctx context.Context, group string) error {
		due, err := e.due(ctx, domain.TickMinor, group, period)
		if err != nil || !due {
			return err
		}
		ch, err := e.hooks.TickMinor(ctx, group)
		if err != nil {
			return fmt.Errorf("minor tick hook: %w", err)
		}
		if err := e.schema.Validate(ch); err != nil {
			return err
		}
		return e.tickWrite(ctx, group, now, e.watermark(domain.TickMinor, group, period), func(b *domain.Bucket) {
			b.Apply(ch)
		})
	})
}

// TickMajor overwrites the current buckets of every active group with the
// major hook result, at most once per day and group.
func (e *Engine) TickMajor(ctx context.Context) error {
	now := e.clock.Now()
	period := domain.SpanDay.Truncate(now)
	return e.eachTickGroup(ctx, domain.TickMajor, domain.SpanDay, period, func(ctx context.Context, group string) error {
		due, err := e.due(ctx, domain.TickMajor, group, period)
		if err != nil || !due {
			return err
		}
		return e.recompute(ctx, group, now, e.watermark(domain.TickMajor, group, period))
	})
}

// Resync runs the major recomputation on the current buckets right away. The
// watermark is neither checked nor moved.
func (e *Engine) Resync(ctx context.Context) error {
	now := e.clock.Now()
	period := domain.SpanDay.Truncate(now)
	return e.eachTickGroup(ctx, "resync", domain.SpanDay, period, func(ctx context.Context, group string) error {
		return e.recompute(ctx, group, now, nil)
	})
}

// GetChart returns limit values per column for the periods ending at the one
// containing offset (now when offset is zero), oldest first. Missing buckets
// read as zero.
func (e *Engine) GetChart(ctx context.Context, span domain.Span, limit int, offset time.Time, group string) (domain.Series, error) {
	if limit < 1 {
		return nil, ErrInvalidLimit
	}
	if _, err := domain.ParseSpan(string(span)); err != nil {
		return nil, err
	}
	if err := e.schema.ValidateGroup(group); err != nil {
		return nil, err
	}

	started := time.Now()
	defer func() {
		telemetry.GetChartDuration.WithLabelValues(e.Name(), string(span)).Observe(time.Since(started).Seconds())
	}()

	if offset.IsZero() {
		offset = e.clock.Now()
	}
	last := span.Truncate(offset)
	first := span.Add(last, -(limit - 1))

	buckets, err := e.store.RangeBuckets(ctx, e.Name(), span, group, first, last)
	if err != nil {
		return nil, domain.NewStorageError("range buckets", err)
	}
	byStart := make(map[int64]*domain.Bucket, len(buckets))
	for _, b := range buckets {
		byStart[b.Key.Start.Unix()] = b
	}

	columns := e.schema.Columns()
	series := make(domain.Series, len(columns))
	for _, c := range columns {
		series[c.Name] = make([]int64, limit)
	}
	for i := 0; i < limit; i++ {
		b, ok := byStart[span.Add(first, i).Unix()]
		if !ok {
			continue
		}
		for _, c := range columns {
			series[c.Name][i] = b.Value(c)
		}
	}
	return series, nil
}

func (e *Engine) recompute(ctx context.Context, group string, now time.Time, wm *domain.Watermark) error {
	values, err := e.hooks.TickMajor(ctx, group)
	if err != nil {
		return fmt.Errorf("major tick hook: %w", err)
	}
	if err := e.schema.ValidateOverwrite(values); err != nil {
		return err
	}
	return e.tickWrite(ctx, group, now, wm, func(b *domain.Bucket) {
		b.Overwrite(values)
	})
}

// tickWrite applies fn to the current buckets of group and saves them along
// with wm. On grouped charts a bucket the tick would create with nothing but
// its seeded values is not written, so a group stops being visited once its
// commits stop.
func (e *Engine) tickWrite(ctx context.Context, group string, now time.Time, wm *domain.Watermark, fn func(b *domain.Bucket)) error {
	buckets, seeds, err := e.openCurrent(ctx, group, now)
	if err != nil {
		return err
	}
	keep := buckets[:0]
	for i, b := range buckets {
		fn(b)
		if e.schema.Grouped() && seeds[i] != nil && b.SameValues(seeds[i]) {
			continue
		}
		keep = append(keep, b)
	}
	if len(keep) == 0 && wm == nil {
		return nil
	}
	return e.save(ctx, domain.Batch{Buckets: keep, Watermark: wm})
}

func (e *Engine) eachTickGroup(
	ctx context.Context,
	tick domain.TickKind,
	span domain.Span,
	period time.Time,
	fn func(ctx context.Context, group string) error,
) error {
	groups, err := e.tickGroups(ctx, span, period)
	if err != nil {
		return err
	}

	var errs []error
	for _, group := range groups {
		err := e.withLock(ctx, group, func(ctx context.Context) error {
			return fn(ctx, group)
		})
		if err != nil {
			telemetry.TickRuns.WithLabelValues(e.Name(), string(tick), "failed").Inc()
			errs = append(errs, fmt.Errorf("%s tick %s group %q: %w", tick, e.Name(), group, err))
		}
	}
	return errors.Join(errs...)
}

// tickGroups lists the root group for ungrouped charts, else every group with
// a bucket in the current or previous period.
func (e *Engine) tickGroups(ctx context.Context, span domain.Span, period time.Time) ([]string, error) {
	if !e.schema.Grouped() {
		return []string{""}, nil
	}
	groups, err := e.store.ActiveGroups(ctx, e.Name(), span, span.Add(period, -1))
	if err != nil {
		return nil, domain.NewStorageError("active groups", err)
	}
	return groups, nil
}

func (e *Engine) due(ctx context.Context, tick domain.TickKind, group string, period time.Time) (bool, error) {
	last, err := e.store.LoadWatermark(ctx, e.Name(), tick, group)
	if err != nil {
		return false, domain.NewStorageError("load watermark", err)
	}
	if !period.After(last) {
		e.logger.Debug().
			Str("tick", string(tick)).
			Str("group", group).
			Time("period", period).
			Msg("tick already applied for period, skipping")
		telemetry.TickRuns.WithLabelValues(e.Name(), string(tick), "skipped").Inc()
		return false, nil
	}
	telemetry.TickRuns.WithLabelValues(e.Name(), string(tick), "applied").Inc()
	return true, nil
}

func (e *Engine) watermark(tick domain.TickKind, group string, period time.Time) *domain.Watermark {
	return &domain.Watermark{Chart: e.Name(), Tick: tick, Group: group, Period: period}
}

// openCurrent loads or creates the hourly and daily buckets containing now.
// seeds[i] holds a copy of buckets[i] as created, or nil when it was loaded.
func (e *Engine) openCurrent(ctx context.Context, group string, now time.Time) (buckets, seeds []*domain.Bucket, err error) {
	buckets = make([]*domain.Bucket, 0, len(domain.Spans))
	seeds = make([]*domain.Bucket, 0, len(domain.Spans))
	for _, span := range domain.Spans {
		b, created, err := e.open(ctx, span, span.Truncate(now), group)
		if err != nil {
			return nil, nil, err
		}
		var seed *domain.Bucket
		if created {
			seed = b.Clone()
		}
		buckets = append(buckets, b)
		seeds = append(seeds, seed)
	}
	return buckets, seeds, nil
}

func (e *Engine) open(ctx context.Context, span domain.Span, start time.Time, group string) (*domain.Bucket, bool, error) {
	key := domain.BucketKey{Chart: e.Name(), Span: span, Start: start, Group: group}
	b, err := e.store.LoadBucket(ctx, key)
	if err != nil {
		return nil, false, domain.NewStorageError("load bucket", err)
	}
	if b != nil {
		return b, false, nil
	}

	b = domain.NewBucket(key)
	if len(e.accumulate) > 0 {
		prev, err := e.store.LatestBucketBefore(ctx, key.Chart, span, group, start)
		if err != nil {
			return nil, false, domain.NewStorageError("load previous bucket", err)
		}
		b.Seed(prev, e.accumulate)
	}
	return b, true, nil
}

func (e *Engine) save(ctx context.Context, batch domain.Batch) error {
	if err := e.store.Save(ctx, batch); err != nil {
		return domain.NewStorageError("save buckets", err)
	}
	return nil
}

func (e *Engine) withLock(ctx context.Context, group string, fn func(ctx context.Context) error) error {
	waitStarted := time.Now()
	lock, err := e.locks.Acquire(ctx, LockKey(e.Name(), group), e.lockTimeout)
	telemetry.LockWait.WithLabelValues(e.Name()).Observe(time.Since(waitStarted).Seconds())
	if err != nil {
		return fmt.Errorf("acquire lock for group %q: %w", group, err)
	}
	defer func() {
		if err := lock.Release(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn().Err(err).Str("group", group).Msg("failed to release chart lock")
		}
	}()
	return fn(ctx)
}

func errorReason(err error) string {
	var se *domain.StorageError
	switch {
	case errors.Is(err, domain.ErrLockTimeout):
		return "lock_timeout"
	case errors.Is(err, domain.ErrSchemaViolation):
		return "schema"
	case errors.As(err, &se):
		return "storage"
	default:
		return "other"
	}
}
