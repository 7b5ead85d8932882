package scheduler_test

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"chart-engine-service/internal/charts/adapters/memory"
	"chart-engine-service/internal/charts/core/domain"
	"chart-engine-service/internal/charts/core/engine"
	"chart-engine-service/internal/charts/scheduler"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var base = time.Date(2026, 10, 15, 10, 30, 0, 0, time.UTC)

// countingHooks reports a fixed total and tracks how many ticks overlap.
type countingHooks struct {
	total    int64
	fail     error
	minor    atomic.Int32
	major    atomic.Int32
	inflight atomic.Int32
	maxSeen  atomic.Int32
}

func (h *countingHooks) enter() func() {
	n := h.inflight.Add(1)
	for {
		m := h.maxSeen.Load()
		if n <= m || h.maxSeen.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return func() { h.inflight.Add(-1) }
}

func (h *countingHooks) TickMinor(context.Context, string) (*domain.Changes, error) {
	defer h.enter()()
	h.minor.Add(1)
	return domain.NewChanges().Add("inc", 1), nil
}

func (h *countingHooks) TickMajor(context.Context, string) (map[string]int64, error) {
	defer h.enter()()
	h.major.Add(1)
	if h.fail != nil {
		return nil, h.fail
	}
	return map[string]int64{"total": h.total}, nil
}

type fixture struct {
	registry *engine.Registry
	clock    *quartz.Mock
	hooks    map[string]*countingHooks
}

func newFixture(t *testing.T, names ...string) fixture {
	t.Helper()
	clk := quartz.NewMock(t)
	clk.Set(base)
	store := memory.NewStore()
	locks := memory.NewLocker()

	f := fixture{registry: engine.NewRegistry(), clock: clk, hooks: map[string]*countingHooks{}}
	for _, name := range names {
		h := &countingHooks{total: 42}
		schema := domain.MustSchema(name, false, domain.TotalColumn("total"), domain.CounterColumn("inc"))
		e := engine.New(schema, store, locks, engine.WithClock(clk), engine.WithHooks(h))
		require.NoError(t, f.registry.Register(e))
		f.hooks[name] = h
	}
	return f
}

func (f fixture) latest(t *testing.T, chart, col string) int64 {
	t.Helper()
	e, ok := f.registry.Get(chart)
	require.True(t, ok)
	s, err := e.GetChart(context.Background(), domain.SpanDay, 1, time.Time{}, "")
	require.NoError(t, err)
	return s[col][0]
}

func newScheduler(t *testing.T, f fixture, cfg scheduler.Config) *scheduler.Scheduler {
	t.Helper()
	s, err := scheduler.New(zerolog.Nop(), f.registry, cfg)
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// ------------------------------------------------------------
// TICKS
// ------------------------------------------------------------
func TestRunMinor_TicksEveryChartOncePerHour(t *testing.T) {
	f := newFixture(t, "a", "b")
	s := newScheduler(t, f, scheduler.Config{})
	ctx := context.Background()

	require.NoError(t, s.RunMinor(ctx))
	require.NoError(t, s.RunMinor(ctx))

	for _, name := range []string{"a", "b"} {
		require.Equal(t, int32(1), f.hooks[name].minor.Load(), name)
		require.Equal(t, int64(1), f.latest(t, name, "inc"), name)
	}

	f.clock.Advance(time.Hour)
	require.NoError(t, s.RunMinor(ctx))
	require.Equal(t, int32(2), f.hooks["a"].minor.Load())
}

func TestRunMajor_FailingChartDoesNotStopOthers(t *testing.T) {
	f := newFixture(t, "ok", "broken")
	f.hooks["broken"].fail = errors.New("source down")
	s := newScheduler(t, f, scheduler.Config{Concurrency: 1})

	err := s.RunMajor(context.Background())
	require.Error(t, err)
	require.ErrorContains(t, err, "broken")
	for _, line := range strings.Split(err.Error(), "\n") {
		require.True(t, strings.HasPrefix(line, "broken: "), line)
	}

	require.Equal(t, int64(42), f.latest(t, "ok", "total"))
	require.Equal(t, int64(0), f.latest(t, "broken", "total"))
}

func TestRunResync_IgnoresWatermark(t *testing.T) {
	f := newFixture(t, "a")
	s := newScheduler(t, f, scheduler.Config{})
	ctx := context.Background()

	require.NoError(t, s.RunMajor(ctx))
	f.hooks["a"].total = 50
	require.NoError(t, s.RunMajor(ctx))
	require.Equal(t, int64(42), f.latest(t, "a", "total"))

	require.NoError(t, s.RunResync(ctx))
	require.Equal(t, int64(50), f.latest(t, "a", "total"))
	require.Equal(t, int32(2), f.hooks["a"].major.Load())
}

func TestRun_RespectsConcurrencyLimit(t *testing.T) {
	clk := quartz.NewMock(t)
	clk.Set(base)
	store := memory.NewStore()
	locks := memory.NewLocker()
	shared := &countingHooks{total: 1}

	reg := engine.NewRegistry()
	for _, name := range []string{"a", "b", "c", "d"} {
		schema := domain.MustSchema(name, false, domain.TotalColumn("total"), domain.CounterColumn("inc"))
		require.NoError(t, reg.Register(engine.New(schema, store, locks, engine.WithClock(clk), engine.WithHooks(shared))))
	}

	s := newScheduler(t, fixture{registry: reg}, scheduler.Config{Concurrency: 2})
	require.NoError(t, s.RunMajor(context.Background()))

	require.Equal(t, int32(4), shared.major.Load())
	require.LessOrEqual(t, shared.maxSeen.Load(), int32(2))
}

// ------------------------------------------------------------
// LIFECYCLE
// ------------------------------------------------------------
func TestNew_RejectsInvalidSchedule(t *testing.T) {
	f := newFixture(t, "a")
	_, err := scheduler.New(zerolog.Nop(), f.registry, scheduler.Config{MinorSpec: "every now and then"})
	require.Error(t, err)
}

func TestStart_ResyncOnStart(t *testing.T) {
	f := newFixture(t, "a")
	s := newScheduler(t, f, scheduler.Config{ResyncOnStart: true})

	s.Start(context.Background())

	require.Equal(t, int32(1), f.hooks["a"].major.Load())
	require.Equal(t, int64(42), f.latest(t, "a", "total"))
}

func TestClose_WaitsAndStopsCleanly(t *testing.T) {
	f := newFixture(t, "a")
	s, err := scheduler.New(zerolog.Nop(), f.registry, scheduler.Config{
		MinorSpec: "@every 1s",
		MajorSpec: "@every 1h",
	})
	require.NoError(t, err)

	s.Start(context.Background())
	require.Eventually(t, func() bool {
		return f.hooks["a"].minor.Load() >= 1
	}, 3*time.Second, 10*time.Millisecond)

	s.Close()
	require.Zero(t, f.hooks["a"].inflight.Load())
}
