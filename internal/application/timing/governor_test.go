package timing

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/younwookim/aegis/internal/domain/errs"
)

// fakeClock only moves when the test or the governor's sleep advances it
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(0, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slept = append(c.slept, d)
	c.now = c.now.Add(d)
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

// workload advances the fake clock by the next duration on each tick
func workload(c *fakeClock, durations ...time.Duration) DrivenFunc {
	i := 0
	return func() error {
		c.Advance(durations[i%len(durations)])
		i++
		return nil
	}
}

func newFakeGovernor(t *testing.T, rate float64, durations ...time.Duration) (*Governor, *fakeClock) {
	t.Helper()
	c := newFakeClock()
	g, err := New(workload(c, durations...), rate)
	require.NoError(t, err)
	g.SetClock(c)
	return g, c
}

func TestIntervalMillis_Truncates(t *testing.T) {
	tests := []struct {
		rate     float64
		expected int64
	}{
		{FramerateOne, 1000},
		{FramerateLow, 33},
		{FramerateHigh, 16},
		{FramerateUltra, 8},
		{3, 333},
		{7, 142},
		{10, 100},
		{0.5, 2000},
		{1000, 1},
	}

	for _, tt := range tests {
		ms, err := intervalMillis(tt.rate)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, ms, "rate %v", tt.rate)
	}
}

func TestNew_InvalidConfiguration(t *testing.T) {
	for _, rate := range []float64{0, -1, math.NaN(), math.Inf(1), 2000} {
		_, err := New(DrivenFunc(func() error { return nil }), rate)
		assert.True(t, errors.Is(err, errs.ErrInvalidConfiguration), "rate %v", rate)
	}

	_, err := New(nil, 30)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
}

func TestNew_InitialStats(t *testing.T) {
	g, err := New(DrivenFunc(func() error { return nil }), FramerateLow)
	require.NoError(t, err)

	s := g.Stats()
	assert.Equal(t, uint64(1), s.Frame)
	assert.Equal(t, 33*time.Millisecond, s.TargetInterval)
	assert.Equal(t, 33*time.Millisecond, s.LastRuntime)
	assert.Equal(t, 33*time.Millisecond, s.AverageRuntime)
	assert.Equal(t, 1.0, s.PerformanceRatio)
	assert.False(t, s.Unlocked)
}

func TestTick_SleepsRemainder(t *testing.T) {
	g, c := newFakeGovernor(t, 10, 30*time.Millisecond)

	require.NoError(t, g.tick())

	assert.Equal(t, []time.Duration{70 * time.Millisecond}, c.Slept())
	s := g.Stats()
	assert.Equal(t, 100*time.Millisecond, s.LastRuntime)
	assert.Equal(t, 100*time.Millisecond, s.AverageRuntime)
	assert.Equal(t, 1.0, s.PerformanceRatio)
	assert.InDelta(t, 0.3, s.Load, 1e-9)
	assert.Equal(t, uint64(2), s.Frame)
}

func TestTick_AverageLagsOneSample(t *testing.T) {
	g, _ := newFakeGovernor(t, 60, 40*time.Millisecond, 10*time.Millisecond, 70*time.Millisecond)
	require.NoError(t, g.UnlockFramerate(60))

	// seeded last runtime is the 16ms target
	expected := []struct {
		avg   time.Duration
		last  time.Duration
		ratio float64
	}{
		{28 * time.Millisecond, 40 * time.Millisecond, 40.0 / 16},
		{25 * time.Millisecond, 10 * time.Millisecond, 10.0 / 16},
		{40 * time.Millisecond, 70 * time.Millisecond, 70.0 / 16},
	}

	for i, want := range expected {
		require.NoError(t, g.tick())
		s := g.Stats()
		assert.Equal(t, want.avg, s.AverageRuntime, "tick %d", i+1)
		assert.Equal(t, want.last, s.LastRuntime, "tick %d", i+1)
		assert.InDelta(t, want.ratio, s.PerformanceRatio, 1e-9, "tick %d", i+1)
	}
	assert.Equal(t, uint64(4), g.Stats().Frame)
}

func TestTick_AverageIntegerDivision(t *testing.T) {
	g, _ := newFakeGovernor(t, 10, 150*time.Millisecond, 151*time.Millisecond)

	require.NoError(t, g.tick())
	require.NoError(t, g.tick())

	assert.Equal(t, 150*time.Millisecond, g.Stats().AverageRuntime, "(150+151)/2 truncates")
}

func TestTick_OverloadedNeverSkips(t *testing.T) {
	calls := 0
	c := newFakeClock()
	g, err := New(DrivenFunc(func() error {
		calls++
		c.Advance(150 * time.Millisecond)
		return nil
	}), 10)
	require.NoError(t, err)
	g.SetClock(c)

	require.NoError(t, g.tick())
	require.NoError(t, g.tick())

	assert.Equal(t, 2, calls)
	assert.Empty(t, c.Slept(), "no sleep when the callback overruns")
	s := g.Stats()
	assert.Equal(t, 1.5, s.PerformanceRatio)
	assert.True(t, s.Overloaded())
}

func TestTick_UnlockedNeverSleeps(t *testing.T) {
	g, c := newFakeGovernor(t, 30, time.Millisecond)
	require.NoError(t, g.UnlockFramerate(60))

	for i := 0; i < 5; i++ {
		require.NoError(t, g.tick())
	}

	assert.Empty(t, c.Slept())
	s := g.Stats()
	assert.True(t, s.Unlocked)
	assert.Equal(t, 60.0, s.TargetRate)
	assert.Equal(t, 16*time.Millisecond, s.TargetInterval)
}

func TestLockFramerate(t *testing.T) {
	g, c := newFakeGovernor(t, 30, 5*time.Millisecond)
	require.NoError(t, g.UnlockFramerate(60))
	require.NoError(t, g.LockFramerate(20))

	require.NoError(t, g.tick())

	assert.Equal(t, []time.Duration{45 * time.Millisecond}, c.Slept())
	assert.False(t, g.Stats().Unlocked)

	err := g.LockFramerate(-5)
	assert.ErrorIs(t, err, errs.ErrInvalidConfiguration)
	assert.Equal(t, 20.0, g.Stats().TargetRate, "rejected rate leaves settings unchanged")

	assert.ErrorIs(t, g.UnlockFramerate(0), errs.ErrInvalidConfiguration)
	assert.False(t, g.Stats().Unlocked)
}

func TestObserver(t *testing.T) {
	g, _ := newFakeGovernor(t, 10, 20*time.Millisecond)

	var seen []Stats
	g.SetObserver(func(s Stats) { seen = append(seen, s) })

	require.NoError(t, g.tick())
	require.NoError(t, g.tick())

	require.Len(t, seen, 2)
	assert.Equal(t, uint64(2), seen[0].Frame)
	assert.Equal(t, uint64(3), seen[1].Frame)
	assert.Equal(t, 100*time.Millisecond, seen[1].LastRuntime)
}

func TestStats_String(t *testing.T) {
	g, err := New(DrivenFunc(func() error { return nil }), FramerateLow)
	require.NoError(t, err)
	assert.Equal(t, "[000001] [30.00 ] [   30.30] [1.000]", g.String())

	require.NoError(t, g.UnlockFramerate(60))
	assert.Equal(t, "[000001] [60.00+] [   30.30] [1.000]", g.String())

	assert.Equal(t, "[000000] [0.00 ] [    0.00] [0.000]", Stats{}.String())
}

func TestTick_CallbackError(t *testing.T) {
	g, err := New(DrivenFunc(func() error { return assert.AnError }), 10)
	require.NoError(t, err)

	assert.ErrorIs(t, g.tick(), assert.AnError)
	assert.Equal(t, uint64(1), g.Stats().Frame, "a failed tick is not counted")
}

func TestTick_CallbackPanic(t *testing.T) {
	g, err := New(DrivenFunc(func() error { panic("boom") }), 10)
	require.NoError(t, err)

	err = g.tick()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

// countingDriven counts ticks and can be told to fail
type countingDriven struct {
	ticks atomic.Int64
	fail  atomic.Bool
}

func (c *countingDriven) Tick() error {
	c.ticks.Add(1)
	if c.fail.Load() {
		return assert.AnError
	}
	return nil
}

func TestStart_Twice(t *testing.T) {
	d := &countingDriven{}
	g, err := New(d, 100)
	require.NoError(t, err)

	require.NoError(t, g.Start(context.Background()))
	defer func() {
		g.Stop()
		_ = g.Wait()
	}()

	err = g.Start(context.Background())
	assert.True(t, errors.Is(err, errs.ErrIllegalLoopState))
}

func TestStop_EndsLoop(t *testing.T) {
	d := &countingDriven{}
	g, err := New(d, 200)
	require.NoError(t, err)

	require.NoError(t, g.Start(context.Background()))
	require.Eventually(t, func() bool { return d.ticks.Load() >= 3 }, time.Second, time.Millisecond)
	assert.True(t, g.Running())

	g.EndAfterFrame()
	require.NoError(t, g.Wait())
	assert.False(t, g.Running())

	n := d.ticks.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, n, d.ticks.Load(), "no ticks after the loop ended")
}

func TestStart_ContextCancelStops(t *testing.T) {
	d := &countingDriven{}
	g, err := New(d, 200)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, g.Start(ctx))
	require.Eventually(t, func() bool { return d.ticks.Load() >= 1 }, time.Second, time.Millisecond)

	cancel()
	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("loop did not stop after context cancel")
	}
	assert.NoError(t, g.Wait())
}

func TestRun_ErrorHaltsLoop(t *testing.T) {
	d := &countingDriven{}
	d.fail.Store(true)
	g, err := New(d, 200)
	require.NoError(t, err)

	require.NoError(t, g.Start(context.Background()))

	err = g.Wait()
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, int64(1), d.ticks.Load(), "the loop halts on the first failing tick")
	assert.False(t, g.Running())
}

func TestPause_Symmetric(t *testing.T) {
	const n = 3
	d := &countingDriven{}
	g, err := New(d, 500)
	require.NoError(t, err)

	require.NoError(t, g.Start(context.Background()))
	defer func() {
		g.Stop()
		_ = g.Wait()
	}()
	require.Eventually(t, func() bool { return d.ticks.Load() >= 2 }, time.Second, time.Millisecond)

	for i := 0; i < n; i++ {
		g.RequestPause()
	}
	require.Eventually(t, g.Suspended, time.Second, time.Millisecond)

	for i := 0; i < n-1; i++ {
		require.NoError(t, g.ReleasePause())
	}
	blocked := d.ticks.Load()
	time.Sleep(40 * time.Millisecond)
	assert.Equal(t, blocked, d.ticks.Load(), "fewer releases than requests keep the loop blocked")
	assert.True(t, g.Suspended())

	require.NoError(t, g.ReleasePause())
	require.Eventually(t, func() bool { return d.ticks.Load() > blocked }, time.Second, time.Millisecond)
	assert.False(t, g.Suspended())
}

func TestPause_StatsKeptAcrossPause(t *testing.T) {
	d := &countingDriven{}
	g, err := New(d, 500)
	require.NoError(t, err)

	require.NoError(t, g.Start(context.Background()))
	defer func() {
		g.Stop()
		_ = g.Wait()
	}()
	require.Eventually(t, func() bool { return d.ticks.Load() >= 2 }, time.Second, time.Millisecond)

	g.RequestPause()
	require.Eventually(t, g.Suspended, time.Second, time.Millisecond)
	frame := g.Stats().Frame
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, g.ReleasePause())

	require.Eventually(t, func() bool { return g.Stats().Frame > frame }, time.Second, time.Millisecond)
	assert.Less(t, g.Stats().LastRuntime, 20*time.Millisecond, "time spent suspended is not charged to a tick")
}

func TestReleasePause_Unbalanced(t *testing.T) {
	g, err := New(&countingDriven{}, 30)
	require.NoError(t, err)

	assert.ErrorIs(t, g.ReleasePause(), errs.ErrIllegalLoopState)

	g.RequestPause()
	assert.NoError(t, g.ReleasePause())
	assert.ErrorIs(t, g.ReleasePause(), errs.ErrIllegalLoopState)
}

func TestStop_WhileSuspended(t *testing.T) {
	d := &countingDriven{}
	g, err := New(d, 500)
	require.NoError(t, err)

	g.RequestPause()
	require.NoError(t, g.Start(context.Background()))
	require.Eventually(t, g.Suspended, time.Second, time.Millisecond)

	g.Stop()
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(0), d.ticks.Load(), "a stopped loop exits at the suspension point without ticking")
}

func TestScenario_SleepFillsInterval(t *testing.T) {
	g, err := New(DrivenFunc(func() error {
		time.Sleep(50 * time.Millisecond)
		return nil
	}), 2)
	require.NoError(t, err)

	require.NoError(t, g.tick())

	s := g.Stats()
	assert.InDelta(t, 500, s.LastRuntime.Milliseconds(), 60)
	assert.Less(t, s.Load, 0.5, "the callback used a small share of the interval")
	assert.InDelta(t, 1.0, s.PerformanceRatio, 0.15)
}

func TestScenario_UnlockedOverrun(t *testing.T) {
	g, err := New(DrivenFunc(func() error {
		time.Sleep(40 * time.Millisecond)
		return nil
	}), 30)
	require.NoError(t, err)
	require.NoError(t, g.UnlockFramerate(60))

	start := time.Now()
	require.NoError(t, g.tick())
	require.NoError(t, g.tick())
	elapsed := time.Since(start)

	s := g.Stats()
	assert.GreaterOrEqual(t, s.PerformanceRatio, 2.4)
	assert.Less(t, s.PerformanceRatio, 4.0)
	assert.Less(t, elapsed, 150*time.Millisecond, "ticks run back to back without sleeping")
}

func TestStop_BeforeStart(t *testing.T) {
	d := &countingDriven{}
	g, err := New(d, 200)
	require.NoError(t, err)

	g.Stop()
	require.NoError(t, g.Start(context.Background()))

	select {
	case <-g.Done():
	case <-time.After(time.Second):
		t.Fatal("a stop requested before start was lost")
	}
	require.NoError(t, g.Wait())
	assert.Equal(t, int64(0), d.ticks.Load())
	assert.False(t, g.Running())
}
