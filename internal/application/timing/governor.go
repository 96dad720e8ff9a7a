// Package timing provides the frame governor: a goroutine that calls a driven
// callback at a target rate and keeps rolling performance statistics.
//
// The governor suspends only at the top of a tick, before the callback runs,
// so pause and stop requests never interrupt scene logic half way through.
package timing

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"github.com/younwookim/aegis/internal/domain/errs"
)

// Frame rate presets
const (
	FramerateOne   = 1.0
	FramerateLow   = 30.0
	FramerateHigh  = 60.0
	FramerateUltra = 120.0
)

// Driven is the unit of work the governor calls once per tick.
type Driven interface {
	Tick() error
}

// DrivenFunc adapts a function into a Driven.
type DrivenFunc func() error

func (f DrivenFunc) Tick() error { return f() }

// Governor runs a Driven at a controlled rate on its own goroutine.
type Governor struct {
	driven Driven
	clock  Clock

	mu        sync.Mutex
	cond      *sync.Cond
	rate      float64
	targetMS  int64
	unlocked  bool
	pauses    int
	suspended bool
	running   bool
	started   bool
	stopped   bool // Stop was called, possibly before Start
	observer  func(Stats)

	// statistics, all in whole milliseconds
	lastMS int64
	avgMS  int64
	ratio  float64
	load   float64
	frame  uint64

	done chan struct{}
	err  error
}

// New creates a Governor driving d at targetRate ticks per second.
func New(d Driven, targetRate float64) (*Governor, error) {
	if d == nil {
		return nil, fmt.Errorf("%w: nil driven callback", errs.ErrInvalidConfiguration)
	}
	targetMS, err := intervalMillis(targetRate)
	if err != nil {
		return nil, err
	}

	g := &Governor{
		driven:   d,
		clock:    realClock{},
		rate:     targetRate,
		targetMS: targetMS,
		frame:    1,
		done:     make(chan struct{}),
	}
	g.cond = sync.NewCond(&g.mu)
	g.resetStatsLocked()
	return g, nil
}

// intervalMillis converts a rate into a whole-millisecond tick interval,
// truncating like an integer cast.
func intervalMillis(rate float64) (int64, error) {
	if !(rate > 0) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("%w: frame rate must be positive and finite, got %v", errs.ErrInvalidConfiguration, rate)
	}
	ms := int64(1000 / rate)
	if ms <= 0 {
		return 0, fmt.Errorf("%w: frame rate %v leaves a zero millisecond interval", errs.ErrInvalidConfiguration, rate)
	}
	return ms, nil
}

// SetClock replaces the time source. It must be called before Start.
func (g *Governor) SetClock(c Clock) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clock = c
}

// SetObserver registers a function called with fresh statistics after every tick.
func (g *Governor) SetObserver(fn func(Stats)) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.observer = fn
}

// LockFramerate sets a new target rate and turns sleeping back on.
func (g *Governor) LockFramerate(rate float64) error {
	targetMS, err := intervalMillis(rate)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rate, g.targetMS, g.unlocked = rate, targetMS, false
	return nil
}

// UnlockFramerate stops sleeping between ticks. statsRate is still needed to
// compute the performance ratio.
func (g *Governor) UnlockFramerate(statsRate float64) error {
	targetMS, err := intervalMillis(statsRate)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rate, g.targetMS, g.unlocked = statsRate, targetMS, true
	return nil
}

// Start launches the tick goroutine. Cancelling ctx has the same effect as Stop.
func (g *Governor) Start(ctx context.Context) error {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return fmt.Errorf("%w: governor already started", errs.ErrIllegalLoopState)
	}
	g.started = true
	g.running = !g.stopped
	g.resetStatsLocked()
	g.mu.Unlock()

	go g.run()
	go func() {
		select {
		case <-ctx.Done():
			g.Stop()
		case <-g.done:
		}
	}()
	return nil
}

// Stop asks the loop to end. It takes effect at the next tick boundary; a
// tick in progress always completes. A Stop before Start makes the loop end
// without ticking once it is started.
func (g *Governor) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.stopped = true
	g.running = false
	g.cond.Broadcast()
}

// EndAfterFrame is an alias of Stop.
func (g *Governor) EndAfterFrame() {
	g.Stop()
}

// Wait blocks until the loop has ended and returns the error that halted it, if any.
func (g *Governor) Wait() error {
	<-g.done
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Done is closed when the loop goroutine exits.
func (g *Governor) Done() <-chan struct{} {
	return g.done
}

// RequestPause adds one pause request. The loop blocks at the top of the
// next tick until every request is released.
func (g *Governor) RequestPause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pauses++
}

// ReleasePause drops one pause request.
func (g *Governor) ReleasePause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pauses == 0 {
		return fmt.Errorf("%w: release without a pause request", errs.ErrIllegalLoopState)
	}
	g.pauses--
	if g.pauses == 0 {
		g.cond.Broadcast()
	}
	return nil
}

// Suspended reports whether the loop is currently blocked on pause requests.
func (g *Governor) Suspended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.suspended
}

// Running reports whether the loop has been started and not yet told to stop.
func (g *Governor) Running() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.running
}

// Stats returns a snapshot of the current statistics.
func (g *Governor) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.statsLocked()
}

func (g *Governor) String() string {
	return g.Stats().String()
}

func (g *Governor) run() {
	defer close(g.done)

	for {
		if !g.awaitTurn() {
			log.Printf("timing: loop stopped at frame %d", g.Stats().Frame)
			return
		}
		if err := g.tick(); err != nil {
			g.mu.Lock()
			g.err = err
			g.running = false
			g.mu.Unlock()
			log.Printf("timing: loop halted: %v", err)
			return
		}
	}
}

// awaitTurn is the single suspension point. It blocks while pause requests
// are outstanding and reports whether the loop should run another tick.
func (g *Governor) awaitTurn() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for g.running && g.pauses > 0 {
		g.suspended = true
		g.cond.Wait()
	}
	g.suspended = false
	return g.running
}

// tick runs the driven callback once and updates the statistics.
func (g *Governor) tick() error {
	g.mu.Lock()
	clock, targetMS, unlocked := g.clock, g.targetMS, g.unlocked
	g.mu.Unlock()

	start := clock.Now()
	if err := g.call(); err != nil {
		return err
	}

	elapsed := clock.Now().Sub(start).Milliseconds()
	delta := targetMS - elapsed
	if delta > 0 && !unlocked {
		clock.Sleep(time.Duration(delta) * time.Millisecond)
	}

	runtime := clock.Now().Sub(start).Milliseconds()

	g.mu.Lock()
	g.avgMS = (g.lastMS + runtime) / 2
	g.ratio = float64(runtime) / float64(targetMS)
	g.load = float64(elapsed) / float64(targetMS)
	g.lastMS = runtime
	g.frame++
	observer := g.observer
	stats := g.statsLocked()
	g.mu.Unlock()

	if observer != nil {
		observer(stats)
	}
	return nil
}

// call invokes the driven callback, turning a panic into an error so it
// halts the loop the same way a returned error does.
func (g *Governor) call() (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("driven callback panicked: %v", r)
		}
	}()
	return g.driven.Tick()
}

// resetStatsLocked seeds the statistics as if every previous tick had hit
// the target exactly.
func (g *Governor) resetStatsLocked() {
	g.lastMS = g.targetMS
	g.avgMS = g.lastMS
	g.ratio = 1.0
	g.load = 0
}

func (g *Governor) statsLocked() Stats {
	return Stats{
		Frame:            g.frame,
		TargetRate:       g.rate,
		TargetInterval:   time.Duration(g.targetMS) * time.Millisecond,
		Unlocked:         g.unlocked,
		LastRuntime:      time.Duration(g.lastMS) * time.Millisecond,
		AverageRuntime:   time.Duration(g.avgMS) * time.Millisecond,
		PerformanceRatio: g.ratio,
		Load:             g.load,
	}
}
