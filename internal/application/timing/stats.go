package timing

import (
	"fmt"
	"time"
)

// Stats is a snapshot of the governor's rolling statistics.
type Stats struct {
	Frame          uint64 // number of the next tick, starting at 1
	TargetRate     float64
	TargetInterval time.Duration
	Unlocked       bool
	LastRuntime    time.Duration
	// AverageRuntime is (previous LastRuntime + LastRuntime) / 2, a one-sample
	// lag rather than a moving average.
	AverageRuntime time.Duration
	// PerformanceRatio is LastRuntime / TargetInterval; above 1 the loop
	// cannot keep pace.
	PerformanceRatio float64
	// Load is the callback's own duration over TargetInterval, excluding
	// the sleep that pads a locked tick.
	Load float64
}

// AverageFramerate returns the frame rate implied by AverageRuntime.
func (s Stats) AverageFramerate() float64 {
	ms := s.AverageRuntime.Milliseconds()
	if ms <= 0 {
		return 0
	}
	return 1000 / float64(ms)
}

// Overloaded reports whether the last tick took longer than the target interval.
func (s Stats) Overloaded() bool {
	return s.PerformanceRatio > 1
}

// String formats the statistics as [frame] [rate+] [fps] [ratio], with +
// marking an unlocked frame rate.
func (s Stats) String() string {
	mode := ' '
	if s.Unlocked {
		mode = '+'
	}
	return fmt.Sprintf("[%06d] [%4.2f%c] [% 8.2f] [%.3f]",
		s.Frame, s.TargetRate, mode, s.AverageFramerate(), s.PerformanceRatio)
}
