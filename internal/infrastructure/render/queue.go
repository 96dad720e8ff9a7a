// Package render holds the renderer collaborators of the loop: a draw queue
// filled by scenes during a tick, and the sinks a flushed frame is
// presented to (an ebiten window host and a console printer).
package render

import (
	"errors"
	"image/color"
	"sync"
)

// OpKind identifies a queued draw operation
type OpKind int

const (
	OpFill OpKind = iota
	OpRect
	OpText
)

// Op is a single queued draw operation
type Op struct {
	Kind       OpKind
	X, Y, W, H float64
	Text       string
	Color      color.Color
}

// Frame is the set of operations flushed at the end of one tick
type Frame struct {
	Seq uint64
	Ops []Op
}

// Texts returns the text of every OpText in draw order
func (f Frame) Texts() []string {
	var out []string
	for _, op := range f.Ops {
		if op.Kind == OpText {
			out = append(out, op.Text)
		}
	}
	return out
}

// Sink receives every flushed frame
type Sink interface {
	Present(Frame) error
}

// Queue collects draw operations during a tick. Flush hands them to the
// sinks as one frame and starts an empty one.
type Queue struct {
	mu      sync.Mutex
	pending []Op
	seq     uint64
	sinks   []Sink
}

// NewQueue creates a queue presenting to sinks
func NewQueue(sinks ...Sink) *Queue {
	return &Queue{sinks: sinks}
}

// AddSink registers another sink
func (q *Queue) AddSink(s Sink) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.sinks = append(q.sinks, s)
}

// Fill queues a full screen fill
func (q *Queue) Fill(c color.Color) {
	q.push(Op{Kind: OpFill, Color: c})
}

// Rect queues a filled rectangle
func (q *Queue) Rect(x, y, w, h float64, c color.Color) {
	q.push(Op{Kind: OpRect, X: x, Y: y, W: w, H: h, Color: c})
}

// Text queues a line of debug text at (x, y)
func (q *Queue) Text(x, y int, s string) {
	q.push(Op{Kind: OpText, X: float64(x), Y: float64(y), Text: s})
}

func (q *Queue) push(op Op) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, op)
}

// Pending returns the number of operations queued since the last flush
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush presents everything queued as one frame. Every sink sees the frame
// even when an earlier one fails; the errors are joined.
func (q *Queue) Flush() error {
	q.mu.Lock()
	q.seq++
	frame := Frame{Seq: q.seq, Ops: q.pending}
	q.pending = nil
	sinks := append([]Sink(nil), q.sinks...)
	q.mu.Unlock()

	var errs []error
	for _, s := range sinks {
		if err := s.Present(frame); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
