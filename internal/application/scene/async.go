package scene

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/younwookim/aegis/internal/domain/errs"
	"golang.org/x/sync/errgroup"
)

// DefaultJoinTimeout bounds how long OnExit waits for the background task.
const DefaultJoinTimeout = 500 * time.Millisecond

// Task is background work that runs alongside the tick-driven Update calls.
// It must return once ctx is cancelled.
type Task func(ctx context.Context) error

// Async wraps a Scene with one background task that starts when the scene is
// entered and is cancelled when it exits.
//
// A task failure is reported by the next Update or OnPaused call so the loop
// halts instead of running on with half of the scene dead.
type Async struct {
	Scene
	task        Task
	joinTimeout time.Duration

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// NewAsync creates an Async scene around inner. A nil task is reported as a
// configuration error when the scene is entered.
func NewAsync(inner Scene, task Task) *Async {
	return &Async{
		Scene:       inner,
		task:        task,
		joinTimeout: DefaultJoinTimeout,
	}
}

// SetJoinTimeout changes how long OnExit waits for the task to return.
func (a *Async) SetJoinTimeout(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.joinTimeout = d
}

// OnEnter runs the inner enter hook, then starts the background task.
func (a *Async) OnEnter() error {
	if a.task == nil {
		return fmt.Errorf("%w: scene %q has no background task", errs.ErrInvalidConfiguration, a.ID())
	}
	if err := Enter(a.Scene); err != nil {
		return err
	}
	a.start()
	return nil
}

// Update reports a failed background task, otherwise forwards to the inner scene.
func (a *Async) Update() error {
	if err := a.Err(); err != nil {
		return err
	}
	return a.Scene.Update()
}

// OnPaused reports a failed background task, otherwise forwards to the inner scene.
func (a *Async) OnPaused() error {
	if err := a.Err(); err != nil {
		return err
	}
	return Paused(a.Scene)
}

// OnExit cancels the background task, waits up to the join timeout for it to
// return, then runs the inner exit hook. A task that outlives the timeout is
// abandoned.
func (a *Async) OnExit() error {
	a.mu.Lock()
	cancel, done, timeout := a.cancel, a.done, a.joinTimeout
	a.cancel, a.done = nil, nil
	a.mu.Unlock()

	if cancel != nil {
		cancel()
		select {
		case <-done:
		case <-time.After(timeout):
			log.Printf("scene %q: background task still running after %v, abandoning", a.ID(), timeout)
		}
	}
	return Exit(a.Scene)
}

// Cancel signals the background task to stop without waiting for it and
// without running the exit hook.
func (a *Async) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.stopLocked()
}

// Running reports whether a background task is live.
func (a *Async) Running() bool {
	a.mu.Lock()
	done := a.done
	a.mu.Unlock()
	if done == nil {
		return false
	}
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Err returns the error of the current activation's background task, if it failed.
func (a *Async) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

func (a *Async) start() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopLocked()
	a.gen++
	a.err = nil
	gen := a.gen

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("task panicked: %v", r)
			}
		}()
		return a.task(gctx)
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := g.Wait()
		if err == nil || errors.Is(err, context.Canceled) {
			return
		}
		a.mu.Lock()
		defer a.mu.Unlock()
		if a.gen == gen {
			a.err = fmt.Errorf("scene %q background task: %w", a.ID(), err)
		}
	}()

	a.cancel, a.done = cancel, done
}

// stopLocked cancels a live task without waiting. Caller holds a.mu.
func (a *Async) stopLocked() {
	if a.cancel != nil {
		a.cancel()
	}
	a.cancel, a.done = nil, nil
}
