// Package game provides the loop that ties the frame governor to the scene
// orchestrator: every governor tick advances the scene state machine, runs
// the per-tick systems and flushes the renderers.
package game

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/younwookim/aegis/internal/application/orchestrator"
	"github.com/younwookim/aegis/internal/application/scene"
	"github.com/younwookim/aegis/internal/application/timing"
	"github.com/younwookim/aegis/internal/application/trace"
	"github.com/younwookim/aegis/internal/domain/errs"
)

// System is per-tick logic that runs after the scene update
type System interface {
	Update() error
}

// SystemFunc adapts a function into a System.
type SystemFunc func() error

func (f SystemFunc) Update() error { return f() }

// Renderer draws everything queued during the tick
type Renderer interface {
	Flush() error
}

// Loop owns a governor and an orchestrator and drives one with the other.
type Loop struct {
	name     string
	session  string
	scenes   *orchestrator.Orchestrator
	governor *timing.Governor

	mu        sync.Mutex
	systems   []System
	renderers []Renderer
	recorder  *trace.Recorder
}

// New creates a loop ticking at targetRate.
func New(name string, targetRate float64) (*Loop, error) {
	l := &Loop{
		name:    name,
		session: uuid.NewString(),
		scenes:  orchestrator.New(),
	}
	gov, err := timing.New(timing.DrivenFunc(l.tick), targetRate)
	if err != nil {
		return nil, fmt.Errorf("loop %q: %w", name, err)
	}
	gov.SetObserver(l.observe)
	l.governor = gov
	return l, nil
}

// AddScene registers s under s.ID(). The first scene added becomes current.
func (l *Loop) AddScene(s scene.Scene) error {
	return l.scenes.AddScene(s)
}

// AddSceneAs registers s under key.
func (l *Loop) AddSceneAs(key string, s scene.Scene) error {
	return l.scenes.AddSceneAs(key, s)
}

// SetNext schedules a graceful switch to key.
func (l *Loop) SetNext(key string) error {
	return l.scenes.SetNext(key)
}

// ForceNext switches to key immediately, skipping the current scene's exit hook.
func (l *Loop) ForceNext(key string) error {
	return l.scenes.ForceNext(key)
}

// Pause switches the current scene to its paused hook. The governor keeps ticking.
func (l *Loop) Pause() error {
	return l.scenes.Pause()
}

// Unpause restores the scene's state from before Pause.
func (l *Loop) Unpause() {
	l.scenes.Unpause()
}

// Terminate exits the current scene gracefully; the loop ends after that frame.
func (l *Loop) Terminate() {
	l.scenes.Terminate()
}

// CurrentKey returns the key of the current scene
func (l *Loop) CurrentKey() string {
	return l.scenes.CurrentKey()
}

// AddSystem registers per-tick logic, run in registration order.
func (l *Loop) AddSystem(s System) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.systems = append(l.systems, s)
}

// AddRenderer registers a renderer flushed at the end of every tick.
func (l *Loop) AddRenderer(r Renderer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.renderers = append(l.renderers, r)
}

// SetRecorder records the statistics of every tick into r.
func (l *Loop) SetRecorder(r *trace.Recorder) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recorder = r
}

// Start launches the governor. Cancelling ctx stops the loop.
func (l *Loop) Start(ctx context.Context) error {
	if l.scenes.Len() == 0 {
		return fmt.Errorf("%w: loop %q has no scenes", errs.ErrIllegalLoopState, l.name)
	}
	if err := l.governor.Start(ctx); err != nil {
		return err
	}
	s := l.governor.Stats()
	log.Printf("game: %s started (session %s, %.2f fps, scene %q)", l.name, l.session, s.TargetRate, l.CurrentKey())
	return nil
}

// Stop ends the loop after the current frame.
func (l *Loop) Stop() {
	l.governor.EndAfterFrame()
}

// Wait blocks until the loop has ended and returns the error that halted it.
func (l *Loop) Wait() error {
	return l.governor.Wait()
}

// Done is closed when the loop has ended.
func (l *Loop) Done() <-chan struct{} {
	return l.governor.Done()
}

// Stats returns the governor statistics
func (l *Loop) Stats() timing.Stats {
	return l.governor.Stats()
}

// Governor exposes the governor for frame rate and suspension control.
func (l *Loop) Governor() *timing.Governor {
	return l.governor
}

// Scenes exposes the orchestrator.
func (l *Loop) Scenes() *orchestrator.Orchestrator {
	return l.scenes
}

func (l *Loop) Name() string    { return l.name }
func (l *Loop) Session() string { return l.session }

// tick is the governor's driven callback.
func (l *Loop) tick() error {
	if err := l.scenes.Tick(); err != nil {
		return err
	}

	l.mu.Lock()
	systems := l.systems
	renderers := l.renderers
	l.mu.Unlock()

	for i, s := range systems {
		if err := s.Update(); err != nil {
			return fmt.Errorf("system %d: %w", i, err)
		}
	}
	for i, r := range renderers {
		if err := r.Flush(); err != nil {
			return fmt.Errorf("renderer %d: %w", i, err)
		}
	}

	if !l.scenes.State().Active() {
		log.Printf("game: %s terminated", l.name)
		l.governor.EndAfterFrame()
	}
	return nil
}

func (l *Loop) observe(s timing.Stats) {
	l.mu.Lock()
	rec := l.recorder
	l.mu.Unlock()
	if rec == nil {
		return
	}
	rec.Record(s, l.scenes.CurrentKey(), l.scenes.State())
}
