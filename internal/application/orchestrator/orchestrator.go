// Package orchestrator multiplexes mutually exclusive scenes through the
// enter/running/exit/paused/stopped lifecycle.
//
// The orchestrator is the driven callback of the timing governor: every tick
// it looks at the current scene's state and runs exactly one lifecycle hook,
// swapping scenes when a graceful transition completes.
//
// Control calls (SetNext, ForceNext, Pause, ...) may come from any goroutine,
// including from inside a scene hook. Hooks run without the orchestrator lock
// held; a hook's post-transition is applied only if the scene it ran for is
// still current and has not been re-activated meanwhile.
package orchestrator

import (
	"fmt"
	"log"
	"sync"

	"github.com/younwookim/aegis/internal/application/scene"
	"github.com/younwookim/aegis/internal/application/state"
	"github.com/younwookim/aegis/internal/domain/errs"
	"github.com/younwookim/aegis/internal/domain/registry"
)

// entry is a registered scene with its own copy of the lifecycle position
type entry struct {
	key   string
	scene scene.Scene
	state state.SceneState
}

// Orchestrator holds the scene registry and the current/next cursor.
type Orchestrator struct {
	mu       sync.Mutex
	scenes   *registry.Map[*entry]
	current  *entry
	next     *entry
	previous state.SceneState // state to restore on Unpause
	// activation changes every time a scene is made current in Enter, so an
	// enter hook can tell whether its own activation is still the live one
	activation uint64
}

// New creates an empty Orchestrator.
func New() *Orchestrator {
	return &Orchestrator{
		scenes:   registry.New[*entry](),
		previous: state.StateStopped,
	}
}

// AddScene registers s under its own ID.
func (o *Orchestrator) AddScene(s scene.Scene) error {
	if s == nil {
		return fmt.Errorf("%w: nil scene", errs.ErrInvalidConfiguration)
	}
	return o.AddSceneAs(s.ID(), s)
}

// AddSceneAs registers s under key. The first scene added becomes current
// and is entered on the next tick.
func (o *Orchestrator) AddSceneAs(key string, s scene.Scene) error {
	if s == nil {
		return fmt.Errorf("%w: nil scene", errs.ErrInvalidConfiguration)
	}
	if key == "" {
		return fmt.Errorf("%w: empty key", errs.ErrDuplicateSceneID)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	e := &entry{key: key, scene: s, state: state.StateStopped}
	if _, err := o.scenes.Add(key, e); err != nil {
		return fmt.Errorf("%w: %q", errs.ErrDuplicateSceneID, key)
	}

	if o.current == nil {
		e.state = state.StateEnter
		o.current = e
		o.activation++
	}
	return nil
}

// SetNext schedules a graceful transition: the current scene's exit hook
// runs on the next tick, then key becomes current and is entered.
func (o *Orchestrator) SetNext(key string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	target, err := o.lookupLocked(key)
	if err != nil {
		return err
	}

	if o.current == nil || o.current.state == state.StateStopped {
		// nothing left to exit
		o.activateLocked(target)
		return nil
	}

	o.next = target
	o.previous = o.current.state
	o.current.state = state.StateExit
	return nil
}

// ForceNext cuts to key immediately. The outgoing scene's exit hook never
// runs; if it owns background work it is told to cancel.
func (o *Orchestrator) ForceNext(key string) error {
	o.mu.Lock()
	target, err := o.lookupLocked(key)
	if err != nil {
		o.mu.Unlock()
		return err
	}

	var cut scene.Canceler
	if old := o.current; old != nil && old != target && old.state != state.StateStopped {
		cut, _ = old.scene.(scene.Canceler)
	}
	o.activateLocked(target)
	o.mu.Unlock()

	if cut != nil {
		cut.Cancel()
	}
	log.Printf("scene %q: forced", key)
	return nil
}

// Terminate schedules a graceful exit of the current scene with no successor.
// Once the exit hook has run the orchestrator is stopped.
func (o *Orchestrator) Terminate() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil || o.current.state == state.StateStopped {
		return
	}
	o.next = nil
	o.previous = o.current.state
	o.current.state = state.StateExit
}

// Pause switches the current scene to its paused hook, remembering the state
// to return to. It is independent of pausing the timing governor.
func (o *Orchestrator) Pause() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil {
		return fmt.Errorf("%w: no scene registered", errs.ErrIllegalLoopState)
	}
	switch o.current.state {
	case state.StatePaused:
		return nil
	case state.StateExit:
		return fmt.Errorf("%w: transition pending", errs.ErrIllegalLoopState)
	case state.StateStopped:
		return fmt.Errorf("%w: orchestrator stopped", errs.ErrIllegalLoopState)
	}

	o.previous = o.current.state
	o.current.state = state.StatePaused
	return nil
}

// Unpause restores the state held before Pause.
func (o *Orchestrator) Unpause() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.current == nil || o.current.state != state.StatePaused {
		return
	}
	o.current.state, o.previous = o.previous, state.StatePaused
}

// Tick advances the state machine by one step. It is the governor's driven callback.
func (o *Orchestrator) Tick() error {
	o.mu.Lock()
	cur := o.current
	if cur == nil {
		o.mu.Unlock()
		return fmt.Errorf("%w: no scene registered", errs.ErrIllegalLoopState)
	}
	st := cur.state
	activation := o.activation
	o.mu.Unlock()

	switch st {
	case state.StateEnter:
		if err := scene.Enter(cur.scene); err != nil {
			return fmt.Errorf("scene %q enter: %w", cur.key, err)
		}
		o.mu.Lock()
		if o.current == cur && o.activation == activation {
			switch {
			case cur.state == state.StateEnter:
				// also covers a Pause and Unpause that both landed during the hook
				o.previous = state.StateEnter
				cur.state = state.StateRunning
			case cur.state == state.StatePaused && o.previous == state.StateEnter:
				// paused while entering: resume into Running, not a second enter
				o.previous = state.StateRunning
			}
		}
		o.mu.Unlock()
		log.Printf("scene %q: entered", cur.key)

	case state.StateRunning:
		if err := cur.scene.Update(); err != nil {
			return fmt.Errorf("scene %q update: %w", cur.key, err)
		}

	case state.StateExit:
		if err := scene.Exit(cur.scene); err != nil {
			return fmt.Errorf("scene %q exit: %w", cur.key, err)
		}
		o.mu.Lock()
		o.finishExitLocked(cur)
		o.mu.Unlock()

	case state.StatePaused:
		if err := scene.Paused(cur.scene); err != nil {
			return fmt.Errorf("scene %q paused: %w", cur.key, err)
		}

	case state.StateStopped:
		return fmt.Errorf("%w: tick on stopped orchestrator", errs.ErrIllegalLoopState)

	default:
		return fmt.Errorf("%w: scene %q in state %v", errs.ErrIllegalLoopState, cur.key, st)
	}
	return nil
}

// finishExitLocked swaps in the queued scene, or stops when there is none.
// A SetNext issued during the exit hook still wins; a ForceNext replaced
// the cursor and leaves nothing to finish.
func (o *Orchestrator) finishExitLocked(cur *entry) {
	if o.current != cur || cur.state != state.StateExit {
		return
	}

	o.previous = state.StateExit
	if o.next == nil {
		cur.state = state.StateStopped
		log.Printf("scene %q: exited, orchestrator stopped", cur.key)
		return
	}

	cur.state = state.StateStopped
	o.current = o.next
	o.next = nil
	o.current.state = state.StateEnter
	o.activation++
	log.Printf("scene %q: exited, switching to %q", cur.key, o.current.key)
}

// activateLocked makes target current in Enter, dropping any pending transition.
func (o *Orchestrator) activateLocked(target *entry) {
	if o.current != nil && o.current != target {
		o.current.state = state.StateStopped
	}
	o.previous = state.StateStopped
	o.current = target
	o.next = nil
	target.state = state.StateEnter
	o.activation++
}

func (o *Orchestrator) lookupLocked(key string) (*entry, error) {
	index := o.scenes.IndexOf(key)
	if index < 0 {
		return nil, errs.NewUnknownSceneError(key, o.scenes.Keys())
	}
	return o.scenes.At(index), nil
}

// CurrentScene returns the scene receiving ticks, or nil before any registration.
func (o *Orchestrator) CurrentScene() scene.Scene {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return nil
	}
	return o.current.scene
}

// CurrentKey returns the key of the current scene.
func (o *Orchestrator) CurrentKey() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return ""
	}
	return o.current.key
}

// NextKey returns the key queued by SetNext, if a graceful transition is pending.
func (o *Orchestrator) NextKey() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.next == nil {
		return ""
	}
	return o.next.key
}

// State returns the lifecycle position of the current scene.
// An empty orchestrator reports Stopped.
func (o *Orchestrator) State() state.SceneState {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == nil {
		return state.StateStopped
	}
	return o.current.state
}

// SceneState returns the lifecycle position of a registered scene.
func (o *Orchestrator) SceneState(key string) (state.SceneState, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	e, ok := o.scenes.Get(key)
	if !ok {
		return state.StateStopped, errs.NewUnknownSceneError(key, o.scenes.Keys())
	}
	return e.state, nil
}

// Len returns the number of registered scenes.
func (o *Orchestrator) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scenes.Len()
}

// Keys returns the registered keys in registration order.
func (o *Orchestrator) Keys() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.scenes.Keys()
}
