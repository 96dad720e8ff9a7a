// Package scene defines the lifecycle contract for units of game logic.
//
// A scene only has to implement ID and Update. The enter, exit and paused
// hooks are optional capabilities: when a scene does not implement one, the
// orchestrator falls back to calling Update, so a minimal scene is a single
// method.
package scene

// Scene represents a self-contained unit of game logic (title, menu, playing, etc.)
//
// The orchestrator owns the scene for its whole registered lifetime and only
// changes which scene is current.
type Scene interface {
	// ID returns the key the scene is registered under by default.
	ID() string

	// Update runs the scene logic once per tick while the scene is running.
	// Returns an error to halt the loop.
	Update() error
}

// Enterer is implemented by scenes that need setup each time they become current.
type Enterer interface {
	OnEnter() error
}

// Exiter is implemented by scenes that need cleanup before being swapped out.
type Exiter interface {
	OnExit() error
}

// Pauser is implemented by scenes with dedicated logic while paused.
type Pauser interface {
	OnPaused() error
}

// Canceler is implemented by scenes owning background work that must be
// signalled when the scene is cut without running its exit hook.
type Canceler interface {
	Cancel()
}

// Enter runs the scene's enter hook, or Update if it has none.
func Enter(s Scene) error {
	if e, ok := s.(Enterer); ok {
		return e.OnEnter()
	}
	return s.Update()
}

// Exit runs the scene's exit hook, or Update if it has none.
func Exit(s Scene) error {
	if e, ok := s.(Exiter); ok {
		return e.OnExit()
	}
	return s.Update()
}

// Paused runs the scene's paused hook, or Update if it has none.
func Paused(s Scene) error {
	if p, ok := s.(Pauser); ok {
		return p.OnPaused()
	}
	return s.Update()
}

// Func adapts a plain function into a Scene.
type Func struct {
	key string
	fn  func() error
}

// NewFunc creates a Scene that calls fn on every hook.
func NewFunc(key string, fn func() error) *Func {
	return &Func{key: key, fn: fn}
}

func (f *Func) ID() string { return f.key }

func (f *Func) Update() error {
	if f.fn == nil {
		return nil
	}
	return f.fn()
}
