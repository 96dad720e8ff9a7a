// Package state defines the lifecycle positions a scene moves through.
package state

// SceneState is the position of a scene in the orchestrator's state machine
type SceneState int

const (
	StateEnter SceneState = iota
	StateRunning
	StateExit
	StatePaused
	StateStopped
)

// String returns the string representation of the scene state
func (s SceneState) String() string {
	switch s {
	case StateEnter:
		return "Enter"
	case StateRunning:
		return "Running"
	case StateExit:
		return "Exit"
	case StatePaused:
		return "Paused"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// Active reports whether a scene in this state still receives ticks
func (s SceneState) Active() bool {
	return s >= StateEnter && s < StateStopped
}
