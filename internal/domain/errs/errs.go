// Package errs defines the error taxonomy shared by the timing governor,
// the scene orchestrator and the game loop.
//
// Callers wrap these sentinels with context and test them with errors.Is.
package errs

import (
	"errors"
	"fmt"

	"github.com/agnivade/levenshtein"
)

var (
	// ErrInvalidConfiguration is returned for a non-positive target rate or a
	// rate whose tick interval truncates to zero milliseconds.
	ErrInvalidConfiguration = errors.New("invalid configuration")

	// ErrDuplicateSceneID is returned when a scene key is empty or already registered.
	ErrDuplicateSceneID = errors.New("duplicate scene id")

	// ErrUnknownSceneID is returned when switching to a key that was never registered.
	ErrUnknownSceneID = errors.New("unknown scene id")

	// ErrIllegalLoopState marks a contract violation: ticking a stopped
	// orchestrator, starting a governor twice, releasing a pause that was never requested.
	ErrIllegalLoopState = errors.New("illegal loop state")
)

// maxSuggestDistance bounds how different a registered key may be and still be suggested.
const maxSuggestDistance = 2

// UnknownSceneError reports an unregistered scene key together with the
// closest registered key, if one is close enough to be a likely typo.
type UnknownSceneError struct {
	Key        string
	Suggestion string
}

// NewUnknownSceneError builds an UnknownSceneError, picking a suggestion from known.
func NewUnknownSceneError(key string, known []string) *UnknownSceneError {
	e := &UnknownSceneError{Key: key}
	best := maxSuggestDistance + 1
	for _, k := range known {
		d := levenshtein.ComputeDistance(key, k)
		if d < best {
			best = d
			e.Suggestion = k
		}
	}
	return e
}

func (e *UnknownSceneError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%v: %q (did you mean %q?)", ErrUnknownSceneID, e.Key, e.Suggestion)
	}
	return fmt.Sprintf("%v: %q", ErrUnknownSceneID, e.Key)
}

// Is makes errors.Is(err, ErrUnknownSceneID) hold.
func (e *UnknownSceneError) Is(target error) bool {
	return target == ErrUnknownSceneID
}
