package trace

import (
	"sort"
	"time"
)

// Summary aggregates a trace
type Summary struct {
	Frames      int
	Overloaded  int // samples with a performance ratio above 1
	MaxRuntime  time.Duration
	MeanRuntime time.Duration
	MeanRatio   float64
	Scenes      []SceneFrames
}

// SceneFrames is the number of samples taken while a scene was current
type SceneFrames struct {
	Scene  string
	Frames int
}

// Summarize computes aggregate statistics over data.Frames. Scenes are
// listed in order of first appearance.
func Summarize(data TraceData) Summary {
	s := Summary{Frames: len(data.Frames)}
	if s.Frames == 0 {
		return s
	}

	var totalRT int64
	var totalPR float64
	index := make(map[string]int)
	for _, f := range data.Frames {
		totalRT += f.RT
		totalPR += f.PR
		if f.PR > 1 {
			s.Overloaded++
		}
		if rt := time.Duration(f.RT) * time.Millisecond; rt > s.MaxRuntime {
			s.MaxRuntime = rt
		}
		i, ok := index[f.Scene]
		if !ok {
			i = len(s.Scenes)
			index[f.Scene] = i
			s.Scenes = append(s.Scenes, SceneFrames{Scene: f.Scene})
		}
		s.Scenes[i].Frames++
	}

	s.MeanRuntime = time.Duration(totalRT/int64(s.Frames)) * time.Millisecond
	s.MeanRatio = totalPR / float64(s.Frames)
	return s
}

// Busiest returns the scenes sorted by sample count, most first
func (s Summary) Busiest() []SceneFrames {
	out := append([]SceneFrames(nil), s.Scenes...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Frames > out[j].Frames })
	return out
}
