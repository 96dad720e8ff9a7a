package trace

// FrameSample records the governor statistics after a single tick
type FrameSample struct {
	F     uint64  `json:"f" yaml:"f"`                             // Frame number
	RT    int64   `json:"rt" yaml:"rt"`                           // LastRuntime (ms)
	AVG   int64   `json:"avg" yaml:"avg"`                         // AverageRuntime (ms)
	PR    float64 `json:"pr" yaml:"pr"`                           // PerformanceRatio
	LD    float64 `json:"ld,omitempty" yaml:"ld,omitempty"`       // Load
	Scene string  `json:"scene,omitempty" yaml:"scene,omitempty"` // Current scene key
	State string  `json:"state,omitempty" yaml:"state,omitempty"` // Scene state
}

// TraceData contains the samples of one loop session
type TraceData struct {
	Version    string        `json:"version" yaml:"version"`
	Session    string        `json:"session" yaml:"session"`
	StartTime  string        `json:"startTime" yaml:"startTime"`
	TargetRate float64       `json:"targetRate" yaml:"targetRate"`
	Unlocked   bool          `json:"unlocked" yaml:"unlocked"`
	Frames     []FrameSample `json:"frames" yaml:"frames"`
}
