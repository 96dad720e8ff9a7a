// Package trace records per-tick loop statistics and writes them to JSON or
// YAML trace files.
package trace

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/younwookim/aegis/internal/application/state"
	"github.com/younwookim/aegis/internal/application/timing"
	"gopkg.in/yaml.v3"
)

// Version is the trace file format version
const Version = "1.0"

// Recorder collects one FrameSample per tick. It is safe to call Record from
// the loop goroutine while another goroutine reads or saves.
type Recorder struct {
	mu        sync.Mutex
	data      TraceData
	recording bool
}

// NewRecorder creates a new recorder for a loop session
func NewRecorder(session string, targetRate float64, unlocked bool) *Recorder {
	return &Recorder{
		data: TraceData{
			Version:    Version,
			Session:    session,
			StartTime:  time.Now().Format(time.RFC3339),
			TargetRate: targetRate,
			Unlocked:   unlocked,
			Frames:     make([]FrameSample, 0, 3600), // ~1 minute at 60fps
		},
		recording: true,
	}
}

// Record appends the statistics of the tick that just finished.
// stats.Frame is already the number of the next tick, so the sample stores Frame-1.
func (r *Recorder) Record(stats timing.Stats, sceneKey string, st state.SceneState) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.recording {
		return
	}

	frame := stats.Frame
	if frame > 0 {
		frame--
	}
	r.data.Frames = append(r.data.Frames, FrameSample{
		F:     frame,
		RT:    stats.LastRuntime.Milliseconds(),
		AVG:   stats.AverageRuntime.Milliseconds(),
		PR:    stats.PerformanceRatio,
		LD:    stats.Load,
		Scene: sceneKey,
		State: st.String(),
	})
}

// Stop stops recording
func (r *Recorder) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recording = false
}

// IsRecording returns whether recording is active
func (r *Recorder) IsRecording() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.recording
}

// FrameCount returns the number of recorded samples
func (r *Recorder) FrameCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.data.Frames)
}

// Data returns a copy of the recorded trace
func (r *Recorder) Data() TraceData {
	r.mu.Lock()
	defer r.mu.Unlock()
	data := r.data
	data.Frames = append([]FrameSample(nil), r.data.Frames...)
	return data
}

// Save writes the trace to filename. A .yaml or .yml extension selects YAML,
// anything else JSON.
func (r *Recorder) Save(filename string) error {
	data := r.Data()
	if len(data.Frames) == 0 {
		return fmt.Errorf("no frames to save")
	}
	return Save(filename, data)
}

// Save writes trace data to filename in the format chosen by its extension.
func Save(filename string, data TraceData) error {
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() { _ = file.Close() }()

	if isYAML(filename) {
		enc := yaml.NewEncoder(file)
		enc.SetIndent(2)
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("failed to encode trace: %w", err)
		}
		return enc.Close()
	}

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("failed to encode trace: %w", err)
	}
	return nil
}

// Load reads trace data from a JSON or YAML file
func Load(filename string) (*TraceData, error) {
	raw, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	var data TraceData
	if isYAML(filename) {
		err = yaml.Unmarshal(raw, &data)
	} else {
		err = json.Unmarshal(raw, &data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode trace: %w", err)
	}
	if data.Version != Version {
		return nil, fmt.Errorf("unsupported trace version %q", data.Version)
	}
	return &data, nil
}

func isYAML(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}

// GenerateFilename creates a filename based on current time
func GenerateFilename() string {
	return fmt.Sprintf("trace_%s.json", time.Now().Format("20060102_150405"))
}
