package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/younwookim/aegis/internal/application/game"
	"github.com/younwookim/aegis/internal/application/scene"
	"github.com/younwookim/aegis/internal/application/trace"
	"github.com/younwookim/aegis/internal/infrastructure/config"
	"github.com/younwookim/aegis/internal/infrastructure/render"
)

// demo wires the loop, the demo scenes and the renderers from a config
type demo struct {
	loop     *game.Loop
	queue    *render.Queue
	host     *render.Host
	play     *playScene
	async    *scene.Async
	recorder *trace.Recorder
}

func newDemo(cfg *config.LoopConfig, out io.Writer) (*demo, error) {
	loop, err := game.New(cfg.Display.Title, cfg.Timing.TargetRate)
	if err != nil {
		return nil, err
	}
	if cfg.Timing.Unlocked {
		if err := loop.Governor().UnlockFramerate(cfg.Timing.StatsRate); err != nil {
			return nil, err
		}
	}

	d := &demo{loop: loop, queue: render.NewQueue()}
	if cfg.Display.Headless {
		every := int(cfg.Timing.TargetRate)
		d.queue.AddSink(render.NewConsole(out, every))
	} else {
		d.host = render.NewHost(cfg.Display.ScreenWidth, cfg.Display.ScreenHeight, loop.Done())
		d.queue.AddSink(d.host)
	}
	loop.AddRenderer(d.queue)

	w, h := cfg.Display.ScreenWidth, cfg.Display.ScreenHeight
	title := &titleScene{q: d.queue, stats: loop.Stats, screenW: w, screenH: h}
	d.play = &playScene{q: d.queue, stats: loop.Stats, screenW: w, screenH: h, step: 10 * time.Millisecond}
	d.async = scene.NewAsync(d.play, d.play.worker)
	d.async.SetJoinTimeout(time.Duration(cfg.Async.JoinTimeoutMS) * time.Millisecond)

	if err := loop.AddScene(title); err != nil {
		return nil, err
	}
	if err := loop.AddScene(d.async); err != nil {
		return nil, err
	}
	if initial := cfg.Scenes.Initial; initial != "" && initial != loop.CurrentKey() {
		if err := loop.ForceNext(initial); err != nil {
			return nil, fmt.Errorf("scenes.initial: %w", err)
		}
	}
	return d, nil
}

// record attaches a trace recorder to the loop
func (d *demo) record() {
	s := d.loop.Stats()
	d.recorder = trace.NewRecorder(d.loop.Session(), s.TargetRate, s.Unlocked)
	d.loop.SetRecorder(d.recorder)
}

// saveTrace writes the recorded trace to path
func (d *demo) saveTrace(path string) error {
	if d.recorder == nil {
		return nil
	}
	d.recorder.Stop()
	if err := d.recorder.Save(path); err != nil {
		return err
	}
	log.Printf("trace: saved %d frames to %s", d.recorder.FrameCount(), path)
	return nil
}

// step is one scripted control call, made after waiting `after`
type step struct {
	after time.Duration
	name  string
	do    func(*game.Loop) error
}

// demoScript switches to the play scene, pauses and resumes it, then terminates.
// scale multiplies every wait.
func demoScript(scale float64) []step {
	at := func(d time.Duration) time.Duration {
		return time.Duration(float64(d) * scale)
	}
	return []step{
		{at(3 * time.Second), "switch to play", func(l *game.Loop) error { return l.SetNext("play") }},
		{at(2500 * time.Millisecond), "pause", func(l *game.Loop) error { return l.Pause() }},
		{at(2500 * time.Millisecond), "unpause", func(l *game.Loop) error { l.Unpause(); return nil }},
		{at(time.Second), "terminate", func(l *game.Loop) error { l.Terminate(); return nil }},
	}
}

// runScript performs steps in order. It returns early when ctx is cancelled
// or the loop ends on its own.
func runScript(ctx context.Context, l *game.Loop, steps []step) error {
	for _, s := range steps {
		timer := time.NewTimer(s.after)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-l.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
		log.Printf("script: %s", s.name)
		if err := s.do(l); err != nil {
			return fmt.Errorf("script %s: %w", s.name, err)
		}
	}
	return nil
}
