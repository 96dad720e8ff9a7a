package main

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"sync/atomic"
	"time"

	"github.com/younwookim/aegis/internal/application/timing"
	"github.com/younwookim/aegis/internal/infrastructure/render"
)

// Colors for rendering
var (
	colorBG      = color.RGBA{26, 26, 46, 255}
	colorPanel   = color.RGBA{60, 60, 90, 255}
	colorWork    = color.RGBA{100, 200, 100, 255}
	colorOverlay = color.RGBA{0, 0, 0, 160}
)

// titleScene shows the governor statistics and logs them once per second
type titleScene struct {
	q       *render.Queue
	stats   func() timing.Stats
	screenW int
	screenH int
	ticks   int
}

func (s *titleScene) ID() string { return "title" }

func (s *titleScene) OnEnter() error {
	s.ticks = 0
	log.Printf("title: enter")
	return nil
}

func (s *titleScene) Update() error {
	st := s.stats()
	s.ticks++
	if rate := int(st.TargetRate); rate > 0 && s.ticks%rate == 0 {
		log.Printf("title: %s", st)
	}

	s.q.Fill(colorBG)
	s.q.Text(s.screenW/2-20, s.screenH/2-20, "AEGIS")
	s.q.Text(10, s.screenH-20, st.String())
	return nil
}

func (s *titleScene) OnExit() error {
	log.Printf("title: exit after %d ticks", s.ticks)
	return nil
}

// playScene draws progress made by a background worker
type playScene struct {
	q       *render.Queue
	stats   func() timing.Stats
	screenW int
	screenH int
	step    time.Duration
	work    atomic.Int64
	paused  int
}

func (s *playScene) ID() string { return "play" }

func (s *playScene) OnEnter() error {
	s.work.Store(0)
	s.paused = 0
	log.Printf("play: enter")
	return nil
}

func (s *playScene) Update() error {
	s.draw()
	return nil
}

func (s *playScene) OnPaused() error {
	s.paused++
	s.draw()
	s.q.Rect(0, 0, float64(s.screenW), float64(s.screenH), colorOverlay)
	s.q.Text(s.screenW/2-20, s.screenH/2-10, "PAUSED")
	return nil
}

func (s *playScene) OnExit() error {
	log.Printf("play: exit, %d work units, %d paused ticks", s.work.Load(), s.paused)
	return nil
}

func (s *playScene) draw() {
	units := s.work.Load()
	barW := int64(max(s.screenW-20, 1))
	s.q.Fill(colorBG)
	s.q.Rect(10, 30, float64(barW), 10, colorPanel)
	s.q.Rect(10, 30, float64(units%barW), 10, colorWork)
	s.q.Text(10, 10, fmt.Sprintf("work %d", units))
	s.q.Text(10, s.screenH-20, s.stats().String())
}

// worker is the background task of the play scene. It keeps producing work
// units while the scene is current, paused or not.
func (s *playScene) worker(ctx context.Context) error {
	ticker := time.NewTicker(s.step)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.work.Add(1)
		}
	}
}
