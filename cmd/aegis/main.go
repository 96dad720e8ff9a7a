package main

import (
	"context"
	"embed"
	"flag"
	"io/fs"
	"log"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/younwookim/aegis/internal/application/trace"
	"github.com/younwookim/aegis/internal/infrastructure/config"
	"github.com/younwookim/aegis/internal/infrastructure/render"
)

//go:embed configs
var configFS embed.FS

func loadConfig(path string) (*config.LoopConfig, error) {
	loader, name := config.NewLoader(filepath.Dir(path)), filepath.Base(path)
	if path == "" {
		fsys, err := fs.Sub(configFS, "configs")
		if err != nil {
			return nil, err
		}
		loader, name = config.NewFSLoader(fsys, "configs"), config.DefaultFile
	}

	cfg, err := loader.Load(name)
	if err != nil {
		return nil, err
	}
	log.Printf("config: loaded %s from %s", name, loader.BasePath())
	return cfg, nil
}

func main() {
	// Parse command line flags
	configFlag := flag.String("config", "", "Load config from file instead of the embedded loop.json")
	traceFlag := flag.String("trace", "", "Record per-tick statistics to file (e.g., -trace trace.yaml)")
	reportFlag := flag.String("report", "", "Print a summary of a trace file and exit")
	headlessFlag := flag.Bool("headless", false, "Run without a window, printing frames to the console")
	durationFlag := flag.Duration("duration", 0, "Stop the loop after this long (0 runs the demo script to the end)")
	flag.Parse()

	if *reportFlag != "" {
		data, err := trace.Load(*reportFlag)
		if err != nil {
			log.Fatalf("Failed to load trace: %v", err)
		}
		if err := render.WriteReport(os.Stdout, *data); err != nil {
			log.Fatal(err)
		}
		return
	}

	cfg, err := loadConfig(*configFlag)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *headlessFlag {
		cfg.Display.Headless = true
	}
	tracePath := cfg.Trace.Path
	if *traceFlag != "" {
		tracePath = *traceFlag
	}

	d, err := newDemo(cfg, os.Stdout)
	if err != nil {
		log.Fatalf("Failed to build demo: %v", err)
	}
	if tracePath != "" {
		d.record()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()
	if *durationFlag > 0 {
		var cancelTimeout context.CancelFunc
		ctx, cancelTimeout = context.WithTimeout(ctx, *durationFlag)
		defer cancelTimeout()
	}

	if err := d.loop.Start(ctx); err != nil {
		log.Fatalf("Failed to start loop: %v", err)
	}
	go func() {
		if err := runScript(ctx, d.loop, demoScript(1)); err != nil && ctx.Err() == nil {
			log.Printf("script: %v", err)
		}
	}()

	if !cfg.Display.Headless {
		// Set up ebiten
		ebiten.SetWindowSize(cfg.Display.ScreenWidth*cfg.Display.Scale,
			cfg.Display.ScreenHeight*cfg.Display.Scale)
		ebiten.SetWindowTitle(cfg.Display.Title)
		ebiten.SetTPS(ebiten.SyncWithFPS)

		// Closing the window ends the loop
		if err := ebiten.RunGame(d.host); err != nil {
			log.Printf("window: %v", err)
		}
		d.loop.Stop()
	}

	loopErr := d.loop.Wait()
	if tracePath != "" {
		if err := d.saveTrace(tracePath); err != nil {
			log.Printf("Failed to save trace: %v", err)
		}
	}
	if loopErr != nil {
		log.Fatalf("Loop halted: %v", loopErr)
	}
	log.Printf("Loop finished: %s", d.loop.Stats())
}
