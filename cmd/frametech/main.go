// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"runtime/pprof"
	"runtime/trace"
	"time"

	"github.com/devblok/frametech/core"
	"github.com/devblok/frametech/window"
	log "github.com/sirupsen/logrus"
)

func init() {
	runtime.LockOSThread()
}

var _ core.Window = (*window.SDL)(nil)

var (
	configFile = flag.String("config", "frametech.toml", "Configuration file")
	envFile    = flag.String("env", ".env", "Environment file")
	fps        = flag.Int("fps", -1, "Frames per second cap, 0 disables it (default from configuration)")
	debug      = flag.Bool("vkdbg", false, "Load Vulkan validation layers")
	shaders    = flag.String("shaders", "", "Shader directory, .kar archive or \"box\", run go generate ./core to compile the SPIR-V (default from configuration)")
	mesh       = flag.String("mesh", "", "COLLADA file to draw (default from configuration)")

	// Profiling
	cpuProfile   = flag.String("cpuprof", "", "Profile CPU usage to file")
	memProfile   = flag.String("memprof", "", "Profile memory usage into a file")
	traceProfile = flag.String("trace", "", "Trace output for profiling")
)

// statsInterval is how often frame statistics are logged
const statsInterval = time.Second

func main() {
	flag.Parse()

	cfg, err := core.LoadConfiguration(*configFile, *envFile)
	if err != nil {
		log.Fatal(err)
	}
	if *fps >= 0 {
		cfg.Time.FramesPerSecond = *fps
	}
	if *debug {
		cfg.Instance.Debug = true
	}
	if *shaders != "" {
		cfg.Renderer.Shaders = *shaders
	}
	if *mesh != "" {
		cfg.Renderer.Mesh = *mesh
	}
	log.SetLevel(cfg.LogLevel())

	if err := run(cfg); err != nil {
		log.Fatal(err)
	}
}

func run(cfg core.Configuration) error {
	if *cpuProfile != "" {
		f, err := os.Create(*cpuProfile)
		if err != nil {
			return err
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}

	if *traceProfile != "" {
		f, err := os.Create(*traceProfile)
		if err != nil {
			return err
		}
		if err := trace.Start(f); err != nil {
			return err
		}
		defer trace.Stop()
	}

	if err := window.Init(); err != nil {
		return err
	}
	defer window.Quit()

	win, err := window.New(cfg.Application.Name, cfg.Renderer.ScreenWidth, cfg.Renderer.ScreenHeight)
	if err != nil {
		return err
	}
	defer win.Destroy()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	timeService := core.NewTime(cfg.Time)
	defer timeService.Stop()

	engine := core.NewEngine(ctx, cfg, win, timeService.Limiter(), log.StandardLogger())
	defer engine.Destroy()

	if err := engine.Initialize(); err != nil {
		return err
	}

	if err := renderLoop(ctx, engine, timeService, &titleReporter{window: win, name: cfg.Application.Name}); err != nil {
		return err
	}

	if *memProfile != "" {
		f, err := os.Create(*memProfile)
		if err != nil {
			return err
		}
		defer f.Close()
		if err := pprof.WriteHeapProfile(f); err != nil {
			return err
		}
	}
	return nil
}

// titler is a window whose title can change
type titler interface {
	SetTitle(title string)
}

// titleReporter shows the frame rate in the window title
type titleReporter struct {
	window titler
	name   string
}

func (r *titleReporter) Report(stats core.FrameStats) {
	r.window.SetTitle(windowTitle(r.name, stats))
}

func windowTitle(name string, stats core.FrameStats) string {
	return fmt.Sprintf("%s (%d fps)", name, int(stats.Fps()))
}

// renderLoop draws frames until the window is closed or ctx is done.
// Events are polled on the event ticker between frames.
func renderLoop(ctx context.Context, engine *core.Engine, timeService *core.Time, title *titleReporter) error {
	lastReport := time.Now()
	for {
		select {
		case <-ctx.Done():
			log.Info("Render loop interrupted")
			return nil
		case <-timeService.EventTicker().C:
			if window.CloseRequested() {
				log.Info("Render loop exited")
				return nil
			}
		default:
		}

		if err := engine.DrawFrame(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		if time.Since(lastReport) >= statsInterval {
			stats := engine.Stats()
			log.WithFields(log.Fields{
				"frame":     engine.CurrentFrame(),
				"fps":       int(stats.Fps()),
				"frametime": stats.Average(),
				"cgocalls":  runtime.NumCgoCall(),
			}).Debug("Frame statistics")
			title.Report(stats)
			lastReport = time.Now()
		}
	}
}
