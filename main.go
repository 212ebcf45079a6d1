package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/game"
	"github.com/pthm-cable/fluid/sim"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without graphics")
	logStats := flag.Bool("log-stats", false, "Output stats via slog")
	statsWindow := flag.Float64("stats-window", 0, "Stats window size in seconds (0 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = unlimited)")
	stepsPerUpdate := flag.Int("steps-per-update", 0, "Simulation ticks per update call (0 = use config)")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// Use config stats window if not overridden by CLI
	if *statsWindow > 0 {
		cfg.Telemetry.StatsWindow = *statsWindow
	}

	// Set up seed
	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	opts := sim.Options{
		Seed:           rngSeed,
		LogStats:       *logStats,
		OutputDir:      *outputDir,
		StepsPerUpdate: *stepsPerUpdate,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	if *headless {
		err = runHeadless(ctx, cfg, opts, *maxTicks)
	} else {
		err = runGraphical(ctx, cfg, opts, *maxTicks)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

// runHeadless runs the pure CPU simulation, no raylib needed.
func runHeadless(ctx context.Context, cfg *config.Config, opts sim.Options, maxTicks int) error {
	r, err := sim.New(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer r.Close()

	slog.Info("starting headless simulation",
		"seed", opts.Seed,
		"stats_window", cfg.Telemetry.StatsWindow,
		"max_ticks", maxTicks,
		"steps_per_update", r.StepsPerUpdate(),
	)

	if err := r.Run(ctx, maxTicks); err != nil {
		return err
	}
	slog.Info("max ticks reached", "tick", r.Tick(), "output_dir", r.OutputDir())
	return nil
}

// runGraphical opens a window and runs the interactive loop.
func runGraphical(ctx context.Context, cfg *config.Config, opts sim.Options, maxTicks int) error {
	rl.SetConfigFlags(rl.FlagWindowResizable)
	rl.InitWindow(int32(cfg.Screen.Width), int32(cfg.Screen.Height), "Viscoelastic Fluid")
	defer rl.CloseWindow()

	rl.SetTargetFPS(int32(cfg.Screen.TargetFPS))

	g, err := game.NewGameWithOptions(ctx, game.Options{Options: opts})
	if err != nil {
		return err
	}
	defer g.Unload()

	for !rl.WindowShouldClose() && ctx.Err() == nil {
		g.Update()
		g.Draw()

		if maxTicks > 0 && int(g.Tick()) >= maxTicks {
			break
		}
	}
	return nil
}
