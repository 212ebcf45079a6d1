// Command bake samples the configured obstacles into a baked boundary asset.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/scene"
	"github.com/pthm-cable/fluid/sim"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	outPath := flag.String("out", "field.bin", "Output path for the baked samples")
	csvPath := flag.String("csv", "", "Optional CSV dump of every sample")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *configPath, *outPath, *csvPath); err != nil {
		slog.Error("bake failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, configPath, outPath, csvPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	grid, err := sim.GridFromConfig(cfg)
	if err != nil {
		return err
	}
	sc := scene.FromConfig(cfg)

	start := time.Now()
	baked, err := sim.BakeScene(ctx, cfg, grid, sc)
	if err != nil {
		return err
	}
	slog.Info("baked boundary",
		"obstacles", sc.Len(),
		"buckets_x", grid.BucketsX,
		"buckets_y", grid.BucketsY,
		"samples", grid.Len(),
		"duration", time.Since(start),
	)

	if err := baked.Save(outPath); err != nil {
		return err
	}
	slog.Info("wrote samples", "path", outPath)

	if csvPath == "" {
		return nil
	}
	f, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("creating csv: %w", err)
	}
	if err := baked.WriteCSV(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	slog.Info("wrote csv", "path", csvPath)
	return nil
}
