package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/sdf"
	"github.com/pthm-cable/fluid/sim"
)

func TestRunWritesAssetAndCSV(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "field.bin")
	csvPath := filepath.Join(dir, "field.csv")

	if err := run(context.Background(), "", out, csvPath); err != nil {
		t.Fatalf("run: %v", err)
	}

	grid, err := sim.GridFromConfig(config.Default())
	if err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(out)
	if err != nil {
		t.Fatal(err)
	}
	if want := int64(grid.Len() * 12); info.Size() != want {
		t.Errorf("expected %d bytes, got %d", want, info.Size())
	}

	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != grid.Len()+1 {
		t.Errorf("expected %d csv lines, got %d", grid.Len()+1, len(lines))
	}
}

func TestRunRejectsMissingConfig(t *testing.T) {
	if err := run(context.Background(), filepath.Join(t.TempDir(), "missing.yaml"), "", ""); err == nil {
		t.Error("expected error for missing config")
	}
}

func TestRunRejectsEmptyScene(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("obstacles: []\n"), 0644); err != nil {
		t.Fatal(err)
	}
	err := run(context.Background(), cfgPath, filepath.Join(dir, "field.bin"), "")
	if !errors.Is(err, sdf.ErrNoObstacles) {
		t.Errorf("expected ErrNoObstacles, got %v", err)
	}
}
