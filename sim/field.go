package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/scene"
	"github.com/pthm-cable/fluid/sdf"
)

// BuildField creates the boundary selected by cfg.Boundary.Mode. A baked
// boundary is read from BakedPath when set, otherwise baked from the scene.
func BuildField(ctx context.Context, cfg *config.Config, grid sdf.Grid, sc *scene.Scene) (sdf.Field, error) {
	b := cfg.Boundary
	switch b.Mode {
	case config.BoundaryAnalytic:
		arena, err := sdf.NewArena(grid.Bounds)
		if err != nil {
			return nil, err
		}
		return arena, nil

	case config.BoundaryBaked:
		if b.BakedPath != "" {
			baked, err := sdf.LoadBaked(b.BakedPath, grid, b.EdgeEpsilon)
			if err != nil {
				return nil, err
			}
			return baked, nil
		}
		return BakeScene(ctx, cfg, grid, sc)
	}
	return nil, fmt.Errorf("%w: unknown mode %q", config.ErrInvalidBoundary, b.Mode)
}

// BakeScene bakes every obstacle in sc onto grid.
func BakeScene(ctx context.Context, cfg *config.Config, grid sdf.Grid, sc *scene.Scene) (*sdf.Baked, error) {
	return sdf.Bake(ctx, grid, sc.Boxes(), sdf.BakeOptions{
		TieEpsilon:  cfg.Boundary.TieEpsilon,
		EdgeEpsilon: cfg.Boundary.EdgeEpsilon,
	})
}

// Baked reports whether the boundary is a baked field.
func (r *Runner) Baked() bool {
	_, ok := r.field.(*sdf.Baked)
	return ok
}

// MoveObstacle repositions an obstacle and, for a baked boundary, rebakes the
// field from the updated scene. Analytic boundaries ignore obstacles. If the
// rebake fails the obstacle is put back, so the scene still matches the
// active field.
func (r *Runner) MoveObstacle(ctx context.Context, e ecs.Entity, box sdf.Box) error {
	old, ok := r.scene.Box(e)
	if !ok {
		return fmt.Errorf("obstacle %v is not in the scene", e)
	}
	r.scene.Move(e, box)
	if !r.Baked() {
		return nil
	}
	if err := r.Rebake(ctx); err != nil {
		r.scene.Move(e, old)
		return fmt.Errorf("moving obstacle %v: %w", e, err)
	}
	return nil
}

// Rebake bakes the scene again and swaps the result into the solver.
func (r *Runner) Rebake(ctx context.Context) error {
	start := time.Now()
	baked, err := BakeScene(ctx, r.cfg, r.grid, r.scene)
	if err != nil {
		return err
	}
	if err := r.solver.SetField(baked); err != nil {
		return err
	}
	r.field = baked
	slog.Debug("boundary rebaked", "samples", r.grid.Len(), "duration", time.Since(start))
	return nil
}
