package sim

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/sdf"
	"github.com/pthm-cable/fluid/systems"
)

// maxSpawnAttempts bounds rejection sampling per requested particle.
const maxSpawnAttempts = 20

// spawnPositions places the configured particle count, keeping only
// positions at least one collision radius clear of every solid.
func (r *Runner) spawnPositions() []r2.Vec {
	s := r.cfg.Spawn
	bounds := boundsFromConfig(r.cfg)

	var out []r2.Vec
	switch s.Layout {
	case config.LayoutBlock:
		spacing := s.Spacing
		if spacing == 0 {
			spacing = r.cfg.Fluid.Radius / 2
		}
		out = clearOf(r.field, systems.SpawnBlock(s.Count, bounds, s.Margin, spacing), r.cfg.Fluid.CollisionRadius)

	default:
		out = make([]r2.Vec, 0, s.Count)
		for attempt := 0; len(out) < s.Count && attempt < s.Count*maxSpawnAttempts; attempt++ {
			candidate := systems.SpawnRandom(r.rng, 1, bounds, s.Margin)
			out = append(out, clearOf(r.field, candidate, r.cfg.Fluid.CollisionRadius)...)
		}
	}

	if len(out) < s.Count {
		slog.Warn("spawn fell short",
			"layout", s.Layout,
			"requested", s.Count,
			"placed", len(out),
		)
	}
	return out
}

// clearOf filters positions to those inside the field's domain and at
// least minDist from a solid.
func clearOf(field sdf.Field, positions []r2.Vec, minDist float64) []r2.Vec {
	out := positions[:0]
	for _, p := range positions {
		tok := field.Index(p)
		if !tok.InDomain() {
			continue
		}
		d, err := field.Distance(tok)
		if err != nil || d < minDist {
			continue
		}
		out = append(out, p)
	}
	return out
}
