package telemetry

import (
	"math"

	"github.com/pthm-cable/fluid/systems"
)

// Collector accumulates step statistics within time windows and produces
// WindowStats.
type Collector struct {
	windowDurationTicks int32
	dt                  float64

	// Current window tracking
	windowStartTick int32

	// Accumulators for current window
	steps         int
	collisions    int
	outsideDomain int
	degenerate    int
	penetrating   int
	neighborSum   int
	densitySum    float64
	peakSpeed     float64
}

// NewCollector creates a new stats collector.
// windowDurationSec: how long each stats window lasts in simulation seconds
// dt: seconds per tick (used for tick-to-time conversion)
func NewCollector(windowDurationSec, dt float64) *Collector {
	ticksPerWindow := int32(windowDurationSec / dt)
	if ticksPerWindow < 1 {
		ticksPerWindow = 1
	}

	return &Collector{
		windowDurationTicks: ticksPerWindow,
		dt:                  dt,
	}
}

// RecordStep adds the summary of one solver step to the current window.
func (c *Collector) RecordStep(s systems.StepStats) {
	c.steps++
	c.collisions += s.Collisions
	c.outsideDomain += s.OutsideDomain
	c.degenerate += s.Degenerate
	c.penetrating += s.Penetrating
	c.neighborSum += s.Neighbors
	c.densitySum += s.MeanDensity
	c.peakSpeed = math.Max(c.peakSpeed, s.MaxSpeed)
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(currentTick int32) bool {
	return currentTick-c.windowStartTick >= c.windowDurationTicks
}

// Flush produces a WindowStats and resets counters for the next window.
// densities and speeds are per-particle samples taken at currentTick.
func (c *Collector) Flush(currentTick int32, densities, speeds []float64, kineticEnergy float64) WindowStats {
	density := Summarize(densities)
	speed := Summarize(speeds)

	stats := WindowStats{
		WindowStartTick: c.windowStartTick,
		WindowEndTick:   currentTick,
		SimTimeSec:      float64(currentTick) * c.dt,

		Particles: len(speeds),
		Steps:     c.steps,

		Collisions:    c.collisions,
		OutsideDomain: c.outsideDomain,
		Degenerate:    c.degenerate,
		Penetrating:   c.penetrating,

		DensityP10: density.P10,
		DensityP50: density.P50,
		DensityP90: density.P90,

		SpeedMean: speed.Mean,
		SpeedStd:  speed.Std,
		SpeedP90:  speed.P90,
		PeakSpeed: c.peakSpeed,

		KineticEnergy: kineticEnergy,
	}
	if c.steps > 0 {
		stats.MeanDensity = c.densitySum / float64(c.steps)
		if len(speeds) > 0 {
			stats.MeanNeighbors = float64(c.neighborSum) / float64(c.steps*len(speeds))
		}
	}

	// Reset for next window
	c.windowStartTick = currentTick
	c.steps = 0
	c.collisions = 0
	c.outsideDomain = 0
	c.degenerate = 0
	c.penetrating = 0
	c.neighborSum = 0
	c.densitySum = 0
	c.peakSpeed = 0

	return stats
}

// WindowDurationTicks returns the number of ticks per window.
func (c *Collector) WindowDurationTicks() int32 {
	return c.windowDurationTicks
}
