package sim

import (
	"log/slog"

	"gonum.org/v1/gonum/spatial/r2"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (r *Runner) flushTelemetry() {
	if !r.collector.ShouldFlush(r.tick) {
		return
	}

	densities, speeds, kinetic := r.sampleDistributions()
	stats := r.collector.Flush(r.tick, densities, speeds, kinetic)
	perfStats := r.perfCollector.Stats()
	r.lastStats = stats

	if r.statsCallback != nil {
		r.statsCallback(stats)
	}

	// Log stats if enabled (console output)
	if r.logStats {
		stats.LogStats()
		perfStats.LogStats()
	}

	if err := r.outputManager.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := r.outputManager.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range r.bookmarkDetector.Check(stats) {
		if r.logStats {
			bm.LogBookmark()
		}
		if err := r.outputManager.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}
}

// sampleDistributions collects per-particle density and speed at the
// window boundary.
func (r *Runner) sampleDistributions() (densities, speeds []float64, kinetic float64) {
	particles := r.solver.Particles()
	densities = make([]float64, len(particles))
	speeds = make([]float64, len(particles))
	for i := range particles {
		densities[i] = r.solver.Density(i)
		speeds[i] = r2.Norm(particles[i].Vel)
		kinetic += 0.5 * speeds[i] * speeds[i]
	}
	return densities, speeds, kinetic
}
