package telemetry

import (
	"log/slog"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a time window.
type WindowStats struct {
	WindowStartTick int32   `csv:"-"`
	WindowEndTick   int32   `csv:"window_end"`
	SimTimeSec      float64 `csv:"sim_time"`

	Particles int `csv:"particles"`
	Steps     int `csv:"steps"`

	// Boundary and numerics, summed over the window
	Collisions    int `csv:"collisions"`
	OutsideDomain int `csv:"outside_domain"`
	Degenerate    int `csv:"degenerate"`
	Penetrating   int `csv:"penetrating"`

	MeanNeighbors float64 `csv:"mean_neighbors"`

	// Density (mean over window steps, percentiles at window end)
	MeanDensity float64 `csv:"density_mean"`
	DensityP10  float64 `csv:"density_p10"`
	DensityP50  float64 `csv:"density_p50"`
	DensityP90  float64 `csv:"density_p90"`

	// Speed distribution at window end
	SpeedMean float64 `csv:"speed_mean"`
	SpeedStd  float64 `csv:"speed_std"`
	SpeedP90  float64 `csv:"speed_p90"`
	PeakSpeed float64 `csv:"speed_peak"` // Highest speed seen during the window

	KineticEnergy float64 `csv:"kinetic_energy"`
}

// Distribution summarizes a sample.
type Distribution struct {
	Mean, Std     float64
	P10, P50, P90 float64
}

// Summarize computes mean, standard deviation and empirical percentiles.
// An empty sample yields zeros; a single value has zero spread.
func Summarize(values []float64) Distribution {
	n := len(values)
	if n == 0 {
		return Distribution{}
	}

	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var d Distribution
	if n == 1 {
		d.Mean = sorted[0]
	} else {
		d.Mean, d.Std = stat.MeanStdDev(sorted, nil)
	}
	d.P10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	d.P50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	d.P90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return d
}

// Escaped is the number of particle steps in the window that ended off the
// field or deep inside a solid.
func (s WindowStats) Escaped() int {
	return s.OutsideDomain + s.Penetrating
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("window_start", int(s.WindowStartTick)),
		slog.Int("window_end", int(s.WindowEndTick)),
		slog.Float64("sim_time", s.SimTimeSec),
		slog.Int("particles", s.Particles),
		slog.Int("steps", s.Steps),
		slog.Int("collisions", s.Collisions),
		slog.Int("outside_domain", s.OutsideDomain),
		slog.Int("degenerate", s.Degenerate),
		slog.Int("penetrating", s.Penetrating),
		slog.Float64("mean_neighbors", s.MeanNeighbors),
		slog.Float64("density_mean", s.MeanDensity),
		slog.Float64("density_p10", s.DensityP10),
		slog.Float64("density_p50", s.DensityP50),
		slog.Float64("density_p90", s.DensityP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("speed_std", s.SpeedStd),
		slog.Float64("speed_p90", s.SpeedP90),
		slog.Float64("speed_peak", s.PeakSpeed),
		slog.Float64("kinetic_energy", s.KineticEnergy),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats",
		"window_end", s.WindowEndTick,
		"sim_time", s.SimTimeSec,
		"particles", s.Particles,
		"collisions", s.Collisions,
		"outside_domain", s.OutsideDomain,
		"degenerate", s.Degenerate,
		"penetrating", s.Penetrating,
		"mean_neighbors", s.MeanNeighbors,
		"density_mean", s.MeanDensity,
		"density_p50", s.DensityP50,
		"speed_mean", s.SpeedMean,
		"speed_peak", s.PeakSpeed,
		"kinetic_energy", s.KineticEnergy,
	)
}
