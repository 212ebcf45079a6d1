package main

import (
	"github.com/pthm-cable/fluid/config"
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates the standard set of fluid constants to tune.
// Radius, gravity and the boundary stay fixed.
func NewParamVector() *ParamVector {
	return &ParamVector{
		Specs: []ParamSpec{
			{Name: "k", Path: "fluid.k", Min: 1, Max: 40, Default: 8},
			{Name: "knear", Path: "fluid.knear", Min: 1, Max: 80, Default: 20},
			{Name: "rest_density", Path: "fluid.rest_density", Min: 0.5, Max: 15, Default: 3},
			{Name: "sigma", Path: "fluid.sigma", Min: 0, Max: 3, Default: 0.5},
			{Name: "beta", Path: "fluid.beta", Min: 0, Max: 3, Default: 0.1},
		},
	}
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default parameter values as a slice.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw parameter values to [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = min(max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// ApplyToConfig writes clamped parameter values into cfg.
// Order must match Specs order.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) {
	clamped := pv.Clamp(values)
	cfg.Fluid.K = clamped[0]
	cfg.Fluid.KNear = clamped[1]
	cfg.Fluid.RestDensity = clamped[2]
	cfg.Fluid.Sigma = clamped[3]
	cfg.Fluid.Beta = clamped[4]
}

// ExtractFromConfig extracts current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	return []float64{
		cfg.Fluid.K,
		cfg.Fluid.KNear,
		cfg.Fluid.RestDensity,
		cfg.Fluid.Sigma,
		cfg.Fluid.Beta,
	}
}
