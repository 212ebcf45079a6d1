package systems

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/config"
)

// ErrInvalidParams is returned when fluid constants violate a precondition.
var ErrInvalidParams = errors.New("systems: invalid fluid parameters")

// Params are the physical constants of the fluid.
type Params struct {
	Radius          float64 // Interaction radius
	CollisionRadius float64
	RestDensity     float64
	Sigma           float64 // Linear viscosity
	Beta            float64 // Quadratic viscosity
	K               float64 // Stiffness
	KNear           float64 // Near stiffness
	Gravity         r2.Vec  // Velocity added every step
	MaxSpeed        float64

	Friction          float64
	CollisionSoftness float64

	CellSize      float64 // 0 = Radius
	HashTableSize int
}

// ParamsFromConfig extracts solver parameters from the loaded configuration.
func ParamsFromConfig(cfg *config.Config) Params {
	f := cfg.Fluid
	return Params{
		Radius:            f.Radius,
		CollisionRadius:   f.CollisionRadius,
		RestDensity:       f.RestDensity,
		Sigma:             f.Sigma,
		Beta:              f.Beta,
		K:                 f.K,
		KNear:             f.KNear,
		Gravity:           r2.Vec{X: f.Gravity[0], Y: f.Gravity[1]},
		MaxSpeed:          f.MaxSpeed,
		Friction:          f.Friction,
		CollisionSoftness: f.CollisionSoftness,
		CellSize:          cfg.Derived.CellSize,
		HashTableSize:     f.HashTableSize,
	}
}

// cellSize resolves the zero default.
func (p Params) cellSize() float64 {
	if p.CellSize == 0 {
		return p.Radius
	}
	return p.CellSize
}

// Validate checks the preconditions the solver relies on.
func (p Params) Validate() error {
	if p.Radius <= 0 {
		return fmt.Errorf("%w: radius must be positive, got %g", ErrInvalidParams, p.Radius)
	}
	if p.CollisionRadius < 0 {
		return fmt.Errorf("%w: collision radius must not be negative, got %g", ErrInvalidParams, p.CollisionRadius)
	}
	if p.MaxSpeed <= 0 {
		return fmt.Errorf("%w: max speed must be positive, got %g", ErrInvalidParams, p.MaxSpeed)
	}
	if p.Sigma < 0 || p.Beta < 0 {
		return fmt.Errorf("%w: viscosity must not be negative (sigma=%g beta=%g)", ErrInvalidParams, p.Sigma, p.Beta)
	}
	if cs := p.cellSize(); cs < p.Radius {
		return fmt.Errorf("%w: cell size %g is smaller than radius %g", ErrInvalidParams, cs, p.Radius)
	}
	if p.HashTableSize <= 0 {
		return fmt.Errorf("%w: hash table size must be positive, got %d", ErrInvalidParams, p.HashTableSize)
	}
	return nil
}
