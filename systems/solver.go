package systems

import (
	"errors"
	"fmt"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/sdf"
)

// Stage names, reported to OnStage in execution order.
const (
	StageForces    = "forces"
	StageViscosity = "viscosity"
	StageAdvect    = "advect"
	StageNeighbors = "neighbors"
	StageRelax     = "relax"
	StageCollide   = "collide"
	StageVelocity  = "velocity"
)

// Stages lists every stage in the order Step runs them.
var Stages = []string{
	StageForces, StageViscosity, StageAdvect, StageNeighbors,
	StageRelax, StageCollide, StageVelocity,
}

// ErrInvalidTimestep is returned by Step for a non-positive or non-finite dt.
var ErrInvalidTimestep = errors.New("systems: invalid timestep")

// parallelThreshold is the minimum particle count to rebuild neighbor lists
// on several goroutines. Below this the goroutine overhead dominates.
const parallelThreshold = 512

// ForceFunc returns an extra velocity increment for p, applied with gravity.
type ForceFunc func(p *Particle) r2.Vec

// StepStats summarizes the last step.
type StepStats struct {
	Collisions    int // Particles pushed out of the boundary
	OutsideDomain int // Particles skipped because the field had no sample
	Degenerate    int // Zero-length directions absorbed as no-ops
	Penetrating   int // Particles left over a radius deep in a solid, or off the field, after collision
	Neighbors     int // Total neighbor list length
	MeanDensity   float64
	KineticEnergy float64 // Sum of 0.5*|v|^2 over all particles
	MaxSpeed      float64
}

// Solver advances a particle set by fixed steps of double-density relaxation
// against a distance-field boundary.
type Solver struct {
	params    Params
	field     sdf.Field
	grid      *SpatialHash
	particles []Particle
	neighbors [][]int
	density   []float64
	scratch   [][]int // Per-worker grid query buffers
	stats     StepStats

	// Env adds an environment force per particle. Nil means none.
	Env ForceFunc
	// OnStage is called with the stage name before each stage runs.
	OnStage func(stage string)
	// Workers bounds the neighbor rebuild goroutines. 0 = GOMAXPROCS.
	Workers int
}

// NewSolver validates params and files the initial positions in a fresh
// spatial hash.
func NewSolver(params Params, field sdf.Field, positions []r2.Vec) (*Solver, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if field == nil {
		return nil, fmt.Errorf("%w: no distance field", ErrInvalidParams)
	}

	grid, err := NewSpatialHash(params.cellSize(), params.HashTableSize)
	if err != nil {
		return nil, err
	}

	s := &Solver{
		params:    params,
		field:     field,
		grid:      grid,
		particles: NewParticles(positions),
		neighbors: make([][]int, len(positions)),
		density:   make([]float64, len(positions)),
	}
	grid.Reset(s.particles)
	return s, nil
}

// Params returns the active constants.
func (s *Solver) Params() Params {
	return s.params
}

// SetParams swaps the constants between steps. A changed cell or table size
// rebuilds the spatial hash.
func (s *Solver) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if p.cellSize() != s.grid.CellSize() || p.HashTableSize != s.grid.TableSize() {
		grid, err := NewSpatialHash(p.cellSize(), p.HashTableSize)
		if err != nil {
			return err
		}
		grid.Reset(s.particles)
		s.grid = grid
	}
	s.params = p
	return nil
}

// SetField swaps the boundary between steps.
func (s *Solver) SetField(field sdf.Field) error {
	if field == nil {
		return fmt.Errorf("%w: no distance field", ErrInvalidParams)
	}
	s.field = field
	return nil
}

// Reset replaces every particle with one at rest at the given positions.
func (s *Solver) Reset(positions []r2.Vec) {
	s.particles = NewParticles(positions)
	s.neighbors = make([][]int, len(positions))
	s.density = make([]float64, len(positions))
	s.stats = StepStats{}
	s.grid.Reset(s.particles)
}

// Particles returns the particle store. It is updated in place by Step.
func (s *Solver) Particles() []Particle {
	return s.particles
}

// Neighbors returns the neighbor list of particle i from the last rebuild.
func (s *Solver) Neighbors(i int) []int {
	return s.neighbors[i]
}

// Density returns the density estimate of particle i from the last step.
func (s *Solver) Density(i int) float64 {
	return s.density[i]
}

// Grid returns the spatial hash.
func (s *Solver) Grid() *SpatialHash {
	return s.grid
}

// Field returns the boundary.
func (s *Solver) Field() sdf.Field {
	return s.field
}

// Stats returns the summary of the last step.
func (s *Solver) Stats() StepStats {
	return s.stats
}

// Step advances the simulation by dt. Stages run to completion in order.
// An error means the field rejected a query and the particle state is no
// longer trustworthy.
func (s *Solver) Step(dt float64) error {
	if dt <= 0 || math.IsNaN(dt) || math.IsInf(dt, 0) {
		return fmt.Errorf("%w: %g", ErrInvalidTimestep, dt)
	}
	s.stats = StepStats{}

	s.stage(StageForces)
	s.applyForces()

	s.stage(StageViscosity)
	s.applyViscosity(dt)

	s.stage(StageAdvect)
	s.advect(dt)

	s.stage(StageNeighbors)
	if err := s.rebuildNeighbors(); err != nil {
		return err
	}

	s.stage(StageRelax)
	s.relax(dt)

	s.stage(StageCollide)
	if err := s.collide(dt); err != nil {
		return err
	}

	s.stage(StageVelocity)
	s.reconstructVelocity(dt)

	return nil
}

func (s *Solver) stage(name string) {
	if s.OnStage != nil {
		s.OnStage(name)
	}
}

func (s *Solver) applyForces() {
	g := s.params.Gravity
	for i := range s.particles {
		p := &s.particles[i]
		p.Vel = r2.Add(p.Vel, g)
		if s.Env != nil {
			p.Vel = r2.Add(p.Vel, s.Env(p))
		}
	}
}

// applyViscosity damps inward relative velocity along each neighbor pair.
// Only the particle itself is changed; the neighbor sees its own half when
// it is visited.
func (s *Solver) applyViscosity(dt float64) {
	radius := s.params.Radius
	sigma, beta := s.params.Sigma, s.params.Beta
	ps := s.particles

	for i := range ps {
		p := &ps[i]
		for _, j := range s.neighbors[i] {
			n := &ps[j]
			rij := r2.Sub(n.Pos, p.Pos)
			dir, ok := unitOrZero(rij)
			if !ok {
				s.stats.Degenerate++
				continue
			}
			q := r2.Norm(rij) / radius
			if q >= 1 {
				continue
			}
			u := r2.Dot(r2.Sub(p.Vel, n.Vel), dir)
			if u <= 0 {
				continue
			}
			impulse := r2.Scale(dt*(1-q)*(sigma*u+beta*u*u), dir)
			p.Vel = r2.Sub(p.Vel, r2.Scale(0.5, impulse))
		}
	}
}

func (s *Solver) advect(dt float64) {
	maxSpeed := s.params.MaxSpeed
	for i := range s.particles {
		p := &s.particles[i]
		p.Vel = capSpeed(p.Vel, maxSpeed)
		p.PrevPos = p.Pos
		p.Pos = r2.Add(p.Pos, r2.Scale(dt, p.Vel))
		s.grid.Relocate(p)
	}
}

// rebuildNeighbors replaces every neighbor list from the grid. Each list is
// written by exactly one goroutine and the grid is only read, so large sets
// are split into chunks.
func (s *Solver) rebuildNeighbors() error {
	n := len(s.particles)
	workers := s.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if n < parallelThreshold || workers == 1 {
		s.ensureScratch(1)
		s.scratch[0] = s.neighborRange(s.scratch[0], 0, n)
		s.countNeighbors()
		return nil
	}

	s.ensureScratch(workers)
	chunk := (n + workers - 1) / workers

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		start := w * chunk
		end := min(start+chunk, n)
		if start >= end {
			break
		}
		g.Go(func() error {
			s.scratch[w] = s.neighborRange(s.scratch[w], start, end)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("rebuilding neighbors: %w", err)
	}
	s.countNeighbors()
	return nil
}

func (s *Solver) ensureScratch(workers int) {
	for len(s.scratch) < workers {
		s.scratch = append(s.scratch, make([]int, 0, 64))
	}
}

// neighborRange rebuilds lists for particles [start, end) using buf for grid
// candidates and returns buf for reuse.
func (s *Solver) neighborRange(buf []int, start, end int) []int {
	ps := s.particles
	r2max := s.params.Radius * s.params.Radius

	for i := start; i < end; i++ {
		p := &ps[i]
		buf = s.grid.QueryInto(buf[:0], p.Pos)

		list := s.neighbors[i][:0]
		for _, j := range buf {
			if ps[j].Index == p.Index {
				continue
			}
			if r2.Norm2(r2.Sub(ps[j].Pos, p.Pos)) < r2max {
				list = append(list, j)
			}
		}
		s.neighbors[i] = list
	}
	return buf
}

func (s *Solver) countNeighbors() {
	total := 0
	for _, l := range s.neighbors {
		total += len(l)
	}
	s.stats.Neighbors = total
}

// relax applies double-density relaxation. Neighbor displacements land
// immediately and are seen by later pairs of the same particle; the particle's
// own displacement is accumulated and applied after its neighbor loop.
func (s *Solver) relax(dt float64) {
	params := s.params
	radius := params.Radius
	ps := s.particles
	half := 0.5 * dt * dt
	var densitySum float64

	for i := range ps {
		p := &ps[i]
		nbrs := s.neighbors[i]

		var rho, rhoNear float64
		for _, j := range nbrs {
			q := 1 - r2.Norm(r2.Sub(ps[j].Pos, p.Pos))/radius
			if q > 0 {
				rho += q * q
				rhoNear += q * q * q
			}
		}
		s.density[i] = rho
		densitySum += rho

		pressure := params.K * (rho - params.RestDensity)
		pressureNear := params.KNear * rhoNear

		var self r2.Vec
		for _, j := range nbrs {
			n := &ps[j]
			rij := r2.Sub(n.Pos, p.Pos)
			dist := r2.Norm(rij)
			q := 1 - dist/radius
			if q <= 0 {
				continue
			}
			if dist < epsilon {
				s.stats.Degenerate++
				continue
			}
			d := r2.Scale(half*(pressure*q+pressureNear*q*q)/dist, rij)
			n.Pos = r2.Add(n.Pos, d)
			self = r2.Sub(self, d)
		}
		p.Pos = r2.Add(p.Pos, self)
	}

	if len(ps) > 0 {
		s.stats.MeanDensity = densitySum / float64(len(ps))
	}
}

// collide pushes particles within the collision radius back out along the
// field normal and applies tangential friction.
func (s *Solver) collide(dt float64) error {
	params := s.params
	for i := range s.particles {
		p := &s.particles[i]

		tok := s.field.Index(p.Pos)
		if !tok.InDomain() {
			s.stats.OutsideDomain++
			continue
		}
		d, err := s.field.Distance(tok)
		if err != nil {
			return fmt.Errorf("particle %d: %w", i, err)
		}
		if d >= params.CollisionRadius {
			continue
		}
		normal, err := s.field.Normal(tok)
		if err != nil {
			return fmt.Errorf("particle %d: %w", i, err)
		}

		if dir, ok := unitOrZero(r2.Sub(p.Pos, p.PrevPos)); ok {
			tangent := perp(normal)
			p.Pos = r2.Sub(p.Pos, r2.Scale(dt*params.Friction*r2.Dot(dir, tangent), tangent))
		} else {
			s.stats.Degenerate++
		}
		// Restoring at any depth, including past -CollisionRadius.
		p.Pos = r2.Add(p.Pos, r2.Scale(params.CollisionSoftness*math.Abs(d+params.CollisionRadius), normal))
		s.stats.Collisions++

		if d >= 0 {
			continue
		}
		if deep, err := s.penetrating(p.Pos); err != nil {
			return fmt.Errorf("particle %d: %w", i, err)
		} else if deep {
			s.stats.Penetrating++
		}
	}
	return nil
}

// penetrating reports whether pos lies more than one interaction radius
// inside a solid or has left the field's domain. Resting contact sits just
// below the surface, so shallow depths are not counted.
func (s *Solver) penetrating(pos r2.Vec) (bool, error) {
	tok := s.field.Index(pos)
	if !tok.InDomain() {
		return true, nil
	}
	d, err := s.field.Distance(tok)
	if err != nil {
		return false, err
	}
	return d < -s.params.Radius, nil
}

func (s *Solver) reconstructVelocity(dt float64) {
	maxSpeed := s.params.MaxSpeed
	var energy, fastest float64
	for i := range s.particles {
		p := &s.particles[i]
		p.Vel = capSpeed(r2.Scale(1/dt, r2.Sub(p.Pos, p.PrevPos)), maxSpeed)

		v2 := r2.Norm2(p.Vel)
		energy += 0.5 * v2
		fastest = math.Max(fastest, v2)
	}
	s.stats.KineticEnergy = energy
	s.stats.MaxSpeed = math.Sqrt(fastest)
}
