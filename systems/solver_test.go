package systems

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/sdf"
)

func testArena(t *testing.T, half float64) *sdf.Arena {
	t.Helper()
	a, err := sdf.NewArena(sdf.Bounds{Left: -half, Right: half, Down: -half, Up: half})
	require.NoError(t, err)
	return a
}

func defaultParams() Params {
	return ParamsFromConfig(config.Default())
}

func randomPositions(n int, extent float64, seed int64) []r2.Vec {
	rng := rand.New(rand.NewSource(seed))
	return SpawnRandom(rng, n, sdf.Bounds{Left: -extent, Right: extent, Down: -extent, Up: extent}, 0)
}

func TestNewSolverValidates(t *testing.T) {
	arena := testArena(t, 5)

	tests := []struct {
		name   string
		mutate func(p *Params)
	}{
		{"zero radius", func(p *Params) { p.Radius = 0 }},
		{"cell below radius", func(p *Params) { p.CellSize = p.Radius / 2 }},
		{"empty table", func(p *Params) { p.HashTableSize = 0 }},
		{"zero max speed", func(p *Params) { p.MaxSpeed = 0 }},
		{"negative viscosity", func(p *Params) { p.Sigma = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := defaultParams()
			tc.mutate(&p)
			_, err := NewSolver(p, arena, nil)
			assert.ErrorIs(t, err, ErrInvalidParams)
		})
	}

	_, err := NewSolver(defaultParams(), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestStepRejectsBadTimestep(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 5), nil)
	require.NoError(t, err)

	for _, dt := range []float64{0, -0.1, math.NaN(), math.Inf(1)} {
		assert.ErrorIs(t, s.Step(dt), ErrInvalidTimestep)
	}
}

func TestSingleParticleAtRestStaysPut(t *testing.T) {
	p := defaultParams()
	p.Gravity = r2.Vec{}
	s, err := NewSolver(p, testArena(t, 5), []r2.Vec{{}})
	require.NoError(t, err)

	for i := 0; i < 500; i++ {
		require.NoError(t, s.Step(0.02))
	}

	got := s.Particles()[0]
	assert.InDelta(t, 0, got.Pos.X, 1e-12)
	assert.InDelta(t, 0, got.Pos.Y, 1e-12)
	assert.InDelta(t, 0, r2.Norm(got.Vel), 1e-12)
	assert.Zero(t, s.Stats().Collisions)
}

func TestTwoParticlesSeparateAndSettle(t *testing.T) {
	p := Params{
		Radius:            1,
		CollisionRadius:   0.1,
		RestDensity:       0.2,
		Sigma:             2,
		Beta:              2,
		K:                 10,
		KNear:             0,
		MaxSpeed:          100,
		CollisionSoftness: 0.02,
		HashTableSize:     10007,
	}
	s, err := NewSolver(p, testArena(t, 10), []r2.Vec{{X: -0.25}, {X: 0.25}})
	require.NoError(t, err)

	separation := func() float64 {
		ps := s.Particles()
		return r2.Norm(r2.Sub(ps[1].Pos, ps[0].Pos))
	}

	prev := separation()
	require.InDelta(t, 0.5, prev, 1e-12)
	for i := 0; i < 40; i++ {
		require.NoError(t, s.Step(0.02))
		cur := separation()
		assert.Greater(t, cur, prev, "step %d", i)
		prev = cur
	}

	for i := 40; i < 1500; i++ {
		require.NoError(t, s.Step(0.02))
	}

	// Pressure vanishes where q^2 equals the rest density.
	want := 1 - math.Sqrt(p.RestDensity)
	assert.InDelta(t, want, separation(), 1e-3)

	ps := s.Particles()
	relVel := r2.Norm(r2.Sub(ps[1].Vel, ps[0].Vel))
	assert.Less(t, relVel, 1e-3)
}

func TestGridMatchesPositionsAfterAdvection(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 3), randomPositions(400, 2.5, 1))
	require.NoError(t, err)

	checked := 0
	s.OnStage = func(stage string) {
		if stage != StageNeighbors {
			return
		}
		checked++
		for _, p := range s.Particles() {
			key := s.Grid().Key(p.Pos)
			require.Equal(t, key, p.GridKey)
			require.Contains(t, s.Grid().Bucket(key), p.Index)
		}
	}

	for i := 0; i < 20; i++ {
		require.NoError(t, s.Step(0.02))
	}
	assert.Equal(t, 20, checked)
}

func TestNeighborListsCoverAllClosePairs(t *testing.T) {
	params := defaultParams()
	s, err := NewSolver(params, testArena(t, 3), randomPositions(400, 2, 2))
	require.NoError(t, err)

	r2max := params.Radius * params.Radius
	s.OnStage = func(stage string) {
		if stage != StageRelax {
			return
		}
		ps := s.Particles()
		for i := range ps {
			for j := i + 1; j < len(ps); j++ {
				if r2.Norm2(r2.Sub(ps[i].Pos, ps[j].Pos)) >= r2max {
					continue
				}
				found := containsInt(s.Neighbors(i), j) || containsInt(s.Neighbors(j), i)
				require.True(t, found, "pair (%d,%d) missing", i, j)
			}
			require.NotContains(t, s.Neighbors(i), i)
		}
	}

	for i := 0; i < 5; i++ {
		require.NoError(t, s.Step(0.02))
	}
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func TestParallelNeighborRebuildMatchesSerial(t *testing.T) {
	positions := randomPositions(1200, 4, 3)

	serial, err := NewSolver(defaultParams(), testArena(t, 5), positions)
	require.NoError(t, err)
	serial.Workers = 1

	parallel, err := NewSolver(defaultParams(), testArena(t, 5), positions)
	require.NoError(t, err)
	parallel.Workers = 4

	for i := 0; i < 10; i++ {
		require.NoError(t, serial.Step(0.02))
		require.NoError(t, parallel.Step(0.02))
	}

	assert.Equal(t, serial.Particles(), parallel.Particles())
	assert.Equal(t, serial.Stats(), parallel.Stats())
}

func TestCollisionPushesOutOfBakedWall(t *testing.T) {
	grid, err := sdf.NewGrid(sdf.Bounds{Left: 0, Right: 4, Down: 0, Up: 4}, 1)
	require.NoError(t, err)
	wall := []sdf.Box{{Min: r2.Vec{X: 3.8, Y: -8}, Max: r2.Vec{X: 4.2, Y: 12}}}
	field, err := sdf.Bake(t.Context(), grid, wall, sdf.BakeOptions{TieEpsilon: 1e-4, EdgeEpsilon: 1e-4})
	require.NoError(t, err)

	p := defaultParams()
	p.CollisionRadius = 0.5
	p.CollisionSoftness = 0.02
	s, err := NewSolver(p, field, []r2.Vec{{X: 3.5, Y: 2.5}})
	require.NoError(t, err)

	part := &s.Particles()[0]
	part.PrevPos = r2.Vec{X: 3.4, Y: 2.5}

	tok := field.Index(part.Pos)
	d, err := field.Distance(tok)
	require.NoError(t, err)
	require.InDelta(t, 0.3, d, 1e-9)

	require.NoError(t, s.collide(0.02))
	assert.InDelta(t, 3.5-0.02*(0.3+0.5), part.Pos.X, 1e-9)
	assert.InDelta(t, 2.5, part.Pos.Y, 1e-9)
	assert.Equal(t, 1, s.stats.Collisions)
}

func TestCollisionRestoresDeepParticles(t *testing.T) {
	p := defaultParams()
	p.Radius = 0.2
	p.CollisionRadius = 0.1
	p.CollisionSoftness = 0.4
	s, err := NewSolver(p, testArena(t, 5), []r2.Vec{{X: 0, Y: -5.5}, {X: 1, Y: -5.05}})
	require.NoError(t, err)

	deep, shallow := &s.Particles()[0], &s.Particles()[1]
	deep.PrevPos = r2.Vec{X: 0, Y: -5.4}
	shallow.PrevPos = r2.Vec{X: 1, Y: -5}

	require.NoError(t, s.collide(0.02))

	// The deep particle is past -CollisionRadius and is still pushed up.
	assert.InDelta(t, -5.5+0.4*0.4, deep.Pos.Y, 1e-9)
	assert.InDelta(t, -5.05+0.4*0.05, shallow.Pos.Y, 1e-9)
	assert.InDelta(t, 0, deep.Pos.X, 1e-12)
	assert.Equal(t, 2, s.stats.Collisions)
	assert.Equal(t, 1, s.stats.Penetrating, "only the particle left past one radius counts")
}

func TestDeepParticleClimbsBackOut(t *testing.T) {
	p := defaultParams()
	p.Gravity = r2.Vec{}
	p.Radius = 0.2
	p.CollisionRadius = 0.02
	p.CollisionSoftness = 0.4
	p.MaxSpeed = 6
	s, err := NewSolver(p, testArena(t, 5), []r2.Vec{{X: 0, Y: -7}})
	require.NoError(t, err)

	require.NoError(t, s.Step(0.02))
	assert.Equal(t, 1, s.Stats().Penetrating)

	prev := s.Particles()[0].Pos.Y
	assert.Greater(t, prev, -7.0)
	for i := 0; i < 10 && prev < -5; i++ {
		require.NoError(t, s.Step(0.02))
		got := s.Particles()[0].Pos.Y
		require.Greater(t, got, prev, "step %d", i)
		prev = got
	}
	assert.Greater(t, prev, -5.0)
	assert.Zero(t, s.Stats().Penetrating)
}

func TestViscosityUpdatesOnlyTheVisitedParticle(t *testing.T) {
	p := defaultParams()
	p.Radius = 1
	p.Sigma = 0.5
	p.Beta = 0.1
	s, err := NewSolver(p, testArena(t, 5), []r2.Vec{{X: 0}, {X: 0.5}})
	require.NoError(t, err)

	ps := s.Particles()
	ps[0].Vel = r2.Vec{X: 1}
	ps[1].Vel = r2.Vec{X: -1}
	s.neighbors = [][]int{{1}, {0}}

	const dt = 0.1
	s.applyViscosity(dt)

	impulse := func(u float64) float64 { return dt * 0.5 * (p.Sigma*u + p.Beta*u*u) }

	// Particle 0 sees the neighbor's original velocity.
	v0 := 1 - 0.5*impulse(2)
	assert.InDelta(t, v0, ps[0].Vel.X, 1e-12)

	// Particle 1 is visited second and sees particle 0 already damped.
	v1 := -1 + 0.5*impulse(1+v0)
	assert.InDelta(t, v1, ps[1].Vel.X, 1e-12)
	assert.Zero(t, ps[0].Vel.Y)
	assert.Zero(t, ps[1].Vel.Y)
}

func TestRelaxMovesNeighborsImmediatelyAndSelfLast(t *testing.T) {
	p := defaultParams()
	p.Radius = 1
	p.K = 1
	p.KNear = 1
	p.RestDensity = 1
	s, err := NewSolver(p, testArena(t, 5), []r2.Vec{{}, {X: 0.5}, {Y: 0.5}})
	require.NoError(t, err)
	s.neighbors = [][]int{{1, 2}, {}, {}}

	const dt = 0.1
	s.relax(dt)

	// rho = 2*0.25, rhoNear = 2*0.125, both pairs at q = 0.5
	q := 0.5
	pressure := p.K * (0.5 - p.RestDensity)
	near := p.KNear * 0.25
	m := 0.5 * dt * dt * (pressure*q + near*q*q) / 0.5

	ps := s.Particles()
	assert.InDelta(t, 0.5*m, ps[1].Pos.X-0.5, 1e-15)
	assert.InDelta(t, 0.5*m, ps[2].Pos.Y-0.5, 1e-15)
	// The second pair used the unmoved particle 0, so no sideways tilt.
	assert.InDelta(t, 0, ps[2].Pos.X, 1e-15)
	assert.InDelta(t, 0, ps[1].Pos.Y, 1e-15)
	assert.InDelta(t, -0.5*m, ps[0].Pos.X, 1e-15)
	assert.InDelta(t, -0.5*m, ps[0].Pos.Y, 1e-15)
	assert.InDelta(t, 0.5, s.density[0], 1e-15)
}

func TestRelaxSeesEarlierDisplacements(t *testing.T) {
	p := defaultParams()
	p.Radius = 1
	p.K = 1
	p.KNear = 1
	p.RestDensity = 1
	s, err := NewSolver(p, testArena(t, 5), []r2.Vec{{}, {X: 0.5}})
	require.NoError(t, err)
	s.neighbors = [][]int{{1}, {0}}

	const dt = 0.1
	half := 0.5 * dt * dt
	displacement := func(dist float64) (float64, float64) {
		q := 1 - dist
		pressure := p.K * (q*q - p.RestDensity)
		near := p.KNear * q * q * q
		return half * (pressure*q + near*q*q) / dist, q * q
	}

	s.relax(dt)

	// Particle 0 pushes particle 1 by m0 along +x before particle 1 is visited.
	m0, rho0 := displacement(0.5)
	x0, x1 := -0.5*m0, 0.5+0.5*m0
	gap := x1 - x0
	m1, rho1 := displacement(gap)
	x0 -= m1 * gap
	x1 += m1 * gap

	ps := s.Particles()
	assert.InDelta(t, rho0, s.density[0], 1e-15)
	assert.InDelta(t, rho1, s.density[1], 1e-15)
	assert.NotEqual(t, s.density[0], s.density[1])
	assert.InDelta(t, x0, ps[0].Pos.X, 1e-15)
	assert.InDelta(t, x1, ps[1].Pos.X, 1e-15)
}

func TestCollisionSkipsOutsideDomain(t *testing.T) {
	grid, err := sdf.NewGrid(sdf.Bounds{Left: 0, Right: 2, Down: 0, Up: 2}, 2)
	require.NoError(t, err)
	box := []sdf.Box{{Min: r2.Vec{X: 0.5, Y: 0.5}, Max: r2.Vec{X: 1, Y: 1}}}
	field, err := sdf.Bake(t.Context(), grid, box, sdf.BakeOptions{EdgeEpsilon: 1e-4})
	require.NoError(t, err)

	s, err := NewSolver(defaultParams(), field, []r2.Vec{{X: 50, Y: 50}})
	require.NoError(t, err)

	require.NoError(t, s.collide(0.02))
	assert.Equal(t, r2.Vec{X: 50, Y: 50}, s.Particles()[0].Pos)
	assert.Equal(t, 1, s.stats.OutsideDomain)
}

func TestEnvironmentForceAndSpeedCap(t *testing.T) {
	p := defaultParams()
	p.Gravity = r2.Vec{}
	p.MaxSpeed = 5
	s, err := NewSolver(p, testArena(t, 50), []r2.Vec{{}})
	require.NoError(t, err)

	s.Env = func(*Particle) r2.Vec { return r2.Vec{X: 1} }
	require.NoError(t, s.Step(0.02))
	assert.InDelta(t, 1, s.Particles()[0].Vel.X, 1e-9)
	assert.InDelta(t, 0.02, s.Particles()[0].Pos.X, 1e-12)

	s.Env = func(*Particle) r2.Vec { return r2.Vec{X: 100} }
	require.NoError(t, s.Step(0.02))
	assert.InDelta(t, 5, r2.Norm(s.Particles()[0].Vel), 1e-9)
}

func TestCoincidentParticlesStayFinite(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 5), []r2.Vec{{X: 1, Y: 1}, {X: 1, Y: 1}})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Step(0.02))
	}
	for _, p := range s.Particles() {
		assert.False(t, math.IsNaN(p.Pos.X) || math.IsNaN(p.Pos.Y))
		assert.False(t, math.IsNaN(p.Vel.X) || math.IsNaN(p.Vel.Y))
	}
	assert.Positive(t, s.Stats().Degenerate)
}

func TestStagesRunInOrder(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 5), randomPositions(10, 1, 4))
	require.NoError(t, err)

	var got []string
	s.OnStage = func(stage string) { got = append(got, stage) }
	require.NoError(t, s.Step(0.02))
	assert.Equal(t, Stages, got)
}

func TestSetParamsRebuildsGrid(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 5), randomPositions(50, 2, 5))
	require.NoError(t, err)

	p := s.Params()
	p.CellSize = 2 * p.Radius
	require.NoError(t, s.SetParams(p))
	assert.InDelta(t, 2*p.Radius, s.Grid().CellSize(), 1e-12)
	for _, part := range s.Particles() {
		assert.Equal(t, s.Grid().Key(part.Pos), part.GridKey)
	}

	p.Radius = 0
	assert.ErrorIs(t, s.SetParams(p), ErrInvalidParams)
}

func TestResetReplacesParticles(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 5), randomPositions(50, 2, 6))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Step(0.02))
	}

	fresh := randomPositions(20, 1, 7)
	s.Reset(fresh)
	require.Len(t, s.Particles(), 20)
	for i, p := range s.Particles() {
		assert.Equal(t, fresh[i], p.Pos)
		assert.Equal(t, r2.Vec{}, p.Vel)
		assert.Equal(t, s.Grid().Key(p.Pos), p.GridKey)
	}

	total := 0
	for key := 0; key < s.Grid().TableSize(); key++ {
		total += len(s.Grid().Bucket(key))
	}
	assert.Equal(t, 20, total, "stale entries left in the hash")
	require.NoError(t, s.Step(0.02))
}

func TestSetFieldRejectsNil(t *testing.T) {
	s, err := NewSolver(defaultParams(), testArena(t, 5), randomPositions(10, 2, 8))
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetField(nil), ErrInvalidParams)

	other := testArena(t, 3)
	require.NoError(t, s.SetField(other))
	assert.Equal(t, sdf.Field(other), s.Field())
}

func TestSpawnRandomStaysInside(t *testing.T) {
	b := sdf.Bounds{Left: -3, Right: 1, Down: 2, Up: 4}
	rng := rand.New(rand.NewSource(9))
	for _, p := range SpawnRandom(rng, 200, b, 0.5) {
		assert.GreaterOrEqual(t, p.X, -2.5)
		assert.LessOrEqual(t, p.X, 0.5)
		assert.GreaterOrEqual(t, p.Y, 2.5)
		assert.LessOrEqual(t, p.Y, 3.5)
	}
}

func TestSpawnBlock(t *testing.T) {
	b := sdf.Bounds{Left: 0, Right: 10, Down: 0, Up: 10}
	got := SpawnBlock(9, b, 1, 0.5)
	require.Len(t, got, 9)
	assert.Equal(t, r2.Vec{X: 1, Y: 1}, got[0])
	assert.Equal(t, r2.Vec{X: 2, Y: 1}, got[2])
	assert.Equal(t, r2.Vec{X: 1, Y: 1.5}, got[3])
	assert.Equal(t, r2.Vec{X: 2, Y: 2}, got[8])
}
