// Package systems holds the fluid core: the particle store, the spatial hash
// used for neighbor search and the fixed-step solver that ties them together.
package systems

import "gonum.org/v1/gonum/spatial/r2"

// NoGridKey marks a particle that has not been filed in the spatial hash.
const NoGridKey = -1

// Particle is one fluid element. Its position in the solver's slice is its
// identity; Index mirrors it for self-exclusion during neighbor filtering.
type Particle struct {
	Pos     r2.Vec
	PrevPos r2.Vec // Position before this step's advection
	Vel     r2.Vec
	GridKey int // Last hash bucket, NoGridKey until first placement
	Index   int
}

// NewParticles creates resting particles at the given positions.
func NewParticles(positions []r2.Vec) []Particle {
	ps := make([]Particle, len(positions))
	for i, p := range positions {
		ps[i] = Particle{
			Pos:     p,
			PrevPos: p,
			GridKey: NoGridKey,
			Index:   i,
		}
	}
	return ps
}
