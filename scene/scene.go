// Package scene holds the static obstacles of a simulation as ECS entities.
// The baker collects every obstacle entity to build the distance field, and
// the renderer draws them.
package scene

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/components"
	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/sdf"
)

// Scene is an ECS world of labelled obstacles.
type Scene struct {
	world *ecs.World

	obstacleMapper *ecs.Map2[components.Obstacle, components.Label]
	obstacleFilter *ecs.Filter2[components.Obstacle, components.Label]
	obstacleMap    *ecs.Map1[components.Obstacle]
}

// New creates an empty scene.
func New() *Scene {
	world := ecs.NewWorld()
	return &Scene{
		world:          world,
		obstacleMapper: ecs.NewMap2[components.Obstacle, components.Label](world),
		obstacleFilter: ecs.NewFilter2[components.Obstacle, components.Label](world),
		obstacleMap:    ecs.NewMap1[components.Obstacle](world),
	}
}

// FromConfig creates a scene with one entity per configured obstacle.
func FromConfig(cfg *config.Config) *Scene {
	s := New()
	for _, o := range cfg.Obstacles {
		s.Add(o.Name, sdf.Box{
			Min: r2.Vec{X: o.Min[0], Y: o.Min[1]},
			Max: r2.Vec{X: o.Max[0], Y: o.Max[1]},
		})
	}
	return s
}

// Add creates an obstacle entity.
func (s *Scene) Add(name string, box sdf.Box) ecs.Entity {
	obstacle := components.Obstacle{Min: box.Min, Max: box.Max}
	label := components.Label{Name: name}
	return s.obstacleMapper.NewEntity(&obstacle, &label)
}

// Remove deletes an obstacle entity. Dead entities are ignored.
func (s *Scene) Remove(e ecs.Entity) {
	if !s.world.Alive(e) {
		return
	}
	s.obstacleMapper.Remove(e)
}

// Move replaces the box of an existing obstacle.
func (s *Scene) Move(e ecs.Entity, box sdf.Box) bool {
	if !s.world.Alive(e) {
		return false
	}
	o := s.obstacleMap.Get(e)
	o.Min, o.Max = box.Min, box.Max
	return true
}

// Box returns the current box of an obstacle.
func (s *Scene) Box(e ecs.Entity) (sdf.Box, bool) {
	if !s.world.Alive(e) {
		return sdf.Box{}, false
	}
	return s.obstacleMap.Get(e).Box(), true
}

// Obstacle is a snapshot of one obstacle entity.
type Obstacle struct {
	Entity ecs.Entity
	Name   string
	Box    sdf.Box
}

// Obstacles returns every obstacle in query order.
func (s *Scene) Obstacles() []Obstacle {
	var out []Obstacle
	query := s.obstacleFilter.Query()
	for query.Next() {
		o, l := query.Get()
		out = append(out, Obstacle{Entity: query.Entity(), Name: l.Name, Box: o.Box()})
	}
	return out
}

// Boxes returns the obstacle boxes, ready for baking.
func (s *Scene) Boxes() []sdf.Box {
	obstacles := s.Obstacles()
	boxes := make([]sdf.Box, len(obstacles))
	for i, o := range obstacles {
		boxes[i] = o.Box
	}
	return boxes
}

// Len returns the number of obstacles.
func (s *Scene) Len() int {
	n := 0
	query := s.obstacleFilter.Query()
	for query.Next() {
		n++
	}
	return n
}

// Extent returns the smallest box containing every obstacle. ok is false for
// an empty scene.
func (s *Scene) Extent() (extent sdf.Box, ok bool) {
	for _, o := range s.Obstacles() {
		if !ok {
			extent, ok = o.Box, true
			continue
		}
		extent = extent.Union(o.Box)
	}
	return extent, ok
}
