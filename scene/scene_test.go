package scene

import (
	"context"
	"testing"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/fluid/config"
	"github.com/pthm-cable/fluid/sdf"
)

func TestFromConfig(t *testing.T) {
	cfg := config.Default()
	s := FromConfig(cfg)

	if s.Len() != len(cfg.Obstacles) {
		t.Fatalf("expected %d obstacles, got %d", len(cfg.Obstacles), s.Len())
	}

	names := make(map[string]bool)
	for _, o := range s.Obstacles() {
		names[o.Name] = true
	}
	for _, o := range cfg.Obstacles {
		if !names[o.Name] {
			t.Errorf("obstacle %q missing from scene", o.Name)
		}
	}
}

func TestAddRemove(t *testing.T) {
	s := New()
	a := s.Add("a", sdf.Box{Min: r2.Vec{X: 0, Y: 0}, Max: r2.Vec{X: 1, Y: 1}})
	s.Add("b", sdf.Box{Min: r2.Vec{X: 2, Y: 2}, Max: r2.Vec{X: 3, Y: 3}})

	if s.Len() != 2 {
		t.Fatalf("expected 2 obstacles, got %d", s.Len())
	}

	s.Remove(a)
	s.Remove(a) // already dead
	if s.Len() != 1 {
		t.Fatalf("expected 1 obstacle after removal, got %d", s.Len())
	}
	if got := s.Obstacles()[0].Name; got != "b" {
		t.Errorf("expected b to remain, got %q", got)
	}
	if s.Move(a, sdf.Box{}) {
		t.Error("moving a removed obstacle should fail")
	}
}

func TestMove(t *testing.T) {
	s := New()
	e := s.Add("box", sdf.Box{Min: r2.Vec{X: 0, Y: 0}, Max: r2.Vec{X: 1, Y: 1}})

	want := sdf.Box{Min: r2.Vec{X: 5, Y: 5}, Max: r2.Vec{X: 6, Y: 7}}
	if !s.Move(e, want) {
		t.Fatal("move failed")
	}
	if got := s.Boxes()[0]; got != want {
		t.Errorf("expected %v, got %v", want, got)
	}
	if got, ok := s.Box(e); !ok || got != want {
		t.Errorf("expected Box to report %v, got %v (%v)", want, got, ok)
	}

	s.Remove(e)
	if _, ok := s.Box(e); ok {
		t.Error("removed obstacle should have no box")
	}
}

func TestExtent(t *testing.T) {
	s := New()
	if _, ok := s.Extent(); ok {
		t.Error("empty scene should have no extent")
	}

	s.Add("a", sdf.Box{Min: r2.Vec{X: -2, Y: 0}, Max: r2.Vec{X: 0, Y: 1}})
	s.Add("b", sdf.Box{Min: r2.Vec{X: 1, Y: -3}, Max: r2.Vec{X: 4, Y: -1}})

	ext, ok := s.Extent()
	if !ok {
		t.Fatal("expected an extent")
	}
	want := sdf.Box{Min: r2.Vec{X: -2, Y: -3}, Max: r2.Vec{X: 4, Y: 1}}
	if ext != want {
		t.Errorf("expected %v, got %v", want, ext)
	}
}

func TestBakeFromScene(t *testing.T) {
	cfg := config.Default()
	s := FromConfig(cfg)

	b := cfg.Boundary
	grid, err := sdf.NewGrid(sdf.Bounds{Left: b.Left, Right: b.Right, Down: b.Down, Up: b.Up}, 2)
	if err != nil {
		t.Fatal(err)
	}
	field, err := sdf.Bake(context.Background(), grid, s.Boxes(), sdf.BakeOptions{TieEpsilon: b.TieEpsilon, EdgeEpsilon: b.EdgeEpsilon})
	if err != nil {
		t.Fatalf("bake failed: %v", err)
	}

	// The arena center is free space, well away from every wall.
	d, err := field.Distance(field.Index(r2.Vec{X: 0, Y: 2}))
	if err != nil {
		t.Fatal(err)
	}
	if d <= 0 {
		t.Errorf("expected positive distance in free space, got %g", d)
	}
}
