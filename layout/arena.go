package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Body is the simulated state of one node. Bodies live by value in an Arena
// and are addressed by index; pointers returned by the arena are only valid
// until the next Add or Remove.
type Body struct {
	ID     string
	Pos    r2.Vec
	Vel    r2.Vec
	Radius float64

	// Pinned bodies sit at Fixed and are exempt from forces
	Pinned bool
	Fixed  r2.Vec

	// Anchor marks a cluster center
	Anchor bool
}

// Arena is a stable-indexed container of bodies
type Arena struct {
	bodies []Body
	index  map[string]int
}

// NewArena creates an empty arena
func NewArena() *Arena {
	return &Arena{index: make(map[string]int)}
}

// Add inserts a body at pos and returns its index. Adding an existing id
// returns the existing index unchanged.
func (a *Arena) Add(id string, pos r2.Vec, radius float64) int {
	if i, ok := a.index[id]; ok {
		return i
	}
	a.bodies = append(a.bodies, Body{ID: id, Pos: pos, Radius: radius})
	i := len(a.bodies) - 1
	a.index[id] = i
	return i
}

// Remove deletes a body by swapping the last body into its slot
func (a *Arena) Remove(id string) bool {
	i, ok := a.index[id]
	if !ok {
		return false
	}
	last := len(a.bodies) - 1
	if i != last {
		a.bodies[i] = a.bodies[last]
		a.index[a.bodies[i].ID] = i
	}
	a.bodies = a.bodies[:last]
	delete(a.index, id)
	return true
}

// Index returns the current index of id
func (a *Arena) Index(id string) (int, bool) {
	i, ok := a.index[id]
	return i, ok
}

// Get returns the body for id
func (a *Arena) Get(id string) (*Body, bool) {
	i, ok := a.index[id]
	if !ok {
		return nil, false
	}
	return &a.bodies[i], true
}

// At returns the body at index i
func (a *Arena) At(i int) *Body {
	return &a.bodies[i]
}

// Len returns the number of bodies
func (a *Arena) Len() int {
	return len(a.bodies)
}

// Has reports whether id is in the arena
func (a *Arena) Has(id string) bool {
	_, ok := a.index[id]
	return ok
}

// Pin fixes the body at pos
func (a *Arena) Pin(id string, pos r2.Vec) bool {
	b, ok := a.Get(id)
	if !ok {
		return false
	}
	b.Pinned = true
	b.Fixed = pos
	b.Pos = pos
	b.Vel = r2.Vec{}
	return true
}

// Unpin releases the body to the simulation
func (a *Arena) Unpin(id string) bool {
	b, ok := a.Get(id)
	if !ok {
		return false
	}
	b.Pinned = false
	return true
}

// Bounds returns the bounding box of all bodies including their radii
func (a *Arena) Bounds() (lo, hi r2.Vec, ok bool) {
	if len(a.bodies) == 0 {
		return r2.Vec{}, r2.Vec{}, false
	}
	lo = r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi = r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	for i := range a.bodies {
		b := &a.bodies[i]
		lo.X = math.Min(lo.X, b.Pos.X-b.Radius)
		lo.Y = math.Min(lo.Y, b.Pos.Y-b.Radius)
		hi.X = math.Max(hi.X, b.Pos.X+b.Radius)
		hi.Y = math.Max(hi.Y, b.Pos.Y+b.Radius)
	}
	return lo, hi, true
}

// Ring returns n positions evenly spaced on a circle around center
func Ring(center r2.Vec, radius float64, n int) []r2.Vec {
	out := make([]r2.Vec, n)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		out[i] = r2.Vec{X: center.X + radius*math.Cos(a), Y: center.Y + radius*math.Sin(a)}
	}
	return out
}
