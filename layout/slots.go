package layout

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// SlotAllocator hands out positions on concentric rings around the canvas
// center for new cluster anchors. Ring k holds k*perRing slots.
type SlotAllocator struct {
	center  r2.Vec
	spacing float64
	perRing int

	used  map[int]string
	owner map[string]int
}

// NewSlotAllocator creates an allocator around center
func NewSlotAllocator(center r2.Vec, spacing float64, perRing int) *SlotAllocator {
	if perRing < 1 {
		perRing = 1
	}
	return &SlotAllocator{
		center:  center,
		spacing: spacing,
		perRing: perRing,
		used:    make(map[int]string),
		owner:   make(map[string]int),
	}
}

// Allocate returns the slot held by owner, taking the lowest free slot if it has none
func (s *SlotAllocator) Allocate(owner string) r2.Vec {
	if i, ok := s.owner[owner]; ok {
		return s.Position(i)
	}
	i := 0
	for {
		if _, taken := s.used[i]; !taken {
			break
		}
		i++
	}
	s.used[i] = owner
	s.owner[owner] = i
	return s.Position(i)
}

// Release frees the slot held by owner
func (s *SlotAllocator) Release(owner string) {
	if i, ok := s.owner[owner]; ok {
		delete(s.used, i)
		delete(s.owner, owner)
	}
}

// InUse returns the number of allocated slots
func (s *SlotAllocator) InUse() int {
	return len(s.used)
}

// Position returns the coordinates of slot i
func (s *SlotAllocator) Position(i int) r2.Vec {
	ring := 1
	for i >= ring*s.perRing {
		i -= ring * s.perRing
		ring++
	}
	n := ring * s.perRing
	// every second ring is rotated half a step so anchors do not line up radially
	angle := -math.Pi/2 + 2*math.Pi*float64(i)/float64(n)
	if ring%2 == 0 {
		angle += math.Pi / float64(n)
	}
	radius := float64(ring) * s.spacing
	return r2.Vec{
		X: s.center.X + radius*math.Cos(angle),
		Y: s.center.Y + radius*math.Sin(angle),
	}
}
