package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r2"
)

func TestArena_AddIsIdempotent(t *testing.T) {
	a := NewArena()
	i := a.Add("A", r2.Vec{X: 1, Y: 2}, 10)
	j := a.Add("A", r2.Vec{X: 5, Y: 5}, 20)

	assert.Equal(t, i, j)
	assert.Equal(t, 1, a.Len())
	b, ok := a.Get("A")
	require.True(t, ok)
	assert.Equal(t, r2.Vec{X: 1, Y: 2}, b.Pos)
}

func TestArena_RemoveSwapsLast(t *testing.T) {
	a := NewArena()
	for _, id := range []string{"A", "B", "C", "D"} {
		a.Add(id, r2.Vec{}, 10)
	}

	require.True(t, a.Remove("B"))
	assert.False(t, a.Remove("B"))
	assert.Equal(t, 3, a.Len())

	idx, ok := a.Index("D")
	require.True(t, ok)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "D", a.At(idx).ID)

	for _, id := range []string{"A", "C", "D"} {
		i, ok := a.Index(id)
		require.True(t, ok, id)
		assert.Equal(t, id, a.At(i).ID)
	}
	assert.False(t, a.Has("B"))
}

func TestArena_RemoveLast(t *testing.T) {
	a := NewArena()
	a.Add("A", r2.Vec{}, 10)
	a.Add("B", r2.Vec{}, 10)

	require.True(t, a.Remove("B"))
	i, ok := a.Index("A")
	require.True(t, ok)
	assert.Equal(t, 0, i)
}

func TestArena_PinUnpin(t *testing.T) {
	a := NewArena()
	a.Add("A", r2.Vec{X: 1, Y: 1}, 10)
	a.At(0).Vel = r2.Vec{X: 3, Y: 3}

	require.True(t, a.Pin("A", r2.Vec{X: 50, Y: 60}))
	b, _ := a.Get("A")
	assert.True(t, b.Pinned)
	assert.Equal(t, r2.Vec{X: 50, Y: 60}, b.Pos)
	assert.Equal(t, r2.Vec{}, b.Vel)

	require.True(t, a.Unpin("A"))
	assert.False(t, b.Pinned)
	assert.False(t, a.Pin("missing", r2.Vec{}))
}

func TestArena_Bounds(t *testing.T) {
	a := NewArena()
	_, _, ok := a.Bounds()
	assert.False(t, ok)

	a.Add("A", r2.Vec{X: 0, Y: 0}, 10)
	a.Add("B", r2.Vec{X: 100, Y: 50}, 5)
	lo, hi, ok := a.Bounds()
	require.True(t, ok)
	assert.Equal(t, r2.Vec{X: -10, Y: -10}, lo)
	assert.Equal(t, r2.Vec{X: 105, Y: 55}, hi)
}

func TestRing(t *testing.T) {
	pts := Ring(r2.Vec{}, 100, 4)
	require.Len(t, pts, 4)
	for _, p := range pts {
		assert.InDelta(t, 100, r2.Norm(p), 1e-9)
	}
	assert.InDelta(t, 100, pts[0].X, 1e-9)
}
