package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
)

func newTestSimulation(t *testing.T, cfg Config) *Simulation {
	return NewSimulation(cfg, zaptest.NewLogger(t).Sugar())
}

func TestSimulation_SettlesOnEachReheat(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("A", r2.Vec{X: 800, Y: 600}, 36)
	sim.Arena().Pin("A", r2.Vec{X: 800, Y: 600})
	sim.Arena().Add("B", r2.Vec{X: 820, Y: 600}, 18)

	settled := 0
	sim.OnSettle(func() { settled++ })

	assert.Equal(t, StateIdle, sim.State())
	assert.False(t, sim.Tick(), "idle simulation does not tick")

	sim.Reheat(1.0)
	assert.Equal(t, StateSettling, sim.State())
	n := sim.Run(10000)
	assert.InDelta(t, 300, n, 2)
	assert.Equal(t, StateIdle, sim.State())
	assert.Less(t, sim.Alpha(), 0.001)
	assert.Equal(t, 1, settled)

	sim.Reheat(0.3)
	sim.Run(10000)
	assert.Equal(t, 2, settled)
}

func TestSimulation_RunStopsAtMaxTicks(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("A", r2.Vec{}, 18)
	sim.Reheat(1.0)

	assert.Equal(t, 10, sim.Run(10))
	assert.Equal(t, StateSettling, sim.State())
}

func TestSimulation_RepulsionSeparates(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("A", r2.Vec{X: 0, Y: 0}, 18)
	sim.Arena().Add("B", r2.Vec{X: 10, Y: 0}, 18)
	sim.Reheat(1.0)

	sim.Tick()
	a, _ := sim.Arena().Get("A")
	b, _ := sim.Arena().Get("B")
	assert.Greater(t, r2.Norm(r2.Sub(b.Pos, a.Pos)), 10.0)
}

func TestSimulation_CoincidentBodiesSeparate(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	for _, id := range []string{"A", "B", "C"} {
		sim.Arena().Add(id, r2.Vec{X: 5, Y: 5}, 18)
	}
	sim.Reheat(1.0)
	sim.Run(50)

	a, _ := sim.Arena().Get("A")
	b, _ := sim.Arena().Get("B")
	assert.Greater(t, r2.Norm(r2.Sub(b.Pos, a.Pos)), 1.0)
}

func TestSimulation_SpringOnlyForIntraLinks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChargeStrength = 0
	cfg.ContainmentStrength = 0

	distanceAfterTick := func(rel Relation) float64 {
		sim := newTestSimulation(t, cfg)
		sim.Arena().Add("A", r2.Vec{X: 0, Y: 0}, 18)
		sim.Arena().Add("B", r2.Vec{X: 400, Y: 0}, 18)
		sim.SetLinks([]SimLink{{ID: graph.LinkID{Source: "A", Target: "B", Arrow: graph.ArrowBinds}, Relation: rel}})
		sim.Reheat(1.0)
		sim.Tick()
		a, _ := sim.Arena().Get("A")
		b, _ := sim.Arena().Get("B")
		return r2.Norm(r2.Sub(b.Pos, a.Pos))
	}

	assert.Less(t, distanceAfterTick(RelationIntra), 400.0)
	assert.InDelta(t, 400.0, distanceAfterTick(RelationInter), 1e-9)
	assert.InDelta(t, 400.0, distanceAfterTick(RelationIndirect), 1e-9)
}

func TestSimulation_PinnedBodiesStay(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("A", r2.Vec{X: 0, Y: 0}, 18)
	sim.Arena().Pin("A", r2.Vec{X: 0, Y: 0})
	sim.Arena().Add("B", r2.Vec{X: 5, Y: 0}, 18)
	sim.Reheat(1.0)
	sim.Run(100)

	a, _ := sim.Arena().Get("A")
	assert.Equal(t, r2.Vec{}, a.Pos)
}

func TestSimulation_ContainmentPushesOutOfInnerBand(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChargeStrength = 0
	sim := newTestSimulation(t, cfg)

	center := r2.Vec{X: 0, Y: 0}
	sim.Arena().Add("A", center, 28)
	sim.Arena().Pin("A", center)
	sim.Arena().Add("B", r2.Vec{X: 60, Y: 0}, 18)
	c := sim.Clusters().CreateCluster("A", center, 1)
	require.NoError(t, sim.Clusters().AddMember("A", "B"))

	sim.Reheat(1.0)
	sim.Run(cfg.MaxTicks)

	b, _ := sim.Arena().Get("B")
	assert.Greater(t, r2.Norm(b.Pos), 60.0)
	assert.Less(t, r2.Norm(b.Pos), c.Radius*1.5)
}

func TestSimulation_MediatorAttraction(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChargeStrength = 0
	cfg.ContainmentStrength = 0
	sim := newTestSimulation(t, cfg)

	sim.Arena().Add("A", r2.Vec{X: 0, Y: 0}, 18)
	sim.Arena().Pin("A", r2.Vec{})
	sim.Arena().Add("M", r2.Vec{X: 0, Y: 500}, 18)
	sim.Arena().Pin("M", r2.Vec{X: 0, Y: 500})
	sim.Arena().Add("T", r2.Vec{X: 500, Y: 0}, 18)
	sim.SetLinks([]SimLink{{
		ID:       graph.LinkID{Source: "A", Target: "T", Arrow: graph.ArrowActivates},
		Relation: RelationIndirect,
		Mediator: "M",
	}})
	sim.Reheat(1.0)
	sim.Tick()

	tb, _ := sim.Arena().Get("T")
	assert.Less(t, tb.Pos.X, 500.0)
	assert.Greater(t, tb.Pos.Y, 0.0)
}

func TestSimulation_DragAnchorCarriesCluster(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("B", r2.Vec{X: 100, Y: 100}, 28)
	sim.Arena().Pin("B", r2.Vec{X: 100, Y: 100})
	sim.Arena().Add("E", r2.Vec{X: 200, Y: 100}, 18)
	sim.Arena().Add("F", r2.Vec{X: 100, Y: 250}, 18)
	sim.Clusters().CreateCluster("B", r2.Vec{X: 100, Y: 100}, 2)
	require.NoError(t, sim.Clusters().AddMember("B", "E"))
	require.NoError(t, sim.Clusters().AddMember("B", "F"))

	require.NoError(t, sim.DragStart("B"))
	assert.Equal(t, StateSettling, sim.State())
	require.NoError(t, sim.DragTo("B", r2.Vec{X: 150, Y: 80}))

	b, _ := sim.Arena().Get("B")
	e, _ := sim.Arena().Get("E")
	f, _ := sim.Arena().Get("F")
	assert.Equal(t, r2.Vec{X: 150, Y: 80}, b.Pos)
	assert.Equal(t, r2.Vec{X: 150, Y: 80}, b.Fixed)
	assert.Equal(t, r2.Vec{X: 250, Y: 80}, e.Pos)
	assert.Equal(t, r2.Vec{X: 150, Y: 230}, f.Pos)
	c, _ := sim.Clusters().Get("B")
	assert.Equal(t, r2.Vec{X: 150, Y: 80}, c.Center)

	require.NoError(t, sim.DragEnd("B"))
	assert.True(t, b.Pinned, "anchors stay pinned")
	_, dragging := sim.Dragging()
	assert.False(t, dragging)
}

func TestSimulation_DragMemberPinsWhileDragging(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("E", r2.Vec{X: 0, Y: 0}, 18)

	require.NoError(t, sim.DragStart("E"))
	require.NoError(t, sim.DragTo("E", r2.Vec{X: 40, Y: 40}))
	sim.Tick()
	e, _ := sim.Arena().Get("E")
	assert.True(t, e.Pinned)
	assert.Equal(t, r2.Vec{X: 40, Y: 40}, e.Pos)

	// ticking continues while dragging
	for i := 0; i < 500; i++ {
		sim.Tick()
	}
	assert.Equal(t, StateSettling, sim.State())

	require.NoError(t, sim.DragEnd("E"))
	assert.False(t, e.Pinned)
	sim.Run(10000)
	assert.Equal(t, StateIdle, sim.State())
}

func TestSimulation_DragErrors(t *testing.T) {
	sim := newTestSimulation(t, DefaultConfig())
	sim.Arena().Add("E", r2.Vec{}, 18)
	sim.Arena().Add("F", r2.Vec{X: 50}, 18)

	assert.True(t, errors.Is(sim.DragStart("missing"), errors.ErrNotFound))
	assert.True(t, errors.Is(sim.DragTo("E", r2.Vec{}), errors.ErrConflict))

	require.NoError(t, sim.DragStart("E"))
	assert.True(t, errors.Is(sim.DragStart("F"), errors.ErrConflict))
	assert.True(t, errors.Is(sim.DragEnd("F"), errors.ErrConflict))
}
