package engine

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/logger"
)

// SettleEvent is published every time the layout comes to rest
type SettleEvent struct {
	Root string
	// Focus lists the nodes the view should recenter on: those inserted by
	// the last merge, or every node on the first settle
	Focus []string
	Min   r2.Vec
	Max   r2.Vec
	Ticks int
	// First is set on the first settle of the view, when it should fit everything
	First bool
}

// OnSettle subscribes fn to settle events
func (e *Engine) OnSettle(fn func(SettleEvent)) {
	e.settleSubs = append(e.settleSubs, fn)
}

func (e *Engine) handleSettle() {
	e.settles++
	ev := SettleEvent{
		Root:  e.root,
		Ticks: e.sim.Ticks(),
		First: e.settles == 1,
	}

	if ev.First || len(e.focus) == 0 {
		ev.Focus = e.nodeIDs()
	} else {
		ev.Focus = e.focus
	}
	e.focus = nil
	ev.Min, ev.Max = e.bounds(ev.Focus)

	e.logger.Debugw("Layout settled",
		logger.FieldTick, ev.Ticks,
		logger.FieldCount, len(ev.Focus))
	for _, fn := range e.settleSubs {
		fn(ev)
	}
}

// bounds returns the box around the given nodes including their radii
func (e *Engine) bounds(ids []string) (lo, hi r2.Vec) {
	lo = r2.Vec{X: math.Inf(1), Y: math.Inf(1)}
	hi = r2.Vec{X: math.Inf(-1), Y: math.Inf(-1)}
	found := false
	for _, id := range ids {
		b, ok := e.sim.Arena().Get(id)
		if !ok {
			continue
		}
		found = true
		lo.X = math.Min(lo.X, b.Pos.X-b.Radius)
		lo.Y = math.Min(lo.Y, b.Pos.Y-b.Radius)
		hi.X = math.Max(hi.X, b.Pos.X+b.Radius)
		hi.Y = math.Max(hi.Y, b.Pos.Y+b.Radius)
	}
	if !found {
		return r2.Vec{}, r2.Vec{}
	}
	return lo, hi
}

// DragStart begins dragging a node
func (e *Engine) DragStart(id string) error {
	if !e.HasNode(id) {
		return errors.Wrapf(errors.ErrNotFound, "node %s", id)
	}
	e.throttle.Mark()
	return e.sim.DragStart(id)
}

// DragTo moves the dragged node
func (e *Engine) DragTo(id string, x, y float64) error {
	e.throttle.Mark()
	return e.sim.DragTo(id, r2.Vec{X: x, Y: y})
}

// DragEnd releases the dragged node
func (e *Engine) DragEnd(id string) error {
	e.throttle.Mark()
	return e.sim.DragEnd(id)
}
