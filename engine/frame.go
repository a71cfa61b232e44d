package engine

import (
	"time"

	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/layout"
)

// FrameThrottle lets at most one position snapshot out per frame interval,
// however many ticks ran in between
type FrameThrottle struct {
	interval time.Duration
	last     time.Time
	dirty    bool
}

// NewFrameThrottle creates a throttle for fps frames per second. fps <= 0
// emits on every change.
func NewFrameThrottle(fps int) *FrameThrottle {
	t := &FrameThrottle{}
	if fps > 0 {
		t.interval = time.Second / time.Duration(fps)
	}
	return t
}

// Mark records that positions changed
func (t *FrameThrottle) Mark() {
	t.dirty = true
}

// Ready reports whether a frame should be emitted at now, consuming the change
func (t *FrameThrottle) Ready(now time.Time) bool {
	if !t.dirty {
		return false
	}
	if !t.last.IsZero() && now.Sub(t.last) < t.interval {
		return false
	}
	t.last = now
	t.dirty = false
	return true
}

// Tick advances the simulation one step and reports whether it is still settling
func (e *Engine) Tick() bool {
	if e.sim.State() == layout.StateIdle {
		return false
	}
	moving := e.sim.Tick()
	e.throttle.Mark()
	return moving
}

// Settle runs the simulation until idle or the configured tick cap
func (e *Engine) Settle() int {
	n := 0
	for n < e.opts.Layout.MaxTicks && e.Tick() {
		n++
	}
	return n
}

// Frame returns a snapshot when positions changed and a frame is due
func (e *Engine) Frame(now time.Time) (*graph.Graph, bool) {
	if !e.throttle.Ready(now) {
		return nil, false
	}
	g := e.Snapshot()
	return &g, true
}

// Snapshot renders the live graph with positions and link paths
func (e *Engine) Snapshot() graph.Graph {
	arena := e.sim.Arena()
	cm := e.sim.Clusters()

	nodes := e.sortedNodes()
	out := graph.Graph{
		Nodes: make([]graph.SnapshotNode, 0, len(nodes)),
		Links: make([]graph.SnapshotLink, 0, len(e.links)),
	}

	for _, n := range nodes {
		sn := graph.SnapshotNode{
			ID:       n.ID,
			Label:    n.Label,
			Role:     n.Role,
			Depth:    e.depths[n.ID],
			Expanded: e.IsExpanded(n.ID),
			Pending:  e.IsPending(n.ID),
		}
		if b, ok := arena.Get(n.ID); ok {
			sn.X, sn.Y = b.Pos.X, b.Pos.Y
			sn.Radius = b.Radius
			sn.Pinned = b.Pinned
			sn.Anchor = b.Anchor
		}
		sn.Cluster, _ = cm.ClusterOf(n.ID)
		out.Nodes = append(out.Nodes, sn)
	}

	center := e.opts.Layout.Center()
	incomplete := 0
	for _, l := range e.sortedLinks() {
		src, ok1 := arena.Get(l.ID.Source)
		tgt, ok2 := arena.Get(l.ID.Target)
		if !ok1 || !ok2 {
			continue
		}
		rel := e.relations[l.ID]
		path := graph.LinkPath(src.Pos, tgt.Pos, src.Radius, tgt.Radius, graph.PathOptions{
			Bidirectional:       l.Bidirectional,
			CrossCluster:        rel == layout.RelationShared,
			Center:              center,
			BidirectionalOffset: e.opts.BidirectionalOffset,
			CrossClusterBend:    e.opts.CrossClusterBend,
		})
		if l.Incomplete {
			incomplete++
		}
		out.Links = append(out.Links, graph.SnapshotLink{
			Source:          l.ID.Source,
			Target:          l.ID.Target,
			Arrow:           l.ID.Arrow,
			Effect:          graph.EffectLabel(string(l.ID.Arrow)),
			Type:            l.Classification,
			ClusterRelation: string(rel),
			Weight:          l.Confidence,
			Bidirectional:   l.Bidirectional,
			Incomplete:      l.Incomplete,
			MissingMediator: l.MissingMediator,
			Mediator:        l.Mediator,
			Synthetic:       l.Synthetic,
			ArrowAmbiguous:  l.ArrowAmbiguous,
			Badge:           l.Badge,
			Path:            path.SVG(),
		})
	}

	out.Meta = graph.Meta{
		GeneratedAt: time.Now(),
		Root:        e.root,
		Stats: graph.Stats{
			TotalNodes: len(out.Nodes),
			TotalEdges: len(out.Links),
			Clusters:   cm.Len(),
			Expanded:   len(e.registry),
			Incomplete: incomplete,
		},
		ArrowTypes: graph.CollectArrowTypes(out.Links),
	}
	for _, p := range e.report.Problems {
		out.Meta.Errors = append(out.Meta.Errors, p.ToGraphMeta())
	}
	return out
}
