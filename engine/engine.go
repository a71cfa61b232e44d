// Package engine owns the live interaction graph of one view: its nodes and
// links, the expansion registry and reference counts, the cluster layout and
// the force simulation. An Engine is not safe for concurrent use; all calls
// must come from the goroutine that owns it. Provider fetches run elsewhere
// and come back through Deliveries.
package engine

import (
	"math"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/layout"
	"github.com/aryanzandi123/yesah/logger"
	"github.com/aryanzandi123/yesah/provider"
)

// registryEntry records what one expansion introduced
type registryEntry struct {
	owner     string
	nodes     []string
	links     []graph.LinkID
	reversed  []graph.LinkID // live links this expansion made bidirectional
	createdAt time.Time
}

// Engine is the state of one graph view
type Engine struct {
	opts    Options
	logger  *zap.SugaredLogger
	builder *graph.Builder

	root   string
	nodes  map[string]graph.Node
	links  map[graph.LinkID]*graph.Link
	depths map[string]int
	report graph.BuildReport

	// the initial build; never collapsed, never refcounted
	protectedNodes map[string]bool
	protectedLinks map[graph.LinkID]bool

	registry    map[string]*registryEntry
	nodeRefs    map[string]int
	linkRefs    map[graph.LinkID]int
	reverseRefs map[graph.LinkID]int

	sim       *layout.Simulation
	slots     *layout.SlotAllocator
	relations map[graph.LinkID]layout.Relation

	provider   provider.Provider
	pending    map[string]*Request
	deliveries chan Delivery
	done       chan struct{}
	closeOnce  sync.Once

	throttle   *FrameThrottle
	settleSubs []func(SettleEvent)
	focus      []string
	settles    int
}

// New creates an engine around a built model. prov may be nil when the view
// never expands.
func New(model *graph.Model, prov provider.Provider, opts Options, log *zap.SugaredLogger) *Engine {
	e := &Engine{
		opts:           opts,
		logger:         log.Named("engine"),
		builder:        graph.NewBuilder(log).WithArrowContext(opts.ArrowContext),
		root:           model.Root,
		nodes:          make(map[string]graph.Node, len(model.Nodes)),
		links:          make(map[graph.LinkID]*graph.Link, len(model.Links)),
		report:         model.Report,
		protectedNodes: make(map[string]bool, len(model.Nodes)),
		protectedLinks: make(map[graph.LinkID]bool, len(model.Links)),
		registry:       make(map[string]*registryEntry),
		nodeRefs:       make(map[string]int),
		linkRefs:       make(map[graph.LinkID]int),
		reverseRefs:    make(map[graph.LinkID]int),
		sim:            layout.NewSimulation(opts.Layout, log),
		slots:          layout.NewSlotAllocator(opts.Layout.Center(), opts.Layout.SlotRingSpacing, opts.Layout.SlotsPerRing),
		provider:       prov,
		pending:        make(map[string]*Request),
		deliveries:     make(chan Delivery, 16),
		done:           make(chan struct{}),
		throttle:       NewFrameThrottle(opts.FrameRate),
	}

	for _, n := range model.Nodes {
		e.nodes[n.ID] = n
		e.protectedNodes[n.ID] = true
	}
	for _, l := range model.Links {
		cp := *l
		e.links[l.ID] = &cp
		e.protectedLinks[l.ID] = true
	}

	e.placeInitial(model.Depths)
	e.refreshTopology()
	e.sim.OnSettle(e.handleSettle)
	e.sim.Reheat(opts.Layout.InitialAlpha)
	e.throttle.Mark()

	e.logger.Infow("Engine ready",
		logger.FieldRoot, e.root,
		logger.FieldNodeCount, len(e.nodes),
		logger.FieldLinkCount, len(e.links))
	return e
}

// placeInitial seeds the root cluster: the root pinned at the canvas center
// and every other node on a ring per depth inside the containment band
func (e *Engine) placeInitial(depths map[string]int) {
	cfg := e.opts.Layout
	center := cfg.Center()
	cm := e.sim.Clusters()
	arena := e.sim.Arena()

	c := cm.CreateCluster(e.root, center, len(e.nodes)-1)
	arena.Add(e.root, center, cfg.RootRadius)
	arena.Pin(e.root, center)
	if b, ok := arena.Get(e.root); ok {
		b.Anchor = true
	}

	byDepth := make(map[int][]string)
	maxDepth := 1
	for _, n := range e.sortedNodes() {
		if n.ID == e.root {
			continue
		}
		d, ok := depths[n.ID]
		if !ok || d < 1 {
			d = graph.UnreachableDepth
		}
		byDepth[d] = append(byDepth[d], n.ID)
		if d > maxDepth {
			maxDepth = d
		}
	}

	for d := 1; d <= maxDepth; d++ {
		ids := byDepth[d]
		if len(ids) == 0 {
			continue
		}
		frac := cfg.InnerFraction + (1-cfg.InnerFraction)*float64(d)/float64(maxDepth+1)
		for i, pos := range layout.Ring(center, c.Radius*frac, len(ids)) {
			arena.Add(ids[i], pos, cfg.NodeRadius)
			_ = cm.AddMember(e.root, ids[i])
		}
	}
}

// refreshTopology recomputes depths and link relations after the node or
// link set changed and hands the new link set to the simulation
func (e *Engine) refreshTopology() {
	links := e.sortedLinks()
	ids := make([]graph.LinkID, len(links))
	for i, l := range links {
		ids[i] = l.ID
	}
	e.depths = graph.CalculateDepths(e.root, e.nodeIDs(), ids)
	e.relations = e.sim.Clusters().ClassifyLinks(links)

	simLinks := make([]layout.SimLink, 0, len(links))
	for _, l := range links {
		sl := layout.SimLink{ID: l.ID, Relation: e.relations[l.ID]}
		if l.IsIndirect() && !l.Incomplete {
			sl.Mediator = l.Mediator
		}
		simLinks = append(simLinks, sl)
	}
	e.sim.SetLinks(simLinks)
}

// Root returns the root node id
func (e *Engine) Root() string {
	return e.root
}

// Nodes returns the live nodes, root first then by id
func (e *Engine) Nodes() []graph.Node {
	return e.sortedNodes()
}

// Links returns copies of the live links sorted by identity
func (e *Engine) Links() []graph.Link {
	links := e.sortedLinks()
	out := make([]graph.Link, len(links))
	for i, l := range links {
		out[i] = *l
	}
	return out
}

// NodeIDs returns the live node ids, root first then sorted
func (e *Engine) NodeIDs() []string {
	return e.nodeIDs()
}

// LinkIDs returns the live link identities sorted
func (e *Engine) LinkIDs() []graph.LinkID {
	links := e.sortedLinks()
	ids := make([]graph.LinkID, len(links))
	for i, l := range links {
		ids[i] = l.ID
	}
	return ids
}

// HasNode reports whether id is live
func (e *Engine) HasNode(id string) bool {
	_, ok := e.nodes[id]
	return ok
}

// Depth returns the BFS depth of a live node
func (e *Engine) Depth(id string) (int, bool) {
	if _, ok := e.nodes[id]; !ok {
		return 0, false
	}
	d, ok := e.depths[id]
	return d, ok
}

// Cluster returns the anchor id of the cluster holding a live node
func (e *Engine) Cluster(id string) (string, bool) {
	return e.sim.Clusters().ClusterOf(id)
}

// Relation returns how a live link sits relative to the clusters
func (e *Engine) Relation(id graph.LinkID) (layout.Relation, bool) {
	r, ok := e.relations[id]
	return r, ok
}

// Position returns the current position of a live node
func (e *Engine) Position(id string) (r2.Vec, bool) {
	b, ok := e.sim.Arena().Get(id)
	if !ok {
		return r2.Vec{}, false
	}
	return b.Pos, true
}

// IsPinned reports whether a node is held in place
func (e *Engine) IsPinned(id string) bool {
	b, ok := e.sim.Arena().Get(id)
	return ok && b.Pinned
}

// IsExpanded reports whether id owns a live expansion
func (e *Engine) IsExpanded(id string) bool {
	_, ok := e.registry[id]
	return ok
}

// IsPending reports whether an expansion fetch for id is in flight
func (e *Engine) IsPending(id string) bool {
	_, ok := e.pending[id]
	return ok
}

// IsProtected reports whether id belongs to the initial root graph
func (e *Engine) IsProtected(id string) bool {
	return e.protectedNodes[id]
}

// RefCount returns the number of live expansions holding a node
func (e *Engine) RefCount(id string) int {
	return e.nodeRefs[id]
}

// LinkRefCount returns the number of live expansions holding a link
func (e *Engine) LinkRefCount(id graph.LinkID) int {
	return e.linkRefs[id]
}

// Expanded returns the owners of live expansions, sorted
func (e *Engine) Expanded() []string {
	ids := make([]string, 0, len(e.registry))
	for id := range e.registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Report returns the build report of the initial graph
func (e *Engine) Report() graph.BuildReport {
	return e.report
}

// Simulation exposes the layout simulation
func (e *Engine) Simulation() *layout.Simulation {
	return e.sim
}

func (e *Engine) nodeIDs() []string {
	nodes := e.sortedNodes()
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func (e *Engine) sortedNodes() []graph.Node {
	out := make([]graph.Node, 0, len(e.nodes))
	for _, n := range e.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		if (out[i].ID == e.root) != (out[j].ID == e.root) {
			return out[i].ID == e.root
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (e *Engine) sortedLinks() []*graph.Link {
	out := make([]*graph.Link, 0, len(e.links))
	for _, l := range e.links {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// touched reports whether any live link has id as an endpoint
func (e *Engine) touched(id string) bool {
	for lid := range e.links {
		if lid.Touches(id) {
			return true
		}
	}
	return false
}

func (e *Engine) radiusFor(id string) float64 {
	switch {
	case id == e.root:
		return e.opts.Layout.RootRadius
	case e.sim.Clusters().IsAnchor(id):
		return e.opts.Layout.AnchorRadius
	default:
		return e.opts.Layout.NodeRadius
	}
}

// bandRadius is the distance from an anchor at which new members are placed
func (e *Engine) bandRadius(c *layout.Cluster) float64 {
	return c.Radius * (1 + e.opts.Layout.InnerFraction) / 2
}

// unitToward returns the unit vector from a to b, or +x when they coincide
func unitToward(a, b r2.Vec) r2.Vec {
	d := r2.Sub(b, a)
	n := r2.Norm(d)
	if n == 0 || math.IsNaN(n) {
		return r2.Vec{X: 1}
	}
	return r2.Scale(1/n, d)
}

// Close abandons in-flight fetches. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.closeOnce.Do(func() {
		close(e.done)
		for id, req := range e.pending {
			req.abort("engine closed")
			delete(e.pending, id)
		}
	})
}
