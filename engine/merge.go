package engine

import (
	"sort"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
	"github.com/aryanzandi123/yesah/layout"
	"github.com/aryanzandi123/yesah/logger"
)

// Subgraph is an externally supplied set of nodes and links to merge
type Subgraph struct {
	Nodes []graph.Node
	Links []*graph.Link
}

// SubgraphFromModel adapts a built model for merging
func SubgraphFromModel(m *graph.Model) Subgraph {
	return Subgraph{Nodes: m.Nodes, Links: m.Links}
}

// MergeResult describes what an expansion changed
type MergeResult struct {
	Owner   string
	Cluster string

	NewNodes []string
	NewLinks []graph.LinkID

	// Shared ids were already live; the expansion now also holds them
	SharedNodes []string
	SharedLinks []graph.LinkID
}

// CollapseResult describes what a collapse changed
type CollapseResult struct {
	Owner string
	// Cascaded lists expansions collapsed because their owner lost its
	// last path to the root
	Cascaded []string

	RemovedNodes []string
	RemovedLinks []graph.LinkID

	// Surviving nodes lost this expansion's hold but are still referenced
	Surviving []string

	Dissolved bool
	// Cancelled is set when the collapse abandoned a pending fetch
	Cancelled bool
}

// Changed reports whether the collapse did anything
func (r *CollapseResult) Changed() bool {
	return r.Cancelled || r.Dissolved || len(r.Cascaded) > 0 ||
		len(r.RemovedNodes) > 0 || len(r.RemovedLinks) > 0 || len(r.Surviving) > 0
}

func expansionError(sub, nodeID string, cause error) *grapherr.GraphError {
	return grapherr.New(grapherr.CategoryExpansion, errors.Wrapf(cause, "node %s", nodeID), "").
		WithSubcategory(sub).
		WithContext(logger.FieldNodeID, nodeID)
}

// checkExpandable rejects unknown, expanded and too-deep nodes
func (e *Engine) checkExpandable(nodeID string) error {
	if _, ok := e.nodes[nodeID]; !ok {
		return expansionError(grapherr.SubcategoryExpansionUnknownNode, nodeID, errors.ErrNotFound)
	}
	if _, ok := e.registry[nodeID]; ok {
		return expansionError(grapherr.SubcategoryExpansionAlreadyExpanded, nodeID, errors.ErrAlreadyExpanded)
	}
	if e.opts.MaxDepth > 0 && e.depths[nodeID] >= e.opts.MaxDepth {
		return expansionError(grapherr.SubcategoryExpansionDepthLimit, nodeID, errors.ErrDepthLimit).
			WithContext(logger.FieldDepth, e.depths[nodeID])
	}
	return nil
}

// Merge inserts sub as an expansion owned by nodeID. Only identities not
// already live are inserted; live ones outside the root graph gain a
// reference so they outlive the first of several expansions holding them.
// A rejected merge changes nothing.
func (e *Engine) Merge(nodeID string, sub Subgraph) (*MergeResult, error) {
	if err := e.checkExpandable(nodeID); err != nil {
		return nil, err
	}

	entry := &registryEntry{owner: nodeID, createdAt: time.Now()}
	res := &MergeResult{Owner: nodeID, Cluster: nodeID}

	seenNodes := make(map[string]bool)
	for _, n := range sub.Nodes {
		if n.ID == "" || n.ID == nodeID || seenNodes[n.ID] {
			continue
		}
		seenNodes[n.ID] = true

		if _, live := e.nodes[n.ID]; live {
			if e.protectedNodes[n.ID] {
				continue
			}
			e.nodeRefs[n.ID]++
			entry.nodes = append(entry.nodes, n.ID)
			res.SharedNodes = append(res.SharedNodes, n.ID)
			continue
		}

		label := n.Label
		if label == "" {
			label = n.ID
		}
		e.nodes[n.ID] = graph.Node{ID: n.ID, Role: graph.RoleMember, Label: label}
		e.nodeRefs[n.ID] = 1
		entry.nodes = append(entry.nodes, n.ID)
		res.NewNodes = append(res.NewNodes, n.ID)
	}

	seenLinks := make(map[graph.LinkID]bool)
	for _, l := range sub.Links {
		id := l.ID
		reversed := false
		if _, live := e.links[id]; !live {
			if _, rev := e.links[id.Reverse()]; rev {
				id = id.Reverse()
				reversed = true
			}
		}
		if seenLinks[id] {
			continue
		}
		seenLinks[id] = true

		if existing, live := e.links[id]; live {
			if reversed || l.Bidirectional {
				e.markBidirectional(entry, existing)
			}
			if e.protectedLinks[id] {
				continue
			}
			e.linkRefs[id]++
			entry.links = append(entry.links, id)
			res.SharedLinks = append(res.SharedLinks, id)
			continue
		}

		if !e.HasNode(id.Source) || !e.HasNode(id.Target) {
			e.logger.Warnw("Skipping subgraph link with unknown endpoint",
				logger.FieldNodeID, nodeID, logger.FieldLinkID, id.String())
			continue
		}
		cp := *l
		e.links[id] = &cp
		e.linkRefs[id] = 1
		entry.links = append(entry.links, id)
		res.NewLinks = append(res.NewLinks, id)
	}

	e.registry[nodeID] = entry
	e.placeExpansion(nodeID, res.NewNodes)
	e.refreshTopology()

	e.focus = res.NewNodes
	if len(e.focus) == 0 {
		e.focus = []string{nodeID}
	}
	e.sim.Reheat(e.opts.Layout.ReheatAlpha)
	e.throttle.Mark()

	e.logger.Infow("Merged expansion",
		logger.FieldNodeID, nodeID,
		"new_nodes", len(res.NewNodes),
		"new_links", len(res.NewLinks),
		"shared_nodes", len(res.SharedNodes),
		"shared_links", len(res.SharedLinks))
	return res, nil
}

// markBidirectional flags a live link an expansion also supplies in the
// other direction. The flag is counted per expansion and cleared when the
// last of them collapses; a link mutual on its own is left alone.
func (e *Engine) markBidirectional(entry *registryEntry, l *graph.Link) {
	if l.Bidirectional && e.reverseRefs[l.ID] == 0 {
		return
	}
	l.Bidirectional = true
	e.reverseRefs[l.ID]++
	entry.reversed = append(entry.reversed, l.ID)
}

// placeExpansion makes nodeID an anchor if it is not one yet and places the
// new nodes on its containment band
func (e *Engine) placeExpansion(nodeID string, newNodes []string) {
	cm := e.sim.Clusters()
	arena := e.sim.Arena()

	if !cm.IsAnchor(nodeID) {
		pos := e.slots.Allocate(nodeID)
		cm.CreateCluster(nodeID, pos, len(newNodes)+1)
		arena.Pin(nodeID, pos)
		if b, ok := arena.Get(nodeID); ok {
			b.Anchor = true
			b.Radius = e.radiusFor(nodeID)
		}
	}

	c, _ := cm.Get(nodeID)
	for _, id := range newNodes {
		if err := cm.AddMember(nodeID, id); err != nil {
			e.logger.Errorw("Failed to add cluster member", logger.FieldNodeID, id, logger.FieldError, err)
		}
	}
	_, _ = cm.RecomputeRadius(nodeID)

	for i, pos := range layout.Ring(c.Center, e.bandRadius(c), len(newNodes)) {
		arena.Add(newNodes[i], pos, e.opts.Layout.NodeRadius)
	}
}

// Collapse removes the expansion owned by nodeID. A pending fetch for the
// node is cancelled. Collapsing a node that owns nothing is a no-op.
// Expansions left without a path to the root collapse with it.
func (e *Engine) Collapse(nodeID string) (*CollapseResult, error) {
	res := &CollapseResult{Owner: nodeID}

	if req, ok := e.pending[nodeID]; ok {
		req.abort("collapsed")
		delete(e.pending, nodeID)
		res.Cancelled = true
		e.logger.Debugw("Cancelled pending expansion",
			logger.FieldNodeID, nodeID, logger.FieldRequestID, req.ID)
	}

	entry, ok := e.registry[nodeID]
	if !ok {
		return res, nil
	}

	e.collapseEntry(entry, res)
	e.collapseStranded(res)
	e.refreshTopology()
	e.sim.Reheat(e.opts.Layout.ReheatAlpha)
	e.throttle.Mark()

	e.logger.Infow("Collapsed expansion",
		logger.FieldNodeID, nodeID,
		"cascaded", len(res.Cascaded),
		"removed_nodes", len(res.RemovedNodes),
		"removed_links", len(res.RemovedLinks),
		"surviving", len(res.Surviving))
	return res, nil
}

func (e *Engine) collapseEntry(entry *registryEntry, res *CollapseResult) {
	owner := entry.owner
	delete(e.registry, owner)

	for _, id := range entry.reversed {
		n, ok := e.reverseRefs[id]
		if !ok {
			continue
		}
		if n > 1 {
			e.reverseRefs[id] = n - 1
			continue
		}
		delete(e.reverseRefs, id)
		if l, ok := e.links[id]; ok {
			l.Bidirectional = false
		}
	}

	candidates := map[string]bool{owner: true}
	for _, id := range entry.links {
		if e.protectedLinks[id] {
			continue
		}
		e.linkRefs[id]--
		if e.linkRefs[id] > 0 {
			continue
		}
		delete(e.linkRefs, id)
		if _, ok := e.links[id]; ok {
			e.removeLink(id)
			res.RemovedLinks = append(res.RemovedLinks, id)
			candidates[id.Source] = true
			candidates[id.Target] = true
		}
	}
	for _, id := range entry.nodes {
		if e.protectedNodes[id] {
			continue
		}
		if e.nodeRefs[id] > 0 {
			e.nodeRefs[id]--
		}
		candidates[id] = true
	}

	if owner != e.root && e.sim.Clusters().IsAnchor(owner) {
		e.dissolve(owner)
		res.Dissolved = true
	}

	ids := make([]string, 0, len(candidates))
	for id := range candidates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		e.sweepNode(id, owner, res)
	}
}

// sweepNode removes a node nothing holds any more: no expansion reference,
// not part of the root graph, no live link touching it
func (e *Engine) sweepNode(id, owner string, res *CollapseResult) {
	if id == e.root || e.protectedNodes[id] {
		return
	}
	if _, ok := e.nodes[id]; !ok {
		return
	}
	if e.nodeRefs[id] > 0 || e.touched(id) {
		if id != owner {
			res.Surviving = append(res.Surviving, id)
		}
		return
	}
	if _, expanded := e.registry[id]; expanded {
		// its own expansion keeps it
		res.Surviving = append(res.Surviving, id)
		return
	}

	e.removeNode(id)
	res.RemovedNodes = append(res.RemovedNodes, id)
}

// collapseStranded collapses every expansion whose owner no longer reaches
// the root, round by round until none is left. Nodes still cut off after
// that are dropped along with their links.
func (e *Engine) collapseStranded(res *CollapseResult) {
	for {
		reach := e.reachable()
		var stranded []string
		for owner := range e.registry {
			if !reach[owner] {
				stranded = append(stranded, owner)
			}
		}
		if len(stranded) == 0 {
			break
		}
		sort.Strings(stranded)
		for _, owner := range stranded {
			entry, ok := e.registry[owner]
			if !ok {
				continue
			}
			e.logger.Debugw("Collapsing stranded expansion",
				logger.FieldNodeID, owner, "trigger", res.Owner)
			res.Cascaded = append(res.Cascaded, owner)
			e.collapseEntry(entry, res)
		}
	}

	reach := e.reachable()
	for _, id := range e.LinkIDs() {
		if reach[id.Source] || e.protectedLinks[id] {
			continue
		}
		e.removeLink(id)
		res.RemovedLinks = append(res.RemovedLinks, id)
	}
	for _, id := range e.nodeIDs() {
		if reach[id] || id == e.root || e.protectedNodes[id] {
			continue
		}
		e.removeNode(id)
		res.RemovedNodes = append(res.RemovedNodes, id)
	}

	removed := make(map[string]bool, len(res.RemovedNodes))
	for _, id := range res.RemovedNodes {
		removed[id] = true
	}
	surviving := res.Surviving[:0]
	for _, id := range res.Surviving {
		if !removed[id] {
			surviving = append(surviving, id)
			removed[id] = true
		}
	}
	res.Surviving = surviving
}

// reachable reports which live nodes have a path to the root
func (e *Engine) reachable() map[string]bool {
	return graph.Reachable(e.root, e.nodeIDs(), e.LinkIDs())
}

// removeLink deletes a link and every expansion's hold on it
func (e *Engine) removeLink(id graph.LinkID) {
	delete(e.links, id)
	delete(e.linkRefs, id)
	delete(e.reverseRefs, id)
	for _, entry := range e.registry {
		entry.links = withoutLink(entry.links, id)
		entry.reversed = withoutLink(entry.reversed, id)
	}
}

// removeNode deletes a node from the graph, the layout and every expansion
func (e *Engine) removeNode(id string) {
	delete(e.nodes, id)
	delete(e.nodeRefs, id)
	delete(e.depths, id)
	for _, entry := range e.registry {
		entry.nodes = withoutNode(entry.nodes, id)
	}
	e.sim.Arena().Remove(id)
	e.sim.Clusters().RemoveNode(id)
	e.slots.Release(id)
}

func withoutLink(ids []graph.LinkID, id graph.LinkID) []graph.LinkID {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

func withoutNode(ids []string, id string) []string {
	out := ids[:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}

// dissolve returns an anchor's cluster to the root cluster, releases its pin
// and moves it next to the root anchor
func (e *Engine) dissolve(anchorID string) {
	cm := e.sim.Clusters()
	moved, err := cm.Dissolve(anchorID, e.root)
	if err != nil {
		e.logger.Errorw("Failed to dissolve cluster", logger.FieldClusterID, anchorID, logger.FieldError, err)
		return
	}
	e.slots.Release(anchorID)

	arena := e.sim.Arena()
	arena.Unpin(anchorID)
	b, ok := arena.Get(anchorID)
	if !ok {
		return
	}
	b.Anchor = false
	b.Radius = e.radiusFor(anchorID)

	if rc, ok := cm.Get(e.root); ok {
		dir := unitToward(rc.Center, b.Pos)
		b.Pos = r2.Add(rc.Center, r2.Scale(e.bandRadius(rc), dir))
		b.Vel = r2.Vec{}
	}

	e.logger.Debugw("Dissolved cluster",
		logger.FieldClusterID, anchorID,
		logger.FieldCount, len(moved))
}
