package graph

import (
	"sort"

	gg "gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"
)

// CalculateDepths assigns every node its BFS distance from root, treating
// links as undirected. Nodes the walk cannot reach get UnreachableDepth.
// Depth values embedded in records are never consulted.
func CalculateDepths(root string, nodes []string, links []LinkID) map[string]int {
	depths := bfsDepths(root, nodes, links)
	for _, id := range nodes {
		if _, ok := depths[id]; !ok {
			depths[id] = UnreachableDepth
		}
	}
	return depths
}

// bfsDepths returns depths only for nodes reachable from root
func bfsDepths(root string, nodes []string, links []LinkID) map[string]int {
	g := simple.NewUndirectedGraph()
	index := make(map[string]int64, len(nodes)+1)
	names := make(map[int64]string, len(nodes)+1)

	idOf := func(name string) int64 {
		if id, ok := index[name]; ok {
			return id
		}
		id := int64(len(index))
		index[name] = id
		names[id] = name
		g.AddNode(simple.Node(id))
		return id
	}

	rootID := idOf(root)
	for _, n := range nodes {
		idOf(n)
	}
	for _, l := range links {
		if l.Source == l.Target {
			continue
		}
		u, v := idOf(l.Source), idOf(l.Target)
		g.SetEdge(simple.Edge{F: simple.Node(u), T: simple.Node(v)})
	}

	depths := make(map[string]int, len(index))
	var bf traverse.BreadthFirst
	bf.Walk(g, simple.Node(rootID), func(n gg.Node, d int) bool {
		depths[names[n.ID()]] = d
		return false
	})
	return depths
}

// Reachable reports which nodes have a path to root
func Reachable(root string, nodes []string, links []LinkID) map[string]bool {
	out := make(map[string]bool, len(nodes))
	for id := range bfsDepths(root, nodes, links) {
		out[id] = true
	}
	return out
}

// FilterByDepth returns the ids with depth <= maxDepth, sorted by depth then id
func FilterByDepth(depths map[string]int, maxDepth int) []string {
	var ids []string
	for id, d := range depths {
		if d <= maxDepth {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool {
		if depths[ids[i]] != depths[ids[j]] {
			return depths[ids[i]] < depths[ids[j]]
		}
		return ids[i] < ids[j]
	})
	return ids
}
