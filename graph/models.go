package graph

import (
	"sort"
	"time"
)

// Graph is the complete positioned snapshot sent to the presentation layer
type Graph struct {
	Nodes []SnapshotNode `json:"nodes"`
	Links []SnapshotLink `json:"links"`
	Meta  Meta           `json:"meta"`
}

// SnapshotNode is a node with its current layout state
type SnapshotNode struct {
	ID       string  `json:"id"`
	Label    string  `json:"label"`
	Role     Role    `json:"role"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Radius   float64 `json:"radius"`
	Cluster  string  `json:"cluster,omitempty"` // anchor id of the owning cluster
	Depth    int     `json:"depth"`
	Anchor   bool    `json:"anchor,omitempty"`
	Pinned   bool    `json:"pinned,omitempty"`
	Expanded bool    `json:"expanded,omitempty"`
	Pending  bool    `json:"pending,omitempty"` // expansion fetch in flight
}

// SnapshotLink is a link with its rendered path
type SnapshotLink struct {
	Source          string         `json:"source"`
	Target          string         `json:"target"`
	Arrow           Arrow          `json:"arrow"`
	Effect          string         `json:"effect"`
	Type            Classification `json:"type"`
	ClusterRelation string         `json:"cluster_relation,omitempty"` // intra, inter, indirect, shared
	Weight          float64        `json:"value"`                      // confidence; D3 uses "value"
	Bidirectional   bool           `json:"bidirectional,omitempty"`
	Incomplete      bool           `json:"incomplete,omitempty"`
	MissingMediator string         `json:"missing_mediator,omitempty"`
	Mediator        string         `json:"mediator,omitempty"`
	Synthetic       bool           `json:"synthetic,omitempty"`
	ArrowAmbiguous  bool           `json:"arrow_ambiguous,omitempty"`
	Badge           string         `json:"badge,omitempty"`
	Path            string         `json:"path"`
}

// Meta contains metadata about the snapshot
type Meta struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Root        string              `json:"root"`
	Stats       Stats               `json:"stats"`
	Config      map[string]string   `json:"config,omitempty"`
	ArrowTypes  []ArrowTypeInfo     `json:"arrow_types"`
	Errors      []map[string]string `json:"errors,omitempty"`
}

// ArrowTypeInfo describes one arrow type present in the snapshot
type ArrowTypeInfo struct {
	Arrow Arrow  `json:"arrow"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
	Count int    `json:"count"`
}

// Stats provides snapshot statistics
type Stats struct {
	TotalNodes int `json:"total_nodes"`
	TotalEdges int `json:"total_edges"`
	Clusters   int `json:"clusters"`
	Expanded   int `json:"expanded"`
	Incomplete int `json:"incomplete"`
}

// arrowColors matches the legend colors of the viewer
var arrowColors = map[Arrow]string{
	ArrowActivates: "#059669",
	ArrowInhibits:  "#dc2626",
	ArrowBinds:     "#7c3aed",
	ArrowRegulates: "#d97706",
}

// CollectArrowTypes counts arrow types across links, most common first
func CollectArrowTypes(links []SnapshotLink) []ArrowTypeInfo {
	counts := make(map[Arrow]int)
	for _, l := range links {
		counts[l.Arrow]++
	}

	infos := make([]ArrowTypeInfo, 0, len(counts))
	for arrow, count := range counts {
		infos = append(infos, ArrowTypeInfo{
			Arrow: arrow,
			Label: EffectLabel(string(arrow)),
			Color: arrowColors[arrow],
			Count: count,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Count != infos[j].Count {
			return infos[i].Count > infos[j].Count
		}
		return infos[i].Arrow < infos[j].Arrow
	})
	return infos
}
