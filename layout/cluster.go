package layout

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
)

// Relation is how a link sits relative to the cluster partition
type Relation string

const (
	RelationIntra    Relation = "intra"
	RelationInter    Relation = "inter"
	RelationIndirect Relation = "indirect"
	RelationShared   Relation = "shared"
)

// Cluster is an independently simulated region anchored at one node
type Cluster struct {
	ID     string // anchor node id
	Center r2.Vec
	Radius float64

	members map[string]struct{}
	links   map[graph.LinkID]struct{}
}

// Members returns member ids sorted, anchor included
func (c *Cluster) Members() []string {
	ids := make([]string, 0, len(c.members))
	for id := range c.members {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Has reports whether id is a member
func (c *Cluster) Has(id string) bool {
	_, ok := c.members[id]
	return ok
}

// Size returns the member count
func (c *Cluster) Size() int {
	return len(c.members)
}

// Links returns the intra-cluster link ids, sorted
func (c *Cluster) Links() []graph.LinkID {
	ids := make([]graph.LinkID, 0, len(c.links))
	for id := range c.links {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// ClusterManager maintains the partition of nodes into clusters
type ClusterManager struct {
	cfg      Config
	clusters map[string]*Cluster
	memberOf map[string]string
}

// NewClusterManager creates an empty partition
func NewClusterManager(cfg Config) *ClusterManager {
	return &ClusterManager{
		cfg:      cfg,
		clusters: make(map[string]*Cluster),
		memberOf: make(map[string]string),
	}
}

// CreateCluster registers a cluster anchored at anchorID and moves the anchor
// into it. An existing cluster for the anchor is returned unchanged.
func (m *ClusterManager) CreateCluster(anchorID string, center r2.Vec, expectedMembers int) *Cluster {
	if c, ok := m.clusters[anchorID]; ok {
		return c
	}
	c := &Cluster{
		ID:      anchorID,
		Center:  center,
		Radius:  m.cfg.ClusterRadius(expectedMembers),
		members: make(map[string]struct{}),
		links:   make(map[graph.LinkID]struct{}),
	}
	m.clusters[anchorID] = c
	m.move(anchorID, c)
	return c
}

// AddMember moves nodeID into the cluster anchored at clusterID
func (m *ClusterManager) AddMember(clusterID, nodeID string) error {
	c, ok := m.clusters[clusterID]
	if !ok {
		return errors.Wrapf(errors.ErrNotFound, "cluster %s", clusterID)
	}
	if _, anchors := m.clusters[nodeID]; anchors && nodeID != clusterID {
		return errors.Wrapf(errors.ErrConflict, "%s anchors its own cluster", nodeID)
	}
	m.move(nodeID, c)
	return nil
}

func (m *ClusterManager) move(nodeID string, to *Cluster) {
	if prev, ok := m.memberOf[nodeID]; ok {
		if pc, ok := m.clusters[prev]; ok {
			delete(pc.members, nodeID)
		}
	}
	to.members[nodeID] = struct{}{}
	m.memberOf[nodeID] = to.ID
}

// RemoveNode drops nodeID from whatever cluster holds it
func (m *ClusterManager) RemoveNode(nodeID string) {
	if cid, ok := m.memberOf[nodeID]; ok {
		if c, ok := m.clusters[cid]; ok {
			delete(c.members, nodeID)
		}
		delete(m.memberOf, nodeID)
	}
}

// ClusterOf returns the anchor id of the cluster holding nodeID
func (m *ClusterManager) ClusterOf(nodeID string) (string, bool) {
	cid, ok := m.memberOf[nodeID]
	return cid, ok
}

// Get returns the cluster anchored at id
func (m *ClusterManager) Get(id string) (*Cluster, bool) {
	c, ok := m.clusters[id]
	return c, ok
}

// IsAnchor reports whether nodeID anchors a cluster
func (m *ClusterManager) IsAnchor(nodeID string) bool {
	_, ok := m.clusters[nodeID]
	return ok
}

// Clusters returns all clusters sorted by anchor id
func (m *ClusterManager) Clusters() []*Cluster {
	out := make([]*Cluster, 0, len(m.clusters))
	for _, c := range m.clusters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of clusters
func (m *ClusterManager) Len() int {
	return len(m.clusters)
}

// Classify returns the relation of a link. Indirect and shared links keep
// their kind whatever clusters their endpoints are in.
func (m *ClusterManager) Classify(id graph.LinkID, class graph.Classification) Relation {
	switch class {
	case graph.ClassIndirect:
		return RelationIndirect
	case graph.ClassShared:
		return RelationShared
	}
	src, ok1 := m.memberOf[id.Source]
	tgt, ok2 := m.memberOf[id.Target]
	if ok1 && ok2 && src == tgt {
		return RelationIntra
	}
	return RelationInter
}

// ClassifyLinks classifies every link and rebuilds each cluster's local link set
func (m *ClusterManager) ClassifyLinks(links []*graph.Link) map[graph.LinkID]Relation {
	for _, c := range m.clusters {
		c.links = make(map[graph.LinkID]struct{})
	}
	out := make(map[graph.LinkID]Relation, len(links))
	for _, l := range links {
		rel := m.Classify(l.ID, l.Classification)
		out[l.ID] = rel
		if rel == RelationIntra {
			m.clusters[m.memberOf[l.ID.Source]].links[l.ID] = struct{}{}
		}
	}
	return out
}

// Dissolve removes the cluster anchored at anchorID and returns its members,
// anchor included, to the cluster anchored at rootID
func (m *ClusterManager) Dissolve(anchorID, rootID string) ([]string, error) {
	if anchorID == rootID {
		return nil, errors.Wrapf(errors.ErrConflict, "cannot dissolve root cluster %s", rootID)
	}
	c, ok := m.clusters[anchorID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "cluster %s", anchorID)
	}
	root, ok := m.clusters[rootID]
	if !ok {
		return nil, errors.Wrapf(errors.ErrNotFound, "root cluster %s", rootID)
	}

	moved := c.Members()
	delete(m.clusters, anchorID)
	for _, id := range moved {
		root.members[id] = struct{}{}
		m.memberOf[id] = rootID
	}
	return moved, nil
}

// RecomputeRadius resizes a cluster from its current member count. The radius
// never shrinks below what the cluster was created with.
func (m *ClusterManager) RecomputeRadius(anchorID string) (float64, error) {
	c, ok := m.clusters[anchorID]
	if !ok {
		return 0, errors.Wrapf(errors.ErrNotFound, "cluster %s", anchorID)
	}
	if r := m.cfg.ClusterRadius(c.Size()); r > c.Radius {
		c.Radius = r
	}
	return c.Radius, nil
}
