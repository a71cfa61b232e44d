package graph

import "fmt"

// Role distinguishes the query protein from everything else
type Role string

const (
	RoleRoot   Role = "root"
	RoleMember Role = "member"
)

// Arrow is the resolved semantic effect of a link
type Arrow string

const (
	ArrowActivates Arrow = "activates"
	ArrowInhibits  Arrow = "inhibits"
	ArrowBinds     Arrow = "binds"
	ArrowRegulates Arrow = "regulates"
)

// Classification is the relationship class of a link, independent of clusters
type Classification string

const (
	ClassDirect   Classification = "direct"
	ClassIndirect Classification = "indirect"
	ClassShared   Classification = "shared-cross-cluster"
)

// Node is a protein in the live graph. Position lives in the layout arena.
type Node struct {
	ID    string
	Role  Role
	Label string
}

// LinkID is the identity of a link. Two relationships between the same pair
// with different arrows are distinct links.
type LinkID struct {
	Source string
	Target string
	Arrow  Arrow
}

// String renders the identity as "SRC->TGT:arrow"
func (id LinkID) String() string {
	return fmt.Sprintf("%s->%s:%s", id.Source, id.Target, id.Arrow)
}

// Reverse returns the identity with endpoints swapped
func (id LinkID) Reverse() LinkID {
	return LinkID{Source: id.Target, Target: id.Source, Arrow: id.Arrow}
}

// Touches reports whether nodeID is an endpoint
func (id LinkID) Touches(nodeID string) bool {
	return id.Source == nodeID || id.Target == nodeID
}

// Link is a relationship in the live graph
type Link struct {
	ID             LinkID
	Classification Classification
	Bidirectional  bool
	Confidence     float64

	// Mediator is the declared mediator of an indirect relationship
	Mediator string

	// Incomplete is set when the mediator was never retrieved; the link was
	// rerouted from the root and MissingMediator names the absent protein
	Incomplete      bool
	MissingMediator string

	// Synthetic marks a fallback link created to reconnect an orphaned node
	Synthetic bool

	// ArrowAmbiguous is set when dual-track arrows disagreed and no context chose one
	ArrowAmbiguous bool

	// Badge is the presentation marker ("NET EFFECT", "DIRECT LINK") carried from the record
	Badge string

	// Record is the evidentiary record the link was built from, nil for synthetic links
	Record *Record
}

// IsIndirect reports whether the link represents a cascade through a mediator
func (l *Link) IsIndirect() bool {
	return l.Classification == ClassIndirect
}
