package graph

const (
	// OrphanConfidence is the confidence given to links synthesized to
	// reconnect nodes unreachable from the root
	OrphanConfidence = 0.1

	// UnreachableDepth is reported for nodes BFS cannot reach from the root
	UnreachableDepth = 1

	// Path defaults
	DefaultBidirectionalOffset = 18.0
	DefaultCrossClusterBend    = 0.25
)
