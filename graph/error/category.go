package grapherror

// Category represents the main error category for graph operations
type Category string

const (
	// CategoryRecord indicates an interaction record that could not be used
	CategoryRecord Category = "record"

	// CategoryMediator indicates an indirect record whose mediator is absent
	CategoryMediator Category = "mediator"

	// CategoryOrphan indicates a node that was unreachable from the root
	CategoryOrphan Category = "orphan"

	// CategoryDuplicate indicates a record that repeated an existing link identity
	CategoryDuplicate Category = "duplicate"

	// CategoryExpansion indicates an expand or collapse request that was rejected
	CategoryExpansion Category = "expansion"

	// CategoryStale indicates an async result that arrived after its request was superseded
	CategoryStale Category = "stale"

	// CategoryProvider indicates the subgraph provider failed
	CategoryProvider Category = "provider"

	// CategoryPayload indicates a payload document could not be decoded
	CategoryPayload Category = "payload"

	// CategoryInternal indicates a broken engine invariant
	CategoryInternal Category = "internal"

	// CategoryWebSocket indicates a viewer connection failed
	CategoryWebSocket Category = "websocket"
)

// String returns the string representation of the category
func (c Category) String() string {
	return string(c)
}

// Record Subcategories
const (
	SubcategoryRecordMissingEndpoint = "missing_endpoint"
	SubcategoryRecordSelfLoop        = "self_loop"
	SubcategoryRecordUnknownType     = "unknown_type"
)

// Mediator / orphan repair subcategories
const (
	// SubcategoryRepairFallbackLink indicates a root link was synthesized in place of the missing path
	SubcategoryRepairFallbackLink = "fallback_link"
)

// Expansion Subcategories
const (
	SubcategoryExpansionAlreadyExpanded = "already_expanded"
	SubcategoryExpansionDepthLimit      = "depth_limit"
	SubcategoryExpansionPending         = "pending"
	SubcategoryExpansionUnknownNode     = "unknown_node"
	SubcategoryExpansionProtected       = "protected"
)

// Provider Subcategories
const (
	SubcategoryProviderTimeout   = "timeout"
	SubcategoryProviderHTTP      = "http"
	SubcategoryProviderNotFound  = "not_found"
	SubcategoryProviderCancelled = "cancelled"
)

// Payload Subcategories
const (
	SubcategoryPayloadSyntax  = "syntax"
	SubcategoryPayloadShape   = "shape"
	SubcategoryPayloadVersion = "version"
)

// WebSocket Subcategories
const (
	SubcategoryWSUpgrade = "upgrade"
	SubcategoryWSRead    = "read"
	SubcategoryWSWrite   = "write"
)
