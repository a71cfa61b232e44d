package graph

import (
	"encoding/json"
	"strings"

	"github.com/aryanzandi123/yesah/errors"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
)

// RecordKind tags the variant of an interaction record
type RecordKind string

const (
	KindDirect    RecordKind = "direct"
	KindIndirect  RecordKind = "indirect"
	KindShared    RecordKind = "shared"
	KindCrossLink RecordKind = "cross_link"
)

// ParseRecordKind maps a payload type label onto a kind. Unknown labels are
// treated as direct, matching how the research database stores untyped rows.
func ParseRecordKind(s string) (RecordKind, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "direct", "physical":
		return KindDirect, true
	case "indirect", "cascade":
		return KindIndirect, true
	case "shared":
		return KindShared, true
	case "cross_link", "cross-link", "crosslink":
		return KindCrossLink, true
	default:
		return KindDirect, false
	}
}

// Classification returns the link classification for records of this kind
func (k RecordKind) Classification() Classification {
	switch k {
	case KindIndirect:
		return ClassIndirect
	case KindShared, KindCrossLink:
		return ClassShared
	default:
		return ClassDirect
	}
}

// Direction labels carried by records
const (
	DirectionForward       = "source_to_target"
	DirectionBidirectional = "bidirectional"
	DirectionUndirected    = "undirected"
)

// Function is one biological function annotation on a record
type Function struct {
	Name   string   `json:"function"`
	Arrow  string   `json:"arrow,omitempty"`
	Effect string   `json:"function_effect,omitempty"`
	PMIDs  []string `json:"pmids,omitempty"`
	Years  []int    `json:"years,omitempty"`

	// Dual-track arrows for functions of indirect records
	NetArrow    string `json:"net_arrow,omitempty"`
	DirectArrow string `json:"direct_arrow,omitempty"`
}

// DualTrack carries the two arrows an indirect relationship may be annotated
// with: the chain-propagated net effect and the mediator pair's direct effect
type DualTrack struct {
	Net    string
	Direct string
}

// IndirectDetail is present only on indirect records
type IndirectDetail struct {
	Mediator      string   // declared mediator (upstream interactor)
	MediatorChain []string // full chain, root side first
	ChainDepth    int      // depth reported by the research pipeline; informational only
	DualTrack     *DualTrack
}

// Record is a validated interaction record. Kind selects the variant:
// Indirect is non-nil exactly when Kind is KindIndirect.
type Record struct {
	Kind      RecordKind
	Source    string
	Target    string
	Arrow     string // raw arrow label
	Intent    string // inferred intent label
	Direction string // directionality label

	Confidence float64
	Context    ArrowContext // function_context of the record
	Functions  []Function
	PMIDs      []string

	Badge       string
	AllArrows   []string // set when legacy duplicates carried different arrows
	Indirect    *IndirectDetail
	Raw         json.RawMessage
	SourceIndex int // position in the payload, for diagnostics
}

// IsIndirect reports whether the record is the indirect variant
func (r *Record) IsIndirect() bool {
	return r.Kind == KindIndirect
}

// Mediator returns the declared mediator, or "" for non-indirect records
func (r *Record) Mediator() string {
	if r.Indirect == nil {
		return ""
	}
	return r.Indirect.Mediator
}

// Validate checks the structural requirements of the variant. Records that
// fail are skipped by the builder.
func (r *Record) Validate() error {
	if r.Source == "" || r.Target == "" {
		return grapherr.Newf(grapherr.CategoryRecord, "",
			"record %d: missing source or target (source=%q target=%q)", r.SourceIndex, r.Source, r.Target).
			WithSubcategory(grapherr.SubcategoryRecordMissingEndpoint).
			WithContext("record_index", r.SourceIndex)
	}
	if r.Source == r.Target {
		return grapherr.Newf(grapherr.CategoryRecord, "",
			"record %d: self loop on %s", r.SourceIndex, r.Source).
			WithSubcategory(grapherr.SubcategoryRecordSelfLoop).
			WithContext("record_index", r.SourceIndex)
	}
	if (r.Kind == KindIndirect) != (r.Indirect != nil) {
		return errors.AssertionFailedf("record %d: kind %s does not match variant", r.SourceIndex, r.Kind)
	}
	return nil
}

// arrowInput assembles the resolver input for this record
func (r *Record) arrowInput(ctx ArrowContext) ArrowInput {
	in := ArrowInput{
		Raw:       r.Arrow,
		Intent:    r.Intent,
		Direction: r.Direction,
		Context:   ctx,
	}
	if r.Indirect != nil {
		in.DualTrack = r.Indirect.DualTrack
	}
	return in
}
