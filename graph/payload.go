package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"

	"github.com/aryanzandi123/yesah/errors"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
)

// SupportedSchema is the range of payload schema_version values accepted.
// Payloads without a schema_version are accepted as-is.
const SupportedSchema = ">= 1.0.0, < 3.0.0"

// DefaultConfidence is applied to records that carry no confidence score
const DefaultConfidence = 0.5

// Payload is a decoded interaction payload in normalized form
type Payload struct {
	Root          string
	Proteins      []string
	Records       []Record
	Legacy        bool
	SchemaVersion string

	// Problems collects records that could not be decoded; they are not in Records
	Problems []*grapherr.GraphError
}

// rawSnapshot covers both payload shapes
type rawSnapshot struct {
	SchemaVersion string            `json:"schema_version"`
	Main          string            `json:"main"`
	Proteins      []string          `json:"proteins"`
	Interactions  []json.RawMessage `json:"interactions"`
	Interactors   []json.RawMessage `json:"interactors"`
}

type rawDocument struct {
	rawSnapshot
	Snapshot *rawSnapshot `json:"snapshot_json"`
}

type rawArrowContext struct {
	NetArrow    string `json:"net_arrow"`
	DirectArrow string `json:"direct_arrow"`
}

type rawEvidence struct {
	Year flexInt   `json:"year"`
	PMID flexValue `json:"pmid"`
}

type rawFunction struct {
	Function       string           `json:"function"`
	Arrow          string           `json:"arrow"`
	FunctionEffect string           `json:"function_effect"`
	PMIDs          flexStrings      `json:"pmids"`
	Evidence       []rawEvidence    `json:"evidence"`
	ArrowContext   *rawArrowContext `json:"arrow_context"`
}

// rawInteraction is one record of the current shape
type rawInteraction struct {
	Type            string        `json:"type"`
	InteractionType string        `json:"interaction_type"`
	Source          string        `json:"source"`
	Target          string        `json:"target"`
	Direction       string        `json:"direction"`
	Arrow           string        `json:"arrow"`
	Intent          string        `json:"intent"`
	Confidence      *float64      `json:"confidence"`
	Upstream        string        `json:"upstream_interactor"`
	MediatorChain   []string      `json:"mediator_chain"`
	Depth           int           `json:"depth"`
	FunctionContext string        `json:"function_context"`
	Functions       []rawFunction `json:"functions"`
	PMIDs           flexStrings   `json:"pmids"`
	DisplayBadge    string        `json:"_display_badge"`
	NetEffect       bool          `json:"_net_effect"`
	DirectMediator  bool          `json:"_direct_mediator_link"`
	SharedLink      bool          `json:"_is_shared_link"`
}

// rawInteractor is one record of the legacy, root-perspective shape
type rawInteractor struct {
	Primary         string        `json:"primary"`
	HGNCSymbol      string        `json:"hgnc_symbol"`
	Symbol          string        `json:"symbol"`
	Gene            string        `json:"gene"`
	Name            string        `json:"name"`
	ID              flexValue     `json:"id"`
	InteractorID    flexValue     `json:"interactor_id"`
	MechanismID     flexValue     `json:"mechanism_id"`
	Direction       string        `json:"direction"`
	Arrow           string        `json:"arrow"`
	Intent          string        `json:"intent"`
	Confidence      *float64      `json:"confidence"`
	Type            string        `json:"type"`
	InteractionType string        `json:"interaction_type"`
	Upstream        string        `json:"upstream_interactor"`
	MediatorChain   []string      `json:"mediator_chain"`
	Depth           int           `json:"depth"`
	FunctionContext string        `json:"function_context"`
	Functions       []rawFunction `json:"functions"`
	PMIDs           flexStrings   `json:"pmids"`

	raw json.RawMessage
}

// Legacy direction labels, relative to the query protein
const (
	legacyMainToPrimary = "main_to_primary"
	legacyPrimaryToMain = "primary_to_main"
)

// DecodePayload parses either payload shape into a normalized Payload.
// Individual records that fail to decode are reported in Problems; only a
// document-level failure returns an error.
func DecodePayload(data []byte) (*Payload, error) {
	var doc rawDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, grapherr.New(grapherr.CategoryPayload,
			errors.NewInvalidPayloadError("malformed JSON: %v", err), "").
			WithSubcategory(grapherr.SubcategoryPayloadSyntax)
	}

	snap := &doc.rawSnapshot
	if doc.Snapshot != nil {
		snap = doc.Snapshot
	}

	version := doc.SchemaVersion
	if version == "" {
		version = snap.SchemaVersion
	}
	if err := checkSchemaVersion(version); err != nil {
		return nil, err
	}

	root := strings.TrimSpace(snap.Main)
	if root == "" {
		return nil, shapeError("payload has no main protein")
	}

	p := &Payload{Root: root, SchemaVersion: version}
	switch {
	case snap.Interactions != nil || snap.Proteins != nil:
		decodeInteractions(p, snap)
	case snap.Interactors != nil:
		p.Legacy = true
		decodeInteractors(p, snap.Interactors)
	default:
		return nil, shapeError("payload has neither interactions nor interactors")
	}
	return p, nil
}

func shapeError(msg string) error {
	return grapherr.New(grapherr.CategoryPayload,
		errors.NewInvalidPayloadError("%s", msg), "").
		WithSubcategory(grapherr.SubcategoryPayloadShape)
}

func checkSchemaVersion(v string) error {
	if v == "" {
		return nil
	}
	ver, err := semver.NewVersion(v)
	if err != nil {
		return grapherr.New(grapherr.CategoryPayload,
			errors.NewInvalidPayloadError("invalid schema_version %q: %v", v, err), "").
			WithSubcategory(grapherr.SubcategoryPayloadVersion)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return errors.Wrapf(err, "invalid schema constraint %s", SupportedSchema)
	}
	if !constraint.Check(ver) {
		return grapherr.New(grapherr.CategoryPayload,
			errors.NewInvalidPayloadError("schema_version %s outside supported range %s", v, SupportedSchema), "").
			WithSubcategory(grapherr.SubcategoryPayloadVersion).
			WithContext("schema_version", v)
	}
	return nil
}

func decodeInteractions(p *Payload, snap *rawSnapshot) {
	for _, id := range snap.Proteins {
		if id = strings.TrimSpace(id); id != "" {
			p.Proteins = append(p.Proteins, id)
		}
	}

	for i, raw := range snap.Interactions {
		var ri rawInteraction
		if err := json.Unmarshal(raw, &ri); err != nil {
			p.Problems = append(p.Problems, recordDecodeError(i, err))
			continue
		}

		typeLabel := ri.Type
		if typeLabel == "" {
			typeLabel = ri.InteractionType
		}
		kind, known := ParseRecordKind(typeLabel)
		if ri.SharedLink && kind == KindDirect {
			kind = KindShared
		}
		if !known {
			p.Problems = append(p.Problems, grapherr.Newf(grapherr.CategoryRecord, "",
				"record %d: unknown type %q, treated as direct", i, typeLabel).
				WithSubcategory(grapherr.SubcategoryRecordUnknownType))
		}

		rec := Record{
			Kind:        kind,
			Source:      strings.TrimSpace(ri.Source),
			Target:      strings.TrimSpace(ri.Target),
			Arrow:       ri.Arrow,
			Intent:      ri.Intent,
			Direction:   ri.Direction,
			Confidence:  confidenceOrDefault(ri.Confidence),
			Context:     ParseArrowContext(ri.FunctionContext),
			Functions:   convertFunctions(ri.Functions),
			PMIDs:       ri.PMIDs,
			Badge:       badgeFor(ri.DisplayBadge, ri.NetEffect, ri.DirectMediator),
			Raw:         raw,
			SourceIndex: i,
		}
		if kind == KindIndirect {
			rec.Indirect = indirectDetail(ri.Upstream, ri.MediatorChain, ri.Depth, ri.Functions)
		}
		p.Records = append(p.Records, rec)
	}
}

func decodeInteractors(p *Payload, raws []json.RawMessage) {
	// merge duplicate primaries first, keeping first-seen order
	var order []string
	merged := make(map[string]*rawInteractor)
	allArrows := make(map[string][]string)

	for i, raw := range raws {
		var ri rawInteractor
		if err := json.Unmarshal(raw, &ri); err != nil {
			p.Problems = append(p.Problems, recordDecodeError(i, err))
			continue
		}
		ri.raw = raw
		ri.Primary = resolveSymbol(&ri, i)

		existing, ok := merged[ri.Primary]
		if !ok {
			copied := ri
			copied.Functions = append([]rawFunction(nil), ri.Functions...)
			merged[ri.Primary] = &copied
			order = append(order, ri.Primary)
			continue
		}

		existing.Functions = append(existing.Functions, ri.Functions...)
		existing.PMIDs = append(existing.PMIDs, ri.PMIDs...)
		if confidenceOrDefault(ri.Confidence) > confidenceOrDefault(existing.Confidence) {
			existing.Confidence = ri.Confidence
		}
		if existing.Arrow != ri.Arrow || existing.Direction != ri.Direction {
			if len(allArrows[ri.Primary]) == 0 {
				allArrows[ri.Primary] = []string{existing.Arrow}
			}
			allArrows[ri.Primary] = append(allArrows[ri.Primary], ri.Arrow)
		}
	}

	p.Proteins = append(p.Proteins, p.Root)
	for _, primary := range order {
		if primary != p.Root {
			p.Proteins = append(p.Proteins, primary)
		}
	}

	for i, primary := range order {
		ri := merged[primary]

		typeLabel := ri.InteractionType
		if typeLabel == "" {
			typeLabel = ri.Type
		}
		kind, _ := ParseRecordKind(typeLabel)
		if typeLabel == "" && (ri.Upstream != "" || len(ri.MediatorChain) > 0) {
			kind = KindIndirect
		}

		rec := Record{
			Kind:        kind,
			Arrow:       ri.Arrow,
			Intent:      ri.Intent,
			Confidence:  confidenceOrDefault(ri.Confidence),
			Context:     ParseArrowContext(ri.FunctionContext),
			Functions:   convertFunctions(ri.Functions),
			PMIDs:       ri.PMIDs,
			AllArrows:   allArrows[primary],
			Raw:         ri.raw,
			SourceIndex: i,
		}

		if kind == KindIndirect {
			rec.Indirect = indirectDetail(ri.Upstream, ri.MediatorChain, ri.Depth, ri.Functions)
			// the mediator becomes the source, defaulting to the root
			rec.Source = p.Root
			if rec.Indirect.Mediator != "" {
				rec.Source = rec.Indirect.Mediator
			}
			rec.Target = primary
			rec.Direction = DirectionForward
		} else {
			switch ri.Direction {
			case legacyPrimaryToMain:
				rec.Source, rec.Target = primary, p.Root
				rec.Direction = DirectionForward
			case legacyMainToPrimary:
				rec.Source, rec.Target = p.Root, primary
				rec.Direction = DirectionForward
			default:
				rec.Source, rec.Target = p.Root, primary
				rec.Direction = DirectionBidirectional
			}
		}
		p.Records = append(p.Records, rec)
	}
}

// resolveSymbol picks the protein symbol from the first populated field
func resolveSymbol(ri *rawInteractor, idx int) string {
	for _, s := range []string{ri.Primary, ri.HGNCSymbol, ri.Symbol, ri.Gene, ri.Name} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	for _, v := range []flexValue{ri.ID, ri.InteractorID, ri.MechanismID} {
		if v != "" {
			return "MISSING_" + string(v)
		}
	}
	return fmt.Sprintf("MISSING_%d", idx+1)
}

func indirectDetail(upstream string, chain []string, depth int, fns []rawFunction) *IndirectDetail {
	d := &IndirectDetail{
		Mediator:      strings.TrimSpace(upstream),
		MediatorChain: chain,
		ChainDepth:    depth,
	}
	if d.Mediator == "" && len(chain) > 0 {
		d.Mediator = strings.TrimSpace(chain[len(chain)-1])
	}
	for _, fn := range fns {
		if fn.ArrowContext == nil {
			continue
		}
		net := fn.ArrowContext.NetArrow
		if net == "" {
			net = fn.Arrow
		}
		if net == "" {
			net = string(ArrowRegulates)
		}
		direct := fn.ArrowContext.DirectArrow
		if direct == "" {
			direct = net
		}
		d.DualTrack = &DualTrack{Net: net, Direct: direct}
		break
	}
	return d
}

func convertFunctions(raws []rawFunction) []Function {
	if len(raws) == 0 {
		return nil
	}
	out := make([]Function, 0, len(raws))
	for _, rf := range raws {
		fn := Function{
			Name:   rf.Function,
			Arrow:  rf.Arrow,
			Effect: rf.FunctionEffect,
			PMIDs:  rf.PMIDs,
		}
		if fn.Effect == "" && fn.Arrow != "" {
			fn.Effect = EffectLabel(fn.Arrow)
		}
		for _, ev := range rf.Evidence {
			if ev.Year > 0 {
				fn.Years = append(fn.Years, int(ev.Year))
			}
			if ev.PMID != "" {
				fn.PMIDs = append(fn.PMIDs, string(ev.PMID))
			}
		}
		if rf.ArrowContext != nil {
			fn.NetArrow = rf.ArrowContext.NetArrow
			fn.DirectArrow = rf.ArrowContext.DirectArrow
		}
		out = append(out, fn)
	}
	return out
}

func badgeFor(badge string, net, direct bool) string {
	switch {
	case badge != "":
		return badge
	case net:
		return "NET EFFECT"
	case direct:
		return "DIRECT LINK"
	}
	return ""
}

func confidenceOrDefault(c *float64) float64 {
	if c == nil {
		return DefaultConfidence
	}
	return *c
}

func recordDecodeError(idx int, err error) *grapherr.GraphError {
	return grapherr.Newf(grapherr.CategoryRecord, "", "record %d: %v", idx, err).
		WithSubcategory(grapherr.SubcategoryRecordMissingEndpoint).
		WithContext("record_index", idx)
}

// flexValue accepts a JSON string or number and keeps its text
type flexValue string

func (f *flexValue) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexValue(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexValue(n.String())
	return nil
}

// flexStrings accepts a list of strings or numbers (PMIDs appear as both)
type flexStrings []string

func (f *flexStrings) UnmarshalJSON(b []byte) error {
	var vals []flexValue
	if err := json.Unmarshal(b, &vals); err != nil {
		return err
	}
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if v != "" {
			out = append(out, string(v))
		}
	}
	*f = out
	return nil
}

// flexInt accepts a number or a numeric string; anything else decodes as 0
type flexInt int

func (f *flexInt) UnmarshalJSON(b []byte) error {
	var v flexValue
	if err := v.UnmarshalJSON(b); err != nil {
		return err
	}
	n, err := strconv.Atoi(string(v))
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(n)
	return nil
}
