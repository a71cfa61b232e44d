package graph

import (
	"encoding/json"

	"github.com/aryanzandi123/yesah/errors"
)

// EncodedSchemaVersion is written by EncodePayload
const EncodedSchemaVersion = "2.0.0"

type encodedEvidence struct {
	Year int `json:"year"`
}

type encodedFunction struct {
	Function       string            `json:"function"`
	Arrow          string            `json:"arrow,omitempty"`
	FunctionEffect string            `json:"function_effect,omitempty"`
	PMIDs          []string          `json:"pmids,omitempty"`
	Evidence       []encodedEvidence `json:"evidence,omitempty"`
	ArrowContext   *rawArrowContext  `json:"arrow_context,omitempty"`
}

type encodedInteraction struct {
	Type            string            `json:"type"`
	Source          string            `json:"source"`
	Target          string            `json:"target"`
	Direction       string            `json:"direction,omitempty"`
	Arrow           string            `json:"arrow,omitempty"`
	Intent          string            `json:"intent,omitempty"`
	Confidence      float64           `json:"confidence"`
	Upstream        string            `json:"upstream_interactor,omitempty"`
	MediatorChain   []string          `json:"mediator_chain,omitempty"`
	Depth           int               `json:"depth,omitempty"`
	FunctionContext string            `json:"function_context,omitempty"`
	Functions       []encodedFunction `json:"functions,omitempty"`
	PMIDs           []string          `json:"pmids,omitempty"`
	DisplayBadge    string            `json:"_display_badge,omitempty"`
}

type encodedSnapshot struct {
	SchemaVersion string               `json:"schema_version"`
	Main          string               `json:"main"`
	Proteins      []string             `json:"proteins"`
	Interactions  []encodedInteraction `json:"interactions"`
}

// EncodePayload writes p in the current payload shape. Legacy payloads come
// out as interactions; decoding the result yields the same records.
func EncodePayload(p *Payload) ([]byte, error) {
	if p == nil || p.Root == "" {
		return nil, errors.NewInvalidPayloadError("payload has no main protein")
	}
	snap := encodedSnapshot{
		SchemaVersion: EncodedSchemaVersion,
		Main:          p.Root,
		Proteins:      p.Proteins,
		Interactions:  make([]encodedInteraction, 0, len(p.Records)),
	}
	if snap.Proteins == nil {
		snap.Proteins = []string{p.Root}
	}
	for i := range p.Records {
		snap.Interactions = append(snap.Interactions, encodeRecord(&p.Records[i]))
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode payload")
	}
	return data, nil
}

func encodeRecord(r *Record) encodedInteraction {
	ei := encodedInteraction{
		Type:            string(r.Kind),
		Source:          r.Source,
		Target:          r.Target,
		Direction:       r.Direction,
		Arrow:           r.Arrow,
		Intent:          r.Intent,
		Confidence:      r.Confidence,
		FunctionContext: string(r.Context),
		PMIDs:           r.PMIDs,
		DisplayBadge:    r.Badge,
	}
	if r.Indirect != nil {
		ei.Upstream = r.Indirect.Mediator
		ei.MediatorChain = r.Indirect.MediatorChain
		ei.Depth = r.Indirect.ChainDepth
	}

	for _, fn := range r.Functions {
		ef := encodedFunction{
			Function:       fn.Name,
			Arrow:          fn.Arrow,
			FunctionEffect: fn.Effect,
			PMIDs:          fn.PMIDs,
		}
		for _, y := range fn.Years {
			ef.Evidence = append(ef.Evidence, encodedEvidence{Year: y})
		}
		if fn.NetArrow != "" || fn.DirectArrow != "" {
			ef.ArrowContext = &rawArrowContext{NetArrow: fn.NetArrow, DirectArrow: fn.DirectArrow}
		}
		ei.Functions = append(ei.Functions, ef)
	}

	// a dual track read off a function without arrow_context on every function
	if r.Indirect != nil && r.Indirect.DualTrack != nil && !hasArrowContext(ei.Functions) {
		ei.Functions = append(ei.Functions, encodedFunction{
			Arrow: r.Indirect.DualTrack.Net,
			ArrowContext: &rawArrowContext{
				NetArrow:    r.Indirect.DualTrack.Net,
				DirectArrow: r.Indirect.DualTrack.Direct,
			},
		})
	}
	return ei
}

func hasArrowContext(fns []encodedFunction) bool {
	for _, fn := range fns {
		if fn.ArrowContext != nil {
			return true
		}
	}
	return false
}
