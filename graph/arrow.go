package graph

import "strings"

// ArrowContext selects which track of a dual-track relationship to render
type ArrowContext string

const (
	ContextAuto   ArrowContext = ""
	ContextNet    ArrowContext = "net"
	ContextDirect ArrowContext = "direct"
)

// ParseArrowContext maps a function_context label onto a context
func ParseArrowContext(s string) ArrowContext {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "net":
		return ContextNet
	case "direct":
		return ContextDirect
	default:
		return ContextAuto
	}
}

// ArrowInput is everything the resolver looks at
type ArrowInput struct {
	Raw       string
	Intent    string
	Direction string
	DualTrack *DualTrack
	Context   ArrowContext
}

// ArrowResolution is the resolved arrow and how it was reached
type ArrowResolution struct {
	Arrow Arrow
	// Via is one of "net", "direct", "raw", "intent", "default"
	Via string
	// Ambiguous is set when both tracks resolved to different arrows and the
	// context did not choose between them
	Ambiguous bool
}

var (
	inhibitionWords = []string{"inhib", "inactiv", "repress", "suppress", "block", "downregul", "down-regul", "antagon", "degrad", "attenuat"}
	activationWords = []string{"activ", "stimul", "promot", "enhanc", "upregul", "up-regul", "induc", "potentiat", "agonis"}
	regulationWords = []string{"regul", "modulat", "control", "affect"}
	bindingWords    = []string{"bind", "complex", "interact", "associat"}
)

// normalizeArrow matches a label against the directed synonym sets. Binding
// words resolve to binds with directed=false so callers can keep looking.
func normalizeArrow(label string) (arrow Arrow, directed bool, ok bool) {
	s := strings.ToLower(strings.TrimSpace(label))
	if s == "" {
		return "", false, false
	}
	// inhibition first: "inactivates" contains "activ"
	if containsAny(s, inhibitionWords) {
		return ArrowInhibits, true, true
	}
	if containsAny(s, activationWords) {
		return ArrowActivates, true, true
	}
	if containsAny(s, regulationWords) {
		return ArrowRegulates, true, true
	}
	if containsAny(s, bindingWords) {
		return ArrowBinds, false, true
	}
	return "", false, false
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// isMutual reports whether the directionality label describes a two-way relationship
func isMutual(direction string) bool {
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case DirectionBidirectional, DirectionUndirected, "both", "mutual":
		return true
	}
	return false
}

// ResolveArrow resolves the semantic arrow for a relationship.
//
// Order: the requested dual-track arrow, the raw label, the intent label,
// then binds. The intent fallback is skipped for mutual relationships since
// an intent describes a one-way effect.
func ResolveArrow(in ArrowInput) ArrowResolution {
	if in.DualTrack != nil {
		if res, ok := resolveDualTrack(in.DualTrack, in.Context); ok {
			return res
		}
	}

	rawArrow, rawDirected, rawOK := normalizeArrow(in.Raw)
	if rawOK && rawDirected {
		return ArrowResolution{Arrow: rawArrow, Via: "raw"}
	}

	if !isMutual(in.Direction) {
		if arrow, directed, ok := normalizeArrow(in.Intent); ok && directed {
			return ArrowResolution{Arrow: arrow, Via: "intent"}
		}
	}

	if rawOK {
		return ArrowResolution{Arrow: rawArrow, Via: "raw"}
	}
	return ArrowResolution{Arrow: ArrowBinds, Via: "default"}
}

// resolveDualTrack picks the track named by ctx. With no context the direct
// track wins and net is the fallback.
func resolveDualTrack(dt *DualTrack, ctx ArrowContext) (ArrowResolution, bool) {
	netArrow, _, netOK := normalizeArrow(dt.Net)
	directArrow, _, directOK := normalizeArrow(dt.Direct)

	switch ctx {
	case ContextNet:
		if netOK {
			return ArrowResolution{Arrow: netArrow, Via: "net"}, true
		}
		if directOK {
			return ArrowResolution{Arrow: directArrow, Via: "direct"}, true
		}
	case ContextDirect:
		if directOK {
			return ArrowResolution{Arrow: directArrow, Via: "direct"}, true
		}
		if netOK {
			return ArrowResolution{Arrow: netArrow, Via: "net"}, true
		}
	default:
		if directOK {
			return ArrowResolution{
				Arrow:     directArrow,
				Via:       "direct",
				Ambiguous: netOK && netArrow != directArrow,
			}, true
		}
		if netOK {
			return ArrowResolution{Arrow: netArrow, Via: "net"}, true
		}
	}
	return ArrowResolution{}, false
}

// effectLabels maps arrows (and the legacy "complex" label) onto effect nouns
var effectLabels = map[string]string{
	"activates": "activation",
	"inhibits":  "inhibition",
	"binds":     "binding",
	"regulates": "regulation",
	"complex":   "complex formation",
}

// EffectLabel returns the effect noun for an arrow label, or the label itself if unknown
func EffectLabel(arrow string) string {
	if e, ok := effectLabels[arrow]; ok {
		return e
	}
	return arrow
}
