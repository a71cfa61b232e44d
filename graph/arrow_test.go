package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveArrow(t *testing.T) {
	tests := []struct {
		name      string
		in        ArrowInput
		want      Arrow
		via       string
		ambiguous bool
	}{
		{"raw activates", ArrowInput{Raw: "activates"}, ArrowActivates, "raw", false},
		{"raw synonym", ArrowInput{Raw: "Upregulates"}, ArrowActivates, "raw", false},
		{"inactivation is inhibition", ArrowInput{Raw: "inactivates"}, ArrowInhibits, "raw", false},
		{"raw regulates", ArrowInput{Raw: "modulates"}, ArrowRegulates, "raw", false},
		{"raw binds without intent", ArrowInput{Raw: "binds"}, ArrowBinds, "raw", false},
		{"intent refines binding", ArrowInput{Raw: "binds", Intent: "phosphorylation activates"}, ArrowActivates, "intent", false},
		{"intent ignored when mutual", ArrowInput{Raw: "binds", Intent: "activation", Direction: "bidirectional"}, ArrowBinds, "raw", false},
		{"intent alone", ArrowInput{Intent: "suppression"}, ArrowInhibits, "intent", false},
		{"unrecognized falls back to binds", ArrowInput{Raw: "something odd"}, ArrowBinds, "default", false},
		{"empty falls back to binds", ArrowInput{}, ArrowBinds, "default", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveArrow(tt.in)
			assert.Equal(t, tt.want, res.Arrow)
			assert.Equal(t, tt.via, res.Via)
			assert.Equal(t, tt.ambiguous, res.Ambiguous)
		})
	}
}

func TestResolveArrow_DualTrack(t *testing.T) {
	dt := &DualTrack{Net: "inhibits", Direct: "activates"}

	tests := []struct {
		name      string
		ctx       ArrowContext
		dt        *DualTrack
		want      Arrow
		via       string
		ambiguous bool
	}{
		{"net context", ContextNet, dt, ArrowInhibits, "net", false},
		{"direct context", ContextDirect, dt, ArrowActivates, "direct", false},
		{"auto prefers direct and flags disagreement", ContextAuto, dt, ArrowActivates, "direct", true},
		{"auto agreement is not ambiguous", ContextAuto, &DualTrack{Net: "activates", Direct: "activates"}, ArrowActivates, "direct", false},
		{"net context falls back to direct", ContextNet, &DualTrack{Direct: "binds"}, ArrowBinds, "direct", false},
		{"direct context falls back to net", ContextDirect, &DualTrack{Net: "regulates"}, ArrowRegulates, "net", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ResolveArrow(ArrowInput{Raw: "binds", DualTrack: tt.dt, Context: tt.ctx})
			assert.Equal(t, tt.want, res.Arrow)
			assert.Equal(t, tt.via, res.Via)
			assert.Equal(t, tt.ambiguous, res.Ambiguous)
		})
	}
}

func TestResolveArrow_EmptyDualTrackUsesRaw(t *testing.T) {
	res := ResolveArrow(ArrowInput{Raw: "inhibits", DualTrack: &DualTrack{}})
	assert.Equal(t, ArrowInhibits, res.Arrow)
	assert.Equal(t, "raw", res.Via)
}

func TestParseArrowContext(t *testing.T) {
	assert.Equal(t, ContextNet, ParseArrowContext("NET"))
	assert.Equal(t, ContextDirect, ParseArrowContext(" direct "))
	assert.Equal(t, ContextAuto, ParseArrowContext(""))
	assert.Equal(t, ContextAuto, ParseArrowContext("chain"))
}

func TestEffectLabel(t *testing.T) {
	assert.Equal(t, "activation", EffectLabel("activates"))
	assert.Equal(t, "complex formation", EffectLabel("complex"))
	assert.Equal(t, "phosphorylates", EffectLabel("phosphorylates"))
}
