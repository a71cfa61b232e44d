package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	grapherr "github.com/aryanzandi123/yesah/graph/error"
)

func newTestBuilder(t *testing.T) *Builder {
	return NewBuilder(zaptest.NewLogger(t).Sugar())
}

func direct(src, tgt, arrow string) Record {
	return Record{Kind: KindDirect, Source: src, Target: tgt, Arrow: arrow, Confidence: DefaultConfidence}
}

func indirect(src, tgt, mediator string) Record {
	return Record{
		Kind:       KindIndirect,
		Source:     src,
		Target:     tgt,
		Confidence: DefaultConfidence,
		Indirect:   &IndirectDetail{Mediator: mediator},
	}
}

func TestBuild_DepthIgnoresMediatorHop(t *testing.T) {
	m := newTestBuilder(t).Build("A", nil, []Record{
		direct("A", "B", "binds"),
		indirect("A", "C", "B"),
		direct("B", "C", "activates"),
	})

	assert.Equal(t, []string{"A", "B", "C"}, m.NodeIDs())
	assert.Equal(t, []LinkID{
		{Source: "A", Target: "B", Arrow: ArrowBinds},
		{Source: "A", Target: "C", Arrow: ArrowBinds},
		{Source: "B", Target: "C", Arrow: ArrowActivates},
	}, m.LinkIDs())
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 1}, m.Depths)

	ac, ok := m.Link(LinkID{Source: "A", Target: "C", Arrow: ArrowBinds})
	require.True(t, ok)
	assert.Equal(t, ClassIndirect, ac.Classification)
	assert.Equal(t, "B", ac.Mediator)
	assert.False(t, ac.Incomplete)
	assert.Equal(t, RoleRoot, m.Nodes[0].Role)
}

func TestBuild_MissingMediator(t *testing.T) {
	m := newTestBuilder(t).Build("A", []string{"A", "D"}, []Record{
		indirect("A", "D", "Z"),
	})

	assert.Equal(t, []string{"A", "D"}, m.NodeIDs())
	require.Len(t, m.Links, 1)
	l := m.Links[0]
	assert.Equal(t, LinkID{Source: "A", Target: "D", Arrow: ArrowBinds}, l.ID)
	assert.True(t, l.Incomplete)
	assert.Equal(t, "Z", l.MissingMediator)
	assert.Equal(t, 1, m.Report.MediatorRepairs)
}

func TestBuild_MissingMediatorAsSourceIsRerouted(t *testing.T) {
	// legacy payloads put the mediator in the source slot
	m := newTestBuilder(t).Build("A", []string{"A", "D"}, []Record{
		indirect("Z", "D", "Z"),
	})

	assert.NotContains(t, m.NodeIDs(), "Z")
	require.Len(t, m.Links, 1)
	assert.Equal(t, "A", m.Links[0].ID.Source)
	assert.True(t, m.Links[0].Incomplete)
}

func TestBuild_MissingMediatorTowardRootIsSkipped(t *testing.T) {
	m := newTestBuilder(t).Build("A", []string{"A", "X"}, []Record{
		indirect("X", "A", "Z"),
	})

	assert.Equal(t, 1, m.Report.Skipped)
	// X is reconnected by orphan repair instead
	require.Len(t, m.Links, 1)
	assert.True(t, m.Links[0].Synthetic)
}

func TestBuild_Duplicates(t *testing.T) {
	first := direct("A", "B", "binds")
	first.Confidence = 0.3
	second := direct("A", "B", "binds")
	second.Confidence = 0.7
	second.Direction = DirectionBidirectional

	m := newTestBuilder(t).Build("A", nil, []Record{first, second})

	require.Len(t, m.Links, 1)
	assert.Equal(t, 0.7, m.Links[0].Confidence)
	assert.True(t, m.Links[0].Bidirectional)
	assert.Equal(t, 1, m.Report.Duplicates)

	var dup int
	for _, p := range m.Report.Problems {
		if p.IsCategory(grapherr.CategoryDuplicate) {
			dup++
		}
	}
	assert.Equal(t, 1, dup)
}

func TestBuild_ReverseMergesIntoBidirectional(t *testing.T) {
	m := newTestBuilder(t).Build("A", nil, []Record{
		direct("A", "B", "activates"),
		direct("B", "A", "activates"),
	})

	require.Len(t, m.Links, 1)
	assert.Equal(t, LinkID{Source: "A", Target: "B", Arrow: ArrowActivates}, m.Links[0].ID)
	assert.True(t, m.Links[0].Bidirectional)
	assert.Equal(t, 1, m.Report.BidirectionalMerges)
}

func TestBuild_DifferentArrowsStayDistinct(t *testing.T) {
	m := newTestBuilder(t).Build("A", nil, []Record{
		direct("A", "B", "activates"),
		direct("A", "B", "inhibits"),
	})
	assert.Len(t, m.Links, 2)
}

func TestBuild_OrphanRepair(t *testing.T) {
	m := newTestBuilder(t).Build("A", []string{"A", "B", "E"}, []Record{
		direct("A", "B", "binds"),
	})

	require.Len(t, m.Links, 2)
	orphan := m.Links[1]
	assert.Equal(t, LinkID{Source: "A", Target: "E", Arrow: ArrowBinds}, orphan.ID)
	assert.True(t, orphan.Synthetic)
	assert.Equal(t, OrphanConfidence, orphan.Confidence)
	assert.Equal(t, 1, m.Depths["E"])
	assert.Equal(t, 1, m.Report.OrphanRepairs)
}

func TestBuild_DisconnectedComponentGetsOneRepairPerNode(t *testing.T) {
	m := newTestBuilder(t).Build("A", nil, []Record{
		direct("B", "C", "binds"),
	})

	assert.Equal(t, 2, m.Report.OrphanRepairs)
	assert.Equal(t, map[string]int{"A": 0, "B": 1, "C": 1}, m.Depths)
}

func TestBuildAround_KnownNodesAreNotRepaired(t *testing.T) {
	live := map[string]bool{"A": true, "B": true, "C": true}
	records := []Record{
		indirect("C", "D", "C"),
		direct("F", "A", "binds"),
	}

	m := newTestBuilder(t).BuildAround("B", []string{"B", "D", "F"}, records,
		func(id string) bool { return live[id] })

	assert.Equal(t, []string{"B", "A", "D", "F"}, m.NodeIDs())
	assert.Equal(t, []LinkID{
		{Source: "C", Target: "D", Arrow: ArrowBinds},
		{Source: "F", Target: "A", Arrow: ArrowBinds},
	}, m.LinkIDs())
	assert.Zero(t, m.Report.MediatorRepairs)
	assert.Zero(t, m.Report.OrphanRepairs)

	cd := m.Links[0]
	assert.False(t, cd.Incomplete)
	assert.Empty(t, cd.MissingMediator)
	assert.Equal(t, "C", cd.Mediator)

	// without the view the same records need both repairs
	iso := newTestBuilder(t).Build("B", []string{"B", "D", "F"}, records)
	assert.Equal(t, 1, iso.Report.MediatorRepairs)
	assert.Equal(t, 2, iso.Report.OrphanRepairs)
}

func TestBuild_MalformedRecordsAreSkipped(t *testing.T) {
	m := newTestBuilder(t).Build("A", nil, []Record{
		{Kind: KindDirect, Source: "A"},
		{Kind: KindDirect, Source: "B", Target: "B"},
		{Kind: KindIndirect, Source: "A", Target: "C"},
		direct("A", "C", "binds"),
	})

	assert.Equal(t, 3, m.Report.Skipped)
	assert.Equal(t, 4, m.Report.Records)
	assert.Equal(t, []string{"A", "C"}, m.NodeIDs())
	assert.Len(t, m.Links, 1)
}

func TestBuild_ArrowContextOverride(t *testing.T) {
	r := indirect("A", "C", "B")
	r.Indirect.DualTrack = &DualTrack{Net: "inhibits", Direct: "activates"}
	records := []Record{direct("A", "B", "binds"), r}

	auto := newTestBuilder(t).Build("A", nil, records)
	l, ok := auto.Link(LinkID{Source: "A", Target: "C", Arrow: ArrowActivates})
	require.True(t, ok)
	assert.True(t, l.ArrowAmbiguous)

	net := newTestBuilder(t).WithArrowContext(ContextNet).Build("A", nil, records)
	_, ok = net.Link(LinkID{Source: "A", Target: "C", Arrow: ArrowInhibits})
	assert.True(t, ok)
}

func TestBuildPayload_CarriesDecodeProblems(t *testing.T) {
	p, err := DecodePayload([]byte(`{"main": "A", "interactions": [
		{"source": "A", "target": "B", "type": "odd"},
		42
	]}`))
	require.NoError(t, err)

	m := newTestBuilder(t).BuildPayload(p)
	assert.Equal(t, 1, m.Report.Skipped)
	assert.Len(t, m.Report.Problems, 2)
	assert.Len(t, m.Links, 1)
}
