package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aryanzandi123/yesah/errors"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
)

func TestDecodePayload_Interactions(t *testing.T) {
	data := []byte(`{
		"schema_version": "2.1.0",
		"snapshot_json": {
			"main": "ATXN3",
			"proteins": ["ATXN3", "VCP", "RAD23A"],
			"interactions": [
				{"source": "ATXN3", "target": "VCP", "type": "direct", "arrow": "binds", "confidence": 0.9, "direction": "bidirectional"},
				{"source": "ATXN3", "target": "RAD23A", "type": "indirect", "upstream_interactor": "VCP",
				 "function_context": "net", "_net_effect": true,
				 "functions": [{"function": "ERAD", "arrow": "inhibits", "arrow_context": {"direct_arrow": "activates"},
				                "evidence": [{"year": 2022, "pmid": 12345}]}]},
				{"source": "VCP", "target": "RAD23A", "type": "mystery"}
			]
		}
	}`)

	p, err := DecodePayload(data)
	require.NoError(t, err)
	assert.Equal(t, "ATXN3", p.Root)
	assert.False(t, p.Legacy)
	assert.Equal(t, "2.1.0", p.SchemaVersion)
	assert.Equal(t, []string{"ATXN3", "VCP", "RAD23A"}, p.Proteins)
	require.Len(t, p.Records, 3)

	direct := p.Records[0]
	assert.Equal(t, KindDirect, direct.Kind)
	assert.Equal(t, 0.9, direct.Confidence)
	assert.Nil(t, direct.Indirect)

	indirect := p.Records[1]
	assert.Equal(t, KindIndirect, indirect.Kind)
	assert.Equal(t, "VCP", indirect.Mediator())
	assert.Equal(t, DefaultConfidence, indirect.Confidence)
	assert.Equal(t, ContextNet, indirect.Context)
	assert.Equal(t, "NET EFFECT", indirect.Badge)
	require.NotNil(t, indirect.Indirect.DualTrack)
	assert.Equal(t, "inhibits", indirect.Indirect.DualTrack.Net)
	assert.Equal(t, "activates", indirect.Indirect.DualTrack.Direct)
	require.Len(t, indirect.Functions, 1)
	assert.Equal(t, []int{2022}, indirect.Functions[0].Years)
	assert.Equal(t, []string{"12345"}, indirect.Functions[0].PMIDs)
	assert.Equal(t, "inhibition", indirect.Functions[0].Effect)

	// unknown type decodes as direct with a problem
	assert.Equal(t, KindDirect, p.Records[2].Kind)
	require.Len(t, p.Problems, 1)
	assert.True(t, p.Problems[0].IsSubcategory(grapherr.SubcategoryRecordUnknownType))
}

func TestDecodePayload_SharedLinkFlag(t *testing.T) {
	p, err := DecodePayload([]byte(`{"main": "A", "interactions": [
		{"source": "B", "target": "C", "_is_shared_link": true}
	]}`))
	require.NoError(t, err)
	require.Len(t, p.Records, 1)
	assert.Equal(t, KindShared, p.Records[0].Kind)
	assert.Equal(t, ClassShared, p.Records[0].Kind.Classification())
}

func TestDecodePayload_BadRecordIsReported(t *testing.T) {
	p, err := DecodePayload([]byte(`{"main": "A", "interactions": [
		{"source": "A", "target": "B"},
		"not an object"
	]}`))
	require.NoError(t, err)
	assert.Len(t, p.Records, 1)
	require.Len(t, p.Problems, 1)
	assert.True(t, p.Problems[0].IsCategory(grapherr.CategoryRecord))
}

func TestDecodePayload_Legacy(t *testing.T) {
	data := []byte(`{
		"main": "TP53",
		"interactors": [
			{"primary": "MDM2", "direction": "primary_to_main", "arrow": "inhibits", "confidence": 0.4,
			 "functions": [{"function": "degradation"}]},
			{"primary": "MDM2", "direction": "primary_to_main", "arrow": "binds", "confidence": 0.8,
			 "functions": [{"function": "ubiquitination"}]},
			{"hgnc_symbol": "EP300", "direction": "main_to_primary", "arrow": "activates"},
			{"gene": "CHEK2"},
			{"primary": "ATM", "upstream_interactor": "CHEK2", "arrow": "activates"},
			{"mechanism_id": 77},
			{}
		]
	}`)

	p, err := DecodePayload(data)
	require.NoError(t, err)
	assert.True(t, p.Legacy)
	assert.Equal(t, []string{"TP53", "MDM2", "EP300", "CHEK2", "ATM", "MISSING_77", "MISSING_7"}, p.Proteins)
	require.Len(t, p.Records, 6)

	mdm2 := p.Records[0]
	assert.Equal(t, "MDM2", mdm2.Source)
	assert.Equal(t, "TP53", mdm2.Target)
	assert.Equal(t, DirectionForward, mdm2.Direction)
	assert.Equal(t, 0.8, mdm2.Confidence)
	assert.Len(t, mdm2.Functions, 2)
	assert.Equal(t, []string{"inhibits", "binds"}, mdm2.AllArrows)

	ep300 := p.Records[1]
	assert.Equal(t, "TP53", ep300.Source)
	assert.Equal(t, "EP300", ep300.Target)

	chek2 := p.Records[2]
	assert.Equal(t, DirectionBidirectional, chek2.Direction)
	assert.Equal(t, DefaultConfidence, chek2.Confidence)

	atm := p.Records[3]
	assert.Equal(t, KindIndirect, atm.Kind)
	assert.Equal(t, "CHEK2", atm.Source)
	assert.Equal(t, "ATM", atm.Target)
	assert.Equal(t, "CHEK2", atm.Mediator())
}

func TestDecodePayload_Errors(t *testing.T) {
	tests := []struct {
		name        string
		data        string
		subcategory string
	}{
		{"syntax", `{"main": `, grapherr.SubcategoryPayloadSyntax},
		{"no main", `{"interactions": []}`, grapherr.SubcategoryPayloadShape},
		{"no records", `{"main": "A"}`, grapherr.SubcategoryPayloadShape},
		{"bad version", `{"schema_version": "banana", "main": "A", "interactions": []}`, grapherr.SubcategoryPayloadVersion},
		{"unsupported version", `{"schema_version": "3.0.0", "main": "A", "interactions": []}`, grapherr.SubcategoryPayloadVersion},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodePayload([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrInvalidPayload))
			ge, ok := grapherr.As(err)
			require.True(t, ok)
			assert.True(t, ge.IsSubcategory(tt.subcategory))
		})
	}
}

func TestDecodePayload_EmptyInteractionsIsValid(t *testing.T) {
	p, err := DecodePayload([]byte(`{"schema_version": "1.0.0", "main": "A", "interactions": []}`))
	require.NoError(t, err)
	assert.Empty(t, p.Records)
}
