package provider

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
)

const vcpFull = `{"main": "VCP", "proteins": ["VCP", "HDAC6", "UFD1", "NPL4"], "interactions": [
	{"source": "VCP", "target": "HDAC6", "type": "direct", "arrow": "binds", "confidence": 0.9},
	{"source": "VCP", "target": "UFD1", "type": "direct", "arrow": "binds", "confidence": 0.2},
	{"source": "VCP", "target": "NPL4", "type": "direct", "arrow": "binds", "confidence": 0.6}
]}`

func writeFull(t *testing.T, dir, protein, body string) string {
	t.Helper()
	path := filepath.Join(dir, protein+".json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDirProvider_FetchPruned(t *testing.T) {
	dir := t.TempDir()
	fullPath := writeFull(t, dir, "VCP", vcpFull)
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(fullPath, past, past))

	d := NewDirProvider(dir, zaptest.NewLogger(t).Sugar())
	req := ExpandRequest{Parent: "ATXN3", Protein: "VCP", MaxKeep: 2}
	ctx := context.Background()

	res, err := d.FetchPruned(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "prune:ATXN3:VCP", res.JobID)
	assert.False(t, res.NeedsFull)
	assert.Equal(t, []string{"HDAC6", "NPL4"}, res.Kept)

	p, err := graph.DecodePayload(res.Payload)
	require.NoError(t, err)
	assert.Equal(t, []string{"VCP", "HDAC6", "NPL4"}, p.Proteins)

	// the pruned file is kept next to the full payload
	raw, err := os.ReadFile(d.PrunedPath("ATXN3", "VCP"))
	require.NoError(t, err)
	var doc prunedDocument
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 2, doc.Meta.HardMaxKeep)
	assert.Equal(t, 2, doc.Meta.KeepCount)
	assert.Equal(t, "ATXN3", doc.Meta.Parent)

	// an unchanged full payload reuses the pruned file
	writeFull(t, dir, "VCP", `{"main": "VCP", "proteins": ["VCP", "UFD1"], "interactions": []}`)
	require.NoError(t, os.Chtimes(fullPath, past, past))
	res, err = d.FetchPruned(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"HDAC6", "NPL4"}, res.Kept)
	p, err = graph.DecodePayload(res.Payload)
	require.NoError(t, err)
	assert.Equal(t, "VCP", p.Root)

	// a different cap prunes again
	res, err = d.FetchPruned(ctx, ExpandRequest{Parent: "ATXN3", Protein: "VCP", MaxKeep: 5})
	require.NoError(t, err)
	assert.Equal(t, []string{"UFD1"}, res.Kept)

	// a newer full payload prunes again
	future := time.Now().Add(time.Hour)
	writeFull(t, dir, "VCP", vcpFull)
	require.NoError(t, os.Chtimes(fullPath, future, future))
	res, err = d.FetchPruned(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, []string{"HDAC6", "NPL4"}, res.Kept)
}

func TestDirProvider_NeedsFull(t *testing.T) {
	d := NewDirProvider(t.TempDir(), zaptest.NewLogger(t).Sugar())
	res, err := d.FetchPruned(context.Background(), ExpandRequest{Parent: "ATXN3", Protein: "VCP"})
	require.NoError(t, err)
	assert.True(t, res.NeedsFull)
	assert.Equal(t, "prune:ATXN3:VCP", res.JobID)
}

func TestDirProvider_InvalidSymbols(t *testing.T) {
	d := NewDirProvider(t.TempDir(), zaptest.NewLogger(t).Sugar())
	ctx := context.Background()

	tests := []struct {
		name string
		req  ExpandRequest
	}{
		{"parent traversal", ExpandRequest{Parent: "..", Protein: "VCP"}},
		{"protein with slash", ExpandRequest{Parent: "ATXN3", Protein: "a/b"}},
		{"empty protein", ExpandRequest{Parent: "ATXN3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.FetchPruned(ctx, tt.req)
			assert.Error(t, err)
		})
	}

	_, err := d.FetchFull(ctx, "../etc/passwd")
	assert.Error(t, err)
	assert.False(t, errors.IsNotFoundError(err))
}

func TestDirProvider_FetchFull(t *testing.T) {
	dir := t.TempDir()
	writeFull(t, dir, "VCP", vcpFull)
	d := NewDirProvider(dir, zaptest.NewLogger(t).Sugar())

	data, err := d.FetchFull(context.Background(), "VCP")
	require.NoError(t, err)
	assert.JSONEq(t, vcpFull, string(data))

	_, err = d.FetchFull(context.Background(), "SQSTM1")
	assert.True(t, errors.IsNotFoundError(err))
}
