// Package provider fetches the subgraph payloads that expansions merge into
// the live graph.
package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/aryanzandi123/yesah/errors"
)

// Job statuses reported by pruned expansion
const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusComplete  = "complete"
	StatusNeedsFull = "needs_full"
	StatusError     = "error"
)

// ExpandRequest describes one pruned expansion
type ExpandRequest struct {
	RequestID string   `json:"request_id,omitempty"`
	Parent    string   `json:"parent"`             // root protein of the current view
	Protein   string   `json:"protein"`            // node being expanded
	Visible   []string `json:"current_nodes"`      // proteins already on screen
	MaxKeep   int      `json:"max_keep,omitempty"` // cap on interactors kept

	// ParentEdge describes the link from the root to Protein, when there is one
	ParentEdge *EdgeHint `json:"parent_edge,omitempty"`
}

// EdgeHint is the text of the link an expansion starts from. Pruning favours
// interactors whose functions share words with it.
type EdgeHint struct {
	Arrow   string `json:"arrow,omitempty"`
	Intent  string `json:"intent,omitempty"`
	Summary string `json:"support_summary,omitempty"`
}

// Text joins the hint fields
func (h *EdgeHint) Text() string {
	if h == nil {
		return ""
	}
	return strings.Join([]string{h.Intent, h.Arrow, h.Summary}, " ")
}

// PrunedResult is the answer to a pruned expansion
type PrunedResult struct {
	JobID     string
	Payload   []byte
	NeedsFull bool // no pruned answer; fall back to the full payload
	Kept      []string
}

// Provider is the source of expansion payloads
type Provider interface {
	// FetchPruned returns a relevance-pruned payload for the request, or a
	// result with NeedsFull set when only the full payload can answer it
	FetchPruned(ctx context.Context, req ExpandRequest) (*PrunedResult, error)

	// FetchFull returns the complete payload for protein
	FetchFull(ctx context.Context, protein string) ([]byte, error)
}

// JobID returns the pruning job identifier for a parent/protein pair
func JobID(parent, protein string) string {
	return "prune:" + parent + ":" + protein
}

// ParseJobID splits a pruning job identifier into parent and protein
func ParseJobID(jobID string) (parent, protein string, err error) {
	parts := strings.Split(jobID, ":")
	if len(parts) != 3 || parts[0] != "prune" || parts[1] == "" || parts[2] == "" {
		return "", "", errors.Newf("invalid prune job id %q", jobID)
	}
	return parts[1], parts[2], nil
}

var symbolRE = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)

// ValidSymbol reports whether s is usable as a protein symbol in paths and URLs
func ValidSymbol(s string) bool {
	return symbolRE.MatchString(s) && s != "." && s != ".."
}
