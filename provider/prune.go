package provider

import (
	"sort"
	"strings"
	"unicode"

	"github.com/aryanzandi123/yesah/graph"
)

const (
	// HardMaxKeep caps every pruned expansion regardless of the request
	HardMaxKeep = 20
	// DefaultMaxKeep is used when a request does not name a cap
	DefaultMaxKeep = 12

	// recentYear earns a small bonus for interactors with recent evidence
	recentYear = 2021
)

// Candidate is one interactor considered for a pruned expansion
type Candidate struct {
	Protein          string
	Score            float64
	Confidence       float64
	PMIDs            int
	LatestYear       int
	InGraph          bool // already visible in the current view
	MechanismOverlap bool // shares function words with the parent edge
	Upstream         string
}

// PruneResult is a pruned payload and why it looks the way it does
type PruneResult struct {
	Payload    *graph.Payload
	Kept       []string
	Candidates []Candidate
	Reasons    map[string]string

	// ChainAdded lists mediators pulled in for kept indirect interactors,
	// ChainDropped the indirect interactors whose mediator did not make it
	ChainAdded   []string
	ChainDropped []string
}

// Prune keeps the most relevant interactors of p. Relevance favours overlap
// with the parent edge and the visible graph over evidence and confidence.
// Indirect interactors are kept only together with their mediator.
func Prune(p *graph.Payload, req ExpandRequest) *PruneResult {
	limit := keepLimit(req.MaxKeep)

	cands := candidates(p, req)
	ranked := make([]Candidate, len(cands))
	copy(ranked, cands)
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	res := &PruneResult{Candidates: cands, Reasons: make(map[string]string)}
	keep := make(map[string]bool)
	for i := 0; i < len(ranked) && i < limit; i++ {
		keep[ranked[i].Protein] = true
		res.Reasons[ranked[i].Protein] = "ranked by relevance"
	}
	res.preserveChains(p.Root, cands, keep)

	out := &graph.Payload{
		Root:          p.Root,
		Proteins:      []string{p.Root},
		Legacy:        p.Legacy,
		SchemaVersion: p.SchemaVersion,
	}
	for _, c := range cands {
		if keep[c.Protein] {
			out.Proteins = append(out.Proteins, c.Protein)
			res.Kept = append(res.Kept, c.Protein)
		}
	}
	inSet := func(id string) bool { return id == p.Root || keep[id] }
	for _, r := range p.Records {
		if inSet(r.Source) && inSet(r.Target) {
			out.Records = append(out.Records, r)
		}
	}
	res.Payload = out
	return res
}

// candidates builds one candidate per protein other than the root, in
// payload order, from the record joining it to the root
func candidates(p *graph.Payload, req ExpandRequest) []Candidate {
	visible := make(map[string]bool, len(req.Visible))
	for _, id := range req.Visible {
		visible[id] = true
	}
	hint := tokenize(req.ParentEdge.Text())

	var out []Candidate
	seen := map[string]bool{p.Root: true}
	for _, id := range p.Proteins {
		if seen[id] {
			continue
		}
		seen[id] = true

		c := Candidate{Protein: id, InGraph: visible[id]}
		if r := recordFor(p, id); r != nil {
			c.Confidence = r.Confidence
			c.PMIDs = len(r.PMIDs)
			for _, fn := range r.Functions {
				c.PMIDs += len(fn.PMIDs)
				for _, y := range fn.Years {
					if y > c.LatestYear {
						c.LatestYear = y
					}
				}
			}
			c.Upstream = r.Mediator()
			c.MechanismOverlap = len(hint) > 0 && overlaps(hint, functionPreview(r))
		}
		c.Score = score(c)
		out = append(out, c)
	}
	return out
}

// recordFor returns the record joining id to the root, or the indirect
// record that targets id
func recordFor(p *graph.Payload, id string) *graph.Record {
	var fallback *graph.Record
	for i := range p.Records {
		r := &p.Records[i]
		if (r.Source == id && r.Target == p.Root) || (r.Source == p.Root && r.Target == id) {
			return r
		}
		if fallback == nil && r.IsIndirect() && r.Target == id {
			fallback = r
		}
	}
	return fallback
}

func score(c Candidate) float64 {
	s := 0.0
	if c.MechanismOverlap {
		s += 3
	}
	if c.InGraph {
		s += 2
	}
	s += min(2, float64(c.PMIDs)*0.15)
	s += min(1, c.Confidence)
	if c.LatestYear >= recentYear {
		s += 0.2
	}
	return s
}

// preserveChains adds the mediator of every kept indirect interactor when it
// is a candidate, then drops indirect interactors whose mediator is still out
func (res *PruneResult) preserveChains(root string, cands []Candidate, keep map[string]bool) {
	isCandidate := make(map[string]bool, len(cands))
	for _, c := range cands {
		isCandidate[c.Protein] = true
	}
	kept := func(id string) bool { return id == root || keep[id] }

	for _, c := range cands {
		if !keep[c.Protein] || c.Upstream == "" || kept(c.Upstream) || !isCandidate[c.Upstream] {
			continue
		}
		keep[c.Upstream] = true
		res.ChainAdded = append(res.ChainAdded, c.Upstream)
		res.Reasons[c.Upstream] = "mediator of " + c.Protein
	}
	for _, c := range cands {
		if !keep[c.Protein] || c.Upstream == "" || kept(c.Upstream) {
			continue
		}
		delete(keep, c.Protein)
		delete(res.Reasons, c.Protein)
		res.ChainDropped = append(res.ChainDropped, c.Protein)
	}
}

func functionPreview(r *graph.Record) string {
	var names []string
	for _, fn := range r.Functions {
		if name := strings.TrimSpace(fn.Name); name != "" {
			names = append(names, name)
		}
		if len(names) == 3 {
			break
		}
	}
	return strings.Join(names, " ")
}

var stopwords = map[string]bool{
	"the": true, "and": true, "for": true, "with": true, "was": true, "were": true, "are": true,
}

// tokenize lowercases text into alphanumeric words of three or more
// characters, dropping stopwords
func tokenize(text string) map[string]bool {
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)))
	})
	out := make(map[string]bool, len(words))
	for _, w := range words {
		if len(w) >= 3 && !stopwords[w] {
			out[w] = true
		}
	}
	return out
}

func overlaps(hint map[string]bool, text string) bool {
	for w := range tokenize(text) {
		if hint[w] {
			return true
		}
	}
	return false
}
