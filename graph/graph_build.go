package graph

import (
	"sort"

	grapherr "github.com/aryanzandi123/yesah/graph/error"
	"github.com/aryanzandi123/yesah/logger"
)

// Model is the output of a build: nodes, deduplicated links and BFS depths
type Model struct {
	Root   string
	Nodes  []Node  // root first, then members sorted by id
	Links  []*Link // in record order, synthesized orphan links last
	Depths map[string]int
	Report BuildReport
}

// BuildReport counts what the build absorbed
type BuildReport struct {
	Records             int
	Skipped             int
	Duplicates          int
	BidirectionalMerges int
	MediatorRepairs     int
	OrphanRepairs       int
	Problems            []*grapherr.GraphError
}

// LinkIDs returns the identities of all links in the model
func (m *Model) LinkIDs() []LinkID {
	ids := make([]LinkID, len(m.Links))
	for i, l := range m.Links {
		ids[i] = l.ID
	}
	return ids
}

// NodeIDs returns the ids of all nodes in the model
func (m *Model) NodeIDs() []string {
	ids := make([]string, len(m.Nodes))
	for i, n := range m.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// Link returns the link with the given identity
func (m *Model) Link(id LinkID) (*Link, bool) {
	for _, l := range m.Links {
		if l.ID == id {
			return l, true
		}
	}
	return nil, false
}

// Build converts records into a model rooted at root. proteins lists
// identifiers the payload declares even if no record mentions them.
//
// A record never aborts the build: malformed records are skipped, records
// whose mediator was not retrieved are rerouted from the root, duplicates
// merge, and nodes left unreachable get a low-confidence root link.
func (b *Builder) Build(root string, proteins []string, records []Record) *Model {
	return b.build(root, proteins, records, nil)
}

// BuildAround builds a subgraph that joins an existing view. known reports
// the identifiers the view already holds: a known mediator is not missing,
// and a node linked to a known node is not an orphan. Known identifiers are
// never given a root link of their own.
func (b *Builder) BuildAround(root string, proteins []string, records []Record, known func(string) bool) *Model {
	return b.build(root, proteins, records, known)
}

func (b *Builder) build(root string, proteins []string, records []Record, known func(string) bool) *Model {
	isKnown := func(id string) bool {
		return known != nil && id != root && known(id)
	}

	m := &Model{Root: root}
	report := &m.Report
	report.Records = len(records)

	// Validate once; later steps only see usable records
	valid := make([]int, 0, len(records))
	for i := range records {
		if err := records[i].Validate(); err != nil {
			report.Skipped++
			if ge, ok := grapherr.As(err); ok {
				report.Problems = append(report.Problems, ge)
				b.logger.Warnw("Skipping malformed record", ge.ToLogFields()...)
			} else {
				b.logger.Errorw("Skipping invalid record", logger.FieldError, err)
			}
			continue
		}
		valid = append(valid, i)
	}

	// Step 1: one node per identifier. A mediator standing in as the source
	// of its own record does not make it a node.
	present := map[string]bool{root: true}
	for _, id := range proteins {
		present[id] = true
	}
	for _, i := range valid {
		r := &records[i]
		present[r.Target] = true
		if !(r.IsIndirect() && r.Source == r.Mediator()) {
			present[r.Source] = true
		}
	}

	// Step 2 and 3: links, with mediator repair
	linkMap := make(map[LinkID]*Link)
	var links []*Link
	for _, i := range valid {
		r := &records[i]
		src, tgt := r.Source, r.Target
		var missing string

		if mediator := r.Mediator(); mediator != "" && !present[mediator] && !isKnown(mediator) {
			missing = mediator
			src = root
			if tgt == root {
				report.Skipped++
				ge := grapherr.Newf(grapherr.CategoryMediator, "",
					"record %d: mediator %s missing and target is the root", r.SourceIndex, mediator).
					WithContext(logger.FieldMediator, mediator)
				report.Problems = append(report.Problems, ge)
				b.logger.Warnw("Skipping record with missing mediator", ge.ToLogFields()...)
				continue
			}
			report.MediatorRepairs++
			ge := grapherr.Newf(grapherr.CategoryMediator, "",
				"mediator %s of %s->%s was not retrieved", mediator, r.Source, tgt).
				WithSubcategory(grapherr.SubcategoryRepairFallbackLink).
				WithContext(logger.FieldMediator, mediator).
				WithContext(logger.FieldNodeID, tgt)
			report.Problems = append(report.Problems, ge)
			b.logger.Debugw("Rerouting indirect record from root", ge.ToLogFields()...)
		}

		res := ResolveArrow(r.arrowInput(b.contextFor(r)))
		id := LinkID{Source: src, Target: tgt, Arrow: res.Arrow}

		if existing, ok := linkMap[id]; ok {
			report.Duplicates++
			if r.Confidence > existing.Confidence {
				existing.Confidence = r.Confidence
			}
			if isMutual(r.Direction) {
				existing.Bidirectional = true
			}
			ge := grapherr.Newf(grapherr.CategoryDuplicate, "", "duplicate link %s", id).
				WithContext(logger.FieldLinkID, id.String())
			report.Problems = append(report.Problems, ge)
			b.logger.Debugw("Merged duplicate link", ge.ToLogFields()...)
			continue
		}

		if reverse, ok := linkMap[id.Reverse()]; ok {
			report.BidirectionalMerges++
			reverse.Bidirectional = true
			if r.Confidence > reverse.Confidence {
				reverse.Confidence = r.Confidence
			}
			continue
		}

		link := &Link{
			ID:              id,
			Classification:  r.Kind.Classification(),
			Bidirectional:   isMutual(r.Direction),
			Confidence:      r.Confidence,
			Mediator:        r.Mediator(),
			Incomplete:      missing != "",
			MissingMediator: missing,
			ArrowAmbiguous:  res.Ambiguous,
			Badge:           r.Badge,
			Record:          r,
		}
		linkMap[id] = link
		links = append(links, link)
	}

	// Nodes: root first, the rest sorted for deterministic output
	m.Nodes = append(m.Nodes, Node{ID: root, Role: RoleRoot, Label: root})
	memberIDs := make([]string, 0, len(present))
	for id := range present {
		if id != root {
			memberIDs = append(memberIDs, id)
		}
	}
	sort.Strings(memberIDs)
	for _, id := range memberIDs {
		m.Nodes = append(m.Nodes, Node{ID: id, Role: RoleMember, Label: id})
	}

	// Step 4: orphan repair. Known nodes already reach the view's root, so
	// they count as reached here too.
	ids := make([]LinkID, 0, len(links))
	for _, l := range links {
		ids = append(ids, l.ID)
		for _, end := range []string{l.ID.Source, l.ID.Target} {
			if isKnown(end) {
				ids = append(ids, LinkID{Source: root, Target: end})
			}
		}
	}
	reached := Reachable(root, m.NodeIDs(), ids)
	for _, id := range memberIDs {
		if reached[id] || isKnown(id) {
			continue
		}
		report.OrphanRepairs++
		link := &Link{
			ID:             LinkID{Source: root, Target: id, Arrow: ArrowBinds},
			Classification: ClassDirect,
			Confidence:     OrphanConfidence,
			Synthetic:      true,
		}
		links = append(links, link)
		ge := grapherr.Newf(grapherr.CategoryOrphan, "", "%s unreachable from %s", id, root).
			WithSubcategory(grapherr.SubcategoryRepairFallbackLink).
			WithContext(logger.FieldNodeID, id)
		report.Problems = append(report.Problems, ge)
		b.logger.Debugw("Linked orphaned node to root", ge.ToLogFields()...)
	}

	m.Links = links
	m.Depths = CalculateDepths(root, m.NodeIDs(), m.LinkIDs())

	b.logger.Infow("Built interaction graph",
		logger.FieldRoot, root,
		logger.FieldNodeCount, len(m.Nodes),
		logger.FieldLinkCount, len(m.Links),
		"skipped", report.Skipped,
		"duplicates", report.Duplicates,
		"mediator_repairs", report.MediatorRepairs,
		"orphan_repairs", report.OrphanRepairs)

	return m
}
