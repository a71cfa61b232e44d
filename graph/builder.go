package graph

import (
	"go.uber.org/zap"

	grapherr "github.com/aryanzandi123/yesah/graph/error"
)

// Builder turns interaction records into a node/link model rooted at one protein
type Builder struct {
	logger  *zap.SugaredLogger
	context ArrowContext
}

// NewBuilder creates a graph model builder.
// Arrow context defaults to each record's own function_context.
func NewBuilder(logger *zap.SugaredLogger) *Builder {
	return &Builder{
		logger: logger.Named("graph.builder"),
	}
}

// WithArrowContext forces a dual-track context for every record
func (b *Builder) WithArrowContext(ctx ArrowContext) *Builder {
	b.context = ctx
	return b
}

// BuildPayload builds a model from a decoded payload, carrying its decode problems into the report
func (b *Builder) BuildPayload(p *Payload) *Model {
	m := b.Build(p.Root, p.Proteins, p.Records)
	for _, problem := range p.Problems {
		m.Report.Problems = append(m.Report.Problems, problem)
		if problem.IsCategory(grapherr.CategoryRecord) && !problem.IsSubcategory(grapherr.SubcategoryRecordUnknownType) {
			m.Report.Skipped++
		}
	}
	return m
}

func (b *Builder) contextFor(r *Record) ArrowContext {
	if b.context != ContextAuto {
		return b.context
	}
	return r.Context
}
