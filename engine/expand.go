package engine

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
	"github.com/aryanzandi123/yesah/logger"
	"github.com/aryanzandi123/yesah/provider"
)

// Delivery carries a finished fetch back to the engine owner
type Delivery struct {
	RequestID string
	NodeID    string
	Payload   []byte
	Err       error
}

// ExpandOutcome is what an Expand call started or did
type ExpandOutcome struct {
	// Request is set when a fetch was started
	Request *Request
	// Collapsed is set when the node was expanded and the call closed it
	Collapsed *CollapseResult
}

// Deliveries returns the channel finished fetches arrive on. The owner
// passes each value to ApplyDelivery.
func (e *Engine) Deliveries() <-chan Delivery {
	return e.deliveries
}

// Expand toggles a node. An expanded node is collapsed; otherwise a fetch is
// started and its result later arrives on Deliveries. The node stays
// collapsed while the fetch is pending and a second Expand is rejected.
func (e *Engine) Expand(ctx context.Context, nodeID string) (*ExpandOutcome, error) {
	if e.IsExpanded(nodeID) {
		res, err := e.Collapse(nodeID)
		return &ExpandOutcome{Collapsed: res}, err
	}
	if req, ok := e.pending[nodeID]; ok {
		return nil, expansionError(grapherr.SubcategoryExpansionPending, nodeID, errors.ErrExpansionPending).
			WithContext(logger.FieldRequestID, req.ID)
	}
	if err := e.checkExpandable(nodeID); err != nil {
		return nil, err
	}
	if e.provider == nil {
		return nil, errors.WithHint(
			errors.Wrap(errors.ErrServiceUnavailable, "no subgraph provider configured"),
			"set provider.kind in am.toml")
	}

	var (
		fctx   context.Context
		cancel context.CancelFunc
	)
	if e.opts.FetchTimeout > 0 {
		fctx, cancel = context.WithTimeout(ctx, e.opts.FetchTimeout)
	} else {
		fctx, cancel = context.WithCancel(ctx)
	}
	req := newRequest(nodeID, cancel)
	e.pending[nodeID] = req
	fctx = logger.WithNodeID(logger.WithRequestID(fctx, req.ID), nodeID)

	er := provider.ExpandRequest{
		RequestID:  req.ID,
		Parent:     e.root,
		Protein:    nodeID,
		Visible:    e.nodeIDs(),
		MaxKeep:    e.opts.MaxKeep,
		ParentEdge: e.parentEdge(nodeID),
	}
	go e.fetch(fctx, req, er)

	e.throttle.Mark()
	e.logger.Infow("Expansion requested",
		logger.FieldNodeID, nodeID,
		logger.FieldRequestID, req.ID)
	return &ExpandOutcome{Request: req}, nil
}

// parentEdge describes the first live link joining the root and nodeID
func (e *Engine) parentEdge(nodeID string) *provider.EdgeHint {
	for _, l := range e.sortedLinks() {
		if !l.ID.Touches(e.root) || !l.ID.Touches(nodeID) {
			continue
		}
		hint := &provider.EdgeHint{Arrow: string(l.ID.Arrow)}
		if l.Record != nil {
			hint.Intent = l.Record.Intent
			for i, fn := range l.Record.Functions {
				if i == 3 {
					break
				}
				hint.Summary = strings.TrimSpace(hint.Summary + " " + fn.Name)
			}
		}
		return hint
	}
	return nil
}

// fetch runs on its own goroutine and never touches engine state
func (e *Engine) fetch(ctx context.Context, req *Request, er provider.ExpandRequest) {
	log := e.logger.With(logger.FieldsFromContext(ctx)...)
	d := Delivery{RequestID: req.ID, NodeID: req.NodeID}
	d.Payload, d.Err = e.runFetch(ctx, req, er, log)
	if d.Err != nil {
		log.Debugw("Fetch failed", logger.FieldError, d.Err)
	} else {
		log.Debugw("Fetch finished", "bytes", len(d.Payload))
	}
	select {
	case e.deliveries <- d:
	case <-e.done:
	}
}

// runFetch drives the request through pruning and, when the pruned answer
// is unavailable, the full fetch
func (e *Engine) runFetch(ctx context.Context, req *Request, er provider.ExpandRequest, log *zap.SugaredLogger) ([]byte, error) {
	for {
		switch state := req.State(); state {
		case RequestRequested:
			if err := req.transition(RequestPruning); err != nil {
				return nil, err
			}

		case RequestPruning:
			res, err := e.provider.FetchPruned(ctx, er)
			switch {
			case ctx.Err() != nil:
				return nil, errors.Wrap(ctx.Err(), "pruned fetch")
			case errors.Is(err, errors.ErrNeedsFull) || (err == nil && res != nil && res.NeedsFull):
				log.Debugw("Pruned payload unavailable, fetching full")
				if err := req.transition(RequestNeedsFull); err != nil {
					return nil, err
				}
			case err != nil:
				return nil, errors.Wrap(err, "pruned fetch")
			case res == nil:
				return nil, errors.AssertionFailedf("provider returned no pruned result for %s", er.Protein)
			default:
				return res.Payload, nil
			}

		case RequestNeedsFull:
			if err := req.transition(RequestFetchingFull); err != nil {
				return nil, err
			}

		case RequestFetchingFull:
			payload, err := e.provider.FetchFull(ctx, er.Protein)
			if err != nil {
				return nil, errors.Wrap(err, "full fetch")
			}
			return payload, nil

		default:
			return nil, errors.Wrapf(errors.ErrStaleResult, "request %s is %s", req.ID, state)
		}
	}
}

// ApplyDelivery merges a finished fetch. Results for requests that are no
// longer pending, or whose node changed state meanwhile, are discarded
// without touching the graph.
func (e *Engine) ApplyDelivery(d Delivery) (*MergeResult, error) {
	req, ok := e.pending[d.NodeID]
	if !ok || req.ID != d.RequestID {
		return nil, e.stale(d, "request no longer pending")
	}
	delete(e.pending, d.NodeID)
	if req.cancel != nil {
		req.cancel()
	}
	e.throttle.Mark()

	if d.Err != nil {
		req.fail(d.Err)
		sub := grapherr.SubcategoryProviderHTTP
		switch {
		case errors.Is(d.Err, context.DeadlineExceeded):
			sub = grapherr.SubcategoryProviderTimeout
		case errors.Is(d.Err, context.Canceled):
			sub = grapherr.SubcategoryProviderCancelled
		case errors.IsNotFoundError(d.Err):
			sub = grapherr.SubcategoryProviderNotFound
		}
		ge := grapherr.New(grapherr.CategoryProvider, d.Err, "").
			WithSubcategory(sub).
			WithContext(logger.FieldNodeID, d.NodeID).
			WithContext(logger.FieldRequestID, d.RequestID)
		e.logger.Warnw("Expansion fetch failed", ge.ToLogFields()...)
		return nil, ge
	}

	if !e.HasNode(d.NodeID) || e.IsExpanded(d.NodeID) {
		req.abort("node changed state")
		return nil, e.stale(d, "node changed state")
	}

	if err := req.transition(RequestMerging); err != nil {
		return nil, err
	}
	sub, err := e.subgraphFromPayload(d.NodeID, d.Payload)
	if err != nil {
		req.fail(err)
		return nil, err
	}
	res, err := e.Merge(d.NodeID, sub)
	if err != nil {
		req.fail(err)
		return nil, err
	}
	if err := req.transition(RequestDone); err != nil {
		return nil, err
	}
	return res, nil
}

func (e *Engine) stale(d Delivery, reason string) error {
	ge := grapherr.New(grapherr.CategoryStale,
		errors.Wrapf(errors.ErrStaleResult, "%s: %s", d.NodeID, reason), "").
		WithContext(logger.FieldNodeID, d.NodeID).
		WithContext(logger.FieldRequestID, d.RequestID)
	e.logger.Debugw("Discarding expansion result", ge.ToLogFields()...)
	return ge
}

// subgraphFromPayload builds the payload around nodeID, whatever protein the
// payload names as its main. Live nodes count as present, so a mediator or
// neighbour already on the canvas is not repaired.
func (e *Engine) subgraphFromPayload(nodeID string, payload []byte) (Subgraph, error) {
	p, err := graph.DecodePayload(payload)
	if err != nil {
		return Subgraph{}, err
	}
	if p.Root != nodeID {
		e.logger.Debugw("Payload main differs from expanded node",
			logger.FieldNodeID, nodeID, logger.FieldRoot, p.Root)
	}
	for _, problem := range p.Problems {
		e.logger.Debugw("Payload record problem", problem.ToLogFields()...)
	}
	m := e.builder.BuildAround(nodeID, p.Proteins, p.Records, e.HasNode)
	return SubgraphFromModel(m), nil
}

// Await applies deliveries until the one for req arrives
func (e *Engine) Await(ctx context.Context, req *Request) (*MergeResult, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, errors.Wrap(ctx.Err(), "awaiting expansion")
		case d := <-e.deliveries:
			res, err := e.ApplyDelivery(d)
			if d.RequestID == req.ID {
				return res, err
			}
		}
	}
}

// ExpandAndWait expands a node and blocks until the merge is applied. On an
// expanded node it collapses and returns a nil merge result.
func (e *Engine) ExpandAndWait(ctx context.Context, nodeID string) (*MergeResult, error) {
	out, err := e.Expand(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	if out.Request == nil {
		return nil, nil
	}
	return e.Await(ctx, out.Request)
}
