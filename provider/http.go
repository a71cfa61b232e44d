package provider

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/internal/httpclient"
	"github.com/aryanzandi123/yesah/logger"
)

// HTTP API paths of the research backend
const (
	pathExpandPruned = "/api/expand/pruned"
	pathExpandStatus = "/api/expand/status/"
	pathExpandResult = "/api/expand/results/"
	pathResults      = "/api/results/"
)

// HTTPProvider talks to the research backend's expansion API. Pruned
// expansions are queued there as jobs and polled until complete.
type HTTPProvider struct {
	baseURL      string
	client       *httpclient.SaferClient
	pollInterval time.Duration
	logger       *zap.SugaredLogger
}

// NewHTTPProvider creates a provider for the backend at baseURL
func NewHTTPProvider(baseURL string, client *httpclient.SaferClient, pollInterval time.Duration, log *zap.SugaredLogger) *HTTPProvider {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	return &HTTPProvider{
		baseURL:      strings.TrimRight(baseURL, "/"),
		client:       client,
		pollInterval: pollInterval,
		logger:       log.Named("provider.http"),
	}
}

type pruneRequestBody struct {
	Parent          string    `json:"parent"`
	Protein         string    `json:"protein"`
	CurrentNodes    []string  `json:"current_nodes"`
	VisibleProteins []string  `json:"visible_proteins"`
	ParentEdge      *EdgeHint `json:"parent_edge,omitempty"`
	MaxKeep         int       `json:"max_keep,omitempty"`
}

type jobStatus struct {
	Status string `json:"status"`
	JobID  string `json:"job_id"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// FetchPruned requests a pruned subgraph and waits for its job to finish
func (p *HTTPProvider) FetchPruned(ctx context.Context, req ExpandRequest) (*PrunedResult, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}
	body := pruneRequestBody{
		Parent:          req.Parent,
		Protein:         req.Protein,
		CurrentNodes:    req.Visible,
		VisibleProteins: req.Visible,
		ParentEdge:      req.ParentEdge,
		MaxKeep:         keepLimit(req.MaxKeep),
	}

	var st jobStatus
	if _, err := p.client.PostJSON(ctx, p.baseURL+pathExpandPruned, body, &st); err != nil {
		return nil, p.wrap(err, "pruned expansion request")
	}
	if st.JobID == "" {
		st.JobID = JobID(req.Parent, req.Protein)
	}
	p.logger.Debugw("Pruned expansion submitted",
		logger.FieldJobID, st.JobID, logger.FieldStatus, st.Status)

	status, err := p.waitJob(ctx, st)
	if err != nil {
		return nil, err
	}
	if status == StatusNeedsFull {
		return &PrunedResult{JobID: st.JobID, NeedsFull: true}, nil
	}

	data, _, err := p.client.GetBytes(ctx, p.baseURL+pathExpandResult+url.PathEscape(st.JobID))
	if err != nil {
		return nil, p.wrap(err, "pruned expansion results")
	}
	return &PrunedResult{JobID: st.JobID, Payload: data}, nil
}

// waitJob polls until the job is complete, needs the full payload or fails
func (p *HTTPProvider) waitJob(ctx context.Context, st jobStatus) (string, error) {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		switch st.Status {
		case StatusComplete, StatusNeedsFull:
			return st.Status, nil
		case StatusError:
			return "", errors.Wrapf(errors.ErrServiceUnavailable, "prune job %s failed: %s", st.JobID, st.Error)
		}

		select {
		case <-ctx.Done():
			return "", errors.Wrapf(ctx.Err(), "waiting for prune job %s", st.JobID)
		case <-ticker.C:
		}

		var next jobStatus
		if _, err := p.client.GetJSON(ctx, p.baseURL+pathExpandStatus+url.PathEscape(st.JobID), &next); err != nil {
			return "", p.wrap(err, "prune job status")
		}
		next.JobID = st.JobID
		st = next
		if logger.ShouldLogTrace(logger.Verbosity) {
			p.logger.Debugw("Prune job polled", logger.FieldJobID, st.JobID, logger.FieldStatus, st.Status)
		}
	}
}

// FetchFull downloads the complete payload for protein
func (p *HTTPProvider) FetchFull(ctx context.Context, protein string) ([]byte, error) {
	if !ValidSymbol(protein) {
		return nil, errors.Newf("invalid protein symbol %q", protein)
	}
	data, _, err := p.client.GetBytes(ctx, p.baseURL+pathResults+url.PathEscape(protein))
	if err != nil {
		return nil, p.wrap(err, "full payload for "+protein)
	}
	return data, nil
}

// wrap maps transport failures onto the provider sentinels
func (p *HTTPProvider) wrap(err error, what string) error {
	var se *httpclient.StatusError
	if errors.As(err, &se) {
		switch {
		case se.Code == http.StatusNotFound:
			return errors.Wrapf(errors.ErrNotFound, "%s: %s", what, se.Body)
		case se.Code >= 500:
			return errors.Wrapf(errors.ErrServiceUnavailable, "%s: status %d", what, se.Code)
		default:
			return errors.Wrap(err, what)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(err, what)
	}
	return errors.Wrap(errors.Mark(err, errors.ErrServiceUnavailable), what)
}
