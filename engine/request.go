package engine

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aryanzandi123/yesah/errors"
)

// RequestState is the state of one expansion request
type RequestState string

const (
	RequestRequested    RequestState = "requested"
	RequestPruning      RequestState = "pruning"
	RequestNeedsFull    RequestState = "needs_full"
	RequestFetchingFull RequestState = "fetching_full"
	RequestMerging      RequestState = "merging"
	RequestDone         RequestState = "done"
	RequestFailed       RequestState = "failed"
	RequestCancelled    RequestState = "cancelled"
)

// requestTransitions lists the states reachable from each state
var requestTransitions = map[RequestState][]RequestState{
	RequestRequested:    {RequestPruning, RequestCancelled},
	RequestPruning:      {RequestNeedsFull, RequestMerging, RequestFailed, RequestCancelled},
	RequestNeedsFull:    {RequestFetchingFull, RequestCancelled},
	RequestFetchingFull: {RequestMerging, RequestFailed, RequestCancelled},
	RequestMerging:      {RequestDone, RequestFailed},
}

// Terminal reports whether no further transition is possible
func (s RequestState) Terminal() bool {
	return len(requestTransitions[s]) == 0
}

// Request tracks one asynchronous expansion from fetch to merge. The fetch
// goroutine and the engine owner both move it forward, so state is guarded.
type Request struct {
	ID     string
	NodeID string

	mu          sync.Mutex
	state       RequestState
	history     []RequestState
	err         error
	createdAt   time.Time
	completedAt time.Time

	cancel context.CancelFunc
}

func newRequest(nodeID string, cancel context.CancelFunc) *Request {
	return &Request{
		ID:        uuid.NewString(),
		NodeID:    nodeID,
		state:     RequestRequested,
		history:   []RequestState{RequestRequested},
		createdAt: time.Now(),
		cancel:    cancel,
	}
}

// State returns the current state
func (r *Request) State() RequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// History returns every state the request has been in, in order
func (r *Request) History() []RequestState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]RequestState(nil), r.history...)
}

// Err returns the failure cause of a failed or cancelled request
func (r *Request) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// Duration returns how long the request ran, or has been running
func (r *Request) Duration() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.completedAt.IsZero() {
		return time.Since(r.createdAt)
	}
	return r.completedAt.Sub(r.createdAt)
}

// transition moves the request to next if the state machine allows it
func (r *Request) transition(next RequestState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, allowed := range requestTransitions[r.state] {
		if allowed == next {
			r.state = next
			r.history = append(r.history, next)
			if next.Terminal() {
				r.completedAt = time.Now()
			}
			return nil
		}
	}
	return errors.Newf("request %s: invalid transition %s -> %s", r.ID, r.state, next)
}

// fail moves the request to failed, recording err
func (r *Request) fail(err error) {
	if r.transition(RequestFailed) == nil {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
	}
}

// abort cancels the fetch and moves the request to cancelled
func (r *Request) abort(reason string) bool {
	if r.cancel != nil {
		r.cancel()
	}
	if r.transition(RequestCancelled) != nil {
		return false
	}
	r.mu.Lock()
	r.err = errors.Newf("cancelled: %s", reason)
	r.mu.Unlock()
	return true
}
