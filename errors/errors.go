// Package errors provides error handling for yesah.
//
// This package re-exports github.com/cockroachdb/errors so stack traces,
// hints and wrapping behave the same everywhere, and defines the sentinel
// errors the engine and its providers return.
//
// Usage:
//
//	if err := provider.FetchFull(ctx, id); err != nil {
//	    return errors.Wrapf(err, "failed to fetch %s", id)
//	}
//
//	if errors.Is(err, errors.ErrDepthLimit) {
//	    // node is too deep to expand
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
	Mark         = crdb.Mark
)

// User-facing messages and details
var (
	WithHint       = crdb.WithHint
	WithHintf      = crdb.WithHintf
	WithDetail     = crdb.WithDetail
	WithDetailf    = crdb.WithDetailf
	GetAllHints    = crdb.GetAllHints
	GetAllDetails  = crdb.GetAllDetails
	FlattenHints   = crdb.FlattenHints
	FlattenDetails = crdb.FlattenDetails
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// AssertionFailedf reports a broken engine invariant.
var AssertionFailedf = crdb.AssertionFailedf

// Sentinel errors. Wrap them with Wrap/Wrapf to add context while keeping
// errors.Is working.
var (
	// ErrNotFound indicates the requested node, link or payload does not exist
	ErrNotFound = New("not found")

	// ErrInvalidPayload indicates an interaction payload could not be decoded
	ErrInvalidPayload = New("invalid payload")

	// ErrConflict indicates an operation conflicts with the current graph state
	ErrConflict = New("conflict")

	// ErrAlreadyExpanded indicates a merge was attempted for an expanded node
	ErrAlreadyExpanded = Wrap(ErrConflict, "already expanded")

	// ErrDepthLimit indicates the node is deeper than the expansion limit
	ErrDepthLimit = Wrap(ErrConflict, "depth limit reached")

	// ErrExpansionPending indicates an expansion for the node is already in flight
	ErrExpansionPending = Wrap(ErrConflict, "expansion pending")

	// ErrStaleResult indicates an async result arrived for a superseded request
	ErrStaleResult = New("stale result")

	// ErrNeedsFull indicates the pruned subgraph is unavailable and the full
	// payload must be fetched instead
	ErrNeedsFull = New("full payload required")

	// ErrServiceUnavailable indicates the subgraph provider could not be reached
	ErrServiceUnavailable = New("service unavailable")

	// ErrTimeout indicates an operation timed out
	ErrTimeout = New("operation timed out")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsConflictError checks if an error is or wraps ErrConflict
func IsConflictError(err error) bool {
	return err != nil && Is(err, ErrConflict)
}

// IsServiceUnavailableError checks if an error is or wraps ErrServiceUnavailable
func IsServiceUnavailableError(err error) bool {
	return err != nil && Is(err, ErrServiceUnavailable)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrapf(ErrNotFound, format, args...)
}

// NewInvalidPayloadError creates an invalid-payload error with a formatted message
func NewInvalidPayloadError(format string, args ...interface{}) error {
	return Wrapf(ErrInvalidPayload, format, args...)
}
