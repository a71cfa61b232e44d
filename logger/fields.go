package logger

import (
	"context"

	"go.uber.org/zap"
)

// Standard field names for consistent structured logging.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and context
	FieldRequestID = "request_id"
	FieldClientID  = "client_id"
	FieldJobID     = "job_id"

	// Components
	FieldComponent = "component"
	FieldProvider  = "provider"

	// Graph
	FieldRoot      = "root"
	FieldNodeID    = "node_id"
	FieldLinkID    = "link_id"
	FieldClusterID = "cluster_id"
	FieldMediator  = "mediator"
	FieldProtein   = "protein"
	FieldArrow     = "arrow"
	FieldDepth     = "depth"

	// Simulation
	FieldAlpha     = "alpha"
	FieldTick      = "tick"
	FieldSimState  = "sim_state"
	FieldNodeCount = "node_count"
	FieldLinkCount = "link_count"

	// Operations
	FieldOperation = "operation"
	FieldState     = "state"
	FieldStatus    = "status"
	FieldURL       = "url"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError     = "error"
	FieldErrorType = "error_type"

	// Counts and sizes
	FieldCount = "count"
	FieldSize  = "size"

	// Files and network
	FieldFile    = "file"
	FieldAddress = "address"
)

// Context keys for propagating logging context
type contextKey string

const (
	requestIDKey contextKey = "logger_request_id"
	nodeIDKey    contextKey = "logger_node_id"
	componentKey contextKey = "logger_component"
)

// WithRequestID adds an expansion request ID to the context for logging
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithNodeID adds the node being expanded or collapsed to the context
func WithNodeID(ctx context.Context, nodeID string) context.Context {
	return context.WithValue(ctx, nodeIDKey, nodeID)
}

// WithComponent adds a component name to the context for logging
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// FieldsFromContext extracts logging fields from context.
// Returns key-value pairs suitable for use with Infow/Errorw/etc.
func FieldsFromContext(ctx context.Context) []interface{} {
	var fields []interface{}

	if requestID, ok := ctx.Value(requestIDKey).(string); ok && requestID != "" {
		fields = append(fields, FieldRequestID, requestID)
	}
	if nodeID, ok := ctx.Value(nodeIDKey).(string); ok && nodeID != "" {
		fields = append(fields, FieldNodeID, nodeID)
	}
	if component, ok := ctx.Value(componentKey).(string); ok && component != "" {
		fields = append(fields, FieldComponent, component)
	}

	return fields
}

// LoggerFromContext returns a logger with fields extracted from context.
func LoggerFromContext(ctx context.Context) *zap.SugaredLogger {
	fields := FieldsFromContext(ctx)
	if len(fields) == 0 {
		return Logger
	}
	return Logger.With(fields...)
}

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	func NewSimulation(cfg Params) *Simulation {
//	    return &Simulation{
//	        logger: logger.ComponentLogger("layout.sim"),
//	    }
//	}
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// ChildLogger creates a child logger with additional context.
//
// Example:
//
//	reqLogger := logger.ChildLogger(baseLogger, "request_id", req.ID)
func ChildLogger(parent *zap.SugaredLogger, keysAndValues ...interface{}) *zap.SugaredLogger {
	return parent.With(keysAndValues...)
}
