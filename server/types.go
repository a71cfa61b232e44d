package server

import (
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/graph"
)

const (
	// MaxClients is the maximum number of concurrent WebSocket clients
	MaxClients = 100
	// MaxClientMessageQueueSize is the size of per-client message queues
	MaxClientMessageQueueSize = 256
	// ShutdownTimeout is how long to wait for graceful shutdown
	ShutdownTimeout = 10 * time.Second

	// tickInterval paces the simulation; frames are further throttled by the engine
	tickInterval = 16 * time.Millisecond
	// commandQueueSize bounds commands waiting for the loop goroutine
	commandQueueSize = 64
)

// ServerState represents the server lifecycle state
type ServerState int

const (
	ServerStateRunning  ServerState = iota // Normal operation
	ServerStateDraining                    // Graceful shutdown in progress
	ServerStateStopped                     // Shutdown complete
)

// Incoming message types
const (
	MsgExpand    = "expand"
	MsgCollapse  = "collapse"
	MsgDragStart = "drag_start"
	MsgDrag      = "drag"
	MsgDragEnd   = "drag_end"
	MsgPing      = "ping"
)

// Outgoing message types
const (
	MsgFrame     = "frame"
	MsgSettled   = "settled"
	MsgError     = "error"
	MsgExpansion = "expansion"
)

// Expansion statuses reported in ExpansionMessage
const (
	ExpansionPending   = "pending"
	ExpansionMerged    = "merged"
	ExpansionCollapsed = "collapsed"
	ExpansionFailed    = "failed"
)

// ClientMessage is a command sent by a viewer
type ClientMessage struct {
	Type string  `json:"type"` // "expand", "collapse", "drag_start", "drag", "drag_end", "ping"
	Node string  `json:"node"`
	X    float64 `json:"x"` // For drag messages
	Y    float64 `json:"y"` // For drag messages
}

// FrameMessage carries a positioned snapshot
type FrameMessage struct {
	Type  string       `json:"type"`
	Graph *graph.Graph `json:"graph"`
}

// Point is a JSON-friendly coordinate pair
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func pointOf(v r2.Vec) Point {
	return Point{X: v.X, Y: v.Y}
}

// SettledMessage tells viewers where to recenter once the layout rests
type SettledMessage struct {
	Type  string   `json:"type"`
	Root  string   `json:"root"`
	Focus []string `json:"focus"`
	Min   Point    `json:"min"`
	Max   Point    `json:"max"`
	Ticks int      `json:"ticks"`
	First bool     `json:"first,omitempty"`
}

func settledMessage(ev engine.SettleEvent) SettledMessage {
	return SettledMessage{
		Type:  MsgSettled,
		Root:  ev.Root,
		Focus: ev.Focus,
		Min:   pointOf(ev.Min),
		Max:   pointOf(ev.Max),
		Ticks: ev.Ticks,
		First: ev.First,
	}
}

// ErrorMessage reports a rejected command or a failed expansion
type ErrorMessage struct {
	Type  string            `json:"type"`
	Node  string            `json:"node,omitempty"`
	Error string            `json:"error"`
	Meta  map[string]string `json:"meta,omitempty"` // category, subcategory and reason
}

// Error reasons a client can act on
const (
	reasonConflict    = "conflict"    // the graph state forbids the command; no retry
	reasonUnavailable = "unavailable" // no provider answered; retry later
)

// ExpansionMessage reports expansion progress
type ExpansionMessage struct {
	Type      string   `json:"type"`
	Node      string   `json:"node"`
	Status    string   `json:"status"`
	RequestID string   `json:"request_id,omitempty"`
	Cluster   string   `json:"cluster,omitempty"`
	NewNodes  []string `json:"new_nodes,omitempty"`
	Removed   []string `json:"removed_nodes,omitempty"`
	Surviving []string `json:"surviving_nodes,omitempty"`
	Cascaded  []string `json:"cascaded,omitempty"` // expansions closed with this one
}
