// Package server streams a live interaction graph to browser viewers over a
// WebSocket and applies their expand, collapse and drag commands.
//
// One loop goroutine owns the engine. Clients never touch it: their commands
// are queued to the loop, and the loop is the only writer to client channels.
package server

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/logger"
)

// Server is the hub between one engine and its viewers
type Server struct {
	engine *engine.Engine // owned by the loop goroutine
	cfg    am.ServerConfig
	logger *zap.SugaredLogger

	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	commands   chan command
	mu         sync.RWMutex // guards clients for readers outside the loop

	httpServer *http.Server

	// Lifecycle management
	ctx            context.Context
	cancel         context.CancelFunc
	wg             sync.WaitGroup
	broadcastDrops atomic.Int64
	state          atomic.Int32
}

// command is a function the loop runs against the engine
type command struct {
	fn   func()
	done chan struct{}
}

// New creates a server around eng. Call Run to start the loop.
func New(eng *engine.Engine, cfg am.ServerConfig, log *zap.SugaredLogger) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		engine:     eng,
		cfg:        cfg,
		logger:     log.Named("server"),
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		commands:   make(chan command, commandQueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
	s.subscribe(eng)
	return s
}

func (s *Server) subscribe(eng *engine.Engine) {
	eng.OnSettle(func(ev engine.SettleEvent) {
		s.broadcast(settledMessage(ev))
	})
}

// Run is the engine loop: it ticks the simulation, emits frames, applies
// fetch deliveries and runs client commands until the server stops
func (s *Server) Run() {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	s.logger.Debugw("Engine loop started", logger.FieldRoot, s.engine.Root())
	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debugw("Engine loop stopping due to context cancellation")
			return
		case client := <-s.register:
			s.handleClientRegister(client)
		case client := <-s.unregister:
			s.handleClientUnregister(client)
		case cmd := <-s.commands:
			cmd.fn()
			close(cmd.done)
		case d := <-s.engine.Deliveries():
			s.handleDelivery(d)
		case now := <-ticker.C:
			s.step(now)
		}
	}
}

// step advances the simulation and sends a frame when one is due
func (s *Server) step(now time.Time) {
	s.engine.Tick()
	g, ok := s.engine.Frame(now)
	if !ok {
		return
	}
	sent := s.broadcast(FrameMessage{Type: MsgFrame, Graph: g})
	if logger.ShouldLogTrace(logger.Verbosity) {
		s.logger.Debugw("Frame sent",
			logger.FieldNodeCount, len(g.Nodes),
			logger.FieldCount, sent)
	}
}

// exec runs fn on the loop goroutine and waits for it
func (s *Server) exec(ctx context.Context, fn func()) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.Wrap(errors.ErrServiceUnavailable, "server stopped")
	}
	select {
	case <-cmd.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return errors.Wrap(errors.ErrServiceUnavailable, "server stopped")
	}
}

// Snapshot returns the current positioned graph
func (s *Server) Snapshot(ctx context.Context) (*graph.Graph, error) {
	var g graph.Graph
	if err := s.exec(ctx, func() { g = s.engine.Snapshot() }); err != nil {
		return nil, err
	}
	return &g, nil
}

// Reload replaces the engine, for example after the payload file changed.
// The old engine is closed and viewers receive the new graph.
func (s *Server) Reload(ctx context.Context, eng *engine.Engine) error {
	return s.exec(ctx, func() {
		old := s.engine
		s.engine = eng
		old.Close()
		s.subscribe(eng)
		g := eng.Snapshot()
		s.broadcast(FrameMessage{Type: MsgFrame, Graph: &g})
		s.logger.Infow("Engine reloaded",
			logger.FieldRoot, eng.Root(),
			logger.FieldNodeCount, len(g.Nodes))
	})
}

// handleDelivery applies a finished fetch and reports the outcome
func (s *Server) handleDelivery(d engine.Delivery) {
	res, err := s.engine.ApplyDelivery(d)
	if errors.Is(err, errors.ErrStaleResult) {
		return
	}
	if err != nil {
		s.broadcast(errorMessage(d.NodeID, err))
		s.broadcast(ExpansionMessage{
			Type:      MsgExpansion,
			Node:      d.NodeID,
			Status:    ExpansionFailed,
			RequestID: d.RequestID,
		})
		return
	}
	s.broadcast(ExpansionMessage{
		Type:      MsgExpansion,
		Node:      d.NodeID,
		Status:    ExpansionMerged,
		RequestID: d.RequestID,
		Cluster:   res.Cluster,
		NewNodes:  res.NewNodes,
	})
}

// handleClientRegister adds a client and sends it the current graph
func (s *Server) handleClientRegister(client *Client) {
	s.mu.Lock()
	if len(s.clients) >= MaxClients {
		s.mu.Unlock()
		s.logger.Warnw("Max clients reached, rejecting connection",
			logger.FieldClientID, client.id,
			"max_clients", MaxClients)
		client.close()
		return
	}
	s.clients[client] = true
	total := len(s.clients)
	s.mu.Unlock()

	s.logger.Infow("Client connected",
		logger.FieldClientID, client.id,
		"total_clients", total)

	g := s.engine.Snapshot()
	s.sendTo(client, FrameMessage{Type: MsgFrame, Graph: &g})
}

// handleClientUnregister removes a client and closes its queue
func (s *Server) handleClientUnregister(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, client)
	total := len(s.clients)
	s.mu.Unlock()

	client.close()
	s.logger.Infow("Client disconnected",
		logger.FieldClientID, client.id,
		"total_clients", total)
}

// broadcast queues msg for every client and returns how many accepted it.
// Only called from the loop goroutine.
func (s *Server) broadcast(msg interface{}) int {
	s.mu.RLock()
	clients := make([]*Client, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.RUnlock()

	sent := 0
	for _, client := range clients {
		if s.sendTo(client, msg) {
			sent++
		}
	}
	return sent
}

// sendTo queues msg for one client, dropping the client when it cannot keep up.
// Only called from the loop goroutine.
func (s *Server) sendTo(client *Client, msg interface{}) bool {
	s.mu.RLock()
	registered := s.clients[client]
	s.mu.RUnlock()
	if !registered {
		return false
	}

	select {
	case client.send <- msg:
		return true
	default:
		s.broadcastDrops.Add(1)
		s.removeSlowClient(client)
		return false
	}
}

// removeSlowClient drops a client whose queue is full
func (s *Server) removeSlowClient(client *Client) {
	s.mu.Lock()
	if _, ok := s.clients[client]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, client)
	s.mu.Unlock()

	client.close()
	s.logger.Warnw("Client send queue full, removing client",
		logger.FieldClientID, client.id,
		"total_drops", s.broadcastDrops.Load())
}

// ClientCount returns the number of connected clients
func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
