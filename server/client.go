package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/errors"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
	"github.com/aryanzandi123/yesah/logger"
)

// WebSocket timeouts following the Gorilla chat example
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = 54 * time.Second

	// Maximum message size allowed from peer; commands are small
	maxMessageSize = 64 * 1024
)

// Client is one connected viewer
type Client struct {
	server    *Server
	conn      *websocket.Conn
	send      chan interface{}
	id        string
	limiter   *rate.Limiter // caps commands per second
	closeOnce sync.Once
}

func newClient(s *Server, conn *websocket.Conn, id string) *Client {
	return &Client{
		server:  s,
		conn:    conn,
		send:    make(chan interface{}, MaxClientMessageQueueSize),
		id:      id,
		limiter: rate.NewLimiter(rate.Limit(s.cfg.CommandRate), s.cfg.CommandBurst),
	}
}

// readPump reads commands from the connection until it closes
func (c *Client) readPump() {
	defer func() {
		select {
		case c.server.unregister <- c:
		case <-c.server.ctx.Done():
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.handleReadError(err)
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.server.logger.Warnw("JSON unmarshal error",
				logger.FieldError, err.Error(),
				logger.FieldClientID, c.id)
			continue
		}
		if msg.Type == MsgPing {
			continue
		}
		if !c.limiter.Allow() {
			c.server.logger.Debugw("Command rate limited",
				"type", msg.Type,
				logger.FieldClientID, c.id)
			continue
		}
		c.routeMessage(&msg)
	}
}

// handleReadError logs unexpected read errors. Normal closes are ignored.
func (c *Client) handleReadError(err error) {
	if websocket.IsUnexpectedCloseError(err,
		websocket.CloseGoingAway,
		websocket.CloseNormalClosure,
		websocket.CloseAbnormalClosure,
		websocket.CloseNoStatusReceived,
	) {
		ge := grapherr.New(grapherr.CategoryWebSocket, err, "").
			WithSubcategory(grapherr.SubcategoryWSRead).
			WithContext(logger.FieldClientID, c.id)
		c.server.logger.Warnw("WebSocket read error", ge.ToLogFields()...)
	}
}

// routeMessage runs a command on the engine loop
func (c *Client) routeMessage(msg *ClientMessage) {
	var fn func()
	switch msg.Type {
	case MsgExpand:
		fn = func() { c.expand(msg.Node) }
	case MsgCollapse:
		fn = func() { c.collapse(msg.Node) }
	case MsgDragStart:
		fn = func() { c.reportErr(msg.Node, c.server.engine.DragStart(msg.Node)) }
	case MsgDrag:
		fn = func() { c.reportErr(msg.Node, c.server.engine.DragTo(msg.Node, msg.X, msg.Y)) }
	case MsgDragEnd:
		fn = func() { c.reportErr(msg.Node, c.server.engine.DragEnd(msg.Node)) }
	default:
		c.server.logger.Debugw("Unknown message type",
			"type", msg.Type,
			logger.FieldClientID, c.id)
		return
	}

	if err := c.server.exec(c.server.ctx, fn); err != nil {
		c.server.logger.Debugw("Command dropped",
			"type", msg.Type,
			logger.FieldClientID, c.id,
			logger.FieldError, err)
	}
}

// expand toggles a node. Runs on the engine loop.
func (c *Client) expand(nodeID string) {
	s := c.server
	out, err := s.engine.Expand(s.ctx, nodeID)
	if err != nil {
		c.reportErr(nodeID, err)
		return
	}
	if out.Request != nil {
		s.broadcast(ExpansionMessage{
			Type:      MsgExpansion,
			Node:      nodeID,
			Status:    ExpansionPending,
			RequestID: out.Request.ID,
		})
		return
	}
	if out.Collapsed != nil {
		s.broadcast(collapsedMessage(out.Collapsed))
	}
}

// collapse closes a node's expansion. Runs on the engine loop.
func (c *Client) collapse(nodeID string) {
	res, err := c.server.engine.Collapse(nodeID)
	if err != nil {
		c.reportErr(nodeID, err)
		return
	}
	if res.Changed() {
		c.server.broadcast(collapsedMessage(res))
	}
}

// reportErr sends err to this client only. Runs on the engine loop.
func (c *Client) reportErr(nodeID string, err error) {
	if err == nil {
		return
	}
	c.server.logger.Debugw("Command rejected",
		logger.FieldClientID, c.id,
		logger.FieldNodeID, nodeID,
		logger.FieldError, err)
	c.server.sendTo(c, errorMessage(nodeID, err))
}

// writePump writes queued messages and keepalive pings to the connection
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case <-c.server.ctx.Done():
			return
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				ge := grapherr.New(grapherr.CategoryWebSocket, err, "").
					WithSubcategory(grapherr.SubcategoryWSWrite).
					WithContext(logger.FieldClientID, c.id)
				c.server.logger.Warnw("WebSocket write error", ge.ToLogFields()...)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// close closes the send queue once
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.send)
	})
}

func collapsedMessage(res *engine.CollapseResult) ExpansionMessage {
	return ExpansionMessage{
		Type:      MsgExpansion,
		Node:      res.Owner,
		Status:    ExpansionCollapsed,
		Removed:   res.RemovedNodes,
		Surviving: res.Surviving,
		Cascaded:  res.Cascaded,
	}
}

func errorMessage(nodeID string, err error) ErrorMessage {
	msg := ErrorMessage{Type: MsgError, Node: nodeID, Error: err.Error(), Meta: map[string]string{}}
	if ge, ok := grapherr.As(err); ok {
		msg.Error = ge.ToUIMessage()
		msg.Meta["category"] = string(ge.Category)
		if ge.Subcategory != "" {
			msg.Meta["subcategory"] = ge.Subcategory
		}
	}
	switch {
	case errors.IsConflictError(err):
		msg.Meta["reason"] = reasonConflict
	case errors.IsServiceUnavailableError(err):
		msg.Meta["reason"] = reasonUnavailable
	}
	if len(msg.Meta) == 0 {
		msg.Meta = nil
	}
	return msg
}
