package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	grapherr "github.com/aryanzandi123/yesah/graph/error"
	"github.com/aryanzandi123/yesah/logger"
	"github.com/aryanzandi123/yesah/version"
)

// Handler returns the HTTP routes of the server
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.corsMiddleware(s.HandleWebSocket))                  // Frames out, commands in
	mux.HandleFunc("GET /health", s.corsMiddleware(s.HandleHealth))             // Liveness and client count
	mux.HandleFunc("GET /api/snapshot", s.corsMiddleware(s.HandleSnapshot))     // Current positioned graph
	mux.HandleFunc("OPTIONS /api/snapshot", s.corsMiddleware(s.HandleSnapshot)) // Preflight
	return mux
}

// corsMiddleware adds CORS headers for allowed origins and answers preflight requests
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.checkOrigin(r) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next(w, r)
	}
}

// HandleWebSocket upgrades a viewer connection and starts its pumps
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if s.getState() != ServerStateRunning {
		writeError(w, http.StatusServiceUnavailable, "server is shutting down")
		return
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  2048,
		WriteBufferSize: 2048,
		CheckOrigin:     s.checkOrigin,
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		ge := grapherr.New(grapherr.CategoryWebSocket, err, "").
			WithSubcategory(grapherr.SubcategoryWSUpgrade)
		s.logger.Errorw("WebSocket upgrade failed", ge.ToLogFields()...)
		return
	}

	client := newClient(s, conn, uuid.NewString())
	select {
	case s.register <- client:
	case <-s.ctx.Done():
		conn.Close()
		return
	}

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		client.writePump()
	}()
	go func() {
		defer s.wg.Done()
		client.readPump()
	}()

	s.logger.Debugw("WebSocket pumps started",
		logger.FieldClientID, client.id,
		logger.FieldAddress, r.RemoteAddr)
}

// HandleHealth reports liveness
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	info := version.Get()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":          stateString(s.getState()),
		"version":         info.Version,
		"commit":          info.Short(),
		"clients":         s.ClientCount(),
		"broadcast_drops": s.broadcastDrops.Load(),
	})
}

// HandleSnapshot serves the current positioned graph as JSON
func (s *Server) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	g, err := s.Snapshot(r.Context())
	if err != nil {
		writeWrappedError(w, s.logger, err, "failed to take snapshot", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, g)
}
