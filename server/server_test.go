package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/aryanzandi123/yesah/am"
	"github.com/aryanzandi123/yesah/engine"
	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	grapherr "github.com/aryanzandi123/yesah/graph/error"
	"github.com/aryanzandi123/yesah/provider"
)

var testServerConfig = am.ServerConfig{
	FrameRate:      30,
	CommandRate:    100,
	CommandBurst:   100,
	AllowedOrigins: []string{"http://localhost"},
}

// newTestEngine builds A with members B and C, expanding from payload files in dir
func newTestEngine(t *testing.T, dir, root string, members ...string) *engine.Engine {
	log := zaptest.NewLogger(t).Sugar()
	var records []graph.Record
	for _, m := range members {
		records = append(records, graph.Record{
			Kind: graph.KindDirect, Source: root, Target: m, Arrow: "binds", Confidence: 0.9,
		})
	}
	model := graph.NewBuilder(log).Build(root, nil, records)
	return engine.New(model, provider.NewDirProvider(dir, log), engine.DefaultOptions(), log)
}

// startTestServer runs the loop and an HTTP test server, returning the ws URL
func startTestServer(t *testing.T, eng *engine.Engine) (*Server, *httptest.Server) {
	s := New(eng, testServerConfig, zaptest.NewLogger(t).Sugar())
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.Run()
	}()
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		ts.Close()
		s.Stop()
	})
	return s, ts
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads messages until one of the given type satisfies match
func readUntil(t *testing.T, conn *websocket.Conn, msgType string, match func(map[string]interface{}) bool) map[string]interface{} {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg map[string]interface{}
		require.NoError(t, conn.ReadJSON(&msg))
		if msg["type"] == msgType && (match == nil || match(msg)) {
			return msg
		}
	}
}

func stringList(v interface{}) []string {
	raw, _ := v.([]interface{})
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.(string))
	}
	return out
}

func writePayload(t *testing.T, dir, main string, members ...string) {
	t.Helper()
	var interactions []map[string]interface{}
	proteins := []string{main}
	for _, m := range members {
		proteins = append(proteins, m)
		interactions = append(interactions, map[string]interface{}{
			"source": main, "target": m, "type": "direct", "arrow": "activates", "confidence": 0.8,
		})
	}
	data, err := json.Marshal(map[string]interface{}{
		"main": main, "proteins": proteins, "interactions": interactions,
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, main+".json"), data, 0o644))
}

func TestServer_InitialFrame(t *testing.T) {
	_, ts := startTestServer(t, newTestEngine(t, t.TempDir(), "A", "B", "C"))
	conn := dial(t, ts)

	msg := readUntil(t, conn, MsgFrame, nil)
	g := msg["graph"].(map[string]interface{})
	nodes := g["nodes"].([]interface{})
	assert.Len(t, nodes, 3)
	assert.Equal(t, "A", g["meta"].(map[string]interface{})["root"])
}

func TestServer_ExpandAndCollapse(t *testing.T) {
	dir := t.TempDir()
	writePayload(t, dir, "B", "D", "E")
	_, ts := startTestServer(t, newTestEngine(t, dir, "A", "B", "C"))
	conn := dial(t, ts)
	readUntil(t, conn, MsgFrame, nil)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgExpand, Node: "B"}))
	pending := readUntil(t, conn, MsgExpansion, nil)
	assert.Equal(t, ExpansionPending, pending["status"])
	assert.NotEmpty(t, pending["request_id"])

	merged := readUntil(t, conn, MsgExpansion, nil)
	assert.Equal(t, ExpansionMerged, merged["status"])
	assert.Equal(t, "B", merged["node"])
	assert.Equal(t, pending["request_id"], merged["request_id"])
	assert.ElementsMatch(t, []string{"D", "E"}, stringList(merged["new_nodes"]))

	readUntil(t, conn, MsgFrame, func(m map[string]interface{}) bool {
		return len(m["graph"].(map[string]interface{})["nodes"].([]interface{})) == 5
	})

	// expanding again toggles the expansion closed
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgExpand, Node: "B"}))
	collapsed := readUntil(t, conn, MsgExpansion, nil)
	assert.Equal(t, ExpansionCollapsed, collapsed["status"])
	assert.ElementsMatch(t, []string{"D", "E"}, stringList(collapsed["removed_nodes"]))
}

func TestServer_ExpansionFailureIsBroadcast(t *testing.T) {
	// no payload file for C: the dir provider needs the full payload and has none
	_, ts := startTestServer(t, newTestEngine(t, t.TempDir(), "A", "B", "C"))
	conn := dial(t, ts)
	readUntil(t, conn, MsgFrame, nil)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgExpand, Node: "C"}))
	errMsg := readUntil(t, conn, MsgError, nil)
	assert.Equal(t, "C", errMsg["node"])
	assert.Equal(t, "provider", errMsg["meta"].(map[string]interface{})["category"])

	failed := readUntil(t, conn, MsgExpansion, func(m map[string]interface{}) bool {
		return m["status"] == ExpansionFailed
	})
	assert.Equal(t, "C", failed["node"])
}

func TestServer_RejectedCommands(t *testing.T) {
	_, ts := startTestServer(t, newTestEngine(t, t.TempDir(), "A", "B", "C"))
	conn := dial(t, ts)
	readUntil(t, conn, MsgFrame, nil)

	tests := []struct {
		name     string
		msg      ClientMessage
		category string
	}{
		{"expand unknown node", ClientMessage{Type: MsgExpand, Node: "ZZZ"}, "expansion"},
		{"drag unknown node", ClientMessage{Type: MsgDragStart, Node: "ZZZ"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteJSON(tt.msg))
			msg := readUntil(t, conn, MsgError, nil)
			assert.Equal(t, tt.msg.Node, msg["node"])
			assert.NotEmpty(t, msg["error"])
			if tt.category != "" {
				assert.Equal(t, tt.category, msg["meta"].(map[string]interface{})["category"])
			}
		})
	}
}

func TestErrorMessage_Reasons(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		category string
		reason   string
	}{
		{
			name:     "depth limit",
			err:      grapherr.New(grapherr.CategoryExpansion, errors.Wrap(errors.ErrDepthLimit, "node B"), ""),
			category: "expansion",
			reason:   reasonConflict,
		},
		{
			name:   "no provider",
			err:    errors.Wrap(errors.ErrServiceUnavailable, "no subgraph provider configured"),
			reason: reasonUnavailable,
		},
		{
			name: "plain failure",
			err:  errors.New("boom"),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := errorMessage("B", tt.err)
			assert.Equal(t, MsgError, msg.Type)
			assert.Equal(t, "B", msg.Node)
			if tt.category == "" && tt.reason == "" {
				assert.Nil(t, msg.Meta)
				return
			}
			assert.Equal(t, tt.reason, msg.Meta["reason"])
			assert.Equal(t, tt.category, msg.Meta["category"])
		})
	}
}

func TestServer_DragMovesNode(t *testing.T) {
	_, ts := startTestServer(t, newTestEngine(t, t.TempDir(), "A", "B", "C"))
	conn := dial(t, ts)
	readUntil(t, conn, MsgFrame, nil)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgDragStart, Node: "B"}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgDrag, Node: "B", X: 42, Y: 24}))

	readUntil(t, conn, MsgFrame, func(m map[string]interface{}) bool {
		for _, n := range m["graph"].(map[string]interface{})["nodes"].([]interface{}) {
			node := n.(map[string]interface{})
			if node["id"] == "B" {
				return node["x"] == 42.0 && node["y"] == 24.0 && node["pinned"] == true
			}
		}
		return false
	})
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MsgDragEnd, Node: "B"}))
}

func TestServer_SnapshotAndHealth(t *testing.T) {
	s, ts := startTestServer(t, newTestEngine(t, t.TempDir(), "A", "B"))

	resp, err := http.Get(ts.URL + "/api/snapshot")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var g graph.Graph
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&g))
	assert.Equal(t, "A", g.Meta.Root)
	assert.Len(t, g.Nodes, 2)
	for _, l := range g.Links {
		assert.True(t, strings.HasPrefix(l.Path, "M"))
	}

	dial(t, ts)
	require.Eventually(t, func() bool { return s.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hresp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer hresp.Body.Close()
	var health map[string]interface{}
	require.NoError(t, json.NewDecoder(hresp.Body).Decode(&health))
	assert.Equal(t, "running", health["status"])
	assert.Equal(t, 1.0, health["clients"])
}

func TestServer_Reload(t *testing.T) {
	s, ts := startTestServer(t, newTestEngine(t, t.TempDir(), "A", "B"))
	conn := dial(t, ts)
	readUntil(t, conn, MsgFrame, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Reload(ctx, newTestEngine(t, t.TempDir(), "X", "Y", "Z")))

	readUntil(t, conn, MsgFrame, func(m map[string]interface{}) bool {
		return m["graph"].(map[string]interface{})["meta"].(map[string]interface{})["root"] == "X"
	})
	g, err := s.Snapshot(ctx)
	require.NoError(t, err)
	assert.Len(t, g.Nodes, 3)
}

func TestServer_CheckOrigin(t *testing.T) {
	s := New(newTestEngine(t, t.TempDir(), "A"), testServerConfig, zaptest.NewLogger(t).Sugar())
	t.Cleanup(s.cancel)

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://evil.example", false},
		{"https://localhost", false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/ws", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, s.checkOrigin(r))
		})
	}
}

func TestServer_StoppedRejectsCommands(t *testing.T) {
	s := New(newTestEngine(t, t.TempDir(), "A", "B"), testServerConfig, zaptest.NewLogger(t).Sugar())
	require.NoError(t, s.Stop())

	_, err := s.Snapshot(context.Background())
	assert.Error(t, err)
	assert.Equal(t, ServerStateStopped, s.getState())
}
