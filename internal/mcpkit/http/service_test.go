package http

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjzar/mcpkit/internal/mcp"
	"github.com/sjzar/mcpkit/internal/mcpkit/conf"
	"github.com/sjzar/mcpkit/internal/mcpkit/service"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	sc := &conf.ServerConfig{HTTPAddr: "127.0.0.1:0"}
	svc := service.NewService(sc)
	require.NoError(t, svc.Start())
	t.Cleanup(func() { _ = svc.Stop() })

	m := mcp.NewMCP(mcp.NewProcessor(svc, sc.GetMaxConcurrency()))
	return NewService(sc, m)
}

func serve(s *Service, method, target, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	s.GetRouter().ServeHTTP(w, req)
	return w
}

func TestRoutes(t *testing.T) {
	s := newTestService(t)

	tests := []struct {
		name       string
		method     string
		target     string
		body       string
		wantStatus int
		wantBody   string
	}{
		{"health", http.MethodGet, "/health", "", 200, `{"status":"ok"}`},
		{"inline call", http.MethodPost, "/mcp", `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`, 200, `"text":"hi"`},
		{"inline batch", http.MethodPost, "/mcp", `[{"jsonrpc":"2.0","id":1,"method":"ping"},{"jsonrpc":"2.0","id":2,"method":"nope"}]`, 200, `-32601`},
		{"inline notification", http.MethodPost, "/mcp", `{"jsonrpc":"2.0","method":"notifications/initialized"}`, 202, ""},
		{"inline parse error", http.MethodPost, "/mcp", `{`, 200, `-32700`},
		{"inline wrong method", http.MethodGet, "/mcp", "", 405, ""},
		{"message without session", http.MethodPost, "/message", `{}`, 400, `Invalid session ID`},
		{"message unknown session", http.MethodPost, "/message?sessionId=nope", `{}`, 404, `Could not find session`},
		{"preflight", http.MethodOptions, "/mcp", "", 204, ""},
		{"no route", http.MethodGet, "/nope", "", 404, `"type":"not_found"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(s, tt.method, tt.target, tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantBody != "" {
				assert.Contains(t, w.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestInlineGzip(t *testing.T) {
	s := newTestService(t)

	body := `{"jsonrpc":"2.0","id":1,"method":"tools/list"}`
	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(body))
	req.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	s.GetRouter().ServeHTTP(w, req)

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
}

type sseEvent struct {
	name string
	data string
}

func readEvents(r io.Reader, events chan<- sseEvent) {
	scanner := bufio.NewScanner(r)
	var ev sseEvent
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		case line == "" && ev.name != "":
			events <- ev
			ev = sseEvent{}
		}
	}
	close(events)
}

func nextEvent(t *testing.T, events <-chan sseEvent) sseEvent {
	t.Helper()
	select {
	case ev, ok := <-events:
		require.True(t, ok, "stream closed")
		return ev
	case <-time.After(3 * time.Second):
		t.Fatal("no event")
		return sseEvent{}
	}
}

func TestSSERoundTrip(t *testing.T) {
	s := newTestService(t)
	s.mcp.Start()
	ts := httptest.NewServer(s.GetRouter())
	defer s.mcp.Close()
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/sse")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/event-stream")

	events := make(chan sseEvent, 8)
	go readEvents(resp.Body, events)

	endpoint := nextEvent(t, events)
	require.Equal(t, "endpoint", endpoint.name)
	require.True(t, strings.HasPrefix(endpoint.data, "/message?sessionId="))

	post := func(body string) int {
		r, err := http.Post(ts.URL+endpoint.data, "application/json", strings.NewReader(body))
		require.NoError(t, err)
		_ = r.Body.Close()
		return r.StatusCode
	}

	assert.Equal(t, 202, post(`[{"jsonrpc":"2.0","id":"a","method":"ping"},{"jsonrpc":"2.0","method":"notifications/initialized"},{"jsonrpc":"2.0","id":"b","method":"tools/call","params":{"name":"echo","arguments":{"text":"x"}}}]`))

	msg := nextEvent(t, events)
	require.Equal(t, "message", msg.name)

	var replies []map[string]any
	require.NoError(t, json.Unmarshal([]byte(msg.data), &replies))
	require.Len(t, replies, 2)
	assert.Equal(t, "a", replies[0]["id"])
	assert.Equal(t, "b", replies[1]["id"])

	// a decode failure is answered on the stream as well
	assert.Equal(t, 202, post(`{"jsonrpc":"2.0","id":3`))
	msg = nextEvent(t, events)
	assert.Contains(t, msg.data, "-32700")
}
