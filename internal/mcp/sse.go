package mcp

import (
	stderrors "errors"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const (
	SSEPingIntervalS = 30
	SSEContentType   = "text/event-stream; charset=utf-8"
)

// ErrStreamClosed is returned for writes after the SSE handler returned.
var ErrStreamClosed = stderrors.New("sse stream closed")

// SSEWriter writes server-sent events to a gin response. Every Write is one
// `message` event. Writes are serialized: batch workers and the ping loop
// share the stream.
type SSEWriter struct {
	id     string
	c      *gin.Context
	mu     sync.Mutex
	closed bool
}

func NewSSEWriter(c *gin.Context, id string) *SSEWriter {
	c.Writer.Header().Set("Content-Type", SSEContentType)
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Flush()

	return &SSEWriter{
		id: id,
		c:  c,
	}
}

// Open announces the message endpoint and starts the keepalive pings.
func (w *SSEWriter) Open() {
	w.WriteEndpoint()
	go w.ping()
}

// Close marks the stream finished. The gin context must not be touched
// after its handler returns, so Close is called before that.
func (w *SSEWriter) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
}

func (w *SSEWriter) Write(p []byte) (n int, err error) {
	if err := w.WriteMessage(string(p)); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *SSEWriter) WriteMessage(data string) error {
	return w.WriteEvent("message", data)
}

func (w *SSEWriter) WriteEvent(event string, data string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrStreamClosed
	}
	w.c.Writer.WriteString(fmt.Sprintf("event: %s\n", event))
	w.c.Writer.WriteString(fmt.Sprintf("data: %s\n\n", data))
	w.c.Writer.Flush()
	return nil
}

func (w *SSEWriter) ping() {
	ticker := time.NewTicker(time.Second * SSEPingIntervalS)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.writePing()
		case <-w.c.Request.Context().Done():
			return
		}
	}
}

// WriteEndpoint
// event: endpoint
// data: /message?sessionId=285d67ee-1c17-40d9-ab03-173d5ff48419
func (w *SSEWriter) WriteEndpoint() error {
	return w.WriteEvent("endpoint", fmt.Sprintf("/message?sessionId=%s", w.id))
}

// writePing
// : ping - 2025-03-16 06:41:51.280928+00:00
func (w *SSEWriter) writePing() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return
	}
	w.c.Writer.WriteString(fmt.Sprintf(": ping - %s\n\n", time.Now().Format("2006-01-02 15:04:05.999999-07:00")))
	w.c.Writer.Flush()
}

// Event
// request:
//   POST /message?sessionId=?
//   '[{"method":"ping","jsonrpc":"2.0","id":3},{"method":"tools/list","jsonrpc":"2.0","id":4}]'
//
// response:
//   GET /sse
//   event: message
//   data: [{"jsonrpc":"2.0","id":3,"result":{}},{"jsonrpc":"2.0","id":4,"result":{"tools":[...]}}]
