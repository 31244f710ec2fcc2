package mcp

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/gin-gonic/gin"
)

// Session is one SSE connection. Replies to documents POSTed for the
// session are written to its stream.
type Session struct {
	id  string
	ctx context.Context
	w   *SSEWriter

	mu sync.Mutex
	c  *ClientInfo
}

func NewSession(c *gin.Context, id string) *Session {
	return &Session{
		id:  id,
		ctx: c.Request.Context(),
		w:   NewSSEWriter(c, id),
	}
}

func (s *Session) ID() string {
	return s.id
}

// Context is done when the SSE stream closes.
func (s *Session) Context() context.Context {
	return s.ctx
}

func (s *Session) Write(p []byte) (n int, err error) {
	return s.w.Write(p)
}

// WriteReply sends a reply as one message event. A batch reply stays one
// event holding the array.
func (s *Session) WriteReply(resp BatchResponse) error {
	if !resp.HasReply() {
		return nil
	}
	b, err := json.Marshal(resp)
	if err != nil {
		return err
	}
	_, err = s.Write(b)
	return err
}

func (s *Session) SaveClientInfo(c *ClientInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.c = c
}

func (s *Session) ClientInfo() *ClientInfo {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.c
}
