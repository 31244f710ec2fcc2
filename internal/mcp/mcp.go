package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

const (
	ProcessChanCap = 1000

	// MaxBodySize caps a single inbound document.
	MaxBodySize = 4 << 20
)

// MCP serves a Processor over HTTP: inline request/response on one
// endpoint, and the SSE pair (GET stream + POST messages) on two others.
type MCP struct {
	processor *Processor

	sessions  map[string]*Session
	sessionMu sync.Mutex

	ProcessChan chan ProcessCtx
	workers     *pool.Pool
	done        chan struct{}
	closeOnce   sync.Once
}

func NewMCP(processor *Processor) *MCP {
	return &MCP{
		processor:   processor,
		sessions:    make(map[string]*Session),
		ProcessChan: make(chan ProcessCtx, ProcessChanCap),
	}
}

// Start runs the worker that drains ProcessChan. Batches of different
// messages run concurrently so a cancellation can overtake the call it
// cancels.
func (m *MCP) Start() {
	m.workers = pool.New().WithMaxGoroutines(m.processor.MaxConcurrency * 4)
	m.done = make(chan struct{})
	go m.worker()
}

func (m *MCP) worker() {
	defer close(m.done)
	for p := range m.ProcessChan {
		p := p
		m.workers.Go(func() {
			m.process(p)
		})
	}
}

func (m *MCP) process(p ProcessCtx) {
	ctx := WithSession(p.Session.Context(), p.Session)
	resp := m.processor.Process(ctx, p.Batch)
	if !resp.HasReply() {
		return
	}
	if err := p.Session.WriteReply(resp); err != nil {
		log.Debug().Err(err).Str("session", p.Session.ID()).Msg("failed to write reply")
	}
}

func (m *MCP) HandleSSE(c *gin.Context) {
	id := uuid.New().String()
	session := NewSession(c, id)
	m.sessionMu.Lock()
	m.sessions[id] = session
	m.sessionMu.Unlock()
	session.w.Open()
	log.Debug().Str("session", id).Msg("sse session opened")

	c.Stream(func(w io.Writer) bool {
		<-c.Request.Context().Done()
		return false
	})
	session.w.Close()

	m.sessionMu.Lock()
	delete(m.sessions, id)
	m.sessionMu.Unlock()
	log.Debug().Str("session", id).Msg("sse session closed")
}

func (m *MCP) GetSession(id string) *Session {
	m.sessionMu.Lock()
	defer m.sessionMu.Unlock()
	return m.sessions[id]
}

// HandleMessages accepts a document for an SSE session. The reply is
// delivered on the session stream, the POST itself only acknowledges.
func (m *MCP) HandleMessages(c *gin.Context) {
	// clients disagree on the spelling: session_id, sessionId
	sessionID := c.Query("session_id")
	if sessionID == "" {
		sessionID = c.Query("sessionId")
	}
	if sessionID == "" {
		c.JSON(http.StatusBadRequest, ErrInvalidSessionID.JsonRPC())
		c.Abort()
		return
	}

	session := m.GetSession(sessionID)
	if session == nil {
		c.JSON(http.StatusNotFound, ErrSessionNotFound.JsonRPC())
		c.Abort()
		return
	}

	body, status, rpcErr := readBody(c.Writer, c.Request)
	if rpcErr != nil {
		c.JSON(status, rpcErr.JsonRPC())
		c.Abort()
		return
	}

	batch, err := DecodeBatch(body)
	if err != nil {
		log.Debug().Err(err).Str("session", sessionID).Msg("failed to decode message")
		if resp, ok := DecodeErrorResponse(err); ok {
			if err := session.WriteReply(SingleResponse(resp)); err != nil {
				log.Debug().Err(err).Str("session", sessionID).Msg("failed to write reply")
			}
		}
		c.String(http.StatusAccepted, "Accepted")
		return
	}

	log.Debug().Str("session", sessionID).Int("requests", batch.Len()).Bool("batch", batch.IsBatch()).Msg("message accepted")
	select {
	case m.ProcessChan <- ProcessCtx{Session: session, Batch: batch}:
	default:
		c.JSON(http.StatusTooManyRequests, ErrTooManyRequests.JsonRPC())
		c.Abort()
		return
	}

	c.String(http.StatusAccepted, "Accepted")
}

// InlineHandler answers each POSTed document in the HTTP response: 200 with
// the reply, or 202 without a body when the document only held
// notifications. Responses are gzip encoded when the client accepts it.
func (m *MCP) InlineHandler() http.Handler {
	return gzhttp.GzipHandler(http.HandlerFunc(m.serveInline))
}

func (m *MCP) serveInline(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, status, rpcErr := readBody(w, r)
	if rpcErr != nil {
		writeJSON(w, status, rpcErr.JsonRPC())
		return
	}

	reply, ok := m.processor.HandleMessage(r.Context(), body)
	if !ok {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(reply); err != nil {
		log.Debug().Err(err).Msg("failed to write reply")
	}
}

// Close stops accepting work and waits for in-flight batches.
func (m *MCP) Close() {
	m.closeOnce.Do(func() {
		close(m.ProcessChan)
		if m.workers != nil {
			<-m.done
			m.workers.Wait()
		}
	})
}

type ProcessCtx struct {
	Session *Session
	Batch   BatchRequest
}

type sessionKey struct{}

// WithSession attaches the SSE session a request arrived on.
func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// SessionFromContext returns the SSE session of the request, if any.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*Session)
	return s, ok && s != nil
}

// readBody reads at most MaxBodySize bytes. A larger body fails with 413
// and a parse error naming the limit.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, int, *Error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxBodySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, http.StatusRequestEntityTooLarge, DocumentTooLarge(MaxBodySize)
		}
		return nil, http.StatusBadRequest, ParseError(err.Error())
	}
	return body, http.StatusOK, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(b)
}
