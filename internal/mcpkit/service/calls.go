package service

import (
	"context"
	stderrors "errors"
	"sync"

	"github.com/sjzar/mcpkit/internal/mcp"
)

var (
	errCancelledByClient = stderrors.New("cancelled by client")
	errServerStopping    = stderrors.New("server stopping")
)

// callRegistry tracks in-flight calls so notifications/cancelled can reach
// them. Keys are the session id and the request id.
type callRegistry struct {
	mu    sync.Mutex
	calls map[string]context.CancelCauseFunc
}

func newCallRegistry() *callRegistry {
	return &callRegistry{calls: make(map[string]context.CancelCauseFunc)}
}

// track derives a cancellable context for a call. done must be called when
// the call returns. Calls without an id are not registered.
func (r *callRegistry) track(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancelCause(ctx)
	id, ok := mcp.RequestIDFromContext(ctx)
	if !ok {
		return ctx, func() { cancel(nil) }
	}

	key := callKey(ctx, id)
	r.mu.Lock()
	// a reused id replaces the older entry, the older call keeps running
	r.calls[key] = cancel
	r.mu.Unlock()

	return ctx, func() {
		r.mu.Lock()
		delete(r.calls, key)
		r.mu.Unlock()
		cancel(nil)
	}
}

func (r *callRegistry) cancel(key string) bool {
	r.mu.Lock()
	cancel, ok := r.calls[key]
	delete(r.calls, key)
	r.mu.Unlock()
	if ok {
		cancel(errCancelledByClient)
	}
	return ok
}

func (r *callRegistry) cancelAll() {
	r.mu.Lock()
	calls := r.calls
	r.calls = make(map[string]context.CancelCauseFunc)
	r.mu.Unlock()
	for _, cancel := range calls {
		cancel(errServerStopping)
	}
}

func (r *callRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func callKey(ctx context.Context, id mcp.RequestID) string {
	return sessionKey(ctx) + "/" + id.Key()
}
