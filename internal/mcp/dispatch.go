package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/iter"
)

// Service handles decoded requests, one method per supported method tag.
// Notifications return only an error, which is logged and never answered.
type Service interface {
	Ping(ctx context.Context) (*EmptyResult, error)
	Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error)
	Initialized(ctx context.Context) error
	Cancelled(ctx context.Context, req *Cancelled) error
	ToolsList(ctx context.Context, req *ToolsListRequest) (*ToolsListResponse, error)
	ToolsCall(ctx context.Context, req *ToolsCallRequest) (*ToolsCallResponse, error)
	PromptsList(ctx context.Context, req *PromptsListRequest) (*PromptsListResponse, error)
	PromptsGet(ctx context.Context, req *PromptsGetRequest) (*PromptsGetResponse, error)
	ResourcesList(ctx context.Context, req *ResourcesListRequest) (*ResourcesListResponse, error)
	ResourcesTemplatesList(ctx context.Context, req *ResourcesTemplatesListRequest) (*ResourcesTemplatesListResponse, error)
	ResourcesRead(ctx context.Context, req *ResourcesReadRequest) (*ReadingResource, error)
}

type dispatchFunc func(ctx context.Context, s Service, b Body) (any, error)

var dispatchTable = map[string]dispatchFunc{
	MethodPing: func(ctx context.Context, s Service, _ Body) (any, error) {
		return result(s.Ping(ctx))
	},
	MethodInitialize: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(Initialize).Params
		return result(s.Initialize(ctx, &p))
	},
	MethodInitialized: func(ctx context.Context, s Service, _ Body) (any, error) {
		return nil, s.Initialized(ctx)
	},
	MethodCancelled: func(ctx context.Context, s Service, b Body) (any, error) {
		c := b.(Cancelled)
		return nil, s.Cancelled(ctx, &c)
	},
	MethodToolsList: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(ToolsList).Params
		return result(s.ToolsList(ctx, &p))
	},
	MethodToolsCall: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(ToolsCall).Params
		return result(s.ToolsCall(ctx, &p))
	},
	MethodPromptsList: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(PromptsList).Params
		return result(s.PromptsList(ctx, &p))
	},
	MethodPromptsGet: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(PromptsGet).Params
		return result(s.PromptsGet(ctx, &p))
	},
	MethodResourcesList: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(ResourcesList).Params
		return result(s.ResourcesList(ctx, &p))
	},
	MethodResourcesTemplateList: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(ResourcesTemplatesList).Params
		return result(s.ResourcesTemplatesList(ctx, &p))
	},
	MethodResourcesRead: func(ctx context.Context, s Service, b Body) (any, error) {
		p := b.(ResourcesRead).Params
		return result(s.ResourcesRead(ctx, &p))
	},
}

func result[R any](r *R, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	if r == nil {
		return EmptyResult{}, nil
	}
	return r, nil
}

// Dispatch calls the Service method matching the request body.
func Dispatch(ctx context.Context, s Service, req *Request) (any, error) {
	if req.Body == nil {
		return nil, InvalidRequest("missing request body")
	}
	fn, ok := dispatchTable[req.Body.Method()]
	if !ok {
		return nil, MethodNotFound(fmt.Sprintf("method not found: %s", req.Body.Method()))
	}
	return fn(ctx, s, req.Body)
}

type requestIDKey struct{}

// WithRequestID stores the id of the request being handled.
func WithRequestID(ctx context.Context, id RequestID) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestIDFromContext returns the id of the request being handled, ok is
// false inside notifications.
func RequestIDFromContext(ctx context.Context) (RequestID, bool) {
	id, ok := ctx.Value(requestIDKey{}).(RequestID)
	return id, ok
}

const (
	DefaultMaxConcurrency = 4
)

// Processor runs decoded batches against a Service and assembles replies.
type Processor struct {
	service Service

	// MaxConcurrency bounds how many requests of one batch run at once.
	MaxConcurrency int
}

func NewProcessor(service Service, maxConcurrency int) *Processor {
	if maxConcurrency <= 0 {
		maxConcurrency = DefaultMaxConcurrency
	}
	return &Processor{
		service:        service,
		MaxConcurrency: maxConcurrency,
	}
}

// Process handles every request of batch and returns the reply in the same
// shape and order. Batch elements may complete in any order; outcomes are
// collected by position.
func (p *Processor) Process(ctx context.Context, batch BatchRequest) BatchResponse {
	if batch.IsEmpty() {
		return Assemble(batch, nil)
	}

	var outcomes []Outcome
	if batch.Len() == 1 || p.MaxConcurrency == 1 {
		outcomes = make([]Outcome, batch.Len())
		for i := range batch.requests {
			outcomes[i] = p.handle(ctx, &batch.requests[i])
		}
	} else {
		mapper := iter.Mapper[Request, Outcome]{MaxGoroutines: p.MaxConcurrency}
		outcomes = mapper.Map(batch.requests, func(req *Request) Outcome {
			return p.handle(ctx, req)
		})
	}
	return Assemble(batch, outcomes)
}

func (p *Processor) handle(ctx context.Context, req *Request) (out Outcome) {
	method := req.Method()
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Str("method", method).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("handler panic recovered")
			out = Outcome{Err: InternalError(fmt.Sprintf("panic: %v", r))}
		}
	}()

	if err := req.Validate(); err != nil {
		p.logFailure(req, err)
		return Outcome{Err: err}
	}

	if req.ID != nil {
		ctx = WithRequestID(ctx, *req.ID)
	}

	res, err := Dispatch(ctx, p.service, req)
	if err != nil {
		p.logFailure(req, err)
		return Outcome{Err: err}
	}
	return Outcome{Result: res}
}

func (p *Processor) logFailure(req *Request, err error) {
	ev := log.Debug()
	if req.ID == nil {
		// nobody will hear about it otherwise
		ev = log.Warn()
	} else {
		ev = ev.Stringer("id", req.ID)
	}
	ev.Err(err).Str("method", req.Method()).Msg("request failed")
}

// HandleMessage runs the whole pipeline for one inbound document: decode,
// dispatch, assemble, encode. ok is false when nothing must be sent back.
func (p *Processor) HandleMessage(ctx context.Context, data []byte) (reply []byte, ok bool) {
	batch, err := DecodeBatch(data)
	if err != nil {
		resp, ok := DecodeErrorResponse(err)
		if !ok {
			log.Warn().Err(err).Msg("dropping malformed notification")
			return nil, false
		}
		log.Debug().Err(err).Msg("failed to decode message")
		b, err := json.Marshal(resp)
		if err != nil {
			log.Error().Err(err).Msg("failed to encode error response")
			return nil, false
		}
		return b, true
	}

	out := p.Process(ctx, batch)
	if !out.HasReply() {
		return nil, false
	}
	b, err := json.Marshal(out)
	if err != nil {
		log.Error().Err(err).Msg("failed to encode response")
		b, _ = json.Marshal(ErrInternalError.JsonRPC())
	}
	return b, true
}
