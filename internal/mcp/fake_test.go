package mcp

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/sjzar/mcpkit/internal/errors"
)

// fakeService answers every method with canned data. tools/call behavior is
// selected by tool name.
type fakeService struct {
	mu          sync.Mutex
	initialized int
	cancelled   []Cancelled
	callIDs     []RequestID
}

func (s *fakeService) Ping(ctx context.Context) (*EmptyResult, error) {
	return &EmptyResult{}, nil
}

func (s *fakeService) Initialize(ctx context.Context, req *InitializeRequest) (*InitializeResponse, error) {
	return &InitializeResponse{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    DefaultCapabilities,
		ServerInfo:      ServerInfo{Name: "fake", Version: "0.0.1"},
	}, nil
}

func (s *fakeService) Initialized(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.initialized++
	return nil
}

func (s *fakeService) Cancelled(ctx context.Context, req *Cancelled) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelled = append(s.cancelled, *req)
	return nil
}

func (s *fakeService) ToolsList(ctx context.Context, req *ToolsListRequest) (*ToolsListResponse, error) {
	return &ToolsListResponse{Tools: []Tool{{
		Name:        "echo",
		InputSchema: ToolSchema{Type: "object", Properties: M{"text": M{"type": "string"}}},
	}}}, nil
}

func (s *fakeService) ToolsCall(ctx context.Context, req *ToolsCallRequest) (*ToolsCallResponse, error) {
	if id, ok := RequestIDFromContext(ctx); ok {
		s.mu.Lock()
		s.callIDs = append(s.callIDs, id)
		s.mu.Unlock()
	}

	switch req.Name {
	case "echo":
		return TextResult(fmt.Sprint(req.Arguments["text"])), nil
	case "sleep":
		ms, _ := req.Arguments["ms"].(float64)
		select {
		case <-time.After(time.Duration(ms) * time.Millisecond):
			return TextResult(fmt.Sprintf("slept %vms", ms)), nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	case "panic":
		panic("boom")
	case "crash":
		return nil, fmt.Errorf("disk on fire")
	case "nil":
		return nil, nil
	default:
		return nil, apperrors.ToolNotFound(req.Name)
	}
}

func (s *fakeService) PromptsList(ctx context.Context, req *PromptsListRequest) (*PromptsListResponse, error) {
	return &PromptsListResponse{Prompts: []Prompt{}}, nil
}

func (s *fakeService) PromptsGet(ctx context.Context, req *PromptsGetRequest) (*PromptsGetResponse, error) {
	return nil, apperrors.PromptNotFound(req.Name)
}

func (s *fakeService) ResourcesList(ctx context.Context, req *ResourcesListRequest) (*ResourcesListResponse, error) {
	return &ResourcesListResponse{Resources: []Resource{}}, nil
}

func (s *fakeService) ResourcesTemplatesList(ctx context.Context, req *ResourcesTemplatesListRequest) (*ResourcesTemplatesListResponse, error) {
	return &ResourcesTemplatesListResponse{ResourceTemplates: []ResourceTemplate{{
		URITemplate: "file:///{path}",
		Name:        "file",
		MimeType:    "text/plain",
	}}}, nil
}

func (s *fakeService) ResourcesRead(ctx context.Context, req *ResourcesReadRequest) (*ReadingResource, error) {
	return &ReadingResource{Contents: []ResourceContent{TextContent(req.URI, "text/plain", "hello")}}, nil
}
