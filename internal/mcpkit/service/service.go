package service

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
	"github.com/sjzar/mcpkit/internal/mcpkit/conf"
	"github.com/sjzar/mcpkit/pkg/version"
)

type Config interface {
	GetServerName() string
	GetProtocolVersion() string
	GetPageSize() int
	GetResourceDir() string
	GetInstructions() string
	GetPrompts() []conf.PromptConfig
	GetResources() []conf.ResourceConfig
}

// Service answers MCP requests with a fixed tool set, prompts and static
// resources from the config, and the files below the resource dir.
type Service struct {
	conf Config

	prompts   []mcp.Prompt
	templates map[string]conf.PromptConfig
	static    []mcp.Resource
	texts     map[string]conf.ResourceConfig

	files *fileIndex
	calls *callRegistry

	initialized sync.Map
	now         func() time.Time
}

var _ mcp.Service = (*Service)(nil)

func NewService(c Config) *Service {
	s := &Service{
		conf:      c,
		templates: make(map[string]conf.PromptConfig),
		texts:     make(map[string]conf.ResourceConfig),
		calls:     newCallRegistry(),
		now:       time.Now,
	}

	for _, p := range c.GetPrompts() {
		prompt := mcp.Prompt{Name: p.Name, Description: p.Description}
		for _, a := range p.Arguments {
			prompt.Arguments = append(prompt.Arguments, mcp.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.prompts = append(s.prompts, prompt)
		s.templates[p.Name] = p
	}

	for _, r := range c.GetResources() {
		if r.MimeType == "" {
			r.MimeType = "text/plain"
		}
		s.static = append(s.static, mcp.Resource{
			URI:         r.URI,
			Name:        r.Name,
			Description: r.Description,
			MimeType:    r.MimeType,
		})
		s.texts[r.URI] = r
	}

	if dir := c.GetResourceDir(); dir != "" {
		s.files = newFileIndex(dir)
	}

	return s
}

// Start indexes the resource dir and watches it for changes.
func (s *Service) Start() error {
	if s.files == nil {
		return nil
	}
	return s.files.Start()
}

// Stop cancels in-flight tool calls and stops the watcher.
func (s *Service) Stop() error {
	s.calls.cancelAll()
	if s.files == nil {
		return nil
	}
	return s.files.Stop()
}

func (s *Service) Ping(ctx context.Context) (*mcp.EmptyResult, error) {
	return &mcp.EmptyResult{}, nil
}

func (s *Service) Initialize(ctx context.Context, req *mcp.InitializeRequest) (*mcp.InitializeResponse, error) {
	session, ok := mcp.SessionFromContext(ctx)
	if ok && req.ClientInfo != nil {
		session.SaveClientInfo(req.ClientInfo)
	}

	ev := log.Info().Str("session", sessionKey(ctx)).Str("protocol", req.ProtocolVersion)
	if req.ClientInfo != nil {
		ev = ev.Str("client", req.ClientInfo.Name).Str("client_version", req.ClientInfo.Version)
	}
	ev.Msg("client initialize")

	return &mcp.InitializeResponse{
		ProtocolVersion: s.conf.GetProtocolVersion(),
		Capabilities:    mcp.DefaultCapabilities,
		ServerInfo: mcp.ServerInfo{
			Name:    s.conf.GetServerName(),
			Version: version.Short(),
		},
		Instructions: s.conf.GetInstructions(),
	}, nil
}

func (s *Service) Initialized(ctx context.Context) error {
	key := sessionKey(ctx)
	s.initialized.Store(key, true)
	log.Debug().Str("session", key).Msg("client initialized")
	return nil
}

// Cancelled stops the tools/call registered under the same session and id.
// Unknown ids are ignored: the call may already have finished.
func (s *Service) Cancelled(ctx context.Context, req *mcp.Cancelled) error {
	ev := log.Debug().Str("session", sessionKey(ctx)).Str("id", req.RequestID.String())
	if req.Reason != nil {
		ev = ev.Str("reason", *req.Reason)
	}
	if !s.calls.cancel(callKey(ctx, req.RequestID)) {
		ev.Msg("cancel for unknown request")
		return nil
	}
	ev.Msg("request cancelled")
	return nil
}

func (s *Service) isInitialized(ctx context.Context) bool {
	_, ok := s.initialized.Load(sessionKey(ctx))
	return ok
}

func sessionKey(ctx context.Context) string {
	if session, ok := mcp.SessionFromContext(ctx); ok {
		return session.ID()
	}
	return ""
}

func wrapCancelled(ctx context.Context) error {
	return errors.RequestCancelled(context.Cause(ctx))
}
