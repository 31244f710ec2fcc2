package service

import (
	"context"
	"regexp"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
)

var placeholder = regexp.MustCompile(`\{\{\s*([\w.-]+)\s*\}\}`)

func (s *Service) PromptsList(ctx context.Context, req *mcp.PromptsListRequest) (*mcp.PromptsListResponse, error) {
	page, next, err := paginate(s.prompts, req.Cursor, s.conf.GetPageSize())
	if err != nil {
		return nil, err
	}
	return &mcp.PromptsListResponse{Prompts: page, NextCursor: next}, nil
}

func (s *Service) PromptsGet(ctx context.Context, req *mcp.PromptsGetRequest) (*mcp.PromptsGetResponse, error) {
	p, ok := s.templates[req.Name]
	if !ok {
		return nil, errors.PromptNotFound(req.Name)
	}

	for _, a := range p.Arguments {
		if a.Required && req.Arguments[a.Name] == "" {
			return nil, errors.RequiredParam(a.Name)
		}
	}

	return &mcp.PromptsGetResponse{
		Description: p.Description,
		Messages: []mcp.PromptMessage{{
			Role: "user",
			Content: mcp.PromptContent{
				Type: "text",
				Text: render(p.Template, req.Arguments),
			},
		}},
	}, nil
}

// render replaces {{name}} placeholders. Unknown names become empty.
func render(template string, args map[string]string) string {
	return placeholder.ReplaceAllStringFunc(template, func(m string) string {
		return args[placeholder.FindStringSubmatch(m)[1]]
	})
}
