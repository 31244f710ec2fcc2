package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/yosida95/uritemplate/v3"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
	"github.com/sjzar/mcpkit/pkg/util"
)

const fileScheme = "file:///"

var (
	fileTemplate = uritemplate.MustNew(fileScheme + "{+path}")

	ResourceTemplateFile = mcp.ResourceTemplate{
		URITemplate: fileTemplate.Raw(),
		Name:        "file",
		Description: "A file below the resource directory, addressed by its relative path.",
		MimeType:    "application/octet-stream",
	}
)

func fileURI(p string) string {
	return fileScheme + p
}

func (s *Service) ResourcesList(ctx context.Context, req *mcp.ResourcesListRequest) (*mcp.ResourcesListResponse, error) {
	resources := make([]mcp.Resource, 0, len(s.static))
	resources = append(resources, s.static...)
	if s.files != nil {
		for _, f := range s.files.list() {
			resources = append(resources, mcp.Resource{
				URI:         fileURI(f.Path),
				Name:        path.Base(f.Path),
				Description: fmt.Sprintf("%s, %s", f.Path, util.ByteCountSI(f.Size)),
				MimeType:    f.MimeType,
			})
		}
	}

	page, next, err := paginate(resources, req.Cursor, s.conf.GetPageSize())
	if err != nil {
		return nil, err
	}
	return &mcp.ResourcesListResponse{Resources: page, NextCursor: next}, nil
}

func (s *Service) ResourcesTemplatesList(ctx context.Context, req *mcp.ResourcesTemplatesListRequest) (*mcp.ResourcesTemplatesListResponse, error) {
	var templates []mcp.ResourceTemplate
	if s.files != nil {
		templates = append(templates, ResourceTemplateFile)
	}

	page, next, err := paginate(templates, req.Cursor, s.conf.GetPageSize())
	if err != nil {
		return nil, err
	}
	return &mcp.ResourcesTemplatesListResponse{ResourceTemplates: page, NextCursor: next}, nil
}

func (s *Service) ResourcesRead(ctx context.Context, req *mcp.ResourcesReadRequest) (*mcp.ReadingResource, error) {
	if r, ok := s.texts[req.URI]; ok {
		return &mcp.ReadingResource{Contents: []mcp.ResourceContent{
			mcp.TextContent(r.URI, r.MimeType, r.Text),
		}}, nil
	}

	if s.files == nil || !strings.HasPrefix(req.URI, fileScheme) {
		return nil, errors.ResourceNotFound(req.URI)
	}
	values := fileTemplate.Match(req.URI)
	if values == nil {
		return nil, errors.ResourceNotFound(req.URI)
	}

	entry, err := s.files.lookup(values.Get("path").String())
	if err != nil {
		return nil, err
	}
	data, err := s.files.read(entry)
	if err != nil {
		return nil, err
	}

	content := mcp.BlobContent(req.URI, entry.MimeType, data)
	if entry.Text && util.IsNormalString(data) {
		content = mcp.TextContent(req.URI, entry.MimeType, string(data))
	}
	return &mcp.ReadingResource{Contents: []mcp.ResourceContent{content}}, nil
}
