package mcp

import (
	"encoding/base64"
	"errors"
)

// Document: https://modelcontextprotocol.io/docs/concepts/resources

const (
	// Client => Server
	MethodResourcesList         = "resources/list"
	MethodResourcesTemplateList = "resources/templates/list"
	MethodResourcesRead         = "resources/read"
)

// Direct resources
//
//	{
//		uri: string;           // Unique identifier for the resource
//		name: string;          // Human-readable name
//		description?: string;  // Optional description
//		mimeType?: string;     // Optional MIME type
//	}
type Resource struct {
	URI         string `json:"uri"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

type ResourcesListRequest struct {
	Cursor string `json:"cursor,omitempty"`
}

type ResourcesListResponse struct {
	Resources  []Resource `json:"resources"`
	NextCursor string     `json:"nextCursor,omitempty"`
}

// Resource templates
//
//	{
//		uriTemplate: string;   // URI template following RFC 6570
//		name: string;          // Human-readable name for this type
//		description?: string;  // Optional description
//		mimeType?: string;     // Optional MIME type for all matching resources
//	}
type ResourceTemplate struct {
	URITemplate string `json:"uriTemplate"`
	Name        string `json:"name"`
	Description string `json:"description"`
	MimeType    string `json:"mimeType"`
}

type ResourcesTemplatesListRequest struct {
	Cursor string `json:"cursor,omitempty"`
}

type ResourcesTemplatesListResponse struct {
	ResourceTemplates []ResourceTemplate `json:"resourceTemplates"`
	NextCursor        string             `json:"nextCursor,omitempty"`
}

// Reading resources
//
//	{
//		contents: [
//			{
//				uri: string;        // The URI of the resource
//				mimeType?: string;  // Optional MIME type
//
//				// One of:
//				text?: string;      // For text resources
//				blob?: string;      // For binary resources (base64 encoded)
//			}
//		]
//	}
type ReadingResource struct {
	Contents []ResourceContent `json:"contents"`
}

type ResourcesReadRequest struct {
	URI string `json:"uri"`
}

func (r *ResourcesReadRequest) Validate() error {
	if r.URI == "" {
		return errors.New("missing field `uri`")
	}
	return nil
}

// ResourceContent holds either text or a base64 blob. Build it with
// TextContent or BlobContent.
type ResourceContent struct {
	URI      string  `json:"uri"`
	MimeType string  `json:"mimeType"`
	Text     *string `json:"text,omitempty"`
	Blob     *string `json:"blob,omitempty"`
}

func TextContent(uri, mimeType, text string) ResourceContent {
	return ResourceContent{URI: uri, MimeType: mimeType, Text: &text}
}

func BlobContent(uri, mimeType string, data []byte) ResourceContent {
	blob := base64.StdEncoding.EncodeToString(data)
	return ResourceContent{URI: uri, MimeType: mimeType, Blob: &blob}
}

// Validate rejects content carrying both text and blob. Neither is allowed
// for an empty resource.
func (c ResourceContent) Validate() error {
	if c.Text != nil && c.Blob != nil {
		return errors.New("resource content has both text and blob")
	}
	return nil
}
