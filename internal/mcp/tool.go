package mcp

import "errors"

// Document: https://modelcontextprotocol.io/docs/concepts/tools

const (
	// Client => Server
	MethodToolsList = "tools/list"
	MethodToolsCall = "tools/call"
)

type M map[string]interface{}

// Tool
//
//	{
//		name: string;          // Unique identifier for the tool
//		description?: string;  // Human-readable description
//		inputSchema: {         // JSON Schema for the tool's parameters
//			type: "object",
//			properties: { ... }  // Tool-specific parameters
//		}
//	}
type Tool struct {
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	InputSchema ToolSchema `json:"inputSchema"`
}

type ToolSchema struct {
	Type       string   `json:"type"`
	Properties M        `json:"properties"`
	Required   []string `json:"required,omitempty"`
}

//	{
//		"method": "tools/list",
//		"params": {
//		  "cursor": "optional-cursor-value"
//		}
//	}
type ToolsListRequest struct {
	Cursor string `json:"cursor,omitempty"`
}

type ToolsListResponse struct {
	Tools      []Tool `json:"tools"`
	NextCursor string `json:"nextCursor,omitempty"`
}

//	{
//		"method": "tools/call",
//		"params": {
//		  "name": "current_time",
//		  "arguments": {
//			"timezone": "Asia/Shanghai"
//		  },
//		  "_meta": {
//			"progressToken": 1
//		  }
//		},
//		"jsonrpc": "2.0",
//		"id": 3
//	  }
type ToolsCallRequest struct {
	Name      string `json:"name"`
	Arguments M      `json:"arguments"`
	Meta      M      `json:"_meta,omitempty"`
}

func (r *ToolsCallRequest) Validate() error {
	if r.Name == "" {
		return errors.New("tool name is required")
	}
	return nil
}

//	{
//		"jsonrpc": "2.0",
//		"id": 2,
//		"result": {
//		  "content": [
//			{
//			  "type": "text",
//			  "text": "2025-03-16T06:41:51+08:00"
//			}
//		  ],
//		  "isError": false
//		}
//	  }
type ToolsCallResponse struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError"`
}

type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func TextResult(text string) *ToolsCallResponse {
	return &ToolsCallResponse{
		Content: []Content{{Type: "text", Text: text}},
	}
}
