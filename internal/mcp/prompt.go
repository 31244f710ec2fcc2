package mcp

import "errors"

// Document: https://modelcontextprotocol.io/docs/concepts/prompts

const (
	// Client => Server
	MethodPromptsList = "prompts/list"
	MethodPromptsGet  = "prompts/get"
)

// Prompt
//
//	{
//		name: string;              // Unique identifier for the prompt
//		description?: string;      // Human-readable description
//		arguments?: [              // Optional list of arguments
//			{
//				name: string;          // Argument identifier
//				description?: string;  // Argument description
//				required?: boolean;    // Whether argument is required
//			}
//		]
//	}
type Prompt struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Arguments   []PromptArgument `json:"arguments,omitempty"`
}

type PromptArgument struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Required    bool   `json:"required,omitempty"`
}

type PromptsListRequest struct {
	Cursor string `json:"cursor,omitempty"`
}

type PromptsListResponse struct {
	Prompts    []Prompt `json:"prompts"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// Use Prompt
// Request
//
//	{
//		method: "prompts/get",
//		params: {
//			name: "analyze-code",
//			arguments: {
//				language: "python"
//			}
//		}
//	}
type PromptsGetRequest struct {
	Name      string            `json:"name"`
	Arguments map[string]string `json:"arguments"`
}

func (r *PromptsGetRequest) Validate() error {
	if r.Name == "" {
		return errors.New("prompt name is required")
	}
	return nil
}

// Response
//
//	{
//		description: "Analyze Python code for potential improvements",
//		messages: [
//			{
//				role: "user",
//				content: {
//					type: "text",
//					text: "Please analyze the following Python code ..."
//				}
//			}
//		]
//	}
type PromptsGetResponse struct {
	Description string          `json:"description,omitempty"`
	Messages    []PromptMessage `json:"messages"`
}

type PromptMessage struct {
	Role    string        `json:"role"`
	Content PromptContent `json:"content"`
}

type PromptContent struct {
	Type     string           `json:"type"`
	Text     string           `json:"text,omitempty"`
	Resource *ResourceContent `json:"resource,omitempty"`
}
