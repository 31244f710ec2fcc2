package conf

import (
	"github.com/sjzar/mcpkit/internal/mcp"
)

const (
	DefaultHTTPAddr       = "127.0.0.1:5030"
	DefaultServerName     = "mcpkit"
	DefaultMaxConcurrency = mcp.DefaultMaxConcurrency
	DefaultPageSize       = 50
)

type ServerConfig struct {
	HTTPAddr        string           `mapstructure:"http_addr"`
	ServerName      string           `mapstructure:"server_name"`
	ProtocolVersion string           `mapstructure:"protocol_version"`
	MaxConcurrency  int              `mapstructure:"max_concurrency"`
	PageSize        int              `mapstructure:"page_size"`
	ResourceDir     string           `mapstructure:"resource_dir"`
	Instructions    string           `mapstructure:"instructions"`
	Prompts         []PromptConfig   `mapstructure:"prompts"`
	Resources       []ResourceConfig `mapstructure:"resources"`
}

// PromptConfig is a prompt template. `{{name}}` placeholders in Template
// are replaced by the argument of the same name.
type PromptConfig struct {
	Name        string           `mapstructure:"name" json:"name"`
	Description string           `mapstructure:"description" json:"description"`
	Arguments   []PromptArgument `mapstructure:"arguments" json:"arguments"`
	Template    string           `mapstructure:"template" json:"template"`
}

type PromptArgument struct {
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
	Required    bool   `mapstructure:"required" json:"required"`
}

// ResourceConfig is a static text resource served as is.
type ResourceConfig struct {
	URI         string `mapstructure:"uri" json:"uri"`
	Name        string `mapstructure:"name" json:"name"`
	Description string `mapstructure:"description" json:"description"`
	MimeType    string `mapstructure:"mime_type" json:"mime_type"`
	Text        string `mapstructure:"text" json:"text"`
}

var ServerDefaults = map[string]any{
	"http_addr":        DefaultHTTPAddr,
	"server_name":      DefaultServerName,
	"protocol_version": mcp.ProtocolVersion,
	"max_concurrency":  DefaultMaxConcurrency,
	"page_size":        DefaultPageSize,
}

func (c *ServerConfig) GetHTTPAddr() string {
	if c.HTTPAddr == "" {
		c.HTTPAddr = DefaultHTTPAddr
	}
	return c.HTTPAddr
}

func (c *ServerConfig) GetServerName() string {
	if c.ServerName == "" {
		c.ServerName = DefaultServerName
	}
	return c.ServerName
}

func (c *ServerConfig) GetProtocolVersion() string {
	if c.ProtocolVersion == "" {
		c.ProtocolVersion = mcp.ProtocolVersion
	}
	return c.ProtocolVersion
}

func (c *ServerConfig) GetMaxConcurrency() int {
	if c.MaxConcurrency <= 0 {
		c.MaxConcurrency = DefaultMaxConcurrency
	}
	return c.MaxConcurrency
}

func (c *ServerConfig) GetPageSize() int {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	return c.PageSize
}

func (c *ServerConfig) GetResourceDir() string {
	return c.ResourceDir
}

func (c *ServerConfig) GetInstructions() string {
	return c.Instructions
}

func (c *ServerConfig) GetPrompts() []PromptConfig {
	return c.Prompts
}

func (c *ServerConfig) GetResources() []ResourceConfig {
	return c.Resources
}
