package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
	"github.com/sjzar/mcpkit/internal/mcpkit/conf"
)

func newTestService(t *testing.T, c *conf.ServerConfig) *Service {
	t.Helper()
	s := NewService(c)
	require.NoError(t, s.Start())
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func testConfig() *conf.ServerConfig {
	return &conf.ServerConfig{
		ServerName:   "test",
		Instructions: "be nice",
		PageSize:     2,
		Prompts: []conf.PromptConfig{
			{
				Name:        "greet",
				Description: "Say hello",
				Arguments:   []conf.PromptArgument{{Name: "who", Required: true}, {Name: "mood"}},
				Template:    "Hello {{who}}{{ mood }}!",
			},
		},
		Resources: []conf.ResourceConfig{
			{URI: "memo://readme", Name: "readme", Text: "# hi"},
		},
	}
}

func requireCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, code, mcp.AsError(err).Code)
}

func TestInitialize(t *testing.T) {
	s := newTestService(t, testConfig())
	ctx := context.Background()

	resp, err := s.Initialize(ctx, &mcp.InitializeRequest{
		ProtocolVersion: mcp.ProtocolVersion,
		ClientInfo:      &mcp.ClientInfo{Name: "cli", Version: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, mcp.ProtocolVersion, resp.ProtocolVersion)
	assert.Equal(t, "test", resp.ServerInfo.Name)
	assert.Equal(t, "be nice", resp.Instructions)
	assert.Contains(t, resp.Capabilities, "tools")

	assert.False(t, s.isInitialized(ctx))
	require.NoError(t, s.Initialized(ctx))
	assert.True(t, s.isInitialized(ctx))

	_, err = s.Ping(ctx)
	assert.NoError(t, err)
}

func TestToolsList(t *testing.T) {
	s := newTestService(t, testConfig())

	first, err := s.ToolsList(context.Background(), &mcp.ToolsListRequest{})
	require.NoError(t, err)
	require.Len(t, first.Tools, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := s.ToolsList(context.Background(), &mcp.ToolsListRequest{Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Tools, 1)
	assert.Empty(t, second.NextCursor)
	assert.Equal(t, "sleep", second.Tools[0].Name)

	_, err = s.ToolsList(context.Background(), &mcp.ToolsListRequest{Cursor: "nope!"})
	requireCode(t, err, mcp.CodeInvalidParams)
}

func TestToolsCall(t *testing.T) {
	s := newTestService(t, testConfig())
	s.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	tests := []struct {
		name     string
		tool     string
		args     mcp.M
		wantText string
		wantCode int
	}{
		{"echo", "echo", mcp.M{"text": "hi"}, "hi", 0},
		{"echo missing text", "echo", nil, "", mcp.CodeInvalidParams},
		{"echo wrong type", "echo", mcp.M{"text": 1.0}, "", mcp.CodeInvalidParams},
		{"time utc", "current_time", nil, "2024-05-01T12:00:00Z", 0},
		{"time zone", "current_time", mcp.M{"timezone": "Asia/Tokyo"}, "2024-05-01T21:00:00+09:00", 0},
		{"time bad zone", "current_time", mcp.M{"timezone": "Mars/Base"}, "", mcp.CodeInvalidParams},
		{"sleep", "sleep", mcp.M{"ms": 1.0}, "slept 1ms", 0},
		{"sleep negative", "sleep", mcp.M{"ms": -5.0}, "", mcp.CodeInvalidParams},
		{"sleep bool", "sleep", mcp.M{"ms": true}, "", mcp.CodeInvalidParams},
		{"sleep string", "sleep", mcp.M{"ms": "abc"}, "", mcp.CodeInvalidParams},
		{"sleep object", "sleep", mcp.M{"ms": mcp.M{}}, "", mcp.CodeInvalidParams},
		{"sleep array", "sleep", mcp.M{"ms": []any{1.0}}, "", mcp.CodeInvalidParams},
		{"sleep fraction", "sleep", mcp.M{"ms": 1.5}, "", mcp.CodeInvalidParams},
		{"sleep overflow", "sleep", mcp.M{"ms": 9223372036855.0}, "", mcp.CodeInvalidParams},
		{"sleep missing", "sleep", mcp.M{}, "", mcp.CodeInvalidParams},
		{"unknown tool", "nope", nil, "", mcp.CodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.ToolsCall(context.Background(), &mcp.ToolsCallRequest{Name: tt.tool, Arguments: tt.args})
			if tt.wantCode != 0 {
				requireCode(t, err, tt.wantCode)
				return
			}
			require.NoError(t, err)
			require.Len(t, resp.Content, 1)
			assert.Equal(t, tt.wantText, resp.Content[0].Text)
			assert.False(t, resp.IsError)
		})
	}
}

func TestCancelledStopsCall(t *testing.T) {
	s := newTestService(t, testConfig())
	ctx := mcp.WithRequestID(context.Background(), mcp.StringID("slow"))

	errCh := make(chan error, 1)
	go func() {
		_, err := s.ToolsCall(ctx, &mcp.ToolsCallRequest{Name: "sleep", Arguments: mcp.M{"ms": 60000.0}})
		errCh <- err
	}()

	require.Eventually(t, func() bool { return s.calls.len() == 1 }, time.Second, 5*time.Millisecond)

	// a numeric id with the same text is a different request
	require.NoError(t, s.Cancelled(context.Background(), &mcp.Cancelled{RequestID: mcp.IntID(1)}))
	assert.Equal(t, 1, s.calls.len())

	reason := "user abort"
	require.NoError(t, s.Cancelled(context.Background(), &mcp.Cancelled{RequestID: mcp.StringID("slow"), Reason: &reason}))

	select {
	case err := <-errCh:
		requireCode(t, err, mcp.CodeInternalError)
		assert.True(t, errors.Is(err, errors.ErrTypeCancelled))
		assert.True(t, errors.HasCause(err, errCancelledByClient))
	case <-time.After(2 * time.Second):
		t.Fatal("call was not cancelled")
	}
	assert.Equal(t, 0, s.calls.len())
}

func TestStopCancelsCalls(t *testing.T) {
	s := NewService(testConfig())
	require.NoError(t, s.Start())

	ctx := mcp.WithRequestID(context.Background(), mcp.IntID(7))
	errCh := make(chan error, 1)
	go func() {
		_, err := s.ToolsCall(ctx, &mcp.ToolsCallRequest{Name: "sleep", Arguments: mcp.M{"ms": 60000.0}})
		errCh <- err
	}()
	require.Eventually(t, func() bool { return s.calls.len() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, s.Stop())
	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("call was not cancelled")
	}
}

func TestPrompts(t *testing.T) {
	s := newTestService(t, testConfig())
	ctx := context.Background()

	list, err := s.PromptsList(ctx, &mcp.PromptsListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Prompts, 1)
	assert.Equal(t, "greet", list.Prompts[0].Name)
	require.Len(t, list.Prompts[0].Arguments, 2)
	assert.True(t, list.Prompts[0].Arguments[0].Required)

	got, err := s.PromptsGet(ctx, &mcp.PromptsGetRequest{Name: "greet", Arguments: map[string]string{"who": "Ada", "mood": " :)"}})
	require.NoError(t, err)
	assert.Equal(t, "Say hello", got.Description)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "user", got.Messages[0].Role)
	assert.Equal(t, "Hello Ada :)!", got.Messages[0].Content.Text)

	got, err = s.PromptsGet(ctx, &mcp.PromptsGetRequest{Name: "greet", Arguments: map[string]string{"who": "Bob"}})
	require.NoError(t, err)
	assert.Equal(t, "Hello Bob!", got.Messages[0].Content.Text)

	_, err = s.PromptsGet(ctx, &mcp.PromptsGetRequest{Name: "greet"})
	requireCode(t, err, mcp.CodeInvalidParams)

	_, err = s.PromptsGet(ctx, &mcp.PromptsGetRequest{Name: "missing"})
	requireCode(t, err, mcp.CodeInvalidParams)
}

func TestStaticResources(t *testing.T) {
	s := newTestService(t, testConfig())
	ctx := context.Background()

	list, err := s.ResourcesList(ctx, &mcp.ResourcesListRequest{})
	require.NoError(t, err)
	require.Len(t, list.Resources, 1)
	assert.Equal(t, "text/plain", list.Resources[0].MimeType)

	templates, err := s.ResourcesTemplatesList(ctx, &mcp.ResourcesTemplatesListRequest{})
	require.NoError(t, err)
	assert.Empty(t, templates.ResourceTemplates)

	read, err := s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: "memo://readme"})
	require.NoError(t, err)
	require.Len(t, read.Contents, 1)
	require.NotNil(t, read.Contents[0].Text)
	assert.Equal(t, "# hi", *read.Contents[0].Text)

	_, err = s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: "memo://other"})
	requireCode(t, err, mcp.CodeInvalidParams)

	_, err = s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: "file:///a.txt"})
	requireCode(t, err, mcp.CodeInvalidParams)
}

func writeFile(t *testing.T, root, name string, data []byte) {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0755))
	require.NoError(t, os.WriteFile(p, data, 0644))
}

func TestFileResources(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "notes.txt", []byte("plain text"))
	writeFile(t, root, "docs/data.json", []byte(`{"a":1}`))
	writeFile(t, root, "image.png", []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"))
	writeFile(t, root, ".secret", []byte("hidden"))

	c := testConfig()
	c.ResourceDir = root
	c.PageSize = 10
	s := newTestService(t, c)
	ctx := context.Background()

	list, err := s.ResourcesList(ctx, &mcp.ResourcesListRequest{})
	require.NoError(t, err)
	uris := make([]string, 0, len(list.Resources))
	for _, r := range list.Resources {
		uris = append(uris, r.URI)
	}
	assert.Equal(t, []string{"memo://readme", "file:///docs/data.json", "file:///image.png", "file:///notes.txt"}, uris)
	assert.Equal(t, "application/json", list.Resources[1].MimeType)
	assert.Equal(t, "image/png", list.Resources[2].MimeType)

	templates, err := s.ResourcesTemplatesList(ctx, &mcp.ResourcesTemplatesListRequest{})
	require.NoError(t, err)
	require.Len(t, templates.ResourceTemplates, 1)
	assert.Equal(t, "file:///{+path}", templates.ResourceTemplates[0].URITemplate)

	read, err := s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: "file:///docs/data.json"})
	require.NoError(t, err)
	require.NotNil(t, read.Contents[0].Text)
	assert.Equal(t, `{"a":1}`, *read.Contents[0].Text)
	assert.Equal(t, "file:///docs/data.json", read.Contents[0].URI)

	read, err = s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: "file:///image.png"})
	require.NoError(t, err)
	assert.Nil(t, read.Contents[0].Text)
	require.NotNil(t, read.Contents[0].Blob)
	assert.NoError(t, read.Contents[0].Validate())

	for _, uri := range []string{
		"file:///../etc/passwd",
		"file:///docs/../../x",
		"file:///.secret",
		"file:///missing.txt",
		"file:////etc/passwd",
	} {
		t.Run(uri, func(t *testing.T) {
			_, err := s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: uri})
			requireCode(t, err, mcp.CodeInvalidParams)
		})
	}
}

func TestFileResourcesWatch(t *testing.T) {
	root := t.TempDir()
	c := testConfig()
	c.ResourceDir = root
	s := newTestService(t, c)
	ctx := context.Background()

	assert.Equal(t, 0, s.files.len())

	// readable before the index catches up
	writeFile(t, root, "late.txt", []byte("late"))
	read, err := s.ResourcesRead(ctx, &mcp.ResourcesReadRequest{URI: "file:///late.txt"})
	require.NoError(t, err)
	assert.Equal(t, "late", *read.Contents[0].Text)

	assert.Eventually(t, func() bool { return s.files.len() == 1 }, 3*time.Second, 20*time.Millisecond)

	require.NoError(t, os.Remove(filepath.Join(root, "late.txt")))
	assert.Eventually(t, func() bool { return s.files.len() == 0 }, 3*time.Second, 20*time.Millisecond)
}

func TestValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"a.txt", true},
		{"dir/a.txt", true},
		{"", false},
		{"/abs", false},
		{"..", false},
		{"../a", false},
		{"a/../../b", false},
		{"a//b", false},
		{`a\b`, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, validPath(tt.path), tt.path)
	}
}

func TestRender(t *testing.T) {
	assert.Equal(t, "a-b-", render("{{x}}-{{ y }}-{{z}}", map[string]string{"x": "a", "y": "b"}))
	assert.Equal(t, "no placeholders", render("no placeholders", nil))
}
