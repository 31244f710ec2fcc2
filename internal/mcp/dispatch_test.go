package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/sjzar/mcpkit/internal/errors"
)

func handle(t *testing.T, p *Processor, in string) (string, bool) {
	t.Helper()
	out, ok := p.HandleMessage(context.Background(), []byte(in))
	return string(out), ok
}

func TestHandleMessageSingle(t *testing.T) {
	p := NewProcessor(&fakeService{}, 4)

	out, ok := handle(t, p, `{"jsonrpc":"2.0","id":1,"method":"ping"}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, out)

	out, ok = handle(t, p, `{"jsonrpc":"2.0","id":"t","method":"tools/call","params":{"name":"echo","arguments":{"text":"hi"}}}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":"t","result":{"content":[{"type":"text","text":"hi"}],"isError":false}}`, out)

	out, ok = handle(t, p, `{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{"uri":"file:///a.txt"}}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":2,"result":{"contents":[{"uri":"file:///a.txt","mimeType":"text/plain","text":"hello"}]}}`, out)
}

func TestHandleMessageNotifications(t *testing.T) {
	svc := &fakeService{}
	p := NewProcessor(svc, 4)

	_, ok := handle(t, p, `{"jsonrpc":"2.0","method":"notifications/initialized","params":{}}`)
	assert.False(t, ok)
	assert.Equal(t, 1, svc.initialized)

	_, ok = handle(t, p, `{"jsonrpc":"2.0","method":"notifications/cancelled","params":{"requestId":"abc","reason":"timeout"}}`)
	assert.False(t, ok)
	require.Len(t, svc.cancelled, 1)
	assert.Equal(t, StringID("abc"), svc.cancelled[0].RequestID)

	// a failing notification is never answered
	_, ok = handle(t, p, `{"jsonrpc":"2.0","method":"notifications/initialized","params":{"foo":1}}`)
	assert.False(t, ok)

	// a batch of notifications only answers with an empty array
	out, ok := handle(t, p, `[{"jsonrpc":"2.0","method":"notifications/initialized"},{"jsonrpc":"2.0","method":"notifications/cancelled","requestId":1}]`)
	require.True(t, ok)
	assert.Equal(t, `[]`, out)
	assert.Equal(t, 2, svc.initialized)
}

func TestHandleMessageEmptyBatch(t *testing.T) {
	p := NewProcessor(&fakeService{}, 4)
	out, ok := handle(t, p, `[]`)
	require.True(t, ok)
	assert.Equal(t, `[]`, out)
}

func TestProcessPreservesOrder(t *testing.T) {
	p := NewProcessor(&fakeService{}, 4)

	// later elements finish first
	out, ok := handle(t, p, `[
		{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"sleep","arguments":{"ms":60}}},
		{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"sleep","arguments":{"ms":40}}},
		{"jsonrpc":"2.0","method":"notifications/initialized"},
		{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"sleep","arguments":{"ms":20}}},
		{"jsonrpc":"2.0","id":4,"method":"ping"}
	]`)
	require.True(t, ok)

	var resps []Response
	require.NoError(t, json.Unmarshal([]byte(out), &resps))
	require.Len(t, resps, 4)
	for i, want := range []int64{1, 2, 3, 4} {
		require.NotNil(t, resps[i].ID)
		got, _ := resps[i].ID.Int()
		assert.Equal(t, want, got)
		assert.Nil(t, resps[i].Error)
	}
}

func TestProcessIsolatesFailures(t *testing.T) {
	p := NewProcessor(&fakeService{}, 2)

	out, ok := handle(t, p, `[
		{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"panic"}},
		{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{"name":"echo","arguments":{"text":"ok"}}},
		{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"crash"}},
		{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"missing"}},
		{"jsonrpc":"2.0","id":5,"method":"prompts/get","params":{"name":"nope"}},
		{"jsonrpc":"1.0","id":6,"method":"ping"}
	]`)
	require.True(t, ok)

	var resps []Response
	require.NoError(t, json.Unmarshal([]byte(out), &resps))
	require.Len(t, resps, 6)

	assert.Equal(t, CodeInternalError, resps[0].Error.Code)
	assert.Contains(t, resps[0].Error.Message, "boom")
	assert.Nil(t, resps[1].Error)
	assert.Equal(t, CodeInternalError, resps[2].Error.Code)
	assert.Equal(t, "disk on fire", resps[2].Error.Message)
	assert.Equal(t, CodeInvalidParams, resps[3].Error.Code)
	assert.Equal(t, CodeInvalidParams, resps[4].Error.Code)
	assert.Equal(t, CodeInvalidRequest, resps[5].Error.Code)
}

func TestProcessNilResult(t *testing.T) {
	p := NewProcessor(&fakeService{}, 1)
	out, ok := handle(t, p, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"nil"}}`)
	require.True(t, ok)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":1,"result":{}}`, out)
}

func TestProcessRequestIDInContext(t *testing.T) {
	svc := &fakeService{}
	p := NewProcessor(svc, 1)
	_, ok := handle(t, p, `{"jsonrpc":"2.0","id":"call-1","method":"tools/call","params":{"name":"echo"}}`)
	require.True(t, ok)
	require.Len(t, svc.callIDs, 1)
	assert.Equal(t, StringID("call-1"), svc.callIDs[0])
}

func TestHandleMessageDecodeErrors(t *testing.T) {
	p := NewProcessor(&fakeService{}, 4)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "parse error",
			in:   `{"jsonrpc"`,
			want: `{"jsonrpc":"2.0","error":{"code":-32700,"message":"invalid JSON"}}`,
		},
		{
			name: "unsupported root",
			in:   `42`,
			want: `{"jsonrpc":"2.0","error":{"code":-32700,"message":"unsupported root type: number"}}`,
		},
		{
			name: "method not found",
			in:   `{"jsonrpc":"2.0","id":9,"method":"tools/delete"}`,
			want: `{"jsonrpc":"2.0","id":9,"error":{"code":-32601,"message":"method not found: tools/delete"}}`,
		},
		{
			name: "missing jsonrpc keeps id",
			in:   `{"id":5,"method":"ping"}`,
			want: `{"jsonrpc":"2.0","id":5,"error":{"code":-32600,"message":"missing or invalid field ` + "`jsonrpc`" + `"}}`,
		},
		{
			name: "malformed element rejects batch",
			in:   `[{"jsonrpc":"2.0","id":1,"method":"ping"},{"jsonrpc":"2.0","id":2,"method":"resources/read","params":{}}]`,
			want: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"request[1]: missing field ` + "`uri`" + `","data":{"index":1}}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := handle(t, p, tt.in)
			require.True(t, ok)
			assert.JSONEq(t, tt.want, out)
		})
	}
}

func TestAsError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"rpc error", InvalidRequest("x"), CodeInvalidRequest},
		{"wrapped rpc error", fmt.Errorf("ctx: %w", MethodNotFound("x")), CodeMethodNotFound},
		{"invalid argument", apperrors.InvalidArg("a"), CodeInvalidParams},
		{"validation", apperrors.Validation("v", nil), CodeInvalidParams},
		{"not found", apperrors.NotFound("n", nil), CodeInvalidParams},
		{"config", apperrors.Config("c", nil), CodeInternalError},
		{"cancelled", apperrors.RequestCancelled(context.Canceled), CodeInternalError},
		{"context", context.Canceled, CodeInternalError},
		{"plain", fmt.Errorf("plain"), CodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, AsError(tt.err).Code)
		})
	}

	assert.Nil(t, AsError(nil))
	assert.Equal(t, "request cancelled", AsError(context.DeadlineExceeded).Message)
}

func TestErrorCodesAreStable(t *testing.T) {
	assert.Equal(t, -32700, CodeParseError)
	assert.Equal(t, -32600, CodeInvalidRequest)
	assert.Equal(t, -32601, CodeMethodNotFound)
	assert.Equal(t, -32602, CodeInvalidParams)
	assert.Equal(t, -32603, CodeInternalError)

	assert.ErrorIs(t, InvalidParams("anything"), ErrInvalidParams)
	assert.NotErrorIs(t, InvalidParams("anything"), ErrInternalError)

	withData := ErrInternalError.WithData(M{"k": "v"})
	assert.Equal(t, CodeInternalError, withData.Code)
	assert.Nil(t, ErrInternalError.Data)
}
