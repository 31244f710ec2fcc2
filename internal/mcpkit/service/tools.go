package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sjzar/mcpkit/internal/errors"
	"github.com/sjzar/mcpkit/internal/mcp"
	"github.com/sjzar/mcpkit/pkg/util"
)

// MaxSleep bounds the sleep tool.
const MaxSleep = 10 * time.Minute

var (
	ToolEcho = mcp.Tool{
		Name:        "echo",
		Description: "Returns the given text unchanged. Useful to check that the server is reachable and arguments arrive intact.",
		InputSchema: mcp.ToolSchema{
			Type: "object",
			Properties: mcp.M{
				"text": mcp.M{
					"type":        "string",
					"description": "Text to echo back.",
				},
			},
			Required: []string{"text"},
		},
	}

	ToolCurrentTime = mcp.Tool{
		Name:        "current_time",
		Description: "Returns the current time in RFC 3339 format.",
		InputSchema: mcp.ToolSchema{
			Type: "object",
			Properties: mcp.M{
				"timezone": mcp.M{
					"type":        "string",
					"description": "IANA time zone name such as Europe/Berlin. Defaults to UTC.",
				},
			},
		},
	}

	ToolSleep = mcp.Tool{
		Name:        "sleep",
		Description: "Waits for the given number of milliseconds, or until the request is cancelled.",
		InputSchema: mcp.ToolSchema{
			Type: "object",
			Properties: mcp.M{
				"ms": mcp.M{
					"type":        "integer",
					"description": "Milliseconds to wait.",
					"minimum":     0,
				},
			},
			Required: []string{"ms"},
		},
	}

	Tools = []mcp.Tool{ToolEcho, ToolCurrentTime, ToolSleep}
)

type toolFunc func(s *Service, ctx context.Context, args mcp.M) (*mcp.ToolsCallResponse, error)

var toolFuncs = map[string]toolFunc{
	ToolEcho.Name:        (*Service).echo,
	ToolCurrentTime.Name: (*Service).currentTime,
	ToolSleep.Name:       (*Service).sleep,
}

func (s *Service) ToolsList(ctx context.Context, req *mcp.ToolsListRequest) (*mcp.ToolsListResponse, error) {
	page, next, err := paginate(Tools, req.Cursor, s.conf.GetPageSize())
	if err != nil {
		return nil, err
	}
	return &mcp.ToolsListResponse{Tools: page, NextCursor: next}, nil
}

func (s *Service) ToolsCall(ctx context.Context, req *mcp.ToolsCallRequest) (*mcp.ToolsCallResponse, error) {
	fn, ok := toolFuncs[req.Name]
	if !ok {
		return nil, errors.ToolNotFound(req.Name)
	}

	if !s.isInitialized(ctx) {
		log.Debug().Str("session", sessionKey(ctx)).Str("tool", req.Name).Msg("tool call before initialized")
	}

	ctx, done := s.calls.track(ctx)
	defer done()

	args := req.Arguments
	if args == nil {
		args = mcp.M{}
	}
	resp, err := fn(s, ctx, args)
	switch {
	case errors.HasCause(err, errCancelledByClient):
		log.Debug().Str("session", sessionKey(ctx)).Str("tool", req.Name).Msg("tool call cancelled by client")
	case errors.Is(err, errors.ErrTypeCancelled):
		log.Debug().Str("session", sessionKey(ctx)).Str("tool", req.Name).Err(err).Msg("tool call cancelled")
	}
	return resp, err
}

func (s *Service) echo(ctx context.Context, args mcp.M) (*mcp.ToolsCallResponse, error) {
	v, ok := args["text"]
	if !ok {
		return nil, errors.RequiredParam("text")
	}
	text, ok := v.(string)
	if !ok {
		return nil, errors.InvalidParam("text", "must be a string")
	}
	return mcp.TextResult(text), nil
}

func (s *Service) currentTime(ctx context.Context, args mcp.M) (*mcp.ToolsCallResponse, error) {
	loc := time.UTC
	if v, ok := args["timezone"]; ok && v != nil {
		name, ok := v.(string)
		if !ok {
			return nil, errors.InvalidParam("timezone", "must be a string")
		}
		var err error
		if loc, err = time.LoadLocation(name); err != nil {
			return nil, errors.InvalidParam("timezone", err.Error())
		}
	}
	return mcp.TextResult(s.now().In(loc).Format(time.RFC3339)), nil
}

func (s *Service) sleep(ctx context.Context, args mcp.M) (*mcp.ToolsCallResponse, error) {
	v, ok := args["ms"]
	if !ok {
		return nil, errors.RequiredParam("ms")
	}
	ms, ok := util.AnyToInt(v)
	if !ok {
		return nil, errors.InvalidParam("ms", "must be an integer")
	}
	if ms < 0 || ms > MaxSleep.Milliseconds() {
		return nil, errors.InvalidParam("ms", fmt.Sprintf("must be between 0 and %d", MaxSleep.Milliseconds()))
	}
	d := time.Duration(ms) * time.Millisecond

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return mcp.TextResult(fmt.Sprintf("slept %dms", ms)), nil
	case <-ctx.Done():
		return nil, wrapCancelled(ctx)
	}
}
