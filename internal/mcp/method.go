package mcp

import (
	"encoding/json"
	"fmt"

	"github.com/go-faster/jx"
)

// Body is the method-tagged part of a request. The set of implementations
// is closed: one struct per supported method.
type Body interface {
	Method() string
}

type Ping struct{}

type Initialize struct {
	Params InitializeRequest
}

type Initialized struct{}

// Cancelled
//
//	{
//		"jsonrpc": "2.0",
//		"method": "notifications/cancelled",
//		"params": {
//			"requestId": "123",
//			"reason": "User requested cancellation"
//		}
//	}
//
// requestId and reason are also accepted at the top level of the message.
type Cancelled struct {
	RequestID RequestID
	Reason    *string
}

type ToolsList struct {
	Params ToolsListRequest
}

type ToolsCall struct {
	Params ToolsCallRequest
}

type PromptsList struct {
	Params PromptsListRequest
}

type PromptsGet struct {
	Params PromptsGetRequest
}

type ResourcesList struct {
	Params ResourcesListRequest
}

type ResourcesTemplatesList struct {
	Params ResourcesTemplatesListRequest
}

type ResourcesRead struct {
	Params ResourcesReadRequest
}

func (Ping) Method() string                   { return MethodPing }
func (Initialize) Method() string             { return MethodInitialize }
func (Initialized) Method() string            { return MethodInitialized }
func (Cancelled) Method() string              { return MethodCancelled }
func (ToolsList) Method() string              { return MethodToolsList }
func (ToolsCall) Method() string              { return MethodToolsCall }
func (PromptsList) Method() string            { return MethodPromptsList }
func (PromptsGet) Method() string             { return MethodPromptsGet }
func (ResourcesList) Method() string          { return MethodResourcesList }
func (ResourcesTemplatesList) Method() string { return MethodResourcesTemplateList }
func (ResourcesRead) Method() string          { return MethodResourcesRead }

// IsNotification reports whether the method never expects a response.
func IsNotification(b Body) bool {
	switch b.(type) {
	case Initialized, Cancelled:
		return true
	}
	return false
}

type decodeFunc func(msg Message) (Body, error)

// bodyDecoders is keyed by method tag, a new method only adds an entry here
// and one in dispatchTable.
var bodyDecoders = map[string]decodeFunc{
	MethodPing: func(msg Message) (Body, error) {
		// ping takes no parameters but tolerates an object, e.g. {"_meta":{}}
		if _, err := optionalParams[struct{}](msg); err != nil {
			return nil, err
		}
		return Ping{}, nil
	},
	MethodInitialize: func(msg Message) (Body, error) {
		p, err := requiredParams[InitializeRequest](msg)
		if err != nil {
			return nil, err
		}
		return Initialize{Params: p}, nil
	},
	MethodInitialized: decodeInitialized,
	MethodCancelled:   decodeCancelled,
	MethodToolsList: func(msg Message) (Body, error) {
		p, err := optionalParams[ToolsListRequest](msg)
		if err != nil {
			return nil, err
		}
		return ToolsList{Params: p}, nil
	},
	MethodToolsCall: func(msg Message) (Body, error) {
		p, err := requiredParams[ToolsCallRequest](msg)
		if err != nil {
			return nil, err
		}
		return ToolsCall{Params: p}, nil
	},
	MethodPromptsList: func(msg Message) (Body, error) {
		p, err := optionalParams[PromptsListRequest](msg)
		if err != nil {
			return nil, err
		}
		return PromptsList{Params: p}, nil
	},
	MethodPromptsGet: func(msg Message) (Body, error) {
		p, err := requiredParams[PromptsGetRequest](msg)
		if err != nil {
			return nil, err
		}
		return PromptsGet{Params: p}, nil
	},
	MethodResourcesList: func(msg Message) (Body, error) {
		p, err := optionalParams[ResourcesListRequest](msg)
		if err != nil {
			return nil, err
		}
		return ResourcesList{Params: p}, nil
	},
	MethodResourcesTemplateList: func(msg Message) (Body, error) {
		p, err := optionalParams[ResourcesTemplatesListRequest](msg)
		if err != nil {
			return nil, err
		}
		return ResourcesTemplatesList{Params: p}, nil
	},
	MethodResourcesRead: func(msg Message) (Body, error) {
		p, err := requiredParams[ResourcesReadRequest](msg)
		if err != nil {
			return nil, err
		}
		return ResourcesRead{Params: p}, nil
	},
}

// decodeInitialized accepts no params at all. An empty object has already
// been stripped by Normalize, anything left is rejected.
func decodeInitialized(msg Message) (Body, error) {
	if msg.Has("params") && !msg.IsNull("params") {
		return nil, InvalidParams(fmt.Sprintf("%s takes no params", MethodInitialized))
	}
	return Initialized{}, nil
}

func decodeCancelled(msg Message) (Body, error) {
	raw, ok := msg["request_id"]
	if !ok {
		raw, ok = msg["requestId"]
	}
	if !ok {
		return nil, InvalidParams("missing field `request_id`")
	}

	var c Cancelled
	if err := c.RequestID.Decode(jx.DecodeBytes(raw)); err != nil {
		return nil, InvalidParams(err.Error())
	}

	if raw, ok := msg["reason"]; ok && raw.Type() != jx.Null {
		if raw.Type() != jx.String {
			return nil, InvalidParams("reason must be a string")
		}
		reason, err := jx.DecodeBytes(raw).Str()
		if err != nil {
			return nil, InvalidParams(err.Error())
		}
		c.Reason = &reason
	}
	return c, nil
}

// validator is implemented by params with constraints beyond their shape.
type validator interface {
	Validate() error
}

// requiredParams decodes params that must be present.
func requiredParams[T any](msg Message) (T, error) {
	var zero T
	if !msg.Has("params") || msg.IsNull("params") {
		return zero, InvalidRequest(fmt.Sprintf("missing params for %s", msg.Method()))
	}
	return decodeParams[T](msg)
}

// optionalParams decodes params defaulting to the zero value when absent.
func optionalParams[T any](msg Message) (T, error) {
	var zero T
	if !msg.Has("params") || msg.IsNull("params") {
		return zero, nil
	}
	return decodeParams[T](msg)
}

func decodeParams[T any](msg Message) (T, error) {
	var result T
	raw := msg["params"]
	if tt := raw.Type(); tt != jx.Object {
		return result, InvalidParams(fmt.Sprintf("params must be an object, got %s", typeName(tt)))
	}
	if err := json.Unmarshal(raw, &result); err != nil {
		return result, InvalidParams(fmt.Sprintf("invalid params for %s: %v", msg.Method(), err))
	}
	if v, ok := any(&result).(validator); ok {
		if err := v.Validate(); err != nil {
			return result, InvalidParams(err.Error())
		}
	}
	return result, nil
}

// decodeRequest decodes a parsed message after normalizing it.
func decodeRequest(msg Message) (Request, error) {
	Normalize(msg)

	var req Request
	if raw, ok := msg["id"]; ok && raw.Type() != jx.Null {
		var id RequestID
		if err := id.Decode(jx.DecodeBytes(raw)); err != nil {
			return req, &RequestError{Index: -1, Err: InvalidRequest(err.Error())}
		}
		req.ID = &id
	}

	version, ok := msg.Str("jsonrpc")
	if !ok {
		return req, &RequestError{Index: -1, ID: req.ID, Err: InvalidRequest("missing or invalid field `jsonrpc`")}
	}
	req.JsonRPC = version

	method, ok := msg.Str("method")
	if !ok {
		return req, &RequestError{Index: -1, ID: req.ID, Err: InvalidRequest("missing or invalid field `method`")}
	}

	decode, ok := bodyDecoders[method]
	if !ok {
		return req, &RequestError{
			Index:        -1,
			ID:           req.ID,
			Notification: req.ID == nil,
			Err:          MethodNotFound(fmt.Sprintf("method not found: %s", method)),
		}
	}

	body, err := decode(msg)
	if err != nil {
		return req, &RequestError{Index: -1, ID: req.ID, Notification: req.ID == nil, Err: AsError(err)}
	}
	req.Body = body
	return req, nil
}
