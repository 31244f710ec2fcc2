package mcp

import (
	"context"
	stderrors "errors"
	"fmt"

	"github.com/sjzar/mcpkit/internal/errors"
)

// Standard JSON-RPC error codes:
//
//	enum ErrorCode {
//		ParseError = -32700,
//		InvalidRequest = -32600,
//		MethodNotFound = -32601,
//		InvalidParams = -32602,
//		InternalError = -32603
//	}
//
// Clients branch on these values, they never change.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

var (
	ErrParseError     = &Error{Code: CodeParseError, Message: "Parse error"}
	ErrInvalidRequest = &Error{Code: CodeInvalidRequest, Message: "Invalid Request"}
	ErrMethodNotFound = &Error{Code: CodeMethodNotFound, Message: "Method not found"}
	ErrInvalidParams  = &Error{Code: CodeInvalidParams, Message: "Invalid params"}
	ErrInternalError  = &Error{Code: CodeInternalError, Message: "Internal error"}

	// transport level, sent with an HTTP status of the same value
	ErrInvalidSessionID = &Error{Code: 400, Message: "Invalid session ID"}
	ErrSessionNotFound  = &Error{Code: 404, Message: "Could not find session"}
	ErrTooManyRequests  = &Error{Code: 429, Message: "Too many requests"}
)

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

func ParseError(message string) *Error {
	return NewError(CodeParseError, message)
}

func InvalidRequest(message string) *Error {
	return NewError(CodeInvalidRequest, message)
}

func MethodNotFound(message string) *Error {
	return NewError(CodeMethodNotFound, message)
}

func InvalidParams(message string) *Error {
	return NewError(CodeInvalidParams, message)
}

func InternalError(message string) *Error {
	return NewError(CodeInternalError, message)
}

// DocumentTooLarge is the parse error for a document over limit bytes.
func DocumentTooLarge(limit int) *Error {
	return ParseError(fmt.Sprintf("document too large, limit is %d bytes", limit))
}

// WithData returns a copy of e carrying data.
func (e *Error) WithData(data any) *Error {
	return &Error{Code: e.Code, Message: e.Message, Data: data}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Code, e.Message)
}

// Is matches errors of the same code, so errors.Is(err, ErrInvalidParams)
// holds for any invalid params error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func (e *Error) JsonRPC() Response {
	return Response{
		JsonRPC: JsonRPCVersion,
		Error:   e,
	}
}

// AsError classifies any handler or decode failure into one of the five
// JSON-RPC categories.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var rpcErr *Error
	if stderrors.As(err, &rpcErr) {
		return rpcErr
	}

	if appErr, ok := errors.AsAppError(err); ok {
		switch appErr.Type {
		case errors.ErrTypeInvalidArg, errors.ErrTypeValidation, errors.ErrTypeNotFound:
			return InvalidParams(appErr.Message)
		default:
			return InternalError(appErr.Message)
		}
	}

	if stderrors.Is(err, context.Canceled) || stderrors.Is(err, context.DeadlineExceeded) {
		return InternalError("request cancelled")
	}

	return InternalError(err.Error())
}

// RequestError is a decode failure attributed to the message that caused it.
type RequestError struct {
	// Index is the position inside a batch, -1 for a bare object.
	Index int
	// ID is the request id when it could be read before the failure.
	ID *RequestID
	// Notification is set when the message named a method but carried no
	// id; such failures are never answered.
	Notification bool
	Err          *Error
}

func (e *RequestError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("request[%d]: %s", e.Index, e.Err.Message)
	}
	return e.Err.Message
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// DecodeErrorResponse builds the reply for a document that failed to decode.
// ok is false when nothing must be sent, i.e. a bare notification failed.
func DecodeErrorResponse(err error) (resp Response, ok bool) {
	rpcErr := AsError(err)

	var reqErr *RequestError
	if stderrors.As(err, &reqErr) {
		if reqErr.Index < 0 {
			if reqErr.Notification {
				return Response{}, false
			}
			resp := NewErrorResponse(reqErr.ID, rpcErr)
			return resp, true
		}
		// whole batch rejected, no single id applies
		batchErr := &Error{Code: rpcErr.Code, Message: reqErr.Error(), Data: M{"index": reqErr.Index}}
		return NewErrorResponse(nil, batchErr), true
	}

	return NewErrorResponse(nil, rpcErr), true
}
