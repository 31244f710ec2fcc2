package errors

import (
	"fmt"
	"net/http"
)

// Tools, prompts and resources

func ToolNotFound(name string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("unknown tool: %s", name), nil, http.StatusNotFound).WithStack()
}

func PromptNotFound(name string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("unknown prompt: %s", name), nil, http.StatusNotFound).WithStack()
}

func ResourceNotFound(uri string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("unknown resource: %s", uri), nil, http.StatusNotFound).WithStack()
}

func InvalidCursor(cursor string, cause error) *AppError {
	return New(ErrTypeInvalidArg, fmt.Sprintf("invalid cursor: %q", cursor), cause, http.StatusBadRequest).WithStack()
}

// RequiredParam reports a missing argument.
func RequiredParam(param string) *AppError {
	return New(ErrTypeInvalidArg, fmt.Sprintf("required parameter missing: %s", param), nil, http.StatusBadRequest).WithStack()
}

// InvalidParam reports an argument with a bad value, reason is optional.
func InvalidParam(param string, reason string) *AppError {
	message := fmt.Sprintf("invalid parameter: %s", param)
	if reason != "" {
		message = fmt.Sprintf("%s (%s)", message, reason)
	}
	return New(ErrTypeInvalidArg, message, nil, http.StatusBadRequest).WithStack()
}

// Configuration

func ConfigInvalid(field string, cause error) *AppError {
	return New(ErrTypeConfig, fmt.Sprintf("invalid configuration: %s", field), cause, http.StatusInternalServerError).WithStack()
}

func ConfigMissing(field string) *AppError {
	return New(ErrTypeConfig, fmt.Sprintf("missing configuration: %s", field), nil, http.StatusBadRequest).WithStack()
}

// File system

func FileNotFound(path string) *AppError {
	return New(ErrTypeNotFound, fmt.Sprintf("file not found: %s", path), nil, http.StatusNotFound).WithStack()
}

func FileReadFailed(path string, cause error) *AppError {
	return New(ErrTypeInternal, fmt.Sprintf("failed to read file: %s", path), cause, http.StatusInternalServerError).WithStack()
}

func WatchFailed(path string, cause error) *AppError {
	return New(ErrTypeInternal, fmt.Sprintf("failed to watch: %s", path), cause, http.StatusInternalServerError).WithStack()
}

// Transports

func HTTPShutDown(cause error) *AppError {
	return Transport("http server shut down", cause)
}

// RequestCancelled reports a call stopped by notifications/cancelled or by
// its client going away.
func RequestCancelled(cause error) *AppError {
	return Cancelled("request cancelled", cause)
}
