// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrNotFound         = &Error{Status: http.StatusNotFound, Kind: "NotFound"}
	ErrInvalidArgument  = &Error{Status: http.StatusBadRequest, Kind: "InvalidArgument"}
	ErrPermissionDenied = &Error{Status: http.StatusForbidden, Kind: "PermissionDenied"}
	ErrUnauthorized     = &Error{Status: http.StatusUnauthorized, Kind: "Unauthenticated"}
)

// Error is the service's error response body. It satisfies the error
// interface, so a failed call returns it as the error value with the raw
// response still reachable via Response().
type Error struct {
	Status  int           `json:"status,omitempty"`
	Kind    string        `json:"kind,omitempty"`
	Op      string        `json:"op,omitempty"`
	Message string        `json:"message,omitempty"`
	Details *ErrorDetails `json:"details,omitempty"`

	// response is the raw response from the service, preserved for
	// diagnostic context
	response *Response
}

// ErrorDetails carries service-supplied diagnostic information.
type ErrorDetails struct {
	ErrorId       string          `json:"error_id,omitempty"`
	RequestId     string          `json:"request_id,omitempty"`
	TraceId       string          `json:"trace_id,omitempty"`
	RequestFields []*FieldError   `json:"request_fields,omitempty"`
	WrappedErrors []*WrappedError `json:"wrapped_errors,omitempty"`
}

// FieldError describes a problem with a specific request field.
type FieldError struct {
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// WrappedError describes an underlying error the service chose to surface.
type WrappedError struct {
	Op      string `json:"op,omitempty"`
	Message string `json:"message,omitempty"`
}

// Response returns the raw response from the service, if any was received
// before the error was created.
func (e *Error) Response() *Response {
	return e.response
}

// AsServerError returns an api *Error from the provided error. If the
// provided error is not an api Error nil is returned instead.
func AsServerError(in error) *Error {
	var serverErr *Error
	if !errors.As(in, &serverErr) {
		return nil
	}
	return serverErr
}

// Error satisfies the error interface.
func (e *Error) Error() string {
	msg := []string{fmt.Sprintf("%s\n", e.Message), fmt.Sprintf("  %d, %s\n\n", e.Status, e.Kind)}

	if e.Details != nil {
		if e.Details.ErrorId != "" {
			msg = append(msg, fmt.Sprintf("  Error ID: %s\n", e.Details.ErrorId))
		}
		if e.Details.RequestId != "" {
			msg = append(msg, fmt.Sprintf("  Request ID: %s\n", e.Details.RequestId))
		}
		if e.Details.TraceId != "" {
			msg = append(msg, fmt.Sprintf("  Trace ID: %s\n", e.Details.TraceId))
		}
		for _, rf := range e.Details.RequestFields {
			msg = append(msg, fmt.Sprintf("  '-%s': %s\n", strings.ReplaceAll(rf.Name, "_", "-"), rf.Description))
		}
	}

	return strings.Join(msg, "")
}

// Errors are considered the same iff they are both api.Errors and their
// statuses are the same.
func (e *Error) Is(target error) bool {
	tApiErr := AsServerError(target)
	return tApiErr != nil && tApiErr.Kind == e.Kind && tApiErr.Status == e.Status
}

func kindFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "InvalidArgument"
	case http.StatusUnauthorized:
		return "Unauthenticated"
	case http.StatusForbidden:
		return "PermissionDenied"
	case http.StatusNotFound:
		return "NotFound"
	case http.StatusConflict:
		return "Aborted"
	case http.StatusTooManyRequests:
		return "ResourceExhausted"
	default:
		if status >= 500 {
			return "Internal"
		}
		return "Unknown"
	}
}
