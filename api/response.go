// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is a custom response that wraps an HTTP response. Body will be
// populated with a buffer containing the response body after Decode is
// called; it will be empty if the response had no body.
type Response struct {
	resp *http.Response

	Body *bytes.Buffer
	Map  map[string]any
}

// HttpResponse returns the underlying HTTP response
func (r *Response) HttpResponse() *http.Response {
	return r.resp
}

// StatusCode returns the underlying HTTP status code
func (r *Response) StatusCode() int {
	return r.resp.StatusCode
}

// Decode reads the response body, and either decodes a service error out of
// a non-2xx response (returned as the *Error value with this response
// attached) or unmarshals the body into inStruct. A nil inStruct skips
// unmarshaling but still buffers the body.
func (r *Response) Decode(inStruct any) (*Error, error) {
	if r == nil || r.resp == nil {
		return nil, fmt.Errorf("nil response, cannot decode")
	}
	defer r.resp.Body.Close()

	r.Body = new(bytes.Buffer)
	if _, err := r.Body.ReadFrom(r.resp.Body); err != nil {
		return nil, fmt.Errorf("error reading response body: %w", err)
	}
	if r.Body.Len() > 0 {
		r.Map = make(map[string]any)
		if err := json.Unmarshal(r.Body.Bytes(), &r.Map); err != nil {
			return nil, fmt.Errorf("error unmarshaling response body into map: %w", err)
		}
	}

	if r.resp.StatusCode >= 400 {
		// The body is a service error, not the expected resource.
		apiErr := &Error{
			Status: r.resp.StatusCode,
			Kind:   kindFromStatus(r.resp.StatusCode),
		}
		if r.Body.Len() > 0 {
			if err := json.Unmarshal(r.Body.Bytes(), apiErr); err != nil {
				return nil, fmt.Errorf("error unmarshaling error body of response: %w", err)
			}
		}
		apiErr.Status = r.resp.StatusCode
		apiErr.response = r
		return apiErr, nil
	}

	if inStruct != nil && r.Body.Len() > 0 {
		if err := json.Unmarshal(r.Body.Bytes(), inStruct); err != nil {
			return nil, fmt.Errorf("error unmarshaling response body: %w", err)
		}
	}

	return nil, nil
}
