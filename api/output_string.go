// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"fmt"
	"strings"

	retryablehttp "github.com/hashicorp/go-retryablehttp"
)

const ErrOutputStringRequest = "output a string, please"

// LastOutputStringError is set when a client configured with
// OutputCurlString captures a request instead of performing it.
var LastOutputStringError *OutputStringError

// OutputStringError is returned from Do when the client is set to output a
// cURL string instead of making requests.
type OutputStringError struct {
	Request          *retryablehttp.Request
	parsingError     error
	parsedCurlString string
}

func (d *OutputStringError) Error() string {
	if d.parsedCurlString == "" {
		if err := d.parseRequest(); err != nil {
			return err.Error()
		}
	}

	return ErrOutputStringRequest
}

func (d *OutputStringError) parseRequest() error {
	if d.parsingError != nil {
		return d.parsingError
	}

	body, err := d.Request.BodyBytes()
	if err != nil {
		d.parsingError = err
		return err
	}

	// Build cURL string
	d.parsedCurlString = "curl "
	if d.Request.Method != "GET" {
		d.parsedCurlString = fmt.Sprintf("%s-X %s ", d.parsedCurlString, d.Request.Method)
	}
	for k, v := range d.Request.Header {
		for _, h := range v {
			if strings.EqualFold(k, "authorization") {
				h = `Bearer $CASK_TOKEN`
			}
			d.parsedCurlString = fmt.Sprintf("%s-H \"%s: %s\" ", d.parsedCurlString, k, h)
		}
	}
	if len(body) > 0 {
		// We need to escape single quotes since that's what we're using to
		// quote the body
		escapedBody := strings.ReplaceAll(string(body), "'", "'\"'\"'")
		d.parsedCurlString = fmt.Sprintf("%s-d '%s' ", d.parsedCurlString, escapedBody)
	}

	d.parsedCurlString = fmt.Sprintf("%s%s", d.parsedCurlString, d.Request.URL.String())

	return nil
}

// CurlString returns the cURL rendering of the captured request.
func (d *OutputStringError) CurlString() string {
	if d.parsedCurlString == "" {
		if err := d.parseRequest(); err != nil {
			return err.Error()
		}
	}
	return d.parsedCurlString
}
