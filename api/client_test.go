// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetAddr(t *testing.T) {
	type test struct {
		name    string
		input   string
		address string
		err     string
	}

	tests := []test{
		{
			"bare",
			"http://127.0.0.1:9400",
			"http://127.0.0.1:9400",
			"",
		},
		{
			"bare with trailing slash",
			"http://127.0.0.1:9400/",
			"http://127.0.0.1:9400",
			"",
		},
		{
			"bare with version",
			"http://127.0.0.1:9400/v1",
			"http://127.0.0.1:9400",
			"",
		},
		{
			"bare with version and trailing slash",
			"http://127.0.0.1:9400/v1/",
			"http://127.0.0.1:9400",
			"",
		},
		{
			"unix socket",
			"unix:///tmp/cask.sock",
			"unix:///tmp/cask.sock",
			"",
		},
		{
			"garbage",
			"http://127.0.0.1:9400\x00",
			"",
			"error parsing address",
		},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			var c Config
			err := c.setAddr(v.input)
			if err != nil {
				require.NotEmpty(t, v.err)
				assert.Contains(t, err.Error(), v.err)
				return
			}
			require.Empty(t, v.err)
			assert.Equal(t, v.address, c.Addr)
		})
	}
}

func TestParseRateLimit(t *testing.T) {
	type test struct {
		name      string
		input     string
		wantRate  float64
		wantBurst int
		wantErr   bool
	}

	tests := []test{
		{"rate and burst", "400:10", 400, 10, false},
		{"rate only", "100", 100, 100, false},
		{"fractional rate", "0.5", 0.5, 0, false},
		{"malformed", "asdf", 0, 0, true},
	}

	for _, v := range tests {
		t.Run(v.name, func(t *testing.T) {
			gotRate, gotBurst, err := parseRateLimit(v.input)
			if v.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, v.wantRate, gotRate)
			assert.Equal(t, v.wantBurst, gotBurst)
		})
	}
}

func TestNewRequest(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	client, err := NewClient(&Config{Addr: "https://127.0.0.1:9400"})
	require.NoError(err)
	client.SetToken("s3cr3t")

	req, err := client.NewRequest(context.Background(), "GET", "buckets/photos/iam", nil)
	require.NoError(err)
	assert.Equal("https://127.0.0.1:9400/v1/buckets/photos/iam", req.URL.String())
	assert.Equal("Bearer s3cr3t", req.Header.Get("Authorization"))
	assert.Equal("application/json", req.Header.Get("Content-Type"))

	// Request paths are always joined under the version prefix, even when the
	// configured address carried one.
	client2, err := NewClient(&Config{Addr: "https://127.0.0.1:9400/v1"})
	require.NoError(err)
	req2, err := client2.NewRequest(context.Background(), "GET", "buckets", nil)
	require.NoError(err)
	assert.Equal("https://127.0.0.1:9400/v1/buckets", req2.URL.String())
}

func TestClientDoDecode(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"name": "photos", "version": 2}`))
	}))
	defer ts.Close()

	client, err := NewClient(&Config{Addr: ts.URL})
	require.NoError(err)

	req, err := client.NewRequest(context.Background(), "GET", "buckets/photos", nil)
	require.NoError(err)

	resp, err := client.Do(req)
	require.NoError(err)
	assert.Equal(http.StatusOK, resp.StatusCode())

	var target struct {
		Name    string `json:"name"`
		Version uint32 `json:"version"`
	}
	apiErr, err := resp.Decode(&target)
	require.NoError(err)
	require.Nil(apiErr)
	assert.Equal("photos", target.Name)
	assert.Equal(uint32(2), target.Version)
	assert.Equal("photos", resp.Map["name"])
}

func TestClientDoServerError(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"kind": "PermissionDenied", "message": "caller lacks cask.buckets.getIamPolicy"}`))
	}))
	defer ts.Close()

	client, err := NewClient(&Config{Addr: ts.URL})
	require.NoError(err)

	req, err := client.NewRequest(context.Background(), "GET", "buckets/photos/iam", nil)
	require.NoError(err)

	resp, err := client.Do(req)
	require.NoError(err)

	apiErr, err := resp.Decode(nil)
	require.NoError(err)
	require.NotNil(apiErr)
	assert.Equal(http.StatusForbidden, apiErr.Status)
	assert.Equal("PermissionDenied", apiErr.Kind)
	assert.Contains(apiErr.Message, "getIamPolicy")
	assert.True(apiErr.Is(ErrPermissionDenied))
}

func TestClientOutputCurlString(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	client, err := NewClient(&Config{Addr: "https://127.0.0.1:9400"})
	require.NoError(err)
	client.SetToken("s3cr3t")
	client.SetOutputCurlString(true)

	req, err := client.NewRequest(context.Background(), "PUT", "buckets/photos/iam", map[string]any{
		"resourceId": "buckets/photos",
	})
	require.NoError(err)

	_, err = client.Do(req)
	require.Error(err)
	assert.Equal(ErrOutputStringRequest, err.Error())

	require.NotNil(LastOutputStringError)
	curl := LastOutputStringError.CurlString()
	assert.Contains(curl, "-X PUT")
	assert.Contains(curl, "https://127.0.0.1:9400/v1/buckets/photos/iam")
	assert.Contains(curl, `"resourceId":"buckets/photos"`)
	// The real token never appears in the rendered command.
	assert.NotContains(curl, "s3cr3t")
	assert.Contains(curl, "$CASK_TOKEN")
}

func TestClientClone(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	client, err := NewClient(&Config{Addr: "https://127.0.0.1:9400"})
	require.NoError(err)
	client.SetToken("tok")
	client.SetUserProject("proj")
	client.SetMaxRetries(5)

	clone := client.Clone()
	assert.Equal(client.Addr(), clone.Addr())
	assert.Equal("tok", clone.Token())
	assert.Equal("proj", clone.UserProject())

	// Mutating the clone leaves the original alone.
	clone.SetToken("other")
	assert.Equal("tok", client.Token())
}
