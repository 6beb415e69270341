// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package buckets_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/caskstore/cask/api"
	"github.com/caskstore/cask/api/buckets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testClient(t *testing.T, handler http.Handler) *api.Client {
	t.Helper()
	ts := httptest.NewServer(handler)
	t.Cleanup(ts.Close)
	client, err := api.NewClient(&api.Config{Addr: ts.URL})
	require.NoError(t, err)
	return client
}

func TestIamPolicy(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotPath string
	var gotQuery map[string][]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&buckets.Policy{
			Bindings: []*buckets.Binding{
				{Role: "roles/cask.objectViewer", Members: []string{"user:eve@example.com"}},
			},
			Etag:    "CAE=",
			Version: 1,
		})
	}))

	iam := buckets.NewClient(client).IAM("photos")
	assert.Equal("buckets/photos", iam.ResourceId())

	result, err := iam.Policy(context.Background())
	require.NoError(err)
	require.NotNil(result.Item)
	assert.Equal("/v1/buckets/photos/iam", gotPath)
	assert.NotContains(gotQuery, "optionsRequestedPolicyVersion")
	assert.Equal("CAE=", result.Item.Etag)
	require.Len(result.Item.Bindings, 1)
	assert.Equal("roles/cask.objectViewer", result.Item.Bindings[0].Role)
	assert.NotNil(result.GetResponse())
	assert.Equal(http.StatusOK, result.GetResponse().StatusCode())
}

func TestIamPolicy_QueryParams(t *testing.T) {
	var gotQuery map[string][]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&buckets.Policy{Version: 3})
	}))

	iam := buckets.NewClient(client).IAM("photos")

	cases := []struct {
		name      string
		opts      []buckets.Option
		wantQuery map[string][]string
	}{
		{
			name:      "no options",
			wantQuery: map[string][]string{},
		},
		{
			name:      "requested policy version",
			opts:      []buckets.Option{buckets.WithRequestedPolicyVersion(3)},
			wantQuery: map[string][]string{"optionsRequestedPolicyVersion": {"3"}},
		},
		{
			name: "user project and version",
			opts: []buckets.Option{buckets.WithRequestedPolicyVersion(3), buckets.WithUserProject("billing-proj")},
			wantQuery: map[string][]string{
				"optionsRequestedPolicyVersion": {"3"},
				"userProject":                   {"billing-proj"},
			},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			_, err := iam.Policy(context.Background(), tt.opts...)
			require.NoError(t, err)
			assert.Equal(t, tt.wantQuery, gotQuery)
		})
	}
}

func TestIamPolicy_ClientUserProject(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotQuery map[string][]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&buckets.Policy{})
	}))
	client.SetUserProject("default-proj")

	iam := buckets.NewClient(client).IAM("photos")

	// Client default applies when the call doesn't specify one
	_, err := iam.Policy(context.Background())
	require.NoError(err)
	assert.Equal([]string{"default-proj"}, gotQuery["userProject"])

	// Per-call option wins over the client default
	_, err = iam.Policy(context.Background(), buckets.WithUserProject("other-proj"))
	require.NoError(err)
	assert.Equal([]string{"other-proj"}, gotQuery["userProject"])
}

func TestIamSetPolicy(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotMethod, gotPath string
	var gotBody map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&buckets.Policy{Etag: "CAF=", Version: 1})
	}))

	iam := buckets.NewClient(client).IAM("photos")

	result, err := iam.SetPolicy(context.Background(), &buckets.Policy{
		Bindings: []*buckets.Binding{
			{
				Role:    "roles/cask.objectAdmin",
				Members: []string{"group:ops@example.com"},
				Condition: &buckets.Expr{
					Title:      "expiry",
					Expression: `request.time < timestamp("2027-01-01T00:00:00Z")`,
				},
			},
		},
		Etag: "CAE=",
	})
	require.NoError(err)

	assert.Equal("PUT", gotMethod)
	assert.Equal("/v1/buckets/photos/iam", gotPath)
	// The accessor injects its own resource identifier into the body.
	assert.Equal("buckets/photos", gotBody["resourceId"])
	assert.Equal("CAE=", gotBody["etag"])
	bindings, ok := gotBody["bindings"].([]any)
	require.True(ok)
	require.Len(bindings, 1)
	binding := bindings[0].(map[string]any)
	assert.Equal("roles/cask.objectAdmin", binding["role"])
	condition := binding["condition"].(map[string]any)
	assert.Equal("expiry", condition["title"])

	// The service's updated policy comes back as the item.
	assert.Equal("CAF=", result.Item.Etag)
	assert.NotNil(result.GetResponse())
}

func TestIamSetPolicy_NilPolicy(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var calls int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))

	iam := buckets.NewClient(client).IAM("photos")

	result, err := iam.SetPolicy(context.Background(), nil)
	require.Error(err)
	assert.Nil(result)
	assert.True(errors.Is(err, buckets.ErrMissingPolicy))
	assert.Nil(api.AsServerError(err))
	assert.Zero(atomic.LoadInt32(&calls), "no request should be issued for a nil policy")
}

func TestIamTestPermissions_RequestShape(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	var calls int32
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{}`))
	}))

	iam := buckets.NewClient(client).IAM("photos")

	cases := []struct {
		name        string
		permissions []string
		wantPerms   []string
	}{
		{
			name:        "single element",
			permissions: []string{"cask.objects.get"},
			wantPerms:   []string{"cask.objects.get"},
		},
		{
			name:        "multiple elements repeat the key in order",
			permissions: []string{"cask.objects.get", "cask.objects.delete"},
			wantPerms:   []string{"cask.objects.get", "cask.objects.delete"},
		},
		{
			name:        "empty list is valid and sends no permission params",
			permissions: []string{},
			wantPerms:   nil,
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			result, err := iam.TestPermissions(context.Background(), tt.permissions)
			require.NoError(t, err)
			assert.Equal(t, "/v1/buckets/photos/iam/testPermissions", gotPath)
			assert.Equal(t, tt.wantPerms, gotQuery["permissions"])
			assert.Len(t, result.Item, len(tt.permissions))
		})
	}

	t.Run("nil permissions fail before any request", func(t *testing.T) {
		before := atomic.LoadInt32(&calls)
		result, err := iam.TestPermissions(context.Background(), nil)
		require.Error(t, err)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, buckets.ErrMissingPermissions))
		assert.Equal(t, before, atomic.LoadInt32(&calls))
	})
}

func TestIamTestPermissions_ResultMapping(t *testing.T) {
	cases := []struct {
		name      string
		requested []string
		granted   []string
		want      map[string]bool
	}{
		{
			name:      "subset granted",
			requested: []string{"cask.objects.get", "cask.objects.delete"},
			granted:   []string{"cask.objects.get"},
			want:      map[string]bool{"cask.objects.get": true, "cask.objects.delete": false},
		},
		{
			name:      "unrelated grants are ignored",
			requested: []string{"cask.objects.get", "cask.objects.delete"},
			granted:   []string{"cask.objects.get", "cask.buckets.setIamPolicy"},
			want:      map[string]bool{"cask.objects.get": true, "cask.objects.delete": false},
		},
		{
			name:      "all granted",
			requested: []string{"cask.objects.get"},
			granted:   []string{"cask.objects.get"},
			want:      map[string]bool{"cask.objects.get": true},
		},
		{
			name:      "service omits the permissions field",
			requested: []string{"cask.objects.get"},
			granted:   nil,
			want:      map[string]bool{"cask.objects.get": false},
		},
	}

	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				body := map[string]any{}
				if tt.granted != nil {
					body["permissions"] = tt.granted
				}
				json.NewEncoder(w).Encode(body)
			}))

			iam := buckets.NewClient(client).IAM("photos")
			result, err := iam.TestPermissions(context.Background(), tt.requested)
			require.NoError(t, err)
			assert.Equal(t, tt.want, result.Item)
		})
	}
}

func TestIamErrors(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"kind": "NotFound", "message": "bucket not found"}`))
	}))

	iam := buckets.NewClient(client).IAM("missing")

	result, err := iam.Policy(context.Background())
	require.Error(err)
	assert.Nil(result)

	apiErr := api.AsServerError(err)
	require.NotNil(apiErr)
	assert.Equal(http.StatusNotFound, apiErr.Status)
	assert.Equal("bucket not found", apiErr.Message)
	assert.True(errors.Is(err, api.ErrNotFound))
	require.NotNil(apiErr.Response())
	assert.Equal(http.StatusNotFound, apiErr.Response().StatusCode())

	_, err = iam.SetPolicy(context.Background(), &buckets.Policy{})
	require.Error(err)
	assert.NotNil(api.AsServerError(err))

	_, err = iam.TestPermissions(context.Background(), []string{"cask.objects.get"})
	require.Error(err)
	assert.NotNil(api.AsServerError(err))
}

func TestIamTransportError(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	client, err := api.NewClient(&api.Config{Addr: ts.URL})
	require.NoError(err)
	// Kill the server so the dial fails.
	ts.Close()

	iam := buckets.NewClient(client).IAM("photos")
	result, err := iam.Policy(context.Background())
	require.Error(err)
	assert.Nil(result)
	// Not a service error; the executor's failure passes through.
	assert.Nil(api.AsServerError(err))
}
