// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package buckets_test

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/caskstore/cask/api/buckets"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketCreate(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotMethod, gotPath string
	var gotBody map[string]any
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&buckets.Bucket{Name: "photos", Version: 1})
	}))

	bc := buckets.NewClient(client)
	result, err := bc.Create(context.Background(), "photos",
		buckets.WithDescription("team photo archive"),
		buckets.WithLocation("us-east1"),
		buckets.WithStorageClass("STANDARD"))
	require.NoError(err)

	assert.Equal("POST", gotMethod)
	assert.Equal("/v1/buckets", gotPath)
	assert.Equal("photos", gotBody["name"])
	assert.Equal("team photo archive", gotBody["description"])
	assert.Equal("us-east1", gotBody["location"])
	assert.Equal("STANDARD", gotBody["storageClass"])
	assert.Equal("photos", result.Item.Name)

	_, err = bc.Create(context.Background(), "")
	require.Error(err)
	assert.Contains(err.Error(), "empty bucketName")
}

func TestBucketRead(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotPath string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(&buckets.Bucket{Name: "ops logs", Version: 3})
	}))

	bc := buckets.NewClient(client)
	result, err := bc.Read(context.Background(), "ops logs")
	require.NoError(err)
	// Names get path-escaped on the wire.
	assert.Equal("/v1/buckets/ops%20logs", gotPath)
	assert.Equal(uint32(3), result.Item.Version)
}

func TestBucketUpdate(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotVersions []string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case "GET":
			json.NewEncoder(w).Encode(&buckets.Bucket{Name: "photos", Version: 7})
		case "PATCH":
			gotVersions = append(gotVersions, r.URL.Query().Get("version"))
			json.NewEncoder(w).Encode(&buckets.Bucket{Name: "photos", Version: 8})
		}
	}))

	bc := buckets.NewClient(client)

	// Explicit version is sent as-is.
	result, err := bc.Update(context.Background(), "photos", 7, buckets.WithDescription("updated"))
	require.NoError(err)
	assert.Equal(uint32(8), result.Item.Version)

	// Zero version without automatic versioning is refused locally.
	_, err = bc.Update(context.Background(), "photos", 0)
	require.Error(err)
	assert.Contains(err.Error(), "zero version number")

	// With automatic versioning the current version is fetched first.
	_, err = bc.Update(context.Background(), "photos", 0, buckets.WithAutomaticVersioning(true))
	require.NoError(err)
	assert.Equal([]string{"7", "7"}, gotVersions)
}

func TestBucketDelete(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	existed := true
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]bool{"existed": existed})
	}))

	bc := buckets.NewClient(client)

	got, err := bc.Delete(context.Background(), "photos")
	require.NoError(err)
	assert.True(got)

	existed = false
	got, err = bc.Delete(context.Background(), "photos")
	require.NoError(err)
	assert.False(got)
}

func TestBucketList(t *testing.T) {
	assert, require := assert.New(t), require.New(t)

	var gotQuery map[string][]string
	client := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"items": []*buckets.Bucket{
				{Name: "photos"},
				{Name: "logs"},
			},
		})
	}))

	bc := buckets.NewClient(client)
	result, err := bc.List(context.Background(), buckets.WithFilter(`"us-" in item.location`))
	require.NoError(err)
	require.Len(result.Items, 2)
	assert.Equal("photos", result.Items[0].Name)
	assert.Equal([]string{`"us-" in item.location`}, gotQuery["filter"])
}
