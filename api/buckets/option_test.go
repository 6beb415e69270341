// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package buckets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOpts(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		opts, apiOpts := getOpts()
		assert.Empty(t, opts.postMap)
		assert.Empty(t, opts.queryMap)
		assert.Empty(t, apiOpts)
	})
	t.Run("WithDescription", func(t *testing.T) {
		opts, _ := getOpts(WithDescription("desc"))
		assert.Equal(t, map[string]any{"description": "desc"}, opts.postMap)
	})
	t.Run("DefaultDescription", func(t *testing.T) {
		opts, _ := getOpts(DefaultDescription())
		assert.Equal(t, map[string]any{"description": nil}, opts.postMap)
	})
	t.Run("last option wins", func(t *testing.T) {
		opts, _ := getOpts(WithDescription("first"), WithDescription("second"))
		assert.Equal(t, "second", opts.postMap["description"])
	})
	t.Run("WithRequestedPolicyVersion", func(t *testing.T) {
		opts, _ := getOpts(WithRequestedPolicyVersion(3))
		assert.Equal(t, map[string]string{"optionsRequestedPolicyVersion": "3"}, opts.queryMap)
	})
	t.Run("WithUserProject", func(t *testing.T) {
		opts, _ := getOpts(WithUserProject("billing-proj"))
		assert.Equal(t, map[string]string{"userProject": "billing-proj"}, opts.queryMap)
	})
	t.Run("WithQueryParam", func(t *testing.T) {
		opts, _ := getOpts(WithQueryParam("newParam", "x"))
		assert.Equal(t, map[string]string{"newParam": "x"}, opts.queryMap)
	})
	t.Run("WithFilter", func(t *testing.T) {
		opts, _ := getOpts(WithFilter("  name == \"photos\"  "))
		assert.Equal(t, map[string]string{"filter": `name == "photos"`}, opts.queryMap)
	})
	t.Run("WithSkipCurlOutput", func(t *testing.T) {
		_, apiOpts := getOpts(WithSkipCurlOutput(true))
		require.Len(t, apiOpts, 1)
	})
	t.Run("nil option is ignored", func(t *testing.T) {
		opts, _ := getOpts(nil, WithLocation("eu-west1"))
		assert.Equal(t, "eu-west1", opts.postMap["location"])
	})
}
