// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package iamcmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolicyFromFlags(t *testing.T) {
	t.Run("inline bindings", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)

		c := &Command{
			flagBindings: `[{"role": "roles/cask.objectViewer", "members": ["user:eve@example.com"], "condition": {"title": "expiry", "expression": "request.time < timestamp(\"2027-01-01T00:00:00Z\")"}}]`,
			flagEtag:     "CAE=",
		}
		policy, err := c.policyFromFlags()
		require.NoError(err)
		assert.Equal("CAE=", policy.Etag)
		require.Len(policy.Bindings, 1)
		binding := policy.Bindings[0]
		assert.Equal("roles/cask.objectViewer", binding.Role)
		assert.Equal([]string{"user:eve@example.com"}, binding.Members)
		require.NotNil(binding.Condition)
		assert.Equal("expiry", binding.Condition.Title)
	})

	t.Run("bindings from file", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)

		path := filepath.Join(t.TempDir(), "policy.json")
		require.NoError(os.WriteFile(path, []byte(`[{"role": "roles/cask.objectAdmin"}]`), 0o600))

		c := &Command{flagBindings: "file://" + path}
		policy, err := c.policyFromFlags()
		require.NoError(err)
		require.Len(policy.Bindings, 1)
		assert.Equal("roles/cask.objectAdmin", policy.Bindings[0].Role)
	})

	t.Run("etag and version only", func(t *testing.T) {
		assert, require := assert.New(t), require.New(t)

		c := &Command{flagEtag: "CAE=", flagPolicyVersion: 3}
		policy, err := c.policyFromFlags()
		require.NoError(err)
		assert.Equal("CAE=", policy.Etag)
		assert.Equal(uint32(3), policy.Version)
		assert.Empty(policy.Bindings)
	})

	t.Run("missing role", func(t *testing.T) {
		c := &Command{flagBindings: `[{"members": ["user:eve@example.com"]}]`}
		_, err := c.policyFromFlags()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no role")
	})

	t.Run("malformed json", func(t *testing.T) {
		c := &Command{flagBindings: `{"role": "roles/cask.objectViewer"}`}
		_, err := c.policyFromFlags()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "JSON array")
	})
}
