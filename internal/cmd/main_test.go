// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetupEnv(t *testing.T) {
	tests := []struct {
		name      string
		in        []string
		out       []string
		expFormat string
		expCurl   bool
	}{
		{
			name:      "zero length",
			expFormat: "table",
		},
		{
			name:      "no format args",
			in:        []string{"iam", "read", "-bucket", "photos"},
			out:       []string{"iam", "read", "-bucket", "photos"},
			expFormat: "table",
		},
		{
			name:      "format with equals",
			in:        []string{"iam", "read", "-format=json"},
			out:       []string{"iam", "read", "-format=json"},
			expFormat: "json",
		},
		{
			name:      "format without equals",
			in:        []string{"iam", "read", "-format", "json"},
			out:       []string{"iam", "read", "-format", "json"},
			expFormat: "json",
		},
		{
			name:      "format is case insensitive",
			in:        []string{"iam", "read", "-format=JSON"},
			out:       []string{"iam", "read", "-format=JSON"},
			expFormat: "json",
		},
		{
			name:      "version shortcut",
			in:        []string{"-v"},
			out:       []string{"version"},
			expFormat: "table",
		},
		{
			name:      "long version shortcut",
			in:        []string{"-version"},
			out:       []string{"version"},
			expFormat: "table",
		},
		{
			name:      "curl string",
			in:        []string{"iam", "read", "-output-curl-string"},
			out:       []string{"iam", "read", "-output-curl-string"},
			expFormat: "table",
			expCurl:   true,
		},
		{
			name:      "format after double dash is ignored",
			in:        []string{"iam", "read", "--", "-format=json"},
			out:       []string{"iam", "read", "--", "-format=json"},
			expFormat: "table",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out, format, curl := setupEnv(tc.in)
			assert.EqualValues(t, tc.out, out)
			assert.Equal(t, tc.expFormat, format)
			assert.Equal(t, tc.expCurl, curl)
		})
	}
}
