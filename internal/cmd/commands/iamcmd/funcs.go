// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package iamcmd

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/caskstore/cask/api/buckets"
	"github.com/caskstore/cask/internal/cmd/base"
	"github.com/hashicorp/go-secure-stdlib/parseutil"
	"github.com/mitchellh/mapstructure"
)

// policyFromFlags builds the policy to write from the -bindings, -etag and
// -policy-version flags. The bindings value may be inline JSON or a file:// or
// env:// reference.
func (c *Command) policyFromFlags() (*buckets.Policy, error) {
	policy := &buckets.Policy{
		Etag: c.flagEtag,
	}
	if c.flagPolicyVersion != 0 {
		policy.Version = uint32(c.flagPolicyVersion)
	}

	if c.flagBindings == "" {
		return policy, nil
	}

	raw, err := parseutil.ParsePath(c.flagBindings)
	if err != nil && !errors.Is(err, parseutil.ErrNotAUrl) {
		return nil, fmt.Errorf("Error resolving -bindings value: %w", err)
	}

	var decoded []map[string]any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return nil, fmt.Errorf("Error parsing -bindings as a JSON array: %w", err)
	}

	bindings := make([]*buckets.Binding, 0, len(decoded))
	for i, m := range decoded {
		var binding buckets.Binding
		if err := mapstructure.Decode(m, &binding); err != nil {
			return nil, fmt.Errorf("Error interpreting binding at index %d: %w", i, err)
		}
		if binding.Role == "" {
			return nil, fmt.Errorf("Binding at index %d has no role", i)
		}
		bindings = append(bindings, &binding)
	}
	policy.Bindings = bindings

	return policy, nil
}

func printPolicyTable(item *buckets.Policy, resourceId string) string {
	nonAttributeMap := map[string]any{
		"Resource ID": resourceId,
	}
	if item.Etag != "" {
		nonAttributeMap["Etag"] = item.Etag
	}
	if item.Version != 0 {
		nonAttributeMap["Policy Version"] = item.Version
	}

	maxLength := base.MaxAttributesLength(nonAttributeMap, nil, nil)

	ret := []string{
		"",
		"IAM Policy information:",
		base.WrapMap(2, maxLength+2, nonAttributeMap),
	}

	if len(item.Bindings) == 0 {
		ret = append(ret,
			"",
			"  Bindings:     (none)",
		)
	}
	for _, binding := range item.Bindings {
		ret = append(ret,
			"",
			"  Binding:",
			fmt.Sprintf("    Role:       %s", binding.Role),
		)
		if len(binding.Members) > 0 {
			ret = append(ret,
				"    Members:",
				base.WrapSlice(6, binding.Members),
			)
		}
		if binding.Condition != nil {
			ret = append(ret, "    Condition:")
			if binding.Condition.Title != "" {
				ret = append(ret, fmt.Sprintf("      Title:      %s", binding.Condition.Title))
			}
			if binding.Condition.Description != "" {
				ret = append(ret, fmt.Sprintf("      Description: %s", binding.Condition.Description))
			}
			ret = append(ret, fmt.Sprintf("      Expression: %s", binding.Condition.Expression))
		}
	}

	return base.WrapForHelpText(ret)
}

func (c *Command) printPermissionsTable(result *buckets.TestPermissionsResult) string {
	granted := result.Item

	output := []string{
		"Permission | Granted",
	}
	for _, p := range c.requestedPermissions() {
		output = append(output, fmt.Sprintf("%s | %t", p, granted[p]))
	}
	if len(output) == 1 {
		return "No permissions were asked about"
	}

	return base.TableOutput(output, nil)
}
