// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package bucketscmd

import (
	"fmt"
	"time"

	"github.com/caskstore/cask/api/buckets"
	"github.com/caskstore/cask/internal/cmd/base"
)

func (c *Command) printListTable(items []*buckets.Bucket) string {
	if len(items) == 0 {
		return "No buckets found"
	}
	var output []string
	output = []string{
		"",
		"Bucket information:",
	}
	for i, item := range items {
		if i > 0 {
			output = append(output, "")
		}
		if item.Name != "" {
			output = append(output,
				fmt.Sprintf("  Name:                %s", item.Name),
			)
		} else {
			output = append(output,
				fmt.Sprintf("  Name:                %s", "(not available)"),
			)
		}
		if item.Version > 0 {
			output = append(output,
				fmt.Sprintf("    Version:           %d", item.Version),
			)
		}
		if item.Location != "" {
			output = append(output,
				fmt.Sprintf("    Location:          %s", item.Location),
			)
		}
		if item.StorageClass != "" {
			output = append(output,
				fmt.Sprintf("    Storage Class:     %s", item.StorageClass),
			)
		}
		if item.Description != "" {
			output = append(output,
				fmt.Sprintf("    Description:       %s", item.Description),
			)
		}
	}

	return base.WrapForHelpText(output)
}

func printItemTable(item *buckets.Bucket) string {
	nonAttributeMap := map[string]any{}
	if item.Name != "" {
		nonAttributeMap["Name"] = item.Name
	}
	if item.Description != "" {
		nonAttributeMap["Description"] = item.Description
	}
	if item.Location != "" {
		nonAttributeMap["Location"] = item.Location
	}
	if item.StorageClass != "" {
		nonAttributeMap["Storage Class"] = item.StorageClass
	}
	if item.Version != 0 {
		nonAttributeMap["Version"] = item.Version
	}
	if !item.CreatedTime.IsZero() {
		nonAttributeMap["Created Time"] = item.CreatedTime.Local().Format(time.RFC1123)
	}
	if !item.UpdatedTime.IsZero() {
		nonAttributeMap["Updated Time"] = item.UpdatedTime.Local().Format(time.RFC1123)
	}

	maxLength := base.MaxAttributesLength(nonAttributeMap, nil, nil)

	ret := []string{
		"",
		"Bucket information:",
		base.WrapMap(2, maxLength+2, nonAttributeMap),
	}

	return base.WrapForHelpText(ret)
}
