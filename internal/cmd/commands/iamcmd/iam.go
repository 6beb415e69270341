// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package iamcmd

import (
	"fmt"

	"github.com/caskstore/cask/api"
	"github.com/caskstore/cask/api/buckets"
	"github.com/caskstore/cask/internal/cmd/base"
	"github.com/hashicorp/go-secure-stdlib/strutil"
	"github.com/mitchellh/cli"
	"github.com/posener/complete"
)

var (
	_ cli.Command             = (*Command)(nil)
	_ cli.CommandAutocomplete = (*Command)(nil)
)

type Command struct {
	*base.Command

	Func string

	flagRequestedPolicyVersion int
	flagBindings               string
	flagEtag                   string
	flagPolicyVersion          int
	flagPermissions            []string
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictAnything
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

func (c *Command) Synopsis() string {
	switch c.Func {
	case "read":
		return "Read a bucket's IAM policy"
	case "set":
		return "Replace a bucket's IAM policy"
	case "test-permissions":
		return "Check which permissions the caller holds on a bucket"
	default:
		return "Manage bucket IAM policies"
	}
}

func (c *Command) Help() string {
	var helpStr string
	switch c.Func {
	case "":
		return base.WrapForHelpText([]string{
			"Usage: cask iam [sub command] [options] [args]",
			"",
			"  This command allows operations on bucket IAM policies. Example:",
			"",
			"    Read the policy of a bucket:",
			"",
			`      $ cask iam read -bucket photos`,
			"",
			"  Please see the subcommand help for detailed usage information.",
		})
	case "read":
		helpStr = base.WrapForHelpText([]string{
			"Usage: cask iam read -bucket <name> [options] [args]",
			"",
			"  Read the IAM policy of the given bucket. Example:",
			"",
			`      $ cask iam read -bucket photos -requested-policy-version 3`,
			"",
		})
	case "set":
		helpStr = base.WrapForHelpText([]string{
			"Usage: cask iam set -bucket <name> -bindings <json> [options] [args]",
			"",
			"  Replace the IAM policy of the given bucket. Bindings are given as a",
			"  JSON array, inline or via file:// or env:// reference. Example:",
			"",
			`      $ cask iam set -bucket photos -bindings file://policy.json -etag CAE=`,
			"",
			"  Pass the etag from a prior read to guard against concurrent",
			"  modification; the service rejects the write if the policy changed",
			"  in the meantime.",
			"",
		})
	case "test-permissions":
		helpStr = base.WrapForHelpText([]string{
			"Usage: cask iam test-permissions -bucket <name> [options] [args]",
			"",
			"  Check which of the given permissions the caller holds on the given",
			"  bucket. Example:",
			"",
			`      $ cask iam test-permissions -bucket photos -permission cask.objects.get -permission cask.objects.delete`,
			"",
		})
	}
	return helpStr + c.Flags().Help()
}

func (c *Command) Flags() *base.FlagSets {
	set := c.FlagSet(base.FlagSetHTTP | base.FlagSetClient | base.FlagSetOutputFormat)
	f := set.NewFlagSet("Command Options")

	f.StringVar(&base.StringVar{
		Name:       "bucket",
		Target:     &c.FlagBucket,
		Completion: complete.PredictAnything,
		Usage:      "The name of the bucket whose IAM policy to operate on.",
	})

	switch c.Func {
	case "read":
		f.IntVar(&base.IntVar{
			Name:   "requested-policy-version",
			Target: &c.flagRequestedPolicyVersion,
			Usage: "The policy schema version to request. Policies with " +
				"conditional bindings require at least version 3.",
		})
	case "set":
		f.StringVar(&base.StringVar{
			Name:       "bindings",
			Target:     &c.flagBindings,
			Completion: complete.PredictAnything,
			Usage: "The policy bindings, as a JSON array of objects with " +
				`"role", "members" and optionally "condition" keys. Can be ` +
				"given inline or via file:// or env:// reference.",
		})
		f.StringVar(&base.StringVar{
			Name:       "etag",
			Target:     &c.flagEtag,
			Completion: complete.PredictAnything,
			Usage:      "The etag from a previously read policy, for concurrency control.",
		})
		f.IntVar(&base.IntVar{
			Name:   "policy-version",
			Target: &c.flagPolicyVersion,
			Usage:  "The policy schema version to write.",
		})
	case "test-permissions":
		f.StringSliceVar(&base.StringSliceVar{
			Name:       "permission",
			Target:     &c.flagPermissions,
			Completion: complete.PredictAnything,
			Usage:      "A permission to check. May be specified multiple times.",
		})
	}

	return set
}

func (c *Command) Run(args []string) int {
	switch c.Func {
	case "":
		return cli.RunResultHelp
	}

	f := c.Flags()

	if err := f.Parse(args); err != nil {
		c.PrintCliError(err)
		return base.CommandUserError
	}

	if c.FlagBucket == "" {
		c.PrintCliError(fmt.Errorf("Bucket name is required but not passed in via -bucket"))
		return base.CommandUserError
	}

	var opts []buckets.Option
	if c.Func == "read" && c.flagRequestedPolicyVersion != 0 {
		opts = append(opts, buckets.WithRequestedPolicyVersion(uint32(c.flagRequestedPolicyVersion)))
	}

	client, err := c.Client()
	if err != nil {
		c.PrintCliError(fmt.Errorf("Error creating API client: %w", err))
		return base.CommandCliError
	}
	iamClient := buckets.NewClient(client).IAM(c.FlagBucket)

	var result *buckets.PolicyResult
	var testResult *buckets.TestPermissionsResult

	switch c.Func {
	case "read":
		result, err = iamClient.Policy(c.Context, opts...)

	case "set":
		var policy *buckets.Policy
		policy, err = c.policyFromFlags()
		if err != nil {
			c.PrintCliError(err)
			return base.CommandUserError
		}
		result, err = iamClient.SetPolicy(c.Context, policy, opts...)

	case "test-permissions":
		permissions := c.flagPermissions
		if permissions == nil {
			// No -permission flags; ask about nothing rather than erroring,
			// the service answer is still useful for connectivity checks.
			permissions = []string{}
		}
		testResult, err = iamClient.TestPermissions(c.Context, permissions, opts...)
	}

	if err != nil {
		if apiErr := api.AsServerError(err); apiErr != nil {
			c.PrintApiError(apiErr, fmt.Sprintf("Error from server when performing %s on the IAM policy of bucket %q", c.Func, c.FlagBucket))
			return base.CommandApiError
		}
		c.PrintCliError(fmt.Errorf("Error trying to %s the IAM policy of bucket %q: %w", c.Func, c.FlagBucket, err))
		return base.CommandCliError
	}

	if c.Func == "test-permissions" {
		switch base.Format(c.UI) {
		case "table":
			c.UI.Output(c.printPermissionsTable(testResult))
		case "json":
			if ok := c.PrintJsonItem(testResult.GetResponse()); !ok {
				return base.CommandCliError
			}
		}
		return base.CommandSuccess
	}

	switch base.Format(c.UI) {
	case "table":
		c.UI.Output(printPolicyTable(result.Item, iamClient.ResourceId()))
	case "json":
		if ok := c.PrintJsonItem(result.GetResponse()); !ok {
			return base.CommandCliError
		}
	}

	return base.CommandSuccess
}

// requestedPermissions reports which permissions were asked about, preserving
// the request order rather than the map's.
func (c *Command) requestedPermissions() []string {
	ordered := make([]string, 0, len(c.flagPermissions))
	for _, p := range c.flagPermissions {
		if !strutil.StrListContains(ordered, p) {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
