// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package bucketscmd

import (
	"fmt"
	"net/http"

	"github.com/caskstore/cask/api"
	"github.com/caskstore/cask/api/buckets"
	"github.com/caskstore/cask/internal/cmd/base"
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

	// Used for delete operations
	existed bool

	flagLocation     string
	flagStorageClass string
	flagFilter       string
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictAnything
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return c.Flags().Completions()
}

func (c *Command) Synopsis() string {
	switch c.Func {
	case "create":
		return "Create a bucket"
	case "read":
		return "Read a bucket"
	case "update":
		return "Update a bucket"
	case "delete":
		return "Delete a bucket"
	case "list":
		return "List buckets"
	default:
		return "Manage buckets"
	}
}

func (c *Command) Help() string {
	var helpStr string
	switch c.Func {
	case "":
		return base.WrapForHelpText([]string{
			"Usage: cask buckets [sub command] [options] [args]",
			"",
			"  This command allows operations on buckets. Example:",
			"",
			"    Read a bucket:",
			"",
			`      $ cask buckets read -name photos`,
			"",
			"  Please see the subcommand help for detailed usage information.",
		})
	default:
		helpStr = base.WrapForHelpText([]string{
			fmt.Sprintf("Usage: cask buckets %s [options] [args]", c.Func),
			"",
			fmt.Sprintf("  This command allows %s operations on buckets. Example:", c.Func),
			"",
			fmt.Sprintf(`      $ cask buckets %s%s`, c.Func, exampleArgs(c.Func)),
			"",
		})
	}
	return helpStr + c.Flags().Help()
}

func exampleArgs(fn string) string {
	switch fn {
	case "create":
		return ` -name photos -location us-east1 -storage-class STANDARD`
	case "update":
		return ` -name photos -description "Team photo archive"`
	case "list":
		return ""
	default:
		return " -name photos"
	}
}

func (c *Command) Flags() *base.FlagSets {
	set := c.FlagSet(base.FlagSetHTTP | base.FlagSetClient | base.FlagSetOutputFormat)
	f := set.NewFlagSet("Command Options")

	if c.Func != "list" {
		f.StringVar(&base.StringVar{
			Name:       "name",
			Target:     &c.FlagName,
			Completion: complete.PredictAnything,
			Usage:      "The name of the bucket to operate on.",
		})
	}

	switch c.Func {
	case "create", "update":
		f.StringVar(&base.StringVar{
			Name:       "description",
			Target:     &c.FlagDescription,
			Completion: complete.PredictAnything,
			Usage:      `The description of the bucket. Pass "null" to clear it on update.`,
		})
		f.StringVar(&base.StringVar{
			Name:       "location",
			Target:     &c.flagLocation,
			Completion: complete.PredictAnything,
			Usage:      "The location to store the bucket's data in.",
		})
		f.StringVar(&base.StringVar{
			Name:       "storage-class",
			Target:     &c.flagStorageClass,
			Completion: complete.PredictAnything,
			Usage:      "The default storage class for the bucket's objects.",
		})
	}

	if c.Func == "update" {
		f.IntVar(&base.IntVar{
			Name:   "version",
			Target: &c.FlagVersion,
			Usage: "The version of the bucket to update against. If zero, the " +
				"current version is fetched first.",
		})
	}

	if c.Func == "list" {
		f.StringVar(&base.StringVar{
			Name:       "filter",
			Target:     &c.flagFilter,
			Completion: complete.PredictAnything,
			Usage:      "A filter term to limit the buckets returned.",
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

	if c.Func != "list" && c.FlagName == "" {
		c.PrintCliError(fmt.Errorf("Bucket name is required but not passed in via -name"))
		return base.CommandUserError
	}

	var opts []buckets.Option

	switch c.FlagDescription {
	case "":
	case "null":
		opts = append(opts, buckets.DefaultDescription())
	default:
		opts = append(opts, buckets.WithDescription(c.FlagDescription))
	}
	if c.flagLocation != "" {
		opts = append(opts, buckets.WithLocation(c.flagLocation))
	}
	if c.flagStorageClass != "" {
		opts = append(opts, buckets.WithStorageClass(c.flagStorageClass))
	}
	if c.flagFilter != "" {
		opts = append(opts, buckets.WithFilter(c.flagFilter))
	}

	var version uint32
	if c.Func == "update" {
		switch c.FlagVersion {
		case 0:
			opts = append(opts, buckets.WithAutomaticVersioning(true))
		default:
			version = uint32(c.FlagVersion)
		}
	}

	client, err := c.Client()
	if err != nil {
		c.PrintCliError(fmt.Errorf("Error creating API client: %w", err))
		return base.CommandCliError
	}
	bucketClient := buckets.NewClient(client)

	c.existed = true
	var result *buckets.BucketResult
	var listResult *buckets.BucketListResult

	switch c.Func {
	case "create":
		result, err = bucketClient.Create(c.Context, c.FlagName, opts...)
	case "read":
		result, err = bucketClient.Read(c.Context, c.FlagName, opts...)
	case "update":
		result, err = bucketClient.Update(c.Context, c.FlagName, version, opts...)
	case "delete":
		c.existed, err = bucketClient.Delete(c.Context, c.FlagName, opts...)
		if apiErr := api.AsServerError(err); apiErr != nil && apiErr.Status == http.StatusNotFound {
			c.existed = false
			err = nil
		}
	case "list":
		listResult, err = bucketClient.List(c.Context, opts...)
	}

	if err != nil {
		if apiErr := api.AsServerError(err); apiErr != nil {
			c.PrintApiError(apiErr, fmt.Sprintf("Error from server when performing %s on buckets", c.Func))
			return base.CommandApiError
		}
		c.PrintCliError(fmt.Errorf("Error trying to %s buckets: %w", c.Func, err))
		return base.CommandCliError
	}

	switch c.Func {
	case "delete":
		switch base.Format(c.UI) {
		case "json":
			c.UI.Output(fmt.Sprintf("{ \"existed\": %t }", c.existed))
		case "table":
			output := "The delete operation completed successfully"
			switch c.existed {
			case true:
				output += "."
			default:
				output += ", however the resource did not exist at the time."
			}
			c.UI.Output(output)
		}
		return base.CommandSuccess

	case "list":
		switch base.Format(c.UI) {
		case "json":
			if ok := c.PrintJsonItems(listResult.GetResponse()); !ok {
				return base.CommandCliError
			}
		case "table":
			c.UI.Output(c.printListTable(listResult.Items))
		}
		return base.CommandSuccess
	}

	switch base.Format(c.UI) {
	case "table":
		c.UI.Output(printItemTable(result.Item))
	case "json":
		if ok := c.PrintJsonItem(result.GetResponse()); !ok {
			return base.CommandCliError
		}
	}

	return base.CommandSuccess
}
