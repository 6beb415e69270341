// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"

	"github.com/caskstore/cask/internal/cmd/base"
	"github.com/caskstore/cask/internal/cmd/commands/bucketscmd"
	"github.com/caskstore/cask/internal/cmd/commands/iamcmd"
	"github.com/caskstore/cask/internal/cmd/commands/version"

	"github.com/mitchellh/cli"
)

// Commands is the mapping of all the available commands.
var Commands map[string]cli.CommandFactory

func initCommands(ui cli.Ui, runOpts *RunOptions) {
	getBaseCommand := func() *base.Command {
		ctx, cancel := context.WithCancel(context.Background())
		ret := &base.Command{
			UI:         ui,
			ShutdownCh: base.MakeShutdownCh(),
			Context:    ctx,
		}

		go func() {
			<-ret.ShutdownCh
			cancel()
		}()

		return ret
	}

	Commands = map[string]cli.CommandFactory{
		"buckets": func() (cli.Command, error) {
			return &bucketscmd.Command{
				Command: getBaseCommand(),
			}, nil
		},
		"buckets create": func() (cli.Command, error) {
			return &bucketscmd.Command{
				Command: getBaseCommand(),
				Func:    "create",
			}, nil
		},
		"buckets read": func() (cli.Command, error) {
			return &bucketscmd.Command{
				Command: getBaseCommand(),
				Func:    "read",
			}, nil
		},
		"buckets update": func() (cli.Command, error) {
			return &bucketscmd.Command{
				Command: getBaseCommand(),
				Func:    "update",
			}, nil
		},
		"buckets delete": func() (cli.Command, error) {
			return &bucketscmd.Command{
				Command: getBaseCommand(),
				Func:    "delete",
			}, nil
		},
		"buckets list": func() (cli.Command, error) {
			return &bucketscmd.Command{
				Command: getBaseCommand(),
				Func:    "list",
			}, nil
		},
		"iam": func() (cli.Command, error) {
			return &iamcmd.Command{
				Command: getBaseCommand(),
			}, nil
		},
		"iam read": func() (cli.Command, error) {
			return &iamcmd.Command{
				Command: getBaseCommand(),
				Func:    "read",
			}, nil
		},
		"iam set": func() (cli.Command, error) {
			return &iamcmd.Command{
				Command: getBaseCommand(),
				Func:    "set",
			}, nil
		},
		"iam test-permissions": func() (cli.Command, error) {
			return &iamcmd.Command{
				Command: getBaseCommand(),
				Func:    "test-permissions",
			}, nil
		},
		"version": func() (cli.Command, error) {
			return &version.Command{
				Command: getBaseCommand(),
			}, nil
		},
	}
}
