// Copyright (c) Cask Storage, Inc.
// SPDX-License-Identifier: MPL-2.0

package main

import (
	"os"

	"github.com/caskstore/cask/internal/cmd"
)

func main() {
	os.Exit(cmd.Run(os.Args[1:]))
}
