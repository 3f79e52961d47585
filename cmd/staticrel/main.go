// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// staticrel builds an upstream project as static libraries across a
// matrix of toolchains and publishes the archives as a prerelease.
// Run "staticrel --help" for the command list.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/commands"
	"github.com/bureau-foundation/staticrel/lib/process"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := commands.Root().Execute(ctx, os.Args[1:])
	stop()
	process.Exit(os.Stderr, err)
}
