// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package commands builds the staticrel command tree.
//
// The commands split a release run into steps that CI can schedule
// separately: "build" runs one or more toolchain jobs and writes their
// records to the results directory, "publish" turns those records into
// a release. "run" does everything in one process.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/cli"
	"github.com/bureau-foundation/staticrel/lib/version"
)

// Root returns the complete command tree writing its reports to stdout.
func Root() *cli.Command {
	return newRoot(os.Stdout)
}

func newRoot(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name: "staticrel",
		Description: `staticrel: static library release builds.

Resolves an upstream ref, builds it with every toolchain in the matrix,
verifies that the install trees hold only static archives, packages
them, and publishes the archives to one prerelease per version.`,
		Subcommands: []*cli.Command{
			resolveCommand(stdout),
			validateCommand(stdout),
			buildCommand(stdout),
			matrixCommand(stdout),
			verifyCommand(stdout),
			packageCommand(stdout),
			publishCommand(stdout),
			runCommand(stdout),
			recordsCommand(stdout),
			{
				Name:    "version",
				Summary: "Print version information",
				Run: func(_ context.Context, _ []string, _ *slog.Logger) error {
					_, err := fmt.Fprintf(stdout, "staticrel %s\n", version.Full())
					return err
				},
			},
		},
		Examples: []cli.Example{
			{
				Description: "Check a pipeline definition",
				Command:     "staticrel validate -c staticrel.yaml",
			},
			{
				Description: "Build and publish the latest upstream release",
				Command:     "staticrel run -c staticrel.yaml",
			},
			{
				Description: "Build one toolchain of a CI matrix, then publish from another job",
				Command:     "staticrel build -c staticrel.yaml --toolchain gcc-13 llvmorg-18.1.0 && staticrel publish -c staticrel.yaml",
			},
		},
	}
}
