// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/cli"
	"github.com/bureau-foundation/staticrel/lib/pipeline"
)

// EnvRunID names the environment variable that supplies the run ID
// when --run is not given, so the matrix entries of one CI run share it.
const EnvRunID = "STATICREL_RUN_ID"

type buildParams struct {
	configParams
	cli.JSONOutput
	Toolchains  []string `flag:"toolchain,t" desc:"toolchain ID to build (repeatable)"`
	Parallelism int      `flag:"parallelism,p" desc:"maximum concurrent jobs (0 keeps matrix.parallelism)"`
	RunID       string   `flag:"run" desc:"run ID recorded with the results (default $STATICREL_RUN_ID, then a new UUID)"`
}

type buildOutput struct {
	RunID   string            `json:"run_id"`
	Ref     string            `json:"ref"`
	Version string            `json:"version"`
	Records []pipeline.Record `json:"records"`
}

func buildCommand(stdout io.Writer) *cli.Command {
	var params buildParams
	return &cli.Command{
		Name:    "build",
		Summary: "Build selected toolchains and record the results",
		Description: `Build, verify, and package the ref with the selected toolchains. Each
job writes a record to the results directory for "staticrel publish".

This is the command a CI matrix entry runs for its own toolchain. Give
the entries of one CI run the same --run (or $STATICREL_RUN_ID) to
group their records; "staticrel publish" releases every toolchain of
the newest version either way.
Exits 1 when every job failed and 2 when some did.`,
		Usage: "staticrel build [flags] --toolchain <id> [ref]",
		Examples: []cli.Example{
			{
				Description: "Build the latest release with one toolchain",
				Command:     "staticrel build -c staticrel.yaml --toolchain gcc-13",
			},
			{
				Description: "Build one cell of a CI matrix under the workflow's run",
				Command:     "staticrel build -c staticrel.yaml --toolchain clang-18 --run \"$GITHUB_RUN_ID\"",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("build", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(params.Toolchains) == 0 {
				return errors.New("--toolchain is required (use \"staticrel matrix\" to build every toolchain)")
			}
			return runBuild(ctx, stdout, logger, params, args)
		},
	}
}

func matrixCommand(stdout io.Writer) *cli.Command {
	var params buildParams
	return &cli.Command{
		Name:    "matrix",
		Summary: "Build every toolchain concurrently",
		Description: `Run the whole toolchain matrix on this machine. Jobs run concurrently
up to the configured parallelism; a failing job never cancels the
others. Results are recorded like "staticrel build" records them.`,
		Usage: "staticrel matrix [flags] [ref]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("matrix", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			return runBuild(ctx, stdout, logger, params, args)
		},
	}
}

func runBuild(ctx context.Context, stdout io.Writer, logger *slog.Logger, params buildParams, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("expected at most 1 positional argument, got %d", len(args))
	}
	cfg, err := params.load()
	if err != nil {
		return err
	}
	if params.Parallelism > 0 {
		cfg.Matrix.Parallelism = params.Parallelism
	}
	if err := cfg.EnsurePaths(); err != nil {
		return err
	}
	builder, err := pipeline.New(cfg, logger)
	if err != nil {
		return err
	}

	spec, err := builder.Resolve(ctx, optionalArg(args))
	if err != nil {
		return err
	}
	runID := resolveRunID(params.RunID, os.Getenv(EnvRunID))
	records, err := builder.Build(ctx, runID, spec, params.Toolchains...)
	if err != nil {
		return err
	}

	output := buildOutput{RunID: runID, Ref: spec.ResolvedRef, Version: spec.Version, Records: records}
	if done, err := params.EmitJSON(stdout, output); done {
		if err != nil {
			return err
		}
	} else {
		fmt.Fprintf(stdout, "run %s: %s (version %s)\n\n", runID, spec.ResolvedRef, spec.Version)
		if err := writeResults(stdout, records); err != nil {
			return err
		}
	}
	return outcomeError(pipeline.Report{Records: records}.Summary())
}

// resolveRunID returns the first non-empty candidate, or a new UUID.
func resolveRunID(candidates ...string) string {
	for _, candidate := range candidates {
		if candidate != "" {
			return candidate
		}
	}
	return uuid.NewString()
}
