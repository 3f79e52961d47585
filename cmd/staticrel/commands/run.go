// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/cli"
	"github.com/bureau-foundation/staticrel/lib/pipeline"
	"github.com/bureau-foundation/staticrel/lib/release"
)

type runParams struct {
	configParams
	cli.JSONOutput
	Commit      string `flag:"commit" desc:"commit the release tag points at (default release.commit, then HEAD)"`
	Parallelism int    `flag:"parallelism,p" desc:"maximum concurrent jobs (0 keeps matrix.parallelism)"`
}

type runOutput struct {
	RunID    string            `json:"run_id"`
	Ref      string            `json:"ref"`
	Version  string            `json:"version"`
	Records  []pipeline.Record `json:"records"`
	Release  *release.Record   `json:"release,omitempty"`
	Duration string            `json:"duration"`
}

func runCommand(stdout io.Writer) *cli.Command {
	var params runParams
	return &cli.Command{
		Name:    "run",
		Summary: "Resolve, build every toolchain, and publish",
		Description: `Run the whole pipeline: resolve the ref (the newest stable release
when none is given), build the toolchain matrix, verify and package each
install tree, and publish the artifacts that passed.

Exit status: 0 when every job succeeded, 2 when the release was
published but some jobs failed, 1 when nothing was published.`,
		Usage: "staticrel run [flags] [ref]",
		Examples: []cli.Example{
			{
				Description: "Release a specific upstream tag",
				Command:     "staticrel run -c staticrel.yaml llvmorg-18.1.0",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("run", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most 1 positional argument, got %d", len(args))
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			if params.Commit != "" {
				cfg.Release.Commit = params.Commit
			}
			if params.Parallelism > 0 {
				cfg.Matrix.Parallelism = params.Parallelism
			}
			if err := cfg.EnsurePaths(); err != nil {
				return err
			}
			runner, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}

			report, err := runner.Run(ctx, optionalArg(args))
			nothingPublished := errors.Is(err, pipeline.ErrNoArtifacts)
			if err != nil && !nothingPublished {
				return err
			}

			output := runOutput{
				RunID:    report.RunID,
				Ref:      report.RefSpec.ResolvedRef,
				Version:  report.RefSpec.Version,
				Records:  report.Records,
				Release:  report.Release,
				Duration: report.Duration.String(),
			}
			if done, err := params.EmitJSON(stdout, output); done {
				if err != nil {
					return err
				}
			} else {
				fmt.Fprintf(stdout, "run %s: %s (version %s)\n\n", output.RunID, output.Ref, output.Version)
				if err := writeResults(stdout, report.Records); err != nil {
					return err
				}
				fmt.Fprintln(stdout)
				if report.Release != nil {
					writeRelease(stdout, *report.Release)
				} else {
					fmt.Fprintln(stdout, "nothing published: every job failed")
				}
			}

			if nothingPublished {
				return &cli.ExitError{Code: 1}
			}
			return outcomeError(report.Summary())
		},
	}
}
