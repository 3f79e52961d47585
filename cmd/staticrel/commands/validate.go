// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/cli"
)

type validateParams struct {
	configParams
	cli.JSONOutput
}

type validation struct {
	Valid      bool     `json:"valid"`
	Toolchains int      `json:"toolchains"`
	Issues     []string `json:"issues"`
}

func validateCommand(stdout io.Writer) *cli.Command {
	var params validateParams
	return &cli.Command{
		Name:    "validate",
		Summary: "Check a pipeline definition",
		Description: `Load the pipeline definition and report every structural problem:
missing fields, unknown stores or compressions, duplicate toolchain IDs,
and pipeline variables that no job would define. Exits 1 when issues
are found.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("validate", &params)
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := params.loadUnchecked()
			if err != nil {
				return err
			}

			issues := definitionIssues(cfg)
			result := validation{Valid: len(issues) == 0, Toolchains: len(cfg.Matrix.Toolchains), Issues: issues}

			if done, err := params.EmitJSON(stdout, result); done {
				if err != nil {
					return err
				}
			} else if result.Valid {
				fmt.Fprintf(stdout, "pipeline definition is valid (%d toolchains)\n", result.Toolchains)
			} else {
				for _, issue := range issues {
					fmt.Fprintf(stdout, "  - %s\n", issue)
				}
			}
			if !result.Valid {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
