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
	"github.com/bureau-foundation/staticrel/lib/pipeline"
	"github.com/bureau-foundation/staticrel/lib/refspec"
)

type resolveParams struct {
	configParams
	cli.JSONOutput
}

type resolution struct {
	ExplicitRef string `json:"explicit_ref,omitempty"`
	Ref         string `json:"ref"`
	Version     string `json:"version"`
}

func resolveCommand(stdout io.Writer) *cli.Command {
	var params resolveParams
	return &cli.Command{
		Name:    "resolve",
		Summary: "Print the ref and version a build would use",
		Description: `Resolve the ref to build. An explicit ref (tag, branch, or commit) is
used as given. Without one, the newest stable release tag is chosen.`,
		Usage: "staticrel resolve [flags] [ref]",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("resolve", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 1 {
				return fmt.Errorf("expected at most 1 positional argument, got %d", len(args))
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			tagSource, err := pipeline.NewTagSource(cfg, logger)
			if err != nil {
				return err
			}
			spec, err := refspec.Resolve(ctx, optionalArg(args), tagSource, refspec.Convention{Prefix: cfg.Project.TagPrefix})
			if err != nil {
				return err
			}

			result := resolution{ExplicitRef: spec.ExplicitRef, Ref: spec.ResolvedRef, Version: spec.Version}
			if done, err := params.EmitJSON(stdout, result); done {
				return err
			}
			_, err = fmt.Fprintf(stdout, "ref:     %s\nversion: %s\n", result.Ref, result.Version)
			return err
		},
	}
}

func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
