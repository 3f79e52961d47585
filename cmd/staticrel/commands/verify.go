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
	"github.com/bureau-foundation/staticrel/lib/config"
	"github.com/bureau-foundation/staticrel/lib/verify"
)

type verifyParams struct {
	configParams
	cli.JSONOutput
}

type verifyOutput struct {
	InstallDir string `json:"install_dir"`
	Passed     bool   `json:"passed"`
	Check      string `json:"check,omitempty"`
	Path       string `json:"path,omitempty"`
	Detail     string `json:"detail,omitempty"`
}

func verifyCommand(stdout io.Writer) *cli.Command {
	var params verifyParams
	return &cli.Command{
		Name:    "verify",
		Summary: "Check that an install tree holds static libraries",
		Description: `Run the artifact checks against an install tree: the library directory
exists, it holds static archives, every archive really is one, and (when
verify.reject_shared is set) no shared objects were installed.

Without --config the default layout is checked (lib/*.a).`,
		Usage: "staticrel verify [flags] <install-dir>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("verify", &params)
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected 1 positional argument (install directory), got %d", len(args))
			}
			cfg := config.Default()
			if params.Path != "" {
				var err error
				if cfg, err = params.loadUnchecked(); err != nil {
					return err
				}
			}

			verifier := verify.Verifier{
				LibDir:          cfg.Verify.LibDir,
				StaticExtension: cfg.Verify.StaticExtension,
				RejectShared:    cfg.Verify.RejectShared,
			}
			output := verifyOutput{InstallDir: args[0], Passed: true}
			err := verifier.VerifyTree(args[0])
			var verificationError *verify.VerificationError
			switch {
			case errors.As(err, &verificationError):
				output.Passed = false
				output.Check = verificationError.Check
				output.Path = verificationError.Path
				output.Detail = verificationError.Detail
			case err != nil:
				return err
			}
			logger.Debug("verified install tree", "dir", args[0], "passed", output.Passed)

			if done, err := params.EmitJSON(stdout, output); done {
				if err != nil {
					return err
				}
			} else if output.Passed {
				fmt.Fprintf(stdout, "%s: ok\n", args[0])
			} else {
				fmt.Fprintf(stdout, "%s: %v\n", args[0], verificationError)
			}
			if !output.Passed {
				return &cli.ExitError{Code: 1}
			}
			return nil
		},
	}
}
