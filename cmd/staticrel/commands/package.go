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
	"github.com/bureau-foundation/staticrel/lib/buildjob"
	"github.com/bureau-foundation/staticrel/lib/config"
	"github.com/bureau-foundation/staticrel/lib/packager"
)

type packageParams struct {
	configParams
	cli.JSONOutput
	Toolchain string `flag:"toolchain,t" desc:"toolchain ID recorded in the archive name"`
	Version   string `flag:"version" desc:"version recorded in the archive name"`
	Output    string `flag:"output,o" desc:"directory to write the archive to (default paths.output, or . without --config)"`
	Extension string `flag:"extension" desc:"archive extension (default package.extension)"`
}

type packageOutput struct {
	Name   string `json:"name"`
	Path   string `json:"path"`
	Size   int64  `json:"size"`
	Digest string `json:"digest"`
}

func packageCommand(stdout io.Writer) *cli.Command {
	var params packageParams
	return &cli.Command{
		Name:    "package",
		Summary: "Archive an install tree",
		Description: `Write a reproducible compressed tarball of an install tree, named
<package-base>-<version>-<platform>-<os>-<toolchain>.<extension>, and
print its BLAKE3 digest. Entries are sorted, owned by root, and carry a
fixed modification time, so identical trees give identical archives.`,
		Usage: "staticrel package [flags] --toolchain <id> --version <version> <install-dir>",
		Examples: []cli.Example{
			{
				Description: "Package a local install as zstd",
				Command:     "staticrel package --toolchain gcc-13 --version 18.1.0 --extension tar.zst -o dist ./install",
			},
		},
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("package", &params)
		},
		Run: func(_ context.Context, args []string, logger *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected 1 positional argument (install directory), got %d", len(args))
			}
			if params.Toolchain == "" || params.Version == "" {
				return errors.New("--toolchain and --version are required")
			}
			cfg, outputDir := config.Default(), "."
			if params.Path != "" {
				var err error
				if cfg, err = params.loadUnchecked(); err != nil {
					return err
				}
				outputDir = cfg.Paths.Output
			}
			if params.Output != "" {
				outputDir = params.Output
			}
			extension := params.Extension
			if extension == "" {
				extension = cfg.Package.Extension
			}

			result := buildjob.Result{Toolchain: params.Toolchain, InstallDir: args[0], Status: buildjob.StatusSuccess}
			artifact, err := packager.Packager{OutputDir: outputDir, Logger: logger}.Package(result, packager.Manifest{
				PackageBase: cfg.Package.Base,
				Version:     params.Version,
				Platform:    cfg.Package.Platform,
				OS:          cfg.Package.OS,
				ToolchainID: params.Toolchain,
				Extension:   extension,
			})
			if err != nil {
				return err
			}

			output := packageOutput{Name: artifact.Name, Path: artifact.Path, Size: artifact.Size, Digest: artifact.Digest.String()}
			if done, err := params.EmitJSON(stdout, output); done {
				return err
			}
			_, err = fmt.Fprintf(stdout, "%s  %s\n", output.Digest, output.Path)
			return err
		},
	}
}
