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

	"github.com/spf13/pflag"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/cli"
	"github.com/bureau-foundation/staticrel/lib/codec"
	"github.com/bureau-foundation/staticrel/lib/pipeline"
)

type recordsParams struct {
	configParams
	cli.JSONOutput
	Dir   string `flag:"dir" desc:"results directory (default paths.results)"`
	RunID string `flag:"run" desc:"only records of this run"`
}

func (params recordsParams) resultsDir() (string, error) {
	if params.Dir != "" {
		return params.Dir, nil
	}
	cfg, err := params.loadUnchecked()
	if err != nil {
		return "", err
	}
	return cfg.Paths.Results, nil
}

func recordsCommand(stdout io.Writer) *cli.Command {
	return &cli.Command{
		Name:    "records",
		Summary: "Inspect job records",
		Description: `Inspect the CBOR job records that "build" and "matrix" write and
"publish" reads.`,
		Subcommands: []*cli.Command{
			recordsListCommand(stdout),
			recordsShowCommand(stdout),
		},
	}
}

func recordsListCommand(stdout io.Writer) *cli.Command {
	var params recordsParams
	return &cli.Command{
		Name:    "list",
		Summary: "List job records",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("list", &params)
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			dir, err := params.resultsDir()
			if err != nil {
				return err
			}
			records, err := pipeline.ReadRecords(dir)
			if err != nil {
				return err
			}
			if params.RunID != "" {
				records = pipeline.FilterRun(records, params.RunID)
			}
			if done, err := params.EmitJSON(stdout, records); done {
				return err
			}
			if len(records) == 0 {
				fmt.Fprintf(os.Stderr, "no job records in %s\n", dir)
				return nil
			}
			return writeResults(stdout, records)
		},
	}
}

type recordsShowParams struct {
	recordsParams
	Raw bool `flag:"raw" desc:"print CBOR diagnostic notation instead of decoding"`
}

func recordsShowCommand(stdout io.Writer) *cli.Command {
	var params recordsShowParams
	return &cli.Command{
		Name:    "show",
		Summary: "Show the record of one toolchain",
		Usage:   "staticrel records show [flags] <toolchain>",
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("show", &params)
		},
		Run: func(_ context.Context, args []string, _ *slog.Logger) error {
			if len(args) != 1 {
				return fmt.Errorf("expected 1 positional argument (toolchain ID), got %d", len(args))
			}
			dir, err := params.resultsDir()
			if err != nil {
				return err
			}
			path := pipeline.RecordPath(dir, args[0])

			if params.Raw {
				data, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				notation, err := codec.Diagnose(data)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				_, err = fmt.Fprintln(stdout, notation)
				return err
			}

			var record pipeline.Record
			if err := codec.ReadFile(path, &record); err != nil {
				if errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("no record for toolchain %q in %s", args[0], dir)
				}
				return err
			}
			if done, err := params.EmitJSON(stdout, record); done {
				return err
			}
			return writeRecord(stdout, record)
		},
	}
}

func writeRecord(w io.Writer, record pipeline.Record) error {
	result := record.Result
	status := cli.StatusSuccess
	if !result.Succeeded() {
		status = cli.StatusFailed
	}
	rows := [][]string{
		{"run", record.RunID},
		{"ref", record.Ref},
		{"version", record.Version},
		{"toolchain", result.Toolchain},
		{"status", status},
	}
	add := func(name, value string) {
		if value != "" {
			rows = append(rows, []string{name, value})
		}
	}
	add("commit", result.Commit)
	add("stage", string(result.Stage))
	add("reason", firstLine(result.Reason))
	add("log", result.LogPath)
	add("install", result.InstallDir)
	add("artifact", result.ArtifactPath)
	add("digest", result.ArtifactDigest)
	rows = append(rows, []string{"started", result.StartedAt.UTC().Format("2006-01-02 15:04:05Z")}, []string{"duration", result.Duration.String()})
	return cli.WriteTable(w, []string{"FIELD", "VALUE"}, rows)
}
