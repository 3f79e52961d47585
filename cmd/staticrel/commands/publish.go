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
	"github.com/bureau-foundation/staticrel/lib/release"
)

type publishParams struct {
	configParams
	cli.JSONOutput
	RunID  string `flag:"run" desc:"publish only the records of this run (default: every record of the newest version)"`
	Commit string `flag:"commit" desc:"commit the release tag points at (default release.commit, then HEAD)"`
}

func publishCommand(stdout io.Writer) *cli.Command {
	var params publishParams
	return &cli.Command{
		Name:    "publish",
		Summary: "Publish recorded artifacts as a release",
		Description: `Read the job records in the results directory and publish every
packaged artifact of the most recently built version, whichever build
invocation produced it. With --run only that run's records are
published. The tag and prerelease are created if missing; assets of the
same name are replaced. Publishing the same records twice leaves one
tag, one release, and one asset per name.`,
		Flags: func() *pflag.FlagSet {
			return cli.FlagsFromParams("publish", &params)
		},
		Run: func(ctx context.Context, args []string, logger *slog.Logger) error {
			if len(args) > 0 {
				return fmt.Errorf("unexpected argument %q", args[0])
			}
			cfg, err := params.load()
			if err != nil {
				return err
			}
			if params.Commit != "" {
				cfg.Release.Commit = params.Commit
			}

			records, err := pipeline.ReadRecords(cfg.Paths.Results)
			if err != nil {
				return err
			}
			if params.RunID != "" {
				records = pipeline.FilterRun(records, params.RunID)
				logger = logger.With("run_id", params.RunID)
			} else {
				records = pipeline.FilterVersion(records, pipeline.LatestVersion(records))
			}
			if len(records) == 0 {
				if params.RunID != "" {
					return fmt.Errorf("no job records for run %q in %s", params.RunID, cfg.Paths.Results)
				}
				return fmt.Errorf("no job records in %s", cfg.Paths.Results)
			}

			publisher, err := pipeline.New(cfg, logger)
			if err != nil {
				return err
			}
			record, err := publisher.Publish(ctx, records)
			if err != nil {
				return err
			}
			if done, err := params.EmitJSON(stdout, record); done {
				return err
			}
			return writeRelease(stdout, record)
		},
	}
}

func writeRelease(w io.Writer, record release.Record) error {
	fmt.Fprintf(w, "release %s at %s", record.Tag, record.Commit)
	switch {
	case record.TagCreated && record.ReleaseCreated:
		fmt.Fprint(w, " (tag and release created)")
	case record.TagCreated:
		fmt.Fprint(w, " (tag created)")
	case record.ReleaseCreated:
		fmt.Fprint(w, " (release created)")
	}
	fmt.Fprintln(w)
	for _, name := range record.UploadedArtifacts {
		fmt.Fprintf(w, "  %s\n", name)
	}
	return nil
}
