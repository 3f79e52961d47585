// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package commands

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bureau-foundation/staticrel/cmd/staticrel/cli"
	"github.com/bureau-foundation/staticrel/lib/config"
	"github.com/bureau-foundation/staticrel/lib/matrix"
	"github.com/bureau-foundation/staticrel/lib/pipeline"
)

// configParams selects the pipeline definition.
type configParams struct {
	Path string `flag:"config,c" desc:"pipeline definition file (default $STATICREL_CONFIG)"`
}

// loadUnchecked reads the definition without validating it.
func (params configParams) loadUnchecked() (*config.Config, error) {
	if params.Path != "" {
		return config.LoadFile(params.Path)
	}
	return config.Load()
}

// load reads and validates the definition.
func (params configParams) load() (*config.Config, error) {
	cfg, err := params.loadUnchecked()
	if err != nil {
		return nil, err
	}
	if issues := definitionIssues(cfg); len(issues) > 0 {
		return nil, fmt.Errorf("invalid pipeline definition:\n  - %s", strings.Join(issues, "\n  - "))
	}
	return cfg, nil
}

// definitionIssues combines the definition's own checks with the
// matrix rules. The matrix is only checked once the toolchains are
// individually well formed.
func definitionIssues(cfg *config.Config) []string {
	issues := cfg.Validate()
	if len(issues) > 0 {
		return issues
	}
	var configError *matrix.ConfigError
	if errors.As(matrix.Validate(cfg.Matrix.Toolchains), &configError) {
		for _, issue := range configError.Issues {
			issues = append(issues, "matrix."+issue)
		}
	}
	return issues
}

// resultRows renders records as summary table rows.
func resultRows(records []pipeline.Record) [][]string {
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		result := record.Result
		status, detail := cli.StatusSuccess, result.ArtifactName
		if !result.Succeeded() {
			status = cli.StatusFailed
			detail = firstLine(result.Reason)
		}
		rows = append(rows, []string{
			result.Toolchain,
			status,
			string(result.Stage),
			result.Duration.Round(100 * time.Millisecond).String(),
			detail,
		})
	}
	return rows
}

func writeResults(w io.Writer, records []pipeline.Record) error {
	return cli.WriteTable(w, []string{"TOOLCHAIN", "STATUS", "STAGE", "DURATION", "ARTIFACT / REASON"}, resultRows(records))
}

// outcomeError maps a matrix summary to the command's exit status:
// nil when every job succeeded, exit 2 when some failed, exit 1 when
// all failed.
func outcomeError(summary matrix.Summary) error {
	switch {
	case summary.Failed == 0:
		return nil
	case summary.Succeeded == 0:
		return &cli.ExitError{Code: 1}
	default:
		return &cli.ExitError{Code: 2}
	}
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}
