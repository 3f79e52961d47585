// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package matrix runs one build job per toolchain, concurrently.
//
// A matrix is fail-fast=false: every job runs to completion regardless
// of how its siblings fare, and [Runner.RunAll] returns exactly one
// result per job in the order the jobs were given. Nothing is retried.
// Parallelism can be bounded; the default runs every job at once.
package matrix

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
	"github.com/bureau-foundation/staticrel/lib/toolchain"
)

// ConfigError reports a matrix that must not be run.
type ConfigError struct {
	Issues []string
}

func (err *ConfigError) Error() string {
	return "invalid toolchain matrix: " + strings.Join(err.Issues, "; ")
}

// Validate checks that toolchains is non-empty and that every ID is
// present and unique. IDs name work directories and artifacts, so a
// duplicate would make two jobs write the same files.
func Validate(toolchains []toolchain.Spec) error {
	if len(toolchains) == 0 {
		return &ConfigError{Issues: []string{"no toolchains"}}
	}
	var issues []string
	seen := make(map[string]int, len(toolchains))
	for index, spec := range toolchains {
		if spec.ID == "" {
			issues = append(issues, fmt.Sprintf("toolchains[%d]: empty id", index))
			continue
		}
		if first, ok := seen[spec.ID]; ok {
			issues = append(issues, fmt.Sprintf("toolchains[%d]: duplicate id %q (first used by toolchains[%d])", index, spec.ID, first))
			continue
		}
		seen[spec.ID] = index
	}
	if len(issues) > 0 {
		return &ConfigError{Issues: issues}
	}
	return nil
}

// Job is one cell of the matrix.
type Job struct {
	Ref       string
	Toolchain toolchain.Spec
}

// Executor runs a single job. It reports failure through the result,
// not by returning early or panicking.
type Executor func(ctx context.Context, job Job) buildjob.Result

// Runner runs matrices.
type Runner struct {
	// Parallelism caps concurrent jobs. Zero or negative means no cap.
	Parallelism int

	Logger *slog.Logger
}

// RunAll runs every job and returns their results in input order. The
// context is passed to each executor unchanged: a failing job never
// cancels its siblings, only the caller can.
func (runner Runner) RunAll(ctx context.Context, jobs []Job, executor Executor) []buildjob.Result {
	logger := runner.Logger
	if logger == nil {
		logger = slog.Default()
	}

	results := make([]buildjob.Result, len(jobs))
	var group errgroup.Group
	if runner.Parallelism > 0 {
		group.SetLimit(runner.Parallelism)
	}
	for index, job := range jobs {
		group.Go(func() error {
			results[index] = runner.execute(ctx, logger, job, executor)
			return nil
		})
	}
	// Executors never return errors to the group.
	_ = group.Wait()
	return results
}

// execute runs one job, converting a panic into a failed result so one
// misbehaving executor cannot take down the matrix.
func (runner Runner) execute(ctx context.Context, logger *slog.Logger, job Job, executor Executor) (result buildjob.Result) {
	defer func() {
		if recovered := recover(); recovered != nil {
			logger.Error("build job panicked",
				"toolchain", job.Toolchain.ID,
				"panic", recovered,
				"stack", string(debug.Stack()),
			)
			result = buildjob.Result{
				Toolchain: job.Toolchain.ID,
				Ref:       job.Ref,
				Status:    buildjob.StatusFailed,
				Reason:    fmt.Sprintf("panic: %v", recovered),
			}
		}
	}()
	return executor(ctx, job)
}

// Summary counts results by status.
type Summary struct {
	Total     int
	Succeeded int
	Failed    int
}

// Summarize counts results by status.
func Summarize(results []buildjob.Result) Summary {
	summary := Summary{Total: len(results)}
	for _, result := range results {
		if result.Succeeded() {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	return summary
}
