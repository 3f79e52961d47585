// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package buildjob runs one build of one ref with one toolchain.
//
// A job owns a private directory, <work>/<toolchain-id>/, holding the
// checkout (src), the build tree (build), the default install prefix
// (install), and the combined command output (build.log). The
// directory is locked for the duration of the job. Jobs never share
// state, so a matrix of them can run concurrently.
//
// The stages run in order and the first failure ends the job:
//
//	toolchain  run pre-steps, resolve compilers
//	fetch      two-tier git fetch of the ref
//	configure  backend configure
//	compile    backend build and install
//
// Failures are never returned as errors. They are recorded in the
// [Result] with the stage and reason. A failed job's install prefix is left in place
// for inspection.
package buildjob

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/bureau-foundation/staticrel/lib/clock"
	"github.com/bureau-foundation/staticrel/lib/toolchain"
)

// Job runs builds. The zero value is not usable; Fetcher, Backend, and
// WorkRoot are required.
type Job struct {
	// WorkRoot is the parent of every per-toolchain work directory.
	WorkRoot string

	Fetcher Fetcher
	Backend Backend
	Ensurer toolchain.Ensurer
	Clock   clock.Clock
	Logger  *slog.Logger
}

// WorkDir returns the private directory of the job for toolchainID.
func (job *Job) WorkDir(toolchainID string) string {
	return filepath.Join(job.WorkRoot, toolchainID)
}

// Run builds ref with spec and installs into installPrefix (the job's
// own install directory when empty). It always returns a Result.
func (job *Job) Run(ctx context.Context, ref string, spec toolchain.Spec, installPrefix string, options Options) Result {
	clk := job.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := job.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("toolchain", spec.ID, "ref", ref)

	workDir := job.WorkDir(spec.ID)
	if installPrefix == "" {
		installPrefix = filepath.Join(workDir, "install")
	}
	result := Result{
		Toolchain:  spec.ID,
		Ref:        ref,
		WorkDir:    workDir,
		InstallDir: installPrefix,
		LogPath:    filepath.Join(workDir, "build.log"),
		StartedAt:  clk.Now(),
	}
	finish := func(result Result) Result {
		result.Duration = clock.Since(clk, result.StartedAt)
		if result.Succeeded() {
			logger.Info("build succeeded", "commit", result.Commit, "duration", result.Duration)
		} else {
			logger.Warn("build failed", "stage", result.Stage, "reason", result.Reason, "duration", result.Duration)
		}
		return result
	}

	unlock, err := lockWorkDir(workDir)
	if err != nil {
		return finish(result.Failed(StageToolchain, err))
	}
	defer unlock()

	logFile, err := os.OpenFile(result.LogPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return finish(result.Failed(StageToolchain, fmt.Errorf("opening build log: %w", err)))
	}
	defer logFile.Close()

	ensurer := job.Ensurer
	if ensurer.Output == nil {
		ensurer.Output = logFile
	}
	if ensurer.Logger == nil {
		ensurer.Logger = logger
	}
	resolved, err := ensurer.Ensure(ctx, spec)
	if err != nil {
		return finish(result.Failed(StageToolchain, err))
	}

	sourceDir := filepath.Join(workDir, "src")
	logger.Info("fetching source")
	result.Commit, err = job.Fetcher.Fetch(ctx, sourceDir, ref)
	if err != nil {
		return finish(result.Failed(StageFetch, err))
	}

	buildDir := filepath.Join(workDir, "build")
	if err := os.MkdirAll(buildDir, 0o755); err != nil {
		return finish(result.Failed(StageConfigure, &BackendError{Step: "configure", Err: err}))
	}
	backendOptions := BackendOptions{
		Options: options,
		Env:     resolved.Environ(nil),
		Log:     logFile,
	}

	logger.Info("configuring", "build_dir", buildDir)
	if err := job.Backend.Configure(ctx, sourceDir, buildDir, installPrefix, backendOptions); err != nil {
		return finish(result.Failed(StageConfigure, &BackendError{Step: "configure", Err: err}))
	}

	logger.Info("compiling and installing", "install_dir", installPrefix)
	if err := job.Backend.CompileAndInstall(ctx, buildDir, installPrefix, backendOptions); err != nil {
		return finish(result.Failed(StageCompile, &BackendError{Step: "compile", Err: err}))
	}

	result.Status = StatusSuccess
	return finish(result)
}
