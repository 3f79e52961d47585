// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildjob

import (
	"context"
	"fmt"
	"io"
)

// Options are the build parameters shared by every job in a run.
type Options struct {
	// TargetArch is the architecture the build targets ("x86_64").
	TargetArch string `json:"target_arch"`

	// Component is the single subproject to enable ("lld"). Empty
	// builds the backend's default set.
	Component string `json:"component,omitempty"`

	Static                bool `json:"static"`
	PIC                   bool `json:"pic"`
	CompressDebugSections bool `json:"compress_debug_sections"`

	BuildType string `json:"build_type"`

	// SourceSubdir is the directory inside the checkout holding the
	// top-level build description ("llvm" in llvm-project).
	SourceSubdir string `json:"source_subdir,omitempty"`

	// Generator selects the backend's underlying build tool. Empty
	// means the backend default.
	Generator string `json:"generator,omitempty"`

	// ExtraArgs are appended to the configure command.
	ExtraArgs []string `json:"extra_args,omitempty"`

	// Jobs is the build parallelism. Zero lets the backend decide.
	Jobs int `json:"jobs,omitempty"`
}

// BackendOptions carries what a backend needs beyond the build
// options: the per-command environment (toolchain applied) and the
// job's log.
type BackendOptions struct {
	Options

	// Env is the complete environment for backend commands.
	Env []string

	// Log receives the stdout and stderr of every backend command.
	Log io.Writer
}

// Backend configures, compiles, and installs a source tree. It is the
// opaque build-system collaborator: the job only sequences it and
// classifies its failures.
type Backend interface {
	// Configure prepares buildDir, the directory the job reserved, to
	// build sourceTree into installPrefix.
	Configure(ctx context.Context, sourceTree, buildDir, installPrefix string, options BackendOptions) error

	// CompileAndInstall builds the configured tree and installs it
	// into installPrefix.
	CompileAndInstall(ctx context.Context, buildDir, installPrefix string, options BackendOptions) error
}

// BackendError reports a failed backend step ("configure" or
// "compile").
type BackendError struct {
	Step string
	Err  error
}

func (err *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", err.Step, err.Err)
}

func (err *BackendError) Unwrap() error {
	return err.Err
}
