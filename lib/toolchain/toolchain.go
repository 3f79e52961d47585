// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package toolchain describes the compilers a build job uses and the
// idempotent setup steps that make them available.
//
// A toolchain is a value: compiler names, extra environment, and
// pre-steps. Ensuring a toolchain runs the pre-steps whose check
// command does not already succeed, then resolves the compilers to
// absolute paths. The resolved toolchain hands its settings to each
// command it is used for through Environ; the process environment of
// staticrel itself is never touched.
package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/command"
)

// PreStep is a setup command run before a toolchain is used (install a
// compiler package, unpack a sysroot). Check, when set, is a command
// whose success means the step is already satisfied.
type PreStep struct {
	Name  string `yaml:"name" json:"name"`
	Run   string `yaml:"run" json:"run"`
	Check string `yaml:"check,omitempty" json:"check,omitempty"`
}

// Spec is a compiler configuration. ID is the matrix key and appears
// in artifact names, so it must be unique within one run.
type Spec struct {
	ID       string            `yaml:"id" json:"id"`
	CC       string            `yaml:"cc" json:"cc"`
	CXX      string            `yaml:"cxx,omitempty" json:"cxx,omitempty"`
	PreSteps []PreStep         `yaml:"pre_steps,omitempty" json:"pre_steps,omitempty"`
	Env      map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
}

// Resolved is a Spec whose pre-steps have run and whose compilers were
// found.
type Resolved struct {
	Spec
	CCPath  string
	CXXPath string
}

// Environ returns base plus the toolchain's Env and CC/CXX pointing at
// the resolved compilers. Pass nil for the current process
// environment.
func (resolved Resolved) Environ(base []string) []string {
	overrides := make(map[string]string, len(resolved.Env)+2)
	for name, value := range resolved.Env {
		overrides[name] = value
	}
	overrides["CC"] = resolved.CCPath
	if resolved.CXXPath != "" {
		overrides["CXX"] = resolved.CXXPath
	}
	return command.Environ(base, overrides)
}

// SetupError reports a toolchain that could not be made ready. Step is
// the pre-step name, or "cc"/"cxx" when compiler resolution failed.
type SetupError struct {
	Toolchain string
	Step      string
	Err       error
}

func (err *SetupError) Error() string {
	return fmt.Sprintf("toolchain %s: %s: %v", err.Toolchain, err.Step, err.Err)
}

func (err *SetupError) Unwrap() error {
	return err.Err
}

// Ensurer runs pre-steps and resolves compilers.
type Ensurer struct {
	// Output receives pre-step stdout and stderr. Nil discards it.
	Output io.Writer

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Ensure makes spec ready to use. Pre-steps run in order, skipping
// each whose Check already succeeds. A step that runs is re-checked
// afterwards, so a Run that exits zero without achieving its Check is
// still a failure. Running Ensure again on a ready toolchain executes
// only the checks.
func (ensurer Ensurer) Ensure(ctx context.Context, spec Spec) (Resolved, error) {
	logger := ensurer.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("toolchain", spec.ID)

	env := command.Environ(nil, spec.Env)
	for index, step := range spec.PreSteps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("pre_steps[%d]", index)
		}
		if err := ensurer.runStep(ctx, logger, env, name, step); err != nil {
			return Resolved{}, &SetupError{Toolchain: spec.ID, Step: name, Err: err}
		}
	}

	resolved := Resolved{Spec: spec}
	var err error
	if spec.CC == "" {
		return Resolved{}, &SetupError{Toolchain: spec.ID, Step: "cc", Err: errors.New("no C compiler configured")}
	}
	if resolved.CCPath, err = lookPath(spec.CC, env); err != nil {
		return Resolved{}, &SetupError{Toolchain: spec.ID, Step: "cc", Err: err}
	}
	if spec.CXX != "" {
		if resolved.CXXPath, err = lookPath(spec.CXX, env); err != nil {
			return Resolved{}, &SetupError{Toolchain: spec.ID, Step: "cxx", Err: err}
		}
	}
	logger.Debug("toolchain ready", "cc", resolved.CCPath, "cxx", resolved.CXXPath)
	return resolved, nil
}

func (ensurer Ensurer) runStep(ctx context.Context, logger *slog.Logger, env []string, name string, step PreStep) error {
	if step.Check != "" {
		satisfied, err := ensurer.succeeds(ctx, env, step.Check)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		if satisfied {
			logger.Debug("pre-step already satisfied", "step", name)
			return nil
		}
	}
	if step.Run == "" {
		return errors.New("check failed and no run command is configured")
	}

	logger.Info("running pre-step", "step", name)
	spec := command.Shell(step.Run)
	spec.Env = env
	spec.Stdout = ensurer.Output
	spec.Stderr = ensurer.Output
	if err := command.Run(ctx, spec); err != nil {
		return err
	}

	if step.Check != "" {
		satisfied, err := ensurer.succeeds(ctx, env, step.Check)
		if err != nil {
			return fmt.Errorf("check: %w", err)
		}
		if !satisfied {
			return fmt.Errorf("check %q still fails after running the step", step.Check)
		}
	}
	return nil
}

func (ensurer Ensurer) succeeds(ctx context.Context, env []string, script string) (bool, error) {
	spec := command.Shell(script)
	spec.Env = env
	spec.Stdout = ensurer.Output
	spec.Stderr = ensurer.Output
	return command.Succeeds(ctx, spec)
}

// lookPath resolves a compiler name against the PATH in env (which may
// come from the toolchain's Env), falling back to the process PATH.
func lookPath(name string, env []string) (string, error) {
	if strings.Contains(name, "/") {
		info, err := os.Stat(name)
		if err != nil {
			return "", err
		}
		if info.IsDir() || info.Mode()&0o111 == 0 {
			return "", fmt.Errorf("%s is not an executable file", name)
		}
		return name, nil
	}
	path := ""
	for _, entry := range env {
		if value, found := strings.CutPrefix(entry, "PATH="); found {
			path = value
		}
	}
	for _, directory := range strings.Split(path, ":") {
		if directory == "" {
			continue
		}
		candidate := directory + "/" + name
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	return exec.LookPath(name)
}
