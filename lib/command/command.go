// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"syscall"
	"time"
)

// Spec describes one external command.
type Spec struct {
	// Path is the program to run, resolved through PATH when it has
	// no slash.
	Path string

	// Args are the program arguments, not including Path.
	Args []string

	// Dir is the working directory. Empty means the current one.
	Dir string

	// Env is the complete environment for the process. Nil inherits
	// the staticrel environment unchanged.
	Env []string

	// Stdout and Stderr receive the process output. Nil discards it.
	Stdout io.Writer
	Stderr io.Writer

	// GracePeriod is how long a cancelled command gets between
	// SIGTERM and SIGKILL. Zero kills immediately.
	GracePeriod time.Duration
}

// Shell returns a Spec that runs script with "sh -c".
func Shell(script string) Spec {
	return Spec{Path: "sh", Args: []string{"-c", script}}
}

// String renders the command line for logs and error messages.
func (spec Spec) String() string {
	return strings.Join(append([]string{spec.Path}, spec.Args...), " ")
}

// ExitError reports a command that ran and exited non-zero.
type ExitError struct {
	Command string
	Code    int
}

func (err *ExitError) Error() string {
	return fmt.Sprintf("%s: exit status %d", err.Command, err.Code)
}

// Run executes spec and waits for it. A non-zero exit is *ExitError.
// Failures to start, and cancellation, are returned as other errors
// (the context error is wrapped when the context ended the command).
func Run(ctx context.Context, spec Spec) error {
	cmd := exec.CommandContext(ctx, spec.Path, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr

	// Negative PID signals the whole group.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if spec.GracePeriod > 0 {
		cmd.Cancel = func() error {
			processGroupID := -cmd.Process.Pid
			if err := syscall.Kill(processGroupID, syscall.SIGTERM); err != nil {
				return syscall.Kill(processGroupID, syscall.SIGKILL)
			}
			go func() {
				time.Sleep(spec.GracePeriod)
				// ESRCH from an already-exited group is harmless.
				_ = syscall.Kill(processGroupID, syscall.SIGKILL)
			}()
			return nil
		}
	} else {
		cmd.Cancel = func() error {
			return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
	}

	err := cmd.Run()
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", spec, ctxErr)
	}
	var exitError *exec.ExitError
	if errors.As(err, &exitError) && exitError.ExitCode() >= 0 {
		return &ExitError{Command: spec.String(), Code: exitError.ExitCode()}
	}
	return fmt.Errorf("%s: %w", spec, err)
}

// Succeeds runs spec and reports whether it exited zero. Only errors
// that prevent an answer (the program could not start, the context
// ended) are returned.
func Succeeds(ctx context.Context, spec Spec) (bool, error) {
	err := Run(ctx, spec)
	if err == nil {
		return true, nil
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		return false, nil
	}
	return false, err
}

// Environ returns base with the overrides applied. Later entries win
// for a repeated name, and overrides are applied in sorted key order
// so the result is deterministic. base is not modified; a nil base
// means os.Environ().
func Environ(base []string, overrides map[string]string) []string {
	if base == nil {
		base = os.Environ()
	}
	result := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		name, _, _ := strings.Cut(entry, "=")
		if _, overridden := overrides[name]; overridden {
			continue
		}
		result = append(result, entry)
	}
	names := make([]string, 0, len(overrides))
	for name := range overrides {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		result = append(result, name+"="+overrides[name])
	}
	return result
}
