// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package command

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestRun_Success(t *testing.T) {
	t.Parallel()

	var stdout bytes.Buffer
	spec := Shell("echo $GREETING")
	spec.Env = Environ([]string{"PATH=/usr/bin:/bin"}, map[string]string{"GREETING": "hello"})
	spec.Stdout = &stdout

	if err := Run(context.Background(), spec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := strings.TrimSpace(stdout.String()); got != "hello" {
		t.Errorf("stdout = %q, want %q", got, "hello")
	}
}

func TestRun_ExitCode(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Shell("exit 3"))
	var exitError *ExitError
	if !errors.As(err, &exitError) {
		t.Fatalf("expected *ExitError, got %v", err)
	}
	if exitError.Code != 3 {
		t.Errorf("Code = %d, want 3", exitError.Code)
	}
	if !strings.Contains(exitError.Error(), "sh -c exit 3") {
		t.Errorf("Error() = %q", exitError.Error())
	}
}

func TestRun_Dir(t *testing.T) {
	t.Parallel()

	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	var stdout bytes.Buffer
	spec := Shell("pwd")
	spec.Dir = dir
	spec.Stdout = &stdout
	if err := Run(context.Background(), spec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strings.TrimSpace(stdout.String()) != dir {
		t.Errorf("pwd = %q, want %q", stdout.String(), dir)
	}
}

func TestRun_CancelKillsProcessGroup(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	// The sleep is a child of the shell; killing only sh would leave
	// Run waiting on the inherited stdout pipe.
	var stdout bytes.Buffer
	spec := Shell("sleep 30; echo done")
	spec.Stdout = &stdout
	err := Run(ctx, spec)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("Run took %v after cancellation", elapsed)
	}
}

func TestRun_MissingProgram(t *testing.T) {
	t.Parallel()

	err := Run(context.Background(), Spec{Path: "/nonexistent/staticrel-tool"})
	if err == nil {
		t.Fatal("expected error")
	}
	var exitError *ExitError
	if errors.As(err, &exitError) {
		t.Errorf("a program that never started should not be an ExitError")
	}
}

func TestSucceeds(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	if ok, err := Succeeds(ctx, Shell("true")); !ok || err != nil {
		t.Errorf("Succeeds(true) = %v, %v", ok, err)
	}
	if ok, err := Succeeds(ctx, Shell("false")); ok || err != nil {
		t.Errorf("Succeeds(false) = %v, %v", ok, err)
	}
}

func TestEnviron(t *testing.T) {
	t.Parallel()

	base := []string{"PATH=/bin", "CC=cc", "HOME=/root"}
	got := Environ(base, map[string]string{"CXX": "clang++", "CC": "clang"})
	want := []string{"PATH=/bin", "HOME=/root", "CC=clang", "CXX=clang++"}
	if !slices.Equal(got, want) {
		t.Errorf("Environ = %v, want %v", got, want)
	}
	if base[1] != "CC=cc" {
		t.Error("base was modified")
	}
}
