// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package toolchain

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

// fakeCompiler writes an executable named name into dir.
func fakeCompiler(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\nexit 0\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestEnsure_ResolvesCompilersFromToolchainPath(t *testing.T) {
	t.Parallel()

	bin := t.TempDir()
	ccPath := fakeCompiler(t, bin, "staticrel-test-cc")
	cxxPath := fakeCompiler(t, bin, "staticrel-test-cxx")

	spec := Spec{
		ID:  "fake",
		CC:  "staticrel-test-cc",
		CXX: "staticrel-test-cxx",
		Env: map[string]string{"PATH": bin + ":" + os.Getenv("PATH"), "CFLAGS": "-O2"},
	}
	resolved, err := Ensurer{}.Ensure(context.Background(), spec)
	if err != nil {
		t.Fatalf("Ensure: %v", err)
	}
	if resolved.CCPath != ccPath || resolved.CXXPath != cxxPath {
		t.Errorf("resolved = %q, %q", resolved.CCPath, resolved.CXXPath)
	}

	env := resolved.Environ([]string{"HOME=/home/build", "CC=gcc"})
	for _, want := range []string{"HOME=/home/build", "CC=" + ccPath, "CXX=" + cxxPath, "CFLAGS=-O2"} {
		if !slices.Contains(env, want) {
			t.Errorf("Environ missing %q: %v", want, env)
		}
	}
	if slices.Contains(env, "CC=gcc") {
		t.Error("base CC should be replaced")
	}
}

func TestEnsure_PreStepsAreIdempotent(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	marker := filepath.Join(dir, "installed")
	runLog := filepath.Join(dir, "runs")
	ccPath := fakeCompiler(t, dir, "cc")

	spec := Spec{
		ID: "gcc",
		CC: ccPath,
		PreSteps: []PreStep{{
			Name:  "install",
			Run:   "echo run >> " + runLog + " && touch " + marker,
			Check: "test -f " + marker,
		}},
	}

	for attempt := range 3 {
		if _, err := (Ensurer{}).Ensure(context.Background(), spec); err != nil {
			t.Fatalf("attempt %d: Ensure: %v", attempt, err)
		}
	}
	data, err := os.ReadFile(runLog)
	if err != nil {
		t.Fatal(err)
	}
	if runs := strings.Count(string(data), "run"); runs != 1 {
		t.Errorf("pre-step ran %d times, want 1", runs)
	}
}

func TestEnsure_Failures(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ccPath := fakeCompiler(t, dir, "cc")
	notExecutable := filepath.Join(dir, "plain")
	if err := os.WriteFile(notExecutable, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		spec     Spec
		wantStep string
	}{
		{
			name:     "pre-step exits non-zero",
			spec:     Spec{ID: "t", CC: ccPath, PreSteps: []PreStep{{Name: "setup", Run: "exit 1"}}},
			wantStep: "setup",
		},
		{
			name:     "check still failing after run",
			spec:     Spec{ID: "t", CC: ccPath, PreSteps: []PreStep{{Run: "true", Check: "false"}}},
			wantStep: "pre_steps[0]",
		},
		{
			name:     "check without run",
			spec:     Spec{ID: "t", CC: ccPath, PreSteps: []PreStep{{Name: "verify", Check: "false"}}},
			wantStep: "verify",
		},
		{
			name:     "missing cc",
			spec:     Spec{ID: "t", CC: "staticrel-no-such-compiler"},
			wantStep: "cc",
		},
		{
			name:     "empty cc",
			spec:     Spec{ID: "t"},
			wantStep: "cc",
		},
		{
			name:     "cxx not executable",
			spec:     Spec{ID: "t", CC: ccPath, CXX: notExecutable},
			wantStep: "cxx",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := Ensurer{}.Ensure(context.Background(), test.spec)
			var setupError *SetupError
			if !errors.As(err, &setupError) {
				t.Fatalf("expected *SetupError, got %v", err)
			}
			if setupError.Step != test.wantStep || setupError.Toolchain != "t" {
				t.Errorf("SetupError = %+v, want step %q", setupError, test.wantStep)
			}
		})
	}
}
