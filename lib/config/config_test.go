// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

const validYAML = `
project:
  repository: https://github.com/llvm/llvm-project.git
paths:
  root: /srv/staticrel
build:
  component: lld
  extra_args: ["-DLLVM_PARALLEL_LINK_JOBS=${LINK_JOBS}"]
matrix:
  toolchains:
    - id: gcc
      cc: gcc
      cxx: g++
    - id: clang
      cc: clang-${CLANG_MAJOR}
      cxx: clang++-${CLANG_MAJOR}
      pre_steps:
        - name: install
          run: apt-get install -y clang-${CLANG_MAJOR}
          check: command -v clang-${CLANG_MAJOR}
variables:
  CLANG_MAJOR: "18"
  LINK_JOBS: "2"
release:
  github:
    repo: example/static-llvm
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Project.TagPrefix != "llvmorg-" {
		t.Errorf("tag_prefix = %q", cfg.Project.TagPrefix)
	}
	if !cfg.Build.Static || !cfg.Build.PIC {
		t.Error("static and pic should default to true")
	}
	if cfg.Verify.LibDir != "lib" || cfg.Verify.StaticExtension != ".a" {
		t.Errorf("verify defaults = %+v", cfg.Verify)
	}
	if cfg.Release.PlatformTag != cfg.Package.OS+"-"+cfg.Package.Platform {
		t.Errorf("platform_tag = %q", cfg.Release.PlatformTag)
	}
}

func TestLoad_RequiresEnvironmentVariable(t *testing.T) {
	t.Setenv(EnvConfig, "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected error when STATICREL_CONFIG not set")
	}
	if !strings.HasPrefix(err.Error(), "STATICREL_CONFIG environment variable not set") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoad_YAML(t *testing.T) {
	t.Setenv(EnvConfig, writeFile(t, "pipeline.yaml", validYAML))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Fatalf("Validate: %v", issues)
	}

	if cfg.Paths.Work != "/srv/staticrel/work" {
		t.Errorf("paths.work = %q, want root-relative default", cfg.Paths.Work)
	}
	if cfg.Build.Component != "lld" || cfg.Build.BuildType != "Release" {
		t.Errorf("build = %+v", cfg.Build)
	}
	if len(cfg.Matrix.Toolchains) != 2 || cfg.Matrix.Toolchains[1].PreSteps[0].Name != "install" {
		t.Errorf("toolchains = %+v", cfg.Matrix.Toolchains)
	}
	// Pipeline variables are not expanded at load time.
	if cfg.Matrix.Toolchains[1].CC != "clang-${CLANG_MAJOR}" {
		t.Errorf("cc = %q", cfg.Matrix.Toolchains[1].CC)
	}
}

func TestLoadFile_JSONC(t *testing.T) {
	path := writeFile(t, "pipeline.jsonc", `{
  // Comments and trailing commas are allowed.
  "project": {"repository": "/src/llvm-project"},
  "matrix": {"toolchains": [{"id": "gcc", "cc": "gcc",},],},
  "release": {"store": "dir", "dir": "${STATICREL_ROOT}/releases"},
  "paths": {"root": "/tmp/sr"},
}`)
	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if issues := cfg.Validate(); len(issues) != 0 {
		t.Fatalf("Validate: %v", issues)
	}
	if cfg.Release.Dir != "/tmp/sr/releases" {
		t.Errorf("release.dir = %q", cfg.Release.Dir)
	}
}

func TestLoadFile_UnknownKeysRejected(t *testing.T) {
	for name, content := range map[string]string{
		"pipeline.yaml": "project:\n  repositry: x\n",
		"pipeline.json": `{"projet": {}}`,
	} {
		if _, err := LoadFile(writeFile(t, name, content)); err == nil {
			t.Errorf("%s: expected error for misspelled key", name)
		}
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExpandVars(t *testing.T) {
	t.Setenv("STATICREL_TEST_DIR", "/from/env")

	tests := []struct {
		input string
		want  string
	}{
		{"${STATICREL_ROOT}/work", "/root/work"},
		{"${STATICREL_TEST_DIR}/x", "/from/env/x"},
		{"${STATICREL_TEST_UNSET:-/fallback}", "/fallback"},
		{"${STATICREL_TEST_UNSET}", ""},
		{"plain", "plain"},
	}
	for _, test := range tests {
		got := expandVars(test.input, map[string]string{"STATICREL_ROOT": "/root"})
		if got != test.want {
			t.Errorf("expandVars(%q) = %q, want %q", test.input, got, test.want)
		}
	}
}

func TestValidate_Issues(t *testing.T) {
	cfg, err := Parse([]byte(`
project:
  tag_source: github
  github_repo: nope
build:
  timeout: soon
  extra_args: ["${NOT_DEFINED}"]
matrix:
  toolchains:
    - id: "bad id"
    - cc: gcc
      pre_steps:
        - name: empty
package:
  extension: rar
release:
  store: ftp
  platform_tag: a/b
variables:
  VERSION: "1"
  "9lives": x
`), YAML)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	issues := cfg.Validate()
	wantFragments := []string{
		"project.repository is required",
		"project.github_repo",
		"build.timeout: invalid duration",
		"build.extra_args: [0]: unresolved pipeline variables: NOT_DEFINED",
		`matrix.toolchains[0] "bad id": id must be`,
		`matrix.toolchains[0] "bad id": cc is required`,
		"matrix.toolchains[1]: id is required",
		"matrix.toolchains[1]: pre_steps[0]: run or check is required",
		`variables: "VERSION" is built in`,
		`variables: "9lives" is not a valid variable name`,
		"package.extension must be one of",
		"release.platform_tag must be",
		"release.store must be one of",
	}
	for _, fragment := range wantFragments {
		if !slices.ContainsFunc(issues, func(issue string) bool { return strings.Contains(issue, fragment) }) {
			t.Errorf("missing issue containing %q in:\n%s", fragment, strings.Join(issues, "\n"))
		}
	}
}

func TestValidate_EmptyMatrix(t *testing.T) {
	cfg := Default()
	cfg.Project.Repository = "x"
	cfg.Release.Store = "dir"
	cfg.Release.Dir = "/tmp/releases"

	issues := cfg.Validate()
	if len(issues) != 1 || !strings.Contains(issues[0], "matrix.toolchains is empty") {
		t.Errorf("issues = %v", issues)
	}
}
