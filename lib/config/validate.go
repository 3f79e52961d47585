// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/bureau-foundation/staticrel/lib/github"
	"github.com/bureau-foundation/staticrel/lib/packager"
)

// Validate checks the definition for structural issues and returns
// human-readable descriptions. An empty list means the definition is
// usable. Toolchain ID uniqueness is checked again by the matrix
// runner, which owns that rule.
func (c *Config) Validate() []string {
	var issues []string
	add := func(format string, args ...any) {
		issues = append(issues, fmt.Sprintf(format, args...))
	}

	if c.Project.Repository == "" {
		add("project.repository is required")
	}
	switch c.Project.TagSource {
	case "git":
	case "github":
		if _, err := github.ParseRepo(c.Project.GitHubRepo); err != nil {
			add("project.github_repo: %v", err)
		}
	default:
		add("project.tag_source must be one of: git, github (got %q)", c.Project.TagSource)
	}

	if c.Paths.Work == "" {
		add("paths.work is required")
	}
	if c.Paths.Output == "" {
		add("paths.output is required")
	}

	if c.Build.Backend != "cmake" {
		add("build.backend must be cmake (got %q)", c.Build.Backend)
	}
	if c.Build.Jobs < 0 {
		add("build.jobs must not be negative")
	}
	if c.Build.Timeout != "" {
		if _, err := time.ParseDuration(c.Build.Timeout); err != nil {
			add("build.timeout: invalid duration %q: %v", c.Build.Timeout, err)
		}
	}

	if c.Matrix.Parallelism < 0 {
		add("matrix.parallelism must not be negative")
	}
	if len(c.Matrix.Toolchains) == 0 {
		add("matrix.toolchains is empty (at least one toolchain is required)")
	}
	for index, spec := range c.Matrix.Toolchains {
		prefix := fmt.Sprintf("matrix.toolchains[%d]", index)
		if spec.ID == "" {
			add("%s: id is required", prefix)
		} else {
			prefix = fmt.Sprintf("matrix.toolchains[%d] %q", index, spec.ID)
			if !isNameComponent(spec.ID) {
				add("%s: id must be a non-empty name without path separators or spaces", prefix)
			}
		}
		if spec.CC == "" {
			add("%s: cc is required", prefix)
		}
		for stepIndex, step := range spec.PreSteps {
			if step.Run == "" && step.Check == "" {
				add("%s: pre_steps[%d]: run or check is required", prefix, stepIndex)
			}
		}
		if _, err := ExpandToolchain(spec, c.placeholderVariables(spec.ID)); err != nil {
			add("%s: %v", prefix, err)
		}
	}
	if _, err := ExpandArgs(c.Build.ExtraArgs, c.placeholderVariables("")); err != nil {
		add("build.extra_args: %v", err)
	}
	for name := range c.Variables {
		if !variableName.MatchString(name) {
			add("variables: %q is not a valid variable name", name)
		}
		if slices.Contains(BuiltinVariables, name) {
			add("variables: %q is built in and cannot be redefined", name)
		}
	}

	if c.Verify.LibDir == "" || filepath.IsAbs(c.Verify.LibDir) || slices.Contains(strings.Split(c.Verify.LibDir, "/"), "..") {
		add("verify.lib_dir must be a relative path inside the install prefix (got %q)", c.Verify.LibDir)
	}
	if !strings.HasPrefix(c.Verify.StaticExtension, ".") {
		add("verify.static_extension must start with a dot (got %q)", c.Verify.StaticExtension)
	}

	for field, value := range map[string]string{
		"package.base":     c.Package.Base,
		"package.platform": c.Package.Platform,
		"package.os":       c.Package.OS,
	} {
		if !isNameComponent(value) {
			add("%s must be a non-empty name without path separators or spaces (got %q)", field, value)
		}
	}
	if !packager.Supported(c.Package.Extension) {
		add("package.extension must be one of: %s (got %q)", strings.Join(packager.Extensions(), ", "), c.Package.Extension)
	}

	if !isNameComponent(c.Release.PlatformTag) {
		add("release.platform_tag must be a non-empty name without path separators or spaces (got %q)", c.Release.PlatformTag)
	}
	if c.Release.Commit == "" && c.Release.RepositoryDir == "" {
		add("release.repository_dir is required when release.commit is not set")
	}
	switch c.Release.Store {
	case "github":
		if _, err := github.ParseRepo(c.Release.GitHub.Repo); err != nil {
			add("release.github.repo: %v", err)
		}
		if c.Release.GitHub.TokenEnv == "" {
			add("release.github.token_env is required")
		}
	case "s3":
		if c.Release.S3.Endpoint == "" {
			add("release.s3.endpoint is required")
		}
		if c.Release.S3.Bucket == "" {
			add("release.s3.bucket is required")
		}
	case "dir":
		if c.Release.Dir == "" {
			add("release.dir is required for the dir store")
		}
	default:
		add("release.store must be one of: github, s3, dir (got %q)", c.Release.Store)
	}

	slices.Sort(issues)
	return issues
}

// Timeout returns the parsed build timeout, zero when unset or
// invalid (Validate reports invalid values).
func (c *Config) Timeout() time.Duration {
	duration, _ := time.ParseDuration(c.Build.Timeout)
	return duration
}

// placeholderVariables returns a variable map with every name a job
// would see, for checking references before any job runs.
func (c *Config) placeholderVariables(toolchainID string) map[string]string {
	return c.JobVariables("0.0.0", "ref", toolchainID)
}

// isNameComponent reports whether value can be embedded in a file or
// tag name.
func isNameComponent(value string) bool {
	return value != "" && !strings.ContainsAny(value, "/\\ \t\n")
}
