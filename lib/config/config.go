// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/bureau-foundation/staticrel/lib/toolchain"
)

// EnvConfig names the environment variable Load reads.
const EnvConfig = "STATICREL_CONFIG"

// Config is a complete pipeline definition.
type Config struct {
	// Project identifies the source being built.
	Project ProjectConfig `yaml:"project" json:"project"`

	// Paths configures directory locations.
	Paths PathsConfig `yaml:"paths" json:"paths"`

	// Build configures the build backend invocation shared by every job.
	Build BuildConfig `yaml:"build" json:"build"`

	// Matrix lists the toolchains to build with.
	Matrix MatrixConfig `yaml:"matrix" json:"matrix"`

	// Verify configures the static-only checks.
	Verify VerifyConfig `yaml:"verify" json:"verify"`

	// Package configures archive naming and compression.
	Package PackageConfig `yaml:"package" json:"package"`

	// Release configures where and how artifacts are published.
	Release ReleaseConfig `yaml:"release" json:"release"`

	// Variables are user pipeline variables available as ${NAME} in
	// pre-steps and extra args. Built-in names take precedence.
	Variables map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`

	// MetricsFile, when set, receives the run's Prometheus metrics in
	// text exposition format.
	MetricsFile string `yaml:"metrics_file,omitempty" json:"metrics_file,omitempty"`
}

// ProjectConfig identifies the upstream source project.
type ProjectConfig struct {
	// Repository is the git URL (or local path) to fetch from.
	Repository string `yaml:"repository" json:"repository"`

	// TagSource selects how release tags are listed: "git" runs
	// git ls-remote against Repository, "github" pages through the
	// GitHub tags API for GitHubRepo.
	TagSource string `yaml:"tag_source" json:"tag_source"`

	// GitHubRepo is "owner/name", required when TagSource is "github".
	GitHubRepo string `yaml:"github_repo,omitempty" json:"github_repo,omitempty"`

	// TagPrefix precedes the version in release tag names
	// ("llvmorg-" for llvmorg-18.1.0).
	TagPrefix string `yaml:"tag_prefix" json:"tag_prefix"`
}

// PathsConfig configures directory locations.
type PathsConfig struct {
	// Root is the base directory for staticrel data.
	Root string `yaml:"root" json:"root"`

	// Work holds one private directory per toolchain job.
	Work string `yaml:"work" json:"work"`

	// Output receives packaged archives.
	Output string `yaml:"output" json:"output"`

	// Results receives one CBOR result record per job.
	Results string `yaml:"results" json:"results"`
}

// BuildConfig configures the build backend.
type BuildConfig struct {
	Backend               string   `yaml:"backend" json:"backend"`
	TargetArch            string   `yaml:"target_arch" json:"target_arch"`
	Component             string   `yaml:"component" json:"component"`
	BuildType             string   `yaml:"build_type" json:"build_type"`
	SourceSubdir          string   `yaml:"source_subdir" json:"source_subdir"`
	Generator             string   `yaml:"generator,omitempty" json:"generator,omitempty"`
	Static                bool     `yaml:"static" json:"static"`
	PIC                   bool     `yaml:"pic" json:"pic"`
	CompressDebugSections bool     `yaml:"compress_debug_sections" json:"compress_debug_sections"`
	ExtraArgs             []string `yaml:"extra_args,omitempty" json:"extra_args,omitempty"`

	// Jobs is the build parallelism passed to the backend. Zero lets
	// the backend decide.
	Jobs int `yaml:"jobs,omitempty" json:"jobs,omitempty"`

	// Timeout bounds one job end to end (Go duration syntax). Empty
	// means no limit.
	Timeout string `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// MatrixConfig lists the toolchains to build with.
type MatrixConfig struct {
	// Parallelism caps concurrently running jobs. Zero runs every job
	// at once.
	Parallelism int              `yaml:"parallelism,omitempty" json:"parallelism,omitempty"`
	Toolchains  []toolchain.Spec `yaml:"toolchains" json:"toolchains"`
}

// VerifyConfig configures the static-only checks.
type VerifyConfig struct {
	// LibDir is the library directory relative to the install prefix.
	LibDir string `yaml:"lib_dir" json:"lib_dir"`

	// StaticExtension is the file extension of static libraries.
	StaticExtension string `yaml:"static_extension" json:"static_extension"`

	// RejectShared fails verification when the library directory
	// holds any shared object, whatever its name.
	RejectShared bool `yaml:"reject_shared" json:"reject_shared"`
}

// PackageConfig configures archive naming and compression.
type PackageConfig struct {
	Base      string `yaml:"base" json:"base"`
	Platform  string `yaml:"platform" json:"platform"`
	OS        string `yaml:"os" json:"os"`
	Extension string `yaml:"extension" json:"extension"`
}

// ReleaseConfig configures publishing.
type ReleaseConfig struct {
	// Store selects the release backend: "github", "s3", or "dir".
	Store string `yaml:"store" json:"store"`

	// PlatformTag prefixes release tags ("linux-x86_64" gives
	// linux-x86_64-v18.1.0-static).
	PlatformTag string `yaml:"platform_tag" json:"platform_tag"`

	// Commit is the commit the release tag points at. Empty means the
	// HEAD of RepositoryDir.
	Commit string `yaml:"commit,omitempty" json:"commit,omitempty"`

	// RepositoryDir is the local checkout of the repository that
	// carries release tags.
	RepositoryDir string `yaml:"repository_dir" json:"repository_dir"`

	GitHub GitHubConfig `yaml:"github" json:"github"`
	S3     S3Config     `yaml:"s3" json:"s3"`

	// Dir is the root of the "dir" store.
	Dir string `yaml:"dir,omitempty" json:"dir,omitempty"`
}

// GitHubConfig configures the GitHub release store. The token is read
// from the environment variable named by TokenEnv, never from the file.
type GitHubConfig struct {
	Repo      string `yaml:"repo" json:"repo"`
	BaseURL   string `yaml:"base_url,omitempty" json:"base_url,omitempty"`
	UploadURL string `yaml:"upload_url,omitempty" json:"upload_url,omitempty"`
	TokenEnv  string `yaml:"token_env" json:"token_env"`
}

// S3Config configures the S3-compatible release store. Credentials
// come from the environment variables it names.
type S3Config struct {
	Endpoint     string `yaml:"endpoint" json:"endpoint"`
	Bucket       string `yaml:"bucket" json:"bucket"`
	Prefix       string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Region       string `yaml:"region,omitempty" json:"region,omitempty"`
	Insecure     bool   `yaml:"insecure,omitempty" json:"insecure,omitempty"`
	AccessKeyEnv string `yaml:"access_key_env" json:"access_key_env"`
	SecretKeyEnv string `yaml:"secret_key_env" json:"secret_key_env"`
}

// Default returns a Config with every optional field filled in. Load
// and LoadFile decode the file on top of it, so keys absent from the
// file keep these values.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	platform, goos := defaultPlatform()

	return &Config{
		Project: ProjectConfig{
			TagSource: "git",
			TagPrefix: "llvmorg-",
		},
		Paths: PathsConfig{
			Root:    filepath.Join(homeDir, ".cache", "staticrel"),
			Work:    "${STATICREL_ROOT}/work",
			Output:  "${STATICREL_ROOT}/dist",
			Results: "${STATICREL_ROOT}/results",
		},
		Build: BuildConfig{
			Backend:      "cmake",
			TargetArch:   platform,
			BuildType:    "Release",
			SourceSubdir: "llvm",
			Static:       true,
			PIC:          true,
		},
		Verify: VerifyConfig{
			LibDir:          "lib",
			StaticExtension: ".a",
		},
		Package: PackageConfig{
			Base:      "llvm",
			Platform:  platform,
			OS:        goos,
			Extension: "tar.gz",
		},
		Release: ReleaseConfig{
			Store:         "github",
			PlatformTag:   goos + "-" + platform,
			RepositoryDir: ".",
			GitHub:        GitHubConfig{TokenEnv: "GITHUB_TOKEN"},
			S3: S3Config{
				AccessKeyEnv: "AWS_ACCESS_KEY_ID",
				SecretKeyEnv: "AWS_SECRET_ACCESS_KEY",
			},
		},
	}
}

// defaultPlatform maps the Go architecture and OS to the names used in
// toolchain triples and archive names.
func defaultPlatform() (platform, goos string) {
	switch runtime.GOARCH {
	case "amd64":
		platform = "x86_64"
	case "arm64":
		platform = "aarch64"
	default:
		platform = runtime.GOARCH
	}
	return platform, runtime.GOOS
}

// Load loads the definition named by STATICREL_CONFIG. There is no
// fallback when the variable is unset.
func Load() (*Config, error) {
	configPath := os.Getenv(EnvConfig)
	if configPath == "" {
		return nil, fmt.Errorf("%s environment variable not set; "+
			"set it to the path of your pipeline definition, or use --config flag", EnvConfig)
	}
	return LoadFile(configPath)
}

// LoadFile loads a definition from path and expands its path fields.
// It does not validate; call Validate for that.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	cfg, err := Parse(data, formatOf(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Format is the syntax of a definition file.
type Format int

const (
	YAML Format = iota
	JSONC
)

func formatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".jsonc":
		return JSONC
	default:
		return YAML
	}
}

// Parse decodes a definition over Default and expands path fields.
func Parse(data []byte, format Format) (*Config, error) {
	cfg := Default()
	switch format {
	case JSONC:
		decoder := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(cfg); err != nil {
			return nil, fmt.Errorf("parsing definition: %w", err)
		}
	default:
		decoder := yaml.NewDecoder(bytes.NewReader(data))
		decoder.KnownFields(true)
		if err := decoder.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("parsing definition: %w", err)
		}
	}
	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} in path fields.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"STATICREL_ROOT": c.Paths.Root,
		"HOME":           os.Getenv("HOME"),
	}

	c.Paths.Root = expandVars(c.Paths.Root, vars)
	vars["STATICREL_ROOT"] = c.Paths.Root

	c.Paths.Work = expandVars(c.Paths.Work, vars)
	c.Paths.Output = expandVars(c.Paths.Output, vars)
	c.Paths.Results = expandVars(c.Paths.Results, vars)
	c.Project.Repository = expandVars(c.Project.Repository, vars)
	c.Release.RepositoryDir = expandVars(c.Release.RepositoryDir, vars)
	c.Release.Dir = expandVars(c.Release.Dir, vars)
	c.MetricsFile = expandVars(c.MetricsFile, vars)
}

var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// expandVars expands ${VAR} and ${VAR:-default}. Provided vars win
// over the environment; an unset variable with no default becomes "".
func expandVars(s string, vars map[string]string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := envPattern.FindStringSubmatch(match)
		name, defaultValue := parts[1], parts[2]
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// EnsurePaths creates the work, output, and results directories.
func (c *Config) EnsurePaths() error {
	for _, path := range []string{c.Paths.Work, c.Paths.Output, c.Paths.Results} {
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("creating %s: %w", path, err)
		}
	}
	return nil
}
