// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads staticrel pipeline definitions.
//
// A definition is a single file named by the STATICREL_CONFIG
// environment variable (via [Load]) or a --config flag (via
// [LoadFile]). There is no discovery and no layering of multiple
// files. Files ending in .json or .jsonc are parsed as JSONC (JSON with
// comments and trailing commas); anything else is YAML. Unknown keys
// are rejected in both formats so a misspelled option fails loudly
// instead of silently taking its default.
//
// Two kinds of substitution exist and never overlap:
//
//   - Path fields get ${VAR} and ${VAR:-default} expansion from the
//     environment (plus ${STATICREL_ROOT}) once, at load time.
//   - Toolchain pre-steps, compiler names, toolchain env, and
//     build.extra_args get ${NAME} pipeline variables (VERSION, REF,
//     TOOLCHAIN, and user variables) per job, via [Expand]. A
//     reference with no value is an error, never an empty string.
//
// Key exports:
//
//   - [Config] -- the definition, with [Default] supplying defaults
//   - [Load] and [LoadFile] -- the two entry points for loading
//   - [Config.Validate] -- structural checks returning readable issues
//   - [Expand], [ExpandToolchain], [ExpandArgs] -- pipeline variables
package config
