// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package version provides build version information for the staticrel
// binary. Values are injected at build time via -ldflags:
//
//	go build -ldflags "-X github.com/bureau-foundation/staticrel/lib/version.GitCommit=$(git rev-parse --short HEAD)"
package version
