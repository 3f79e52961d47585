// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers.
//
// [RequireReceive] and [RequireClosed] encapsulate the timeout safety
// valve pattern (select with a wall-clock fallback) so that individual
// tests do not need direct time.After calls. [InitRepo] builds a
// throwaway upstream repository with tags; [RequireGit] skips tests that shell out to git when git is absent.
//
// All helpers call t.Fatalf (or t.Skip) rather than returning errors,
// since test setup failures are not recoverable.
package testutil
