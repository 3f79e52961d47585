// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package pipeline wires the stages of a static release together.
//
// A run resolves the ref to build, then runs one job per toolchain in
// the matrix. Each job builds, verifies the install tree, and packages
// it; the first failing stage ends that job and is recorded in its
// result. Siblings are unaffected. Every finished job is written as a
// CBOR [Record] to the results directory, so the publish step can run
// later, in another process, from the records alone.
//
// Publishing happens when at least one job produced an artifact. The
// release notes list every toolchain that was attempted, failed ones
// included, so a partial release says what is missing and why.
//
// Fatal errors stop the run: a ref that cannot be resolved, an invalid
// matrix, and a failed publish. Everything that happens inside a job is
// data, not an error.
package pipeline
