// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides staticrel's CBOR encoding configuration and
// the on-disk record helpers built on it.
//
// Build jobs and the publish step run as separate invocations (one
// matrix entry per CI runner is common), so job results cross a process
// boundary. They are written as CBOR records: compact, typed, and
// byte-for-byte deterministic for the same logical value, which keeps
// re-runs diffable. JSON remains the format for CLI --json output.
//
// The encoder uses Core Deterministic Encoding (RFC 8949 §4.2). Types
// that are also printed as JSON carry `json` tags only; fxamacker/cbor
// reads them as a fallback, so one tag controls both formats.
package codec
