// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package binhash computes and formats BLAKE3 digests of release
// artifacts. Digests are recorded in job result records and listed in
// release notes so that downloaded archives can be checked against the
// build that produced them.
package binhash
