// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package github provides a typed client for the parts of the GitHub
// REST API that staticrel publishes through: repository tags, git tag
// refs, releases, and release assets.
//
// The client authenticates with a personal access or fine-grained
// token (or anonymously for read-only use against public
// repositories). It handles rate limiting (X-RateLimit-* headers with
// automatic backoff), pagination (RFC 5988 Link headers), conditional
// requests (ETags), and structured error mapping.
//
// All requests are made over HTTPS. The client refuses non-HTTPS base
// URLs for both the API and the asset upload host.
package github
