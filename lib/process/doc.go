// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package process maps the error a command returns to the process exit
// code and the message written before exiting.
package process
