// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package command runs external tools on behalf of build jobs.
//
// Every command runs in its own process group, and cancelling the
// context kills the whole group: cmake, the generator it drives, and
// the compilers below that. Environment is passed per command; nothing
// here mutates the staticrel process environment.
package command
