// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// exitCoder is implemented by errors that carry their own exit code.
// Commands that already printed their own report return one of these
// so that no redundant "error:" line is written.
type exitCoder interface {
	ExitCode() int
}

// ExitCode maps err to a process exit code and reports whether a
// message should be printed. Nil maps to 0.
func ExitCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	var coder exitCoder
	if errors.As(err, &coder) {
		return coder.ExitCode(), false
	}
	return 1, true
}

// Exit writes "error: err" to w when appropriate and exits with the
// code derived from err.
func Exit(w io.Writer, err error) {
	code, printMessage := ExitCode(err)
	if printMessage {
		fmt.Fprintf(w, "error: %v\n", err)
	}
	os.Exit(code)
}
