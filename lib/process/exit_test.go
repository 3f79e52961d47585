// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package process

import (
	"errors"
	"fmt"
	"testing"
)

type codeError struct{ code int }

func (e *codeError) Error() string { return fmt.Sprintf("exit %d", e.code) }
func (e *codeError) ExitCode() int { return e.code }

func TestExitCode(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantCode  int
		wantPrint bool
	}{
		{"nil", nil, 0, false},
		{"plain", errors.New("boom"), 1, true},
		{"coded", &codeError{code: 2}, 2, false},
		{"wrapped coded", fmt.Errorf("run: %w", &codeError{code: 3}), 3, false},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			code, printMessage := ExitCode(test.err)
			if code != test.wantCode || printMessage != test.wantPrint {
				t.Errorf("ExitCode(%v) = (%d, %v), want (%d, %v)",
					test.err, code, printMessage, test.wantCode, test.wantPrint)
			}
		})
	}
}
