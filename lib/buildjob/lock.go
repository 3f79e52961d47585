// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildjob

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// ErrWorkDirBusy is returned when another job holds the work directory.
var ErrWorkDirBusy = errors.New("work directory is in use by another job")

// lockFileName is created inside each job's work directory.
const lockFileName = ".staticrel.lock"

// lockWorkDir takes an exclusive, non-blocking flock on dir. Two jobs
// pointed at one directory would clobber each other's checkout and
// install tree, so the second fails immediately instead of waiting.
// The lock is released by the returned function or when the process
// exits.
func lockWorkDir(dir string) (func(), error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}
	file, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening lock file: %w", err)
	}
	if err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB); err != nil {
		file.Close()
		if errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("%s: %w", dir, ErrWorkDirBusy)
		}
		return nil, fmt.Errorf("locking %s: %w", dir, err)
	}
	return func() {
		unix.Flock(int(file.Fd()), unix.LOCK_UN)
		file.Close()
	}, nil
}
