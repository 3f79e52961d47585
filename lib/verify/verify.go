// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package verify checks that a build's install tree is static-only.
//
// The checks run in a fixed order and stop at the first violation:
//
//	library-dir     <install>/<lib> exists and is a directory
//	static-present  at least one static library anywhere in the tree
//	static-format   every static-named file in the library directory
//	                really is an archive
//	no-shared       (optional) no shared object of any name in the
//	                library directory
//
// A build system can install a shared object under a static library's
// name, so static-format inspects content, not file names.
package verify

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
)

// Check names.
const (
	CheckBuildStatus   = "build-status"
	CheckLibraryDir    = "library-dir"
	CheckStaticPresent = "static-present"
	CheckStaticFormat  = "static-format"
	CheckNoShared      = "no-shared"
)

// VerificationError reports the first failed check.
type VerificationError struct {
	Check  string
	Path   string
	Detail string
}

func (err *VerificationError) Error() string {
	if err.Path == "" {
		return fmt.Sprintf("verification check %s failed: %s", err.Check, err.Detail)
	}
	return fmt.Sprintf("verification check %s failed for %s: %s", err.Check, err.Path, err.Detail)
}

// Verifier runs the checks. The zero value checks "lib" for ".a"
// files using [MagicInspector].
type Verifier struct {
	// LibDir is the library directory relative to the install tree.
	LibDir string

	// StaticExtension is the static library suffix, including the dot.
	StaticExtension string

	// RejectShared enables the no-shared check.
	RejectShared bool

	Inspector Inspector
}

// Verify checks result's install tree. A result that did not succeed is
// rejected without touching the filesystem.
func (verifier Verifier) Verify(result buildjob.Result) error {
	if !result.Succeeded() {
		return &VerificationError{
			Check:  CheckBuildStatus,
			Detail: fmt.Sprintf("build failed at stage %s", result.Stage),
		}
	}
	return verifier.VerifyTree(result.InstallDir)
}

// VerifyTree runs the checks against an install tree directly.
func (verifier Verifier) VerifyTree(installDir string) error {
	libDir := filepath.Join(installDir, verifier.libDir())
	extension := verifier.extension()
	inspector := verifier.Inspector
	if inspector == nil {
		inspector = MagicInspector{}
	}

	info, err := os.Stat(libDir)
	if err != nil {
		detail := err.Error()
		if errors.Is(err, fs.ErrNotExist) {
			detail = "library directory does not exist"
		}
		return &VerificationError{Check: CheckLibraryDir, Path: libDir, Detail: detail}
	}
	if !info.IsDir() {
		return &VerificationError{Check: CheckLibraryDir, Path: libDir, Detail: "not a directory"}
	}

	found, err := containsStatic(installDir, extension)
	if err != nil {
		return &VerificationError{Check: CheckStaticPresent, Path: installDir, Detail: err.Error()}
	}
	if !found {
		return &VerificationError{
			Check:  CheckStaticPresent,
			Path:   installDir,
			Detail: fmt.Sprintf("no *%s files in install tree", extension),
		}
	}

	entries, err := os.ReadDir(libDir)
	if err != nil {
		return &VerificationError{Check: CheckStaticFormat, Path: libDir, Detail: err.Error()}
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), extension) {
			continue
		}
		path := filepath.Join(libDir, entry.Name())
		format, err := inspector.Inspect(path)
		if err != nil {
			return &VerificationError{Check: CheckStaticFormat, Path: path, Detail: err.Error()}
		}
		if format != FormatStaticArchive {
			return &VerificationError{
				Check:  CheckStaticFormat,
				Path:   path,
				Detail: fmt.Sprintf("expected %s, found %s", FormatStaticArchive, format),
			}
		}
	}

	if !verifier.RejectShared {
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		path := filepath.Join(libDir, entry.Name())
		format, err := inspector.Inspect(path)
		if err != nil {
			// Dangling symlinks are common in install trees and
			// cannot be shared objects.
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return &VerificationError{Check: CheckNoShared, Path: path, Detail: err.Error()}
		}
		if format == FormatShared {
			return &VerificationError{Check: CheckNoShared, Path: path, Detail: "shared object in library directory"}
		}
	}
	return nil
}

func (verifier Verifier) libDir() string {
	if verifier.LibDir == "" {
		return "lib"
	}
	return verifier.LibDir
}

func (verifier Verifier) extension() string {
	if verifier.StaticExtension == "" {
		return ".a"
	}
	return verifier.StaticExtension
}

// errFound stops the walk early.
var errFound = errors.New("found")

func containsStatic(root, extension string) (bool, error) {
	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), extension) {
			return errFound
		}
		return nil
	})
	if errors.Is(err, errFound) {
		return true, nil
	}
	return false, err
}
