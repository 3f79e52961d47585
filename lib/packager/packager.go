// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package packager turns a verified install tree into a compressed tar
// archive named by its [Manifest].
//
// Archives are reproducible: entries are written in sorted order with
// zeroed ownership, a fixed modification time and normalized
// permissions, so the same tree always yields the same bytes and the
// same digest. The archive is written to a temporary file next to its
// destination and renamed into place; a failed packaging run never
// leaves a partial archive under the final name.
package packager

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/bureau-foundation/staticrel/lib/binhash"
	"github.com/bureau-foundation/staticrel/lib/buildjob"
)

// PackagingError reports a failure to produce an archive.
type PackagingError struct {
	Name string
	Err  error
}

func (err *PackagingError) Error() string {
	return fmt.Sprintf("packaging %s: %v", err.Name, err.Err)
}

func (err *PackagingError) Unwrap() error {
	return err.Err
}

// Artifact is a finished archive.
type Artifact struct {
	Path   string
	Name   string
	Size   int64
	Digest binhash.Digest
}

// Packager writes archives into OutputDir.
type Packager struct {
	OutputDir string

	// ModTime is stamped on every entry. The zero value uses the Unix
	// epoch.
	ModTime time.Time

	Logger *slog.Logger
}

// Package archives the install tree of result (or manifest.SourceDir)
// under the manifest's name.
func (packager Packager) Package(result buildjob.Result, manifest Manifest) (Artifact, error) {
	name := manifest.FileName()
	fail := func(err error) (Artifact, error) {
		return Artifact{}, &PackagingError{Name: name, Err: err}
	}

	if err := manifest.Validate(); err != nil {
		return fail(err)
	}
	compression, err := ParseExtension(manifest.Extension)
	if err != nil {
		return fail(err)
	}
	sourceDir := manifest.SourceDir
	if sourceDir == "" {
		sourceDir = result.InstallDir
	}
	if sourceDir == "" {
		return fail(errors.New("no install tree"))
	}
	if err := os.MkdirAll(packager.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("creating output directory: %w", err))
	}

	destination := filepath.Join(packager.OutputDir, name)
	temporary, err := os.CreateTemp(packager.OutputDir, "."+name+".*")
	if err != nil {
		return fail(fmt.Errorf("creating temporary file: %w", err))
	}
	temporaryPath := temporary.Name()
	cleanup := func() {
		temporary.Close()
		os.Remove(temporaryPath)
	}

	hasher := binhash.NewWriter()
	counter := &countingWriter{}
	files, err := packager.writeArchive(io.MultiWriter(temporary, hasher, counter), sourceDir, manifest.PackageName(), compression)
	if err != nil {
		cleanup()
		return fail(err)
	}
	if err := temporary.Sync(); err != nil {
		cleanup()
		return fail(fmt.Errorf("syncing archive: %w", err))
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return fail(fmt.Errorf("closing archive: %w", err))
	}
	if err := os.Chmod(temporaryPath, 0o644); err != nil {
		os.Remove(temporaryPath)
		return fail(err)
	}
	if err := os.Rename(temporaryPath, destination); err != nil {
		os.Remove(temporaryPath)
		return fail(fmt.Errorf("renaming archive into place: %w", err))
	}

	artifact := Artifact{
		Path:   destination,
		Name:   name,
		Size:   counter.count,
		Digest: binhash.Sum(hasher),
	}
	packager.logger().Info("packaged artifact",
		"artifact", name,
		"files", files,
		"bytes", artifact.Size,
		"digest", artifact.Digest.String(),
	)
	return artifact, nil
}

func (packager Packager) logger() *slog.Logger {
	if packager.Logger == nil {
		return slog.Default()
	}
	return packager.Logger
}

func (packager Packager) modTime() time.Time {
	if packager.ModTime.IsZero() {
		return time.Unix(0, 0).UTC()
	}
	return packager.ModTime.UTC().Truncate(time.Second)
}

// writeArchive streams the tar of sourceDir into w and returns the
// number of regular files written. Entries are rooted at prefix.
func (packager Packager) writeArchive(w io.Writer, sourceDir, prefix string, compression Compression) (int, error) {
	compressor, err := newCompressor(w, compression)
	if err != nil {
		return 0, err
	}
	archive := tar.NewWriter(compressor)
	modTime := packager.modTime()

	files := 0
	// WalkDir visits entries in lexical order, which fixes the entry
	// order of the archive.
	walkErr := filepath.WalkDir(sourceDir, func(filePath string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		relative, err := filepath.Rel(sourceDir, filePath)
		if err != nil {
			return err
		}
		name := prefix
		if relative != "." {
			name = path.Join(prefix, filepath.ToSlash(relative))
		}

		info, err := entry.Info()
		if err != nil {
			return err
		}
		header := &tar.Header{
			Name:    name,
			ModTime: modTime,
		}
		switch mode := info.Mode(); {
		case mode.IsDir():
			header.Typeflag = tar.TypeDir
			header.Name += "/"
			header.Mode = 0o755
		case mode.IsRegular():
			header.Typeflag = tar.TypeReg
			header.Size = info.Size()
			header.Mode = 0o644
			if mode.Perm()&0o111 != 0 {
				header.Mode = 0o755
			}
		case mode&fs.ModeSymlink != 0:
			target, err := os.Readlink(filePath)
			if err != nil {
				return err
			}
			header.Typeflag = tar.TypeSymlink
			header.Linkname = target
			header.Mode = 0o777
		default:
			return fmt.Errorf("%s: unsupported file type %s", relative, mode.Type())
		}

		if err := archive.WriteHeader(header); err != nil {
			return fmt.Errorf("writing header for %s: %w", relative, err)
		}
		if header.Typeflag != tar.TypeReg {
			return nil
		}
		files++
		return copyFile(archive, filePath)
	})
	if walkErr != nil {
		return 0, walkErr
	}
	if files == 0 {
		return 0, fmt.Errorf("install tree %s contains no files", sourceDir)
	}
	if err := archive.Close(); err != nil {
		return 0, fmt.Errorf("finishing tar stream: %w", err)
	}
	if err := compressor.Close(); err != nil {
		return 0, fmt.Errorf("finishing %s stream: %w", compression, err)
	}
	return files, nil
}

func copyFile(w io.Writer, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()
	if _, err := io.Copy(w, file); err != nil {
		return fmt.Errorf("archiving %s: %w", filePath, err)
	}
	return nil
}

type countingWriter struct {
	count int64
}

func (writer *countingWriter) Write(p []byte) (int, error) {
	writer.count += int64(len(p))
	return len(p), nil
}
