// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package dirstore keeps releases in a local directory, one
// subdirectory per tag:
//
//	<root>/<tag>/.tag            commit the tag points at
//	<root>/<tag>/.release.json   release metadata
//	<root>/<tag>/<asset>         uploaded assets
//
// It is used for dry runs and as the reference store in tests.
package dirstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/release"
)

const (
	tagFile     = ".tag"
	releaseFile = ".release.json"
)

// Store is a directory-backed [release.Store].
type Store struct {
	Root string
}

func (store Store) path(tag string, name string) (string, error) {
	if tag == "" || strings.ContainsAny(tag, `/\`) || strings.HasPrefix(tag, ".") {
		return "", fmt.Errorf("invalid tag name %q", tag)
	}
	if name != "" && (strings.ContainsAny(name, `/\`) || name == "." || name == "..") {
		return "", fmt.Errorf("invalid asset name %q", name)
	}
	return filepath.Join(store.Root, tag, name), nil
}

func exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}

func (store Store) TagExists(_ context.Context, tag string) (bool, error) {
	path, err := store.path(tag, tagFile)
	if err != nil {
		return false, err
	}
	return exists(path)
}

func (store Store) CreateTag(_ context.Context, tag, commit string) error {
	path, err := store.path(tag, tagFile)
	if err != nil {
		return err
	}
	return writeAtomic(path, strings.NewReader(commit+"\n"))
}

func (store Store) ReleaseExists(_ context.Context, tag string) (bool, error) {
	path, err := store.path(tag, releaseFile)
	if err != nil {
		return false, err
	}
	return exists(path)
}

func (store Store) CreateRelease(_ context.Context, metadata release.Release) error {
	path, err := store.path(metadata.Tag, releaseFile)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, strings.NewReader(string(data)+"\n"))
}

// Release reads back the metadata stored for tag.
func (store Store) Release(tag string) (release.Release, error) {
	var metadata release.Release
	path, err := store.path(tag, releaseFile)
	if err != nil {
		return metadata, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return metadata, err
	}
	if err := json.Unmarshal(data, &metadata); err != nil {
		return metadata, fmt.Errorf("decoding %s: %w", path, err)
	}
	return metadata, nil
}

// UploadAsset copies the asset into the tag directory, replacing any
// previous asset of the same name.
func (store Store) UploadAsset(_ context.Context, tag string, asset release.Asset) error {
	path, err := store.path(tag, asset.Name)
	if err != nil {
		return err
	}
	if strings.HasPrefix(asset.Name, ".") {
		return fmt.Errorf("invalid asset name %q", asset.Name)
	}
	source, err := os.Open(asset.Path)
	if err != nil {
		return err
	}
	defer source.Close()
	return writeAtomic(path, source)
}

func (store Store) ListAssets(_ context.Context, tag string) ([]string, error) {
	dir, err := store.path(tag, "")
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.Type().IsRegular() && !strings.HasPrefix(entry.Name(), ".") {
			names = append(names, entry.Name())
		}
	}
	slices.Sort(names)
	return names, nil
}

func writeAtomic(path string, content io.Reader) error {
	directory := filepath.Dir(path)
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return err
	}
	temporary, err := os.CreateTemp(directory, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	temporaryPath := temporary.Name()
	if _, err := io.Copy(temporary, content); err != nil {
		temporary.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := temporary.Close(); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	if err := os.Chmod(temporaryPath, 0o644); err != nil {
		os.Remove(temporaryPath)
		return err
	}
	return os.Rename(temporaryPath, path)
}
