// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package release publishes packaged artifacts as a tagged prerelease.
//
// Publishing is idempotent. Each piece of release state is checked
// before it is created: the tag, the release and every asset. A run
// that died after creating the tag but before the release is completed
// by the next run, and so is the reverse. Assets are uploaded with
// replace semantics, so publishing the same version twice leaves one
// tag, one release and one asset per file name.
//
// There is no locking. Concurrent publishers of the same tag race on
// creation; stores treat "already exists" on create as success.
package release

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
)

// Publish operations, as reported in [PublishError].
const (
	OpCheckVersion  = "check-version"
	OpVerifyCommit  = "verify-commit"
	OpCheckTag      = "check-tag"
	OpCreateTag     = "create-tag"
	OpCheckRelease  = "check-release"
	OpCreateRelease = "create-release"
	OpUploadAsset   = "upload-asset"
	OpListAssets    = "list-assets"
)

// PublishError reports the release operation that failed.
type PublishError struct {
	Op  string
	Tag string
	Err error
}

func (err *PublishError) Error() string {
	return fmt.Sprintf("publishing %s: %s: %v", err.Tag, err.Op, err.Err)
}

func (err *PublishError) Unwrap() error {
	return err.Err
}

// TagName returns the release tag for a version:
// "<platformTag>-v<version>-static".
func TagName(platformTag, version string) string {
	return platformTag + "-v" + version + "-static"
}

// Artifact is a packaged archive ready for upload.
type Artifact struct {
	Name      string `json:"name" cbor:"name"`
	Path      string `json:"path" cbor:"path"`
	Toolchain string `json:"toolchain" cbor:"toolchain"`
	Size      int64  `json:"size" cbor:"size"`
	Digest    string `json:"digest" cbor:"digest"`
}

// PublishRequest is everything one publish needs.
type PublishRequest struct {
	// Version is the source version being released.
	Version string

	// Commit is the commit the release tag points at.
	Commit string

	// SourceRef and SourceCommit identify what was built. They only
	// appear in the notes.
	SourceRef    string
	SourceCommit string

	Artifacts []Artifact

	// Toolchains holds the result of every attempted job, failed ones
	// included, for the notes.
	Toolchains []buildjob.Result
}

// Record describes what a publish did.
type Record struct {
	Tag               string   `json:"tag" cbor:"tag"`
	Commit            string   `json:"commit" cbor:"commit"`
	Title             string   `json:"title" cbor:"title"`
	Notes             string   `json:"notes" cbor:"notes"`
	Prerelease        bool     `json:"prerelease" cbor:"prerelease"`
	TagCreated        bool     `json:"tag_created" cbor:"tag_created"`
	ReleaseCreated    bool     `json:"release_created" cbor:"release_created"`
	UploadedArtifacts []string `json:"uploaded_artifacts" cbor:"uploaded_artifacts"`
}

// Manager publishes releases into a store.
type Manager struct {
	Store   Store
	Commits CommitChecker

	// PlatformTag is the first component of every tag name.
	PlatformTag string

	Logger *slog.Logger
}

// Publish creates the tag and release for request.Version if missing
// and uploads every artifact.
func (manager *Manager) Publish(ctx context.Context, request PublishRequest) (Record, error) {
	logger := manager.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tag := TagName(manager.PlatformTag, request.Version)
	fail := func(op string, err error) (Record, error) {
		return Record{}, &PublishError{Op: op, Tag: tag, Err: err}
	}
	logger = logger.With("tag", tag)

	if request.Version == "" {
		return fail(OpCheckVersion, errors.New("empty version"))
	}
	if request.Commit == "" {
		return fail(OpVerifyCommit, errors.New("no release commit"))
	}
	exists, err := manager.Commits.CommitExists(ctx, request.Commit)
	if err != nil {
		return fail(OpVerifyCommit, err)
	}
	if !exists {
		return fail(OpVerifyCommit, fmt.Errorf("commit %s does not exist", request.Commit))
	}

	record := Record{
		Tag:        tag,
		Commit:     request.Commit,
		Title:      Title(manager.PlatformTag, request.Version),
		Notes:      Notes(request),
		Prerelease: true,
	}

	tagExists, err := manager.Store.TagExists(ctx, tag)
	if err != nil {
		return fail(OpCheckTag, err)
	}
	if !tagExists {
		if err := manager.Store.CreateTag(ctx, tag, request.Commit); err != nil {
			return fail(OpCreateTag, err)
		}
		record.TagCreated = true
		logger.Info("created tag", "commit", request.Commit)
	}

	releaseExists, err := manager.Store.ReleaseExists(ctx, tag)
	if err != nil {
		return fail(OpCheckRelease, err)
	}
	if !releaseExists {
		err := manager.Store.CreateRelease(ctx, Release{
			Tag:        tag,
			Commit:     request.Commit,
			Title:      record.Title,
			Notes:      record.Notes,
			Prerelease: true,
		})
		if err != nil {
			return fail(OpCreateRelease, err)
		}
		record.ReleaseCreated = true
		logger.Info("created release", "title", record.Title)
	}

	for _, artifact := range request.Artifacts {
		if err := manager.Store.UploadAsset(ctx, tag, Asset{Name: artifact.Name, Path: artifact.Path}); err != nil {
			return fail(OpUploadAsset, fmt.Errorf("%s: %w", artifact.Name, err))
		}
		record.UploadedArtifacts = append(record.UploadedArtifacts, artifact.Name)
		logger.Info("uploaded asset", "asset", artifact.Name, "bytes", artifact.Size)
	}
	slices.Sort(record.UploadedArtifacts)
	record.UploadedArtifacts = slices.Compact(record.UploadedArtifacts)

	assets, err := manager.Store.ListAssets(ctx, tag)
	if err != nil {
		return fail(OpListAssets, err)
	}
	for _, name := range record.UploadedArtifacts {
		if !slices.Contains(assets, name) {
			return fail(OpListAssets, fmt.Errorf("uploaded asset %s is missing from the release", name))
		}
	}
	return record, nil
}

// Title is the human-readable release name.
func Title(platformTag, version string) string {
	return fmt.Sprintf("%s v%s (static)", platformTag, version)
}

// Notes renders the release notes: what was built, how every
// toolchain fared, and the digest of each uploaded artifact.
func Notes(request PublishRequest) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "Static build of version %s", request.Version)
	if request.SourceRef != "" {
		fmt.Fprintf(&builder, " from %s", request.SourceRef)
	}
	if request.SourceCommit != "" {
		fmt.Fprintf(&builder, " (%s)", request.SourceCommit)
	}
	builder.WriteString(".\n")

	if len(request.Toolchains) > 0 {
		builder.WriteString("\nToolchains:\n")
		for _, result := range request.Toolchains {
			if result.Succeeded() {
				fmt.Fprintf(&builder, "- %s: success\n", result.Toolchain)
				continue
			}
			fmt.Fprintf(&builder, "- %s: failed at %s: %s\n", result.Toolchain, result.Stage, firstLine(result.Reason))
		}
	}

	if len(request.Artifacts) > 0 {
		builder.WriteString("\nArtifacts (BLAKE3):\n")
		for _, artifact := range request.Artifacts {
			fmt.Fprintf(&builder, "- %s  %s\n", artifact.Digest, artifact.Name)
		}
	}
	return builder.String()
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}
