// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package release

import (
	"context"
)

// Release is the metadata of a release as handed to a store.
type Release struct {
	Tag        string `json:"tag"`
	Commit     string `json:"commit"`
	Title      string `json:"title"`
	Notes      string `json:"notes"`
	Prerelease bool   `json:"prerelease"`
}

// Asset is a local file to attach to a release under Name.
type Asset struct {
	Name string
	Path string
}

// Store is where tags, releases and their assets live. Every method is
// keyed by tag name. Implementations must make UploadAsset replace an
// existing asset of the same name; a store never holds two assets with
// one name under one tag.
type Store interface {
	TagExists(ctx context.Context, tag string) (bool, error)
	CreateTag(ctx context.Context, tag, commit string) error
	ReleaseExists(ctx context.Context, tag string) (bool, error)
	CreateRelease(ctx context.Context, release Release) error
	UploadAsset(ctx context.Context, tag string, asset Asset) error
	ListAssets(ctx context.Context, tag string) ([]string, error)
}

// CommitChecker reports whether a commit exists in the repository that
// releases are tagged in. [git.Repository] implements it.
type CommitChecker interface {
	CommitExists(ctx context.Context, commit string) (bool, error)
}
