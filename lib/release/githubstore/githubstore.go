// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package githubstore publishes releases to a GitHub repository
// through the REST API.
package githubstore

import (
	"context"
	"fmt"
	"os"

	"github.com/bureau-foundation/staticrel/lib/github"
	"github.com/bureau-foundation/staticrel/lib/release"
)

// Store is a GitHub-backed [release.Store]. Tags are lightweight refs;
// releases are GitHub releases of the same name.
type Store struct {
	Client *github.Client
	Repo   github.Repo
}

func (store Store) TagExists(ctx context.Context, tag string) (bool, error) {
	_, err := store.Client.GetTagRef(ctx, store.Repo, tag)
	if github.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

// CreateTag treats a tag created concurrently by another publisher as
// success.
func (store Store) CreateTag(ctx context.Context, tag, commit string) error {
	_, err := store.Client.CreateTagRef(ctx, store.Repo, tag, commit)
	if github.IsAlreadyExists(err) {
		return nil
	}
	return err
}

func (store Store) ReleaseExists(ctx context.Context, tag string) (bool, error) {
	_, err := store.Client.GetReleaseByTag(ctx, store.Repo, tag)
	if github.IsNotFound(err) {
		return false, nil
	}
	return err == nil, err
}

func (store Store) CreateRelease(ctx context.Context, metadata release.Release) error {
	_, err := store.Client.CreateRelease(ctx, store.Repo, github.CreateReleaseRequest{
		TagName:         metadata.Tag,
		TargetCommitish: metadata.Commit,
		Name:            metadata.Title,
		Body:            metadata.Notes,
		Prerelease:      metadata.Prerelease,
	})
	if github.IsAlreadyExists(err) {
		return nil
	}
	return err
}

// UploadAsset deletes any asset already attached under the same name,
// then uploads. GitHub refuses duplicate names outright, so replacement
// is delete-then-create.
func (store Store) UploadAsset(ctx context.Context, tag string, asset release.Asset) error {
	target, err := store.Client.GetReleaseByTag(ctx, store.Repo, tag)
	if err != nil {
		return err
	}
	existing, err := store.Client.ListReleaseAssets(store.Repo, target.ID).Collect(ctx)
	if err != nil {
		return err
	}
	for _, candidate := range existing {
		if candidate.Name != asset.Name {
			continue
		}
		if err := store.Client.DeleteReleaseAsset(ctx, store.Repo, candidate.ID); err != nil && !github.IsNotFound(err) {
			return fmt.Errorf("replacing %s: %w", asset.Name, err)
		}
	}

	file, err := os.Open(asset.Path)
	if err != nil {
		return err
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return err
	}
	_, err = store.Client.UploadReleaseAsset(ctx, store.Repo, target.ID, asset.Name, file, info.Size())
	return err
}

func (store Store) ListAssets(ctx context.Context, tag string) ([]string, error) {
	target, err := store.Client.GetReleaseByTag(ctx, store.Repo, tag)
	if err != nil {
		return nil, err
	}
	assets, err := store.Client.ListReleaseAssets(store.Repo, target.ID).Collect(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(assets))
	for index, asset := range assets {
		names[index] = asset.Name
	}
	return names, nil
}
