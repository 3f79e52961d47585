// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package dirstore

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"testing"

	"github.com/bureau-foundation/staticrel/lib/release"
)

func TestStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := Store{Root: t.TempDir()}
	const tag = "x86_64-linux-v18.1.0-static"

	if exists, err := store.TagExists(ctx, tag); err != nil || exists {
		t.Fatalf("TagExists before create = %v, %v", exists, err)
	}
	if err := store.CreateTag(ctx, tag, "abc123"); err != nil {
		t.Fatal(err)
	}
	if exists, err := store.TagExists(ctx, tag); err != nil || !exists {
		t.Fatalf("TagExists after create = %v, %v", exists, err)
	}

	if exists, _ := store.ReleaseExists(ctx, tag); exists {
		t.Fatal("release exists before create")
	}
	metadata := release.Release{Tag: tag, Commit: "abc123", Title: "t", Notes: "n", Prerelease: true}
	if err := store.CreateRelease(ctx, metadata); err != nil {
		t.Fatal(err)
	}
	if stored, err := store.Release(tag); err != nil || stored != metadata {
		t.Fatalf("Release = %+v, %v", stored, err)
	}

	// Tag and release metadata are not assets.
	if assets, err := store.ListAssets(ctx, tag); err != nil || len(assets) != 0 {
		t.Fatalf("ListAssets = %v, %v", assets, err)
	}

	source := filepath.Join(t.TempDir(), "archive.tar.gz")
	for _, content := range []string{"first", "second"} {
		if err := os.WriteFile(source, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := store.UploadAsset(ctx, tag, release.Asset{Name: "llvm.tar.gz", Path: source}); err != nil {
			t.Fatal(err)
		}
	}
	assets, err := store.ListAssets(ctx, tag)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(assets, []string{"llvm.tar.gz"}) {
		t.Errorf("assets = %v", assets)
	}
	data, err := os.ReadFile(filepath.Join(store.Root, tag, "llvm.tar.gz"))
	if err != nil || string(data) != "second" {
		t.Errorf("asset content = %q, %v", data, err)
	}
}

func TestStore_InvalidNames(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := Store{Root: t.TempDir()}
	if err := store.CreateTag(ctx, "../escape", "abc"); err == nil {
		t.Error("tag with path separator accepted")
	}
	source := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(source, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{".tag", "a/b", ".."} {
		if err := store.UploadAsset(ctx, "v1", release.Asset{Name: name, Path: source}); err == nil {
			t.Errorf("asset name %q accepted", name)
		}
	}
}

func TestStore_ListMissingTag(t *testing.T) {
	t.Parallel()

	assets, err := Store{Root: t.TempDir()}.ListAssets(context.Background(), "v1")
	if err != nil || assets != nil {
		t.Errorf("ListAssets = %v, %v", assets, err)
	}
}
