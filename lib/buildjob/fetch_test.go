// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildjob

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/staticrel/lib/testutil"
)

func TestGitFetcher(t *testing.T) {
	t.Parallel()

	upstream := testutil.InitRepo(t, map[string]string{"a.txt": "1", "b.txt": "2"}, "llvmorg-18.1.0")
	tagCommit := testutil.Git(t, upstream, "rev-parse", "HEAD")
	firstCommit := testutil.Git(t, upstream, "rev-list", "--max-parents=0", "HEAD")
	fetcher := GitFetcher{URL: "file://" + upstream}

	tests := []struct {
		name       string
		ref        string
		wantCommit string
	}{
		{name: "tag", ref: "llvmorg-18.1.0", wantCommit: tagCommit},
		{name: "branch", ref: "main", wantCommit: tagCommit},
		{name: "unadvertised commit", ref: firstCommit, wantCommit: firstCommit},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			dir := filepath.Join(t.TempDir(), "src")
			commit, err := fetcher.Fetch(context.Background(), dir, test.ref)
			if err != nil {
				t.Fatalf("Fetch(%s): %v", test.ref, err)
			}
			if commit != test.wantCommit {
				t.Errorf("commit = %s, want %s", commit, test.wantCommit)
			}
		})
	}
}

func TestGitFetcher_ReusesDirectory(t *testing.T) {
	t.Parallel()

	upstream := testutil.InitRepo(t, map[string]string{"a.txt": "1", "b.txt": "2"}, "v2")
	first := testutil.Git(t, upstream, "rev-list", "--max-parents=0", "HEAD")
	fetcher := GitFetcher{URL: "file://" + upstream}
	dir := filepath.Join(t.TempDir(), "src")

	if _, err := fetcher.Fetch(context.Background(), dir, "v2"); err != nil {
		t.Fatalf("first Fetch: %v", err)
	}
	commit, err := fetcher.Fetch(context.Background(), dir, first)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if commit != first {
		t.Errorf("commit = %s, want %s", commit, first)
	}
}

func TestGitFetcher_BothTiersFail(t *testing.T) {
	t.Parallel()

	upstream := testutil.InitRepo(t, map[string]string{"a.txt": "1"})
	fetcher := GitFetcher{URL: "file://" + upstream}

	_, err := fetcher.Fetch(context.Background(), filepath.Join(t.TempDir(), "src"), "no-such-ref")
	var fetchError *FetchError
	if !errors.As(err, &fetchError) {
		t.Fatalf("expected *FetchError, got %v", err)
	}
	if fetchError.Shallow == nil || fetchError.Full == nil {
		t.Errorf("both tiers should report: %+v", fetchError)
	}
}
