// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package buildjob

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bureau-foundation/staticrel/lib/git"
)

// Fetcher materializes a source tree at ref in dir and returns the
// commit that was checked out.
type Fetcher interface {
	Fetch(ctx context.Context, dir, ref string) (commit string, err error)
}

// FetchError reports that neither fetch tier produced a checkout.
type FetchError struct {
	Ref     string
	Shallow error
	Full    error
}

func (err *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: shallow fetch: %v; full fetch: %v", err.Ref, err.Shallow, err.Full)
}

// Unwrap exposes both tier failures to errors.Is and errors.As.
func (err *FetchError) Unwrap() []error {
	return []error{err.Shallow, err.Full}
}

// GitFetcher fetches from a git remote in two tiers. The shallow tier
// fetches exactly the ref at depth 1, which works for branch and tag
// names. When the server will not serve the ref that way (an arbitrary
// commit SHA, typically), the full tier fetches all history and checks
// the ref out locally. The full tier runs only after the shallow tier
// failed, and runs once.
type GitFetcher struct {
	// URL is the remote repository.
	URL string

	Logger *slog.Logger
}

// Fetch checks out ref in dir, creating the repository if needed.
func (fetcher GitFetcher) Fetch(ctx context.Context, dir, ref string) (string, error) {
	logger := fetcher.Logger
	if logger == nil {
		logger = slog.Default()
	}

	repo := git.NewRepository(dir)
	if err := repo.Init(ctx); err != nil {
		return "", &FetchError{Ref: ref, Shallow: err, Full: errors.New("not attempted")}
	}
	if err := repo.SetRemote(ctx, "origin", fetcher.URL); err != nil {
		return "", &FetchError{Ref: ref, Shallow: err, Full: errors.New("not attempted")}
	}

	shallowErr := repo.ShallowFetch(ctx, "origin", ref)
	if shallowErr == nil {
		return repo.HeadCommit(ctx)
	}
	if ctx.Err() != nil {
		return "", &FetchError{Ref: ref, Shallow: shallowErr, Full: ctx.Err()}
	}
	logger.Info("shallow fetch failed, fetching full history", "ref", ref, "error", shallowErr)

	fullErr := repo.FullFetch(ctx, "origin")
	if fullErr == nil {
		fullErr = repo.Checkout(ctx, ref)
		// Branch names only exist as remote-tracking refs after a
		// full fetch.
		if fullErr != nil && repo.Checkout(ctx, "origin/"+ref) == nil {
			fullErr = nil
		}
	}
	if fullErr != nil {
		return "", &FetchError{Ref: ref, Shallow: shallowErr, Full: fullErr}
	}
	return repo.HeadCommit(ctx)
}
