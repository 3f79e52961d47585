// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"fmt"
	"net/url"
)

// ListTags returns an iterator over the repository's tags, most
// recently created first as GitHub orders them.
func (client *Client) ListTags(repo Repo) *PageIterator[Tag] {
	return list[Tag](client, fmt.Sprintf("/repos/%s/%s/tags", repo.Owner, repo.Name))
}

// GetTagRef returns the refs/tags/<tag> reference. A missing tag is an
// *APIError satisfying IsNotFound.
func (client *Client) GetTagRef(ctx context.Context, repo Repo, tag string) (*Ref, error) {
	var ref Ref
	path := fmt.Sprintf("/repos/%s/%s/git/ref/tags/%s", repo.Owner, repo.Name, url.PathEscape(tag))
	if err := client.get(ctx, path, &ref); err != nil {
		return nil, fmt.Errorf("getting tag %s in %s: %w", tag, repo, err)
	}
	return &ref, nil
}

// CreateTagRef creates a lightweight tag pointing at commit.
func (client *Client) CreateTagRef(ctx context.Context, repo Repo, tag, commit string) (*Ref, error) {
	var ref Ref
	request := struct {
		Ref string `json:"ref"`
		SHA string `json:"sha"`
	}{Ref: "refs/tags/" + tag, SHA: commit}

	path := fmt.Sprintf("/repos/%s/%s/git/refs", repo.Owner, repo.Name)
	if err := client.post(ctx, path, request, &ref); err != nil {
		return nil, fmt.Errorf("creating tag %s at %s in %s: %w", tag, commit, repo, err)
	}
	return &ref, nil
}

// RepoTags lists a GitHub repository's tag names. It is the API
// counterpart of git.RemoteTags for hosts where ls-remote is not an
// option.
type RepoTags struct {
	Client *Client
	Repo   Repo
}

// ListTags returns every tag name in the repository.
func (source RepoTags) ListTags(ctx context.Context) ([]string, error) {
	tags, err := source.Client.ListTags(source.Repo).Collect(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing tags of %s: %w", source.Repo, err)
	}
	names := make([]string, len(tags))
	for index, tag := range tags {
		names[index] = tag.Name
	}
	return names, nil
}
