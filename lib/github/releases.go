// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// GetReleaseByTag returns the release attached to tag. A tag with no
// release is an *APIError satisfying IsNotFound.
func (client *Client) GetReleaseByTag(ctx context.Context, repo Repo, tag string) (*Release, error) {
	var release Release
	path := fmt.Sprintf("/repos/%s/%s/releases/tags/%s", repo.Owner, repo.Name, url.PathEscape(tag))
	if err := client.get(ctx, path, &release); err != nil {
		return nil, fmt.Errorf("getting release %s in %s: %w", tag, repo, err)
	}
	return &release, nil
}

// CreateRelease creates a release for an existing or new tag.
func (client *Client) CreateRelease(ctx context.Context, repo Repo, request CreateReleaseRequest) (*Release, error) {
	var release Release
	path := fmt.Sprintf("/repos/%s/%s/releases", repo.Owner, repo.Name)
	if err := client.post(ctx, path, request, &release); err != nil {
		return nil, fmt.Errorf("creating release %s in %s: %w", request.TagName, repo, err)
	}
	return &release, nil
}

// ListReleaseAssets returns an iterator over a release's assets.
func (client *Client) ListReleaseAssets(repo Repo, releaseID int64) *PageIterator[ReleaseAsset] {
	return list[ReleaseAsset](client, fmt.Sprintf("/repos/%s/%s/releases/%d/assets", repo.Owner, repo.Name, releaseID))
}

// DeleteReleaseAsset removes an asset from its release.
func (client *Client) DeleteReleaseAsset(ctx context.Context, repo Repo, assetID int64) error {
	path := fmt.Sprintf("/repos/%s/%s/releases/assets/%d", repo.Owner, repo.Name, assetID)
	if err := client.delete(ctx, path); err != nil {
		return fmt.Errorf("deleting asset %d in %s: %w", assetID, repo, err)
	}
	return nil
}

// UploadReleaseAsset streams content to the upload host as a new asset
// named name. GitHub rejects a name that already exists on the release
// (IsAlreadyExists); callers that want replacement delete first.
func (client *Client) UploadReleaseAsset(ctx context.Context, repo Repo, releaseID int64, name string, content io.ReadSeeker, size int64) (*ReleaseAsset, error) {
	request := apiRequest{
		method: http.MethodPost,
		url: fmt.Sprintf("%s/repos/%s/%s/releases/%d/assets?name=%s",
			client.uploadBaseURL, repo.Owner, repo.Name, releaseID, url.QueryEscape(name)),
		body:          content,
		contentType:   "application/octet-stream",
		contentLength: size,
	}
	body, _, err := client.do(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("uploading %s to release %d in %s: %w", name, releaseID, repo, err)
	}
	var asset ReleaseAsset
	if err := json.Unmarshal(body, &asset); err != nil {
		return nil, fmt.Errorf("decoding uploaded asset %s: %w", name, err)
	}
	return &asset, nil
}
