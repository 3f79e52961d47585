// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package github

import (
	"fmt"
	"strings"
	"time"
)

// Repo identifies a repository as owner/name.
type Repo struct {
	Owner string
	Name  string
}

// ParseRepo parses "owner/name". Both halves must be non-empty and
// contain no further slashes.
func ParseRepo(fullName string) (Repo, error) {
	owner, name, found := strings.Cut(fullName, "/")
	if !found || owner == "" || name == "" || strings.Contains(name, "/") {
		return Repo{}, fmt.Errorf("github: invalid repository %q (want owner/name)", fullName)
	}
	return Repo{Owner: owner, Name: name}, nil
}

func (repo Repo) String() string {
	return repo.Owner + "/" + repo.Name
}

// Tag is an entry from the repository tags listing.
type Tag struct {
	Name   string    `json:"name"`
	Commit CommitRef `json:"commit"`
}

// CommitRef is the abbreviated commit object embedded in tag listings.
type CommitRef struct {
	SHA string `json:"sha"`
}

// Ref is a git reference (branch or tag).
type Ref struct {
	Ref    string    `json:"ref"` // "refs/tags/..."
	Object GitObject `json:"object"`
}

// GitObject is the object a Ref points to.
type GitObject struct {
	SHA  string `json:"sha"`
	Type string `json:"type"` // "commit" or "tag"
}

// Release is a GitHub release.
type Release struct {
	ID              int64          `json:"id"`
	TagName         string         `json:"tag_name"`
	TargetCommitish string         `json:"target_commitish"`
	Name            string         `json:"name"`
	Body            string         `json:"body"`
	Draft           bool           `json:"draft"`
	Prerelease      bool           `json:"prerelease"`
	HTMLURL         string         `json:"html_url"`
	CreatedAt       time.Time      `json:"created_at"`
	Assets          []ReleaseAsset `json:"assets"`
}

// ReleaseAsset is a file attached to a release.
type ReleaseAsset struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	Size               int64  `json:"size"`
	ContentType        string `json:"content_type"`
	State              string `json:"state"` // "uploaded" or "open"
	BrowserDownloadURL string `json:"browser_download_url"`
}

// CreateReleaseRequest contains the fields for creating a release.
type CreateReleaseRequest struct {
	TagName         string `json:"tag_name"`
	TargetCommitish string `json:"target_commitish,omitempty"`
	Name            string `json:"name"`
	Body            string `json:"body"`
	Draft           bool   `json:"draft"`
	Prerelease      bool   `json:"prerelease"`
}
