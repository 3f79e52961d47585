// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package refspec decides which upstream ref a run builds and what
// version string that ref stands for.
//
// An explicit ref (a tag, branch, or commit SHA) is used verbatim. With
// no explicit ref, the newest stable release tag is chosen from a
// [TagSource]: tags shaped "<prefix><major>[.<minor>[.<patch>]]" are
// ordered by numeric semantic version, so llvmorg-10.0.0 sorts above
// llvmorg-9.0.1 even though it is lexically smaller. Pre-release and
// build-suffixed tags (llvmorg-18.1.0-rc1) are never candidates.
package refspec

import (
	"context"
	"fmt"
	"regexp"
	"slices"
	"strings"

	"golang.org/x/mod/semver"
)

// TagSource lists the tag names of an upstream repository.
type TagSource interface {
	ListTags(ctx context.Context) ([]string, error)
}

// Convention describes how release tags are named.
type Convention struct {
	// Prefix precedes the version in tag names. May be empty.
	Prefix string
}

var stableVersion = regexp.MustCompile(`^[0-9]+(\.[0-9]+){0,2}$`)

// StableVersion returns the version carried by tag when tag is a stable
// release tag under this convention.
func (convention Convention) StableVersion(tag string) (string, bool) {
	version, found := strings.CutPrefix(tag, convention.Prefix)
	if !found || !stableVersion.MatchString(version) {
		return "", false
	}
	// semver rejects leading zeros ("01.2"), which are not releases.
	if !semver.IsValid("v" + version) {
		return "", false
	}
	return version, true
}

// RefSpec is the outcome of resolution. It is a value: nothing changes
// it after Resolve returns.
type RefSpec struct {
	// ExplicitRef is the ref the caller asked for, empty when the
	// latest release was requested.
	ExplicitRef string

	// ResolvedRef is what the fetcher checks out.
	ResolvedRef string

	// Version is ResolvedRef without the tag prefix. Non-empty and free
	// of path separators.
	Version string
}

// ResolutionError reports that no usable ref could be determined.
type ResolutionError struct {
	// Ref is the explicit ref, or empty for latest-release resolution.
	Ref    string
	Reason string
	Err    error
}

func (err *ResolutionError) Error() string {
	subject := "latest release"
	if err.Ref != "" {
		subject = fmt.Sprintf("ref %q", err.Ref)
	}
	if err.Err != nil {
		return fmt.Sprintf("resolving %s: %s: %v", subject, err.Reason, err.Err)
	}
	return fmt.Sprintf("resolving %s: %s", subject, err.Reason)
}

func (err *ResolutionError) Unwrap() error {
	return err.Err
}

// Resolve determines the ref to build. A non-empty explicitRef is used
// verbatim and the source is not consulted. Otherwise the source's tags
// are filtered to stable releases under convention and the highest
// version wins.
func Resolve(ctx context.Context, explicitRef string, source TagSource, convention Convention) (RefSpec, error) {
	if explicitRef != "" {
		version, err := VersionOf(explicitRef, convention)
		if err != nil {
			return RefSpec{}, &ResolutionError{Ref: explicitRef, Reason: "invalid version", Err: err}
		}
		return RefSpec{ExplicitRef: explicitRef, ResolvedRef: explicitRef, Version: version}, nil
	}

	if source == nil {
		return RefSpec{}, &ResolutionError{Reason: "no tag source configured"}
	}
	tags, err := source.ListTags(ctx)
	if err != nil {
		return RefSpec{}, &ResolutionError{Reason: "listing tags", Err: err}
	}
	if len(tags) == 0 {
		return RefSpec{}, &ResolutionError{Reason: "tag source returned no tags"}
	}

	tag, version, found := Latest(tags, convention)
	if !found {
		return RefSpec{}, &ResolutionError{
			Reason: fmt.Sprintf("none of %d tags match %s<major>[.<minor>[.<patch>]]", len(tags), convention.Prefix),
		}
	}
	return RefSpec{ResolvedRef: tag, Version: version}, nil
}

// Latest returns the stable release tag with the highest version.
// Tags denoting the same version ("18.1" and "18.1.0") are ordered by
// name so the answer does not depend on listing order.
func Latest(tags []string, convention Convention) (tag, version string, found bool) {
	type candidate struct{ tag, version string }
	var candidates []candidate
	for _, tag := range tags {
		if version, ok := convention.StableVersion(tag); ok {
			candidates = append(candidates, candidate{tag: tag, version: version})
		}
	}
	if len(candidates) == 0 {
		return "", "", false
	}
	best := slices.MaxFunc(candidates, func(a, b candidate) int {
		if order := semver.Compare("v"+a.version, "v"+b.version); order != 0 {
			return order
		}
		return strings.Compare(a.tag, b.tag)
	})
	return best.tag, best.version, true
}

// VersionOf derives the version from a ref: the prefix is stripped
// when present and the ref is otherwise taken verbatim ("abc123" is
// version "abc123"). The version is embedded in file and tag names, so
// an empty result or one containing a path separator is an error.
func VersionOf(ref string, convention Convention) (string, error) {
	version := strings.TrimPrefix(ref, convention.Prefix)
	if version == "" {
		return "", fmt.Errorf("ref %q leaves an empty version after removing prefix %q", ref, convention.Prefix)
	}
	if strings.ContainsAny(version, `/\`) {
		return "", fmt.Errorf("version %q contains a path separator", version)
	}
	return version, nil
}
