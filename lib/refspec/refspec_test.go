// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package refspec

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// staticTags is a TagSource over a fixed list.
type staticTags struct {
	tags  []string
	err   error
	calls int
}

func (source *staticTags) ListTags(context.Context) ([]string, error) {
	source.calls++
	return source.tags, source.err
}

func TestResolve_Latest(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		tags        []string
		prefix      string
		wantRef     string
		wantVersion string
	}{
		{
			name:        "numeric not lexicographic",
			tags:        []string{"v2", "v10", "v9"},
			prefix:      "v",
			wantRef:     "v10",
			wantVersion: "10",
		},
		{
			name:        "llvm tags with noise",
			tags:        []string{"llvmorg-17.0.6", "llvmorg-18.1.0-rc3", "llvmorg-18.1.8", "llvmorg-9.0.1", "release/18.x", "llvmorg-18.1.10-init"},
			prefix:      "llvmorg-",
			wantRef:     "llvmorg-18.1.8",
			wantVersion: "18.1.8",
		},
		{
			name:        "patch compared numerically",
			tags:        []string{"llvmorg-18.1.9", "llvmorg-18.1.10"},
			prefix:      "llvmorg-",
			wantRef:     "llvmorg-18.1.10",
			wantVersion: "18.1.10",
		},
		{
			name:        "mixed component counts",
			tags:        []string{"r1.2", "r1.10", "r1.9.9"},
			prefix:      "r",
			wantRef:     "r1.10",
			wantVersion: "1.10",
		},
		{
			name:        "equal versions ordered by name",
			tags:        []string{"v18.1.0", "v18.1"},
			prefix:      "v",
			wantRef:     "v18.1.0",
			wantVersion: "18.1.0",
		},
		{
			name:        "empty prefix",
			tags:        []string{"1.0.0", "2.0.0", "v3.0.0"},
			prefix:      "",
			wantRef:     "2.0.0",
			wantVersion: "2.0.0",
		},
		{
			name:        "leading zeros and four components ignored",
			tags:        []string{"p01.0.0", "p1.0.0", "p9.0.0.1"},
			prefix:      "p",
			wantRef:     "p1.0.0",
			wantVersion: "1.0.0",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			source := &staticTags{tags: test.tags}
			spec, err := Resolve(context.Background(), "", source, Convention{Prefix: test.prefix})
			if err != nil {
				t.Fatalf("Resolve: %v", err)
			}
			if spec.ResolvedRef != test.wantRef || spec.Version != test.wantVersion || spec.ExplicitRef != "" {
				t.Errorf("Resolve = %+v, want ref %q version %q", spec, test.wantRef, test.wantVersion)
			}
		})
	}
}

func TestResolve_ListingOrderIrrelevant(t *testing.T) {
	t.Parallel()

	tags := []string{"v1.0.0", "v1.10.0", "v1.2.0", "v1.9.0"}
	for rotation := range tags {
		rotated := append(append([]string{}, tags[rotation:]...), tags[:rotation]...)
		spec, err := Resolve(context.Background(), "", &staticTags{tags: rotated}, Convention{Prefix: "v"})
		if err != nil {
			t.Fatalf("rotation %d: %v", rotation, err)
		}
		if spec.ResolvedRef != "v1.10.0" {
			t.Errorf("rotation %d: got %q", rotation, spec.ResolvedRef)
		}
	}
}

func TestResolve_Explicit(t *testing.T) {
	t.Parallel()

	tests := []struct {
		ref         string
		wantVersion string
	}{
		{ref: "abc123", wantVersion: "abc123"},
		{ref: "llvmorg-18.1.0", wantVersion: "18.1.0"},
		{ref: "llvmorg-18.1.0-rc1", wantVersion: "18.1.0-rc1"},
		{ref: "main", wantVersion: "main"},
	}
	for _, test := range tests {
		source := &staticTags{err: errors.New("must not be called")}
		spec, err := Resolve(context.Background(), test.ref, source, Convention{Prefix: "llvmorg-"})
		if err != nil {
			t.Fatalf("Resolve(%q): %v", test.ref, err)
		}
		if spec.ExplicitRef != test.ref || spec.ResolvedRef != test.ref || spec.Version != test.wantVersion {
			t.Errorf("Resolve(%q) = %+v, want version %q", test.ref, spec, test.wantVersion)
		}
		if source.calls != 0 {
			t.Errorf("explicit ref %q consulted the tag source", test.ref)
		}
	}
}

func TestResolve_Errors(t *testing.T) {
	t.Parallel()

	listingFailure := errors.New("connection refused")
	tests := []struct {
		name       string
		explicit   string
		source     TagSource
		wantCause  error
		wantInText string
	}{
		{
			name:       "no matching tags",
			source:     &staticTags{tags: []string{"llvmorg-18.1.0-rc1", "release/17.x"}},
			wantInText: "none of 2 tags match",
		},
		{
			name:       "empty listing",
			source:     &staticTags{},
			wantInText: "no tags",
		},
		{
			name:       "listing failure",
			source:     &staticTags{err: listingFailure},
			wantCause:  listingFailure,
			wantInText: "connection refused",
		},
		{
			name:       "nil source",
			wantInText: "no tag source",
		},
		{
			name:       "explicit ref with path separator",
			explicit:   "release/18.x",
			source:     &staticTags{},
			wantInText: "path separator",
		},
		{
			name:       "explicit ref that is only the prefix",
			explicit:   "llvmorg-",
			source:     &staticTags{},
			wantInText: "empty version",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			_, err := Resolve(context.Background(), test.explicit, test.source, Convention{Prefix: "llvmorg-"})
			var resolutionError *ResolutionError
			if !errors.As(err, &resolutionError) {
				t.Fatalf("expected *ResolutionError, got %v", err)
			}
			if test.wantCause != nil && !errors.Is(err, test.wantCause) {
				t.Errorf("error does not wrap cause: %v", err)
			}
			if !strings.Contains(err.Error(), test.wantInText) {
				t.Errorf("error %q does not mention %q", err, test.wantInText)
			}
		})
	}
}

func TestStableVersion(t *testing.T) {
	t.Parallel()

	convention := Convention{Prefix: "llvmorg-"}
	accepted := []string{"llvmorg-1", "llvmorg-18.1", "llvmorg-18.1.8", "llvmorg-0.0.1"}
	rejected := []string{"llvmorg-", "llvmorg-18.1.8-rc1", "llvmorg-18.1.8+build", "llvmorg-v18.1.8", "18.1.8", "llvmorg-18..1", "llvmorg-1.2.3.4"}
	for _, tag := range accepted {
		if _, ok := convention.StableVersion(tag); !ok {
			t.Errorf("StableVersion(%q) rejected", tag)
		}
	}
	for _, tag := range rejected {
		if version, ok := convention.StableVersion(tag); ok {
			t.Errorf("StableVersion(%q) accepted as %q", tag, version)
		}
	}
}
