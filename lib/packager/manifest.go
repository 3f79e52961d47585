// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packager

import (
	"fmt"
	"strings"
)

// Manifest describes one archive. Every field but SourceDir becomes
// part of the archive name.
type Manifest struct {
	PackageBase string `json:"package_base" cbor:"package_base"`
	Version     string `json:"version" cbor:"version"`
	Platform    string `json:"platform" cbor:"platform"`
	OS          string `json:"os" cbor:"os"`
	ToolchainID string `json:"toolchain_id" cbor:"toolchain_id"`
	Extension   string `json:"extension" cbor:"extension"`

	// SourceDir overrides the install tree to archive. Empty means the
	// build result's install directory.
	SourceDir string `json:"source_dir,omitempty" cbor:"source_dir,omitempty"`
}

// PackageName is "<base>-<version>-<platform>-<os>-<toolchain>". It is
// also the top-level directory inside the archive.
func (manifest Manifest) PackageName() string {
	return strings.Join([]string{
		manifest.PackageBase,
		manifest.Version,
		manifest.Platform,
		manifest.OS,
		manifest.ToolchainID,
	}, "-")
}

// FileName is PackageName plus the archive extension.
func (manifest Manifest) FileName() string {
	return manifest.PackageName() + "." + manifest.Extension
}

// Validate checks that every name component is present and safe to use
// in a file name.
func (manifest Manifest) Validate() error {
	components := []struct {
		field string
		value string
	}{
		{"package base", manifest.PackageBase},
		{"version", manifest.Version},
		{"platform", manifest.Platform},
		{"os", manifest.OS},
		{"toolchain id", manifest.ToolchainID},
	}
	for _, component := range components {
		if component.value == "" {
			return fmt.Errorf("%s is empty", component.field)
		}
		if strings.ContainsAny(component.value, `/\`) || component.value == "." || component.value == ".." {
			return fmt.Errorf("%s %q is not a valid file name component", component.field, component.value)
		}
	}
	if !Supported(manifest.Extension) {
		return fmt.Errorf("unsupported archive extension %q (supported: %s)", manifest.Extension, strings.Join(Extensions(), ", "))
	}
	return nil
}
