// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
	"github.com/bureau-foundation/staticrel/lib/codec"
	"github.com/bureau-foundation/staticrel/lib/refspec"
)

// recordExtension is the file suffix of job records.
const recordExtension = ".cbor"

// Record is the durable outcome of one job: which run produced it, what
// was built, and the job result.
type Record struct {
	RunID       string          `json:"run_id" cbor:"run_id"`
	ExplicitRef string          `json:"explicit_ref,omitempty" cbor:"explicit_ref,omitempty"`
	Ref         string          `json:"ref" cbor:"ref"`
	Version     string          `json:"version" cbor:"version"`
	Result      buildjob.Result `json:"result" cbor:"result"`
}

// RefSpec returns the resolved ref the record was built from.
func (record Record) RefSpec() refspec.RefSpec {
	return refspec.RefSpec{ExplicitRef: record.ExplicitRef, ResolvedRef: record.Ref, Version: record.Version}
}

// RecordPath returns where the record of toolchainID lives in dir.
func RecordPath(dir, toolchainID string) string {
	return filepath.Join(dir, toolchainID+recordExtension)
}

// WriteRecord stores record in dir, replacing the previous record of
// the same toolchain.
func WriteRecord(dir string, record Record) error {
	return codec.WriteFile(RecordPath(dir, record.Result.Toolchain), record)
}

// ReadRecords loads every record in dir, ordered by toolchain ID. A
// missing directory holds no records.
func ReadRecords(dir string) ([]Record, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading results directory: %w", err)
	}
	var records []Record
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") || !strings.HasSuffix(entry.Name(), recordExtension) {
			continue
		}
		var record Record
		if err := codec.ReadFile(filepath.Join(dir, entry.Name()), &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	slices.SortFunc(records, func(a, b Record) int {
		return strings.Compare(a.Result.Toolchain, b.Result.Toolchain)
	})
	return records, nil
}

// FilterRun returns the records produced by runID.
func FilterRun(records []Record, runID string) []Record {
	var filtered []Record
	for _, record := range records {
		if record.RunID == runID {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// FilterVersion returns the records that built version.
func FilterVersion(records []Record, version string) []Record {
	var filtered []Record
	for _, record := range records {
		if record.Version == version {
			filtered = append(filtered, record)
		}
	}
	return filtered
}

// LatestVersion returns the version of the most recently started job
// in records, or "" for none. Matrix entries built by separate
// invocations share a version but not a run, so this is what publish
// selects by default.
func LatestVersion(records []Record) string {
	if len(records) == 0 {
		return ""
	}
	latest := slices.MaxFunc(records, func(a, b Record) int {
		return a.Result.StartedAt.Compare(b.Result.StartedAt)
	})
	return latest.Version
}
