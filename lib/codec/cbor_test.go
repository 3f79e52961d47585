// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package codec

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

type record struct {
	Toolchain string            `json:"toolchain"`
	Status    string            `json:"status"`
	StartedAt time.Time         `json:"started_at"`
	Labels    map[string]string `json:"labels,omitempty"`
}

func TestMarshal_Deterministic(t *testing.T) {
	t.Parallel()

	value := record{
		Toolchain: "gcc",
		Status:    "success",
		Labels:    map[string]string{"z": "1", "a": "2", "m": "3"},
	}
	first, err := Marshal(value)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	for range 10 {
		again, err := Marshal(value)
		if err != nil {
			t.Fatalf("Marshal: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("Marshal produced different bytes for the same value")
		}
	}
}

func TestWriteFile_ReadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "records", "gcc.cbor")
	started := time.Date(2026, 3, 1, 12, 0, 0, 500, time.UTC)
	if err := WriteFile(path, record{Toolchain: "gcc", Status: "failed", StartedAt: started}); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var decoded record
	if err := ReadFile(path, &decoded); err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if decoded.Toolchain != "gcc" || decoded.Status != "failed" {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", decoded.StartedAt, started)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want only the record (no leftover temp files)", len(entries))
	}
}

func TestReadFile_Corrupt(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "bad.cbor")
	if err := os.WriteFile(path, []byte{0xff, 0x00, 0x13}, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	var decoded record
	err := ReadFile(path, &decoded)
	if err == nil {
		t.Fatal("expected decode error")
	}
	if !strings.Contains(err.Error(), path) {
		t.Errorf("error %q should name the file", err)
	}
}
