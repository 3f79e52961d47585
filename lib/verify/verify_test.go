// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/bureau-foundation/staticrel/lib/buildjob"
)

// elfHeader returns the first bytes of a little-endian 64-bit ELF file
// of the given type.
func elfHeader(fileType elf.Type) []byte {
	header := make([]byte, 64)
	copy(header, elf.ELFMAG)
	header[elf.EI_CLASS] = byte(elf.ELFCLASS64)
	header[elf.EI_DATA] = byte(elf.ELFDATA2LSB)
	header[elf.EI_VERSION] = byte(elf.EV_CURRENT)
	binary.LittleEndian.PutUint16(header[16:], uint16(fileType))
	return header
}

func machOHeader(fileType macho.Type) []byte {
	header := make([]byte, 32)
	binary.LittleEndian.PutUint32(header[0:], macho.Magic64)
	binary.LittleEndian.PutUint32(header[12:], uint32(fileType))
	return header
}

var staticArchive = []byte("!<arch>\n/               0           0     0     0       4         `\n")

// writeTree creates files (relative path → content) under a fresh
// install directory.
func writeTree(t *testing.T, files map[string][]byte) string {
	t.Helper()
	root := t.TempDir()
	for path, content := range files {
		full := filepath.Join(root, path)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, content, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

func successful(installDir string) buildjob.Result {
	return buildjob.Result{Toolchain: "gcc", InstallDir: installDir, Status: buildjob.StatusSuccess}
}

func TestMagicInspector(t *testing.T) {
	t.Parallel()

	bigEndianShared := elfHeader(elf.ET_DYN)
	bigEndianShared[elf.EI_DATA] = byte(elf.ELFDATA2MSB)
	binary.BigEndian.PutUint16(bigEndianShared[16:], uint16(elf.ET_DYN))

	tests := []struct {
		name    string
		content []byte
		want    Format
	}{
		{"archive", staticArchive, FormatStaticArchive},
		{"thin archive", []byte("!<thin>\n"), FormatThinArchive},
		{"elf shared", elfHeader(elf.ET_DYN), FormatShared},
		{"elf shared big endian", bigEndianShared, FormatShared},
		{"elf relocatable", elfHeader(elf.ET_REL), FormatObject},
		{"elf executable", elfHeader(elf.ET_EXEC), FormatExecutable},
		{"elf core", elfHeader(elf.ET_CORE), FormatUnknown},
		{"truncated elf", []byte("\x7fELF\x02\x01"), FormatUnknown},
		{"mach-o dylib", machOHeader(macho.TypeDylib), FormatShared},
		{"mach-o object", machOHeader(macho.TypeObj), FormatObject},
		{"linker script", []byte("/* GNU ld script */\nGROUP ( libc.so.6 )\n"), FormatUnknown},
		{"empty", nil, FormatUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			path := filepath.Join(t.TempDir(), "file")
			if err := os.WriteFile(path, test.content, 0o644); err != nil {
				t.Fatal(err)
			}
			format, err := MagicInspector{}.Inspect(path)
			if err != nil {
				t.Fatalf("Inspect: %v", err)
			}
			if format != test.want {
				t.Errorf("format = %s, want %s", format, test.want)
			}
		})
	}
}

func TestMagicInspector_Missing(t *testing.T) {
	t.Parallel()

	if _, err := (MagicInspector{}).Inspect(filepath.Join(t.TempDir(), "missing")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected not-exist error, got %v", err)
	}
}

func TestVerify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		files        map[string][]byte
		rejectShared bool
		wantCheck    string
	}{
		{
			name:  "static only",
			files: map[string][]byte{"lib/liblldELF.a": staticArchive, "lib/liblldCommon.a": staticArchive, "include/lld/Common/Driver.h": nil},
		},
		{
			name:      "no library dir",
			files:     map[string][]byte{"bin/lld": elfHeader(elf.ET_EXEC)},
			wantCheck: CheckLibraryDir,
		},
		{
			name:      "library dir is a file",
			files:     map[string][]byte{"lib": staticArchive},
			wantCheck: CheckLibraryDir,
		},
		{
			name:      "no static libraries",
			files:     map[string][]byte{"lib/liblld.so": elfHeader(elf.ET_DYN)},
			wantCheck: CheckStaticPresent,
		},
		{
			name:      "dynamic content under static name",
			files:     map[string][]byte{"lib/liblld.a": elfHeader(elf.ET_DYN)},
			wantCheck: CheckStaticFormat,
		},
		{
			name:      "thin archive",
			files:     map[string][]byte{"lib/liblld.a": []byte("!<thin>\n")},
			wantCheck: CheckStaticFormat,
		},
		{
			name:  "static in subdirectory only counts as present",
			files: map[string][]byte{"lib/cmake/lld/LLDConfig.cmake": nil, "lib/clang/18/lib/libclang_rt.a": staticArchive},
		},
		{
			name:  "shared allowed by default",
			files: map[string][]byte{"lib/liblld.a": staticArchive, "lib/liblld.so": elfHeader(elf.ET_DYN)},
		},
		{
			name:         "shared rejected",
			files:        map[string][]byte{"lib/liblld.a": staticArchive, "lib/liblld.so.18": elfHeader(elf.ET_DYN)},
			rejectShared: true,
			wantCheck:    CheckNoShared,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()
			root := writeTree(t, test.files)
			err := Verifier{RejectShared: test.rejectShared}.Verify(successful(root))
			if test.wantCheck == "" {
				if err != nil {
					t.Fatalf("Verify: %v", err)
				}
				return
			}
			var verificationError *VerificationError
			if !errors.As(err, &verificationError) {
				t.Fatalf("expected *VerificationError, got %v", err)
			}
			if verificationError.Check != test.wantCheck {
				t.Errorf("check = %s, want %s (%v)", verificationError.Check, test.wantCheck, err)
			}
		})
	}
}

// recordingInspector fails the test if it is ever consulted.
type recordingInspector struct {
	t *testing.T
}

func (inspector recordingInspector) Inspect(path string) (Format, error) {
	inspector.t.Errorf("unexpected inspection of %s", path)
	return FormatUnknown, nil
}

func TestVerify_FailedResultNotInspected(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string][]byte{"lib/liblld.a": staticArchive})
	result := successful(root).Failed(buildjob.StageCompile, errors.New("exit status 1"))

	err := Verifier{Inspector: recordingInspector{t: t}}.Verify(result)
	var verificationError *VerificationError
	if !errors.As(err, &verificationError) || verificationError.Check != CheckBuildStatus {
		t.Fatalf("expected build-status failure, got %v", err)
	}
}

func TestVerify_CustomLayout(t *testing.T) {
	t.Parallel()

	root := writeTree(t, map[string][]byte{"lib64/libz.lib": staticArchive})
	verifier := Verifier{LibDir: "lib64", StaticExtension: ".lib"}
	if err := verifier.Verify(successful(root)); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}
