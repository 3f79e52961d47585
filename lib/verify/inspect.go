// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package verify

import (
	"bytes"
	"debug/elf"
	"debug/macho"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
)

// Format is the binary format of a file as far as verification cares.
type Format string

const (
	FormatUnknown       Format = "unknown"
	FormatStaticArchive Format = "static-archive"
	// FormatThinArchive is an archive that references its members by
	// path instead of containing them. It is useless once copied off
	// the build machine.
	FormatThinArchive Format = "thin-archive"
	FormatShared      Format = "shared"
	FormatObject      Format = "object"
	FormatExecutable  Format = "executable"
)

// Inspector reports the binary format of a file.
type Inspector interface {
	Inspect(path string) (Format, error)
}

// headerSize covers the longest prefix any recognized format needs:
// the ELF e_type field at offset 16 and the Mach-O filetype at 12.
const headerSize = 20

var (
	archiveMagic     = []byte("!<arch>\n")
	thinArchiveMagic = []byte("!<thin>\n")
)

// MagicInspector identifies formats from their leading bytes. It reads
// at most a few bytes from each file and never executes tools.
type MagicInspector struct{}

// Inspect reads the header of path. Files too short to carry any
// recognized header are FormatUnknown, not errors.
func (MagicInspector) Inspect(path string) (Format, error) {
	file, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer file.Close()

	header := make([]byte, headerSize)
	count, err := io.ReadFull(file, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, fmt.Errorf("reading header of %s: %w", path, err)
	}
	return classify(header[:count]), nil
}

func classify(header []byte) Format {
	switch {
	case bytes.HasPrefix(header, archiveMagic):
		return FormatStaticArchive
	case bytes.HasPrefix(header, thinArchiveMagic):
		return FormatThinArchive
	case bytes.HasPrefix(header, []byte(elf.ELFMAG)):
		return classifyELF(header)
	}
	return classifyMachO(header)
}

func classifyELF(header []byte) Format {
	if len(header) < 18 {
		return FormatUnknown
	}
	var order binary.ByteOrder
	switch elf.Data(header[elf.EI_DATA]) {
	case elf.ELFDATA2LSB:
		order = binary.LittleEndian
	case elf.ELFDATA2MSB:
		order = binary.BigEndian
	default:
		return FormatUnknown
	}
	switch elf.Type(order.Uint16(header[16:18])) {
	case elf.ET_DYN:
		return FormatShared
	case elf.ET_REL:
		return FormatObject
	case elf.ET_EXEC:
		return FormatExecutable
	}
	return FormatUnknown
}

func classifyMachO(header []byte) Format {
	if len(header) < 16 {
		return FormatUnknown
	}
	var order binary.ByteOrder
	switch binary.LittleEndian.Uint32(header[0:4]) {
	case macho.Magic32, macho.Magic64:
		order = binary.LittleEndian
	default:
		switch binary.BigEndian.Uint32(header[0:4]) {
		case macho.Magic32, macho.Magic64:
			order = binary.BigEndian
		default:
			return FormatUnknown
		}
	}
	switch macho.Type(order.Uint32(header[12:16])) {
	case macho.TypeDylib:
		return FormatShared
	case macho.TypeObj:
		return FormatObject
	case macho.TypeExec:
		return FormatExecutable
	}
	return FormatUnknown
}
