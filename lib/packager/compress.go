// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package packager

import (
	"fmt"
	"io"
	"slices"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the stream compression wrapped around the tar.
type Compression uint8

const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionLZ4
)

// String returns the human-readable name of a compression.
func (compression Compression) String() string {
	switch compression {
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", compression)
	}
}

// extensions maps archive file extensions to their compression.
var extensions = map[string]Compression{
	"tar":     CompressionNone,
	"tar.gz":  CompressionGzip,
	"tar.zst": CompressionZstd,
	"tar.lz4": CompressionLZ4,
}

// Supported reports whether ext (without a leading dot) is an archive
// extension the packager can produce.
func Supported(ext string) bool {
	_, ok := extensions[ext]
	return ok
}

// Extensions returns the supported archive extensions, sorted.
func Extensions() []string {
	names := make([]string, 0, len(extensions))
	for name := range extensions {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ParseExtension returns the compression for an archive extension.
func ParseExtension(ext string) (Compression, error) {
	compression, ok := extensions[ext]
	if !ok {
		return 0, fmt.Errorf("unsupported archive extension %q", ext)
	}
	return compression, nil
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// newCompressor wraps w. Closing the result flushes the compressed
// stream but does not close w.
func newCompressor(w io.Writer, compression Compression) (io.WriteCloser, error) {
	switch compression {
	case CompressionNone:
		return nopWriteCloser{w}, nil

	case CompressionGzip:
		// The gzip header carries no name or mtime unless set, which
		// keeps the output reproducible.
		return gzip.NewWriterLevel(w, gzip.BestCompression)

	case CompressionZstd:
		encoder, err := zstd.NewWriter(w,
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithEncoderConcurrency(1),
		)
		if err != nil {
			return nil, fmt.Errorf("zstd encoder: %w", err)
		}
		return encoder, nil

	case CompressionLZ4:
		writer := lz4.NewWriter(w)
		if err := writer.Apply(lz4.CompressionLevelOption(lz4.Level9), lz4.ConcurrencyOption(1)); err != nil {
			return nil, fmt.Errorf("lz4 encoder: %w", err)
		}
		return writer, nil

	default:
		return nil, fmt.Errorf("unsupported compression: %s", compression)
	}
}
