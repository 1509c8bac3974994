// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"context"
	"errors"
	"time"
)

// ErrArchiveInput is returned by [Decompress] when the input is an
// archive container rather than a plain compressed stream; use [Entries]
// or [Info] instead.
var ErrArchiveInput = errors.New("decompress: input is an archive container")

// Format identifies an input format by its conventional file extension.
type Format string

const (
	FormatUnknown Format = ""
	FormatGZip    Format = "gz"
	FormatZlib    Format = "zz"
	FormatXz      Format = "xz"
	FormatLzma    Format = "lzma"
	FormatBzip2   Format = "bz2"
	FormatZstd    Format = "zst"
	FormatLz4     Format = "lz4"
	FormatSnappy  Format = "sz"
	FormatBrotli  Format = "br"
	FormatTar     Format = "tar"
	FormatZip     Format = "zip"
	FormatRar     Format = "rar"
	Format7Zip    Format = "7z"
)

// matchesMagicBytes checks if data matches any of the magic byte
// sequences at the given offset.
func matchesMagicBytes(data []byte, offset int, magicBytes [][]byte) bool {
	for _, magic := range magicBytes {
		if offset+len(magic) <= len(data) && string(data[offset:offset+len(magic)]) == string(magic) {
			return true
		}
	}
	return false
}

// DetectFormat identifies the input format from its magic bytes.
// Raw DEFLATE and brotli streams carry no magic and are not detectable;
// decode raw DEFLATE with [Deflate] and brotli via [DecompressFormat]
// with [FormatBrotli].
func DetectFormat(header []byte) Format {
	switch {
	case isGZip(header):
		return FormatGZip
	case isXz(header):
		return FormatXz
	case isBzip2(header):
		return FormatBzip2
	case isZstd(header):
		return FormatZstd
	case isLz4(header):
		return FormatLz4
	case isSnappy(header):
		return FormatSnappy
	case isZip(header):
		return FormatZip
	case isRar(header):
		return FormatRar
	case is7Zip(header):
		return Format7Zip
	case isTar(header):
		return FormatTar
	case isLzma(header):
		return FormatLzma
	case isZlib(header):
		return FormatZlib
	default:
		return FormatUnknown
	}
}

// Decompress detects the format of data and returns the decompressed
// payload. Archive containers are rejected with [ErrArchiveInput].
func Decompress(ctx context.Context, data []byte, cfg *Config) ([]byte, error) {
	return DecompressFormat(ctx, DetectFormat(data), data, cfg)
}

// DecompressFormat decodes data as the given format.
func DecompressFormat(ctx context.Context, format Format, data []byte, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	td := TelemetryData{Format: format, InputSize: int64(len(data))}
	start := time.Now()
	defer func() {
		td.DecodeDuration = time.Since(start)
		cfg.TelemetryHook()(td)
	}()

	out, err := decompressFormat(ctx, format, data, cfg)
	if err != nil {
		td.DecodeError = err
		cfg.Logger().Error("decompression failed", "format", format, "err", err)
		return nil, err
	}
	td.OutputSize = int64(len(out))
	cfg.Logger().Info("decompressed", "format", format, "input_size", len(data), "output_size", len(out))
	return out, nil
}

func decompressFormat(ctx context.Context, format Format, data []byte, cfg *Config) ([]byte, error) {
	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fn, ok := decompressors[format]
	if !ok {
		if _, isContainer := containers[format]; isContainer {
			return nil, ErrArchiveInput
		}
		return nil, ErrUnknownFormat
	}
	out, err := fn(data, cfg)
	if err != nil {
		return nil, err
	}
	if err := cfg.CheckOutputSize(int64(len(out))); err != nil {
		return nil, err
	}
	return out, nil
}

// decompressFunc decodes a complete compressed stream.
type decompressFunc func(data []byte, cfg *Config) ([]byte, error)

// decompressors maps each plain-stream format to its decoder. The
// hand-written decoders cover the core formats; the passthrough formats
// delegate to their reference Go implementations.
var decompressors = map[Format]decompressFunc{
	FormatGZip:   decompressGZip,
	FormatZlib:   decompressZlib,
	FormatXz:     decompressXz,
	FormatLzma:   decompressLzma,
	FormatBzip2:  decompressBzip2,
	FormatZstd:   decompressZstd,
	FormatLz4:    decompressLz4,
	FormatSnappy: decompressSnappy,
	FormatBrotli: decompressBrotli,
}
