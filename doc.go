// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package decompress is a pure decoder library for a family of widely
// deployed lossless compression and container formats: DEFLATE and its
// gzip and zlib framings, standalone LZMA and its xz framing, bzip2, and
// the tar and zip archive containers.
//
// The package consumes a block of input bytes and produces either a plain
// decompressed byte sequence ([Decompress]) or a list of archive entries
// with attributes and payloads ([Entries], [Info]). The input format is
// detected from magic bytes; every embedded checksum is verified and no
// partial output is returned on failure.
//
// The hand-written decoders live in their own subpackages (flate, gzip,
// zlib, lzma, xz, bzip2, tar, zip) and can be used directly. This package
// adds format sniffing, resource limits, logging and telemetry around
// them, plus passthrough support for a few neighboring formats (zstd,
// lz4, snappy, brotli, rar, 7z) built on their reference Go
// implementations.
package decompress
