// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import "github.com/hashicorp/go-decompress/gzip"

// magicBytesGZip are the magic bytes for gzip compressed files.
var magicBytesGZip = [][]byte{
	{0x1F, 0x8B},
}

// isGZip checks if the header matches the magic bytes for gzip
// compressed files.
func isGZip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesGZip)
}

// decompressGZip inflates all concatenated gzip members with the
// hand-written RFC 1952 decoder.
func decompressGZip(data []byte, _ *Config) ([]byte, error) {
	return gzip.Decompress(data)
}
