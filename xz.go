// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import "github.com/hashicorp/go-decompress/xz"

// magicBytesXz is the magic bytes for xz files.
// reference https://tukaani.org/xz/xz-file-format-1.0.4.txt
var magicBytesXz = [][]byte{
	{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00},
}

// isXz checks if the header matches the xz magic bytes.
func isXz(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesXz)
}

// decompressXz decodes all concatenated xz streams with the hand-written
// container and LZMA2 decoders.
func decompressXz(data []byte, cfg *Config) ([]byte, error) {
	return xz.DecompressConfig(data, xz.Config{DictCap: cfg.DictCap()})
}
