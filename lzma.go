// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import "github.com/hashicorp/go-decompress/lzma"

// magicBytesLzma covers the header bytes of common .lzma files: the
// format has no true magic, but the default properties byte 0x5D
// followed by a sane dictionary size is near-universal.
var magicBytesLzma = [][]byte{
	{0x5D, 0x00, 0x00},
}

// isLzma checks if the header looks like an LZMA-alone file.
func isLzma(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLzma)
}

// decompressLzma decodes a standalone .lzma stream with the hand-written
// range decoder.
func decompressLzma(data []byte, cfg *Config) ([]byte, error) {
	return lzma.DecompressConfig(data, lzma.Config{DictCap: cfg.DictCap()})
}
