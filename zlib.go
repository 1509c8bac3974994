// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import "github.com/hashicorp/go-decompress/zlib"

// magicBytesZlib are the common CMF/FLG pairs of zlib streams.
var magicBytesZlib = [][]byte{
	{0x78, 0x01},
	{0x78, 0x5E},
	{0x78, 0x9C},
	{0x78, 0xDA},
}

// isZlib checks if the header matches a common zlib CMF/FLG pair.
func isZlib(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZlib)
}

// decompressZlib inflates a zlib stream with the hand-written RFC 1950
// decoder.
func decompressZlib(data []byte, _ *Config) ([]byte, error) {
	return zlib.Decompress(data)
}
