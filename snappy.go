// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"bytes"

	"github.com/golang/snappy"
)

// magicBytesSnappy is the magic bytes of the snappy framing format.
var magicBytesSnappy = [][]byte{
	{0xFF, 0x06, 0x00, 0x00, 0x73, 0x4E, 0x61, 0x50, 0x70, 0x59},
}

// isSnappy checks if the header matches the snappy framing magic bytes.
func isSnappy(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesSnappy)
}

// decompressSnappy is a passthrough to the reference snappy frame
// decoder.
func decompressSnappy(data []byte, cfg *Config) ([]byte, error) {
	return readAllLimited(snappy.NewReader(bytes.NewReader(data)), cfg)
}
