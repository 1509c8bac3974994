// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import "github.com/klauspost/compress/zstd"

// magicBytesZstd is the magic bytes for zstandard files.
var magicBytesZstd = [][]byte{
	{0x28, 0xB5, 0x2F, 0xFD},
}

// isZstd checks if the header matches the zstandard magic bytes.
func isZstd(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesZstd)
}

// decompressZstd is a passthrough to the klauspost zstandard decoder.
func decompressZstd(data []byte, cfg *Config) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
