// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"bytes"
	"io"

	"github.com/pierrec/lz4/v4"
)

// magicBytesLz4 is the magic bytes for lz4 frame files.
var magicBytesLz4 = [][]byte{
	{0x04, 0x22, 0x4D, 0x18},
}

// isLz4 checks if the header matches the lz4 frame magic bytes.
func isLz4(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesLz4)
}

// decompressLz4 is a passthrough to the pierrec lz4 frame decoder.
func decompressLz4(data []byte, cfg *Config) ([]byte, error) {
	return readAllLimited(lz4.NewReader(bytes.NewReader(data)), cfg)
}

// readAllLimited drains r, enforcing the configured output bound while
// reading rather than after.
func readAllLimited(r io.Reader, cfg *Config) ([]byte, error) {
	max := cfg.MaxOutputSize()
	if max == -1 {
		return io.ReadAll(r)
	}
	out, err := io.ReadAll(io.LimitReader(r, max+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > max {
		return nil, ErrMaxOutputSizeExceeded
	}
	return out, nil
}
