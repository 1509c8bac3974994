// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"bytes"

	"github.com/andybalholm/brotli"
)

// Brotli streams carry no magic bytes; the format is reachable only via
// [DecompressFormat] with [FormatBrotli].

// decompressBrotli is a passthrough to the andybalholm brotli decoder.
func decompressBrotli(data []byte, cfg *Config) ([]byte, error) {
	return readAllLimited(brotli.NewReader(bytes.NewReader(data)), cfg)
}
