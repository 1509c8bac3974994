// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import "github.com/hashicorp/go-decompress/bzip2"

// magicBytesBzip2 are the magic bytes for bzip2 compressed files.
var magicBytesBzip2 = [][]byte{
	[]byte("BZh1"),
	[]byte("BZh2"),
	[]byte("BZh3"),
	[]byte("BZh4"),
	[]byte("BZh5"),
	[]byte("BZh6"),
	[]byte("BZh7"),
	[]byte("BZh8"),
	[]byte("BZh9"),
}

// isBzip2 checks if the header matches the magic bytes for bzip2
// compressed files.
func isBzip2(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesBzip2)
}

// decompressBzip2 decodes all concatenated bzip2 streams with the
// hand-written decoder.
func decompressBzip2(data []byte, _ *Config) ([]byte, error) {
	return bzip2.Decompress(data)
}
