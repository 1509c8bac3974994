// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package zlib decompresses the zlib format of RFC 1950: a two-byte
// CMF/FLG header, a DEFLATE stream and a big-endian Adler-32 trailer.
package zlib

import (
	"errors"
	"hash/adler32"

	"github.com/hashicorp/go-decompress/flate"
	"github.com/hashicorp/go-decompress/internal/bitio"
)

var (
	// ErrWrongHeader is returned when the CMF/FLG pair fails its checks.
	ErrWrongHeader = errors.New("zlib: invalid header")

	// ErrDictionaryNeeded is returned when the stream requests a preset
	// dictionary, which this decoder does not support.
	ErrDictionaryNeeded = errors.New("zlib: preset dictionary not supported")

	// ErrWrongChecksum is returned when the Adler-32 trailer does not
	// match the decompressed data.
	ErrWrongChecksum = errors.New("zlib: checksum mismatch")
)

// Decompress inflates a complete zlib stream held in data.
func Decompress(data []byte) ([]byte, error) {
	br := bitio.NewReader(data, bitio.LSB)

	cmf, err := br.ReadAlignedByte()
	if err != nil {
		return nil, err
	}
	flg, err := br.ReadAlignedByte()
	if err != nil {
		return nil, err
	}
	// The combined big-endian value must be divisible by 31 and the
	// compression method must be DEFLATE.
	if (uint16(cmf)<<8|uint16(flg))%31 != 0 {
		return nil, ErrWrongHeader
	}
	if cmf&0x0F != 8 {
		return nil, ErrWrongHeader
	}
	if flg&0x20 != 0 {
		return nil, ErrDictionaryNeeded
	}

	out, err := flate.Decode(br, nil)
	if err != nil {
		return nil, err
	}
	br.AlignToByte()

	var stored uint32
	for i := 0; i < 4; i++ {
		b, err := br.ReadAlignedByte()
		if err != nil {
			return nil, err
		}
		stored = stored<<8 | uint32(b)
	}
	if stored != adler32.Checksum(out) {
		return nil, ErrWrongChecksum
	}
	return out, nil
}
