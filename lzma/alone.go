// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package lzma

import "encoding/binary"

// Config adjusts decoding limits.
type Config struct {
	// DictCap bounds the dictionary size a stream may declare. Zero means
	// [DefaultDictCap].
	DictCap uint32
}

func (c Config) dictCap() uint32 {
	if c.DictCap == 0 {
		return DefaultDictCap
	}
	return c.DictCap
}

// sizeUnknown is the uncompressed-size field value that selects
// end-marker termination.
const sizeUnknown = ^uint64(0)

// Decompress decodes a standalone .lzma stream: a 13-byte header holding
// the properties byte, the little-endian dictionary size and the
// little-endian uncompressed size, followed by the range-coded data.
func Decompress(data []byte) ([]byte, error) {
	return DecompressConfig(data, Config{})
}

// DecompressConfig is [Decompress] with explicit limits.
func DecompressConfig(data []byte, cfg Config) ([]byte, error) {
	if len(data) < 13 {
		return nil, ErrCorrupt
	}
	var d decoder
	if err := d.setProps(data[0]); err != nil {
		return nil, err
	}
	d.dictSize = binary.LittleEndian.Uint32(data[1:5])
	if d.dictSize < 4096 {
		d.dictSize = 4096
	}
	if d.dictSize > cfg.dictCap() {
		return nil, ErrDictTooLarge
	}
	size := binary.LittleEndian.Uint64(data[5:13])
	d.resetState()

	rd, err := newRangeDecoder(data[13:])
	if err != nil {
		return nil, err
	}

	for {
		if size != sizeUnknown && uint64(len(d.out)) >= size {
			if uint64(len(d.out)) > size {
				return nil, ErrCorrupt
			}
			return d.out, nil
		}
		if err := d.decodeSymbol(rd); err != nil {
			if err == errEndMarker {
				if size != sizeUnknown && uint64(len(d.out)) != size {
					return nil, ErrCorrupt
				}
				return d.out, nil
			}
			return nil, err
		}
	}
}
