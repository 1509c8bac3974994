// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package lzma

// LZMA2 wraps raw LZMA in 1-byte control packets delimiting compressed
// chunks, uncompressed chunks and reset boundaries (xz file format
// specification, section 5.3.1).

// DictSize2 decodes the one-byte encoded dictionary size of the LZMA2
// filter properties: sizes alternate 2^n and 3*2^(n-1), with 40 meaning
// 4 GiB - 1.
func DictSize2(prop byte) (uint32, error) {
	if prop > 40 {
		return 0, ErrBadProperties
	}
	if prop == 40 {
		return 0xFFFFFFFF, nil
	}
	base := uint32(2 | prop&1)
	return base << (prop/2 + 11), nil
}

// DecompressLZMA2 decodes a complete LZMA2 chunk sequence. dictSize is the
// dictionary size declared by the containing filter chain.
func DecompressLZMA2(data []byte, dictSize uint32, cfg Config) ([]byte, error) {
	if dictSize > cfg.dictCap() {
		return nil, ErrDictTooLarge
	}
	var d decoder
	d.dictSize = dictSize
	needProps := true

	pos := 0
	for {
		if pos >= len(data) {
			return nil, ErrCorrupt
		}
		control := data[pos]
		pos++

		if control == 0 {
			// End of the LZMA2 stream.
			return d.out, nil
		}

		if control < 0x80 {
			// Uncompressed chunk: 0x01 resets the dictionary first,
			// 0x02 keeps it. Anything else is invalid.
			if control > 2 {
				return nil, ErrBadChunkControl
			}
			if pos+2 > len(data) {
				return nil, ErrCorrupt
			}
			size := (int(data[pos])<<8 | int(data[pos+1])) + 1
			pos += 2
			if pos+size > len(data) {
				return nil, ErrCorrupt
			}
			if control == 1 {
				d.resetDict()
			}
			d.out = append(d.out, data[pos:pos+size]...)
			pos += size
			continue
		}

		// LZMA chunk. Bits 0-4 carry the top bits of the unpacked size.
		if pos+4 > len(data) {
			return nil, ErrCorrupt
		}
		unpacked := (int(control&0x1F)<<16 | int(data[pos])<<8 | int(data[pos+1])) + 1
		packed := (int(data[pos+2])<<8 | int(data[pos+3])) + 1
		pos += 4

		reset := (control >> 5) & 3
		if reset >= 2 {
			if pos >= len(data) {
				return nil, ErrCorrupt
			}
			if err := d.setProps(data[pos]); err != nil {
				return nil, err
			}
			pos++
			needProps = false
		} else if needProps {
			return nil, ErrBadChunkControl
		}
		if reset == 3 {
			d.resetDict()
		}
		if reset >= 1 {
			d.resetState()
		}

		if pos+packed > len(data) {
			return nil, ErrCorrupt
		}
		rd, err := newRangeDecoder(data[pos : pos+packed])
		if err != nil {
			return nil, err
		}
		pos += packed

		limit := len(d.out) + unpacked
		for len(d.out) < limit {
			if err := d.decodeSymbol(rd); err != nil {
				if err == errEndMarker {
					return nil, ErrCorrupt
				}
				return nil, err
			}
		}
		if len(d.out) != limit {
			return nil, ErrCorrupt
		}
	}
}
