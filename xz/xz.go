// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package xz decompresses the .xz container (xz file format v1.0.4):
// stream header, blocks with their filter chains, index and stream
// footer, with every embedded integrity check verified.
package xz

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"hash/crc64"

	"github.com/hashicorp/go-decompress/lzma"
)

var (
	// ErrWrongMagic is returned when the stream header or footer magic is
	// not present.
	ErrWrongMagic = errors.New("xz: wrong magic bytes")

	// ErrWrongFlags is returned when reserved flag bits are set or the
	// footer flags do not match the header's.
	ErrWrongFlags = errors.New("xz: invalid stream flags")

	// ErrWrongCheckType is returned for a check type this decoder does
	// not know.
	ErrWrongCheckType = errors.New("xz: unsupported check type")

	// ErrUnsupportedFilter is returned for a filter chain containing a
	// filter other than LZMA2, Delta or BCJ x86.
	ErrUnsupportedFilter = errors.New("xz: unsupported filter")

	// ErrWrongBackwardSize is returned when the footer's backward size
	// does not match the real index size.
	ErrWrongBackwardSize = errors.New("xz: wrong backward size")

	// ErrWrongIndex is returned when the index does not agree with the
	// decoded blocks.
	ErrWrongIndex = errors.New("xz: index mismatch")

	// ErrCheckMismatch is returned when a CRC32, CRC64 or SHA-256 check
	// fails.
	ErrCheckMismatch = errors.New("xz: integrity check failed")

	// ErrCorrupt is returned for structural defects not covered by a
	// more specific error.
	ErrCorrupt = errors.New("xz: corrupt input")
)

var headerMagic = []byte{0xFD, '7', 'z', 'X', 'Z', 0x00}
var footerMagic = []byte{'Y', 'Z'}

// Check type identifiers from the stream flags, xz format section 2.1.1.2.
const (
	checkNone   = 0x00
	checkCRC32  = 0x01
	checkCRC64  = 0x04
	checkSHA256 = 0x0A
)

// Filter identifiers, xz format section 5.
const (
	filterDelta  = 0x03
	filterBCJX86 = 0x04
	filterLZMA2  = 0x21
)

var crc64Table = crc64.MakeTable(crc64.ECMA)

// Config adjusts decoding limits.
type Config struct {
	// DictCap bounds the LZMA2 dictionary; zero means
	// [lzma.DefaultDictCap].
	DictCap uint32
}

// Decompress decodes all concatenated xz streams in data and returns
// their concatenated payloads.
func Decompress(data []byte) ([]byte, error) {
	return DecompressConfig(data, Config{})
}

// DecompressConfig is [Decompress] with explicit limits.
func DecompressConfig(data []byte, cfg Config) ([]byte, error) {
	var out []byte
	pos := 0
	for {
		n, payload, err := decodeStream(data[pos:], cfg)
		if err != nil {
			return nil, err
		}
		out = append(out, payload...)
		pos += n

		// Stream padding: 4-byte aligned runs of zero bytes may separate
		// concatenated streams.
		for pos < len(data) && data[pos] == 0 {
			pos++
		}
		if pos == len(data) {
			return out, nil
		}
		if pos%4 != 0 {
			return nil, ErrCorrupt
		}
	}
}

type blockRecord struct {
	unpadded     uint64
	uncompressed uint64
}

// decodeStream decodes one complete stream and returns the bytes consumed
// and the payload.
func decodeStream(data []byte, cfg Config) (int, []byte, error) {
	if len(data) < 12 {
		return 0, nil, ErrCorrupt
	}
	if !bytes.Equal(data[:6], headerMagic) {
		return 0, nil, ErrWrongMagic
	}
	flags := data[6:8]
	if flags[0] != 0 || flags[1]&0xF0 != 0 {
		return 0, nil, ErrWrongFlags
	}
	checkType := int(flags[1] & 0x0F)
	checkLen, err := checkSize(checkType)
	if err != nil {
		return 0, nil, err
	}
	if binary.LittleEndian.Uint32(data[8:12]) != crc32.ChecksumIEEE(flags) {
		return 0, nil, ErrCorrupt
	}

	pos := 12
	var out []byte
	var records []blockRecord
	for {
		if pos >= len(data) {
			return 0, nil, ErrCorrupt
		}
		if data[pos] == 0 {
			// Index indicator.
			break
		}
		n, payload, unpadded, err := decodeBlock(data[pos:], checkType, checkLen, cfg)
		if err != nil {
			return 0, nil, err
		}
		records = append(records, blockRecord{unpadded: unpadded, uncompressed: uint64(len(payload))})
		out = append(out, payload...)
		pos += n
	}

	n, err := verifyIndex(data[pos:], records)
	if err != nil {
		return 0, nil, err
	}
	indexSize := n
	pos += n

	// Stream footer.
	if pos+12 > len(data) {
		return 0, nil, ErrCorrupt
	}
	footer := data[pos : pos+12]
	if !bytes.Equal(footer[10:12], footerMagic) {
		return 0, nil, ErrWrongMagic
	}
	if binary.LittleEndian.Uint32(footer[0:4]) != crc32.ChecksumIEEE(footer[4:10]) {
		return 0, nil, ErrCorrupt
	}
	backwardSize := (uint64(binary.LittleEndian.Uint32(footer[4:8])) + 1) * 4
	if backwardSize != uint64(indexSize) {
		return 0, nil, ErrWrongBackwardSize
	}
	if !bytes.Equal(footer[8:10], flags) {
		return 0, nil, ErrWrongFlags
	}
	return pos + 12, out, nil
}

func checkSize(checkType int) (int, error) {
	switch checkType {
	case checkNone:
		return 0, nil
	case checkCRC32:
		return 4, nil
	case checkCRC64:
		return 8, nil
	case checkSHA256:
		return 32, nil
	default:
		return 0, ErrWrongCheckType
	}
}

type filter struct {
	id    uint64
	props []byte
}

// decodeBlock decodes one block (header, compressed data, padding and
// check) and returns bytes consumed, the payload and the unpadded size.
func decodeBlock(data []byte, checkType, checkLen int, cfg Config) (int, []byte, uint64, error) {
	headerSize := (int(data[0]) + 1) * 4
	if headerSize > len(data) {
		return 0, nil, 0, ErrCorrupt
	}
	header := data[:headerSize]
	if binary.LittleEndian.Uint32(header[headerSize-4:]) != crc32.ChecksumIEEE(header[:headerSize-4]) {
		return 0, nil, 0, ErrCorrupt
	}

	blockFlags := header[1]
	if blockFlags&0x3C != 0 {
		return 0, nil, 0, ErrCorrupt
	}
	numFilters := int(blockFlags&0x03) + 1
	hp := 2

	var compressedSize, uncompressedSize uint64
	haveCompressed := blockFlags&0x40 != 0
	haveUncompressed := blockFlags&0x80 != 0
	if haveCompressed {
		var err error
		if compressedSize, hp, err = readVLI(header, hp); err != nil {
			return 0, nil, 0, err
		}
	}
	if haveUncompressed {
		var err error
		if uncompressedSize, hp, err = readVLI(header, hp); err != nil {
			return 0, nil, 0, err
		}
	}

	filters := make([]filter, 0, numFilters)
	for i := 0; i < numFilters; i++ {
		id, np, err := readVLI(header, hp)
		if err != nil {
			return 0, nil, 0, err
		}
		hp = np
		propsLen, np, err := readVLI(header, hp)
		if err != nil {
			return 0, nil, 0, err
		}
		hp = np
		if hp+int(propsLen) > headerSize-4 {
			return 0, nil, 0, ErrCorrupt
		}
		filters = append(filters, filter{id: id, props: header[hp : hp+int(propsLen)]})
		hp += int(propsLen)
	}
	// Header padding must be zero.
	for ; hp < headerSize-4; hp++ {
		if header[hp] != 0 {
			return 0, nil, 0, ErrCorrupt
		}
	}
	// The last filter must be LZMA2.
	if filters[len(filters)-1].id != filterLZMA2 {
		return 0, nil, 0, ErrUnsupportedFilter
	}

	// Without a declared compressed size the LZMA2 chunk layer finds its
	// own end; scan for it so the block length is known.
	body := data[headerSize:]
	var compLen int
	if haveCompressed {
		if compressedSize > uint64(len(body)) {
			return 0, nil, 0, ErrCorrupt
		}
		compLen = int(compressedSize)
	} else {
		var err error
		compLen, err = lzma2StreamLen(body)
		if err != nil {
			return 0, nil, 0, err
		}
	}

	payload, err := applyFilters(body[:compLen], filters, cfg)
	if err != nil {
		return 0, nil, 0, err
	}
	if haveUncompressed && uint64(len(payload)) != uncompressedSize {
		return 0, nil, 0, ErrCorrupt
	}

	pos := headerSize + compLen
	for pos%4 != 0 {
		if pos >= len(data) || data[pos] != 0 {
			return 0, nil, 0, ErrCorrupt
		}
		pos++
	}
	if pos+checkLen > len(data) {
		return 0, nil, 0, ErrCorrupt
	}
	if err := verifyCheck(checkType, data[pos:pos+checkLen], payload); err != nil {
		return 0, nil, 0, err
	}
	pos += checkLen

	unpadded := uint64(headerSize + compLen + checkLen)
	return pos, payload, unpadded, nil
}

// applyFilters runs the compressed data through the LZMA2 filter and then
// the remaining filters of the chain in reverse declaration order.
func applyFilters(data []byte, filters []filter, cfg Config) ([]byte, error) {
	last := filters[len(filters)-1]
	if len(last.props) != 1 {
		return nil, ErrCorrupt
	}
	dictSize, err := lzma.DictSize2(last.props[0])
	if err != nil {
		return nil, err
	}
	out, err := lzma.DecompressLZMA2(data, dictSize, lzma.Config{DictCap: cfg.DictCap})
	if err != nil {
		return nil, err
	}

	for i := len(filters) - 2; i >= 0; i-- {
		switch filters[i].id {
		case filterDelta:
			if len(filters[i].props) != 1 {
				return nil, ErrCorrupt
			}
			deltaDecode(out, int(filters[i].props[0])+1)
		case filterBCJX86:
			if len(filters[i].props) != 0 && len(filters[i].props) != 4 {
				return nil, ErrCorrupt
			}
			var start uint32
			if len(filters[i].props) == 4 {
				start = binary.LittleEndian.Uint32(filters[i].props)
			}
			bcjX86Decode(out, start)
		default:
			return nil, ErrUnsupportedFilter
		}
	}
	return out, nil
}

// lzma2StreamLen walks the LZMA2 chunk headers to find the encoded length
// without decoding.
func lzma2StreamLen(data []byte) (int, error) {
	pos := 0
	for {
		if pos >= len(data) {
			return 0, ErrCorrupt
		}
		control := data[pos]
		pos++
		if control == 0 {
			return pos, nil
		}
		if control < 0x80 {
			if control > 2 || pos+2 > len(data) {
				return 0, ErrCorrupt
			}
			size := (int(data[pos])<<8 | int(data[pos+1])) + 1
			pos += 2 + size
			continue
		}
		if pos+4 > len(data) {
			return 0, ErrCorrupt
		}
		packed := (int(data[pos+2])<<8 | int(data[pos+3])) + 1
		pos += 4
		if (control>>5)&3 >= 2 {
			pos++ // properties byte
		}
		pos += packed
	}
}

// verifyIndex checks the index against the decoded block records and
// returns the index size in bytes.
func verifyIndex(data []byte, records []blockRecord) (int, error) {
	if len(data) == 0 || data[0] != 0 {
		return 0, ErrWrongIndex
	}
	pos := 1
	count, pos, err := readVLI(data, pos)
	if err != nil {
		return 0, err
	}
	if count != uint64(len(records)) {
		return 0, ErrWrongIndex
	}
	for _, rec := range records {
		unpadded, np, err := readVLI(data, pos)
		if err != nil {
			return 0, err
		}
		pos = np
		uncompressed, np, err := readVLI(data, pos)
		if err != nil {
			return 0, err
		}
		pos = np
		if unpadded != rec.unpadded || uncompressed != rec.uncompressed {
			return 0, ErrWrongIndex
		}
	}
	for pos%4 != 0 {
		if pos >= len(data) || data[pos] != 0 {
			return 0, ErrWrongIndex
		}
		pos++
	}
	if pos+4 > len(data) {
		return 0, ErrCorrupt
	}
	if binary.LittleEndian.Uint32(data[pos:pos+4]) != crc32.ChecksumIEEE(data[:pos]) {
		return 0, ErrWrongIndex
	}
	return pos + 4, nil
}

func verifyCheck(checkType int, stored, payload []byte) error {
	switch checkType {
	case checkNone:
		return nil
	case checkCRC32:
		if binary.LittleEndian.Uint32(stored) != crc32.ChecksumIEEE(payload) {
			return ErrCheckMismatch
		}
	case checkCRC64:
		if binary.LittleEndian.Uint64(stored) != crc64.Checksum(payload, crc64Table) {
			return ErrCheckMismatch
		}
	case checkSHA256:
		sum := sha256.Sum256(payload)
		if !bytes.Equal(stored, sum[:]) {
			return ErrCheckMismatch
		}
	}
	return nil
}

// readVLI decodes the variable-length integer encoding: seven bits per
// byte, least significant first, high bit marking continuation.
func readVLI(data []byte, pos int) (uint64, int, error) {
	var v uint64
	for i := 0; i < 9; i++ {
		if pos >= len(data) {
			return 0, 0, ErrCorrupt
		}
		b := data[pos]
		pos++
		v |= uint64(b&0x7F) << uint(7*i)
		if b&0x80 == 0 {
			if b == 0 && i > 0 {
				return 0, 0, ErrCorrupt
			}
			return v, pos, nil
		}
	}
	return 0, 0, ErrCorrupt
}

// deltaDecode reverses the delta filter in place.
func deltaDecode(buf []byte, dist int) {
	for i := dist; i < len(buf); i++ {
		buf[i] += buf[i-dist]
	}
}

// bcjX86Decode reverses the x86 BCJ filter in place, converting absolute
// call/jump targets back to relative ones (xz-embedded xz_dec_bcj.c).
func bcjX86Decode(buf []byte, startPos uint32) {
	maskToAllowed := [8]bool{true, true, true, false, true, false, false, false}
	maskToBitNum := [8]uint{0, 1, 2, 2, 3, 3, 3, 3}

	if len(buf) <= 4 {
		return
	}
	size := len(buf) - 4
	prevMask := uint32(0)
	prevPos := -1

	for i := 0; i < size; i++ {
		if buf[i]&0xFE != 0xE8 {
			continue
		}
		delta := i - prevPos
		if delta > 3 {
			prevMask = 0
		} else {
			prevMask = (prevMask << uint(delta-1)) & 7
			if prevMask != 0 {
				b := buf[i+4-int(maskToBitNum[prevMask])]
				if !maskToAllowed[prevMask] || b == 0 || b == 0xFF {
					prevPos = i
					prevMask = prevMask<<1 | 1
					continue
				}
			}
		}
		prevPos = i

		if test86MSByte(buf[i+4]) {
			src := binary.LittleEndian.Uint32(buf[i+1 : i+5])
			var dest uint32
			for {
				dest = src - (startPos + uint32(i) + 5)
				if prevMask == 0 {
					break
				}
				j := maskToBitNum[prevMask] * 8
				b := byte(dest >> (24 - j))
				if !test86MSByte(b) {
					break
				}
				src = dest ^ (1<<(32-j) - 1)
			}
			dest &= 0x01FFFFFF
			if dest&0x00800000 != 0 {
				dest |= 0xFF000000
			}
			binary.LittleEndian.PutUint32(buf[i+1:i+5], dest)
			i += 4
		} else {
			prevMask = prevMask<<1 | 1
		}
	}
}

func test86MSByte(b byte) bool {
	return b == 0 || b == 0xFF
}
