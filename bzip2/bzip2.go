// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package bzip2 decompresses the bzip2 format: Huffman-coded MTF/RLE
// symbols over a Burrows-Wheeler transformed block, with per-block and
// combined stream CRCs.
//
// There is no official specification; the decoder follows the
// reverse-engineered format description used by the Go reference
// implementation.
package bzip2

import (
	"errors"

	"github.com/hashicorp/go-decompress/internal/bitio"
	"github.com/hashicorp/go-decompress/internal/huffman"
)

var (
	// ErrWrongMagic is returned when the input does not start with "BZh"
	// and a block-size digit.
	ErrWrongMagic = errors.New("bzip2: wrong magic bytes")

	// ErrCorrupt is returned for structural defects in the stream.
	ErrCorrupt = errors.New("bzip2: corrupt input")

	// ErrCRCMismatch is returned when a block or stream CRC fails.
	ErrCRCMismatch = errors.New("bzip2: checksum mismatch")

	// ErrDeprecatedRandomized is returned for the long-dead randomized
	// block variant.
	ErrDeprecatedRandomized = errors.New("bzip2: deprecated randomized block")
)

const (
	blockMagic = 0x314159265359
	finalMagic = 0x177245385090
)

// Decompress decodes all concatenated bzip2 streams in data.
func Decompress(data []byte) ([]byte, error) {
	br := bitio.NewReader(data, bitio.MSB)
	var out []byte
	for {
		var err error
		out, err = decodeStream(br, out)
		if err != nil {
			return nil, err
		}
		br.AlignToByte()
		if br.AtEnd() {
			return out, nil
		}
	}
}

// decodeStream decodes one "BZh" stream: its blocks, the final magic and
// the combined CRC.
func decodeStream(br *bitio.Reader, out []byte) ([]byte, error) {
	magic, err := br.ReadBits(24)
	if err != nil {
		return nil, err
	}
	if magic != 'B'<<16|'Z'<<8|'h' {
		return nil, ErrWrongMagic
	}
	level, err := br.ReadBits(8)
	if err != nil {
		return nil, err
	}
	if level < '1' || level > '9' {
		return nil, ErrWrongMagic
	}
	blockSize := 100 * 1000 * int(level-'0')

	var streamCRC uint32
	for {
		blockHdr, err := br.ReadBits(48)
		if err != nil {
			return nil, err
		}
		switch blockHdr {
		case blockMagic:
			start := len(out)
			wantCRC, err := br.ReadBits(32)
			if err != nil {
				return nil, err
			}
			out, err = decodeBlock(br, out, blockSize)
			if err != nil {
				return nil, err
			}
			got := blockCRC(out[start:])
			if got != uint32(wantCRC) {
				return nil, ErrCRCMismatch
			}
			// The stream CRC combines block CRCs with a left rotation.
			streamCRC = (streamCRC<<1 | streamCRC>>31) ^ got
		case finalMagic:
			wantCRC, err := br.ReadBits(32)
			if err != nil {
				return nil, err
			}
			if uint32(wantCRC) != streamCRC {
				return nil, ErrCRCMismatch
			}
			return out, nil
		default:
			return nil, ErrCorrupt
		}
	}
}

// decodeBlock decodes one data block onto out: Huffman decode, inverse
// MTF, run-length expansion, inverse BWT and the final RLE1 pass.
func decodeBlock(br *bitio.Reader, out []byte, blockSize int) ([]byte, error) {
	randomized, err := br.ReadBit()
	if err != nil {
		return nil, err
	}
	if randomized != 0 {
		return nil, ErrDeprecatedRandomized
	}
	origPtr, err := br.ReadBits(24)
	if err != nil {
		return nil, err
	}

	// Symbols used in the block, a two-level 16x16 bitmap.
	rangeUsed, err := br.ReadBits(16)
	if err != nil {
		return nil, err
	}
	var symbols []byte
	for i := 0; i < 16; i++ {
		if rangeUsed&(1<<uint(15-i)) == 0 {
			continue
		}
		bits, err := br.ReadBits(16)
		if err != nil {
			return nil, err
		}
		for j := 0; j < 16; j++ {
			if bits&(1<<uint(15-j)) != 0 {
				symbols = append(symbols, byte(16*i+j))
			}
		}
	}
	if len(symbols) == 0 {
		return nil, ErrCorrupt
	}
	numSymbols := len(symbols) + 2 // RUNA, RUNB and the end-of-block symbol

	numTrees, err := br.ReadBits(3)
	if err != nil {
		return nil, err
	}
	if numTrees < 2 || numTrees > 6 {
		return nil, ErrCorrupt
	}
	numSelectors, err := br.ReadBits(15)
	if err != nil {
		return nil, err
	}

	// Selectors are move-to-front coded as unary numbers.
	treeMTF := newMTF(byteRange(int(numTrees)))
	selectors := make([]byte, numSelectors)
	for i := range selectors {
		c := 0
		for {
			bit, err := br.ReadBit()
			if err != nil {
				return nil, err
			}
			if bit == 0 {
				break
			}
			c++
		}
		if c >= int(numTrees) {
			return nil, ErrCorrupt
		}
		selectors[i] = treeMTF.decode(c)
	}

	// Per-tree delta-coded code lengths.
	trees := make([]*huffman.Table, numTrees)
	lengths := make([]int, numSymbols)
	for t := range trees {
		l, err := br.ReadBits(5)
		if err != nil {
			return nil, err
		}
		length := int(l)
		for s := range lengths {
			for {
				if length < 1 || length > 20 {
					return nil, ErrCorrupt
				}
				bit, err := br.ReadBit()
				if err != nil {
					return nil, err
				}
				if bit == 0 {
					break
				}
				bit, err = br.ReadBit()
				if err != nil {
					return nil, err
				}
				if bit != 0 {
					length--
				} else {
					length++
				}
			}
			lengths[s] = length
		}
		if trees[t], err = huffman.New(lengths); err != nil {
			return nil, err
		}
	}

	if len(selectors) == 0 {
		return nil, ErrCorrupt
	}
	tree := trees[selectors[0]]
	selectorIndex := 1

	symMTF := newMTF(symbols)

	// tt carries the BWT output in its low 8 bits; the inverse transform
	// stores successor indexes in the upper 24.
	tt := make([]uint32, 0, blockSize)
	var counts [256]uint
	repeat, repeatPower := 0, 0
	decoded := 0

	for {
		if decoded == 50 {
			if selectorIndex >= len(selectors) {
				return nil, ErrCorrupt
			}
			tree = trees[selectors[selectorIndex]]
			selectorIndex++
			decoded = 0
		}
		v, err := tree.Decode(br)
		if err != nil {
			return nil, err
		}
		decoded++

		if v < 2 {
			// RUNA/RUNB accumulate a bijective base-2 run length.
			if repeat == 0 {
				repeatPower = 1
			}
			repeat += repeatPower << uint(v)
			repeatPower <<= 1
			if repeat > 2*1024*1024 {
				return nil, ErrCorrupt
			}
			continue
		}

		if repeat > 0 {
			if len(tt)+repeat > blockSize {
				return nil, ErrCorrupt
			}
			b := symMTF.first()
			counts[b] += uint(repeat)
			for i := 0; i < repeat; i++ {
				tt = append(tt, uint32(b))
			}
			repeat = 0
		}

		if v == numSymbols-1 {
			// End-of-block symbol.
			break
		}

		// The MTF front is only ever referenced through run lengths, so
		// symbol values are shifted down by one.
		b := symMTF.decode(v - 1)
		if len(tt) >= blockSize {
			return nil, ErrCorrupt
		}
		counts[b]++
		tt = append(tt, uint32(b))
	}

	if int(origPtr) >= len(tt) {
		return nil, ErrCorrupt
	}
	tPos := inverseBWT(tt, uint(origPtr), counts[:])

	// RLE1: four identical bytes are followed by an extra repeat count.
	lastByte := -1
	byteRepeats := 0
	for i := 0; i < len(tt); i++ {
		tPos = tt[tPos]
		b := byte(tPos)
		tPos >>= 8

		if byteRepeats == 3 {
			byteRepeats = 0
			for j := 0; j < int(b); j++ {
				out = append(out, byte(lastByte))
			}
			lastByte = -1
			continue
		}
		if lastByte == int(b) {
			byteRepeats++
		} else {
			byteRepeats = 0
		}
		lastByte = int(b)
		out = append(out, b)
	}
	return out, nil
}

// inverseBWT implements the single-array inverse Burrows-Wheeler
// transform: tt keeps the shuffled output in its low 8 bits and gains the
// index of the next byte in its upper 24. The index of the first byte is
// returned.
func inverseBWT(tt []uint32, origPtr uint, counts []uint) uint32 {
	var sum uint
	for i := 0; i < 256; i++ {
		sum += counts[i]
		counts[i] = sum - counts[i]
	}
	for i := range tt {
		b := tt[i] & 0xFF
		tt[counts[b]] |= uint32(i) << 8
		counts[b]++
	}
	return tt[origPtr] >> 8
}

// mtf is a move-to-front list over the block's used symbols.
type mtf struct {
	list []byte
}

func newMTF(symbols []byte) *mtf {
	return &mtf{list: symbols}
}

func byteRange(n int) []byte {
	r := make([]byte, n)
	for i := range r {
		r[i] = byte(i)
	}
	return r
}

func (m *mtf) first() byte {
	return m.list[0]
}

func (m *mtf) decode(i int) byte {
	b := m.list[i]
	copy(m.list[1:i+1], m.list[:i])
	m.list[0] = b
	return b
}

// crcTable is the bzip2 CRC32: the IEEE polynomial fed most significant
// bit first, unlike the reflected table of hash/crc32.
var crcTable [256]uint32

func init() {
	const poly = 0x04C11DB7
	for i := range crcTable {
		crc := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		crcTable[i] = crc
	}
}

func blockCRC(data []byte) uint32 {
	crc := ^uint32(0)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return ^crc
}
