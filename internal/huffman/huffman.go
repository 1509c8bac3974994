// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package huffman builds canonical Huffman decoding tables and decodes one
// symbol at a time from a bit stream.
//
// Codes are assigned in increasing order of code length and, within a
// length, in increasing order of symbol value (the DEFLATE convention from
// RFC 1951 section 3.2.2, shared by bzip2). A length of zero means the
// symbol is absent from the alphabet.
package huffman

import (
	"errors"

	"github.com/hashicorp/go-decompress/internal/bitio"
)

var (
	// ErrBadTable is returned when a length vector does not describe a
	// complete prefix code.
	ErrBadTable = errors.New("huffman: over- or under-subscribed code")

	// ErrInvalidCode is returned when the bit stream yields a prefix that
	// has no assigned symbol.
	ErrInvalidCode = errors.New("huffman: invalid code in bit stream")
)

// maxCodeLen covers both DEFLATE (15) and bzip2 (20) code lengths.
const maxCodeLen = 20

// Table maps prefix-coded bit sequences to symbols. It is stored as a
// direct-addressed array of size 2^maxlen, prefilled with the symbol for
// every possible tail, so decoding is a single lookup.
type Table struct {
	maxLen  int
	entries []uint32 // sym<<5 | length; 0 length marks an unassigned prefix
}

// New builds a decoding table from a length-per-symbol vector.
//
// Empty and degenerate single-symbol alphabets are accepted; any other
// incomplete or oversubscribed code is rejected with [ErrBadTable].
func New(lengths []int) (*Table, error) {
	var count [maxCodeLen + 1]int
	max := 0
	for _, l := range lengths {
		if l < 0 || l > maxCodeLen {
			return nil, ErrBadTable
		}
		if l > 0 {
			count[l]++
			if l > max {
				max = l
			}
		}
	}

	t := &Table{maxLen: max}
	if max == 0 {
		// Empty alphabet. Decoding from it always fails.
		return t, nil
	}

	// First code of each length: code(l) = (code(l-1) + count(l-1)) << 1.
	var nextCode [maxCodeLen + 1]int
	code := 0
	for l := 1; l <= max; l++ {
		code <<= 1
		nextCode[l] = code
		code += count[l]
	}

	// Completeness: every 2^max tail must be claimed. The degenerate
	// single-symbol code (one symbol of length 1) is allowed for zlib
	// compatibility.
	if code != 1<<uint(max) && !(code == 1 && max == 1) {
		return nil, ErrBadTable
	}

	t.entries = make([]uint32, 1<<uint(max))
	for sym, l := range lengths {
		if l == 0 {
			continue
		}
		c := nextCode[l]
		nextCode[l]++
		packed := uint32(sym)<<5 | uint32(l)
		// Prefill every tail below this code.
		base := c << uint(max-l)
		for j := 0; j < 1<<uint(max-l); j++ {
			t.entries[base+j] = packed
		}
	}
	return t, nil
}

// Bootstrap is a sparse (start-symbol, length) pair. A list of pairs
// defines piecewise-constant lengths: pair i covers symbols from Start up
// to the next pair's Start. The final pair terminates the list and its
// Length is ignored (conventionally -1).
type Bootstrap struct {
	Start  int
	Length int
}

// NewFromBootstrap expands bootstrap pairs into a length vector and builds
// the table from it.
func NewFromBootstrap(pairs []Bootstrap) (*Table, error) {
	if len(pairs) < 2 {
		return New(nil)
	}
	last := pairs[len(pairs)-1]
	lengths := make([]int, last.Start)
	for i := 0; i < len(pairs)-1; i++ {
		for sym := pairs[i].Start; sym < pairs[i+1].Start; sym++ {
			lengths[sym] = pairs[i].Length
		}
	}
	return New(lengths)
}

// MaxLen returns the length of the longest assigned code, zero for an
// empty alphabet.
func (t *Table) MaxLen() int { return t.maxLen }

// Decode reads one symbol. It speculatively reads a maxlen-wide window,
// looks the prefix up, and rewinds the bits it did not consume.
func (t *Table) Decode(br *bitio.Reader) (int, error) {
	if t.maxLen == 0 {
		return 0, ErrInvalidCode
	}
	window := 0
	got := 0
	for got < t.maxLen {
		bit, err := br.ReadBit()
		if err != nil {
			break // a short tail may still hold a complete code
		}
		window = window<<1 | bit
		got++
	}
	if got == 0 {
		return 0, bitio.ErrUnexpectedEnd
	}
	packed := t.entries[window<<uint(t.maxLen-got)]
	length := int(packed & 0x1F)
	if length == 0 || length > got {
		if got < t.maxLen {
			return 0, bitio.ErrUnexpectedEnd
		}
		return 0, ErrInvalidCode
	}
	br.Rewind(got - length)
	return int(packed >> 5), nil
}
