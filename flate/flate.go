// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package flate decompresses the DEFLATE compressed data format described
// in RFC 1951. The gzip and zlib packages wrap it with their respective
// framings.
package flate

import (
	"errors"

	"github.com/hashicorp/go-decompress/internal/bitio"
	"github.com/hashicorp/go-decompress/internal/huffman"
)

var (
	// ErrWrongBlockLengths is returned when a stored block's LEN and NLEN
	// fields are not bitwise complements.
	ErrWrongBlockLengths = errors.New("flate: stored block length check failed")

	// ErrUnknownBlockType is returned for the reserved block type 3.
	ErrUnknownBlockType = errors.New("flate: unknown block type")

	// ErrInvalidDistance is returned when a back-reference points before
	// the start of the output.
	ErrInvalidDistance = errors.New("flate: back-reference distance too far")
)

const (
	maxNumLit  = 286
	maxNumDist = 30
	numCodes   = 19 // alphabet of the code-length meta-code

	endBlockMarker = 256
)

// RFC 1951 section 3.2.7: the order in which code lengths of the
// code-length alphabet are stored.
var codeOrder = [numCodes]int{16, 17, 18, 0, 8, 7, 9, 6, 10, 5, 11, 4, 12, 3, 13, 2, 14, 1, 15}

// Base values and extra bit counts for the length symbols 257..285,
// RFC 1951 section 3.2.5.
var (
	lengthBase = [29]int{
		3, 4, 5, 6, 7, 8, 9, 10, 11, 13, 15, 17, 19, 23, 27, 31,
		35, 43, 51, 59, 67, 83, 99, 115, 131, 163, 195, 227, 258,
	}
	lengthExtra = [29]int{
		0, 0, 0, 0, 0, 0, 0, 0, 1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4, 5, 5, 5, 5, 0,
	}
	distBase = [30]int{
		1, 2, 3, 4, 5, 7, 9, 13, 17, 25, 33, 49, 65, 97, 129, 193,
		257, 385, 513, 769, 1025, 1537, 2049, 3073, 4097, 6145, 8193, 12289, 16385, 24577,
	}
	distExtra = [30]int{
		0, 0, 0, 0, 1, 1, 2, 2, 3, 3, 4, 4, 5, 5, 6, 6,
		7, 7, 8, 8, 9, 9, 10, 10, 11, 11, 12, 12, 13, 13,
	}
)

var (
	fixedLitTable  *huffman.Table
	fixedDistTable *huffman.Table
)

func init() {
	var err error
	// RFC 1951 section 3.2.6.
	fixedLitTable, err = huffman.NewFromBootstrap([]huffman.Bootstrap{
		{Start: 0, Length: 8},
		{Start: 144, Length: 9},
		{Start: 256, Length: 7},
		{Start: 280, Length: 8},
		{Start: 288, Length: -1},
	})
	if err != nil {
		panic(err)
	}
	// All 32 distance codes take part in the code even though 30 and 31
	// never occur in valid data.
	fixedDistTable, err = huffman.NewFromBootstrap([]huffman.Bootstrap{
		{Start: 0, Length: 5},
		{Start: 32, Length: -1},
	})
	if err != nil {
		panic(err)
	}
}

// Decompress inflates a complete DEFLATE stream held in data.
func Decompress(data []byte) ([]byte, error) {
	br := bitio.NewReader(data, bitio.LSB)
	return Decode(br, nil)
}

// Decode inflates the DEFLATE stream at the cursor position of br and
// returns the output appended to out. Framing decoders (gzip, zlib) call
// this with their shared cursor; on return the cursor rests just past the
// final block, not yet byte-aligned.
func Decode(br *bitio.Reader, out []byte) ([]byte, error) {
	d := decompressor{br: br, out: out}
	for {
		final, err := d.block()
		if err != nil {
			return nil, err
		}
		if final {
			return d.out, nil
		}
	}
}

type decompressor struct {
	br  *bitio.Reader
	out []byte
}

// block decompresses one block and reports whether BFINAL was set.
func (d *decompressor) block() (bool, error) {
	final, err := d.br.ReadBit()
	if err != nil {
		return false, err
	}
	typ, err := d.br.ReadBits(2)
	if err != nil {
		return false, err
	}

	switch typ {
	case 0:
		err = d.storedBlock()
	case 1:
		err = d.huffmanBlock(fixedLitTable, fixedDistTable)
	case 2:
		var lit, dist *huffman.Table
		if lit, dist, err = d.dynamicTables(); err == nil {
			err = d.huffmanBlock(lit, dist)
		}
	default:
		err = ErrUnknownBlockType
	}
	return final == 1, err
}

// storedBlock copies a raw block: byte alignment, LEN, NLEN, then LEN
// literal bytes.
func (d *decompressor) storedBlock() error {
	d.br.AlignToByte()
	length, err := d.br.ReadAlignedUint(2)
	if err != nil {
		return err
	}
	nlen, err := d.br.ReadAlignedUint(2)
	if err != nil {
		return err
	}
	if length&nlen != 0 || length|nlen != 0xFFFF {
		return ErrWrongBlockLengths
	}
	for i := 0; i < int(length); i++ {
		b, err := d.br.ReadAlignedByte()
		if err != nil {
			return err
		}
		d.out = append(d.out, b)
	}
	return nil
}

// dynamicTables reads the HLIT/HDIST/HCLEN preamble and the run-length
// coded lengths of both alphabets, RFC 1951 section 3.2.7.
func (d *decompressor) dynamicTables() (*huffman.Table, *huffman.Table, error) {
	hlit, err := d.br.ReadBits(5)
	if err != nil {
		return nil, nil, err
	}
	hdist, err := d.br.ReadBits(5)
	if err != nil {
		return nil, nil, err
	}
	hclen, err := d.br.ReadBits(4)
	if err != nil {
		return nil, nil, err
	}
	nlit := int(hlit) + 257
	ndist := int(hdist) + 1
	nclen := int(hclen) + 4
	if nlit > maxNumLit || ndist > maxNumDist {
		return nil, nil, huffman.ErrBadTable
	}

	var codeLengths [numCodes]int
	for i := 0; i < nclen; i++ {
		v, err := d.br.ReadBits(3)
		if err != nil {
			return nil, nil, err
		}
		codeLengths[codeOrder[i]] = int(v)
	}
	codeTable, err := huffman.New(codeLengths[:])
	if err != nil {
		return nil, nil, err
	}

	lengths := make([]int, nlit+ndist)
	for i := 0; i < len(lengths); {
		sym, err := codeTable.Decode(d.br)
		if err != nil {
			return nil, nil, err
		}
		if sym < 16 {
			lengths[i] = sym
			i++
			continue
		}
		var repeat, value int
		switch sym {
		case 16:
			if i == 0 {
				return nil, nil, huffman.ErrBadTable
			}
			extra, err := d.br.ReadBits(2)
			if err != nil {
				return nil, nil, err
			}
			repeat, value = 3+int(extra), lengths[i-1]
		case 17:
			extra, err := d.br.ReadBits(3)
			if err != nil {
				return nil, nil, err
			}
			repeat, value = 3+int(extra), 0
		case 18:
			extra, err := d.br.ReadBits(7)
			if err != nil {
				return nil, nil, err
			}
			repeat, value = 11+int(extra), 0
		}
		if i+repeat > len(lengths) {
			return nil, nil, huffman.ErrBadTable
		}
		for j := 0; j < repeat; j++ {
			lengths[i] = value
			i++
		}
	}

	lit, err := huffman.New(lengths[:nlit])
	if err != nil {
		return nil, nil, err
	}
	dist, err := huffman.New(lengths[nlit:])
	if err != nil {
		return nil, nil, err
	}
	return lit, dist, nil
}

// huffmanBlock decodes literal/length symbols until the end-of-block
// marker, copying back-references byte by byte so that self-overlapping
// references extend the output as they are copied.
func (d *decompressor) huffmanBlock(lit, dist *huffman.Table) error {
	for {
		sym, err := lit.Decode(d.br)
		if err != nil {
			return err
		}
		switch {
		case sym < endBlockMarker:
			d.out = append(d.out, byte(sym))
		case sym == endBlockMarker:
			return nil
		default:
			if sym-257 >= len(lengthBase) {
				return huffman.ErrInvalidCode
			}
			length := lengthBase[sym-257]
			if n := lengthExtra[sym-257]; n > 0 {
				extra, err := d.br.ReadBits(n)
				if err != nil {
					return err
				}
				length += int(extra)
			}

			dsym, err := dist.Decode(d.br)
			if err != nil {
				return err
			}
			if dsym >= len(distBase) {
				return huffman.ErrInvalidCode
			}
			distance := distBase[dsym]
			if n := distExtra[dsym]; n > 0 {
				extra, err := d.br.ReadBits(n)
				if err != nil {
					return err
				}
				distance += int(extra)
			}
			if distance > len(d.out) {
				return ErrInvalidDistance
			}
			for i := 0; i < length; i++ {
				d.out = append(d.out, d.out[len(d.out)-distance])
			}
		}
	}
}
