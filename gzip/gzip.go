// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package gzip decompresses the gzip file format of RFC 1952, including
// optional header fields, the trailing integrity checks and concatenated
// members.
package gzip

import (
	"errors"
	"hash/crc32"
	"time"

	"github.com/hashicorp/go-decompress/flate"
	"github.com/hashicorp/go-decompress/internal/bitio"
)

var (
	// ErrWrongMagic is returned when the input does not start with 1F 8B.
	ErrWrongMagic = errors.New("gzip: wrong magic bytes")

	// ErrWrongCompressionMethod is returned for any method other than
	// DEFLATE (8).
	ErrWrongCompressionMethod = errors.New("gzip: unsupported compression method")

	// ErrWrongFlags is returned when one of the reserved flag bits is set.
	ErrWrongFlags = errors.New("gzip: reserved flag bits set")

	// ErrWrongHeaderCRC is returned when the FHCRC field does not match
	// the header bytes.
	ErrWrongHeaderCRC = errors.New("gzip: header checksum mismatch")

	// ErrWrongCRC is returned when the trailing CRC32 does not match the
	// decompressed data.
	ErrWrongCRC = errors.New("gzip: checksum mismatch")

	// ErrWrongISize is returned when the trailing size field does not
	// match the decompressed length mod 2^32.
	ErrWrongISize = errors.New("gzip: length mismatch")
)

// Header flag bits, RFC 1952 section 2.3.1.
const (
	flagText    = 0x01
	flagHdrCRC  = 0x02
	flagExtra   = 0x04
	flagName    = 0x08
	flagComment = 0x10

	flagReserved = 0xE0
)

// Member is the parsed header of one gzip member.
type Member struct {
	ModTime time.Time
	Name    string
	Comment string
	Extra   []byte
	OS      byte
}

// Decompress inflates all concatenated gzip members in data and returns
// their concatenated payloads.
func Decompress(data []byte) ([]byte, error) {
	_, out, err := Parse(data)
	return out, err
}

// Parse inflates all concatenated gzip members in data, returning each
// member's header metadata alongside the concatenated payload.
func Parse(data []byte) ([]Member, []byte, error) {
	br := bitio.NewReader(data, bitio.LSB)
	var members []Member
	var out []byte
	for {
		member, payload, err := decodeMember(br, data, out)
		if err != nil {
			return nil, nil, err
		}
		members = append(members, member)
		out = payload
		if br.AtEnd() {
			return members, out, nil
		}
	}
}

// decodeMember parses one member header, inflates its payload onto out and
// verifies the trailing CRC32 and ISIZE fields.
func decodeMember(br *bitio.Reader, data, out []byte) (Member, []byte, error) {
	var m Member

	headerStart := br.Offset()
	magic, err := br.ReadAlignedUint(2)
	if err != nil {
		return m, nil, err
	}
	if magic != 0x8B1F {
		return m, nil, ErrWrongMagic
	}
	method, err := br.ReadAlignedByte()
	if err != nil {
		return m, nil, err
	}
	if method != 8 {
		return m, nil, ErrWrongCompressionMethod
	}
	flags, err := br.ReadAlignedByte()
	if err != nil {
		return m, nil, err
	}
	if flags&flagReserved != 0 {
		return m, nil, ErrWrongFlags
	}
	mtime, err := br.ReadAlignedUint(4)
	if err != nil {
		return m, nil, err
	}
	if mtime != 0 {
		m.ModTime = time.Unix(int64(mtime), 0).UTC()
	}
	// XFL and OS.
	if _, err := br.ReadAlignedByte(); err != nil {
		return m, nil, err
	}
	if m.OS, err = br.ReadAlignedByte(); err != nil {
		return m, nil, err
	}

	if flags&flagExtra != 0 {
		xlen, err := br.ReadAlignedUint(2)
		if err != nil {
			return m, nil, err
		}
		m.Extra = make([]byte, xlen)
		for i := range m.Extra {
			if m.Extra[i], err = br.ReadAlignedByte(); err != nil {
				return m, nil, err
			}
		}
	}
	if flags&flagName != 0 {
		if m.Name, err = readString(br); err != nil {
			return m, nil, err
		}
	}
	if flags&flagComment != 0 {
		if m.Comment, err = readString(br); err != nil {
			return m, nil, err
		}
	}
	if flags&flagHdrCRC != 0 {
		headerCRC := crc32.ChecksumIEEE(data[headerStart:br.Offset()])
		stored, err := br.ReadAlignedUint(2)
		if err != nil {
			return m, nil, err
		}
		if uint32(stored) != headerCRC&0xFFFF {
			return m, nil, ErrWrongHeaderCRC
		}
	}

	payloadStart := len(out)
	out, err = flate.Decode(br, out)
	if err != nil {
		return m, nil, err
	}
	br.AlignToByte()

	crc, err := br.ReadAlignedUint(4)
	if err != nil {
		return m, nil, err
	}
	if uint32(crc) != crc32.ChecksumIEEE(out[payloadStart:]) {
		return m, nil, ErrWrongCRC
	}
	isize, err := br.ReadAlignedUint(4)
	if err != nil {
		return m, nil, err
	}
	// The low 32 bits of the 64-bit output length must equal ISIZE.
	if uint32(isize) != uint32(len(out)-payloadStart) {
		return m, nil, ErrWrongISize
	}
	return m, out, nil
}

func readString(br *bitio.Reader) (string, error) {
	var buf []byte
	for {
		b, err := br.ReadAlignedByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}
