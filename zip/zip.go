// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package zip reads ZIP archives through their central directory, the
// authoritative index at the end of the file, reconciling each entry
// against its local header and resolving the extra-field dictionary
// (APPNOTE.TXT, including Zip64).
package zip

import (
	"encoding/binary"
	"errors"
	"hash/crc32"
	"time"

	"golang.org/x/text/encoding/charmap"

	"github.com/hashicorp/go-decompress/flate"
)

var (
	// ErrNoEndOfCentralDirectory is returned when the trailing record
	// cannot be located.
	ErrNoEndOfCentralDirectory = errors.New("zip: end of central directory not found")

	// ErrWrongSignature is returned when a record does not start with its
	// expected signature.
	ErrWrongSignature = errors.New("zip: wrong record signature")

	// ErrUnsupportedCompression is returned for compression methods other
	// than stored and DEFLATE.
	ErrUnsupportedCompression = errors.New("zip: unsupported compression method")

	// ErrEncrypted is returned for encryption-protected entries.
	ErrEncrypted = errors.New("zip: encrypted entry")

	// ErrCRCMismatch is returned when an entry's payload does not match
	// its recorded CRC32.
	ErrCRCMismatch = errors.New("zip: checksum mismatch")

	// ErrSizeMismatch is returned when an entry's payload does not match
	// its recorded uncompressed size.
	ErrSizeMismatch = errors.New("zip: size mismatch")

	// ErrNameMismatch is returned when local and central directory
	// filenames disagree.
	ErrNameMismatch = errors.New("zip: local and central filenames differ")

	// ErrUnsupportedFeature is returned for multi-volume archives.
	ErrUnsupportedFeature = errors.New("zip: unsupported feature")

	// ErrTruncated is returned when a record points past the end of the
	// input.
	ErrTruncated = errors.New("zip: truncated input")
)

// Record signatures.
const (
	sigLocalHeader    = 0x04034B50
	sigCentralHeader  = 0x02014B50
	sigEOCD           = 0x06054B50
	sigZip64EOCD      = 0x06064B50
	sigZip64Locator   = 0x07064B50
	sigDataDescriptor = 0x08074B50
)

// Extra-field tags resolved by the reader; anything else is retained
// verbatim in File.Extra.
const (
	tagZip64       = 0x0001
	tagNTFS        = 0x000A
	tagExtTime     = 0x5455
	tagInfoZIPUnix = 0x5855
	tagNewUnix     = 0x7875
)

// General-purpose flag bits.
const (
	flagEncrypted      = 0x0001
	flagDataDescriptor = 0x0008
	flagUTF8           = 0x0800
)

// Compression methods.
const (
	MethodStore   = 0
	MethodDeflate = 8
)

// ExtraField is one unresolved extra-field record, kept as found.
type ExtraField struct {
	Tag  uint16
	Data []byte
}

// File is one archive entry, reconciled between its central directory
// record and local header.
type File struct {
	Name    string
	Comment string

	Method           uint16
	Flags            uint16
	CRC32            uint32
	CompressedSize   uint64
	UncompressedSize uint64

	Modified time.Time
	Accessed time.Time // zero when no source recorded it
	Created  time.Time // zero when no source recorded it

	// UID and GID are -1 when no Unix extra field carried them.
	UID int
	GID int

	VersionMadeBy  uint16
	InternalAttrs  uint16
	ExternalAttrs  uint32
	Offset         uint64
	DOSTime        uint16
	DOSDate        uint16

	// Extra retains the extra fields the reader did not resolve.
	Extra []ExtraField

	data []byte // compressed payload
}

// Archive is the decoded central directory.
type Archive struct {
	Files   []*File
	Comment string
}

// Open parses the archive held in data. Entries are returned in central
// directory order; payloads are decompressed lazily via [File.Data].
func Open(data []byte) (*Archive, error) {
	eocdOff, err := findEOCD(data)
	if err != nil {
		return nil, err
	}
	eocd := data[eocdOff:]
	if binary.LittleEndian.Uint16(eocd[4:6]) != 0 || binary.LittleEndian.Uint16(eocd[6:8]) != 0 {
		return nil, ErrUnsupportedFeature
	}
	count := uint64(binary.LittleEndian.Uint16(eocd[10:12]))
	cdSize := uint64(binary.LittleEndian.Uint32(eocd[12:16]))
	cdOffset := uint64(binary.LittleEndian.Uint32(eocd[16:20]))
	commentLen := int(binary.LittleEndian.Uint16(eocd[20:22]))
	comment := ""
	if commentLen > 0 && eocdOff+22+commentLen <= len(data) {
		comment = string(eocd[22 : 22+commentLen])
	}

	// A Zip64 locator directly precedes the EOCD when any of the 32-bit
	// fields overflowed.
	if count == 0xFFFF || cdSize == 0xFFFFFFFF || cdOffset == 0xFFFFFFFF {
		if c, s, o, ok := findZip64(data, eocdOff); ok {
			count, cdSize, cdOffset = c, s, o
		}
	}
	if cdOffset+cdSize > uint64(len(data)) {
		return nil, ErrTruncated
	}

	ar := &Archive{Comment: comment}
	pos := cdOffset
	for i := uint64(0); i < count; i++ {
		f, next, err := parseCentral(data, pos)
		if err != nil {
			return nil, err
		}
		if err := resolveLocal(data, f); err != nil {
			return nil, err
		}
		ar.Files = append(ar.Files, f)
		pos = next
	}
	return ar, nil
}

// findEOCD scans backward from the end for the end-of-central-directory
// signature, allowing up to 64 KiB of trailing archive comment.
func findEOCD(data []byte) (int, error) {
	if len(data) < 22 {
		return 0, ErrNoEndOfCentralDirectory
	}
	low := len(data) - 22 - 0xFFFF
	if low < 0 {
		low = 0
	}
	for off := len(data) - 22; off >= low; off-- {
		if binary.LittleEndian.Uint32(data[off:off+4]) == sigEOCD {
			return off, nil
		}
	}
	return 0, ErrNoEndOfCentralDirectory
}

// findZip64 reads the Zip64 EOCD locator and record.
func findZip64(data []byte, eocdOff int) (count, size, offset uint64, ok bool) {
	locOff := eocdOff - 20
	if locOff < 0 || binary.LittleEndian.Uint32(data[locOff:locOff+4]) != sigZip64Locator {
		return 0, 0, 0, false
	}
	recOff := binary.LittleEndian.Uint64(data[locOff+8 : locOff+16])
	if recOff+56 > uint64(len(data)) || binary.LittleEndian.Uint32(data[recOff:recOff+4]) != sigZip64EOCD {
		return 0, 0, 0, false
	}
	rec := data[recOff:]
	count = binary.LittleEndian.Uint64(rec[32:40])
	size = binary.LittleEndian.Uint64(rec[40:48])
	offset = binary.LittleEndian.Uint64(rec[48:56])
	return count, size, offset, true
}

// parseCentral decodes one central directory entry starting at pos and
// returns the position of the next one.
func parseCentral(data []byte, pos uint64) (*File, uint64, error) {
	if pos+46 > uint64(len(data)) {
		return nil, 0, ErrTruncated
	}
	rec := data[pos:]
	if binary.LittleEndian.Uint32(rec[0:4]) != sigCentralHeader {
		return nil, 0, ErrWrongSignature
	}
	f := &File{
		VersionMadeBy:    binary.LittleEndian.Uint16(rec[4:6]),
		Flags:            binary.LittleEndian.Uint16(rec[8:10]),
		Method:           binary.LittleEndian.Uint16(rec[10:12]),
		DOSTime:          binary.LittleEndian.Uint16(rec[12:14]),
		DOSDate:          binary.LittleEndian.Uint16(rec[14:16]),
		CRC32:            binary.LittleEndian.Uint32(rec[16:20]),
		CompressedSize:   uint64(binary.LittleEndian.Uint32(rec[20:24])),
		UncompressedSize: uint64(binary.LittleEndian.Uint32(rec[24:28])),
		InternalAttrs:    binary.LittleEndian.Uint16(rec[36:38]),
		ExternalAttrs:    binary.LittleEndian.Uint32(rec[38:42]),
		Offset:           uint64(binary.LittleEndian.Uint32(rec[42:46])),
		UID:              -1,
		GID:              -1,
	}
	nameLen := uint64(binary.LittleEndian.Uint16(rec[28:30]))
	extraLen := uint64(binary.LittleEndian.Uint16(rec[30:32]))
	commentLen := uint64(binary.LittleEndian.Uint16(rec[32:34]))
	if pos+46+nameLen+extraLen+commentLen > uint64(len(data)) {
		return nil, 0, ErrTruncated
	}
	rawName := rec[46 : 46+nameLen]
	f.Name = decodeName(rawName, f.Flags)
	extra := rec[46+nameLen : 46+nameLen+extraLen]
	f.Comment = string(rec[46+nameLen+extraLen : 46+nameLen+extraLen+commentLen])

	if err := f.applyExtra(extra, true); err != nil {
		return nil, 0, err
	}
	return f, pos + 46 + nameLen + extraLen + commentLen, nil
}

// resolveLocal cross-references the entry's local header: the filename
// must match, and unless the data-descriptor flag is set the local
// header's sizes and CRC are authoritative.
func resolveLocal(data []byte, f *File) error {
	if f.Offset+30 > uint64(len(data)) {
		return ErrTruncated
	}
	rec := data[f.Offset:]
	if binary.LittleEndian.Uint32(rec[0:4]) != sigLocalHeader {
		return ErrWrongSignature
	}
	flags := binary.LittleEndian.Uint16(rec[6:8])
	crc := binary.LittleEndian.Uint32(rec[14:18])
	compressed := uint64(binary.LittleEndian.Uint32(rec[18:22]))
	uncompressed := uint64(binary.LittleEndian.Uint32(rec[22:26]))
	nameLen := uint64(binary.LittleEndian.Uint16(rec[26:28]))
	extraLen := uint64(binary.LittleEndian.Uint16(rec[28:30]))
	if f.Offset+30+nameLen+extraLen > uint64(len(data)) {
		return ErrTruncated
	}
	localName := decodeName(rec[30:30+nameLen], flags)
	if localName != f.Name {
		return ErrNameMismatch
	}

	// The local header's extra fields may carry Zip64 sizes and the
	// richer variant of the timestamp fields.
	local := &File{
		CRC32:            crc,
		CompressedSize:   compressed,
		UncompressedSize: uncompressed,
		UID:              -1,
		GID:              -1,
	}
	if err := local.applyExtra(rec[30+nameLen:30+nameLen+extraLen], false); err != nil {
		return err
	}

	if flags&flagDataDescriptor == 0 {
		// The local header is authoritative.
		f.CRC32 = local.CRC32
		f.CompressedSize = local.CompressedSize
		f.UncompressedSize = local.UncompressedSize
	}
	if !local.Modified.IsZero() && f.Modified.IsZero() {
		f.Modified = local.Modified
	}
	if !local.Accessed.IsZero() && f.Accessed.IsZero() {
		f.Accessed = local.Accessed
	}
	if !local.Created.IsZero() && f.Created.IsZero() {
		f.Created = local.Created
	}
	if local.UID != -1 && f.UID == -1 {
		f.UID, f.GID = local.UID, local.GID
	}

	// Fall back to the DOS date/time fields when no extra field supplied
	// the modification time.
	if f.Modified.IsZero() {
		f.Modified = dosTime(f.DOSDate, f.DOSTime)
	}

	dataStart := f.Offset + 30 + nameLen + extraLen
	if dataStart+f.CompressedSize > uint64(len(data)) {
		return ErrTruncated
	}
	f.data = data[dataStart : dataStart+f.CompressedSize]
	return nil
}

// applyExtra walks the (tag, length, payload) sequence. central selects
// between the central-directory and local-header layouts of the fields
// whose shape differs. Unknown tags are retained verbatim.
func (f *File) applyExtra(extra []byte, central bool) error {
	for len(extra) >= 4 {
		tag := binary.LittleEndian.Uint16(extra[0:2])
		size := int(binary.LittleEndian.Uint16(extra[2:4]))
		if 4+size > len(extra) {
			break
		}
		body := extra[4 : 4+size]
		extra = extra[4+size:]

		switch tag {
		case tagZip64:
			// 64-bit values replace each 32-bit field that saturated, in
			// a fixed order.
			p := 0
			if f.UncompressedSize == 0xFFFFFFFF && p+8 <= len(body) {
				f.UncompressedSize = binary.LittleEndian.Uint64(body[p:])
				p += 8
			}
			if f.CompressedSize == 0xFFFFFFFF && p+8 <= len(body) {
				f.CompressedSize = binary.LittleEndian.Uint64(body[p:])
				p += 8
			}
			if f.Offset == 0xFFFFFFFF && p+8 <= len(body) {
				f.Offset = binary.LittleEndian.Uint64(body[p:])
			}
		case tagExtTime:
			// A flag byte, then the times whose flag bits are set. The
			// central variant carries the modification time only.
			if len(body) < 1 {
				break
			}
			flags := body[0]
			p := 1
			if flags&0x01 != 0 && p+4 <= len(body) {
				f.Modified = time.Unix(int64(int32(binary.LittleEndian.Uint32(body[p:]))), 0).UTC()
				p += 4
			}
			if !central {
				if flags&0x02 != 0 && p+4 <= len(body) {
					f.Accessed = time.Unix(int64(int32(binary.LittleEndian.Uint32(body[p:]))), 0).UTC()
					p += 4
				}
				if flags&0x04 != 0 && p+4 <= len(body) {
					f.Created = time.Unix(int64(int32(binary.LittleEndian.Uint32(body[p:]))), 0).UTC()
				}
			}
		case tagNTFS:
			// Reserved dword, then attribute records; attribute 1 holds
			// the three times as 100 ns ticks since 1601.
			p := 4
			for p+4 <= len(body) {
				attrTag := binary.LittleEndian.Uint16(body[p:])
				attrSize := int(binary.LittleEndian.Uint16(body[p+2:]))
				p += 4
				if p+attrSize > len(body) {
					break
				}
				if attrTag == 1 && attrSize >= 24 {
					if f.Modified.IsZero() {
						f.Modified = ntfsTime(binary.LittleEndian.Uint64(body[p:]))
					}
					if f.Accessed.IsZero() {
						f.Accessed = ntfsTime(binary.LittleEndian.Uint64(body[p+8:]))
					}
					if f.Created.IsZero() {
						f.Created = ntfsTime(binary.LittleEndian.Uint64(body[p+16:]))
					}
				}
				p += attrSize
			}
		case tagNewUnix:
			// Version byte, then uid and gid with explicit byte widths.
			if len(body) < 2 || body[0] != 1 {
				break
			}
			p := 1
			uid, np, ok := readSizedInt(body, p)
			if !ok {
				break
			}
			p = np
			gid, _, ok := readSizedInt(body, p)
			if !ok {
				break
			}
			f.UID, f.GID = uid, gid
		case tagInfoZIPUnix:
			// Local: atime, mtime, uid, gid. Central: atime, mtime only.
			if len(body) < 8 {
				break
			}
			atime := time.Unix(int64(int32(binary.LittleEndian.Uint32(body[0:]))), 0).UTC()
			mtime := time.Unix(int64(int32(binary.LittleEndian.Uint32(body[4:]))), 0).UTC()
			if f.Accessed.IsZero() {
				f.Accessed = atime
			}
			if f.Modified.IsZero() {
				f.Modified = mtime
			}
			if !central && len(body) >= 12 && f.UID == -1 {
				f.UID = int(binary.LittleEndian.Uint16(body[8:]))
				f.GID = int(binary.LittleEndian.Uint16(body[10:]))
			}
		default:
			f.Extra = append(f.Extra, ExtraField{Tag: tag, Data: append([]byte(nil), body...)})
		}
	}
	return nil
}

func readSizedInt(body []byte, p int) (int, int, bool) {
	if p >= len(body) {
		return 0, 0, false
	}
	n := int(body[p])
	p++
	if n > 8 || p+n > len(body) {
		return 0, 0, false
	}
	var v uint64
	for i := 0; i < n; i++ {
		v |= uint64(body[p+i]) << uint(8*i)
	}
	return int(v), p + n, true
}

// decodeName decodes CP437 unless the UTF-8 flag (bit 11) is set.
func decodeName(raw []byte, flags uint16) string {
	if flags&flagUTF8 != 0 {
		return string(raw)
	}
	ascii := true
	for _, b := range raw {
		if b >= 0x80 {
			ascii = false
			break
		}
	}
	if ascii {
		return string(raw)
	}
	decoded, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw)
	}
	return string(decoded)
}

// dosTime converts the DOS date/time fields; the zero pair maps to the
// zero time.
func dosTime(date, tim uint16) time.Time {
	if date == 0 {
		return time.Time{}
	}
	return time.Date(
		1980+int(date>>9),
		time.Month((date>>5)&0xF),
		int(date&0x1F),
		int(tim>>11),
		int((tim>>5)&0x3F),
		int(tim&0x1F)*2,
		0, time.UTC,
	)
}

// ntfsTime converts 100 ns ticks since 1601-01-01.
func ntfsTime(ticks uint64) time.Time {
	const epochDelta = 116444736000000000 // 1601 to 1970 in ticks
	t := int64(ticks) - epochDelta
	return time.Unix(t/1e7, (t%1e7)*100).UTC()
}

// IsDir reports whether the entry is a directory: Unix type bits from the
// external attributes, then the DOS directory attribute, then a trailing
// slash with zero size.
func (f *File) IsDir() bool {
	if mode := f.unixMode(); mode&0xF000 != 0 {
		return mode&0xF000 == 0x4000
	}
	if f.ExternalAttrs&0x10 != 0 {
		return true
	}
	return len(f.Name) > 0 && f.Name[len(f.Name)-1] == '/' && f.UncompressedSize == 0
}

// IsSymlink reports whether the Unix type bits mark a symbolic link.
func (f *File) IsSymlink() bool {
	return f.unixMode()&0xF000 == 0xA000
}

// UnixMode returns the Unix mode bits from the external attributes, zero
// when the entry was not written by a Unix-aware tool.
func (f *File) UnixMode() uint32 {
	return f.unixMode()
}

func (f *File) unixMode() uint32 {
	return (f.ExternalAttrs >> 16) & 0xFFFF
}

// Data decompresses and verifies the entry payload.
func (f *File) Data() ([]byte, error) {
	if f.Flags&flagEncrypted != 0 {
		return nil, ErrEncrypted
	}
	var out []byte
	switch f.Method {
	case MethodStore:
		out = append([]byte(nil), f.data...)
	case MethodDeflate:
		var err error
		if out, err = flate.Decompress(f.data); err != nil {
			return nil, err
		}
	default:
		return nil, ErrUnsupportedCompression
	}
	if uint64(len(out)) != f.UncompressedSize {
		return nil, ErrSizeMismatch
	}
	if crc32.ChecksumIEEE(out) != f.CRC32 {
		return nil, ErrCRCMismatch
	}
	return out, nil
}
