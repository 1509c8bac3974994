// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"strings"

	"github.com/hashicorp/go-decompress/zip"
)

// magicBytesZip contains the magic bytes for a zip archive.
var magicBytesZip = [][]byte{
	{0x50, 0x4B, 0x03, 0x04},
}

// isZip checks if data starts with a zip local file header.
func isZip(data []byte) bool {
	return matchesMagicBytes(data, 0, magicBytesZip)
}

// zipContainer adapts the zip package to the [Container] capability set.
type zipContainer struct{}

func (zipContainer) Format() Format {
	return FormatZip
}

func (zipContainer) Open(data []byte, cfg *Config) ([]Entry, error) {
	ar, err := zip.Open(data)
	if err != nil {
		return nil, err
	}
	var total int64
	entries := make([]Entry, 0, len(ar.Files))
	for _, f := range ar.Files {
		entry := Entry{EntryInfo: zipEntryInfo(f)}
		switch entry.Kind {
		case KindRegular:
			if entry.Data, err = f.Data(); err != nil {
				return nil, err
			}
			total += int64(len(entry.Data))
			if err := cfg.CheckOutputSize(total); err != nil {
				return nil, err
			}
		case KindSymlink:
			// The link target travels as the entry payload.
			target, err := f.Data()
			if err != nil {
				return nil, err
			}
			entry.Linkname = string(target)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (zipContainer) Info(data []byte, cfg *Config) ([]EntryInfo, error) {
	ar, err := zip.Open(data)
	if err != nil {
		return nil, err
	}
	infos := make([]EntryInfo, 0, len(ar.Files))
	for _, f := range ar.Files {
		infos = append(infos, zipEntryInfo(f))
	}
	return infos, nil
}

func zipEntryInfo(f *zip.File) EntryInfo {
	tags := make([]uint16, 0, len(f.Extra))
	for _, e := range f.Extra {
		tags = append(tags, e.Tag)
	}
	return EntryInfo{
		Name:       f.Name,
		Size:       int64(f.UncompressedSize),
		Kind:       zipKind(f),
		ModTime:    f.Modified,
		AccessTime: f.Accessed,
		CreateTime: f.Created,
		UID:        f.UID,
		GID:        f.GID,
		Perm:       f.UnixMode() & 0o7777,
		Zip: &ZipExtra{
			Comment:        f.Comment,
			Method:         f.Method,
			CRC32:          f.CRC32,
			CompressedSize: f.CompressedSize,
			InternalAttrs:  f.InternalAttrs,
			ExternalAttrs:  f.ExternalAttrs,
			ExtraTags:      tags,
		},
	}
}

// zipKind decodes the Unix file-type bits of the external attributes; if
// unavailable it consults the DOS directory attribute and finally the
// name itself.
func zipKind(f *zip.File) EntryKind {
	if mode := f.UnixMode(); mode&0xF000 != 0 {
		switch mode & 0xF000 {
		case 0x8000:
			return KindRegular
		case 0x4000:
			return KindDirectory
		case 0xA000:
			return KindSymlink
		case 0x2000:
			return KindCharDevice
		case 0x6000:
			return KindBlockDevice
		case 0x1000:
			return KindFifo
		default:
			return KindOther
		}
	}
	if f.IsDir() {
		return KindDirectory
	}
	if strings.HasSuffix(f.Name, "/") && f.UncompressedSize == 0 {
		return KindDirectory
	}
	return KindRegular
}
