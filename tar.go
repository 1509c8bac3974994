// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"io"

	"github.com/hashicorp/go-decompress/tar"
)

// offsetTar is the position of the ustar magic within a header record.
const offsetTar = 257

// magicBytesTar are the ustar magic/version pairs (POSIX and GNU).
var magicBytesTar = [][]byte{
	{0x75, 0x73, 0x74, 0x61, 0x72, 0x00, 0x30, 0x30},
	{0x75, 0x73, 0x74, 0x61, 0x72, 0x20, 0x20, 0x00},
}

// isTar checks if the bytes at offset 257 match the ustar magic.
func isTar(header []byte) bool {
	return matchesMagicBytes(header, offsetTar, magicBytesTar)
}

// tarContainer adapts the tar package to the [Container] capability set.
type tarContainer struct{}

func (tarContainer) Format() Format {
	return FormatTar
}

func (tarContainer) Open(data []byte, cfg *Config) ([]Entry, error) {
	raw, err := tar.List(data)
	if err != nil {
		return nil, err
	}
	var total int64
	entries := make([]Entry, 0, len(raw))
	for i := range raw {
		total += int64(len(raw[i].Data))
		if err := cfg.CheckOutputSize(total); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{
			EntryInfo: tarEntryInfo(&raw[i].Header),
			Data:      raw[i].Data,
		})
	}
	return entries, nil
}

func (c tarContainer) Info(data []byte, cfg *Config) ([]EntryInfo, error) {
	entries, err := c.Open(data, cfg)
	if err != nil {
		return nil, err
	}
	infos := make([]EntryInfo, len(entries))
	for i := range entries {
		infos[i] = entries[i].EntryInfo
	}
	return infos, nil
}

// OpenTar iterates a tar archive from a streaming reader, emitting one
// entry at a time so memory stays bounded by the largest single entry.
// The callback receives each entry's attributes and a reader for its
// data; returning an error stops the iteration.
func OpenTar(r io.Reader, cfg *Config, fn func(EntryInfo, io.Reader) error) error {
	if cfg == nil {
		cfg = NewConfig()
	}
	if max := cfg.MaxInputSize(); max != -1 {
		r = io.LimitReader(r, max)
	}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(tarEntryInfo(hdr), tr); err != nil {
			return err
		}
	}
}

func tarEntryInfo(hdr *tar.Header) EntryInfo {
	info := EntryInfo{
		Name:       hdr.Name,
		Size:       hdr.Size,
		Kind:       tarKind(hdr.Typeflag),
		ModTime:    hdr.ModTime,
		AccessTime: hdr.AccessTime,
		CreateTime: hdr.ChangeTime,
		UID:        hdr.UID,
		GID:        hdr.GID,
		Uname:      hdr.Uname,
		Gname:      hdr.Gname,
		Perm:       uint32(hdr.Mode) & 0o7777,
		Linkname:   hdr.Linkname,
		Tar: &TarExtra{
			Format:     hdr.Format.String(),
			Devmajor:   hdr.Devmajor,
			Devminor:   hdr.Devminor,
			PAXRecords: hdr.PAXRecords,
		},
	}
	return info
}

func tarKind(typeflag byte) EntryKind {
	switch typeflag {
	case tar.TypeReg, tar.TypeCont:
		return KindRegular
	case tar.TypeLink:
		return KindHardlink
	case tar.TypeSymlink:
		return KindSymlink
	case tar.TypeChar:
		return KindCharDevice
	case tar.TypeBlock:
		return KindBlockDevice
	case tar.TypeDir:
		return KindDirectory
	case tar.TypeFifo:
		return KindFifo
	default:
		return KindOther
	}
}
