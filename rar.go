// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"bytes"
	"io"

	"github.com/nwaples/rardecode"
)

// magicBytesRar covers rar v4 and v5 archives.
var magicBytesRar = [][]byte{
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00},
	{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x01, 0x00},
}

// isRar checks if the header matches the rar magic bytes.
func isRar(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytesRar)
}

// rarContainer adapts the rardecode library to the [Container]
// capability set. Decoding stays in the library; only the attribute
// mapping is ours.
type rarContainer struct{}

func (rarContainer) Format() Format {
	return FormatRar
}

func (rarContainer) Open(data []byte, cfg *Config) ([]Entry, error) {
	return rarEntries(data, cfg, true)
}

func (rarContainer) Info(data []byte, cfg *Config) ([]EntryInfo, error) {
	entries, err := rarEntries(data, cfg, false)
	if err != nil {
		return nil, err
	}
	infos := make([]EntryInfo, len(entries))
	for i := range entries {
		infos[i] = entries[i].EntryInfo
	}
	return infos, nil
}

func rarEntries(data []byte, cfg *Config, withData bool) ([]Entry, error) {
	r, err := rardecode.NewReader(bytes.NewReader(data), "")
	if err != nil {
		return nil, err
	}
	var entries []Entry
	var total int64
	for {
		hdr, err := r.Next()
		if err == io.EOF {
			return entries, nil
		}
		if err != nil {
			return nil, err
		}
		kind := KindRegular
		if hdr.IsDir {
			kind = KindDirectory
		}
		entry := Entry{EntryInfo: EntryInfo{
			Name:       hdr.Name,
			Size:       hdr.UnPackedSize,
			Kind:       kind,
			ModTime:    hdr.ModificationTime.UTC(),
			AccessTime: hdr.AccessTime.UTC(),
			CreateTime: hdr.CreationTime.UTC(),
			UID:        -1,
			GID:        -1,
			Perm:       uint32(hdr.Mode().Perm()),
		}}
		if withData && kind == KindRegular {
			if entry.Data, err = readAllLimited(r, cfg); err != nil {
				return nil, err
			}
			total += int64(len(entry.Data))
			if err := cfg.CheckOutputSize(total); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
}
