// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"bytes"

	"github.com/bodgit/sevenzip"
)

// magicBytes7Zip is the magic bytes for 7zip files.
var magicBytes7Zip = [][]byte{
	{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C},
}

// is7Zip checks if the header matches the 7zip magic bytes.
func is7Zip(header []byte) bool {
	return matchesMagicBytes(header, 0, magicBytes7Zip)
}

// sevenZipContainer adapts the bodgit sevenzip library to the
// [Container] capability set. Decoding stays in the library; only the
// attribute mapping is ours.
type sevenZipContainer struct{}

func (sevenZipContainer) Format() Format {
	return Format7Zip
}

func (sevenZipContainer) Open(data []byte, cfg *Config) ([]Entry, error) {
	return sevenZipEntries(data, cfg, true)
}

func (sevenZipContainer) Info(data []byte, cfg *Config) ([]EntryInfo, error) {
	entries, err := sevenZipEntries(data, cfg, false)
	if err != nil {
		return nil, err
	}
	infos := make([]EntryInfo, len(entries))
	for i := range entries {
		infos[i] = entries[i].EntryInfo
	}
	return infos, nil
}

func sevenZipEntries(data []byte, cfg *Config, withData bool) ([]Entry, error) {
	r, err := sevenzip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	var entries []Entry
	var total int64
	for _, f := range r.File {
		fi := f.FileInfo()
		kind := KindRegular
		if fi.IsDir() {
			kind = KindDirectory
		}
		entry := Entry{EntryInfo: EntryInfo{
			Name:    f.Name,
			Size:    fi.Size(),
			Kind:    kind,
			ModTime: fi.ModTime().UTC(),
			UID:     -1,
			GID:     -1,
			Perm:    uint32(fi.Mode().Perm()),
		}}
		if withData && kind == KindRegular {
			rc, err := f.Open()
			if err != nil {
				return nil, err
			}
			entry.Data, err = readAllLimited(rc, cfg)
			rc.Close()
			if err != nil {
				return nil, err
			}
			total += int64(len(entry.Data))
			if err := cfg.CheckOutputSize(total); err != nil {
				return nil, err
			}
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
