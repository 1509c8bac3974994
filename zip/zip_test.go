// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package zip_test

import (
	stdzip "archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"hash/crc32"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hashicorp/go-decompress/zip"
)

// storedZip hand-assembles a single-entry archive with method store.
func storedZip(t *testing.T, name string, payload []byte) []byte {
	t.Helper()
	crc := crc32.ChecksumIEEE(payload)

	var buf bytes.Buffer
	le := binary.LittleEndian
	write16 := func(v uint16) { b := make([]byte, 2); le.PutUint16(b, v); buf.Write(b) }
	write32 := func(v uint32) { b := make([]byte, 4); le.PutUint32(b, v); buf.Write(b) }

	// Local file header.
	write32(0x04034B50)
	write16(20) // version needed
	write16(0)  // flags
	write16(0)  // method store
	write16(0)  // dos time
	write16(0x21) // dos date 1980-01-01
	write32(crc)
	write32(uint32(len(payload)))
	write32(uint32(len(payload)))
	write16(uint16(len(name)))
	write16(0)
	buf.WriteString(name)
	buf.Write(payload)

	cdStart := buf.Len()
	// Central directory entry.
	write32(0x02014B50)
	write16(20)
	write16(20)
	write16(0)
	write16(0)
	write16(0)
	write16(0x21)
	write32(crc)
	write32(uint32(len(payload)))
	write32(uint32(len(payload)))
	write16(uint16(len(name)))
	write16(0) // extra len
	write16(0) // comment len
	write16(0) // disk number
	write16(0) // internal attrs
	write32(0) // external attrs
	write32(0) // local header offset
	buf.WriteString(name)
	cdSize := buf.Len() - cdStart

	// End of central directory.
	write32(0x06054B50)
	write16(0)
	write16(0)
	write16(1)
	write16(1)
	write32(uint32(cdSize))
	write32(uint32(cdStart))
	write16(0)
	return buf.Bytes()
}

func TestOpenStoredEntry(t *testing.T) {
	ar, err := zip.Open(storedZip(t, "a.txt", []byte("Hi")))
	require.NoError(t, err)
	require.Len(t, ar.Files, 1)

	f := ar.Files[0]
	require.Equal(t, "a.txt", f.Name)
	require.Equal(t, uint32(0x4D170E0E), f.CRC32)
	require.Equal(t, uint64(2), f.UncompressedSize)
	require.Empty(t, f.Extra)

	data, err := f.Data()
	require.NoError(t, err)
	require.Equal(t, "Hi", string(data))
}

func stdlibZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := stdzip.NewWriter(&buf)
	for name, content := range files {
		hdr := &stdzip.FileHeader{Name: name, Method: stdzip.Deflate, Modified: time.Unix(1700000000, 0)}
		fw, err := w.CreateHeader(hdr)
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func TestOpenStdlibArchive(t *testing.T) {
	// archive/zip streams its output, so entries carry the
	// data-descriptor flag and the central directory is authoritative.
	files := map[string]string{
		"readme.md":    "# readme",
		"dir/":         "",
		"dir/data.bin": "payload bytes here",
	}
	ar, err := zip.Open(stdlibZip(t, files))
	require.NoError(t, err)
	require.Len(t, ar.Files, len(files))

	seen := map[string]bool{}
	for _, f := range ar.Files {
		want, ok := files[f.Name]
		require.True(t, ok, "unexpected entry %q", f.Name)
		seen[f.Name] = true
		data, err := f.Data()
		require.NoError(t, err)
		require.Equal(t, want, string(data))
	}
	require.Len(t, seen, len(files))
}

func TestDirectoryDetection(t *testing.T) {
	ar, err := zip.Open(stdlibZip(t, map[string]string{"folder/": "", "folder/file": "x"}))
	require.NoError(t, err)
	for _, f := range ar.Files {
		if f.Name == "folder/" {
			require.True(t, f.IsDir())
		} else {
			require.False(t, f.IsDir())
		}
	}
}

func TestExtendedTimestamp(t *testing.T) {
	// archive/zip writes the 0x5455 extended timestamp extra field for
	// the Modified value.
	mtime := time.Unix(1700000000, 0).UTC()
	ar, err := zip.Open(stdlibZip(t, map[string]string{"timed.txt": "t"}))
	require.NoError(t, err)
	require.Equal(t, mtime, ar.Files[0].Modified)
}

func TestModifiedFallsBackToDOS(t *testing.T) {
	ar, err := zip.Open(storedZip(t, "dos.txt", []byte("x")))
	require.NoError(t, err)
	// DOS date 0x21 is 1980-01-01.
	require.Equal(t, time.Date(1980, 1, 1, 0, 0, 0, 0, time.UTC), ar.Files[0].Modified)
}

func TestNoEndOfCentralDirectory(t *testing.T) {
	if _, err := zip.Open([]byte("this is not a zip archive")); !errors.Is(err, zip.ErrNoEndOfCentralDirectory) {
		t.Errorf("Open() error = %v, want ErrNoEndOfCentralDirectory", err)
	}
}

func TestEOCDBehindComment(t *testing.T) {
	data := storedZip(t, "c.txt", []byte("x"))
	// Declare a trailing comment and append it after the EOCD.
	comment := "trailing archive comment"
	binary.LittleEndian.PutUint16(data[len(data)-2:], uint16(len(comment)))
	data = append(data, comment...)

	ar, err := zip.Open(data)
	require.NoError(t, err)
	require.Equal(t, comment, ar.Comment)
	require.Len(t, ar.Files, 1)
}

func TestCRCMismatch(t *testing.T) {
	data := storedZip(t, "bad.txt", []byte("payload"))
	// Corrupt the stored payload; both size records stay intact.
	idx := bytes.Index(data, []byte("payload"))
	data[idx] ^= 0xFF
	ar, err := zip.Open(data)
	require.NoError(t, err)
	_, err = ar.Files[0].Data()
	require.ErrorIs(t, err, zip.ErrCRCMismatch)
}

func TestNameMismatch(t *testing.T) {
	data := storedZip(t, "name.txt", []byte("x"))
	// Rewrite the local header's copy of the name.
	idx := bytes.Index(data, []byte("name.txt"))
	copy(data[idx:], "Name.txt")
	_, err := zip.Open(data)
	require.ErrorIs(t, err, zip.ErrNameMismatch)
}

func TestTruncatedCentralDirectory(t *testing.T) {
	data := storedZip(t, "t.txt", []byte("x"))
	// Point the EOCD's central directory offset past the end.
	binary.LittleEndian.PutUint32(data[len(data)-6:], uint32(len(data)))
	_, err := zip.Open(data)
	require.ErrorIs(t, err, zip.ErrTruncated)
}

func TestCP437Filename(t *testing.T) {
	// 0x82 is é in code page 437.
	name := string([]byte{'c', 'a', 'f', 0x82})
	data := storedZip(t, name, []byte("x"))
	ar, err := zip.Open(data)
	require.NoError(t, err)
	require.Equal(t, "café", ar.Files[0].Name)
}

func TestCentralDirectoryOrderPreserved(t *testing.T) {
	var buf bytes.Buffer
	w := stdzip.NewWriter(&buf)
	names := []string{"z.txt", "a.txt", "m.txt"}
	for _, name := range names {
		fw, err := w.Create(name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(name))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	ar, err := zip.Open(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, ar.Files, len(names))
	for i, name := range names {
		require.Equal(t, name, ar.Files[i].Name)
	}
}
