// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	kgzip "github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	decompress "github.com/hashicorp/go-decompress"
	"github.com/hashicorp/go-decompress/tar"
)

var helloGz = []byte{
	0x1F, 0x8B, 0x08, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x03,
	0xF3, 0x48, 0xCD, 0xC9, 0xC9, 0x07, 0x00,
	0x82, 0x89, 0xD1, 0xF7, 0x05, 0x00, 0x00, 0x00,
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		name   string
		header []byte
		want   decompress.Format
	}{
		{name: "gzip", header: []byte{0x1F, 0x8B, 0x08}, want: decompress.FormatGZip},
		{name: "xz", header: []byte{0xFD, 0x37, 0x7A, 0x58, 0x5A, 0x00}, want: decompress.FormatXz},
		{name: "bzip2", header: []byte("BZh9"), want: decompress.FormatBzip2},
		{name: "zstd", header: []byte{0x28, 0xB5, 0x2F, 0xFD}, want: decompress.FormatZstd},
		{name: "lz4", header: []byte{0x04, 0x22, 0x4D, 0x18}, want: decompress.FormatLz4},
		{name: "zip", header: []byte{0x50, 0x4B, 0x03, 0x04}, want: decompress.FormatZip},
		{name: "rar", header: []byte{0x52, 0x61, 0x72, 0x21, 0x1A, 0x07, 0x00}, want: decompress.FormatRar},
		{name: "7z", header: []byte{0x37, 0x7A, 0xBC, 0xAF, 0x27, 0x1C}, want: decompress.Format7Zip},
		{name: "zlib", header: []byte{0x78, 0x9C}, want: decompress.FormatZlib},
		{name: "lzma", header: []byte{0x5D, 0x00, 0x00}, want: decompress.FormatLzma},
		{name: "unknown", header: []byte("plain text"), want: decompress.FormatUnknown},
		{name: "empty", header: nil, want: decompress.FormatUnknown},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := decompress.DetectFormat(test.header); got != test.want {
				t.Errorf("DetectFormat() = %q, want %q", got, test.want)
			}
		})
	}
}

func TestDetectFormatTar(t *testing.T) {
	data, err := tar.Create([]tar.Entry{{Header: tar.Header{Name: "f"}}}, tar.FormatUSTAR)
	require.NoError(t, err)
	require.Equal(t, decompress.FormatTar, decompress.DetectFormat(data))
}

func TestDecompressGZip(t *testing.T) {
	got, err := decompress.Decompress(context.Background(), helloGz, nil)
	require.NoError(t, err)
	require.Equal(t, "Hello", string(got))
}

func TestDecompressZstdPassthrough(t *testing.T) {
	want := bytes.Repeat([]byte("zstd payload "), 100)
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = w.Write(want)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	got, err := decompress.Decompress(context.Background(), buf.Bytes(), nil)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestDecompressUnknownFormat(t *testing.T) {
	_, err := decompress.Decompress(context.Background(), []byte("no magic here"), nil)
	require.ErrorIs(t, err, decompress.ErrUnknownFormat)
}

func TestDecompressArchiveInputRejected(t *testing.T) {
	data, err := tar.Create([]tar.Entry{{Header: tar.Header{Name: "f"}, Data: nil}}, tar.FormatUSTAR)
	require.NoError(t, err)
	_, err = decompress.Decompress(context.Background(), data, nil)
	require.ErrorIs(t, err, decompress.ErrArchiveInput)
}

func TestEntriesTar(t *testing.T) {
	data, err := tar.Create([]tar.Entry{
		{Header: tar.Header{Name: "a.txt", Mode: 0o644, ModTime: time.Unix(1700000000, 0).UTC()}, Data: []byte("alpha")},
		{Header: tar.Header{Name: "d", Typeflag: tar.TypeDir, Mode: 0o755, ModTime: time.Unix(1700000000, 0).UTC()}},
	}, tar.FormatPAX)
	require.NoError(t, err)

	entries, err := decompress.Entries(context.Background(), data, nil)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "a.txt", entries[0].Name)
	require.Equal(t, decompress.KindRegular, entries[0].Kind)
	require.Equal(t, "alpha", string(entries[0].Data))
	require.Equal(t, decompress.KindDirectory, entries[1].Kind)
	require.NotNil(t, entries[0].Tar)
	require.Nil(t, entries[0].Zip)
}

func TestEntriesTarGz(t *testing.T) {
	// tar.gz: the umbrella decompresses and re-sniffs the payload.
	plain, err := tar.Create([]tar.Entry{
		{Header: tar.Header{Name: "inner.txt", Mode: 0o644, ModTime: time.Unix(1700000000, 0).UTC()}, Data: []byte("inner")},
	}, tar.FormatUSTAR)
	require.NoError(t, err)

	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	_, err = w.Write(plain)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	entries, err := decompress.Entries(context.Background(), buf.Bytes(), nil)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "inner.txt", entries[0].Name)
	require.Equal(t, "inner", string(entries[0].Data))
}

func TestEntriesTarGzDisabled(t *testing.T) {
	var buf bytes.Buffer
	w := kgzip.NewWriter(&buf)
	_, err := w.Write([]byte("just gzip, no tar"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	cfg := decompress.NewConfig(decompress.WithNoUntarAfterDecompression(true))
	_, err = decompress.Entries(context.Background(), buf.Bytes(), cfg)
	require.ErrorIs(t, err, decompress.ErrUnknownFormat)
}

func TestMaxInputSize(t *testing.T) {
	cfg := decompress.NewConfig(decompress.WithMaxInputSize(4))
	_, err := decompress.Decompress(context.Background(), helloGz, cfg)
	require.ErrorIs(t, err, decompress.ErrMaxInputSizeExceeded)
}

func TestMaxOutputSize(t *testing.T) {
	cfg := decompress.NewConfig(decompress.WithMaxOutputSize(3))
	_, err := decompress.Decompress(context.Background(), helloGz, cfg)
	require.ErrorIs(t, err, decompress.ErrMaxOutputSizeExceeded)
}

func TestCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := decompress.Decompress(ctx, helloGz, nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestTelemetryHook(t *testing.T) {
	var captured decompress.TelemetryData
	cfg := decompress.NewConfig(decompress.WithTelemetryHook(func(td decompress.TelemetryData) {
		captured = td
	}))
	_, err := decompress.Decompress(context.Background(), helloGz, cfg)
	require.NoError(t, err)
	require.Equal(t, decompress.FormatGZip, captured.Format)
	require.Equal(t, int64(len(helloGz)), captured.InputSize)
	require.Equal(t, int64(5), captured.OutputSize)
	require.NoError(t, captured.DecodeError)
}

func TestInfoTar(t *testing.T) {
	data, err := tar.Create([]tar.Entry{
		{Header: tar.Header{Name: "x", Mode: 0o600, ModTime: time.Unix(1700000000, 0).UTC()}, Data: []byte("xyz")},
	}, tar.FormatUSTAR)
	require.NoError(t, err)

	infos, err := decompress.Info(context.Background(), data, nil)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	require.Equal(t, int64(3), infos[0].Size)
	require.Equal(t, uint32(0o600), infos[0].Perm)
}
