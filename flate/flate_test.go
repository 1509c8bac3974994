// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package flate_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	kflate "github.com/klauspost/compress/flate"

	"github.com/hashicorp/go-decompress/flate"
)

// deflate compresses data with the klauspost encoder so the decoder is
// exercised against an independent implementation.
func deflate(t *testing.T, data []byte, level int) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := kflate.NewWriter(&buf, level)
	if err != nil {
		t.Fatalf("NewWriter() error = %v", err)
	}
	if _, err := w.Write(data); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	return buf.Bytes()
}

func TestDecompressStoredBlock(t *testing.T) {
	data := []byte{0x01, 0x05, 0x00, 0xFA, 0xFF, 'H', 'e', 'l', 'l', 'o'}
	got, err := flate.Decompress(data)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if string(got) != "Hello" {
		t.Errorf("Decompress() = %q, want %q", got, "Hello")
	}
}

func TestDecompressStaticHuffman(t *testing.T) {
	data := []byte{0xF3, 0x48, 0xCD, 0xC9, 0xC9, 0x07, 0x00}
	got, err := flate.Decompress(data)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if string(got) != "Hello" {
		t.Errorf("Decompress() = %q, want %q", got, "Hello")
	}
}

func TestDecompressDynamicHuffman(t *testing.T) {
	want := []byte(strings.Repeat("the quick brown fox jumps over the lazy dog. ", 50))
	got, err := flate.Decompress(deflate(t, want, kflate.BestCompression))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Decompress() mismatch: got %d bytes, want %d", len(got), len(want))
	}
}

func TestDecompressOverlappingBackReference(t *testing.T) {
	// Runs compress to back-references with length > distance, which must
	// self-replicate during the copy.
	want := []byte(strings.Repeat("a", 1000) + strings.Repeat("xyz", 400))
	got, err := flate.Decompress(deflate(t, want, kflate.DefaultCompression))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("Decompress() mismatch on run-heavy input")
	}
}

func TestDecompressEmpty(t *testing.T) {
	got, err := flate.Decompress(deflate(t, nil, kflate.DefaultCompression))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Decompress() = %d bytes, want 0", len(got))
	}
}

func TestDecompressStoredLevel(t *testing.T) {
	want := []byte("incompressible: \x00\x01\x02\x03\xfe\xff")
	got, err := flate.Decompress(deflate(t, want, kflate.NoCompression))
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Decompress() = %q, want %q", got, want)
	}
}

func TestWrongBlockLengths(t *testing.T) {
	data := []byte{0x01, 0x05, 0x00, 0xFB, 0xFF, 'H', 'e', 'l', 'l', 'o'}
	if _, err := flate.Decompress(data); !errors.Is(err, flate.ErrWrongBlockLengths) {
		t.Errorf("Decompress() error = %v, want ErrWrongBlockLengths", err)
	}
}

func TestUnknownBlockType(t *testing.T) {
	// BFINAL=1, BTYPE=3.
	if _, err := flate.Decompress([]byte{0x07}); !errors.Is(err, flate.ErrUnknownBlockType) {
		t.Errorf("Decompress() error = %v, want ErrUnknownBlockType", err)
	}
}

func TestInvalidDistance(t *testing.T) {
	// A static-Huffman block whose first symbol is a back-reference; there
	// is no prior output, so any distance is too far. BFINAL=1, BTYPE=01,
	// then length symbol 257 (code 0000001) and distance symbol 0 (00000).
	data := []byte{0x03, 0x02}
	if _, err := flate.Decompress(data); !errors.Is(err, flate.ErrInvalidDistance) {
		t.Errorf("Decompress() error = %v, want ErrInvalidDistance", err)
	}
}

func TestTruncatedStream(t *testing.T) {
	full := deflate(t, []byte("some reasonable payload to cut short"), kflate.DefaultCompression)
	if _, err := flate.Decompress(full[:len(full)/2]); err == nil {
		t.Error("Decompress() on truncated input succeeded, want error")
	}
}
