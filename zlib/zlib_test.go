// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package zlib_test

import (
	"bytes"
	"errors"
	"testing"

	kzlib "github.com/klauspost/compress/zlib"

	"github.com/hashicorp/go-decompress/zlib"
)

// helloZlib is the RFC 1950 framing of "Hello": Adler-32 0x058C01F5.
var helloZlib = []byte{
	0x78, 0x9C, 0xF3, 0x48, 0xCD, 0xC9, 0xC9, 0x07, 0x00,
	0x05, 0x8C, 0x01, 0xF5,
}

func TestDecompressHello(t *testing.T) {
	got, err := zlib.Decompress(helloZlib)
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if string(got) != "Hello" {
		t.Errorf("Decompress() = %q, want %q", got, "Hello")
	}
}

func TestDecompressRoundTrip(t *testing.T) {
	want := bytes.Repeat([]byte("zlib round trip payload "), 200)
	var buf bytes.Buffer
	w := kzlib.NewWriter(&buf)
	if _, err := w.Write(want); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	got, err := zlib.Decompress(buf.Bytes())
	if err != nil {
		t.Fatalf("Decompress() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Error("Decompress() mismatch against encoder output")
	}
}

func TestHeaderNotDivisibleBy31(t *testing.T) {
	bad := append([]byte(nil), helloZlib...)
	bad[1]++
	if _, err := zlib.Decompress(bad); !errors.Is(err, zlib.ErrWrongHeader) {
		t.Errorf("Decompress() error = %v, want ErrWrongHeader", err)
	}
}

func TestPresetDictionaryRejected(t *testing.T) {
	// CMF 0x78, FDICT set; FCHECK adjusted so the pair stays divisible
	// by 31 (0x7820 = 30752 = 31 * 992).
	data := append([]byte{0x78, 0x20}, helloZlib[2:]...)
	if _, err := zlib.Decompress(data); !errors.Is(err, zlib.ErrDictionaryNeeded) {
		t.Errorf("Decompress() error = %v, want ErrDictionaryNeeded", err)
	}
}

func TestWrongChecksum(t *testing.T) {
	bad := append([]byte(nil), helloZlib...)
	bad[len(bad)-1] ^= 0x01
	if _, err := zlib.Decompress(bad); !errors.Is(err, zlib.ErrWrongChecksum) {
		t.Errorf("Decompress() error = %v, want ErrWrongChecksum", err)
	}
}

func TestTruncated(t *testing.T) {
	if _, err := zlib.Decompress(helloZlib[:6]); err == nil {
		t.Error("Decompress() on truncated input succeeded, want error")
	}
}
