// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package bitio_test

import (
	"errors"
	"testing"

	"github.com/hashicorp/go-decompress/internal/bitio"
)

func TestReadBitsLSB(t *testing.T) {
	// 0xB5 = 1011 0101, LSB-first emits 1,0,1,0,1,1,0,1
	r := bitio.NewReader([]byte{0xB5, 0x01}, bitio.LSB)

	v, err := r.ReadBits(4)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if v != 0x5 {
		t.Errorf("ReadBits(4) = %#x, want 0x5", v)
	}

	v, err = r.ReadBits(4)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if v != 0xB {
		t.Errorf("ReadBits(4) = %#x, want 0xB", v)
	}
}

func TestReadBitsMSB(t *testing.T) {
	r := bitio.NewReader([]byte{0xB5}, bitio.MSB)

	v, err := r.ReadBits(4)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if v != 0xB {
		t.Errorf("ReadBits(4) = %#x, want 0xB", v)
	}

	v, err = r.ReadBits(4)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if v != 0x5 {
		t.Errorf("ReadBits(4) = %#x, want 0x5", v)
	}
}

func TestAlignToByte(t *testing.T) {
	r := bitio.NewReader([]byte{0xFF, 0xAB}, bitio.LSB)
	if _, err := r.ReadBits(3); err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	b, err := r.ReadAlignedByte()
	if err != nil {
		t.Fatalf("ReadAlignedByte() error = %v", err)
	}
	if b != 0xAB {
		t.Errorf("ReadAlignedByte() = %#x, want 0xAB", b)
	}
	if !r.AtEnd() {
		t.Error("AtEnd() = false, want true")
	}
}

func TestAlignNoOpAtBoundary(t *testing.T) {
	r := bitio.NewReader([]byte{0x01, 0x02}, bitio.LSB)
	r.AlignToByte()
	b, err := r.ReadAlignedByte()
	if err != nil {
		t.Fatalf("ReadAlignedByte() error = %v", err)
	}
	if b != 0x01 {
		t.Errorf("ReadAlignedByte() = %#x, want 0x01", b)
	}
}

func TestReadAlignedUint(t *testing.T) {
	r := bitio.NewReader([]byte{0x78, 0x56, 0x34, 0x12}, bitio.LSB)
	v, err := r.ReadAlignedUint(4)
	if err != nil {
		t.Fatalf("ReadAlignedUint() error = %v", err)
	}
	if v != 0x12345678 {
		t.Errorf("ReadAlignedUint(4) = %#x, want 0x12345678", v)
	}
}

func TestRewind(t *testing.T) {
	r := bitio.NewReader([]byte{0xB5}, bitio.LSB)
	first, err := r.ReadBits(6)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	r.Rewind(6)
	again, err := r.ReadBits(6)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if first != again {
		t.Errorf("re-read after Rewind = %#x, want %#x", again, first)
	}
}

func TestRewindAcrossByteBoundary(t *testing.T) {
	r := bitio.NewReader([]byte{0x0F, 0xF0}, bitio.LSB)
	if _, err := r.ReadBits(12); err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	r.Rewind(8)
	v, err := r.ReadBits(8)
	if err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if v != 0x00 {
		t.Errorf("ReadBits(8) = %#x, want 0x00", v)
	}
}

func TestUnexpectedEnd(t *testing.T) {
	r := bitio.NewReader([]byte{0x01}, bitio.LSB)
	if _, err := r.ReadBits(8); err != nil {
		t.Fatalf("ReadBits() error = %v", err)
	}
	if _, err := r.ReadBit(); !errors.Is(err, bitio.ErrUnexpectedEnd) {
		t.Errorf("ReadBit() error = %v, want ErrUnexpectedEnd", err)
	}
	if _, err := r.ReadAlignedByte(); !errors.Is(err, bitio.ErrUnexpectedEnd) {
		t.Errorf("ReadAlignedByte() error = %v, want ErrUnexpectedEnd", err)
	}
}

func TestOffsetCountsPartialBytes(t *testing.T) {
	r := bitio.NewReader([]byte{0xFF, 0xFF}, bitio.LSB)
	if got := r.Offset(); got != 0 {
		t.Errorf("Offset() = %d, want 0", got)
	}
	if _, err := r.ReadBit(); err != nil {
		t.Fatalf("ReadBit() error = %v", err)
	}
	if got := r.Offset(); got != 1 {
		t.Errorf("Offset() = %d, want 1", got)
	}
}
