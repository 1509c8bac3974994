// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"context"
	"time"
)

// EntryKind is the tagged discriminant of an archive entry's type.
type EntryKind int

const (
	KindRegular EntryKind = iota
	KindDirectory
	KindSymlink
	KindHardlink
	KindCharDevice
	KindBlockDevice
	KindFifo
	KindOther
)

func (k EntryKind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindDirectory:
		return "directory"
	case KindSymlink:
		return "symlink"
	case KindHardlink:
		return "hardlink"
	case KindCharDevice:
		return "char device"
	case KindBlockDevice:
		return "block device"
	case KindFifo:
		return "fifo"
	default:
		return "other"
	}
}

// EntryInfo is the attribute record shared across container formats.
// Format-specific extensions are held inline: tar entries carry Tar and
// zip entries carry Zip; rar and 7z entries carry neither.
type EntryInfo struct {
	Name string
	Size int64
	Kind EntryKind

	ModTime    time.Time
	AccessTime time.Time // zero when the container recorded none
	CreateTime time.Time // zero when the container recorded none

	// UID and GID are -1 when unknown.
	UID   int
	GID   int
	Uname string
	Gname string

	// Perm holds the Unix permission bits, 0 when unknown.
	Perm uint32

	Linkname string

	Tar *TarExtra
	Zip *ZipExtra
}

// TarExtra carries tar-specific attributes.
type TarExtra struct {
	Format     string
	Devmajor   int64
	Devminor   int64
	PAXRecords map[string]string
}

// ZipExtra carries zip-specific attributes.
type ZipExtra struct {
	Comment        string
	Method         uint16
	CRC32          uint32
	CompressedSize uint64
	InternalAttrs  uint16
	ExternalAttrs  uint32
	ExtraTags      []uint16 // unresolved extra-field tags, in order
}

// Entry is an [EntryInfo] together with the entry's payload.
type Entry struct {
	EntryInfo
	Data []byte
}

// Container is the capability set a container format implements.
type Container interface {
	// Format identifies the container.
	Format() Format

	// Open decodes all entries including their payloads.
	Open(data []byte, cfg *Config) ([]Entry, error)

	// Info decodes entry attributes only.
	Info(data []byte, cfg *Config) ([]EntryInfo, error)
}

// containers holds the registered container implementations.
var containers = map[Format]Container{
	FormatTar:  tarContainer{},
	FormatZip:  zipContainer{},
	FormatRar:  rarContainer{},
	Format7Zip: sevenZipContainer{},
}

// Entries detects the container format of data and decodes its entries
// with payloads. A compressed input (tar.gz and friends) is decompressed
// first and re-sniffed for a tar payload unless disabled by
// [WithNoUntarAfterDecompression].
func Entries(ctx context.Context, data []byte, cfg *Config) ([]Entry, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	format := DetectFormat(data)
	td := TelemetryData{Format: format, InputSize: int64(len(data))}
	start := time.Now()
	defer func() {
		td.DecodeDuration = time.Since(start)
		cfg.TelemetryHook()(td)
	}()

	entries, err := entries(ctx, format, data, cfg, &td)
	if err != nil {
		td.DecodeError = err
		cfg.Logger().Error("archive decode failed", "format", format, "err", err)
		return nil, err
	}
	td.Entries = int64(len(entries))
	for i := range entries {
		td.OutputSize += int64(len(entries[i].Data))
	}
	cfg.Logger().Info("archive decoded", "format", td.Format, "entries", len(entries))
	return entries, nil
}

func entries(ctx context.Context, format Format, data []byte, cfg *Config, td *TelemetryData) ([]Entry, error) {
	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if c, ok := containers[format]; ok {
		return c.Open(data, cfg)
	}

	// A compressed stream may wrap a tar archive.
	if _, ok := decompressors[format]; ok && !cfg.NoUntarAfterDecompression() {
		payload, err := decompressFormat(ctx, format, data, cfg)
		if err != nil {
			return nil, err
		}
		if isTar(payload) {
			td.Format = Format("tar." + string(format))
			return containers[FormatTar].Open(payload, cfg)
		}
	}
	return nil, ErrUnknownFormat
}

// Info is [Entries] without payloads.
func Info(ctx context.Context, data []byte, cfg *Config) ([]EntryInfo, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	format := DetectFormat(data)
	if c, ok := containers[format]; ok {
		return c.Info(data, cfg)
	}
	if _, ok := decompressors[format]; ok && !cfg.NoUntarAfterDecompression() {
		payload, err := decompressFormat(ctx, format, data, cfg)
		if err != nil {
			return nil, err
		}
		if isTar(payload) {
			return containers[FormatTar].Info(payload, cfg)
		}
	}
	return nil, ErrUnknownFormat
}
