// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"errors"
	"io"
	"log/slog"
)

var (
	// ErrUnknownFormat is returned when no decoder claims the input's
	// magic bytes.
	ErrUnknownFormat = errors.New("decompress: unknown format")

	// ErrMaxInputSizeExceeded is returned when the input exceeds the
	// configured maximum.
	ErrMaxInputSizeExceeded = errors.New("decompress: input size exceeds maximum")

	// ErrMaxOutputSizeExceeded is returned when decoding produced more
	// bytes than the configured maximum.
	ErrMaxOutputSizeExceeded = errors.New("decompress: output size exceeds maximum")
)

// ConfigOption is a function pointer to implement the option pattern.
type ConfigOption func(*Config)

// Config holds all configuration options for decoding. The defaults are
// designed to prevent resource exhaustion on hostile inputs; the input and
// output size limits can be disabled with -1.
type Config struct {
	// logger stream for decode progress
	logger logger

	// maxInputSize is the maximum size of the input.
	// Set value to -1 to disable the check.
	maxInputSize int64

	// maxOutputSize is the maximum size of the decompressed output or of
	// an archive's summed entry payloads.
	// Set value to -1 to disable the check.
	maxOutputSize int64

	// dictCap bounds the dictionary an LZMA stream may request.
	dictCap uint32

	// telemetryHook is a function to consume telemetry data after a
	// finished decode.
	// Important: do not adjust this value after decoding started.
	telemetryHook TelemetryHook

	// noUntarAfterDecompression disables combined tar.<compression>
	// handling in [Entries].
	noUntarAfterDecompression bool
}

// NewConfig creates a new [Config] with defaults, adjusted by opts.
func NewConfig(opts ...ConfigOption) *Config {
	const (
		defaultMaxInputSize  = 1 << 30 // 1 GiB
		defaultMaxOutputSize = 1 << 30 // 1 GiB
	)
	cfg := &Config{
		logger:        slog.New(slog.NewTextHandler(io.Discard, nil)),
		maxInputSize:  defaultMaxInputSize,
		maxOutputSize: defaultMaxOutputSize,
		telemetryHook: func(TelemetryData) {},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// WithLogger sets a logger for decode progress; any *slog.Logger works.
func WithLogger(l logger) ConfigOption {
	return func(c *Config) {
		c.logger = l
	}
}

// WithMaxInputSize adjusts the maximum input size (-1 disables the
// check).
func WithMaxInputSize(n int64) ConfigOption {
	return func(c *Config) {
		c.maxInputSize = n
	}
}

// WithMaxOutputSize adjusts the maximum decompressed size (-1 disables
// the check).
func WithMaxOutputSize(n int64) ConfigOption {
	return func(c *Config) {
		c.maxOutputSize = n
	}
}

// WithDictCap bounds the dictionary size an LZMA or xz stream may
// declare; zero keeps the 256 MiB default.
func WithDictCap(n uint32) ConfigOption {
	return func(c *Config) {
		c.dictCap = n
	}
}

// WithTelemetryHook registers a hook that receives [TelemetryData] after
// every decode.
func WithTelemetryHook(hook TelemetryHook) ConfigOption {
	return func(c *Config) {
		c.telemetryHook = hook
	}
}

// WithNoUntarAfterDecompression disables the tar re-sniff on
// decompressed payloads in [Entries].
func WithNoUntarAfterDecompression(v bool) ConfigOption {
	return func(c *Config) {
		c.noUntarAfterDecompression = v
	}
}

// Logger returns the configured logger.
func (c *Config) Logger() logger {
	return c.logger
}

// MaxInputSize returns the maximum input size.
func (c *Config) MaxInputSize() int64 {
	return c.maxInputSize
}

// MaxOutputSize returns the maximum decompressed size.
func (c *Config) MaxOutputSize() int64 {
	return c.maxOutputSize
}

// DictCap returns the LZMA dictionary bound, zero for the default.
func (c *Config) DictCap() uint32 {
	return c.dictCap
}

// TelemetryHook returns the configured telemetry hook.
func (c *Config) TelemetryHook() TelemetryHook {
	return c.telemetryHook
}

// NoUntarAfterDecompression returns true if combined tar.<compression>
// handling is disabled.
func (c *Config) NoUntarAfterDecompression() bool {
	return c.noUntarAfterDecompression
}

// CheckInputSize checks n against the configured maximum. If the maximum
// is exceeded, a [ErrMaxInputSizeExceeded] error is returned.
func (c *Config) CheckInputSize(n int64) error {
	if c.maxInputSize != -1 && n > c.maxInputSize {
		return ErrMaxInputSizeExceeded
	}
	return nil
}

// CheckOutputSize checks n against the configured maximum. If the
// maximum is exceeded, a [ErrMaxOutputSizeExceeded] error is returned.
func (c *Config) CheckOutputSize(n int64) error {
	if c.maxOutputSize != -1 && n > c.maxOutputSize {
		return ErrMaxOutputSizeExceeded
	}
	return nil
}
