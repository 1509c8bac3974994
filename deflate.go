// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

package decompress

import (
	"context"

	"github.com/hashicorp/go-decompress/flate"
)

// Deflate inflates a raw DEFLATE stream. The format carries no magic
// bytes, so it is never auto-detected; callers reach it explicitly.
func Deflate(ctx context.Context, data []byte, cfg *Config) ([]byte, error) {
	if cfg == nil {
		cfg = NewConfig()
	}
	if err := cfg.CheckInputSize(int64(len(data))); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := flate.Decompress(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.CheckOutputSize(int64(len(out))); err != nil {
		return nil, err
	}
	return out, nil
}
