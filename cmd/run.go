// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

// Package cmd implements the godecompress command line front-end. The
// core library stays I/O free; this package arranges file handling and
// presentation around it.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	decompress "github.com/hashicorp/go-decompress"
)

// CLI are the cli parameters for the godecompress binary.
type CLI struct {
	Archives      []string         `arg:"" name:"archive" help:"Input files." type:"existingfile"`
	List          bool             `short:"l" help:"List archive entries instead of extracting payloads."`
	Output        string           `short:"o" optional:"" help:"Output file for a single decompressed input (default: input minus extension)."`
	MaxInputSize  int64            `optional:"" default:"1073741824" help:"Maximum input size in bytes. (disable check: -1)"`
	MaxOutputSize int64            `optional:"" default:"1073741824" help:"Maximum decompressed size in bytes. (disable check: -1)"`
	Telemetry     bool             `short:"T" optional:"" default:"false" help:"Print telemetry data to log after decoding."`
	Verbose       bool             `short:"v" optional:"" help:"Verbose logging."`
	Version       kong.VersionFlag `short:"V" optional:"" help:"Print release version information."`
}

// Run is the entrypoint into godecompress as a cli tool.
func Run(version, commit, date string) {
	ctx := context.Background()
	var cli CLI
	kong.Parse(&cli,
		kong.Description("A multi-format decompression and archive listing utility"),
		kong.UsageOnError(),
		kong.Vars{
			"version": fmt.Sprintf("%s (%s), commit %s, built at %s", filepath.Base(os.Args[0]), version, commit, date),
		},
	)

	logLevel := slog.LevelError
	if cli.Verbose {
		logLevel = slog.LevelDebug
	}
	if cli.Telemetry && logLevel > slog.LevelInfo {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))

	telemetryToLog := func(td decompress.TelemetryData) {
		if cli.Telemetry {
			logger.Info("decode finished", "telemetry", td)
		}
	}

	cfg := decompress.NewConfig(
		decompress.WithLogger(logger),
		decompress.WithMaxInputSize(cli.MaxInputSize),
		decompress.WithMaxOutputSize(cli.MaxOutputSize),
		decompress.WithTelemetryHook(telemetryToLog),
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, archive := range cli.Archives {
		archive := archive
		g.Go(func() error {
			return processArchive(ctx, &cli, cfg, archive)
		})
	}
	if err := g.Wait(); err != nil {
		logger.Error("decoding failed", "err", err)
		os.Exit(1)
	}
}

func processArchive(ctx context.Context, cli *CLI, cfg *decompress.Config, archive string) error {
	data, err := os.ReadFile(archive)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", archive, err)
	}

	if cli.List {
		infos, err := decompress.Info(ctx, data, cfg)
		if err != nil {
			return fmt.Errorf("cannot list %s: %w", archive, err)
		}
		for _, info := range infos {
			mtime := ""
			if !info.ModTime.IsZero() {
				mtime = info.ModTime.UTC().Format(time.RFC3339)
			}
			fmt.Printf("%-9s %10d  %-20s %s\n", info.Kind, info.Size, mtime, info.Name)
		}
		return nil
	}

	payload, err := decompress.Decompress(ctx, data, cfg)
	if err != nil {
		return fmt.Errorf("cannot decompress %s: %w", archive, err)
	}
	return os.WriteFile(outputName(cli.Output, archive), payload, 0o644)
}

// outputName strips the compression extension, or falls back to a
// .decompressed suffix when there is none to strip.
func outputName(override, input string) string {
	if override != "" {
		return override
	}
	base := strings.TrimSuffix(input, filepath.Ext(input))
	if base == input || base == "" {
		return input + ".decompressed"
	}
	return base
}
