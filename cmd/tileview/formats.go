package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/eak1mov/go-tilekit/mb"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/eak1mov/go-tilekit/xyz"
)

func deduceFormat(format, filePath string) string {
	if format == "" && strings.HasSuffix(filePath, ".mbtiles") {
		return "mbtiles"
	}
	if format == "" {
		return "xyz"
	}
	return format
}

// storageReader is what the commands need from a tile storage.
type storageReader interface {
	tile.Reader
	tile.Visitor
}

func openReader(format, path string) (storageReader, error) {
	switch deduceFormat(format, path) {
	case "mbtiles":
		return mb.NewReader(path)
	case "xyz":
		return xyz.NewReader(path)
	}
	return nil, fmt.Errorf("invalid input format: %q", format)
}

func openWriter(format, path string, metadata mb.Metadata) (tile.Writer, error) {
	switch deduceFormat(format, path) {
	case "mbtiles":
		return mb.NewWriter(path, mb.WithMetadata(metadata), mb.WithLogger(slog.Default()))
	case "xyz":
		return xyz.NewWriter(path)
	}
	return nil, fmt.Errorf("invalid output format: %q", format)
}

func closeStorage(v any) {
	if closer, ok := v.(io.Closer); ok {
		closer.Close()
	}
}
