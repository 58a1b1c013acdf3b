package xyz_test

import (
	"context"
	"maps"
	"os"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilekit/tile"
	"github.com/eak1mov/go-tilekit/xyz"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	ctx := context.Background()
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "tiles.v1", "{z}", "{x}", "{y}.json")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 1, Z: 1}: []byte("tile111"),
		{X: 0, Y: 0, Z: 6}: []byte("tile006"),
		{X: 6, Y: 6, Z: 6}: []byte("tile666"),
	}

	writer, err := xyz.NewWriter(pattern)
	if err != nil {
		t.Fatalf("NewWriter failed: %v", err)
	}
	for tileID, tileData := range tiles {
		if err := writer.WriteTile(tileID, tileData); err != nil {
			t.Errorf("WriteTile(%v) failed: %v", tileID, err)
		}
	}
	if err := writer.Finalize(); err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	require.ErrorIs(t, writer.WriteTile(tile.ID{X: 4, Z: 2}, nil), tile.ErrInvalidID)

	// files not matching the pattern are skipped
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "tiles.v1", "0", "README"), nil, 0644))
	require.NoError(t, os.WriteFile(filepath.Join(rootDir, "tiles.v1", "0", "0", "0xjson"), nil, 0644))

	reader, err := xyz.NewReader(pattern)
	if err != nil {
		t.Fatalf("NewReader failed: %v", err)
	}

	if diff := cmp.Diff(tiles, maps.Collect(tile.IterTiles(reader))); diff != "" {
		t.Errorf("VisitTiles mismatch (-want+got):\n%s", diff)
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(ctx, tileID)
		if err != nil {
			t.Errorf("ReadTile(%v) failed: %v", tileID, err)
			continue
		}
		if !cmp.Equal(data, tileData) {
			t.Errorf("ReadTile data mismatch for %v", tileID)
		}
	}

	tileData, err := reader.ReadTile(ctx, tile.ID{X: 9, Y: 9, Z: 9})
	if err != nil {
		t.Errorf("ReadTile(missing tile) failed: %v", err)
	}
	if len(tileData) != 0 {
		t.Errorf("ReadTile(missing tile) expected empty tile, got: %v bytes", len(tileData))
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = reader.ReadTile(canceled, tile.ID{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestInvalidPattern(t *testing.T) {
	for _, pattern := range []string{"", "{z}/{x}.png", "{x}/{y}.png"} {
		_, err := xyz.NewReader(pattern)
		require.ErrorIs(t, err, xyz.ErrInvalidPattern, pattern)
		_, err = xyz.NewWriter(pattern)
		require.ErrorIs(t, err, xyz.ErrInvalidPattern, pattern)
	}
}
