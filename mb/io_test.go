package mb_test

import (
	"context"
	"maps"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilekit/mb"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	_ "github.com/mattn/go-sqlite3"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestWriterReader(t *testing.T) {
	ctx := context.Background()
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")

	tiles := map[tile.ID][]byte{
		{X: 0, Y: 0, Z: 0}: []byte("tile000"),
		{X: 1, Y: 0, Z: 1}: []byte("tile101"),
		{X: 0, Y: 0, Z: 6}: []byte("tile006"),
		{X: 6, Y: 6, Z: 6}: []byte("tile666"),
	}
	wantMetadata := mb.Metadata{
		Name:   "test",
		Format: "json",
		Bounds: orb.Bound{Min: orb.Point{-180, -85.0511}, Max: orb.Point{180, 85.0511}},
		Raw:    map[string]string{"attribution": "tilekit"},
	}

	writer, err := mb.NewWriter(filePath, mb.WithMetadata(wantMetadata))
	require.NoError(t, err)
	for tileID, tileData := range tiles {
		require.NoError(t, writer.WriteTile(tileID, tileData), "WriteTile(%v)", tileID)
	}
	require.ErrorIs(t, writer.WriteTile(tile.ID{X: 2, Z: 1}, nil), tile.ErrInvalidID)
	require.NoError(t, writer.Finalize())
	require.NoError(t, writer.Close())

	reader, err := mb.NewReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	if diff := cmp.Diff(tiles, maps.Collect(tile.IterTiles(reader))); diff != "" {
		t.Errorf("VisitTiles mismatch (-want+got):\n%s", diff)
	}

	for tileID, tileData := range tiles {
		data, err := reader.ReadTile(ctx, tileID)
		require.NoError(t, err)
		require.Equal(t, tileData, data, "ReadTile(%v)", tileID)
	}

	data, err := reader.ReadTile(ctx, tile.ID{X: 9, Y: 9, Z: 9})
	require.NoError(t, err)
	require.Empty(t, data, "missing tile")

	_, err = reader.ReadTile(ctx, tile.ID{X: 9, Y: 9, Z: 1})
	require.ErrorIs(t, err, tile.ErrInvalidID)

	metadata, err := reader.ReadMetadata(ctx)
	require.NoError(t, err)
	wantMetadata.MinZoom, wantMetadata.MaxZoom = 0, 6
	if diff := cmp.Diff(wantMetadata, metadata, cmpopts.IgnoreFields(mb.Metadata{}, "Raw")); diff != "" {
		t.Errorf("ReadMetadata mismatch (-want+got):\n%s", diff)
	}
	require.Equal(t, "tilekit", metadata.Raw["attribution"])
}

func TestReadTileCanceled(t *testing.T) {
	filePath := filepath.Join(t.TempDir(), "tiles.mbtiles")
	writer, err := mb.NewWriter(filePath)
	require.NoError(t, err)
	require.NoError(t, writer.WriteTile(tile.ID{}, []byte("x")))
	require.NoError(t, writer.Finalize())
	require.NoError(t, writer.Close())

	reader, err := mb.NewReader(filePath)
	require.NoError(t, err)
	defer reader.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = reader.ReadTile(ctx, tile.ID{})
	require.ErrorIs(t, err, context.Canceled)
}
