package main

import (
	"context"
	"encoding/json"
	"maps"
	"path/filepath"
	"testing"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/mb"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/google/go-cmp/cmp"
	"github.com/google/subcommands"
	"github.com/stretchr/testify/require"
)

func TestDecodePayload(t *testing.T) {
	ctx := context.Background()
	tileID := tile.ID{X: 1, Y: 1, Z: 2}

	data, err := json.Marshal(syntheticPayload(tileID))
	require.NoError(t, err)
	d, err := decodePayload(ctx, tileID, data)
	require.NoError(t, err)

	var kinds []decoded.TechniqueKind
	for _, technique := range d.Techniques {
		kinds = append(kinds, technique.Kind)
	}
	wantKinds := []decoded.TechniqueKind{decoded.TechniqueFill, decoded.TechniqueLine, decoded.TechniqueText, decoded.TechniqueIcon}
	if diff := cmp.Diff(wantKinds, kinds); diff != "" {
		t.Errorf("technique kinds mismatch (-want+got):\n%s", diff)
	}
	require.Equal(t, "pin", d.Techniques[3].Texture)
	require.Len(t, d.Geometries, 4)
	require.Len(t, d.Geometries[0].Indices, 6, "quad is two triangles")
	require.Equal(t, []string{"2/1/1"}, d.Geometries[2].Texts)

	require.Len(t, d.TileInfo.Features, 4)
	require.Len(t, d.TileInfo.Roads, 1)
	road := d.TileInfo.Roads[0]
	require.Equal(t, 8.0, road.Width)
	require.Equal(t, 0.0, road.Positions[0].Y(), "road runs through the tile center")
	require.Less(t, road.Positions[0].X(), 0.0)
	require.Greater(t, road.Positions[1].X(), 0.0)

	_, err = decodePayload(ctx, tileID, []byte(`{"layers":[{"kind":"volume"}]}`))
	require.ErrorContains(t, err, "unknown layer kind")
	_, err = decodePayload(ctx, tileID, []byte("not json"))
	require.Error(t, err)
}

func TestSeedConvertSimulate(t *testing.T) {
	ctx := context.Background()
	rootDir := t.TempDir()
	pattern := filepath.Join(rootDir, "xyz", "{z}", "{x}", "{y}.json.gz")
	mbtilesPath := filepath.Join(rootDir, "tiles.mbtiles")

	seed := &seedCmd{outputPath: pattern, maxZoom: 2, compress: true}
	require.Equal(t, subcommands.ExitSuccess, seed.Execute(ctx, nil))

	convert := &convertCmd{inputPath: pattern, outputPath: mbtilesPath, recompress: "none"}
	require.Equal(t, subcommands.ExitSuccess, convert.Execute(ctx, nil))

	reader, err := mb.NewReader(mbtilesPath)
	require.NoError(t, err)
	tiles := maps.Collect(tile.IterTiles(reader))
	metadata, err := reader.ReadMetadata(ctx)
	require.NoError(t, err)
	require.NoError(t, reader.Close())
	require.Len(t, tiles, 1+4+16)
	require.True(t, json.Valid(tiles[tile.ID{X: 1, Y: 2, Z: 2}]), "payloads are stored uncompressed")
	require.Equal(t, 2, metadata.MaxZoom)

	bad := &convertCmd{inputPath: pattern, outputPath: mbtilesPath, recompress: "zstd"}
	require.Equal(t, subcommands.ExitUsageError, bad.Execute(ctx, nil))

	simulate := &simulateCmd{
		inputPath: mbtilesPath,
		zoom:      2,
		frames:    10,
		fps:       1000,
		width:     2,
		height:    2,
		speed:     0.5,
		capacity:  4,
		budgetMB:  64,
	}
	require.Equal(t, subcommands.ExitSuccess, simulate.Execute(ctx, nil))

	require.Equal(t, subcommands.ExitUsageError, (&simulateCmd{}).Execute(ctx, nil))
	require.Equal(t, subcommands.ExitUsageError, (&seedCmd{maxZoom: 2}).Execute(ctx, nil))
}
