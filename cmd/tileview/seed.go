package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"

	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/mb"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/google/subcommands"
	"github.com/paulmach/orb"
	"github.com/schollz/progressbar/v3"
)

type seedCmd struct {
	outputFormat string
	outputPath   string
	maxZoom      int
	compress     bool
}

func (c *seedCmd) Name() string     { return "seed" }
func (c *seedCmd) Synopsis() string { return "write a synthetic tileset" }
func (c *seedCmd) Usage() string {
	return "tileview seed -o <path> [-of <format>] [-z <maxzoom>] [-gzip]\n"
}
func (c *seedCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, xyz)")
	f.IntVar(&c.maxZoom, "z", 5, "Maximum zoom level")
	f.BoolVar(&c.compress, "gzip", true, "Compress tile payloads")
}

func (c *seedCmd) Execute(_ context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.outputPath == "" || c.maxZoom < 0 || c.maxZoom > 12 {
		log.Println("seed: output path and a zoom level in [0, 12] are required")
		return subcommands.ExitUsageError
	}

	compression := loader.CompressionNone
	metadata := mb.Metadata{
		Name:    "synthetic",
		Format:  "json",
		MinZoom: 0,
		MaxZoom: c.maxZoom,
		Bounds:  orb.Bound{Min: orb.Point{-180, -85.0511}, Max: orb.Point{180, 85.0511}},
	}
	if c.compress {
		compression = loader.CompressionGzip
		metadata.Compression = "gzip"
	}

	writer, err := openWriter(c.outputFormat, c.outputPath, metadata)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer closeStorage(writer)

	total := 0
	for z := range c.maxZoom + 1 {
		total += 1 << (2 * z)
	}
	bar := progressbar.NewOptions(total, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	for z := range uint32(c.maxZoom + 1) {
		for x := range uint32(1) << z {
			for y := range uint32(1) << z {
				tileID := tile.ID{X: x, Y: y, Z: z}
				if err := writeSynthetic(writer, tileID, compression); err != nil {
					log.Println(err)
					return subcommands.ExitFailure
				}
				bar.Add(1)
			}
		}
	}
	bar.Finish()
	fmt.Println()

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

func writeSynthetic(writer tile.Writer, tileID tile.ID, compression loader.Compression) error {
	data, err := json.Marshal(syntheticPayload(tileID))
	if err != nil {
		return err
	}
	data, err = loader.Compress(data, compression)
	if err != nil {
		return err
	}
	return writer.WriteTile(tileID, data)
}
