package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"

	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/mb"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/google/subcommands"
	"github.com/schollz/progressbar/v3"
)

type convertCmd struct {
	inputFormat  string
	inputPath    string
	outputFormat string
	outputPath   string
	recompress   string
}

func (c *convertCmd) Name() string     { return "convert" }
func (c *convertCmd) Synopsis() string { return "convert between tile storage formats" }
func (c *convertCmd) Usage() string {
	return "tileview convert -i <path> -o <path> [-if <format> | -of <format>] [-recompress none|gzip]\n"
}
func (c *convertCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz)")
	f.StringVar(&c.outputPath, "o", "", "Output path")
	f.StringVar(&c.outputFormat, "of", "", "Output format (mbtiles, xyz)")
	f.StringVar(&c.recompress, "recompress", "", "Rewrite payloads with this compression (none, gzip); empty keeps them as is")
}

// transcoder rewrites tile payloads to a target compression, detecting the source one.
type transcoder struct {
	target loader.Compression
}

func newTranscoder(name string) (*transcoder, error) {
	switch name {
	case "":
		return nil, nil
	case "none":
		return &transcoder{target: loader.CompressionNone}, nil
	case "gzip":
		return &transcoder{target: loader.CompressionGzip}, nil
	}
	return nil, fmt.Errorf("%w: %q", loader.ErrUnsupportedCompression, name)
}

func (t *transcoder) transcode(tileData []byte) ([]byte, error) {
	if t == nil || len(tileData) == 0 {
		return tileData, nil
	}
	data, err := loader.Decompress(tileData, loader.CompressionAuto)
	if err != nil {
		return nil, err
	}
	return loader.Compress(data, t.target)
}

func (c *convertCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	recompressor, err := newTranscoder(c.recompress)
	if err != nil {
		log.Println(err)
		return subcommands.ExitUsageError
	}

	reader, err := openReader(c.inputFormat, c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer closeStorage(reader)

	var metadata mb.Metadata
	if mbReader, ok := reader.(*mb.Reader); ok {
		metadata, err = mbReader.ReadMetadata(ctx)
		if err != nil {
			log.Println("failed to read metadata:", err)
			return subcommands.ExitFailure
		}
	}
	if recompressor != nil {
		metadata.Compression = c.recompress
		if recompressor.target == loader.CompressionNone {
			metadata.Compression = ""
		}
	}

	writer, err := openWriter(c.outputFormat, c.outputPath, metadata)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer closeStorage(writer)

	bar := progressbar.NewOptions(-1, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	count := 0
	err = reader.VisitTiles(func(tileID tile.ID, tileData []byte) error {
		data, err := recompressor.transcode(tileData)
		if err != nil {
			return fmt.Errorf("tile %v: %w", tileID, err)
		}
		count++
		bar.Add(1)
		return writer.WriteTile(tileID, data)
	})
	bar.Finish()
	fmt.Println()

	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	if err := writer.Finalize(); err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}

	slog.Debug("tilekit: converted", "tiles", count, "from", c.inputPath, "to", c.outputPath)
	return subcommands.ExitSuccess
}
