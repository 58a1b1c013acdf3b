package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"time"

	"github.com/eak1mov/go-tilekit/datasource"
	"github.com/eak1mov/go-tilekit/geometry"
	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/mapview"
	"github.com/eak1mov/go-tilekit/picking"
	"github.com/eak1mov/go-tilekit/scene"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/gogpu/gputypes"
	"github.com/google/subcommands"
	"github.com/paulmach/orb"
	"github.com/schollz/progressbar/v3"
)

type simulateCmd struct {
	inputFormat string
	inputPath   string
	zoom        int
	frames      int
	fps         int
	width       int
	height      int
	speed       float64
	capacity    int
	budgetMB    int
	workers     int
}

func (c *simulateCmd) Name() string     { return "simulate" }
func (c *simulateCmd) Synopsis() string { return "pan a viewport over a tileset and report tile statistics" }
func (c *simulateCmd) Usage() string {
	return "tileview simulate -i <path> [-if <format>] [-z <zoom>] [-frames <n>] [-capacity <n>] [-budget <MB>]\n"
}
func (c *simulateCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.inputPath, "i", "", "Input path")
	f.StringVar(&c.inputFormat, "if", "", "Input format (mbtiles, xyz)")
	f.IntVar(&c.zoom, "z", 4, "Zoom level")
	f.IntVar(&c.frames, "frames", 600, "Number of frames")
	f.IntVar(&c.fps, "fps", 60, "Frames per second")
	f.IntVar(&c.width, "width", 4, "Viewport width in tiles")
	f.IntVar(&c.height, "height", 3, "Viewport height in tiles")
	f.Float64Var(&c.speed, "speed", 0.05, "Camera speed in tiles per frame")
	f.IntVar(&c.capacity, "capacity", mapview.DefaultCacheCapacity, "Tile cache capacity")
	f.IntVar(&c.budgetMB, "budget", mapview.DefaultMemoryBudget>>20, "Tile cache memory budget in MB")
	f.IntVar(&c.workers, "workers", 0, "Loader workers (0 = GOMAXPROCS)")
}

// viewport returns the tiles covered by a camera centered at (cx, cy) tile units,
// with the screen area estimate used as loading priority.
func (c *simulateCmd) viewport(cx, cy float64) []datasource.Request {
	minX := int(math.Floor(cx - float64(c.width)/2))
	minY := int(math.Floor(cy - float64(c.height)/2))
	var requests []datasource.Request
	for key := range tile.Range(uint32(c.zoom), minX, minY, minX+c.width-1, minY+c.height-1) {
		x := float64(key.ID.X) + float64(key.Offset<<key.ID.Z) + 0.5
		y := float64(key.ID.Y) + 0.5
		distance := math.Hypot(x-cx, y-cy)
		requests = append(requests, datasource.Request{Key: key, Area: 1 / (1 + distance)})
	}
	return requests
}

func (c *simulateCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...any) subcommands.ExitStatus {
	if c.inputPath == "" || c.zoom < 0 || c.zoom > 20 || c.frames <= 0 || c.fps <= 0 {
		log.Println("simulate: input path, zoom level in [0, 20], positive frame count and fps are required")
		return subcommands.ExitUsageError
	}

	reader, err := openReader(c.inputFormat, c.inputPath)
	if err != nil {
		log.Println(err)
		return subcommands.ExitFailure
	}
	defer closeStorage(reader)

	logger := slog.Default()
	stats := mapview.NewStatsCollector()
	cache := mapview.NewCache(
		mapview.WithCapacity(c.capacity),
		mapview.WithMemoryBudget(int64(c.budgetMB)<<20),
		mapview.WithCacheLogger(logger),
	)
	var schedulerOpts []loader.SchedulerOption
	if c.workers > 0 {
		schedulerOpts = append(schedulerOpts, loader.WithWorkers(c.workers))
	}
	scheduler := loader.NewScheduler(append(schedulerOpts, loader.WithSchedulerLogger(logger))...)
	defer scheduler.Close()

	atlas := geometry.MapAtlas{"poi": scene.NewTexture("poi", 256, 256, gputypes.TextureFormatRGBA8Unorm)}
	picker := &picking.RoadPicker{KeepProperties: true}

	frames := &mapview.FrameCounter{}
	ds := datasource.New(c.inputPath, frames,
		datasource.WithReader(reader),
		datasource.WithDecoder(loader.DecoderFunc(decodePayload)),
		datasource.WithCompression(loader.CompressionAuto),
		datasource.WithCache(cache),
		datasource.WithScheduler(scheduler),
		datasource.WithRoadPicker(picker),
		datasource.WithStats(stats),
		datasource.WithGeometryLoader(geometry.Factory(geometry.WithAtlas(atlas), geometry.WithLogger(logger))),
		datasource.WithLogger(logger),
	)
	defer ds.Dispose()

	worldSize := float64(uint32(1) << c.zoom)
	cx, cy := 0.0, worldSize/2
	ticker := time.NewTicker(time.Second / time.Duration(c.fps))
	defer ticker.Stop()

	var tiles []*mapview.Tile
	bar := progressbar.NewOptions(c.frames, progressbar.OptionShowIts(), progressbar.OptionShowCount())
	for range c.frames {
		select {
		case <-ctx.Done():
			log.Println(ctx.Err())
			return subcommands.ExitFailure
		case <-ticker.C:
		}

		frames.Advance()
		tiles, err = ds.Update(ctx, c.viewport(cx, cy))
		if err != nil {
			log.Println(err)
			return subcommands.ExitFailure
		}
		cx += c.speed
		bar.Add(1)
	}
	bar.Finish()
	fmt.Println()

	c.report(tiles, cache.Stats(), stats.DecodeStats(ds.Name()), picker)
	return subcommands.ExitSuccess
}

func (c *simulateCmd) report(tiles []*mapview.Tile, cacheStats mapview.CacheStats, decodeStats mapview.DecodeStats, picker *picking.RoadPicker) {
	var ready, labels, roadHits int
	var heap, gpu int64
	for _, t := range tiles {
		if t.IsReady() {
			ready++
		}
		info := t.ResourceInfo()
		heap += info.HeapSize
		gpu += info.GPUSize
		labels += info.NumTextElements + info.NumUserTextElements
		roadHits += len(picker.Intersect(t.RoadIntersectionData(), orb.Point{}))
	}

	fmt.Printf("visible tiles:   %d (%d ready)\n", len(tiles), ready)
	fmt.Printf("visible memory:  heap %d KiB, gpu %d KiB\n", heap>>10, gpu>>10)
	fmt.Printf("visible labels:  %d\n", labels)
	fmt.Printf("road hits:       %d\n", roadHits)
	fmt.Printf("cache:           %d tiles, %d KiB, hit rate %.2f, %d evictions\n",
		cacheStats.Len, cacheStats.MemoryUsage>>10, cacheStats.HitRate(), cacheStats.Evictions)
	fmt.Printf("decode:          %d tiles, mean %v, max %v\n",
		decodeStats.Count, decodeStats.Mean(), decodeStats.Max)
}
