// Package datasource drives tiles of one tileset through their lifecycle: cache
// lookup, loading, geometry creation, visibility and eviction.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/eak1mov/go-tilekit/geo"
	"github.com/eak1mov/go-tilekit/geometry"
	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/mapview"
	"github.com/eak1mov/go-tilekit/tile"
)

// Request asks for a tile in the current frame. Area is the estimated screen area
// of the tile, used as loading priority.
type Request struct {
	Key  tile.Key
	Area float64
}

// TileDataSource implements mapview.DataSource for a tileset read from a tile.Reader.
// It is owned by the frame thread.
type TileDataSource struct {
	name       string
	frames     *mapview.FrameCounter
	projection geo.Projection
	logger     *slog.Logger

	reader        tile.Reader
	decoder       loader.Decoder
	compression   loader.Compression
	scheduler     *loader.Scheduler
	ownsScheduler bool
	cache         *mapview.Cache
	tileOptions   []mapview.TileOption

	disposed bool
}

var _ mapview.DataSource = (*TileDataSource)(nil)

type config struct {
	Reader         tile.Reader
	Decoder        loader.Decoder
	Compression    loader.Compression
	Scheduler      *loader.Scheduler
	Cache          *mapview.Cache
	Projection     geo.Projection
	RoadPicker     mapview.RoadPreparer
	Stats          mapview.Stats
	Policy         mapview.DisposalPolicy
	GeometryLoader func(*mapview.Tile) mapview.GeometryLoader
	Logger         *slog.Logger
}

type Option func(*config)

// WithReader sets where tile payloads come from. Without a reader tiles get no
// loader and stay empty.
func WithReader(reader tile.Reader) Option {
	return func(c *config) { c.Reader = reader }
}

func WithDecoder(decoder loader.Decoder) Option {
	return func(c *config) { c.Decoder = decoder }
}

func WithCompression(compression loader.Compression) Option {
	return func(c *config) { c.Compression = compression }
}

// WithScheduler shares a scheduler between data sources. By default each data
// source runs its own scheduler and closes it on Dispose.
func WithScheduler(s *loader.Scheduler) Option {
	return func(c *config) { c.Scheduler = s }
}

func WithCache(cache *mapview.Cache) Option {
	return func(c *config) { c.Cache = cache }
}

func WithProjection(projection geo.Projection) Option {
	return func(c *config) { c.Projection = projection }
}

func WithRoadPicker(picker mapview.RoadPreparer) Option {
	return func(c *config) { c.RoadPicker = picker }
}

func WithStats(stats mapview.Stats) Option {
	return func(c *config) { c.Stats = stats }
}

func WithDisposalPolicy(policy mapview.DisposalPolicy) Option {
	return func(c *config) { c.Policy = policy }
}

// WithGeometryLoader sets how geometry loaders are created for new tiles. The
// default is geometry.Factory().
func WithGeometryLoader(create func(*mapview.Tile) mapview.GeometryLoader) Option {
	return func(c *config) { c.GeometryLoader = create }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func New(name string, frames *mapview.FrameCounter, opts ...Option) *TileDataSource {
	config := config{
		Compression:    loader.CompressionAuto,
		Projection:     geo.Mercator{},
		GeometryLoader: geometry.Factory(),
		Logger:         slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}

	ds := &TileDataSource{
		name:        name,
		frames:      frames,
		projection:  config.Projection,
		logger:      config.Logger,
		reader:      config.Reader,
		decoder:     config.Decoder,
		compression: config.Compression,
		scheduler:   config.Scheduler,
		cache:       config.Cache,
	}
	if ds.scheduler == nil {
		ds.scheduler = loader.NewScheduler(loader.WithSchedulerLogger(config.Logger))
		ds.ownsScheduler = true
	}
	if ds.cache == nil {
		ds.cache = mapview.NewCache(mapview.WithCacheLogger(config.Logger))
	}

	ds.tileOptions = append(ds.tileOptions, mapview.WithLogger(config.Logger))
	if config.GeometryLoader != nil {
		ds.tileOptions = append(ds.tileOptions, mapview.WithGeometryLoader(config.GeometryLoader))
	}
	if config.RoadPicker != nil {
		ds.tileOptions = append(ds.tileOptions, mapview.WithRoadPreparer(config.RoadPicker))
	}
	if config.Stats != nil {
		ds.tileOptions = append(ds.tileOptions, mapview.WithStats(config.Stats))
	}
	if config.Policy != nil {
		ds.tileOptions = append(ds.tileOptions, mapview.WithDisposalPolicy(config.Policy))
	}
	return ds
}

func (ds *TileDataSource) Name() string               { return ds.name }
func (ds *TileDataSource) FrameNumber() int           { return ds.frames.FrameNumber() }
func (ds *TileDataSource) Projection() geo.Projection { return ds.projection }
func (ds *TileDataSource) Cache() *mapview.Cache      { return ds.cache }

// GetTile returns the cached tile for key, creating it and starting its loader on
// a cache miss.
func (ds *TileDataSource) GetTile(ctx context.Context, key tile.Key) (*mapview.Tile, error) {
	if ds.disposed {
		return nil, mapview.ErrDisposed
	}
	if !key.Valid() {
		return nil, fmt.Errorf("%w: %v", tile.ErrInvalidID, key)
	}
	if t, ok := ds.cache.Get(key); ok && !t.Disposed() {
		return t, nil
	}

	t := mapview.NewTile(ds, key.ID, key.Offset, ds.tileOptions...)
	if ds.reader != nil {
		t.SetLoader(loader.NewPipeline(key.ID, ds.reader,
			loader.WithDecoder(ds.decoder),
			loader.WithCompression(ds.compression),
			loader.WithScheduler(ds.scheduler),
			loader.WithLogger(ds.logger),
		))
		if err := t.Load(ctx); err != nil {
			return nil, err
		}
	}
	ds.cache.Set(t)
	return t, nil
}

// Update runs one frame: it requests the given tiles, attaches loaded content,
// advances geometry creation and evicts tiles no longer needed. It returns the
// requested tiles in request order, skipping invalid requests.
func (ds *TileDataSource) Update(ctx context.Context, visible []Request) ([]*mapview.Tile, error) {
	if ds.disposed {
		return nil, mapview.ErrDisposed
	}

	tiles := make([]*mapview.Tile, 0, len(visible))
	var errs []error
	for _, r := range visible {
		t, err := ds.GetTile(ctx, r.Key)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		t.SetVisible(true)
		t.SetVisibleArea(r.Area)
		t.Update()
		if gl := t.GeometryLoader(); gl != nil {
			gl.Update()
		}
		if t.IsReady() {
			t.MarkRendered()
		}
		tiles = append(tiles, t)
	}

	if n := ds.cache.Evict(false); n > 0 {
		ds.logger.Debug("tilekit: tiles evicted", "dataSource", ds.name, "count", n, "frame", ds.FrameNumber())
	}
	return tiles, errors.Join(errs...)
}

// Dispose disposes all tiles and stops loading. It is idempotent.
func (ds *TileDataSource) Dispose() {
	if ds.disposed {
		return
	}
	ds.disposed = true
	ds.cache.Clear()
	if ds.ownsScheduler {
		ds.scheduler.Close()
	}
}
