// Package mapview manages the lifecycle of map tiles: their content, labels, resource
// usage, visibility and disposal.
//
// Tiles are owned by a single frame thread and are not safe for concurrent use. The
// only concurrent part is the loader pipeline, which is observed by polling.
package mapview

import (
	"context"
	"errors"
	"log/slog"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/geo"
	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/picking"
	"github.com/eak1mov/go-tilekit/priority"
	"github.com/eak1mov/go-tilekit/scene"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/paulmach/orb"
)

var ErrDisposed = errors.New("tilekit: tile disposed")

// GeometryLoader converts decoded content of a tile into renderable objects.
type GeometryLoader interface {
	// Update advances geometry creation by one step.
	Update()

	// BasicGeometryLoaded reports whether enough geometry exists to render the tile.
	BasicGeometryLoaded() bool

	// AllGeometryLoaded reports whether geometry creation is complete.
	AllGeometryLoaded() bool

	Dispose()
}

// RoadPreparer builds road intersection data from tile metadata.
type RoadPreparer interface {
	Prepare(info *decoded.TileInfo) *picking.RoadIntersectionData
}

// ExtrusionAnimation animates building extrusion on a tile.
type ExtrusionAnimation interface {
	Dispose()
}

type ElevationRange struct {
	Min float64
	Max float64
}

// Tile is a unit of map content keyed by tile ID and world-wrap offset.
type Tile struct {
	dataSource DataSource
	key        tile.Key
	logger     *slog.Logger
	policy     DisposalPolicy
	stats      Stats
	roads      RoadPreparer

	geoBox      orb.Bound
	boundingBox geo.OrientedBox3

	// Frame bookkeeping, used by visibility tests and cache eviction only.
	FrameNumLastRequested int
	FrameNumVisible       int
	FrameNumLastVisible   int
	NumFramesVisible      int
	VisibilityCounter     int

	visibleArea      float64
	elevationRange   ElevationRange
	dependencies     []tile.ID
	copyrightHolders []string

	objects          []*scene.Object
	ownedTextures    map[uint64]struct{}
	decodedTile      *decoded.DecodedTile
	roadData         *picking.RoadIntersectionData
	forceHasGeometry *bool

	textElements         *priority.GroupList[*TextElement]
	placedTextElements   *priority.GroupList[*TextElement]
	userTextElements     []*TextElement
	textElementsChanged  bool
	pathBlockingElements []PathBlockingElement
	extrusionAnimation   ExtrusionAnimation

	loader         loader.Loader
	loaderState    loader.State
	loaderConsumed bool
	geometryLoader GeometryLoader

	ledger   resourceLedger
	disposed bool
}

type tileConfig struct {
	Policy         DisposalPolicy
	Logger         *slog.Logger
	Stats          Stats
	Roads          RoadPreparer
	GeometryLoader func(*Tile) GeometryLoader
}

type TileOption func(*tileConfig)

// WithDisposalPolicy sets which object resources the tile disposes on Clear.
func WithDisposalPolicy(policy DisposalPolicy) TileOption {
	return func(c *tileConfig) { c.Policy = policy }
}

func WithLogger(logger *slog.Logger) TileOption {
	return func(c *tileConfig) { c.Logger = logger }
}

// WithStats sets the sink receiving decode times.
func WithStats(stats Stats) TileOption {
	return func(c *tileConfig) { c.Stats = stats }
}

// WithRoadPreparer sets the collaborator used by PrepareTileInfo.
func WithRoadPreparer(roads RoadPreparer) TileOption {
	return func(c *tileConfig) { c.Roads = roads }
}

// WithGeometryLoader attaches a geometry loader created for the new tile.
func WithGeometryLoader(create func(*Tile) GeometryLoader) TileOption {
	return func(c *tileConfig) { c.GeometryLoader = create }
}

// NewTile creates a tile owned by dataSource. Bounding boxes are computed from the
// tile ID using the data source projection.
func NewTile(dataSource DataSource, tileID tile.ID, offset int, opts ...TileOption) *Tile {
	config := tileConfig{
		Policy: DefaultDisposalPolicy{},
		Logger: slog.New(slog.DiscardHandler),
		Stats:  nopStats{},
	}
	for _, opt := range opts {
		opt(&config)
	}

	t := &Tile{
		dataSource: dataSource,
		key:        tile.Key{ID: tileID, Offset: offset},
		logger:     config.Logger,
		policy:     config.Policy,
		stats:      config.Stats,
		roads:      config.Roads,

		FrameNumLastRequested: -1,
		FrameNumVisible:       -1,
		FrameNumLastVisible:   -1,
		VisibilityCounter:     -1,

		ownedTextures:      make(map[uint64]struct{}),
		textElements:       priority.NewGroupList[*TextElement](),
		placedTextElements: priority.NewGroupList[*TextElement](),
		loaderState:        loader.Initialized,
	}
	t.geoBox = tileID.Bound()
	t.boundingBox = dataSource.Projection().WorldBox(t.geoBox, offset)
	if config.GeometryLoader != nil {
		t.geometryLoader = config.GeometryLoader(t)
	}
	t.logger.Debug("tilekit: tile created", "tile", t.key, "dataSource", dataSource.Name())
	return t
}

func (t *Tile) DataSource() DataSource { return t.dataSource }
func (t *Tile) TileID() tile.ID        { return t.key.ID }
func (t *Tile) Offset() int            { return t.key.Offset }
func (t *Tile) Key() tile.Key          { return t.key }

// UniqueKey identifies the tile among all tiles of its data source, including
// world-wrapped copies.
func (t *Tile) UniqueKey() uint64 { return t.key.Code() }

// GeoBox returns the geographic bounds of the tile.
func (t *Tile) GeoBox() orb.Bound { return t.geoBox }

// BoundingBox returns the world-space box, refined by decoded content if available.
func (t *Tile) BoundingBox() geo.OrientedBox3 { return t.boundingBox }

func (t *Tile) Disposed() bool { return t.disposed }

// IsVisible reports whether the tile was requested in the current or the previous
// frame. The one-frame grace period keeps tiles that are still on screen from being
// evicted by a sweep that runs before they are requested again.
func (t *Tile) IsVisible() bool {
	if t.disposed || t.FrameNumLastRequested < 0 {
		return false
	}
	return t.FrameNumLastRequested >= t.dataSource.FrameNumber()-1
}

// SetVisible marks the tile as requested in the current frame. Setting it to false
// makes the tile evictable immediately, bypassing the grace period.
func (t *Tile) SetVisible(visible bool) {
	if visible {
		t.FrameNumLastRequested = t.dataSource.FrameNumber()
	} else {
		t.FrameNumLastRequested = -1
	}
}

// MarkRendered records that the tile was rendered in the current frame.
func (t *Tile) MarkRendered() {
	frame := t.dataSource.FrameNumber()
	if t.FrameNumLastVisible == frame {
		return
	}
	if t.FrameNumVisible < 0 {
		t.FrameNumVisible = frame
	}
	if t.FrameNumLastVisible != frame-1 {
		t.VisibilityCounter++
	}
	t.FrameNumLastVisible = frame
	t.NumFramesVisible++
}

// VisibleArea returns the estimated screen area of the tile.
func (t *Tile) VisibleArea() float64 { return t.visibleArea }

// SetVisibleArea updates the estimated screen area and forwards it to the loader
// as priority hint.
func (t *Tile) SetVisibleArea(area float64) {
	t.visibleArea = area
	if t.loader != nil {
		t.loader.SetPriority(area)
	}
}

func (t *Tile) ElevationRange() ElevationRange         { return t.elevationRange }
func (t *Tile) SetElevationRange(r ElevationRange)     { t.elevationRange = r }
func (t *Tile) Dependencies() []tile.ID                { return t.dependencies }
func (t *Tile) SetDependencies(dependencies []tile.ID) { t.dependencies = dependencies }
func (t *Tile) CopyrightHolders() []string             { return t.copyrightHolders }

// Objects returns the owned renderable objects in paint order. Callers that modify
// the returned slice or the objects must call InvalidateResourceInfo.
func (t *Tile) Objects() []*scene.Object { return t.objects }

// AddObject appends renderable objects to the tile.
func (t *Tile) AddObject(objects ...*scene.Object) {
	if t.disposed {
		return
	}
	t.objects = append(t.objects, objects...)
	t.InvalidateResourceInfo()
}

// AddOwnedTexture transfers ownership of texture to the tile: it is disposed
// together with the materials referencing it. Textures not registered here are
// assumed to be owned elsewhere.
func (t *Tile) AddOwnedTexture(texture *scene.Texture) {
	if t.disposed || texture == nil {
		return
	}
	t.ownedTextures[texture.ID] = struct{}{}
}

func (t *Tile) OwnsTexture(texture *scene.Texture) bool {
	_, ok := t.ownedTextures[texture.ID]
	return ok
}

// HasGeometry reports whether the tile has renderable objects, unless overridden by
// ForceHasGeometry.
func (t *Tile) HasGeometry() bool {
	if t.forceHasGeometry != nil {
		return *t.forceHasGeometry
	}
	return len(t.objects) > 0
}

// ForceHasGeometry overrides HasGeometry, e.g. for tiles that are empty by design.
func (t *Tile) ForceHasGeometry(value bool) {
	t.forceHasGeometry = &value
}

// DecodedTile returns the decoded content, present until the geometry loader has
// consumed it.
func (t *Tile) DecodedTile() *decoded.DecodedTile { return t.decodedTile }

// SetDecodedTile attaches decoded content. A bounding box carried by the content
// replaces the one derived from the tile ID.
func (t *Tile) SetDecodedTile(d *decoded.DecodedTile) {
	if t.disposed {
		return
	}
	t.decodedTile = d
	if d != nil {
		if d.BoundingBox != nil {
			box := *d.BoundingBox
			if t.key.Offset != 0 {
				box = box.Translate(geo.Vec3{X: float64(t.key.Offset) * t.dataSource.Projection().WorldExtent()})
			}
			t.boundingBox = box
		}
		if d.DecodeTime > 0 {
			t.stats.RecordDecodeTime(t.dataSource.Name(), d.DecodeTime)
		}
		t.copyrightHolders = d.CopyrightHolders
	}
	t.InvalidateResourceInfo()
}

// RemoveDecodedTile drops the decoded content to bound memory once geometry is built.
func (t *Tile) RemoveDecodedTile() {
	t.decodedTile = nil
	t.InvalidateResourceInfo()
}

// PrepareTileInfo builds road intersection data from the decoded tile info, if any.
func (t *Tile) PrepareTileInfo() {
	if t.disposed || t.roads == nil || t.decodedTile == nil || t.decodedTile.TileInfo == nil {
		return
	}
	t.roadData = t.roads.Prepare(t.decodedTile.TileInfo)
	t.InvalidateResourceInfo()
}

func (t *Tile) RoadIntersectionData() *picking.RoadIntersectionData { return t.roadData }

// Loader returns the attached loader handle, if any.
func (t *Tile) Loader() loader.Loader { return t.loader }

// SetLoader attaches a loader handle. A previously attached handle is detached but
// not canceled.
func (t *Tile) SetLoader(l loader.Loader) {
	if t.disposed {
		return
	}
	t.loader = l
	t.loaderConsumed = false
	t.loaderState = loader.Initialized
	if l != nil {
		t.loaderState = l.State()
		l.SetPriority(t.visibleArea)
	}
}

// LoaderState returns the state of the attached loader, or the last observed state
// after the handle was released.
func (t *Tile) LoaderState() loader.State {
	if t.loader != nil {
		return t.loader.State()
	}
	return t.loaderState
}

// Load starts the attached loader.
func (t *Tile) Load(ctx context.Context) error {
	if t.disposed {
		return ErrDisposed
	}
	if t.loader != nil {
		t.loader.Start(ctx)
	}
	return nil
}

// Update polls the loader without blocking. It attaches decoded content once the
// loader is ready and releases a canceled loader. It returns true when content was
// attached.
func (t *Tile) Update() bool {
	if t.disposed || t.loader == nil {
		return false
	}
	t.loaderState = t.loader.State()
	switch t.loaderState {
	case loader.Ready:
		if t.loaderConsumed {
			return false
		}
		t.loaderConsumed = true
		if d := t.loader.DecodedTile(); d != nil {
			t.SetDecodedTile(d)
			return true
		}
	case loader.Canceled:
		t.logger.Debug("tilekit: tile loading canceled", "tile", t.key)
		t.loader = nil
	case loader.Failed:
		if !t.loaderConsumed {
			t.loaderConsumed = true
			t.logger.Warn("tilekit: tile loading failed", "tile", t.key, "err", t.loader.Err())
		}
	}
	return false
}

// LoadingFinished reports whether the loader reached a terminal state or there is none.
func (t *Tile) LoadingFinished() bool {
	return t.LoaderState().Terminal() || t.loader == nil && t.loaderState == loader.Initialized
}

func (t *Tile) GeometryLoader() GeometryLoader { return t.geometryLoader }

// SetGeometryLoader attaches a geometry loader; a previous one is disposed.
func (t *Tile) SetGeometryLoader(gl GeometryLoader) {
	if t.disposed {
		return
	}
	if t.geometryLoader != nil && t.geometryLoader != gl {
		t.safeDispose(t.geometryLoader.Dispose)
	}
	t.geometryLoader = gl
}

// BasicGeometryLoaded reports whether the tile can be rendered. Without a geometry
// loader it is equivalent to HasGeometry.
func (t *Tile) BasicGeometryLoaded() bool {
	if t.geometryLoader == nil {
		return t.HasGeometry()
	}
	return t.geometryLoader.BasicGeometryLoaded()
}

// IsReady reports whether the tile can be displayed: its basic geometry exists, or
// loading finished without content.
func (t *Tile) IsReady() bool {
	if t.disposed {
		return false
	}
	if t.BasicGeometryLoaded() {
		return true
	}
	return t.LoaderState().Terminal() && t.decodedTile == nil
}

// AllGeometryLoaded reports whether all geometry was created. Without a geometry
// loader it is equivalent to HasGeometry.
func (t *Tile) AllGeometryLoaded() bool {
	if t.geometryLoader == nil {
		return t.HasGeometry()
	}
	return t.geometryLoader.AllGeometryLoaded()
}
