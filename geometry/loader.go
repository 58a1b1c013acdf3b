// Package geometry builds renderable objects from decoded tile content.
package geometry

import (
	"encoding/binary"
	"log/slog"
	"math"
	"strings"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/mapview"
	"github.com/eak1mov/go-tilekit/scene"
	"github.com/gogpu/gputypes"
	"github.com/paulmach/orb"
)

// AtlasPrefix marks technique textures resolved from the shared Atlas.
const AtlasPrefix = "atlas:"

// IconSize is the edge length of textures created for icon techniques.
const IconSize = 32

// Atlas resolves textures shared between tiles. Tiles never own atlas textures.
type Atlas interface {
	Texture(name string) (*scene.Texture, bool)
}

// MapAtlas is an Atlas backed by a map.
type MapAtlas map[string]*scene.Texture

func (a MapAtlas) Texture(name string) (*scene.Texture, bool) {
	t, ok := a[name]
	return t, ok
}

type phase int

const (
	phaseBasic phase = iota
	phaseAll
	phaseDone
)

// Loader implements mapview.GeometryLoader. Each Update call performs one phase:
// the first creates mesh objects, the second labels and textured objects. When
// done it prepares the tile info of the tile and drops the decoded content.
type Loader struct {
	tile   *mapview.Tile
	atlas  Atlas
	logger *slog.Logger

	phase     phase
	canceled  bool
	disposed  bool
	materials map[int]*scene.Material
	textures  map[string]*scene.Texture
}

var _ mapview.GeometryLoader = (*Loader)(nil)

type config struct {
	Atlas  Atlas
	Logger *slog.Logger
}

type Option func(*config)

func WithAtlas(atlas Atlas) Option {
	return func(c *config) { c.Atlas = atlas }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.Logger = logger }
}

func New(t *mapview.Tile, opts ...Option) *Loader {
	config := config{
		Atlas:  MapAtlas{},
		Logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Loader{
		tile:      t,
		atlas:     config.Atlas,
		logger:    config.Logger,
		materials: make(map[int]*scene.Material),
		textures:  make(map[string]*scene.Texture),
	}
}

// Factory returns a constructor suitable for mapview.WithGeometryLoader.
func Factory(opts ...Option) func(*mapview.Tile) mapview.GeometryLoader {
	return func(t *mapview.Tile) mapview.GeometryLoader {
		return New(t, opts...)
	}
}

func (l *Loader) Update() {
	if l.disposed || l.canceled || l.phase == phaseDone || l.tile.Disposed() {
		return
	}

	d := l.tile.DecodedTile()
	if d == nil {
		switch l.tile.LoaderState() {
		case loader.Ready:
			// loaded, nothing to show
			l.tile.ForceHasGeometry(true)
			l.phase = phaseDone
		case loader.Canceled, loader.Failed:
			l.canceled = true
		}
		return
	}

	switch l.phase {
	case phaseBasic:
		l.createMeshes(d)
		l.phase = phaseAll
	case phaseAll:
		l.createLabels(d)
		l.createIcons(d)
		l.tile.PrepareTileInfo()
		l.tile.RemoveDecodedTile()
		l.phase = phaseDone
		l.logger.Debug("tilekit: geometry created", "tile", l.tile.Key(), "objects", len(l.tile.Objects()))
	}
}

func (l *Loader) BasicGeometryLoaded() bool { return l.phase >= phaseAll }
func (l *Loader) AllGeometryLoaded() bool   { return l.phase == phaseDone }

// Canceled reports whether loading stopped because the tile content never arrived.
func (l *Loader) Canceled() bool { return l.canceled }

// Dispose stops geometry creation. Created objects belong to the tile.
func (l *Loader) Dispose() {
	l.disposed = true
	clear(l.materials)
	clear(l.textures)
}

func (l *Loader) createMeshes(d *decoded.DecodedTile) {
	for i := range d.Geometries {
		g := &d.Geometries[i]
		technique, ok := l.technique(d, g.TechniqueIndex)
		if !ok {
			continue
		}
		switch technique.Kind {
		case decoded.TechniqueFill, decoded.TechniqueExtruded:
			l.tile.AddObject(l.mesh(technique, g))
		case decoded.TechniqueLine:
			l.tile.AddObject(l.mesh(technique, g))
			l.tile.AddPathBlockingElement(mapview.PathBlockingElement{Points: points(g.Positions)})
		}
		if technique.Kind == decoded.TechniqueExtruded && l.tile.ExtrusionAnimation() == nil {
			l.tile.SetExtrusionAnimation(&Extrusion{})
		}
	}
}

func (l *Loader) createLabels(d *decoded.DecodedTile) {
	for i := range d.Geometries {
		g := &d.Geometries[i]
		technique, ok := l.technique(d, g.TechniqueIndex)
		if !ok || technique.Kind != decoded.TechniqueText {
			continue
		}
		positions := points(g.Positions)
		for j, text := range g.Texts {
			if j >= len(positions) {
				break
			}
			if text == "" {
				continue
			}
			l.tile.AddTextElement(mapview.NewTextElement(text, technique.Priority, positions[j]))
		}
	}
}

func (l *Loader) createIcons(d *decoded.DecodedTile) {
	for i := range d.Geometries {
		g := &d.Geometries[i]
		technique, ok := l.technique(d, g.TechniqueIndex)
		if !ok || technique.Kind != decoded.TechniqueIcon {
			continue
		}
		obj := l.mesh(technique, g)
		if texture := l.texture(technique.Texture); texture != nil {
			obj.Materials[0].Set("map", texture)
		}
		l.tile.AddObject(obj)
	}
}

func (l *Loader) technique(d *decoded.DecodedTile, index int) (decoded.Technique, bool) {
	if index < 0 || index >= len(d.Techniques) {
		l.logger.Warn("tilekit: invalid technique index", "tile", l.tile.Key(), "index", index)
		return decoded.Technique{}, false
	}
	return d.Techniques[index], true
}

// texture returns a shared atlas texture or creates one owned by the tile.
func (l *Loader) texture(name string) *scene.Texture {
	if name == "" {
		return nil
	}
	if atlasName, ok := strings.CutPrefix(name, AtlasPrefix); ok {
		texture, ok := l.atlas.Texture(atlasName)
		if !ok {
			l.logger.Warn("tilekit: atlas texture not found", "tile", l.tile.Key(), "name", atlasName)
		}
		return texture
	}
	if texture, ok := l.textures[name]; ok {
		return texture
	}
	texture := scene.NewTexture(name, IconSize, IconSize, gputypes.TextureFormatRGBA8Unorm)
	l.textures[name] = texture
	l.tile.AddOwnedTexture(texture)
	return texture
}

func (l *Loader) mesh(technique decoded.Technique, g *decoded.Geometry) *scene.Object {
	material, ok := l.materials[g.TechniqueIndex]
	if !ok {
		material = scene.NewMaterial(technique.Name)
		material.Set("kind", technique.Kind.String())
		l.materials[g.TechniqueIndex] = material
	}

	geometry := scene.NewGeometry()
	geometry.SetAttribute("position", scene.NewBuffer(float32Bytes(g.Positions), gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst))
	if len(g.Indices) > 0 {
		geometry.Index = scene.NewBuffer(uint32Bytes(g.Indices), gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	}

	obj := scene.NewObject(technique.Name, geometry, material)
	obj.RenderOrder = int(technique.Kind)
	obj.UserData = map[string]any{"technique": g.TechniqueIndex}
	return obj
}

func points(positions []float32) []orb.Point {
	ps := make([]orb.Point, 0, len(positions)/3)
	for i := 0; i+2 < len(positions); i += 3 {
		ps = append(ps, orb.Point{float64(positions[i]), float64(positions[i+1])})
	}
	return ps
}

func float32Bytes(values []float32) []byte {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, math.Float32bits(v))
	}
	return buf
}

func uint32Bytes(values []uint32) []byte {
	buf := make([]byte, 0, 4*len(values))
	for _, v := range values {
		buf = binary.LittleEndian.AppendUint32(buf, v)
	}
	return buf
}

// Extrusion animates extruded buildings of a tile from flat to full height.
type Extrusion struct {
	Progress float64
	disposed bool
}

func (e *Extrusion) Dispose() { e.disposed = true }

func (e *Extrusion) Disposed() bool { return e.disposed }
