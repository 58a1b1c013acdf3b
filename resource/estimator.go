// Package resource estimates heap and GPU memory used by tile content.
//
// The numbers are approximations meant for cache budgeting, not exact accounting.
package resource

import (
	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/picking"
	"github.com/eak1mov/go-tilekit/scene"
	"github.com/gogpu/gputypes"
)

const (
	// TextElementHeapSize is the cost of a label that exists but is not rendered.
	TextElementHeapSize = 200
	// RenderedTextElementHeapSize is the fixed cost of a placed label, excluding glyphs.
	RenderedTextElementHeapSize = 2000
	// GlyphHeapSize is the cost of a single laid out glyph of a placed label.
	GlyphHeapSize = 128

	// Road intersection entry: technique index, start offset and width.
	roadEntrySize          = 4 + 4 + 8
	roadPositionSize       = 2 * 8
	roadIDSize             = 8
	roadCustomPropertySize = 64

	objectHeapSize   = 1000
	geometryHeapSize = 256
	materialHeapSize = 512
	textureHeapSize  = 256
	mapEntrySize     = 48
)

// Size is a heap/GPU byte pair.
type Size struct {
	Heap int64
	GPU  int64
}

func (s Size) Add(o Size) Size {
	return Size{Heap: s.Heap + o.Heap, GPU: s.GPU + o.GPU}
}

// RenderedTextElementSize returns the heap cost of a placed label with the given glyph count.
func RenderedTextElementSize(glyphs int) int64 {
	return RenderedTextElementHeapSize + int64(max(glyphs, 0))*GlyphHeapSize
}

// Visited records identity keys of resources already counted, so that resources
// shared by several objects are counted once.
type Visited map[uint64]struct{}

// visit returns true the first time id is seen.
func (v Visited) visit(id uint64) bool {
	if _, ok := v[id]; ok {
		return false
	}
	v[id] = struct{}{}
	return true
}

// ObjectSize estimates obj and all its descendants. Resources already present in
// visited are skipped; newly counted ones are added to it.
func ObjectSize(obj *scene.Object, visited Visited) Size {
	var size Size
	if obj == nil {
		return size
	}
	for o := range obj.All() {
		if !visited.visit(o.ID) {
			continue
		}
		size.Heap += objectHeapSize + int64(len(o.UserData))*mapEntrySize
		if g := o.Geometry; g != nil && visited.visit(g.ID) {
			size = size.Add(GeometrySize(g, visited))
		}
		for _, m := range o.Materials {
			if m == nil || !visited.visit(m.ID) {
				continue
			}
			size.Heap += materialHeapSize + int64(len(m.Properties))*mapEntrySize
			for _, t := range m.Textures() {
				if visited.visit(t.ID) {
					size = size.Add(TextureSize(t))
				}
			}
		}
	}
	return size
}

// GeometrySize estimates a geometry's buffers not yet present in visited.
func GeometrySize(g *scene.Geometry, visited Visited) Size {
	size := Size{Heap: geometryHeapSize}
	for _, b := range g.Buffers() {
		if b != nil && visited.visit(b.ID) {
			size = size.Add(BufferSize(b))
		}
	}
	return size
}

// BufferSize counts the CPU copy of a buffer and, once uploaded, its GPU copy.
func BufferSize(b *scene.Buffer) Size {
	n := int64(len(b.Data))
	size := Size{Heap: n}
	if b.Uploaded || b.Usage.Contains(gputypes.BufferUsageVertex) || b.Usage.Contains(gputypes.BufferUsageIndex) {
		size.GPU = n
	}
	return size
}

// TextureSize estimates texture memory including its mip chain.
func TextureSize(t *scene.Texture) Size {
	layers := int64(max(t.Size.DepthOrArrayLayers, 1))
	base := int64(t.Size.Width) * int64(t.Size.Height) * layers * BytesPerPixel(t.Format)
	gpu := base
	for level, w, h := uint32(1), t.Size.Width, t.Size.Height; level < t.MipLevels && (w > 1 || h > 1); level++ {
		w, h = max(w/2, 1), max(h/2, 1)
		gpu += int64(w) * int64(h) * layers * BytesPerPixel(t.Format)
	}
	return Size{Heap: textureHeapSize, GPU: gpu}
}

// BytesPerPixel returns the texel size of a texture format.
func BytesPerPixel(format gputypes.TextureFormat) int64 {
	switch format {
	case gputypes.TextureFormatR8Unorm:
		return 1
	case gputypes.TextureFormatRG8Unorm, gputypes.TextureFormatR16Float:
		return 2
	case gputypes.TextureFormatRGBA16Float, gputypes.TextureFormatRGBA16Unorm:
		return 8
	case gputypes.TextureFormatRGBA32Float:
		return 16
	default:
		return 4
	}
}

// TileInfoSize estimates the heap size of feature metadata.
func TileInfoSize(info *decoded.TileInfo) int64 {
	if info == nil {
		return 0
	}
	var size int64
	for i := range info.Features {
		f := &info.Features[i]
		size += 8 + int64(len(f.Layer)+len(f.Class))
		for k, v := range f.Properties {
			size += mapEntrySize + int64(len(k)+len(v))
		}
	}
	for i := range info.Roads {
		r := &info.Roads[i]
		size += 8 + 4 + 4 + 8 + int64(len(r.Positions))*16 + int64(len(r.Properties))*mapEntrySize
	}
	return size
}

// RoadIntersectionDataSize estimates the heap size of a road intersection record.
func RoadIntersectionDataSize(data *picking.RoadIntersectionData) int64 {
	if data == nil {
		return 0
	}
	n := int64(data.Len())
	size := n*roadEntrySize + int64(len(data.Positions))*roadPositionSize
	if len(data.IDs) > 0 {
		size += n * roadIDSize
	}
	if len(data.CustomProperties) > 0 {
		size += n * roadCustomPropertySize
	}
	return size
}
