package resource_test

import (
	"testing"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/picking"
	"github.com/eak1mov/go-tilekit/resource"
	"github.com/eak1mov/go-tilekit/scene"
	"github.com/gogpu/gputypes"
	"github.com/paulmach/orb"
	"github.com/stretchr/testify/require"
)

func TestTextureSize(t *testing.T) {
	texture := scene.NewTexture("t", 256, 128, gputypes.TextureFormatRGBA8Unorm)
	require.Equal(t, int64(256*128*4), resource.TextureSize(texture).GPU)

	texture.MipLevels = 3
	require.Equal(t, int64((256*128+128*64+64*32)*4), resource.TextureSize(texture).GPU)

	mask := scene.NewTexture("m", 10, 10, gputypes.TextureFormatR8Unorm)
	require.Equal(t, int64(100), resource.TextureSize(mask).GPU)

	hdr := scene.NewTexture("hdr", 10, 10, gputypes.TextureFormatRGBA16Float)
	require.Equal(t, int64(800), resource.TextureSize(hdr).GPU)
	data := scene.NewTexture("data", 10, 10, gputypes.TextureFormatRGBA32Float)
	require.Equal(t, int64(1600), resource.TextureSize(data).GPU)
	require.Equal(t, int64(4), resource.BytesPerPixel(gputypes.TextureFormatDepth24PlusStencil8))
}

func TestObjectSizeCountsSharedResourcesOnce(t *testing.T) {
	geometry := scene.NewGeometry()
	geometry.SetAttribute("position", scene.NewBuffer(make([]byte, 1200), gputypes.BufferUsageVertex))
	atlas := scene.NewTexture("atlas", 64, 64, gputypes.TextureFormatRGBA8Unorm)
	material := scene.NewMaterial("m")
	material.Set("map", atlas)

	a := scene.NewObject("a", geometry, material)
	b := scene.NewObject("b", geometry, material)

	single := resource.ObjectSize(a, resource.Visited{})

	visited := resource.Visited{}
	both := resource.ObjectSize(a, visited).Add(resource.ObjectSize(b, visited))

	require.Equal(t, single.GPU, both.GPU, "shared geometry and texture counted twice")
	require.Greater(t, both.Heap, single.Heap, "second object not counted")
	require.Equal(t, int64(1200+64*64*4), single.GPU)

	again := resource.ObjectSize(a, visited)
	require.Equal(t, resource.Size{}, again)
}

func TestObjectSizeChildren(t *testing.T) {
	parent := scene.NewObject("parent", nil)
	child := scene.NewObject("child", scene.NewGeometry())
	child.Geometry.Index = scene.NewBuffer(make([]byte, 60), gputypes.BufferUsageIndex)
	parent.Add(child)

	size := resource.ObjectSize(parent, resource.Visited{})
	require.Equal(t, int64(60), size.GPU)
	require.Equal(t, resource.Size{}, resource.ObjectSize(nil, resource.Visited{}))
}

func TestBufferSizeNotUploaded(t *testing.T) {
	b := scene.NewBuffer(make([]byte, 32), gputypes.BufferUsageCopyDst)
	require.Equal(t, resource.Size{Heap: 32}, resource.BufferSize(b))
	b.Uploaded = true
	require.Equal(t, resource.Size{Heap: 32, GPU: 32}, resource.BufferSize(b))
}

func TestRoadIntersectionDataSize(t *testing.T) {
	require.Zero(t, resource.RoadIntersectionDataSize(nil))

	data := &picking.RoadIntersectionData{
		TechniqueIndex: []int{0, 1},
		Starts:         []int{0, 2},
		Widths:         []float64{1, 1},
		Positions:      []orb.Point{{0, 0}, {1, 0}, {0, 1}, {1, 1}},
	}
	base := resource.RoadIntersectionDataSize(data)
	require.Equal(t, int64(2*(4+4+8)+4*16), base)

	data.IDs = []uint64{1, 2}
	withIDs := resource.RoadIntersectionDataSize(data)
	require.Equal(t, base+2*8, withIDs)

	data.CustomProperties = []map[string]any{{}, {}}
	require.Greater(t, resource.RoadIntersectionDataSize(data), withIDs)
}

func TestTileInfoSize(t *testing.T) {
	require.Zero(t, resource.TileInfoSize(nil))
	small := resource.TileInfoSize(&decoded.TileInfo{Features: []decoded.FeatureInfo{{ID: 1}}})
	large := resource.TileInfoSize(&decoded.TileInfo{Features: []decoded.FeatureInfo{
		{ID: 1, Layer: "roads", Properties: map[string]string{"name": "Main street"}},
	}})
	require.Positive(t, small)
	require.Greater(t, large, small)
}
