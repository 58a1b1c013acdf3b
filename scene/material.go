package scene

import (
	"iter"
	"maps"
	"slices"

	"github.com/gogpu/gputypes"
)

// Material describes how an object is shaded. Properties hold arbitrary uniform
// values; any *Texture value is a texture binding.
type Material struct {
	disposer

	ID         uint64
	Name       string
	Properties map[string]any
}

func NewMaterial(name string) *Material {
	return &Material{
		ID:         NextID(),
		Name:       name,
		Properties: make(map[string]any),
	}
}

func (m *Material) Set(name string, value any) {
	m.Properties[name] = value
}

// Textures yields every texture-valued property, in property name order.
func (m *Material) Textures() iter.Seq2[string, *Texture] {
	return func(yield func(string, *Texture) bool) {
		for _, name := range slices.Sorted(maps.Keys(m.Properties)) {
			texture, ok := m.Properties[name].(*Texture)
			if !ok || texture == nil {
				continue
			}
			if !yield(name, texture) {
				return
			}
		}
	}
}

func (m *Material) Dispose() {
	m.dispose()
}

// Texture is an image resident on the GPU. Textures may be shared between
// materials of different tiles (e.g. style atlases).
type Texture struct {
	disposer

	ID        uint64
	Name      string
	Format    gputypes.TextureFormat
	Size      gputypes.Extent3D
	MipLevels uint32
}

func NewTexture(name string, width, height uint32, format gputypes.TextureFormat) *Texture {
	return &Texture{
		ID:        NextID(),
		Name:      name,
		Format:    format,
		Size:      gputypes.Extent3D{Width: width, Height: height, DepthOrArrayLayers: 1},
		MipLevels: 1,
	}
}

func (t *Texture) Dispose() {
	t.dispose()
}
