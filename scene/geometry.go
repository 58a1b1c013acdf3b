package scene

import "github.com/gogpu/gputypes"

// Buffer is a typed array backing a geometry attribute or index.
type Buffer struct {
	ID    uint64
	Data  []byte
	Usage gputypes.BufferUsage

	// Uploaded is set by the backend once the buffer has a GPU copy.
	Uploaded bool
}

func NewBuffer(data []byte, usage gputypes.BufferUsage) *Buffer {
	return &Buffer{ID: NextID(), Data: data, Usage: usage}
}

// Geometry is a set of vertex attributes with an optional index buffer.
// Several objects may share one Geometry.
type Geometry struct {
	disposer

	ID         uint64
	Attributes map[string]*Buffer
	Index      *Buffer
}

func NewGeometry() *Geometry {
	return &Geometry{
		ID:         NextID(),
		Attributes: make(map[string]*Buffer),
	}
}

func (g *Geometry) SetAttribute(name string, buffer *Buffer) {
	g.Attributes[name] = buffer
}

// Buffers returns attribute buffers followed by the index buffer, if any.
func (g *Geometry) Buffers() []*Buffer {
	buffers := make([]*Buffer, 0, len(g.Attributes)+1)
	for _, b := range g.Attributes {
		buffers = append(buffers, b)
	}
	if g.Index != nil {
		buffers = append(buffers, g.Index)
	}
	return buffers
}

func (g *Geometry) Dispose() {
	g.dispose()
}
