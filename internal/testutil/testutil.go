// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"context"
	"strconv"
	"sync"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/geo"
	"github.com/eak1mov/go-tilekit/loader"
	"github.com/eak1mov/go-tilekit/mapview"
	"github.com/eak1mov/go-tilekit/scene"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/gogpu/gputypes"
)

// DataSource is a mapview.DataSource whose frame is advanced by the test.
type DataSource struct {
	mapview.FrameCounter
}

func (*DataSource) Name() string               { return "test" }
func (*DataSource) Projection() geo.Projection { return geo.Mercator{} }

// Loader is a loader.Loader driven by the test.
type Loader struct {
	mu       sync.Mutex
	state    loader.State
	decoded  *decoded.DecodedTile
	err      error
	priority float64
	started  int
	canceled int
	done     chan struct{}
}

var _ loader.Loader = (*Loader)(nil)

func NewLoader() *Loader {
	return &Loader{state: loader.Initialized, done: make(chan struct{})}
}

func (l *Loader) Start(context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.started++
	if l.state == loader.Initialized {
		l.state = loader.Loading
	}
}

// Finish moves the loader to Ready with the given content.
func (l *Loader) Finish(d *decoded.DecodedTile) {
	l.settle(loader.Ready, nil, d)
}

// Fail moves the loader to Failed.
func (l *Loader) Fail(err error) {
	l.settle(loader.Failed, err, nil)
}

func (l *Loader) settle(state loader.State, err error, d *decoded.DecodedTile) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state.Terminal() {
		return
	}
	l.state, l.err, l.decoded = state, err, d
	close(l.done)
}

func (l *Loader) Cancel() {
	l.mu.Lock()
	l.canceled++
	l.mu.Unlock()
	l.settle(loader.Canceled, loader.ErrCanceled, nil)
}

// Started returns the number of Start calls.
func (l *Loader) Started() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.started
}

// Canceled returns the number of Cancel calls.
func (l *Loader) Canceled() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.canceled
}

func (l *Loader) State() loader.State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Loader) Payload() []byte { return nil }

func (l *Loader) DecodedTile() *decoded.DecodedTile {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != loader.Ready {
		return nil
	}
	return l.decoded
}

func (l *Loader) Err() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.err
}

func (l *Loader) Priority() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.priority
}

func (l *Loader) SetPriority(priority float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.priority = priority
}

func (l *Loader) Done() <-chan struct{} { return l.done }

// Mesh returns an object with a vertex buffer of vertexBytes bytes and one material
// referencing textures under the names "map", "map1", ...
func Mesh(name string, vertexBytes int, textures ...*scene.Texture) *scene.Object {
	geometry := scene.NewGeometry()
	geometry.SetAttribute("position", scene.NewBuffer(make([]byte, vertexBytes), gputypes.BufferUsageVertex))
	material := scene.NewMaterial(name)
	for i, tex := range textures {
		key := "map"
		if i > 0 {
			key += strconv.Itoa(i)
		}
		material.Set(key, tex)
	}
	return scene.NewObject(name, geometry, material)
}

// Payloads is an in-memory tile.Reader.
type Payloads map[tile.ID][]byte

func (p Payloads) ReadTile(_ context.Context, tileID tile.ID) ([]byte, error) {
	return p[tileID], nil
}

// LengthDecoder decodes a payload into one fill geometry per byte.
var LengthDecoder = loader.DecoderFunc(func(_ context.Context, _ tile.ID, payload []byte) (*decoded.DecodedTile, error) {
	d := &decoded.DecodedTile{
		Techniques: []decoded.Technique{{Name: "fill", Kind: decoded.TechniqueFill}},
	}
	for range payload {
		d.Geometries = append(d.Geometries, decoded.Geometry{
			Positions: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0},
			Indices:   []uint32{0, 1, 2},
		})
	}
	return d, nil
})
