// Package tile provides tile coordinates and storage interfaces.
package tile

import (
	"context"
	"errors"
	"fmt"
	"math/bits"

	"github.com/google/hilbert"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

var ErrInvalidID = errors.New("tilekit: invalid tile id")

// ID represents tile coordinates in the XYZ scheme (Tiled web map).
type ID struct {
	X uint32
	Y uint32
	Z uint32
}

func (t ID) Valid() bool {
	return t.Z < 32 && t.X < (1<<t.Z) && t.Y < (1<<t.Z)
}

func (t ID) String() string {
	return fmt.Sprintf("%d/%d/%d", t.Z, t.X, t.Y)
}

// Parent returns the tile one level up that covers t. The root tile is its own parent.
func (t ID) Parent() ID {
	if t.Z == 0 {
		return t
	}
	return ID{X: t.X >> 1, Y: t.Y >> 1, Z: t.Z - 1}
}

// Bound returns the geographic (lon/lat) bounding box of the tile.
func (t ID) Bound() orb.Bound {
	return maptile.New(t.X, t.Y, maptile.Zoom(t.Z)).Bound()
}

// Code returns the position of the tile on the Hilbert curve of its zoom level,
// offset by the number of tiles on all lower levels (PMTiles v3 tile id).
func (t ID) Code() uint64 {
	h, _ := hilbert.NewHilbert(1 << t.Z)
	tileCode, _ := h.MapInverse(int(t.X), int(t.Y))

	tilesCount := (1<<(t.Z*2) - 1) / 3
	return uint64(tileCode + tilesCount)
}

// DecodeCode is the inverse of ID.Code.
func DecodeCode(tileCode uint64) ID {
	z := (bits.Len64(3*tileCode+1) - 1) / 2
	tilesCount := (1<<(z*2) - 1) / 3

	h, _ := hilbert.NewHilbert(1 << z)
	x, y, _ := h.Map(int(tileCode) - tilesCount)

	return ID{X: uint32(x), Y: uint32(y), Z: uint32(z)}
}

const (
	offsetBits  = 8
	offsetShift = 64 - offsetBits
	codeMask    = 1<<offsetShift - 1

	MinOffset = -(1 << (offsetBits - 1))
	MaxOffset = 1<<(offsetBits-1) - 1

	// MaxKeyZoom is the highest zoom level whose tile codes fit into a Key code.
	MaxKeyZoom = 27
)

// Key identifies a tile instance on screen: the tiling coordinate plus the number of
// world widths it is shifted by (world wrap).
type Key struct {
	ID     ID
	Offset int
}

func (k Key) Valid() bool {
	return k.ID.Valid() && k.ID.Z <= MaxKeyZoom && k.Offset >= MinOffset && k.Offset <= MaxOffset
}

func (k Key) String() string {
	if k.Offset == 0 {
		return k.ID.String()
	}
	return fmt.Sprintf("%v@%+d", k.ID, k.Offset)
}

// Code packs the tile code and the offset into a single value, unique for valid keys.
// Tile codes fit into 56 bits up to MaxKeyZoom.
func (k Key) Code() uint64 {
	offset := uint64(uint8(int8(k.Offset)))
	return offset<<offsetShift | k.ID.Code()&codeMask
}

// DecodeKey is the inverse of Key.Code.
func DecodeKey(code uint64) Key {
	offset := int(int8(uint8(code >> offsetShift)))
	return Key{ID: DecodeCode(code & codeMask), Offset: offset}
}

// Writer defines an interface for writing tiles to a tileset.
type Writer interface {
	// WriteTile writes a single tile to the tileset.
	WriteTile(tileID ID, tileData []byte) error

	// Finalize completes the writing process: flushes buffers and writes indices.
	// It must be called before closing the Writer.
	Finalize() error
}

type Reader interface {
	// ReadTile reads a single tile from the tileset.
	// It returns the tile data or an error if the tile cannot be read.
	// If the tile does not exist, it returns an empty slice with no error.
	ReadTile(ctx context.Context, tileID ID) ([]byte, error)
}

type Visitor interface {
	// VisitTiles visits all tiles in the tileset, calling the visitor for each.
	// Order of tiles, upfront cpu and memory consumption are implementation-defined.
	VisitTiles(visitor func(ID, []byte) error) error
}

// ReaderFunc adapts a function to the Reader interface.
type ReaderFunc func(ctx context.Context, tileID ID) ([]byte, error)

func (f ReaderFunc) ReadTile(ctx context.Context, tileID ID) ([]byte, error) {
	return f(ctx, tileID)
}
