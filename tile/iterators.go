package tile

import (
	"errors"
	"iter"
)

var errVisitCancelled = errors.New("visit cancelled")

// IterTiles returns an iterator over all tiles in the tileset.
// It yields tile IDs and their data. Iteration panics on unrecoverable errors.
func IterTiles(r Visitor) iter.Seq2[ID, []byte] {
	return func(yield func(ID, []byte) bool) {
		err := r.VisitTiles(func(tileID ID, tileData []byte) error {
			if !yield(tileID, tileData) {
				return errVisitCancelled
			}
			return nil
		})
		if err != nil && err != errVisitCancelled {
			panic(err)
		}
	}
}

// Children returns the four tiles one level below t, in Z-order.
func Children(t ID) iter.Seq[ID] {
	return func(yield func(ID) bool) {
		if t.Z >= 31 {
			return
		}
		for i := range uint32(4) {
			child := ID{X: t.X<<1 | i&1, Y: t.Y<<1 | i>>1, Z: t.Z + 1}
			if !yield(child) {
				return
			}
		}
	}
}

// Range returns keys for all tiles of zoom level z in the column range [minX, maxX]
// and row range [minY, maxY]. Columns outside [0, 2^z) wrap around the world and get
// a non-zero offset; rows are clamped.
func Range(z uint32, minX, minY, maxX, maxY int) iter.Seq[Key] {
	return func(yield func(Key) bool) {
		n := 1 << z
		minY, maxY = max(minY, 0), min(maxY, n-1)
		for y := minY; y <= maxY; y++ {
			for x := minX; x <= maxX; x++ {
				offset := floorDiv(x, n)
				id := ID{X: uint32(x - offset*n), Y: uint32(y), Z: z}
				if !yield(Key{ID: id, Offset: offset}) {
					return
				}
			}
		}
	}
}

func floorDiv(a, b int) int {
	q := a / b
	if a%b != 0 && (a < 0) != (b < 0) {
		q--
	}
	return q
}
