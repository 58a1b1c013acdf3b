// Package geo provides world-space boxes and the projection contract used to derive
// them from geographic tile bounds.
package geo

import "math"

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }
func (v Vec3) Length() float64      { return math.Sqrt(v.Dot(v)) }

var (
	UnitX = Vec3{X: 1}
	UnitY = Vec3{Y: 1}
	UnitZ = Vec3{Z: 1}
)

// OrientedBox3 is a box centered at Position, with unit axes and half-sizes along
// each of them in Extents.
type OrientedBox3 struct {
	Position Vec3
	XAxis    Vec3
	YAxis    Vec3
	ZAxis    Vec3
	Extents  Vec3
}

// NewAxisAlignedBox returns the box spanning lo..hi with world axes.
func NewAxisAlignedBox(lo, hi Vec3) OrientedBox3 {
	return OrientedBox3{
		Position: lo.Add(hi).Scale(0.5),
		XAxis:    UnitX,
		YAxis:    UnitY,
		ZAxis:    UnitZ,
		Extents:  hi.Sub(lo).Scale(0.5),
	}
}

func (b OrientedBox3) Center() Vec3 { return b.Position }

func (b OrientedBox3) IsZero() bool { return b == OrientedBox3{} }

// Size returns the full edge lengths of the box.
func (b OrientedBox3) Size() Vec3 { return b.Extents.Scale(2) }

func (b OrientedBox3) Contains(p Vec3) bool {
	d := p.Sub(b.Position)
	return math.Abs(d.Dot(b.XAxis)) <= b.Extents.X &&
		math.Abs(d.Dot(b.YAxis)) <= b.Extents.Y &&
		math.Abs(d.Dot(b.ZAxis)) <= b.Extents.Z
}

// Translate returns the box moved by d.
func (b OrientedBox3) Translate(d Vec3) OrientedBox3 {
	b.Position = b.Position.Add(d)
	return b
}
