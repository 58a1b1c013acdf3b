package geo

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// Projection maps geographic boxes to world space.
type Projection interface {
	// WorldBox returns the world-space box of a geographic bound shifted by
	// offset world widths along X.
	WorldBox(bound orb.Bound, offset int) OrientedBox3

	// WorldExtent returns the width of one world copy in world units.
	WorldExtent() float64
}

// Mercator is the spherical (web) mercator projection in meters.
type Mercator struct{}

var mercatorExtent = 2 * math.Pi * orb.EarthRadius

func (Mercator) WorldExtent() float64 { return mercatorExtent }

func (m Mercator) WorldBox(bound orb.Bound, offset int) OrientedBox3 {
	lo := project.WGS84.ToMercator(bound.Min)
	hi := project.WGS84.ToMercator(bound.Max)
	box := NewAxisAlignedBox(Vec3{X: lo[0], Y: lo[1]}, Vec3{X: hi[0], Y: hi[1]})
	if offset != 0 {
		box = box.Translate(Vec3{X: float64(offset) * m.WorldExtent()})
	}
	return box
}
