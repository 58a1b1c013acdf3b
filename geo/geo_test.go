package geo_test

import (
	"math"
	"testing"

	"github.com/eak1mov/go-tilekit/geo"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/stretchr/testify/require"
)

func TestAxisAlignedBox(t *testing.T) {
	box := geo.NewAxisAlignedBox(geo.Vec3{X: -1, Y: -2, Z: 0}, geo.Vec3{X: 3, Y: 2, Z: 2})
	require.Equal(t, geo.Vec3{X: 1, Y: 0, Z: 1}, box.Center())
	require.Equal(t, geo.Vec3{X: 4, Y: 4, Z: 2}, box.Size())
	require.True(t, box.Contains(geo.Vec3{X: 3, Y: -2, Z: 1}))
	require.False(t, box.Contains(geo.Vec3{X: 3.5, Y: 0, Z: 1}))
	require.False(t, box.IsZero())
	require.True(t, geo.OrientedBox3{}.IsZero())
}

func TestMercatorWorldBox(t *testing.T) {
	var proj geo.Mercator
	extent := proj.WorldExtent()

	root := proj.WorldBox(tile.ID{}.Bound(), 0)
	require.InDelta(t, 0, root.Center().X, 1e-6)
	require.InDelta(t, extent, root.Size().X, 1e-3)
	require.InDelta(t, extent, root.Size().Y, 1)

	wrapped := proj.WorldBox(tile.ID{}.Bound(), -2)
	require.InDelta(t, -2*extent, wrapped.Center().X, 1e-3)
	require.InDelta(t, root.Size().X, wrapped.Size().X, 1e-6)

	quarter := proj.WorldBox(tile.ID{X: 1, Y: 1, Z: 1}.Bound(), 0)
	require.InDelta(t, extent/4, quarter.Center().X, 1e-3)
	require.Less(t, quarter.Center().Y, 0.0)
	require.False(t, math.IsNaN(quarter.Center().Y))
}
