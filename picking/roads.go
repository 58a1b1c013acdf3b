// Package picking keeps the data needed to hit-test road geometry that is generated
// in shaders and therefore has no pickable triangles.
package picking

import (
	"math"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// RoadIntersectionData is stored verbatim by the tile. Entry i spans
// Positions[Starts[i]:Starts[i+1]] (or to the end for the last entry).
type RoadIntersectionData struct {
	IDs              []uint64
	TechniqueIndex   []int
	Starts           []int
	Widths           []float64
	Positions        []orb.Point
	CustomProperties []map[string]any
}

func (d *RoadIntersectionData) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Starts)
}

func (d *RoadIntersectionData) segment(i int) []orb.Point {
	end := len(d.Positions)
	if i+1 < len(d.Starts) {
		end = d.Starts[i+1]
	}
	return d.Positions[d.Starts[i]:end]
}

type Hit struct {
	Index          int
	ID             uint64
	TechniqueIndex int
	Distance       float64
	Properties     map[string]any
}

// RoadPicker builds road intersection data from tile metadata and hit-tests it.
type RoadPicker struct {
	// KeepProperties copies per-road custom properties into the record.
	KeepProperties bool
}

// Prepare returns the record for info, or nil when the tile carries no roads.
func (p *RoadPicker) Prepare(info *decoded.TileInfo) *RoadIntersectionData {
	if info == nil || len(info.Roads) == 0 {
		return nil
	}
	data := &RoadIntersectionData{}
	hasIDs := false
	for _, road := range info.Roads {
		if road.ID != 0 {
			hasIDs = true
			break
		}
	}
	for _, road := range info.Roads {
		if len(road.Positions) < 2 {
			continue
		}
		data.TechniqueIndex = append(data.TechniqueIndex, road.TechniqueIndex)
		data.Starts = append(data.Starts, len(data.Positions))
		data.Widths = append(data.Widths, road.Width)
		data.Positions = append(data.Positions, road.Positions...)
		if hasIDs {
			data.IDs = append(data.IDs, road.ID)
		}
		if p.KeepProperties {
			data.CustomProperties = append(data.CustomProperties, road.Properties)
		}
	}
	if len(data.Starts) == 0 {
		return nil
	}
	return data
}

// Intersect returns every road whose centerline is within half its width of point.
func (p *RoadPicker) Intersect(data *RoadIntersectionData, point orb.Point) []Hit {
	var hits []Hit
	for i := range data.Len() {
		segment := data.segment(i)
		distance := math.Inf(1)
		for j := 1; j < len(segment); j++ {
			distance = min(distance, planar.DistanceFromSegment(segment[j-1], segment[j], point))
		}
		if distance > data.Widths[i]/2 {
			continue
		}
		hit := Hit{Index: i, TechniqueIndex: data.TechniqueIndex[i], Distance: distance}
		if i < len(data.IDs) {
			hit.ID = data.IDs[i]
		}
		if i < len(data.CustomProperties) {
			hit.Properties = data.CustomProperties[i]
		}
		hits = append(hits, hit)
	}
	return hits
}
