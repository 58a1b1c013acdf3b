// Package decoded defines the content produced by the decode stage for one tile.
package decoded

import (
	"time"

	"github.com/eak1mov/go-tilekit/geo"
	"github.com/paulmach/orb"
)

type TechniqueKind uint8

const (
	TechniqueFill TechniqueKind = iota
	TechniqueLine
	TechniqueExtruded
	TechniqueText
	TechniqueIcon
)

func (k TechniqueKind) String() string {
	switch k {
	case TechniqueFill:
		return "fill"
	case TechniqueLine:
		return "line"
	case TechniqueExtruded:
		return "extruded"
	case TechniqueText:
		return "text"
	case TechniqueIcon:
		return "icon"
	}
	return "unknown"
}

// Technique is a style rule resolved by the style evaluator.
type Technique struct {
	Name string
	Kind TechniqueKind

	// Texture names an image used by the technique. Names with the "atlas:" prefix
	// refer to shared textures, anything else is created per tile.
	Texture string

	// Priority orders labels created from text techniques.
	Priority float64
}

// Geometry is one technique-tagged geometry record.
type Geometry struct {
	TechniqueIndex int

	// Positions holds xyz triplets in tile-local world units.
	Positions []float32
	Indices   []uint32

	// Texts holds label strings for text techniques, one per position triplet.
	Texts []string
}

func (g *Geometry) NumVertices() int {
	return len(g.Positions) / 3
}

type FeatureInfo struct {
	ID         uint64
	Layer      string
	Class      string
	Properties map[string]string
}

// RoadSegment is a road polyline kept for picking shader-generated road geometry.
type RoadSegment struct {
	ID             uint64
	TechniqueIndex int
	Start          int
	Width          float64
	Positions      []orb.Point
	Properties     map[string]any
}

// TileInfo is the feature metadata summary of a tile.
type TileInfo struct {
	Features []FeatureInfo
	Roads    []RoadSegment
}

// DecodedTile is the decode result consumed by mapview.Tile.
type DecodedTile struct {
	Techniques []Technique
	Geometries []Geometry

	// BoundingBox is a tighter world box computed during decoding, if any.
	BoundingBox *geo.OrientedBox3

	TileInfo *TileInfo

	// DecodeTime is the time spent decoding; zero if not measured.
	DecodeTime time.Duration

	CopyrightHolders []string
}
