package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/eak1mov/go-tilekit/decoded"
	"github.com/eak1mov/go-tilekit/tile"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

// payload is the JSON tile format produced by seed.
type payload struct {
	Layers    []payloadLayer `json:"layers"`
	Copyright []string       `json:"copyright,omitempty"`
}

type payloadLayer struct {
	Name     string           `json:"name"`
	Kind     string           `json:"kind"`
	Texture  string           `json:"texture,omitempty"`
	Priority float64          `json:"priority,omitempty"`
	Features []payloadFeature `json:"features"`
}

type payloadFeature struct {
	ID          uint64            `json:"id"`
	Class       string            `json:"class,omitempty"`
	Text        string            `json:"text,omitempty"`
	Width       float64           `json:"width,omitempty"`
	Coordinates [][2]float64      `json:"coordinates"`
	Properties  map[string]string `json:"properties,omitempty"`
}

var techniqueKinds = map[string]decoded.TechniqueKind{
	decoded.TechniqueFill.String():     decoded.TechniqueFill,
	decoded.TechniqueLine.String():     decoded.TechniqueLine,
	decoded.TechniqueExtruded.String(): decoded.TechniqueExtruded,
	decoded.TechniqueText.String():     decoded.TechniqueText,
	decoded.TechniqueIcon.String():     decoded.TechniqueIcon,
}

// decodePayload implements loader.Decoder. Coordinates are projected to Web
// Mercator relative to the tile center.
func decodePayload(_ context.Context, tileID tile.ID, data []byte) (*decoded.DecodedTile, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("payload %v: %w", tileID, err)
	}

	origin := project.WGS84.ToMercator(tileID.Bound().Center())
	local := func(c [2]float64) orb.Point {
		m := project.WGS84.ToMercator(orb.Point{c[0], c[1]})
		return orb.Point{m.X() - origin.X(), m.Y() - origin.Y()}
	}

	d := &decoded.DecodedTile{
		TileInfo:         &decoded.TileInfo{},
		CopyrightHolders: p.Copyright,
	}
	for _, layer := range p.Layers {
		kind, ok := techniqueKinds[layer.Kind]
		if !ok {
			return nil, fmt.Errorf("payload %v: unknown layer kind %q", tileID, layer.Kind)
		}
		techniqueIndex := len(d.Techniques)
		d.Techniques = append(d.Techniques, decoded.Technique{
			Name:     layer.Name,
			Kind:     kind,
			Texture:  layer.Texture,
			Priority: layer.Priority,
		})

		for _, f := range layer.Features {
			points := make([]orb.Point, len(f.Coordinates))
			g := decoded.Geometry{TechniqueIndex: techniqueIndex}
			for i, c := range f.Coordinates {
				points[i] = local(c)
				g.Positions = append(g.Positions, float32(points[i].X()), float32(points[i].Y()), 0)
			}
			if kind == decoded.TechniqueFill || kind == decoded.TechniqueExtruded {
				for i := 1; i+1 < len(points); i++ {
					g.Indices = append(g.Indices, 0, uint32(i), uint32(i+1))
				}
			}
			if f.Text != "" {
				g.Texts = []string{f.Text}
			}
			d.Geometries = append(d.Geometries, g)

			d.TileInfo.Features = append(d.TileInfo.Features, decoded.FeatureInfo{
				ID:         f.ID,
				Layer:      layer.Name,
				Class:      f.Class,
				Properties: f.Properties,
			})
			if kind == decoded.TechniqueLine && f.Width > 0 {
				d.TileInfo.Roads = append(d.TileInfo.Roads, decoded.RoadSegment{
					ID:             f.ID,
					TechniqueIndex: techniqueIndex,
					Width:          f.Width,
					Positions:      points,
					Properties:     map[string]any{"class": f.Class},
				})
			}
		}
	}
	return d, nil
}

// syntheticPayload builds a tile with a land polygon, a road, a label and, on
// every other tile, a point of interest.
func syntheticPayload(tileID tile.ID) payload {
	b := tileID.Bound()
	lon0, lat0, lon1, lat1 := b.Min.Lon(), b.Min.Lat(), b.Max.Lon(), b.Max.Lat()
	center := b.Center()
	id := tileID.Code() << 3

	p := payload{
		Copyright: []string{"tilekit synthetic data"},
		Layers: []payloadLayer{
			{
				Name: "land",
				Kind: "fill",
				Features: []payloadFeature{{
					ID:          id,
					Class:       "land",
					Coordinates: [][2]float64{{lon0, lat0}, {lon1, lat0}, {lon1, lat1}, {lon0, lat1}},
				}},
			},
			{
				Name: "roads",
				Kind: "line",
				Features: []payloadFeature{{
					ID:          id + 1,
					Class:       "primary",
					Width:       8,
					Coordinates: [][2]float64{{lon0, center.Lat()}, {lon1, center.Lat()}},
					Properties:  map[string]string{"name": fmt.Sprintf("Road %v", tileID)},
				}},
			},
			{
				Name:     "places",
				Kind:     "text",
				Priority: float64(tileID.Z),
				Features: []payloadFeature{{
					ID:          id + 2,
					Text:        tileID.String(),
					Coordinates: [][2]float64{{center.Lon(), center.Lat()}},
				}},
			},
		},
	}
	if (tileID.X+tileID.Y)%2 == 0 {
		texture := "pin"
		if tileID.X%4 == 0 {
			texture = "atlas:poi"
		}
		p.Layers = append(p.Layers, payloadLayer{
			Name:    "poi",
			Kind:    "icon",
			Texture: texture,
			Features: []payloadFeature{{
				ID:          id + 3,
				Coordinates: [][2]float64{{center.Lon(), center.Lat()}},
			}},
		})
	}
	return p
}
