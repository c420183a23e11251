// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package dataset

import (
	"math"

	"github.com/mitchellh/mapstructure"
)

// Geometry is an Esri JSON geometry: a point, multipoint, polyline,
// polygon or envelope.  Coordinates may carry z and m values after x
// and y; these are kept but not interpreted.
type Geometry struct {
	X *float64 `mapstructure:"x"`
	Y *float64 `mapstructure:"y"`

	Points [][]float64   `mapstructure:"points"`
	Paths  [][][]float64 `mapstructure:"paths"`
	Rings  [][][]float64 `mapstructure:"rings"`

	XMin *float64 `mapstructure:"xmin"`
	YMin *float64 `mapstructure:"ymin"`
	XMax *float64 `mapstructure:"xmax"`
	YMax *float64 `mapstructure:"ymax"`
}

// DecodeGeometry converts a generic JSON geometry object.
func DecodeGeometry(m map[string]interface{}) (Geometry, error) {
	var g Geometry
	err := mapstructure.WeakDecode(m, &g)
	return g, err
}

// Envelope returns the bounding box of the geometry.  The last return
// value is false if the geometry has no coordinates.
func (g Geometry) Envelope() (minX, minY, maxX, maxY float64, ok bool) {
	minX, minY = math.Inf(1), math.Inf(1)
	maxX, maxY = math.Inf(-1), math.Inf(-1)
	add := func(x, y float64) {
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
		ok = true
	}
	addAll := func(coords [][]float64) {
		for _, c := range coords {
			if len(c) >= 2 {
				add(c[0], c[1])
			}
		}
	}

	if g.X != nil && g.Y != nil {
		add(*g.X, *g.Y)
	}
	if g.XMin != nil && g.YMin != nil && g.XMax != nil && g.YMax != nil {
		add(*g.XMin, *g.YMin)
		add(*g.XMax, *g.YMax)
	}
	addAll(g.Points)
	for _, p := range g.Paths {
		addAll(p)
	}
	for _, r := range g.Rings {
		addAll(r)
	}
	if !ok {
		return 0, 0, 0, 0, false
	}
	return minX, minY, maxX, maxY, true
}
