// Package geo treats occluders as polygons in video pixel space.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/peyecoder/peyecoder/pkg/core"
	geom "github.com/peterstace/simplefeatures/geom"
)

// Occluders are stored as WKT polygons so that sqlite and postgres can hold
// them in a plain text column. Pixel coordinates have y growing downwards;
// geometry operations are orientation independent so no flip is applied.

// ErrNotRectangle is returned when a stored geometry is not a polygon.
var ErrNotRectangle = errors.New("geometry is not a polygon")

// Polygon returns the rectangle covered by o. Occluders without area are
// rejected by geometry validation.
func Polygon(o core.Occluder) (geom.Polygon, error) {
	x0, y0 := float64(o.X), float64(o.Y)
	x1, y1 := x0+float64(o.W), y0+float64(o.H)
	ring, err := geom.NewLineString(geom.NewSequence([]float64{
		x0, y0,
		x1, y0,
		x1, y1,
		x0, y1,
		x0, y0,
	}, geom.DimXY))
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("occluder %+v: %w", o, err)
	}
	poly, err := geom.NewPolygon([]geom.LineString{ring})
	if err != nil {
		return geom.Polygon{}, fmt.Errorf("occluder %+v: %w", o, err)
	}
	return poly, nil
}

// WKT renders o as a polygon in well known text.
func WKT(o core.Occluder) (string, error) {
	poly, err := Polygon(o)
	if err != nil {
		return "", err
	}
	return poly.AsText(), nil
}

func geometries(occluders core.Occluders) ([]geom.Geometry, error) {
	out := make([]geom.Geometry, 0, len(occluders))
	for _, o := range occluders {
		poly, err := Polygon(o)
		if err != nil {
			return nil, err
		}
		out = append(out, poly.AsGeometry())
	}
	return out, nil
}

// FromWKT reads an occluder back from well known text. The occluder is the
// bounding rectangle of the polygon's exterior ring.
func FromWKT(wkt string) (core.Occluder, error) {
	g, err := geom.UnmarshalWKT(wkt)
	if err != nil {
		return core.Occluder{}, fmt.Errorf("parse occluder: %w", err)
	}
	poly, ok := g.AsPolygon()
	if !ok {
		return core.Occluder{}, fmt.Errorf("parse occluder %q: %w", wkt, ErrNotRectangle)
	}
	seq := poly.ExteriorRing().Coordinates()
	if seq.Length() == 0 {
		return core.Occluder{}, nil
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for i := 0; i < seq.Length(); i++ {
		xy := seq.GetXY(i)
		minX, maxX = math.Min(minX, xy.X), math.Max(maxX, xy.X)
		minY, maxY = math.Min(minY, xy.Y), math.Max(maxY, xy.Y)
	}
	return core.Occluder{
		X: int(math.Round(minX)),
		Y: int(math.Round(minY)),
		W: int(math.Round(maxX - minX)),
		H: int(math.Round(maxY - minY)),
	}, nil
}

// Overlap is a pair of occluders, by index, that share area.
type Overlap struct {
	A, B int
	Area float64
}

// Overlaps lists every pair of occluders whose intersection has positive
// area. Occluders that only touch along an edge do not overlap.
func Overlaps(occluders core.Occluders) ([]Overlap, error) {
	polys, err := geometries(occluders)
	if err != nil {
		return nil, err
	}
	var out []Overlap
	for i, a := range polys {
		for j := i + 1; j < len(polys); j++ {
			b := polys[j]
			if !geom.Intersects(a, b) {
				continue
			}
			inter, err := geom.Intersection(a, b)
			if err != nil {
				return nil, fmt.Errorf("intersect occluders %d and %d: %w", i, j, err)
			}
			if area := inter.Area(); area > 0 {
				out = append(out, Overlap{A: i, B: j, Area: area})
			}
		}
	}
	return out, nil
}

// CoveredArea is the number of pixels masked by at least one occluder.
func CoveredArea(occluders core.Occluders) (float64, error) {
	if len(occluders) == 0 {
		return 0, nil
	}
	polys, err := geometries(occluders)
	if err != nil {
		return 0, err
	}
	union := polys[0]
	for i, p := range polys[1:] {
		union, err = geom.Union(union, p)
		if err != nil {
			return 0, fmt.Errorf("union occluder %d: %w", i+1, err)
		}
	}
	return union.Area(), nil
}
