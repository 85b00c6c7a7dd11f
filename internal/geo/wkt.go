// Package geo parses parcel boundaries from WKT and derives the points the
// listing pipeline needs from them.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	"github.com/paulmach/orb/planar"
	"github.com/stwalsh4118/acreage/internal/models"
)

// Parse errors
var (
	ErrEmptyWKT            = errors.New("empty WKT geometry")
	ErrUnsupportedGeometry = errors.New("unsupported geometry type")
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// ParseWKT parses a Polygon or MultiPolygon WKT string, optionally prefixed
// with an EWKT "SRID=n;" header, into a typed geometry.
func ParseWKT(raw string) (models.Geometry, error) {
	text := strings.TrimSpace(raw)
	if i := strings.Index(text, ";"); i >= 0 && strings.HasPrefix(strings.ToUpper(text), "SRID=") {
		text = strings.TrimSpace(text[i+1:])
	}
	if text == "" {
		return nil, ErrEmptyWKT
	}

	geom, err := wkt.Unmarshal(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse WKT: %w", err)
	}

	switch g := geom.(type) {
	case orb.Polygon:
		if len(g) == 0 || len(g[0]) == 0 {
			return nil, ErrEmptyWKT
		}
		return fromOrbPolygon(g), nil
	case orb.MultiPolygon:
		if len(g) == 0 {
			return nil, ErrEmptyWKT
		}
		mp := models.MultiPolygon{SRID: 4326}
		for _, polygon := range g {
			if len(polygon) == 0 || len(polygon[0]) == 0 {
				continue
			}
			mp.Coordinates = append(mp.Coordinates, fromOrbPolygon(polygon).Coordinates)
		}
		if len(mp.Coordinates) == 0 {
			return nil, ErrEmptyWKT
		}
		return mp, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedGeometry, geom.GeoJSONType())
	}
}

// Centroid returns the area-weighted centroid of g. Holes are subtracted and
// the polygons of a MultiPolygon are weighted by their areas. A degenerate
// geometry with zero area falls back to the mean of its exterior vertices.
func Centroid(g models.Geometry) (Point, error) {
	if g == nil {
		return Point{}, ErrEmptyWKT
	}

	geom := toOrb(g)
	if geom == nil {
		return Point{}, fmt.Errorf("%w: %T", ErrUnsupportedGeometry, g)
	}

	center, area := planar.CentroidArea(geom)
	if area == 0 || math.IsNaN(center[0]) || math.IsNaN(center[1]) {
		return vertexMean(g)
	}

	return Point{Lat: center.Y(), Lng: center.X()}, nil
}

func vertexMean(g models.Geometry) (Point, error) {
	var sumLat, sumLng float64
	var n int
	for _, ring := range g.ExteriorRings() {
		// Skip the closing vertex that repeats the first one
		points := ring
		if len(points) > 1 && points[0] == points[len(points)-1] {
			points = points[:len(points)-1]
		}
		for _, pt := range points {
			sumLng += pt[0]
			sumLat += pt[1]
			n++
		}
	}
	if n == 0 {
		return Point{}, ErrEmptyWKT
	}
	return Point{Lat: sumLat / float64(n), Lng: sumLng / float64(n)}, nil
}

func fromOrbPolygon(p orb.Polygon) models.Polygon {
	coords := make([][][2]float64, 0, len(p))
	for _, ring := range p {
		points := make([][2]float64, len(ring))
		for i, pt := range ring {
			points[i] = [2]float64(pt)
		}
		coords = append(coords, points)
	}
	return models.Polygon{Coordinates: coords, SRID: 4326}
}

func toOrbPolygon(coords [][][2]float64) orb.Polygon {
	polygon := make(orb.Polygon, 0, len(coords))
	for _, ring := range coords {
		r := make(orb.Ring, len(ring))
		for i, pt := range ring {
			r[i] = orb.Point(pt)
		}
		polygon = append(polygon, r)
	}
	return polygon
}

func toOrb(g models.Geometry) orb.Geometry {
	switch geom := g.(type) {
	case models.Polygon:
		return toOrbPolygon(geom.Coordinates)
	case *models.Polygon:
		return toOrbPolygon(geom.Coordinates)
	case models.MultiPolygon:
		return toOrbMultiPolygon(geom.Coordinates)
	case *models.MultiPolygon:
		return toOrbMultiPolygon(geom.Coordinates)
	default:
		return nil
	}
}

func toOrbMultiPolygon(coords [][][][2]float64) orb.MultiPolygon {
	mp := make(orb.MultiPolygon, 0, len(coords))
	for _, polygon := range coords {
		mp = append(mp, toOrbPolygon(polygon))
	}
	return mp
}
