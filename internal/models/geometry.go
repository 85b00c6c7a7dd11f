package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Geometry is a parsed parcel boundary: either a Polygon or a MultiPolygon.
type Geometry interface {
	// GeometryType returns the GeoJSON type name.
	GeometryType() string
	// ExteriorRings returns the outer ring of each polygon as [points][lon,lat].
	ExteriorRings() [][][2]float64
}

// Polygon represents a polygon boundary.
// It stores coordinates in GeoJSON format: [rings][points][lon,lat]
// The first ring is the exterior, the rest are holes. SRID 4326 (WGS84).
type Polygon struct {
	Coordinates [][][2]float64
	SRID        int
}

// GeometryType implements Geometry.
func (p Polygon) GeometryType() string { return "Polygon" }

// ExteriorRings implements Geometry.
func (p Polygon) ExteriorRings() [][][2]float64 {
	if len(p.Coordinates) == 0 {
		return nil
	}
	return p.Coordinates[:1]
}

// Value implements driver.Valuer so a Polygon can be written to a json/jsonb
// column or passed to ST_GeomFromGeoJSON.
func (p Polygon) Value() (driver.Value, error) {
	if len(p.Coordinates) == 0 {
		return nil, nil
	}

	geoJSON, err := p.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon to GeoJSON: %w", err)
	}
	return string(geoJSON), nil
}

// MarshalJSON implements json.Marshaler for API responses.
func (p Polygon) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	}{
		Type:        "Polygon",
		Coordinates: p.Coordinates,
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for GeoJSON input.
func (p *Polygon) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string         `json:"type"`
		Coordinates [][][2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal polygon: %w", err)
	}

	if geom.Type != "" && geom.Type != "Polygon" {
		return fmt.Errorf("expected Polygon type, got %s", geom.Type)
	}

	p.Coordinates = geom.Coordinates
	p.SRID = 4326

	return nil
}

// MultiPolygon represents a parcel made of several separate polygons.
// It stores coordinates in GeoJSON format: [polygons][rings][points][lon,lat]
type MultiPolygon struct {
	Coordinates [][][][2]float64
	SRID        int
}

// GeometryType implements Geometry.
func (mp MultiPolygon) GeometryType() string { return "MultiPolygon" }

// ExteriorRings implements Geometry.
func (mp MultiPolygon) ExteriorRings() [][][2]float64 {
	var rings [][][2]float64
	for _, polygon := range mp.Coordinates {
		if len(polygon) > 0 {
			rings = append(rings, polygon[0])
		}
	}
	return rings
}

// Value implements driver.Valuer.
func (mp MultiPolygon) Value() (driver.Value, error) {
	if len(mp.Coordinates) == 0 {
		return nil, nil
	}

	geoJSON, err := mp.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal multipolygon to GeoJSON: %w", err)
	}
	return string(geoJSON), nil
}

// MarshalJSON implements json.Marshaler for API responses.
func (mp MultiPolygon) MarshalJSON() ([]byte, error) {
	geom := struct {
		Type        string           `json:"type"`
		Coordinates [][][][2]float64 `json:"coordinates"`
	}{
		Type:        "MultiPolygon",
		Coordinates: mp.Coordinates,
	}
	return json.Marshal(geom)
}

// UnmarshalJSON implements json.Unmarshaler for GeoJSON input.
func (mp *MultiPolygon) UnmarshalJSON(data []byte) error {
	var geom struct {
		Type        string           `json:"type"`
		Coordinates [][][][2]float64 `json:"coordinates"`
	}

	if err := json.Unmarshal(data, &geom); err != nil {
		return fmt.Errorf("failed to unmarshal multipolygon: %w", err)
	}

	if geom.Type != "" && geom.Type != "MultiPolygon" {
		return fmt.Errorf("expected MultiPolygon type, got %s", geom.Type)
	}

	mp.Coordinates = geom.Coordinates
	mp.SRID = 4326

	return nil
}

// GeometryValue returns g as a driver value, or nil when g is absent.
func GeometryValue(g Geometry) (driver.Value, error) {
	switch geom := g.(type) {
	case nil:
		return nil, nil
	case Polygon:
		return geom.Value()
	case *Polygon:
		return geom.Value()
	case MultiPolygon:
		return geom.Value()
	case *MultiPolygon:
		return geom.Value()
	default:
		return nil, fmt.Errorf("unsupported geometry type %T", g)
	}
}
