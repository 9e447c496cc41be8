package geometry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

var ErrNoGeometry = errors.New("result carries no geometry")

// Boundary is a neighborhood outline together with the terms that found it.
// Neighborhoods mapped as a single node come back as a Point.
type Boundary struct {
	Neighborhood string
	City         string
	State        string
	Geometry     orb.Geometry
}

// GeoJSON returns the boundary geometry as a GeoJSON geometry object.
func (b *Boundary) GeoJSON() *geojson.Geometry {
	return geojson.NewGeometry(b.Geometry)
}

// ParseGeometry decodes a GeoJSON geometry object of any type. Missing or
// null geometry is ErrNoGeometry.
func ParseGeometry(raw json.RawMessage) (orb.Geometry, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoGeometry
	}

	g, err := geojson.UnmarshalGeometry(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse geojson: %w", err)
	}
	if g.Geometry() == nil {
		return nil, ErrNoGeometry
	}
	return g.Geometry(), nil
}

// Point builds an orb point; orb stores longitude first.
func Point(lat, lon float64) orb.Point {
	return orb.Point{lon, lat}
}

// DistanceMeters is the great-circle distance between two coordinates.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return geo.Distance(Point(lat1, lon1), Point(lat2, lon2))
}

// ValidCoordinate reports whether lat/lon are within WGS84 ranges.
func ValidCoordinate(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
