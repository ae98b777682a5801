// Package geospatial provides the geometry primitives shared by the
// normalization pipeline and the spatial catalog: coordinate extraction,
// bounding-box math and great-circle distance.
package geospatial

import (
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// EarthRadiusMeters is the mean Earth radius used for haversine distances.
const EarthRadiusMeters = 6371000.0

// WorldBounds is the fallback bounding box for collections without
// coordinates. Latitude is capped at ±85 so the box stays renderable in
// web-Mercator tiles.
var WorldBounds = [2][2]float64{{-180, -85}, {180, 85}}

// ExtractCoordinates walks a geometry and returns every leaf coordinate
// pair. It is opportunistic metadata support, not a validator: nil or
// degenerate members are skipped rather than reported.
func ExtractCoordinates(geom orb.Geometry) []orb.Point {
	var points []orb.Point
	appendCoordinates(geom, &points)
	return points
}

func appendCoordinates(geom orb.Geometry, points *[]orb.Point) {
	switch g := geom.(type) {
	case orb.Point:
		*points = append(*points, g)
	case orb.MultiPoint:
		*points = append(*points, g...)
	case orb.LineString:
		*points = append(*points, g...)
	case orb.MultiLineString:
		for _, ls := range g {
			*points = append(*points, ls...)
		}
	case orb.Ring:
		*points = append(*points, g...)
	case orb.Polygon:
		for _, ring := range g {
			*points = append(*points, ring...)
		}
	case orb.MultiPolygon:
		for _, poly := range g {
			for _, ring := range poly {
				*points = append(*points, ring...)
			}
		}
	case orb.Collection:
		for _, child := range g {
			appendCoordinates(child, points)
		}
	case orb.Bound:
		*points = append(*points, g.Min, g.Max)
	}
}

// CollectionCoordinates extracts every coordinate pair reachable from the
// features of a collection.
func CollectionCoordinates(fc *geojson.FeatureCollection) []orb.Point {
	var points []orb.Point
	if fc == nil {
		return points
	}
	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}
		appendCoordinates(f.Geometry, &points)
	}
	return points
}

// Bounds computes [[minLng, minLat], [maxLng, maxLat]] over every
// coordinate in the collection, falling back to WorldBounds when the
// collection has no usable coordinates.
func Bounds(fc *geojson.FeatureCollection) [2][2]float64 {
	points := CollectionCoordinates(fc)
	if len(points) == 0 {
		return WorldBounds
	}

	minLng, minLat := points[0][0], points[0][1]
	maxLng, maxLat := minLng, minLat
	for _, p := range points[1:] {
		if p[0] < minLng {
			minLng = p[0]
		}
		if p[1] < minLat {
			minLat = p[1]
		}
		if p[0] > maxLng {
			maxLng = p[0]
		}
		if p[1] > maxLat {
			maxLat = p[1]
		}
	}

	return [2][2]float64{{minLng, minLat}, {maxLng, maxLat}}
}

// Haversine returns the great-circle distance in meters between two
// lat/lng points. Numerically stable for all but antipodal point pairs.
func Haversine(lat1, lng1, lat2, lng2 float64) float64 {
	phi1 := lat1 * math.Pi / 180
	phi2 := lat2 * math.Pi / 180
	deltaPhi := (lat2 - lat1) * math.Pi / 180
	deltaLambda := (lng2 - lng1) * math.Pi / 180

	a := math.Sin(deltaPhi/2)*math.Sin(deltaPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(deltaLambda/2)*math.Sin(deltaLambda/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMeters * c
}

// BoundForRadius approximates a radius around a point as a bounding box:
// ~111 km per degree of latitude, with the longitude delta widened by
// 1/|cos(lat)| to correct for meridian convergence. The caller computes
// true haversine distances afterwards; the box only selects candidates.
func BoundForRadius(lat, lng, radiusKM float64) (west, south, east, north float64) {
	latDelta := radiusKM / 111.0

	lngDelta := latDelta
	if cos := math.Abs(math.Cos(lat * math.Pi / 180)); cos > 1e-9 {
		lngDelta = latDelta / cos
	}
	if lngDelta > 180 {
		lngDelta = 180
	}

	return lng - lngDelta, lat - latDelta, lng + lngDelta, lat + latDelta
}
