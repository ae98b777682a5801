package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// The WKT path intentionally covers only POINT, LINESTRING and single-ring
// POLYGON. Multi-ring polygons (holes) and MULTI* geometries must be
// submitted as GeoJSON.
var (
	wktPointRe   = regexp.MustCompile(`(?is)^POINT\s*\(\s*(-?[0-9.]+)\s+(-?[0-9.]+)\s*\)$`)
	wktLineRe    = regexp.MustCompile(`(?is)^LINESTRING\s*\((.*)\)$`)
	wktPolygonRe = regexp.MustCompile(`(?is)^POLYGON\s*\(\((.*)\)\)$`)
)

// ParseWKT parses a WKT string into a singleton FeatureCollection. The
// keyword is case-insensitive and whitespace is tolerated around numbers.
func ParseWKT(wkt string) (*geojson.FeatureCollection, error) {
	s := strings.TrimSpace(wkt)

	if m := wktPointRe.FindStringSubmatch(s); m != nil {
		lng, err1 := strconv.ParseFloat(m[1], 64)
		lat, err2 := strconv.ParseFloat(m[2], 64)
		if err1 != nil || err2 != nil {
			return nil, newError(CodeUnparsableInput, "could not parse WKT point: %s", truncate(s, 100))
		}
		return singleFeatureCollection(orb.Point{lng, lat}), nil
	}

	if m := wktLineRe.FindStringSubmatch(s); m != nil {
		coords := parseWKTPairs(m[1])
		if len(coords) == 0 {
			return nil, newError(CodeUnparsableInput, "could not parse WKT linestring: %s", truncate(s, 100))
		}
		return singleFeatureCollection(orb.LineString(coords)), nil
	}

	if m := wktPolygonRe.FindStringSubmatch(s); m != nil {
		coords := parseWKTPairs(m[1])
		if len(coords) == 0 {
			return nil, newError(CodeUnparsableInput, "could not parse WKT polygon: %s", truncate(s, 100))
		}
		return singleFeatureCollection(orb.Polygon{orb.Ring(coords)}), nil
	}

	return nil, newError(CodeUnparsableInput, "could not parse WKT: %s", truncate(s, 100))
}

// parseWKTPairs splits "x1 y1, x2 y2, ..." into points, skipping tuples
// with fewer than two numeric parts.
func parseWKTPairs(s string) []orb.Point {
	var points []orb.Point
	for _, pair := range strings.Split(s, ",") {
		parts := strings.Fields(strings.TrimSpace(pair))
		if len(parts) < 2 {
			continue
		}
		x, err1 := strconv.ParseFloat(parts[0], 64)
		y, err2 := strconv.ParseFloat(parts[1], 64)
		if err1 != nil || err2 != nil {
			continue
		}
		points = append(points, orb.Point{x, y})
	}
	return points
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
