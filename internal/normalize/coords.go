package normalize

import (
	"encoding/json"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// parseCoordinateArray infers a geometry from a raw JSON array:
// [lng, lat] becomes a Point; [[lng, lat], ...] becomes a Polygon when it
// forms a closed ring of more than two points, otherwise a LineString.
func parseCoordinateArray(data []byte) (*geojson.FeatureCollection, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, wrapError(CodeUnparsableCoordinates, err, "invalid coordinate array")
	}
	if len(arr) == 0 {
		return nil, newError(CodeUnparsableCoordinates, "empty coordinates array")
	}

	// Single point: [lng, lat]
	if len(arr) == 2 {
		var lng, lat float64
		if json.Unmarshal(arr[0], &lng) == nil && json.Unmarshal(arr[1], &lat) == nil {
			return singleFeatureCollection(orb.Point{lng, lat}), nil
		}
	}

	// Array of points: [[lng, lat], ...]
	points := make([]orb.Point, 0, len(arr))
	for _, el := range arr {
		var pair []float64
		if err := json.Unmarshal(el, &pair); err != nil || len(pair) != 2 {
			return nil, newError(CodeUnparsableCoordinates, "could not interpret coordinate array")
		}
		points = append(points, orb.Point{pair[0], pair[1]})
	}

	if len(points) > 2 && points[0] == points[len(points)-1] {
		return singleFeatureCollection(orb.Polygon{orb.Ring(points)}), nil
	}
	return singleFeatureCollection(orb.LineString(points)), nil
}
