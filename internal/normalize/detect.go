package normalize

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

var geometryTypes = map[string]bool{
	"Point":              true,
	"LineString":         true,
	"Polygon":            true,
	"MultiPoint":         true,
	"MultiLineString":    true,
	"MultiPolygon":       true,
	"GeometryCollection": true,
}

var wktPrefixes = []string{"POINT", "LINESTRING", "POLYGON", "MULTI", "GEOMETRYCOLLECTION"}

// Normalize auto-detects the format of raw spatial data and converts it to
// a GeoJSON FeatureCollection. It returns the collection and the detected
// format name.
func Normalize(raw json.RawMessage, opts Options) (*geojson.FeatureCollection, string, error) {
	data := bytes.TrimSpace(raw)
	if len(data) == 0 {
		return nil, "", newError(CodeUnparsableInput, "empty input")
	}

	switch data[0] {
	case '{':
		fc, err := normalizeGeoJSON(data)
		if err != nil {
			return nil, "", err
		}
		return fc, FormatGeoJSON, nil
	case '[':
		fc, err := parseCoordinateArray(data)
		if err != nil {
			return nil, "", err
		}
		return fc, FormatCoordinates, nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, "", wrapError(CodeUnparsableInput, err, "invalid string input")
		}
		return normalizeString(s, opts)
	default:
		return nil, "", newError(CodeUnparsableInput, "unsupported data type")
	}
}

// normalizeString classifies trimmed string input as embedded JSON, WKT or
// CSV text, in that order, then falls back to one last WKT attempt.
func normalizeString(s string, opts Options) (*geojson.FeatureCollection, string, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil, "", newError(CodeUnparsableInput, "empty input")
	}

	if strings.EqualFold(opts.FormatHint, FormatCSV) {
		fc, err := parseCSV(trimmed, opts)
		if err != nil {
			return nil, "", err
		}
		return fc, FormatCSV, nil
	}

	if trimmed[0] == '{' || trimmed[0] == '[' {
		if json.Valid([]byte(trimmed)) {
			return Normalize(json.RawMessage(trimmed), opts)
		}
		// Malformed JSON falls through to the WKT and CSV checks.
	}

	if hasWKTPrefix(trimmed) {
		fc, err := ParseWKT(trimmed)
		if err != nil {
			return nil, "", err
		}
		return fc, FormatWKT, nil
	}

	if strings.Contains(trimmed, "\n") && (strings.Contains(trimmed, ",") || strings.Contains(trimmed, "\t")) {
		fc, err := parseCSV(trimmed, opts)
		if err != nil {
			return nil, "", err
		}
		return fc, FormatCSV, nil
	}

	if fc, err := ParseWKT(trimmed); err == nil {
		return fc, FormatWKT, nil
	}
	return nil, "", newError(CodeUnparsableInput,
		"could not parse string data; supported formats: GeoJSON, WKT, CSV text, coordinate arrays")
}

func hasWKTPrefix(s string) bool {
	upper := strings.ToUpper(s)
	for _, p := range wktPrefixes {
		if strings.HasPrefix(upper, p) {
			return true
		}
	}
	return false
}

// normalizeGeoJSON converts any GeoJSON value to a FeatureCollection: a
// FeatureCollection passes through, a Feature or bare Geometry is wrapped
// in a singleton collection.
func normalizeGeoJSON(data []byte) (*geojson.FeatureCollection, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, wrapError(CodeInvalidGeoJSON, err, "invalid JSON object")
	}

	switch {
	case probe.Type == "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, wrapError(CodeInvalidGeoJSON, err, "invalid FeatureCollection")
		}
		return fc, nil

	case probe.Type == "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, wrapError(CodeInvalidGeoJSON, err, "invalid Feature")
		}
		fc := geojson.NewFeatureCollection()
		fc.Append(f)
		return fc, nil

	case geometryTypes[probe.Type]:
		g, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, wrapError(CodeInvalidGeoJSON, err, "invalid %s geometry", probe.Type)
		}
		return singleFeatureCollection(g.Geometry()), nil

	default:
		return nil, newError(CodeInvalidGeoJSON, "invalid GeoJSON structure: unrecognized type %q", probe.Type)
	}
}

func singleFeatureCollection(geom orb.Geometry) *geojson.FeatureCollection {
	f := geojson.NewFeature(geom)
	f.Properties = geojson.Properties{}
	fc := geojson.NewFeatureCollection()
	fc.Append(f)
	return fc
}
