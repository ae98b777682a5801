package normalize

import (
	"encoding/csv"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Accepted header spellings for the coordinate-pair fallback.
var (
	csvLatNames = []string{"LATITUDE", "latitude", "lat", "Latitude", "LAT", "y", "Y", "Lat"}
	csvLngNames = []string{
		"LONGITUDE", "longitude", "lng", "lon", "long", "Longitude",
		"LNG", "LON", "LONG", "x", "X", "Lng", "Lon",
	}
	csvGeomHints = []string{"wkt", "geom", "geometry", "shape"}
)

// parseCSV converts CSV text into a FeatureCollection. Geometry resolution
// priority: an explicitly named geometry column, an auto-detected geometry
// column, then a recognized lat/lng column pair. Rows with unusable
// coordinates are dropped, not failed.
func parseCSV(text string, opts Options) (*geojson.FeatureCollection, error) {
	delimiter := opts.Delimiter
	if delimiter == 0 {
		delimiter = ','
	}

	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delimiter
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, wrapError(CodeUnparsableInput, err, "could not parse CSV")
	}
	if len(records) < 2 {
		return nil, newError(CodeUnparsableInput, "CSV is empty")
	}

	header := make([]string, len(records[0]))
	for i, h := range records[0] {
		header[i] = strings.TrimSpace(h)
	}
	rows := records[1:]

	if opts.GeometryColumn != "" {
		if idx := columnIndex(header, opts.GeometryColumn); idx >= 0 {
			return csvGeometryColumn(header, rows, idx)
		}
	}

	if idx := detectGeometryColumn(header, rows); idx >= 0 {
		return csvGeometryColumn(header, rows, idx)
	}

	return csvLatLngColumns(header, rows, opts)
}

func columnIndex(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	return -1
}

// detectGeometryColumn finds a column whose header hints at geometry and
// whose first non-empty value looks like WKT or a GeoJSON geometry object.
func detectGeometryColumn(header []string, rows [][]string) int {
	for i, h := range header {
		lower := strings.ToLower(h)
		hinted := false
		for _, hint := range csvGeomHints {
			if strings.Contains(lower, hint) {
				hinted = true
				break
			}
		}
		if !hinted {
			continue
		}

		for _, row := range rows {
			if i >= len(row) {
				continue
			}
			sample := strings.TrimSpace(row[i])
			if sample == "" {
				continue
			}
			if hasWKTPrefix(sample) {
				return i
			}
			if strings.HasPrefix(sample, "{") && strings.Contains(sample, `"type"`) {
				return i
			}
			break
		}
	}
	return -1
}

// csvGeometryColumn builds features from a WKT or GeoJSON geometry column.
// Unparsable cells drop the row.
func csvGeometryColumn(header []string, rows [][]string, geomIdx int) (*geojson.FeatureCollection, error) {
	fc := geojson.NewFeatureCollection()

	for _, row := range rows {
		if geomIdx >= len(row) {
			continue
		}
		raw := strings.TrimSpace(row[geomIdx])
		if raw == "" {
			continue
		}

		var geom orb.Geometry
		switch {
		case hasWKTPrefix(raw):
			parsed, err := ParseWKT(raw)
			if err != nil || len(parsed.Features) == 0 {
				continue
			}
			geom = parsed.Features[0].Geometry
		case strings.HasPrefix(raw, "{"):
			g, err := geojson.UnmarshalGeometry([]byte(raw))
			if err != nil {
				continue
			}
			geom = g.Geometry()
		default:
			continue
		}
		if geom == nil {
			continue
		}

		f := geojson.NewFeature(geom)
		f.Properties = rowProperties(header, row, geomIdx, -1)
		fc.Append(f)
	}

	if len(fc.Features) == 0 {
		return nil, newError(CodeNoValidCoordinates, "no valid geometries found in geometry column")
	}
	return fc, nil
}

// csvLatLngColumns builds Point features from a latitude/longitude column
// pair. Rows with non-numeric or out-of-range coordinates are dropped.
func csvLatLngColumns(header []string, rows [][]string, opts Options) (*geojson.FeatureCollection, error) {
	latIdx, lngIdx := -1, -1

	if opts.LatColumn != "" {
		latIdx = columnIndex(header, opts.LatColumn)
	}
	if latIdx < 0 {
		for _, name := range csvLatNames {
			if idx := columnIndex(header, name); idx >= 0 {
				latIdx = idx
				break
			}
		}
	}
	if opts.LngColumn != "" {
		lngIdx = columnIndex(header, opts.LngColumn)
	}
	if lngIdx < 0 {
		for _, name := range csvLngNames {
			if idx := columnIndex(header, name); idx >= 0 {
				lngIdx = idx
				break
			}
		}
	}

	if latIdx < 0 || lngIdx < 0 {
		found := header
		if len(found) > 15 {
			found = found[:15]
		}
		return nil, newError(CodeMissingCoordinateColumns,
			"CSV needs lat/lng or geometry columns; found: %s", strings.Join(found, ", "))
	}

	fc := geojson.NewFeatureCollection()
	for _, row := range rows {
		if latIdx >= len(row) || lngIdx >= len(row) {
			continue
		}
		lat, err1 := strconv.ParseFloat(strings.TrimSpace(row[latIdx]), 64)
		lng, err2 := strconv.ParseFloat(strings.TrimSpace(row[lngIdx]), 64)
		if err1 != nil || err2 != nil {
			continue
		}
		if math.IsNaN(lat) || math.IsNaN(lng) || lat < -90 || lat > 90 || lng < -180 || lng > 180 {
			continue
		}

		f := geojson.NewFeature(orb.Point{lng, lat})
		f.Properties = rowProperties(header, row, latIdx, lngIdx)
		fc.Append(f)
	}

	if len(fc.Features) == 0 {
		return nil, newError(CodeNoValidCoordinates, "no valid coordinates found in CSV")
	}
	return fc, nil
}

// rowProperties turns the non-geometry cells of a row into feature
// properties, coercing values number -> bool -> string. Empty cells and
// non-finite numbers become null for downstream JSON safety.
func rowProperties(header []string, row []string, skipA, skipB int) geojson.Properties {
	props := geojson.Properties{}
	for i, col := range header {
		if i == skipA || i == skipB || col == "" {
			continue
		}
		if i >= len(row) {
			props[col] = nil
			continue
		}
		props[col] = coerceCell(strings.TrimSpace(row[i]))
	}
	return props
}

func coerceCell(cell string) interface{} {
	if cell == "" {
		return nil
	}
	if n, err := strconv.ParseFloat(cell, 64); err == nil {
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return nil
		}
		return n
	}
	if b, err := strconv.ParseBool(cell); err == nil && (cell == "true" || cell == "false") {
		return b
	}
	return cell
}

// sanitizeProperties replaces non-finite numeric property values with null
// so the collection always serializes as valid JSON.
func sanitizeProperties(fc *geojson.FeatureCollection) {
	for _, f := range fc.Features {
		for k, v := range f.Properties {
			switch n := v.(type) {
			case float64:
				if math.IsNaN(n) || math.IsInf(n, 0) {
					f.Properties[k] = nil
				}
			case json.Number:
				if parsed, err := n.Float64(); err != nil || math.IsNaN(parsed) || math.IsInf(parsed, 0) {
					f.Properties[k] = nil
				}
			}
		}
	}
}
