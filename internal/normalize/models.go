package normalize

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// Detected input formats.
const (
	FormatGeoJSON     = "geojson"
	FormatWKT         = "wkt"
	FormatCoordinates = "coordinates"
	FormatCSV         = "csv"
)

// Size and shape guardrails applied before metadata extraction.
const (
	MaxFeatures     = 100_000
	MaxPayloadBytes = 50 * 1024 * 1024
)

// Request accepts any supported spatial data format plus optional hints.
type Request struct {
	// Data is GeoJSON, a coordinate array, a WKT string, or CSV text.
	Data json.RawMessage `json:"data" binding:"required"`

	// InputFormat hints the format: "geojson", "wkt", "coordinates" or
	// "csv". Auto-detected when omitted.
	InputFormat string `json:"input_format"`

	// SourceCRS declares the source CRS (e.g. "EPSG:3857"). EPSG:4326 is
	// assumed when omitted.
	SourceCRS string `json:"source_crs"`

	// CSV-specific options.
	LatColumn      string `json:"lat_column"`
	LngColumn      string `json:"lng_column"`
	GeometryColumn string `json:"geometry_column"`
	Delimiter      string `json:"delimiter"`
}

// Options carries the parsing knobs down the dispatch chain.
type Options struct {
	FormatHint     string
	LatColumn      string
	LngColumn      string
	GeometryColumn string
	Delimiter      rune
}

func (r *Request) options() Options {
	opts := Options{
		FormatHint:     r.InputFormat,
		LatColumn:      r.LatColumn,
		LngColumn:      r.LngColumn,
		GeometryColumn: r.GeometryColumn,
		Delimiter:      ',',
	}
	if r.Delimiter != "" {
		opts.Delimiter = []rune(r.Delimiter)[0]
	}
	return opts
}

// Metadata describes a normalized FeatureCollection.
type Metadata struct {
	FeatureCount        int           `json:"feature_count"`
	GeometryTypes       []string      `json:"geometry_types"`
	Bounds              [2][2]float64 `json:"bounds"`
	CRS                 string        `json:"crs"`
	Properties          []string      `json:"properties"`
	Completeness        float64       `json:"completeness"`
	InputFormatDetected string        `json:"input_format_detected"`
}

// Response is clean, normalized GeoJSON with metadata.
type Response struct {
	Success  bool                       `json:"success"`
	GeoJSON  *geojson.FeatureCollection `json:"geojson"`
	Metadata Metadata                   `json:"metadata"`
}
