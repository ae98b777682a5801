package normalize

import (
	"encoding/json"
	"math"
	"sort"

	"github.com/paulmach/orb/geojson"

	"github.com/spatix/spatix/pkg/geospatial"
)

// Guard enforces the size and shape guardrails on a collection before
// metadata extraction: a non-empty feature list within the feature and
// payload limits, yielding at least one coordinate pair.
func Guard(fc *geojson.FeatureCollection) error {
	if fc == nil || len(fc.Features) == 0 {
		return newError(CodeNoCoordinatesFound, "FeatureCollection must have at least 1 feature")
	}
	if len(fc.Features) > MaxFeatures {
		return newError(CodePayloadTooLarge, "maximum %d features per dataset", MaxFeatures)
	}

	raw, err := json.Marshal(fc)
	if err != nil {
		return wrapError(CodeInvalidGeoJSON, err, "collection is not serializable")
	}
	if len(raw) > MaxPayloadBytes {
		return newError(CodePayloadTooLarge, "dataset too large (%dMB); maximum is 50MB", len(raw)/(1024*1024))
	}

	if len(geospatial.CollectionCoordinates(fc)) == 0 {
		return newError(CodeNoCoordinatesFound, "no valid coordinates found in features")
	}
	return nil
}

// ExtractMetadata computes the descriptive metadata of a normalized
// collection. Callers run Guard first; ExtractMetadata itself never fails.
func ExtractMetadata(fc *geojson.FeatureCollection, detectedFormat string) Metadata {
	typeSet := map[string]bool{}
	propSet := map[string]bool{}

	for _, f := range fc.Features {
		if f.Geometry != nil {
			typeSet[f.Geometry.GeoJSONType()] = true
		}
		for k := range f.Properties {
			propSet[k] = true
		}
	}

	return Metadata{
		FeatureCount:        len(fc.Features),
		GeometryTypes:       sortedKeys(typeSet),
		Bounds:              geospatial.Bounds(fc),
		CRS:                 "EPSG:4326",
		Properties:          sortedKeys(propSet),
		Completeness:        Completeness(fc),
		InputFormatDetected: detectedFormat,
	}
}

// Completeness is the fraction of features where every property key seen
// anywhere in the dataset has a non-null value, rounded to 3 decimals. A
// dataset with no properties at all is fully complete. This is a
// data-quality signal, not a correctness check.
func Completeness(fc *geojson.FeatureCollection) float64 {
	if len(fc.Features) == 0 {
		return 1.0
	}

	union := map[string]bool{}
	for _, f := range fc.Features {
		for k := range f.Properties {
			union[k] = true
		}
	}
	if len(union) == 0 {
		return 1.0
	}

	complete := 0
	for _, f := range fc.Features {
		all := true
		for k := range union {
			if v, ok := f.Properties[k]; !ok || v == nil {
				all = false
				break
			}
		}
		if all {
			complete++
		}
	}

	return math.Round(float64(complete)/float64(len(fc.Features))*1000) / 1000
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
