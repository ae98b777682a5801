package normalize

import (
	"strings"

	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/project"
)

// Reprojector transforms a FeatureCollection from a declared source CRS to
// EPSG:4326. The normalization core only defines this contract; the math
// belongs to the geodesy library behind the implementation.
type Reprojector interface {
	Reproject(fc *geojson.FeatureCollection, sourceCRS string) (*geojson.FeatureCollection, error)
}

// MercatorReprojector reprojects web-Mercator input to WGS84 via
// orb/project. Other source systems are rejected.
type MercatorReprojector struct{}

// NewMercatorReprojector returns the orb-backed Reprojector.
func NewMercatorReprojector() *MercatorReprojector {
	return &MercatorReprojector{}
}

// Reproject converts every feature geometry in place to EPSG:4326.
func (r *MercatorReprojector) Reproject(fc *geojson.FeatureCollection, sourceCRS string) (*geojson.FeatureCollection, error) {
	crs := strings.ToUpper(strings.TrimSpace(sourceCRS))

	switch crs {
	case "", "EPSG:4326", "CRS84", "OGC:CRS84", "WGS84":
		return fc, nil
	case "EPSG:3857", "EPSG:900913", "EPSG:102100":
		for _, f := range fc.Features {
			if f == nil || f.Geometry == nil {
				continue
			}
			f.Geometry = project.Geometry(f.Geometry, project.Mercator.ToWGS84)
		}
		return fc, nil
	default:
		return nil, newError(CodeReprojectionFailed,
			"failed to reproject from %s to EPSG:4326: unsupported source CRS", sourceCRS)
	}
}
