package geospatial

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/twpayne/go-geos"
)

// Repairer fixes a topologically invalid geometry. Implementations return
// the input unchanged when it is already valid, and an error when the
// geometry cannot be constructed or repaired; callers decide what to do
// with failures.
type Repairer interface {
	Repair(geom orb.Geometry) (orb.Geometry, error)
}

// GEOSRepairer validates and repairs geometries through GEOS, round-tripping
// via GeoJSON. Safe for concurrent use: each call owns its GEOS objects.
type GEOSRepairer struct{}

// NewGEOSRepairer returns a GEOS-backed Repairer.
func NewGEOSRepairer() *GEOSRepairer {
	return &GEOSRepairer{}
}

// Repair checks validity and applies make-valid when needed. GEOS errors
// surface as panics in the binding, so they are recovered into errors here.
func (r *GEOSRepairer) Repair(geom orb.Geometry) (repaired orb.Geometry, err error) {
	if geom == nil {
		return nil, fmt.Errorf("nil geometry")
	}

	defer func() {
		if rec := recover(); rec != nil {
			repaired = nil
			err = fmt.Errorf("geometry repair panic: %v", rec)
		}
	}()

	raw, err := geojson.NewGeometry(geom).MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("encode geometry: %w", err)
	}

	g, err := geos.NewGeomFromGeoJSON(string(raw))
	if err != nil {
		return nil, fmt.Errorf("construct geometry: %w", err)
	}
	defer g.Destroy()

	if g.IsEmpty() {
		return nil, fmt.Errorf("empty geometry")
	}
	if g.IsValid() {
		return geom, nil
	}

	fixed := g.MakeValidWithParams(geos.MakeValidLinework, geos.MakeValidDiscardCollapsed)
	if fixed == nil {
		return nil, fmt.Errorf("make valid failed: %s", g.IsValidReason())
	}
	defer fixed.Destroy()

	out, err := geojson.UnmarshalGeometry([]byte(fixed.ToGeoJSON(-1)))
	if err != nil {
		return nil, fmt.Errorf("decode repaired geometry: %w", err)
	}

	return out.Geometry(), nil
}
