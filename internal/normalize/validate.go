package normalize

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/spatix/spatix/pkg/geospatial"
)

// ValidateAndRepair runs the repairer over every feature geometry and folds
// the per-feature results with a keep-original-on-error policy. The
// collection keeps its cardinality, features are never removed or merged,
// and no failure here aborts the batch. Returns the number of geometries
// that were replaced with a repaired version.
func ValidateAndRepair(fc *geojson.FeatureCollection, repairer geospatial.Repairer, logger *zap.Logger) int {
	if fc == nil || repairer == nil {
		return 0
	}

	repaired := 0
	for i, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}

		fixed, err := repairer.Repair(f.Geometry)
		if err != nil {
			// Bad input degrades into a stored-as-is geometry.
			if logger != nil {
				logger.Debug("Keeping unrepaired geometry",
					zap.Int("feature", i),
					zap.Error(err))
			}
			continue
		}
		if fixed == nil || orb.Equal(f.Geometry, fixed) {
			continue
		}
		f.Geometry = fixed
		repaired++
	}

	if repaired > 0 && logger != nil {
		logger.Info("Repaired invalid geometries", zap.Int("count", repaired))
	}
	return repaired
}
