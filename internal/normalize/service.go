package normalize

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spatix/spatix/internal/metrics"
	"github.com/spatix/spatix/pkg/geospatial"
)

// Service orchestrates the normalization pipeline: detect/parse, reproject,
// validate/repair, guard, extract metadata. Stateless and safe to share
// across requests.
type Service struct {
	repairer    geospatial.Repairer
	reprojector Reprojector
	logger      *zap.Logger
}

// NewService creates a new normalization service.
func NewService(repairer geospatial.Repairer, reprojector Reprojector, logger *zap.Logger) *Service {
	return &Service{
		repairer:    repairer,
		reprojector: reprojector,
		logger:      logger,
	}
}

// Normalize runs the full pipeline over a request and returns clean
// EPSG:4326 GeoJSON with metadata.
func (s *Service) Normalize(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	defer func() {
		metrics.NormalizeDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	}()

	if len(req.Data) > MaxPayloadBytes {
		return nil, newError(CodePayloadTooLarge,
			"payload too large (%dMB); maximum is 50MB", len(req.Data)/(1024*1024))
	}

	fc, detected, err := Normalize(req.Data, req.options())
	if err != nil {
		return nil, err
	}

	if crs := strings.TrimSpace(req.SourceCRS); crs != "" && !strings.EqualFold(crs, "EPSG:4326") {
		fc, err = s.reprojector.Reproject(fc, crs)
		if err != nil {
			s.logger.Warn("CRS reprojection failed",
				zap.String("source_crs", crs),
				zap.Error(err))
			return nil, err
		}
	}

	repaired := ValidateAndRepair(fc, s.repairer, s.logger)
	if repaired > 0 {
		metrics.GeometriesRepairedTotal.Add(float64(repaired))
	}
	sanitizeProperties(fc)

	if err := Guard(fc); err != nil {
		return nil, err
	}

	return &Response{
		Success:  true,
		GeoJSON:  fc,
		Metadata: ExtractMetadata(fc, detected),
	}, nil
}
