package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"go.uber.org/zap"

	"github.com/spatix/spatix/internal/metrics"
	"github.com/spatix/spatix/internal/normalize"
	"github.com/spatix/spatix/pkg/geospatial"
)

const (
	defaultQueryLimit = 50
	maxQueryLimit     = 200
	defaultListLimit  = 20
	maxListLimit      = 100
	maxPreviewSize    = 100
	schemaSampleSize  = 20
)

// Service provides business logic for the dataset catalog and its
// bbox-approximate spatial index.
type Service struct {
	repo   Repository
	cache  *DataCache
	logger *zap.Logger
}

// NewService creates a new catalog service
func NewService(repo Repository, cache *DataCache, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger,
	}
}

// =====================================================
// Ingestion and retrieval
// =====================================================

// CreateDataset validates a GeoJSON FeatureCollection, derives its spatial
// metadata and persists the record. The record is never mutated afterwards
// except for counter increments.
func (s *Service) CreateDataset(ctx context.Context, req *CreateDatasetRequest) (*Dataset, error) {
	if l := len(strings.TrimSpace(req.Title)); l < 3 || l > 200 {
		return nil, fmt.Errorf("%w: title must be 3-200 characters", ErrInvalidDataset)
	}
	if l := len(strings.TrimSpace(req.Description)); l < 10 || l > 2000 {
		return nil, fmt.Errorf("%w: description must be 10-2000 characters", ErrInvalidDataset)
	}

	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(req.Data, &probe); err != nil || probe.Type != "FeatureCollection" {
		return nil, fmt.Errorf("%w: data must be a GeoJSON FeatureCollection", ErrInvalidDataset)
	}

	fc, err := geojson.UnmarshalFeatureCollection(req.Data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDataset, err)
	}
	if err := normalize.Guard(fc); err != nil {
		return nil, err
	}

	data, err := json.Marshal(fc)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize dataset: %w", err)
	}

	meta := normalize.ExtractMetadata(fc, normalize.FormatGeoJSON)
	schema, err := json.Marshal(inferSchema(fc))
	if err != nil {
		schema = []byte("[]")
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	dataset := &Dataset{
		ID:            "ds_" + uuid.NewString(),
		Title:         strings.TrimSpace(req.Title),
		Description:   strings.TrimSpace(req.Description),
		Category:      NormalizeCategory(req.Category),
		Tags:          strings.Join(req.Tags, ","),
		FeatureCount:  meta.FeatureCount,
		GeometryTypes: strings.Join(meta.GeometryTypes, ","),
		BBoxWest:      meta.Bounds[0][0],
		BBoxSouth:     meta.Bounds[0][1],
		BBoxEast:      meta.Bounds[1][0],
		BBoxNorth:     meta.Bounds[1][1],
		FileSizeBytes: int64(len(data)),
		Completeness:  meta.Completeness,
		SchemaDef:     string(schema),
		Public:        public,
		CreatedAt:     time.Now().UTC(),
	}

	if err := s.repo.CreateDataset(ctx, dataset, data); err != nil {
		return nil, err
	}

	s.logger.Info("Dataset created",
		zap.String("id", dataset.ID),
		zap.String("category", dataset.Category),
		zap.Int("feature_count", dataset.FeatureCount))

	return dataset, nil
}

// GetDataset returns a dataset's metadata record.
func (s *Service) GetDataset(ctx context.Context, id string) (*Dataset, error) {
	return s.repo.GetDataset(ctx, id)
}

// GetDatasetData returns the full GeoJSON body and bumps the query counter.
func (s *Service) GetDatasetData(ctx context.Context, id string) ([]byte, error) {
	if data := s.cache.Get(ctx, id); data != nil {
		s.countQuery(ctx, id)
		return data, nil
	}

	data, err := s.repo.GetDatasetData(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, id, data)
	s.countQuery(ctx, id)
	return data, nil
}

// PreviewDataset returns the first n features of a dataset.
func (s *Service) PreviewDataset(ctx context.Context, id string, n int) (*geojson.FeatureCollection, error) {
	if n < 1 {
		n = 10
	}
	if n > maxPreviewSize {
		n = maxPreviewSize
	}

	data, err := s.repo.GetDatasetData(ctx, id)
	if err != nil {
		return nil, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("stored dataset is not valid GeoJSON: %w", err)
	}
	if len(fc.Features) > n {
		fc.Features = fc.Features[:n]
	}
	return fc, nil
}

// ListDatasets lists public datasets with optional category and keyword
// filtering, ordered by reputation then usage.
func (s *Service) ListDatasets(ctx context.Context, filters *ListFilters) ([]*Dataset, int, error) {
	if filters.Limit < 1 {
		filters.Limit = defaultListLimit
	}
	if filters.Limit > maxListLimit {
		filters.Limit = maxListLimit
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	if filters.Category != "" {
		filters.Category = NormalizeCategory(filters.Category)
	}
	return s.repo.ListDatasets(ctx, filters)
}

// DeleteDataset removes a dataset and its cached body.
func (s *Service) DeleteDataset(ctx context.Context, id string) error {
	if err := s.repo.DeleteDataset(ctx, id); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, id)
	return nil
}

// RecordMapUsage bumps the used_in_maps counter.
func (s *Service) RecordMapUsage(ctx context.Context, id string) error {
	return s.repo.IncrementMapUsage(ctx, id)
}

func (s *Service) countQuery(ctx context.Context, id string) {
	if err := s.repo.IncrementQueryCount(ctx, id); err != nil {
		// A lost increment degrades a popularity metric, not correctness.
		s.logger.Warn("Failed to increment query count", zap.String("id", id), zap.Error(err))
	}
}

// =====================================================
// Spatial queries
// =====================================================

// Intersects finds datasets whose stored bbox overlaps the query box.
// Bbox overlap reports false positives for non-rectangular geometries; that
// is the accepted approximation until a real geometric index lands.
func (s *Service) Intersects(ctx context.Context, q *IntersectsQuery) (*SpatialQueryResponse, error) {
	bbox := BBox{West: q.West, South: q.South, East: q.East, North: q.North}
	if err := bbox.Validate(); err != nil {
		return nil, err
	}

	datasets, err := s.queryBBox(ctx, "intersects", bbox, q.Category, q.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]SpatialResult, 0, len(datasets))
	for _, d := range datasets {
		results = append(results, spatialResult(d))
	}

	return &SpatialQueryResponse{
		Success:   true,
		Results:   results,
		Total:     len(results),
		QueryType: "intersects",
		QueryParams: map[string]interface{}{
			"bbox":     []float64{q.West, q.South, q.East, q.North},
			"category": q.Category,
		},
	}, nil
}

// Nearby selects candidates through the radius-approximating bbox, then
// ranks them by true haversine distance to the query point. Candidates
// outside the true radius but inside the corrected bbox are returned,
// sorted by distance.
func (s *Service) Nearby(ctx context.Context, q *NearbyQuery) (*SpatialQueryResponse, error) {
	radius := q.RadiusKM
	if radius <= 0 {
		radius = 50
	}

	west, south, east, north := geospatial.BoundForRadius(q.Lat, q.Lng, radius)
	bbox := BBox{West: west, South: south, East: east, North: north}

	datasets, err := s.queryBBox(ctx, "nearby", bbox, q.Category, q.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]SpatialResult, 0, len(datasets))
	for _, d := range datasets {
		centerLng := (d.BBoxWest + d.BBoxEast) / 2
		centerLat := (d.BBoxSouth + d.BBoxNorth) / 2
		distKM := geospatial.Haversine(q.Lat, q.Lng, centerLat, centerLng) / 1000
		distKM = math.Round(distKM*100) / 100

		r := spatialResult(d)
		r.DistanceKM = &distKM
		results = append(results, r)
	}

	sort.SliceStable(results, func(i, j int) bool {
		if *results[i].DistanceKM != *results[j].DistanceKM {
			return *results[i].DistanceKM < *results[j].DistanceKM
		}
		return results[i].ReputationScore > results[j].ReputationScore
	})

	return &SpatialQueryResponse{
		Success:   true,
		Results:   results,
		Total:     len(results),
		QueryType: "nearby",
		QueryParams: map[string]interface{}{
			"center":    []float64{q.Lng, q.Lat},
			"radius_km": radius,
			"category":  q.Category,
		},
	}, nil
}

// Contains is Intersects specialized to a zero-area box at the point. It
// only confirms the point lies inside the dataset's bbox, not inside its
// actual geometry.
func (s *Service) Contains(ctx context.Context, q *PointQuery) (*SpatialQueryResponse, error) {
	bbox := BBox{West: q.Lng, South: q.Lat, East: q.Lng, North: q.Lat}

	datasets, err := s.queryBBox(ctx, "contains", bbox, q.Category, q.Limit)
	if err != nil {
		return nil, err
	}

	results := make([]SpatialResult, 0, len(datasets))
	for _, d := range datasets {
		results = append(results, spatialResult(d))
	}

	return &SpatialQueryResponse{
		Success:   true,
		Results:   results,
		Total:     len(results),
		QueryType: "contains",
		QueryParams: map[string]interface{}{
			"point":    []float64{q.Lng, q.Lat},
			"category": q.Category,
		},
	}, nil
}

func (s *Service) queryBBox(ctx context.Context, queryType string, bbox BBox, category string, limit int) ([]*Dataset, error) {
	if limit < 1 {
		limit = defaultQueryLimit
	}
	if limit > maxQueryLimit {
		limit = maxQueryLimit
	}
	if category != "" {
		category = NormalizeCategory(category)
	}

	start := time.Now()
	metrics.SpatialQueriesTotal.WithLabelValues(queryType).Inc()
	datasets, err := s.repo.QueryIntersects(ctx, bbox, category, limit)
	metrics.SpatialQueryDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	return datasets, err
}

// Stats reports the state of the bbox index.
func (s *Service) Stats(ctx context.Context) (*IndexStats, error) {
	stats, err := s.repo.Stats(ctx)
	if err != nil {
		return nil, err
	}
	metrics.DatasetsIndexed.Set(float64(stats.SpatiallyIndexed))
	return stats, nil
}

// inferSchema samples feature properties and reports a coarse type per
// property name.
func inferSchema(fc *geojson.FeatureCollection) []SchemaField {
	sample := len(fc.Features)
	if sample > schemaSampleSize {
		sample = schemaSampleSize
	}

	seen := map[string]string{}
	order := []string{}
	for _, f := range fc.Features[:sample] {
		for k, v := range f.Properties {
			if _, ok := seen[k]; ok || v == nil {
				continue
			}
			switch n := v.(type) {
			case bool:
				seen[k] = "boolean"
			case float64:
				if n == math.Trunc(n) {
					seen[k] = "integer"
				} else {
					seen[k] = "number"
				}
			case int, int64:
				seen[k] = "integer"
			default:
				seen[k] = "string"
			}
			order = append(order, k)
		}
	}

	sort.Strings(order)
	fields := make([]SchemaField, 0, len(order))
	for _, k := range order {
		fields = append(fields, SchemaField{Name: k, Type: seen[k]})
	}
	return fields
}
