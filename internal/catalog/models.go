package catalog

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Sentinel errors surfaced by the catalog.
var (
	ErrNotFound       = errors.New("dataset not found")
	ErrInvalidBBox    = errors.New("invalid bounding box: west must be <= east and south must be <= north")
	ErrInvalidDataset = errors.New("invalid dataset")
)

// DatasetCategories is the fixed category vocabulary. Unknown categories
// fall back to "other".
var DatasetCategories = []string{
	"boundaries",
	"infrastructure",
	"environment",
	"demographics",
	"business",
	"transportation",
	"health",
	"education",
	"culture",
	"public-safety",
	"custom",
	"other",
}

// NormalizeCategory maps arbitrary input onto the category vocabulary.
func NormalizeCategory(category string) string {
	c := strings.ToLower(strings.TrimSpace(category))
	for _, known := range DatasetCategories {
		if c == known {
			return c
		}
	}
	return "other"
}

// Dataset is the catalog's unit of storage: a normalized FeatureCollection
// plus the derived metadata the spatial index queries against. Created once
// at ingestion; afterwards only counters and explicit metadata edits mutate
// it.
type Dataset struct {
	ID          string `db:"id" json:"id"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description" json:"description"`
	Category    string `db:"category" json:"category"`
	Tags        string `db:"tags" json:"-"`

	FeatureCount  int     `db:"feature_count" json:"feature_count"`
	GeometryTypes string  `db:"geometry_types" json:"-"`
	BBoxWest      float64 `db:"bbox_west" json:"-"`
	BBoxSouth     float64 `db:"bbox_south" json:"-"`
	BBoxEast      float64 `db:"bbox_east" json:"-"`
	BBoxNorth     float64 `db:"bbox_north" json:"-"`
	FileSizeBytes int64   `db:"file_size_bytes" json:"file_size_bytes"`
	Completeness  float64 `db:"completeness" json:"completeness"`
	SchemaDef     string  `db:"schema_def" json:"-"`

	Public          bool    `db:"public" json:"public"`
	ReputationScore float64 `db:"reputation_score" json:"reputation_score"`
	QueryCount      int64   `db:"query_count" json:"query_count"`
	UsedInMaps      int64   `db:"used_in_maps" json:"used_in_maps"`
	DownloadCount   int64   `db:"download_count" json:"download_count"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TagList splits the stored comma-joined tags.
func (d *Dataset) TagList() []string {
	return splitCommaList(d.Tags)
}

// GeometryTypeList splits the stored comma-joined geometry types.
func (d *Dataset) GeometryTypeList() []string {
	return splitCommaList(d.GeometryTypes)
}

// BBox returns the dataset's stored bounding box.
func (d *Dataset) BBox() BBox {
	return BBox{West: d.BBoxWest, South: d.BBoxSouth, East: d.BBoxEast, North: d.BBoxNorth}
}

func splitCommaList(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// BBox is an axis-aligned rectangle (west, south, east, north).
type BBox struct {
	West  float64 `json:"west"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	North float64 `json:"north"`
}

// Validate enforces the query-box invariant.
func (b BBox) Validate() error {
	if b.West > b.East || b.South > b.North {
		return ErrInvalidBBox
	}
	return nil
}

// SchemaField is an inferred property descriptor stored with the record.
type SchemaField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// CreateDatasetRequest is the ingestion payload.
type CreateDatasetRequest struct {
	Title       string          `json:"title" binding:"required"`
	Description string          `json:"description" binding:"required"`
	Category    string          `json:"category"`
	Tags        []string        `json:"tags"`
	Public      *bool           `json:"public"`
	Data        json.RawMessage `json:"data" binding:"required"`
}

// IntersectsQuery finds datasets whose bbox overlaps the given box.
type IntersectsQuery struct {
	West     float64 `json:"west" binding:"min=-180,max=180"`
	South    float64 `json:"south" binding:"min=-90,max=90"`
	East     float64 `json:"east" binding:"min=-180,max=180"`
	North    float64 `json:"north" binding:"min=-90,max=90"`
	Category string  `json:"category"`
	Limit    int     `json:"limit"`
}

// NearbyQuery finds datasets near a point, ranked by haversine distance.
type NearbyQuery struct {
	Lat      float64 `json:"lat" binding:"min=-90,max=90"`
	Lng      float64 `json:"lng" binding:"min=-180,max=180"`
	RadiusKM float64 `json:"radius_km"`
	Category string  `json:"category"`
	Limit    int     `json:"limit"`
}

// PointQuery finds datasets whose bbox contains a point.
type PointQuery struct {
	Lat      float64 `json:"lat" binding:"min=-90,max=90"`
	Lng      float64 `json:"lng" binding:"min=-180,max=180"`
	Category string  `json:"category"`
	Limit    int     `json:"limit"`
}

// SpatialResult is a dataset matching a spatial query. DistanceKM is only
// populated by nearby queries.
type SpatialResult struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Tags            []string `json:"tags"`
	FeatureCount    int      `json:"feature_count"`
	GeometryTypes   []string `json:"geometry_types"`
	BBox            BBox     `json:"bbox"`
	DistanceKM      *float64 `json:"distance_km,omitempty"`
	ReputationScore float64  `json:"reputation_score"`
}

// SpatialQueryResponse is the envelope for spatial query results.
type SpatialQueryResponse struct {
	Success     bool                   `json:"success"`
	Results     []SpatialResult        `json:"results"`
	Total       int                    `json:"total"`
	QueryType   string                 `json:"query_type"`
	QueryParams map[string]interface{} `json:"query_params"`
}

// ListFilters narrows dataset listing and keyword search.
type ListFilters struct {
	Category string
	Query    string
	Limit    int
	Offset   int
}

// IndexStats summarizes the state of the bbox index.
type IndexStats struct {
	TotalDatasets        int `json:"total_datasets"`
	SpatiallyIndexed     int `json:"spatially_indexed"`
	Categories           int `json:"categories"`
	GeometryTypeVariants int `json:"geometry_type_variants"`
}

func spatialResult(d *Dataset) SpatialResult {
	return SpatialResult{
		ID:              d.ID,
		Title:           d.Title,
		Description:     d.Description,
		Category:        d.Category,
		Tags:            d.TagList(),
		FeatureCount:    d.FeatureCount,
		GeometryTypes:   d.GeometryTypeList(),
		BBox:            d.BBox(),
		ReputationScore: d.ReputationScore,
	}
}
