package catalog

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spatix/spatix/internal/normalize"
)

// Handler handles HTTP requests for the dataset catalog and spatial queries
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new catalog handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers catalog and spatial query routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	datasets := router.Group("/datasets")
	{
		datasets.POST("", h.createDataset)
		datasets.GET("", h.listDatasets)
		datasets.GET("/:id", h.getDataset)
		datasets.GET("/:id/data", h.getDatasetData)
		datasets.GET("/:id/preview", h.previewDataset)
		datasets.POST("/:id/usage", h.recordUsage)
		datasets.DELETE("/:id", h.deleteDataset)
	}

	spatial := router.Group("/spatial")
	{
		spatial.POST("/intersects", h.queryIntersects)
		spatial.POST("/nearby", h.queryNearby)
		spatial.POST("/contains", h.queryContains)
		spatial.GET("/stats", h.spatialStats)
	}
}

// =====================================================
// Dataset endpoints
// =====================================================

// createDataset handles POST /api/datasets
func (h *Handler) createDataset(c *gin.Context) {
	var req CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := h.service.CreateDataset(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err, "Failed to create dataset")
		return
	}

	c.JSON(http.StatusCreated, datasetResponse(dataset))
}

// listDatasets handles GET /api/datasets
func (h *Handler) listDatasets(c *gin.Context) {
	filters := &ListFilters{
		Category: c.Query("category"),
		Query:    c.Query("q"),
		Limit:    queryInt(c, "limit", 0),
		Offset:   queryInt(c, "offset", 0),
	}

	datasets, total, err := h.service.ListDatasets(c.Request.Context(), filters)
	if err != nil {
		h.writeError(c, err, "Failed to list datasets")
		return
	}

	results := make([]gin.H, 0, len(datasets))
	for _, d := range datasets {
		results = append(results, datasetResponse(d))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "datasets": results, "total": total})
}

// getDataset handles GET /api/datasets/:id
func (h *Handler) getDataset(c *gin.Context) {
	dataset, err := h.service.GetDataset(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get dataset")
		return
	}
	c.JSON(http.StatusOK, datasetResponse(dataset))
}

// getDatasetData handles GET /api/datasets/:id/data
func (h *Handler) getDatasetData(c *gin.Context) {
	data, err := h.service.GetDatasetData(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "Failed to get dataset data")
		return
	}
	c.Data(http.StatusOK, "application/geo+json", data)
}

// previewDataset handles GET /api/datasets/:id/preview
func (h *Handler) previewDataset(c *gin.Context) {
	fc, err := h.service.PreviewDataset(c.Request.Context(), c.Param("id"), queryInt(c, "limit", 10))
	if err != nil {
		h.writeError(c, err, "Failed to preview dataset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "geojson": fc, "feature_count": len(fc.Features)})
}

// recordUsage handles POST /api/datasets/:id/usage
func (h *Handler) recordUsage(c *gin.Context) {
	if err := h.service.RecordMapUsage(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to record usage")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// deleteDataset handles DELETE /api/datasets/:id
func (h *Handler) deleteDataset(c *gin.Context) {
	if err := h.service.DeleteDataset(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to delete dataset")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// =====================================================
// Spatial query endpoints
// =====================================================

// queryIntersects handles POST /api/spatial/intersects
func (h *Handler) queryIntersects(c *gin.Context) {
	var q IntersectsQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Intersects(c.Request.Context(), &q)
	if err != nil {
		h.writeError(c, err, "Intersects query failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// queryNearby handles POST /api/spatial/nearby
func (h *Handler) queryNearby(c *gin.Context) {
	var q NearbyQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Nearby(c.Request.Context(), &q)
	if err != nil {
		h.writeError(c, err, "Nearby query failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// queryContains handles POST /api/spatial/contains
func (h *Handler) queryContains(c *gin.Context) {
	var q PointQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Contains(c.Request.Context(), &q)
	if err != nil {
		h.writeError(c, err, "Contains query failed")
		return
	}
	c.JSON(http.StatusOK, resp)
}

// spatialStats handles GET /api/spatial/stats
func (h *Handler) spatialStats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "Failed to compute spatial stats")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"total_datasets":         stats.TotalDatasets,
		"spatially_indexed":      stats.SpatiallyIndexed,
		"categories":             stats.Categories,
		"geometry_type_variants": stats.GeometryTypeVariants,
		"index_type":             "bbox",
		"supported_queries":      []string{"intersects", "nearby", "contains"},
		"postgis_enabled":        false,
		"upgrade_path": gin.H{
			"current": "Bounding box intersection (B-tree index)",
			"next":    "PostGIS ST_Intersects / ST_DWithin with GiST index",
			"benefit": "True geometry intersection, polygon containment, distance queries",
		},
	})
}

// =====================================================
// Helpers
// =====================================================

func (h *Handler) writeError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "dataset not found"})
	case errors.Is(err, ErrInvalidBBox), errors.Is(err, ErrInvalidDataset):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		if nerr, ok := normalize.AsError(err); ok {
			c.JSON(nerr.HTTPStatus(), gin.H{"error": nerr.Message, "code": nerr.Code})
			return
		}
		h.logger.Error(logMsg, zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func datasetResponse(d *Dataset) gin.H {
	return gin.H{
		"id":               d.ID,
		"title":            d.Title,
		"description":      d.Description,
		"category":         d.Category,
		"tags":             d.TagList(),
		"feature_count":    d.FeatureCount,
		"geometry_types":   d.GeometryTypeList(),
		"bbox":             d.BBox(),
		"file_size_bytes":  d.FileSizeBytes,
		"completeness":     d.Completeness,
		"public":           d.Public,
		"reputation_score": d.ReputationScore,
		"usage_count":      d.QueryCount + d.UsedInMaps,
		"created_at":       d.CreatedAt,
	}
}

func queryInt(c *gin.Context, name string, fallback int) int {
	if raw := c.Query(name); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			return n
		}
	}
	return fallback
}
