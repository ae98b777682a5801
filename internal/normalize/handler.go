package normalize

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/spatix/spatix/internal/metrics"
)

// Handler handles HTTP requests for data normalization
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates a new normalization handler
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers normalization routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	router.POST("/normalize", h.normalize)
}

// normalize handles POST /api/normalize
func (h *Handler) normalize(c *gin.Context) {
	metrics.NormalizeRequestsTotal.Inc()

	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.NormalizeFailuresTotal.WithLabelValues(string(CodeUnparsableInput)).Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.service.Normalize(c.Request.Context(), &req)
	if err != nil {
		if nerr, ok := AsError(err); ok {
			metrics.NormalizeFailuresTotal.WithLabelValues(string(nerr.Code)).Inc()
			c.JSON(nerr.HTTPStatus(), gin.H{"error": nerr.Message, "code": nerr.Code})
			return
		}
		h.logger.Error("Normalization failed", zap.Error(err))
		metrics.NormalizeFailuresTotal.WithLabelValues("internal").Inc()
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to normalize data"})
		return
	}

	c.JSON(http.StatusOK, resp)
}
