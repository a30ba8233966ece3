package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/service"
)

// MetadataHandler handles catalog metadata endpoints.
type MetadataHandler struct {
	metadata *service.MetadataService
}

// NewMetadataHandler creates a new metadata handler.
// Parameters:
//   - metadata: metadata service instance.
// Returns:
//   - *MetadataHandler: initialized handler.
func NewMetadataHandler(metadata *service.MetadataService) *MetadataHandler {
	return &MetadataHandler{
		metadata: metadata,
	}
}

// Categories handles GET /api/v1/connections/:id/categories.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MetadataHandler) Categories(c *gin.Context) {
	h.serve(c, domain.CacheKindCategory)
}

// Brands handles GET /api/v1/connections/:id/brands.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *MetadataHandler) Brands(c *gin.Context) {
	h.serve(c, domain.CacheKindBrand)
}

func (h *MetadataHandler) serve(c *gin.Context, kind domain.CacheKind) {
	force := c.Query("force") == "true"

	items, err := h.metadata.Get(c.Request.Context(), c.Param("id"), kind, force)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error": "Failed to load catalog metadata: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
		"total": len(items),
	})
}
