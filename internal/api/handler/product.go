package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/syncline/marketsync/internal/repository"
)

// ProductHandler handles synced product endpoints.
type ProductHandler struct {
	products *repository.ProductRepository
}

// NewProductHandler creates a new product handler.
// Parameters:
//   - products: product repository instance.
// Returns:
//   - *ProductHandler: initialized handler.
func NewProductHandler(products *repository.ProductRepository) *ProductHandler {
	return &ProductHandler{
		products: products,
	}
}

// List handles GET /api/v1/connections/:id/products.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ProductHandler) List(c *gin.Context) {
	connectionID := c.Param("id")

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	offset := 0
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	products, err := h.products.ListByConnection(c.Request.Context(), connectionID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list products: " + err.Error(),
		})
		return
	}

	total, err := h.products.CountByConnection(c.Request.Context(), connectionID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to count products: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"products": products,
		"total":    total,
		"limit":    limit,
		"offset":   offset,
	})
}
