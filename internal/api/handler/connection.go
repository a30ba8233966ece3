package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/service"
)

// ConnectionHandler handles store connection endpoints.
type ConnectionHandler struct {
	connections *service.ConnectionService
}

// NewConnectionHandler creates a new connection handler.
// Parameters:
//   - connections: connection service instance.
// Returns:
//   - *ConnectionHandler: initialized handler.
func NewConnectionHandler(connections *service.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{
		connections: connections,
	}
}

// testConnectionRequest is the payload for POST /connections/test.
type testConnectionRequest struct {
	MarketplaceType domain.MarketplaceType `json:"marketplace_type" binding:"required"`
	Credentials     domain.Credentials     `json:"credentials" binding:"required"`
}

// createConnectionRequest is the payload for POST /connections.
type createConnectionRequest struct {
	WorkspaceID     string                 `json:"workspace_id" binding:"required"`
	MarketplaceType domain.MarketplaceType `json:"marketplace_type" binding:"required"`
	Credentials     domain.Credentials     `json:"credentials" binding:"required"`
	DisplayName     string                 `json:"display_name"`
}

// Test handles POST /api/v1/connections/test.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ConnectionHandler) Test(c *gin.Context) {
	var req testConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	result, err := h.connections.Test(c.Request.Context(), req.MarketplaceType, req.Credentials)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Create handles POST /api/v1/connections.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ConnectionHandler) Create(c *gin.Context) {
	var req createConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	conn, err := h.connections.Connect(c.Request.Context(), req.WorkspaceID, req.MarketplaceType, req.Credentials, req.DisplayName)
	if err != nil {
		if errors.Is(err, service.ErrConnectionTestFailed) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to create connection: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, conn)
}

// List handles GET /api/v1/connections.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ConnectionHandler) List(c *gin.Context) {
	workspaceID := c.Query("workspace_id")
	if workspaceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Query parameter 'workspace_id' is required",
		})
		return
	}

	conns, err := h.connections.List(c.Request.Context(), workspaceID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list connections: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"connections": conns,
		"total":       len(conns),
	})
}

// Get handles GET /api/v1/connections/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ConnectionHandler) Get(c *gin.Context) {
	conn, err := h.connections.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Connection not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get connection: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, conn)
}

// Delete handles DELETE /api/v1/connections/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ConnectionHandler) Delete(c *gin.Context) {
	purge := c.Query("purge_products") == "true"

	if err := h.connections.Disconnect(c.Request.Context(), c.Param("id"), purge); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Connection not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to disconnect: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "disconnected",
	})
}
