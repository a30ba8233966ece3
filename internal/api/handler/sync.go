package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/syncline/marketsync/internal/domain"
	"github.com/syncline/marketsync/internal/queue"
)

// SyncHandler handles sync job endpoints.
type SyncHandler struct {
	queue queue.Queue
}

// NewSyncHandler creates a new sync handler.
// Parameters:
//   - q: job queue instance.
// Returns:
//   - *SyncHandler: initialized handler.
func NewSyncHandler(q queue.Queue) *SyncHandler {
	return &SyncHandler{
		queue: q,
	}
}

// enqueueSyncRequest is the payload for POST /connections/:id/sync.
type enqueueSyncRequest struct {
	WorkspaceID string                    `json:"workspace_id" binding:"required"`
	UserID      string                    `json:"user_id"`
	Filters     domain.ProductSyncFilters `json:"filters"`
	Force       bool                      `json:"force"`
	Priority    int                       `json:"priority"`
}

// Enqueue handles POST /api/v1/connections/:id/sync.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) Enqueue(c *gin.Context) {
	var req enqueueSyncRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	jobID, err := h.queue.Enqueue(c.Request.Context(), queue.SyncRequest{
		WorkspaceID:       req.WorkspaceID,
		UserID:            req.UserID,
		StoreConnectionID: c.Param("id"),
		Filters:           req.Filters,
		Force:             req.Force,
	}, queue.EnqueueOptions{
		Priority: req.Priority,
	})
	if err != nil {
		if errors.Is(err, queue.ErrSyncInFlight) {
			c.JSON(http.StatusConflict, gin.H{
				"error": err.Error(),
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to enqueue sync: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"job_id": jobID,
		"status": string(domain.JobStatusQueued),
	})
}

// Status handles GET /api/v1/sync-jobs/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) Status(c *gin.Context) {
	view, err := h.queue.GetStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get job status: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, view)
}

// Cancel handles POST /api/v1/sync-jobs/:id/cancel.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *SyncHandler) Cancel(c *gin.Context) {
	if err := h.queue.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Job not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to cancel job: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "cancel_requested",
	})
}
