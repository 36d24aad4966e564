package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"collaborative-editor/internal/repository"
)

const defaultArchiveLimit = 100

// ArchiveHandler serves a room's durable operation archive. It reads straight
// from the repository; the route is registered only when archival is enabled.
type ArchiveHandler struct {
	repo repository.OperationLogRepository
}

// NewArchiveHandler creates the handler.
func NewArchiveHandler(repo repository.OperationLogRepository) *ArchiveHandler {
	if repo == nil {
		panic("OperationLogRepository cannot be nil for ArchiveHandler")
	}
	return &ArchiveHandler{repo: repo}
}

// GetArchive handles GET /api/rooms/:roomId/archive. Returns up to ?limit
// archived operations ordered by resulting version, plus the room's total
// archived count.
func (h *ArchiveHandler) GetArchive(c *gin.Context) {
	roomID := c.Param("roomId")

	limit := defaultArchiveLimit
	if v := c.Query("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			ErrorResponse(c, http.StatusBadRequest, "Invalid limit: must be a positive integer")
			return
		}
		limit = n
	}

	ops, err := h.repo.ListByRoom(c.Request.Context(), roomID, limit)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	total, err := h.repo.CountSince(c.Request.Context(), roomID, time.Time{})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{
		"operations": ops,
		"total":      total,
	})
}
