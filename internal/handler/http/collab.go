package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/service"
)

// CollabHandler exposes the collaboration service over REST. The websocket
// transport covers the interactive path; these endpoints serve room
// management, inspection and non-interactive clients.
type CollabHandler struct {
	svc *service.CollaborationService
}

// NewCollabHandler creates the handler.
func NewCollabHandler(svc *service.CollaborationService) *CollabHandler {
	if svc == nil {
		panic("CollaborationService cannot be nil for CollabHandler")
	}
	return &CollabHandler{svc: svc}
}

type createRoomRequest struct {
	Name string `json:"name" binding:"required"`
}

// CreateRoom handles POST /api/rooms.
func (h *CollabHandler) CreateRoom(c *gin.Context) {
	var req createRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	ownerID := c.GetString("user_id")

	roomID, err := h.svc.CreateRoom(c.Request.Context(), req.Name, ownerID)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusCreated, gin.H{"room_id": roomID})
}

// DeleteRoom handles DELETE /api/rooms/:roomId.
func (h *CollabHandler) DeleteRoom(c *gin.Context) {
	if err := h.svc.DeleteRoom(c.Request.Context(), c.Param("roomId")); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoom handles GET /api/rooms/:roomId.
func (h *CollabHandler) GetRoom(c *gin.Context) {
	room, err := h.svc.GetRoom(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, room)
}

type joinRoomRequest struct {
	Name string `json:"name"`
}

// JoinRoom handles POST /api/rooms/:roomId/join for non-websocket clients.
func (h *CollabHandler) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	_ = c.ShouldBindJSON(&req)
	userID := c.GetString("user_id")
	if req.Name == "" {
		req.Name = c.GetString("user_name")
	}

	session, err := h.svc.JoinRoom(c.Request.Context(), c.Param("roomId"), userID, req.Name)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, session)
}

// LeaveRoom handles DELETE /api/sessions/:sessionId.
func (h *CollabHandler) LeaveRoom(c *gin.Context) {
	if err := h.svc.LeaveRoom(c.Request.Context(), c.Param("sessionId")); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type applyOperationRequest struct {
	Type       domain.OperationType `json:"type" binding:"required"`
	Position   int                  `json:"position"`
	Start      int                  `json:"start"`
	End        int                  `json:"end"`
	Text       string               `json:"text"`
	Attributes map[string]string    `json:"attributes"`
}

// ApplyOperation handles POST /api/sessions/:sessionId/operations.
func (h *CollabHandler) ApplyOperation(c *gin.Context) {
	var req applyOperationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	state, err := h.svc.ApplyOperation(c.Request.Context(), c.Param("sessionId"), domain.DocumentOperation{
		Type:       req.Type,
		Position:   req.Position,
		Start:      req.Start,
		End:        req.End,
		Text:       req.Text,
		Attributes: req.Attributes,
	})
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, state)
}

type updatePresenceRequest struct {
	Cursor    *domain.CursorPosition `json:"cursor"`
	Selection *domain.SelectionRange `json:"selection"`
	Status    domain.UserStatus      `json:"status"`
}

// UpdatePresence handles POST /api/sessions/:sessionId/presence.
func (h *CollabHandler) UpdatePresence(c *gin.Context) {
	var req updatePresenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if req.Status == "" {
		req.Status = domain.StatusActive
	}

	if err := h.svc.UpdatePresence(c.Request.Context(), c.Param("sessionId"), req.Cursor, req.Selection, req.Status); err != nil {
		HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// GetRoomUsers handles GET /api/rooms/:roomId/users.
func (h *CollabHandler) GetRoomUsers(c *gin.Context) {
	users, err := h.svc.GetRoomUsers(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"users": users})
}

// GetDocument handles GET /api/rooms/:roomId/document.
func (h *CollabHandler) GetDocument(c *gin.Context) {
	state, err := h.svc.GetDocument(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, state)
}

// GetOperationLog handles GET /api/rooms/:roomId/operations.
func (h *CollabHandler) GetOperationLog(c *gin.Context) {
	log, err := h.svc.GetOperationLog(c.Request.Context(), c.Param("roomId"))
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	SuccessResponse(c, http.StatusOK, gin.H{"operations": log})
}

// GetStats handles GET /api/stats.
func (h *CollabHandler) GetStats(c *gin.Context) {
	SuccessResponse(c, http.StatusOK, h.svc.Stats(c.Request.Context()))
}
