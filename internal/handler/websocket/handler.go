package websocket

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	httphandler "collaborative-editor/internal/handler/http"
	"collaborative-editor/internal/hub"
	"collaborative-editor/internal/service"
)

// WebSocketHandler upgrades authenticated requests into collaboration
// sessions attached to the hub.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	hub      *hub.Hub
	svc      *service.CollaborationService
}

// NewWebSocketHandler creates the handler.
func NewWebSocketHandler(h *hub.Hub, svc *service.CollaborationService) *WebSocketHandler {
	if h == nil {
		panic("Hub cannot be nil for WebSocketHandler")
	}
	if svc == nil {
		panic("CollaborationService cannot be nil for WebSocketHandler")
	}
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// TODO: restrict origins via config before exposing publicly.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		hub: h,
		svc: svc,
	}
}

// HandleConnection serves GET /ws/room/:roomId. The user joins the room
// first; a join rejection is reported over plain HTTP before any upgrade.
func (h *WebSocketHandler) HandleConnection(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}
	userName := c.GetString("user_name")
	roomID := c.Param("roomId")
	logCtx := logrus.WithFields(logrus.Fields{"user_id": userID, "room_id": roomID})

	session, err := h.svc.JoinRoom(c.Request.Context(), roomID, userID, userName)
	if err != nil {
		logCtx.WithError(err).Warn("WS Handler: Join rejected")
		httphandler.HandleServiceError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		logCtx.WithError(err).Error("WS Handler: Failed to upgrade connection")
		_ = h.svc.LeaveRoom(c.Request.Context(), session.ID)
		return
	}

	client := hub.NewClient(h.hub, conn, roomID, userID, session.ID)
	if !h.hub.QueueMessage(hub.HubMessage{Type: "register", Client: client, RoomID: roomID}) {
		logCtx.Error("WS Handler: Hub message channel full, failed to register client")
		_ = h.svc.LeaveRoom(c.Request.Context(), session.ID)
		client.CloseConn()
		return
	}
	client.Run()
	logCtx.Info("WS Handler: Client connected")
}
