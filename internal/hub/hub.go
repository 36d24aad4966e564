package hub

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/collab"
	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/service"
)

// HubMessage is the single message type flowing through the hub's channel.
// Type selects the action: register, unregister, frame, broadcast.
type HubMessage struct {
	Type    string
	Client  *Client
	RoomID  string
	RawData []byte
}

// Hub bridges websocket clients to the collaboration service. All client
// bookkeeping happens inside Run's single goroutine, so the maps carry no
// lock. Room event streams are forwarded back through the same channel as
// broadcast messages.
type Hub struct {
	svc         *service.CollaborationService
	messageChan chan HubMessage

	// Owned by the Run goroutine.
	rooms   map[string]map[*Client]struct{}
	streams map[string]*collab.EventStream

	stopOnce sync.Once
	stopChan chan struct{}
}

// NewHub creates a hub serving the given collaboration service.
func NewHub(svc *service.CollaborationService) *Hub {
	if svc == nil {
		panic("CollaborationService cannot be nil for Hub")
	}
	return &Hub{
		svc:         svc,
		messageChan: make(chan HubMessage, 256),
		rooms:       make(map[string]map[*Client]struct{}),
		streams:     make(map[string]*collab.EventStream),
		stopChan:    make(chan struct{}),
	}
}

// QueueMessage offers a message to the hub without blocking. Returns false
// when the hub is saturated and the message was dropped.
func (h *Hub) QueueMessage(msg HubMessage) bool {
	select {
	case h.messageChan <- msg:
		return true
	default:
		return false
	}
}

// Run processes hub messages until StopAllSubscriptions is called. It must
// run in its own goroutine.
func (h *Hub) Run() {
	logrus.Info("Hub started")
	for {
		select {
		case msg := <-h.messageChan:
			switch msg.Type {
			case "register":
				h.register(msg.Client)
			case "unregister":
				h.unregister(msg.Client)
			case "frame":
				h.handleFrame(msg.Client, msg.RawData)
			case "broadcast":
				h.broadcast(msg.RoomID, msg.RawData)
			default:
				logrus.WithField("type", msg.Type).Warn("Hub received unknown message type")
			}
		case <-h.stopChan:
			for roomID, stream := range h.streams {
				stream.Close()
				delete(h.streams, roomID)
			}
			for _, clients := range h.rooms {
				for c := range clients {
					close(c.send)
				}
			}
			logrus.Info("Hub stopped")
			return
		}
	}
}

// StopAllSubscriptions shuts the hub down: room streams are detached and
// client send channels closed. Safe to call more than once.
func (h *Hub) StopAllSubscriptions() {
	h.stopOnce.Do(func() { close(h.stopChan) })
}

func (h *Hub) register(c *Client) {
	clients, ok := h.rooms[c.roomID]
	if !ok {
		stream, err := h.svc.Subscribe(context.Background(), c.roomID)
		if err != nil {
			logrus.WithError(err).WithField("room_id", c.roomID).Warn("Failed to subscribe room stream")
			close(c.send)
			c.CloseConn()
			return
		}
		clients = make(map[*Client]struct{})
		h.rooms[c.roomID] = clients
		h.streams[c.roomID] = stream
		go h.forward(c.roomID, stream)
	}
	clients[c] = struct{}{}

	// The new client starts from the current document, not from the event
	// backlog.
	if state, err := h.svc.GetDocument(context.Background(), c.roomID); err == nil {
		h.sendTo(c, domain.NewDocumentSync(c.roomID, state))
	}
	logrus.WithFields(logrus.Fields{
		"user_id": c.userID,
		"room_id": c.roomID,
	}).Info("Client registered")
}

func (h *Hub) unregister(c *Client) {
	clients, ok := h.rooms[c.roomID]
	if !ok {
		return
	}
	if _, ok := clients[c]; !ok {
		return
	}
	delete(clients, c)
	close(c.send)

	if err := h.svc.LeaveRoom(context.Background(), c.sessionID); err != nil {
		// The session may already be gone: reaped, or the room deleted.
		logrus.WithError(err).WithFields(logrus.Fields{
			"user_id": c.userID,
			"room_id": c.roomID,
		}).Debug("Leave on unregister failed")
	}

	if len(clients) == 0 {
		delete(h.rooms, c.roomID)
		if stream, ok := h.streams[c.roomID]; ok {
			stream.Close()
			delete(h.streams, c.roomID)
		}
	}
	logrus.WithFields(logrus.Fields{
		"user_id": c.userID,
		"room_id": c.roomID,
	}).Info("Client unregistered")
}

// forward pumps one room's event stream back into the hub channel. It exits
// when the stream closes, either on unsubscribe or room deletion.
func (h *Hub) forward(roomID string, stream *collab.EventStream) {
	for ev := range stream.Events() {
		data, err := json.Marshal(ev)
		if err != nil {
			logrus.WithError(err).WithField("room_id", roomID).Error("Failed to marshal room event")
			continue
		}
		if !h.QueueMessage(HubMessage{Type: "broadcast", RoomID: roomID, RawData: data}) {
			logrus.WithField("room_id", roomID).Warn("Hub channel full, dropping room event")
		}
	}
	logrus.WithField("room_id", roomID).Debug("Room event forwarder exited")
}

func (h *Hub) broadcast(roomID string, data []byte) {
	for c := range h.rooms[roomID] {
		select {
		case c.send <- data:
		default:
			logrus.WithFields(logrus.Fields{
				"user_id": c.userID,
				"room_id": roomID,
			}).Warn("Client send buffer full, dropping event")
		}
	}
}

// clientFrame is the inbound message format.
type clientFrame struct {
	Type       string                 `json:"type"`
	OpType     domain.OperationType   `json:"op_type,omitempty"`
	Position   int                    `json:"position,omitempty"`
	Start      int                    `json:"start,omitempty"`
	End        int                    `json:"end,omitempty"`
	Text       string                 `json:"text,omitempty"`
	Attributes map[string]string      `json:"attributes,omitempty"`
	Cursor     *domain.CursorPosition `json:"cursor,omitempty"`
	Selection  *domain.SelectionRange `json:"selection,omitempty"`
	Status     domain.UserStatus      `json:"status,omitempty"`
	Message    string                 `json:"message,omitempty"`
}

func (h *Hub) handleFrame(c *Client, raw []byte) {
	var frame clientFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		h.sendTo(c, domain.NewErrorEvent(c.roomID, http.StatusBadRequest, "malformed message"))
		return
	}

	ctx := context.Background()
	switch frame.Type {
	case "operation":
		op := domain.DocumentOperation{
			Type:       frame.OpType,
			Position:   frame.Position,
			Start:      frame.Start,
			End:        frame.End,
			Text:       frame.Text,
			Attributes: frame.Attributes,
		}
		if _, err := h.svc.ApplyOperation(ctx, c.sessionID, op); err != nil {
			h.sendError(c, err)
		}

	case "presence":
		status := frame.Status
		if status == "" {
			status = domain.StatusActive
		}
		if err := h.svc.UpdatePresence(ctx, c.sessionID, frame.Cursor, frame.Selection, status); err != nil {
			h.sendError(c, err)
		}

	case "chat":
		if err := h.svc.SendChat(ctx, c.sessionID, frame.Message); err != nil {
			h.sendError(c, err)
		}

	case "sync":
		state, err := h.svc.GetDocument(ctx, c.roomID)
		if err != nil {
			h.sendError(c, err)
			return
		}
		_ = h.svc.TouchSession(ctx, c.sessionID)
		h.sendTo(c, domain.NewDocumentSync(c.roomID, state))

	case "heartbeat":
		if err := h.svc.TouchSession(ctx, c.sessionID); err != nil {
			h.sendError(c, err)
		}

	default:
		h.sendTo(c, domain.NewErrorEvent(c.roomID, http.StatusBadRequest, "unknown message type: "+frame.Type))
	}
}

// sendError reports a per-client failure with the same status codes the HTTP
// surface uses.
func (h *Hub) sendError(c *Client, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, collab.ErrRoomNotFound), errors.Is(err, collab.ErrSessionNotFound):
		code = http.StatusNotFound
	case errors.Is(err, collab.ErrRateLimited), errors.Is(err, collab.ErrRoomFull), errors.Is(err, collab.ErrCapacityExceeded):
		code = http.StatusTooManyRequests
	case errors.Is(err, collab.ErrInvalidOperation), errors.Is(err, service.ErrInvalidInput):
		code = http.StatusBadRequest
	}
	h.sendTo(c, domain.NewErrorEvent(c.roomID, code, err.Error()))
}

// sendTo delivers one event to a single client, dropping it if the client's
// buffer is full.
func (h *Hub) sendTo(c *Client, ev domain.RoomEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		logrus.WithError(err).Error("Failed to marshal direct event")
		return
	}
	select {
	case c.send <- data:
	default:
		logrus.WithFields(logrus.Fields{
			"user_id": c.userID,
			"room_id": c.roomID,
		}).Warn("Client send buffer full, dropping direct event")
	}
}
