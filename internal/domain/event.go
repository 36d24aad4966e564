package domain

// EventType tags the RoomEvent union.
type EventType string

const (
	EventUserJoined     EventType = "user_joined"
	EventUserLeft       EventType = "user_left"
	EventPresence       EventType = "presence"
	EventDocumentUpdate EventType = "document_update"
	EventDocumentSync   EventType = "document_sync"
	EventChat           EventType = "chat"
	EventError          EventType = "error"
)

// RoomEvent is the payload fanned out to every subscriber of a room. Data
// holds the payload struct matching Type.
type RoomEvent struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"room_id"`
	Data   any       `json:"data,omitempty"`
}

type UserJoinedPayload struct {
	User UserSession `json:"user"`
}

type UserLeftPayload struct {
	UserID string `json:"user_id"`
}

type PresencePayload struct {
	Update PresenceUpdate `json:"update"`
}

type DocumentUpdatePayload struct {
	Operation DocumentOperation `json:"operation"`
}

type DocumentSyncPayload struct {
	State DocumentState `json:"state"`
}

type ChatPayload struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func NewUserJoined(roomID string, user UserSession) RoomEvent {
	return RoomEvent{Type: EventUserJoined, RoomID: roomID, Data: UserJoinedPayload{User: user}}
}

func NewUserLeft(roomID, userID string) RoomEvent {
	return RoomEvent{Type: EventUserLeft, RoomID: roomID, Data: UserLeftPayload{UserID: userID}}
}

func NewPresence(update PresenceUpdate) RoomEvent {
	return RoomEvent{Type: EventPresence, RoomID: update.RoomID, Data: PresencePayload{Update: update}}
}

func NewDocumentUpdate(roomID string, op DocumentOperation) RoomEvent {
	return RoomEvent{Type: EventDocumentUpdate, RoomID: roomID, Data: DocumentUpdatePayload{Operation: op}}
}

func NewDocumentSync(roomID string, state DocumentState) RoomEvent {
	return RoomEvent{Type: EventDocumentSync, RoomID: roomID, Data: DocumentSyncPayload{State: state}}
}

func NewChat(roomID, userID, message string) RoomEvent {
	return RoomEvent{Type: EventChat, RoomID: roomID, Data: ChatPayload{UserID: userID, Message: message}}
}

func NewErrorEvent(roomID string, code int, message string) RoomEvent {
	return RoomEvent{Type: EventError, RoomID: roomID, Data: ErrorPayload{Code: code, Message: message}}
}
