package domain

import "time"

// UserStatus describes what a connected user is currently doing.
type UserStatus string

const (
	StatusActive  UserStatus = "active"
	StatusIdle    UserStatus = "idle"
	StatusAway    UserStatus = "away"
	StatusTyping  UserStatus = "typing"
	StatusViewing UserStatus = "viewing"
)

// CursorPosition is a zero-based line/column pair inside the shared document.
type CursorPosition struct {
	Line   uint32 `json:"line"`
	Column uint32 `json:"column"`
}

// SelectionRange is the span between two cursor positions.
type SelectionRange struct {
	Start CursorPosition `json:"start"`
	End   CursorPosition `json:"end"`
}

// UserSession is one connected client's membership in a room.
// A (room_id, user_id) pair maps to at most one active session.
type UserSession struct {
	ID           string          `json:"id"`
	UserID       string          `json:"user_id"`
	RoomID       string          `json:"room_id"`
	Name         string          `json:"name"`
	Color        string          `json:"color"`
	ConnectedAt  time.Time       `json:"connected_at"`
	LastActivity time.Time       `json:"last_activity"`
	Cursor       *CursorPosition `json:"cursor,omitempty"`
	Selection    *SelectionRange `json:"selection,omitempty"`
	Status       UserStatus      `json:"status"`
}

// PresenceUpdate is an ephemeral cursor/selection/status snapshot.
// It never mutates document state.
type PresenceUpdate struct {
	UserID    string          `json:"user_id"`
	RoomID    string          `json:"room_id"`
	Cursor    *CursorPosition `json:"cursor,omitempty"`
	Selection *SelectionRange `json:"selection,omitempty"`
	Status    UserStatus      `json:"status"`
	Timestamp time.Time       `json:"timestamp"`
}
