package collab

import "errors"

// Request-scoped failures. All are recoverable; none are process-fatal.
// Only the transport layers translate these for callers.
var (
	// ErrCapacityExceeded means the global room limit was reached.
	ErrCapacityExceeded = errors.New("collab: room capacity exceeded")
	// ErrRoomFull means the per-room user limit was reached.
	ErrRoomFull = errors.New("collab: room is full")
	// ErrRoomNotFound means no room exists with the given id.
	ErrRoomNotFound = errors.New("collab: room not found")
	// ErrSessionNotFound means no active session exists with the given id.
	ErrSessionNotFound = errors.New("collab: session not found")
	// ErrDuplicateUser means the user already holds a session in the room.
	ErrDuplicateUser = errors.New("collab: user already in room")
	// ErrDuplicateRoom means a room with the same id already exists.
	ErrDuplicateRoom = errors.New("collab: room already exists")
	// ErrRateLimited means the operation was rejected before any state
	// mutation. Safe to retry after backoff.
	ErrRateLimited = errors.New("collab: rate limited")
	// ErrInvalidOperation means the operation carried a malformed range or an
	// offset inside a multi-byte rune. Rejected before mutation, never clamped.
	ErrInvalidOperation = errors.New("collab: invalid operation range")
)
