package tasks

import (
	"encoding/json"

	"collaborative-editor/internal/domain"
)

const (
	// TypeOperationArchive persists one applied operation to durable storage.
	TypeOperationArchive = "oplog:archive"
)

// OperationArchivePayload carries one applied operation to the worker.
type OperationArchivePayload struct {
	RoomID string                   `json:"room_id"`
	Entry  domain.OperationLogEntry `json:"entry"`
}

// NewOperationArchiveTask serializes the payload for an archive task.
func NewOperationArchiveTask(roomID string, entry domain.OperationLogEntry) ([]byte, error) {
	return json.Marshal(OperationArchivePayload{RoomID: roomID, Entry: entry})
}
