package domain

import (
	"encoding/json"
	"time"
)

// ArchivedOperation is the persisted form of an applied document operation.
// The full operation is stored as JSON so the schema does not chase the
// operation shape.
type ArchivedOperation struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	RoomID           string    `gorm:"size:64;index:idx_room_applied" json:"room_id"`
	OperationID      string    `gorm:"size:64" json:"operation_id"`
	UserID           string    `gorm:"size:191;index" json:"user_id"`
	Type             string    `gorm:"size:16" json:"type"`
	ResultingVersion uint64    `json:"resulting_version"`
	Payload          string    `gorm:"type:text" json:"payload"`
	AppliedAt        time.Time `gorm:"index:idx_room_applied" json:"applied_at"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewArchivedOperation converts a log entry into its persisted form.
func NewArchivedOperation(roomID string, entry OperationLogEntry) (ArchivedOperation, error) {
	payload, err := json.Marshal(entry.Operation)
	if err != nil {
		return ArchivedOperation{}, err
	}
	return ArchivedOperation{
		RoomID:           roomID,
		OperationID:      entry.Operation.ID,
		UserID:           entry.Operation.UserID,
		Type:             string(entry.Operation.Type),
		ResultingVersion: entry.ResultingVersion,
		Payload:          string(payload),
		AppliedAt:        entry.AppliedAt,
	}, nil
}
