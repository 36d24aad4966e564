package domain

import "time"

// DocumentState is the shared document owned by a room. Version increases by
// exactly 1 per successfully applied operation and never decreases.
type DocumentState struct {
	ID             string    `json:"id"`
	Content        string    `json:"content"`
	Version        uint64    `json:"version"`
	Language       string    `json:"language"`
	LastModifiedBy string    `json:"last_modified_by,omitempty"`
	LastModifiedAt time.Time `json:"last_modified_at"`
}

// RoomView is a read-only snapshot of a room, returned by value so callers
// never hold a reference into registry-owned state.
type RoomView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	OwnerID         string    `json:"owner_id"`
	PartitionID     string    `json:"partition_id"`
	CreatedAt       time.Time `json:"created_at"`
	LastActivity    time.Time `json:"last_activity"`
	UserCount       int       `json:"user_count"`
	DocumentVersion uint64    `json:"document_version"`
}

// CollabStats is the aggregate counters surface exposed by the service.
type CollabStats struct {
	TotalRooms      int `json:"total_rooms"`
	ActiveRooms     int `json:"active_rooms"`
	TotalUsers      int `json:"total_users"`
	TotalSessions   int `json:"total_sessions"`
	MaxUsersPerRoom int `json:"max_users_per_room"`
}
