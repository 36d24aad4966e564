package collab

import "time"

// PresenceMode selects how presence updates are delivered to subscribers.
type PresenceMode string

const (
	// PresenceRealTime emits every update immediately.
	PresenceRealTime PresenceMode = "realtime"
	// PresenceThrottled buffers updates and flushes the most recent one per
	// user each interval. The default.
	PresenceThrottled PresenceMode = "throttled"
	// PresenceDeltaOnly emits immediately but omits fields unchanged since
	// the last delivered update for that user.
	PresenceDeltaOnly PresenceMode = "delta"
)

// SyncStrategy selects how document operations are reconciled. Only
// Optimistic has a full reference behavior; unknown or reserved strategies
// behave identically to Optimistic.
type SyncStrategy string

const (
	// SyncOptimistic applies immediately with no conflict check.
	SyncOptimistic SyncStrategy = "optimistic"
	// SyncPessimistic is reserved for range locking.
	SyncPessimistic SyncStrategy = "pessimistic"
	// SyncCRDT is a reserved extension point for conflict-free merging.
	SyncCRDT SyncStrategy = "crdt"
)

// Config holds the core engine tunables.
type Config struct {
	MaxUsersPerRoom      int
	MaxRooms             int
	MaxRoomsPerPartition int

	// MaxOpsPerSecond bounds document operations per (room, user).
	MaxOpsPerSecond int
	// MaxPresencePerSecond bounds presence updates per (room, user). Presence
	// has its own, more permissive budget; it never consumes operation tokens.
	MaxPresencePerSecond int

	PresenceMode          PresenceMode
	PresenceFlushInterval time.Duration
	SyncStrategy          SyncStrategy

	// HeartbeatInterval paces the background sweeps.
	HeartbeatInterval time.Duration
	// UserTimeout is the inactivity threshold for session reaping.
	UserTimeout time.Duration
	// RoomIdleTimeout is the inactivity threshold for room reaping.
	RoomIdleTimeout time.Duration

	EventBufferSize  int
	OperationLogSize int
	DefaultLanguage  string
}

// DefaultConfig returns the reference defaults.
func DefaultConfig() Config {
	return Config{
		MaxUsersPerRoom:       50,
		MaxRooms:              1000,
		MaxRoomsPerPartition:  10,
		MaxOpsPerSecond:       20,
		MaxPresencePerSecond:  200,
		PresenceMode:          PresenceThrottled,
		PresenceFlushInterval: 100 * time.Millisecond,
		SyncStrategy:          SyncOptimistic,
		HeartbeatInterval:     30 * time.Second,
		UserTimeout:           120 * time.Second,
		RoomIdleTimeout:       30 * time.Minute,
		EventBufferSize:       1000,
		OperationLogSize:      1000,
		DefaultLanguage:       "plaintext",
	}
}
