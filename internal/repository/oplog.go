package repository

import (
	"context"
	"time"

	"collaborative-editor/internal/domain"
)

// OperationLogRepository defines durable storage for applied operations. The
// in-memory core never calls it directly; the archival worker writes through
// it and the archive endpoint reads from it.
type OperationLogRepository interface {
	// SaveBatch persists a batch of archived operations.
	SaveBatch(ctx context.Context, ops []domain.ArchivedOperation) error

	// CountSince returns how many operations a room archived after the given
	// time. A zero timestamp counts everything.
	CountSince(ctx context.Context, roomID string, since time.Time) (int64, error)

	// ListByRoom returns a room's archived operations ordered by resulting
	// version, capped at limit.
	ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ArchivedOperation, error)
}
