package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"collaborative-editor/internal/domain"
)

// GormOperationLogRepository is the GORM implementation of
// repository.OperationLogRepository.
type GormOperationLogRepository struct {
	db *gorm.DB
}

// NewGormOperationLogRepository creates the repository.
func NewGormOperationLogRepository(db *gorm.DB) *GormOperationLogRepository {
	if db == nil {
		panic("database connection cannot be nil for GormOperationLogRepository")
	}
	return &GormOperationLogRepository{db: db}
}

// SaveBatch inserts the batch in one statement.
func (r *GormOperationLogRepository) SaveBatch(ctx context.Context, ops []domain.ArchivedOperation) error {
	if len(ops) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&ops).Error; err != nil {
		return fmt.Errorf("gorm: failed to save operation batch (size %d): %w", len(ops), err)
	}
	return nil
}

// CountSince counts a room's archived operations applied after since.
func (r *GormOperationLogRepository) CountSince(ctx context.Context, roomID string, since time.Time) (int64, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&domain.ArchivedOperation{}).Where("room_id = ?", roomID)
	if !since.IsZero() {
		query = query.Where("applied_at > ?", since)
	}
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("gorm: failed to count operations for room %s since %v: %w", roomID, since, err)
	}
	return count, nil
}

// ListByRoom returns a room's archived operations ordered by version.
func (r *GormOperationLogRepository) ListByRoom(ctx context.Context, roomID string, limit int) ([]domain.ArchivedOperation, error) {
	var ops []domain.ArchivedOperation
	query := r.db.WithContext(ctx).
		Where("room_id = ?", roomID).
		Order("resulting_version asc")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&ops).Error; err != nil {
		return nil, fmt.Errorf("gorm: failed to list operations for room %s: %w", roomID, err)
	}
	return ops, nil
}
