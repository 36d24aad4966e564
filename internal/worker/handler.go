package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/repository"
	"collaborative-editor/internal/tasks"
)

// OperationArchiveHandler persists applied operations delivered by the queue.
type OperationArchiveHandler struct {
	repo repository.OperationLogRepository
}

// NewOperationArchiveHandler creates the handler.
func NewOperationArchiveHandler(repo repository.OperationLogRepository) *OperationArchiveHandler {
	if repo == nil {
		panic("operation log repository cannot be nil for OperationArchiveHandler")
	}
	return &OperationArchiveHandler{repo: repo}
}

// ProcessTask implements asynq.Handler.
func (h *OperationArchiveHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload tasks.OperationArchivePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		logrus.WithError(err).Error("Failed to unmarshal archive task payload")
		// A payload that cannot be decoded will never succeed.
		return fmt.Errorf("failed to unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	record, err := domain.NewArchivedOperation(payload.RoomID, payload.Entry)
	if err != nil {
		logrus.WithError(err).Error("Failed to encode operation for archive")
		return fmt.Errorf("failed to encode operation: %v: %w", err, asynq.SkipRetry)
	}

	if err := h.repo.SaveBatch(ctx, []domain.ArchivedOperation{record}); err != nil {
		logrus.WithError(err).WithFields(logrus.Fields{
			"room_id": payload.RoomID,
			"version": payload.Entry.ResultingVersion,
		}).Error("Failed to save archived operation")
		return fmt.Errorf("failed to save operation v%d: %w", payload.Entry.ResultingVersion, err)
	}

	logrus.WithFields(logrus.Fields{
		"room_id": payload.RoomID,
		"version": payload.Entry.ResultingVersion,
	}).Debug("Operation archived")
	return nil
}
