package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"collaborative-editor/internal/domain"
	"collaborative-editor/internal/tasks"
)

// AsynqArchiver enqueues applied operations for background persistence. It
// satisfies the service layer's OperationArchiver without the apply path ever
// touching the database.
type AsynqArchiver struct {
	client *asynq.Client
}

// NewAsynqArchiver creates the archiver.
func NewAsynqArchiver(client *asynq.Client) *AsynqArchiver {
	if client == nil {
		panic("asynq client cannot be nil for AsynqArchiver")
	}
	return &AsynqArchiver{client: client}
}

// ArchiveOperation enqueues the entry on the low-priority queue.
func (a *AsynqArchiver) ArchiveOperation(ctx context.Context, roomID string, entry domain.OperationLogEntry) error {
	payload, err := tasks.NewOperationArchiveTask(roomID, entry)
	if err != nil {
		return fmt.Errorf("failed to build archive task: %w", err)
	}
	task := asynq.NewTask(tasks.TypeOperationArchive, payload)
	if _, err := a.client.EnqueueContext(ctx, task, asynq.Queue("low"), asynq.MaxRetry(5)); err != nil {
		return fmt.Errorf("failed to enqueue archive task: %w", err)
	}
	return nil
}
