package port

import (
	"context"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

// MessageSender delivers a plain-text message to an employee's messenger account
type MessageSender interface {
	SendMessage(ctx context.Context, openID string, content string) error
}

// FolderSynchronizer accepts folder jobs for background execution.
// Submit records the job and returns without waiting for it to run.
type FolderSynchronizer interface {
	Submit(ctx context.Context, job *entity.FolderJob) error
}
