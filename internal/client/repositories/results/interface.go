package results

import (
	"context"

	"github.com/dmitrijs2005/anonify/internal/client/models"
)

// Repository describes storage for ArchivedResult rows.
type Repository interface {
	// Save inserts a result or replaces the row with the same task id.
	Save(ctx context.Context, r *models.ArchivedResult) error

	// GetByTaskID returns the result for a task, or common.ErrNotFound.
	GetByTaskID(ctx context.Context, taskID string) (*models.ArchivedResult, error)

	// ListByChat returns a chat's results, newest first.
	ListByChat(ctx context.Context, chatID int64) ([]models.ArchivedResult, error)

	// Clear removes every row. Archived files are left in place.
	Clear(ctx context.Context) error
}
