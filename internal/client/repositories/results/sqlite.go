package results

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/anonify/internal/client/models"
	"github.com/dmitrijs2005/anonify/internal/common"
	"github.com/dmitrijs2005/anonify/internal/dbx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
type SQLiteRepository struct {
	db dbx.DBTX
}

func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

func (r *SQLiteRepository) Save(ctx context.Context, res *models.ArchivedResult) error {
	query := `INSERT INTO archived_results (task_id, chat_id, detections_count, location, created_at)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(task_id) DO UPDATE SET chat_id = excluded.chat_id,
				detections_count = excluded.detections_count,
				location = excluded.location,
				created_at = excluded.created_at
	`
	_, err := r.db.ExecContext(ctx, query,
		res.TaskID, res.ChatID, res.DetectionsCount, res.Location, res.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to save archived result: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByTaskID(ctx context.Context, taskID string) (*models.ArchivedResult, error) {
	query := `SELECT task_id, chat_id, detections_count, location, created_at
			FROM archived_results WHERE task_id = ?`

	var item models.ArchivedResult
	err := r.db.QueryRowContext(ctx, query, taskID).
		Scan(&item.TaskID, &item.ChatID, &item.DetectionsCount, &item.Location, &item.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archived result %s: %w", taskID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get archived result: %w", err)
	}
	return &item, nil
}

func (r *SQLiteRepository) ListByChat(ctx context.Context, chatID int64) ([]models.ArchivedResult, error) {
	query := `SELECT task_id, chat_id, detections_count, location, created_at
			FROM archived_results WHERE chat_id = ? ORDER BY created_at DESC, task_id`
	rows, err := r.db.QueryContext(ctx, query, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to select archived results: %w", err)
	}
	defer rows.Close()

	var result []models.ArchivedResult
	for rows.Next() {
		var item models.ArchivedResult
		if err := rows.Scan(&item.TaskID, &item.ChatID, &item.DetectionsCount, &item.Location, &item.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) Clear(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM archived_results`); err != nil {
		return fmt.Errorf("failed to clear archived results: %w", err)
	}
	return nil
}
