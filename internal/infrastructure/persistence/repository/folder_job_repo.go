package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const folderJobColumns = `id, contract_id, kind, old_path, new_path, status, attempts, last_error, created_at, updated_at`

// FolderJobRepository implements port.FolderJobRepository
type FolderJobRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewFolderJobRepository creates a new folder job repository
func NewFolderJobRepository(db *sqlite.DB, logger *zap.Logger) port.FolderJobRepository {
	return &FolderJobRepository{
		db:     db,
		logger: logger,
	}
}

// Create records a new job
func (r *FolderJobRepository) Create(ctx context.Context, job *entity.FolderJob) error {
	if job.Status == "" {
		job.Status = entity.FolderJobPending
	}
	ts := now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO folder_jobs (contract_id, kind, old_path, new_path, status, attempts, last_error, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ContractID, job.Kind, job.OldPath, job.NewPath, job.Status, job.Attempts, job.LastError, ts, ts)
	if err != nil {
		return fmt.Errorf("failed to create folder job: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	job.ID = id
	job.CreatedAt = ts
	job.UpdatedAt = ts
	return nil
}

// GetByID retrieves a job by ID
func (r *FolderJobRepository) GetByID(ctx context.Context, id int64) (*entity.FolderJob, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+folderJobColumns+` FROM folder_jobs WHERE id = ?`, id)
	job, err := scanFolderJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("folder job %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get folder job: %w", err)
	}
	return job, nil
}

// ListByStatus returns jobs in a status, oldest first
func (r *FolderJobRepository) ListByStatus(ctx context.Context, status string) ([]*entity.FolderJob, error) {
	return r.list(ctx, `SELECT `+folderJobColumns+` FROM folder_jobs WHERE status = ? ORDER BY id`, status)
}

// ListByContract returns the jobs of one contract, oldest first
func (r *FolderJobRepository) ListByContract(ctx context.Context, contractID int64) ([]*entity.FolderJob, error) {
	return r.list(ctx, `SELECT `+folderJobColumns+` FROM folder_jobs WHERE contract_id = ? ORDER BY id`, contractID)
}

// UpdateResult stores the outcome of an attempt
func (r *FolderJobRepository) UpdateResult(ctx context.Context, id int64, status, lastError string) error {
	query := `UPDATE folder_jobs SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`
	if status == entity.FolderJobRunning {
		query = `UPDATE folder_jobs SET status = ?, last_error = ?, attempts = attempts + 1, updated_at = ? WHERE id = ?`
	}

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, status, lastError, now(), id)
	if err != nil {
		r.logger.Error("Failed to update folder job", zap.Int64("job_id", id), zap.Error(err))
		return fmt.Errorf("failed to update folder job: %w", err)
	}
	return expectRow(result, "folder job", id)
}

// Retarget points a job at a new destination path
func (r *FolderJobRepository) Retarget(ctx context.Context, id int64, newPath string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE folder_jobs SET new_path = ?, updated_at = ? WHERE id = ?`, newPath, now(), id)
	if err != nil {
		return fmt.Errorf("failed to retarget folder job: %w", err)
	}
	return expectRow(result, "folder job", id)
}

func (r *FolderJobRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.FolderJob, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query folder jobs: %w", err)
	}
	defer rows.Close()

	var out []*entity.FolderJob
	for rows.Next() {
		job, err := scanFolderJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan folder job: %w", err)
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

func scanFolderJob(s scanner) (*entity.FolderJob, error) {
	var job entity.FolderJob
	err := s.Scan(&job.ID, &job.ContractID, &job.Kind, &job.OldPath, &job.NewPath,
		&job.Status, &job.Attempts, &job.LastError, &job.CreatedAt, &job.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &job, nil
}
