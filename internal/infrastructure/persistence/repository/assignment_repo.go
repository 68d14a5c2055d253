package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

const assignmentColumns = `
	id, card_id, stage_name, executor_id, assigned_by, deadline,
	submitted_at, completed, completed_at, reassigned, created_at`

// AssignmentRepository implements port.AssignmentRepository
type AssignmentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewAssignmentRepository creates a new stage assignment repository
func NewAssignmentRepository(db *sqlite.DB, logger *zap.Logger) port.AssignmentRepository {
	return &AssignmentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an assignment
func (r *AssignmentRepository) Create(ctx context.Context, a *entity.StageAssignment) error {
	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO stage_executors (
			card_id, stage_name, executor_id, assigned_by, deadline,
			submitted_at, completed, completed_at, reassigned, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.CardID, a.StageName, a.ExecutorID, a.AssignedBy, nullTime(a.Deadline),
		nullTime(a.SubmittedAt), a.Completed, nullTime(a.CompletedAt), a.Reassigned, ts)
	if err != nil {
		r.logger.Error("Failed to create stage assignment",
			zap.Int64("card_id", a.CardID),
			zap.String("stage_name", a.StageName),
			zap.Int64("executor_id", a.ExecutorID),
			zap.Error(err))
		return fmt.Errorf("failed to create stage assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	a.ID = id
	a.CreatedAt = ts
	return nil
}

// GetByID retrieves an assignment by ID
func (r *AssignmentRepository) GetByID(ctx context.Context, id int64) (*entity.StageAssignment, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM stage_executors WHERE id = ?`, id)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assignment %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get assignment: %w", err)
	}
	return a, nil
}

// FindActive returns the active assignment for (card, stage, executor), or ErrNotFound
func (r *AssignmentRepository) FindActive(ctx context.Context, cardID int64, stage string, executorID int64) (*entity.StageAssignment, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT `+assignmentColumns+` FROM stage_executors
		WHERE card_id = ? AND stage_name = ? AND executor_id = ?
		  AND reassigned = 0 AND completed = 0`,
		cardID, stage, executorID)
	a, err := scanAssignment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active assignment: %w", err)
	}
	return a, nil
}

// ListByCard returns all assignments of a card, oldest first
func (r *AssignmentRepository) ListByCard(ctx context.Context, cardID int64) ([]*entity.StageAssignment, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+assignmentColumns+` FROM stage_executors WHERE card_id = ? ORDER BY id`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}
	defer rows.Close()

	var out []*entity.StageAssignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan assignment: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpdateDeadline refreshes an assignment deadline
func (r *AssignmentRepository) UpdateDeadline(ctx context.Context, id int64, deadline *time.Time) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE stage_executors SET deadline = ? WHERE id = ?`, nullTime(deadline), id)
	if err != nil {
		return fmt.Errorf("failed to update assignment deadline: %w", err)
	}
	return expectRow(result, "assignment", id)
}

// MarkSubmitted records that the executor claims the stage done
func (r *AssignmentRepository) MarkSubmitted(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE stage_executors SET submitted_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark assignment submitted: %w", err)
	}
	return expectRow(result, "assignment", id)
}

// MarkCompleted records manager acceptance
func (r *AssignmentRepository) MarkCompleted(ctx context.Context, id int64, at time.Time) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE stage_executors SET completed = 1, completed_at = ? WHERE id = ?`, at, id)
	if err != nil {
		return fmt.Errorf("failed to mark assignment completed: %w", err)
	}
	return expectRow(result, "assignment", id)
}

// MarkReassigned flags the executor's active rows for the stage
func (r *AssignmentRepository) MarkReassigned(ctx context.Context, cardID int64, stage string, executorID int64) (int64, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE stage_executors SET reassigned = 1
		WHERE card_id = ? AND stage_name = ? AND executor_id = ?
		  AND reassigned = 0 AND completed = 0`,
		cardID, stage, executorID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark assignments reassigned: %w", err)
	}
	return result.RowsAffected()
}

// ResetMarkers reopens the latest non-reassigned row per (stage, executor)
func (r *AssignmentRepository) ResetMarkers(ctx context.Context, cardID int64, stages []string) (int64, error) {
	if len(stages) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(stages)), ",")
	args := make([]interface{}, 0, len(stages)+1)
	args = append(args, cardID)
	for _, s := range stages {
		args = append(args, s)
	}

	query := `
		UPDATE stage_executors SET submitted_at = NULL, completed = 0, completed_at = NULL
		WHERE id IN (
			SELECT MAX(id) FROM stage_executors
			WHERE card_id = ? AND reassigned = 0 AND stage_name IN (` + placeholders + `)
			GROUP BY stage_name, executor_id
		)`

	result, err := r.db.Executor(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to reset stage markers", zap.Int64("card_id", cardID), zap.Error(err))
		return 0, fmt.Errorf("failed to reset stage markers: %w", err)
	}
	return result.RowsAffected()
}

func scanAssignment(s scanner) (*entity.StageAssignment, error) {
	var a entity.StageAssignment
	var deadline, submittedAt, completedAt sql.NullTime

	err := s.Scan(
		&a.ID,
		&a.CardID,
		&a.StageName,
		&a.ExecutorID,
		&a.AssignedBy,
		&deadline,
		&submittedAt,
		&a.Completed,
		&completedAt,
		&a.Reassigned,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Deadline = timePtr(deadline)
	a.SubmittedAt = timePtr(submittedAt)
	a.CompletedAt = timePtr(completedAt)
	return &a, nil
}
