package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"go.uber.org/zap"
)

// CardRepository implements port.CardRepository
type CardRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewCardRepository creates a new card repository
func NewCardRepository(db *sqlite.DB, logger *zap.Logger) port.CardRepository {
	return &CardRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a card. The (contract, pipeline) pair is unique.
func (r *CardRepository) Create(ctx context.Context, card *entity.Card) error {
	ts := now()
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO cards (contract_id, pipeline, column_name, deadline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		card.ContractID, card.Pipeline, card.Column, nullTime(card.Deadline), ts, ts)
	if err != nil {
		r.logger.Error("Failed to create card",
			zap.Int64("contract_id", card.ContractID),
			zap.String("pipeline", card.Pipeline),
			zap.Error(err))
		return fmt.Errorf("failed to create card: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	card.ID = id
	card.CreatedAt = ts
	card.UpdatedAt = ts
	return nil
}

// GetByID retrieves a card with its roles and approval stages
func (r *CardRepository) GetByID(ctx context.Context, id int64) (*entity.Card, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, contract_id, pipeline, column_name, deadline, created_at, updated_at
		FROM cards WHERE id = ?`, id)
	return r.load(ctx, row, fmt.Sprintf("card %d", id))
}

// GetByContract retrieves the card of a contract in a pipeline
func (r *CardRepository) GetByContract(ctx context.Context, contractID int64, pipeline string) (*entity.Card, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT id, contract_id, pipeline, column_name, deadline, created_at, updated_at
		FROM cards WHERE contract_id = ? AND pipeline = ?`, contractID, pipeline)
	return r.load(ctx, row, fmt.Sprintf("%s card of contract %d", pipeline, contractID))
}

func (r *CardRepository) load(ctx context.Context, row *sql.Row, what string) (*entity.Card, error) {
	var card entity.Card
	var deadline sql.NullTime

	err := row.Scan(&card.ID, &card.ContractID, &card.Pipeline, &card.Column,
		&deadline, &card.CreatedAt, &card.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", what, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get card", zap.String("card", what), zap.Error(err))
		return nil, fmt.Errorf("failed to get card: %w", err)
	}
	card.Deadline = timePtr(deadline)

	if card.Roles, err = r.GetRoles(ctx, card.ID); err != nil {
		return nil, err
	}
	if card.ApprovalStages, err = r.ListApprovalStages(ctx, card.ID); err != nil {
		return nil, err
	}
	return &card, nil
}

// UpdateColumn moves the card
func (r *CardRepository) UpdateColumn(ctx context.Context, id int64, column string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE cards SET column_name = ?, updated_at = ? WHERE id = ?`, column, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update card column: %w", err)
	}
	return expectRow(result, "card", id)
}

// UpdateDeadline stores the derived deadline
func (r *CardRepository) UpdateDeadline(ctx context.Context, id int64, deadline *time.Time) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE cards SET deadline = ?, updated_at = ? WHERE id = ?`, nullTime(deadline), now(), id)
	if err != nil {
		return fmt.Errorf("failed to update card deadline: %w", err)
	}
	return expectRow(result, "card", id)
}

// SetRole upserts a management role mapping
func (r *CardRepository) SetRole(ctx context.Context, cardID int64, role string, employeeID int64) (bool, error) {
	exec := r.db.Executor(ctx)

	var existing int64
	err := exec.QueryRowContext(ctx,
		`SELECT employee_id FROM card_roles WHERE card_id = ? AND role = ?`, cardID, role).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := exec.ExecContext(ctx,
			`INSERT INTO card_roles (card_id, role, employee_id, assigned_at) VALUES (?, ?, ?, ?)`,
			cardID, role, employeeID, now()); err != nil {
			return false, fmt.Errorf("failed to insert card role: %w", err)
		}
		return true, nil
	case err != nil:
		return false, fmt.Errorf("failed to read card role: %w", err)
	}

	if existing == employeeID {
		return false, nil
	}
	if _, err := exec.ExecContext(ctx,
		`UPDATE card_roles SET employee_id = ?, assigned_at = ? WHERE card_id = ? AND role = ?`,
		employeeID, now(), cardID, role); err != nil {
		return false, fmt.Errorf("failed to update card role: %w", err)
	}
	return false, nil
}

// GetRoles returns the role to employee mapping of a card
func (r *CardRepository) GetRoles(ctx context.Context, cardID int64) (map[string]int64, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT role, employee_id FROM card_roles WHERE card_id = ?`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query card roles: %w", err)
	}
	defer rows.Close()

	roles := make(map[string]int64)
	for rows.Next() {
		var role string
		var employeeID int64
		if err := rows.Scan(&role, &employeeID); err != nil {
			return nil, fmt.Errorf("failed to scan card role: %w", err)
		}
		roles[role] = employeeID
	}
	return roles, rows.Err()
}

// ListApprovalStages returns approval stages in position order
func (r *CardRepository) ListApprovalStages(ctx context.Context, cardID int64) ([]entity.ApprovalStage, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, `
		SELECT stage_name, position, deadline, completed, completed_at
		FROM approval_deadlines WHERE card_id = ? ORDER BY position, id`, cardID)
	if err != nil {
		return nil, fmt.Errorf("failed to query approval stages: %w", err)
	}
	defer rows.Close()

	var stages []entity.ApprovalStage
	for rows.Next() {
		var s entity.ApprovalStage
		var deadline, completedAt sql.NullTime
		if err := rows.Scan(&s.StageName, &s.Position, &deadline, &s.Completed, &completedAt); err != nil {
			return nil, fmt.Errorf("failed to scan approval stage: %w", err)
		}
		s.Deadline = timePtr(deadline)
		s.CompletedAt = timePtr(completedAt)
		stages = append(stages, s)
	}
	return stages, rows.Err()
}

// ReplaceApprovalStages re-declares the approval stage list. Completion
// state of stages that keep their name is preserved.
func (r *CardRepository) ReplaceApprovalStages(ctx context.Context, cardID int64, stages []entity.ApprovalStage) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := r.ListApprovalStages(ctx, cardID)
		if err != nil {
			return err
		}
		previous := make(map[string]entity.ApprovalStage, len(existing))
		for _, s := range existing {
			previous[s.StageName] = s
		}

		exec := r.db.Executor(ctx)
		if _, err := exec.ExecContext(ctx, `DELETE FROM approval_deadlines WHERE card_id = ?`, cardID); err != nil {
			return fmt.Errorf("failed to clear approval stages: %w", err)
		}

		for i, s := range stages {
			if old, ok := previous[s.StageName]; ok {
				s.Completed = old.Completed
				s.CompletedAt = old.CompletedAt
			}
			if _, err := exec.ExecContext(ctx, `
				INSERT INTO approval_deadlines (card_id, stage_name, position, deadline, completed, completed_at)
				VALUES (?, ?, ?, ?, ?, ?)`,
				cardID, s.StageName, i, nullTime(s.Deadline), s.Completed, nullTime(s.CompletedAt)); err != nil {
				return fmt.Errorf("failed to insert approval stage %q: %w", s.StageName, err)
			}
		}
		return nil
	})
}

// ClearApprovalDeadlines wipes approval sub-stage deadlines so the operator re-declares them
func (r *CardRepository) ClearApprovalDeadlines(ctx context.Context, cardID int64) error {
	if _, err := r.db.Executor(ctx).ExecContext(ctx,
		`DELETE FROM approval_deadlines WHERE card_id = ?`, cardID); err != nil {
		return fmt.Errorf("failed to clear approval deadlines: %w", err)
	}
	return nil
}

// CompleteApprovalStage marks a sub-stage signed off
func (r *CardRepository) CompleteApprovalStage(ctx context.Context, cardID int64, stageName string, at time.Time) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE approval_deadlines SET completed = 1, completed_at = ?
		WHERE card_id = ? AND stage_name = ?`, at, cardID, stageName)
	if err != nil {
		return fmt.Errorf("failed to complete approval stage: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("approval stage %q of card %d: %w", stageName, cardID, port.ErrNotFound)
	}
	return nil
}
