package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/infrastructure/persistence/sqlite"
	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

const contractColumns = `
	id, contract_number, classification, agent_type, city, address, area,
	contract_date, contract_period_months, survey_date, tech_task_date,
	status, status_changed_at, folder_path, created_at, updated_at`

// ContractRepository implements port.ContractRepository
type ContractRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewContractRepository creates a new contract repository
func NewContractRepository(db *sqlite.DB, logger *zap.Logger) port.ContractRepository {
	return &ContractRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a contract and fills its ID and timestamps
func (r *ContractRepository) Create(ctx context.Context, c *entity.Contract) error {
	query := `
		INSERT INTO contracts (
			contract_number, classification, agent_type, city, address, area,
			contract_date, contract_period_months, survey_date, tech_task_date,
			status, status_changed_at, folder_path, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	ts := now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		c.ContractNumber,
		c.Classification,
		c.AgentType,
		c.City,
		c.Address,
		c.Area,
		nullTime(c.ContractDate),
		c.ContractPeriodMonths,
		nullTime(c.SurveyDate),
		nullTime(c.TechTaskDate),
		c.Status,
		nullTime(c.StatusChangedAt),
		nullString(c.FolderPath),
		ts,
		ts,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return fmt.Errorf("contract %q: %w", c.ContractNumber, port.ErrDuplicate)
		}
		r.logger.Error("Failed to create contract",
			zap.String("contract_number", c.ContractNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create contract: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	c.ID = id
	c.CreatedAt = ts
	c.UpdatedAt = ts
	return nil
}

// GetByID retrieves a contract by ID
func (r *ContractRepository) GetByID(ctx context.Context, id int64) (*entity.Contract, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE id = ?`, id)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		r.logger.Error("Failed to get contract by ID", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// GetByNumber retrieves a contract by its unique number
func (r *ContractRepository) GetByNumber(ctx context.Context, number string) (*entity.Contract, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+contractColumns+` FROM contracts WHERE contract_number = ?`, number)

	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("contract %q: %w", number, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contract: %w", err)
	}
	return c, nil
}

// Update writes every mutable column of the contract
func (r *ContractRepository) Update(ctx context.Context, c *entity.Contract) error {
	query := `
		UPDATE contracts SET
			classification = ?, agent_type = ?, city = ?, address = ?, area = ?,
			contract_date = ?, contract_period_months = ?, survey_date = ?, tech_task_date = ?,
			status = ?, status_changed_at = ?, folder_path = ?, updated_at = ?
		WHERE id = ?
	`
	ts := now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, query,
		c.Classification,
		c.AgentType,
		c.City,
		c.Address,
		c.Area,
		nullTime(c.ContractDate),
		c.ContractPeriodMonths,
		nullTime(c.SurveyDate),
		nullTime(c.TechTaskDate),
		c.Status,
		nullTime(c.StatusChangedAt),
		nullString(c.FolderPath),
		ts,
		c.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update contract", zap.Int64("id", c.ID), zap.Error(err))
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if err := expectRow(result, "contract", c.ID); err != nil {
		return err
	}

	c.UpdatedAt = ts
	return nil
}

// SetFolderPath stores the canonical folder path
func (r *ContractRepository) SetFolderPath(ctx context.Context, id int64, path string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE contracts SET folder_path = ?, updated_at = ? WHERE id = ?`,
		nullString(path), now(), id)
	if err != nil {
		return fmt.Errorf("failed to set folder path: %w", err)
	}
	return expectRow(result, "contract", id)
}

// Delete removes a contract; cards, assignments, payments and history cascade
func (r *ContractRepository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `DELETE FROM contracts WHERE id = ?`, id)
	if err != nil {
		r.logger.Error("Failed to delete contract", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete contract: %w", err)
	}
	return expectRow(result, "contract", id)
}

// List returns contracts ordered by ID
func (r *ContractRepository) List(ctx context.Context, limit, offset int) ([]*entity.Contract, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT `+contractColumns+` FROM contracts ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []*entity.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

func scanContract(s scanner) (*entity.Contract, error) {
	var c entity.Contract
	var contractDate, surveyDate, techTaskDate, statusChangedAt sql.NullTime
	var folderPath sql.NullString

	err := s.Scan(
		&c.ID,
		&c.ContractNumber,
		&c.Classification,
		&c.AgentType,
		&c.City,
		&c.Address,
		&c.Area,
		&contractDate,
		&c.ContractPeriodMonths,
		&surveyDate,
		&techTaskDate,
		&c.Status,
		&statusChangedAt,
		&folderPath,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.ContractDate = timePtr(contractDate)
	c.SurveyDate = timePtr(surveyDate)
	c.TechTaskDate = timePtr(techTaskDate)
	c.StatusChangedAt = timePtr(statusChangedAt)
	c.FolderPath = folderPath.String
	return &c, nil
}

func expectRow(result sql.Result, what string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, port.ErrNotFound)
	}
	return nil
}
