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

// EmployeeRepository implements port.EmployeeRepository
type EmployeeRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewEmployeeRepository creates a new employee repository
func NewEmployeeRepository(db *sqlite.DB, logger *zap.Logger) port.EmployeeRepository {
	return &EmployeeRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts an employee
func (r *EmployeeRepository) Create(ctx context.Context, e *entity.Employee) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`INSERT INTO employees (full_name, position, lark_open_id, active) VALUES (?, ?, ?, ?)`,
		e.FullName, e.Position, e.LarkOpenID, e.Active)
	if err != nil {
		return fmt.Errorf("failed to create employee: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// GetByID retrieves an employee by ID
func (r *EmployeeRepository) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	var e entity.Employee
	err := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT id, full_name, position, lark_open_id, active FROM employees WHERE id = ?`, id).
		Scan(&e.ID, &e.FullName, &e.Position, &e.LarkOpenID, &e.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("employee %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get employee: %w", err)
	}
	return &e, nil
}

// List returns all employees ordered by name
func (r *EmployeeRepository) List(ctx context.Context) ([]*entity.Employee, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx,
		`SELECT id, full_name, position, lark_open_id, active FROM employees ORDER BY full_name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	var out []*entity.Employee
	for rows.Next() {
		var e entity.Employee
		if err := rows.Scan(&e.ID, &e.FullName, &e.Position, &e.LarkOpenID, &e.Active); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		out = append(out, &e)
	}
	return out, rows.Err()
}
