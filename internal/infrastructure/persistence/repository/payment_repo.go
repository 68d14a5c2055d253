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

const paymentColumns = `
	id, contract_id, card_id, employee_id, role, stage_name,
	calculated_amount, manual_amount, final_amount, payment_type,
	reassigned, status, report_month, rate_missing, paid_at, paid_by,
	created_at, updated_at`

// PaymentRepository implements port.PaymentRepository
type PaymentRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *sqlite.DB, logger *zap.Logger) port.PaymentRepository {
	return &PaymentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a payment. FinalAmount is derived from the manual and calculated amounts.
func (r *PaymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	p.ResolveFinalAmount()
	if p.Status == "" {
		p.Status = entity.PaymentStatusPending
	}
	ts := now()

	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		INSERT INTO payments (
			contract_id, card_id, employee_id, role, stage_name,
			calculated_amount, manual_amount, final_amount, payment_type,
			reassigned, status, report_month, rate_missing, paid_at, paid_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ContractID,
		nullInt(p.CardID),
		p.EmployeeID,
		p.Role,
		p.StageName,
		p.CalculatedAmount,
		nullFloat(p.ManualAmount),
		p.FinalAmount,
		p.PaymentType,
		p.Reassigned,
		p.Status,
		p.ReportMonth,
		p.RateMissing,
		nullTime(p.PaidAt),
		nullInt(p.PaidBy),
		ts,
		ts,
	)
	if err != nil {
		r.logger.Error("Failed to create payment",
			zap.Int64("contract_id", p.ContractID),
			zap.Int64("employee_id", p.EmployeeID),
			zap.String("role", p.Role),
			zap.String("stage_name", p.StageName),
			zap.String("payment_type", p.PaymentType),
			zap.Error(err))
		return fmt.Errorf("failed to create payment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt = ts
	p.UpdatedAt = ts
	return nil
}

// GetByID retrieves a payment by ID
func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = ?`, id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("payment %d: %w", id, port.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// FindActive returns the non-reassigned payment for the key, or ErrNotFound
func (r *PaymentRepository) FindActive(ctx context.Context, key entity.PaymentKey) (*entity.Payment, error) {
	row := r.db.Executor(ctx).QueryRowContext(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE contract_id = ? AND stage_name = ? AND role = ? AND employee_id = ?
		  AND payment_type = ? AND reassigned = 0`,
		key.ContractID, key.StageName, key.Role, key.EmployeeID, key.PaymentType)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, port.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find active payment: %w", err)
	}
	return p, nil
}

// ListByContract returns all payments of a contract including reassigned ones
func (r *PaymentRepository) ListByContract(ctx context.Context, contractID int64) ([]*entity.Payment, error) {
	return r.list(ctx, `SELECT `+paymentColumns+` FROM payments WHERE contract_id = ? ORDER BY id`, contractID)
}

// ListActiveFor returns non-reassigned payments of one employee in a role and stage
func (r *PaymentRepository) ListActiveFor(ctx context.Context, contractID int64, stage, role string, employeeID int64) ([]*entity.Payment, error) {
	return r.list(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE contract_id = ? AND stage_name = ? AND role = ? AND employee_id = ? AND reassigned = 0
		ORDER BY id`,
		contractID, stage, role, employeeID)
}

func (r *PaymentRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.Payment, error) {
	rows, err := r.db.Executor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var out []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// MarkReassigned supersedes the employee's current payments. Rows that were
// reassigned earlier are excluded so chained reassignments leave them untouched.
func (r *PaymentRepository) MarkReassigned(ctx context.Context, contractID int64, stage, role string, employeeID int64) (int64, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE payments SET reassigned = 1, updated_at = ?
		WHERE contract_id = ? AND stage_name = ? AND role = ? AND employee_id = ?
		  AND reassigned = 0`,
		now(), contractID, stage, role, employeeID)
	if err != nil {
		r.logger.Error("Failed to mark payments reassigned",
			zap.Int64("contract_id", contractID),
			zap.String("stage_name", stage),
			zap.Int64("employee_id", employeeID),
			zap.Error(err))
		return 0, fmt.Errorf("failed to mark payments reassigned: %w", err)
	}
	return result.RowsAffected()
}

// Release moves pending payments of an accepted stage to to_pay
func (r *PaymentRepository) Release(ctx context.Context, contractID int64, stage string, employeeID int64, reportMonth string) (int64, error) {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE payments SET status = ?, report_month = ?, updated_at = ?
		WHERE contract_id = ? AND stage_name = ? AND employee_id = ?
		  AND reassigned = 0 AND status = ?`,
		entity.PaymentStatusToPay, reportMonth, now(),
		contractID, stage, employeeID, entity.PaymentStatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to release payments: %w", err)
	}
	return result.RowsAffected()
}

// MarkPaid records the payout. An empty report month is filled from reportMonth.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id int64, paidBy int64, at time.Time, reportMonth string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE payments SET
			status = ?, paid_at = ?, paid_by = ?,
			report_month = CASE WHEN report_month = '' THEN ? ELSE report_month END,
			updated_at = ?
		WHERE id = ?`,
		entity.PaymentStatusPaid, at, paidBy, reportMonth, now(), id)
	if err != nil {
		return fmt.Errorf("failed to mark payment paid: %w", err)
	}
	return expectRow(result, "payment", id)
}

// SetManualAmount sets or clears the override and recomputes the final amount
func (r *PaymentRepository) SetManualAmount(ctx context.Context, id int64, amount *float64) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx, `
		UPDATE payments SET
			manual_amount = ?,
			final_amount = COALESCE(?, calculated_amount),
			updated_at = ?
		WHERE id = ?`,
		nullFloat(amount), nullFloat(amount), now(), id)
	if err != nil {
		return fmt.Errorf("failed to set manual amount: %w", err)
	}
	return expectRow(result, "payment", id)
}

// UpdateStatus sets the payment status
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	result, err := r.db.Executor(ctx).ExecContext(ctx,
		`UPDATE payments SET status = ?, updated_at = ? WHERE id = ?`, status, now(), id)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	return expectRow(result, "payment", id)
}

func scanPayment(s scanner) (*entity.Payment, error) {
	var p entity.Payment
	var cardID, paidBy sql.NullInt64
	var manual sql.NullFloat64
	var paidAt sql.NullTime

	err := s.Scan(
		&p.ID,
		&p.ContractID,
		&cardID,
		&p.EmployeeID,
		&p.Role,
		&p.StageName,
		&p.CalculatedAmount,
		&manual,
		&p.FinalAmount,
		&p.PaymentType,
		&p.Reassigned,
		&p.Status,
		&p.ReportMonth,
		&p.RateMissing,
		&paidAt,
		&paidBy,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.CardID = intPtr(cardID)
	p.ManualAmount = floatPtr(manual)
	p.PaidAt = timePtr(paidAt)
	p.PaidBy = intPtr(paidBy)
	return &p, nil
}
