package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
)

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct {
	mu    sync.Mutex
	warns []string
}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}
func (m *mockLogger) Warn(msg string, keysAndValues ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

// memPaymentRepo keeps payments in memory and enforces the active-key rule
type memPaymentRepo struct {
	mu        sync.Mutex
	rows      []*entity.Payment
	createErr error
}

func (r *memPaymentRepo) Create(ctx context.Context, p *entity.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	for _, row := range r.rows {
		if !row.Reassigned && row.Key() == p.Key() {
			return fmt.Errorf("UNIQUE constraint failed: payments")
		}
	}
	p.ResolveFinalAmount()
	p.ID = int64(len(r.rows) + 1)
	cp := *p
	r.rows = append(r.rows, &cp)
	return nil
}

func (r *memPaymentRepo) GetByID(ctx context.Context, id int64) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			cp := *row
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("payment %d: %w", id, port.ErrNotFound)
}

func (r *memPaymentRepo) FindActive(ctx context.Context, key entity.PaymentKey) (*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if !row.Reassigned && row.Key() == key {
			cp := *row
			return &cp, nil
		}
	}
	return nil, port.ErrNotFound
}

func (r *memPaymentRepo) ListByContract(ctx context.Context, contractID int64) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Payment
	for _, row := range r.rows {
		if row.ContractID == contractID {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) ListActiveFor(ctx context.Context, contractID int64, stage, role string, employeeID int64) ([]*entity.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Payment
	for _, row := range r.rows {
		if row.ContractID == contractID && row.StageName == stage && row.Role == role &&
			row.EmployeeID == employeeID && !row.Reassigned {
			cp := *row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memPaymentRepo) MarkReassigned(ctx context.Context, contractID int64, stage, role string, employeeID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.ContractID == contractID && row.StageName == stage && row.Role == role &&
			row.EmployeeID == employeeID && !row.Reassigned {
			row.Reassigned = true
			n++
		}
	}
	return n, nil
}

func (r *memPaymentRepo) Release(ctx context.Context, contractID int64, stage string, employeeID int64, month string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, row := range r.rows {
		if row.ContractID == contractID && row.StageName == stage && row.EmployeeID == employeeID &&
			!row.Reassigned && row.Status == entity.PaymentStatusPending {
			row.Status = entity.PaymentStatusToPay
			row.ReportMonth = month
			n++
		}
	}
	return n, nil
}

func (r *memPaymentRepo) MarkPaid(ctx context.Context, id int64, paidBy int64, at time.Time, month string) error {
	return r.update(id, func(p *entity.Payment) {
		p.Status = entity.PaymentStatusPaid
		p.PaidAt = &at
		p.PaidBy = &paidBy
		if p.ReportMonth == "" {
			p.ReportMonth = month
		}
	})
}

func (r *memPaymentRepo) SetManualAmount(ctx context.Context, id int64, amount *float64) error {
	return r.update(id, func(p *entity.Payment) {
		p.ManualAmount = amount
		p.ResolveFinalAmount()
	})
}

func (r *memPaymentRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	return r.update(id, func(p *entity.Payment) { p.Status = status })
}

func (r *memPaymentRepo) update(id int64, fn func(*entity.Payment)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.ID == id {
			fn(row)
			return nil
		}
	}
	return fmt.Errorf("payment %d: %w", id, port.ErrNotFound)
}

func (r *memPaymentRepo) active() []*entity.Payment {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Payment
	for _, row := range r.rows {
		if !row.Reassigned {
			out = append(out, row)
		}
	}
	return out
}

type mockRateRepo struct {
	rates   []entity.Rate
	listErr error
}

func (m *mockRateRepo) Create(ctx context.Context, r *entity.Rate) error {
	m.rates = append(m.rates, *r)
	return nil
}

func (m *mockRateRepo) ListByRole(ctx context.Context, role string) ([]entity.Rate, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []entity.Rate
	for _, r := range m.rates {
		if r.Role == role {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRateRepo) List(ctx context.Context) ([]entity.Rate, error) {
	return m.rates, nil
}

func (m *mockRateRepo) ReplaceAll(ctx context.Context, rates []entity.Rate) error {
	m.rates = rates
	return nil
}

type mockContractRepo struct {
	contracts map[int64]*entity.Contract
}

func (m *mockContractRepo) Create(ctx context.Context, c *entity.Contract) error { return nil }

func (m *mockContractRepo) GetByID(ctx context.Context, id int64) (*entity.Contract, error) {
	if c, ok := m.contracts[id]; ok {
		return c, nil
	}
	return nil, fmt.Errorf("contract %d: %w", id, port.ErrNotFound)
}

func (m *mockContractRepo) GetByNumber(ctx context.Context, number string) (*entity.Contract, error) {
	return nil, port.ErrNotFound
}

func (m *mockContractRepo) Update(ctx context.Context, c *entity.Contract) error { return nil }

func (m *mockContractRepo) SetFolderPath(ctx context.Context, id int64, path string) error {
	return nil
}

func (m *mockContractRepo) Delete(ctx context.Context, id int64) error { return nil }

func (m *mockContractRepo) List(ctx context.Context, limit, offset int) ([]*entity.Contract, error) {
	return nil, nil
}

type mockEmployeeRepo struct {
	employees map[int64]*entity.Employee
}

func (m *mockEmployeeRepo) Create(ctx context.Context, e *entity.Employee) error { return nil }

func (m *mockEmployeeRepo) GetByID(ctx context.Context, id int64) (*entity.Employee, error) {
	if e, ok := m.employees[id]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("employee %d: %w", id, port.ErrNotFound)
}

func (m *mockEmployeeRepo) List(ctx context.Context) ([]*entity.Employee, error) { return nil, nil }

type sentMessage struct {
	openID  string
	content string
}

type mockMessageSender struct {
	mu              sync.Mutex
	sent            []sentMessage
	sendMessageFunc func(ctx context.Context, openID string, content string) error
}

func (m *mockMessageSender) SendMessage(ctx context.Context, openID string, content string) error {
	if m.sendMessageFunc != nil {
		if err := m.sendMessageFunc(ctx, openID, content); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, sentMessage{openID: openID, content: content})
	return nil
}
