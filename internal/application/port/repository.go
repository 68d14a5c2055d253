package port

import (
	"context"
	"errors"
	"time"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

// ErrNotFound is returned by repositories when a row does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert violates a unique key
var ErrDuplicate = errors.New("already exists")

// ContractRepository defines persistence operations for Contract
type ContractRepository interface {
	Create(ctx context.Context, contract *entity.Contract) error
	GetByID(ctx context.Context, id int64) (*entity.Contract, error)
	GetByNumber(ctx context.Context, number string) (*entity.Contract, error)
	// Update writes every mutable column of the contract
	Update(ctx context.Context, contract *entity.Contract) error
	SetFolderPath(ctx context.Context, id int64, path string) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*entity.Contract, error)
}

// CardRepository defines persistence operations for Card and its roles and approval stages
type CardRepository interface {
	Create(ctx context.Context, card *entity.Card) error
	GetByID(ctx context.Context, id int64) (*entity.Card, error)
	GetByContract(ctx context.Context, contractID int64, pipeline string) (*entity.Card, error)
	UpdateColumn(ctx context.Context, id int64, column string) error
	UpdateDeadline(ctx context.Context, id int64, deadline *time.Time) error

	// SetRole upserts the role mapping and reports whether the role was unassigned before
	SetRole(ctx context.Context, cardID int64, role string, employeeID int64) (created bool, err error)
	GetRoles(ctx context.Context, cardID int64) (map[string]int64, error)

	ListApprovalStages(ctx context.Context, cardID int64) ([]entity.ApprovalStage, error)
	ReplaceApprovalStages(ctx context.Context, cardID int64, stages []entity.ApprovalStage) error
	ClearApprovalDeadlines(ctx context.Context, cardID int64) error
	CompleteApprovalStage(ctx context.Context, cardID int64, stageName string, at time.Time) error
}

// AssignmentRepository defines persistence operations for StageAssignment
type AssignmentRepository interface {
	Create(ctx context.Context, a *entity.StageAssignment) error
	GetByID(ctx context.Context, id int64) (*entity.StageAssignment, error)
	FindActive(ctx context.Context, cardID int64, stage string, executorID int64) (*entity.StageAssignment, error)
	ListByCard(ctx context.Context, cardID int64) ([]*entity.StageAssignment, error)
	UpdateDeadline(ctx context.Context, id int64, deadline *time.Time) error
	MarkSubmitted(ctx context.Context, id int64, at time.Time) error
	MarkCompleted(ctx context.Context, id int64, at time.Time) error

	// MarkReassigned flags the executor's active rows for the stage and returns how many changed
	MarkReassigned(ctx context.Context, cardID int64, stage string, executorID int64) (int64, error)

	// ResetMarkers clears submitted and completed markers on the latest
	// non-reassigned row per (stage, executor) for the given stages
	ResetMarkers(ctx context.Context, cardID int64, stages []string) (int64, error)
}

// PaymentRepository defines persistence operations for Payment
type PaymentRepository interface {
	Create(ctx context.Context, p *entity.Payment) error
	GetByID(ctx context.Context, id int64) (*entity.Payment, error)
	FindActive(ctx context.Context, key entity.PaymentKey) (*entity.Payment, error)
	ListByContract(ctx context.Context, contractID int64) ([]*entity.Payment, error)

	// ListActiveFor returns the non-reassigned payments of an employee in a role and stage
	ListActiveFor(ctx context.Context, contractID int64, stage, role string, employeeID int64) ([]*entity.Payment, error)

	// MarkReassigned flags only rows that are not already reassigned
	MarkReassigned(ctx context.Context, contractID int64, stage, role string, employeeID int64) (int64, error)

	// Release moves pending non-reassigned payments of an employee for a stage to to_pay
	Release(ctx context.Context, contractID int64, stage string, employeeID int64, reportMonth string) (int64, error)

	MarkPaid(ctx context.Context, id int64, paidBy int64, at time.Time, reportMonth string) error
	SetManualAmount(ctx context.Context, id int64, amount *float64) error
	UpdateStatus(ctx context.Context, id int64, status string) error
}

// RateRepository defines persistence operations for Rate
type RateRepository interface {
	Create(ctx context.Context, r *entity.Rate) error
	ListByRole(ctx context.Context, role string) ([]entity.Rate, error)
	List(ctx context.Context) ([]entity.Rate, error)
	// ReplaceAll swaps the whole tariff table
	ReplaceAll(ctx context.Context, rates []entity.Rate) error
}

// EmployeeRepository defines persistence operations for Employee
type EmployeeRepository interface {
	Create(ctx context.Context, e *entity.Employee) error
	GetByID(ctx context.Context, id int64) (*entity.Employee, error)
	List(ctx context.Context) ([]*entity.Employee, error)
}

// HistoryRepository defines persistence operations for History
type HistoryRepository interface {
	Create(ctx context.Context, h *entity.History) error
	ListByContract(ctx context.Context, contractID int64) ([]*entity.History, error)
}

// FolderJobRepository defines persistence operations for FolderJob
type FolderJobRepository interface {
	Create(ctx context.Context, job *entity.FolderJob) error
	GetByID(ctx context.Context, id int64) (*entity.FolderJob, error)
	ListByStatus(ctx context.Context, status string) ([]*entity.FolderJob, error)
	ListByContract(ctx context.Context, contractID int64) ([]*entity.FolderJob, error)
	// UpdateResult records the outcome of an attempt and bumps the attempt counter
	UpdateResult(ctx context.Context, id int64, status, lastError string) error
	Retarget(ctx context.Context, id int64, newPath string) error
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
