package workflow

import (
	"context"
	"time"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

// WorkflowEngine orchestrates contracts and their stage cards. Every
// operation commits its primary mutation in one transaction; deadline
// recomputation, folder scheduling and notifications run after commit.
type WorkflowEngine interface {
	CreateContract(ctx context.Context, contract *entity.Contract, actorID int64) (*entity.Contract, error)
	GetContract(ctx context.Context, id int64) (*entity.Contract, error)
	UpdateContract(ctx context.Context, id int64, update entity.ContractUpdate, actorID int64) (*entity.Contract, error)
	DeleteContract(ctx context.Context, id int64) error
	GetHistory(ctx context.Context, contractID int64) ([]*entity.History, error)

	GetCard(ctx context.Context, id int64) (*entity.Card, error)
	GetCardByContract(ctx context.Context, contractID int64, pipeline string) (*entity.Card, error)

	// MoveCard moves a card to another column of its pipeline
	MoveCard(ctx context.Context, cardID int64, column string, actorID int64) (*entity.Card, error)

	AssignExecutor(ctx context.Context, req AssignExecutorRequest) (*entity.StageAssignment, error)
	ReassignExecutor(ctx context.Context, req ReassignExecutorRequest) (*entity.StageAssignment, error)
	ListAssignments(ctx context.Context, cardID int64) ([]*entity.StageAssignment, error)

	// AssignRole sets a management role on a card
	AssignRole(ctx context.Context, cardID int64, role string, employeeID, actorID int64) (*entity.Card, error)

	SubmitStage(ctx context.Context, assignmentID int64) (*entity.StageAssignment, error)
	AcceptStage(ctx context.Context, assignmentID, managerID int64) (*entity.StageAssignment, error)

	SetApprovalStages(ctx context.Context, cardID int64, stages []entity.ApprovalStage) (*entity.Card, error)
	CompleteApprovalStage(ctx context.Context, cardID int64, stageName string) (*entity.Card, error)
}

// AssignExecutorRequest binds an employee to a stage of a card
type AssignExecutorRequest struct {
	CardID     int64      `json:"-"`
	Stage      string     `json:"stage"`
	EmployeeID int64      `json:"employee_id"`
	ManagerID  int64      `json:"manager_id"`
	Deadline   *time.Time `json:"deadline,omitempty"`
}

// ReassignExecutorRequest hands a stage over from one employee to another
type ReassignExecutorRequest struct {
	CardID        int64      `json:"-"`
	Stage         string     `json:"stage"`
	OldEmployeeID int64      `json:"old_employee_id"`
	NewEmployeeID int64      `json:"new_employee_id"`
	ManagerID     int64      `json:"manager_id"`
	Deadline      *time.Time `json:"deadline,omitempty"`
}
