package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/domain/event"
)

// AssignExecutor binds an employee to a stage. An existing active
// assignment is returned with its deadline refreshed instead of a new row.
func (e *engineImpl) AssignExecutor(ctx context.Context, req AssignExecutorRequest) (*entity.StageAssignment, error) {
	if req.EmployeeID <= 0 {
		return nil, service.NewValidationError("employee_id", "must be a positive id")
	}

	var (
		assignment *entity.StageAssignment
		contractID int64
		created    bool
		payReq     service.PaymentRequest
	)

	err := e.inTx(ctx, "assign executor", func(txCtx context.Context) error {
		card, _, col, err := e.loadCardColumn(txCtx, req.CardID, req.Stage)
		if err != nil {
			return err
		}
		if col.ExecutorRole == "" {
			return service.NewValidationError("stage", "stage %q takes no executor", req.Stage)
		}
		if _, err := e.repos.Employees.GetByID(txCtx, req.EmployeeID); err != nil {
			return err
		}
		contractID = card.ContractID

		assignment, created, err = e.activeAssignment(txCtx, card.ID, req.Stage, req.EmployeeID, req.ManagerID, req.Deadline)
		if err != nil {
			return err
		}

		contract, err := e.repos.Contracts.GetByID(txCtx, card.ContractID)
		if err != nil {
			return err
		}
		payReq = service.PaymentRequest{
			Contract:      contract,
			CardID:        cardRef(card.ID),
			EmployeeID:    req.EmployeeID,
			Role:          col.ExecutorRole,
			Stage:         req.Stage,
			IsSupervision: card.Pipeline == entity.PipelineSupervision,
		}

		if !created {
			return nil
		}
		return e.record(txCtx, card.ContractID, cardRef(card.ID), entity.ActionExecutorAssigned, req.ManagerID, map[string]interface{}{
			"stage_name":  req.Stage,
			"role":        col.ExecutorRole,
			"employee_id": req.EmployeeID,
		})
	})
	if err != nil {
		return nil, err
	}

	e.createRolePayments(ctx, payReq)

	if created {
		e.logger.Info("Executor assigned",
			"card_id", req.CardID,
			"stage", req.Stage,
			"employee_id", req.EmployeeID,
			"assignment_id", assignment.ID,
		)
		e.dispatch(ctx, event.NewEvent(event.TypeExecutorAssigned, contractID, req.CardID, executorPayload(req.Stage, req.EmployeeID, 0, req.Deadline)))
	}
	return assignment, nil
}

// ReassignExecutor hands a stage over. The outgoing employee's payments and
// assignment are superseded, the incoming employee inherits the superseded
// amounts, and the handover is written to the history.
func (e *engineImpl) ReassignExecutor(ctx context.Context, req ReassignExecutorRequest) (*entity.StageAssignment, error) {
	switch {
	case req.OldEmployeeID <= 0 || req.NewEmployeeID <= 0:
		return nil, service.NewValidationError("employee_id", "both employees are required")
	case req.OldEmployeeID == req.NewEmployeeID:
		return nil, service.NewValidationError("new_employee_id", "must differ from the current executor")
	}

	var (
		assignment *entity.StageAssignment
		contractID int64
	)

	err := e.inTx(ctx, "reassign executor", func(txCtx context.Context) error {
		card, _, col, err := e.loadCardColumn(txCtx, req.CardID, req.Stage)
		if err != nil {
			return err
		}
		if col.ExecutorRole == "" {
			return service.NewValidationError("stage", "stage %q takes no executor", req.Stage)
		}
		contractID = card.ContractID

		oldEmployee, err := e.repos.Employees.GetByID(txCtx, req.OldEmployeeID)
		if err != nil {
			return err
		}
		newEmployee, err := e.repos.Employees.GetByID(txCtx, req.NewEmployeeID)
		if err != nil {
			return err
		}

		inherited, err := e.payments.Supersede(txCtx, card.ContractID, req.Stage, col.ExecutorRole, req.OldEmployeeID)
		if err != nil {
			return err
		}
		n, err := e.repos.Assignments.MarkReassigned(txCtx, card.ID, req.Stage, req.OldEmployeeID)
		if err != nil {
			return err
		}
		if n == 0 && len(inherited) == 0 {
			return service.NewValidationError("old_employee_id",
				"employee %d holds no active assignment on stage %q", req.OldEmployeeID, req.Stage)
		}

		assignment, _, err = e.activeAssignment(txCtx, card.ID, req.Stage, req.NewEmployeeID, req.ManagerID, req.Deadline)
		if err != nil {
			return err
		}

		contract, err := e.repos.Contracts.GetByID(txCtx, card.ContractID)
		if err != nil {
			return err
		}
		if _, err := e.payments.CreateRolePayments(txCtx, service.PaymentRequest{
			Contract:      contract,
			CardID:        cardRef(card.ID),
			EmployeeID:    req.NewEmployeeID,
			Role:          col.ExecutorRole,
			Stage:         req.Stage,
			IsSupervision: card.Pipeline == entity.PipelineSupervision,
			Inherited:     inherited,
		}); err != nil {
			return err
		}

		return e.record(txCtx, card.ContractID, cardRef(card.ID), entity.ActionExecutorReassign, req.ManagerID, entity.ReassignmentDetails{
			StageName:       req.Stage,
			Role:            col.ExecutorRole,
			OldEmployeeID:   oldEmployee.ID,
			OldEmployeeName: oldEmployee.FullName,
			NewEmployeeID:   newEmployee.ID,
			NewEmployeeName: newEmployee.FullName,
			ReassignedAt:    e.now(),
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Executor reassigned",
		"card_id", req.CardID,
		"stage", req.Stage,
		"old_employee_id", req.OldEmployeeID,
		"new_employee_id", req.NewEmployeeID,
	)
	e.dispatch(ctx, event.NewEvent(event.TypeExecutorReassigned, contractID, req.CardID,
		executorPayload(req.Stage, req.NewEmployeeID, req.OldEmployeeID, req.Deadline)))
	return assignment, nil
}

func (e *engineImpl) ListAssignments(ctx context.Context, cardID int64) ([]*entity.StageAssignment, error) {
	if _, err := e.repos.Cards.GetByID(ctx, cardID); err != nil {
		return nil, service.WrapStoreError("list assignments", err)
	}
	rows, err := e.repos.Assignments.ListByCard(ctx, cardID)
	if err != nil {
		return nil, service.WrapStoreError("list assignments", err)
	}
	return rows, nil
}

// SubmitStage records that the executor claims the stage done
func (e *engineImpl) SubmitStage(ctx context.Context, assignmentID int64) (*entity.StageAssignment, error) {
	var assignment *entity.StageAssignment
	err := e.inTx(ctx, "submit stage", func(txCtx context.Context) error {
		a, err := e.repos.Assignments.GetByID(txCtx, assignmentID)
		if err != nil {
			return err
		}
		if !a.IsActive() {
			return service.NewValidationError("assignment", "assignment %d is no longer active", assignmentID)
		}
		if err := e.repos.Assignments.MarkSubmitted(txCtx, a.ID, e.now()); err != nil {
			return err
		}
		assignment, err = e.repos.Assignments.GetByID(txCtx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// AcceptStage completes the assignment and releases its pending payments
func (e *engineImpl) AcceptStage(ctx context.Context, assignmentID, managerID int64) (*entity.StageAssignment, error) {
	var assignment *entity.StageAssignment
	err := e.inTx(ctx, "accept stage", func(txCtx context.Context) error {
		a, err := e.repos.Assignments.GetByID(txCtx, assignmentID)
		if err != nil {
			return err
		}
		if a.Reassigned {
			return service.NewValidationError("assignment", "assignment %d was reassigned", assignmentID)
		}
		if a.Completed {
			assignment = a
			return nil
		}

		card, err := e.repos.Cards.GetByID(txCtx, a.CardID)
		if err != nil {
			return err
		}
		if err := e.repos.Assignments.MarkCompleted(txCtx, a.ID, e.now()); err != nil {
			return err
		}
		released, err := e.payments.Release(txCtx, card.ContractID, a.StageName, a.ExecutorID)
		if err != nil {
			return err
		}
		if err := e.record(txCtx, card.ContractID, cardRef(card.ID), entity.ActionStageAccepted, managerID, map[string]interface{}{
			"stage_name":        a.StageName,
			"executor_id":       a.ExecutorID,
			"payments_released": released,
		}); err != nil {
			return err
		}

		assignment, err = e.repos.Assignments.GetByID(txCtx, a.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return assignment, nil
}

// activeAssignment returns the active row for (card, stage, executor) or inserts one
func (e *engineImpl) activeAssignment(ctx context.Context, cardID int64, stage string, executorID, managerID int64, deadline *time.Time) (*entity.StageAssignment, bool, error) {
	existing, err := e.repos.Assignments.FindActive(ctx, cardID, stage, executorID)
	if err == nil {
		if deadline != nil {
			if err := e.repos.Assignments.UpdateDeadline(ctx, existing.ID, deadline); err != nil {
				return nil, false, err
			}
			existing.Deadline = deadline
		}
		return existing, false, nil
	}
	if !errors.Is(err, port.ErrNotFound) {
		return nil, false, fmt.Errorf("find active assignment: %w", err)
	}

	a := &entity.StageAssignment{
		CardID:     cardID,
		StageName:  stage,
		ExecutorID: executorID,
		AssignedBy: managerID,
		Deadline:   deadline,
	}
	if err := e.repos.Assignments.Create(ctx, a); err != nil {
		return nil, false, err
	}
	return a, true, nil
}

func executorPayload(stage string, executorID, oldExecutorID int64, deadline *time.Time) map[string]interface{} {
	payload := map[string]interface{}{
		service.PayloadStage:      stage,
		service.PayloadExecutorID: executorID,
	}
	if oldExecutorID > 0 {
		payload[service.PayloadOldExecutorID] = oldExecutorID
	}
	if deadline != nil {
		payload[service.PayloadDeadline] = *deadline
	}
	return payload
}
