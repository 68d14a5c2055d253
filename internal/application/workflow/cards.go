package workflow

import (
	"context"
	"strings"

	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/domain/event"
	"github.com/garyjia/design-bureau/internal/domain/folder"
	domainwf "github.com/garyjia/design-bureau/internal/domain/workflow"
)

func (e *engineImpl) GetCard(ctx context.Context, id int64) (*entity.Card, error) {
	card, err := e.repos.Cards.GetByID(ctx, id)
	if err != nil {
		return nil, service.WrapStoreError("get card", err)
	}
	return card, nil
}

func (e *engineImpl) GetCardByContract(ctx context.Context, contractID int64, pipeline string) (*entity.Card, error) {
	if _, err := domainwf.PipelineByName(pipeline); err != nil {
		return nil, service.NewValidationError("pipeline", "%v", err)
	}
	card, err := e.repos.Cards.GetByContract(ctx, contractID, pipeline)
	if err != nil {
		return nil, service.WrapStoreError("get card", err)
	}
	return card, nil
}

// MoveCard moves the card, resets the executor markers of the stage group it
// leaves and, on the main pipeline, drives the contract status the target
// column maps to.
func (e *engineImpl) MoveCard(ctx context.Context, cardID int64, column string, actorID int64) (*entity.Card, error) {
	var (
		contractID    int64
		from          string
		oldPath       string
		newPath       string
		statusChanged string
	)

	err := e.inTx(ctx, "move card", func(txCtx context.Context) error {
		card, pipeline, target, err := e.loadCardColumn(txCtx, cardID, column)
		if err != nil {
			return err
		}
		contractID = card.ContractID
		from = card.Column

		var leaving []string
		if prev, err := pipeline.Column(card.Column); err == nil {
			leaving = pipeline.GroupStages(prev.Group)
		}

		if err := e.repos.Cards.UpdateColumn(txCtx, card.ID, target.Name); err != nil {
			return err
		}
		reset, err := e.repos.Assignments.ResetMarkers(txCtx, card.ID, leaving)
		if err != nil {
			return err
		}
		if target.Approval {
			if err := e.repos.Cards.ClearApprovalDeadlines(txCtx, card.ID); err != nil {
				return err
			}
		}

		if card.Pipeline == entity.PipelineMain && target.Status != "" {
			contract, err := e.repos.Contracts.GetByID(txCtx, card.ContractID)
			if err != nil {
				return err
			}
			oldPath = contract.FolderPath
			newPath = oldPath

			if contract.Status != string(target.Status) {
				if err := e.changeStatus(txCtx, contract, target.Status, actorID); err != nil {
					return err
				}
				statusChanged = contract.Status

				if path, ok := folder.PathFor(contract); ok {
					contract.FolderPath = path
				}
				newPath = contract.FolderPath
				if err := e.repos.Contracts.Update(txCtx, contract); err != nil {
					return err
				}
			}
		}

		return e.record(txCtx, card.ContractID, cardRef(card.ID), entity.ActionCardMoved, actorID, map[string]interface{}{
			"pipeline":      card.Pipeline,
			"from":          from,
			"to":            target.Name,
			"markers_reset": reset,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Card moved", "card_id", cardID, "from", from, "to", column, "status", statusChanged)

	e.recomputeDeadline(ctx, contractID)
	e.scheduleFolder(ctx, contractID, oldPath, newPath)
	e.dispatch(ctx, event.NewEvent(event.TypeCardMoved, contractID, cardID, map[string]interface{}{
		"from": from,
		"to":   column,
	}))
	if statusChanged != "" {
		e.dispatch(ctx, event.NewEvent(event.TypeStatusChanged, contractID, cardID, map[string]interface{}{
			"new_status": statusChanged,
		}))
	}

	return e.GetCard(ctx, cardID)
}

// AssignRole upserts a management role. The first holder of a role on a card
// is owed the role payments.
func (e *engineImpl) AssignRole(ctx context.Context, cardID int64, role string, employeeID, actorID int64) (*entity.Card, error) {
	if !entity.IsManagementRole(role) {
		return nil, service.NewValidationError("role", "%q is not a management role", role)
	}
	if employeeID <= 0 {
		return nil, service.NewValidationError("employee_id", "must be a positive id")
	}

	var payReq service.PaymentRequest
	err := e.inTx(ctx, "assign role", func(txCtx context.Context) error {
		card, err := e.repos.Cards.GetByID(txCtx, cardID)
		if err != nil {
			return err
		}
		if _, err := e.repos.Employees.GetByID(txCtx, employeeID); err != nil {
			return err
		}

		created, err := e.repos.Cards.SetRole(txCtx, card.ID, role, employeeID)
		if err != nil {
			return err
		}
		if created {
			contract, err := e.repos.Contracts.GetByID(txCtx, card.ContractID)
			if err != nil {
				return err
			}
			payReq = service.PaymentRequest{
				Contract:      contract,
				CardID:        cardRef(card.ID),
				EmployeeID:    employeeID,
				Role:          role,
				IsSupervision: card.Pipeline == entity.PipelineSupervision,
			}
		}

		return e.record(txCtx, card.ContractID, cardRef(card.ID), entity.ActionRoleAssigned, actorID, map[string]interface{}{
			"role":        role,
			"employee_id": employeeID,
			"first":       created,
		})
	})
	if err != nil {
		return nil, err
	}

	e.createRolePayments(ctx, payReq)

	e.logger.Info("Role assigned", "card_id", cardID, "role", role, "employee_id", employeeID)
	return e.GetCard(ctx, cardID)
}

// SetApprovalStages re-declares the ordered approval sub-stages of a card
func (e *engineImpl) SetApprovalStages(ctx context.Context, cardID int64, stages []entity.ApprovalStage) (*entity.Card, error) {
	seen := make(map[string]bool, len(stages))
	for i := range stages {
		name := strings.TrimSpace(stages[i].StageName)
		if name == "" {
			return nil, service.NewValidationError("stages", "stage %d has no name", i)
		}
		if seen[name] {
			return nil, service.NewValidationError("stages", "duplicate stage %q", name)
		}
		seen[name] = true
		stages[i].StageName = name
	}

	err := e.inTx(ctx, "set approval stages", func(txCtx context.Context) error {
		if _, err := e.repos.Cards.GetByID(txCtx, cardID); err != nil {
			return err
		}
		return e.repos.Cards.ReplaceApprovalStages(txCtx, cardID, stages)
	})
	if err != nil {
		return nil, err
	}
	return e.GetCard(ctx, cardID)
}

func (e *engineImpl) CompleteApprovalStage(ctx context.Context, cardID int64, stageName string) (*entity.Card, error) {
	err := e.inTx(ctx, "complete approval stage", func(txCtx context.Context) error {
		return e.repos.Cards.CompleteApprovalStage(txCtx, cardID, stageName, e.now())
	})
	if err != nil {
		return nil, err
	}
	return e.GetCard(ctx, cardID)
}
