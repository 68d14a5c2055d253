package workflow

import (
	"context"
	"errors"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/domain/event"
	"github.com/garyjia/design-bureau/internal/domain/folder"
	domainwf "github.com/garyjia/design-bureau/internal/domain/workflow"
	"github.com/garyjia/design-bureau/pkg/utils"
)

// CreateContract stores a contract together with its main card
func (e *engineImpl) CreateContract(ctx context.Context, contract *entity.Contract, actorID int64) (*entity.Contract, error) {
	if contract == nil {
		return nil, service.NewValidationError("contract", "is required")
	}
	contract.ContractNumber = utils.SanitizeString(contract.ContractNumber)
	if contract.Status == "" {
		contract.Status = entity.StatusNew
	}
	if err := validateContract(contract); err != nil {
		return nil, err
	}

	status := domainwf.State(contract.Status)
	if status.StampsChangeTime() {
		at := e.now()
		contract.StatusChangedAt = &at
	}
	if path, ok := folder.PathFor(contract); ok {
		contract.FolderPath = path
	}

	column := domainwf.ColumnNew
	if c, ok := domainwf.ColumnForStatus(status); ok {
		column = c
	}

	err := e.inTx(ctx, "create contract", func(txCtx context.Context) error {
		existing, err := e.repos.Contracts.GetByNumber(txCtx, contract.ContractNumber)
		switch {
		case err == nil:
			return duplicateNumber(existing.ContractNumber)
		case !errors.Is(err, port.ErrNotFound):
			return err
		}
		if err := e.repos.Contracts.Create(txCtx, contract); err != nil {
			if errors.Is(err, port.ErrDuplicate) {
				return duplicateNumber(contract.ContractNumber)
			}
			return err
		}
		card := &entity.Card{ContractID: contract.ID, Pipeline: entity.PipelineMain, Column: column}
		if err := e.repos.Cards.Create(txCtx, card); err != nil {
			return err
		}
		if status == domainwf.StateUnderSupervision {
			if err := e.ensureSupervisionCard(txCtx, contract.ID); err != nil {
				return err
			}
		}
		return e.record(txCtx, contract.ID, cardRef(card.ID), entity.ActionContractCreated, actorID, map[string]string{
			"contract_number": contract.ContractNumber,
		})
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Contract created", "contract_id", contract.ID, "contract_number", contract.ContractNumber)

	e.recomputeDeadline(ctx, contract.ID)
	e.scheduleFolder(ctx, contract.ID, "", contract.FolderPath)
	e.dispatch(ctx, event.NewEvent(event.TypeContractCreated, contract.ID, 0, map[string]interface{}{
		"contract_number": contract.ContractNumber,
	}))

	return e.GetContract(ctx, contract.ID)
}

func (e *engineImpl) GetContract(ctx context.Context, id int64) (*entity.Contract, error) {
	contract, err := e.repos.Contracts.GetByID(ctx, id)
	if err != nil {
		return nil, service.WrapStoreError("get contract", err)
	}
	return contract, nil
}

// UpdateContract applies field updates. A status change goes through the
// status machine and moves the main card to the column the status maps to.
func (e *engineImpl) UpdateContract(ctx context.Context, id int64, update entity.ContractUpdate, actorID int64) (*entity.Contract, error) {
	if update.IsEmpty() {
		return nil, service.NewValidationError("update", "no fields to update")
	}
	if err := validateUpdate(update); err != nil {
		return nil, err
	}

	var oldPath, newPath string
	var statusChanged bool

	err := e.inTx(ctx, "update contract", func(txCtx context.Context) error {
		contract, err := e.repos.Contracts.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		oldPath = contract.FolderPath
		update.Apply(contract)

		if update.Status != nil && *update.Status != contract.Status {
			target := domainwf.State(*update.Status)
			if err := e.changeStatus(txCtx, contract, target, actorID); err != nil {
				return err
			}
			statusChanged = true

			if column, ok := domainwf.ColumnForStatus(target); ok {
				card, err := e.repos.Cards.GetByContract(txCtx, id, entity.PipelineMain)
				if err != nil {
					return err
				}
				if card.Column != column {
					if err := e.repos.Cards.UpdateColumn(txCtx, card.ID, column); err != nil {
						return err
					}
				}
			}
		}

		if path, ok := folder.PathFor(contract); ok {
			contract.FolderPath = path
		}
		newPath = contract.FolderPath

		return e.repos.Contracts.Update(txCtx, contract)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Contract updated", "contract_id", id, "status_changed", statusChanged)

	if update.TouchesDates() {
		e.recomputeDeadline(ctx, id)
	}
	e.scheduleFolder(ctx, id, oldPath, newPath)
	if statusChanged {
		e.dispatch(ctx, event.NewEvent(event.TypeStatusChanged, id, 0, map[string]interface{}{
			"new_status": *update.Status,
		}))
	}

	return e.GetContract(ctx, id)
}

// DeleteContract removes a contract with everything that cascades from it
// and schedules removal of its folder
func (e *engineImpl) DeleteContract(ctx context.Context, id int64) error {
	var path string
	err := e.inTx(ctx, "delete contract", func(txCtx context.Context) error {
		contract, err := e.repos.Contracts.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		path = contract.FolderPath
		return e.repos.Contracts.Delete(txCtx, id)
	})
	if err != nil {
		return err
	}

	e.logger.Info("Contract deleted", "contract_id", id)

	e.scheduleFolder(ctx, id, path, "")
	e.dispatch(ctx, event.NewEvent(event.TypeContractDeleted, id, 0, nil))
	return nil
}

func (e *engineImpl) GetHistory(ctx context.Context, contractID int64) ([]*entity.History, error) {
	if _, err := e.repos.Contracts.GetByID(ctx, contractID); err != nil {
		return nil, service.WrapStoreError("get history", err)
	}
	entries, err := e.repos.History.ListByContract(ctx, contractID)
	if err != nil {
		return nil, service.WrapStoreError("get history", err)
	}
	return entries, nil
}

func validateContract(c *entity.Contract) error {
	if err := utils.ValidateContractNumber(c.ContractNumber); err != nil {
		return service.NewValidationError("contract_number", "%v", err)
	}
	if !entity.IsValidClassification(c.Classification) {
		return service.NewValidationError("classification", "unknown classification %q", c.Classification)
	}
	if err := utils.ValidateArea(c.Area); err != nil {
		return service.NewValidationError("area", "%v", err)
	}
	if c.ContractPeriodMonths < 0 {
		return service.NewValidationError("contract_period_months", "must not be negative")
	}
	if !domainwf.State(c.Status).IsValid() {
		return service.NewValidationError("status", "unknown status %q", c.Status)
	}
	return nil
}

func validateUpdate(u entity.ContractUpdate) error {
	if u.Classification != nil && !entity.IsValidClassification(*u.Classification) {
		return service.NewValidationError("classification", "unknown classification %q", *u.Classification)
	}
	if u.Area != nil {
		if err := utils.ValidateArea(*u.Area); err != nil {
			return service.NewValidationError("area", "%v", err)
		}
	}
	if u.ContractPeriodMonths != nil && *u.ContractPeriodMonths < 0 {
		return service.NewValidationError("contract_period_months", "must not be negative")
	}
	if u.Status != nil && !domainwf.State(*u.Status).IsValid() {
		return service.NewValidationError("status", "unknown status %q", *u.Status)
	}
	return nil
}

func duplicateNumber(number string) error {
	return service.NewValidationError("contract_number", "contract %q already exists", number)
}
