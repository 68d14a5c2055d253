package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/design-bureau/internal/application/dispatcher"
	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/domain/deadline"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/domain/event"
	domainwf "github.com/garyjia/design-bureau/internal/domain/workflow"
)

// Repositories groups the stores the engine works on
type Repositories struct {
	Contracts   port.ContractRepository
	Cards       port.CardRepository
	Assignments port.AssignmentRepository
	Employees   port.EmployeeRepository
	History     port.HistoryRepository
}

// engineImpl is the concrete implementation of WorkflowEngine
type engineImpl struct {
	repos     Repositories
	payments  service.PaymentService
	txManager port.TransactionManager

	dispatcher dispatcher.Dispatcher
	folderSync port.FolderSynchronizer
	logger     service.Logger
	now        func() time.Time
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithDispatcher sets the event dispatcher for emitting events
func WithDispatcher(d dispatcher.Dispatcher) EngineOption {
	return func(e *engineImpl) {
		e.dispatcher = d
	}
}

// WithFolderSync sets the synchronizer that receives folder jobs
func WithFolderSync(s port.FolderSynchronizer) EngineOption {
	return func(e *engineImpl) {
		e.folderSync = s
	}
}

// WithLogger sets the engine logger
func WithLogger(l service.Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = l
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// NewEngine creates a new workflow engine
func NewEngine(
	repos Repositories,
	payments service.PaymentService,
	txManager port.TransactionManager,
	opts ...EngineOption,
) WorkflowEngine {
	e := &engineImpl{
		repos:     repos,
		payments:  payments,
		txManager: txManager,
		logger:    nopLogger{},
		now:       time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// inTx runs fn in one transaction and classifies the error for callers
func (e *engineImpl) inTx(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	err := e.txManager.WithTransaction(ctx, fn)
	if err == nil {
		return nil
	}
	if !errors.Is(err, service.ErrValidation) && !errors.Is(err, service.ErrNotFound) {
		e.logger.Error("Operation rolled back", "op", op, "error", err)
	}
	return service.WrapStoreError(op, err)
}

func (e *engineImpl) record(ctx context.Context, contractID int64, cardID *int64, action string, actorID int64, details interface{}) error {
	h := &entity.History{
		ContractID: contractID,
		CardID:     cardID,
		Action:     action,
		CreatedAt:  e.now(),
	}
	if actorID > 0 {
		h.ActorID = &actorID
	}
	if details != nil {
		raw, err := json.Marshal(details)
		if err != nil {
			return fmt.Errorf("marshal history details: %w", err)
		}
		h.Details = string(raw)
	}
	if err := e.repos.History.Create(ctx, h); err != nil {
		return fmt.Errorf("create history: %w", err)
	}
	return nil
}

// changeStatus validates and applies a status transition on c. The caller persists c.
func (e *engineImpl) changeStatus(ctx context.Context, c *entity.Contract, to domainwf.State, actorID int64) error {
	from := domainwf.State(c.Status)
	if err := domainwf.Transition(ctx, from, to); err != nil {
		return service.NewValidationError("status", "%s -> %s: %v", from, to, err)
	}

	c.Status = string(to)
	if to.StampsChangeTime() && c.StatusChangedAt == nil {
		at := e.now()
		c.StatusChangedAt = &at
	}

	if to == domainwf.StateUnderSupervision {
		if err := e.ensureSupervisionCard(ctx, c.ID); err != nil {
			return err
		}
	}

	return e.record(ctx, c.ID, nil, entity.ActionStatusChanged, actorID, map[string]string{
		"from": string(from),
		"to":   string(to),
	})
}

// ensureSupervisionCard creates the supervision card or resets an existing one to its first column
func (e *engineImpl) ensureSupervisionCard(ctx context.Context, contractID int64) error {
	pipeline, err := domainwf.PipelineByName(entity.PipelineSupervision)
	if err != nil {
		return err
	}
	initial := pipeline.Initial().Name

	card, err := e.repos.Cards.GetByContract(ctx, contractID, entity.PipelineSupervision)
	switch {
	case err == nil:
		if card.Column == initial {
			return nil
		}
		if err := e.repos.Cards.UpdateColumn(ctx, card.ID, initial); err != nil {
			return fmt.Errorf("reset supervision card: %w", err)
		}
		return nil
	case errors.Is(err, port.ErrNotFound):
		card = &entity.Card{ContractID: contractID, Pipeline: entity.PipelineSupervision, Column: initial}
		if err := e.repos.Cards.Create(ctx, card); err != nil {
			return fmt.Errorf("create supervision card: %w", err)
		}
		e.logger.Info("Supervision card created", "contract_id", contractID, "card_id", card.ID)
		return nil
	default:
		return fmt.Errorf("get supervision card: %w", err)
	}
}

// loadCardColumn returns the card with its pipeline vocabulary and the named column
func (e *engineImpl) loadCardColumn(ctx context.Context, cardID int64, column string) (*entity.Card, *domainwf.Pipeline, domainwf.Column, error) {
	card, err := e.repos.Cards.GetByID(ctx, cardID)
	if err != nil {
		return nil, nil, domainwf.Column{}, err
	}
	pipeline, err := domainwf.PipelineByName(card.Pipeline)
	if err != nil {
		return nil, nil, domainwf.Column{}, fmt.Errorf("card %d: %w", cardID, err)
	}
	col, err := pipeline.Column(column)
	if err != nil {
		return nil, nil, domainwf.Column{}, service.NewValidationError("column", "%v", err)
	}
	return card, pipeline, col, nil
}

func (e *engineImpl) dispatch(ctx context.Context, evt *event.Event) {
	if e.dispatcher == nil {
		return
	}
	e.dispatcher.DispatchAsync(ctx, evt)
}

// createRolePayments runs after the assignment has committed, in the payment
// service's own transaction. Failures are logged only; the assignment stands.
func (e *engineImpl) createRolePayments(ctx context.Context, req service.PaymentRequest) {
	if req.Contract == nil {
		return
	}
	if _, err := e.payments.CreateRolePayments(ctx, req); err != nil {
		e.logger.Error("Failed to create role payments",
			"contract_id", req.Contract.ID,
			"employee_id", req.EmployeeID,
			"role", req.Role,
			"stage", req.Stage,
			"error", err,
		)
	}
}

// recomputeDeadline refreshes the main card deadline. Failures are logged only.
func (e *engineImpl) recomputeDeadline(ctx context.Context, contractID int64) {
	contract, err := e.repos.Contracts.GetByID(ctx, contractID)
	if err != nil {
		e.logger.Error("Deadline recompute: failed to get contract", "contract_id", contractID, "error", err)
		return
	}

	due, ok := deadline.Calculate(deadline.Input{
		ContractDate: contract.ContractDate,
		SurveyDate:   contract.SurveyDate,
		TechTaskDate: contract.TechTaskDate,
		PeriodMonths: contract.ContractPeriodMonths,
	})
	if !ok {
		return
	}

	card, err := e.repos.Cards.GetByContract(ctx, contractID, entity.PipelineMain)
	if err != nil {
		e.logger.Error("Deadline recompute: failed to get main card", "contract_id", contractID, "error", err)
		return
	}
	if card.Deadline != nil && card.Deadline.Equal(due) {
		return
	}
	if err := e.repos.Cards.UpdateDeadline(ctx, card.ID, &due); err != nil {
		e.logger.Error("Deadline recompute: failed to store deadline", "card_id", card.ID, "error", err)
	}
}

// scheduleFolder hands a folder job to the synchronizer. Failures are logged only.
func (e *engineImpl) scheduleFolder(ctx context.Context, contractID int64, oldPath, newPath string) {
	if e.folderSync == nil || oldPath == newPath {
		return
	}

	job := &entity.FolderJob{ContractID: contractID, OldPath: oldPath, NewPath: newPath}
	switch {
	case oldPath == "":
		job.Kind = entity.FolderJobCreate
	case newPath == "":
		job.Kind = entity.FolderJobDelete
	default:
		job.Kind = entity.FolderJobRelocate
	}

	if err := e.folderSync.Submit(context.WithoutCancel(ctx), job); err != nil {
		e.logger.Error("Failed to schedule folder job",
			"contract_id", contractID,
			"kind", job.Kind,
			"old_path", oldPath,
			"new_path", newPath,
			"error", err,
		)
	}
}

func cardRef(id int64) *int64 {
	return &id
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
