package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/design-bureau/internal/application/dispatcher"
	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/event"
)

// Payload keys of executor events
const (
	PayloadStage         = "stage_name"
	PayloadExecutorID    = "executor_id"
	PayloadOldExecutorID = "old_executor_id"
	PayloadDeadline      = "deadline"
)

// NotificationService tells executors about their assignments
type NotificationService interface {
	HandleExecutorAssigned(ctx context.Context, evt *event.Event) error
	HandleExecutorReassigned(ctx context.Context, evt *event.Event) error

	// Register subscribes the handlers on d
	Register(d dispatcher.Dispatcher)
}

type notificationServiceImpl struct {
	contractRepo  port.ContractRepository
	employeeRepo  port.EmployeeRepository
	messageSender port.MessageSender
	logger        Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	contractRepo port.ContractRepository,
	employeeRepo port.EmployeeRepository,
	messageSender port.MessageSender,
	logger Logger,
) NotificationService {
	return &notificationServiceImpl{
		contractRepo:  contractRepo,
		employeeRepo:  employeeRepo,
		messageSender: messageSender,
		logger:        logger,
	}
}

func (s *notificationServiceImpl) Register(d dispatcher.Dispatcher) {
	d.SubscribeNamed(event.TypeExecutorAssigned, "notify_executor_assigned", s.HandleExecutorAssigned)
	d.SubscribeNamed(event.TypeExecutorReassigned, "notify_executor_reassigned", s.HandleExecutorReassigned)
}

// HandleExecutorAssigned notifies the new executor
func (s *notificationServiceImpl) HandleExecutorAssigned(ctx context.Context, evt *event.Event) error {
	number, err := s.contractNumber(ctx, evt.ContractID)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("You have been assigned to stage %q of contract %s.%s",
		evt.GetPayloadString(PayloadStage), number, deadlineSuffix(evt))
	return s.notify(ctx, evt.GetPayloadInt(PayloadExecutorID), msg)
}

// HandleExecutorReassigned notifies both the incoming and the outgoing executor
func (s *notificationServiceImpl) HandleExecutorReassigned(ctx context.Context, evt *event.Event) error {
	number, err := s.contractNumber(ctx, evt.ContractID)
	if err != nil {
		return err
	}
	stage := evt.GetPayloadString(PayloadStage)

	incoming := fmt.Sprintf("Stage %q of contract %s has been handed over to you.%s",
		stage, number, deadlineSuffix(evt))
	if err := s.notify(ctx, evt.GetPayloadInt(PayloadExecutorID), incoming); err != nil {
		return err
	}

	outgoing := fmt.Sprintf("Stage %q of contract %s has been reassigned to another executor.", stage, number)
	return s.notify(ctx, evt.GetPayloadInt(PayloadOldExecutorID), outgoing)
}

func (s *notificationServiceImpl) contractNumber(ctx context.Context, contractID int64) (string, error) {
	contract, err := s.contractRepo.GetByID(ctx, contractID)
	if err != nil {
		s.logger.Error("Failed to get contract", "error", err, "contract_id", contractID)
		return "", fmt.Errorf("get contract: %w", err)
	}
	return contract.ContractNumber, nil
}

// notify sends content to an employee. Employees without a messenger
// account or no longer active are skipped.
func (s *notificationServiceImpl) notify(ctx context.Context, employeeID int64, content string) error {
	if employeeID <= 0 {
		return nil
	}

	employee, err := s.employeeRepo.GetByID(ctx, employeeID)
	if err != nil {
		s.logger.Error("Failed to get employee", "error", err, "employee_id", employeeID)
		return fmt.Errorf("get employee: %w", err)
	}
	if !employee.Active || employee.LarkOpenID == "" {
		s.logger.Info("Skipping notification", "employee_id", employeeID, "active", employee.Active)
		return nil
	}

	if err := s.messageSender.SendMessage(ctx, employee.LarkOpenID, content); err != nil {
		s.logger.Error("Failed to send message", "error", err, "employee_id", employeeID)
		return fmt.Errorf("send message: %w", err)
	}

	s.logger.Info("Notification sent", "employee_id", employeeID, "message_length", len(content))
	return nil
}

func deadlineSuffix(evt *event.Event) string {
	if d, ok := evt.GetPayloadTime(PayloadDeadline); ok {
		return " Deadline: " + d.Format(time.DateOnly) + "."
	}
	return ""
}
