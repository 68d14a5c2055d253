package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/garyjia/design-bureau/internal/application/port"
	"github.com/garyjia/design-bureau/internal/domain/entity"
	"github.com/garyjia/design-bureau/internal/domain/pricing"
)

// Logger defines the logging interface used by services
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ReportMonthLayout formats Payment.ReportMonth
const ReportMonthLayout = "2006-01"

// PaymentRequest describes the work a payment is owed for
type PaymentRequest struct {
	Contract      *entity.Contract
	CardID        *int64
	EmployeeID    int64
	Role          string
	Stage         string
	IsSupervision bool

	// Inherited carries calculated amounts per payment type taken over from
	// superseded payments. Types without an entry are priced from the rate table.
	Inherited map[string]float64
}

// PaymentService owns payment creation and the one-active-payment-per-key rule
type PaymentService interface {
	// CreatePayment returns the existing non-reassigned payment for the key or inserts a new one
	CreatePayment(ctx context.Context, req PaymentRequest, paymentType string) (*entity.Payment, error)

	// CreateRolePayments creates every payment type the role is paid in
	CreateRolePayments(ctx context.Context, req PaymentRequest) ([]*entity.Payment, error)

	// Supersede marks the employee's active payments reassigned and returns
	// their calculated amounts keyed by payment type
	Supersede(ctx context.Context, contractID int64, stage, role string, employeeID int64) (map[string]float64, error)

	// Release moves pending payments of an accepted stage to to_pay
	Release(ctx context.Context, contractID int64, stage string, employeeID int64) (int64, error)

	GetPaymentsForContract(ctx context.Context, contractID int64) ([]*entity.Payment, error)
	MarkPaid(ctx context.Context, paymentID, paidBy int64) (*entity.Payment, error)
	SetManualAmount(ctx context.Context, paymentID int64, amount *float64) (*entity.Payment, error)
	Cancel(ctx context.Context, paymentID int64) (*entity.Payment, error)
}

type paymentServiceImpl struct {
	paymentRepo port.PaymentRepository
	rateRepo    port.RateRepository
	txManager   port.TransactionManager
	logger      Logger
	now         func() time.Time
}

// PaymentOption configures the payment service
type PaymentOption func(*paymentServiceImpl)

// WithPaymentClock overrides the clock used for report months and paid timestamps
func WithPaymentClock(now func() time.Time) PaymentOption {
	return func(s *paymentServiceImpl) {
		s.now = now
	}
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(
	paymentRepo port.PaymentRepository,
	rateRepo port.RateRepository,
	txManager port.TransactionManager,
	logger Logger,
	opts ...PaymentOption,
) PaymentService {
	s := &paymentServiceImpl{
		paymentRepo: paymentRepo,
		rateRepo:    rateRepo,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PaymentTypesFor lists the payment types a role is paid in.
// The coordinating manager is paid half up front and half on completion.
func PaymentTypesFor(role string) []string {
	if role == entity.RoleCoordinatingManager {
		return []string{entity.PaymentTypeAdvance, entity.PaymentTypeCompletion}
	}
	return []string{entity.PaymentTypeFull}
}

func (s *paymentServiceImpl) CreatePayment(ctx context.Context, req PaymentRequest, paymentType string) (*entity.Payment, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}
	if !entity.IsValidPaymentType(paymentType) {
		return nil, NewValidationError("payment_type", "unknown payment type %q", paymentType)
	}

	var payment *entity.Payment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		key := entity.PaymentKey{
			ContractID:  req.Contract.ID,
			StageName:   req.Stage,
			Role:        req.Role,
			EmployeeID:  req.EmployeeID,
			PaymentType: paymentType,
		}

		existing, err := s.paymentRepo.FindActive(txCtx, key)
		if err == nil {
			payment = existing
			return nil
		}
		if !errors.Is(err, port.ErrNotFound) {
			return fmt.Errorf("find active payment: %w", err)
		}

		amount, missing, err := s.amountFor(txCtx, req, paymentType)
		if err != nil {
			return err
		}

		payment = &entity.Payment{
			ContractID:       req.Contract.ID,
			CardID:           req.CardID,
			EmployeeID:       req.EmployeeID,
			Role:             req.Role,
			StageName:        req.Stage,
			CalculatedAmount: amount,
			PaymentType:      paymentType,
			Status:           entity.PaymentStatusPending,
			RateMissing:      missing,
		}
		if err := s.paymentRepo.Create(txCtx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create payment",
			"error", err,
			"contract_id", req.Contract.ID,
			"employee_id", req.EmployeeID,
			"role", req.Role,
			"stage", req.Stage,
			"payment_type", paymentType,
		)
		return nil, WrapStoreError("create payment", err)
	}
	return payment, nil
}

func (s *paymentServiceImpl) CreateRolePayments(ctx context.Context, req PaymentRequest) ([]*entity.Payment, error) {
	var payments []*entity.Payment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		for _, paymentType := range PaymentTypesFor(req.Role) {
			p, err := s.CreatePayment(txCtx, req, paymentType)
			if err != nil {
				return err
			}
			payments = append(payments, p)
		}
		return nil
	})
	if err != nil {
		return nil, WrapStoreError("create role payments", err)
	}
	return payments, nil
}

// amountFor prices one payment type. Advance and completion rows carry
// half of the role amount each.
func (s *paymentServiceImpl) amountFor(ctx context.Context, req PaymentRequest, paymentType string) (float64, bool, error) {
	if amount, ok := req.Inherited[paymentType]; ok {
		return amount, false, nil
	}

	rates, err := s.rateRepo.ListByRole(ctx, req.Role)
	if err != nil {
		return 0, false, fmt.Errorf("list rates: %w", err)
	}

	result := pricing.Calculate(pricing.Query{
		Classification: req.Contract.Classification,
		Role:           req.Role,
		Stage:          req.Stage,
		Area:           req.Contract.Area,
		City:           req.Contract.City,
		IsSupervision:  req.IsSupervision,
	}, rates)

	if result.Missing {
		s.logger.Warn("No rate found, recording zero payment",
			"contract_id", req.Contract.ID,
			"classification", req.Contract.Classification,
			"role", req.Role,
			"stage", req.Stage,
			"area", req.Contract.Area,
		)
		return 0, true, nil
	}

	amount := result.Amount
	switch paymentType {
	case entity.PaymentTypeAdvance:
		amount, _ = pricing.Split(result.Amount)
	case entity.PaymentTypeCompletion:
		_, amount = pricing.Split(result.Amount)
	}
	return amount, false, nil
}

func (s *paymentServiceImpl) Supersede(ctx context.Context, contractID int64, stage, role string, employeeID int64) (map[string]float64, error) {
	inherited := make(map[string]float64)
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		active, err := s.paymentRepo.ListActiveFor(txCtx, contractID, stage, role, employeeID)
		if err != nil {
			return fmt.Errorf("list active payments: %w", err)
		}
		for _, p := range active {
			if p.RateMissing {
				continue
			}
			inherited[p.PaymentType] = p.CalculatedAmount
		}

		n, err := s.paymentRepo.MarkReassigned(txCtx, contractID, stage, role, employeeID)
		if err != nil {
			return fmt.Errorf("mark payments reassigned: %w", err)
		}
		s.logger.Info("Payments superseded",
			"contract_id", contractID,
			"stage", stage,
			"role", role,
			"employee_id", employeeID,
			"count", n,
		)
		return nil
	})
	if err != nil {
		return nil, WrapStoreError("supersede payments", err)
	}
	return inherited, nil
}

func (s *paymentServiceImpl) Release(ctx context.Context, contractID int64, stage string, employeeID int64) (int64, error) {
	month := s.now().Format(ReportMonthLayout)
	n, err := s.paymentRepo.Release(ctx, contractID, stage, employeeID, month)
	if err != nil {
		return 0, WrapStoreError("release payments", err)
	}
	if n > 0 {
		s.logger.Info("Payments released",
			"contract_id", contractID,
			"stage", stage,
			"employee_id", employeeID,
			"report_month", month,
			"count", n,
		)
	}
	return n, nil
}

func (s *paymentServiceImpl) GetPaymentsForContract(ctx context.Context, contractID int64) ([]*entity.Payment, error) {
	payments, err := s.paymentRepo.ListByContract(ctx, contractID)
	if err != nil {
		return nil, WrapStoreError("list payments", err)
	}
	return payments, nil
}

func (s *paymentServiceImpl) MarkPaid(ctx context.Context, paymentID, paidBy int64) (*entity.Payment, error) {
	if paidBy <= 0 {
		return nil, NewValidationError("paid_by", "must be a positive employee id")
	}

	var payment *entity.Payment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}
		switch p.Status {
		case entity.PaymentStatusPaid:
			payment = p
			return nil
		case entity.PaymentStatusCancelled:
			return NewValidationError("status", "payment %d is cancelled", paymentID)
		}

		at := s.now()
		if err := s.paymentRepo.MarkPaid(txCtx, paymentID, paidBy, at, at.Format(ReportMonthLayout)); err != nil {
			return err
		}
		payment, err = s.paymentRepo.GetByID(txCtx, paymentID)
		return err
	})
	if err != nil {
		return nil, WrapStoreError("mark payment paid", err)
	}

	s.logger.Info("Payment marked paid", "payment_id", paymentID, "paid_by", paidBy)
	return payment, nil
}

func (s *paymentServiceImpl) SetManualAmount(ctx context.Context, paymentID int64, amount *float64) (*entity.Payment, error) {
	if amount != nil && *amount < 0 {
		return nil, NewValidationError("manual_amount", "must not be negative")
	}

	var payment *entity.Payment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == entity.PaymentStatusPaid {
			return NewValidationError("status", "payment %d is already paid", paymentID)
		}
		if err := s.paymentRepo.SetManualAmount(txCtx, paymentID, amount); err != nil {
			return err
		}
		payment, err = s.paymentRepo.GetByID(txCtx, paymentID)
		return err
	})
	if err != nil {
		return nil, WrapStoreError("set manual amount", err)
	}
	return payment, nil
}

func (s *paymentServiceImpl) Cancel(ctx context.Context, paymentID int64) (*entity.Payment, error) {
	var payment *entity.Payment
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		p, err := s.paymentRepo.GetByID(txCtx, paymentID)
		if err != nil {
			return err
		}
		if p.Status == entity.PaymentStatusPaid {
			return NewValidationError("status", "payment %d is already paid", paymentID)
		}
		if err := s.paymentRepo.UpdateStatus(txCtx, paymentID, entity.PaymentStatusCancelled); err != nil {
			return err
		}
		p.Status = entity.PaymentStatusCancelled
		payment = p
		return nil
	})
	if err != nil {
		return nil, WrapStoreError("cancel payment", err)
	}

	s.logger.Info("Payment cancelled", "payment_id", paymentID)
	return payment, nil
}

func validatePaymentRequest(req PaymentRequest) error {
	switch {
	case req.Contract == nil:
		return NewValidationError("contract", "is required")
	case req.EmployeeID <= 0:
		return NewValidationError("employee_id", "must be a positive id")
	case req.Role == "":
		return NewValidationError("role", "is required")
	}
	return nil
}
