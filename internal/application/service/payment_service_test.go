package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyjia/design-bureau/internal/domain/entity"
)

func floatPtr(f float64) *float64 { return &f }

func testRates() []entity.Rate {
	return []entity.Rate{
		{ID: 1, Classification: entity.ClassificationTemplate, Role: entity.RoleDesigner, AreaFrom: floatPtr(100), AreaTo: floatPtr(150), FixedPrice: 50000},
		{ID: 2, Classification: entity.ClassificationIndividual, Role: entity.RoleCoordinatingManager, PricePerM2: 100},
		{ID: 3, Classification: entity.ClassificationIndividual, Role: entity.RoleDesigner, Stage: "design", PricePerM2: 300},
	}
}

func newTestPaymentService(repo *memPaymentRepo, logger *mockLogger) PaymentService {
	clock := func() time.Time { return time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC) }
	return NewPaymentService(repo, &mockRateRepo{rates: testRates()}, &mockTxManager{}, logger, WithPaymentClock(clock))
}

func templateContract() *entity.Contract {
	return &entity.Contract{ID: 1, ContractNumber: "T-1", Classification: entity.ClassificationTemplate, Area: 120}
}

func individualContract() *entity.Contract {
	return &entity.Contract{ID: 2, ContractNumber: "I-1", Classification: entity.ClassificationIndividual, Area: 90}
}

func TestPaymentService_CreatePayment(t *testing.T) {
	tests := []struct {
		name        string
		req         PaymentRequest
		paymentType string
		wantAmount  float64
		wantMissing bool
		wantErr     error
	}{
		{
			name:        "template area range",
			req:         PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner, Stage: "design"},
			paymentType: entity.PaymentTypeFull,
			wantAmount:  50000,
		},
		{
			name:        "individual per square metre",
			req:         PaymentRequest{Contract: individualContract(), EmployeeID: 5, Role: entity.RoleDesigner, Stage: "design"},
			paymentType: entity.PaymentTypeFull,
			wantAmount:  27000,
		},
		{
			name:        "missing rate records zero",
			req:         PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDraftsperson, Stage: "drafting"},
			paymentType: entity.PaymentTypeFull,
			wantAmount:  0,
			wantMissing: true,
		},
		{
			name:        "inherited amount wins",
			req:         PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner, Stage: "design", Inherited: map[string]float64{entity.PaymentTypeFull: 42000}},
			paymentType: entity.PaymentTypeFull,
			wantAmount:  42000,
		},
		{
			name:        "missing contract",
			req:         PaymentRequest{EmployeeID: 5, Role: entity.RoleDesigner},
			paymentType: entity.PaymentTypeFull,
			wantErr:     ErrValidation,
		},
		{
			name:        "unknown payment type",
			req:         PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner},
			paymentType: "bonus",
			wantErr:     ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := &mockLogger{}
			svc := newTestPaymentService(&memPaymentRepo{}, logger)

			p, err := svc.CreatePayment(context.Background(), tt.req, tt.paymentType)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("CreatePayment() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreatePayment() error = %v", err)
			}
			if p.CalculatedAmount != tt.wantAmount {
				t.Errorf("CalculatedAmount = %v, want %v", p.CalculatedAmount, tt.wantAmount)
			}
			if p.FinalAmount != tt.wantAmount {
				t.Errorf("FinalAmount = %v, want %v", p.FinalAmount, tt.wantAmount)
			}
			if p.RateMissing != tt.wantMissing {
				t.Errorf("RateMissing = %v, want %v", p.RateMissing, tt.wantMissing)
			}
			if tt.wantMissing && len(logger.warns) == 0 {
				t.Error("expected a warning for the missing rate")
			}
		})
	}
}

func TestPaymentService_CreatePaymentIsIdempotent(t *testing.T) {
	repo := &memPaymentRepo{}
	svc := newTestPaymentService(repo, &mockLogger{})
	req := PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner, Stage: "design"}

	first, err := svc.CreatePayment(context.Background(), req, entity.PaymentTypeFull)
	if err != nil {
		t.Fatalf("first CreatePayment() error = %v", err)
	}
	second, err := svc.CreatePayment(context.Background(), req, entity.PaymentTypeFull)
	if err != nil {
		t.Fatalf("second CreatePayment() error = %v", err)
	}
	if first.ID != second.ID {
		t.Errorf("second call returned id %d, want %d", second.ID, first.ID)
	}
	if got := len(repo.active()); got != 1 {
		t.Errorf("active payments = %d, want 1", got)
	}
}

func TestPaymentService_CreateRolePayments(t *testing.T) {
	repo := &memPaymentRepo{}
	svc := newTestPaymentService(repo, &mockLogger{})

	payments, err := svc.CreateRolePayments(context.Background(), PaymentRequest{
		Contract:   individualContract(),
		EmployeeID: 9,
		Role:       entity.RoleCoordinatingManager,
	})
	if err != nil {
		t.Fatalf("CreateRolePayments() error = %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(payments))
	}

	got := map[string]float64{}
	for _, p := range payments {
		got[p.PaymentType] = p.CalculatedAmount
	}
	if got[entity.PaymentTypeAdvance] != 4500 || got[entity.PaymentTypeCompletion] != 4500 {
		t.Errorf("split amounts = %v, want 4500 each", got)
	}

	single, err := svc.CreateRolePayments(context.Background(), PaymentRequest{
		Contract:   templateContract(),
		EmployeeID: 9,
		Role:       entity.RoleDesigner,
		Stage:      "design",
	})
	if err != nil {
		t.Fatalf("CreateRolePayments() error = %v", err)
	}
	if len(single) != 1 || single[0].PaymentType != entity.PaymentTypeFull {
		t.Errorf("designer payments = %+v, want one full payment", single)
	}
}

func TestPaymentService_SupersedeChain(t *testing.T) {
	repo := &memPaymentRepo{}
	svc := newTestPaymentService(repo, &mockLogger{})
	ctx := context.Background()
	contract := templateContract()

	create := func(employeeID int64, inherited map[string]float64) *entity.Payment {
		t.Helper()
		p, err := svc.CreatePayment(ctx, PaymentRequest{
			Contract: contract, EmployeeID: employeeID, Role: entity.RoleDesigner, Stage: "design", Inherited: inherited,
		}, entity.PaymentTypeFull)
		if err != nil {
			t.Fatalf("CreatePayment(%d) error = %v", employeeID, err)
		}
		return p
	}

	a := create(1, nil)

	inherited, err := svc.Supersede(ctx, contract.ID, "design", entity.RoleDesigner, 1)
	if err != nil {
		t.Fatalf("Supersede(A) error = %v", err)
	}
	if inherited[entity.PaymentTypeFull] != 50000 {
		t.Errorf("inherited = %v, want 50000", inherited)
	}
	b := create(2, inherited)

	inherited, err = svc.Supersede(ctx, contract.ID, "design", entity.RoleDesigner, 2)
	if err != nil {
		t.Fatalf("Supersede(B) error = %v", err)
	}
	create(3, inherited)

	aAfter, _ := repo.GetByID(ctx, a.ID)
	bAfter, _ := repo.GetByID(ctx, b.ID)
	if !aAfter.Reassigned || !bAfter.Reassigned {
		t.Errorf("A reassigned = %v, B reassigned = %v, want both true", aAfter.Reassigned, bAfter.Reassigned)
	}

	active := repo.active()
	if len(active) != 1 || active[0].EmployeeID != 3 {
		t.Errorf("active payments = %+v, want only C", active)
	}
	if active[0].CalculatedAmount != 50000 {
		t.Errorf("C amount = %v, want preserved 50000", active[0].CalculatedAmount)
	}
}

func TestPaymentService_Release(t *testing.T) {
	repo := &memPaymentRepo{}
	svc := newTestPaymentService(repo, &mockLogger{})
	ctx := context.Background()

	p, err := svc.CreatePayment(ctx, PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner, Stage: "design"}, entity.PaymentTypeFull)
	if err != nil {
		t.Fatalf("CreatePayment() error = %v", err)
	}

	n, err := svc.Release(ctx, 1, "design", 5)
	if err != nil {
		t.Fatalf("Release() error = %v", err)
	}
	if n != 1 {
		t.Errorf("released = %d, want 1", n)
	}

	got, _ := repo.GetByID(ctx, p.ID)
	if got.Status != entity.PaymentStatusToPay || got.ReportMonth != "2025-03" {
		t.Errorf("payment = %s/%s, want to_pay/2025-03", got.Status, got.ReportMonth)
	}
}

func TestPaymentService_MarkPaid(t *testing.T) {
	ctx := context.Background()

	t.Run("fills report month", func(t *testing.T) {
		repo := &memPaymentRepo{}
		svc := newTestPaymentService(repo, &mockLogger{})
		p, _ := svc.CreatePayment(ctx, PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner}, entity.PaymentTypeFull)

		paid, err := svc.MarkPaid(ctx, p.ID, 77)
		if err != nil {
			t.Fatalf("MarkPaid() error = %v", err)
		}
		if paid.Status != entity.PaymentStatusPaid || paid.ReportMonth != "2025-03" {
			t.Errorf("payment = %s/%s, want paid/2025-03", paid.Status, paid.ReportMonth)
		}
		if paid.PaidBy == nil || *paid.PaidBy != 77 {
			t.Errorf("PaidBy = %v, want 77", paid.PaidBy)
		}
	})

	t.Run("cancelled payment is rejected", func(t *testing.T) {
		repo := &memPaymentRepo{}
		svc := newTestPaymentService(repo, &mockLogger{})
		p, _ := svc.CreatePayment(ctx, PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner}, entity.PaymentTypeFull)
		if _, err := svc.Cancel(ctx, p.ID); err != nil {
			t.Fatalf("Cancel() error = %v", err)
		}

		if _, err := svc.MarkPaid(ctx, p.ID, 77); !errors.Is(err, ErrValidation) {
			t.Errorf("MarkPaid() error = %v, want validation error", err)
		}
	})

	t.Run("unknown payment", func(t *testing.T) {
		svc := newTestPaymentService(&memPaymentRepo{}, &mockLogger{})
		if _, err := svc.MarkPaid(ctx, 404, 77); !errors.Is(err, ErrNotFound) {
			t.Errorf("MarkPaid() error = %v, want not found", err)
		}
	})
}

func TestPaymentService_SetManualAmount(t *testing.T) {
	repo := &memPaymentRepo{}
	svc := newTestPaymentService(repo, &mockLogger{})
	ctx := context.Background()
	p, _ := svc.CreatePayment(ctx, PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner}, entity.PaymentTypeFull)

	got, err := svc.SetManualAmount(ctx, p.ID, floatPtr(61000))
	if err != nil {
		t.Fatalf("SetManualAmount() error = %v", err)
	}
	if got.FinalAmount != 61000 {
		t.Errorf("FinalAmount = %v, want 61000", got.FinalAmount)
	}

	got, err = svc.SetManualAmount(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("SetManualAmount(nil) error = %v", err)
	}
	if got.FinalAmount != 50000 {
		t.Errorf("FinalAmount = %v, want calculated 50000", got.FinalAmount)
	}

	if _, err := svc.SetManualAmount(ctx, p.ID, floatPtr(-1)); !errors.Is(err, ErrValidation) {
		t.Errorf("negative amount error = %v, want validation error", err)
	}
}

func TestPaymentService_StoreFailureIsTransactionError(t *testing.T) {
	repo := &memPaymentRepo{createErr: errors.New("disk I/O error")}
	svc := newTestPaymentService(repo, &mockLogger{})

	_, err := svc.CreatePayment(context.Background(), PaymentRequest{Contract: templateContract(), EmployeeID: 5, Role: entity.RoleDesigner}, entity.PaymentTypeFull)
	if !errors.Is(err, ErrTransaction) {
		t.Errorf("CreatePayment() error = %v, want transaction error", err)
	}
}
