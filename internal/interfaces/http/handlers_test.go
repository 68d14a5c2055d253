package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/application/workflow"
	"github.com/garyjia/design-bureau/internal/domain/entity"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}

// stubEngine overrides the engine methods a test needs; the rest panic
type stubEngine struct {
	workflow.WorkflowEngine

	createContract func(ctx context.Context, c *entity.Contract, actorID int64) (*entity.Contract, error)
	getContract    func(ctx context.Context, id int64) (*entity.Contract, error)
	moveCard       func(ctx context.Context, cardID int64, column string, actorID int64) (*entity.Card, error)
	assignExecutor func(ctx context.Context, req workflow.AssignExecutorRequest) (*entity.StageAssignment, error)
	updateContract func(ctx context.Context, id int64, u entity.ContractUpdate, actorID int64) (*entity.Contract, error)
}

func (s *stubEngine) CreateContract(ctx context.Context, c *entity.Contract, actorID int64) (*entity.Contract, error) {
	return s.createContract(ctx, c, actorID)
}

func (s *stubEngine) GetContract(ctx context.Context, id int64) (*entity.Contract, error) {
	return s.getContract(ctx, id)
}

func (s *stubEngine) MoveCard(ctx context.Context, cardID int64, column string, actorID int64) (*entity.Card, error) {
	return s.moveCard(ctx, cardID, column, actorID)
}

func (s *stubEngine) AssignExecutor(ctx context.Context, req workflow.AssignExecutorRequest) (*entity.StageAssignment, error) {
	return s.assignExecutor(ctx, req)
}

func (s *stubEngine) UpdateContract(ctx context.Context, id int64, u entity.ContractUpdate, actorID int64) (*entity.Contract, error) {
	return s.updateContract(ctx, id, u, actorID)
}

type stubPayments struct {
	service.PaymentService

	payments      []*entity.Payment
	markPaid      func(ctx context.Context, id, paidBy int64) (*entity.Payment, error)
	manualAmounts []*float64
}

func (s *stubPayments) GetPaymentsForContract(ctx context.Context, contractID int64) ([]*entity.Payment, error) {
	return s.payments, nil
}

func (s *stubPayments) MarkPaid(ctx context.Context, id, paidBy int64) (*entity.Payment, error) {
	return s.markPaid(ctx, id, paidBy)
}

func (s *stubPayments) SetManualAmount(ctx context.Context, id int64, amount *float64) (*entity.Payment, error) {
	s.manualAmounts = append(s.manualAmounts, amount)
	return &entity.Payment{ID: id, ManualAmount: amount}, nil
}

type stubRetrier struct{ n int }

func (s stubRetrier) RetryFailed(ctx context.Context) (int, error) { return s.n, nil }

func do(t *testing.T, srv *Server, method, path string, body interface{}, headers ...string) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)

	var resp Response
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	}
	return w, resp
}

func newTestServer(engine workflow.WorkflowEngine, payments service.PaymentService, folders FolderRetrier) *Server {
	return NewServer(DefaultServerConfig(), engine, payments, folders, nopLogger{})
}

func TestHealthCheck(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubPayments{}, nil)
	w, resp := do(t, srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)
}

func TestCreateContract(t *testing.T) {
	var gotActor int64
	engine := &stubEngine{
		createContract: func(ctx context.Context, c *entity.Contract, actorID int64) (*entity.Contract, error) {
			gotActor = actorID
			c.ID = 7
			return c, nil
		},
	}
	srv := newTestServer(engine, &stubPayments{}, nil)

	w, resp := do(t, srv, http.MethodPost, "/api/contracts",
		map[string]interface{}{"contract_number": "DP-1", "classification": "template", "area": 50},
		ActorHeader, "3")
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, resp.Success)
	assert.Equal(t, int64(3), gotActor)

	data := resp.Data.(map[string]interface{})
	assert.Equal(t, float64(7), data["id"])
	assert.Equal(t, "DP-1", data["contract_number"])
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		retry  bool
	}{
		{name: "validation", err: service.NewValidationError("column", "unknown column %q", "x"), status: http.StatusBadRequest},
		{name: "not found", err: fmt.Errorf("card 9: %w", service.ErrNotFound), status: http.StatusNotFound},
		{name: "transaction", err: service.WrapStoreError("move card", errors.New("database is locked")), status: http.StatusServiceUnavailable, retry: true},
		{name: "unexpected", err: errors.New("boom"), status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubEngine{
				moveCard: func(ctx context.Context, cardID int64, column string, actorID int64) (*entity.Card, error) {
					return nil, tt.err
				},
			}
			srv := newTestServer(engine, &stubPayments{}, nil)

			w, resp := do(t, srv, http.MethodPost, "/api/cards/9/move", MoveCardRequest{Column: "x"})
			assert.Equal(t, tt.status, w.Code)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.retry, resp.Retry)
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestBadRequests(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubPayments{}, nil)

	tests := []struct {
		name   string
		method string
		path   string
		body   interface{}
	}{
		{name: "non numeric id", method: http.MethodGet, path: "/api/contracts/abc"},
		{name: "negative id", method: http.MethodGet, path: "/api/cards/-1"},
		{name: "malformed json", method: http.MethodPost, path: "/api/cards/1/move", body: "{"},
		{name: "missing column", method: http.MethodPost, path: "/api/cards/1/move", body: map[string]string{}},
		{name: "missing paid_by", method: http.MethodPost, path: "/api/payments/1/paid", body: map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, resp := do(t, srv, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.False(t, resp.Success)
		})
	}
}

func TestAssignExecutor_UsesPathAndActor(t *testing.T) {
	var got workflow.AssignExecutorRequest
	engine := &stubEngine{
		assignExecutor: func(ctx context.Context, req workflow.AssignExecutorRequest) (*entity.StageAssignment, error) {
			got = req
			return &entity.StageAssignment{ID: 1, CardID: req.CardID, StageName: req.Stage, ExecutorID: req.EmployeeID}, nil
		},
	}
	srv := newTestServer(engine, &stubPayments{}, nil)

	w, _ := do(t, srv, http.MethodPost, "/api/cards/12/executors",
		map[string]interface{}{"stage": "design", "employee_id": 4, "deadline": "2025-03-01T00:00:00Z"},
		ActorHeader, "2")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(12), got.CardID)
	assert.Equal(t, int64(2), got.ManagerID)
	require.NotNil(t, got.Deadline)
	assert.Equal(t, 2025, got.Deadline.Year())
}

func TestUpdateContract_PartialFields(t *testing.T) {
	var got entity.ContractUpdate
	engine := &stubEngine{
		updateContract: func(ctx context.Context, id int64, u entity.ContractUpdate, actorID int64) (*entity.Contract, error) {
			got = u
			return &entity.Contract{ID: id}, nil
		},
	}
	srv := newTestServer(engine, &stubPayments{}, nil)

	w, _ := do(t, srv, http.MethodPatch, "/api/contracts/5", map[string]interface{}{"city": "Kazan", "status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, got.City)
	assert.Equal(t, "Kazan", *got.City)
	require.NotNil(t, got.Status)
	assert.Nil(t, got.Area)
}

func TestPayments(t *testing.T) {
	payments := &stubPayments{
		payments: []*entity.Payment{{ID: 1, ContractID: 5, FinalAmount: 4500}},
		markPaid: func(ctx context.Context, id, paidBy int64) (*entity.Payment, error) {
			return &entity.Payment{ID: id, Status: entity.PaymentStatusPaid, PaidBy: &paidBy}, nil
		},
	}
	engine := &stubEngine{
		getContract: func(ctx context.Context, id int64) (*entity.Contract, error) {
			if id != 5 {
				return nil, service.ErrNotFound
			}
			return &entity.Contract{ID: id}, nil
		},
	}
	srv := newTestServer(engine, payments, nil)

	w, resp := do(t, srv, http.MethodGet, "/api/contracts/5/payments", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, resp.Data, 1)

	w, _ = do(t, srv, http.MethodGet, "/api/contracts/6/payments", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, resp = do(t, srv, http.MethodPost, "/api/payments/1/paid", MarkPaidRequest{PaidBy: 8})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, entity.PaymentStatusPaid, resp.Data.(map[string]interface{})["status"])

	w, _ = do(t, srv, http.MethodPut, "/api/payments/1/manual-amount", map[string]interface{}{"amount": nil})
	require.Equal(t, http.StatusOK, w.Code)
	w, _ = do(t, srv, http.MethodPut, "/api/payments/1/manual-amount", map[string]interface{}{"amount": 1200.5})
	require.Equal(t, http.StatusOK, w.Code)

	require.Len(t, payments.manualAmounts, 2)
	assert.Nil(t, payments.manualAmounts[0])
	require.NotNil(t, payments.manualAmounts[1])
	assert.Equal(t, 1200.5, *payments.manualAmounts[1])
}

func TestRecoversFromPanics(t *testing.T) {
	// GetCard is not stubbed and panics on the nil embedded interface
	srv := newTestServer(&stubEngine{}, &stubPayments{}, nil)
	w, _ := do(t, srv, http.MethodGet, "/api/cards/1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestFolderRetryRoute(t *testing.T) {
	srv := newTestServer(&stubEngine{}, &stubPayments{}, nil)
	w, _ := do(t, srv, http.MethodPost, "/api/folders/retry", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	srv = newTestServer(&stubEngine{}, &stubPayments{}, stubRetrier{n: 2})
	w, resp := do(t, srv, http.MethodPost, "/api/folders/retry", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(2), resp.Data.(map[string]interface{})["retried"])
}
