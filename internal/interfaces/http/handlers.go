package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/design-bureau/internal/application/service"
	"github.com/garyjia/design-bureau/internal/application/workflow"
	"github.com/garyjia/design-bureau/internal/domain/entity"
)

// ActorHeader carries the id of the employee performing a request
const ActorHeader = "X-Employee-ID"

// Version is reported by the health check
const Version = "1.0.0"

// Handlers contains all HTTP request handlers
type Handlers struct {
	engine   workflow.WorkflowEngine
	payments service.PaymentService
	folders  FolderRetrier
	logger   Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(engine workflow.WorkflowEngine, payments service.PaymentService, folders FolderRetrier, logger Logger) *Handlers {
	return &Handlers{
		engine:   engine,
		payments: payments,
		folders:  folders,
		logger:   logger,
	}
}

// Response represents a standard JSON response
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
	Retry   bool        `json:"retry,omitempty"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Version   string `json:"version"`
}

// MoveCardRequest is the body of POST /api/cards/:id/move
type MoveCardRequest struct {
	Column string `json:"column" binding:"required"`
}

// AssignRoleRequest is the body of PUT /api/cards/:id/roles
type AssignRoleRequest struct {
	Role       string `json:"role" binding:"required"`
	EmployeeID int64  `json:"employee_id" binding:"required"`
}

// ApprovalStagesRequest is the body of PUT /api/cards/:id/approval-stages
type ApprovalStagesRequest struct {
	Stages []entity.ApprovalStage `json:"stages"`
}

// AcceptStageRequest is the body of POST /api/assignments/:id/accept
type AcceptStageRequest struct {
	ManagerID int64 `json:"manager_id"`
}

// MarkPaidRequest is the body of POST /api/payments/:id/paid
type MarkPaidRequest struct {
	PaidBy int64 `json:"paid_by" binding:"required"`
}

// ManualAmountRequest is the body of PUT /api/payments/:id/manual-amount.
// A null amount clears the override.
type ManualAmountRequest struct {
	Amount *float64 `json:"amount"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, Response{
		Success: true,
		Data: HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Version:   Version,
		},
	})
}

// CreateContract handles POST /api/contracts
func (h *Handlers) CreateContract(c *gin.Context) {
	var contract entity.Contract
	if !h.bind(c, &contract) {
		return
	}
	created, err := h.engine.CreateContract(c.Request.Context(), &contract, actor(c))
	h.respond(c, http.StatusCreated, created, err)
}

// GetContract handles GET /api/contracts/:id
func (h *Handlers) GetContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	contract, err := h.engine.GetContract(c.Request.Context(), id)
	h.respond(c, http.StatusOK, contract, err)
}

// UpdateContract handles PATCH /api/contracts/:id
func (h *Handlers) UpdateContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var update entity.ContractUpdate
	if !h.bind(c, &update) {
		return
	}
	contract, err := h.engine.UpdateContract(c.Request.Context(), id, update, actor(c))
	h.respond(c, http.StatusOK, contract, err)
}

// DeleteContract handles DELETE /api/contracts/:id
func (h *Handlers) DeleteContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	err := h.engine.DeleteContract(c.Request.Context(), id)
	h.respond(c, http.StatusOK, gin.H{"id": id}, err)
}

// GetHistory handles GET /api/contracts/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	history, err := h.engine.GetHistory(c.Request.Context(), id)
	h.respond(c, http.StatusOK, history, err)
}

// GetPayments handles GET /api/contracts/:id/payments
func (h *Handlers) GetPayments(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	if _, err := h.engine.GetContract(c.Request.Context(), id); err != nil {
		h.respond(c, http.StatusOK, nil, err)
		return
	}
	payments, err := h.payments.GetPaymentsForContract(c.Request.Context(), id)
	h.respond(c, http.StatusOK, payments, err)
}

// GetCardByContract handles GET /api/contracts/:id/cards/:pipeline
func (h *Handlers) GetCardByContract(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	card, err := h.engine.GetCardByContract(c.Request.Context(), id, c.Param("pipeline"))
	h.respond(c, http.StatusOK, card, err)
}

// GetCard handles GET /api/cards/:id
func (h *Handlers) GetCard(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	card, err := h.engine.GetCard(c.Request.Context(), id)
	h.respond(c, http.StatusOK, card, err)
}

// MoveCard handles POST /api/cards/:id/move
func (h *Handlers) MoveCard(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req MoveCardRequest
	if !h.bind(c, &req) {
		return
	}
	card, err := h.engine.MoveCard(c.Request.Context(), id, req.Column, actor(c))
	h.respond(c, http.StatusOK, card, err)
}

// ListAssignments handles GET /api/cards/:id/executors
func (h *Handlers) ListAssignments(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	rows, err := h.engine.ListAssignments(c.Request.Context(), id)
	h.respond(c, http.StatusOK, rows, err)
}

// AssignExecutor handles POST /api/cards/:id/executors
func (h *Handlers) AssignExecutor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req workflow.AssignExecutorRequest
	if !h.bind(c, &req) {
		return
	}
	req.CardID = id
	if req.ManagerID == 0 {
		req.ManagerID = actor(c)
	}
	assignment, err := h.engine.AssignExecutor(c.Request.Context(), req)
	h.respond(c, http.StatusOK, assignment, err)
}

// ReassignExecutor handles POST /api/cards/:id/executors/reassign
func (h *Handlers) ReassignExecutor(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req workflow.ReassignExecutorRequest
	if !h.bind(c, &req) {
		return
	}
	req.CardID = id
	if req.ManagerID == 0 {
		req.ManagerID = actor(c)
	}
	assignment, err := h.engine.ReassignExecutor(c.Request.Context(), req)
	h.respond(c, http.StatusOK, assignment, err)
}

// AssignRole handles PUT /api/cards/:id/roles
func (h *Handlers) AssignRole(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req AssignRoleRequest
	if !h.bind(c, &req) {
		return
	}
	card, err := h.engine.AssignRole(c.Request.Context(), id, req.Role, req.EmployeeID, actor(c))
	h.respond(c, http.StatusOK, card, err)
}

// SetApprovalStages handles PUT /api/cards/:id/approval-stages
func (h *Handlers) SetApprovalStages(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ApprovalStagesRequest
	if !h.bind(c, &req) {
		return
	}
	card, err := h.engine.SetApprovalStages(c.Request.Context(), id, req.Stages)
	h.respond(c, http.StatusOK, card, err)
}

// CompleteApprovalStage handles POST /api/cards/:id/approval-stages/:stage/complete
func (h *Handlers) CompleteApprovalStage(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	card, err := h.engine.CompleteApprovalStage(c.Request.Context(), id, c.Param("stage"))
	h.respond(c, http.StatusOK, card, err)
}

// SubmitStage handles POST /api/assignments/:id/submit
func (h *Handlers) SubmitStage(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	assignment, err := h.engine.SubmitStage(c.Request.Context(), id)
	h.respond(c, http.StatusOK, assignment, err)
}

// AcceptStage handles POST /api/assignments/:id/accept
func (h *Handlers) AcceptStage(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req AcceptStageRequest
	if c.Request.ContentLength > 0 && !h.bind(c, &req) {
		return
	}
	if req.ManagerID == 0 {
		req.ManagerID = actor(c)
	}
	assignment, err := h.engine.AcceptStage(c.Request.Context(), id, req.ManagerID)
	h.respond(c, http.StatusOK, assignment, err)
}

// MarkPaid handles POST /api/payments/:id/paid
func (h *Handlers) MarkPaid(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req MarkPaidRequest
	if !h.bind(c, &req) {
		return
	}
	payment, err := h.payments.MarkPaid(c.Request.Context(), id, req.PaidBy)
	h.respond(c, http.StatusOK, payment, err)
}

// SetManualAmount handles PUT /api/payments/:id/manual-amount
func (h *Handlers) SetManualAmount(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	var req ManualAmountRequest
	if !h.bind(c, &req) {
		return
	}
	payment, err := h.payments.SetManualAmount(c.Request.Context(), id, req.Amount)
	h.respond(c, http.StatusOK, payment, err)
}

// CancelPayment handles POST /api/payments/:id/cancel
func (h *Handlers) CancelPayment(c *gin.Context) {
	id, ok := h.pathID(c)
	if !ok {
		return
	}
	payment, err := h.payments.Cancel(c.Request.Context(), id)
	h.respond(c, http.StatusOK, payment, err)
}

// RetryFolders handles POST /api/folders/retry
func (h *Handlers) RetryFolders(c *gin.Context) {
	n, err := h.folders.RetryFailed(c.Request.Context())
	h.respond(c, http.StatusOK, gin.H{"retried": n}, err)
}

// respond writes data with okStatus, or maps err onto an HTTP status
func (h *Handlers) respond(c *gin.Context, okStatus int, data interface{}, err error) {
	if err == nil {
		c.JSON(okStatus, Response{Success: true, Data: data})
		return
	}

	status := StatusFor(err)
	resp := Response{Success: false, Error: err.Error()}
	switch status {
	case http.StatusServiceUnavailable:
		resp.Retry = true
		resp.Error = "temporarily unavailable, retry the request"
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	case http.StatusInternalServerError:
		resp.Error = "internal error"
		h.logger.Error("Request failed", "path", c.FullPath(), "error", err)
	}
	c.JSON(status, resp)
}

// StatusFor maps application errors onto HTTP status codes
func StatusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrTransaction):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func (h *Handlers) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, Response{Success: false, Error: "invalid id"})
		return 0, false
	}
	return id, true
}

// actor reads the acting employee from the request header; 0 when absent
func actor(c *gin.Context) int64 {
	id, err := strconv.ParseInt(c.GetHeader(ActorHeader), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
