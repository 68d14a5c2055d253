package entity

import "time"

// Payment is a derived payout record for an employee's work on a contract.
// Reassigned payments are kept for audit and never deleted.
type Payment struct {
	ID               int64      `json:"id"`
	ContractID       int64      `json:"contract_id"`
	CardID           *int64     `json:"card_id,omitempty"`
	EmployeeID       int64      `json:"employee_id"`
	Role             string     `json:"role"`
	StageName        string     `json:"stage_name"`
	CalculatedAmount float64    `json:"calculated_amount"`
	ManualAmount     *float64   `json:"manual_amount,omitempty"`
	FinalAmount      float64    `json:"final_amount"`
	PaymentType      string     `json:"payment_type"`
	Reassigned       bool       `json:"reassigned"`
	Status           string     `json:"status"`
	ReportMonth      string     `json:"report_month,omitempty"`
	RateMissing      bool       `json:"rate_missing"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`
	PaidBy           *int64     `json:"paid_by,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentKey identifies the slot that may hold only one non-reassigned payment
type PaymentKey struct {
	ContractID  int64
	StageName   string
	Role        string
	EmployeeID  int64
	PaymentType string
}

// Key returns the dedup key of the payment
func (p *Payment) Key() PaymentKey {
	return PaymentKey{
		ContractID:  p.ContractID,
		StageName:   p.StageName,
		Role:        p.Role,
		EmployeeID:  p.EmployeeID,
		PaymentType: p.PaymentType,
	}
}

// ResolveFinalAmount sets FinalAmount from the override or the calculated amount
func (p *Payment) ResolveFinalAmount() {
	if p.ManualAmount != nil {
		p.FinalAmount = *p.ManualAmount
		return
	}
	p.FinalAmount = p.CalculatedAmount
}
