package entity

import "time"

// History is an audit trail entry for a contract
type History struct {
	ID         int64     `json:"id"`
	ContractID int64     `json:"contract_id"`
	CardID     *int64    `json:"card_id,omitempty"`
	Action     string    `json:"action"`
	ActorID    *int64    `json:"actor_id,omitempty"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"created_at"`
}

// ReassignmentDetails is serialized into History.Details for reassignments
type ReassignmentDetails struct {
	StageName       string    `json:"stage_name"`
	Role            string    `json:"role"`
	OldEmployeeID   int64     `json:"old_employee_id"`
	OldEmployeeName string    `json:"old_employee_name"`
	NewEmployeeID   int64     `json:"new_employee_id"`
	NewEmployeeName string    `json:"new_employee_name"`
	ReassignedAt    time.Time `json:"reassigned_at"`
}
