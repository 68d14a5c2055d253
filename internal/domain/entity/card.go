package entity

import "time"

// Card tracks the pipeline column of a contract. A contract has at most one
// card per pipeline.
type Card struct {
	ID         int64      `json:"id"`
	ContractID int64      `json:"contract_id"`
	Pipeline   string     `json:"pipeline"`
	Column     string     `json:"column"`
	Deadline   *time.Time `json:"deadline,omitempty"`

	// Roles maps a management role to the assigned employee
	Roles map[string]int64 `json:"roles,omitempty"`

	// ApprovalStages are ordered sub-stages awaiting client sign-off
	ApprovalStages []ApprovalStage `json:"approval_stages,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ApprovalStage is one sign-off step of the approval column
type ApprovalStage struct {
	StageName   string     `json:"stage_name"`
	Position    int        `json:"position"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
