package entity

import "time"

// StageAssignment binds an executor to a stage of a card.
// Only one row per (card, stage, executor) may be active
// (not reassigned and not completed) at a time.
type StageAssignment struct {
	ID          int64      `json:"id"`
	CardID      int64      `json:"card_id"`
	StageName   string     `json:"stage_name"`
	ExecutorID  int64      `json:"executor_id"`
	AssignedBy  int64      `json:"assigned_by"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	Completed   bool       `json:"completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Reassigned  bool       `json:"reassigned"`
	CreatedAt   time.Time  `json:"created_at"`
}

// IsActive reports whether the assignment still awaits acceptance
func (a *StageAssignment) IsActive() bool {
	return !a.Reassigned && !a.Completed
}
