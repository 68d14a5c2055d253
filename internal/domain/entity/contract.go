package entity

import "time"

// Contract is a signed engagement with a client
type Contract struct {
	ID                   int64      `json:"id"`
	ContractNumber       string     `json:"contract_number"`
	Classification       string     `json:"classification"`
	AgentType            string     `json:"agent_type,omitempty"`
	City                 string     `json:"city,omitempty"`
	Address              string     `json:"address,omitempty"`
	Area                 float64    `json:"area"`
	ContractDate         *time.Time `json:"contract_date,omitempty"`
	ContractPeriodMonths int        `json:"contract_period_months,omitempty"`
	SurveyDate           *time.Time `json:"survey_date,omitempty"`
	TechTaskDate         *time.Time `json:"tech_task_date,omitempty"`
	Status               string     `json:"status"`
	StatusChangedAt      *time.Time `json:"status_changed_at,omitempty"`
	FolderPath           string     `json:"folder_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ContractUpdate lists every contract field a caller may change.
// Nil fields are left untouched.
type ContractUpdate struct {
	Classification       *string    `json:"classification,omitempty"`
	AgentType            *string    `json:"agent_type,omitempty"`
	City                 *string    `json:"city,omitempty"`
	Address              *string    `json:"address,omitempty"`
	Area                 *float64   `json:"area,omitempty"`
	ContractDate         *time.Time `json:"contract_date,omitempty"`
	ContractPeriodMonths *int       `json:"contract_period_months,omitempty"`
	SurveyDate           *time.Time `json:"survey_date,omitempty"`
	TechTaskDate         *time.Time `json:"tech_task_date,omitempty"`
	Status               *string    `json:"status,omitempty"`
}

// IsEmpty reports whether the update changes nothing
func (u ContractUpdate) IsEmpty() bool {
	return u.Classification == nil && u.AgentType == nil && u.City == nil &&
		u.Address == nil && u.Area == nil && u.ContractDate == nil &&
		u.ContractPeriodMonths == nil && u.SurveyDate == nil &&
		u.TechTaskDate == nil && u.Status == nil
}

// TouchesDates reports whether any deadline input changes
func (u ContractUpdate) TouchesDates() bool {
	return u.ContractDate != nil || u.ContractPeriodMonths != nil ||
		u.SurveyDate != nil || u.TechTaskDate != nil
}

// Apply copies the non-nil fields onto c. Status is not applied here because
// it goes through the status state machine.
func (u ContractUpdate) Apply(c *Contract) {
	if u.Classification != nil {
		c.Classification = *u.Classification
	}
	if u.AgentType != nil {
		c.AgentType = *u.AgentType
	}
	if u.City != nil {
		c.City = *u.City
	}
	if u.Address != nil {
		c.Address = *u.Address
	}
	if u.Area != nil {
		c.Area = *u.Area
	}
	if u.ContractDate != nil {
		d := *u.ContractDate
		c.ContractDate = &d
	}
	if u.ContractPeriodMonths != nil {
		c.ContractPeriodMonths = *u.ContractPeriodMonths
	}
	if u.SurveyDate != nil {
		d := *u.SurveyDate
		c.SurveyDate = &d
	}
	if u.TechTaskDate != nil {
		d := *u.TechTaskDate
		c.TechTaskDate = &d
	}
}
