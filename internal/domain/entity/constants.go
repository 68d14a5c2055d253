package entity

// Contract classification constants
const (
	ClassificationIndividual  = "individual"
	ClassificationTemplate    = "template"
	ClassificationSupervision = "supervision"
)

// Contract lifecycle status constants
const (
	StatusNew              = "new"
	StatusInProgress       = "in_progress"
	StatusDelivered        = "delivered"
	StatusTerminated       = "terminated"
	StatusUnderSupervision = "under_supervision"
)

// Pipeline constants for Card
const (
	PipelineMain        = "main"
	PipelineSupervision = "supervision"
)

// Role constants. Management roles are assigned on the card itself,
// executor roles are derived from the stage column.
const (
	RoleSeniorManager       = "senior_manager"
	RoleDesignLead          = "design_lead"
	RoleDraftingLead        = "drafting_lead"
	RoleCoordinatingManager = "coordinating_manager"
	RoleDesigner            = "designer"
	RoleDraftsperson        = "draftsperson"
	RoleSurveyor            = "surveyor"
	RoleSupervisor          = "supervisor"
)

// Payment type constants
const (
	PaymentTypeAdvance    = "advance"
	PaymentTypeCompletion = "completion"
	PaymentTypeFull       = "full"
	PaymentTypeStipend    = "stipend"
)

// Payment status constants
const (
	PaymentStatusPending   = "pending"
	PaymentStatusToPay     = "to_pay"
	PaymentStatusPaid      = "paid"
	PaymentStatusCancelled = "cancelled"
)

// History action constants
const (
	ActionContractCreated  = "CONTRACT_CREATED"
	ActionStatusChanged    = "STATUS_CHANGED"
	ActionCardMoved        = "CARD_MOVED"
	ActionExecutorAssigned = "EXECUTOR_ASSIGNED"
	ActionExecutorReassign = "EXECUTOR_REASSIGNED"
	ActionRoleAssigned     = "ROLE_ASSIGNED"
	ActionStageAccepted    = "STAGE_ACCEPTED"
)

// Folder job constants
const (
	FolderJobCreate   = "create"
	FolderJobRelocate = "relocate"
	FolderJobDelete   = "delete"

	FolderJobPending   = "pending"
	FolderJobRunning   = "running"
	FolderJobSucceeded = "succeeded"
	FolderJobFailed    = "failed"
)

var classifications = map[string]bool{
	ClassificationIndividual:  true,
	ClassificationTemplate:    true,
	ClassificationSupervision: true,
}

var managementRoles = map[string]bool{
	RoleSeniorManager:       true,
	RoleDesignLead:          true,
	RoleDraftingLead:        true,
	RoleCoordinatingManager: true,
}

var paymentTypes = map[string]bool{
	PaymentTypeAdvance:    true,
	PaymentTypeCompletion: true,
	PaymentTypeFull:       true,
	PaymentTypeStipend:    true,
}

// IsValidClassification reports whether c is a known contract classification
func IsValidClassification(c string) bool {
	return classifications[c]
}

// IsManagementRole reports whether role is assigned on the card rather than per stage
func IsManagementRole(role string) bool {
	return managementRoles[role]
}

// IsValidPaymentType reports whether t is a known payment type
func IsValidPaymentType(t string) bool {
	return paymentTypes[t]
}
