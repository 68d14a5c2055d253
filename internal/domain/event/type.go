package event

// Type identifies the type of domain event
type Type string

const (
	TypeContractCreated    Type = "contract.created"
	TypeContractDeleted    Type = "contract.deleted"
	TypeStatusChanged      Type = "contract.status_changed"
	TypeCardMoved          Type = "card.moved"
	TypeExecutorAssigned   Type = "executor.assigned"
	TypeExecutorReassigned Type = "executor.reassigned"
	TypePaymentCreated     Type = "payment.created"
	TypeFolderSynced       Type = "folder.synced"
	TypeFolderSyncFailed   Type = "folder.sync_failed"
)

var validTypes = map[Type]bool{
	TypeContractCreated:    true,
	TypeContractDeleted:    true,
	TypeStatusChanged:      true,
	TypeCardMoved:          true,
	TypeExecutorAssigned:   true,
	TypeExecutorReassigned: true,
	TypePaymentCreated:     true,
	TypeFolderSynced:       true,
	TypeFolderSyncFailed:   true,
}

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	return validTypes[t]
}
