package entity

import "time"

// FolderJob records a remote folder operation so failed relocations can be retried
type FolderJob struct {
	ID         int64     `json:"id"`
	ContractID int64     `json:"contract_id"`
	Kind       string    `json:"kind"`
	OldPath    string    `json:"old_path,omitempty"`
	NewPath    string    `json:"new_path,omitempty"`
	Status     string    `json:"status"`
	Attempts   int       `json:"attempts"`
	LastError  string    `json:"last_error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
