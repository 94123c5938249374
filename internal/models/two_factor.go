package models

import "time"

// StepUpCredential is the second factor of one identity. Enabled implies a
// non-empty Secret.
type StepUpCredential struct {
	UserID      string
	Secret      string
	BackupCodes []string
	BackupSalt  []byte
	Enabled     bool
	EnabledAt   *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
