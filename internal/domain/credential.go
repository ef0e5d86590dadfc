package domain

import "time"

// AccountStatus is the lifecycle state of a credential record.
type AccountStatus string

const (
	AccountActive   AccountStatus = "active"
	AccountDisabled AccountStatus = "disabled"
	AccountLocked   AccountStatus = "locked"
)

// Available reports whether the account may log in at all. Disabled and
// locked accounts fail verification even with the correct secret.
func (s AccountStatus) Available() bool { return s == AccountActive }

// Credential is a stored user identity record. The core reads it during
// login; the only writes are the failed-attempt audit counters.
type Credential struct {
	UserID        string
	Username      string
	SecretHash    string // argon2 encoded
	Status        AccountStatus
	FailedLogins  int
	LastFailureAt *time.Time // nullable, cleared on successful login
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
