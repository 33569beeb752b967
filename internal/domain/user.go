package domain

import "time"

// User is the account record consulted by the authentication gate.
type User struct {
	ID               string
	Name             string
	Email            string
	PasswordHash     string
	AppRole          AppRole
	Verified         bool
	VerificationCode *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
