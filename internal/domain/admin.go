package domain

import "time"

// Admin models an operator eligible to receive appeals.
type Admin struct {
	ID           int64
	Name         string
	Email        string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
