package domain

import (
	"errors"
	"time"
)

// UserStatus is the lifecycle state of a user account.
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusDisabled UserStatus = "disabled"
)

// User is an account that can log in with email and password.
// PasswordHash is a bcrypt hash; the plaintext never leaves the login handler.
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	Status       UserStatus
	CreatedAt    time.Time
}

// Validate checks required fields before persisting.
func (u *User) Validate() error {
	if u.ID == "" {
		return errors.New("user: id required")
	}
	if u.Email == "" {
		return errors.New("user: email required")
	}
	if u.Status != UserStatusActive && u.Status != UserStatusDisabled {
		return errors.New("user: invalid status")
	}
	return nil
}
