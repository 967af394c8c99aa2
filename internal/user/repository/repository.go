// Package repository defines persistence for user accounts.
package repository

import (
	"context"

	"session-gateway/internal/user/domain"
)

// Repository defines persistence for users.
type Repository interface {
	// GetByEmail returns the user with the given email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// Create persists a new user. The user must have ID set.
	Create(ctx context.Context, u *domain.User) error
}
