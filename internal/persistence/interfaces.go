// Package persistence provides the Postgres-backed storage for users and
// newsletters.
package persistence

import (
	"context"
	"errors"

	"gazette/internal/core"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateEmail is returned when a user row would violate the unique
// email constraint.
var ErrDuplicateEmail = errors.New("email already registered")

// NewsletterRepository handles newsletter persistence operations.
type NewsletterRepository interface {
	// Create inserts a finished newsletter row.
	Create(ctx context.Context, newsletter *core.Newsletter) error

	// Get retrieves a newsletter by ID.
	Get(ctx context.Context, id string) (*core.Newsletter, error)

	// ListRecent retrieves up to limit newsletters, newest first.
	ListRecent(ctx context.Context, limit int) ([]core.Newsletter, error)
}

// UserRepository handles user persistence operations.
type UserRepository interface {
	// Create inserts a new user.
	Create(ctx context.Context, user *core.User) error

	// Get retrieves a user by ID.
	Get(ctx context.Context, id string) (*core.User, error)

	// GetByEmail retrieves a user by email.
	GetByEmail(ctx context.Context, email string) (*core.User, error)

	// GetByStripeCustomerID retrieves a user by their billing customer id.
	GetByStripeCustomerID(ctx context.Context, customerID string) (*core.User, error)

	// List retrieves every user; the delivery stage iterates the result.
	List(ctx context.Context) ([]core.User, error)

	// SetStripeCustomerID records the billing customer created for a user.
	SetStripeCustomerID(ctx context.Context, userID, customerID string) error

	// UpdateSubscription records the subscription state reported by the
	// billing provider for the given customer.
	UpdateSubscription(ctx context.Context, customerID, subscriptionID, status string) error

	// Delete removes a user row.
	Delete(ctx context.Context, id string) error
}

// Database bundles the repositories behind one connection pool.
type Database interface {
	Newsletters() NewsletterRepository
	Users() UserRepository
	Ping(ctx context.Context) error
	Close() error
}
