package userrepo

import (
	"context"
	"time"

	"github.com/yoga-studio/booking-api/internal/domain"
)

// User is the persistence shape used by the credential store.
// It is an internal record, not an HTTP DTO.
type User struct {
	ID domain.UserID
	// Email is the login identity; it is stored normalized (see domain.NormalizeUsername).
	Email     string
	FirstName string
	LastName  string
	// PasswordHash is the one-way hash produced by the password hasher. Never plaintext.
	PasswordHash string
	Admin        bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Repository is the credential store.
//
// Result ordering expectations:
// - List returns users ordered by ID ascending.
type Repository interface {
	// Create assigns the ID and returns the stored record.
	Create(ctx context.Context, u User) (User, error)
	Delete(ctx context.Context, id domain.UserID) error

	FindByID(ctx context.Context, id domain.UserID) (User, error)
	FindByUsername(ctx context.Context, username domain.Username) (User, error)
	ExistsByUsername(ctx context.Context, username domain.Username) (bool, error)

	List(ctx context.Context) ([]User, error)
}
