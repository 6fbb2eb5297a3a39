package sessionrepo

import (
	"context"

	"github.com/yoga-studio/booking-api/internal/domain"
)

// MutateFunc inspects and changes a session while the store holds it exclusively.
// Returning an error aborts the change; the error is returned unchanged by UpdateAttendees.
type MutateFunc func(s *domain.Session) error

// Repository provides access to persisted sessions.
//
// Result ordering expectations:
// - List returns sessions ordered by Date ascending, then ID ascending.
type Repository interface {
	// Create assigns the ID and returns the stored session.
	Create(ctx context.Context, s domain.Session) (domain.Session, error)
	// Save overwrites the scalar fields of an existing session. The roster is left untouched.
	Save(ctx context.Context, s domain.Session) (domain.Session, error)
	DeleteByID(ctx context.Context, id domain.SessionID) error

	FindByID(ctx context.Context, id domain.SessionID) (domain.Session, error)
	List(ctx context.Context) ([]domain.Session, error)

	// UpdateAttendees loads the session, runs fn and persists the resulting roster.
	// Calls for the same session id are serialized: no two read-check-write sequences interleave.
	UpdateAttendees(ctx context.Context, id domain.SessionID, fn MutateFunc) (domain.Session, error)

	// DetachUser removes the user from every roster it belongs to.
	DetachUser(ctx context.Context, userID domain.UserID) error
}
