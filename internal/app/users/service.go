package users

import (
	"context"
	"errors"

	"github.com/yoga-studio/booking-api/internal/app/authz"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// Error is an application-layer error that can be mapped to an HTTP response.
type Error struct {
	Status  int
	Code    string
	Message string
	Details map[string]any
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	return e.Code
}

type Service struct {
	users    userrepo.Repository
	sessions sessionrepo.Repository
}

func NewService(users userrepo.Repository, sessions sessionrepo.Repository) *Service {
	return &Service{users: users, sessions: sessions}
}

func (s *Service) Get(ctx context.Context, id domain.UserID) (domain.User, error) {
	u, err := s.find(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return toDomain(u), nil
}

// Delete removes the account id on behalf of caller, who must own it.
// The user is then detached from every session roster.
func (s *Service) Delete(ctx context.Context, caller domain.Principal, id domain.UserID) error {
	u, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := authz.CanDeleteAccount(caller, u); err != nil {
		de := (*authz.DenyError)(nil)
		code := "UNAUTHORIZED"
		if errors.As(err, &de) {
			code = de.Code
		}
		return &Error{Status: 401, Code: code, Message: "you can only delete your own account"}
	}

	// The account goes first: a concurrent Participate then fails its user check instead of
	// re-adding the id after the rosters were cleared.
	if err := s.users.Delete(ctx, id); err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return userNotFound()
		}
		return err
	}
	return s.sessions.DetachUser(ctx, id)
}

func (s *Service) find(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return userrepo.User{}, userNotFound()
		}
		return userrepo.User{}, err
	}
	return u, nil
}

func userNotFound() *Error {
	return &Error{Status: 404, Code: "USER_NOT_FOUND", Message: "user not found"}
}

func toDomain(u userrepo.User) domain.User {
	return domain.User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Admin:     u.Admin,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
