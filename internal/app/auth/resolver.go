package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// Resolver loads the principal named by a token subject.
// It reads the credential store on every call; there is no cache.
type Resolver struct {
	users userrepo.Repository
}

func NewResolver(users userrepo.Repository) *Resolver {
	return &Resolver{users: users}
}

func (r *Resolver) Resolve(ctx context.Context, subject string) (domain.Principal, error) {
	u, err := r.users.FindByUsername(ctx, domain.Username(subject))
	if err != nil {
		if errors.Is(err, userrepo.ErrNotFound) {
			return domain.Principal{}, ErrPrincipalNotFound
		}
		return domain.Principal{}, fmt.Errorf("load principal: %w", err)
	}
	p, err := principalFromUser(u)
	if err != nil {
		return domain.Principal{}, fmt.Errorf("load principal %d: %w", u.ID, err)
	}
	return p, nil
}

func principalFromUser(u userrepo.User) (domain.Principal, error) {
	return domain.NewPrincipal(
		u.ID,
		domain.Username(u.Email),
		domain.PersonName{First: u.FirstName, Last: u.LastName},
		u.Admin,
		u.PasswordHash,
	)
}
