// Package authz holds the ownership rules applied to authenticated principals.
package authz

import (
	"errors"
	"strings"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotPermitted    = errors.New("not permitted")
)

// DenyError names the rule that refused an action.
type DenyError struct {
	Code string
	Err  error
}

func (e *DenyError) Error() string {
	if e == nil {
		return ""
	}
	return e.Code
}

func (e *DenyError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// CanDeleteAccount allows p to delete target only when target is p's own account.
// Accounts are matched on username, case-insensitively.
func CanDeleteAccount(p domain.Principal, target userrepo.User) error {
	if p.IsZero() {
		return ErrUnauthenticated
	}
	if !strings.EqualFold(string(p.Username()), strings.TrimSpace(target.Email)) {
		return &DenyError{Code: "NOT_ACCOUNT_OWNER", Err: ErrNotPermitted}
	}
	return nil
}
