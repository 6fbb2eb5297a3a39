package domain

import (
	"errors"
	"strings"
)

// PersonName is a first/last name pair.
type PersonName struct {
	First string
	Last  string
}

// Full returns "First Last" with empty parts dropped.
func (n PersonName) Full() string {
	return strings.TrimSpace(n.First + " " + n.Last)
}

// Principal is the authenticated identity attached to a request.
//
// Values are immutable: build them with NewPrincipal and read them through accessors.
type Principal struct {
	id           UserID
	username     Username
	name         PersonName
	isAdmin      bool
	passwordHash string
}

var (
	ErrInvalidPrincipalID       = errors.New("principal id must be positive")
	ErrInvalidPrincipalUsername = errors.New("principal username must be non-empty")
)

// NewPrincipal validates its inputs and returns a Principal.
func NewPrincipal(id UserID, username Username, name PersonName, isAdmin bool, passwordHash string) (Principal, error) {
	if id <= 0 {
		return Principal{}, ErrInvalidPrincipalID
	}
	u := NormalizeUsername(string(username))
	if u == "" {
		return Principal{}, ErrInvalidPrincipalUsername
	}
	return Principal{
		id:       id,
		username: u,
		name: PersonName{
			First: NormalizeHumanName(name.First),
			Last:  NormalizeHumanName(name.Last),
		},
		isAdmin:      isAdmin,
		passwordHash: passwordHash,
	}, nil
}

func (p Principal) ID() UserID           { return p.id }
func (p Principal) Username() Username   { return p.username }
func (p Principal) Name() PersonName     { return p.name }
func (p Principal) IsAdmin() bool        { return p.isAdmin }
func (p Principal) PasswordHash() string { return p.passwordHash }

// IsZero reports whether p was never constructed.
func (p Principal) IsZero() bool { return p.id == 0 && p.username == "" }
