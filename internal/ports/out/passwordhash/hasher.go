package passwordhash

import "errors"

// ErrMismatch indicates the plaintext does not match the stored hash.
var ErrMismatch = errors.New("password mismatch")

// Hasher is the one-way password hashing collaborator.
// Callers never compare plaintext themselves.
type Hasher interface {
	Hash(plain string) (string, error)
	// Compare returns nil on match, ErrMismatch on mismatch, or another error when the
	// hash itself is unusable.
	Compare(hash string, plain string) error
}
