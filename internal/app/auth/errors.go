package auth

import "errors"

var (
	// ErrPrincipalNotFound means no account matches a token subject.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrBadCredentials covers both an unknown email and a wrong password.
	ErrBadCredentials = errors.New("bad credentials")
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
