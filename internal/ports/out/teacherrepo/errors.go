package teacherrepo

import "errors"

var (
	ErrNotFound = errors.New("teacher not found")
)
