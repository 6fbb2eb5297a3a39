package domain

// UserID is the numeric identifier of a user record.
type UserID int64

// SessionID is the numeric identifier of a yoga session.
type SessionID int64

// TeacherID is the numeric identifier of a teacher record.
type TeacherID int64

// Username is the login identity carried as the token subject.
// Users log in with their email address, so this is an email in practice.
type Username string
