package domain

import (
	"sort"
	"time"
)

// AttendeeSet is the roster of a session. Each user id appears at most once.
type AttendeeSet map[UserID]struct{}

func NewAttendeeSet(ids ...UserID) AttendeeSet {
	s := make(AttendeeSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s AttendeeSet) Has(id UserID) bool {
	_, ok := s[id]
	return ok
}

// Add inserts id and reports whether it was absent.
func (s AttendeeSet) Add(id UserID) bool {
	if s.Has(id) {
		return false
	}
	s[id] = struct{}{}
	return true
}

// Remove deletes id and reports whether it was present.
func (s AttendeeSet) Remove(id UserID) bool {
	if !s.Has(id) {
		return false
	}
	delete(s, id)
	return true
}

func (s AttendeeSet) Len() int { return len(s) }

// IDs returns the members in ascending order.
func (s AttendeeSet) IDs() []UserID {
	out := make([]UserID, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s AttendeeSet) Clone() AttendeeSet {
	out := make(AttendeeSet, len(s))
	for id := range s {
		out[id] = struct{}{}
	}
	return out
}

// Session is a scheduled yoga class.
type Session struct {
	ID          SessionID
	Name        string
	Date        time.Time // date-only semantics at the edges
	Description string
	TeacherID   *TeacherID
	Attendees   AttendeeSet

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Teacher leads sessions.
type Teacher struct {
	ID        TeacherID
	FirstName string
	LastName  string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is the public read model of an account. It never carries the password hash.
type User struct {
	ID        UserID
	Email     string
	FirstName string
	LastName  string
	Admin     bool

	CreatedAt time.Time
	UpdatedAt time.Time
}
