package sessionrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
)

// Repo is an in-memory implementation of sessionrepo.Repository.
// It is safe for concurrent use. UpdateAttendees holds the write lock for the whole
// read-check-write sequence.
type Repo struct {
	mu     sync.RWMutex
	nextID domain.SessionID
	byID   map[domain.SessionID]domain.Session
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.SessionID]domain.Session)}
}

func (r *Repo) Create(ctx context.Context, s domain.Session) (domain.Session, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	s.ID = r.nextID
	if s.Attendees == nil {
		s.Attendees = domain.NewAttendeeSet()
	}
	r.byID[s.ID] = cloneSession(s)
	return cloneSession(s), nil
}

func (r *Repo) Save(ctx context.Context, s domain.Session) (domain.Session, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[s.ID]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	s.Attendees = existing.Attendees
	s.CreatedAt = existing.CreatedAt
	r.byID[s.ID] = cloneSession(s)
	return cloneSession(s), nil
}

func (r *Repo) DeleteByID(ctx context.Context, id domain.SessionID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return sessionrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[id]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	return cloneSession(s), nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Session, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Session, 0, len(r.byID))
	for _, s := range r.byID {
		out = append(out, cloneSession(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *Repo) UpdateAttendees(ctx context.Context, id domain.SessionID, fn sessionrepo.MutateFunc) (domain.Session, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[id]
	if !ok {
		return domain.Session{}, sessionrepo.ErrNotFound
	}
	work := cloneSession(existing)
	if err := fn(&work); err != nil {
		return domain.Session{}, err
	}
	existing.Attendees = work.Attendees.Clone()
	existing.UpdatedAt = work.UpdatedAt
	r.byID[id] = existing
	return cloneSession(existing), nil
}

func (r *Repo) DetachUser(ctx context.Context, userID domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, s := range r.byID {
		if s.Attendees.Has(userID) {
			next := cloneSession(s)
			next.Attendees.Remove(userID)
			r.byID[id] = next
		}
	}
	return nil
}

func cloneSession(s domain.Session) domain.Session {
	out := s
	if s.TeacherID != nil {
		v := *s.TeacherID
		out.TeacherID = &v
	}
	out.Attendees = s.Attendees.Clone()
	return out
}
