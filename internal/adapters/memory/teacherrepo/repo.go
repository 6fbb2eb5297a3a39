package teacherrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
)

// Repo is an in-memory implementation of teacherrepo.Repository.
type Repo struct {
	mu     sync.RWMutex
	nextID domain.TeacherID
	byID   map[domain.TeacherID]domain.Teacher
}

func NewRepo() *Repo {
	return &Repo{byID: make(map[domain.TeacherID]domain.Teacher)}
}

func (r *Repo) Create(ctx context.Context, t domain.Teacher) (domain.Teacher, error) {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	t.ID = r.nextID
	r.byID[t.ID] = t
	return t, nil
}

func (r *Repo) FindByID(ctx context.Context, id domain.TeacherID) (domain.Teacher, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.byID[id]
	if !ok {
		return domain.Teacher{}, teacherrepo.ErrNotFound
	}
	return t, nil
}

func (r *Repo) List(ctx context.Context) ([]domain.Teacher, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Teacher, 0, len(r.byID))
	for _, t := range r.byID {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
