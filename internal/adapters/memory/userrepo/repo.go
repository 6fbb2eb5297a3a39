package userrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

// Repo is an in-memory implementation of userrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	nextID       domain.UserID
	byID         map[domain.UserID]userrepo.User
	idByUsername map[domain.Username]domain.UserID
}

func NewRepo() *Repo {
	return &Repo{
		byID:         make(map[domain.UserID]userrepo.User),
		idByUsername: make(map[domain.Username]domain.UserID),
	}
}

func (r *Repo) Create(ctx context.Context, u userrepo.User) (userrepo.User, error) {
	_ = ctx
	key := domain.NormalizeUsername(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.idByUsername[key]; ok {
		return userrepo.User{}, userrepo.ErrAlreadyExists
	}
	r.nextID++
	u.ID = r.nextID
	u.Email = string(key)

	r.byID[u.ID] = u
	r.idByUsername[key] = u.ID
	return u, nil
}

func (r *Repo) Delete(ctx context.Context, id domain.UserID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return userrepo.ErrNotFound
	}
	delete(r.byID, id)
	delete(r.idByUsername, domain.Username(u.Email))
	return nil
}

func (r *Repo) FindByID(ctx context.Context, id domain.UserID) (userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return u, nil
}

func (r *Repo) FindByUsername(ctx context.Context, username domain.Username) (userrepo.User, error) {
	_ = ctx
	key := domain.NormalizeUsername(string(username))

	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.idByUsername[key]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	u, ok := r.byID[id]
	if !ok {
		return userrepo.User{}, userrepo.ErrNotFound
	}
	return u, nil
}

func (r *Repo) ExistsByUsername(ctx context.Context, username domain.Username) (bool, error) {
	_ = ctx
	key := domain.NormalizeUsername(string(username))

	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.idByUsername[key]
	return ok, nil
}

func (r *Repo) List(ctx context.Context) ([]userrepo.User, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]userrepo.User, 0, len(r.byID))
	for _, u := range r.byID {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
