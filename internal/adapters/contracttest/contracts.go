package contracttest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yoga-studio/booking-api/internal/domain"
	idempotencyport "github.com/yoga-studio/booking-api/internal/ports/out/idempotency"
	sessionrepoport "github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
	teacherrepoport "github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
	userrepoport "github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

type CleanupFunc = func()

type UserRepoFactory func(t *testing.T) (userrepoport.Repository, CleanupFunc)
type SessionRepoFactory func(t *testing.T) (sessionrepoport.Repository, CleanupFunc)
type TeacherRepoFactory func(t *testing.T) (teacherrepoport.Repository, CleanupFunc)
type IdemStoreFactory func(t *testing.T) (idempotencyport.Store, CleanupFunc)

// uniqueEmail keeps suites independent when they share a database.
func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8] + "@studio.test"
}

func RunUserRepo(t *testing.T, newRepo UserRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(1000, 0).UTC()
	email := uniqueEmail("alice")
	a, err := repo.Create(ctx, userrepoport.User{
		Email:        email,
		FirstName:    "Alice",
		LastName:     "Martin",
		PasswordHash: "hash-a",
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	if a.ID <= 0 {
		t.Fatalf("expected assigned id, got %d", a.ID)
	}

	got, err := repo.FindByID(ctx, a.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Email != email || got.FirstName != "Alice" || got.PasswordHash != "hash-a" || got.Admin {
		t.Fatalf("FindByID: unexpected record %+v", got)
	}

	// Username lookup is case-insensitive.
	got, err = repo.FindByUsername(ctx, domain.Username(strings.ToUpper(email)))
	if err != nil {
		t.Fatalf("FindByUsername: %v", err)
	}
	if got.ID != a.ID {
		t.Fatalf("FindByUsername: id=%d, want %d", got.ID, a.ID)
	}

	exists, err := repo.ExistsByUsername(ctx, domain.Username(email))
	if err != nil || !exists {
		t.Fatalf("ExistsByUsername: exists=%v err=%v", exists, err)
	}
	exists, err = repo.ExistsByUsername(ctx, domain.Username(uniqueEmail("nobody")))
	if err != nil || exists {
		t.Fatalf("ExistsByUsername(unknown): exists=%v err=%v", exists, err)
	}

	// Username uniqueness.
	if _, err := repo.Create(ctx, userrepoport.User{Email: email, FirstName: "Dup", LastName: "Dup", PasswordHash: "x", CreatedAt: now, UpdatedAt: now}); !errors.Is(err, userrepoport.ErrAlreadyExists) {
		t.Fatalf("Create duplicate: err=%v, want %v", err, userrepoport.ErrAlreadyExists)
	}

	b, err := repo.Create(ctx, userrepoport.User{Email: uniqueEmail("bob"), FirstName: "Bob", LastName: "Durand", PasswordHash: "hash-b", Admin: true, CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}
	if b.ID <= a.ID {
		t.Fatalf("expected increasing ids, got a=%d b=%d", a.ID, b.ID)
	}

	// List is ordered by id.
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ia, ib := -1, -1
	for i, u := range list {
		switch u.ID {
		case a.ID:
			ia = i
		case b.ID:
			ib = i
		}
	}
	if ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("List: expected a before b, got positions a=%d b=%d", ia, ib)
	}

	if err := repo.Delete(ctx, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.FindByID(ctx, a.ID); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("FindByID after delete: err=%v, want %v", err, userrepoport.ErrNotFound)
	}
	if _, err := repo.FindByUsername(ctx, domain.Username(email)); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("FindByUsername after delete: err=%v, want %v", err, userrepoport.ErrNotFound)
	}
	if err := repo.Delete(ctx, a.ID); !errors.Is(err, userrepoport.ErrNotFound) {
		t.Fatalf("Delete again: err=%v, want %v", err, userrepoport.ErrNotFound)
	}
}

// RunSessionRepo exercises the session store. Users are created through newUsers because
// relational stores reference them from the roster.
func RunSessionRepo(t *testing.T, newUsers UserRepoFactory, newSessions SessionRepoFactory) {
	t.Helper()
	ctx := context.Background()

	users, cleanupUsers := newUsers(t)
	if cleanupUsers != nil {
		t.Cleanup(cleanupUsers)
	}
	repo, cleanup := newSessions(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(2000, 0).UTC()
	mkUser := func(prefix string) domain.UserID {
		t.Helper()
		u, err := users.Create(ctx, userrepoport.User{Email: uniqueEmail(prefix), FirstName: "Test", LastName: "User", PasswordHash: "h", CreatedAt: now, UpdatedAt: now})
		if err != nil {
			t.Fatalf("create user %s: %v", prefix, err)
		}
		return u.ID
	}
	u1, u2 := mkUser("u1"), mkUser("u2")

	later, err := repo.Create(ctx, domain.Session{
		Name:        "Evening flow",
		Date:        time.Date(2031, 6, 2, 0, 0, 0, 0, time.UTC),
		Description: "Slow vinyasa",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create later: %v", err)
	}
	earlier, err := repo.Create(ctx, domain.Session{
		Name:        "Morning flow",
		Date:        time.Date(2031, 6, 1, 0, 0, 0, 0, time.UTC),
		Description: "Sun salutations",
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		t.Fatalf("Create earlier: %v", err)
	}

	got, err := repo.FindByID(ctx, later.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "Evening flow" || got.Description != "Slow vinyasa" || got.Attendees.Len() != 0 || got.TeacherID != nil {
		t.Fatalf("FindByID: unexpected session %+v", got)
	}
	if !got.Date.Equal(time.Date(2031, 6, 2, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("FindByID: date=%v", got.Date)
	}

	// List ordered by date.
	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ie, il := -1, -1
	for i, s := range list {
		switch s.ID {
		case earlier.ID:
			ie = i
		case later.ID:
			il = i
		}
	}
	if ie < 0 || il < 0 || ie > il {
		t.Fatalf("List: expected earlier before later, got positions %d, %d", ie, il)
	}

	// Roster mutation.
	updated, err := repo.UpdateAttendees(ctx, later.ID, func(s *domain.Session) error {
		s.Attendees.Add(u1)
		s.Attendees.Add(u2)
		s.UpdatedAt = now.Add(time.Minute)
		return nil
	})
	if err != nil {
		t.Fatalf("UpdateAttendees add: %v", err)
	}
	if !updated.Attendees.Has(u1) || !updated.Attendees.Has(u2) {
		t.Fatalf("UpdateAttendees add: attendees=%v", updated.Attendees.IDs())
	}

	// A failing mutation leaves the roster unchanged.
	sentinel := errors.New("abort")
	_, err = repo.UpdateAttendees(ctx, later.ID, func(s *domain.Session) error {
		s.Attendees.Remove(u1)
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("UpdateAttendees abort: err=%v, want %v", err, sentinel)
	}
	got, _ = repo.FindByID(ctx, later.ID)
	if !got.Attendees.Has(u1) {
		t.Fatalf("aborted mutation was persisted")
	}

	if _, err := repo.UpdateAttendees(ctx, domain.SessionID(999999), func(*domain.Session) error { return nil }); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("UpdateAttendees missing: err=%v, want %v", err, sessionrepoport.ErrNotFound)
	}

	// Save keeps the roster.
	got.Name = "Evening flow (long)"
	got.Attendees = nil
	got.UpdatedAt = now.Add(2 * time.Minute)
	saved, err := repo.Save(ctx, got)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.Name != "Evening flow (long)" || saved.Attendees.Len() != 2 {
		t.Fatalf("Save: unexpected session %+v", saved)
	}
	if _, err := repo.Save(ctx, domain.Session{ID: 999999, Name: "x"}); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("Save missing: err=%v, want %v", err, sessionrepoport.ErrNotFound)
	}

	// DetachUser removes the user from every roster.
	if _, err := repo.UpdateAttendees(ctx, earlier.ID, func(s *domain.Session) error {
		s.Attendees.Add(u1)
		return nil
	}); err != nil {
		t.Fatalf("UpdateAttendees earlier: %v", err)
	}
	if err := repo.DetachUser(ctx, u1); err != nil {
		t.Fatalf("DetachUser: %v", err)
	}
	for _, id := range []domain.SessionID{earlier.ID, later.ID} {
		s, err := repo.FindByID(ctx, id)
		if err != nil {
			t.Fatalf("FindByID(%d): %v", id, err)
		}
		if s.Attendees.Has(u1) {
			t.Fatalf("session %d still lists detached user", id)
		}
	}

	if err := repo.DeleteByID(ctx, later.ID); err != nil {
		t.Fatalf("DeleteByID: %v", err)
	}
	if _, err := repo.FindByID(ctx, later.ID); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("FindByID after delete: err=%v, want %v", err, sessionrepoport.ErrNotFound)
	}
	if err := repo.DeleteByID(ctx, later.ID); !errors.Is(err, sessionrepoport.ErrNotFound) {
		t.Fatalf("DeleteByID again: err=%v, want %v", err, sessionrepoport.ErrNotFound)
	}
}

func RunTeacherRepo(t *testing.T, newRepo TeacherRepoFactory) {
	t.Helper()
	ctx := context.Background()

	repo, cleanup := newRepo(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	now := time.Unix(3000, 0).UTC()
	a, err := repo.Create(ctx, domain.Teacher{FirstName: "Margot", LastName: "Delahaye", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Create a: %v", err)
	}
	b, err := repo.Create(ctx, domain.Teacher{FirstName: "Hélène", LastName: "Thiercelin", CreatedAt: now, UpdatedAt: now})
	if err != nil {
		t.Fatalf("Create b: %v", err)
	}

	got, err := repo.FindByID(ctx, b.ID)
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.FirstName != "Hélène" || got.LastName != "Thiercelin" {
		t.Fatalf("FindByID: unexpected teacher %+v", got)
	}
	if _, err := repo.FindByID(ctx, domain.TeacherID(999999)); !errors.Is(err, teacherrepoport.ErrNotFound) {
		t.Fatalf("FindByID missing: err=%v, want %v", err, teacherrepoport.ErrNotFound)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	ia, ib := -1, -1
	for i, tt := range list {
		switch tt.ID {
		case a.ID:
			ia = i
		case b.ID:
			ib = i
		}
	}
	if ia < 0 || ib < 0 || ia > ib {
		t.Fatalf("List: expected a before b, got positions %d, %d", ia, ib)
	}
}

// RunIdempotencyStore exercises a store on behalf of owner, which must be a stored account
// for backends that enforce it.
func RunIdempotencyStore(t *testing.T, newStore IdemStoreFactory, owner domain.UserID) {
	t.Helper()
	ctx := context.Background()

	store, cleanup := newStore(t)
	if cleanup != nil {
		t.Cleanup(cleanup)
	}

	fp := idempotencyport.Fingerprint{
		Key:      idempotencyport.Key("k-" + uuid.NewString()),
		UserID:   owner,
		Method:   "POST",
		Route:    "/session",
		BodyHash: "",
	}
	if _, ok, err := store.Get(ctx, fp); err != nil || ok {
		t.Fatalf("Get before Put: ok=%v err=%v", ok, err)
	}

	rec := idempotencyport.Record{
		StatusCode:  0,
		ContentType: "text/plain",
		Body:        []byte("hash-abc"),
		CreatedAt:   time.Unix(123, 0).UTC(),
	}
	if err := store.Put(ctx, fp, rec); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, ok, err := store.Get(ctx, fp)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatalf("expected ok=true")
	}
	if string(got.Body) != "hash-abc" || got.ContentType != "text/plain" || got.StatusCode != 0 {
		t.Fatalf("unexpected record: %+v", got)
	}

	// Overwrite semantics.
	rec2 := rec
	rec2.Body = []byte("hash-def")
	if err := store.Put(ctx, fp, rec2); err != nil {
		t.Fatalf("Put overwrite: %v", err)
	}
	got, ok, err = store.Get(ctx, fp)
	if err != nil || !ok || string(got.Body) != "hash-def" {
		t.Fatalf("expected overwritten record, got ok=%v err=%v body=%q", ok, err, string(got.Body))
	}

	// The body hash is part of the fingerprint.
	respFP := fp
	respFP.BodyHash = "hash-def"
	if _, ok, err := store.Get(ctx, respFP); err != nil || ok {
		t.Fatalf("Get with other body hash: ok=%v err=%v", ok, err)
	}
}
