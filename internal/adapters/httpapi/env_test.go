package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	memclock "github.com/yoga-studio/booking-api/internal/adapters/memory/clock"
	memidempotency "github.com/yoga-studio/booking-api/internal/adapters/memory/idempotency"
	memloginlimiter "github.com/yoga-studio/booking-api/internal/adapters/memory/loginlimiter"
	memsessionrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/sessionrepo"
	memteacherrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/teacherrepo"
	memuserrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/userrepo"
	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/app/sessions"
	"github.com/yoga-studio/booking-api/internal/app/teachers"
	"github.com/yoga-studio/booking-api/internal/app/users"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	"github.com/yoga-studio/booking-api/internal/platform/config"
	"github.com/yoga-studio/booking-api/internal/platform/metrics"
	"github.com/yoga-studio/booking-api/internal/platform/password"
	"github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

type testEnv struct {
	handler  http.Handler
	clock    *memclock.ManualClock
	codec    *tokencodec.Codec
	users    *memuserrepo.Repo
	teachers *memteacherrepo.Repo
	hasher   *password.BcryptHasher
	metrics  *metrics.Metrics
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC))
	codec, err := tokencodec.New(config.AuthConfig{Secret: []byte("test-secret-test-secret-test-secret"), TTL: time.Hour}, clk)
	if err != nil {
		t.Fatalf("tokencodec.New() err=%v", err)
	}

	userRepo := memuserrepo.NewRepo()
	sessionRepo := memsessionrepo.NewRepo()
	teacherRepo := memteacherrepo.NewRepo()
	hasher := password.NewBcryptHasher(bcrypt.MinCost)
	m := metrics.New()

	authSvc := auth.NewService(userRepo, hasher, codec, memloginlimiter.New(clk, 5, 15*time.Minute), clk)
	authSvc.Metrics = m
	sessionSvc := sessions.NewService(sessionRepo, userRepo, teacherRepo, clk)
	sessionSvc.Metrics = m

	srv := NewServer(authSvc, sessionSvc, users.NewService(userRepo, sessionRepo), teachers.NewService(teacherRepo), memidempotency.NewStore())
	h := NewRouterWithOptions(srv, RouterOptions{
		AuthMiddleware: NewAuthMiddleware(codec, auth.NewResolver(userRepo), m),
		Metrics:        m,
	})

	return &testEnv{
		handler:  h,
		clock:    clk,
		codec:    codec,
		users:    userRepo,
		teachers: teacherRepo,
		hasher:   hasher,
		metrics:  m,
	}
}

// mustUser stores an account with the given password and returns it.
func (e *testEnv) mustUser(t *testing.T, email, plain string, admin bool) userrepo.User {
	t.Helper()
	hash, err := e.hasher.Hash(plain)
	if err != nil {
		t.Fatalf("Hash() err=%v", err)
	}
	u, err := e.users.Create(context.Background(), userrepo.User{
		Email:        email,
		FirstName:    "Test",
		LastName:     "User",
		PasswordHash: hash,
		Admin:        admin,
	})
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	return u
}

func (e *testEnv) mustTeacher(t *testing.T) domain.Teacher {
	t.Helper()
	tch, err := e.teachers.Create(context.Background(), domain.Teacher{FirstName: "Margot", LastName: "DELAHAYE"})
	if err != nil {
		t.Fatalf("Create() err=%v", err)
	}
	return tch
}

func (e *testEnv) tokenFor(t *testing.T, u userrepo.User) string {
	t.Helper()
	p, err := domain.NewPrincipal(u.ID, domain.Username(u.Email), domain.PersonName{First: u.FirstName, Last: u.LastName}, u.Admin, u.PasswordHash)
	if err != nil {
		t.Fatalf("NewPrincipal() err=%v", err)
	}
	_, raw, err := e.codec.Issue(p)
	if err != nil {
		t.Fatalf("Issue() err=%v", err)
	}
	return raw
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	e.handler.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rr.Body.Bytes(), &v); err != nil {
		t.Fatalf("unmarshal %q: %v", rr.Body.String(), err)
	}
	return v
}
