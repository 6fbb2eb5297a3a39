package itest

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/yoga-studio/booking-api/internal/adapters/httpapi"
	memclock "github.com/yoga-studio/booking-api/internal/adapters/memory/clock"
	memidempotency "github.com/yoga-studio/booking-api/internal/adapters/memory/idempotency"
	memloginlimiter "github.com/yoga-studio/booking-api/internal/adapters/memory/loginlimiter"
	memsessionrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/sessionrepo"
	memteacherrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/teacherrepo"
	memuserrepo "github.com/yoga-studio/booking-api/internal/adapters/memory/userrepo"
	pgidempotency "github.com/yoga-studio/booking-api/internal/adapters/postgres/idempotency"
	pgsessionrepo "github.com/yoga-studio/booking-api/internal/adapters/postgres/sessionrepo"
	pgteacherrepo "github.com/yoga-studio/booking-api/internal/adapters/postgres/teacherrepo"
	postgres_testutil "github.com/yoga-studio/booking-api/internal/adapters/postgres/testutil"
	pguserrepo "github.com/yoga-studio/booking-api/internal/adapters/postgres/userrepo"
	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/app/sessions"
	"github.com/yoga-studio/booking-api/internal/app/teachers"
	"github.com/yoga-studio/booking-api/internal/app/users"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	"github.com/yoga-studio/booking-api/internal/platform/config"
	"github.com/yoga-studio/booking-api/internal/platform/password"
	idempotencyport "github.com/yoga-studio/booking-api/internal/ports/out/idempotency"
	sessionrepoport "github.com/yoga-studio/booking-api/internal/ports/out/sessionrepo"
	teacherrepoport "github.com/yoga-studio/booking-api/internal/ports/out/teacherrepo"
	userrepoport "github.com/yoga-studio/booking-api/internal/ports/out/userrepo"
)

type backend string

const (
	backendMemory   backend = "memory"
	backendPostgres backend = "postgres"
)

func backendsFromEnv(t *testing.T) []backend {
	t.Helper()
	switch strings.ToLower(strings.TrimSpace(os.Getenv("ITEST_BACKEND"))) {
	case "", "memory":
		return []backend{backendMemory}
	case "postgres":
		return []backend{backendPostgres}
	case "all":
		return []backend{backendMemory, backendPostgres}
	default:
		t.Fatalf("unknown ITEST_BACKEND value (expected memory|postgres|all)")
		return nil
	}
}

type testServer struct {
	baseURL  string
	client   *http.Client
	teachers teacherrepoport.Repository
}

func newTestServer(t *testing.T, b backend) *testServer {
	t.Helper()

	clk := memclock.NewManualClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))

	var (
		userRepo    userrepoport.Repository
		sessionRepo sessionrepoport.Repository
		teacherRepo teacherrepoport.Repository
		idemStore   idempotencyport.Store
	)

	switch b {
	case backendPostgres:
		pool := postgres_testutil.OpenMigratedPool(t)
		userRepo = pguserrepo.NewRepo(pool)
		sessionRepo = pgsessionrepo.NewRepo(pool)
		teacherRepo = pgteacherrepo.NewRepo(pool)
		idemStore = pgidempotency.NewStore(pool)
	case backendMemory:
		userRepo = memuserrepo.NewRepo()
		sessionRepo = memsessionrepo.NewRepo()
		teacherRepo = memteacherrepo.NewRepo()
		idemStore = memidempotency.NewStore()
	default:
		t.Fatalf("unknown backend: %s", b)
	}

	codec, err := tokencodec.New(config.AuthConfig{Secret: []byte("itest-secret"), TTL: time.Hour}, clk)
	if err != nil {
		t.Fatalf("tokencodec.New: %v", err)
	}
	authSvc := auth.NewService(userRepo, password.NewBcryptHasher(bcrypt.MinCost), codec, memloginlimiter.New(clk, 5, 15*time.Minute), clk)
	api := httpapi.NewServer(
		authSvc,
		sessions.NewService(sessionRepo, userRepo, teacherRepo, clk),
		users.NewService(userRepo, sessionRepo),
		teachers.NewService(teacherRepo),
		idemStore,
	)

	// Integration tests use the dev auth middleware to stay fully local and deterministic.
	// We pass empty default subject to ensure requests MUST provide X-Debug-Subject, allowing
	// auth-failure coverage.
	authMW := httpapi.NewDevAuthMiddleware(auth.NewResolver(userRepo), "")
	handler := httpapi.NewRouterWithOptions(api, httpapi.RouterOptions{AuthMiddleware: authMW})

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return &testServer{
		baseURL:  srv.URL,
		client:   srv.Client(),
		teachers: teacherRepo,
	}
}

func (s *testServer) url(path string) string {
	if strings.HasPrefix(path, "/") {
		return s.baseURL + path
	}
	return s.baseURL + "/" + path
}

func (s *testServer) doJSON(t *testing.T, method string, path string, subject string, body any) (int, []byte, http.Header) {
	t.Helper()

	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, s.url(path), r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if subject != "" {
		req.Header.Set("X-Debug-Subject", subject)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()
	out, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, out, resp.Header
}

// register creates an account through the public API and returns its email.
func (s *testServer) register(t *testing.T, first string) string {
	t.Helper()
	email := strings.ToLower(first) + "-" + uuid.NewString()[:8] + "@studio.com"
	status, body, _ := s.doJSON(t, http.MethodPost, "/api/auth/register", "", httpapi.SignupRequest{
		Email: email, FirstName: first, LastName: "Tester", Password: "secret!1",
	})
	if status != http.StatusOK {
		t.Fatalf("register status=%d body=%s", status, string(body))
	}
	return email
}

// login returns the id of the account behind email.
func (s *testServer) login(t *testing.T, email string) int64 {
	t.Helper()
	status, body, _ := s.doJSON(t, http.MethodPost, "/api/auth/login", "", httpapi.LoginRequest{Email: email, Password: "secret!1"})
	if status != http.StatusOK {
		t.Fatalf("login status=%d body=%s", status, string(body))
	}
	return mustUnmarshal[httpapi.JwtResponse](t, body).ID
}

func (s *testServer) anyTeacher(t *testing.T) domain.TeacherID {
	t.Helper()
	ctx := context.Background()
	ts, err := s.teachers.List(ctx)
	if err != nil {
		t.Fatalf("list teachers: %v", err)
	}
	if len(ts) > 0 {
		return ts[0].ID
	}
	tch, err := s.teachers.Create(ctx, domain.Teacher{FirstName: "Margot", LastName: "DELAHAYE"})
	if err != nil {
		t.Fatalf("create teacher: %v", err)
	}
	return tch.ID
}

func mustUnmarshal[T any](t *testing.T, b []byte) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("unmarshal: %v\nbody=%s", err, string(b))
	}
	return out
}

func requireErrorCode(t *testing.T, status int, body []byte, wantStatus int, wantCode string) {
	t.Helper()
	if status != wantStatus {
		t.Fatalf("status=%d want=%d body=%s", status, wantStatus, string(body))
	}
	got := mustUnmarshal[httpapi.ErrorResponse](t, body)
	if got.Code != wantCode {
		t.Fatalf("code=%q want=%q body=%s", got.Code, wantCode, string(body))
	}
}

func requireHeaderPresent(t *testing.T, h http.Header, key string) {
	t.Helper()
	if strings.TrimSpace(h.Get(key)) == "" {
		t.Fatalf("expected header %q to be present", key)
	}
}
