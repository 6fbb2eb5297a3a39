package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/oapi-codegen/nullable"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/yoga-studio/booking-api/internal/app/auth"
)

func sessionBody(teacherID int64) SessionRequest {
	return SessionRequest{
		Name:        "Morning flow",
		Date:        openapi_types.Date{Time: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)},
		TeacherID:   nullable.NewNullableWithValue(teacherID),
		Description: "Gentle flow for all levels",
	}
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/register", "", SignupRequest{
		Email: "new@studio.com", FirstName: "Newbie", LastName: "Yogi", Password: "secret!1",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("register status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if msg := decodeBody[MessageResponse](t, rec); msg.Message != auth.RegisteredMessage {
		t.Fatalf("register message: got %q", msg.Message)
	}

	rec = env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "new@studio.com", Password: "secret!1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("login status: got %d body=%s", rec.Code, rec.Body.String())
	}
	jr := decodeBody[JwtResponse](t, rec)
	if jr.Type != "Bearer" || jr.Username != "new@studio.com" || jr.FirstName != "Newbie" || jr.Admin {
		t.Fatalf("login body: got %+v", jr)
	}
	tok, err := env.codec.Decode(jr.Token)
	if err != nil {
		t.Fatalf("Decode() err=%v", err)
	}
	if tok.Subject != "new@studio.com" {
		t.Fatalf("subject: got %q", tok.Subject)
	}

	rec = env.do(t, http.MethodGet, "/api/teacher", jr.Token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("teacher list with issued token: got %d", rec.Code)
	}
}

func TestRegister_DuplicateEmail_400(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.mustUser(t, "taken@studio.com", "secret!1", false)

	rec := env.do(t, http.MethodPost, "/api/auth/register", "", SignupRequest{
		Email: "taken@studio.com", FirstName: "Again", LastName: "Yogi", Password: "secret!1",
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if er := decodeBody[ErrorResponse](t, rec); er.Message != auth.EmailTakenMessage {
		t.Fatalf("message: got %q", er.Message)
	}
}

func TestLogin_BadCredentials_SameForUnknownEmail(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.mustUser(t, "yoga@studio.com", "test!1234", false)

	for _, body := range []LoginRequest{
		{Email: "yoga@studio.com", Password: "wrong"},
		{Email: "nobody@studio.com", Password: "test!1234"},
	} {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", body)
		assertUnauthorized(t, rec, "/api/auth/login", CauseBadCredentials)
	}
}

func TestLogin_Throttled_429(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.mustUser(t, "yoga@studio.com", "test!1234", false)

	for i := 0; i < 5; i++ {
		rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "yoga@studio.com", Password: "wrong"})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d", i, rec.Code)
		}
	}
	rec := env.do(t, http.MethodPost, "/api/auth/login", "", LoginRequest{Email: "yoga@studio.com", Password: "test!1234"})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if er := decodeBody[ErrorResponse](t, rec); er.Code != "TOO_MANY_ATTEMPTS" {
		t.Fatalf("code: got %q", er.Code)
	}
}

func TestLogin_IgnoresForwardedForByDefault(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	login := func(i int) *httptest.ResponseRecorder {
		body, _ := json.Marshal(LoginRequest{Email: fmt.Sprintf("user%d@studio.com", i), Password: "wrong"})
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("198.51.100.%d", i))
		req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i))
		rr := httptest.NewRecorder()
		env.handler.ServeHTTP(rr, req)
		return rr
	}

	// Every attempt uses a fresh email and spoofed address; only RemoteAddr is shared.
	for i := 0; i < 5; i++ {
		if rec := login(i); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: got %d", i, rec.Code)
		}
	}
	rec := login(5)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
	if er := decodeBody[ErrorResponse](t, rec); er.Code != "TOO_MANY_ATTEMPTS" {
		t.Fatalf("code: got %q", er.Code)
	}
}

func TestSessionCRUD(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	admin := env.mustUser(t, "admin@studio.com", "test!1234", true)
	token := env.tokenFor(t, admin)
	tch := env.mustTeacher(t)

	rec := env.do(t, http.MethodPost, "/api/session", token, sessionBody(int64(tch.ID)))
	if rec.Code != http.StatusOK {
		t.Fatalf("create: got %d body=%s", rec.Code, rec.Body.String())
	}
	created := decodeBody[SessionResponse](t, rec)
	if created.ID == 0 || created.Name != "Morning flow" || len(created.Users) != 0 {
		t.Fatalf("create body: got %+v", created)
	}
	if v, err := created.TeacherID.Get(); err != nil || v != int64(tch.ID) {
		t.Fatalf("teacher_id: got %v err=%v", v, err)
	}

	path := fmt.Sprintf("/api/session/%d", created.ID)
	update := sessionBody(int64(tch.ID))
	update.Name = "Evening flow"
	rec = env.do(t, http.MethodPut, path, token, update)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: got %d body=%s", rec.Code, rec.Body.String())
	}
	if got := decodeBody[SessionResponse](t, rec); got.Name != "Evening flow" {
		t.Fatalf("update name: got %q", got.Name)
	}

	rec = env.do(t, http.MethodGet, "/api/session", token, nil)
	if list := decodeBody[[]SessionResponse](t, rec); len(list) != 1 {
		t.Fatalf("list: got %d sessions", len(list))
	}

	rec = env.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("delete: got %d body=%q", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, path, token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rec.Code)
	}
	if er := decodeBody[ErrorResponse](t, rec); er.Code != "SESSION_NOT_FOUND" {
		t.Fatalf("code: got %q", er.Code)
	}
}

func TestCreateSession_MissingTeacher_400(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "yoga@studio.com", "test!1234", false)

	body := sessionBody(0)
	body.TeacherID = nullable.NewNullNullable[int64]()
	rec := env.do(t, http.MethodPost, "/api/session", env.tokenFor(t, u), body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d body=%s", rec.Code, rec.Body.String())
	}
}

func TestParticipateFlow(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "yoga@studio.com", "test!1234", false)
	token := env.tokenFor(t, u)
	tch := env.mustTeacher(t)

	rec := env.do(t, http.MethodPost, "/api/session", token, sessionBody(int64(tch.ID)))
	created := decodeBody[SessionResponse](t, rec)
	path := fmt.Sprintf("/api/session/%d/participate/%d", created.ID, u.ID)

	rec = env.do(t, http.MethodPost, path, token, nil)
	if rec.Code != http.StatusOK || rec.Body.Len() != 0 {
		t.Fatalf("participate: got %d body=%q", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodPost, path, token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("participate twice: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/session/%d", created.ID), token, nil)
	if got := decodeBody[SessionResponse](t, rec); len(got.Users) != 1 || got.Users[0] != int64(u.ID) {
		t.Fatalf("roster: got %v", got.Users)
	}

	rec = env.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("leave: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodDelete, path, token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("leave twice: got %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, fmt.Sprintf("/api/session/999/participate/%d", u.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing session: got %d", rec.Code)
	}
}

func TestInvalidPathID_400(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "yoga@studio.com", "test!1234", false)
	token := env.tokenFor(t, u)

	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/session/abc"},
		{http.MethodGet, "/api/teacher/1.5"},
		{http.MethodGet, "/api/user/x"},
		{http.MethodPost, "/api/session/1/participate/me"},
	}
	for _, tc := range cases {
		path := tc.path
		rec := env.do(t, tc.method, path, token, nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: got %d", path, rec.Code)
		}
		er := decodeBody[ErrorResponse](t, rec)
		if er.Code != "INVALID_ID" {
			t.Fatalf("%s code: got %q", path, er.Code)
		}
		if rid, err := er.RequestId.Get(); err != nil || rid == "" {
			t.Fatalf("%s: expected requestId to be a non-empty string", path)
		}
	}
}

func TestTeachers(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "yoga@studio.com", "test!1234", false)
	token := env.tokenFor(t, u)
	tch := env.mustTeacher(t)

	rec := env.do(t, http.MethodGet, "/api/teacher", token, nil)
	if list := decodeBody[[]TeacherResponse](t, rec); len(list) != 1 || list[0].LastName != "DELAHAYE" {
		t.Fatalf("list: got %+v", list)
	}
	rec = env.do(t, http.MethodGet, fmt.Sprintf("/api/teacher/%d", tch.ID), token, nil)
	if got := decodeBody[TeacherResponse](t, rec); got.FirstName != "Margot" {
		t.Fatalf("get: got %+v", got)
	}
	rec = env.do(t, http.MethodGet, "/api/teacher/404", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing: got %d", rec.Code)
	}
}

func TestUserGetAndDelete(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	owner := env.mustUser(t, "owner@studio.com", "test!1234", false)
	other := env.mustUser(t, "other@studio.com", "test!1234", false)
	ownerToken := env.tokenFor(t, owner)
	otherToken := env.tokenFor(t, other)
	path := fmt.Sprintf("/api/user/%d", owner.ID)

	rec := env.do(t, http.MethodGet, path, otherToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("user body leaks password: %s", rec.Body.String())
	}
	if got := decodeBody[UserResponse](t, rec); string(got.Email) != "owner@studio.com" {
		t.Fatalf("email: got %q", got.Email)
	}

	rec = env.do(t, http.MethodDelete, path, otherToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("delete by other: got %d", rec.Code)
	}
	if er := decodeBody[ErrorResponse](t, rec); er.Code != "NOT_ACCOUNT_OWNER" {
		t.Fatalf("code: got %q", er.Code)
	}

	rec = env.do(t, http.MethodDelete, path, ownerToken, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("delete by owner: got %d body=%s", rec.Code, rec.Body.String())
	}
	rec = env.do(t, http.MethodGet, path, otherToken, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rec.Code)
	}
	rec = env.do(t, http.MethodGet, "/api/session", ownerToken, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("deleted owner's token: got %d", rec.Code)
	}
}

func TestInfraEndpoints(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	if rec := env.do(t, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz: got %d", rec.Code)
	}
	env.do(t, http.MethodGet, "/api/session", "", nil)
	rec := env.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics: got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `booking_auth_requests_total{outcome="anonymous"} 1`) {
		t.Fatalf("metrics body missing anonymous outcome:\n%s", rec.Body.String())
	}
}

func TestRouter_CustomBasePath(t *testing.T) {
	t.Parallel()

	h := NewRouterWithOptions(&Server{}, RouterOptions{BasePath: "/v2/"})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v2/session", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d", rec.Code)
	}
}

func TestCreateSession_IdempotencyKey(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "yoga@studio.com", "test!1234", false)
	token := env.tokenFor(t, u)
	tch := env.mustTeacher(t)

	post := func(body SessionRequest) *httptest.ResponseRecorder {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		req := httptest.NewRequest(http.MethodPost, "/api/session", bytes.NewReader(b))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "create-1")
		rec := httptest.NewRecorder()
		env.handler.ServeHTTP(rec, req)
		return rec
	}

	first := post(sessionBody(int64(tch.ID)))
	if first.Code != http.StatusOK {
		t.Fatalf("first: got %d body=%s", first.Code, first.Body.String())
	}
	second := post(sessionBody(int64(tch.ID)))
	if second.Code != http.StatusOK || second.Body.String() != first.Body.String() {
		t.Fatalf("replay: got %d body=%s want %s", second.Code, second.Body.String(), first.Body.String())
	}
	if second.Header().Get("Idempotent-Replayed") != "true" {
		t.Fatalf("expected replay header")
	}

	rec := env.do(t, http.MethodGet, "/api/session", token, nil)
	if list := decodeBody[[]SessionResponse](t, rec); len(list) != 1 {
		t.Fatalf("sessions after replay: got %d want 1", len(list))
	}

	changed := sessionBody(int64(tch.ID))
	changed.Name = "Another class"
	conflict := post(changed)
	if conflict.Code != http.StatusConflict {
		t.Fatalf("reuse: got %d body=%s", conflict.Code, conflict.Body.String())
	}
	if er := decodeBody[ErrorResponse](t, conflict); er.Code != "IDEMPOTENCY_KEY_REUSE" {
		t.Fatalf("code: got %q", er.Code)
	}
}
