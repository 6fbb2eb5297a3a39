package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	"github.com/yoga-studio/booking-api/internal/platform/metrics"
)

func assertUnauthorized(t *testing.T, rec *httptest.ResponseRecorder, path, cause string) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, http.StatusUnauthorized, rec.Body.String())
	}
	ur := decodeBody[UnauthorizedResponse](t, rec)
	if ur.Status != http.StatusUnauthorized || ur.Error != "Unauthorized" {
		t.Fatalf("body: got %+v", ur)
	}
	if ur.Message != cause {
		t.Fatalf("message: got %q want %q", ur.Message, cause)
	}
	if ur.Path != path {
		t.Fatalf("path: got %q want %q", ur.Path, path)
	}
}

func TestAuthMiddleware_MissingHeader_401(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/api/session", "", nil)
	assertUnauthorized(t, rec, "/api/session", CauseAuthenticationRequired)
}

func TestAuthMiddleware_NonBearerHeader_401(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/teacher", nil)
	req.Header.Set("Authorization", "Basic abc")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)

	assertUnauthorized(t, rec, "/api/teacher", CauseAuthenticationRequired)
}

func TestAuthMiddleware_ValidToken_Allows(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "yoga@studio.com", "test!1234", false)
	rec := env.do(t, http.MethodGet, "/api/session", env.tokenFor(t, u), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

func TestAuthMiddleware_RejectedTokens_401(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		token func(env *testEnv, raw string) string
	}{
		{name: "garbage", token: func(*testEnv, string) string { return "not.a.jwt" }},
		{name: "tampered", token: func(_ *testEnv, raw string) string { return raw[:len(raw)-2] + "xx" }},
		{name: "expired", token: func(env *testEnv, raw string) string {
			env.clock.Advance(time.Hour + time.Second)
			return raw
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			env := newTestEnv(t)
			u := env.mustUser(t, "yoga@studio.com", "test!1234", false)
			raw := tc.token(env, env.tokenFor(t, u))

			rec := env.do(t, http.MethodGet, "/api/session", raw, nil)
			assertUnauthorized(t, rec, "/api/session", CauseAuthenticationRequired)
		})
	}
}

func TestAuthMiddleware_DeletedAccount_IsAnonymous(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	u := env.mustUser(t, "gone@studio.com", "test!1234", false)
	raw := env.tokenFor(t, u)
	if err := env.users.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("Delete() err=%v", err)
	}

	rec := env.do(t, http.MethodGet, "/api/session", raw, nil)
	assertUnauthorized(t, rec, "/api/session", CauseAuthenticationRequired)
}

func TestAuthMiddleware_InvalidTokenOnPublicRoute_Proceeds(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	env.mustUser(t, "yoga@studio.com", "test!1234", false)

	rec := env.do(t, http.MethodPost, "/api/auth/login", "garbage", LoginRequest{Email: "yoga@studio.com", Password: "test!1234"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d want %d body=%s", rec.Code, http.StatusOK, rec.Body.String())
	}
}

type panicDecoder struct{}

func (panicDecoder) Decode(string) (tokencodec.Token, error) { panic("boom") }

type stubDecoder struct{ sub string }

func (d stubDecoder) Decode(string) (tokencodec.Token, error) {
	return tokencodec.Token{Subject: d.sub}, nil
}

type stubResolver struct {
	p   domain.Principal
	err error
}

func (r stubResolver) Resolve(context.Context, string) (domain.Principal, error) { return r.p, r.err }

// serveWhoAmI reports whether a principal reached the handler.
func serveWhoAmI(mw func(http.Handler) http.Handler, header string) (int, string) {
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := PrincipalFromContext(r.Context()); ok {
			_, _ = io.WriteString(w, string(p.Username()))
			return
		}
		_, _ = io.WriteString(w, "anonymous")
	}))
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

func TestAuthMiddleware_DecoderPanic_IsAnonymous(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	code, body := serveWhoAmI(NewAuthMiddleware(panicDecoder{}, stubResolver{}, m), "Bearer abc")
	if code != http.StatusOK || body != "anonymous" {
		t.Fatalf("got code=%d body=%q", code, body)
	}
	if got := scrape(t, m); !strings.Contains(got, `booking_auth_token_rejections_total{reason="panic"} 1`) {
		t.Fatalf("missing panic rejection in metrics:\n%s", got)
	}
}

func TestAuthMiddleware_StoreError_IsAnonymous(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	mw := NewAuthMiddleware(stubDecoder{sub: "yoga@studio.com"}, stubResolver{err: errors.New("connection refused")}, m)
	code, body := serveWhoAmI(mw, "Bearer abc")
	if code != http.StatusOK || body != "anonymous" {
		t.Fatalf("got code=%d body=%q", code, body)
	}
	if got := scrape(t, m); !strings.Contains(got, `booking_auth_token_rejections_total{reason="store_error"} 1`) {
		t.Fatalf("missing store_error rejection in metrics:\n%s", got)
	}
}

func TestAuthMiddleware_BindsResolvedPrincipal(t *testing.T) {
	t.Parallel()

	p, err := domain.NewPrincipal(7, "Yoga@Studio.com", domain.PersonName{First: "Yo", Last: "Ga"}, false, "h")
	if err != nil {
		t.Fatalf("NewPrincipal() err=%v", err)
	}
	code, body := serveWhoAmI(NewAuthMiddleware(stubDecoder{sub: "yoga@studio.com"}, stubResolver{p: p}, nil), "Bearer abc")
	if code != http.StatusOK || body != "yoga@studio.com" {
		t.Fatalf("got code=%d body=%q", code, body)
	}
}

func TestDevAuthMiddleware(t *testing.T) {
	t.Parallel()

	p, err := domain.NewPrincipal(1, "dev@studio.com", domain.PersonName{}, true, "")
	if err != nil {
		t.Fatalf("NewPrincipal() err=%v", err)
	}
	if _, body := serveWhoAmI(NewDevAuthMiddleware(stubResolver{p: p}, "dev@studio.com"), ""); body != "dev@studio.com" {
		t.Fatalf("default subject: got %q", body)
	}
	if _, body := serveWhoAmI(NewDevAuthMiddleware(stubResolver{p: p}, ""), ""); body != "anonymous" {
		t.Fatalf("no subject: got %q", body)
	}
	if _, body := serveWhoAmI(NewDevAuthMiddleware(stubResolver{err: errors.New("nope")}, "x"), ""); body != "anonymous" {
		t.Fatalf("unresolvable subject: got %q", body)
	}
}

func scrape(t *testing.T, m *metrics.Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	return rec.Body.String()
}
