package httpapi

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/yoga-studio/booking-api/internal/app/auth"
	"github.com/yoga-studio/booking-api/internal/domain"
	"github.com/yoga-studio/booking-api/internal/platform/auth/tokencodec"
	"github.com/yoga-studio/booking-api/internal/platform/metrics"
)

// TokenDecoder verifies bearer tokens.
type TokenDecoder interface {
	Decode(raw string) (tokencodec.Token, error)
}

// PrincipalResolver loads the principal named by a token subject.
type PrincipalResolver interface {
	Resolve(ctx context.Context, subject string) (domain.Principal, error)
}

// NewAuthMiddleware binds the principal of a valid Authorization: Bearer <token> header
// into the request context.
//
// It never rejects a request. A missing, malformed, expired or unresolvable token leaves the
// request anonymous; RequireAuthenticated decides whether that is acceptable.
func NewAuthMiddleware(dec TokenDecoder, res PrincipalResolver, m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				m.AuthOutcome(metrics.OutcomeAnonymous)
				next.ServeHTTP(w, r)
				return
			}

			p, reason := authenticate(r, dec, res, raw)
			if reason != "" {
				m.AuthRejected(reason)
				m.AuthOutcome(metrics.OutcomeAnonymous)
				next.ServeHTTP(w, r)
				return
			}

			m.AuthOutcome(metrics.OutcomeAuthenticated)
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// authenticate returns the principal for raw, or the reason it could not be produced.
func authenticate(r *http.Request, dec TokenDecoder, res PrincipalResolver, raw string) (p domain.Principal, reason string) {
	defer func() {
		if rec := recover(); rec != nil {
			log.Printf("auth: request %s: recovered panic: %v", middleware.GetReqID(r.Context()), rec)
			p, reason = domain.Principal{}, metrics.ReasonPanic
		}
	}()

	tok, err := dec.Decode(raw)
	if err != nil {
		switch {
		case errors.Is(err, tokencodec.ErrExpired):
			return domain.Principal{}, metrics.ReasonExpired
		case errors.Is(err, tokencodec.ErrBadSignature):
			return domain.Principal{}, metrics.ReasonBadSignature
		default:
			return domain.Principal{}, metrics.ReasonMalformed
		}
	}

	p, err = res.Resolve(r.Context(), tok.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrPrincipalNotFound) {
			return domain.Principal{}, metrics.ReasonUnknownSubject
		}
		log.Printf("auth: request %s: resolve principal: %v", middleware.GetReqID(r.Context()), err)
		return domain.Principal{}, metrics.ReasonStoreError
	}
	return p, ""
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, prefix))
	return raw, raw != ""
}

// NewDevAuthMiddleware is a local/dev-only auth shim.
//
// It resolves the account named by X-Debug-Subject (or defaultSubject when the header is
// absent) without any token. Do NOT use this in production deployments.
func NewDevAuthMiddleware(res PrincipalResolver, defaultSubject string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sub := strings.TrimSpace(r.Header.Get("X-Debug-Subject"))
			if sub == "" {
				sub = strings.TrimSpace(defaultSubject)
			}
			if sub == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := res.Resolve(r.Context(), sub)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// RequireAuthenticated short-circuits anonymous requests with a 401.
func RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := PrincipalFromContext(r.Context()); !ok {
			WriteUnauthorized(w, r, CauseAuthenticationRequired)
			return
		}
		next.ServeHTTP(w, r)
	})
}
