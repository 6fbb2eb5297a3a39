package httpapi

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yoga-studio/booking-api/internal/platform/metrics"
)

type RouterOptions struct {
	// AuthMiddleware binds the request principal. Nil leaves every request anonymous.
	AuthMiddleware func(http.Handler) http.Handler
	// BasePath prefixes the API routes. Defaults to "/api".
	BasePath string
	Metrics  *metrics.Metrics
	// AccessLog enables chi's request logger.
	AccessLog bool
	// TrustProxyHeaders replaces RemoteAddr with X-Forwarded-For / X-Real-IP.
	// Leave off unless a proxy in front rewrites those headers, since the login limiter keys on the client IP.
	TrustProxyHeaders bool
}

// NewRouter constructs the API HTTP router with default options.
func NewRouter(s *Server) http.Handler {
	return NewRouterWithOptions(s, RouterOptions{})
}

func NewRouterWithOptions(s *Server, opts RouterOptions) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(middleware.RealIP)
	}
	if opts.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	// Infra endpoints live outside the base path.
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())

	base := opts.BasePath
	if base == "" {
		base = "/api"
	}
	base = strings.TrimRight(base, "/")

	routes := func(api chi.Router) {
		if opts.AuthMiddleware != nil {
			api.Use(opts.AuthMiddleware)
		}

		api.Post("/auth/login", s.Login)
		api.Post("/auth/register", s.Register)

		api.Group(func(p chi.Router) {
			p.Use(RequireAuthenticated)

			p.Get("/session", s.ListSessions)
			p.Post("/session", s.CreateSession)
			p.Get("/session/{id}", s.GetSession)
			p.Put("/session/{id}", s.UpdateSession)
			p.Delete("/session/{id}", s.DeleteSession)
			p.Post("/session/{id}/participate/{userId}", s.Participate)
			p.Delete("/session/{id}/participate/{userId}", s.NoLongerParticipate)

			p.Get("/teacher", s.ListTeachers)
			p.Get("/teacher/{id}", s.GetTeacher)

			p.Get("/user/{id}", s.GetUser)
			p.Delete("/user/{id}", s.DeleteUser)
		})
	}
	if base == "" {
		r.Group(routes)
	} else {
		r.Route(base, routes)
	}
	return r
}
